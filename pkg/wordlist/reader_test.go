package wordlist

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) []Row {
	t.Helper()
	var out []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, row)
	}
}

func TestTabDelimiterDetectedFromFirstLine(t *testing.T) {
	in := "effort\tn. 努力；成就\nable\tadj. 能够的, 有能力的\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Equal(t, '\t', r.Delimiter())
	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"effort", "n. 努力；成就"}, rows[0].Fields)
	// commas inside a tab-delimited line are data
	assert.Equal(t, []string{"able", "adj. 能够的, 有能力的"}, rows[1].Fields)
	assert.Equal(t, 2, rows[1].Line)
}

func TestCommaDelimiterWithQuotes(t *testing.T) {
	in := "able,\"能, 可以\"\r\nabandon,放弃\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	assert.Equal(t, ',', r.Delimiter())
	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"able", "能, 可以"}, rows[0].Fields)
	assert.Equal(t, []string{"abandon", "放弃"}, rows[1].Fields)
}

func TestDelimiterIsNotReevaluated(t *testing.T) {
	// first line has no tab, so later tab lines are a single comma field
	in := "able,能\nabandon\t放弃\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, r.Skipped())
}

func TestShortLinesAreSkipped(t *testing.T) {
	in := "word\tdef\nlonely\n\n\t\nx\ty\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "y"}, rows[1].Fields)
	assert.Equal(t, 1, r.Skipped(), "blank and whitespace-only lines are ignored")
}

func TestTrailingTabLeavesOneField(t *testing.T) {
	in := "effort\tn. 努力\nable\t \n  abandon\tv. 放弃 \r\n"
	r, err := NewReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"effort", "n. 努力"}, rows[0].Fields)
	assert.Equal(t, []string{"abandon", "v. 放弃"}, rows[1].Fields)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, 1, r.Skipped(), "able has no definition once trimmed")
}

func TestBOMIsStripped(t *testing.T) {
	in := "\xEF\xBB\xBFword,phonetic\nable,'eibl\n"
	r, err := NewReader(strings.NewReader(in), Options{Header: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"word", "phonetic"}, r.Header())
	rows := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "able", rows[0].Fields[0])
}

func TestInvalidUTF8IsFatal(t *testing.T) {
	for _, in := range []string{
		"able\tok\nbad\t\xff\xfe\n",
		"able,ok\nbad,\xff\xfe\n",
	} {
		r, err := NewReader(strings.NewReader(in), Options{})
		require.NoError(t, err)

		_, err = r.Next()
		require.NoError(t, err)
		_, err = r.Next()
		assert.True(t, errors.Is(err, ErrInvalidUTF8), "got %v", err)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func TestEmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = NewReader(strings.NewReader("  \n"), Options{})
	assert.NoError(t, err, "only a fully empty first line at EOF counts as empty")

	_, err = NewReader(strings.NewReader("\xEF\xBB\xBF"), Options{Header: true})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestOpenGzipAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	plain := "able\t能\nabandon\t放弃\n"

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(plain))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	gzPath := filepath.Join(dir, "list.txt.gz")
	require.NoError(t, os.WriteFile(gzPath, buf.Bytes(), 0o644))

	r, err := Open(gzPath, Options{})
	require.NoError(t, err)
	rows := readAll(t, r)
	require.NoError(t, r.Close())
	require.Len(t, rows, 2)
	assert.Equal(t, "abandon", rows[1].Fields[0])

	fp := r.Fingerprint()
	assert.Equal(t, gzPath, fp.Path)
	assert.EqualValues(t, buf.Len(), fp.Bytes, "fingerprint covers the raw file bytes")

	// same content, same digest
	r2, err := Open(gzPath, Options{})
	require.NoError(t, err)
	readAll(t, r2)
	r2.Close()
	assert.Equal(t, fp.Digest, r2.Fingerprint().Digest)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "word_translation.txt")
	require.NoError(t, os.WriteFile(second, []byte("a,b\n"), 0o644))

	got, ok := Discover([]string{filepath.Join(dir, "word_translation.csv"), dir, second})
	require.True(t, ok)
	assert.Equal(t, second, got)

	_, ok = Discover([]string{filepath.Join(dir, "missing")})
	assert.False(t, ok)
}
