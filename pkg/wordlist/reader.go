// Package wordlist reads flat CSV/TSV vocabulary files as raw field rows.
package wordlist

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/xxh3"
)

var (
	// ErrFileNotFound is returned when the word list path does not exist.
	ErrFileNotFound = errors.New("word list not found")
	// ErrEmptyFile is returned when the word list has no content.
	ErrEmptyFile = errors.New("word list is empty")
	// ErrInvalidUTF8 is returned when a line is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	gzipMagic = []byte{0x1f, 0x8b}
)

// Options control how a word list is read.
type Options struct {
	// Header treats the first record as column names.
	Header bool
}

// Row is one raw input line split into fields.
type Row struct {
	Line   int
	Fields []string
}

// Fingerprint identifies the source file of a run.
type Fingerprint struct {
	Path   string
	Bytes  int64
	Digest uint64
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%s (%d bytes, xxh3 %016x)", f.Path, f.Bytes, f.Digest)
}

// Reader yields rows lazily. The delimiter is decided once from the first
// line: tab when it contains one, comma otherwise.
type Reader struct {
	path    string
	closers []io.Closer
	hash    *hashCounter

	delim  rune
	header []string

	lines *bufio.Reader
	csv   *csv.Reader

	line    int
	skipped int
}

type hashCounter struct {
	h *xxh3.Hasher
	n int64
}

func (c *hashCounter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return c.h.Write(p)
}

// Open opens path for reading. Gzip input is detected by its magic bytes.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	hc := &hashCounter{h: xxh3.New()}
	r, err := newReader(io.TeeReader(f, hc), opts, []io.Closer{f})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.path = path
	r.hash = hc
	return r, nil
}

// NewReader reads rows from an in-memory or streamed source.
func NewReader(src io.Reader, opts Options) (*Reader, error) {
	return newReader(src, opts, nil)
}

func newReader(src io.Reader, opts Options, closers []io.Closer) (*Reader, error) {
	br := bufio.NewReader(src)
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		closers = append(closers, zr)
		br = bufio.NewReader(zr)
	}

	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	first = strings.TrimPrefix(first, string(utf8BOM))
	if strings.TrimSpace(first) == "" && err == io.EOF {
		return nil, ErrEmptyFile
	}

	r := &Reader{closers: closers, delim: ','}
	if strings.ContainsRune(first, '\t') {
		r.delim = '\t'
	}
	rest := io.MultiReader(strings.NewReader(first), br)
	if r.delim == '\t' {
		r.lines = bufio.NewReader(rest)
	} else {
		cr := csv.NewReader(rest)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		r.csv = cr
	}

	if opts.Header {
		row, err := r.next()
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		if err != nil {
			return nil, err
		}
		r.header = row.Fields
	}
	return r, nil
}

// Delimiter reports the detected field delimiter.
func (r *Reader) Delimiter() rune { return r.delim }

// Header returns the header row when Options.Header was set.
func (r *Reader) Header() []string { return r.header }

// Skipped returns how many lines had fewer than two fields.
func (r *Reader) Skipped() int { return r.skipped }

// Fingerprint returns the identity of the bytes consumed so far. It covers
// the whole file once Next has returned io.EOF.
func (r *Reader) Fingerprint() Fingerprint {
	if r.hash == nil {
		return Fingerprint{Path: r.path}
	}
	return Fingerprint{Path: r.path, Bytes: r.hash.n, Digest: r.hash.h.Sum64()}
}

// Next returns the next row with at least two fields, or io.EOF.
func (r *Reader) Next() (Row, error) {
	for {
		row, err := r.next()
		if err != nil {
			return Row{}, err
		}
		if len(row.Fields) < 2 {
			r.skipped++
			continue
		}
		return row, nil
	}
}

func (r *Reader) next() (Row, error) {
	if r.csv != nil {
		return r.nextCSV()
	}
	return r.nextTSV()
}

func (r *Reader) nextTSV() (Row, error) {
	for {
		s, err := r.lines.ReadString('\n')
		if s == "" && err != nil {
			return Row{}, err
		}
		if err != nil && err != io.EOF {
			return Row{}, err
		}
		r.line++
		if !utf8.ValidString(s) {
			return Row{}, fmt.Errorf("line %d: %w", r.line, ErrInvalidUTF8)
		}
		// surrounding whitespace, tabs included, is not a field
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		return Row{Line: r.line, Fields: strings.Split(s, "\t")}, nil
	}
}

func (r *Reader) nextCSV() (Row, error) {
	for {
		rec, err := r.csv.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			r.skipped++
			continue
		}
		if err != nil {
			return Row{}, err
		}
		line, _ := r.csv.FieldPos(0)
		for _, f := range rec {
			if !utf8.ValidString(f) {
				return Row{}, fmt.Errorf("line %d: %w", line, ErrInvalidUTF8)
			}
		}
		return Row{Line: line, Fields: rec}, nil
	}
}

// Close releases the underlying file and decompressor.
func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Discover returns the first candidate path that exists as a regular file.
func Discover(candidates []string) (string, bool) {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}
