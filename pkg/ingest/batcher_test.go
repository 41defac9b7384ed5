package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocabimport/pkg/db"
)

func records(n int) []db.Record {
	out := make([]db.Record, n)
	for i := range out {
		out[i] = db.Record{Word: fmt.Sprintf("w%04d", i), Line: i + 1}
	}
	return out
}

func TestPartitionSizes(t *testing.T) {
	cases := []struct{ n, size, batches int }{
		{0, 500, 0},
		{1, 500, 1},
		{500, 500, 1},
		{501, 500, 2},
		{1234, 200, 7},
		{10, 1, 10},
	}
	for _, tc := range cases {
		in := records(tc.n)
		got, err := Partition(in, tc.size)
		require.NoError(t, err)
		assert.Len(t, got, tc.batches, "n=%d size=%d", tc.n, tc.size)

		var flat []db.Record
		for i, b := range got {
			assert.Equal(t, i, b.Index)
			assert.LessOrEqual(t, len(b.Records), tc.size)
			assert.NotEmpty(t, b.Records)
			flat = append(flat, b.Records...)
		}
		if tc.n > 0 {
			assert.Equal(t, in, flat, "concatenation must equal input")
		}
	}
}

func TestPartitionRejectsNonPositiveSize(t *testing.T) {
	_, err := Partition(records(3), 0)
	assert.Error(t, err)
}

func TestPartitionKeepsDuplicates(t *testing.T) {
	in := []db.Record{{Word: "able"}, {Word: "able"}, {Word: "able"}}
	got, err := Partition(in, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0].Records, 2)
	assert.Len(t, got[1].Records, 1)
}

func TestPartitionBatchesDoNotAlias(t *testing.T) {
	in := records(4)
	got, err := Partition(in, 2)
	require.NoError(t, err)
	first := append(got[0].Records, db.Record{Word: "extra"})
	assert.Equal(t, "w0002", got[1].Records[0].Word)
	assert.Len(t, first, 3)
}
