package ingest

import (
	"fmt"

	"github.com/japaniel/vocabimport/pkg/db"
)

// Batch is a contiguous slice of the normalized records of one file.
type Batch struct {
	// Index is the 0-based position of the batch in the run.
	Index   int
	Records []db.Record
}

// Partition splits records into ceil(len/size) batches of at most size
// records, preserving order. Duplicates across batches are left alone; the
// store's conflict key handles them.
func Partition(records []db.Record, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	batches := make([]Batch, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, Batch{Index: len(batches), Records: records[start:end:end]})
	}
	return batches, nil
}
