// Package batch partitions the extractor's output into bounded request
// batches and implements the JSON exchange format consumed and produced by
// the external translation collaborator.
package batch

import (
	"github.com/DishanH/Pali-sub001/internal/extract"
)

// DefaultMaxSize is the default unit count per batch.
const DefaultMaxSize = 50

// Batch is a contiguous slice of the extraction order. Index is derived from
// position, so the same extraction snapshot always produces the same
// unit-to-batch assignment — "resume from batch K" stays unambiguous.
type Batch struct {
	Index int
	Units []*extract.Unit
}

// Chunk splits units into batches of at most maxSize, preserving order.
// maxSize ≤ 0 selects DefaultMaxSize. The result is a pure function of its
// input: no reordering, no rebalancing.
func Chunk(units []*extract.Unit, maxSize int) []Batch {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var batches []Batch
	for start := 0; start < len(units); start += maxSize {
		end := start + maxSize
		if end > len(units) {
			end = len(units)
		}
		batches = append(batches, Batch{
			Index: len(batches),
			Units: units[start:end],
		})
	}
	return batches
}

// IndexFor returns the batch index a unit at position pos lands in.
func IndexFor(pos, maxSize int) int {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return pos / maxSize
}
