package entity

import "github.com/google/uuid"

// ExtractedFrame is an image persisted for one sample timestamp. Index is
// the timestamp ordinal and only drives the file name.
type ExtractedFrame struct {
	Index     int
	Timestamp float64
	Path      string
}

// ExtractionResult is the terminal outcome of one extraction. Exactly one of
// Err or Frames is meaningful: a nil Err with an empty Frames slice is a
// valid success.
type ExtractionResult struct {
	InvocationID uuid.UUID
	Duration     float64
	Attempted    int
	Frames       []ExtractedFrame
	Err          error
}

func (r ExtractionResult) Failed() bool { return r.Err != nil }

// Paths returns the frame locations in timestamp order.
func (r ExtractionResult) Paths() []string {
	paths := make([]string, len(r.Frames))
	for i, f := range r.Frames {
		paths[i] = f.Path
	}
	return paths
}

// Skipped is the number of timestamps that produced no frame. Callers that
// care about short results compare it against zero.
func (r ExtractionResult) Skipped() int {
	if r.Failed() {
		return 0
	}
	return r.Attempted - len(r.Frames)
}
