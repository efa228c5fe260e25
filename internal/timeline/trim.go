package timeline

import (
	"errors"
	"fmt"
)

// ErrTrimRange is returned when a trim selection does not fit the current
// timeline.
var ErrTrimRange = errors.New("trim range out of timeline bounds")

// TrimRange is the inclusive sub-interval of the global timeline selected
// for export.
type TrimRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullRange covers the whole timeline. For an empty timeline it is
// (0, -1), which no frame satisfies.
func FullRange(totalFrames int) TrimRange {
	return TrimRange{Start: 0, End: totalFrames - 1}
}

// Validate checks the range against a timeline of totalFrames frames.
func (r TrimRange) Validate(totalFrames int) error {
	if r.Start < 0 || r.Start > r.End || r.End >= totalFrames {
		return fmt.Errorf("%w: [%d, %d] with %d total frames", ErrTrimRange, r.Start, r.End, totalFrames)
	}
	return nil
}

// FrameCount returns the number of frames the range covers.
func (r TrimRange) FrameCount() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}
