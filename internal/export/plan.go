// Package export produces trimmed, offset-corrected outputs for every
// loaded stream: re-encoded synced videos or numbered image sequences.
package export

// StreamPlan describes one stream's share of an export: which of its own
// frames are decoded, and how many blank frames pad each side where the
// trim window reaches past the stream's native range.
//
// Boundary policy, applied uniformly: video outputs substitute black
// frames for out-of-range positions, so every output covers the full trim
// window frame for frame; image-sequence outputs skip those positions and
// number written files by global frame index, so gaps stay recoverable.
type StreamPlan struct {
	// LeadBlank and TailBlank count out-of-range positions before the
	// first and after the last decodable frame.
	LeadBlank int
	TailBlank int
	// SrcStart..SrcEnd is the inclusive local frame range to decode.
	// SrcEnd < SrcStart means the stream contributes no frames at all.
	SrcStart int
	SrcEnd   int
	// StartNumber is the global frame index of the first decoded frame,
	// used to number image-sequence files.
	StartNumber int
}

// BuildStreamPlan computes a stream's plan for the trim window
// [trimStart, trimEnd] given its native frame count and offset. The
// local window is the trim window shifted by the offset, clipped to
// [0, frameCount).
func BuildStreamPlan(frameCount, offset, trimStart, trimEnd int) StreamPlan {
	localStart := trimStart + offset
	localEnd := trimEnd + offset

	srcStart := localStart
	if srcStart < 0 {
		srcStart = 0
	}
	srcEnd := localEnd
	if srcEnd > frameCount-1 {
		srcEnd = frameCount - 1
	}

	if srcEnd < srcStart {
		// The whole window misses the stream.
		return StreamPlan{
			LeadBlank:   trimEnd - trimStart + 1,
			SrcStart:    0,
			SrcEnd:      -1,
			StartNumber: trimStart,
		}
	}

	return StreamPlan{
		LeadBlank:   srcStart - localStart,
		TailBlank:   localEnd - srcEnd,
		SrcStart:    srcStart,
		SrcEnd:      srcEnd,
		StartNumber: trimStart + (srcStart - localStart),
	}
}

// HasFrames reports whether the stream contributes any decoded frames.
func (p StreamPlan) HasFrames() bool {
	return p.SrcEnd >= p.SrcStart
}

// DecodedFrames is the number of native frames the plan decodes.
func (p StreamPlan) DecodedFrames() int {
	if !p.HasFrames() {
		return 0
	}
	return p.SrcEnd - p.SrcStart + 1
}

// OutputFrames is the total output length in frames, padding included.
// It equals the trim window length for every stream of the same export.
func (p StreamPlan) OutputFrames() int {
	return p.LeadBlank + p.DecodedFrames() + p.TailBlank
}
