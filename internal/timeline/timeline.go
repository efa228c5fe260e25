package timeline

import (
	"math"
	"sync"
)

// StreamInfo is the slice of probe data the timeline needs per stream.
type StreamInfo struct {
	Path       string
	FrameRate  float64
	FrameCount int
	DurationMs float64
}

// Model computes global frame bounds and per-stream local positions.
// Stream 0 is the reference: its duration and frame rate define the
// canonical timeline length.
type Model struct {
	mu      sync.RWMutex
	streams []StreamInfo
	offsets *OffsetTable
}

func NewModel() *Model {
	return &Model{offsets: NewOffsetTable(0)}
}

// SetStreams replaces the loaded stream set. All offsets are discarded;
// callers are expected to clamp any held frame position and reset their
// trim range afterwards, since TotalFrames may have changed.
func (m *Model) SetStreams(infos []StreamInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = make([]StreamInfo, len(infos))
	copy(m.streams, infos)
	m.offsets.Reset(len(infos))
}

func (m *Model) Offsets() *OffsetTable {
	return m.offsets
}

func (m *Model) StreamCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

func (m *Model) Stream(i int) (StreamInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.streams) {
		return StreamInfo{}, false
	}
	return m.streams[i], true
}

func (m *Model) Streams() []StreamInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StreamInfo, len(m.streams))
	copy(out, m.streams)
	return out
}

// FrameRate returns the reference stream's frame rate, or 0 when no
// streams are loaded.
func (m *Model) FrameRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.streams) == 0 {
		return 0
	}
	return m.streams[0].FrameRate
}

// TotalFrames derives the timeline length from the reference stream.
// Returns 0 when no reference stream is loaded or its frame rate is not
// positive; that is a valid "not ready" state, not an error.
func (m *Model) TotalFrames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.streams) == 0 {
		return 0
	}
	ref := m.streams[0]
	if ref.FrameRate <= 0 {
		return 0
	}
	return int(math.Round(ref.DurationMs / 1000.0 * ref.FrameRate))
}

// LocalFrame maps a global frame to a stream's own frame index.
func (m *Model) LocalFrame(streamIndex, globalFrame int) int {
	return globalFrame + m.offsets.Get(streamIndex)
}

// OutOfBounds reports whether a stream's local frame for the given global
// frame lies outside its native range. Out-of-bounds streams must not be
// asked to decode; most decoders treat such requests as undefined. The
// reference stream defines the bound and is only guarded against going
// negative.
func (m *Model) OutOfBounds(streamIndex, globalFrame int) bool {
	local := m.LocalFrame(streamIndex, globalFrame)
	if streamIndex == 0 {
		return local < 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if streamIndex < 0 || streamIndex >= len(m.streams) {
		return true
	}
	return local < 0 || local >= m.streams[streamIndex].FrameCount
}

// ClampFrame clamps a global frame into [0, TotalFrames()).
func (m *Model) ClampFrame(globalFrame int) int {
	total := m.TotalFrames()
	if total <= 0 {
		return 0
	}
	if globalFrame < 0 {
		return 0
	}
	if globalFrame >= total {
		return total - 1
	}
	return globalFrame
}
