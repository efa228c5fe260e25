// Package timeline maps positions on the shared logical timeline onto the
// local frame indices of each loaded video stream.
package timeline

import (
	"errors"
	"fmt"
	"sync"
)

// MaxOffset bounds how far a stream may be shifted against the reference.
const MaxOffset = 60

// ErrOffsetRange is returned when an offset edit falls outside the allowed
// domain: unknown stream, the reference stream, or |value| > MaxOffset.
var ErrOffsetRange = errors.New("frame offset out of range")

// OffsetTable holds one signed frame offset per stream. The reference
// stream (index 0) is pinned to 0 and cannot be edited.
type OffsetTable struct {
	mu      sync.RWMutex
	offsets []int
}

func NewOffsetTable(streamCount int) *OffsetTable {
	return &OffsetTable{offsets: make([]int, streamCount)}
}

// Set replaces the offset for the given stream. The reference stream and
// values outside [-MaxOffset, MaxOffset] are rejected with ErrOffsetRange
// and the table is left unchanged.
func (t *OffsetTable) Set(streamIndex, value int) error {
	if streamIndex == 0 {
		return fmt.Errorf("%w: reference stream offset is fixed at 0", ErrOffsetRange)
	}
	if value < -MaxOffset || value > MaxOffset {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOffsetRange, value, -MaxOffset, MaxOffset)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if streamIndex < 0 || streamIndex >= len(t.offsets) {
		return fmt.Errorf("%w: no stream at index %d", ErrOffsetRange, streamIndex)
	}
	t.offsets[streamIndex] = value
	return nil
}

// Get returns the offset for a stream, defaulting to 0 for indices the
// table does not know about.
func (t *OffsetTable) Get(streamIndex int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if streamIndex < 0 || streamIndex >= len(t.offsets) {
		return 0
	}
	return t.offsets[streamIndex]
}

// Snapshot returns a copy of all offsets, in stream order.
func (t *OffsetTable) Snapshot() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.offsets))
	copy(out, t.offsets)
	return out
}

// Reset discards all offsets and resizes the table for a new stream set.
func (t *OffsetTable) Reset(streamCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offsets = make([]int, streamCount)
}
