package media

import "sync"

// FrameCache keeps the most recently decoded image per stream so the
// frontend can fetch it over the asset server after a frameUpdated event.
// A nil entry means no frame, or out of bounds; the frontend renders a
// placeholder for those.
type FrameCache struct {
	mu     sync.RWMutex
	frames [][]byte
}

func NewFrameCache() *FrameCache {
	return &FrameCache{}
}

// Reset drops all cached frames and sizes the cache for a new stream set.
func (c *FrameCache) Reset(streamCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = make([][]byte, streamCount)
}

// Update stores the latest image for a stream. A nil image clears the
// entry (blank/placeholder state).
func (c *FrameCache) Update(streamIndex int, image []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if streamIndex < 0 || streamIndex >= len(c.frames) {
		return
	}
	c.frames[streamIndex] = image
}

// Get returns the latest image for a stream, or false when none is held.
func (c *FrameCache) Get(streamIndex int) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if streamIndex < 0 || streamIndex >= len(c.frames) || c.frames[streamIndex] == nil {
		return nil, false
	}
	return c.frames[streamIndex], true
}
