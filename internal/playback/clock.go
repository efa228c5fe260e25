// Package playback drives a ticking logical frame counter across all
// loaded streams. The clock owns the playback state; everything else
// reads it through snapshot getters.
package playback

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PresentFunc displays one global frame: it dispatches a seek-and-decode
// to every stream (skipping out-of-bounds ones) and returns only after
// all of them have finished. It is the per-tick barrier.
type PresentFunc func(globalFrame int)

// Clock coordinates playback over the unified timeline. While playing it
// advances one frame per tick at the reference frame rate; user input
// (seek, pause) always takes effect before the next tick because every
// tick re-reads the state under the lock.
type Clock struct {
	mu            sync.Mutex
	position      int
	playing       bool
	totalFrames   int
	interval      time.Duration
	presenting    bool
	pendingSeek   int
	forceNext     bool
	lastPresented int
	stop          chan struct{}
	idle          *sync.Cond

	present PresentFunc
	onFrame func(frame int)
	onState func(playing bool)
	log     *logrus.Logger
}

func NewClock(present PresentFunc, log *logrus.Logger) *Clock {
	c := &Clock{
		present:       present,
		pendingSeek:   -1,
		lastPresented: -1,
		log:           log,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// OnFrameChanged registers a callback fired after the position commits.
func (c *Clock) OnFrameChanged(fn func(frame int)) { c.onFrame = fn }

// OnStateChanged registers a callback fired on play/pause transitions.
func (c *Clock) OnStateChanged(fn func(playing bool)) { c.onState = fn }

// Reset rebinds the clock to a new timeline. Playback stops, the position
// returns to 0 and the presented-frame memo is cleared.
func (c *Clock) Reset(totalFrames int, frameRate float64) {
	c.Pause()
	c.mu.Lock()
	c.totalFrames = totalFrames
	c.position = 0
	c.lastPresented = -1
	c.pendingSeek = -1
	if frameRate > 0 {
		c.interval = time.Duration(float64(time.Second) / frameRate)
	} else {
		c.interval = 0
	}
	c.mu.Unlock()
}

// Enabled reports whether playback is possible at all. A missing or
// non-positive frame rate disables it; that is a state, not an error.
func (c *Clock) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval > 0 && c.totalFrames > 0
}

func (c *Clock) CurrentFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Seek clamps the target into [0, totalFrames) and presents it without
// changing the play state. Seeking to the already-presented frame issues
// no new decode work. A seek arriving while a present is in flight is
// coalesced and replayed once the barrier completes.
func (c *Clock) Seek(frame int) {
	c.mu.Lock()
	frame = c.clampLocked(frame)
	if c.presenting {
		c.pendingSeek = frame
		c.mu.Unlock()
		return
	}
	c.seekLocked(frame)
}

// seekLocked commits and presents a clamped frame. Must be entered with
// the lock held; releases it before invoking callbacks or the presenter.
func (c *Clock) seekLocked(frame int) {
	changed := c.position != frame
	c.position = frame
	if c.lastPresented == frame {
		c.mu.Unlock()
		if changed && c.onFrame != nil {
			c.onFrame(frame)
		}
		return
	}
	c.presenting = true
	c.mu.Unlock()

	if changed && c.onFrame != nil {
		c.onFrame(frame)
	}
	c.present(frame)

	c.mu.Lock()
	c.lastPresented = frame
	c.presenting = false
	c.idle.Broadcast()
	pending := c.pendingSeek
	force := c.forceNext
	c.pendingSeek = -1
	c.forceNext = false
	if pending >= 0 && (pending != frame || force) {
		if force {
			c.lastPresented = -1
		}
		c.seekLocked(pending)
		return
	}
	c.mu.Unlock()
}

// Refresh re-presents the current frame even though it was already
// shown: offset edits change what every stream displays at the same
// global position, so the presented-frame memo is invalidated first.
func (c *Clock) Refresh() {
	c.mu.Lock()
	c.lastPresented = -1
	if c.presenting {
		c.pendingSeek = c.position
		c.forceNext = true
		c.mu.Unlock()
		return
	}
	c.seekLocked(c.position)
}

// Drain blocks until no present is in flight. Callers about to swap the
// stream set use it so no decode against the old streams can land after
// the swap.
func (c *Clock) Drain() {
	c.mu.Lock()
	for c.presenting {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

func (c *Clock) clampLocked(frame int) int {
	if c.totalFrames <= 0 || frame < 0 {
		return 0
	}
	if frame >= c.totalFrames {
		return c.totalFrames - 1
	}
	return frame
}

// TogglePlayPause flips between Stopped and Playing.
func (c *Clock) TogglePlayPause() {
	if c.IsPlaying() {
		c.Pause()
	} else {
		c.Play()
	}
}

// Play starts the tick loop. Playing from the last frame rewinds to the
// start first. No-op when playback is disabled or already running.
func (c *Clock) Play() {
	if !c.Enabled() {
		c.log.Warn("playback disabled: no streams loaded or invalid frame rate")
		return
	}

	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return
	}
	rewind := c.position >= c.totalFrames-1
	c.mu.Unlock()
	if rewind {
		c.Seek(0)
	}

	c.mu.Lock()
	// Recheck: the lock was dropped around the rewind seek, and another
	// caller may have started playback in the meantime.
	if c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.stop = make(chan struct{})
	stop := c.stop
	interval := c.interval
	c.mu.Unlock()

	go c.run(stop, interval)
	if c.onState != nil {
		c.onState(true)
	}
}

// Pause stops the tick loop. No-op when already stopped.
func (c *Clock) Pause() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = false
	close(c.stop)
	c.stop = nil
	c.mu.Unlock()

	if c.onState != nil {
		c.onState(false)
	}
}

func (c *Clock) run(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.tick() {
				return
			}
		}
	}
}

// tick advances by one frame and presents it. Returns false once the
// loop should exit, either because playback was paused or the timeline
// end was reached.
func (c *Clock) tick() bool {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return false
	}
	if c.presenting {
		// A seek or refresh present is still in flight. Fold the advance
		// into the pending seek so its replay carries the position
		// forward; presents never overlap, from either direction. A
		// pending user seek wins over the advance.
		if c.pendingSeek < 0 {
			c.pendingSeek = c.clampLocked(c.position + 1)
		}
		c.mu.Unlock()
		return true
	}
	next := c.position + 1
	if next >= c.totalFrames {
		// Position is already at the final frame; nothing left to show.
		c.playing = false
		c.stop = nil
		c.mu.Unlock()
		if c.onState != nil {
			c.onState(false)
		}
		return false
	}

	c.position = next
	c.presenting = true
	c.mu.Unlock()

	if c.onFrame != nil {
		c.onFrame(next)
	}
	c.present(next)

	c.mu.Lock()
	c.lastPresented = next
	c.presenting = false
	c.idle.Broadcast()
	pending := c.pendingSeek
	force := c.forceNext
	c.pendingSeek = -1
	c.forceNext = false
	atEnd := next == c.totalFrames-1
	stillPlaying := c.playing
	if atEnd && stillPlaying {
		c.playing = false
		if c.stop != nil {
			close(c.stop)
			c.stop = nil
		}
	}
	if pending >= 0 && (pending != next || force) {
		if force {
			c.lastPresented = -1
		}
		c.seekLocked(pending)
	} else {
		c.mu.Unlock()
	}

	if atEnd && stillPlaying {
		if c.onState != nil {
			c.onState(false)
		}
		return false
	}
	return stillPlaying
}
