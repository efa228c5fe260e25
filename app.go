package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/browser"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/mvedit/multiview/internal/export"
	"github.com/mvedit/multiview/internal/media"
	"github.com/mvedit/multiview/internal/playback"
	"github.com/mvedit/multiview/internal/timeline"
)

// App is the backend the frontend binds to. It wires the timeline model,
// the playback clock and the exporter together and relays their state as
// events.
type App struct {
	ctx context.Context

	ffmpegPath  string
	ffprobePath string

	mu       sync.Mutex
	decoders []media.Decoder
	trim     timeline.TrimRange
	loaded   bool

	model    *timeline.Model
	cache    *media.FrameCache
	clock    *playback.Clock
	exporter *export.Exporter

	// coalesces re-presents while the user drags an offset slider
	refresh func(f func())
}

// NewApp creates a new App application struct.
func NewApp() *App {
	a := &App{
		model:   timeline.NewModel(),
		cache:   media.NewFrameCache(),
		refresh: debounce.New(100 * time.Millisecond),
	}
	a.clock = playback.NewClock(a.present, log)
	a.clock.OnFrameChanged(func(frame int) {
		a.emit("currentFrameChanged", frame)
	})
	a.clock.OnStateChanged(func(playing bool) {
		a.emit("isPlayingChanged", playing)
	})
	return a
}

// startup is called when the app starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	log.Info("MultiView: OnStartup called")

	if err := a.resolveFfmpeg(); err != nil {
		log.Errorf("ffmpeg resolution failed: %v", err)
	}
	a.exporter = export.NewExporter(
		&media.Prober{Binary: a.ffprobePath, Log: log},
		&export.FFmpegEncoder{Binary: a.ffmpegPath, Log: log},
		&exportEvents{app: a},
		log,
	)
}

func (a *App) shutdown(ctx context.Context) {
	a.clock.Pause()
}

func (a *App) emit(name string, data ...interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

// LoadVideos probes every path, opens a decoder per stream and rebuilds
// the timeline around the new set. The first path is the reference
// stream. Playback state and the trim range are reset.
func (a *App) LoadVideos(paths []string) error {
	if err := a.waitForFfmpeg(); err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no video paths given")
	}

	a.clock.Pause()

	prober := &media.Prober{Binary: a.ffprobePath, Log: log}
	infos := make([]media.Info, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			info, err := prober.Probe(path)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.emit("loadError", err.Error())
		return fmt.Errorf("failed to load videos: %w", err)
	}

	decoders := make([]media.Decoder, len(infos))
	streams := make([]timeline.StreamInfo, len(infos))
	totalWidth, maxHeight := 0, 0
	for i, info := range infos {
		decoders[i] = media.NewFFmpegDecoder(a.ffmpegPath, info, log)
		streams[i] = timeline.StreamInfo{
			Path:       info.Path,
			FrameRate:  info.FrameRate,
			FrameCount: info.FrameCount,
			DurationMs: info.DurationMs,
		}
		totalWidth += info.Width
		if info.Height > maxHeight {
			maxHeight = info.Height
		}
	}

	// Let any present still decoding the old streams finish before the
	// swap, or its result could land in a fresh cache slot.
	a.clock.Drain()

	a.model.SetStreams(streams)
	total := a.model.TotalFrames()
	a.cache.Reset(len(infos))
	a.clock.Reset(total, a.model.FrameRate())

	a.mu.Lock()
	a.decoders = decoders
	a.trim = timeline.FullRange(total)
	a.loaded = true
	a.mu.Unlock()

	log.Infof("all %d videos loaded, %d timeline frames at %.3f fps",
		len(infos), total, a.model.FrameRate())

	if totalWidth > 0 && maxHeight > 0 {
		if totalWidth > 1920 {
			totalWidth = 1920
		}
		a.emit("initialSizeReady", totalWidth, maxHeight)
	}
	a.emit("totalFramesChanged", total)
	a.emit("frameOffsetsChanged", a.model.Offsets().Snapshot())
	a.emit("trimRangeChanged", timeline.FullRange(total))
	a.emit("videosLoaded", true)

	a.clock.Seek(0)
	return nil
}

// present shows one global frame on every stream: decode at the local
// frame, or blank the slot when the stream is out of bounds. It returns
// only after every stream has settled, which is the per-tick barrier the
// clock relies on.
func (a *App) present(globalFrame int) {
	a.mu.Lock()
	decoders := a.decoders
	a.mu.Unlock()

	var wg sync.WaitGroup
	for i, dec := range decoders {
		i, dec := i, dec
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.model.OutOfBounds(i, globalFrame) {
				a.cache.Update(i, nil)
			} else {
				image, err := dec.ExtractFrame(a.model.LocalFrame(i, globalFrame))
				if err != nil {
					// Recovered locally: the slot goes blank, playback
					// continues.
					log.Warnf("decode failed for %s at frame %d: %v", dec.Info().Path, globalFrame, err)
					a.cache.Update(i, nil)
				} else {
					a.cache.Update(i, image)
				}
			}
			a.emit("frameUpdated", i)
		}()
	}
	wg.Wait()
}

// SetFrameOffset shifts a non-reference stream against the reference.
// While paused, the current frame is re-presented (debounced) so the
// change is visible immediately.
func (a *App) SetFrameOffset(streamIndex, value int) error {
	if err := a.model.Offsets().Set(streamIndex, value); err != nil {
		return err
	}
	a.emit("frameOffsetsChanged", a.model.Offsets().Snapshot())
	if !a.clock.IsPlaying() {
		a.refresh(a.clock.Refresh)
	}
	return nil
}

func (a *App) Seek(frame int) {
	a.clock.Seek(frame)
}

func (a *App) TogglePlayPause() {
	a.clock.TogglePlayPause()
}

func (a *App) CurrentFrame() int {
	return a.clock.CurrentFrame()
}

func (a *App) TotalFrames() int {
	return a.model.TotalFrames()
}

func (a *App) IsPlaying() bool {
	return a.clock.IsPlaying()
}

func (a *App) FrameOffsets() []int {
	return a.model.Offsets().Snapshot()
}

func (a *App) VideosLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// FrameRate is the reference stream's rate, which drives the timeline.
func (a *App) FrameRate() float64 {
	return a.model.FrameRate()
}

func (a *App) VideoCount() int {
	return a.model.StreamCount()
}

// StreamInfos exposes the per-stream metadata to the frontend. The
// decoders are the authoritative source; each carries the probe result
// it was opened with.
func (a *App) StreamInfos() []media.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]media.Info, len(a.decoders))
	for i, d := range a.decoders {
		out[i] = d.Info()
	}
	return out
}

// SetTrimRange selects the inclusive export window on the timeline.
func (a *App) SetTrimRange(start, end int) error {
	r := timeline.TrimRange{Start: start, End: end}
	if err := r.Validate(a.model.TotalFrames()); err != nil {
		return err
	}
	a.mu.Lock()
	a.trim = r
	a.mu.Unlock()
	a.emit("trimRangeChanged", r)
	return nil
}

func (a *App) GetTrimRange() timeline.TrimRange {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trim
}

// ExportSyncedVideos re-encodes every stream over the trim window,
// offset-corrected and frame-aligned to the reference. Playback is
// force-paused first; playback and export never share decoder cursors.
// Validation errors return synchronously; the job itself reports only
// through exportStarted/exportFinished events.
func (a *App) ExportSyncedVideos(paths []string, offsets []int, frameRate float64, trimStart, trimEnd int) error {
	return a.startExport(export.ModeVideo, paths, offsets, frameRate, trimStart, trimEnd)
}

// ExportSyncedImageSequence writes numbered JPG frames per stream, with
// the same alignment rules as ExportSyncedVideos.
func (a *App) ExportSyncedImageSequence(paths []string, offsets []int, frameRate float64, trimStart, trimEnd int) error {
	return a.startExport(export.ModeImageSequence, paths, offsets, frameRate, trimStart, trimEnd)
}

func (a *App) startExport(mode export.Mode, paths []string, offsets []int, frameRate float64, trimStart, trimEnd int) error {
	if err := a.waitForFfmpeg(); err != nil {
		return err
	}

	a.clock.Pause()

	req := export.Request{
		Paths:       paths,
		Offsets:     offsets,
		FrameRate:   frameRate,
		TrimStart:   trimStart,
		TrimEnd:     trimEnd,
		TotalFrames: a.model.TotalFrames(),
	}
	var err error
	switch mode {
	case export.ModeVideo:
		_, err = a.exporter.ExportVideos(req)
	default:
		_, err = a.exporter.ExportImageSequence(req)
	}
	return err
}

// OpenOutputFolder reveals an export destination in the system file
// manager.
func (a *App) OpenOutputFolder(path string) error {
	return browser.OpenFile(path)
}

// exportEvents relays exporter lifecycle notifications to the frontend.
type exportEvents struct {
	app *App
}

func (r *exportEvents) ExportStarted() {
	r.app.emit("exportStarted")
}

func (r *exportEvents) ExportProgress(path string, done, total int) {
	r.app.emit("exportProgress", map[string]interface{}{
		"path":  path,
		"done":  done,
		"total": total,
	})
}

func (r *exportEvents) ExportFinished(message string) {
	r.app.emit("exportFinished", message)
}
