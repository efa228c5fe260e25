package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mvedit/multiview/internal/media"
	"github.com/mvedit/multiview/internal/timeline"
)

var (
	// ErrInvalidRequest rejects malformed export parameters before any
	// work starts. No job is created and no events fire.
	ErrInvalidRequest = errors.New("invalid export request")
	// ErrBusy rejects a second export while one is running. The running
	// job is unaffected.
	ErrBusy = errors.New("an export is already running")
)

// Mode selects the output form of an export.
type Mode string

const (
	ModeVideo         Mode = "video"
	ModeImageSequence Mode = "sequence"
)

// Status of the exporter's single job slot.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// Request carries everything an export needs. TotalFrames is the
// caller's current timeline length; the trim window is validated against
// it synchronously, before the job exists.
type Request struct {
	Paths       []string
	Offsets     []int
	FrameRate   float64
	TrimStart   int
	TrimEnd     int
	TotalFrames int
}

func (r Request) validate() error {
	if r.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %.3f must be positive", ErrInvalidRequest, r.FrameRate)
	}
	if len(r.Paths) == 0 {
		return fmt.Errorf("%w: no videos to export", ErrInvalidRequest)
	}
	if len(r.Offsets) != len(r.Paths) {
		return fmt.Errorf("%w: %d offsets for %d videos", ErrInvalidRequest, len(r.Offsets), len(r.Paths))
	}
	if r.Offsets[0] != 0 {
		return fmt.Errorf("%w: reference stream offset must be 0", ErrInvalidRequest)
	}
	for i, off := range r.Offsets {
		if off < -timeline.MaxOffset || off > timeline.MaxOffset {
			return fmt.Errorf("%w: offset %d for stream %d outside [-%d, %d]",
				ErrInvalidRequest, off, i, timeline.MaxOffset, timeline.MaxOffset)
		}
	}
	trim := timeline.TrimRange{Start: r.TrimStart, End: r.TrimEnd}
	if err := trim.Validate(r.TotalFrames); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Prober supplies per-stream metadata for export planning. Satisfied by
// *media.Prober.
type Prober interface {
	Probe(path string) (media.Info, error)
}

// job is one export invocation. It lives from the busy-guard check until
// the terminal event and is never reused.
type job struct {
	id   string
	mode Mode
	req  Request

	// streams whose valid range misses the trim window entirely; noted
	// in the success message.
	emptyStreams []string
}

// Exporter runs at most one export job at a time on its own goroutine.
// Completion is observable only through the Reporter; job-level failures
// never surface as caller errors.
type Exporter struct {
	mu     sync.Mutex
	status Status
	active *job

	prober   Prober
	encoder  Encoder
	reporter Reporter
	log      *logrus.Logger
}

func NewExporter(prober Prober, encoder Encoder, reporter Reporter, log *logrus.Logger) *Exporter {
	return &Exporter{
		status:   StatusIdle,
		prober:   prober,
		encoder:  encoder,
		reporter: reporter,
		log:      log,
	}
}

// Status returns the current job slot state.
func (e *Exporter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ExportVideos starts a synced-video export. Returns the job ID, or
// ErrInvalidRequest/ErrBusy without starting anything.
func (e *Exporter) ExportVideos(req Request) (string, error) {
	return e.start(ModeVideo, req)
}

// ExportImageSequence starts a numbered image-sequence export with the
// same validation and busy semantics as ExportVideos.
func (e *Exporter) ExportImageSequence(req Request) (string, error) {
	return e.start(ModeImageSequence, req)
}

func (e *Exporter) start(mode Mode, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.status == StatusRunning {
		e.mu.Unlock()
		return "", ErrBusy
	}
	j := &job{id: uuid.NewString(), mode: mode, req: req}
	e.status = StatusRunning
	e.active = j
	e.mu.Unlock()

	e.reporter.ExportStarted()
	e.log.WithFields(logrus.Fields{
		"job":   j.id,
		"mode":  mode,
		"trim":  fmt.Sprintf("[%d, %d]", req.TrimStart, req.TrimEnd),
		"count": len(req.Paths),
	}).Info("export started")

	go e.run(j)
	return j.id, nil
}

func (e *Exporter) run(j *job) {
	err := e.exportAll(j)

	// The terminal event fires before the slot frees: a job accepted in
	// between would emit its start ahead of this job's finish.
	if err != nil {
		e.log.WithField("job", j.id).Errorf("export failed: %v", err)
		e.reporter.ExportFinished(fmt.Sprintf("An error occurred during export: %v", err))
	} else {
		e.log.WithField("job", j.id).Info("export complete")
		e.reporter.ExportFinished(e.successMessage(j))
	}

	e.mu.Lock()
	e.status = StatusIdle
	e.active = nil
	e.mu.Unlock()
}

func (e *Exporter) exportAll(j *job) error {
	req := j.req

	infos := make([]media.Info, len(req.Paths))
	var probeGroup errgroup.Group
	for i, path := range req.Paths {
		i, path := i, path
		probeGroup.Go(func() error {
			info, err := e.prober.Probe(path)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := probeGroup.Wait(); err != nil {
		return err
	}

	var done atomic.Int32
	var emptyMu sync.Mutex

	var g errgroup.Group
	for i := range req.Paths {
		info := infos[i]
		plan := BuildStreamPlan(info.FrameCount, req.Offsets[i], req.TrimStart, req.TrimEnd)
		if !plan.HasFrames() {
			emptyMu.Lock()
			j.emptyStreams = append(j.emptyStreams, filepath.Base(info.Path))
			emptyMu.Unlock()
		}
		g.Go(func() error {
			if err := e.encodeStream(j.mode, info, plan, req.FrameRate); err != nil {
				return err
			}
			e.reporter.ExportProgress(info.Path, int(done.Add(1)), len(req.Paths))
			return nil
		})
	}
	return g.Wait()
}

func (e *Exporter) encodeStream(mode Mode, info media.Info, plan StreamPlan, frameRate float64) error {
	dir := filepath.Dir(info.Path)
	name := filepath.Base(info.Path)

	switch mode {
	case ModeVideo:
		outDir := filepath.Join(dir, "synced")
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir %s: %w", outDir, err)
		}
		outPath := filepath.Join(outDir, name)
		e.log.Infof("trimming %s to local frames [%d, %d] -> %s", info.Path, plan.SrcStart, plan.SrcEnd, outPath)
		return e.encoder.EncodeVideo(info, plan, frameRate, outPath)
	case ModeImageSequence:
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		outDir := filepath.Join(dir, stem)
		e.log.Infof("exporting sequence for %s, local frames [%d, %d] -> %s", info.Path, plan.SrcStart, plan.SrcEnd, outDir)
		return e.encoder.EncodeImageSequence(info, plan, frameRate, outDir)
	default:
		return fmt.Errorf("unknown export mode %q", mode)
	}
}

func (e *Exporter) successMessage(j *job) string {
	if len(j.emptyStreams) == 0 {
		return "Export complete!"
	}
	return fmt.Sprintf("Export complete! No overlapping frames for: %s.", strings.Join(j.emptyStreams, ", "))
}
