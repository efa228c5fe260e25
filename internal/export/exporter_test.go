package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvedit/multiview/internal/media"
)

type fakeProber struct {
	infos map[string]media.Info
	err   error
}

func (f *fakeProber) Probe(path string) (media.Info, error) {
	if f.err != nil {
		return media.Info{}, f.err
	}
	info, ok := f.infos[path]
	if !ok {
		return media.Info{}, fmt.Errorf("no such file %s", path)
	}
	return info, nil
}

type encodeCall struct {
	path    string
	plan    StreamPlan
	target  string
	started bool // reporter had already fired ExportStarted
}

type fakeEncoder struct {
	mu       sync.Mutex
	videos   []encodeCall
	seqs     []encodeCall
	videoErr error
	reporter *fakeReporter
	gate     chan struct{} // when set, encodes block until closed
}

func (f *fakeEncoder) EncodeVideo(info media.Info, plan StreamPlan, frameRate float64, outPath string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.videos = append(f.videos, encodeCall{info.Path, plan, outPath, f.reporter.startedCount() > 0})
	f.mu.Unlock()
	return f.videoErr
}

func (f *fakeEncoder) EncodeImageSequence(info media.Info, plan StreamPlan, frameRate float64, outDir string) error {
	f.mu.Lock()
	f.seqs = append(f.seqs, encodeCall{info.Path, plan, outDir, f.reporter.startedCount() > 0})
	f.mu.Unlock()
	return nil
}

type fakeReporter struct {
	mu       sync.Mutex
	started  int
	progress int
	finished []string
}

func (r *fakeReporter) ExportStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeReporter) ExportProgress(path string, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
}

func (r *fakeReporter) ExportFinished(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, message)
}

func (r *fakeReporter) startedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *fakeReporter) finishedMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.finished))
	copy(out, r.finished)
	return out
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestExporter(t *testing.T, paths []string, frameCounts []int) (*Exporter, *fakeEncoder, *fakeReporter) {
	t.Helper()
	infos := make(map[string]media.Info, len(paths))
	for i, p := range paths {
		infos[p] = media.Info{
			Path:       p,
			FrameRate:  24,
			FrameCount: frameCounts[i],
			DurationMs: float64(frameCounts[i]) / 24 * 1000,
			Width:      640,
			Height:     480,
		}
	}
	reporter := &fakeReporter{}
	encoder := &fakeEncoder{reporter: reporter}
	e := NewExporter(&fakeProber{infos: infos}, encoder, reporter, testLogger())
	return e, encoder, reporter
}

func waitFinished(t *testing.T, r *fakeReporter) string {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.finishedMessages()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	msgs := r.finishedMessages()
	require.Len(t, msgs, 1, "terminal event must fire exactly once")
	return msgs[0]
}

func twoStreamPaths(t *testing.T) []string {
	dir := t.TempDir()
	return []string{
		filepath.Join(dir, "cam0.mp4"),
		filepath.Join(dir, "cam1.mp4"),
	}
}

func TestExportValidationFailures(t *testing.T) {
	paths := twoStreamPaths(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"no paths", Request{FrameRate: 24, TrimEnd: 9, TotalFrames: 30}},
		{"zero frame rate", Request{Paths: paths, Offsets: []int{0, 0}, FrameRate: 0, TrimEnd: 9, TotalFrames: 30}},
		{"negative frame rate", Request{Paths: paths, Offsets: []int{0, 0}, FrameRate: -24, TrimEnd: 9, TotalFrames: 30}},
		{"trim start after end", Request{Paths: paths, Offsets: []int{0, 0}, FrameRate: 24, TrimStart: 9, TrimEnd: 3, TotalFrames: 30}},
		{"trim end past timeline", Request{Paths: paths, Offsets: []int{0, 0}, FrameRate: 24, TrimEnd: 30, TotalFrames: 30}},
		{"offset count mismatch", Request{Paths: paths, Offsets: []int{0}, FrameRate: 24, TrimEnd: 9, TotalFrames: 30}},
		{"nonzero reference offset", Request{Paths: paths, Offsets: []int{1, 0}, FrameRate: 24, TrimEnd: 9, TotalFrames: 30}},
		{"offset out of bounds", Request{Paths: paths, Offsets: []int{0, 61}, FrameRate: 24, TrimEnd: 9, TotalFrames: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, encoder, reporter := newTestExporter(t, paths, []int{30, 30})
			_, err := e.ExportVideos(tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, 0, reporter.startedCount(), "no ExportStarted on rejected request")
			assert.Empty(t, reporter.finishedMessages())
			assert.Empty(t, encoder.videos)
			assert.Equal(t, StatusIdle, e.Status())
		})
	}
}

func TestExportVideosSuccess(t *testing.T) {
	paths := twoStreamPaths(t)
	e, encoder, reporter := newTestExporter(t, paths, []int{30, 12})

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 5},
		FrameRate:   24,
		TrimStart:   0,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	id, err := e.ExportVideos(req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msg := waitFinished(t, reporter)
	assert.Equal(t, "Export complete!", msg)
	assert.Equal(t, 1, reporter.startedCount())
	assert.Equal(t, StatusIdle, e.Status())

	require.Len(t, encoder.videos, 2)
	byPath := map[string]encodeCall{}
	for _, c := range encoder.videos {
		byPath[c.path] = c
		assert.True(t, c.started, "ExportStarted must precede decode work")
		assert.Equal(t, filepath.Join(filepath.Dir(c.path), "synced", filepath.Base(c.path)), c.target)
	}

	// reference covers local frames 0..9; the offset stream covers 5..11
	// of its 12 frames with 3 black tail frames
	ref := byPath[paths[0]]
	assert.Equal(t, StreamPlan{SrcStart: 0, SrcEnd: 9}, ref.plan)
	off := byPath[paths[1]]
	assert.Equal(t, 5, off.plan.SrcStart)
	assert.Equal(t, 11, off.plan.SrcEnd)
	assert.Equal(t, 3, off.plan.TailBlank)
	assert.Equal(t, ref.plan.OutputFrames(), off.plan.OutputFrames())
}

func TestExportImageSequenceTargetsAndNumbering(t *testing.T) {
	paths := twoStreamPaths(t)
	e, encoder, reporter := newTestExporter(t, paths, []int{30, 30})

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, -3},
		FrameRate:   24,
		TrimStart:   0,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	_, err := e.ExportImageSequence(req)
	require.NoError(t, err)
	waitFinished(t, reporter)

	require.Len(t, encoder.seqs, 2)
	for _, c := range encoder.seqs {
		stem := filepath.Base(c.path)
		stem = stem[:len(stem)-len(filepath.Ext(stem))]
		assert.Equal(t, filepath.Join(filepath.Dir(c.path), stem), c.target)
		if c.path == paths[1] {
			// globals 0..2 are skipped; files start at global frame 3
			assert.Equal(t, 3, c.plan.StartNumber)
			assert.Equal(t, 3, c.plan.LeadBlank)
		}
	}
}

func TestExportBusyRejectsSecondJob(t *testing.T) {
	paths := twoStreamPaths(t)
	e, encoder, reporter := newTestExporter(t, paths, []int{30, 30})
	encoder.gate = make(chan struct{})

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 0},
		FrameRate:   24,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	_, err := e.ExportVideos(req)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, e.Status())

	_, err = e.ExportVideos(req)
	require.ErrorIs(t, err, ErrBusy)
	_, err = e.ExportImageSequence(req)
	require.ErrorIs(t, err, ErrBusy)

	close(encoder.gate)
	msg := waitFinished(t, reporter)
	assert.Equal(t, "Export complete!", msg)
	assert.Equal(t, 1, reporter.startedCount(), "rejected request must not emit events")
}

func TestExportFailureReportsThroughTerminalEvent(t *testing.T) {
	paths := twoStreamPaths(t)
	e, encoder, reporter := newTestExporter(t, paths, []int{30, 30})
	encoder.videoErr = errors.New("encoder exploded")

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 0},
		FrameRate:   24,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	_, err := e.ExportVideos(req)
	require.NoError(t, err, "job failures never surface as caller errors")

	msg := waitFinished(t, reporter)
	assert.Contains(t, msg, "An error occurred during export")
	assert.Contains(t, msg, "encoder exploded")
	assert.Equal(t, StatusIdle, e.Status(), "failed job frees the slot")
}

func TestExportProbeFailureFailsJob(t *testing.T) {
	paths := twoStreamPaths(t)
	reporter := &fakeReporter{}
	encoder := &fakeEncoder{reporter: reporter}
	e := NewExporter(&fakeProber{err: errors.New("unreadable container")}, encoder, reporter, testLogger())

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 0},
		FrameRate:   24,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	_, err := e.ExportVideos(req)
	require.NoError(t, err)

	msg := waitFinished(t, reporter)
	assert.Contains(t, msg, "unreadable container")
	assert.Empty(t, encoder.videos, "no encode work after probe failure")
}

// reentrantReporter retries an export from inside the terminal event,
// the way a frontend handler might.
type reentrantReporter struct {
	fakeReporter
	exporter *Exporter
	req      Request
	retryErr error
}

func (r *reentrantReporter) ExportFinished(message string) {
	_, r.retryErr = r.exporter.ExportVideos(r.req)
	r.fakeReporter.ExportFinished(message)
}

func TestExportSlotFreesOnlyAfterTerminalEvent(t *testing.T) {
	paths := twoStreamPaths(t)
	infos := map[string]media.Info{}
	for _, p := range paths {
		infos[p] = media.Info{Path: p, FrameRate: 24, FrameCount: 30, DurationMs: 1250, Width: 640, Height: 480}
	}
	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 0},
		FrameRate:   24,
		TrimEnd:     9,
		TotalFrames: 30,
	}
	reporter := &reentrantReporter{req: req}
	encoder := &fakeEncoder{reporter: &reporter.fakeReporter}
	e := NewExporter(&fakeProber{infos: infos}, encoder, reporter, testLogger())
	reporter.exporter = e

	_, err := e.ExportVideos(req)
	require.NoError(t, err)

	waitFinished(t, &reporter.fakeReporter)
	require.ErrorIs(t, reporter.retryErr, ErrBusy,
		"the job slot must stay taken until the terminal event has fired")
	require.Eventually(t, func() bool {
		return e.Status() == StatusIdle
	}, 2*time.Second, 5*time.Millisecond)
}

func TestExportNotesStreamsWithNoOverlap(t *testing.T) {
	paths := twoStreamPaths(t)
	// second stream has 5 frames shifted +60: nothing inside [10, 19]
	e, _, reporter := newTestExporter(t, paths, []int{30, 5})

	req := Request{
		Paths:       paths,
		Offsets:     []int{0, 60},
		FrameRate:   24,
		TrimStart:   10,
		TrimEnd:     19,
		TotalFrames: 30,
	}
	_, err := e.ExportVideos(req)
	require.NoError(t, err)

	msg := waitFinished(t, reporter)
	assert.Contains(t, msg, "Export complete!")
	assert.Contains(t, msg, filepath.Base(paths[1]))
}
