package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mvedit/multiview/internal/media"
)

// Encoder executes one stream's plan. The ffmpeg implementation is the
// production one; tests substitute fakes.
type Encoder interface {
	EncodeVideo(info media.Info, plan StreamPlan, frameRate float64, outPath string) error
	EncodeImageSequence(info media.Info, plan StreamPlan, frameRate float64, outDir string) error
}

// FFmpegEncoder re-encodes with the same options the interactive trim
// uses: libx264 crf 18, medium preset, faststart. Audio is dropped; the
// frame offsets make the original audio misaligned by construction.
type FFmpegEncoder struct {
	Binary string
	Log    *logrus.Logger
}

func (e *FFmpegEncoder) EncodeVideo(info media.Info, plan StreamPlan, frameRate float64, outPath string) error {
	var args []string
	if !plan.HasFrames() {
		// Nothing of this stream is inside the window: emit an all-black
		// clip of the same length so outputs stay frame-aligned.
		src := fmt.Sprintf("color=c=black:s=%dx%d:r=%.6f", info.Width, info.Height, frameRate)
		args = []string{
			"-nostdin", "-y",
			"-f", "lavfi", "-i", src,
			"-frames:v", fmt.Sprintf("%d", plan.OutputFrames()),
		}
	} else {
		filters := []string{
			fmt.Sprintf("select='between(n\\,%d\\,%d)'", plan.SrcStart, plan.SrcEnd),
			"setpts=N/FRAME_RATE/TB",
		}
		if plan.LeadBlank > 0 || plan.TailBlank > 0 {
			filters = append(filters, fmt.Sprintf(
				"tpad=start=%d:stop=%d:start_mode=add:stop_mode=add:color=black",
				plan.LeadBlank, plan.TailBlank))
		}
		args = []string{
			"-nostdin", "-y",
			"-i", info.Path,
			"-vf", strings.Join(filters, ","),
			"-r", fmt.Sprintf("%.6f", frameRate),
		}
	}
	args = append(args,
		"-an",
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "medium",
		"-movflags", "+faststart",
		outPath,
	)
	return e.run(args, outPath)
}

func (e *FFmpegEncoder) EncodeImageSequence(info media.Info, plan StreamPlan, frameRate float64, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create sequence dir %s: %w", outDir, err)
	}
	if !plan.HasFrames() {
		// Skip policy: no files for a stream with no in-range frames.
		e.Log.WithField("path", info.Path).Warn("no in-range frames, sequence left empty")
		return nil
	}
	pattern := outDir + string(os.PathSeparator) + "%06d.jpg"
	args := []string{
		"-nostdin", "-y",
		"-i", info.Path,
		"-vf", fmt.Sprintf("select='between(n\\,%d\\,%d)',setpts=N/FRAME_RATE/TB", plan.SrcStart, plan.SrcEnd),
		"-start_number", fmt.Sprintf("%d", plan.StartNumber),
		"-q:v", "2",
		"-f", "image2",
		pattern,
	}
	return e.run(args, outDir)
}

func (e *FFmpegEncoder) run(args []string, target string) error {
	e.Log.Debugf("%s %s", e.Binary, strings.Join(args, " "))
	cmd := media.Command(e.Binary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed for %s: %w. Output: %s", target, err, output.String())
	}
	return nil
}
