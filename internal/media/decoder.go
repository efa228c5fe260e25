package media

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Decoder is the per-stream capability surface the playback layer talks
// to: report native metadata, produce one displayable frame. Callers are
// responsible for never requesting frames outside [0, Info().FrameCount).
type Decoder interface {
	Info() Info
	ExtractFrame(frame int) ([]byte, error)
}

// FFmpegDecoder extracts single frames by seeking ffmpeg to the frame's
// timestamp and decoding one image to stdout.
type FFmpegDecoder struct {
	binary string
	info   Info
	log    *logrus.Logger
}

func NewFFmpegDecoder(binary string, info Info, log *logrus.Logger) *FFmpegDecoder {
	return &FFmpegDecoder{binary: binary, info: info, log: log}
}

func (d *FFmpegDecoder) Info() Info {
	return d.info
}

// ExtractFrame decodes the given local frame as PNG bytes.
func (d *FFmpegDecoder) ExtractFrame(frame int) ([]byte, error) {
	if frame < 0 || frame >= d.info.FrameCount {
		return nil, fmt.Errorf("frame %d outside [0, %d) for %s", frame, d.info.FrameCount, d.info.Path)
	}

	// Seek to just before the target timestamp, then drop any frames the
	// keyframe seek landed us early on.
	seconds := float64(frame) / d.info.FrameRate
	args := []string{
		"-nostdin",
		"-ss", fmt.Sprintf("%.6f", seconds),
		"-i", d.info.Path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"pipe:1",
	}
	cmd := Command(d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed to decode frame %d of %s: %w. Output: %s",
			frame, d.info.Path, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no image for frame %d of %s", frame, d.info.Path)
	}
	return stdout.Bytes(), nil
}
