// Package media wraps the external ffmpeg/ffprobe binaries: probing stream
// metadata and decoding single frames for display.
package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Info is the probed metadata for one video stream.
type Info struct {
	Path       string  `json:"path"`
	FrameRate  float64 `json:"frameRate"`
	FrameCount int     `json:"frameCount"`
	DurationMs float64 `json:"durationMs"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	HasAudio   bool    `json:"hasAudio"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// Prober runs ffprobe against video files.
type Prober struct {
	Binary string
	Log    *logrus.Logger
}

// Probe reads the first video stream's frame rate, frame count and
// duration. Containers that omit nb_frames fall back to duration * rate.
func (p *Prober) Probe(path string) (Info, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams", "-show_format",
		path,
	}
	cmd := Command(p.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Info{}, fmt.Errorf("ffprobe failed for %s: %w. Output: %s", path, err, stderr.String())
	}
	info, err := parseProbeOutput(path, stdout.Bytes())
	if err != nil {
		return Info{}, err
	}
	p.Log.WithFields(logrus.Fields{
		"path":   path,
		"fps":    info.FrameRate,
		"frames": info.FrameCount,
	}).Info("probed video")
	return info, nil
}

func parseProbeOutput(path string, data []byte) (Info, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output for %s: %w", path, err)
	}

	var video *ffprobeStream
	hasAudio := false
	for i := range out.Streams {
		switch out.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &out.Streams[i]
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return Info{}, fmt.Errorf("no video stream found in %s", path)
	}

	rate := parseRational(video.AvgFrameRate)
	if rate <= 0 {
		rate = parseRational(video.RFrameRate)
	}
	if rate <= 0 {
		return Info{}, fmt.Errorf("could not determine frame rate for %s", path)
	}

	durationSec, _ := strconv.ParseFloat(video.Duration, 64)
	if durationSec <= 0 {
		durationSec, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}

	frames, _ := strconv.Atoi(video.NbFrames)
	if frames <= 0 && durationSec > 0 {
		frames = int(durationSec * rate)
	}
	if frames <= 0 {
		return Info{}, fmt.Errorf("could not determine frame count for %s", path)
	}
	if durationSec <= 0 {
		durationSec = float64(frames) / rate
	}

	return Info{
		Path:       path,
		FrameRate:  rate,
		FrameCount: frames,
		DurationMs: durationSec * 1000.0,
		Width:      video.Width,
		Height:     video.Height,
		HasAudio:   hasAudio,
	}, nil
}

// parseRational parses ffprobe's "num/den" rate strings. Returns 0 when
// the value is missing or degenerate ("0/0").
func parseRational(s string) float64 {
	if s == "" {
		return 0
	}
	if !strings.Contains(s, "/") {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	parts := strings.SplitN(s, "/", 2)
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
