package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/mvedit/multiview/internal/media"
)

// binaryExists runs `<path> -version` to confirm a usable binary.
func binaryExists(path string) bool {
	if path == "" {
		return false
	}
	cmd := media.Command(path, "-version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

// resolveBinary locates an ffmpeg-family binary: an env override wins,
// otherwise PATH is searched.
func resolveBinary(envVar, name string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		if binaryExists(p) {
			return p, nil
		}
		return "", fmt.Errorf("%s points to %s, which is not a working %s binary", envVar, p, name)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	if !binaryExists(p) {
		return "", fmt.Errorf("%s at %s did not respond to -version", name, p)
	}
	return p, nil
}

func (a *App) resolveFfmpeg() error {
	ffmpeg, err := resolveBinary("MULTIVIEW_FFMPEG", "ffmpeg")
	if err != nil {
		return err
	}
	ffprobe, err := resolveBinary("MULTIVIEW_FFPROBE", "ffprobe")
	if err != nil {
		return err
	}
	a.ffmpegPath = ffmpeg
	a.ffprobePath = ffprobe
	log.Infof("using ffmpeg at %s, ffprobe at %s", ffmpeg, ffprobe)
	return nil
}

// waitForFfmpeg gates operations that shell out to ffmpeg.
func (a *App) waitForFfmpeg() error {
	if a.ffmpegPath == "" || a.ffprobePath == "" {
		return fmt.Errorf("ffmpeg is not available; install it or set MULTIVIEW_FFMPEG")
	}
	return nil
}
