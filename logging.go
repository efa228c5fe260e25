package main

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func initLogger() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logFile, err := os.Create(filepath.Join(appDataDir(), "log.txt"))
	if err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}
}

// appDataDir returns the per-platform directory for logs, creating it if
// needed.
func appDataDir() string {
	base := "."

	switch runtime.GOOS {
	case "windows":
		base = filepath.Join(os.Getenv("LOCALAPPDATA"), "MultiView")
	case "darwin":
		home, err := os.UserHomeDir()
		if err == nil {
			base = filepath.Join(home, "Library", "Application Support", "MultiView")
		}
	case "linux":
		home, err := os.UserHomeDir()
		if err == nil {
			base = filepath.Join(home, ".local", "MultiView")
		}
	}

	_ = os.MkdirAll(base, 0755)
	return base
}
