package main

import (
	"embed"
	"net/http"
	"strconv"
	"strings"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/mvedit/multiview/internal/media"
)

//go:embed all:frontend/dist
var assets embed.FS

// FrameLoader serves the latest decoded frame per stream at
// /frames/<index>. The frontend re-fetches after each frameUpdated
// event; streams with no frame (out of bounds) get 404 and render a
// placeholder.
type FrameLoader struct {
	http.Handler
	cache *media.FrameCache
}

func NewFrameLoader(cache *media.FrameCache) *FrameLoader {
	return &FrameLoader{cache: cache}
}

func (h *FrameLoader) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/")
	if !strings.HasPrefix(path, "frames/") {
		http.NotFound(res, req)
		return
	}
	index, err := strconv.Atoi(strings.TrimPrefix(path, "frames/"))
	if err != nil {
		http.Error(res, "invalid stream index", http.StatusBadRequest)
		return
	}
	image, ok := h.cache.Get(index)
	if !ok {
		http.NotFound(res, req)
		return
	}
	res.Header().Set("Content-Type", "image/png")
	res.Header().Set("Cache-Control", "no-store")
	res.Write(image)
}

func main() {
	initLogger()

	app := NewApp()

	err := wails.Run(&options.App{
		Title:  "MultiView",
		Width:  1280,
		Height: 720,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: NewFrameLoader(app.cache),
		},
		BackgroundColour: &options.RGBA{R: 24, G: 24, B: 28, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		LogLevel: logger.INFO,
	})

	if err != nil {
		log.Errorf("wails run failed: %v", err)
	}
}
