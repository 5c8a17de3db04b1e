// Package assets holds the browser side of the reload channel.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// ScriptName is the file name of the page-side client script.
const ScriptName = "reload.js"

//go:embed static
var staticFiles embed.FS

// FileSystem returns the static assets. In live mode they are read from dir on
// every request so the script can be edited without a rebuild.
func FileSystem(live bool, dir string, logger *slog.Logger) (http.FileSystem, error) {
	if live {
		logger.Info("Using live mode", "dir", dir)
		return http.FS(os.DirFS(dir)), nil
	}
	logger.Info("Using embed mode")
	fsys, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded assets: %w", err)
	}
	return http.FS(fsys), nil
}
