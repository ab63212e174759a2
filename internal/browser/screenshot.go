// File: internal/browser/screenshot.go
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ScreenshotPath decides where a capture lands on disk. An empty
// filename falls back to a timestamp-derived name; relative names are
// placed under dir. The returned path is absolute.
func ScreenshotPath(dir, filename, format string, now time.Time) (string, error) {
	ext := "png"
	if format == "jpeg" {
		ext = "jpeg"
	}
	if filename == "" {
		stamp := now.UTC().Format("2006-01-02T15-04-05.000Z")
		filename = fmt.Sprintf("page-%s.%s", stamp, ext)
	} else if !strings.Contains(filepath.Base(filename), ".") {
		filename = filename + "." + ext
	}

	if !filepath.IsAbs(filename) {
		filename = filepath.Join(dir, filename)
	}
	return filepath.Abs(filename)
}

// WriteScreenshot persists the capture and returns its absolute path.
func WriteScreenshot(dir, filename, format string, data []byte) (string, error) {
	path, err := ScreenshotPath(dir, filename, format, time.Now())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
