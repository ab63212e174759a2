// File: internal/browser/screenshot_test.go
package browser

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotPath(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 5, 9, 123_000_000, time.UTC)

	t.Run("default name carries a timestamp and png extension", func(t *testing.T) {
		path, err := ScreenshotPath(t.TempDir(), "", "png", now)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(path))

		base := filepath.Base(path)
		assert.Regexp(t, regexp.MustCompile(`^page-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{3}Z\.png$`), base)
		assert.Contains(t, base, "2026-08-30T14-05-09.123Z")
	})

	t.Run("jpeg format switches the default extension", func(t *testing.T) {
		path, err := ScreenshotPath(t.TempDir(), "", "jpeg", now)
		require.NoError(t, err)
		assert.Equal(t, ".jpeg", filepath.Ext(path))
	})

	t.Run("explicit relative name lands in the directory", func(t *testing.T) {
		dir := t.TempDir()
		path, err := ScreenshotPath(dir, "login.png", "png", now)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "login.png"), path)
	})

	t.Run("extensionless names get one appended", func(t *testing.T) {
		path, err := ScreenshotPath(t.TempDir(), "capture", "jpeg", now)
		require.NoError(t, err)
		assert.Equal(t, "capture.jpeg", filepath.Base(path))
	})

	t.Run("absolute names pass through untouched", func(t *testing.T) {
		want := filepath.Join(t.TempDir(), "shot.png")
		path, err := ScreenshotPath("/elsewhere", want, "png", now)
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})
}

func TestWriteScreenshot(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteScreenshot(dir, "out.png", "png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.FileExists(t, path)
}
