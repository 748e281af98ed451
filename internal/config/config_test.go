package config

import (
	"os"
	"path/filepath"
	"testing"

	"mangascout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesTemplate(t *testing.T) {
	dir := t.TempDir()

	c := New(dir, "test")

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Config.Version)
	assert.Equal(t, "{title:<.>} - {num:3}{chapter: - <.>}", c.Config.NamingTemplate)
	assert.Equal(t, 15, c.Config.CheckInterval)
	assert.Equal(t, 4, c.Config.ImageWorkers)
	assert.Equal(t, 60, c.Config.ImageTimeout)
	assert.Equal(t, "none", c.Config.ArchiveFormat)
	assert.Equal(t, "127.0.0.1:8080", c.Config.ListenAddr)
	assert.Equal(t, "DEBUG", c.Config.LogLevel)
	require.Contains(t, c.Config.MonitoredManga, "one punch man")
	assert.Equal(t, "https://readmanga.live/vanpanchmen", c.Config.MonitoredManga["one punch man"].URL)
	require.NoError(t, c.Validate())
}

func TestWriteTemplate_KeepsExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := WriteTemplate(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	require.NoError(t, os.WriteFile(path, []byte("archiveFormat: cbz\n"), 0o644))
	_, err = WriteTemplate(dir)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "archiveFormat: cbz\n", string(b))
}

func TestNew_ReadsSourcesAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := `
downloadLocation: "/data/manga"
archiveFormat: "cbz"
imageWorkers: 2
sources:
  readmanga:
    baseURL: "https://readmanga.live"
    timeout: 10
    cloudflareBypass: true
    headers:
      Cookie: "a=b"
  mangabuff:
    disabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgFile), 0o644))

	t.Setenv("MANGASCOUT__IMAGE_WORKERS", "8")
	t.Setenv("MANGASCOUT__LOG_LEVEL", "TRACE")
	t.Setenv("MANGASCOUT__SEARCH_PAGES", "-1")

	c := New(dir, "test")

	assert.Equal(t, "/data/manga", c.Config.DownloadLocation)
	assert.Equal(t, "cbz", c.Config.ArchiveFormat)
	assert.Equal(t, 8, c.Config.ImageWorkers)
	assert.Equal(t, 1, c.Config.SearchPages)
	assert.Equal(t, "TRACE", c.Config.LogLevel)

	rm := c.Config.Sources["readmanga"]
	require.NotNil(t, rm)
	assert.Equal(t, "https://readmanga.live", rm.BaseURL)
	assert.Equal(t, 10, rm.Timeout)
	require.NotNil(t, rm.CloudflareBypass)
	assert.True(t, *rm.CloudflareBypass)
	assert.Equal(t, "a=b", rm.Headers["cookie"])
	assert.True(t, c.Config.Sources["mangabuff"].Disabled)
}

func TestValidate(t *testing.T) {
	c := &AppConfig{Config: &domain.Config{ArchiveFormat: "rar"}}
	assert.ErrorIs(t, c.Validate(), domain.ErrInvalidConfig)

	c.Config = &domain.Config{MonitoredManga: map[string]*domain.MonitoredManga{"x": {}}}
	assert.ErrorIs(t, c.Validate(), domain.ErrInvalidConfig)
}

func TestProcessLines(t *testing.T) {
	c := &AppConfig{Config: &domain.Config{LogLevel: "INFO", LogPath: "logs/mangascout.log"}}

	lines := c.processLines([]string{`downloadLocation: ""`, `logLevel: "DEBUG"`})

	assert.Equal(t, `logLevel: "INFO"`, lines[1])
	assert.Equal(t, `logPath: "logs/mangascout.log"`, lines[len(lines)-1])
}
