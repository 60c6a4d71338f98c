package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDerivesPaths(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.CacheDir)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "cache.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "session.json"), cfg.SessionPath)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "debug.log"), cfg.LogPath)
	assert.Equal(t, 10, cfg.FeedPageSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadUsesTagDefaults(t *testing.T) {
	t.Setenv("INSTALIGHT_API_BASE_URL", "")
	cfg, err := load([]string{filepath.Join(t.TempDir(), "missing.hcl")})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 30*time.Second, cfg.WatchInterval)
	assert.Equal(t, 10, cfg.FeedPageSize)
}

func TestLoadFromHCLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instalight.hcl")
	body := `api_base_url = "http://photos.example.test"
feed_page_size = 20
cache_dir = "` + dir + `"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := load([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "http://photos.example.test", cfg.APIBaseURL)
	assert.Equal(t, 20, cfg.FeedPageSize)
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.DBPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("INSTALIGHT_FEED_PAGE_SIZE", "25")
	t.Setenv("INSTALIGHT_WATCH_INTERVAL", "1m")

	cfg, err := load([]string{filepath.Join(t.TempDir(), "missing.hcl")})
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.FeedPageSize)
	assert.Equal(t, time.Minute, cfg.WatchInterval)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("INSTALIGHT_FEED_PAGE_SIZE", "0")

	_, err := load([]string{filepath.Join(t.TempDir(), "missing.hcl")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.APIBaseURL = "" }},
		{"trailing slash", func(c *Config) { c.APIBaseURL = "http://localhost:3000/" }},
		{"page size", func(c *Config) { c.FeedPageSize = -1 }},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"watch interval", func(c *Config) { c.WatchInterval = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
