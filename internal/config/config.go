package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
)

const appName = "instalight"

type Config struct {
	APIBaseURL       string        `hcl:"api_base_url" env:"API_BASE_URL" default:"http://localhost:3000"`
	CacheDir         string        `hcl:"cache_dir" env:"CACHE_DIR"`
	DBPath           string        `hcl:"db_path" env:"DB_PATH"`
	SessionPath      string        `hcl:"session_path" env:"SESSION_PATH"`
	LogPath          string        `hcl:"log_path" env:"LOG_PATH"`
	RequestTimeout   time.Duration `hcl:"request_timeout" env:"REQUEST_TIMEOUT" default:"10s"`
	FeedPageSize     int           `hcl:"feed_page_size" env:"FEED_PAGE_SIZE" default:"10"`
	SentinelDistance int           `hcl:"sentinel_distance" env:"SENTINEL_DISTANCE" default:"3"`
	SearchDebounce   time.Duration `hcl:"search_debounce" env:"SEARCH_DEBOUNCE" default:"300ms"`
	UserTTL          time.Duration `hcl:"user_ttl" env:"USER_TTL" default:"1h"`
	PostTTL          time.Duration `hcl:"post_ttl" env:"POST_TTL" default:"5m"`
	WatchInterval    time.Duration `hcl:"watch_interval" env:"WATCH_INTERVAL" default:"30s"`
	DevServerAddr    string        `hcl:"dev_server_addr" env:"DEV_SERVER_ADDR" default:"127.0.0.1:3000"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	cfg := Config{
		APIBaseURL:       "http://localhost:3000",
		RequestTimeout:   10 * time.Second,
		FeedPageSize:     10,
		SentinelDistance: 3,
		SearchDebounce:   300 * time.Millisecond,
		UserTTL:          time.Hour,
		PostTTL:          5 * time.Minute,
		WatchInterval:    30 * time.Second,
		DevServerAddr:    "127.0.0.1:3000",
	}
	cfg.fillPaths()
	return cfg
}

// Load reads ./instalight.hcl, the per-user config file and INSTALIGHT_*
// environment variables, in increasing priority.
func Load() (Config, error) {
	return load(nil)
}

func load(files []string) (Config, error) {
	if files == nil {
		files = []string{
			"./" + appName + ".hcl",
			filepath.Join(userConfigDir(), appName, "config.hcl"),
		}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		EnvPrefix:          "INSTALIGHT",
		AllowUnknownFields: true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fillPaths derives unset paths from CacheDir.
func (c *Config) fillPaths() {
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(userConfigDir(), appName)
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.CacheDir, "cache.db")
	}
	if c.SessionPath == "" {
		c.SessionPath = filepath.Join(c.CacheDir, "session.json")
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(c.CacheDir, "debug.log")
	}
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if strings.HasSuffix(c.APIBaseURL, "/") {
		return errors.New("api_base_url must not end with /")
	}
	if c.FeedPageSize <= 0 {
		return fmt.Errorf("feed_page_size must be positive, got %d", c.FeedPageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.WatchInterval < 0 {
		return fmt.Errorf("watch_interval must not be negative, got %s", c.WatchInterval)
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
