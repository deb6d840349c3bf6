package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the QuickSend CLI.
//
// Fields:
//   - ServerURL: base URL of the backend HTTP API.
//   - DataDir: directory holding the local usage database.
//   - Tier: subscription tier as resolved by the billing layer.
//   - ClientID: sent as X-Client-ID so the server can apply its quota.
//   - PartConcurrency: in-flight multipart parts; 1 uploads parts sequentially.
//   - RequestTimeout: timeout for API calls (not for streaming transfers).
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerURL           string
	DataDir             string
	Tier                string
	ClientID            string
	PartConcurrency     int
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = defaultDataDir()
	c.Tier = "free"
	c.ClientID = ""
	c.PartConcurrency = 1
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "warn"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "quicksend")
	}
	return ".quicksend"
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "client.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
