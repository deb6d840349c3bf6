package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/quicksend/internal/flagx"
	"github.com/dmitrijs2005/quicksend/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DataDir             string         `json:"data_dir"`
	Tier                string         `json:"tier"`
	ClientID            string         `json:"client_id"`
	PartConcurrency     int            `json:"part_concurrency"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config. Keys missing from
// the file keep their current values. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerURL:           cfg.ServerURL,
		DataDir:             cfg.DataDir,
		Tier:                cfg.Tier,
		ClientID:            cfg.ClientID,
		PartConcurrency:     cfg.PartConcurrency,
		RequestTimeout:      timex.Duration{Duration: cfg.RequestTimeout},
		OnlineCheckInterval: timex.Duration{Duration: cfg.OnlineCheckInterval},
		LogLevel:            cfg.LogLevel,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.DataDir = jc.DataDir
	cfg.Tier = jc.Tier
	cfg.ClientID = jc.ClientID
	cfg.PartConcurrency = jc.PartConcurrency
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	cfg.LogLevel = jc.LogLevel
}
