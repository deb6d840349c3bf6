package config

import "github.com/dmitrijs2005/quicksend/internal/envx"

const envPrefix = "QUICKSEND_CLIENT_"

func parseEnv(cfg *Config) {
	envx.LoadDotEnv()

	envx.String(envPrefix+"SERVER_URL", &cfg.ServerURL)
	envx.String(envPrefix+"DATA_DIR", &cfg.DataDir)
	envx.String(envPrefix+"TIER", &cfg.Tier)
	envx.String(envPrefix+"ID", &cfg.ClientID)
	envx.Int(envPrefix+"PART_CONCURRENCY", &cfg.PartConcurrency)
	envx.Duration(envPrefix+"REQUEST_TIMEOUT", &cfg.RequestTimeout)
	envx.Duration(envPrefix+"ONLINE_CHECK_INTERVAL", &cfg.OnlineCheckInterval)
	envx.String(envPrefix+"LOG_LEVEL", &cfg.LogLevel)
}
