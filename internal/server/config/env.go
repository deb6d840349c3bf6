package config

import "github.com/dmitrijs2005/quicksend/internal/envx"

const envPrefix = "QUICKSEND_"

// parseEnv loads .env (if present) and overlays QUICKSEND_* variables.
func parseEnv(config *Config) {
	envx.LoadDotEnv()

	envx.String(envPrefix+"HTTP_ADDR", &config.HTTPAddr)
	envx.String(envPrefix+"DATABASE_DSN", &config.DatabaseDSN)
	envx.String(envPrefix+"S3_ACCESS_KEY", &config.S3AccessKey)
	envx.String(envPrefix+"S3_SECRET_KEY", &config.S3SecretKey)
	envx.String(envPrefix+"S3_BUCKET", &config.S3Bucket)
	envx.String(envPrefix+"S3_REGION", &config.S3Region)
	envx.String(envPrefix+"S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envx.Bool(envPrefix+"S3_USE_PATH_STYLE", &config.S3UsePathStyle)
	envx.String(envPrefix+"PUBLIC_BASE_URL", &config.PublicBaseURL)
	envx.Duration(envPrefix+"SWEEP_INTERVAL", &config.SweepInterval)
	envx.String(envPrefix+"REDIS_ADDR", &config.RedisAddr)
	envx.Duration(envPrefix+"CACHE_TTL", &config.CacheTTL)
	envx.String(envPrefix+"NOTIFY_BACKEND", &config.NotifyBackend)
	envx.String(envPrefix+"SQS_QUEUE_URL", &config.SQSQueueURL)
	envx.List(envPrefix+"KAFKA_BROKERS", &config.KafkaBrokers)
	envx.String(envPrefix+"KAFKA_TOPIC", &config.KafkaTopic)
	envx.Float(envPrefix+"RATE_LIMIT_RPS", &config.RateLimitRPS)
	envx.Int(envPrefix+"RATE_LIMIT_BURST", &config.RateLimitBurst)
	envx.Bool(envPrefix+"ENFORCE_QUOTA", &config.EnforceQuota)
	envx.String(envPrefix+"LOG_LEVEL", &config.LogLevel)
}
