package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/quicksend/internal/flagx"
	"github.com/dmitrijs2005/quicksend/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations accept "90s" or
// integer nanoseconds.
type JsonConfig struct {
	HTTPAddr       string         `json:"http_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	S3UsePathStyle bool           `json:"s3_use_path_style"`
	PublicBaseURL  string         `json:"public_base_url"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
	RedisAddr      string         `json:"redis_addr"`
	CacheTTL       timex.Duration `json:"cache_ttl"`
	NotifyBackend  string         `json:"notify_backend"`
	SQSQueueURL    string         `json:"sqs_queue_url"`
	KafkaBrokers   []string       `json:"kafka_brokers"`
	KafkaTopic     string         `json:"kafka_topic"`
	RateLimitRPS   float64        `json:"rate_limit_rps"`
	RateLimitBurst int            `json:"rate_limit_burst"`
	EnforceQuota   bool           `json:"enforce_quota"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values. An unreadable file or invalid
// JSON panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{
		HTTPAddr:       config.HTTPAddr,
		DatabaseDSN:    config.DatabaseDSN,
		S3AccessKey:    config.S3AccessKey,
		S3SecretKey:    config.S3SecretKey,
		S3Bucket:       config.S3Bucket,
		S3Region:       config.S3Region,
		S3BaseEndpoint: config.S3BaseEndpoint,
		S3UsePathStyle: config.S3UsePathStyle,
		PublicBaseURL:  config.PublicBaseURL,
		SweepInterval:  timex.Duration{Duration: config.SweepInterval},
		RedisAddr:      config.RedisAddr,
		CacheTTL:       timex.Duration{Duration: config.CacheTTL},
		NotifyBackend:  config.NotifyBackend,
		SQSQueueURL:    config.SQSQueueURL,
		KafkaBrokers:   config.KafkaBrokers,
		KafkaTopic:     config.KafkaTopic,
		RateLimitRPS:   config.RateLimitRPS,
		RateLimitBurst: config.RateLimitBurst,
		EnforceQuota:   config.EnforceQuota,
		LogLevel:       config.LogLevel,
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3UsePathStyle = c.S3UsePathStyle
	config.PublicBaseURL = c.PublicBaseURL
	config.SweepInterval = c.SweepInterval.Duration
	config.RedisAddr = c.RedisAddr
	config.CacheTTL = c.CacheTTL.Duration
	config.NotifyBackend = c.NotifyBackend
	config.SQSQueueURL = c.SQSQueueURL
	config.KafkaBrokers = c.KafkaBrokers
	config.KafkaTopic = c.KafkaTopic
	config.RateLimitRPS = c.RateLimitRPS
	config.RateLimitBurst = c.RateLimitBurst
	config.EnforceQuota = c.EnforceQuota
	config.LogLevel = c.LogLevel
}
