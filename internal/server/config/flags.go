package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/quicksend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-base string  public base URL for download links
//	-w duration   sweep interval (e.g., "30m")
//	-r string     Redis address, empty disables the cache
//	-n string     notify backend: none, sqs, kafka
//	-q bool       enforce the server-side monthly quota
//	-l string     log level
//
// Invalid values panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-u", "-p", "-b", "-g", "-e", "-base", "-w", "-r", "-n", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.PublicBaseURL, "base", config.PublicBaseURL, "public base URL")
	fs.DurationVar(&config.SweepInterval, "w", config.SweepInterval, "retention sweep interval")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.NotifyBackend, "n", config.NotifyBackend, "notify backend (none, sqs, kafka)")
	fs.BoolVar(&config.EnforceQuota, "q", config.EnforceQuota, "enforce monthly quota")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
