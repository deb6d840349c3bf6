package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server
//	-i int      online check interval in seconds
//	-t string   subscription tier
//	-d string   data directory
//	-j int      concurrent multipart parts
//	-l string   log level
//
// The function filters os.Args to only include the flags it knows about.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-t", "-d", "-j", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.Tier, "t", cfg.Tier, "subscription tier")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.IntVar(&cfg.PartConcurrency, "j", cfg.PartConcurrency, "concurrent multipart parts")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
