// Package config loads runtime configuration for the QuickSend CLI client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment: .env (if present), then QUICKSEND_CLIENT_* variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the QuickSend server
//	-i int      online status check interval (seconds)
//	-t string   subscription tier (free, pro, business)
//	-d string   directory for the local usage database
//	-j int      concurrent multipart parts
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "tier": "pro",
//	  "part_concurrency": 2,
//	  "request_timeout": "30s",
//	  "online_check_interval": "3s"
//	}
package config
