// Package tier is the single table of subscription limits consulted by the
// server (to size URL lifetimes and reject oversized uploads) and by the
// client (to pre-validate before any network call).
package tier

import (
	"fmt"
	"strings"
	"time"
)

type Tier string

const (
	Free     Tier = "free"
	Pro      Tier = "pro"
	Business Tier = "business"
)

const (
	MB int64 = 1024 * 1024
	GB int64 = 1024 * MB
)

const (
	// MultipartThreshold is the size above which paid tiers switch to
	// multipart uploads.
	MultipartThreshold = 50 * MB
	// PartSize is fixed; a 5GB upload therefore has at most 25 parts.
	PartSize = 200 * MB
	// PartURLTTL is the lifetime of each presigned part URL.
	PartURLTTL = time.Hour
)

// Limits is the immutable policy for a tier.
type Limits struct {
	MaxFileSize        int64  `json:"maxFileSize"`
	MaxUploadsPerMonth int    `json:"maxUploadsPerMonth"`
	RetentionDays      int    `json:"expiryDays"`
	PriceText          string `json:"priceText"`
}

var table = map[Tier]Limits{
	Free:     {MaxFileSize: 100 * MB, MaxUploadsPerMonth: 10, RetentionDays: 7, PriceText: "$0/month"},
	Pro:      {MaxFileSize: 1 * GB, MaxUploadsPerMonth: 100, RetentionDays: 30, PriceText: "$4.99/month"},
	Business: {MaxFileSize: 5 * GB, MaxUploadsPerMonth: 1000, RetentionDays: 90, PriceText: "$14.99/month"},
}

// All lists tiers from most to least restrictive.
func All() []Tier {
	return []Tier{Free, Pro, Business}
}

// Parse is case-insensitive; anything unknown is Free.
func Parse(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := table[t]; ok {
		return t
	}
	return Free
}

// Known reports whether s names a tier exactly (case-insensitive).
func Known(s string) bool {
	_, ok := table[Tier(strings.ToLower(strings.TrimSpace(s)))]
	return ok
}

// LimitsFor never fails: unknown tiers get the free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[Free]
}

func (t Tier) Paid() bool {
	return Parse(string(t)) != Free
}

func (t Tier) DisplayName() string {
	s := string(Parse(string(t)))
	return strings.ToUpper(s[:1]) + s[1:]
}

// Retention is the lifetime of a file issued under t.
func (t Tier) Retention() time.Duration {
	return time.Duration(LimitsFor(t).RetentionDays) * 24 * time.Hour
}

// Allows reports whether a file of size bytes fits the tier.
func (t Tier) Allows(size int64) bool {
	return size <= LimitsFor(t).MaxFileSize
}

// FormatBytes renders b with binary units, e.g. "100.0 MB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
