package tier

import "time"

type Strategy string

const (
	SinglePart Strategy = "single"
	Multipart  Strategy = "multipart"
)

// StrategyFor picks single-part for free tiers and small files, multipart
// for paid tiers above MultipartThreshold.
func StrategyFor(t Tier, size int64) Strategy {
	if t.Paid() && size > MultipartThreshold {
		return Multipart
	}
	return SinglePart
}

// PartCount is ceil(size/PartSize), at least 1.
func PartCount(size int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + PartSize - 1) / PartSize)
}

// PartRange returns the byte offset and length of the 1-based part n.
func PartRange(size int64, n int) (offset, length int64) {
	offset = int64(n-1) * PartSize
	length = PartSize
	if rest := size - offset; rest < length {
		length = rest
	}
	if length < 0 {
		length = 0
	}
	return offset, length
}

// UploadURLTTL sizes a single-part PUT URL so slow uplinks do not outlive it:
// free 1h/2h/4h and paid 2h/4h/8h at the >100MB and >1GB steps.
func UploadURLTTL(t Tier, size int64) time.Duration {
	base := time.Hour
	if t.Paid() {
		base = 2 * time.Hour
	}
	switch {
	case size > GB:
		return base * 4
	case size > 100*MB:
		return base * 2
	default:
		return base
	}
}

// DownloadURLTTL is 1h, or 2h for objects over 100MB.
func DownloadURLTTL(size int64) time.Duration {
	if size > 100*MB {
		return 2 * time.Hour
	}
	return time.Hour
}
