// Package models defines server-side data models persisted in the ledger.
package models

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
)

// FileRecord is one upload attempt. It is created pending before any
// storage URL is issued and only reaches uploaded after the object was
// confirmed in the blob store.
type FileRecord struct {
	ID           string
	OriginalName string
	// Size is provisional until Status is uploaded.
	Size     int64
	MimeType string

	StorageKey    string
	StorageBucket string

	Status   Status
	IsActive bool

	UploadDate time.Time
	ExpiresAt  time.Time

	DownloadCount int64

	// MultipartUploadID is set only for multipart uploads.
	MultipartUploadID string
	// OriginalSize is the plaintext size when the client encrypts before upload.
	OriginalSize *int64

	ClientID string
}

func (f *FileRecord) Multipart() bool {
	return f.MultipartUploadID != ""
}

// ExpiredAt reports whether the record is past its retention at now.
func (f *FileRecord) ExpiredAt(now time.Time) bool {
	return now.After(f.ExpiresAt)
}
