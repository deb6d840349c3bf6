package models

import "time"

// Part is one uploaded piece of a multipart upload as reported by the client.
type Part struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// UploadTarget is what the orchestrator hands back after issuing an upload.
// Exactly one of URL or PartURLs is set.
type UploadTarget struct {
	FileID     string
	StorageKey string
	Bucket     string
	ExpiresAt  time.Time

	URL string

	UploadID string
	PartURLs []string
	PartSize int64
}

// UploadResult describes a finished upload.
type UploadResult struct {
	FileID       string
	FileName     string
	FileSize     int64
	DownloadLink string
	ExpiresAt    time.Time
}

// UploadCompleted is published once a record reaches uploaded.
type UploadCompleted struct {
	FileID    string    `json:"fileId" msgpack:"file_id"`
	FileName  string    `json:"fileName" msgpack:"file_name"`
	FileSize  int64     `json:"fileSize" msgpack:"file_size"`
	ExpiresAt time.Time `json:"expiresAt" msgpack:"expires_at"`
	ClientID  string    `json:"clientId,omitempty" msgpack:"client_id,omitempty"`
}
