// Package models defines the client-side view of the upload protocol.
package models

import "time"

// UploadRequest asks the server for an upload target.
type UploadRequest struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	Tier     string `json:"tier"`
}

// SingleTarget is a presigned PUT for the whole file.
type SingleTarget struct {
	UploadURL  string    `json:"uploadUrl"`
	FileID     string    `json:"fileId"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// MultipartTarget holds one presigned URL per part, in part order.
type MultipartTarget struct {
	UploadID  string    `json:"uploadId"`
	FileID    string    `json:"fileId"`
	PartURLs  []string  `json:"partUrls"`
	PartSize  int64     `json:"partSize"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Part struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

// UploadResult is what the user gets after a successful upload.
type UploadResult struct {
	FileID       string    `json:"fileId"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	DownloadLink string    `json:"downloadLink"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Health is the server's /health answer.
type Health struct {
	Status   string `json:"status"`
	Files    int64  `json:"files"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
