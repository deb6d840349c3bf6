package client

import (
	"context"

	"github.com/dmitrijs2005/quicksend/internal/client/models"
)

// Client is the QuickSend backend API as used by the upload driver.
type Client interface {
	Ping(ctx context.Context) (*models.Health, error)
	RequestUpload(ctx context.Context, req models.UploadRequest) (*models.SingleTarget, error)
	RequestMultipart(ctx context.Context, req models.UploadRequest) (*models.MultipartTarget, error)
	CompleteUpload(ctx context.Context, fileID string, size int64) error
	CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error)
	CancelMultipart(ctx context.Context, fileID, uploadID string) error
	CancelUpload(ctx context.Context, fileID string) error
	DownloadLink(fileID string) string
}
