package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

// Repository is the upload ledger. Status mutations are conditional on the
// current status, so racing callers converge instead of double-transitioning.
type Repository interface {
	Create(ctx context.Context, f *models.FileRecord) error
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	SetMultipartUploadID(ctx context.Context, id, uploadID string) error
	SetOriginalSize(ctx context.Context, id string, size int64) error

	// MarkUploaded moves pending to uploaded. A second call on an uploaded
	// row reports changed=false and no error.
	MarkUploaded(ctx context.Context, id string, finalSize *int64) (changed bool, err error)
	// MarkFailed moves pending to failed; other states are left alone.
	MarkFailed(ctx context.Context, id string) (changed bool, err error)
	MarkInactive(ctx context.Context, id string) (changed bool, err error)
	IncrementDownloadCount(ctx context.Context, id string) error

	ListActive(ctx context.Context) ([]*models.FileRecord, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.FileRecord, error)
	CountActive(ctx context.Context) (int64, error)
}
