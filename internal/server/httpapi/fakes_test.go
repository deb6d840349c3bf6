package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/services"
	"github.com/dmitrijs2005/quicksend/internal/tier"
)

type fakeUploads struct {
	lastReq services.UploadRequest
	target  *models.UploadTarget
	reqErr  error

	completed   []string
	completeErr error

	lastParts []models.Part
	result    *models.UploadResult
	mpErr     error

	aborted []string

	cancelled []string
	cancelErr error

	download    *services.Download
	downloadErr error

	info    *models.FileRecord
	infoErr error

	metaSize int64
	metaErr  error

	active    int64
	activeErr error
}

func (f *fakeUploads) CheckLimits(size int64, t tier.Tier) (tier.Limits, error) {
	l := tier.LimitsFor(t)
	if size > l.MaxFileSize {
		return l, &common.LimitError{Err: common.ErrFileTooLarge, Tier: string(t), Limit: l.MaxFileSize, Actual: size}
	}
	return l, nil
}

func (f *fakeUploads) RequestUpload(ctx context.Context, req services.UploadRequest) (*models.UploadTarget, error) {
	f.lastReq = req
	return f.target, f.reqErr
}

func (f *fakeUploads) CompleteUpload(ctx context.Context, fileID string, reportedSize int64) error {
	f.completed = append(f.completed, fileID)
	return f.completeErr
}

func (f *fakeUploads) CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error) {
	f.lastParts = parts
	return f.result, f.mpErr
}

func (f *fakeUploads) AbortMultipart(ctx context.Context, fileID, uploadID string) {
	f.aborted = append(f.aborted, fileID+"/"+uploadID)
}

func (f *fakeUploads) CancelUpload(ctx context.Context, fileID string) error {
	f.cancelled = append(f.cancelled, fileID)
	return f.cancelErr
}

func (f *fakeUploads) ResolveDownload(ctx context.Context, fileID string) (*services.Download, error) {
	return f.download, f.downloadErr
}

func (f *fakeUploads) FileInfo(ctx context.Context, fileID string) (*models.FileRecord, error) {
	return f.info, f.infoErr
}

func (f *fakeUploads) StoreEncryptionMetadata(ctx context.Context, fileID string, originalSize int64) error {
	f.metaSize = originalSize
	return f.metaErr
}

func (f *fakeUploads) ActiveFiles(ctx context.Context) (int64, error) {
	return f.active, f.activeErr
}

func (f *fakeUploads) DownloadLink(fileID string) string {
	return "https://quicksend.test/download/" + fileID
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
func (p fakePinger) Ping(context.Context) error        { return p.err }

var errBoom = errors.New("boom")

var expires = time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
