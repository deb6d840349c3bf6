// Package services contains server-side business logic. UploadService is the
// upload orchestrator: it issues presigned targets, records every attempt in
// the ledger before any bytes move, and only trusts the blob store when
// flipping a record to uploaded.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/dbx"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/blobstore"
	"github.com/dmitrijs2005/quicksend/internal/server/config"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/files"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/dmitrijs2005/quicksend/internal/timex"
	"github.com/google/uuid"
)

// BlobStore is the storage gateway as seen by the orchestrator.
type BlobStore interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []models.Part, expected int) error
	Abort(ctx context.Context, key, uploadID string)
	Exists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Notifier interface {
	UploadCompleted(ctx context.Context, ev models.UploadCompleted) error
}

// backgroundTimeout bounds fire-and-forget work detached from a request.
const backgroundTimeout = 10 * time.Second

type UploadRequest struct {
	FileName string
	MimeType string
	Size     int64
	Tier     tier.Tier
	// ClientID is optional and only used for the server-side quota.
	ClientID string
	// Strategy forces a strategy; empty selects one from size and tier.
	Strategy tier.Strategy
}

// Download is a resolved, time-limited download.
type Download struct {
	URL       string
	ExpiresIn time.Duration
	FileName  string
}

type UploadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      files.Repository
	blobs       BlobStore
	notifier    Notifier
	logger      logging.Logger

	publicBaseURL string
	enforceQuota  bool

	now   func() time.Time
	newID func() string

	bg sync.WaitGroup
}

// NewUploadService wires the orchestrator. ledger is used for every read and
// status transition and may be a caching decorator; the repository manager
// is only used for the transactional pending insert.
func NewUploadService(db *sql.DB, m repomanager.RepositoryManager, ledger files.Repository, blobs BlobStore,
	notifier Notifier, cfg *config.Config, logger logging.Logger) *UploadService {
	return &UploadService{
		db:            db,
		repomanager:   m,
		ledger:        ledger,
		blobs:         blobs,
		notifier:      notifier,
		logger:        logger,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		enforceQuota:  cfg.EnforceQuota,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Wait blocks until detached work (download counters, notifications) is done.
func (s *UploadService) Wait() {
	s.bg.Wait()
}

func (s *UploadService) detach(ctx context.Context, fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// CheckLimits validates size against t without touching any state.
func (s *UploadService) CheckLimits(size int64, t tier.Tier) (tier.Limits, error) {
	limits := tier.LimitsFor(t)
	if size > limits.MaxFileSize {
		return limits, &common.LimitError{Err: common.ErrFileTooLarge, Tier: string(t), Limit: limits.MaxFileSize, Actual: size}
	}
	return limits, nil
}

// RequestUpload validates the request, writes a pending record and then
// issues the storage target for the selected strategy.
func (s *UploadService) RequestUpload(ctx context.Context, req UploadRequest) (*models.UploadTarget, error) {
	if strings.TrimSpace(req.FileName) == "" || req.Size < 0 {
		return nil, fmt.Errorf("%w: fileName and a non-negative fileSize are required", common.ErrInvalidRequest)
	}
	req.Tier = tier.Parse(string(req.Tier))

	if _, err := s.CheckLimits(req.Size, req.Tier); err != nil {
		return nil, err
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = tier.StrategyFor(req.Tier, req.Size)
	}
	if strategy == tier.Multipart && !req.Tier.Paid() {
		return nil, &common.LimitError{Err: common.ErrTierNotEligible, Tier: string(req.Tier), Limit: 0, Actual: req.Size}
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	now := s.now().UTC()
	id := s.newID()
	rec := &models.FileRecord{
		ID:            id,
		OriginalName:  req.FileName,
		Size:          req.Size,
		MimeType:      mimeType,
		StorageKey:    blobstore.ObjectKey(id, req.FileName),
		StorageBucket: s.blobs.Bucket(),
		Status:        models.StatusPending,
		IsActive:      true,
		UploadDate:    now,
		ExpiresAt:     now.Add(req.Tier.Retention()),
		ClientID:      req.ClientID,
	}

	if err := s.createPending(ctx, rec, req.Tier); err != nil {
		return nil, err
	}

	target := &models.UploadTarget{
		FileID:     rec.ID,
		StorageKey: rec.StorageKey,
		Bucket:     rec.StorageBucket,
		ExpiresAt:  rec.ExpiresAt,
	}

	var err error
	if strategy == tier.Multipart {
		err = s.issueMultipart(ctx, rec, target)
	} else {
		target.URL, err = s.blobs.PresignPut(ctx, rec.StorageKey, rec.MimeType, tier.UploadURLTTL(req.Tier, req.Size))
	}
	if err != nil {
		s.fail(ctx, rec, "issuance failed", err)
		return nil, err
	}

	s.logger.Info(ctx, "upload issued", "file_id", rec.ID, "strategy", string(strategy), "size", rec.Size, "tier", string(req.Tier))
	return target, nil
}

// createPending inserts the record, reserving a monthly slot in the same
// transaction when the quota applies.
func (s *UploadService) createPending(ctx context.Context, rec *models.FileRecord, t tier.Tier) error {
	if !s.quotaApplies(rec) {
		return s.ledger.Create(ctx, rec)
	}

	limits := tier.LimitsFor(t)
	period := timex.MonthKey(rec.UploadDate)
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := s.repomanager.Quotas(tx).Reserve(ctx, rec.ClientID, period, int64(limits.MaxUploadsPerMonth))
		if errors.Is(err, common.ErrMonthlyLimitReached) {
			return &common.LimitError{
				Err:    common.ErrMonthlyLimitReached,
				Tier:   string(t),
				Limit:  int64(limits.MaxUploadsPerMonth),
				Actual: int64(limits.MaxUploadsPerMonth),
			}
		}
		if err != nil {
			return err
		}
		return s.repomanager.Files(tx).Create(ctx, rec)
	})
}

func (s *UploadService) quotaApplies(rec *models.FileRecord) bool {
	return s.enforceQuota && rec.ClientID != ""
}

func (s *UploadService) issueMultipart(ctx context.Context, rec *models.FileRecord, target *models.UploadTarget) error {
	uploadID, err := s.blobs.CreateMultipart(ctx, rec.StorageKey, rec.MimeType)
	if err != nil {
		return err
	}
	rec.MultipartUploadID = uploadID

	if err := s.ledger.SetMultipartUploadID(ctx, rec.ID, uploadID); err != nil {
		s.blobs.Abort(ctx, rec.StorageKey, uploadID)
		return err
	}

	n := tier.PartCount(rec.Size)
	urls := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		u, err := s.blobs.PresignPart(ctx, rec.StorageKey, uploadID, int32(i), tier.PartURLTTL)
		if err != nil {
			s.blobs.Abort(ctx, rec.StorageKey, uploadID)
			return err
		}
		urls = append(urls, u)
	}

	target.UploadID = uploadID
	target.PartURLs = urls
	target.PartSize = tier.PartSize
	return nil
}

// fail moves a pending record to failed and gives back its quota slot.
func (s *UploadService) fail(ctx context.Context, rec *models.FileRecord, reason string, cause error) {
	changed, err := s.ledger.MarkFailed(ctx, rec.ID)
	if err != nil {
		s.logger.Error(ctx, "failed to mark upload failed", "file_id", rec.ID, "reason", reason, "error", err)
		return
	}
	if !changed {
		return
	}

	args := []any{"file_id", rec.ID, "reason", reason}
	if cause != nil {
		args = append(args, "error", cause)
	}
	s.logger.Warn(ctx, "upload marked failed", args...)

	if s.quotaApplies(rec) {
		if err := s.repomanager.Quotas(s.db).Release(ctx, rec.ClientID, timex.MonthKey(rec.UploadDate)); err != nil {
			s.logger.Error(ctx, "failed to release quota", "file_id", rec.ID, "client_id", rec.ClientID, "error", err)
		}
	}
}

// CompleteUpload confirms a single-part upload. A missing object leaves the
// record pending so the client may retry.
func (s *UploadService) CompleteUpload(ctx context.Context, fileID string, reportedSize int64) error {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		return err
	}

	switch rec.Status {
	case models.StatusUploaded:
		return nil
	case models.StatusFailed:
		return common.ErrUploadFailed
	}

	exists, err := s.blobs.Exists(ctx, rec.StorageKey)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Info(ctx, "completion before object visible", "file_id", fileID)
		return common.ErrNotFoundInStorage
	}

	var size *int64
	if reportedSize > 0 {
		size = &reportedSize
	}
	changed, err := s.ledger.MarkUploaded(ctx, fileID, size)
	if err != nil {
		return err
	}
	if changed {
		if size != nil {
			rec.Size = *size
		}
		s.uploaded(ctx, rec)
	}
	return nil
}

// CompleteMultipart assembles the parts. Any failure aborts the storage
// session and fails the record before the error is returned.
func (s *UploadService) CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error) {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.Multipart() {
		return nil, common.ErrNotMultipart
	}
	if uploadID != "" && uploadID != rec.MultipartUploadID {
		return nil, fmt.Errorf("%w: upload id does not match file", common.ErrInvalidRequest)
	}

	switch rec.Status {
	case models.StatusUploaded:
		return s.result(rec), nil
	case models.StatusFailed:
		return nil, common.ErrUploadFailed
	}

	err = s.blobs.CompleteMultipart(ctx, rec.StorageKey, rec.MultipartUploadID, parts, tier.PartCount(rec.Size))
	if err != nil {
		s.blobs.Abort(ctx, rec.StorageKey, rec.MultipartUploadID)
		s.fail(ctx, rec, "multipart completion failed", err)
		return nil, err
	}

	changed, err := s.ledger.MarkUploaded(ctx, fileID, nil)
	if err != nil {
		return nil, err
	}
	if changed {
		s.uploaded(ctx, rec)
	}
	return s.result(rec), nil
}

// AbortMultipart is best-effort and never reports an error.
func (s *UploadService) AbortMultipart(ctx context.Context, fileID, uploadID string) {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		s.logger.Warn(ctx, "abort for unknown upload", "file_id", fileID, "error", err)
		return
	}

	id := rec.MultipartUploadID
	if id == "" {
		id = uploadID
	}
	if id != "" {
		s.blobs.Abort(ctx, rec.StorageKey, id)
	}
	s.fail(ctx, rec, "multipart aborted", nil)
}

// CancelUpload stops a pending upload: any multipart session is aborted and
// the record is failed. Settled records are left untouched.
func (s *UploadService) CancelUpload(ctx context.Context, fileID string) error {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusPending {
		return nil
	}

	if rec.Multipart() {
		s.blobs.Abort(ctx, rec.StorageKey, rec.MultipartUploadID)
	}
	s.fail(ctx, rec, "cancelled by client", nil)
	return nil
}

// ResolveDownload checks the record and signs a GET URL. An expired record
// is deactivated on the spot.
func (s *UploadService) ResolveDownload(ctx context.Context, fileID string) (*Download, error) {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, common.ErrNotFound
	}

	switch rec.Status {
	case models.StatusPending:
		return nil, common.ErrPending
	case models.StatusFailed:
		return nil, common.ErrUploadFailed
	}

	if rec.ExpiredAt(s.now()) {
		if _, err := s.ledger.MarkInactive(ctx, fileID); err != nil {
			s.logger.Error(ctx, "failed to deactivate expired file", "file_id", fileID, "error", err)
		}
		return nil, common.ErrExpired
	}

	s.detach(ctx, func(ctx context.Context) {
		if err := s.ledger.IncrementDownloadCount(ctx, fileID); err != nil {
			s.logger.Warn(ctx, "download count not recorded", "file_id", fileID, "error", err)
		}
	})

	ttl := tier.DownloadURLTTL(rec.Size)
	u, err := s.blobs.PresignGet(ctx, rec.StorageKey, rec.OriginalName, ttl)
	if err != nil {
		return nil, err
	}
	return &Download{URL: u, ExpiresIn: ttl, FileName: rec.OriginalName}, nil
}

// FileInfo returns an active record for share pages.
func (s *UploadService) FileInfo(ctx context.Context, fileID string) (*models.FileRecord, error) {
	rec, err := s.ledger.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

func (s *UploadService) StoreEncryptionMetadata(ctx context.Context, fileID string, originalSize int64) error {
	if originalSize <= 0 {
		return fmt.Errorf("%w: originalSize must be positive", common.ErrInvalidRequest)
	}
	return s.ledger.SetOriginalSize(ctx, fileID, originalSize)
}

func (s *UploadService) ActiveFiles(ctx context.Context) (int64, error) {
	return s.ledger.CountActive(ctx)
}

func (s *UploadService) DownloadLink(fileID string) string {
	return s.publicBaseURL + "/download/" + fileID
}

func (s *UploadService) result(rec *models.FileRecord) *models.UploadResult {
	return &models.UploadResult{
		FileID:       rec.ID,
		FileName:     rec.OriginalName,
		FileSize:     rec.Size,
		DownloadLink: s.DownloadLink(rec.ID),
		ExpiresAt:    rec.ExpiresAt,
	}
}

func (s *UploadService) uploaded(ctx context.Context, rec *models.FileRecord) {
	s.logger.Info(ctx, "upload completed", "file_id", rec.ID, "size", rec.Size)

	ev := models.UploadCompleted{
		FileID:    rec.ID,
		FileName:  rec.OriginalName,
		FileSize:  rec.Size,
		ExpiresAt: rec.ExpiresAt,
		ClientID:  rec.ClientID,
	}
	s.detach(ctx, func(ctx context.Context) {
		if err := s.notifier.UploadCompleted(ctx, ev); err != nil {
			s.logger.Warn(ctx, "upload notification dropped", "file_id", ev.FileID, "error", err)
		}
	})
}
