// Package filecache decorates the upload ledger with a Redis read-through
// cache for file metadata. Only settled (uploaded) rows are cached and every
// mutation drops the key, so the ledger stays the source of truth.
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/files"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "file_metadata:"

// store is the part of *redis.Client the cache uses.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type Repository struct {
	files.Repository

	store  store
	ttl    time.Duration
	logger logging.Logger
}

func New(next files.Repository, rdb store, ttl time.Duration, logger logging.Logger) *Repository {
	return &Repository{Repository: next, store: rdb, ttl: ttl, logger: logger}
}

func Key(id string) string {
	return keyPrefix + id
}

type cachedFile struct {
	ID                string    `json:"id"`
	OriginalName      string    `json:"originalName"`
	Size              int64     `json:"size"`
	MimeType          string    `json:"mimeType"`
	StorageKey        string    `json:"s3Key"`
	StorageBucket     string    `json:"s3Bucket"`
	Status            string    `json:"status"`
	IsActive          bool      `json:"isActive"`
	UploadDate        time.Time `json:"uploadDate"`
	ExpiresAt         time.Time `json:"expiresAt"`
	DownloadCount     int64     `json:"downloadCount"`
	MultipartUploadID string    `json:"uploadId,omitempty"`
	OriginalSize      *int64    `json:"originalSize,omitempty"`
	ClientID          string    `json:"clientId,omitempty"`
}

func toCached(f *models.FileRecord) cachedFile {
	return cachedFile{
		ID: f.ID, OriginalName: f.OriginalName, Size: f.Size, MimeType: f.MimeType,
		StorageKey: f.StorageKey, StorageBucket: f.StorageBucket, Status: string(f.Status), IsActive: f.IsActive,
		UploadDate: f.UploadDate, ExpiresAt: f.ExpiresAt, DownloadCount: f.DownloadCount,
		MultipartUploadID: f.MultipartUploadID, OriginalSize: f.OriginalSize, ClientID: f.ClientID,
	}
}

func (c cachedFile) record() *models.FileRecord {
	return &models.FileRecord{
		ID: c.ID, OriginalName: c.OriginalName, Size: c.Size, MimeType: c.MimeType,
		StorageKey: c.StorageKey, StorageBucket: c.StorageBucket, Status: models.Status(c.Status), IsActive: c.IsActive,
		UploadDate: c.UploadDate, ExpiresAt: c.ExpiresAt, DownloadCount: c.DownloadCount,
		MultipartUploadID: c.MultipartUploadID, OriginalSize: c.OriginalSize, ClientID: c.ClientID,
	}
}

// Get serves from Redis when possible. Cache failures degrade to the ledger.
func (r *Repository) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	raw, err := r.store.Get(ctx, Key(id)).Bytes()
	switch {
	case err == nil:
		var c cachedFile
		if err := json.Unmarshal(raw, &c); err == nil {
			return c.record(), nil
		}
		r.logger.Warn(ctx, "dropping undecodable cache entry", "file_id", id)
		r.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn(ctx, "cache read failed", "file_id", id, "error", err)
	}

	f, err := r.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == models.StatusUploaded && f.IsActive {
		r.put(ctx, f)
	}
	return f, nil
}

func (r *Repository) put(ctx context.Context, f *models.FileRecord) {
	raw, err := json.Marshal(toCached(f))
	if err != nil {
		r.logger.Warn(ctx, "cache encode failed", "file_id", f.ID, "error", err)
		return
	}
	if err := r.store.Set(ctx, Key(f.ID), raw, r.ttl).Err(); err != nil {
		r.logger.Warn(ctx, "cache write failed", "file_id", f.ID, "error", err)
	}
}

func (r *Repository) invalidate(ctx context.Context, id string) {
	if err := r.store.Del(ctx, Key(id)).Err(); err != nil {
		r.logger.Warn(ctx, "cache invalidate failed", "file_id", id, "error", err)
	}
}

func (r *Repository) SetMultipartUploadID(ctx context.Context, id, uploadID string) error {
	defer r.invalidate(ctx, id)
	return r.Repository.SetMultipartUploadID(ctx, id, uploadID)
}

func (r *Repository) SetOriginalSize(ctx context.Context, id string, size int64) error {
	defer r.invalidate(ctx, id)
	return r.Repository.SetOriginalSize(ctx, id, size)
}

func (r *Repository) MarkUploaded(ctx context.Context, id string, finalSize *int64) (bool, error) {
	defer r.invalidate(ctx, id)
	return r.Repository.MarkUploaded(ctx, id, finalSize)
}

func (r *Repository) MarkFailed(ctx context.Context, id string) (bool, error) {
	defer r.invalidate(ctx, id)
	return r.Repository.MarkFailed(ctx, id)
}

func (r *Repository) MarkInactive(ctx context.Context, id string) (bool, error) {
	defer r.invalidate(ctx, id)
	return r.Repository.MarkInactive(ctx, id)
}

func (r *Repository) IncrementDownloadCount(ctx context.Context, id string) error {
	defer r.invalidate(ctx, id)
	return r.Repository.IncrementDownloadCount(ctx, id)
}

// Ping reports whether Redis answers.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
