// Package sweeper reclaims expired uploads: it deletes the stored object and
// then deactivates the ledger record.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

type Ledger interface {
	ListExpired(ctx context.Context, now time.Time) ([]*models.FileRecord, error)
	MarkInactive(ctx context.Context, id string) (bool, error)
}

type Blobs interface {
	Delete(ctx context.Context, key string) error
	Abort(ctx context.Context, key, uploadID string)
}

// Result summarises one sweep.
type Result struct {
	Expired int
	Cleaned int
	Failed  int
}

// Sweeper periodically removes expired uploads. A record whose object
// could not be deleted stays active and is retried on the next run.
type Sweeper struct {
	ledger   Ledger
	blobs    Blobs
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time
	done     chan struct{}
}

func New(ledger Ledger, blobs Blobs, interval time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		blobs:    blobs,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info(ctx, "retention sweeper started", "interval", s.interval)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.logger.Info(context.WithoutCancel(ctx), "retention sweeper stopping")
				return
			}
		}
	}()
}

// Wait blocks until the sweeper goroutine has stopped.
func (s *Sweeper) Wait() {
	<-s.done
}

func (s *Sweeper) RunOnce(ctx context.Context) Result {
	expired, err := s.ledger.ListExpired(ctx, s.now())
	if err != nil {
		s.logger.Error(ctx, "failed to list expired files", "error", err)
		return Result{}
	}

	res := Result{Expired: len(expired)}
	for _, f := range expired {
		if ctx.Err() != nil {
			break
		}

		if f.Status == models.StatusPending && f.Multipart() {
			s.blobs.Abort(ctx, f.StorageKey, f.MultipartUploadID)
		}

		if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
			s.logger.Error(ctx, "failed to delete expired object", "file_id", f.ID, "key", f.StorageKey, "error", err)
			res.Failed++
			continue
		}

		if _, err := s.ledger.MarkInactive(ctx, f.ID); err != nil {
			s.logger.Error(ctx, "failed to deactivate expired file", "file_id", f.ID, "error", err)
			res.Failed++
			continue
		}

		res.Cleaned++
		s.logger.Debug(ctx, "expired file reclaimed", "file_id", f.ID, "expired_at", f.ExpiresAt)
	}

	s.logger.Info(ctx, "sweep complete", "expired", res.Expired, "cleaned", res.Cleaned, "failed", res.Failed)
	return res
}
