// Package driver turns a local file into a share link. It pre-validates
// against the current tier, asks the server for an upload target, streams
// the file straight to the presigned URL(s) and reconciles the local monthly
// counter once the server confirms the upload.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/client/repositories/usage"
	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/filex"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/dmitrijs2005/quicksend/internal/timex"
	"github.com/gabriel-vasile/mimetype"
)

// TierSource yields the tier uploads are validated against.
type TierSource interface {
	Current() tier.Tier
}

type Options struct {
	// PartConcurrency caps in-flight multipart parts; values below 1 mean 1.
	PartConcurrency int
	// Transfer carries the presigned PUTs. It should have no overall
	// timeout since a part can take minutes on a slow uplink.
	Transfer *http.Client
}

const (
	completeAttempts = 3
	cleanupTimeout   = 10 * time.Second
)

type Driver struct {
	api         client.Client
	usage       usage.Repository
	tiers       TierSource
	logger      logging.Logger
	transfer    *http.Client
	concurrency int
	sessions    *registry

	now             func() time.Time
	completeBackoff time.Duration
}

func New(api client.Client, counter usage.Repository, tiers TierSource, logger logging.Logger, opts Options) *Driver {
	transfer := opts.Transfer
	if transfer == nil {
		transfer = &http.Client{}
	}
	concurrency := opts.PartConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Driver{
		api:             api,
		usage:           counter,
		tiers:           tiers,
		logger:          logger,
		transfer:        transfer,
		concurrency:     concurrency,
		sessions:        newRegistry(),
		now:             time.Now,
		completeBackoff: time.Second,
	}
}

// Usage is the local monthly counter against the tier's allowance.
type Usage struct {
	Period string
	Tier   tier.Tier
	Used   int
	Limit  int
}

func (d *Driver) Usage(ctx context.Context) (Usage, error) {
	t := d.tiers.Current()
	period := timex.MonthKey(d.now())
	used, err := d.usage.Count(ctx, period)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Period: period, Tier: t, Used: used, Limit: tier.LimitsFor(t).MaxUploadsPerMonth}, nil
}

// Preflight rejects what the server would reject anyway, without a network
// call. An unknown size (negative) skips the size check. A failing counter
// read is logged and the attempt is allowed, since the server has the final
// word.
func (d *Driver) Preflight(ctx context.Context, t tier.Tier, size int64) error {
	limits := tier.LimitsFor(t)
	if size > limits.MaxFileSize {
		return &common.LimitError{Err: common.ErrFileTooLarge, Tier: string(t), Limit: limits.MaxFileSize, Actual: size}
	}

	period := timex.MonthKey(d.now())
	used, err := d.usage.Count(ctx, period)
	if err != nil {
		d.logger.Warn(ctx, "usage counter unavailable", "period", period, "error", err)
		return nil
	}
	if used >= limits.MaxUploadsPerMonth {
		return &common.LimitError{Err: common.ErrMonthlyLimitReached, Tier: string(t),
			Limit: int64(limits.MaxUploadsPerMonth), Actual: int64(used)}
	}
	return nil
}

// Start validates path and launches its upload in the background. Pre-flight
// failures are returned directly; everything after that is reported through
// the returned Session. onProgress may be nil.
func (d *Driver) Start(ctx context.Context, path string, onProgress ProgressFunc) (*Session, error) {
	f, err := filex.OpenRegular(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	size := filex.DetectSize(ctx, f)
	t := d.tiers.Current()
	if err := d.Preflight(ctx, t, size); err != nil {
		_ = f.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		FileName:  filepath.Base(path),
		Size:      size,
		Tier:      t,
		Strategy:  tier.StrategyFor(t, size),
		StartedAt: d.now(),
		cancel:    cancel,
		progress:  newProgress(size, onProgress),
		done:      make(chan struct{}),
	}
	d.sessions.add(s)

	go func() {
		res, err := d.run(runCtx, s, f)
		_ = f.Close()
		cancel()
		s.finish(res, err)
		d.sessions.remove(s.ID)
		close(s.done)
	}()

	return s, nil
}

// Upload is Start followed by Wait.
func (d *Driver) Upload(ctx context.Context, path string, onProgress ProgressFunc) (*models.UploadResult, error) {
	s, err := d.Start(ctx, path, onProgress)
	if err != nil {
		return nil, err
	}
	return s.Wait()
}

// Cancel stops the session with the given id. It reports false when no such
// session is running.
func (d *Driver) Cancel(id string) bool {
	s, ok := d.sessions.get(id)
	if !ok {
		return false
	}
	s.Cancel()
	return true
}

// CancelAll stops every running session and returns how many there were.
func (d *Driver) CancelAll() int {
	all := d.sessions.all()
	for _, s := range all {
		s.Cancel()
	}
	return len(all)
}

// Active lists running sessions in start order.
func (d *Driver) Active() []SessionInfo {
	all := d.sessions.all()
	out := make([]SessionInfo, 0, len(all))
	for _, s := range all {
		out = append(out, SessionInfo{
			ID:        s.ID,
			FileName:  s.FileName,
			Size:      s.Size,
			Strategy:  s.Strategy,
			Progress:  s.Progress(),
			StartedAt: s.StartedAt,
		})
	}
	return out
}

func (d *Driver) run(ctx context.Context, s *Session, f *os.File) (*models.UploadResult, error) {
	log := d.logger.With("session", s.ID, "file", s.FileName, "strategy", string(s.Strategy))

	reqSize := s.Size
	if reqSize < 0 {
		reqSize = 0
	}
	req := models.UploadRequest{
		FileName: s.FileName,
		MimeType: detectMIME(f),
		FileSize: reqSize,
		Tier:     string(s.Tier),
	}
	log.Info(ctx, "upload started", "size", s.Size, "mime", req.MimeType)

	var (
		res *models.UploadResult
		err error
	)
	if s.Strategy == tier.Multipart {
		res, err = d.uploadMultipart(ctx, s, f, req)
	} else {
		res, err = d.uploadSingle(ctx, s, f, req)
	}

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			d.cancelRemote(ctx, s)
			log.Info(ctx, "upload cancelled")
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		log.Warn(ctx, "upload failed", "category", string(Classify(err)), "error", err)
		return nil, err
	}

	s.progress.finish()
	d.recordUpload(ctx, log)
	log.Info(ctx, "upload finished", "file_id", res.FileID)
	return res, nil
}

func (d *Driver) uploadSingle(ctx context.Context, s *Session, f *os.File, req models.UploadRequest) (*models.UploadResult, error) {
	target, err := d.api.RequestUpload(ctx, req)
	if err != nil {
		return nil, err
	}
	s.setRemote(target.FileID, "")

	var body io.Reader = f
	if s.Size >= 0 {
		body = io.NewSectionReader(f, 0, s.Size)
	}
	if _, err := d.put(ctx, s, target.UploadURL, body, s.Size, req.MimeType); err != nil {
		return nil, err
	}

	sent := s.progress.bytes()
	if err := d.complete(ctx, target.FileID, sent); err != nil {
		return nil, err
	}

	return &models.UploadResult{
		FileID:       target.FileID,
		FileName:     s.FileName,
		FileSize:     sent,
		DownloadLink: d.api.DownloadLink(target.FileID),
		ExpiresAt:    target.ExpiresAt,
	}, nil
}

// complete retries NotFoundInStorage a few times: the object can lag the
// PUT response by a moment.
func (d *Driver) complete(ctx context.Context, fileID string, size int64) error {
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		err = d.api.CompleteUpload(ctx, fileID, size)
		if !errors.Is(err, common.ErrNotFoundInStorage) || attempt == completeAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.completeBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func (d *Driver) recordUpload(ctx context.Context, log logging.Logger) {
	period := timex.MonthKey(d.now())
	n, err := d.usage.Increment(context.WithoutCancel(ctx), period)
	if err != nil {
		log.Warn(ctx, "failed to record upload", "period", period, "error", err)
		return
	}
	log.Debug(ctx, "usage recorded", "period", period, "count", n)
}

// cancelRemote tells the server to drop the pending row so it does not wait
// for the retention sweep.
func (d *Driver) cancelRemote(ctx context.Context, s *Session) {
	fileID := s.FileID()
	if fileID == "" {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := d.api.CancelUpload(cctx, fileID); err != nil {
		d.logger.Warn(cctx, "failed to cancel upload on server", "file_id", fileID, "error", err)
	}
}

func detectMIME(f *os.File) string {
	m, err := mimetype.DetectReader(io.NewSectionReader(f, 0, 3072))
	if err != nil {
		return "application/octet-stream"
	}
	return m.String()
}
