// Package httpapi exposes the upload orchestrator over HTTP+JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/config"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/services"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Uploads is the orchestrator surface used by the handlers.
type Uploads interface {
	CheckLimits(size int64, t tier.Tier) (tier.Limits, error)
	RequestUpload(ctx context.Context, req services.UploadRequest) (*models.UploadTarget, error)
	CompleteUpload(ctx context.Context, fileID string, reportedSize int64) error
	CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error)
	AbortMultipart(ctx context.Context, fileID, uploadID string)
	CancelUpload(ctx context.Context, fileID string) error
	ResolveDownload(ctx context.Context, fileID string) (*services.Download, error)
	FileInfo(ctx context.Context, fileID string) (*models.FileRecord, error)
	StoreEncryptionMetadata(ctx context.Context, fileID string, originalSize int64) error
	ActiveFiles(ctx context.Context) (int64, error)
	DownloadLink(fileID string) string
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is satisfied by the Redis-backed ledger cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	address string
	uploads Uploads
	db      Pinger
	cache   CachePinger
	logger  logging.Logger
	echo    *echo.Echo
	now     func() time.Time
}

// NewServer builds the router. cache may be nil when no cache is configured.
func NewServer(cfg *config.Config, l logging.Logger, uploads Uploads, db Pinger, cache CachePinger) *Server {
	s := &Server{
		address: cfg.HTTPAddr,
		uploads: uploads,
		db:      db,
		cache:   cache,
		logger:  l.With("module", "http_server"),
		now:     time.Now,
	}
	s.echo = s.router(cfg)
	return s
}

func (s *Server) router(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "X-Client-ID", "X-Subscription-Tier"},
	}))
	e.Use(requestLogger(s.logger))

	limited := rateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, s.logger)

	e.GET("/health", s.handleHealth)
	e.POST("/check-upload-limits", s.handleCheckLimits)

	e.POST("/s3/upload-url", s.handleUploadURL, limited)
	e.POST("/s3/multipart-upload", s.handleMultipartUpload, limited)
	e.POST("/s3/upload-complete", s.handleUploadComplete)
	e.POST("/s3/complete-multipart", s.handleCompleteMultipart)
	e.POST("/s3/cancel-multipart", s.handleCancelMultipart)
	e.POST("/s3/cancel-upload", s.handleCancelUpload)
	e.POST("/s3/download-url", s.handleDownloadURL)
	e.POST("/store-encryption-metadata", s.handleEncryptionMetadata)

	e.GET("/download/:fileId", s.handleDownload)
	e.GET("/files/:fileId", s.handleFileInfo)

	return e
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.echo.Start(s.address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
