// Package server wires the QuickSend backend: the Postgres ledger, the S3
// gateway, the optional Redis cache and event publisher, the retention
// sweeper and the HTTP API. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/blobstore"
	"github.com/dmitrijs2005/quicksend/internal/server/config"
	"github.com/dmitrijs2005/quicksend/internal/server/httpapi"
	"github.com/dmitrijs2005/quicksend/internal/server/notify"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/filecache"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/files"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quicksend/internal/server/services"
	"github.com/dmitrijs2005/quicksend/internal/server/sweeper"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	rdb       *redis.Client
	publisher notify.Publisher
	uploads   *services.UploadService
	sweeper   *sweeper.Sweeper
	http      *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, "json")

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		UsePathStyle: c.S3UsePathStyle,
	}, app.logger.With("module", "blobstore"))
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}

	var ledger files.Repository = m.Files(app.db)
	var cache httpapi.CachePinger
	if c.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		fc := filecache.New(ledger, app.rdb, c.CacheTTL, app.logger.With("module", "filecache"))
		if err := fc.Ping(ctx); err != nil {
			app.logger.Warn(ctx, "redis unavailable, cache will fall back to the database", "error", err)
		}
		ledger, cache = fc, fc
	}

	app.publisher, err = notify.New(ctx, notify.Options{
		Backend:      c.NotifyBackend,
		Region:       c.S3Region,
		SQSQueueURL:  c.SQSQueueURL,
		KafkaBrokers: c.KafkaBrokers,
		KafkaTopic:   c.KafkaTopic,
	})
	if err != nil {
		return fmt.Errorf("notifier init error: %w", err)
	}

	app.uploads = services.NewUploadService(app.db, m, ledger, blobs, app.publisher, c, app.logger.With("module", "uploads"))
	app.sweeper = sweeper.New(ledger, blobs, c.SweepInterval, app.logger.With("module", "sweeper"))
	app.http = httpapi.NewServer(c, app.logger, app.uploads, app.db, cache)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives or the HTTP server fails, then drains
// background work and closes connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	app.sweeper.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()
	app.sweeper.Wait()
	app.uploads.Wait()
	app.close(ctx)
	app.logger.Info(ctx, "Stopped")
}

func (app *App) close(ctx context.Context) {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error(ctx, "notifier close error", "error", err)
		}
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
