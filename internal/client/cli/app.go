package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/config"
	"github.com/dmitrijs2005/quicksend/internal/client/driver"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/client/repositories/settings"
	"github.com/dmitrijs2005/quicksend/internal/client/repositories/usage"
	"github.com/dmitrijs2005/quicksend/internal/client/subscription"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/google/uuid"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// uploader is the part of driver.Driver the commands use.
type uploader interface {
	Start(ctx context.Context, path string, onProgress driver.ProgressFunc) (*driver.Session, error)
	Cancel(id string) bool
	CancelAll() int
	Active() []driver.SessionInfo
	Usage(ctx context.Context) (driver.Usage, error)
}

type plans interface {
	Current() tier.Tier
	Set(ctx context.Context, t tier.Tier) error
	Subscribe(fn func(subscription.TierChanged)) func()
}

type pinger interface {
	Ping(ctx context.Context) (*models.Health, error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     pinger
	uploads uploader
	plans   plans
	history usage.Repository
	out     io.Writer

	progress *progressLine
	pending  sync.WaitGroup

	modeMu sync.RWMutex
	mode   Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, c.LogLevel, "text")

	db, err := client.InitDatabase(ctx, c.DatabasePath())
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := settings.NewSQLiteRepository(db)
	clientID, err := resolveClientID(ctx, store, c.ClientID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	subs, err := subscription.New(ctx, store, tier.Tier(c.Tier))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, clientID, c.RequestTimeout)
	counter := usage.NewSQLiteRepository(db)
	drv := driver.New(api, counter, subs, logger, driver.Options{PartConcurrency: c.PartConcurrency})

	out := &syncWriter{w: os.Stdout}
	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		api:      api,
		uploads:  drv,
		plans:    subs,
		history:  counter,
		out:      out,
		progress: newProgressLine(out, os.Stdout),
	}, nil
}

// resolveClientID prefers the configured id, then the stored one, and
// otherwise generates and stores a new one.
func resolveClientID(ctx context.Context, store settings.Repository, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	id, ok, err := store.Get(ctx, settings.KeyClientID)
	if err != nil {
		return "", fmt.Errorf("load client id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.Set(ctx, settings.KeyClientID, id); err != nil {
		return "", fmt.Errorf("save client id: %w", err)
	}
	return id, nil
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	s := a.plans.Current().DisplayName()
	if m := a.Mode(); m != "" {
		s += " " + string(m)
	}
	return fmt.Sprintf("(%s)", s)
}

// Run blocks in the REPL until the user exits or stdin closes. Uploads still
// running at that point are cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close(ctx)

	fmt.Fprintln(a.out, "Welcome to QuickSend CLI (type 'help' for commands)")

	unsubscribe := a.plans.Subscribe(func(ev subscription.TierChanged) { a.onTierChanged(ctx, ev) })
	defer unsubscribe()

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}

func (a *App) close(ctx context.Context) {
	if n := a.uploads.CancelAll(); n > 0 {
		fmt.Fprintf(a.out, "Cancelling %d upload(s)...\n", n)
	}
	a.pending.Wait()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(ctx, "failed to close database", "error", err)
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	_, err := a.api.Ping(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// syncWriter serialises writes from upload goroutines and the REPL.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
