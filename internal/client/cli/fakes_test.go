package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/driver"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/client/repositories/settings"
	"github.com/dmitrijs2005/quicksend/internal/client/repositories/usage"
	"github.com/dmitrijs2005/quicksend/internal/client/subscription"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	blobURL string
	pingErr error
	nextID  int
}

var _ client.Client = (*fakeAPI)(nil)

func (f *fakeAPI) Ping(ctx context.Context) (*models.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return &models.Health{Status: "healthy"}, nil
}

func (f *fakeAPI) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func (f *fakeAPI) RequestUpload(ctx context.Context, req models.UploadRequest) (*models.SingleTarget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "file-" + string(rune('0'+f.nextID))
	return &models.SingleTarget{UploadURL: f.blobURL + "/" + id, FileID: id, ExpiresAt: time.Now().Add(7 * 24 * time.Hour)}, nil
}

func (f *fakeAPI) RequestMultipart(ctx context.Context, req models.UploadRequest) (*models.MultipartTarget, error) {
	return nil, errors.New("not used")
}

func (f *fakeAPI) CompleteUpload(ctx context.Context, fileID string, size int64) error { return nil }

func (f *fakeAPI) CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeAPI) CancelMultipart(ctx context.Context, fileID, uploadID string) error { return nil }
func (f *fakeAPI) CancelUpload(ctx context.Context, fileID string) error            { return nil }
func (f *fakeAPI) DownloadLink(fileID string) string                                { return "https://qs.test/download/" + fileID }

type testApp struct {
	*App
	api     *fakeAPI
	out     *bytes.Buffer
	started chan struct{}
	block   chan struct{}
}

// newTestApp wires a real driver, subscription service and SQLite store
// against fakeAPI and an httptest blob server.
func newTestApp(t *testing.T, initial tier.Tier) *testApp {
	t.Helper()
	ctx := context.Background()

	ta := &testApp{out: &bytes.Buffer{}, started: make(chan struct{}, 8), block: make(chan struct{})}
	blobs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ta.started <- struct{}{}
		select {
		case <-ta.block:
			<-r.Context().Done()
			return
		default:
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"e"`)
	}))
	t.Cleanup(blobs.Close)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	subs, err := subscription.New(ctx, settings.NewSQLiteRepository(db), initial)
	require.NoError(t, err)

	ta.api = &fakeAPI{blobURL: blobs.URL}
	counter := usage.NewSQLiteRepository(db)
	out := &syncWriter{w: ta.out}

	ta.App = &App{
		logger:   logging.Nop(),
		api:      ta.api,
		uploads:  driver.New(ta.api, counter, subs, logging.Nop(), driver.Options{Transfer: blobs.Client()}),
		plans:    subs,
		history:  counter,
		out:      out,
		progress: &progressLine{w: out},
	}
	return ta
}

func (ta *testApp) output() string {
	ta.App.out.(*syncWriter).mu.Lock()
	defer ta.App.out.(*syncWriter).mu.Unlock()
	return ta.out.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func sparse(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "big.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}
