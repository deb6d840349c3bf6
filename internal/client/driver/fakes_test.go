package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/stretchr/testify/require"
)

type fixedTier tier.Tier

func (f fixedTier) Current() tier.Tier { return tier.Tier(f) }

type memUsage struct {
	mu       sync.Mutex
	counts   map[string]int
	countErr error
}

func newMemUsage() *memUsage { return &memUsage{counts: map[string]int{}} }

func (m *memUsage) Count(ctx context.Context, period string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[period], m.countErr
}

func (m *memUsage) Increment(ctx context.Context, period string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[period]++
	return m.counts[period], nil
}

func (m *memUsage) History(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

func (m *memUsage) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.counts {
		n += v
	}
	return n
}

// blobServer stands in for S3 presigned URLs. Every PUT is recorded by path.
type blobServer struct {
	*httptest.Server

	mu       sync.Mutex
	received map[string]int64
	fail     map[string]int
	block    bool
	started  chan string
}

func newBlobServer(t *testing.T) *blobServer {
	b := &blobServer{received: map[string]int64{}, fail: map[string]int{}, started: make(chan string, 16)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.Close)
	return b
}

func (b *blobServer) handle(w http.ResponseWriter, r *http.Request) {
	b.started <- r.URL.Path

	b.mu.Lock()
	block := b.block
	code := b.fail[r.URL.Path]
	b.mu.Unlock()

	if block {
		<-r.Context().Done()
		return
	}
	if code != 0 {
		w.WriteHeader(code)
		return
	}

	n, _ := io.Copy(io.Discard, r.Body)
	b.mu.Lock()
	b.received[r.URL.Path] = n
	b.mu.Unlock()
	w.Header().Set("ETag", fmt.Sprintf(`"etag%s"`, strings.ReplaceAll(r.URL.Path, "/", "-")))
}

func (b *blobServer) got(path string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.received[path]
	return n, ok
}

// fakeAPI implements client.Client against a blobServer.
type fakeAPI struct {
	mu sync.Mutex

	blobURL  string
	partSize int64
	nextID   int

	requestErr   error
	completeErrs []error

	requests           []models.UploadRequest
	completedSizes     map[string]int64
	completedParts     []models.Part
	cancelledMultipart []string
	cancelledUploads   []string
}

var _ client.Client = (*fakeAPI)(nil)

func newFakeAPI(blobURL string) *fakeAPI {
	return &fakeAPI{blobURL: blobURL, partSize: tier.PartSize, completedSizes: map[string]int64{}}
}

func (a *fakeAPI) Ping(ctx context.Context) (*models.Health, error) {
	return &models.Health{Status: "healthy"}, nil
}

func (a *fakeAPI) issue(req models.UploadRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.requestErr != nil {
		return "", a.requestErr
	}
	a.nextID++
	return fmt.Sprintf("file-%d", a.nextID), nil
}

func (a *fakeAPI) RequestUpload(ctx context.Context, req models.UploadRequest) (*models.SingleTarget, error) {
	id, err := a.issue(req)
	if err != nil {
		return nil, err
	}
	return &models.SingleTarget{
		UploadURL:  a.blobURL + "/" + id,
		FileID:     id,
		StorageKey: "uploads/" + id,
		ExpiresAt:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (a *fakeAPI) RequestMultipart(ctx context.Context, req models.UploadRequest) (*models.MultipartTarget, error) {
	id, err := a.issue(req)
	if err != nil {
		return nil, err
	}
	n := int((req.FileSize + a.partSize - 1) / a.partSize)
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/%s/part%d", a.blobURL, id, i+1)
	}
	return &models.MultipartTarget{UploadID: "mp-" + id, FileID: id, PartURLs: urls, PartSize: a.partSize, Key: "uploads/" + id}, nil
}

func (a *fakeAPI) CompleteUpload(ctx context.Context, fileID string, size int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.completeErrs) > 0 {
		err := a.completeErrs[0]
		a.completeErrs = a.completeErrs[1:]
		if err != nil {
			return err
		}
	}
	a.completedSizes[fileID] = size
	return nil
}

func (a *fakeAPI) CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if uploadID != "mp-"+fileID {
		return nil, errors.New("upload id mismatch")
	}
	a.completedParts = append([]models.Part(nil), parts...)
	return &models.UploadResult{FileID: fileID, FileName: "big.bin", DownloadLink: "https://qs.test/download/" + fileID}, nil
}

func (a *fakeAPI) CancelMultipart(ctx context.Context, fileID, uploadID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelledMultipart = append(a.cancelledMultipart, fileID)
	return nil
}

func (a *fakeAPI) CancelUpload(ctx context.Context, fileID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelledUploads = append(a.cancelledUploads, fileID)
	return nil
}

func (a *fakeAPI) DownloadLink(fileID string) string {
	return "https://qs.test/download/" + fileID
}

type apiCalls struct {
	requests           []models.UploadRequest
	completedParts     []models.Part
	cancelledMultipart []string
	cancelledUploads   []string
}

func (a *fakeAPI) calls() apiCalls {
	a.mu.Lock()
	defer a.mu.Unlock()
	return apiCalls{
		requests:           append([]models.UploadRequest(nil), a.requests...),
		completedParts:     append([]models.Part(nil), a.completedParts...),
		cancelledMultipart: append([]string(nil), a.cancelledMultipart...),
		cancelledUploads:   append([]string(nil), a.cancelledUploads...),
	}
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

// sparseFile creates a file of size bytes without writing them.
func sparseFile(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

type fixture struct {
	blobs  *blobServer
	api    *fakeAPI
	usage  *memUsage
	driver *Driver
}

func newFixture(t *testing.T, tr tier.Tier, concurrency int) *fixture {
	t.Helper()
	blobs := newBlobServer(t)
	api := newFakeAPI(blobs.URL)
	u := newMemUsage()
	d := New(api, u, fixedTier(tr), logging.Nop(), Options{PartConcurrency: concurrency, Transfer: blobs.Client()})
	d.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	d.completeBackoff = time.Millisecond
	return &fixture{blobs: blobs, api: api, usage: u, driver: d}
}

func waitStarted(t *testing.T, b *blobServer) string {
	t.Helper()
	select {
	case p := <-b.started:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("blob server never received a request")
		return ""
	}
}

func (a *fakeAPI) completedSize(fileID string) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.completedSizes[fileID]
	return n, ok
}
