package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/dbx"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/files"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/quotas"
)

// memLedger is an in-memory files.Repository with the same conditional
// transitions as the Postgres one.
type memLedger struct {
	mu        sync.Mutex
	rows      map[string]*models.FileRecord
	createErr error
	downloads chan string
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[string]*models.FileRecord{}, downloads: make(chan string, 16)}
}

var _ files.Repository = (*memLedger)(nil)

func (m *memLedger) Create(ctx context.Context, f *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *f
	m.rows[f.ID] = &cp
	return nil
}

func (m *memLedger) Get(ctx context.Context, id string) (*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memLedger) row(id string) *models.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.rows[id]
	return &cp
}

func (m *memLedger) put(f *models.FileRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.rows[f.ID] = &cp
}

func (m *memLedger) SetMultipartUploadID(ctx context.Context, id, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	f.MultipartUploadID = uploadID
	return nil
}

func (m *memLedger) SetOriginalSize(ctx context.Context, id string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	f.OriginalSize = &size
	return nil
}

func (m *memLedger) MarkUploaded(ctx context.Context, id string, finalSize *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return false, common.ErrNotFound
	}
	switch f.Status {
	case models.StatusUploaded:
		return false, nil
	case models.StatusFailed:
		return false, common.ErrUploadFailed
	}
	f.Status = models.StatusUploaded
	if finalSize != nil {
		f.Size = *finalSize
	}
	return true, nil
}

func (m *memLedger) MarkFailed(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if f.Status != models.StatusPending {
		return false, nil
	}
	f.Status = models.StatusFailed
	return true, nil
}

func (m *memLedger) MarkInactive(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok || !f.IsActive {
		return false, nil
	}
	f.IsActive = false
	return true, nil
}

func (m *memLedger) IncrementDownloadCount(ctx context.Context, id string) error {
	m.mu.Lock()
	if f, ok := m.rows[id]; ok {
		f.DownloadCount++
	}
	m.mu.Unlock()
	m.downloads <- id
	return nil
}

func (m *memLedger) ListActive(ctx context.Context) ([]*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FileRecord
	for _, f := range m.rows {
		if f.IsActive {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (m *memLedger) ListExpired(ctx context.Context, now time.Time) ([]*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.FileRecord
	for _, f := range m.rows {
		if f.IsActive && f.ExpiresAt.Before(now) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memLedger) CountActive(ctx context.Context) (int64, error) {
	all, _ := m.ListActive(ctx)
	return int64(len(all)), nil
}

type memQuotas struct {
	mu       sync.Mutex
	used     map[string]int64
	released int
}

func newMemQuotas() *memQuotas {
	return &memQuotas{used: map[string]int64{}}
}

var _ quotas.Repository = (*memQuotas)(nil)

func (q *memQuotas) Reserve(ctx context.Context, clientID, period string, limit int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	k := clientID + "|" + period
	if q.used[k] >= limit {
		return common.ErrMonthlyLimitReached
	}
	q.used[k]++
	return nil
}

func (q *memQuotas) Release(ctx context.Context, clientID, period string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	k := clientID + "|" + period
	if q.used[k] > 0 {
		q.used[k]--
	}
	q.released++
	return nil
}

func (q *memQuotas) Used(ctx context.Context, clientID, period string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used[clientID+"|"+period], nil
}

// fakeRepoManager hands out the same in-memory stores regardless of db/tx.
type fakeRepoManager struct {
	ledger *memLedger
	quotas *memQuotas
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Files(dbx.DBTX) files.Repository             { return f.ledger }
func (f *fakeRepoManager) Quotas(dbx.DBTX) quotas.Repository           { return f.quotas }

type fakeBlobs struct {
	mu sync.Mutex

	objects map[string]bool

	putErr      error
	createErr   error
	partErr     error
	completeErr error
	existsErr   error
	getErr      error
	deleteErr   map[string]error

	putTTLs   []time.Duration
	getTTLs   []time.Duration
	aborted   []string
	deleted   []string
	completed int
	nextID    int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]bool{}, deleteErr: map[string]error{}}
}

func (b *fakeBlobs) Bucket() string { return "test-bucket" }

func (b *fakeBlobs) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.putTTLs = append(b.putTTLs, ttl)
	return "https://s3.test/" + key + "?put", nil
}

func (b *fakeBlobs) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return "", b.createErr
	}
	b.nextID++
	return fmt.Sprintf("mp-%d", b.nextID), nil
}

func (b *fakeBlobs) PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	if b.partErr != nil {
		return "", b.partErr
	}
	return fmt.Sprintf("https://s3.test/%s?part=%d", key, partNumber), nil
}

func (b *fakeBlobs) CompleteMultipart(ctx context.Context, key, uploadID string, parts []models.Part, expected int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(parts) != expected {
		return common.ErrIncompleteParts
	}
	for _, p := range parts {
		if p.ETag == "" {
			return common.ErrIncompleteParts
		}
	}
	if b.completeErr != nil {
		return b.completeErr
	}
	b.completed++
	b.objects[key] = true
	return nil
}

func (b *fakeBlobs) Abort(ctx context.Context, key, uploadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aborted = append(b.aborted, uploadID)
}

func (b *fakeBlobs) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.existsErr != nil {
		return false, b.existsErr
	}
	return b.objects[key], nil
}

func (b *fakeBlobs) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return "", b.getErr
	}
	b.getTTLs = append(b.getTTLs, ttl)
	return "https://s3.test/" + key + "?get", nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.deleteErr[key]; err != nil {
		return err
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) land(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = true
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.UploadCompleted
	err    error
}

func (n *fakeNotifier) UploadCompleted(ctx context.Context, ev models.UploadCompleted) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

var errStorage = errors.New("storage down")
