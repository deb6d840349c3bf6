package driver

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/tier"
)

// Session is one in-flight upload started by Driver.Start.
type Session struct {
	ID        string
	FileName  string
	Size      int64
	Tier      tier.Tier
	Strategy  tier.Strategy
	StartedAt time.Time

	cancel   context.CancelFunc
	progress *progress
	done     chan struct{}

	mu       sync.Mutex
	fileID   string
	uploadID string
	result   *models.UploadResult
	err      error
}

// Done is closed once the upload finished, failed or was cancelled.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends.
func (s *Session) Wait() (*models.UploadResult, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *Session) Cancel() { s.cancel() }

func (s *Session) Progress() float64 { return s.progress.fraction() }

func (s *Session) FileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileID
}

func (s *Session) setRemote(fileID, uploadID string) {
	s.mu.Lock()
	s.fileID, s.uploadID = fileID, uploadID
	s.mu.Unlock()
}

func (s *Session) finish(res *models.UploadResult, err error) {
	s.mu.Lock()
	s.result, s.err = res, err
	s.mu.Unlock()
}

// SessionInfo is a snapshot for listing active uploads.
type SessionInfo struct {
	ID        string
	FileName  string
	Size      int64
	Strategy  tier.Strategy
	Progress  float64
	StartedAt time.Time
}

type registry struct {
	mu       sync.Mutex
	next     int
	sessions map[string]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*Session)}
}

func (r *registry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	s.ID = strconv.Itoa(r.next)
	r.sessions[s.ID] = s
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *registry) get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) all() []*Session {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}
