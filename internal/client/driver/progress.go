package driver

import (
	"sync"
	"sync/atomic"
)

// ProgressFunc receives the fraction of bytes sent, 0.0 to 1.0.
type ProgressFunc func(fraction float64)

// progress accumulates bytes sent by any number of part uploads and reports
// a monotonic fraction. With an unknown total it only reports completion.
type progress struct {
	total int64
	sent  atomic.Int64

	mu   sync.Mutex
	last float64
	fn   ProgressFunc
}

func newProgress(total int64, fn ProgressFunc) *progress {
	return &progress{total: total, fn: fn}
}

func (p *progress) add(n int64) {
	sent := p.sent.Add(n)
	if p.total <= 0 {
		return
	}
	p.report(float64(sent) / float64(p.total))
}

func (p *progress) finish() {
	p.report(1)
}

func (p *progress) report(f float64) {
	if f > 1 {
		f = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if f <= p.last {
		return
	}
	p.last = f
	if p.fn != nil {
		p.fn(f)
	}
}

func (p *progress) fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *progress) bytes() int64 {
	return p.sent.Load()
}
