// Package broadcast gates admin broadcasts behind an explicit confirmation
// and fans confirmed messages out to every known user.
package broadcast

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// State is where a request stands. Cancelled and expired requests are
// dropped rather than kept in a final state.
type State int

const (
	Pending State = iota
	Confirmed
)

type Request struct {
	ID        string
	AdminID   int64
	Text      string
	CreatedAt time.Time
	State     State
}

// Registry holds requests awaiting confirmation. Each request has its own
// id, so several pending broadcasts never shadow one another.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]*Request
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{ttl: ttl, now: time.Now, pending: map[string]*Request{}}
}

// expire drops stale requests. mu must be held.
func (r *Registry) expire() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, req := range r.pending {
		if req.CreatedAt.Before(cutoff) {
			delete(r.pending, id)
		}
	}
}

func (r *Registry) Open(adminID int64, text string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	req := &Request{ID: ulid.Make().String(), AdminID: adminID, Text: text, CreatedAt: r.now(), State: Pending}
	r.pending[req.ID] = req
	return *req
}

// Take removes a pending request owned by adminID and marks it confirmed.
func (r *Registry) Take(id string, adminID int64) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	req, ok := r.pending[id]
	if !ok || req.AdminID != adminID {
		return Request{}, false
	}
	delete(r.pending, id)
	req.State = Confirmed
	return *req, true
}

func (r *Registry) Cancel(id string, adminID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.pending[id]
	if !ok || req.AdminID != adminID {
		return false
	}
	delete(r.pending, id)
	return true
}

// CancelAll discards every request of adminID and returns how many there were.
func (r *Registry) CancelAll(adminID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, req := range r.pending {
		if req.AdminID == adminID {
			delete(r.pending, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire()
	return len(r.pending)
}
