package kraken

import (
	"sync"
	"time"
)

// NonceSource hands out millisecond nonces that never repeat or go backwards
// for the lifetime of the source, even when calls land inside the same
// millisecond or the wall clock steps back.
type NonceSource struct {
	now  func() time.Time
	last int64
	mu   sync.Mutex
}

// NewNonceSource creates a source driven by the wall clock.
func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now}
}

// Next returns max(now in ms, previous+1).
func (n *NonceSource) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now
	if n.now != nil {
		now = n.now
	}
	v := now().UnixMilli()
	if v <= n.last {
		v = n.last + 1
	}
	n.last = v
	return v
}
