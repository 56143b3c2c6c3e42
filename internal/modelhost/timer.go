package modelhost

import (
	"sync"
	"time"
)

// Timer is a restartable single-shot deferred callback.
type Timer interface {
	// Reset cancels any pending callback and schedules fn after d.
	Reset(d time.Duration, fn func())
	// Cancel drops any pending callback.
	Cancel()
}

// idleTimer wraps time.AfterFunc. A generation counter makes callbacks of
// superseded schedules no-ops even if they already started running.
type idleTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewTimer returns a Timer backed by the runtime clock.
func NewTimer() Timer {
	return &idleTimer{}
}

func (t *idleTimer) Reset(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		current := t.gen == gen
		if current {
			t.timer = nil
		}
		t.mu.Unlock()
		if current {
			fn()
		}
	})
}

func (t *idleTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
