package recall

import (
	"sync"
	"time"
)

// scheduleFunc defers fire by delay and returns a cancel func. The default
// implementation wraps time.AfterFunc; tests substitute one they trigger by
// hand.
type scheduleFunc func(delay time.Duration, fire func()) (cancel func())

func scheduleAfterFunc(delay time.Duration, fire func()) func() {
	timer := time.AfterFunc(delay, fire)
	return func() { timer.Stop() }
}

// restartTimer tracks at most one pending delayed restart. Scheduling
// replaces whatever is pending; Cancel drops it. Each schedule gets its own
// sequence number, so a fire that lost the race against Cancel or a newer
// Schedule finds itself stale and does nothing.
type restartTimer struct {
	mu      sync.Mutex
	cancel  func()
	seq     uint64
	pending bool
}

func (t *restartTimer) Schedule(schedule scheduleFunc, delay time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	t.seq++
	seq := t.seq
	t.pending = true
	t.cancel = schedule(delay, func() {
		t.mu.Lock()
		if !t.pending || t.seq != seq {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()

		fire()
	})
}

func (t *restartTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.pending = false
}

func (t *restartTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
