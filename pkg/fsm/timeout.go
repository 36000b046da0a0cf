package fsm

import (
	"sync"
	"time"
)

// stateTimer is the machine's single auto-timeout slot. Arming replaces any
// previous countdown; disarm is idempotent. Generations make expiry safe:
// the transition engine disarms inside its critical section, so an expiry
// callback that loses the race observes a stale generation after it finally
// acquires the machine lock and becomes a no-op. A timeout armed for state X
// can therefore only ever fire while the machine is still in X.
type stateTimer struct {
	m *Machine

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func newStateTimer(m *Machine) *stateTimer {
	return &stateTimer{m: m}
}

// arm schedules trig to fire after the deadline unless the state is exited
// first. An active countdown is replaced silently.
func (t *stateTimer) arm(after time.Duration, trig Trigger) {
	t.mu.Lock()
	t.stopLocked()
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(after, func() {
		t.m.triggerFromTimer(gen, trig)
	})
	t.mu.Unlock()
}

// disarm cancels the active countdown, if any. Safe to call repeatedly.
func (t *stateTimer) disarm() {
	t.mu.Lock()
	t.stopLocked()
	t.gen++
	t.mu.Unlock()
}

func (t *stateTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// live reports whether the given generation is still the armed one.
func (t *stateTimer) live(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}
