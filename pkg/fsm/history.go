package fsm

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize bounds the ledger when no explicit size is configured.
const DefaultHistorySize = 1000

// Entry records one state occupancy. Duration is nil on the live (most
// recent) entry and is backfilled when the next state is entered. Entries
// handed to callers are copies; the ledger itself is owned by the machine.
type Entry struct {
	ID        string
	State     State
	EnteredAt time.Time
	Duration  *time.Duration
}

// ledger is the append-only history of entered states plus the last
// recoverable state snapshot. It is mutated only inside the machine's
// critical section; reads go through the machine's view lock.
type ledger struct {
	entries   []Entry
	max       int
	lastState State // most recent non-built-in state, "" when none
}

func newLedger(max int) *ledger {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &ledger{max: max}
}

// record appends a live entry for the state entered at the given time and
// backfills the previous entry's duration. Durations are clamped at zero so
// a clock step backwards can never produce a negative occupancy.
func (l *ledger) record(s State, at time.Time) {
	if n := len(l.entries); n > 0 {
		prev := &l.entries[n-1]
		if prev.Duration == nil {
			d := at.Sub(prev.EnteredAt)
			if d < 0 {
				d = 0
			}
			prev.Duration = &d
		}
	}
	l.entries = append(l.entries, Entry{
		ID:        uuid.NewString(),
		State:     s,
		EnteredAt: at,
	})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// last returns copies of the n most recently entered states in insertion
// order (oldest of the window first). n <= 0 yields an empty slice.
func (l *ledger) last(n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
