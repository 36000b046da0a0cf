package fsm

import (
	"context"
	"sync"
)

// subscriptionBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind starts losing events; the engine never blocks
// on delivery.
const subscriptionBuffer = 16

// Subscription receives transition results from a machine's Watch.
type Subscription struct {
	ch   chan Result
	once sync.Once
	n    *notifier
}

// Events returns the receive channel. It is closed when the subscription is
// closed, the subscribing context is cancelled, or the machine shuts down.
func (s *Subscription) Events() <-chan Result { return s.ch }

// Close detaches the subscription. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.n.remove(s)
		close(s.ch)
	})
}

// notifier fans transition results out to subscribers. Publishing is
// non-blocking: events to a full subscriber channel are dropped.
type notifier struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[*Subscription]struct{})}
}

func (n *notifier) subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{ch: make(chan Result, subscriptionBuffer), n: n}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub
}

func (n *notifier) remove(sub *Subscription) {
	n.mu.Lock()
	delete(n.subs, sub)
	n.mu.Unlock()
}

func (n *notifier) publish(res Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for sub := range n.subs {
		select {
		case sub.ch <- res:
		default:
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	subs := make([]*Subscription, 0, len(n.subs))
	for sub := range n.subs {
		subs = append(subs, sub)
	}
	n.subs = make(map[*Subscription]struct{})
	n.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}
