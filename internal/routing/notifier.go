package routing

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounceWindow collapses native callback bursts: a Bluetooth device
// disconnecting and its paired counterpart appearing arrive as separate
// events within a few hundred milliseconds.
const DefaultDebounceWindow = 300 * time.Millisecond

// Notifier fans out catalog snapshots to subscribers. Emissions are
// debounced; only the final state of a burst is delivered, and a subscriber
// never sees the same state twice. Each new subscriber immediately receives
// the current snapshot so a late listener is never left without initial
// state.
type Notifier struct {
	window time.Duration
	log    zerolog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	timer  *time.Timer
	latest Snapshot
	primed bool
	closed bool
}

type subscriber struct {
	ch        chan Snapshot
	delivered Snapshot
	seen      bool
}

func NewNotifier(window time.Duration, log zerolog.Logger) *Notifier {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Notifier{
		window: window,
		log:    log,
		subs:   make(map[int]*subscriber),
	}
}

// Subscribe registers a listener. The returned cancel func is safe to call
// more than once. Delivery keeps only the newest snapshot for a slow
// subscriber; intermediate states may be skipped, stale ones never arrive
// after a fresh one.
func (n *Notifier) Subscribe() (<-chan Snapshot, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &subscriber{ch: make(chan Snapshot, 1)}
	if n.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = sub

	if n.primed {
		n.deliver(sub)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish records a new snapshot and (re)arms the debounce timer. Rapid
// calls collapse into one emission carrying the last snapshot.
func (n *Notifier) Publish(s Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	n.latest = s.clone()
	n.primed = true

	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, n.emit)
}

func (n *Notifier) emit() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	for _, sub := range n.subs {
		n.deliver(sub)
	}
}

// deliver sends the latest snapshot to one subscriber unless it already has
// it, displacing an unread older snapshot rather than blocking the producer.
// Callers hold n.mu.
func (n *Notifier) deliver(sub *subscriber) {
	if sub.seen && sub.delivered.Equal(n.latest) {
		return
	}

	snap := n.latest.clone()
	select {
	case sub.ch <- snap:
	default:
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snap:
		default:
			return
		}
	}
	sub.delivered = n.latest
	sub.seen = true
}

// Closed reports whether Close has been called.
func (n *Notifier) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Close cancels any pending emission and tears down all subscriptions.
// Idempotent, and safe whether or not the timer was ever armed or already
// fired. Nothing is emitted after Close returns.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}

	n.log.Debug().Int("subscribers", len(n.subs)).Msg("Notifier closed")

	for id, sub := range n.subs {
		delete(n.subs, id)
		close(sub.ch)
	}
}
