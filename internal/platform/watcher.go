package platform

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Watcher is the hardware-change notification source. Neither backend
// delivers topology callbacks, so changes are detected by polling the
// enumeration and comparing fingerprints. Consumers debounce downstream,
// exactly as they would for native callback bursts.
type Watcher struct {
	backend  Backend
	interval time.Duration
	log      zerolog.Logger
	onChange func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

func NewWatcher(backend Backend, interval time.Duration, log zerolog.Logger, onChange func()) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		backend:  backend,
		interval: interval,
		log:      log,
		onChange: onChange,
	}
}

// Start begins polling. A second call while running is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true

	pollCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.poll(pollCtx)
}

// Stop halts polling. Safe to call repeatedly or before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.started = false

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Watcher) poll(ctx context.Context) {
	last := w.fingerprint()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := w.fingerprint()
			if current != last {
				last = current
				w.log.Debug().Msg("Audio device topology changed")
				w.onChange()
			}
		}
	}
}

// fingerprint condenses both enumerations into one comparable string.
// Enumeration failures fold into the fingerprint so a backend going away is
// itself a topology change.
func (w *Watcher) fingerprint() string {
	var sb strings.Builder
	for _, dir := range []Direction{Input, Output} {
		devices, err := w.backend.Devices(dir)
		if err != nil {
			sb.WriteString("err:" + err.Error() + ";")
			continue
		}
		ids := make([]string, 0, len(devices))
		for _, d := range devices {
			ids = append(ids, d.ID)
		}
		sort.Strings(ids)
		sb.WriteString(dir.String() + ":" + strings.Join(ids, ",") + ";")
	}
	return sb.String()
}
