package routing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/audioroute/internal/bluetooth"
	"github.com/petems/audioroute/internal/platform"
)

// Config wires a Session's collaborators.
type Config struct {
	Backend  platform.Backend
	Prefs    Preferences
	Provider bluetooth.ConnectionStateProvider
	Logger   zerolog.Logger

	// DebounceWindow defaults to DefaultDebounceWindow when zero.
	DebounceWindow time.Duration
	// PollInterval is the hardware-change poll period.
	PollInterval time.Duration
}

// Session is the process-wide façade over the catalog, notifier, and
// hardware watcher, with an explicit initialize/dispose lifecycle. None of
// the recoverable error classes (unknown id, platform rejection, partial
// platform support) escape it; the degraded result is visible only in the
// snapshot.
type Session struct {
	catalog  *Catalog
	notifier *Notifier
	watcher  *platform.Watcher
	log      zerolog.Logger

	// window is kept so a disposed session can rebuild its notifier on the
	// next Initialize.
	window time.Duration

	// mu guards the lifecycle only; catalog state has its own lock.
	mu          sync.Mutex
	initialized bool
}

func NewSession(cfg Config) *Session {
	s := &Session{
		catalog:  NewCatalog(cfg.Backend, cfg.Prefs, cfg.Provider, cfg.Logger),
		notifier: NewNotifier(cfg.DebounceWindow, cfg.Logger),
		log:      cfg.Logger,
		window:   cfg.DebounceWindow,
	}
	s.watcher = platform.NewWatcher(cfg.Backend, cfg.PollInterval, cfg.Logger, s.onHardwareChange)
	return s
}

// Initialize performs the first reconciliation and starts watching for
// hardware changes. Calling it on an already initialized session is a no-op.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	// Dispose tears the notifier down; a new lifecycle gets a fresh one.
	if s.notifier.Closed() {
		s.notifier = NewNotifier(s.window, s.log)
	}

	snap, err := s.catalog.Refresh()
	if err != nil {
		return err
	}
	s.notifier.Publish(snap)
	s.watcher.Start(ctx)
	s.initialized = true

	s.log.Info().
		Int("inputs", len(snap.AvailableInputs)).
		Int("outputs", len(snap.AvailableOutputs)).
		Msg("Audio route session initialized")
	return nil
}

// Dispose stops the watcher, cancels any pending debounce, and closes all
// subscriptions. Persisted preferences survive for the next Initialize.
// Repeated calls are safe: the hardware subscription is released once.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	s.initialized = false

	s.watcher.Stop()
	s.notifier.Close()

	s.log.Info().Msg("Audio route session disposed")
}

// Subscribe returns a snapshot stream. The current snapshot is delivered
// immediately; later emissions are debounced.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	return s.notifier.Subscribe()
}

// Refresh forces a reconciliation, for callers that want a fresh snapshot
// without waiting for the poller.
func (s *Session) Refresh() Snapshot {
	snap, err := s.catalog.Refresh()
	if err != nil {
		s.log.Warn().Err(err).Msg("Refresh failed, serving last snapshot")
		return snap
	}
	s.notifier.Publish(snap)
	return snap
}

// CurrentSnapshot returns the last reconciled state synchronously.
func (s *Session) CurrentSnapshot() Snapshot {
	return s.catalog.Current()
}

// AvailableInputs lists the input devices of the current snapshot.
func (s *Session) AvailableInputs() []Device {
	return s.catalog.Current().AvailableInputs
}

// AvailableOutputs lists the output devices of the current snapshot.
func (s *Session) AvailableOutputs() []Device {
	return s.catalog.Current().AvailableOutputs
}

// DataSources lists the data sources of the currently selected input.
func (s *Session) DataSources() []DataSource {
	return s.catalog.Current().AvailableDataSources
}

// SelectedInputID returns the id of the selected input, or "" when none.
func (s *Session) SelectedInputID() string {
	if d := s.catalog.Current().SelectedInput; d != nil {
		return d.ID
	}
	return ""
}

// SelectedOutputID returns the id of the selected output, or "" when none.
func (s *Session) SelectedOutputID() string {
	if d := s.catalog.Current().SelectedOutput; d != nil {
		return d.ID
	}
	return ""
}

// SelectInput selects an input device by id. Unknown ids are ignored.
func (s *Session) SelectInput(id string) {
	if snap, changed := s.catalog.Select(platform.Input, id); changed {
		s.notifier.Publish(snap)
	}
}

// SelectOutput selects an output device by id. Unknown ids are ignored.
func (s *Session) SelectOutput(id string) {
	if snap, changed := s.catalog.Select(platform.Output, id); changed {
		s.notifier.Publish(snap)
	}
}

// SelectDataSource selects a data source of the current input by id.
// Unknown ids are ignored.
func (s *Session) SelectDataSource(id int) {
	if snap, changed := s.catalog.SelectDataSource(id); changed {
		s.notifier.Publish(snap)
	}
}

func (s *Session) onHardwareChange() {
	snap, err := s.catalog.Refresh()
	if err != nil {
		s.log.Warn().Err(err).Msg("Reconciliation after hardware change failed")
		return
	}
	s.notifier.Publish(snap)
}
