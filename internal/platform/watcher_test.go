package platform

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeBackend struct {
	mu      sync.Mutex
	inputs  []RawDevice
	outputs []RawDevice
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Devices(dir Direction) ([]RawDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dir == Input {
		return append([]RawDevice(nil), f.inputs...), nil
	}
	return append([]RawDevice(nil), f.outputs...), nil
}

func (f *fakeBackend) ActiveDevice(dir Direction) (RawDevice, bool, error) {
	return RawDevice{}, false, nil
}

func (f *fakeBackend) Apply(dir Direction, id string) error { return nil }

func (f *fakeBackend) DataSources(inputID string) ([]RawSource, error) { return nil, nil }

func (f *fakeBackend) Capabilities() Capabilities { return Capabilities{} }

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) setInputs(devices ...RawDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = devices
}

func TestWatcherFiresOnTopologyChange(t *testing.T) {
	backend := &fakeBackend{
		inputs: []RawDevice{{ID: "mic", Name: "Mic"}},
	}

	var fired atomic.Int32
	w := NewWatcher(backend, 10*time.Millisecond, zerolog.Nop(), func() {
		fired.Add(1)
	})
	w.Start(context.Background())
	defer w.Stop()

	// No change yet, nothing should fire.
	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("expected no change events, got %d", n)
	}

	backend.setInputs(RawDevice{ID: "mic", Name: "Mic"}, RawDevice{ID: "usb", Name: "USB Mic"})

	var ok bool
	for i := 0; i < 100; i++ {
		if fired.Load() > 0 {
			ok = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ok {
		t.Fatal("watcher never reported the topology change")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	w := NewWatcher(backend, 10*time.Millisecond, zerolog.Nop(), func() {})

	// Stop before Start must not panic.
	w.Stop()

	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestWatcherNoEventsAfterStop(t *testing.T) {
	backend := &fakeBackend{
		inputs: []RawDevice{{ID: "mic", Name: "Mic"}},
	}

	var fired atomic.Int32
	w := NewWatcher(backend, 10*time.Millisecond, zerolog.Nop(), func() {
		fired.Add(1)
	})
	w.Start(context.Background())
	w.Stop()

	backend.setInputs(RawDevice{ID: "other", Name: "Other"})
	time.Sleep(50 * time.Millisecond)

	if n := fired.Load(); n != 0 {
		t.Fatalf("expected no events after Stop, got %d", n)
	}
}
