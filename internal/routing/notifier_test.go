package routing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func inputSnapshot(ids ...string) Snapshot {
	s := Snapshot{}
	for _, id := range ids {
		s.AvailableInputs = append(s.AvailableInputs, Device{ID: id, Name: "Device " + id})
	}
	if len(s.AvailableInputs) > 0 {
		d := s.AvailableInputs[0]
		s.SelectedInput = &d
	}
	return s
}

func TestSubscribeImmediatelyReceivesCurrentSnapshot(t *testing.T) {
	n := NewNotifier(20*time.Millisecond, zerolog.Nop())
	defer n.Close()

	n.Publish(inputSnapshot("1"))

	ch, cancel := n.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		if len(snap.AvailableInputs) != 1 || snap.AvailableInputs[0].ID != "1" {
			t.Fatalf("unexpected initial snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate snapshot on subscribe")
	}
}

func TestSubscribeBeforeFirstPublishGetsNothingUntilPublish(t *testing.T) {
	n := NewNotifier(10*time.Millisecond, zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot before any publish: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}

	n.Publish(inputSnapshot("1"))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no snapshot after publish")
	}
}

func TestDebounceCollapsesBurstIntoFinalState(t *testing.T) {
	n := NewNotifier(100*time.Millisecond, zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	// Two publishes inside the window simulate a Bluetooth device
	// disconnecting while its paired counterpart appears.
	n.Publish(inputSnapshot("1"))
	time.Sleep(20 * time.Millisecond)
	n.Publish(inputSnapshot("1", "2"))

	var got []Snapshot
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("channel closed unexpectedly")
			}
			got = append(got, snap)
		case <-deadline:
			if len(got) != 1 {
				t.Fatalf("expected exactly one emission, got %d", len(got))
			}
			if len(got[0].AvailableInputs) != 2 {
				t.Fatalf("emission should reflect the final state, got %+v", got[0])
			}
			return
		}
	}
}

func TestCloseCancelsPendingEmission(t *testing.T) {
	n := NewNotifier(50*time.Millisecond, zerolog.Nop())

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(inputSnapshot("1"))
	n.Close()

	select {
	case snap, ok := <-ch:
		if ok {
			t.Fatalf("snapshot emitted after Close: %+v", snap)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("channel not closed by Close")
	}

	// Close again must be a no-op.
	n.Close()
}

func TestCancelSubscriptionIsIdempotent(t *testing.T) {
	n := NewNotifier(10*time.Millisecond, zerolog.Nop())
	defer n.Close()

	_, cancel := n.Subscribe()
	cancel()
	cancel()

	// Publishing after cancel must not panic on the removed subscriber.
	n.Publish(inputSnapshot("1"))
	time.Sleep(30 * time.Millisecond)
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	n := NewNotifier(10*time.Millisecond, zerolog.Nop())
	defer n.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(inputSnapshot("1"))
	time.Sleep(30 * time.Millisecond)
	// Subscriber has not read; a newer emission must displace the stale one.
	n.Publish(inputSnapshot("1", "2"))
	time.Sleep(30 * time.Millisecond)

	select {
	case snap := <-ch:
		if len(snap.AvailableInputs) != 2 {
			t.Fatalf("expected latest snapshot, got %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
