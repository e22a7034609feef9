// Package platform abstracts the OS audio stack behind a narrow boundary.
// Two real backends exist: PortAudio and miniaudio (malgo). Which one a
// process uses is decided once at startup by capability probing.
package platform

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Direction distinguishes capture endpoints from playback endpoints.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// RawDevice is an un-normalized device handle as reported by a backend.
// IDs are opaque and only stable for the lifetime of a physical connection.
type RawDevice struct {
	ID             string
	Name           string
	IsDefault      bool
	InputChannels  int
	OutputChannels int
}

// RawSource is a capture sub-mode of an input device. On PortAudio these are
// derived from the device's channel capabilities; on malgo they are software
// capture-mode hints. Same shape, different semantics.
type RawSource struct {
	ID   int
	Name string
}

// Capabilities reports what a backend can actually do, probed at open time.
type Capabilities struct {
	// ReportsDefaultDevice is true when enumeration flags the device the OS
	// currently routes to. Drives connection-state provider selection.
	ReportsDefaultDevice bool

	// AppliesSelection is true when Apply changes actual hardware routing.
	// Both current backends are advisory: Apply records the preference for
	// future streams but cannot re-route the OS default.
	AppliesSelection bool
}

// Backend is the boundary to the native audio stack. Enumeration calls may
// block on OS I/O and must not be made from a UI thread.
type Backend interface {
	Name() string
	Devices(dir Direction) ([]RawDevice, error)
	// ActiveDevice returns the platform's notion of the currently routed
	// device. The second return is false when the backend cannot tell.
	ActiveDevice(dir Direction) (RawDevice, bool, error)
	// Apply requests the platform route to the given device. Advisory on
	// both real backends; callers must not assume success.
	Apply(dir Direction, id string) error
	DataSources(inputID string) ([]RawSource, error)
	Capabilities() Capabilities
	Close() error
}

// Open creates the backend named by choice: "portaudio", "malgo", or "auto".
// Auto probes PortAudio first and falls back to malgo.
func Open(choice string, log zerolog.Logger) (Backend, error) {
	switch choice {
	case "portaudio":
		return newPortAudioBackend(log)
	case "malgo":
		return newMalgoBackend(log)
	case "", "auto":
		if b, err := newPortAudioBackend(log); err == nil {
			return b, nil
		} else {
			log.Warn().Err(err).Msg("PortAudio unavailable, trying malgo")
		}
		return newMalgoBackend(log)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", choice)
	}
}
