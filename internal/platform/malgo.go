package platform

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

type malgoBackend struct {
	log zerolog.Logger
	ctx *malgo.AllocatedContext

	mu         sync.Mutex
	preferred  map[Direction]string
	sawDefault bool
}

func newMalgoBackend(log zerolog.Logger) (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	b := &malgoBackend{
		log:       log,
		ctx:       ctx,
		preferred: make(map[Direction]string),
	}

	// Capability probe: some miniaudio backends never flag a default
	// device. One enumeration up front tells us which world we are in.
	if devs, err := b.Devices(Input); err == nil {
		for _, d := range devs {
			if d.IsDefault {
				b.sawDefault = true
				break
			}
		}
	}

	return b, nil
}

func (m *malgoBackend) Name() string { return "malgo" }

func (m *malgoBackend) Devices(dir Direction) ([]RawDevice, error) {
	typ := malgo.Capture
	if dir == Output {
		typ = malgo.Playback
	}

	devices, err := m.ctx.Devices(typ)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	result := make([]RawDevice, 0, len(devices))
	seen := make(map[string]struct{}, len(devices))
	for i := range devices {
		full, err := m.ctx.DeviceInfo(typ, devices[i].ID, malgo.Shared)
		if err != nil {
			m.log.Warn().Err(err).Msg("Unable to get audio device info")
			continue
		}

		id := malgoDeviceID(full.ID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		raw := RawDevice{
			ID:        id,
			Name:      full.Name(),
			IsDefault: full.IsDefault == 1,
		}
		if dir == Input {
			raw.InputChannels = 1
		} else {
			raw.OutputChannels = 2
		}
		result = append(result, raw)
	}

	return result, nil
}

func (m *malgoBackend) ActiveDevice(dir Direction) (RawDevice, bool, error) {
	devices, err := m.Devices(dir)
	if err != nil {
		return RawDevice{}, false, err
	}
	for _, d := range devices {
		if d.IsDefault {
			return d, true, nil
		}
	}
	return RawDevice{}, false, nil
}

// Apply records the preference; miniaudio cannot re-route the OS default.
func (m *malgoBackend) Apply(dir Direction, id string) error {
	devices, err := m.Devices(dir)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.ID == id {
			m.mu.Lock()
			m.preferred[dir] = id
			m.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("device not found: %s", id)
}

// DataSources reports software capture-mode hints. Unlike PortAudio these do
// not vary per device: miniaudio exposes no per-device sub-modes, so the
// hints describe how a capture stream will be opened.
func (m *malgoBackend) DataSources(inputID string) ([]RawSource, error) {
	if inputID == "" {
		return nil, nil
	}
	return []RawSource{
		{ID: 0, Name: "Default"},
		{ID: 1, Name: "Voice"},
		{ID: 2, Name: "Music"},
	}, nil
}

func (m *malgoBackend) Capabilities() Capabilities {
	return Capabilities{
		ReportsDefaultDevice: m.sawDefault,
		AppliesSelection:     false,
	}
}

func (m *malgoBackend) Close() error {
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	return err
}

// malgoDeviceID renders the fixed-size native id as a hex string so it can
// travel through JSON snapshots.
func malgoDeviceID(id malgo.DeviceID) string {
	trimmed := bytes.TrimRight(id[:], "\x00")
	if len(trimmed) == 0 {
		return ""
	}
	return hex.EncodeToString(trimmed)
}
