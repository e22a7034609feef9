package platform

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

type portAudioBackend struct {
	log zerolog.Logger

	mu        sync.Mutex
	preferred map[Direction]string
}

func newPortAudioBackend(log zerolog.Logger) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioBackend{
		log:       log,
		preferred: make(map[Direction]string),
	}, nil
}

func (p *portAudioBackend) Name() string { return "portaudio" }

func (p *portAudioBackend) Devices(dir Direction) ([]RawDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	def := p.defaultDevice(dir)

	result := make([]RawDevice, 0, len(devices))
	for _, d := range devices {
		if dir == Input && d.MaxInputChannels <= 0 {
			continue
		}
		if dir == Output && d.MaxOutputChannels <= 0 {
			continue
		}
		result = append(result, RawDevice{
			// PortAudio exposes no UID; the name is the only stable handle.
			ID:             d.Name,
			Name:           d.Name,
			IsDefault:      def != nil && d == def,
			InputChannels:  d.MaxInputChannels,
			OutputChannels: d.MaxOutputChannels,
		})
	}

	return result, nil
}

func (p *portAudioBackend) ActiveDevice(dir Direction) (RawDevice, bool, error) {
	def := p.defaultDevice(dir)
	if def == nil {
		return RawDevice{}, false, nil
	}
	return RawDevice{
		ID:             def.Name,
		Name:           def.Name,
		IsDefault:      true,
		InputChannels:  def.MaxInputChannels,
		OutputChannels: def.MaxOutputChannels,
	}, true, nil
}

// Apply records the preferred device for future stream opens. PortAudio has
// no call to change the OS default route, so this is advisory.
func (p *portAudioBackend) Apply(dir Direction, id string) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, d := range devices {
		if d.Name == id {
			p.mu.Lock()
			p.preferred[dir] = id
			p.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("device not found: %s", id)
}

func (p *portAudioBackend) DataSources(inputID string) ([]RawSource, error) {
	if inputID == "" {
		return nil, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, d := range devices {
		if d.Name != inputID || d.MaxInputChannels <= 0 {
			continue
		}
		sources := []RawSource{{ID: 0, Name: "Default"}}
		if d.MaxInputChannels >= 1 {
			sources = append(sources, RawSource{ID: 1, Name: "Voice (mono)"})
		}
		if d.MaxInputChannels >= 2 {
			sources = append(sources, RawSource{ID: 2, Name: "Stereo"})
		}
		return sources, nil
	}

	return nil, nil
}

func (p *portAudioBackend) Capabilities() Capabilities {
	return Capabilities{
		ReportsDefaultDevice: true,
		AppliesSelection:     false,
	}
}

func (p *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

func (p *portAudioBackend) defaultDevice(dir Direction) *portaudio.DeviceInfo {
	var (
		def *portaudio.DeviceInfo
		err error
	)
	if dir == Input {
		def, err = portaudio.DefaultInputDevice()
	} else {
		def, err = portaudio.DefaultOutputDevice()
	}
	if err != nil {
		p.log.Debug().Err(err).Stringer("direction", dir).Msg("No default device reported")
		return nil
	}
	return def
}
