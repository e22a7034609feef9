// Package bluetooth answers one question the audio backends cannot always
// answer directly: among the paired endpoints visible in an enumeration,
// which one is the actively routed audio endpoint?
package bluetooth

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/petems/audioroute/internal/platform"
)

// ConnectionStateProvider resolves the actively routed endpoint among a
// candidate set. Implementations are chosen once at startup by capability
// detection, never per call.
type ConnectionStateProvider interface {
	ActiveEndpoint(dir platform.Direction, candidates []platform.RawDevice) (platform.RawDevice, bool)
}

// ProviderFor picks the provider matching what the backend can do: direct
// when the backend flags the OS-routed device, best-effort heuristic
// otherwise.
func ProviderFor(backend platform.Backend, log zerolog.Logger) ConnectionStateProvider {
	if backend.Capabilities().ReportsDefaultDevice {
		return &directProvider{backend: backend, log: log}
	}
	log.Info().Str("backend", backend.Name()).Msg("Backend reports no default device, using heuristic connection detection")
	return newHeuristicProvider(log)
}

// directProvider trusts the platform's own active-route report.
type directProvider struct {
	backend platform.Backend
	log     zerolog.Logger
}

func (p *directProvider) ActiveEndpoint(dir platform.Direction, candidates []platform.RawDevice) (platform.RawDevice, bool) {
	active, ok, err := p.backend.ActiveDevice(dir)
	if err != nil {
		p.log.Warn().Err(err).Stringer("direction", dir).Msg("Active device query failed")
		return platform.RawDevice{}, false
	}
	if !ok {
		return platform.RawDevice{}, false
	}
	for _, c := range candidates {
		if c.ID == active.ID {
			return c, true
		}
	}
	return platform.RawDevice{}, false
}

// heuristicProvider is the fallback for backends that cannot flag the routed
// device. A Bluetooth endpoint generally only appears in the enumeration
// while its audio profile is connected, so the first Bluetooth-named
// candidate is treated as the routed one. Results are held in a short-lived
// cache because refresh bursts re-ask for the same candidate set.
type heuristicProvider struct {
	log   zerolog.Logger
	cache *gocache.Cache
}

const heuristicTTL = 2 * time.Second

func newHeuristicProvider(log zerolog.Logger) *heuristicProvider {
	return &heuristicProvider{
		log:   log,
		cache: gocache.New(heuristicTTL, time.Minute),
	}
}

func (p *heuristicProvider) ActiveEndpoint(dir platform.Direction, candidates []platform.RawDevice) (platform.RawDevice, bool) {
	key := cacheKey(dir, candidates)
	if hit, ok := p.cache.Get(key); ok {
		dev := hit.(platform.RawDevice)
		if dev.ID == "" {
			return platform.RawDevice{}, false
		}
		return dev, true
	}

	var result platform.RawDevice
	for _, c := range candidates {
		if IsBluetoothName(c.Name) {
			result = c
			break
		}
	}

	p.cache.Set(key, result, gocache.DefaultExpiration)
	if result.ID == "" {
		return platform.RawDevice{}, false
	}
	return result, true
}

func cacheKey(dir platform.Direction, candidates []platform.RawDevice) string {
	var sb strings.Builder
	sb.WriteString(dir.String())
	for _, c := range candidates {
		sb.WriteByte('|')
		sb.WriteString(c.ID)
	}
	return sb.String()
}

var bluetoothMarkers = []string{
	"bluetooth",
	"airpods",
	"a2dp",
	"hfp",
	"hands-free",
	"sco",
	"bt ",
}

var voiceMarkers = []string{
	"hfp",
	"hands-free",
	"sco",
	"headset profile",
}

// IsBluetoothName reports whether a device name looks like a Bluetooth
// endpoint. Name matching is all the backends give us here.
func IsBluetoothName(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range bluetoothMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsVoiceProfileName reports whether a Bluetooth device name indicates the
// low-bandwidth voice profile rather than the media profile.
func IsVoiceProfileName(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range voiceMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
