// Package routing maintains the authoritative view of audio endpoints: the
// device catalog, the selection reconciliation rules, and the debounced
// change notification fan-out.
package routing

import (
	"strings"

	"github.com/petems/audioroute/internal/bluetooth"
	"github.com/petems/audioroute/internal/platform"
)

// DeviceClass is the allow-list classification of an endpoint. Devices that
// classify as ClassUnknown are excluded from the catalog.
type DeviceClass int

const (
	ClassUnknown DeviceClass = iota
	ClassBuiltinMic
	ClassBuiltinSpeaker
	ClassWiredHeadset
	ClassUSB
	ClassBluetoothVoice
	ClassBluetoothAudio
)

func (c DeviceClass) String() string {
	switch c {
	case ClassBuiltinMic:
		return "builtin-mic"
	case ClassBuiltinSpeaker:
		return "builtin-speaker"
	case ClassWiredHeadset:
		return "wired-headset"
	case ClassUSB:
		return "usb"
	case ClassBluetoothVoice:
		return "bluetooth-voice"
	case ClassBluetoothAudio:
		return "bluetooth-audio"
	default:
		return "unknown"
	}
}

// Device is the normalized descriptor published to subscribers. The ID is
// opaque and only guaranteed unique within one enumeration snapshot.
type Device struct {
	ID        string             `json:"uid"`
	Name      string             `json:"portName"`
	Direction platform.Direction `json:"-"`
	Class     DeviceClass        `json:"-"`
}

// DataSource is a sub-mode of the selected input device, not a separate
// physical device.
type DataSource struct {
	ID   int    `json:"dataSourceID"`
	Name string `json:"dataSourceName"`
}

// Snapshot is the aggregate catalog state, delivered atomically. Field names
// follow the published wire contract.
type Snapshot struct {
	AvailableInputs      []Device     `json:"availableInputs"`
	SelectedInput        *Device      `json:"selectedInput"`
	AvailableOutputs     []Device     `json:"availableOutputs"`
	SelectedOutput       *Device      `json:"selectedOutput"`
	AvailableDataSources []DataSource `json:"availableDataSources"`
	SelectedDataSource   *DataSource  `json:"selectedDataSource"`
}

// Equal reports whether two snapshots describe identical state.
func (s Snapshot) Equal(o Snapshot) bool {
	if !devicesEqual(s.AvailableInputs, o.AvailableInputs) ||
		!devicesEqual(s.AvailableOutputs, o.AvailableOutputs) ||
		!devicePtrEqual(s.SelectedInput, o.SelectedInput) ||
		!devicePtrEqual(s.SelectedOutput, o.SelectedOutput) {
		return false
	}
	if len(s.AvailableDataSources) != len(o.AvailableDataSources) {
		return false
	}
	for i := range s.AvailableDataSources {
		if s.AvailableDataSources[i] != o.AvailableDataSources[i] {
			return false
		}
	}
	if (s.SelectedDataSource == nil) != (o.SelectedDataSource == nil) {
		return false
	}
	if s.SelectedDataSource != nil && *s.SelectedDataSource != *o.SelectedDataSource {
		return false
	}
	return true
}

func devicesEqual(a, b []Device) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func devicePtrEqual(a, b *Device) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// clone deep-copies a snapshot so emissions stay immutable to receivers.
func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		AvailableInputs:      append([]Device(nil), s.AvailableInputs...),
		AvailableOutputs:     append([]Device(nil), s.AvailableOutputs...),
		AvailableDataSources: append([]DataSource(nil), s.AvailableDataSources...),
	}
	if s.SelectedInput != nil {
		d := *s.SelectedInput
		out.SelectedInput = &d
	}
	if s.SelectedOutput != nil {
		d := *s.SelectedOutput
		out.SelectedOutput = &d
	}
	if s.SelectedDataSource != nil {
		ds := *s.SelectedDataSource
		out.SelectedDataSource = &ds
	}
	return out
}

// normalize converts a raw backend handle into a catalog descriptor. The
// second return is false for devices outside the allow-list.
func normalize(raw platform.RawDevice, dir platform.Direction) (Device, bool) {
	name := strings.TrimSpace(raw.Name)
	class := classify(name, dir)
	if class == ClassUnknown {
		return Device{}, false
	}
	return Device{
		ID:        raw.ID,
		Name:      name,
		Direction: dir,
		Class:     class,
	}, true
}

func classify(name string, dir platform.Direction) DeviceClass {
	lower := strings.ToLower(name)

	switch {
	case bluetooth.IsBluetoothName(name):
		if bluetooth.IsVoiceProfileName(name) {
			return ClassBluetoothVoice
		}
		return ClassBluetoothAudio
	case strings.Contains(lower, "usb"):
		return ClassUSB
	case strings.Contains(lower, "headset"),
		strings.Contains(lower, "headphone"):
		return ClassWiredHeadset
	case strings.Contains(lower, "mic") && dir == platform.Input:
		return ClassBuiltinMic
	case strings.Contains(lower, "speaker") && dir == platform.Output:
		return ClassBuiltinSpeaker
	case strings.Contains(lower, "built-in"),
		strings.Contains(lower, "internal"),
		strings.Contains(lower, "default"),
		strings.Contains(lower, "sysdefault"),
		strings.Contains(lower, "pulse"),
		strings.Contains(lower, "pipewire"):
		if dir == platform.Input {
			return ClassBuiltinMic
		}
		return ClassBuiltinSpeaker
	default:
		return ClassUnknown
	}
}
