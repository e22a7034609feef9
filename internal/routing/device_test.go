package routing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/petems/audioroute/internal/platform"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		dir  platform.Direction
		want DeviceClass
	}{
		{"Built-in Microphone", platform.Input, ClassBuiltinMic},
		{"MacBook Pro Speakers", platform.Output, ClassBuiltinSpeaker},
		{"USB Audio Device", platform.Input, ClassUSB},
		{"Plantronics Headset", platform.Input, ClassWiredHeadset},
		{"AirPods Pro", platform.Input, ClassBluetoothAudio},
		{"Jabra Hands-Free", platform.Input, ClassBluetoothVoice},
		{"default", platform.Output, ClassBuiltinSpeaker},
		{"pipewire", platform.Input, ClassBuiltinMic},
		{"HDMI Monitor Out", platform.Output, ClassUnknown},
	}

	for _, tt := range tests {
		if got := classify(tt.name, tt.dir); got != tt.want {
			t.Errorf("classify(%q, %s) = %s, want %s", tt.name, tt.dir, got, tt.want)
		}
	}
}

func TestNormalizeTrimsAndFilters(t *testing.T) {
	dev, ok := normalize(platform.RawDevice{ID: "x", Name: "  Built-in Microphone  "}, platform.Input)
	if !ok {
		t.Fatal("expected device to pass the allow-list")
	}
	if dev.Name != "Built-in Microphone" {
		t.Errorf("name not trimmed: %q", dev.Name)
	}
	if dev.Class != ClassBuiltinMic {
		t.Errorf("class = %s, want %s", dev.Class, ClassBuiltinMic)
	}

	if _, ok := normalize(platform.RawDevice{ID: "y", Name: "Mystery Endpoint"}, platform.Input); ok {
		t.Error("unclassifiable device should be filtered")
	}
}

// The snapshot JSON is a published contract; field names must not drift.
func TestSnapshotWireShape(t *testing.T) {
	mic := Device{ID: "1", Name: "Mic", Direction: platform.Input, Class: ClassBuiltinMic}
	src := DataSource{ID: 0, Name: "Default"}
	snap := Snapshot{
		AvailableInputs:      []Device{mic},
		SelectedInput:        &mic,
		AvailableDataSources: []DataSource{src},
		SelectedDataSource:   &src,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)

	for _, field := range []string{
		`"availableInputs"`, `"selectedInput"`,
		`"availableOutputs"`, `"selectedOutput"`,
		`"availableDataSources"`, `"selectedDataSource"`,
		`"uid":"1"`, `"portName":"Mic"`,
		`"dataSourceID":0`, `"dataSourceName":"Default"`,
	} {
		if !strings.Contains(got, field) {
			t.Errorf("wire shape missing %s in %s", field, got)
		}
	}

	if strings.Contains(got, "Direction") || strings.Contains(got, "Class") {
		t.Errorf("internal fields leaked into the wire shape: %s", got)
	}

	if !strings.Contains(got, `"selectedOutput":null`) {
		t.Errorf("absent selection must serialize as null, got %s", got)
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	mic := Device{ID: "1", Name: "Mic"}
	snap := Snapshot{
		AvailableInputs: []Device{mic},
		SelectedInput:   &mic,
	}

	clone := snap.clone()
	clone.AvailableInputs[0].Name = "changed"
	clone.SelectedInput.Name = "changed"

	if snap.AvailableInputs[0].Name != "Mic" || snap.SelectedInput.Name != "Mic" {
		t.Error("clone shares memory with the original snapshot")
	}
}
