package routing

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/audioroute/internal/bluetooth"
	"github.com/petems/audioroute/internal/platform"
)

// Preferences is the durable store consulted during reconciliation. Reads
// are best-effort; writes are write-through.
type Preferences interface {
	InputID() string
	SetInputID(id string) error
	OutputID() string
	SetOutputID(id string) error
	DataSourceID() (int, bool)
	SetDataSourceID(id int) error
}

// Catalog holds the current enumeration of endpoints and the selected entry
// of each category. All mutation funnels through Refresh and Select under
// one mutex, so hardware callbacks and user commands never race.
type Catalog struct {
	backend  platform.Backend
	prefs    Preferences
	provider bluetooth.ConnectionStateProvider
	log      zerolog.Logger

	mu   sync.Mutex
	snap Snapshot
}

func NewCatalog(backend platform.Backend, prefs Preferences, provider bluetooth.ConnectionStateProvider, log zerolog.Logger) *Catalog {
	return &Catalog{
		backend:  backend,
		prefs:    prefs,
		provider: provider,
		log:      log,
	}
}

// Refresh re-enumerates the hardware and reconciles selections. Selection
// precedence, applied uniformly per category: persisted id if still present,
// then the platform-reported active device, then the first entry, then nil.
// Idempotent when the hardware has not changed.
func (c *Catalog) Refresh() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inputs, rawInputs, err := c.enumerate(platform.Input)
	if err != nil {
		return c.snap.clone(), err
	}
	outputs, rawOutputs, err := c.enumerate(platform.Output)
	if err != nil {
		return c.snap.clone(), err
	}

	next := Snapshot{
		AvailableInputs:  inputs,
		AvailableOutputs: outputs,
	}
	next.SelectedInput = c.resolveSelection(platform.Input, inputs, rawInputs, c.prefs.InputID())
	next.SelectedOutput = c.resolveSelection(platform.Output, outputs, rawOutputs, c.prefs.OutputID())
	next.AvailableDataSources, next.SelectedDataSource = c.resolveDataSources(next.SelectedInput)

	c.snap = next
	return c.snap.clone(), nil
}

// Select updates the selection for a device category. An id absent from the
// current catalog is logged and ignored: users race unplug events, that is
// not an error. Selecting an input recomputes the data-source list as a side
// effect. The boolean reports whether state changed.
func (c *Catalog) Select(dir platform.Direction, id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	available := c.snap.AvailableInputs
	if dir == platform.Output {
		available = c.snap.AvailableOutputs
	}

	var picked *Device
	for i := range available {
		if available[i].ID == id {
			d := available[i]
			picked = &d
			break
		}
	}
	if picked == nil {
		c.log.Warn().Stringer("direction", dir).Str("id", id).Msg("Selection ignored: device not in catalog")
		return c.snap.clone(), false
	}

	// Persist before the in-memory state becomes authoritative.
	var persistErr error
	if dir == platform.Input {
		persistErr = c.prefs.SetInputID(id)
	} else {
		persistErr = c.prefs.SetOutputID(id)
	}
	if persistErr != nil {
		c.log.Error().Err(persistErr).Str("id", id).Msg("Failed to persist selection")
	}

	// The backend may reject or merely advise; either way the selection
	// stays tracked.
	if err := c.backend.Apply(dir, id); err != nil {
		c.log.Warn().Err(err).Stringer("direction", dir).Str("id", id).Msg("Selection tracked but not applied to hardware")
	}

	if dir == platform.Input {
		c.snap.SelectedInput = picked
		c.snap.AvailableDataSources, c.snap.SelectedDataSource = c.resolveDataSources(picked)
	} else {
		c.snap.SelectedOutput = picked
	}

	c.log.Info().Stringer("direction", dir).Str("id", id).Str("name", picked.Name).Msg("Selected device")
	return c.snap.clone(), true
}

// SelectDataSource updates the data-source selection within the current
// input. Unknown ids are ignored, matching Select.
func (c *Catalog) SelectDataSource(id int) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var picked *DataSource
	for i := range c.snap.AvailableDataSources {
		if c.snap.AvailableDataSources[i].ID == id {
			ds := c.snap.AvailableDataSources[i]
			picked = &ds
			break
		}
	}
	if picked == nil {
		c.log.Warn().Int("id", id).Msg("Selection ignored: data source not in catalog")
		return c.snap.clone(), false
	}

	if err := c.prefs.SetDataSourceID(id); err != nil {
		c.log.Error().Err(err).Int("id", id).Msg("Failed to persist data-source selection")
	}

	c.snap.SelectedDataSource = picked
	c.log.Info().Int("id", id).Str("name", picked.Name).Msg("Selected data source")
	return c.snap.clone(), true
}

// Current returns the last reconciled snapshot.
func (c *Catalog) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// enumerate fetches and normalizes one direction, dropping devices outside
// the allow-list. The raw records of kept devices are returned alongside for
// the connection-state provider.
func (c *Catalog) enumerate(dir platform.Direction) ([]Device, []platform.RawDevice, error) {
	raws, err := c.backend.Devices(dir)
	if err != nil {
		return nil, nil, err
	}

	devices := make([]Device, 0, len(raws))
	kept := make([]platform.RawDevice, 0, len(raws))
	for _, raw := range raws {
		dev, ok := normalize(raw, dir)
		if !ok {
			c.log.Debug().Str("name", raw.Name).Stringer("direction", dir).Msg("Filtered device outside allow-list")
			continue
		}
		devices = append(devices, dev)
		kept = append(kept, raw)
	}
	return devices, kept, nil
}

func (c *Catalog) resolveSelection(dir platform.Direction, devices []Device, raws []platform.RawDevice, persistedID string) *Device {
	if len(devices) == 0 {
		return nil
	}

	if persistedID != "" {
		for i := range devices {
			if devices[i].ID == persistedID {
				d := devices[i]
				return &d
			}
		}
		// Stale preference: left in the store untouched until the next
		// explicit selection.
		c.log.Debug().Stringer("direction", dir).Str("id", persistedID).Msg("Persisted selection absent from enumeration")
	}

	if active, ok := c.provider.ActiveEndpoint(dir, raws); ok {
		for i := range devices {
			if devices[i].ID == active.ID {
				d := devices[i]
				return &d
			}
		}
	}

	d := devices[0]
	return &d
}

func (c *Catalog) resolveDataSources(input *Device) ([]DataSource, *DataSource) {
	if input == nil {
		return nil, nil
	}

	raws, err := c.backend.DataSources(input.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("input", input.ID).Msg("Data-source query failed")
		return nil, nil
	}
	if len(raws) == 0 {
		return nil, nil
	}

	sources := make([]DataSource, 0, len(raws))
	for _, r := range raws {
		sources = append(sources, DataSource{ID: r.ID, Name: r.Name})
	}

	if id, ok := c.prefs.DataSourceID(); ok {
		for i := range sources {
			if sources[i].ID == id {
				ds := sources[i]
				return sources, &ds
			}
		}
	}

	ds := sources[0]
	return sources, &ds
}
