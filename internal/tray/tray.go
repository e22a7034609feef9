package tray

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/audioroute/internal/config"
	"github.com/petems/audioroute/internal/routing"
)

// UI is the systray front-end over a routing session: one submenu per device
// category with checkmarks tracking the current selection, refreshed on
// every snapshot emission.
type UI struct {
	session *routing.Session
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	// Menu items
	mInputs  *systray.MenuItem
	mOutputs *systray.MenuItem
	mSources *systray.MenuItem

	inputSlots  []*menuSlot
	outputSlots []*menuSlot
	sourceSlots []*menuSlot

	unsubscribe func()
}

// menuSlot is a reusable submenu entry. systray cannot remove items once
// added, so a fixed set of slots is retitled, shown, and hidden as the
// catalog changes.
type menuSlot struct {
	item *systray.MenuItem

	mu sync.Mutex
	id string // device id, or data-source id rendered as a string
}

func (s *menuSlot) set(id, title string, checked bool) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()

	s.item.SetTitle(title)
	if checked {
		s.item.Check()
	} else {
		s.item.Uncheck()
	}
	s.item.Show()
}

func (s *menuSlot) clear() {
	s.mu.Lock()
	s.id = ""
	s.mu.Unlock()
	s.item.Hide()
}

func (s *menuSlot) currentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func New(session *routing.Session, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		session: session,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
	}
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTitle("🎧")
	systray.SetTooltip("Audio route picker")

	u.mInputs = systray.AddMenuItem("Input", "Select input device")
	u.inputSlots = u.buildSlots(u.mInputs, func(id string) {
		u.session.SelectInput(id)
	})

	u.mOutputs = systray.AddMenuItem("Output", "Select output device")
	u.outputSlots = u.buildSlots(u.mOutputs, func(id string) {
		u.session.SelectOutput(id)
	})

	if u.cfg.Tray.ShowDataSources {
		u.mSources = systray.AddMenuItem("Data Source", "Select capture mode")
		u.sourceSlots = u.buildSlots(u.mSources, func(id string) {
			var sourceID int
			if _, err := fmt.Sscanf(id, "%d", &sourceID); err != nil {
				return
			}
			u.session.SelectDataSource(sourceID)
		})
	}

	systray.AddSeparator()
	mRefresh := systray.AddMenuItem("Refresh Devices", "Re-enumerate audio devices")
	mCopy := systray.AddMenuItem("Copy Route Info", "Copy the current route snapshot as JSON")

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About audioroute")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Track catalog changes
	ch, cancel := u.session.Subscribe()
	u.unsubscribe = cancel
	go func() {
		for snap := range ch {
			u.applySnapshot(snap)
		}
	}()

	// Event loop
	go u.handleEvents(mRefresh, mCopy, mAbout, mQuit)
}

func (u *UI) buildSlots(parent *systray.MenuItem, onSelect func(id string)) []*menuSlot {
	count := u.cfg.Tray.MaxMenuDevices
	if count <= 0 {
		count = 8
	}

	slots := make([]*menuSlot, count)
	for i := range slots {
		slot := &menuSlot{item: parent.AddSubMenuItem("", "")}
		slot.item.Hide()
		slots[i] = slot

		go func(s *menuSlot) {
			for range s.item.ClickedCh {
				if id := s.currentID(); id != "" {
					onSelect(id)
				}
			}
		}(slot)
	}
	return slots
}

func (u *UI) handleEvents(mRefresh, mCopy, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mRefresh.ClickedCh:
			u.session.Refresh()
		case <-mCopy.ClickedCh:
			u.copyRouteInfo()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) applySnapshot(snap routing.Snapshot) {
	selectedInput := ""
	if snap.SelectedInput != nil {
		selectedInput = snap.SelectedInput.ID
	}
	selectedOutput := ""
	if snap.SelectedOutput != nil {
		selectedOutput = snap.SelectedOutput.ID
	}

	fillDeviceSlots(u.inputSlots, snap.AvailableInputs, selectedInput)
	fillDeviceSlots(u.outputSlots, snap.AvailableOutputs, selectedOutput)

	if u.mSources != nil {
		selectedSource := ""
		if snap.SelectedDataSource != nil {
			selectedSource = fmt.Sprintf("%d", snap.SelectedDataSource.ID)
		}
		for i, slot := range u.sourceSlots {
			if i < len(snap.AvailableDataSources) {
				src := snap.AvailableDataSources[i]
				id := fmt.Sprintf("%d", src.ID)
				slot.set(id, src.Name, id == selectedSource)
			} else {
				slot.clear()
			}
		}
	}

	systray.SetTooltip(routeSummary(snap))
}

func fillDeviceSlots(slots []*menuSlot, devices []routing.Device, selectedID string) {
	for i, slot := range slots {
		if i < len(devices) {
			d := devices[i]
			slot.set(d.ID, d.Name, d.ID == selectedID)
		} else {
			slot.clear()
		}
	}
}

func routeSummary(snap routing.Snapshot) string {
	in := "none"
	if snap.SelectedInput != nil {
		in = snap.SelectedInput.Name
	}
	out := "none"
	if snap.SelectedOutput != nil {
		out = snap.SelectedOutput.Name
	}
	return fmt.Sprintf("In: %s / Out: %s", in, out)
}

func (u *UI) copyRouteInfo() {
	snap := u.session.CurrentSnapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to marshal route snapshot")
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy route snapshot")
		return
	}
	u.log.Info().Msg("Copied route snapshot to clipboard")
}

func (u *UI) showAbout() {
	fmt.Printf("audioroute %s (%s)\nAudio route picker\n", u.version, u.commit)
}

func (u *UI) onExit() {
	if u.unsubscribe != nil {
		u.unsubscribe()
	}
}
