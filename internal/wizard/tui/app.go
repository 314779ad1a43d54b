package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/config"
	"github.com/muurk/goveeplug/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenScan    Screen = "scan"
	ScreenPairing Screen = "pairing"
	ScreenControl Screen = "control"
)

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	// Dependencies shared by all screens
	adapter  ble.Adapter
	registry *config.Registry

	// Current screen state
	CurrentScreen Screen

	// Screen models
	ScanModel    ScanModel
	PairingModel PairingModel
	ControlModel ControlModel

	// Shared application state
	SelectedDevice *discovery.Device
	AccessToken    string
	LastError      error

	// UI state
	Width  int
	Height int
}

// NewAppModel creates the wizard. With a nil device it opens on the scan
// screen; with a device it skips straight to pairing or control depending on
// whether the registry already holds a token for it.
func NewAppModel(adapter ble.Adapter, registry *config.Registry, device *discovery.Device) AppModel {
	model := AppModel{
		adapter:        adapter,
		registry:       registry,
		CurrentScreen:  ScreenScan,
		SelectedDevice: device,
	}

	if device == nil {
		model.ScanModel = NewScanModel(adapter)
		return model
	}

	if entry := registry.GetDevice(device.Address); entry != nil && entry.AccessToken != "" {
		model.AccessToken = entry.AccessToken
		model.CurrentScreen = ScreenControl
		model.ControlModel, model.LastError = NewControlModel(adapter, device, entry.AccessToken)
		if model.LastError != nil {
			model.CurrentScreen = ScreenScan
			model.ScanModel = NewScanModel(adapter)
		}
	} else {
		model.CurrentScreen = ScreenPairing
		model.PairingModel = NewPairingModel(adapter, device)
	}
	return model
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenScan:
		return m.ScanModel.Init()
	case ScreenPairing:
		return m.PairingModel.Init()
	case ScreenControl:
		return m.ControlModel.Init()
	default:
		return nil
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		m.ScanModel.Width, m.ScanModel.Height = msg.Width, msg.Height
		m.ScanModel.resizeList()
		m.PairingModel.Width, m.PairingModel.Height = msg.Width, msg.Height
		m.ControlModel.Width, m.ControlModel.Height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen and acts
// on the flags screens raise
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenScan:
		updated, c := m.ScanModel.Update(msg)
		m.ScanModel = updated.(ScanModel)
		cmd = c

		if m.ScanModel.Selected {
			m.SelectedDevice = m.ScanModel.SelectedDevice()
			m.ScanModel.Selected = false
			if m.SelectedDevice != nil {
				return m.afterDevicePicked()
			}
		}
		if m.ScanModel.QuitRequested {
			return m, tea.Quit
		}

	case ScreenPairing:
		updated, c := m.PairingModel.Update(msg)
		m.PairingModel = updated.(PairingModel)
		cmd = c

		if m.PairingModel.Done {
			m.AccessToken = m.PairingModel.Token
			m.persistToken()
			return m.transitionTo(ScreenControl)
		}
		if m.PairingModel.BackRequested {
			return m.transitionTo(ScreenScan)
		}
		if m.PairingModel.QuitRequested {
			m.shutdown()
			return m, tea.Quit
		}

	case ScreenControl:
		updated, c := m.ControlModel.Update(msg)
		m.ControlModel = updated.(ControlModel)
		cmd = c

		if m.ControlModel.BackRequested {
			m.ControlModel.Shutdown()
			return m.transitionTo(ScreenScan)
		}
		if m.ControlModel.QuitRequested {
			m.shutdown()
			return m, tea.Quit
		}
	}

	return m, cmd
}

// afterDevicePicked routes a freshly picked device to control or pairing
// depending on whether a token is already on file
func (m AppModel) afterDevicePicked() (tea.Model, tea.Cmd) {
	if entry := m.registry.GetDevice(m.SelectedDevice.Address); entry != nil && entry.AccessToken != "" {
		m.AccessToken = entry.AccessToken
		return m.transitionTo(ScreenControl)
	}
	return m.transitionTo(ScreenPairing)
}

// persistToken writes the freshly issued token into the registry. A write
// failure is shown but does not block controlling the plug this session.
func (m *AppModel) persistToken() {
	m.registry.SetDevice(&config.Device{
		Address:     m.SelectedDevice.Address,
		Model:       string(m.SelectedDevice.Model),
		Name:        m.SelectedDevice.Name,
		AccessToken: m.AccessToken,
		PairedAt:    time.Now(),
	})
	if err := m.registry.Save(); err != nil {
		m.LastError = err
	}
}

// transitionTo switches screens, initializing the target
func (m AppModel) transitionTo(screen Screen) (tea.Model, tea.Cmd) {
	m.CurrentScreen = screen

	var cmd tea.Cmd
	switch screen {
	case ScreenScan:
		m.ScanModel = NewScanModel(m.adapter)
		m.ScanModel.Width, m.ScanModel.Height = m.Width, m.Height
		m.ScanModel.resizeList()
		cmd = m.ScanModel.Init()

	case ScreenPairing:
		m.PairingModel = NewPairingModel(m.adapter, m.SelectedDevice)
		m.PairingModel.Width, m.PairingModel.Height = m.Width, m.Height
		cmd = m.PairingModel.Init()

	case ScreenControl:
		control, err := NewControlModel(m.adapter, m.SelectedDevice, m.AccessToken)
		if err != nil {
			// Unsupported model or corrupt token: back to scan with the error
			m.LastError = err
			return m.transitionTo(ScreenScan)
		}
		m.ControlModel = control
		m.ControlModel.Width, m.ControlModel.Height = m.Width, m.Height
		cmd = m.ControlModel.Init()
	}

	return m, cmd
}

// shutdown releases anything the active screen holds open
func (m *AppModel) shutdown() {
	if m.CurrentScreen == ScreenControl {
		m.ControlModel.Shutdown()
	}
	if m.CurrentScreen == ScreenPairing {
		m.PairingModel.Shutdown()
	}
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenScan:
		return m.ScanModel.View()
	case ScreenPairing:
		return m.PairingModel.View()
	case ScreenControl:
		return m.ControlModel.View()
	default:
		return "Unknown screen"
	}
}
