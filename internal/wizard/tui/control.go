package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/discovery"
	"github.com/muurk/goveeplug/internal/plug"
)

// refreshScanDuration is the short passive scan the refresh key runs to pick
// up the plug's broadcast state without opening a session
const refreshScanDuration = 4 * time.Second

// Messages for control actions
type toggleDoneMsg struct {
	port int
	ok   bool
	err  error
}
type refreshDoneMsg struct {
	device *discovery.Device
	err    error
}

// controlKeyMap defines key bindings for the control screen
type controlKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	On      key.Binding
	Off     key.Binding
	Refresh key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.On, k.Off, k.Refresh, k.Back, k.Quit}
}

func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.On, k.Off, k.Refresh},
		{k.Back, k.Quit},
	}
}

// ControlModel represents the plug control screen state
type ControlModel struct {
	adapter ble.Adapter
	device  *discovery.Device
	handle  *plug.Plug

	// Cursor over the plug's ports
	cursor int

	// In-flight commands keyed by port, for the per-port spinner
	pending map[int]bool

	// Last command/refresh failure, shown inline
	Err error

	// Flags the coordinator acts on
	BackRequested bool
	QuitRequested bool

	// UI state
	Width      int
	Height     int
	Spinner    spinner.Model
	Refreshing bool
	Help       help.Model
	Keys       controlKeyMap
}

// NewControlModel opens a command session handle for the plug. It fails when
// the model is unsupported or the stored token is corrupt.
func NewControlModel(adapter ble.Adapter, device *discovery.Device, token string) (ControlModel, error) {
	handle, err := plug.New(adapter, device.Address, device.Model, token, plug.DefaultOptions())
	if err != nil {
		return ControlModel{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := controlKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle"),
		),
		On: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "on"),
		),
		Off: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "off"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return ControlModel{
		adapter: adapter,
		device:  device,
		handle:  handle,
		pending: make(map[int]bool),
		Spinner: s,
		Help:    help.New(),
		Keys:    keys,
	}, nil
}

// Init seeds the state display from the broadcast the scan screen heard
func (m ControlModel) Init() tea.Cmd {
	if m.device.HasState {
		for port, on := range m.device.States {
			m.handle.RecordObservedState(port, on)
		}
	}
	return m.Spinner.Tick
}

// setPort issues one switch command off the UI goroutine
func setPort(handle *plug.Plug, port int, on bool) tea.Cmd {
	return func() tea.Msg {
		var ok bool
		var err error
		if on {
			ok, err = handle.TurnOn(context.Background(), port)
		} else {
			ok, err = handle.TurnOff(context.Background(), port)
		}
		return toggleDoneMsg{port: port, ok: ok, err: err}
	}
}

// refreshState listens for the plug's broadcast to update the display without
// opening a session
func refreshState(adapter ble.Adapter, address string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshScanDuration+time.Second)
		defer cancel()
		device, err := discovery.NewScanner(adapter).Find(ctx, address, refreshScanDuration)
		return refreshDoneMsg{device: device, err: err}
	}
}

// Update handles messages and updates the model
func (m ControlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.handle.Ports()-1 {
				m.cursor++
			}

		case "enter", " ":
			return m.issueCommand(m.cursor, m.handle.State()[m.cursor] != plug.StateOn)
		case "o":
			return m.issueCommand(m.cursor, true)
		case "f":
			return m.issueCommand(m.cursor, false)

		case "r":
			if !m.Refreshing {
				m.Refreshing = true
				m.Err = nil
				return m, tea.Batch(refreshState(m.adapter, m.device.Address), m.Spinner.Tick)
			}

		case "esc":
			m.BackRequested = true
			return m, nil
		case "q":
			m.QuitRequested = true
			return m, nil
		}

	case toggleDoneMsg:
		delete(m.pending, msg.port)
		switch {
		case msg.err != nil:
			m.Err = msg.err
		case !msg.ok:
			m.Err = fmt.Errorf("plug did not confirm the command for %s", m.portName(msg.port))
		default:
			m.Err = nil
		}
		return m, nil

	case refreshDoneMsg:
		m.Refreshing = false
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Err = nil
		if msg.device.HasState {
			for port, on := range msg.device.States {
				m.recordBroadcastState(port, on)
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		if len(m.pending) > 0 || m.Refreshing {
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// issueCommand starts a switch command for one port unless one is already
// in flight for it
func (m ControlModel) issueCommand(port int, on bool) (tea.Model, tea.Cmd) {
	if m.pending[port] {
		return m, nil
	}
	m.pending[port] = true
	m.Err = nil
	return m, tea.Batch(setPort(m.handle, port, on), m.Spinner.Tick)
}

// recordBroadcastState feeds passively observed port state into the handle
// via a synthetic advertisement carrying the already-decoded state
func (m *ControlModel) recordBroadcastState(port int, on bool) {
	m.handle.RecordObservedState(port, on)
}

func (m ControlModel) portName(port int) string {
	names := m.handle.PortNames()
	if port >= 0 && port < len(names) {
		return names[port]
	}
	return fmt.Sprintf("port %d", port)
}

// Shutdown closes the command session handle, failing anything still queued
func (m *ControlModel) Shutdown() {
	if m.handle != nil {
		m.handle.Close()
	}
}

// View renders the control screen
func (m ControlModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderTitle(fmt.Sprintf("CONTROLLING %s", m.device.Name)))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle(fmt.Sprintf("Model: %s    Address: %s", m.device.Model, m.device.Address)))
	b.WriteString("\n\n")

	states := m.handle.State()
	names := m.handle.PortNames()
	for port := 0; port < m.handle.Ports(); port++ {
		b.WriteString(m.renderPortRow(port, names[port], states[port]))
		b.WriteString("\n")
	}

	if m.Refreshing {
		b.WriteString("\n  ")
		b.WriteString(m.Spinner.View())
		b.WriteString(SubtitleStyle.Render(" listening for broadcast state..."))
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(m.Err.Error()))
		if hint := plug.GetTroubleshootingHint(m.Err); hint != "" {
			b.WriteString("\n")
			b.WriteString(SubtitleStyle.Render("  " + hint))
		}
		b.WriteString("\n")
	}

	helpText := m.Help.View(m.Keys)
	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}

// renderPortRow renders one port line with cursor, name and state badge
func (m ControlModel) renderPortRow(port int, name string, state plug.PortState) string {
	var badge string
	switch state {
	case plug.StateOn:
		badge = StateOnStyle.Render("● ON ")
	case plug.StateOff:
		badge = StateOffStyle.Render("○ OFF")
	default:
		badge = StateUnknownStyle.Render("? ---")
	}

	if m.pending[port] {
		badge = m.Spinner.View() + " ... "
	}

	row := fmt.Sprintf("%-12s %s", name, badge)
	if port == m.cursor {
		return SelectedMenuItemStyle.Render("→ " + row)
	}
	return MenuItemStyle.Render("  " + row)
}
