package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/discovery"
)

// scanDuration is how long the scan screen listens before showing results
const scanDuration = 10 * time.Second

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// scanKeyMap defines key bindings for the device list
type scanKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Quit}
}

func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Quit},
	}
}

// deviceItem wraps a discovered plug for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.Address
}

func (d deviceItem) Title() string {
	return d.device.Name
}

func (d deviceItem) Description() string {
	return fmt.Sprintf("%s • %s • %d dBm • %s",
		d.device.Model, d.device.Address, d.device.RSSI, d.device.StateSummary())
}

// deviceDelegate renders device cards in the scan list
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 7 } // Card height including borders

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}

	device := it.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + device.Name))
	} else {
		content.WriteString("  " + device.Name)
	}
	content.WriteString("\n\n")

	content.WriteString(fmt.Sprintf("  Model:    %s\n", device.Model))
	content.WriteString(fmt.Sprintf("  Address:  %s\n", device.Address))
	content.WriteString(fmt.Sprintf("  Signal:   %d dBm\n", device.RSSI))

	state := device.StateSummary()
	var stateStyle lipgloss.Style
	switch {
	case state == "unknown":
		stateStyle = StateUnknownStyle
	case strings.Contains(state, "on"):
		stateStyle = StateOnStyle
	default:
		stateStyle = StateOffStyle
	}
	content.WriteString(fmt.Sprintf("  State:    %s", stateStyle.Render(state)))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2)

	cardWidth := d.width - 6
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}
	cardStyle = cardStyle.Width(cardWidth)

	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// ScanModel represents the device scan screen state
type ScanModel struct {
	adapter ble.Adapter

	// Scan state
	Scanning   bool
	DeviceList list.Model
	Err        error

	// Flags the coordinator acts on
	Selected      bool
	QuitRequested bool

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          scanKeyMap
}

// NewScanModel creates a new scan screen model
func NewScanModel(adapter ble.Adapter) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	delegate := deviceDelegate{width: MinTerminalWidth}
	deviceList := list.New([]list.Item{}, delegate, 0, 0)
	deviceList.Title = "Discovered Plugs"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	keys := scanKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	return ScanModel{
		adapter:     adapter,
		DeviceList:  deviceList,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys:        keys,
	}
}

// Init starts scanning immediately
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanForPlugs(m.adapter),
		m.Spinner.Tick,
	)
}

// scanForPlugs runs one bounded BLE scan off the UI goroutine
func scanForPlugs(adapter ble.Adapter) tea.Cmd {
	return func() tea.Msg {
		devices, err := discovery.NewScanner(adapter).Scan(context.Background(), scanDuration)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

// Update handles messages and updates the model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			if !m.Scanning {
				m.QuitRequested = true
				return m, nil
			}

		case "enter", " ":
			if !m.Scanning && m.DeviceList.SelectedItem() != nil {
				m.Selected = true
				return m, nil
			}

		case "r":
			if !m.Scanning {
				m.DeviceList.SetItems([]list.Item{})
				m.Err = nil
				return m, tea.Batch(
					func() tea.Msg { return scanStartMsg{} },
					scanForPlugs(m.adapter),
					m.Spinner.Tick,
				)
			}
		}

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, dev := range msg.devices {
			items[i] = deviceItem{device: dev}
		}
		m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}
	return m, cmd
}

// resizeList keeps the list sized to the terminal
func (m *ScanModel) resizeList() {
	if m.Width > 0 {
		m.DeviceList.SetWidth(m.Width - 4)
		m.DeviceList.SetHeight(m.Height - 10)
	}
}

// SelectedDevice returns the picked device, if any
func (m ScanModel) SelectedDevice() *discovery.Device {
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

// View renders the scan screen
func (m ScanModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var content string
	if m.Scanning {
		content = m.renderScanning(width)
	} else {
		content = m.renderResults()
	}

	var helpText string
	if m.Scanning {
		helpText = "scanning..."
	} else {
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders the centered scanning progress display
func (m ScanModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	progressFloat := float64(elapsed) / float64(scanDuration)
	if progressFloat > 1 {
		progressFloat = 1
	}

	title := fmt.Sprintf("%s SEARCHING FOR PLUGS", m.Spinner.View())
	subtitle := "Listening for Govee plug broadcasts..."
	progressBar := m.ProgressBar.ViewAs(progressFloat)
	elapsedText := fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(title),
		"",
		SubtitleStyle.Render(subtitle),
		"",
		progressBar,
		"",
		SubtitleStyle.Render(elapsedText),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderResults renders the device list or the empty/error state
func (m ScanModel) renderResults() string {
	var b strings.Builder

	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Check that Bluetooth is enabled\n")
		b.WriteString("    • On Linux, verify BlueZ is running (systemctl status bluetooth)\n")
		b.WriteString("    • Press 'r' to rescan\n")

	} else if len(m.DeviceList.Items()) == 0 {
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString("  ")
		b.WriteString(warningStyle.Render("⚠ No plugs heard"))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Plugs only broadcast while powered\n")
		b.WriteString("    • Move closer to the plug\n")
		b.WriteString("    • Press 'r' to rescan\n")
		b.WriteString("\n")

	} else {
		b.WriteString(m.DeviceList.View())
	}

	return b.String()
}
