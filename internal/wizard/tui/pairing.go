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
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/discovery"
	"github.com/muurk/goveeplug/internal/plug"
)

// Messages for pairing progress
type pairDoneMsg struct {
	token string
	err   error
}
type pairFailedMsg struct{ err error }
type retryTickMsg struct{}

// pairingKeyMap defines key bindings for the pairing screen
type pairingKeyMap struct {
	Back key.Binding
	Quit key.Binding
}

func (k pairingKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

func (k pairingKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Back, k.Quit}}
}

// PairingModel represents the pairing screen state
type PairingModel struct {
	adapter ble.Adapter
	device  *discovery.Device

	pairer *plug.Pairer
	cancel context.CancelFunc

	// Progress state
	Pairing bool
	Retries int
	Err     error

	// Flags the coordinator acts on
	Done          bool
	Token         string
	Failed        bool
	BackRequested bool
	QuitRequested bool

	// UI state
	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    pairingKeyMap
}

// NewPairingModel creates a pairing screen bound to one discovered plug
func NewPairingModel(adapter ble.Adapter, device *discovery.Device) PairingModel {
	s := spinner.New()
	s.Spinner = spinner.Pulse
	s.Style = SpinnerStyle

	keys := pairingKeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return PairingModel{
		adapter: adapter,
		device:  device,
		Spinner: s,
		Help:    help.New(),
		Keys:    keys,
	}
}

// Init starts the pairing exchange
func (m PairingModel) Init() tea.Cmd {
	return tea.Batch(m.startPairing(), m.Spinner.Tick)
}

// startPairing creates the pairer and opens the exchange off the UI goroutine
func (m PairingModel) startPairing() tea.Cmd {
	return func() tea.Msg {
		pairer, err := plug.NewPairer(m.adapter, m.device.Address, m.device.Model, plug.DefaultOptions())
		if err != nil {
			return pairFailedMsg{err: err}
		}
		if err := pairer.Begin(context.Background()); err != nil {
			return pairFailedMsg{err: err}
		}
		return pairerReadyMsg{pairer: pairer}
	}
}

type pairerReadyMsg struct{ pairer *plug.Pairer }

// awaitKey blocks until the plug issues its key or the exchange is cancelled
func awaitKey(pairer *plug.Pairer, ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		token, err := pairer.Finish(ctx)
		return pairDoneMsg{token: token, err: err}
	}
}

// retryTick polls the pairer's decline counter for the liveness display
func retryTick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return retryTickMsg{}
	})
}

// Update handles messages and updates the model
func (m PairingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.Shutdown()
			m.BackRequested = true
			return m, nil
		case "q":
			m.Shutdown()
			m.QuitRequested = true
			return m, nil
		case "r":
			if m.Failed {
				m.Failed = false
				m.Err = nil
				return m, m.Init()
			}
		}

	case pairerReadyMsg:
		m.pairer = msg.pairer
		m.Pairing = true
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		return m, tea.Batch(awaitKey(m.pairer, ctx), retryTick())

	case pairDoneMsg:
		m.Pairing = false
		if m.pairer != nil {
			_ = m.pairer.Close()
		}
		if msg.err != nil {
			m.Failed = true
			m.Err = msg.err
			return m, nil
		}
		m.Done = true
		m.Token = msg.token
		return m, nil

	case pairFailedMsg:
		m.Pairing = false
		m.Failed = true
		m.Err = msg.err
		return m, nil

	case retryTickMsg:
		if m.Pairing && m.pairer != nil {
			m.Retries = m.pairer.Retries()
			return m, retryTick()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Shutdown cancels an in-flight exchange and disconnects
func (m *PairingModel) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.pairer != nil {
		_ = m.pairer.Close()
	}
}

// View renders the pairing screen
func (m PairingModel) View() string {
	var content string
	switch {
	case m.Failed:
		content = m.renderFailed()
	default:
		content = m.renderPairing()
	}

	helpText := m.Help.View(m.Keys)
	if m.Failed {
		helpText = "r retry • esc back • q quit"
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderPairing renders the hold-the-button instructions and live progress
func (m PairingModel) renderPairing() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	title := fmt.Sprintf("%s PAIRING WITH %s", m.Spinner.View(), m.device.Name)

	instructions := InfoBoxStyle.Render(strings.Join([]string{
		"Hold the power button on the plug until its LED flashes.",
		"",
		"The plug declines pairing until the button is held; the retry",
		"counter below moving means the plug is alive and waiting for you.",
	}, "\n"))

	status := fmt.Sprintf("Address: %s    Model: %s", m.device.Address, m.device.Model)
	retries := fmt.Sprintf("Declined so far: %d", m.Retries)

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(title),
		SubtitleStyle.Render(status),
		instructions,
		SubtitleStyle.Render(retries),
		"",
	)

	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderFailed renders the failure state with a retry hint
func (m PairingModel) renderFailed() string {
	var b strings.Builder

	b.WriteString(RenderTitle("✗ Pairing Failed"))
	b.WriteString("\n\n")
	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n\n")
	}
	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Make sure the plug is powered and in range\n")
	b.WriteString("    • Hold the button until the LED flashes, then retry\n")
	b.WriteString("\n")
	b.WriteString(RenderMenuItem("r - Retry pairing", false))
	b.WriteString("\n")
	b.WriteString(RenderMenuItem("esc - Back to scan", false))
	b.WriteString("\n")

	return b.String()
}
