// Package ui provides the Bubble Tea TUI for the wallet session.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/walletgate/business/wallet/domain"
	"github.com/fd1az/walletgate/internal/networks"
	"github.com/fd1az/walletgate/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	session  *components.SessionComponent
	nets     *components.NetworksComponent
	activity *components.ActivityComponent
	links    *components.StatusComponent

	keys KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready      bool
	quitting   bool
	width      int
	height     int
	status     domain.ConnectionStatus
	seenStatus bool
	events     uint64
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string     // Recent log messages

	// Startup state
	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		session:      components.NewSessionComponent(),
		nets:         components.NewNetworksComponent(),
		activity:     components.NewActivityComponent(8),
		links:        components.NewStatusComponent(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStep{
			"config":   {Name: "Loading configuration", Status: "pending"},
			"provider": {Name: "Detecting wallet provider", Status: "pending"},
			"session":  {Name: "Establishing session", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			// Trigger callback directly (don't use Send() from within Update)
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		// Normal key handling
		switch {
		case key.Matches(msg, m.keys.Connect):
			if OnConnect != nil {
				go OnConnect()
			}
			return m, nil
		case key.Matches(msg, m.keys.Disconnect):
			if OnDisconnect != nil {
				go OnDisconnect()
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			if OnRefresh != nil {
				go OnRefresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.errors = make([]ErrorEntry, 0, 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		// Check if welcome timeout has elapsed
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			// Trigger callback directly (don't use Send() from within Update)
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case StatusMsg:
		m.status = msg.Status
		m.seenStatus = true
		m.events++
		m.lastUpdate = time.Now()

		info := components.SessionInfo{State: string(msg.Status.State)}
		if msg.Status.Err != nil {
			info.Error = msg.Status.Err.Error()
		}
		if msg.Status.IsConnected() && msg.Status.Network != nil {
			net := msg.Status.Network.Network()
			info.Account = msg.Status.Account.Hex()
			info.Network = net.Name
			info.ChainID = networks.FormatChainID(net.ChainID)
			m.nets.SetActive(net.ChainID)
		} else {
			m.nets.SetActive(0)
		}
		m.session.Update(info)

		// Update startup steps from the session lifecycle
		if step, ok := m.startupSteps["config"]; ok {
			step.Status = "done"
		}
		if step, ok := m.startupSteps["session"]; ok {
			switch msg.Status.State {
			case domain.StateConnecting:
				step.Status = "connecting"
			case domain.StateConnected:
				step.Status = "connected"
			case domain.StateDisconnected:
				if msg.Status.Err != nil {
					step.Status = "failed"
				}
			}
		}
		if msg.Status.IsConnected() {
			if step, ok := m.startupSteps["provider"]; ok {
				step.Status = "connected"
			}
		}

		// Surface the snapshot error in the persistent panel
		if msg.Status.Err != nil {
			m.errors = append(m.errors, ErrorEntry{
				Message:   msg.Status.Err.Error(),
				Timestamp: time.Now(),
			})
			if len(m.errors) > 3 {
				m.errors = m.errors[len(m.errors)-3:]
			}
		}

	case BalanceMsg:
		m.session.SetBalance(msg.Balance, msg.Symbol)
		m.lastUpdate = time.Now()

	case NetworksMsg:
		rows := make([]components.NetworkRow, 0, len(msg.Networks))
		for _, n := range msg.Networks {
			rows = append(rows, components.NetworkRow{
				ChainID: n.ChainID,
				HexID:   networks.FormatChainID(n.ChainID),
				Name:    n.Name,
				Symbol:  n.NativeSymbol,
			})
		}
		m.nets.SetNetworks(rows)

	case ActivityMsg:
		m.activity.Add(msg.Message)
		m.events++
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.links.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

		// A live transport means configuration loaded and provider reachable
		if step, ok := m.startupSteps["config"]; ok {
			step.Status = "done"
		}
		if step, ok := m.startupSteps["provider"]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else if step.Status != "connected" {
				step.Status = "connecting"
			}
		}

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		// Add to persistent errors (keep last 3)
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		// Check if all steps are complete
		allConnected := true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				allConnected = false
				break
			}
		}
		if allConnected {
			m.startupComplete = true
		}
	}

	return m, nil
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	// Phase-based rendering
	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		// Show startup until the session publishes its first snapshot
		if !m.seenStatus && !m.startupComplete {
			return m.renderStartupScreen()
		}
		// Transition to dashboard when ready
		m.phase = PhaseDashboard
		fallthrough
	case PhaseDashboard:
		// Continue to main dashboard
	}

	var b strings.Builder

	// Title
	title := TitleStyle.Render(" ⬡ WalletGate ")
	b.WriteString(title)
	b.WriteString("\n\n")

	// Status bar
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Main content: session on left, activity + networks on right
	leftCol := m.session.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.activity.View())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.nets.View())
	rightCol := rightContent.String()

	// Side by side if enough width
	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Recent log lines
	if len(m.logs) > 0 {
		for _, line := range m.logs {
			b.WriteString(MutedValue.Render("  " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Help
	b.WriteString(HelpStyle.Render(m.renderHelp()))

	return b.String()
}

// renderHelp builds the help line from the short help bindings.
func (m Model) renderHelp() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	goldStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F59E0B"))

	mutedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	greenStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	// Center the content vertically
	sb.WriteString("\n\n\n\n")

	// ASCII art logo
	logo := `
    ██████╗  █████╗ ████████╗███████╗
   ██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝
   ██║  ███╗███████║   ██║   █████╗
   ██║   ██║██╔══██║   ██║   ██╔══╝
   ╚██████╔╝██║  ██║   ██║   ███████╗
    ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	// Subtitle
	subtitle := "         W A L L E T   G A T E"
	sb.WriteString(mutedStyle.Render(subtitle))
	sb.WriteString("\n\n\n")

	// Tagline with gold styling
	tagline := "        ⬡  Connect · Sign · Send  ⬡"
	sb.WriteString(goldStyle.Render(tagline))
	sb.WriteString("\n\n\n")

	// Loading indicator
	loading := fmt.Sprintf("              Initializing%s", dots)
	sb.WriteString(greenStyle.Render(loading))
	sb.WriteString("\n\n")

	// Skip hint
	hint := "        Press any key to skip, or wait..."
	sb.WriteString(mutedStyle.Render(hint))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  ⬡ WalletGate"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	// Show startup steps in order
	stepOrder := []string{"config", "provider", "session"}
	for _, name := range stepOrder {
		step, ok := m.startupSteps[name]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			// Animated spinner based on time
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")

	sb.WriteString(mutedStyle.Render("  Waiting for the wallet provider..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	// Session state badge
	switch m.status.State {
	case domain.StateConnected:
		parts = append(parts, StatusConnected.Render("● CONNECTED"))
	case domain.StateConnecting:
		parts = append(parts, StatusConnecting.Render("◐ CONNECTING"))
	default:
		parts = append(parts, StatusDisconnected.Render("○ DISCONNECTED"))
	}

	// Connected network
	if m.status.IsConnected() && m.status.Network != nil {
		net := m.status.Network.Network()
		parts = append(parts, fmt.Sprintf("%s (%s)", net.Name, networks.FormatChainID(net.ChainID)))
	}

	// Session event count
	if m.events > 0 {
		eventStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		parts = append(parts, eventStyle.Render(fmt.Sprintf("Events: %d", m.events)))
	}

	// Transport links
	if links := m.links.View(); links != "" {
		parts = append(parts, links)
	}

	// Last update with activity indicator
	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪" // Recent activity indicator
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Session action callbacks, set by main.go. Fired on their own goroutine:
// the session serializes operations and may block, and Update must not.
var (
	OnConnect    func()
	OnDisconnect func()
	OnRefresh    func()
)

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	// Call OnStartModules callback when StartModulesMsg is sent
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
