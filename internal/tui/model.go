// Package tui renders a live dashboard for a running node: current role,
// stream counters, and a rolling log of link traffic. It is built on the
// bubbletea/lipgloss stack and feeds operator key presses back into the
// node's console.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/airwire/airwire/internal/console"
	"github.com/airwire/airwire/internal/metrics"
	"github.com/airwire/airwire/internal/node"
)

// ---------------------------------------------------------------------------
// Shared styles
// ---------------------------------------------------------------------------

var (
	// titleStyle renders the application title bar.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	// txBadgeStyle renders the role badge while transmitting.
	txBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Padding(0, 1)

	// rxBadgeStyle renders the role badge while listening.
	rxBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("2")).
			Padding(0, 1)

	// counterStyle renders the counters row.
	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// dimStyle is used for "no traffic yet" hints.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	// statusBarStyle renders the bottom status bar.
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)
)

// ---------------------------------------------------------------------------
// Tea messages
// ---------------------------------------------------------------------------

// tickMsg refreshes the counters row.
type tickMsg time.Time

// lineMsg carries one display line from the node's console.
type lineMsg string

// evMsg carries one node event.
type evMsg node.Event

// feedClosedMsg signals that the node shut its feeds down.
type feedClosedMsg struct{}

const (
	refreshInterval = time.Second
	logKeep         = 256
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// Options wires the dashboard to a running node.
type Options struct {
	Console  *console.Channel
	Events   <-chan node.Event
	Metrics  *metrics.Metrics
	NodeName string
	LinkKind string
}

// Model is the top-level bubbletea model for the node dashboard.
type Model struct {
	con      *console.Channel
	events   <-chan node.Event
	metrics  *metrics.Metrics
	nodeName string
	linkKind string

	role   string
	snap   map[string]int64
	log    []string
	width  int
	height int
}

// New returns a Model attached to the given node feeds.
func New(opts Options) Model {
	return Model{
		con:      opts.Console,
		events:   opts.Events,
		metrics:  opts.Metrics,
		nodeName: opts.NodeName,
		linkKind: opts.LinkKind,
		role:     "receiver",
		snap:     map[string]int64{},
	}
}

// Init starts the counter tick and the feed listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitLine(m.con), waitEvent(m.events))
}

// tick schedules a tickMsg after refreshInterval.
func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitLine blocks for the next console display line.
func waitLine(c *console.Channel) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-c.Lines()
		if !ok {
			return feedClosedMsg{}
		}
		return lineMsg(line)
	}
}

// waitEvent blocks for the next node event.
func waitEvent(events <-chan node.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return evMsg(e)
	}
}

// Update processes messages and returns an updated model plus any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "t", "T":
			m.con.Push('T')
		case "r", "R":
			m.con.Push('R')
		}
		return m, nil

	case tickMsg:
		m.snap = m.metrics.Snapshot()
		return m, tick()

	case lineMsg:
		m.log = append(m.log, string(msg))
		if len(m.log) > logKeep {
			m.log = m.log[len(m.log)-logKeep:]
		}
		return m, waitLine(m.con)

	case evMsg:
		if msg.Type == node.EventRole {
			if strings.Contains(msg.Text, "transmit") {
				m.role = "transmitter"
			} else {
				m.role = "receiver"
			}
		}
		return m, waitEvent(m.events)

	case feedClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the dashboard to a string.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var sb strings.Builder

	title := titleStyle.Render(fmt.Sprintf("  airwire %s on %s link  ", m.nodeName, m.linkKind))
	badge := rxBadgeStyle.Render(" RX ")
	if m.role == "transmitter" {
		badge = txBadgeStyle.Render(" TX ")
	}
	sb.WriteString(title)
	sb.WriteString(" ")
	sb.WriteString(badge)
	sb.WriteString("\n")

	sb.WriteString(counterStyle.Render(fmt.Sprintf(
		"bursts %d (aborted %d)  frames sent %d  send failures %d  frames received %d  role switches %d",
		m.snap["bursts"], m.snap["bursts_aborted"], m.snap["frames_sent"],
		m.snap["send_failures"], m.snap["frames_received"], m.snap["role_switches"],
	)))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	contentHeight := m.height - 5 // title(1) + counters(1) + divider(1) + status(2)
	if contentHeight < 1 {
		contentHeight = 1
	}
	if len(m.log) == 0 {
		sb.WriteString(dimStyle.Render("no traffic yet, press t to start a burst"))
		sb.WriteString("\n")
	} else {
		start := 0
		if len(m.log) > contentHeight {
			start = len(m.log) - contentHeight
		}
		for _, line := range m.log[start:] {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Render("t: transmit  r: receive  q: quit"))

	return sb.String()
}

// Run drives the dashboard until the operator quits or ctx is cancelled.
// Cancellation is a normal way to stop, not an error.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
