// SPDX-License-Identifier: MIT

// Package tui renders the live metrics in the terminal: a volume gauge,
// the dominant frequency, and the banded spectral envelope.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"micscope/internal/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// Controller is the command surface the meter drives: the two session
// commands, both idempotent.
type Controller interface {
	Start() error
	Stop()
}

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys("s", " ")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

type tickMsg time.Time

// MeterModel is the Bubble Tea model for the live metrics view. It polls
// the presentation state on every frame tick; the analysis core never
// knows the view exists.
type MeterModel struct {
	controller Controller
	st         *state.State
	interval   time.Duration
	width      int
	height     int
}

// NewMeterModel creates a meter over st driving controller, refreshing
// every interval.
func NewMeterModel(controller Controller, st *state.State, interval time.Duration) MeterModel {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return MeterModel{
		controller: controller,
		st:         st,
		interval:   interval,
		width:      80,
		height:     24,
	}
}

func (m MeterModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the session and the render ticker.
func (m MeterModel) Init() tea.Cmd {
	m.controller.Start()
	return m.tick()
}

// Update handles input and frame ticks.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.controller.Stop()
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if m.st.IsRecording() {
				m.controller.Stop()
			} else {
				m.controller.Start()
			}
		}
	}
	return m, nil
}

// View renders the meter.
func (m MeterModel) View() string {
	snap := m.st.Snapshot()

	var status string
	switch {
	case snap.Error != "":
		status = errorStyle.Render("✗ " + snap.Error)
	case snap.IsRecording:
		status = liveStyle.Render("● LIVE")
	default:
		status = infoStyle.Render("○ stopped")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("micscope"))
	sb.WriteString("  ")
	sb.WriteString(status)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Frequency: %6d Hz\n", snap.Metrics.FrequencyHz))
	sb.WriteString(fmt.Sprintf("  Volume:    %6d     %s\n\n", snap.Metrics.Volume,
		renderGauge(float64(snap.Metrics.Volume), 100, max(m.width-28, 10))))

	barHeight := m.height - 10
	if barHeight < 4 {
		barHeight = 4
	}
	sb.WriteString(renderBands(snap.Metrics.Bands, barHeight))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("  s/space: start/stop • q: quit"))

	return sb.String()
}

// renderGauge draws a horizontal bar for value in [0,max].
func renderGauge(value, max float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := int(value / max * float64(width))
	return liveStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

// renderBands draws the envelope as vertical bar columns, values in
// [0,100], two cells per band.
func renderBands(bands []float64, height int) string {
	if len(bands) == 0 {
		return ""
	}

	rows := make([]string, height)
	for row := 0; row < height; row++ {
		var line strings.Builder
		line.WriteString("  ")
		for _, v := range bands {
			level := v / 100 * float64(height)
			rowFromBottom := float64(height - 1 - row)
			charIdx := 0
			if level > rowFromBottom+1 {
				charIdx = len(barChars) - 1
			} else if level > rowFromBottom {
				charIdx = int((level - rowFromBottom) * float64(len(barChars)-1))
			}
			line.WriteRune(barChars[charIdx])
			line.WriteRune(barChars[charIdx])
		}
		rows[row] = liveStyle.Render(line.String())
	}
	return strings.Join(rows, "\n")
}

// Run launches the meter UI and blocks until the user quits.
func Run(controller Controller, st *state.State, interval time.Duration) error {
	p := tea.NewProgram(
		NewMeterModel(controller, st, interval),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
