// Package tui provides a terminal picker that routes teleport consumers to
// live labels.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/littleutils/cvmod/registry"
)

// RefreshInterval is how often the picker re-reads the menus.
const RefreshInterval = 200 * time.Millisecond

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd7ff"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	checkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d75f"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
)

// A Consumer is a module whose label can be picked from a menu.
type Consumer interface {
	Name() string
	Label() string
	Menu() []registry.MenuItem
	Select(requested string) string
}

type refreshMsg time.Time

// Model is the bubbletea model of the picker.
type Model struct {
	consumers []Consumer
	focus     int
	cursor    int
	menu      []registry.MenuItem
	status    string
	quitting  bool
}

// NewModel creates a picker over consumers.
func NewModel(consumers []Consumer) Model {
	m := Model{consumers: consumers}
	m.reloadMenu()
	m.cursor = m.checkedRow()

	return m
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Init starts the periodic refresh.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles key presses and refreshes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab", "right", "l":
			m.moveFocus(1)
		case "shift+tab", "left", "h":
			m.moveFocus(-1)
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.menu) {
				m.cursor++
			}
		case "enter", " ":
			m.selectCursor()
		}

	case refreshMsg:
		m.reloadMenu()
		return m, tick()
	}

	return m, nil
}

func (m *Model) moveFocus(delta int) {
	if len(m.consumers) == 0 {
		return
	}

	m.focus = (m.focus + delta + len(m.consumers)) % len(m.consumers)
	m.status = ""
	m.reloadMenu()
	m.cursor = m.checkedRow()
}

// Row 0 disconnects, row i selects menu[i-1].
func (m *Model) selectCursor() {
	c := m.focused()
	if c == nil {
		return
	}

	requested := ""
	if m.cursor > 0 {
		requested = m.menu[m.cursor-1].Label
	}

	got := c.Select(requested)

	switch {
	case got == "":
		m.status = c.Name() + " disconnected"
	case got != requested:
		m.status = fmt.Sprintf("%s vanished, %s keeps %s",
			requested, c.Name(), got)
	default:
		m.status = c.Name() + " <- " + got
	}

	m.reloadMenu()
	m.cursor = m.checkedRow()
}

func (m *Model) reloadMenu() {
	c := m.focused()
	if c == nil {
		m.menu = nil
		return
	}

	m.menu = c.Menu()
	if m.cursor > len(m.menu) {
		m.cursor = len(m.menu)
	}
}

func (m Model) focused() Consumer {
	if len(m.consumers) == 0 {
		return nil
	}

	return m.consumers[m.focus]
}

func (m Model) checkedRow() int {
	for i, item := range m.menu {
		if item.Checked {
			return i + 1
		}
	}

	return 0
}

// View renders the consumers and the menu of the focused one.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("cvmod teleport labels"))
	b.WriteString("\n\n")

	if len(m.consumers) == 0 {
		b.WriteString(dimStyle.Render("no teleport outputs in this patch"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("q:quit"))

		return b.String()
	}

	for i, c := range m.consumers {
		label := c.Label()
		if label == "" {
			label = "-"
		}

		line := fmt.Sprintf("%-16s %s", c.Name(), label)
		if i == m.focus {
			line = focusStyle.Render("> " + line)
		} else {
			line = dimStyle.Render("  " + line)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")

	rows := make([]string, 0, len(m.menu)+1)
	rows = append(rows, "(none)")
	for _, item := range m.menu {
		mark := "  "
		if item.Checked {
			mark = checkedStyle.Render("✔ ")
		}

		rows = append(rows, fmt.Sprintf("%s%s  %+6.2fV", mark, item.Label, item.Value))
	}

	for i, row := range rows {
		if i == m.cursor {
			row = cursorStyle.Render(row)
		}

		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("tab:next  j/k:move  enter:select  q:quit"))

	return b.String()
}

// Run shows the picker until the user quits.
func Run(consumers []Consumer, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(NewModel(consumers), opts...).Run()
	return err
}
