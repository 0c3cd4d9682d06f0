package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/theme"
)

// Command names understood by the root model.
const (
	Inbox     = "inbox"
	Contacts  = "contacts"
	Analytics = "analytics"
	Settings  = "settings"
	Compose   = "compose"
	Refresh   = "refresh"
	Help      = "help"
	Quit      = "quit"
)

// Names lists every command, offered as completions.
var Names = []string{Inbox, Contacts, Analytics, Settings, Compose, Refresh, Help, Quit}

// CommandMsg is emitted when the user executes a command. The first word
// is the command name, the rest are its arguments.
type CommandMsg string

// Name returns the command word, lowercased.
func (c CommandMsg) Name() string {
	fields := strings.Fields(string(c))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Args returns the words after the command name.
func (c CommandMsg) Args() []string {
	fields := strings.Fields(string(c))
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "inbox, contacts, analytics, compose [to], refresh, quit"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left, title, input,
		theme.HelpStyle.Render("tab complete · enter run · esc close"))

	return theme.PanelStyle.
		Width(max(m.width-4, 20)).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
