// Package config is the connection settings view: the backend address,
// the stored API token and a connection check.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeOverview       Mode = iota // Connection summary
	ModeTokenForm                  // Entering a new token
	ModeConfirmClear               // Confirm token removal
	ModeValidating                 // Testing connection
	ModeValidateResult             // Show validation result
)

// Backend is the part of the API client the view inspects.
type Backend interface {
	BaseURL() string
	HasToken() bool
	UnreadCount(ctx context.Context) (int, error)
}

// Credentials persists the API token.
type Credentials interface {
	SaveToken(token string) error
	ClearToken() error
}

// DoneMsg signals the view should close.
type DoneMsg struct{}

// TokenChangedMsg is dispatched after the stored token changed. The
// receiver applies Token to the client; "" means unauthenticated.
type TokenChangedMsg struct {
	Token string
}

// ValidateResultMsg carries the outcome of a connection check.
type ValidateResultMsg struct {
	Seq    int
	Unread int
	Err    error
}

type tokenSavedMsg struct {
	token string
	err   error
}

// tokenBindings keeps huh's Value pointers stable across model copies.
type tokenBindings struct {
	token   string
	confirm bool
}

// Model is the Bubble Tea model for the connection settings view.
type Model struct {
	mode        Mode
	backend     Backend
	creds       Credentials
	envOverride bool
	keys        *keys.KeyMap

	tokenForm    *huh.Form
	confirmClear *huh.Form
	fb           *tokenBindings

	// seq identifies the latest connection check; older results are dropped.
	seq         int
	validUnread int
	validError  error
	spinner     spinner.Model

	statusMsg string

	width, height int
}

// New creates the settings view. envOverride reports that the token
// comes from the environment and the keyring entry is ignored at startup.
func New(b Backend, c Credentials, envOverride bool, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:        ModeOverview,
		backend:     b,
		creds:       c,
		envOverride: envOverride,
		keys:        k,
		fb:          &tokenBindings{},
		spinner:     sp,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Capturing reports whether keystrokes are going to a text input.
func (m Model) Capturing() bool {
	return m.mode == ModeTokenForm || m.mode == ModeConfirmClear
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ValidateResultMsg:
		if msg.Seq != m.seq || m.mode != ModeValidating {
			return m, nil
		}
		m.validUnread = msg.Unread
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case tokenSavedMsg:
		m.mode = ModeOverview
		if msg.err != nil {
			slog.Warn("updating api token failed", "error", msg.err)
			return m, toast.ErrorFor("Could not update token", msg.err, toast.DefaultDuration)
		}
		token := msg.token
		changed := func() tea.Msg { return TokenChangedMsg{Token: token} }
		if token == "" {
			m.statusMsg = "Token removed"
			return m, changed
		}
		m.statusMsg = "Token saved"
		return m, tea.Batch(changed, toast.Success("Token saved", "Requests now use the new token."))

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeOverview:
		return m.handleOverviewKeys(msg)
	case ModeTokenForm, ModeConfirmClear:
		if msg.String() == "esc" {
			m.mode = ModeOverview
			return m, nil
		}
		return m.updateActiveForm(msg)
	case ModeValidating:
		// Only allow escape during validation
		if msg.String() == "esc" {
			m.mode = ModeOverview
			return m, nil
		}
	case ModeValidateResult:
		return m.handleValidateResultKeys(msg)
	}
	return m, nil
}

func (m Model) handleOverviewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }

	case msg.String() == "t":
		m.fb = &tokenBindings{}
		m.statusMsg = ""
		m.tokenForm = m.buildTokenForm()
		m.mode = ModeTokenForm
		return m, m.tokenForm.Init()

	case msg.String() == "d":
		if !m.backend.HasToken() {
			m.statusMsg = "No token to remove"
			return m, nil
		}
		m.fb = &tokenBindings{}
		m.statusMsg = ""
		m.confirmClear = m.buildConfirmClearForm()
		m.mode = ModeConfirmClear
		return m, m.confirmClear.Init()

	case key.Matches(msg, m.keys.Select):
		cmd := m.Validate()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = ModeOverview
		m.validError = nil
		return m, nil
	case "r":
		if m.validError != nil {
			cmd := m.Validate()
			return m, cmd
		}
	}
	return m, nil
}

// Validate starts a connection check against the unread-count endpoint.
func (m *Model) Validate() tea.Cmd {
	m.seq++
	m.mode = ModeValidating
	m.validError = nil
	seq, b := m.seq, m.backend
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			n, err := b.UnreadCount(context.Background())
			return ValidateResultMsg{Seq: seq, Unread: n, Err: err}
		},
	)
}

// SaveToken persists token, or removes the stored token when it is blank.
func (m *Model) SaveToken(token string) tea.Cmd {
	token = strings.TrimSpace(token)
	m.mode = ModeOverview
	c := m.creds
	return func() tea.Msg {
		var err error
		if token == "" {
			err = c.ClearToken()
		} else {
			err = c.SaveToken(token)
		}
		return tokenSavedMsg{token: token, err: err}
	}
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeTokenForm:
		return m.updateTokenForm(msg)
	case ModeConfirmClear:
		return m.updateConfirmClear(msg)
	}
	return m, nil
}

// --- Token form ---

func (m *Model) buildTokenForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Token").
				Description("Sent as a bearer token on every request").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token).
				Validate(validateRequired("Token")),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateTokenForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.tokenForm == nil {
		return m, nil
	}

	mdl, cmd := m.tokenForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.tokenForm = f
	}

	switch m.tokenForm.State {
	case huh.StateCompleted:
		cmd := m.SaveToken(m.fb.token)
		return m, cmd
	case huh.StateAborted:
		m.mode = ModeOverview
		return m, nil
	}
	return m, cmd
}

// --- Clear confirmation ---

func (m *Model) buildConfirmClearForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Remove the stored API token?").
				Description("Requests will be sent without authentication.").
				Affirmative("Yes, remove").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirmClear(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmClear == nil {
		return m, nil
	}

	mdl, cmd := m.confirmClear.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmClear = f
	}

	switch m.confirmClear.State {
	case huh.StateCompleted:
		if m.fb.confirm {
			cmd := m.SaveToken("")
			return m, cmd
		}
		m.mode = ModeOverview
		return m, nil
	case huh.StateAborted:
		m.mode = ModeOverview
		return m, nil
	}
	return m, cmd
}

// --- View ---

// View renders the settings view based on the current mode.
func (m Model) View() string {
	var content string
	switch m.mode {
	case ModeOverview:
		content = m.viewOverview()
	case ModeTokenForm:
		content = m.viewForm(m.tokenForm)
	case ModeConfirmClear:
		content = m.viewForm(m.confirmClear)
	case ModeValidating:
		content = fmt.Sprintf(
			"%s Testing connection...\n\nPress esc to cancel.",
			m.spinner.View(),
		)
	case ModeValidateResult:
		content = m.viewValidateResult()
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

func (m Model) viewOverview() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.MarginBottom(1).Render("Connection"))
	b.WriteString("\n\n")

	token := lipgloss.NewStyle().Foreground(theme.ColorGray).Render("not set")
	if m.backend.HasToken() {
		token = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("set")
	}

	b.WriteString(theme.FieldLabelStyle.Render("Backend:") + " " + m.backend.BaseURL() + "\n")
	b.WriteString(theme.FieldLabelStyle.Render("Token:") + "   " + token + "\n")
	if m.envOverride {
		b.WriteString(theme.MutedStyle.Render("The environment token takes precedence on the next start.") + "\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true).
			Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("enter test | t set token | d remove token | esc back"))
	return b.String()
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return f.View()
}

func (m Model) viewValidateResult() string {
	if m.validError != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		return errStyle.Render("Connection failed") + "\n\n" +
			api.Message(m.validError) + "\n\n" +
			theme.HelpStyle.Render("r retry | enter/esc back")
	}

	okStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorGreen)
	return okStyle.Render("Connection successful") + "\n\n" +
		fmt.Sprintf("%d unread in the inbox", m.validUnread) + "\n\n" +
		theme.HelpStyle.Render("enter/esc back")
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
