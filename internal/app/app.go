package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/credential"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/store"
	appsync "github.com/nhle/outreach-inbox/internal/sync"
	"github.com/nhle/outreach-inbox/internal/ui"
	"github.com/nhle/outreach-inbox/internal/ui/analytics"
	"github.com/nhle/outreach-inbox/internal/ui/command"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/config"
	"github.com/nhle/outreach-inbox/internal/ui/contacts"
	"github.com/nhle/outreach-inbox/internal/ui/detail"
	helpview "github.com/nhle/outreach-inbox/internal/ui/help"
	"github.com/nhle/outreach-inbox/internal/ui/inbox"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Backend is everything the views need from the outreach API.
type Backend interface {
	ListEmails(ctx context.Context, q api.EmailQuery) ([]model.Email, error)
	SendEmail(ctx context.Context, req model.SendEmailRequest) error
	MarkThreadRead(ctx context.Context, threadID string) error
	UnreadCount(ctx context.Context) (int, error)
	ListLabels(ctx context.Context) ([]string, error)
	UpdateLabel(ctx context.Context, emailID, label string) error
	ListLeads(ctx context.Context, q api.LeadQuery) (*model.LeadsPage, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	GetAnalytics(ctx context.Context, campaignID string) (model.Analytics, error)

	BaseURL() string
	HasToken() bool
	SetToken(token string)
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewDetail
	ViewCompose
	ViewContacts
	ViewAnalytics
	ViewSettings
	ViewHelp
	ViewCommand
)

// Model is the root Bubble Tea model. It routes messages between the
// views and owns the shared cache, poller and toasts.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	cache        *query.Cache
	backend      Backend
	poller       *appsync.Poller

	inbox       inbox.Model
	detail      detail.Model
	compose     compose.Model
	contacts    contacts.Model
	analytics   analytics.Model
	settings    config.Model
	helpView    helpview.Model
	commandView command.Model
	toasts      toast.Model

	contactsStarted  bool
	analyticsStarted bool

	ready       bool
	unreadCount int
}

// New creates the root model. open hands contact links to the OS and
// creds persists the API token.
func New(b Backend, s store.EmailStore, cfg *model.AppConfig, open contacts.Opener, creds config.Credentials) Model {
	k := keys.DefaultKeyMap()
	cache := query.New()

	in := inbox.New(b, cache, s, k, cfg.Inbox, 80, 24)
	return Model{
		currentView: ViewInbox,
		keys:        k,
		cache:       cache,
		backend:     b,
		poller:      appsync.New(b, cfg.Poll.UnreadInterval),
		inbox:       in,
		detail:      detail.New(b, cache, in.Send, k, cfg.Export.Dir, 80, 24),
		compose:     compose.New(in.Send, 80, 24),
		contacts: contacts.New(b, cache, k, cfg.Contacts,
			cfg.Campaigns.StaleTime, open, 80, 24),
		analytics:   analytics.New(b, cache, k, cfg.Campaigns.StaleTime, 80, 24),
		settings:    config.New(b, creds, credential.EnvOverride(), k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		toasts:      toast.New(),
	}
}

// Init loads the inbox and starts the unread-count poller.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.inbox.Init(),
		m.poller.Start(),
	)
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// UnreadCount returns the last polled unread count.
func (m Model) UnreadCount() int { return m.unreadCount }

// Update handles messages and dispatches to the views.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inbox.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.compose.SetSize(w, h)
		m.contacts.SetSize(w, h)
		m.analytics.SetSize(w, h)
		m.settings.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		return m.updateActiveView(msg)

	case toast.ShowMsg, toast.ExpiredMsg:
		var cmd tea.Cmd
		m.toasts, cmd = m.toasts.Update(msg)
		return m, cmd

	case appsync.UnreadCountMsg:
		if msg.Err == nil {
			m.unreadCount = msg.Count
		}
		return m, m.poller.WaitForNextResult()

	case inbox.OpenedMsg:
		m.detail.SetEmail(msg.Email)
		m.switchTo(ViewDetail)
		return m, nil

	case inbox.SelectionLoadedMsg:
		e := msg.Email
		if msg.Err != nil {
			// Show the best copy available instead of waiting forever.
			if e.Body.IsEmpty() {
				e.Body.Text = e.ContentPreview
			}
			e.Preview = false
		}
		m.detail.UpdateEmail(e)
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(msg)
		return m, cmd

	case inbox.MarkReadMsg:
		if msg.Err == nil {
			m.poller.Refresh()
		}
		var cmd tea.Cmd
		m.inbox, cmd = m.inbox.Update(msg)
		return m, cmd

	case compose.OpenMsg:
		return m, m.openCompose(msg.Params)

	case compose.ClosedMsg:
		m.currentView = m.previousView
		if m.currentView == ViewCompose {
			m.currentView = ViewInbox
		}
		if msg.Sent {
			m.poller.Refresh()
			return m, m.inbox.Refresh()
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewInbox
		return m, nil

	case detail.ReplySentMsg:
		m.poller.Refresh()
		return m, m.inbox.Refresh()

	case detail.LabelChangedMsg:
		return m, m.inbox.Refresh()

	case config.DoneMsg:
		m.currentView = m.previousView
		if m.currentView == ViewSettings {
			m.currentView = ViewInbox
		}
		return m, nil

	case config.TokenChangedMsg:
		m.backend.SetToken(msg.Token)
		m.cache.Invalidate(query.Key{})
		m.poller.Refresh()
		return m, m.refreshActive()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
		return m.updateActiveView(msg)
	}

	return m.broadcast(msg)
}

// broadcast delivers a non-key message to every data view, so results
// that arrive after the user navigated away still land, and to the
// active overlay.
func (m Model) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.inbox, cmd = m.inbox.Update(msg)
	cmds = append(cmds, cmd)
	m.detail, cmd = m.detail.Update(msg)
	cmds = append(cmds, cmd)
	m.contacts, cmd = m.contacts.Update(msg)
	cmds = append(cmds, cmd)
	m.analytics, cmd = m.analytics.Update(msg)
	cmds = append(cmds, cmd)
	m.settings, cmd = m.settings.Update(msg)
	cmds = append(cmds, cmd)

	switch m.currentView {
	case ViewCompose:
		m.compose, cmd = m.compose.Update(msg)
		cmds = append(cmds, cmd)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCompose:
		m.compose, cmd = m.compose.Update(msg)
	case ViewContacts:
		m.contacts, cmd = m.contacts.Update(msg)
	case ViewAnalytics:
		m.analytics, cmd = m.analytics.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// switchTo makes v the active view, remembering where we came from.
func (m *Model) switchTo(v ViewState) {
	if m.currentView == v {
		return
	}
	m.previousView = m.currentView
	m.currentView = v
}

// showContacts switches to the contacts table, loading it on first use.
func (m *Model) showContacts() tea.Cmd {
	m.switchTo(ViewContacts)
	if m.contactsStarted {
		return nil
	}
	m.contactsStarted = true
	return m.contacts.Init()
}

// showAnalytics switches to the analytics panel, loading it on first use.
func (m *Model) showAnalytics() tea.Cmd {
	m.switchTo(ViewAnalytics)
	if m.analyticsStarted {
		return nil
	}
	m.analyticsStarted = true
	return m.analytics.Init()
}

// showSettings switches to the connection settings view.
func (m *Model) showSettings() tea.Cmd {
	m.switchTo(ViewSettings)
	return nil
}

// openCompose opens the dialog. Composing from the contacts table
// returns to the inbox, where the sent message will show up.
func (m *Model) openCompose(p compose.Params) tea.Cmd {
	back := m.currentView
	if back == ViewContacts || back == ViewSettings || back == ViewHelp || back == ViewCommand {
		back = ViewInbox
	}
	m.previousView = back
	m.currentView = ViewCompose
	return m.compose.Open(p)
}

// capturing reports whether the active view consumes raw keystrokes, in
// which case global shortcuts must not fire.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewCompose, ViewCommand:
		return true
	case ViewInbox:
		return m.inbox.Capturing()
	case ViewDetail:
		return m.detail.Capturing()
	case ViewContacts:
		return m.contacts.Capturing()
	case ViewSettings:
		return m.settings.Capturing()
	}
	return false
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Outreach Inbox"
	if m.unreadCount > 0 {
		title = fmt.Sprintf("Outreach Inbox [%d unread]", m.unreadCount)
	}
	header := m.layout.RenderHeader(title, m.tabs())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toasts.View())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewInbox:
		return m.inbox.View()
	case ViewDetail:
		return m.detail.View()
	case ViewCompose:
		return m.compose.View()
	case ViewContacts:
		return m.contacts.View()
	case ViewAnalytics:
		return m.analytics.View()
	case ViewSettings:
		return m.settings.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// tabs renders the top-level view names with the active one marked.
func (m Model) tabs() string {
	active := m.currentView
	if active == ViewDetail || active == ViewCompose {
		active = ViewInbox
	}
	if active == ViewHelp || active == ViewCommand {
		active = m.previousView
	}

	names := []struct {
		view ViewState
		name string
	}{
		{ViewInbox, "I Inbox"},
		{ViewContacts, "C Contacts"},
		{ViewAnalytics, "A Analytics"},
		{ViewSettings, "S Connection"},
	}
	parts := make([]string, len(names))
	for i, n := range names {
		if n.view == active {
			parts[i] = lipgloss.NewStyle().Underline(true).Render(n.name)
		} else {
			parts[i] = n.name
		}
	}
	return strings.Join(parts, "  ")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewCompose:
		return "tab next field | enter send | esc cancel"
	case ViewDetail:
		if m.detail.ReplyOpen() {
			return "ctrl+s send | esc cancel"
		}
		return "esc back | R reply | L label | x export | j/k scroll"
	case ViewContacts:
		return "f filter | 1-6 sort | [ ] page | s size | c email | o LinkedIn | p call"
	case ViewAnalytics:
		return "tab campaign | r refresh | I inbox"
	case ViewSettings:
		if m.settings.Capturing() {
			return "enter confirm | esc cancel"
		}
		return "enter test | t token | d remove | esc back"
	default:
		if m.inbox.Capturing() {
			return "enter apply | esc clear"
		}
		return "q quit | ? help | / search | tab sort | l label | n compose | r refresh"
	}
}

// refreshActive reloads whatever the user is looking at and polls the
// unread count.
func (m *Model) refreshActive() tea.Cmd {
	m.poller.Refresh()
	switch m.currentView {
	case ViewContacts:
		return m.contacts.Refresh()
	case ViewAnalytics:
		return m.analytics.Refresh()
	default:
		return m.inbox.Refresh()
	}
}

// quit stops background work and exits.
func (m Model) quit() tea.Cmd {
	m.poller.Stop()
	slog.Info("exiting")
	return tea.Quit
}
