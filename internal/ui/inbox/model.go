package inbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/debounce"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/logging"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/store"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Backend is the subset of the API client the inbox needs.
type Backend interface {
	ListEmails(ctx context.Context, q api.EmailQuery) ([]model.Email, error)
	MarkThreadRead(ctx context.Context, threadID string) error
	SendEmail(ctx context.Context, req model.SendEmailRequest) error
}

// EmailsKey prefixes every cached email query. Invalidating it forces
// every email listing to refetch.
var EmailsKey = query.Key{"emails"}

// EmailsLoadedMsg carries the result of a listing. Key identifies the
// view state the listing was requested for.
type EmailsLoadedMsg struct {
	Key    string
	Emails []model.Email
	Err    error
}

// OpenedMsg is sent when the user opens an email.
type OpenedMsg struct {
	Email model.Email
}

// SelectionLoadedMsg carries the full record of an opened email. On
// failure Email holds the best available fallback and Err is set.
type SelectionLoadedMsg struct {
	ID    string
	Email model.Email
	Err   error
}

// MarkReadMsg reports the outcome of marking a thread read.
type MarkReadMsg struct {
	ThreadID string
	Err      error
}

const searchDebounceID = "inbox-search"

// Model is the inbox list view.
type Model struct {
	list    list.Model
	backend Backend
	cache   *query.Cache
	store   store.EmailStore
	keys    *keys.KeyMap
	cfg     model.InboxConfig

	label     string
	sortIndex int
	term      string

	// Filters of the last listing that loaded.
	loadedLabel string
	loadedSort  int
	loadedTerm  string

	searchMode  bool
	searchInput textinput.Model
	debouncer   debounce.Debouncer

	emails     []model.Email
	selectedID string
	loading    bool
	loaded     bool

	// pendingRead holds thread ids with a mark-read issued. Shared across
	// model copies.
	pendingRead map[string]bool

	width  int
	height int
}

// New creates the inbox view.
func New(
	b Backend,
	c *query.Cache,
	s store.EmailStore,
	k *keys.KeyMap,
	cfg model.InboxConfig,
	width, height int,
) Model {
	l := list.New([]list.Item{}, EmailDelegate{}, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = "search sender, subject, preview..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		backend:     b,
		cache:       c,
		store:       s,
		keys:        k,
		cfg:         cfg,
		searchInput: si,
		debouncer:   debounce.New(searchDebounceID, cfg.SearchDebounce),
		pendingRead: make(map[string]bool),
		width:       width,
		height:      height,
	}
}

// Init loads the first listing.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Label returns the active label filter ("" for all).
func (m Model) Label() string { return m.label }

// SortBy returns the active sort order.
func (m Model) SortBy() string { return store.SortOrders[m.sortIndex] }

// Term returns the applied search term.
func (m Model) Term() string { return m.term }

// Emails returns the rows currently displayed.
func (m Model) Emails() []model.Email { return m.emails }

// SelectedID returns the id of the last opened email.
func (m Model) SelectedID() string { return m.selectedID }

// Capturing reports whether the view is consuming raw text input.
func (m Model) Capturing() bool { return m.searchMode }

// SetLabel changes the label filter and reloads.
func (m *Model) SetLabel(label string) tea.Cmd {
	if !model.IsFilterLabel(label) {
		return nil
	}
	m.label = label
	return m.Load()
}

// stateKey identifies the listing the current filters ask for. Results
// requested under any other key are stale.
func (m Model) stateKey() string {
	return strings.Join([]string{m.label, m.term, m.SortBy()}, "\x1f")
}

func listKey(label string) query.Key {
	return query.Key{"emails", "list", label}
}

func listScope(label string) string {
	return "list/" + label
}

// Load returns a command that fetches the listing for the current label
// through the cache, projects it into the store and applies search and
// sort there.
func (m Model) Load() tea.Cmd {
	stateKey := m.stateKey()
	label := m.label
	filter := store.EmailFilter{Label: m.label, Term: m.term, SortBy: m.SortBy()}
	b, c, s := m.backend, m.cache, m.store
	opts := query.Options{StaleTime: m.cfg.StaleTime, Retry: 1}

	return func() tea.Msg {
		ctx := context.Background()
		emails, err := query.Fetch(ctx, c, listKey(label), opts,
			func(ctx context.Context) ([]model.Email, error) {
				return b.ListEmails(ctx, api.EmailQuery{
					PreviewOnly: true,
					EmailType:   model.EmailTypeAll,
					Label:       label,
				})
			},
		)
		if err != nil {
			return EmailsLoadedMsg{Key: stateKey, Err: err}
		}

		scope := listScope(label)
		if err := s.ReplaceScope(ctx, scope, emails); err != nil {
			return EmailsLoadedMsg{Key: stateKey, Err: err}
		}
		found, err := s.Search(ctx, scope, filter)
		if err != nil {
			return EmailsLoadedMsg{Key: stateKey, Err: err}
		}
		return EmailsLoadedMsg{Key: stateKey, Emails: found}
	}
}

// Refresh drops every cached email listing and reloads.
func (m Model) Refresh() tea.Cmd {
	m.cache.Invalidate(EmailsKey)
	return m.Load()
}

// Send delivers a message and invalidates cached listings on success.
// It is the send callback of the compose dialog and the inline reply.
func (m Model) Send(ctx context.Context, req model.SendEmailRequest) error {
	if err := m.backend.SendEmail(ctx, req); err != nil {
		slog.Warn("sending email failed",
			"to", logging.RedactEmails(req.To), "error", err)
		return err
	}
	m.cache.Invalidate(EmailsKey)
	return nil
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EmailsLoadedMsg:
		if msg.Key != m.stateKey() {
			return m, nil
		}
		m.loading = false
		m.loaded = true
		if msg.Err != nil {
			slog.Warn("loading inbox failed", "label", m.label, "error", msg.Err)
			m.label, m.sortIndex, m.term = m.loadedLabel, m.loadedSort, m.loadedTerm
			if !m.searchMode {
				m.searchInput.SetValue(m.term)
			}
			return m, toast.ErrorFor("Failed to load emails", msg.Err, toast.DefaultDuration)
		}
		m.loadedLabel, m.loadedSort, m.loadedTerm = m.label, m.sortIndex, m.term
		return m, m.setEmails(msg.Emails)

	case SelectionLoadedMsg:
		if msg.Err != nil {
			return m, toast.ErrorFor("Failed to load email", msg.Err, toast.DefaultDuration)
		}
		return m, nil

	case MarkReadMsg:
		if msg.Err != nil {
			delete(m.pendingRead, msg.ThreadID)
			slog.Warn("marking thread read failed",
				"thread_id", msg.ThreadID, "error", msg.Err)
			return m, nil
		}
		return m, m.Refresh()

	case debounce.FiredMsg:
		if !m.debouncer.Accept(msg) || msg.Value == m.term {
			return m, nil
		}
		m.term = msg.Value
		m.loading = true
		return m, m.Load()

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		term := strings.TrimSpace(m.searchInput.Value())
		if term == m.term {
			return m, nil
		}
		// Supersede any pending debounce fire.
		m.debouncer.Trigger(term)
		m.term = term
		return m, m.Load()

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.debouncer.Trigger("")
		if m.term == "" {
			return m, nil
		}
		m.term = ""
		return m, m.Load()
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if after := m.searchInput.Value(); after != before {
		return m, tea.Batch(cmd, m.debouncer.Trigger(strings.TrimSpace(after)))
	}
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(EmailItem)
		if !ok {
			return m, nil
		}
		return m, m.Select(item.Email)

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.term)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(store.SortOrders)
		return m, m.Load()

	case key.Matches(msg, m.keys.CycleLabel):
		m.label = nextLabel(m.label)
		m.loading = true
		return m, m.Load()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.Refresh()

	case key.Matches(msg, m.keys.Compose):
		return m, func() tea.Msg { return compose.OpenMsg{} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// nextLabel cycles "" -> first label -> ... -> last label -> "".
func nextLabel(current string) string {
	if current == "" {
		return model.FilterLabels[0]
	}
	for i, l := range model.FilterLabels {
		if l == current && i+1 < len(model.FilterLabels) {
			return model.FilterLabels[i+1]
		}
	}
	return ""
}

// Select opens e. The detail view is shown at once with whatever is
// known; a preview is completed in the background and an unread thread
// is marked read exactly once.
func (m *Model) Select(e model.Email) tea.Cmd {
	m.selectedID = e.ID
	cmds := []tea.Cmd{func() tea.Msg { return OpenedMsg{Email: e} }}

	if e.Preview {
		cmds = append(cmds, m.loadFull(e))
	}

	if e.IsUnread && e.ThreadID != "" && !m.pendingRead[e.ThreadID] {
		m.pendingRead[e.ThreadID] = true
		b, threadID := m.backend, e.ThreadID
		cmds = append(cmds, func() tea.Msg {
			err := b.MarkThreadRead(context.Background(), threadID)
			return MarkReadMsg{ThreadID: threadID, Err: err}
		})
	}

	return tea.Batch(cmds...)
}

// loadFull fetches the complete record of preview p by listing the
// sender's emails without the preview flag.
func (m Model) loadFull(p model.Email) tea.Cmd {
	b, c, s := m.backend, m.cache, m.store
	lead := p.FromAddressEmail
	opts := query.Options{StaleTime: m.cfg.StaleTime, Retry: 1}

	return func() tea.Msg {
		ctx := context.Background()
		emails, err := query.Fetch(ctx, c, query.Key{"emails", "full", lead}, opts,
			func(ctx context.Context) ([]model.Email, error) {
				return b.ListEmails(ctx, api.EmailQuery{
					EmailType: model.EmailTypeAll,
					LeadEmail: lead,
				})
			},
		)
		if err != nil {
			slog.Warn("loading full email failed",
				"id", p.ID, "lead", logging.RedactEmail(lead), "error", err)
			return SelectionLoadedMsg{ID: p.ID, Email: fallback(ctx, s, p), Err: err}
		}

		if err := s.ReplaceScope(ctx, "full/"+lead, emails); err != nil {
			slog.Debug("projecting full emails failed", "error", err)
		}
		for _, e := range emails {
			if e.ID == p.ID {
				return SelectionLoadedMsg{ID: p.ID, Email: e}
			}
		}
		return SelectionLoadedMsg{ID: p.ID, Email: fallback(ctx, s, p)}
	}
}

// fallback returns the most complete stored copy of p, or p itself.
func fallback(ctx context.Context, s store.EmailStore, p model.Email) model.Email {
	stored, err := s.GetEmail(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Debug("reading stored email failed", "id", p.ID, "error", err)
		}
		return p
	}
	return *stored
}

// setEmails replaces the rows, keeping the cursor on the previously
// highlighted email when it is still present.
func (m *Model) setEmails(emails []model.Email) tea.Cmd {
	var current string
	if item, ok := m.list.SelectedItem().(EmailItem); ok {
		current = item.Email.ID
	}

	// Threads marked read stay read until the backend agrees.
	for i := range emails {
		threadID := emails[i].ThreadID
		if !m.pendingRead[threadID] {
			continue
		}
		if emails[i].IsUnread {
			emails[i].IsUnread = false
		} else {
			delete(m.pendingRead, threadID)
		}
	}

	m.emails = emails
	items := make([]list.Item, len(emails))
	cursor := 0
	for i, e := range emails {
		items[i] = EmailItem{Email: e}
		if e.ID == current {
			cursor = i
		}
	}
	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// View renders the inbox view.
func (m Model) View() string {
	bar := m.renderFilterBar()
	if m.searchMode {
		bar = lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
	}

	if len(m.emails) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, bar, m.renderEmptyState())
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, m.list.View())
}

func (m Model) renderFilterBar() string {
	parts := []string{
		"Label: " + model.LabelDisplayName(m.label),
		"Sort: " + m.SortBy(),
	}
	if m.term != "" {
		parts = append(parts, "Search: "+m.term)
	}
	if m.loading {
		parts = append(parts, "loading...")
	}
	return theme.MutedStyle.Padding(0, 1).Render(strings.Join(parts, "  ·  "))
}

// renderEmptyState shows guidance text when no emails are listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.loaded:
		return style.Render("Loading emails...")
	case m.term != "" || m.label != "":
		return style.Render("No matching emails.\nTry adjusting your search or label filter.")
	default:
		return style.Render("No emails yet.\n\nPress n to compose a message.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
