// Package contacts implements the paginated, filterable leads table.
package contacts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Backend is the subset of the API client the contacts view needs.
type Backend interface {
	ListLeads(ctx context.Context, q api.LeadQuery) (*model.LeadsPage, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
}

// Opener hands a URL to the operating system, e.g. browser.OpenURL.
type Opener func(url string) error

// CampaignsKey caches the campaign list shared by every view.
var CampaignsKey = query.Key{"campaigns"}

// EmptyText is shown when a successful fetch matched nothing.
const EmptyText = "No contacts found with the selected filters."

// LeadsLoadedMsg carries one fetched page. Key identifies the state the
// page was requested for.
type LeadsLoadedMsg struct {
	Key  string
	Page *model.LeadsPage
	Err  error
}

// CampaignsLoadedMsg carries the campaign filter options.
type CampaignsLoadedMsg struct {
	Campaigns []model.Campaign
	Err       error
}

type openedMsg struct {
	target string
	err    error
}

// filterBindings holds the filter form values on the heap so huh's
// Value() pointers survive model copies.
type filterBindings struct {
	campaignID string
	status     string
	label      string
	email      string
	firstName  string
	lastName   string
}

// Model is the contacts table view.
type Model struct {
	table   table.Model
	backend Backend
	cache   *query.Cache
	keys    *keys.KeyMap
	cfg     model.ContactsConfig
	open    Opener

	campaignsStale time.Duration
	campaigns      []model.Campaign

	state     State
	// committed is the state of the last page that loaded.
	committed State
	leads     []model.Lead
	loading   bool
	loaded    bool

	filterForm *huh.Form
	fb         *filterBindings

	width  int
	height int
}

// New creates the contacts view. campaignsStale bounds how long the
// campaign list is reused.
func New(
	b Backend,
	c *query.Cache,
	k *keys.KeyMap,
	cfg model.ContactsConfig,
	campaignsStale time.Duration,
	open Opener,
	width, height int,
) Model {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(max(height-6, 3)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorSubtle).
		Bold(false)
	t.SetStyles(styles)

	m := Model{
		table:          t,
		backend:        b,
		cache:          c,
		keys:           k,
		cfg:            cfg,
		open:           open,
		campaignsStale: campaignsStale,
		state:          NewState(cfg.PageSize),
		committed:      NewState(cfg.PageSize),
		width:          width,
		height:         height,
	}
	m.resizeTable()
	return m
}

// Init loads the first page and the campaign list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Load(), m.LoadCampaigns())
}

// State returns the query state.
func (m Model) State() State { return m.state }

// Leads returns the rows currently displayed.
func (m Model) Leads() []model.Lead { return m.leads }

// Loading reports whether a fetch is outstanding.
func (m Model) Loading() bool { return m.loading }

// Capturing reports whether the filter form holds the keyboard.
func (m Model) Capturing() bool { return m.filterForm != nil }

// Load fetches the page for the current state through the cache.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	st := m.state
	b := m.backend
	c := m.cache
	opts := query.Options{StaleTime: m.cfg.StaleTime, Retry: 1}

	return func() tea.Msg {
		page, err := query.Fetch(context.Background(), c, query.Key{"contacts", st.Key()}, opts,
			func(ctx context.Context) (*model.LeadsPage, error) {
				return b.ListLeads(ctx, st.Query())
			},
		)
		return LeadsLoadedMsg{Key: st.Key(), Page: page, Err: err}
	}
}

// LoadCampaigns fetches the campaign filter options.
func (m Model) LoadCampaigns() tea.Cmd {
	b, c := m.backend, m.cache
	opts := query.Options{StaleTime: m.campaignsStale, Retry: 1}
	return func() tea.Msg {
		campaigns, err := query.Fetch(context.Background(), c, CampaignsKey, opts, b.ListCampaigns)
		return CampaignsLoadedMsg{Campaigns: campaigns, Err: err}
	}
}

// Refresh drops cached pages and reloads the current one.
func (m *Model) Refresh() tea.Cmd {
	m.cache.Invalidate(query.Key{"contacts"})
	return m.Load()
}

// ApplyFilters replaces the filters, returning to the first page.
func (m *Model) ApplyFilters(f Filters) tea.Cmd {
	m.state.SetFilters(f)
	m.table.SetColumns(m.columns())
	return m.Load()
}

// Update handles messages for the contacts view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LeadsLoadedMsg:
		if msg.Key != m.state.Key() {
			return m, nil
		}
		m.loading = false
		m.loaded = true
		if msg.Err != nil {
			slog.Warn("loading contacts failed", "page", m.state.Page, "error", msg.Err)
			m.state = m.committed
			m.resizeTable()
			return m, toast.ErrorFor("Failed to load contacts", msg.Err, toast.LongDuration)
		}
		m.setPage(msg.Page)
		m.committed = m.state
		return m, nil

	case CampaignsLoadedMsg:
		if msg.Err != nil {
			slog.Warn("loading campaigns failed", "error", msg.Err)
			return m, toast.ErrorFor("Failed to load campaigns", msg.Err, toast.DefaultDuration)
		}
		m.campaigns = msg.Campaigns
		return m, nil

	case openedMsg:
		if msg.err != nil {
			slog.Warn("opening link failed", "target", msg.target, "error", msg.err)
			return m, toast.ErrorFor("Could not open link", msg.err, toast.DefaultDuration)
		}
		return m, nil

	case tea.KeyMsg:
		if m.filterForm != nil {
			return m.updateFilterForm(msg)
		}
		return m.handleKeys(msg)
	}

	if m.filterForm != nil {
		return m.updateFilterForm(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Refresh()

	case key.Matches(msg, m.keys.Filter):
		return m, m.openFilterForm()

	case key.Matches(msg, m.keys.SortColumn):
		i := int(msg.String()[0] - '1')
		if i < 0 || i >= len(SortColumns) {
			return m, nil
		}
		m.state.ToggleSort(SortColumns[i].Field)
		m.table.SetColumns(m.columns())
		return m, m.Load()

	case key.Matches(msg, m.keys.PageSize):
		m.state.NextLimit()
		m.resizeTable()
		return m, m.Load()

	case key.Matches(msg, m.keys.PrevPage):
		if !m.state.PrevPage() {
			return m, nil
		}
		return m, m.Load()

	case key.Matches(msg, m.keys.NextPage):
		if !m.state.NextPage() {
			return m, nil
		}
		return m, m.Load()

	case key.Matches(msg, m.keys.ComposeTo):
		lead, ok := m.Selected()
		if !ok || lead.Email == "" {
			return m, nil
		}
		p := compose.Params{To: lead.Email}
		return m, func() tea.Msg { return compose.OpenMsg{Params: p} }

	case key.Matches(msg, m.keys.OpenProfile):
		lead, ok := m.Selected()
		if !ok || lead.LinkedInPersonURL == "" {
			return m, nil
		}
		return m, m.openURL(lead.LinkedInPersonURL)

	case key.Matches(msg, m.keys.Dial):
		lead, ok := m.Selected()
		if !ok || lead.PhoneNumber == "" {
			return m, nil
		}
		return m, m.openURL("tel:" + dialable(lead.PhoneNumber))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Selected returns the highlighted lead.
func (m Model) Selected() (model.Lead, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.leads) {
		return model.Lead{}, false
	}
	return m.leads[i], true
}

func (m Model) openURL(target string) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		return openedMsg{target: target, err: open(target)}
	}
}

// dialable strips everything but digits and a leading plus.
func dialable(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m *Model) setPage(page *model.LeadsPage) {
	if page == nil {
		page = &model.LeadsPage{}
	}
	m.state.Total = page.Total
	m.leads = page.Data

	rows := make([]table.Row, len(page.Data))
	for i, l := range page.Data {
		rows[i] = table.Row{
			l.FullName(),
			l.Email,
			l.CompanyName,
			l.JobTitle,
			model.LabelDisplayName(string(l.Status)),
			lastSent(l.LastSentAt),
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// lastSent shortens an ISO timestamp to a date.
func lastSent(s string) string {
	if s == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}

func (m *Model) openFilterForm() tea.Cmd {
	f := m.state.Filters
	m.fb = &filterBindings{
		campaignID: f.CampaignID,
		status:     f.Status,
		label:      f.Label,
		email:      f.Email,
		firstName:  f.FirstName,
		lastName:   f.LastName,
	}
	m.filterForm = buildFilterForm(m.fb, m.campaigns, m.width)
	return m.filterForm.Init()
}

func buildFilterForm(fb *filterBindings, campaigns []model.Campaign, width int) *huh.Form {
	campaignOpts := []huh.Option[string]{huh.NewOption("All campaigns", "")}
	for _, c := range campaigns {
		campaignOpts = append(campaignOpts, huh.NewOption(c.Name, c.ID))
	}
	statusOpts := []huh.Option[string]{huh.NewOption("Any status", "")}
	for _, s := range model.LeadStatuses {
		statusOpts = append(statusOpts, huh.NewOption(model.LabelDisplayName(string(s)), string(s)))
	}
	labelOpts := []huh.Option[string]{huh.NewOption("Any label", "")}
	for _, l := range model.FilterLabels {
		labelOpts = append(labelOpts, huh.NewOption(model.LabelDisplayName(l), l))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Campaign").
				Options(campaignOpts...).
				Value(&fb.campaignID),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOpts...).
				Value(&fb.status),
			huh.NewSelect[string]().
				Title("Label").
				Options(labelOpts...).
				Value(&fb.label),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&fb.email),
			huh.NewInput().
				Title("First name").
				Value(&fb.firstName),
			huh.NewInput().
				Title("Last name").
				Value(&fb.lastName),
		),
	).WithWidth(max(min(width-4, 80), 30)).WithShowHelp(false)
}

func (fb *filterBindings) filters() Filters {
	return Filters{
		CampaignID: fb.campaignID,
		Status:     fb.status,
		Label:      fb.label,
		Email:      fb.email,
		FirstName:  fb.firstName,
		LastName:   fb.lastName,
	}
}

func (m Model) updateFilterForm(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.filterForm = nil
		return m, nil
	}

	mdl, cmd := m.filterForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.filterForm = f
	}

	switch m.filterForm.State {
	case huh.StateCompleted:
		m.filterForm = nil
		if m.fb.filters().trimmed() == m.state.Filters {
			return m, nil
		}
		return m, m.ApplyFilters(m.fb.filters())
	case huh.StateAborted:
		m.filterForm = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) columns() []table.Column {
	// Name, Email, Company, Title, Status, Last Sent.
	weights := []int{18, 26, 18, 18, 14, 13}
	avail := max(m.width-len(weights)*2-2, 60)
	total := 0
	for _, w := range weights {
		total += w
	}

	cols := make([]table.Column, len(SortColumns))
	for i, c := range SortColumns {
		title := fmt.Sprintf("%d %s", i+1, c.Title)
		if m.state.Sort == c.Field {
			if m.state.Direction == Desc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols[i] = table.Column{Title: title, Width: avail * weights[i] / total}
	}
	return cols
}

func (m *Model) resizeTable() {
	m.table.SetColumns(m.columns())
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(m.height-6, 3))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.resizeTable()
	if m.filterForm != nil {
		m.filterForm = m.filterForm.WithWidth(max(min(width-4, 80), 30))
	}
}

// View renders the contacts view.
func (m Model) View() string {
	if m.filterForm != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.TitleStyle.Render("Filter contacts"),
			theme.PanelStyle.Render(m.filterForm.View()),
			theme.HelpStyle.Render("enter next · esc cancel"),
		)
	}

	var sections []string
	sections = append(sections, m.renderFilterBar())

	switch {
	case !m.loaded:
		sections = append(sections, theme.MutedStyle.Render("Loading contacts..."))
	case len(m.leads) == 0:
		sections = append(sections, "", theme.MutedStyle.Render(EmptyText))
	default:
		sections = append(sections, m.table.View(), m.renderSelected())
	}

	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFilterBar() string {
	f := m.state.Filters
	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+": "+value)
		}
	}
	add("Campaign", m.campaignName(f.CampaignID))
	if f.Status != "" {
		add("Status", model.LabelDisplayName(f.Status))
	}
	if f.Label != "" {
		add("Label", model.LabelDisplayName(f.Label))
	}
	add("Email", f.Email)
	add("First", f.FirstName)
	add("Last", f.LastName)

	bar := "Filters: none"
	if len(parts) > 0 {
		bar = "Filters: " + strings.Join(parts, "  ")
	}
	if m.loading {
		bar += "  " + theme.MutedStyle.Render("loading...")
	}
	return theme.HelpStyle.Render(bar)
}

func (m Model) campaignName(id string) string {
	for _, c := range m.campaigns {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func (m Model) renderSelected() string {
	lead, ok := m.Selected()
	if !ok {
		return ""
	}
	status := string(lead.Status)
	parts := []string{
		theme.LeadStatusStyle(status).Render(model.LabelDisplayName(status)),
		fmt.Sprintf("step %d/%d", lead.CurrentStep, lead.TotalSteps),
	}
	if lead.CampaignName != "" {
		parts = append(parts, lead.CampaignName)
	}

	var actions []string
	if lead.Email != "" {
		actions = append(actions, "c email")
	}
	if lead.LinkedInPersonURL != "" {
		actions = append(actions, "o LinkedIn")
	}
	if lead.PhoneNumber != "" {
		actions = append(actions, "p call "+lead.PhoneNumber)
	}

	line := strings.Join(parts, "  ")
	if len(actions) > 0 {
		line += "  " + theme.HelpStyle.Render(strings.Join(actions, " · "))
	}
	return line
}

func (m Model) renderFooter() string {
	from, to := m.state.Range()
	text := fmt.Sprintf("Showing %d-%d of %d · Page %d of %d · %d per page",
		from, to, m.state.Total, m.state.Page, m.state.TotalPages(), m.state.Limit)

	var nav []string
	if m.state.HasPrev() {
		nav = append(nav, "[ prev")
	}
	if m.state.HasNext() {
		nav = append(nav, "] next")
	}
	if len(nav) > 0 {
		text += " · " + strings.Join(nav, " ")
	}
	return theme.MutedStyle.Render(text)
}
