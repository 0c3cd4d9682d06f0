// Package analytics shows campaign statistics from the backend.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/contacts"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Backend is the subset of the API client the panel needs.
type Backend interface {
	GetAnalytics(ctx context.Context, campaignID string) (model.Analytics, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
}

// LoadedMsg carries statistics for CampaignID ("" for all campaigns).
type LoadedMsg struct {
	CampaignID string
	Analytics  model.Analytics
	Err        error
}

type campaignsMsg struct {
	campaigns []model.Campaign
	err       error
}

// Model is the analytics panel.
type Model struct {
	backend Backend
	cache   *query.Cache
	keys    *keys.KeyMap
	stale   time.Duration

	campaigns []model.Campaign
	// campaignIdx indexes campaigns; -1 selects every campaign.
	campaignIdx int

	data    model.Analytics
	loading bool
	loaded  bool

	width  int
	height int
}

// New creates the analytics panel.
func New(b Backend, c *query.Cache, k *keys.KeyMap, stale time.Duration, width, height int) Model {
	return Model{
		backend:     b,
		cache:       c,
		keys:        k,
		stale:       stale,
		campaignIdx: -1,
		width:       width,
		height:      height,
	}
}

// Init loads the campaign list and the overall statistics.
func (m Model) Init() tea.Cmd {
	b, c := m.backend, m.cache
	opts := query.Options{StaleTime: m.stale, Retry: 1}
	loadCampaigns := func() tea.Msg {
		campaigns, err := query.Fetch(context.Background(), c, contacts.CampaignsKey, opts, b.ListCampaigns)
		return campaignsMsg{campaigns: campaigns, err: err}
	}
	return tea.Batch(loadCampaigns, m.Load())
}

// CampaignID returns the selected campaign filter.
func (m Model) CampaignID() string {
	if m.campaignIdx < 0 || m.campaignIdx >= len(m.campaigns) {
		return ""
	}
	return m.campaigns[m.campaignIdx].ID
}

// Data returns the statistics on display.
func (m Model) Data() model.Analytics { return m.data }

// Load fetches statistics for the selected campaign.
func (m Model) Load() tea.Cmd {
	b, c, id := m.backend, m.cache, m.CampaignID()
	opts := query.Options{StaleTime: m.stale, Retry: 1}
	return func() tea.Msg {
		data, err := query.Fetch(context.Background(), c, query.Key{"analytics", id}, opts,
			func(ctx context.Context) (model.Analytics, error) {
				return b.GetAnalytics(ctx, id)
			},
		)
		return LoadedMsg{CampaignID: id, Analytics: data, Err: err}
	}
}

// Refresh drops cached statistics and reloads the selected campaign.
func (m *Model) Refresh() tea.Cmd {
	m.cache.Invalidate(query.Key{"analytics"})
	m.loading = true
	return m.Load()
}

// Update handles messages for the analytics panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case campaignsMsg:
		if msg.err != nil {
			slog.Warn("loading campaigns failed", "error", msg.err)
			return m, toast.ErrorFor("Failed to load campaigns", msg.err, toast.DefaultDuration)
		}
		m.campaigns = msg.campaigns
		return m, nil

	case LoadedMsg:
		if msg.CampaignID != m.CampaignID() {
			return m, nil
		}
		m.loading = false
		m.loaded = true
		if msg.Err != nil {
			return m, toast.ErrorFor("Failed to load analytics", msg.Err, toast.DefaultDuration)
		}
		m.data = msg.Analytics
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.CycleSort):
			m.campaignIdx++
			if m.campaignIdx >= len(m.campaigns) {
				m.campaignIdx = -1
			}
			m.loading = true
			return m, m.Load()

		case key.Matches(msg, m.keys.Refresh):
			return m, m.Refresh()
		}
	}
	return m, nil
}

// View renders the statistics as sorted key/value lines.
func (m Model) View() string {
	campaign := "All campaigns"
	if m.campaignIdx >= 0 && m.campaignIdx < len(m.campaigns) {
		campaign = m.campaigns[m.campaignIdx].Name
	}

	header := theme.TitleStyle.Render("Analytics") + "  " +
		theme.MutedStyle.Render(campaign)
	if m.loading {
		header += "  " + theme.MutedStyle.Render("loading...")
	}

	var body string
	switch {
	case !m.loaded:
		body = theme.MutedStyle.Render("Loading analytics...")
	case len(m.data) == 0:
		body = theme.MutedStyle.Render("No statistics available.")
	default:
		body = Lines(m.data)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		body,
		"",
		theme.HelpStyle.Render("tab cycle campaign · r refresh"),
	)
}

// Lines renders data as "key  value" lines ordered by key. Nested
// objects are flattened with dotted keys.
func Lines(data model.Analytics) string {
	flat := map[string]string{}
	flatten("", data, flat)

	names := make([]string, 0, len(flat))
	width := 0
	for k := range flat {
		names = append(names, k)
		width = max(width, len(k))
	}
	sort.Strings(names)

	keyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(width + 2)
	lines := make([]string, len(names))
	for i, k := range names {
		lines[i] = keyStyle.Render(k) + flat[k]
	}
	return strings.Join(lines, "\n")
}

func flatten(prefix string, data map[string]any, out map[string]string) {
	for k, v := range data {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = formatValue(v)
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
