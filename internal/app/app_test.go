package app

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/model"
	appsync "github.com/nhle/outreach-inbox/internal/sync"
	"github.com/nhle/outreach-inbox/internal/ui/command"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/config"
	"github.com/nhle/outreach-inbox/internal/ui/inbox"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
	"github.com/nhle/outreach-inbox/tests/testutil"
)

type memCreds struct{ token string }

func (c *memCreds) SaveToken(token string) error { c.token = token; return nil }
func (c *memCreds) ClearToken() error            { c.token = ""; return nil }

func newApp(t *testing.T) (Model, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	cfg := &model.AppConfig{
		Inbox:     model.InboxConfig{StaleTime: 30 * time.Second, SearchDebounce: 10 * time.Millisecond},
		Contacts:  model.ContactsConfig{StaleTime: time.Minute, PageSize: 10},
		Campaigns: model.CampaignsConfig{StaleTime: 5 * time.Minute},
		Poll:      model.PollConfig{UnreadInterval: time.Hour},
		Export:    model.ExportConfig{Dir: t.TempDir()},
	}
	m := New(api.NewClient(fake.URL()), testutil.NewTestStore(t), cfg, func(string) error { return nil }, &memCreds{})
	m = step(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, fake
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func step(m Model, msg tea.Msg) Model {
	m, _ = update(m, msg)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_BeforeWindowSize(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m := New(api.NewClient(fake.URL()), testutil.NewTestStore(t), &model.AppConfig{}, nil, &memCreds{})
	assert.Equal(t, "Loading...", m.View())
}

func TestHeaderShowsUnreadCount(t *testing.T) {
	m, _ := newApp(t)
	assert.NotContains(t, m.View(), "unread")

	m = step(m, appsync.UnreadCountMsg{Count: 3})
	assert.Equal(t, 3, m.UnreadCount())
	assert.Contains(t, m.View(), "Inbox [3 unread]")

	m = step(m, appsync.UnreadCountMsg{Err: errors.New("offline")})
	assert.Equal(t, 3, m.UnreadCount(), "failed polls keep the last count")
}

func TestOpenEmailAndGoBack(t *testing.T) {
	m, _ := newApp(t)

	m = step(m, inbox.OpenedMsg{Email: model.Email{ID: "e1", Subject: "Quarterly numbers"}})
	assert.Equal(t, ViewDetail, m.CurrentView())
	assert.Contains(t, m.View(), "Quarterly numbers")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m = step(m, cmd())
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestFailedFullFetchShowsPreview(t *testing.T) {
	m, _ := newApp(t)
	preview := model.Email{ID: "e1", Subject: "Hello", ContentPreview: "short teaser", Preview: true}

	m = step(m, inbox.OpenedMsg{Email: preview})
	assert.Contains(t, m.View(), "Loading full message")

	m, cmd := update(m, inbox.SelectionLoadedMsg{ID: "e1", Email: preview, Err: errors.New("boom")})
	assert.NotContains(t, m.View(), "Loading full message")
	assert.Contains(t, m.View(), "short teaser")

	shown, ok := testutil.FindMsg[toast.ShowMsg](testutil.CollectMsgs(cmd, testutil.CmdWait))
	require.True(t, ok)
	assert.Equal(t, "Failed to load email", shown.Toast.Title)
}

func TestGlobalViewSwitching(t *testing.T) {
	m, _ := newApp(t)

	m, cmd := update(m, runes("C"))
	assert.Equal(t, ViewContacts, m.CurrentView())
	assert.NotNil(t, cmd, "contacts load on first visit")

	m = step(m, runes("I"))
	m, cmd = update(m, runes("C"))
	assert.Equal(t, ViewContacts, m.CurrentView())
	assert.Nil(t, cmd, "contacts are loaded only once")

	m, cmd = update(m, runes("A"))
	assert.Equal(t, ViewAnalytics, m.CurrentView())
	assert.NotNil(t, cmd)

	m = step(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewInbox, m.CurrentView())

	m = step(m, runes("?"))
	assert.Equal(t, ViewHelp, m.CurrentView())
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = step(m, runes("?"))
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestSearchModeSwallowsGlobalKeys(t *testing.T) {
	m, _ := newApp(t)

	m = step(m, runes("/"))
	require.True(t, m.inbox.Capturing())

	m = step(m, runes("C"))
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestQuitOnlyFromTopLevelViews(t *testing.T) {
	m, _ := newApp(t)

	_, cmd := update(m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m = step(m, inbox.OpenedMsg{Email: model.Email{ID: "e1"}})
	m = step(m, runes("q"))
	assert.Equal(t, ViewDetail, m.CurrentView())
}

func TestComposeFromContactsReturnsToInbox(t *testing.T) {
	m, _ := newApp(t)
	m = step(m, runes("C"))

	m = step(m, compose.OpenMsg{Params: compose.Params{To: "ada@example.com"}})
	assert.Equal(t, ViewCompose, m.CurrentView())
	assert.Contains(t, m.View(), "New Message")

	m = step(m, compose.ClosedMsg{})
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestComposeSentRefreshesInbox(t *testing.T) {
	m, fake := newApp(t)
	m = step(m, compose.OpenMsg{})

	m, cmd := update(m, compose.ClosedMsg{Sent: true})
	assert.Equal(t, ViewInbox, m.CurrentView())

	msgs := testutil.CollectMsgs(cmd, time.Second)
	_, ok := testutil.FindMsg[inbox.EmailsLoadedMsg](msgs)
	assert.True(t, ok)
	assert.Equal(t, 1, fake.Hits("/api/emails"))
}

func TestToastShownInStatusBar(t *testing.T) {
	m, _ := newApp(t)

	m, cmd := update(m, toast.ShowMsg{Toast: toast.Toast{ID: "t1", Kind: toast.KindError, Title: "Boom"}})
	assert.NotNil(t, cmd, "expiry is scheduled")
	assert.Contains(t, m.View(), "Boom")

	m = step(m, toast.ExpiredMsg{ID: "t1"})
	assert.NotContains(t, m.View(), "Boom")
}

func TestCommandPalette(t *testing.T) {
	m, _ := newApp(t)

	m = step(m, runes(":"))
	require.Equal(t, ViewCommand, m.CurrentView())
	for _, r := range "contacts" {
		m = step(m, runes(string(r)))
	}
	assert.Equal(t, ViewCommand, m.CurrentView(), "typing does not trigger shortcuts")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = step(m, cmd())
	assert.Equal(t, ViewContacts, m.CurrentView())
}

func TestCommands(t *testing.T) {
	m, _ := newApp(t)

	m = step(m, command.CommandMsg("compose ada@example.com"))
	assert.Equal(t, ViewCompose, m.CurrentView())
	assert.Equal(t, "ada@example.com", m.compose.Request().To)

	m = step(m, compose.ClosedMsg{})
	m, cmd := update(m, command.CommandMsg("launch rockets"))
	shown, ok := cmd().(toast.ShowMsg)
	require.True(t, ok)
	assert.Equal(t, "Unknown command", shown.Toast.Title)
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestSettingsTokenChange(t *testing.T) {
	m, fake := newApp(t)

	m = step(m, runes("S"))
	require.Equal(t, ViewSettings, m.CurrentView())
	assert.Contains(t, m.View(), "Connection")
	assert.Contains(t, m.View(), "not set")

	m, cmd := update(m, config.TokenChangedMsg{Token: "fresh"})
	require.NotNil(t, cmd)
	assert.True(t, m.backend.HasToken())

	testutil.CollectMsgs(cmd, time.Second)
	fake.Lock()
	require.NotEmpty(t, fake.Headers)
	assert.Equal(t, "Bearer fresh", fake.Headers[len(fake.Headers)-1].Get("Authorization"))
	fake.Unlock()

	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m = step(m, cmd())
	assert.Equal(t, ViewInbox, m.CurrentView())
}
