package inbox

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/debounce"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/store"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
	"github.com/nhle/outreach-inbox/tests/testutil"
)

func ts(s string) *string { return &s }

func seed() []model.Email {
	return []model.Email{
		{
			ID: "e1", ThreadID: "t1", Subject: "Pricing question",
			FromAddressEmail: "zed@example.com",
			FromAddresses:    []model.EmailAddress{{Address: "zed@example.com", Name: "Zed"}},
			TimestampCreated: ts("2024-03-01T10:00:00Z"),
			ContentPreview:   "How much is it?",
			Body:             model.EmailBody{Text: "How much is it for ten seats?"},
			Label:            model.LabelInterested,
			IsUnread:         true,
		},
		{
			ID: "e2", ThreadID: "t2", Subject: "Out of office",
			FromAddressEmail: "amy@example.com",
			FromAddresses:    []model.EmailAddress{{Address: "amy@example.com", Name: "Amy"}},
			TimestampCreated: ts("2024-03-03T10:00:00Z"),
			ContentPreview:   "Back next week",
			Label:            model.LabelNoResponse,
		},
		{
			ID: "e3", ThreadID: "t3", Subject: "Demo booked",
			FromAddressEmail: "bob@example.com",
			TimestampCreated: ts("2024-03-02T10:00:00Z"),
			ContentPreview:   "See you Tuesday",
			Label:            model.LabelMeetingBooked,
		},
	}
}

type fixture struct {
	fake  *testutil.FakeAPI
	cache *query.Cache
	model Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.Emails = seed()
	cache := query.New()
	m := New(
		api.NewClient(fake.URL()),
		cache,
		testutil.NewTestStore(t),
		keys.DefaultKeyMap(),
		model.InboxConfig{StaleTime: 30 * time.Second, SearchDebounce: 0},
		100, 30,
	)
	m.searchInput.Cursor.SetMode(cursor.CursorStatic)
	return &fixture{fake: fake, cache: cache, model: m}
}

// run feeds cmd's messages back into the model until no inbox message
// remains, returning everything produced along the way.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var all []tea.Msg
	queue := testutil.CollectMsgs(cmd, time.Second)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		all = append(all, msg)
		switch msg.(type) {
		case EmailsLoadedMsg, SelectionLoadedMsg, MarkReadMsg, debounce.FiredMsg:
			var next tea.Cmd
			f.model, next = f.model.Update(msg)
			queue = append(queue, testutil.CollectMsgs(next, time.Second)...)
		}
	}
	return all
}

func ids(emails []model.Email) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = e.ID
	}
	return out
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (f *fixture) press(t *testing.T, s string) []tea.Msg {
	t.Helper()
	var cmd tea.Cmd
	f.model, cmd = f.model.Update(keyMsg(s))
	return f.run(t, cmd)
}

func TestLoad_PreviewListingSortedByDate(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	assert.Equal(t, []string{"e2", "e3", "e1"}, ids(f.model.Emails()))
	for _, e := range f.model.Emails() {
		assert.True(t, e.Preview)
	}

	q := f.fake.LastQuery("/api/emails")
	assert.Equal(t, "true", q.Get("preview_only"))
	assert.Equal(t, model.EmailTypeAll, q.Get("email_type"))
	assert.False(t, q.Has("label"))
}

func TestLoad_CachedWithinStaleTime(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())
	f.run(t, f.model.Load())
	assert.Equal(t, 1, f.fake.Hits("/api/emails"))

	f.press(t, "r")
	assert.Equal(t, 2, f.fake.Hits("/api/emails"))
}

func TestCycleSortAndLabel(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.press(t, "tab")
	assert.Equal(t, store.SortBySender, f.model.SortBy())
	assert.Equal(t, []string{"e2", "e3", "e1"}, ids(f.model.Emails()))

	f.press(t, "tab")
	assert.Equal(t, store.SortBySubject, f.model.SortBy())
	assert.Equal(t, []string{"e3", "e2", "e1"}, ids(f.model.Emails()))

	f.press(t, "l")
	assert.Equal(t, model.LabelInterested, f.model.Label())
	assert.Equal(t, []string{"e1"}, ids(f.model.Emails()))
	assert.Equal(t, model.LabelInterested, f.fake.LastQuery("/api/emails").Get("label"))
}

func TestSetLabel_RejectsUnknown(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.model.SetLabel("SPAM"))
	assert.Equal(t, "", f.model.Label())
}

func TestSearch_Debounced(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.press(t, "/")
	require.True(t, f.model.Capturing())
	for _, r := range "TUES" {
		f.press(t, string(r))
	}
	assert.Equal(t, "TUES", f.model.Term())
	assert.Equal(t, []string{"e3"}, ids(f.model.Emails()))

	f.press(t, "esc")
	assert.False(t, f.model.Capturing())
	assert.Equal(t, "", f.model.Term())
	assert.Len(t, f.model.Emails(), 3)
}

func TestSearch_StaleFireIgnored(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.model, _ = f.model.Update(keyMsg("/"))
	first := f.model.debouncer.Trigger("amy")
	second := f.model.debouncer.Trigger("zed")

	stale := first().(debounce.FiredMsg)
	f.run(t, func() tea.Msg { return stale })
	assert.Equal(t, "", f.model.Term())

	f.run(t, second)
	assert.Equal(t, "zed", f.model.Term())
	assert.Equal(t, []string{"e1"}, ids(f.model.Emails()))
}

func TestLoad_LastQueryWins(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	slow := f.model.Load()
	f.press(t, "l")
	require.Equal(t, model.LabelInterested, f.model.Label())

	// The listing requested before the label change arrives late.
	f.run(t, slow)
	assert.Equal(t, []string{"e1"}, ids(f.model.Emails()))
}

func TestLoad_FailureKeepsRowsAndToasts(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.fake.Fail("/api/emails", testutil.Failure{Status: http.StatusInternalServerError, Detail: "db down"})
	msgs := f.press(t, "r")

	shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Failed to load emails", shown.Toast.Title)
	assert.Equal(t, "db down", shown.Toast.Description)
	assert.Len(t, f.model.Emails(), 3)
	// One retry.
	assert.Equal(t, 3, f.fake.Hits("/api/emails"))
}

func TestLoad_FailedLabelChangeKeepsLoadedFilter(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.fake.Fail("/api/emails", testutil.Failure{Status: http.StatusInternalServerError, Detail: "db down"})
	msgs := f.press(t, "l")

	_, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "", f.model.Label())
	assert.Equal(t, []string{"e2", "e3", "e1"}, ids(f.model.Emails()))
	view := f.model.View()
	assert.Contains(t, view, "Label: All")
	assert.NotContains(t, view, "Label: Interested")

	f.fake.ClearFailures()
	f.press(t, "l")
	assert.Equal(t, model.LabelInterested, f.model.Label())
	assert.Equal(t, []string{"e1"}, ids(f.model.Emails()))
}

func TestSearch_FailedFetchKeepsLoadedTerm(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.fake.Fail("/api/emails", testutil.Failure{Status: http.StatusInternalServerError})
	f.cache.Invalidate(EmailsKey)
	f.press(t, "/")
	for _, r := range "zed" {
		f.press(t, string(r))
	}
	f.press(t, "enter")

	assert.Equal(t, "", f.model.Term())
	assert.Len(t, f.model.Emails(), 3)
	assert.NotContains(t, f.model.View(), "Search: zed")
}

func TestSelect_PreviewLoadsFullAndMarksReadOnce(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	var unread model.Email
	for _, e := range f.model.Emails() {
		if e.ID == "e1" {
			unread = e
		}
	}
	require.True(t, unread.Preview)
	require.True(t, unread.IsUnread)

	first := f.model.Select(unread)
	// Opened again before the first mark-read settles.
	second := f.model.Select(unread)

	msgs := f.run(t, first)
	f.run(t, second)

	opened, ok := testutil.FindMsg[OpenedMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "e1", opened.Email.ID)

	loaded, ok := testutil.FindMsg[SelectionLoadedMsg](msgs)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.False(t, loaded.Email.Preview)
	assert.Equal(t, "How much is it for ten seats?", loaded.Email.Body.Text)

	f.fake.Lock()
	assert.Equal(t, []string{"t1"}, f.fake.MarkedRead)
	var leadQueries int
	for _, q := range f.fake.Queries["/api/emails"] {
		if q.Get("lead_email") == "zed@example.com" {
			assert.Equal(t, "false", q.Get("preview_only"))
			assert.Equal(t, model.EmailTypeAll, q.Get("email_type"))
			leadQueries++
		}
	}
	f.fake.Unlock()
	assert.Positive(t, leadQueries)

	assert.Equal(t, "e1", f.model.SelectedID())
	for _, e := range f.model.Emails() {
		assert.False(t, e.IsUnread, "email %s", e.ID)
	}
}

func TestSelect_ReadEmailSkipsMarkRead(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())

	f.run(t, f.model.Select(f.model.Emails()[0]))
	f.fake.Lock()
	defer f.fake.Unlock()
	assert.Empty(t, f.fake.MarkedRead)
}

func TestSelect_FullFetchFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())
	preview := f.model.Emails()[0]

	f.fake.Fail("/api/emails", testutil.Failure{Status: http.StatusBadGateway})
	msgs := f.run(t, f.model.Select(preview))

	loaded, ok := testutil.FindMsg[SelectionLoadedMsg](msgs)
	require.True(t, ok)
	require.Error(t, loaded.Err)
	assert.Equal(t, preview.ID, loaded.Email.ID)
	assert.True(t, loaded.Email.Preview)

	shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Failed to load email", shown.Toast.Title)
	assert.Equal(t, preview.ID, f.model.SelectedID())
}

func TestSelect_MarkReadFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())
	f.fake.Fail("/api/emails/mark-read/t1", testutil.Failure{Status: http.StatusInternalServerError})

	var unread model.Email
	for _, e := range f.model.Emails() {
		if e.IsUnread {
			unread = e
		}
	}
	msgs := f.run(t, f.model.Select(unread))

	mr, ok := testutil.FindMsg[MarkReadMsg](msgs)
	require.True(t, ok)
	assert.Error(t, mr.Err)
	assert.Zero(t, testutil.CountMsgs[toast.ShowMsg](msgs))
	assert.Equal(t, "e1", f.model.SelectedID())
}

func TestSend_InvalidatesListings(t *testing.T) {
	f := newFixture(t)
	f.run(t, f.model.Init())
	require.Equal(t, 1, f.cache.Len())

	err := f.model.Send(context.Background(), model.SendEmailRequest{
		To: "amy@example.com", Subject: "Hi", Body: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Len())

	f.fake.Fail("/api/emails/send", testutil.Failure{Status: http.StatusBadRequest, Detail: "nope"})
	f.run(t, f.model.Load())
	err = f.model.Send(context.Background(), model.SendEmailRequest{
		To: "amy@example.com", Subject: "Hi", Body: "Hello",
	})
	require.Error(t, err)
	assert.Equal(t, 1, f.cache.Len())
}

func TestComposeKeyOpensDialog(t *testing.T) {
	f := newFixture(t)
	msgs := f.press(t, "n")
	_, ok := testutil.FindMsg[compose.OpenMsg](msgs)
	assert.True(t, ok)
}

func TestView_EmptyStates(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.model.View(), "Loading emails")

	f.fake.Lock()
	f.fake.Emails = nil
	f.fake.Unlock()
	f.run(t, f.model.Init())
	assert.Contains(t, f.model.View(), "No emails yet")

	f.press(t, "l")
	assert.Contains(t, f.model.View(), "No matching emails")
}

func TestNextLabel_Cycles(t *testing.T) {
	label := ""
	seen := map[string]bool{}
	for i := 0; i <= len(model.FilterLabels); i++ {
		label = nextLabel(label)
		seen[label] = true
	}
	assert.Equal(t, "", label)
	assert.Len(t, seen, len(model.FilterLabels)+1)
}
