package config

import (
	"errors"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
	"github.com/nhle/outreach-inbox/tests/testutil"
)

type fakeCreds struct {
	saved   string
	cleared int
	err     error
}

func (c *fakeCreds) SaveToken(token string) error {
	if c.err != nil {
		return c.err
	}
	c.saved = token
	return nil
}

func (c *fakeCreds) ClearToken() error {
	if c.err != nil {
		return c.err
	}
	c.cleared++
	return nil
}

func newModel(t *testing.T, opts ...api.Option) (Model, *testutil.FakeAPI, *fakeCreds) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	creds := &fakeCreds{}
	m := New(api.NewClient(fake.URL(), opts...), creds, false, keys.DefaultKeyMap(), 100, 30)
	return m, fake, creds
}

// runValidation feeds the connection check result back into m.
func runValidation(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	msgs := testutil.CollectMsgs(cmd, testutil.CmdWait*10)
	result, ok := testutil.FindMsg[ValidateResultMsg](msgs)
	require.True(t, ok)
	m, _ = m.Update(result)
	return m
}

func TestOverview(t *testing.T) {
	m, fake, _ := newModel(t)

	view := m.View()
	assert.Contains(t, view, "Connection")
	assert.Contains(t, view, fake.URL())
	assert.Contains(t, view, "not set")
	assert.False(t, m.Capturing())

	m, _, _ = newModel(t, api.WithToken("tok"))
	assert.NotContains(t, m.View(), "not set")
}

func TestValidate_Success(t *testing.T) {
	m, fake, _ := newModel(t)
	fake.Emails = []model.Email{
		{ID: "e1", ThreadID: "t1", IsUnread: true},
		{ID: "e2", ThreadID: "t2"},
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ModeValidating, m.Mode())
	assert.Contains(t, m.View(), "Testing connection")

	m = runValidation(t, m, cmd)
	assert.Equal(t, ModeValidateResult, m.Mode())
	assert.Contains(t, m.View(), "Connection successful")
	assert.Contains(t, m.View(), "1 unread")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestValidate_FailureAndRetry(t *testing.T) {
	m, fake, _ := newModel(t)
	fake.Fail("/api/emails/unread/count", testutil.Failure{Status: http.StatusUnauthorized, Detail: "Invalid token"})

	cmd := m.Validate()
	m = runValidation(t, m, cmd)
	assert.Contains(t, m.View(), "Connection failed")
	assert.Contains(t, m.View(), "Invalid token")

	fake.ClearFailures()
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.Equal(t, ModeValidating, m.Mode())
	m = runValidation(t, m, cmd)
	assert.Contains(t, m.View(), "Connection successful")
}

func TestValidate_CancelledResultIgnored(t *testing.T) {
	m, _, _ := newModel(t)

	cmd := m.Validate()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ModeOverview, m.Mode())

	m = runValidation(t, m, cmd)
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestValidate_StaleSeqIgnored(t *testing.T) {
	m, _, _ := newModel(t)

	m.Validate()
	m.Validate()
	m, _ = m.Update(ValidateResultMsg{Seq: 1, Err: errors.New("old")})
	assert.Equal(t, ModeValidating, m.Mode())

	m, _ = m.Update(ValidateResultMsg{Seq: 2, Unread: 4})
	assert.Equal(t, ModeValidateResult, m.Mode())
	assert.Contains(t, m.View(), "4 unread")
}

func TestSaveToken(t *testing.T) {
	m, _, creds := newModel(t)

	cmd := m.SaveToken("  new-token ")
	m, cmd = m.Update(cmd())
	assert.Equal(t, "new-token", creds.saved)
	assert.Contains(t, m.View(), "Token saved")

	msgs := testutil.CollectMsgs(cmd, testutil.CmdWait)
	changed, ok := testutil.FindMsg[TokenChangedMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "new-token", changed.Token)
	_, ok = testutil.FindMsg[toast.ShowMsg](msgs)
	assert.True(t, ok)
}

func TestSaveToken_BlankClears(t *testing.T) {
	m, _, creds := newModel(t)

	cmd := m.SaveToken(" ")
	m, cmd = m.Update(cmd())
	assert.Equal(t, 1, creds.cleared)
	assert.Contains(t, m.View(), "Token removed")

	require.NotNil(t, cmd)
	changed, ok := cmd().(TokenChangedMsg)
	require.True(t, ok)
	assert.Empty(t, changed.Token)
}

func TestSaveToken_KeyringFailure(t *testing.T) {
	m, _, creds := newModel(t)
	creds.err = errors.New("keyring locked")

	cmd := m.SaveToken("tok")
	m, cmd = m.Update(cmd())

	shown, ok := cmd().(toast.ShowMsg)
	require.True(t, ok)
	assert.Equal(t, "Could not update token", shown.Toast.Title)
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestTokenForm_OpenAndEscape(t *testing.T) {
	m, _, _ := newModel(t)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	require.Equal(t, ModeTokenForm, m.Mode())
	assert.True(t, m.Capturing())
	assert.Contains(t, m.View(), "API Token")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeOverview, m.Mode())
}

func TestRemoveToken_RequiresToken(t *testing.T) {
	m, _, _ := newModel(t)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Nil(t, cmd)
	assert.Equal(t, ModeOverview, m.Mode())
	assert.Contains(t, m.View(), "No token to remove")

	m, _, _ = newModel(t, api.WithToken("tok"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Equal(t, ModeConfirmClear, m.Mode())
	assert.Contains(t, m.View(), "Remove the stored API token?")
}

func TestBackSendsDone(t *testing.T) {
	m, _, _ := newModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, DoneMsg{}, cmd())
}
