package compose

import (
	"context"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
	"github.com/nhle/outreach-inbox/tests/testutil"
)

type recorder struct {
	calls atomic.Int32
	last  model.SendEmailRequest
	err   error
}

func (r *recorder) send(_ context.Context, req model.SendEmailRequest) error {
	r.calls.Add(1)
	r.last = req
	return r.err
}

func opened(t *testing.T, rec *recorder, p Params) Model {
	t.Helper()
	m := New(rec.send, 100, 40)
	m.Open(p)
	return m
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     model.SendEmailRequest
		wantErr error
		invalid bool
	}{
		{
			name: "complete",
			req:  model.SendEmailRequest{To: "ada@example.com", Subject: "Hi", Body: "Hello"},
		},
		{
			name: "named recipient list",
			req:  model.SendEmailRequest{To: "Ada <ada@example.com>, bob@example.com", Subject: "Hi", Body: "Hello"},
		},
		{
			name:    "blank subject",
			req:     model.SendEmailRequest{To: "ada@example.com", Subject: "   ", Body: "Hello"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "blank body",
			req:     model.SendEmailRequest{To: "ada@example.com", Subject: "Hi", Body: "\n\t"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "not an address",
			req:     model.SendEmailRequest{To: "ada", Subject: "Hi", Body: "Hello"},
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.invalid:
				require.Error(t, err)
				assert.True(t, api.IsValidation(err))
				assert.Contains(t, err.Error(), "Not a valid email address")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestProperty_BlankFieldNeverSends(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	blanks := []string{"", " ", "\t", "\n  "}
	values := []string{"ada@example.com", "Hello", "x"}

	properties.Property("a blank field rejects the submission", prop.ForAll(
		func(which, blank, a, b int) bool {
			rest := []string{values[a], values[b]}
			var fields [3]string
			for i := range fields {
				if i == which {
					fields[i] = blanks[blank]
					continue
				}
				fields[i], rest = rest[0], rest[1:]
			}
			p := Params{To: fields[0], Subject: fields[1], Body: fields[2]}

			rec := &recorder{}
			m := New(rec.send, 100, 40)
			m.Open(p)
			cmd := m.Submit()

			msgs := testutil.CollectMsgs(cmd, testutil.CmdWait)
			shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
			return rec.calls.Load() == 0 &&
				!m.Sending() &&
				ok && shown.Toast.Title == MissingFieldsTitle
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, len(blanks)-1),
		gen.IntRange(0, len(values)-1),
		gen.IntRange(0, len(values)-1),
	))

	properties.TestingRun(t)
}

func TestSubmit_InvalidRecipientDoesNotSend(t *testing.T) {
	rec := &recorder{}
	m := opened(t, rec, Params{To: "not-an-email", Subject: "Hi", Body: "Hello"})

	msgs := testutil.CollectMsgs(m.Submit(), testutil.CmdWait)
	shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, InvalidToTitle, shown.Toast.Title)
	assert.Zero(t, rec.calls.Load())
	assert.Contains(t, m.View(), "Not a valid email address")
}

func TestSubmit_SendsAndCloses(t *testing.T) {
	rec := &recorder{}
	m := opened(t, rec, Params{To: " ada@example.com ", Subject: " Hi ", Body: "Hello"})

	cmd := m.Submit()
	require.NotNil(t, cmd)
	assert.True(t, m.Sending())
	assert.Contains(t, m.View(), "Sending...")

	// A second submission while in flight is ignored.
	assert.Nil(t, m.Submit())

	msg := cmd()
	assert.EqualValues(t, 1, rec.calls.Load())
	assert.Equal(t, "ada@example.com", rec.last.To)
	assert.Equal(t, "Hi", rec.last.Subject)
	assert.Empty(t, rec.last.ReplyToID)

	m, cmd = m.Update(msg)
	assert.False(t, m.Sending())
	msgs := testutil.CollectMsgs(cmd, testutil.CmdWait)
	closed, ok := testutil.FindMsg[ClosedMsg](msgs)
	require.True(t, ok)
	assert.True(t, closed.Sent)
	shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, toast.KindSuccess, shown.Toast.Kind)
}

func TestSubmit_ReplyKeepsTarget(t *testing.T) {
	rec := &recorder{}
	m := opened(t, rec, Params{
		To:        "ada@example.com",
		Subject:   "Re: Intro",
		Body:      "Thanks!",
		ReplyToID: "msg-42",
	})
	assert.True(t, m.IsReply())
	assert.Contains(t, m.View(), "Reply")

	cmd := m.Submit()
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, "msg-42", rec.last.ReplyToID)
	assert.Equal(t, "Re: Intro", rec.last.Subject)
}

func TestSubmit_FailureKeepsDialogOpen(t *testing.T) {
	rec := &recorder{err: &api.Error{Kind: api.KindConnectivity, Message: api.MsgConnectivity}}
	m := opened(t, rec, Params{To: "ada@example.com", Subject: "Hi", Body: "Hello"})

	msg := m.Submit()()
	m, cmd := m.Update(msg)

	assert.False(t, m.Sending())
	msgs := testutil.CollectMsgs(cmd, testutil.CmdWait)
	assert.Zero(t, testutil.CountMsgs[ClosedMsg](msgs))
	shown, ok := testutil.FindMsg[toast.ShowMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "Connection Error", shown.Toast.Title)
	assert.Contains(t, m.View(), api.MsgConnectivity)

	// Entered values survive for a retry.
	assert.Equal(t, "Hi", m.Request().Subject)

	rec.err = nil
	retry := m.Submit()
	require.NotNil(t, retry)
	retry()
	assert.EqualValues(t, 2, rec.calls.Load())
}

func TestEscCloses(t *testing.T) {
	rec := &recorder{}
	m := opened(t, rec, Params{})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	closed, ok := cmd().(ClosedMsg)
	require.True(t, ok)
	assert.False(t, closed.Sent)
	assert.Zero(t, rec.calls.Load())
}

func TestEscIgnoredWhileSending(t *testing.T) {
	rec := &recorder{}
	m := opened(t, rec, Params{To: "ada@example.com", Subject: "Hi", Body: "Hello"})
	require.NotNil(t, m.Submit())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.True(t, m.Sending())
}
