package compose

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Validation toast text.
const (
	MissingFieldsTitle = "Missing Fields"
	MissingFieldsText  = "Please fill in all required fields."
	InvalidToTitle     = "Invalid Recipient"
)

// ErrMissingFields rejects a message with a blank field.
var ErrMissingFields = api.NewValidationError(MissingFieldsText)

// SendFunc delivers a message. It is supplied by the owner of the dialog
// and is responsible for any cache invalidation on success.
type SendFunc func(ctx context.Context, req model.SendEmailRequest) error

// Params preloads the dialog.
type Params struct {
	To        string
	Subject   string
	Body      string
	ReplyToID string
}

// OpenMsg asks the root model to open the compose dialog.
type OpenMsg struct {
	Params Params
}

// ClosedMsg is dispatched when the dialog closes. Sent is true only after
// a successful send.
type ClosedMsg struct {
	Sent bool
}

// sentMsg carries the result of a send attempt.
type sentMsg struct {
	err error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	to      string
	subject string
	body    string
}

// Model is the compose dialog.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	replyToID string
	send      SendFunc
	sending   bool
	lastErr   string
	width     int
	height    int
}

// New creates a compose dialog that delivers through send.
func New(send SendFunc, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		send:   send,
		width:  width,
		height: height,
	}
}

// Open resets the dialog with p and returns the form's init command.
func (m *Model) Open(p Params) tea.Cmd {
	m.fb = &formBindings{to: p.To, subject: p.Subject, body: p.Body}
	m.replyToID = p.ReplyToID
	m.sending = false
	m.lastErr = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// IsReply reports whether the recipient is locked to a reply target.
func (m Model) IsReply() bool {
	return m.replyToID != ""
}

// Sending reports whether a send is in flight.
func (m Model) Sending() bool {
	return m.sending
}

// Request returns the message as currently entered.
func (m Model) Request() model.SendEmailRequest {
	return model.SendEmailRequest{
		To:        strings.TrimSpace(m.fb.to),
		Subject:   strings.TrimSpace(m.fb.subject),
		Body:      m.fb.body,
		ReplyToID: m.replyToID,
	}
}

// Validate checks a request before it may reach the network. Every field
// must be non-blank and To must hold at least one valid address.
func Validate(req model.SendEmailRequest) error {
	if strings.TrimSpace(req.To) == "" ||
		strings.TrimSpace(req.Subject) == "" ||
		strings.TrimSpace(req.Body) == "" {
		return ErrMissingFields
	}
	for _, part := range strings.Split(req.To, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if _, err := model.ParseAddress(part); err != nil {
			return &api.Error{
				Kind:    api.KindValidation,
				Message: "Not a valid email address: " + strings.TrimSpace(part),
				Err:     err,
			}
		}
	}
	return nil
}

// Update handles messages for the compose dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sentMsg:
		m.sending = false
		if msg.err != nil {
			slog.Warn("send failed", "error", msg.err)
			m.lastErr = api.Message(msg.err)
			return m, tea.Batch(
				m.rearm(),
				toast.ErrorFor("Failed to send email", msg.err, toast.DefaultDuration),
			)
		}
		m.form = nil
		return m, tea.Batch(
			func() tea.Msg { return ClosedMsg{Sent: true} },
			toast.Success("Email sent", "Your email has been sent successfully."),
		)

	case tea.KeyMsg:
		if msg.String() == "esc" && !m.sending {
			m.form = nil
			return m, func() tea.Msg { return ClosedMsg{} }
		}
	}

	if m.form == nil || m.sending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.Submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return ClosedMsg{} }
	}

	return m, cmd
}

// Submit validates the entered message and, when valid, sends it. A
// rejected or in-flight submission never calls the SendFunc.
func (m *Model) Submit() tea.Cmd {
	if m.sending {
		return nil
	}

	req := m.Request()
	if err := Validate(req); err != nil {
		title := InvalidToTitle
		if errors.Is(err, ErrMissingFields) {
			title = MissingFieldsTitle
		}
		m.lastErr = err.Error()
		return tea.Batch(m.rearm(), toast.Error(title, err.Error()))
	}

	m.sending = true
	m.lastErr = ""
	send := m.send
	return func() tea.Msg {
		return sentMsg{err: send(context.Background(), req)}
	}
}

// rearm rebuilds the form with the current values so the user can edit
// and resubmit.
func (m *Model) rearm() tea.Cmd {
	m.form = m.buildForm()
	return m.form.Init()
}

// View renders the compose dialog.
func (m Model) View() string {
	title := "New Message"
	if m.IsReply() {
		title = "Reply"
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.MarginBottom(1).Render(title))
	b.WriteString("\n")

	switch {
	case m.sending:
		b.WriteString(theme.MutedStyle.Render("Sending..."))
	case m.form != nil:
		b.WriteString(m.form.View())
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(theme.ErrorTextStyle.Render(m.lastErr))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m *Model) buildForm() *huh.Form {
	var to huh.Field
	if m.IsReply() {
		to = huh.NewNote().
			Title("To").
			Description(m.fb.to)
	} else {
		to = huh.NewInput().
			Title("To").
			Placeholder("name@example.com").
			Value(&m.fb.to)
	}

	return huh.NewForm(
		huh.NewGroup(
			to,
			huh.NewInput().
				Title("Subject").
				Placeholder("Subject").
				Value(&m.fb.subject),
			huh.NewText().
				Title("Message").
				Placeholder("Write your message...").
				Lines(8).
				Value(&m.fb.body),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
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

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 12 {
		h = 12
	}
	return h
}
