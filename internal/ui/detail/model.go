package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/eml"
	"github.com/nhle/outreach-inbox/internal/keys"
	"github.com/nhle/outreach-inbox/internal/mailfmt"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/query"
	"github.com/nhle/outreach-inbox/internal/theme"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// Backend is the subset of the API client used for relabeling.
type Backend interface {
	ListLabels(ctx context.Context) ([]string, error)
	UpdateLabel(ctx context.Context, emailID, label string) error
}

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// ReplySentMsg is sent after an inline reply was delivered.
type ReplySentMsg struct {
	ReplyToID string
}

// LabelChangedMsg is sent after the label of an email was updated.
type LabelChangedMsg struct {
	ID    string
	Label string
}

type replyResultMsg struct {
	replyToID string
	err       error
}

type labelsLoadedMsg struct {
	labels []string
	err    error
}

type labelUpdatedMsg struct {
	id    string
	label string
	err   error
}

type exportedMsg struct {
	path string
	err  error
}

// labelsKey caches the backend label list.
var labelsKey = query.Key{"labels"}

const labelsStaleTime = 5 * time.Minute

// replyHeight is the number of rows the open reply panel occupies.
const replyHeight = 11

// labelBinding keeps the selected label on the heap so the huh select
// pointer survives model copies.
type labelBinding struct {
	label string
}

// Model is the email thread view with an inline reply form.
type Model struct {
	email    *model.Email
	viewport viewport.Model
	keys     *keys.KeyMap
	backend  Backend
	cache    *query.Cache
	send     compose.SendFunc

	exportDir string

	replyOpen    bool
	replyInput   textarea.Model
	replySending bool
	replyErr     string

	labelForm *huh.Form
	labelFB   *labelBinding

	width  int
	height int
}

// New creates the detail view. send delivers inline replies.
func New(
	b Backend,
	c *query.Cache,
	send compose.SendFunc,
	k *keys.KeyMap,
	exportDir string,
	width, height int,
) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	ta := textarea.New()
	ta.Placeholder = "Write your reply..."
	ta.ShowLineNumbers = false
	ta.SetWidth(max(width-6, 20))
	ta.SetHeight(5)

	return Model{
		viewport:   vp,
		keys:       k,
		backend:    b,
		cache:      c,
		send:       send,
		exportDir:  exportDir,
		replyInput: ta,
		labelFB:    &labelBinding{},
		width:      width,
		height:     height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Email returns the displayed email, or nil.
func (m Model) Email() *model.Email {
	return m.email
}

// CurrentID returns the id of the displayed email, or "".
func (m Model) CurrentID() string {
	if m.email == nil {
		return ""
	}
	return m.email.ID
}

// ReplyOpen reports whether the inline reply form is expanded.
func (m Model) ReplyOpen() bool { return m.replyOpen }

// ReplySending reports whether a reply is in flight.
func (m Model) ReplySending() bool { return m.replySending }

// Capturing reports whether the view is consuming raw text input.
func (m Model) Capturing() bool {
	return m.replyOpen || m.labelForm != nil
}

// SetEmail shows e. Switching to another email discards the reply form.
func (m *Model) SetEmail(e model.Email) {
	if m.email == nil || m.email.ID != e.ID {
		m.closeReply()
		m.labelForm = nil
	}
	m.email = &e
	m.refreshContent()
	m.viewport.GotoTop()
}

// UpdateEmail replaces the displayed email with a more complete copy of
// the same message. Copies of other messages are ignored.
func (m *Model) UpdateEmail(e model.Email) {
	if m.email == nil || m.email.ID != e.ID {
		return
	}
	m.email = &e
	m.refreshContent()
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case replyResultMsg:
		m.replySending = false
		if msg.err != nil {
			slog.Warn("reply failed", "reply_to", msg.replyToID, "error", msg.err)
			m.replyErr = msg.err.Error()
			m.resize()
			return m, toast.ErrorFor("Failed to send reply", msg.err, toast.DefaultDuration)
		}
		m.closeReply()
		m.resize()
		id := msg.replyToID
		return m, tea.Batch(
			toast.Success("Reply sent", "Your reply has been sent successfully."),
			func() tea.Msg { return ReplySentMsg{ReplyToID: id} },
		)

	case labelsLoadedMsg:
		if msg.err != nil {
			return m, toast.ErrorFor("Failed to load labels", msg.err, toast.DefaultDuration)
		}
		if m.email == nil {
			return m, nil
		}
		m.labelFB = &labelBinding{label: m.email.Label}
		m.labelForm = buildLabelForm(msg.labels, m.labelFB, m.width)
		return m, m.labelForm.Init()

	case labelUpdatedMsg:
		if msg.err != nil {
			return m, toast.ErrorFor("Failed to update label", msg.err, toast.DefaultDuration)
		}
		if m.email != nil && m.email.ID == msg.id {
			m.email.Label = msg.label
			m.refreshContent()
		}
		id, label := msg.id, msg.label
		return m, tea.Batch(
			toast.Success("Label updated", model.LabelDisplayName(label)),
			func() tea.Msg { return LabelChangedMsg{ID: id, Label: label} },
		)

	case exportedMsg:
		if msg.err != nil {
			return m, toast.ErrorFor("Export failed", msg.err, toast.DefaultDuration)
		}
		return m, toast.Info("Exported", msg.path)

	case tea.KeyMsg:
		if m.labelForm != nil {
			return m.updateLabelForm(msg)
		}
		if m.replyOpen {
			return m.handleReplyKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	if m.labelForm != nil {
		return m.updateLabelForm(msg)
	}
	if m.replyOpen {
		var cmd tea.Cmd
		m.replyInput, cmd = m.replyInput.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Reply):
		if m.email == nil {
			return m, nil
		}
		m.replyOpen = true
		m.replyErr = ""
		m.resize()
		return m, m.replyInput.Focus()

	case key.Matches(msg, m.keys.Relabel):
		if m.email == nil {
			return m, nil
		}
		return m, m.loadLabels()

	case key.Matches(msg, m.keys.Export):
		if m.email == nil {
			return m, nil
		}
		e, dir := *m.email, m.exportDir
		return m, func() tea.Msg {
			path, err := eml.Export(dir, e)
			return exportedMsg{path: path, err: err}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleReplyKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.replySending {
			return m, nil
		}
		m.closeReply()
		m.resize()
		return m, nil

	case "ctrl+s":
		return m, m.SubmitReply()
	}

	if m.replySending {
		return m, nil
	}
	var cmd tea.Cmd
	m.replyInput, cmd = m.replyInput.Update(msg)
	return m, cmd
}

// ReplyRequest returns the reply as currently entered.
func (m Model) ReplyRequest() model.SendEmailRequest {
	if m.email == nil {
		return model.SendEmailRequest{}
	}
	to := m.email.FromAddressEmail
	if to == "" && len(m.email.FromAddresses) > 0 {
		to = m.email.FromAddresses[0].Address
	}
	return model.SendEmailRequest{
		To:        to,
		Subject:   mailfmt.ReplySubject(m.email.Subject),
		Body:      m.replyInput.Value(),
		ReplyToID: m.email.ID,
	}
}

// SubmitReply validates and sends the inline reply. Invalid or in-flight
// submissions never reach the send callback.
func (m *Model) SubmitReply() tea.Cmd {
	if m.replySending || m.email == nil {
		return nil
	}

	req := m.ReplyRequest()
	if err := compose.Validate(req); err != nil {
		title := compose.InvalidToTitle
		if errors.Is(err, compose.ErrMissingFields) {
			title = compose.MissingFieldsTitle
		}
		m.replyErr = err.Error()
		return toast.Error(title, err.Error())
	}

	m.replySending = true
	m.replyErr = ""
	send := m.send
	return func() tea.Msg {
		return replyResultMsg{
			replyToID: req.ReplyToID,
			err:       send(context.Background(), req),
		}
	}
}

func (m *Model) closeReply() {
	m.replyOpen = false
	m.replySending = false
	m.replyErr = ""
	m.replyInput.Reset()
	m.replyInput.Blur()
}

func (m Model) loadLabels() tea.Cmd {
	b, c := m.backend, m.cache
	return func() tea.Msg {
		labels, err := query.Fetch(context.Background(), c, labelsKey,
			query.Options{StaleTime: labelsStaleTime, Retry: 1},
			b.ListLabels,
		)
		if err == nil && len(labels) == 0 {
			labels = model.FilterLabels
		}
		return labelsLoadedMsg{labels: labels, err: err}
	}
}

func buildLabelForm(labels []string, fb *labelBinding, width int) *huh.Form {
	options := make([]huh.Option[string], 0, len(labels))
	for _, l := range labels {
		options = append(options, huh.NewOption(model.LabelDisplayName(l), l))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Label").
				Options(options...).
				Value(&fb.label),
		),
	).WithWidth(max(width-4, 30)).WithShowHelp(false)
}

func (m Model) updateLabelForm(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.labelForm = nil
		return m, nil
	}

	mdl, cmd := m.labelForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.labelForm = f
	}

	switch m.labelForm.State {
	case huh.StateCompleted:
		m.labelForm = nil
		return m, m.applyLabel(m.labelFB.label)
	case huh.StateAborted:
		m.labelForm = nil
		return m, nil
	}
	return m, cmd
}

// applyLabel updates the label of the displayed email.
func (m Model) applyLabel(label string) tea.Cmd {
	if m.email == nil || label == m.email.Label {
		return nil
	}
	b, c, id := m.backend, m.cache, m.email.ID
	return func() tea.Msg {
		err := b.UpdateLabel(context.Background(), id, label)
		if err == nil {
			c.Invalidate(query.Key{"emails"})
		}
		return labelUpdatedMsg{id: id, label: label, err: err}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.email == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No email selected")
	}

	if m.labelForm != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			theme.PanelStyle.Render(m.labelForm.View()),
		)
	}

	if m.replyOpen {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			m.renderReply(),
		)
	}
	return m.viewport.View()
}

func (m Model) renderReply() string {
	req := m.ReplyRequest()
	lines := []string{
		theme.TitleStyle.Render("Reply"),
		theme.FieldLabelStyle.Render("To") + " " + req.To,
		theme.FieldLabelStyle.Render("Subj") + " " + req.Subject,
	}
	if m.replySending {
		lines = append(lines, theme.MutedStyle.Render("Sending..."))
	} else {
		lines = append(lines, m.replyInput.View())
	}
	if m.replyErr != "" {
		lines = append(lines, theme.ErrorTextStyle.Render(m.replyErr))
	}
	lines = append(lines, theme.HelpStyle.Render("ctrl+s send · esc cancel"))

	return theme.PanelStyle.
		Width(max(m.width-2, 20)).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(m.renderContent())
}

// renderContent builds the header, body and thread for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}
	e := m.email
	wrap := lipgloss.NewStyle().Width(max(min(m.width-2, 100), 20))

	var sections []string
	sections = append(sections, theme.TitleStyle.Render(mailfmt.Subject(e.Subject)))
	if e.Label != "" {
		sections = append(sections,
			theme.LabelStyle(e.Label).Render(model.LabelDisplayName(e.Label)))
	}
	sections = append(sections, "")

	field := func(name, value string) {
		if value == "" {
			return
		}
		sections = append(sections, theme.FieldLabelStyle.Render(name)+" "+value)
	}
	from := mailfmt.Addresses(e.FromAddresses)
	if from == "" {
		from = e.FromAddressEmail
	}
	field("From", from)
	field("To", mailfmt.Addresses(e.ToAddresses))
	field("Cc", mailfmt.Addresses(e.CCAddresses))
	field("Date", mailfmt.Timestamp(*e))

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 10)))
	sections = append(sections, "", separator, "")

	sections = append(sections, wrap.Render(bodyText(*e)))
	if e.Preview {
		sections = append(sections, "", theme.MutedStyle.Render("Loading full message..."))
	}

	ancestors := model.ThreadAncestors(e.Thread, e.ID)
	if len(ancestors) > 0 {
		sections = append(sections, "", separator, "",
			theme.TitleStyle.Render(fmt.Sprintf("Previous Messages (%d)", len(ancestors))),
			"",
		)
		author := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
		for _, a := range ancestors {
			sections = append(sections,
				author.Render(a.SenderName())+"  "+theme.MutedStyle.Render(mailfmt.Timestamp(a)),
				wrap.Render(bodyText(a)),
				"",
			)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// bodyText renders the body of e. A preview record has no body yet, so
// its content preview stands in.
func bodyText(e model.Email) string {
	if e.Preview && e.Body.IsEmpty() && e.ContentPreview != "" {
		return e.ContentPreview
	}
	return mailfmt.Body(e.Body)
}

// resize recomputes the viewport height around the reply panel.
func (m *Model) resize() {
	h := m.height - 2
	if m.replyOpen {
		h -= replyHeight
	}
	m.viewport.Height = max(h, 3)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.replyInput.SetWidth(max(width-6, 20))
	m.resize()
	m.refreshContent()
}
