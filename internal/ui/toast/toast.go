// Package toast holds transient notifications shown in the status bar.
package toast

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/theme"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Default display durations.
const (
	DefaultDuration = 3 * time.Second
	LongDuration    = 5 * time.Second
)

// Toast is a single notification.
type Toast struct {
	ID          string
	Kind        Kind
	Title       string
	Description string
	Duration    time.Duration
}

// ShowMsg asks the root model to display a toast. Views return it from
// their commands instead of holding toast state themselves.
type ShowMsg struct {
	Toast Toast
}

// ExpiredMsg removes the toast with ID.
type ExpiredMsg struct {
	ID string
}

func show(kind Kind, title, description string, d time.Duration) tea.Cmd {
	t := Toast{
		ID:          uuid.NewString(),
		Kind:        kind,
		Title:       title,
		Description: description,
		Duration:    d,
	}
	return func() tea.Msg { return ShowMsg{Toast: t} }
}

// Success shows a success toast.
func Success(title, description string) tea.Cmd {
	return show(KindSuccess, title, description, DefaultDuration)
}

// Info shows an informational toast.
func Info(title, description string) tea.Cmd {
	return show(KindInfo, title, description, DefaultDuration)
}

// Error shows an error toast.
func Error(title, description string) tea.Cmd {
	return show(KindError, title, description, DefaultDuration)
}

// ErrorFor shows an error toast for err with a title that depends on the
// error kind. Connectivity failures are titled separately so users can
// tell a dead network from a rejected request.
func ErrorFor(title string, err error, d time.Duration) tea.Cmd {
	if api.IsConnectivity(err) {
		title = "Connection Error"
	}
	return show(KindError, title, api.Message(err), d)
}

// Model keeps the visible toasts, oldest first.
type Model struct {
	toasts []Toast
}

// New creates an empty toast model.
func New() Model {
	return Model{}
}

// Update handles ShowMsg and ExpiredMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowMsg:
		t := msg.Toast
		if t.Duration <= 0 {
			t.Duration = DefaultDuration
		}
		m.toasts = append(m.toasts, t)
		id := t.ID
		return m, tea.Tick(t.Duration, func(time.Time) tea.Msg {
			return ExpiredMsg{ID: id}
		})

	case ExpiredMsg:
		kept := m.toasts[:0:0]
		for _, t := range m.toasts {
			if t.ID != msg.ID {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
	}
	return m, nil
}

// Current returns the newest visible toast.
func (m Model) Current() (Toast, bool) {
	if len(m.toasts) == 0 {
		return Toast{}, false
	}
	return m.toasts[len(m.toasts)-1], true
}

// Len returns the number of visible toasts.
func (m Model) Len() int {
	return len(m.toasts)
}

// View renders the newest toast, or "" when none is visible.
func (m Model) View() string {
	t, ok := m.Current()
	if !ok {
		return ""
	}
	text := t.Title
	if t.Description != "" {
		text += ": " + t.Description
	}
	return theme.ToastStyle(string(t.Kind)).Render(text)
}
