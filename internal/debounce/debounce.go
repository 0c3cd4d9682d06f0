// Package debounce coalesces bursts of input into a single event fired
// after a quiet window, in the Bubble Tea message style.
package debounce

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// FiredMsg is delivered when a debounce window elapses. Only the message
// carrying the latest sequence number is accepted.
type FiredMsg struct {
	ID    string
	Seq   int
	Value string
}

// Debouncer tracks the latest pending value for one input. The zero value
// is not usable; use New.
type Debouncer struct {
	id    string
	delay time.Duration
	seq   int
}

// New creates a Debouncer. id distinguishes messages of different inputs.
func New(id string, delay time.Duration) Debouncer {
	return Debouncer{id: id, delay: delay}
}

// Trigger records value as the pending input and returns a command that
// fires after the delay. Earlier pending fires become stale.
func (d *Debouncer) Trigger(value string) tea.Cmd {
	d.seq++
	msg := FiredMsg{ID: d.id, Seq: d.seq, Value: value}
	if d.delay <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(d.delay, func(time.Time) tea.Msg { return msg })
}

// Accept reports whether msg is the most recent fire for this debouncer.
func (d Debouncer) Accept(msg FiredMsg) bool {
	return msg.ID == d.id && msg.Seq == d.seq
}

// Delay returns the quiet window.
func (d Debouncer) Delay() time.Duration {
	return d.delay
}
