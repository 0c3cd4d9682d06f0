package testutil

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// CmdWait bounds how long CollectMsgs waits for a single command. Timers
// (toast expiry, debounce, cursor blink) outlive it and are skipped.
const CmdWait = 100 * time.Millisecond

// CollectMsgs runs cmd and returns every message it produces, expanding
// batches. Commands that do not finish within wait are dropped.
func CollectMsgs(cmd tea.Cmd, wait time.Duration) []tea.Msg {
	if cmd == nil {
		return nil
	}

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(wait):
		return nil
	}
	if msg == nil {
		return nil
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, CollectMsgs(c, wait)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// FindMsg returns the first message of type T in msgs.
func FindMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if typed, ok := m.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// CountMsgs returns how many messages in msgs have type T.
func CountMsgs[T any](msgs []tea.Msg) int {
	n := 0
	for _, m := range msgs {
		if _, ok := m.(T); ok {
			n++
		}
	}
	return n
}
