package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMsg_NameAndArgs(t *testing.T) {
	c := CommandMsg("Compose  ada@example.com")
	assert.Equal(t, Compose, c.Name())
	assert.Equal(t, []string{"ada@example.com"}, c.Args())

	assert.Equal(t, "", CommandMsg("  ").Name())
	assert.Nil(t, CommandMsg("quit").Args())
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 20)
	for _, r := range "contacts" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("contacts"), cmd())
	assert.Contains(t, m.View(), "Command Palette")
}

func TestEnterOnBlankIsNoop(t *testing.T) {
	m := New(80, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
