package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_OnlyLatestAccepted(t *testing.T) {
	d := New("search", 0)

	first := d.Trigger("a")
	second := d.Trigger("ab")
	third := d.Trigger("abc")

	m1 := first().(FiredMsg)
	m2 := second().(FiredMsg)
	m3 := third().(FiredMsg)

	assert.False(t, d.Accept(m1))
	assert.False(t, d.Accept(m2))
	require.True(t, d.Accept(m3))
	assert.Equal(t, "abc", m3.Value)
}

func TestDebouncer_IgnoresOtherInputs(t *testing.T) {
	search := New("search", 0)
	other := New("other", 0)

	msg := other.Trigger("x")().(FiredMsg)
	search.Trigger("x")

	assert.False(t, search.Accept(msg))
}

func TestDebouncer_Delay(t *testing.T) {
	d := New("search", 300*time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, d.Delay())
	assert.NotNil(t, d.Trigger("q"))
}
