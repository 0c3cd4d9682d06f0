package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	calls atomic.Int32
	count int
	err   error
}

func (f *fakeCounter) UnreadCount(context.Context) (int, error) {
	f.calls.Add(1)
	return f.count, f.err
}

func TestPoller_InitialPollDelivered(t *testing.T) {
	counter := &fakeCounter{count: 7}
	p := New(counter, time.Hour)
	t.Cleanup(p.Stop)

	cmd := p.Start()
	require.NotNil(t, cmd)

	msg, ok := cmd().(UnreadCountMsg)
	require.True(t, ok)
	assert.NoError(t, msg.Err)
	assert.Equal(t, 7, msg.Count)
	assert.Equal(t, 7, p.Last().Count)

	assert.Nil(t, p.Start(), "second start is a no-op")
}

func TestPoller_RefreshPollsAgain(t *testing.T) {
	counter := &fakeCounter{count: 1}
	p := New(counter, time.Hour)
	t.Cleanup(p.Stop)

	_ = p.Start()()
	p.Refresh()

	msg := p.WaitForNextResult()().(UnreadCountMsg)
	assert.Equal(t, 1, msg.Count)
	assert.GreaterOrEqual(t, counter.calls.Load(), int32(2))
}

func TestPoller_ErrorKeepsLastGoodCount(t *testing.T) {
	counter := &fakeCounter{count: 3}
	p := New(counter, time.Hour)
	t.Cleanup(p.Stop)

	_ = p.Start()()

	counter.err = errors.New("down")
	p.Refresh()
	msg := p.WaitForNextResult()().(UnreadCountMsg)

	assert.Error(t, msg.Err)
	assert.Equal(t, 3, p.Last().Count)
}
