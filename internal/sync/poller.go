package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// UnreadCounter is the backend read the poller repeats.
type UnreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// UnreadCountMsg is a tea.Msg sent after each unread-count poll.
type UnreadCountMsg struct {
	Count int
	Err   error
	At    time.Time
}

// fetchTimeout is the maximum time allowed for a single poll.
const fetchTimeout = 15 * time.Second

// defaultInterval applies when the configured interval is not positive.
const defaultInterval = 60 * time.Second

// Poller refreshes the unread count in the background and on demand.
type Poller struct {
	counter   UnreadCounter
	interval  time.Duration
	resultCh  chan UnreadCountMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	last      UnreadCountMsg
}

// New creates a Poller that asks counter every interval.
func New(counter UnreadCounter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		counter:   counter,
		interval:  interval,
		resultCh:  make(chan UnreadCountMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll. Triggers coalesce while one is
// already pending.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Last returns the most recent poll result.
func (p *Poller) Last() UnreadCountMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll performs one fetch and publishes the result.
func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	count, err := p.counter.UnreadCount(ctx)
	msg := UnreadCountMsg{Count: count, Err: err, At: time.Now()}
	if err != nil {
		slog.Debug("unread count poll failed", "error", err)
	}

	p.mu.Lock()
	if err == nil {
		p.last = msg
	}
	p.mu.Unlock()

	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it after handling an UnreadCountMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
