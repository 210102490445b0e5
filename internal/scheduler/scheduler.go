package scheduler

import (
	"sync"
	"time"
)

// DefaultDelay is the timer fallback used when no idle signal exists.
const DefaultDelay = 100 * time.Millisecond

// Scheduler runs fn at some later point. The returned cancel prevents fn from
// running if it has not started yet.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// Idle runs callbacks after a fixed delay.
type Idle struct {
	Delay time.Duration
}

// NewIdle creates an idle scheduler. A non-positive delay uses DefaultDelay.
func NewIdle(delay time.Duration) *Idle {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Idle{Delay: delay}
}

func (s *Idle) Schedule(fn func()) func() {
	t := time.AfterFunc(s.Delay, fn)
	return func() { t.Stop() }
}

// Manual queues callbacks until RunPending.
type Manual struct {
	mu    sync.Mutex
	queue []*task
}

type task struct {
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Schedule(fn func()) func() {
	t := &task{fn: fn}

	m.mu.Lock()
	m.queue = append(m.queue, t)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// RunPending runs every callback queued before the call, in order, and
// returns how many ran. Callbacks scheduled while running wait for the next call.
func (m *Manual) RunPending() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	ran := 0
	for _, t := range batch {
		m.mu.Lock()
		cancelled := t.cancelled
		m.mu.Unlock()
		if cancelled {
			continue
		}
		t.fn()
		ran++
	}
	return ran
}

// RunUntilIdle calls RunPending until nothing runs, up to limit rounds.
func (m *Manual) RunUntilIdle(limit int) int {
	total := 0
	for i := 0; i < limit; i++ {
		n := m.RunPending()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// Pending reports how many uncancelled callbacks are queued.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.queue {
		if !t.cancelled {
			n++
		}
	}
	return n
}
