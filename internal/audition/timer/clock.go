package timer

import (
	"sync"
	"time"
)

// Clock produces the tickers that drive countdowns.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualClock delivers ticks only when Tick is called. Every tick is a
// synchronous hand-off to each live ticker.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
	created chan struct{}
	once    sync.Once
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, created: make(chan struct{})}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{}), period: d}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	m.once.Do(func() { close(m.created) })
	return t
}

// Tick advances the clock by one ticker period and delivers it. It waits up to
// a second for a ticker to exist and reports false when none was delivered.
func (m *ManualClock) Tick() bool {
	select {
	case <-m.created:
	case <-time.After(time.Second):
		return false
	}

	m.mu.Lock()
	live := make([]*manualTicker, 0, len(m.tickers))
	for _, t := range m.tickers {
		select {
		case <-t.stopped:
		default:
			live = append(live, t)
		}
	}
	period := time.Second
	if len(live) > 0 && live[0].period > 0 {
		period = live[0].period
	}
	m.now = m.now.Add(period)
	now := m.now
	m.mu.Unlock()

	delivered := false
	for _, t := range live {
		select {
		case t.ch <- now:
			delivered = true
		case <-t.stopped:
		}
	}
	return delivered
}

// TickN calls Tick n times and returns how many were delivered.
func (m *ManualClock) TickN(n int) int {
	got := 0
	for i := 0; i < n; i++ {
		if m.Tick() {
			got++
		}
	}
	return got
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	period  time.Duration
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() { t.once.Do(func() { close(t.stopped) }) }
