package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownTicksOnlyWhileRunning(t *testing.T) {
	c := New(3)
	assert.False(t, c.Tick())
	assert.Equal(t, 3, c.Remaining())

	c.Start()
	c.Start()
	assert.True(t, c.Running())
	assert.False(t, c.Tick())
	assert.Equal(t, 2, c.Remaining())

	c.Stop()
	assert.False(t, c.Tick())
	assert.Equal(t, 2, c.Remaining())
}

func TestCountdownStopsItselfAtZero(t *testing.T) {
	c := New(2)
	c.Start()
	assert.False(t, c.Tick())
	assert.True(t, c.Tick())
	assert.True(t, c.IsExpired())
	assert.False(t, c.Running())

	assert.False(t, c.Tick())
	assert.Equal(t, 0, c.Remaining())

	c.Start()
	assert.False(t, c.Running())
}

func TestCountdownResetRestoresOriginalDuration(t *testing.T) {
	c := New(90)
	c.Start()
	for i := 0; i < 40; i++ {
		c.Tick()
	}
	assert.Equal(t, 50, c.Remaining())
	assert.Equal(t, 40, c.Elapsed())

	c.Reset()
	assert.Equal(t, 90, c.Remaining())
	assert.False(t, c.Running())
}

func TestCountdownSetInitialRearms(t *testing.T) {
	c := New(90)
	c.Start()
	c.Tick()

	c.SetInitial(45)
	assert.Equal(t, 45, c.Remaining())
	assert.Equal(t, 45, c.Initial())
	assert.False(t, c.Running())

	c.Tick()
	c.Reset()
	assert.Equal(t, 45, c.Remaining())
}

func TestCountdownsShareNoState(t *testing.T) {
	a, b := New(10), New(10)
	a.Start()
	a.Tick()
	assert.Equal(t, 9, a.Remaining())
	assert.Equal(t, 10, b.Remaining())
	assert.False(t, b.Running())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "30:00", New(1800).Format())
	assert.Equal(t, "01:30", New(90).Format())
	assert.Equal(t, "00:05", FormatSeconds(5))
	assert.Equal(t, "00:00", FormatSeconds(-3))
	assert.Equal(t, "100:00", FormatSeconds(6000))
}

func TestNegativeInitialClampsToZero(t *testing.T) {
	c := New(-5)
	assert.True(t, c.IsExpired())
}

func TestManualClockDeliversTicks(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManualClock(start)
	tk := clk.NewTicker(time.Second)

	got := make(chan time.Time, 1)
	go func() { got <- <-tk.C() }()

	require.True(t, clk.Tick())
	assert.Equal(t, start.Add(time.Second), <-got)
	assert.Equal(t, start.Add(time.Second), clk.Now())

	tk.Stop()
	assert.False(t, clk.Tick())
}
