package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_FiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	var fired []string

	c.AfterFunc(3*time.Second, func() { fired = append(fired, "late") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "early") })

	c.Advance(500 * time.Millisecond)
	assert.Empty(t, fired)
	assert.Equal(t, 2, c.Pending())

	c.Advance(3 * time.Second)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClock_Stop(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestManualClock_Now(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), c.Now())
}

func TestDeferredLauncher(t *testing.T) {
	l := NewDeferredLauncher()
	var order []int
	l.Launch(func() { order = append(order, 0) })
	l.Launch(func() { order = append(order, 1) })
	l.Launch(func() { order = append(order, 2) })

	assert.Equal(t, 3, l.Pending())
	l.Run(2)
	l.Run(0)
	assert.Equal(t, []int{2, 0}, order)

	l.RunAll()
	assert.Equal(t, []int{2, 0, 1}, order)
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, 3, l.Total())

	assert.Panics(t, func() { l.Run(1) })
}

func TestSequentialIDs(t *testing.T) {
	gen := SequentialIDs("n")
	assert.Equal(t, "n-1", gen())
	assert.Equal(t, "n-2", gen())
}
