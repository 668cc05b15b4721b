package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_Now(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestFakeClock_After(t *testing.T) {
	c := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ch := c.After(time.Minute)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired halfway to deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("did not fire at deadline")
	}
}

func TestFakeClock_AfterZeroFiresImmediately(t *testing.T) {
	c := NewFakeClock(time.Now())
	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration did not fire immediately")
	}
}

func TestFakeClock_Ticker(t *testing.T) {
	c := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Second)

	c.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	ticker.Stop()
	c.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

// Stop may arrive from a different goroutine than the one advancing the
// clock; the ticker must tolerate that without tearing its state.
func TestFakeClock_ConcurrentStopAndAdvance(t *testing.T) {
	c := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			c.Advance(time.Second)
		}
	}()

	ticker.Stop()
	<-done

	// A stopped ticker never fires again
	drained := len(ticker.C())
	c.Advance(10 * time.Second)
	assert.Equal(t, drained, len(ticker.C()))
}

func TestRealClock_Now(t *testing.T) {
	c := NewRealClock()
	before := time.Now()
	now := c.Now()
	require.False(t, now.Before(before))
}
