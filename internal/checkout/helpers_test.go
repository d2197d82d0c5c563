package checkout_test

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"doneasy-checkout/internal/checkout"
)

var testEpoch = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMachine(t *testing.T, clock *fakeClock) *checkout.Machine {
	t.Helper()
	return checkout.NewMachine(checkout.Settings{
		Rules:         testRules,
		AdminFeeBPS:   250,
		PaymentWindow: 15 * time.Minute,
		TickInterval:  time.Second,
		Now:           clock.Now,
	})
}

// manualTicker hands out one unbuffered channel the test drives by hand
type manualTicker struct {
	c chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) New(time.Duration) (<-chan time.Time, func()) {
	return m.c, func() {}
}

// tick delivers one tick, failing if nobody is listening
func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not accept tick")
	}
}

// consumed reports whether a tick was accepted within a short wait
func (m *manualTicker) consumed() bool {
	select {
	case m.c <- time.Now():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
