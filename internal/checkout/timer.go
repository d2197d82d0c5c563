package checkout

import (
	"sync"
	"time"
)

// TickerFunc starts a ticker firing every d and returns its channel and stop function
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// RealTicker is a TickerFunc backed by time.Ticker
func RealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Countdown forwards at most n ticks to its output, then stops by itself.
// It is the handle returned when a payment step starts and must be stopped on
// every exit from that step.
type Countdown struct {
	quit     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// StartCountdown begins forwarding ticks to out. Sends to out block until
// received or until the countdown is stopped.
func StartCountdown(n int, interval time.Duration, newTicker TickerFunc, out chan<- struct{}) *Countdown {
	c := &Countdown{
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	ticks, stop := newTicker(interval)

	go func() {
		defer close(c.finished)
		defer stop()

		for i := 0; i < n; i++ {
			select {
			case <-c.quit:
				return
			case <-ticks:
			}
			select {
			case out <- struct{}{}:
			case <-c.quit:
				return
			}
		}
	}()

	return c
}

// Stop cancels the countdown and returns once no further tick can be delivered.
// It is safe to call more than once.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.quit) })
	<-c.finished
}

// Done is closed when the countdown goroutine has exited
func (c *Countdown) Done() <-chan struct{} {
	return c.finished
}

// Remaining converts a tick count into the time left on the countdown
func Remaining(ticks int, interval time.Duration) time.Duration {
	return time.Duration(ticks) * interval
}
