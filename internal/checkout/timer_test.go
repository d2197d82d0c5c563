package checkout_test

import (
	"testing"
	"time"

	"doneasy-checkout/internal/checkout"
)

func TestCountdownForwardsAtMostN(t *testing.T) {
	ticker := newManualTicker()
	out := make(chan struct{})
	c := checkout.StartCountdown(3, time.Second, ticker.New, out)
	defer c.Stop()

	for i := 0; i < 3; i++ {
		ticker.tick(t)
		select {
		case <-out:
		case <-time.After(time.Second):
			t.Fatalf("tick %d not forwarded", i+1)
		}
	}

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("countdown did not finish after its last tick")
	}
	if ticker.consumed() {
		t.Fatal("finished countdown still reads ticks")
	}
}

func TestCountdownStopWhileBlocked(t *testing.T) {
	ticker := newManualTicker()
	out := make(chan struct{})
	c := checkout.StartCountdown(10, time.Second, ticker.New, out)

	// the forwarded tick is never received, so the goroutine blocks on out
	ticker.tick(t)

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a tick was pending")
	}

	select {
	case <-out:
		t.Fatal("tick delivered after Stop")
	default:
	}
	if ticker.consumed() {
		t.Fatal("stopped countdown still reads ticks")
	}

	// second Stop is a no-op
	c.Stop()
}

func TestCountdownZeroTicks(t *testing.T) {
	c := checkout.StartCountdown(0, time.Second, newManualTicker().New, make(chan struct{}))
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("zero-length countdown should finish immediately")
	}
}

func TestCountdownRealTicker(t *testing.T) {
	out := make(chan struct{})
	c := checkout.StartCountdown(2, time.Millisecond, checkout.RealTicker, out)
	defer c.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-out:
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i+1)
		}
	}
}

func TestRemaining(t *testing.T) {
	if got := checkout.Remaining(900, time.Second); got != 15*time.Minute {
		t.Fatalf("expected 15m, got %s", got)
	}
}
