package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdleMonitor_FiresAfterInactivity(t *testing.T) {
	clock := &activityClock{}
	clock.touch()

	fired := make(chan struct{})
	stop := make(chan struct{})
	go runIdleMonitor(stop, 20*time.Millisecond, clock, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("idle monitor never fired")
	}
}

func TestIdleMonitor_ActivityResetsTheClock(t *testing.T) {
	clock := &activityClock{}
	clock.touch()

	fired := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)

	go runIdleMonitor(stop, 30*time.Millisecond, clock, func() { close(fired) })

	touchDeadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(touchDeadline) {
		clock.touch()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
		t.Fatal("idle monitor fired despite ongoing activity")
	default:
	}
}

func TestIdleMonitor_StopExitsWithoutFiring(t *testing.T) {
	clock := &activityClock{}
	clock.touch()

	fired := make(chan struct{})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		runIdleMonitor(stop, time.Hour, clock, func() { close(fired) })
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle monitor did not exit on stop")
	}
	select {
	case <-fired:
		t.Fatal("idle monitor fired after stop")
	default:
	}
}
