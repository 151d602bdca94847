package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/clock"
)

func claimingFire(tm *BackgroundTimer, fired *atomic.Int32) func(uint64) {
	return func(gen uint64) {
		if tm.Claim(gen) {
			fired.Add(1)
		}
	}
}

func TestArmFiresOnceAtDeadline(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	tm := New(c)
	var fired atomic.Int32

	tm.Arm(5*time.Minute, claimingFire(tm, &fired))
	if !tm.Armed() {
		t.Fatal("expected armed")
	}
	deadline, ok := tm.Deadline()
	if !ok || !deadline.Equal(time.Unix(300, 0)) {
		t.Fatalf("unexpected deadline %v ok=%v", deadline, ok)
	}

	c.Advance(5*time.Minute - time.Second)
	if fired.Load() != 0 {
		t.Fatal("fired before deadline")
	}
	c.Advance(time.Second)
	c.Advance(time.Hour)
	if fired.Load() != 1 {
		t.Fatalf("expected exactly one fire, got %d", fired.Load())
	}
	if tm.Armed() {
		t.Fatal("expected disarmed after fire")
	}
}

func TestDisarmBeforeDeadlinePreventsFire(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	tm := New(c)
	var fired atomic.Int32

	tm.Arm(time.Minute, claimingFire(tm, &fired))
	c.Advance(30 * time.Second)
	if !tm.Disarm() {
		t.Fatal("expected Disarm to report an armed instance")
	}
	if tm.Disarm() {
		t.Fatal("expected second Disarm to report false")
	}
	c.Advance(time.Hour)
	if fired.Load() != 0 {
		t.Fatal("disarmed timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("leaked %d pending callbacks", c.Pending())
	}
}

func TestRearmCancelsPreviousInstance(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	tm := New(c)
	var fired atomic.Int32

	tm.Arm(time.Minute, claimingFire(tm, &fired))
	c.Advance(30 * time.Second)
	tm.Arm(time.Minute, claimingFire(tm, &fired))

	c.Advance(45 * time.Second)
	if fired.Load() != 0 {
		t.Fatal("first instance fired after re-arm")
	}
	c.Advance(15 * time.Second)
	if fired.Load() != 1 {
		t.Fatalf("expected one fire, got %d", fired.Load())
	}
	if c.Pending() != 0 {
		t.Fatalf("leaked %d pending callbacks", c.Pending())
	}
}

func TestStaleGenerationCannotClaim(t *testing.T) {
	tm := New(clock.NewFake(time.Unix(0, 0)))
	first := tm.Arm(time.Minute, func(uint64) {})
	second := tm.Arm(time.Minute, func(uint64) {})

	if tm.Claim(first) {
		t.Fatal("stale generation claimed")
	}
	if !tm.Claim(second) {
		t.Fatal("current generation must claim")
	}
	if tm.Claim(second) {
		t.Fatal("generation claimed twice")
	}
}

func TestRealClockFires(t *testing.T) {
	tm := New(nil)
	done := make(chan struct{})
	tm.Arm(time.Millisecond, func(gen uint64) {
		if tm.Claim(gen) {
			close(done)
		}
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real timer did not fire")
	}
}
