package transport

import (
	"testing"
	"time"
)

func TestDelaySchedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for n, d := range want {
		if got := Delay(n + 1); got != d {
			t.Errorf("Delay(%d) = %s, want %s", n+1, got, d)
		}
	}

	// Attempt numbers below 1 clamp to the first delay.
	if got := Delay(0); got != time.Second {
		t.Errorf("Delay(0) = %s, want 1s", got)
	}
}

func TestReconnectorExhaustion(t *testing.T) {
	r := NewReconnector(5)

	for i := 1; i <= 5; i++ {
		delay, ok := r.Next()
		if !ok {
			t.Fatalf("attempt %d unexpectedly refused", i)
		}
		if want := Delay(i); delay != want {
			t.Errorf("attempt %d delay = %s, want %s", i, delay, want)
		}
	}

	// The cap is permanent.
	if _, ok := r.Next(); ok {
		t.Error("expected refusal after cap")
	}
	if !r.Disabled() {
		t.Error("expected Disabled after cap")
	}

	// Reset must not resurrect a disabled reconnector.
	r.Reset()
	if _, ok := r.Next(); ok {
		t.Error("Reset re-enabled an exhausted reconnector")
	}
}

func TestReconnectorResetRestoresFullBackoff(t *testing.T) {
	r := NewReconnector(5)

	r.Next()
	r.Next()
	r.Next()
	r.Reset()

	delay, ok := r.Next()
	if !ok {
		t.Fatal("attempt refused after reset")
	}
	if delay != time.Second {
		t.Errorf("first delay after reset = %s, want 1s", delay)
	}
}

func TestReconnectorDefaultCap(t *testing.T) {
	r := NewReconnector(0)
	count := 0
	for {
		if _, ok := r.Next(); !ok {
			break
		}
		count++
	}
	if count != DefaultMaxReconnectAttempts {
		t.Errorf("default cap = %d, want %d", count, DefaultMaxReconnectAttempts)
	}
}
