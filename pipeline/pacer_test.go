package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestIntervalPacerSpacesRequests(t *testing.T) {
	interval := 40 * time.Millisecond
	pacer := NewIntervalPacer(interval)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	// The first wait already costs one interval.
	if elapsed := time.Since(start); elapsed < 3*interval-5*time.Millisecond {
		t.Fatalf("three waits took %v, want at least %v", elapsed, 3*interval)
	}
	if pacer.Interval() != interval {
		t.Fatalf("interval = %v", pacer.Interval())
	}
}

func TestIntervalPacerDisabled(t *testing.T) {
	pacer := NewIntervalPacer(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("unpaced waits took %v", elapsed)
	}
}

func TestIntervalPacerCancelled(t *testing.T) {
	pacer := NewIntervalPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := pacer.Wait(ctx); err == nil {
		t.Fatalf("expected wait to fail before the next slot")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled wait blocked for %v", elapsed)
	}
}
