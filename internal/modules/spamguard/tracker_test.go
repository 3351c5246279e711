package spamguard

import (
	"testing"
	"time"
)

func TestSingleFirePerWindow(t *testing.T) {
	tracker := New(7, 7*time.Second)
	start := time.Unix(0, 0)

	for i := 0; i < 7; i++ {
		decision := tracker.Record("g1", "u1", start.Add(time.Duration(i)*100*time.Millisecond))
		if decision.Fired {
			t.Fatalf("message %d must not fire", i+1)
		}
	}

	decision := tracker.Record("g1", "u1", start.Add(800*time.Millisecond))
	if !decision.Fired {
		t.Fatalf("8th message in window must fire")
	}
	if decision.Count != 8 {
		t.Fatalf("expected count 8, got %d", decision.Count)
	}

	decision = tracker.Record("g1", "u1", start.Add(900*time.Millisecond))
	if decision.Fired {
		t.Fatalf("9th message in same window must not fire again")
	}
	if decision.Count != 9 {
		t.Fatalf("count keeps climbing, expected 9, got %d", decision.Count)
	}
}

func TestWindowResetAllowsRefire(t *testing.T) {
	tracker := New(2, 7*time.Second)
	start := time.Unix(100, 0)

	tracker.Record("g1", "u1", start)
	tracker.Record("g1", "u1", start)
	if !tracker.Record("g1", "u1", start.Add(time.Second)).Fired {
		t.Fatalf("expected first fire")
	}

	later := start.Add(8 * time.Second)
	decision := tracker.Record("g1", "u1", later)
	if decision.Fired || decision.Count != 1 {
		t.Fatalf("expected fresh window after expiry, got %+v", decision)
	}
	tracker.Record("g1", "u1", later)
	if !tracker.Record("g1", "u1", later.Add(time.Second)).Fired {
		t.Fatalf("fresh burst must trigger independently")
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	tracker := New(1, 7*time.Second)
	now := time.Unix(0, 0)

	tracker.Record("g1", "u1", now)
	if tracker.Record("g1", "u2", now).Fired {
		t.Fatalf("other user must not inherit count")
	}
	if tracker.Record("g2", "u1", now).Fired {
		t.Fatalf("other guild must not inherit count")
	}
	if !tracker.Record("g1", "u1", now.Add(time.Second)).Fired {
		t.Fatalf("expected fire for original pair")
	}
}
