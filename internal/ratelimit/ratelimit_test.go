package ratelimit

import (
	"testing"
	"time"
)

func TestCheckAndRecordWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	if !l.CheckAndRecord("1.2.3.4_tester") {
		t.Fatal("first submission rejected")
	}

	now = now.Add(30 * time.Second)
	if l.CheckAndRecord("1.2.3.4_tester") {
		t.Fatal("second submission inside the window accepted")
	}

	now = now.Add(31 * time.Second)
	if !l.CheckAndRecord("1.2.3.4_tester") {
		t.Fatal("submission after the window rejected")
	}
}

func TestRejectionLeavesWindowUntouched(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	l.CheckAndRecord("key")
	now = now.Add(59 * time.Second)
	if l.CheckAndRecord("key") {
		t.Fatal("accepted inside the window")
	}
	// a rejected call must not restart the window
	now = now.Add(2 * time.Second)
	if !l.CheckAndRecord("key") {
		t.Fatal("rejected call extended the window")
	}
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	if !l.CheckAndRecord("1.2.3.4_alice") {
		t.Fatal("alice rejected")
	}
	if !l.CheckAndRecord("1.2.3.4_bob") {
		t.Fatal("bob throttled by alice's submission")
	}
}

func TestStaleKeysArePurged(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	for _, key := range []string{"a", "b", "c"} {
		l.CheckAndRecord(key)
	}
	if l.Len() != 3 {
		t.Fatalf("tracked keys = %d, want 3", l.Len())
	}

	now = now.Add(6 * time.Minute)
	l.CheckAndRecord("d")
	if l.Len() != 1 {
		t.Fatalf("tracked keys = %d after purge, want 1", l.Len())
	}
}
