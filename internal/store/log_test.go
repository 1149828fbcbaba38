package store

import (
	"testing"
	"time"

	"brokerd/internal/topic"
)

func mustTopic(t *testing.T, s string) topic.Topic {
	t.Helper()
	tp, err := topic.Parse(s)
	if err != nil {
		t.Fatalf("topic.Parse(%q): %v", s, err)
	}
	return tp
}

func TestAppendThenObserve(t *testing.T) {
	l := New()
	before := time.Now().Unix()
	l.Append(topic.Message{Topic: mustTopic(t, "a/b"), Value: "1"})

	snap := l.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}
	last := snap[len(snap)-1]
	if last.Value != "1" {
		t.Errorf("expected last value %q, got %q", "1", last.Value)
	}
	if last.Timestamp < before {
		t.Errorf("expected timestamp >= %d, got %d", before, last.Timestamp)
	}
}

func TestEvictHeadOnly(t *testing.T) {
	l := New()
	now := time.Now()
	l.entries = []topic.Message{
		{Topic: mustTopic(t, "a"), Value: "1", Timestamp: now.Add(-10 * time.Second).Unix()},
		{Topic: mustTopic(t, "b"), Value: "2", Timestamp: now.Unix()},
		{Topic: mustTopic(t, "c"), Value: "3", Timestamp: now.Unix()},
	}
	dropped := l.EvictExpired(2*time.Second, now)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped entry, got %d", dropped)
	}
	snap := l.Snapshot()
	if len(snap) != 2 || snap[0].Value != "2" {
		t.Fatalf("unexpected log after eviction: %+v", snap)
	}
}

func TestWaitForGrowthClampsStaleCursor(t *testing.T) {
	l := New()
	l.Append(topic.Message{Topic: mustTopic(t, "a"), Value: "1"})
	l.Append(topic.Message{Topic: mustTopic(t, "a"), Value: "2"})

	// Simulate a worker cursor left stale by a head eviction that
	// happened while the worker held no lock: cursor (3) exceeds the
	// post-eviction count (2). WaitForGrowth must clamp it down rather
	// than block forever or underflow.
	done := make(chan int, 1)
	go func() {
		done <- l.WaitForGrowth(3)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Append(topic.Message{Topic: mustTopic(t, "a"), Value: "3"})

	select {
	case n := <-done:
		if n != 3 {
			t.Errorf("expected new count 3, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForGrowth did not return after append")
	}
}

func TestSliceClampsOutOfRange(t *testing.T) {
	l := New()
	l.Append(topic.Message{Topic: mustTopic(t, "a"), Value: "1"})
	out := l.Slice(5, 10)
	if len(out) != 0 {
		t.Fatalf("expected empty slice for out-of-range bounds, got %d entries", len(out))
	}
}
