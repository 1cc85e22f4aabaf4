package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStatusRoundTrip(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	start := time.Now()
	st := Status{
		State:     StateRunning,
		Progress:  40,
		Pages:     5,
		PagesDone: 2,
		Start:     &start,
		Metadata:  map[string]interface{}{"detection": "markers"},
	}
	if err := s.Set(ctx, "job1", st); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, found, err := s.Get(ctx, "job1")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if got.State != StateRunning || got.Progress != 40 || got.PagesDone != 2 {
		t.Errorf("unexpected status %+v", got)
	}
	if got.Metadata["detection"] != "markers" {
		t.Errorf("metadata lost: %+v", got.Metadata)
	}
}

func TestMemoryStatusOverwrite(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()

	_ = s.Set(ctx, "job1", Status{State: StateQueued})
	_ = s.Set(ctx, "job1", Status{State: StateCompleted, Progress: 100, Package: "/tmp/out.pptx"})

	got, _, _ := s.Get(ctx, "job1")
	if got.State != StateCompleted || got.Package != "/tmp/out.pptx" {
		t.Errorf("expected latest snapshot, got %+v", got)
	}
}

func TestMemoryStatusIsolation(t *testing.T) {
	s := NewMemoryStatus()
	ctx := context.Background()
	_ = s.Set(ctx, "a", Status{State: StateQueued})
	_ = s.Set(ctx, "b", Status{State: StateFailed, Error: "boom"})

	a, _, _ := s.Get(ctx, "a")
	b, _, _ := s.Get(ctx, "b")
	if a.State != StateQueued || b.State != StateFailed {
		t.Errorf("jobs bleed into each other: %+v %+v", a, b)
	}
}
