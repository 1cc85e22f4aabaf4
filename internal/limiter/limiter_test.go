package limiter

import "testing"

func TestAllowBurstThenDeny(t *testing.T) {
	l := New(Options{RatePerSecond: 0.001, Burst: 2}, 1)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("expected the burst to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("expected denial past the burst")
	}
	// Another client has its own bucket.
	if !l.Allow("10.0.0.2") {
		t.Error("expected a fresh client to be allowed")
	}
}

func TestAcquireCapacity(t *testing.T) {
	l := New(Options{}, 2)

	rel1, ok := l.Acquire()
	if !ok {
		t.Fatal("expected first slot")
	}
	_, ok = l.Acquire()
	if !ok {
		t.Fatal("expected second slot")
	}
	if _, ok := l.Acquire(); ok {
		t.Error("expected capacity exhaustion")
	}
	rel1()
	if _, ok := l.Acquire(); !ok {
		t.Error("expected a slot after release")
	}
}
