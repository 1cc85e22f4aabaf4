package statuscheck

import (
	"context"
	"errors"
	"testing"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestSummaryUnconfigured(t *testing.T) {
	c := New(Options{})
	s := c.Summary(context.Background())
	for name, st := range map[string]Status{
		"redis": s.Redis, "s3": s.S3, "renderer": s.Renderer, "result_dir": s.ResultDir,
	} {
		if st.OK {
			t.Errorf("%s: expected not OK when unconfigured", name)
		}
		if st.Message != "not configured" {
			t.Errorf("%s: unexpected message %q", name, st.Message)
		}
	}
	if !c.Healthy(context.Background()) {
		t.Error("unconfigured subsystems must not fail the health check")
	}
}

func TestRedisProbe(t *testing.T) {
	c := New(Options{Redis: stubPinger{}})
	if st := c.checkRedis(context.Background()); !st.OK {
		t.Errorf("expected OK redis, got %+v", st)
	}

	c = New(Options{Redis: stubPinger{err: errors.New("connection refused")}})
	if st := c.checkRedis(context.Background()); st.OK {
		t.Error("expected failing redis probe")
	}
	if c.Healthy(context.Background()) {
		t.Error("a failing configured subsystem must fail the health check")
	}
}

func TestResultDirProbe(t *testing.T) {
	c := New(Options{ResultDir: t.TempDir()})
	if st := c.checkResultDir(); !st.OK {
		t.Errorf("expected writable dir, got %+v", st)
	}

	c = New(Options{ResultDir: "/proc/definitely/not/writable"})
	if st := c.checkResultDir(); st.OK {
		t.Error("expected failing probe for unwritable dir")
	}
}

func TestRendererProbe(t *testing.T) {
	c := New(Options{RendererCommand: "definitely-not-a-real-binary-4711"})
	if st := c.checkRenderer(); st.OK {
		t.Error("expected missing binary to fail the probe")
	}

	// Something that exists everywhere the tests run.
	c = New(Options{RendererCommand: "sh"})
	if st := c.checkRenderer(); !st.OK {
		t.Errorf("expected sh to resolve, got %+v", st)
	}
}

func TestTrimError(t *testing.T) {
	long := errors.New(string(make([]byte, 300)))
	if got := trimError(long); len(got) > 120 {
		t.Errorf("expected trimmed message, got %d chars", len(got))
	}
	if trimError(nil) != "" {
		t.Error("nil error should trim to empty")
	}
}
