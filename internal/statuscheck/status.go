// Package statuscheck aggregates readiness probes for the external
// pieces the service leans on: Redis status storage, the S3 package
// bucket, the optional external renderer binary and the local result
// directory.
package statuscheck

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Checker runs the configured probes.
type Checker struct {
	redis           RedisPinger
	s3Bucket        string
	rendererCommand string
	resultDir       string
}

// Options configures the Checker. Zero-value fields disable the
// corresponding probe.
type Options struct {
	Redis           RedisPinger
	S3Bucket        string
	RendererCommand string
	ResultDir       string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses for the health endpoint.
type Summary struct {
	Redis     Status `json:"redis"`
	S3        Status `json:"s3"`
	Renderer  Status `json:"renderer"`
	ResultDir Status `json:"result_dir"`
}

func New(opts Options) *Checker {
	return &Checker{
		redis:           opts.Redis,
		s3Bucket:        opts.S3Bucket,
		rendererCommand: opts.RendererCommand,
		resultDir:       opts.ResultDir,
	}
}

// Healthy reports whether every configured subsystem is up. Disabled
// subsystems never fail the check.
func (c *Checker) Healthy(ctx context.Context) bool {
	s := c.Summary(ctx)
	for _, st := range []Status{s.Redis, s.S3, s.Renderer, s.ResultDir} {
		if !st.OK && st.Message != "not configured" {
			return false
		}
	}
	return true
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:     c.checkRedis(ctx),
		S3:        c.checkS3(ctx),
		Renderer:  c.checkRenderer(),
		ResultDir: c.checkResultDir(),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3Bucket == "" {
		return Status{OK: false, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	cli := s3.NewFromConfig(cfg)
	if _, err := cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.s3Bucket}); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "connected"}
}

func (c *Checker) checkRenderer() Status {
	if c.rendererCommand == "" {
		return Status{OK: false, Message: "not configured"}
	}
	if _, err := exec.LookPath(c.rendererCommand); err != nil {
		return Status{OK: false, Message: "binary not found"}
	}
	return Status{OK: true, Message: "available"}
}

func (c *Checker) checkResultDir() Status {
	if c.resultDir == "" {
		return Status{OK: false, Message: "not configured"}
	}
	probe := filepath.Join(c.resultDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	os.Remove(probe)
	return Status{OK: true, Message: "writable"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
