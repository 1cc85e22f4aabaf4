package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/svg2pptx/internal/pages"
	"github.com/local/svg2pptx/internal/strategy"
)

// External adapts a converter binary to the Renderer contract. Contract
// with the binary: argv is
//
//	<command> --strategy <tag> --input <page.svg> --output <body.xml>
//
// exit 0 with the slide body written to the output path; exit 2 means the
// strategy cannot express the content; any other failure is transient.
type External struct {
	command string
	timeout time.Duration
}

// ExternalOptions configures the adapter.
type ExternalOptions struct {
	// Command is the converter binary path.
	Command string
	// Timeout bounds one page render. Zero means 60s.
	Timeout time.Duration
}

func NewExternal(opts ExternalOptions) *External {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &External{command: opts.Command, timeout: opts.Timeout}
}

func (e *External) Name() string { return "external:" + filepath.Base(e.command) }

// exit code the binary uses to signal "content unsupported by strategy".
const exitUnsupported = 2

func (e *External) Render(ctx context.Context, src pages.Source, strat strategy.Strategy) (*PageResult, error) {
	if e.command == "" {
		return nil, fmt.Errorf("%w: no renderer command configured", ErrUnavailable)
	}

	workDir, err := os.MkdirTemp("", "svg2pptx_render_"+uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("%w: create work dir: %v", ErrUnavailable, err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "page.svg")
	outPath := filepath.Join(workDir, "body.xml")
	if err := os.WriteFile(inPath, src.Content, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write page: %v", ErrUnavailable, err)
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(cctx, e.command,
		"--strategy", strat.Tag(),
		"--input", inPath,
		"--output", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	dur := time.Since(start)

	if runErr != nil {
		if cctx.Err() == context.DeadlineExceeded {
			log.Warn().
				Int("page", src.PageNumber).
				Str("strategy", strat.Tag()).
				Dur("timeout", e.timeout).
				Msg("external renderer timed out")
			return nil, fmt.Errorf("%w: timeout after %v", ErrUnavailable, e.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == exitUnsupported {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, stderrTail(&stderr))
		}
		log.Warn().
			Int("page", src.PageNumber).
			Str("strategy", strat.Tag()).
			Err(runErr).
			Str("stderr", stderrTail(&stderr)).
			Msg("external renderer failed")
		return nil, fmt.Errorf("%w: %v: %s", ErrUnavailable, runErr, stderrTail(&stderr))
	}

	body, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: renderer produced no output: %v", ErrUnavailable, err)
	}

	res := &PageResult{
		PageNumber:           src.PageNumber,
		Title:                src.Title,
		Strategy:             strat,
		ElementsProcessed:    1,
		NativeElements:       1,
		Output:               body,
		EstimatedQuality:     0.9,
		EstimatedPerformance: clamp01(1 - dur.Seconds()/e.timeout.Seconds()),
		Debug: map[string]float64{
			"render_ms": float64(dur.Microseconds()) / 1000,
		},
	}
	return res, nil
}

func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if len(s) > 240 {
		s = s[len(s)-240:]
	}
	return s
}
