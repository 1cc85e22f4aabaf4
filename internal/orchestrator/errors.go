package orchestrator

import (
	"errors"
	"fmt"
)

// errBreakersOpen marks a page that was skipped without a render attempt
// because every ranked strategy's breaker was already open.
var errBreakersOpen = errors.New("orchestrator: all strategy breakers open")

// EmptyInputError: Convert was called with no pages.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "orchestrator: no pages to convert"
}

// NoPagesConvertedError: every page failed to render.
type NoPagesConvertedError struct {
	Pages   int
	LastErr error
}

func (e *NoPagesConvertedError) Error() string {
	return fmt.Sprintf("orchestrator: none of %d pages converted: %v", e.Pages, e.LastErr)
}

func (e *NoPagesConvertedError) Unwrap() error { return e.LastErr }

// CancelledError: the caller cancelled between page renders. Completed
// reports how many pages had rendered before the work was discarded.
type CancelledError struct {
	Completed int
	Err       error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("orchestrator: cancelled after %d pages: %v", e.Completed, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// WriteFailedError: the package writer rejected the assembled slides.
type WriteFailedError struct {
	Err error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("orchestrator: package write failed: %v", e.Err)
}

func (e *WriteFailedError) Unwrap() error { return e.Err }
