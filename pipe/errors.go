package pipe

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock is returned by non-blocking operations that could not
	// make progress. No state was changed; try again later.
	ErrWouldBlock = errors.New("operation would block")

	// ErrInterrupted is returned when a wait or lock acquisition was
	// cancelled before the operation could complete. No state was changed
	// and the same call may be retried.
	ErrInterrupted = errors.New("interrupted")

	// ErrFault is returned when the caller's region could not be copied
	// to or from. The buffer is left unchanged.
	ErrFault = errors.New("bad address")

	// ErrNoMemory is returned when a buffer cannot be allocated.
	ErrNoMemory = errors.New("cannot allocate buffer")

	// ErrInvalidSize is returned for non-positive buffer capacities.
	ErrInvalidSize = errors.New("invalid buffer size")

	// ErrClosed is returned for operations on a pair that was torn down.
	ErrClosed = errors.New("pipe pair closed")
)

// InterruptedError reports the context error that cancelled a wait.
// It matches both ErrInterrupted and the underlying cause with errors.Is.
type InterruptedError struct {
	Cause error
}

func (e *InterruptedError) Error() string {
	if e.Cause == nil {
		return ErrInterrupted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInterrupted, e.Cause)
}

func (e *InterruptedError) Is(target error) bool {
	return target == ErrInterrupted
}

func (e *InterruptedError) Unwrap() error {
	return e.Cause
}

func interrupted(ctx context.Context) error {
	return &InterruptedError{Cause: context.Cause(ctx)}
}

func fault(err error) error {
	if err == nil {
		return ErrFault
	}
	return fmt.Errorf("%w: %w", ErrFault, err)
}
