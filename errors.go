package scalareval

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/scalareval/expr"
	"github.com/hupe1980/scalareval/gpu"
	"github.com/hupe1980/scalareval/internal/backend"
	"github.com/hupe1980/scalareval/internal/merge"
	"github.com/hupe1980/scalareval/internal/resource"
)

var (
	// ErrMalformedExpression is returned when an expression is not a finite
	// tree of well-formed nodes over open sets.
	ErrMalformedExpression = errors.New("malformed expression")

	// ErrBackendUnavailable is returned when the configured backend cannot
	// be used and CPU fallback is disabled.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDeviceExecutionFailed is returned when a device kernel or transfer
	// fails. The whole query is aborted.
	ErrDeviceExecutionFailed = errors.New("device execution failed")

	// ErrResourceExhausted is returned when a buffer reservation is refused
	// by the memory limit.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrInconsistentPartialResults is returned when chunk results violate
	// the ordering contract. It indicates a backend defect.
	ErrInconsistentPartialResults = errors.New("inconsistent partial results")

	// ErrClosed is returned when using a closed Engine.
	ErrClosed = errors.New("engine is closed")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Cancellation is reported as is.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if errors.Is(err, expr.ErrMalformed) {
		return fmt.Errorf("%w: %w", ErrMalformedExpression, err)
	}
	var unknown *backend.UnknownSetError
	if errors.As(err, &unknown) {
		return fmt.Errorf("%w: %w", ErrMalformedExpression, err)
	}

	if errors.Is(err, gpu.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if errors.Is(err, gpu.ErrExecution) {
		return fmt.Errorf("%w: %w", ErrDeviceExecutionFailed, err)
	}
	if errors.Is(err, gpu.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	if errors.Is(err, merge.ErrInconsistent) {
		return fmt.Errorf("%w: %w", ErrInconsistentPartialResults, err)
	}

	return err
}
