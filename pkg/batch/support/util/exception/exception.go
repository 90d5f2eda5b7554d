// Package exception provides the custom error types and error handling
// utilities used across setwave. Runtime failures are standardized as
// BatchError values; caller-contract violations are sentinel errors wrapped
// through BatchError so they can be detected with errors.Is anywhere in the
// call chain.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BatchError is the standard error type for failures raised inside the batch
// runtime. It carries the module where the error occurred, a message, the
// wrapped original error, and flags indicating whether the condition is
// transient or may be skipped by a tolerant caller.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g., "remote", "engine", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// isSkippable: Whether this error is skippable.
// isRetryable: Whether this error is retryable.
// Returns: A new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates a new BatchError instance using a format string.
// Optional flags and an error are extracted from the end of the variadic
// arguments 'a' in the order: [isSkippable bool], [isRetryable bool],
// [originalErr error]. The remaining arguments feed fmt.Sprintf.
//
// Examples:
// NewBatchErrorf("remote", "failed to submit chunk %d", 7, true, true, io.EOF)
// -> message: "failed to submit chunk 7", isSkippable: true, isRetryable: true, originalErr: io.EOF
//
// NewBatchErrorf("repository", "journal write failed", false, sql.ErrNoRows)
// -> message: "journal write failed", isSkippable: false, isRetryable: false, originalErr: sql.ErrNoRows
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}

	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}

	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	message := fmt.Sprintf(format, args...)

	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
// It returns the error's module, message, and the string representation of the
// original error.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines if the given error is of type BatchError.
func IsBatchError(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	return errors.As(err, &be)
}

// InvalidChunkException names the caller error raised when a chunk carries no
// identifiers. An empty chunk is a programming error in the host, not a data
// condition, so it propagates instead of being recorded.
const InvalidChunkException = "InvalidChunkException"

// ErrInvalidChunk is the sentinel error for empty chunks.
var ErrInvalidChunk = errors.New(InvalidChunkException)

// NewInvalidChunkError creates a BatchError wrapping ErrInvalidChunk.
// Invalid chunks are neither retryable nor skippable.
func NewInvalidChunkError(module, message string) *BatchError {
	return NewBatchError(module, message, ErrInvalidChunk, false, false)
}

// IsInvalidChunk determines if an error indicates an empty-chunk caller error.
func IsInvalidChunk(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidChunk)
}

// LifecycleViolationException names the caller error raised when run
// operations are invoked out of order (chunk before start, finish twice, and
// so on).
const LifecycleViolationException = "LifecycleViolationException"

// ErrLifecycleViolation is the sentinel error for out-of-order run operations.
var ErrLifecycleViolation = errors.New(LifecycleViolationException)

// NewLifecycleViolationError creates a BatchError wrapping
// ErrLifecycleViolation. Lifecycle violations are neither retryable nor
// skippable.
func NewLifecycleViolationError(module, message string) *BatchError {
	return NewBatchError(module, message, ErrLifecycleViolation, false, false)
}

// IsLifecycleViolation determines if an error indicates out-of-order use of
// the run lifecycle.
func IsLifecycleViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrLifecycleViolation)
}

// OptimisticLockingFailureException names the persistence error raised when a
// journal row was updated concurrently and the expected version no longer
// matches.
const OptimisticLockingFailureException = "OptimisticLockingFailureException"

// ErrOptimisticLockingFailure is the sentinel error for version conflicts.
var ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)

// NewOptimisticLockingFailureException creates a BatchError indicating an
// optimistic locking failure. These are treated as fatal, neither retryable
// nor skippable.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *BatchError {
	var errToWrap error
	if originalErr != nil {
		errToWrap = errors.Join(ErrOptimisticLockingFailure, originalErr)
	} else {
		errToWrap = ErrOptimisticLockingFailure
	}
	return NewBatchError(module, message, errToWrap, false, false)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic
// locking failure.
func IsOptimisticLockingFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsTemporary determines if an error is temporary (e.g., network error,
// transient connection issue). If it's a BatchError, its IsRetryable flag
// takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF")
}

// IsFatal determines if an error is fatal (cannot be retried or skipped).
// If it's a BatchError, its flags take precedence.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied")
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field. Otherwise, it returns
// the standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
