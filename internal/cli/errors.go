package cli

import (
	"errors"

	"go.uber.org/zap"
)

// Sentinel errors for CLI operations.
var (
	// ErrRegistryUnreadable indicates the registry file could not be loaded.
	ErrRegistryUnreadable = errors.New("registry unreadable")

	// ErrUnitsFailed indicates at least one unit of a multi-server
	// operation failed after every unit was attempted.
	ErrUnitsFailed = errors.New("one or more servers failed")

	// ErrEmitFailed indicates a destination could not be created or
	// written. Fatal to the emit step; no partial output is left behind.
	ErrEmitFailed = errors.New("config emission failed")
)

// structuredError carries a sentinel for errors.Is matching, the underlying
// cause, a human-readable detail, and a context map for structured logging.
type structuredError struct {
	sentinel error
	cause    error
	detail   string
	context  map[string]any
}

func (e *structuredError) Error() string { return e.detail }

func (e *structuredError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.sentinel, e.cause}
	}
	return []error{e.sentinel}
}

// newWithSentinel creates an error matching sentinel with the given detail.
func newWithSentinel(sentinel error, detail string) error {
	return &structuredError{sentinel: sentinel, detail: detail}
}

// wrapWithSentinel wraps cause so it matches sentinel while reporting detail.
func wrapWithSentinel(sentinel, cause error, detail string) error {
	return &structuredError{sentinel: sentinel, cause: cause, detail: detail}
}

// wrapWithSentinelAndContext additionally attaches structured context.
func wrapWithSentinelAndContext(sentinel, cause error, detail string, context map[string]any) error {
	return &structuredError{sentinel: sentinel, cause: cause, detail: detail, context: context}
}

// logStructuredError logs err with its context map as zap fields.
func logStructuredError(logger *zap.Logger, err error, msg string) {
	fields := []zap.Field{zap.Error(err)}
	var sErr *structuredError
	if errors.As(err, &sErr) {
		for k, v := range sErr.context {
			fields = append(fields, zap.Any(k, v))
		}
	}
	logger.Error(msg, fields...)
}
