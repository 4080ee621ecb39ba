package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the failure reason code carried by dead-letter outcomes.
type ErrorKind string

const (
	// ErrUnsupportedFormat: the document cannot be preprocessed. Permanent.
	ErrUnsupportedFormat ErrorKind = "UnsupportedFormat"
	// ErrBackendTransient: timeout / rate limit / 5xx from the inference
	// backend. Retried with backoff up to the attempt budget.
	ErrBackendTransient ErrorKind = "BackendTransientError"
	// ErrBackendPermanent: auth, quota-exhausted or request-shape failures.
	// Never retried.
	ErrBackendPermanent ErrorKind = "BackendPermanentError"
	// ErrUnparseableResponse: backend text did not parse into the response
	// contract even after one corrective re-prompt.
	ErrUnparseableResponse ErrorKind = "UnparseableResponse"
	// ErrSchemaInit: the schema definition failed to load. Fatal to the
	// whole process, not per-statement.
	ErrSchemaInit ErrorKind = "SchemaInitError"
	// ErrStoreFailure: the result store rejected the upsert.
	ErrStoreFailure ErrorKind = "StoreError"
	// ErrInternal: anything else caught at the pipeline boundary.
	ErrInternal ErrorKind = "InternalError"
)

// PipelineError tags an underlying error with a reason code so the pipeline
// boundary can translate it into a dead-letter outcome.
type PipelineError struct {
	Kind ErrorKind
	Op   string // stage that raised it, e.g. "preprocess", "extract"
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError wraps err with a reason code and originating stage.
func NewError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// Errorf is NewError with a formatted message instead of a wrapped cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the reason code from err, walking the wrap chain.
// Untagged errors report ErrInternal.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}
