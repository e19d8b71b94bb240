package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = iota
	// KindConfiguration marks a missing or placeholder credential, path or option.
	KindConfiguration
	// KindNotFound marks a missing upstream artifact.
	KindNotFound
	// KindEmpty marks an upstream artifact that exists but has no content.
	KindEmpty
	// KindTransport marks a network, HTTP or timeout failure while calling a remote service.
	KindTransport
	// KindMalformedResponse marks a model response that is not valid JSON or violates the schema.
	KindMalformedResponse
	// KindAuthentication marks rejected mail transport credentials.
	KindAuthentication
	// KindDelivery marks any other mail transport failure.
	KindDelivery
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindNotFound:
		return "NotFound"
	case KindEmpty:
		return "Empty"
	case KindTransport:
		return "TransportError"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindAuthentication:
		return "AuthenticationError"
	case KindDelivery:
		return "DeliveryError"
	default:
		return "UnknownError"
	}
}

// PipelineError is a classified failure raised by one pipeline stage.
type PipelineError struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches another *PipelineError by kind, so sentinels like ErrEmpty work with errors.Is.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration     = &PipelineError{Kind: KindConfiguration}
	ErrNotFound          = &PipelineError{Kind: KindNotFound}
	ErrEmpty             = &PipelineError{Kind: KindEmpty}
	ErrTransport         = &PipelineError{Kind: KindTransport}
	ErrMalformedResponse = &PipelineError{Kind: KindMalformedResponse}
	ErrAuthentication    = &PipelineError{Kind: KindAuthentication}
	ErrDelivery          = &PipelineError{Kind: KindDelivery}
)

// New creates a classified error for the given operation.
func New(kind Kind, op string, err error) error {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error with a formatted cause.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *PipelineError in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// CommandError represents a failure of a whole command, carrying the process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
	Err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError wrapping err with the given exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Err:         err,
	}
}
