package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a call's lifecycle the error occurred
type Phase string

const (
	PhaseValidate  Phase = "validate"  // argument preconditions, before a handle exists
	PhaseInitiate  Phase = "initiate"  // synchronous engine accept/reject
	PhaseComplete  Phase = "complete"  // asynchronous engine completion
	PhaseProtocol  Phase = "protocol"  // callback/handle bookkeeping
	PhaseCancel    Phase = "cancel"    // caller abandoned the call
	PhaseDecode    Phase = "decode"    // payload to result shape
	PhaseEngine    Phase = "engine"    // engine construction and guest calls
	PhaseLifecycle Phase = "lifecycle" // registry startup and shutdown
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindRejected        Kind = "rejected"
	KindEngineError     Kind = "engine_error"
	KindUnknownHandle   Kind = "unknown_handle"
	KindAlreadyResolved Kind = "already_resolved"
	KindCancelled       Kind = "cancelled"
	KindTimeout         Kind = "timeout"
	KindClosed          Kind = "closed"
	KindInvalidData     Kind = "invalid_data"
	KindExhausted       Kind = "exhausted"
	KindNotFound        Kind = "not_found"
	KindInstantiation   Kind = "instantiation"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Handle uint32
	Code   Code
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Handle != 0 {
		b.WriteString(" handle ")
		fmt.Fprintf(&b, "%d", e.Handle)
	}

	if e.Code != Success {
		b.WriteString(": code ")
		b.WriteString(e.Code.String())
		if e.Detail != "" {
			b.WriteString(" - ")
		}
	} else if e.Detail != "" {
		b.WriteString(": ")
	}
	b.WriteString(e.Detail)

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Class returns the classification of the error's engine code.
func (e *Error) Class() Class {
	return Classify(e.Code)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the parameter path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Handle sets the call handle the error refers to
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Code sets the engine error code
func (b *Builder) Code(c Code) *Builder {
	b.err.Code = c
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// CodeOf returns the engine code carried by err's chain, or Success if none.
func CodeOf(err error) Code {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return Success
		}
		if e.Code != Success {
			return e.Code
		}
		err = e.Cause
	}
	return Success
}

// Convenience constructors for common error patterns

// InvalidParam creates a validation error for a caller-supplied argument
func InvalidParam(name, detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidInput,
		Path:   []string{name},
		Detail: detail,
	}
}

// Rejected creates an initiation error for a synchronous engine rejection
func Rejected(handle uint32, code Code) *Error {
	return &Error{
		Phase:  PhaseInitiate,
		Kind:   KindRejected,
		Handle: handle,
		Code:   code,
		Detail: fmt.Sprintf("engine rejected call (%s)", Classify(code)),
	}
}

// FromCode creates a completion error classified from an engine code
func FromCode(handle uint32, code Code) *Error {
	return &Error{
		Phase:  PhaseComplete,
		Kind:   KindEngineError,
		Handle: handle,
		Code:   code,
		Detail: fmt.Sprintf("engine reported %s failure", Classify(code)),
	}
}

// UnknownHandle creates a protocol anomaly error
func UnknownHandle(handle uint32, op string) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindUnknownHandle,
		Handle: handle,
		Detail: fmt.Sprintf("%s on unknown or already completed handle", op),
	}
}

// AlreadyResolved creates a double-resolution error
func AlreadyResolved(handle uint32) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindAlreadyResolved,
		Handle: handle,
		Detail: "result already assigned",
	}
}

// Cancelled creates a cancellation error, optionally wrapping the context error
func Cancelled(handle uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseCancel,
		Kind:   KindCancelled,
		Handle: handle,
		Detail: "call abandoned before completion",
		Cause:  cause,
	}
}

// Timeout creates a reclamation error for an entry that outlived its max age
func Timeout(handle uint32, detail string) *Error {
	return &Error{
		Phase:  PhaseCancel,
		Kind:   KindTimeout,
		Handle: handle,
		Detail: detail,
	}
}

// Closed creates a lifecycle error for a registry that no longer accepts calls
func Closed(handle uint32) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindClosed,
		Handle: handle,
		Detail: "registry closed",
	}
}

// InvalidData creates a decode error for an unexpected payload shape
func InvalidData(handle uint32, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Handle: handle,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Instantiation creates an engine instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindInstantiation,
		Detail: "instantiate engine guest",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
