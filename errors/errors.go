package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the embedding layer the error occurred
type Phase string

const (
	PhaseSetup    Phase = "setup"    // system and instance construction
	PhaseConfig   Phase = "config"   // option parsing and validation
	PhaseLock     Phase = "lock"     // execution lock acquisition and scoping
	PhaseWrap     Phase = "wrap"     // native to guest wrapping
	PhaseUnwrap   Phase = "unwrap"   // guest to native unwrapping
	PhasePromise  Phase = "promise"  // deferred values and context tagging
	PhaseMemory   Phase = "memory"   // external memory accounting
	PhaseTeardown Phase = "teardown" // instance disposal and system shutdown
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch  Kind = "type_mismatch"
	KindSealed        Kind = "sealed"
	KindDyingObject   Kind = "dying_object"
	KindNotFound      Kind = "not_found"
	KindInvalidFlag   Kind = "invalid_flag"
	KindInvalidInput  Kind = "invalid_input"
	KindDuplicate     Kind = "duplicate"
	KindDisposed      Kind = "disposed"
	KindLiveInstances Kind = "live_instances"
	KindEngine        Kind = "engine"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Expected string
	Actual   string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": ")
		if e.Expected != "" && e.Actual != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
			b.WriteString(", got ")
			b.WriteString(e.Actual)
		} else if e.Expected != "" {
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		} else {
			b.WriteString("got ")
			b.WriteString(e.Actual)
		}
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

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

// Expected sets the expected type name
func (b *Builder) Expected(name string) *Builder {
	b.err.Expected = name
	return b
}

// Actual sets the actual type or constructor name
func (b *Builder) Actual(name string) *Builder {
	b.err.Actual = name
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

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error suitable for a guest-visible
// TypeError message.
func TypeMismatch(phase Phase, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Actual:   actual,
	}
}

// Sealed reports mutation of instance state after the first lock acquisition
func Sealed(what string) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindSealed,
		Detail: fmt.Sprintf("%s must be configured before the first lock acquisition", what),
	}
}

// DyingObject reports an attempt to strongly wrap an object mid-destruction
func DyingObject(typeName string) *Error {
	return &Error{
		Phase:  PhaseWrap,
		Kind:   KindDyingObject,
		Detail: fmt.Sprintf("%s is being destroyed and can no longer be strongly wrapped", typeName),
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidFlag reports an engine feature flag the engine build does not recognize
func InvalidFlag(flag string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidFlag,
		Detail: fmt.Sprintf("unrecognized engine flag %q", flag),
		Value:  flag,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Duplicate reports construction of a second instance of a process-wide singleton
func Duplicate(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s already exists in this process", what),
	}
}

// Disposed reports use of an already-disposed object
func Disposed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisposed,
		Detail: fmt.Sprintf("%s has been disposed", what),
	}
}

// LiveInstances reports a teardown attempted while instances remain
func LiveInstances(count int) *Error {
	return &Error{
		Phase:  PhaseTeardown,
		Kind:   KindLiveInstances,
		Detail: fmt.Sprintf("%d engine instance(s) still alive", count),
		Value:  count,
	}
}

// Engine wraps an error reported by the embedded engine
func Engine(cause error, detail string) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindEngine,
		Cause:  cause,
		Detail: detail,
	}
}

// Wrap creates an error wrapping a cause with context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}
