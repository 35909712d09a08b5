// Package errors provides structured error types for the script-host library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries enough context to produce a guest-visible
// diagnostic: the expected native type name, the actual constructor name, a
// human-readable detail, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseUnwrap, errors.KindTypeMismatch).
//		Expected("TcpSocket").
//		Actual("Headers").
//		Detail("argument 1 is not a socket").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseUnwrap, "TcpSocket", "Headers")
//	err := errors.Sealed("warning logger")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
