// Package engine defines the low-level contract a sandboxed scripting engine
// must expose to be embedded through the host package.
//
// The host layer never talks to an engine implementation directly; it is
// written entirely against these interfaces. An engine build provides:
//
//	Engine      - process-level entry point, creates isolated instances
//	Instance    - one sandbox: contexts, objects, deferred values, microtasks
//	Context     - a guest global-object realm with embedder data slots
//	Template    - a constructor shape with internal field storage
//	Object      - a guest heap handle with internal fields and a strong-ref
//	              count visible to the engine's collector
//	Deferred    - the engine's promise primitive, with a chaining hook point
//
// # Threading
//
// Everything on Instance is single-threaded and must be called while the
// embedder holds its execution lock, with two documented exceptions that are
// safe from any goroutine at any time:
//
//	TerminateExecution    - best-effort asynchronous abort of running guest code
//	AdjustExternalMemory  - external memory pressure notification
//
// # Fatal errors
//
// Engine-internal out-of-memory and unrecoverable internal errors are
// reported through the callbacks in InstanceParams and are not recoverable:
// the engine aborts after the callback returns. Hosts must not attempt to
// continue past them.
//
// # Deferred values and the chaining hook
//
// Every Deferred is stamped, exactly once at creation, with the instance's
// current tag (see Instance.SetCurrentTag). When a reaction is attached via
// Then, the engine first consults the interceptor installed with
// SetChainInterceptor; the reaction is attached to whatever deferred the
// interceptor returns. This is the hook point the host's cross-context
// tagging protocol is built on.
//
// The enginetest package provides an in-memory reference implementation of
// this contract for tests.
package engine
