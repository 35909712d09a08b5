// Package enginetest provides an in-memory reference implementation of the
// engine contract, for use in tests of the host layer and of embedding code.
//
// It is not a scripting engine: there is no parser, bytecode, or real
// collector. It implements exactly the surface the host consumes - objects
// with internal fields and prototype chains, templates with find-instance
// queries, strong-ref-aware collection passes, deferred values with a
// reaction microtask queue and a chaining hook, termination flags, and
// simulated heap-limit exhaustion feeding the fatal callbacks.
//
// Beyond the engine contract, a few test-only affordances are exposed on the
// concrete types: Object property maps (to model guest reachability),
// Object.Collected, Instance.EmitCodeEvent, and Instance.Terminated.
package enginetest
