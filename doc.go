// Package scripthost is the host-side embedding layer for a sandboxed,
// multi-tenant script engine.
//
// It wraps a low-level engine build behind lifecycle, locking, and identity
// management so that host applications can expose native objects to untrusted
// guest code without inheriting the engine's raw threading and memory rules.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	script-host/         Root package documentation
//	├── host/            System, Instance, Lock, wrappers, memory accounting,
//	│                    deferred destruction, cross-context promise tagging
//	├── engine/          The engine contract the host layer embeds
//	├── enginetest/      In-memory reference engine for tests
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Create the process-wide system, then one instance per sandbox:
//
//	sys, err := host.NewSystem(eng, host.SystemConfig{BackgroundThreads: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close()
//
//	inst, err := sys.NewInstance(host.InstanceOptions{AllowEval: false})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Dispose()
//
//	err = inst.RunLocked(func(lk *host.Lock) error {
//	    ctx := lk.NewContext()
//	    handle, err := lk.Wrap(ctx, myObject)
//	    ...
//	})
//
// # Thread Safety
//
// System and Instance construction and disposal are safe for concurrent use.
// Everything that touches guest state requires a Lock, which pins the caller
// to one goroutine for its extent. The documented exceptions - TerminateExecution,
// ReleaseWrapper, and MemoryTarget adjustments - are safe from any goroutine
// and never block on the lock.
package scripthost
