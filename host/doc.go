// Package host is the embedding layer for a sandboxed, multi-tenant
// scripting engine: it creates and owns engine instances, gives native code a
// type-safe way to expose objects into the guest language and to unwrap
// guest values back into native types, and manages the lifetime, memory
// accounting, and cross-tenant isolation of engine-resident objects.
//
// # Quick Start
//
//	eng := enginetest.New() // or a production engine build
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
//	table := host.NewDispatchTable(inst)
//	host.RegisterType[*TcpSocket](table, "TcpSocket")
//
//	err = inst.RunLocked(func(lk *host.Lock) error {
//	    ctx := lk.NewContext()
//	    handle, err := lk.WrapStrong(ctx, socket)
//	    if err != nil {
//	        return err
//	    }
//	    back, err := host.Unwrap[*TcpSocket](lk, ctx, handle)
//	    _ = back // reference-equal to socket
//	    return err
//	})
//
// # Execution lock
//
// Everything that touches engine-managed handles requires a *Lock, acquired
// with Instance.RunLocked or Instance.Acquire. One goroutine holds the lock
// at a time; re-entrant acquisition on the same goroutine is a programming
// error and panics. Acquiring the lock drains the deferred destruction queue
// and applies pending external-memory deltas.
//
// Only three operations are legal without the lock, from any goroutine:
//
//	Instance.TerminateExecution   - best-effort abort of running guest code
//	Instance.ReleaseWrapper       - queue a wrapper release for the next lock
//	MemoryTarget.Adjust / MemoryAdjustment methods
//
// # Configuration ordering
//
// Capability flags, callbacks, dispatch tables, and type registrations are
// builder-phase state: the instance seals at the first lock acquisition and
// later mutation panics. Readers need no synchronization because of this
// write-once-before-first-lock discipline.
//
// # Cross-context deferred values
//
// When multiple tenant contexts share one instance, deferred values are
// stamped at creation with the ambient ContextTag (see Lock.EnterTagScope).
// Attaching a reaction to a value created under a different tag routes
// through the handler registered with Instance.SetCrossContextHandler, which
// returns the deferred the reaction actually attaches to - typically a proxy
// bound to the observing context. Without a handler the value is used
// unmodified, preserving single-tenant behavior.
package host
