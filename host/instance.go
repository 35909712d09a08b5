package host

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
	"github.com/wippyai/script-host/host/internal/batch"
)

// Destruction queues stay small in practice; bursts past the ceiling release
// their storage after the drain.
const (
	destructionQueueInitialSize = 8
	destructionQueueMaxCapacity = 10000
)

// InstanceOptions are the capability flags of one engine instance. All fields
// are fixed once the instance takes its first lock.
type InstanceOptions struct {
	// HeapLimit caps externally-attributed memory in bytes. 0 means no limit.
	HeapLimit uint64

	AllowEval            bool
	DisableTopLevelAwait bool
	NodeCompat           bool
	NodeProcessV2        bool

	// CaptureThrowsAsRejections converts synchronous throws from
	// promise-returning native APIs into rejected deferred values, as the
	// platform specifications require.
	CaptureThrowsAsRejections bool

	JSPI           bool
	SetToStringTag bool

	// OnFatal observes engine-internal fatal errors. The engine aborts the
	// process after the callback returns; this is a reporting hook, not a
	// recovery path.
	OnFatal func(location, message string)
}

// Instance owns one sandboxed engine instantiation and the host-side state
// attached to it: wrapper identity, the deferred destruction queue, memory
// accounting, dispatch tables, the code-location map, and the cross-context
// tagging protocol.
type Instance struct {
	system *System
	eng    engine.Instance
	opts   InstanceOptions

	sealed   atomic.Bool
	disposed atomic.Bool

	execMu     sync.Mutex
	owner      atomic.Int64 // goroutine id of the lock holder, 0 when free
	activeLock *Lock        // valid while owner != 0

	queue  *batch.Queue[func()]
	memory *MemoryTarget

	tables         []*DispatchTable
	hasExtraTables bool

	// Builder-phase callbacks, write-once before the first lock.
	warnLogger     func(*Lock, string)
	errorReporter  func(*Lock, string, any)
	moduleFallback func(*Lock, string) (string, bool)
	crossContext   CrossContextHandler

	// Guards against recursive interception while the cross-context handler
	// itself chains deferred values. Touched only under the execution lock.
	crossContextBusy bool

	// Maps generated-code addresses to source locations. Mutated only under
	// the execution lock, via engine code events.
	codeMap *btree.BTreeG[codeBlock]

	// Goroutine currently inside an ambient tag scope, 0 when none.
	ambientOwner atomic.Int64
}

// NewInstance creates a sandboxed engine instance. Engine-internal
// out-of-memory or fatal errors during the instance's life are reported
// through opts.OnFatal and then abort the process; they are not recoverable
// errors.
func (s *System) NewInstance(opts InstanceOptions) (*Instance, error) {
	if s.closed.Load() {
		return nil, errors.Disposed(errors.PhaseSetup, "engine system")
	}

	inst := &Instance{system: s, opts: opts}
	ei, err := s.eng.NewInstance(engine.InstanceParams{
		HeapLimit:     opts.HeapLimit,
		OnFatalError:  inst.fatal,
		OnOutOfMemory: inst.fatal,
	})
	if err != nil {
		return nil, errors.Engine(err, "create engine instance")
	}

	inst.eng = ei
	inst.queue = batch.New[func()](destructionQueueInitialSize, destructionQueueMaxCapacity)
	inst.memory = newMemoryTarget(inst)
	inst.codeMap = btree.NewG(8, func(a, b codeBlock) bool { return a.addr < b.addr })

	ei.SetCodeEventHandler(inst.onCodeEvent)
	ei.SetChainInterceptor(inst.interceptChain)

	s.instances.Add(1)
	Logger().Debug("engine instance created", zap.Uint64("heap_limit", opts.HeapLimit))
	return inst, nil
}

// fatal relays an engine-internal fatal error. The engine aborts after this
// returns; there is no recovery path.
func (i *Instance) fatal(location, message string) {
	Logger().Error("engine fatal error",
		zap.String("location", location),
		zap.String("message", message))
	if cb := i.opts.OnFatal; cb != nil {
		cb(location, message)
	}
}

// Capability readers. Plain loads: the fields are write-once before the
// first lock acquisition.

func (i *Instance) AllowsEval() bool           { return i.opts.AllowEval }
func (i *Instance) TopLevelAwaitEnabled() bool { return !i.opts.DisableTopLevelAwait }
func (i *Instance) NodeCompatEnabled() bool    { return i.opts.NodeCompat }
func (i *Instance) NodeProcessV2Enabled() bool { return i.opts.NodeProcessV2 }
func (i *Instance) JSPIEnabled() bool          { return i.opts.JSPI }
func (i *Instance) ShouldSetToStringTag() bool { return i.opts.SetToStringTag }
func (i *Instance) CapturesThrowsAsRejections() bool {
	return i.opts.CaptureThrowsAsRejections
}

// SetWarningLogger registers the sink for guest-visible warnings. Warnings
// are dropped when no logger is registered.
func (i *Instance) SetWarningLogger(fn func(lk *Lock, message string)) {
	i.mustBeUnsealed("warning logger")
	i.warnLogger = fn
}

// SetErrorReporter registers the sink for reported guest errors.
func (i *Instance) SetErrorReporter(fn func(lk *Lock, description string, value any)) {
	i.mustBeUnsealed("error reporter")
	i.errorReporter = fn
}

// SetModuleFallback registers the resolver consulted when module resolution
// fails. It returns replacement module source and whether it could resolve.
func (i *Instance) SetModuleFallback(fn func(lk *Lock, specifier string) (string, bool)) {
	i.mustBeUnsealed("module fallback")
	i.moduleFallback = fn
}

func (i *Instance) AreWarningsLogged() bool { return i.warnLogger != nil }
func (i *Instance) AreErrorsReported() bool { return i.errorReporter != nil }
func (i *Instance) HasModuleFallback() bool { return i.moduleFallback != nil }

// LogWarning routes a warning to the registered logger, if any.
func (i *Instance) LogWarning(lk *Lock, message string) {
	lk.check()
	if i.warnLogger != nil {
		i.warnLogger(lk, message)
	}
}

// ReportError routes a guest error to the registered reporter, if any.
func (i *Instance) ReportError(lk *Lock, description string, value any) {
	lk.check()
	if i.errorReporter != nil {
		i.errorReporter(lk, description, value)
	}
}

// ResolveModuleFallback consults the registered module fallback.
func (i *Instance) ResolveModuleFallback(lk *Lock, specifier string) (string, bool) {
	lk.check()
	if i.moduleFallback == nil {
		return "", false
	}
	return i.moduleFallback(lk, specifier)
}

// TerminateExecution aborts any running guest code with an uncatchable
// exception at the next safe point. Safe to call from any goroutine, without
// the lock.
func (i *Instance) TerminateExecution() {
	if i.disposed.Load() {
		return
	}
	i.eng.TerminateExecution()
}

// MemoryTarget returns the shareable handle for reporting externally-held
// memory. The target may outlive the instance; see MemoryTarget.
func (i *Instance) MemoryTarget() *MemoryTarget {
	return i.memory
}

// deferRelease queues work for the next lock acquisition. Safe from any
// goroutine.
func (i *Instance) deferRelease(fn func()) {
	i.queue.Push(fn)
}

// applyDeferredActions drains the destruction queue and applies the pending
// external-memory delta. Called on every lock acquisition, under the lock.
func (i *Instance) applyDeferredActions() {
	i.queue.Drain(func(fn func()) { fn() })
	i.memory.applyPending()
}

// Dispose destroys the instance. No lock may be outstanding. Queued
// destruction items are drained before the engine instance is torn down;
// memory adjustments still in flight are dropped from here on.
func (i *Instance) Dispose() error {
	if i.owner.Load() == currentGoroutine() {
		panic(errors.InvalidInput(errors.PhaseTeardown, "instance disposed while its execution lock is held"))
	}
	if i.disposed.Swap(true) {
		return errors.Disposed(errors.PhaseTeardown, "engine instance")
	}

	i.execMu.Lock()
	i.queue.Drain(func(fn func()) { fn() })
	i.memory.kill()
	i.execMu.Unlock()

	var hookErr error
	if hook := i.system.cfg.ShutdownHook; hook != nil {
		hookErr = hook(i.eng)
	}
	err := multierr.Append(hookErr, i.eng.Dispose())

	i.system.instances.Add(-1)
	Logger().Debug("engine instance disposed")
	return err
}

func (i *Instance) mustBeUnsealed(what string) {
	if i.sealed.Load() {
		panic(errors.Sealed(what))
	}
}
