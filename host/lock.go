package host

import (
	"github.com/petermattis/goid"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

func currentGoroutine() int64 {
	return goid.Get()
}

// Lock is the scoped proof that the calling goroutine owns the instance's
// execution context. Every wrap, unwrap, and allocation operation requires
// one. A Lock must stay on the goroutine that acquired it and must not be
// used after release; violations panic.
type Lock struct {
	inst      *Instance
	goroutine int64
	released  bool
}

// Acquire locks the instance to the calling goroutine. Acquisition seals the
// instance's builder-phase state, drains the deferred destruction queue, and
// applies pending external-memory deltas in one batched update.
//
// Re-entrant acquisition on the same goroutine is a programming error and
// panics; acquisition while another goroutine holds the lock blocks.
// Prefer RunLocked unless explicit control over the lock's extent is needed.
func (i *Instance) Acquire() *Lock {
	if i.disposed.Load() {
		panic(errors.Disposed(errors.PhaseLock, "engine instance"))
	}
	g := currentGoroutine()
	if i.owner.Load() == g {
		panic(errors.InvalidInput(errors.PhaseLock, "re-entrant lock acquisition on the same goroutine"))
	}

	i.execMu.Lock()
	i.owner.Store(g)
	lk := &Lock{inst: i, goroutine: g}
	i.activeLock = lk
	i.sealed.Store(true)
	i.applyDeferredActions()
	return lk
}

// Release returns the lock. The Lock is dead afterwards.
func (l *Lock) Release() {
	l.check()
	l.released = true
	l.inst.activeLock = nil
	l.inst.owner.Store(0)
	l.inst.execMu.Unlock()
}

// RunLocked acquires the lock, runs fn, and releases on every exit path
// including panics. fn must not release the lock itself.
func (i *Instance) RunLocked(fn func(*Lock) error) error {
	lk := i.Acquire()
	defer lk.Release()
	return fn(lk)
}

// Instance returns the locked instance.
func (l *Lock) Instance() *Instance {
	return l.inst
}

// EngineInstance exposes the underlying engine instance for operations the
// host does not mediate, such as creating deferred values.
func (l *Lock) EngineInstance() engine.Instance {
	l.check()
	return l.inst.eng
}

// PumpMessageLoop runs the engine's microtask pump, or the system's pump
// hook when one is configured. Reports whether any task ran.
func (l *Lock) PumpMessageLoop() bool {
	l.check()
	if hook := l.inst.system.cfg.PumpHook; hook != nil {
		return hook(l.inst.eng)
	}
	return l.inst.eng.PumpMicrotasks()
}

func (l *Lock) check() {
	if l.released {
		panic(errors.InvalidInput(errors.PhaseLock, "use of released execution lock"))
	}
	if currentGoroutine() != l.goroutine {
		panic(errors.InvalidInput(errors.PhaseLock, "execution lock used from a different goroutine"))
	}
}
