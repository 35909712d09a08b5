package host

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

// WrapperBase carries the identity bookkeeping pairing a native object with
// its guest-visible handle. Embed it by value in any type registered with
// RegisterType.
//
// record and released are guarded by the execution lock; dying may be set
// from any goroutine by ReleaseWrapper.
type WrapperBase struct {
	record   *WrapperRecord
	dying    atomic.Bool
	released bool
}

func (w *WrapperBase) wrapperState() *WrapperBase { return w }

// Released reports whether the wrapper has been severed from the native
// object. Read under the execution lock.
func (w *WrapperBase) Released() bool { return w.released }

// Wrappable is implemented by embedding WrapperBase.
type Wrappable interface {
	wrapperState() *WrapperBase
}

// WrapperRecord pairs a native object with its engine handle.
type WrapperRecord struct {
	handle engine.Object
	native Wrappable
	entry  *dispatchEntry

	// strong means the guest graph keeps the wrapper, and through it the
	// native object, alive: the handle carries an engine-visible strong
	// reference that must be dropped before the handle is released.
	strong bool
}

// Handle returns the guest-visible handle.
func (r *WrapperRecord) Handle() engine.Object { return r.handle }

// Wrap exposes native into ctx with weak ownership: the wrapper may be
// collected independently of the native object's lifetime. Repeated wraps of
// the same object return the same handle.
func (l *Lock) Wrap(ctx engine.Context, native Wrappable) (engine.Object, error) {
	l.check()
	return l.wrap(ctx, native, false)
}

// WrapStrong exposes native into ctx with strong ownership: as long as any
// guest-reachable reference to the wrapper exists, the engine keeps it (and
// transitively the native object) alive. Fails if the object is
// mid-destruction.
func (l *Lock) WrapStrong(ctx engine.Context, native Wrappable) (engine.Object, error) {
	l.check()
	return l.wrap(ctx, native, true)
}

func (l *Lock) wrap(ctx engine.Context, native Wrappable, strong bool) (engine.Object, error) {
	st := native.wrapperState()
	if st.dying.Load() {
		return nil, errors.DyingObject(typeNameOf(native))
	}

	rec := st.record
	if rec == nil {
		table := l.inst.tableForContext(ctx)
		entry := table.entryFor(reflect.TypeOf(native))
		if entry == nil {
			return nil, errors.NotFound(errors.PhaseWrap, "registered type", typeNameOf(native))
		}
		obj := l.inst.eng.NewObject(ctx, entry.tmpl)
		rec = &WrapperRecord{handle: obj, native: native, entry: entry}
		obj.SetInternalField(recordField, rec)
		obj.SetInternalField(nativeField, native)
		st.record = rec
	}
	if strong && !rec.strong {
		rec.handle.Ref()
		rec.strong = true
	}
	return rec.handle, nil
}

// Unwrap recovers the native object behind a guest handle via the engine's
// prototype-chain query, avoiding a side-table lookup on every native method
// call. A mismatch returns a recoverable type error carrying the expected
// type name and the actual constructor name for the guest-visible message.
func Unwrap[T Wrappable](l *Lock, ctx engine.Context, obj engine.Object) (T, error) {
	l.check()
	var zero T

	table := l.inst.tableForContext(ctx)
	typ := reflect.TypeOf(zero)
	entry := table.entryFor(typ)
	if entry == nil {
		return zero, errors.NotFound(errors.PhaseUnwrap, "registered type", typ.String())
	}

	inner, ok := l.inst.eng.FindInstance(obj, entry.tmpl)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseUnwrap, entry.name, table.constructorName(obj))
	}

	native, ok := inner.InternalField(nativeField).(T)
	if !ok {
		// The wrapper outlived its native object (weak ownership) and was
		// severed.
		return zero, errors.TypeMismatch(errors.PhaseUnwrap, entry.name, "detached "+entry.name)
	}
	return native, nil
}

// ReleaseWrapper severs native's wrapper. Callable from any goroutine,
// without the lock, without blocking: the release is queued and applied at
// the next lock acquisition, exactly once. The object counts as
// mid-destruction immediately, so further wraps fail.
func (i *Instance) ReleaseWrapper(native Wrappable) {
	st := native.wrapperState()
	if st.dying.Swap(true) {
		return
	}
	i.deferRelease(func() { releaseState(st) })
}

// DestroyWrapper is the under-lock immediate form of ReleaseWrapper.
func (l *Lock) DestroyWrapper(native Wrappable) {
	l.check()
	st := native.wrapperState()
	if st.dying.Swap(true) {
		return
	}
	releaseState(st)
}

// releaseState severs the record. Execution lock held.
func releaseState(st *WrapperBase) {
	rec := st.record
	st.record = nil
	st.released = true
	if rec == nil || rec.handle == nil {
		return
	}
	if rec.handle.Valid() {
		// Never dereference a collected handle: weakly-owned wrappers may be
		// gone before the native object is.
		rec.handle.SetInternalField(recordField, nil)
		rec.handle.SetInternalField(nativeField, nil)
		if rec.strong {
			rec.handle.Unref()
		}
	}
	rec.strong = false
	rec.handle = nil
}

func typeNameOf(native Wrappable) string {
	return reflect.TypeOf(native).String()
}
