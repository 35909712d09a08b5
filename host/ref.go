package host

// Ref owns the wrapper lifetime of one native object. Holding a Ref keeps
// the wrapper record attached; releasing the Ref severs it, immediately when
// the caller holds the execution lock and through the destruction queue
// otherwise. Release is idempotent.
type Ref[T Wrappable] struct {
	inst   *Instance
	native T
}

// NewRef takes ownership of native's wrapper lifetime.
func NewRef[T Wrappable](l *Lock, native T) Ref[T] {
	l.check()
	return Ref[T]{inst: l.inst, native: native}
}

// Get returns the referenced object.
func (r Ref[T]) Get() T {
	return r.native
}

// Release severs the wrapper from any goroutine, without blocking. The object
// counts as mid-destruction immediately; the severing applies at the next
// lock acquisition.
func (r Ref[T]) Release() {
	r.inst.ReleaseWrapper(r.native)
}

// ReleaseLocked severs the wrapper immediately under the lock.
func (r Ref[T]) ReleaseLocked(l *Lock) {
	l.DestroyWrapper(r.native)
}

// WeakRef observes a wrapped object without owning its wrapper lifetime.
type WeakRef[T Wrappable] struct {
	native T
}

// NewWeakRef creates a non-owning reference to native.
func NewWeakRef[T Wrappable](native T) WeakRef[T] {
	return WeakRef[T]{native: native}
}

// Get returns the referenced object and whether its wrapper is still
// attached. Read under the execution lock.
func (w WeakRef[T]) Get() (T, bool) {
	st := w.native.wrapperState()
	if st.released || st.dying.Load() {
		var zero T
		return zero, false
	}
	return w.native, true
}
