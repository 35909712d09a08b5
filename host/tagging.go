package host

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

// ContextTag identifies the tenant context a deferred value belongs to. The
// zero ContextTag is the untagged sentinel: values carrying it behave as in
// a single-tenant instance.
type ContextTag struct {
	id    uuid.UUID
	label string
}

// NewContextTag mints a tag for one tenant context.
func NewContextTag(label string) ContextTag {
	return ContextTag{id: uuid.New(), label: label}
}

// IsZero reports whether the tag is the untagged sentinel.
func (t ContextTag) IsZero() bool {
	return t.id == uuid.Nil
}

// Label returns the human-readable tenant label.
func (t ContextTag) Label() string {
	return t.label
}

func (t ContextTag) String() string {
	if t.IsZero() {
		return "untagged"
	}
	return fmt.Sprintf("%s(%s)", t.label, t.id.String()[:8])
}

// TagOf returns d's creation tag, or the sentinel for untagged values.
func TagOf(d engine.Deferred) ContextTag {
	if t, ok := d.Tag().(ContextTag); ok {
		return t
	}
	return ContextTag{}
}

// CrossContextHandler reconciles a deferred value created under one tenant
// context with the context now attaching a reaction. It returns the deferred
// the reaction actually attaches to - typically a new value whose resolution
// is proxied from d, bound to the current context. Returning nil or d keeps
// the original.
type CrossContextHandler func(lk *Lock, current ContextTag, d engine.Deferred, created ContextTag) engine.Deferred

// SetCrossContextHandler registers the cross-context handler. Builder-phase
// only. Without a handler, cross-context chains pass through unmodified,
// preserving single-tenant behavior.
func (i *Instance) SetCrossContextHandler(h CrossContextHandler) {
	i.mustBeUnsealed("cross-context handler")
	i.crossContext = h
}

// interceptChain is installed as the engine's chain interceptor. It runs
// synchronously inside guest execution, exactly once per chaining attempt,
// before the reaction is scheduled.
func (i *Instance) interceptChain(d engine.Deferred) engine.Deferred {
	created, ok := d.Tag().(ContextTag)
	if !ok || created.IsZero() {
		return d
	}
	current, _ := i.eng.CurrentTag().(ContextTag)
	if created == current {
		return d
	}

	h := i.crossContext
	if h == nil {
		return d
	}
	if i.crossContextBusy {
		// The handler's own chaining must not recurse into interception.
		return d
	}
	i.crossContextBusy = true
	defer func() { i.crossContextBusy = false }()

	if replaced := h(i.activeLock, current, d, created); replaced != nil {
		return replaced
	}
	return d
}

// TagScope makes a ContextTag ambient: every deferred value created while
// the scope is active - including ones created deep inside engine-internal
// machinery - is stamped with it.
type TagScope struct {
	lock   *Lock
	exited bool
}

// EnterTagScope establishes tag as the ambient tag. Scopes follow stack
// discipline and do not nest: entering a second scope before exiting the
// first is a programming error and panics. Callers defer Exit.
func (l *Lock) EnterTagScope(tag ContextTag) *TagScope {
	l.check()
	if tag.IsZero() {
		panic(errors.InvalidInput(errors.PhasePromise, "cannot enter a tag scope with the untagged sentinel"))
	}
	if !l.inst.ambientOwner.CompareAndSwap(0, l.goroutine) {
		panic(errors.InvalidInput(errors.PhasePromise, "ambient tag scopes do not nest"))
	}
	l.inst.eng.SetCurrentTag(tag)
	return &TagScope{lock: l}
}

// Exit clears the ambient tag. Idempotent, so it is safe both deferred and
// called explicitly on the success path.
func (s *TagScope) Exit() {
	if s.exited {
		return
	}
	s.lock.check()
	s.exited = true
	s.lock.inst.eng.SetCurrentTag(nil)
	s.lock.inst.ambientOwner.Store(0)
}
