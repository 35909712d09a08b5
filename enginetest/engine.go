package enginetest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

// recognizedFlags is the feature-flag set this engine build accepts.
var recognizedFlags = []string{
	"expose-gc",
	"single-threaded-gc",
	"strict-termination-checks",
	"lazy-compilation",
}

// Engine is the process-level reference engine.
type Engine struct {
	mu       sync.Mutex
	live     int
	disposed bool
}

// New creates a reference engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Flags() []string {
	out := make([]string, len(recognizedFlags))
	copy(out, recognizedFlags)
	return out
}

func (e *Engine) NewInstance(params engine.InstanceParams) (engine.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, errors.Disposed(errors.PhaseSetup, "engine")
	}
	e.live++
	return &Instance{
		eng:     e,
		params:  params,
		objects: make(map[*Object]struct{}),
	}, nil
}

func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return errors.Disposed(errors.PhaseTeardown, "engine")
	}
	if e.live > 0 {
		return errors.LiveInstances(e.live)
	}
	e.disposed = true
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.live--
	e.mu.Unlock()
}

// Instance is one reference sandbox.
//
// Contract methods are single-threaded under the host's execution lock except
// TerminateExecution and AdjustExternalMemory. The internal mutex exists only
// to keep the cross-thread entry points safe, not to make the instance
// generally concurrent.
type Instance struct {
	eng    *Engine
	params engine.InstanceParams

	mu          sync.Mutex
	contexts    []*Context
	objects     map[*Object]struct{}
	microtasks  []func()
	interceptor func(engine.Deferred) engine.Deferred
	currentTag  any
	codeHandler func(engine.CodeEvent)
	disposed    bool

	external   atomic.Int64
	terminated atomic.Bool
}

func (i *Instance) NewContext() engine.Context {
	i.mu.Lock()
	defer i.mu.Unlock()
	global := i.newObjectLocked(nil)
	ctx := &Context{
		inst:     i,
		global:   global,
		embedder: make(map[int]any),
	}
	i.contexts = append(i.contexts, ctx)
	return ctx
}

func (i *Instance) NewObjectTemplate(internalFieldCount int) engine.Template {
	return &Template{fields: internalFieldCount}
}

func (i *Instance) NewObject(ctx engine.Context, tmpl engine.Template) engine.Object {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.newObjectLocked(tmpl.(*Template))
}

func (i *Instance) newObjectLocked(tmpl *Template) *Object {
	o := &Object{inst: i, tmpl: tmpl}
	if tmpl != nil {
		o.fields = make([]any, tmpl.fields)
	}
	i.objects[o] = struct{}{}
	return o
}

func (i *Instance) FindInstance(obj engine.Object, tmpl engine.Template) (engine.Object, bool) {
	want := tmpl.(*Template)
	for o := obj.(*Object); o != nil; o = o.proto {
		if o.tmpl == want {
			return o, true
		}
	}
	return nil, false
}

func (i *Instance) SetChainInterceptor(fn func(engine.Deferred) engine.Deferred) {
	i.mu.Lock()
	i.interceptor = fn
	i.mu.Unlock()
}

func (i *Instance) SetCurrentTag(tag any) {
	i.mu.Lock()
	i.currentTag = tag
	i.mu.Unlock()
}

func (i *Instance) CurrentTag() any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentTag
}

func (i *Instance) AdjustExternalMemory(delta int64) {
	total := i.external.Add(delta)
	if limit := i.params.HeapLimit; limit > 0 && total > int64(limit) {
		if cb := i.params.OnOutOfMemory; cb != nil {
			cb("enginetest: external memory", fmt.Sprintf("%d bytes exceeds heap limit of %d", total, limit))
		}
		panic(fmt.Sprintf("enginetest: out of memory (%d > %d)", total, limit))
	}
}

func (i *Instance) ExternalMemory() int64 {
	return i.external.Load()
}

func (i *Instance) TerminateExecution() {
	i.terminated.Store(true)
}

// Terminated reports whether a termination signal has been raised.
func (i *Instance) Terminated() bool {
	return i.terminated.Load()
}

func (i *Instance) PumpMicrotasks() bool {
	ran := false
	for {
		if i.terminated.Load() {
			// Best-effort abort: drop the remaining backlog.
			i.mu.Lock()
			i.microtasks = nil
			i.mu.Unlock()
			return ran
		}
		i.mu.Lock()
		if len(i.microtasks) == 0 {
			i.mu.Unlock()
			return ran
		}
		task := i.microtasks[0]
		i.microtasks = i.microtasks[1:]
		i.mu.Unlock()
		task()
		ran = true
	}
}

func (i *Instance) SetCodeEventHandler(fn func(engine.CodeEvent)) {
	i.mu.Lock()
	i.codeHandler = fn
	i.mu.Unlock()
}

// EmitCodeEvent delivers a synthetic generated-code event to the registered
// handler, standing in for the engine's JIT event stream.
func (i *Instance) EmitCodeEvent(ev engine.CodeEvent) {
	i.mu.Lock()
	handler := i.codeHandler
	i.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// CollectGarbage runs a mark-and-sweep pass. Roots are context globals and
// objects with a non-zero strong reference count. Internal fields, property
// maps, and prototype links are traced; values held by deferred results are
// not.
func (i *Instance) CollectGarbage() {
	i.mu.Lock()
	defer i.mu.Unlock()

	marked := make(map[*Object]bool)
	var visit func(v any)
	visit = func(v any) {
		o, ok := v.(*Object)
		if !ok || o == nil || marked[o] {
			return
		}
		marked[o] = true
		for _, f := range o.fields {
			visit(f)
		}
		for _, p := range o.props {
			visit(p)
		}
		if o.proto != nil {
			visit(o.proto)
		}
	}

	for _, ctx := range i.contexts {
		visit(ctx.global)
	}
	for o := range i.objects {
		if o.strong > 0 {
			visit(o)
		}
	}

	for o := range i.objects {
		if !marked[o] {
			o.collected = true
			o.fields = nil
			o.props = nil
			o.proto = nil
			delete(i.objects, o)
		}
	}
}

func (i *Instance) Dispose() error {
	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return errors.Disposed(errors.PhaseTeardown, "engine instance")
	}
	i.disposed = true
	i.contexts = nil
	i.objects = nil
	i.microtasks = nil
	i.mu.Unlock()
	i.eng.release()
	return nil
}

func (i *Instance) schedule(task func()) {
	i.mu.Lock()
	i.microtasks = append(i.microtasks, task)
	i.mu.Unlock()
}
