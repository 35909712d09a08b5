package enginetest

import (
	"github.com/wippyai/script-host/engine"
)

// Template is a constructor shape. Identity is pointer identity.
type Template struct {
	fields int
}

func (t *Template) InternalFieldCount() int {
	return t.fields
}

// Context is a guest realm with a plain global object.
type Context struct {
	inst     *Instance
	global   *Object
	embedder map[int]any
}

func (c *Context) Global() engine.Object {
	return c.global
}

func (c *Context) SetEmbedderData(slot int, v any) {
	c.embedder[slot] = v
}

func (c *Context) EmbedderData(slot int) any {
	return c.embedder[slot]
}

// Object is a heap handle. Internal field access panics once the object has
// been collected: a live native reference to a collected handle is exactly
// the bug the collector contract forbids, and tests should fail loudly on it.
type Object struct {
	inst      *Instance
	tmpl      *Template
	fields    []any
	props     map[string]any
	proto     *Object
	strong    int
	collected bool
}

func (o *Object) SetInternalField(i int, v any) {
	o.check()
	o.fields[i] = v
}

func (o *Object) InternalField(i int) any {
	o.check()
	return o.fields[i]
}

func (o *Object) Template() engine.Template {
	if o.tmpl == nil {
		return nil
	}
	return o.tmpl
}

func (o *Object) SetPrototype(parent engine.Object) {
	o.check()
	if parent == nil {
		o.proto = nil
		return
	}
	o.proto = parent.(*Object)
}

func (o *Object) Prototype() engine.Object {
	o.check()
	if o.proto == nil {
		return nil
	}
	return o.proto
}

func (o *Object) Ref() {
	o.check()
	o.inst.mu.Lock()
	o.strong++
	o.inst.mu.Unlock()
}

func (o *Object) Unref() {
	o.check()
	o.inst.mu.Lock()
	if o.strong == 0 {
		o.inst.mu.Unlock()
		panic("enginetest: Unref below zero")
	}
	o.strong--
	o.inst.mu.Unlock()
}

// Set stores a guest-visible property. Test-only affordance used to model
// guest reachability.
func (o *Object) Set(name string, v any) {
	o.check()
	if o.props == nil {
		o.props = make(map[string]any)
	}
	o.props[name] = v
}

// Get reads a guest-visible property.
func (o *Object) Get(name string) any {
	o.check()
	return o.props[name]
}

// Delete removes a guest-visible property.
func (o *Object) Delete(name string) {
	o.check()
	delete(o.props, name)
}

func (o *Object) Valid() bool {
	return !o.collected
}

// Collected reports whether the object was reclaimed by a collection pass.
func (o *Object) Collected() bool {
	return o.collected
}

// StrongRefs returns the engine-visible strong reference count.
func (o *Object) StrongRefs() int {
	o.inst.mu.Lock()
	defer o.inst.mu.Unlock()
	return o.strong
}

func (o *Object) check() {
	if o.collected {
		panic("enginetest: use of collected object")
	}
}
