package enginetest

import (
	"github.com/wippyai/script-host/engine"
)

type reaction struct {
	onResolved func(any)
	onRejected func(error)
}

// Deferred is the reference promise primitive. Reactions fire on the
// instance's microtask pump.
type Deferred struct {
	inst      *Instance
	tag       any
	state     engine.DeferredState
	value     any
	err       error
	reactions []reaction
}

func (i *Instance) NewDeferred(ctx engine.Context) engine.Deferred {
	i.mu.Lock()
	defer i.mu.Unlock()
	return &Deferred{inst: i, tag: i.currentTag}
}

func (i *Instance) NewResolvedDeferred(ctx engine.Context, value any) engine.Deferred {
	i.mu.Lock()
	d := &Deferred{inst: i, tag: i.currentTag}
	d.state = engine.DeferredResolved
	d.value = value
	i.mu.Unlock()
	return d
}

func (d *Deferred) Tag() any {
	return d.tag
}

func (d *Deferred) Resolve(value any) {
	d.settle(engine.DeferredResolved, value, nil)
}

func (d *Deferred) Reject(err error) {
	d.settle(engine.DeferredRejected, nil, err)
}

func (d *Deferred) settle(state engine.DeferredState, value any, err error) {
	d.inst.mu.Lock()
	if d.state != engine.DeferredPending {
		d.inst.mu.Unlock()
		return
	}
	d.state = state
	d.value = value
	d.err = err
	pending := d.reactions
	d.reactions = nil
	d.inst.mu.Unlock()

	for _, r := range pending {
		d.scheduleReaction(r)
	}
}

// Then attaches a reaction, routing through the chain interceptor first. The
// interceptor runs outside the heap mutex since it may create new deferred
// values.
func (d *Deferred) Then(onResolved func(any), onRejected func(error)) {
	d.inst.mu.Lock()
	interceptor := d.inst.interceptor
	d.inst.mu.Unlock()

	target := d
	if interceptor != nil {
		if replaced := interceptor(d); replaced != nil {
			target = replaced.(*Deferred)
		}
	}
	target.attach(reaction{onResolved: onResolved, onRejected: onRejected})
}

func (d *Deferred) attach(r reaction) {
	d.inst.mu.Lock()
	if d.state == engine.DeferredPending {
		d.reactions = append(d.reactions, r)
		d.inst.mu.Unlock()
		return
	}
	d.inst.mu.Unlock()
	d.scheduleReaction(r)
}

func (d *Deferred) scheduleReaction(r reaction) {
	d.inst.schedule(func() {
		if d.state == engine.DeferredResolved {
			if r.onResolved != nil {
				r.onResolved(d.value)
			}
		} else if r.onRejected != nil {
			r.onRejected(d.err)
		}
	})
}

func (d *Deferred) State() engine.DeferredState {
	d.inst.mu.Lock()
	defer d.inst.mu.Unlock()
	return d.state
}

func (d *Deferred) Result() (any, error) {
	d.inst.mu.Lock()
	defer d.inst.mu.Unlock()
	return d.value, d.err
}
