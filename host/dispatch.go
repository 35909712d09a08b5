package host

import (
	"reflect"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

// Context embedder-data slot carrying the dispatch table pointer.
const dispatchTableSlot = 3

// Wrapper objects carry two internal fields: the record and the native
// back-pointer.
const (
	wrapperFieldCount = 2
	recordField       = 0
	nativeField       = 1
)

// DispatchTable maps native types to the templates and metadata used to wrap
// and unwrap them. An instance usually has exactly one; multi-flavor
// instances register one per guest-global variant and bind each context to
// its table.
type DispatchTable struct {
	inst   *Instance
	byType map[reflect.Type]*dispatchEntry
	byTmpl map[engine.Template]*dispatchEntry
}

type dispatchEntry struct {
	name string
	typ  reflect.Type
	tmpl engine.Template
}

// NewDispatchTable creates a table and registers it with the instance.
// Builder-phase only.
func NewDispatchTable(i *Instance) *DispatchTable {
	i.mustBeUnsealed("dispatch table")
	t := &DispatchTable{
		inst:   i,
		byType: make(map[reflect.Type]*dispatchEntry),
		byTmpl: make(map[engine.Template]*dispatchEntry),
	}
	i.tables = append(i.tables, t)
	i.hasExtraTables = len(i.tables) > 1
	return t
}

// RegisterType makes T wrappable through the table under the given
// guest-visible constructor name. T must be a pointer type embedding
// WrapperBase. Builder-phase only.
func RegisterType[T Wrappable](t *DispatchTable, name string) error {
	t.inst.mustBeUnsealed("type registration")

	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return errors.InvalidInput(errors.PhaseSetup, "registered type must be a pointer type")
	}
	if _, dup := t.byType[typ]; dup {
		return errors.New(errors.PhaseSetup, errors.KindDuplicate).
			Detail("type %q already registered", name).
			Build()
	}

	tmpl := t.inst.eng.NewObjectTemplate(wrapperFieldCount)
	e := &dispatchEntry{name: name, typ: typ, tmpl: tmpl}
	t.byType[typ] = e
	t.byTmpl[tmpl] = e
	return nil
}

func (t *DispatchTable) entryFor(typ reflect.Type) *dispatchEntry {
	return t.byType[typ]
}

// constructorName names obj's nearest registered constructor for diagnostic
// messages, or "Object" for plain objects.
func (t *DispatchTable) constructorName(obj engine.Object) string {
	for o := obj; o != nil; o = o.Prototype() {
		if e, ok := t.byTmpl[o.Template()]; ok {
			return e.name
		}
	}
	return "Object"
}

// NewContext creates a guest context bound to the instance's default
// dispatch table.
func (l *Lock) NewContext() engine.Context {
	l.check()
	if len(l.inst.tables) == 0 {
		panic(errors.InvalidInput(errors.PhaseSetup, "no dispatch table registered"))
	}
	return l.NewContextWithTable(l.inst.tables[0])
}

// NewContextWithTable creates a guest context bound to a specific dispatch
// table, for instances hosting multiple guest-global flavors.
func (l *Lock) NewContextWithTable(t *DispatchTable) engine.Context {
	l.check()
	ctx := l.inst.eng.NewContext()
	ctx.SetEmbedderData(dispatchTableSlot, t)
	return ctx
}

// tableForContext selects the dispatch table for a context. The single-table
// case skips the embedder-data read.
func (i *Instance) tableForContext(ctx engine.Context) *DispatchTable {
	if !i.hasExtraTables {
		return i.tables[0]
	}
	if t, ok := ctx.EmbedderData(dispatchTableSlot).(*DispatchTable); ok {
		return t
	}
	return i.tables[0]
}
