package engine

// FatalFunc receives an engine-internal fatal error. The engine aborts after
// the callback returns; the callback is the host's last chance to report the
// failure.
type FatalFunc func(location, message string)

// InstanceParams configures a new engine instance.
type InstanceParams struct {
	// HeapLimit caps the externally-attributed memory in bytes.
	// 0 means no limit.
	HeapLimit uint64

	OnFatalError  FatalFunc
	OnOutOfMemory FatalFunc
}

// Engine is the process-level entry point of an embedded engine build.
// A process uses exactly one Engine, owned by the host's System.
type Engine interface {
	// NewInstance creates an isolated sandbox with its own heap and collector.
	NewInstance(params InstanceParams) (Instance, error)

	// Flags returns the feature flags this engine build recognizes.
	Flags() []string

	// Dispose tears the engine down. All instances must be disposed first.
	Dispose() error
}

// Instance is one sandboxed engine instantiation. Not safe for concurrent
// use except where noted.
type Instance interface {
	// NewContext creates a guest global-object realm.
	NewContext() Context

	// NewObjectTemplate creates a constructor shape whose instances carry
	// internalFieldCount opaque embedder slots.
	NewObjectTemplate(internalFieldCount int) Template

	// NewObject instantiates tmpl in ctx.
	NewObject(ctx Context, tmpl Template) Object

	// FindInstance walks obj's prototype chain looking for an object created
	// from tmpl. This is the reverse-lookup primitive the host's unwrap path
	// relies on instead of a side table.
	FindInstance(obj Object, tmpl Template) (Object, bool)

	// NewDeferred creates a pending deferred value, stamped with the current
	// tag.
	NewDeferred(ctx Context) Deferred

	// NewResolvedDeferred creates an already-settled deferred value, stamped
	// with the current tag. This is how engine-internal machinery produces
	// settled values the embedder never constructs directly.
	NewResolvedDeferred(ctx Context, value any) Deferred

	// SetChainInterceptor installs the hook consulted on every reaction
	// attachment. Passing nil removes it.
	SetChainInterceptor(fn func(Deferred) Deferred)

	// SetCurrentTag sets the tag stamped onto subsequently created deferred
	// values. nil means untagged.
	SetCurrentTag(tag any)

	// CurrentTag returns the tag set by SetCurrentTag, or nil.
	CurrentTag() any

	// AdjustExternalMemory reports a change in externally-held memory
	// attributed to this instance. Safe to call from any goroutine.
	AdjustExternalMemory(delta int64)

	// ExternalMemory returns the current externally-attributed total.
	ExternalMemory() int64

	// TerminateExecution aborts any running guest code with an uncatchable
	// exception at the next safe point. Safe to call from any goroutine.
	TerminateExecution()

	// PumpMicrotasks runs queued reactions until the queue is empty or
	// execution is terminated. Reports whether any task ran.
	PumpMicrotasks() bool

	// SetCodeEventHandler registers the receiver for generated-code events.
	SetCodeEventHandler(fn func(CodeEvent))

	// CollectGarbage forces a full collection pass. Objects unreachable from
	// context globals and holding no strong references are reclaimed.
	CollectGarbage()

	// Dispose destroys the instance and its heap.
	Dispose() error
}

// Context is a guest execution realm. Embedder data slots let the host bind
// per-context state, such as its type dispatch table.
type Context interface {
	Global() Object
	SetEmbedderData(slot int, v any)
	EmbedderData(slot int) any
}

// Template is a constructor shape. Two objects share a template exactly when
// they were instantiated from the same template value.
type Template interface {
	InternalFieldCount() int
}

// Object is a handle into the guest heap.
type Object interface {
	SetInternalField(i int, v any)
	InternalField(i int) any

	// Template returns the template the object was created from, or nil for
	// plain objects.
	Template() Template

	SetPrototype(parent Object)
	Prototype() Object

	// Valid reports whether the handle still refers to a live object. A
	// collected handle is invalid; dereferencing one is a contract
	// violation.
	Valid() bool

	// Ref increments the engine-visible strong reference count. A non-zero
	// count keeps the object (and everything it holds) alive across
	// collection passes.
	Ref()

	// Unref decrements the strong reference count.
	Unref()
}

// DeferredState describes a deferred value's settlement.
type DeferredState uint8

const (
	DeferredPending DeferredState = iota
	DeferredResolved
	DeferredRejected
)

// Deferred is the engine's promise primitive.
type Deferred interface {
	// Tag returns the tag stamped at creation, or nil. Never reassigned.
	Tag() any

	Resolve(value any)
	Reject(err error)

	// Then attaches a reaction. The chain interceptor, if installed, runs
	// exactly once before attachment and chooses the deferred the reaction
	// actually attaches to. Reactions fire on the microtask pump.
	Then(onResolved func(any), onRejected func(error))

	State() DeferredState

	// Result returns the settled value or rejection error. Only meaningful
	// once State is not DeferredPending.
	Result() (any, error)
}

// CodeEventKind discriminates generated-code notifications.
type CodeEventKind uint8

const (
	CodeAdded CodeEventKind = iota
	CodeRemoved
)

// PositionMapping relates an instruction offset within a code block to an
// offset in the originating source.
type PositionMapping struct {
	InstructionOffset uint32
	SourceOffset      uint32
}

// CodeEvent describes one generated code block. Mapping is sorted by
// InstructionOffset.
type CodeEvent struct {
	Kind    CodeEventKind
	Address uintptr
	Size    int
	Name    string
	Mapping []PositionMapping
}
