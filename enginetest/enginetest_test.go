package enginetest

import (
	"strings"
	"testing"

	"github.com/wippyai/script-host/engine"
)

func TestFindInstance_PrototypeChain(t *testing.T) {
	eng := New()
	inst, err := eng.NewInstance(engine.InstanceParams{})
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	ctx := inst.NewContext()

	base := inst.NewObjectTemplate(2)
	other := inst.NewObjectTemplate(2)

	parent := inst.NewObject(ctx, base)
	child := inst.NewObject(ctx, other)
	child.SetPrototype(parent)

	found, ok := inst.FindInstance(child, base)
	if !ok {
		t.Fatal("Expected to find base template in prototype chain")
	}
	if found != parent {
		t.Fatal("Expected the prototype object itself")
	}

	if _, ok := inst.FindInstance(parent, other); ok {
		t.Fatal("Expected miss for template not in chain")
	}
}

func TestCollectGarbage_Roots(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})
	ctx := inst.NewContext()
	tmpl := inst.NewObjectTemplate(1)

	reachable := inst.NewObject(ctx, tmpl).(*Object)
	ctx.Global().(*Object).Set("kept", reachable)

	pinned := inst.NewObject(ctx, tmpl).(*Object)
	pinned.Ref()

	loose := inst.NewObject(ctx, tmpl).(*Object)

	inst.CollectGarbage()

	if reachable.Collected() {
		t.Fatal("Globally reachable object must survive collection")
	}
	if pinned.Collected() {
		t.Fatal("Strongly referenced object must survive collection")
	}
	if !loose.Collected() {
		t.Fatal("Unreachable object must be collected")
	}

	pinned.Unref()
	inst.CollectGarbage()
	if !pinned.Collected() {
		t.Fatal("Object must be collected once its last strong ref is gone")
	}
}

func TestDeferred_ResolveThenPump(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})
	ctx := inst.NewContext()

	d := inst.NewDeferred(ctx)
	var got any
	d.Then(func(v any) { got = v }, nil)

	d.Resolve("done")
	if got != nil {
		t.Fatal("Reaction must not fire before the pump runs")
	}

	if !inst.PumpMicrotasks() {
		t.Fatal("Expected the pump to run a task")
	}
	if got != "done" {
		t.Fatalf("Expected resolution value, got %v", got)
	}
}

func TestDeferred_AttachAfterSettled(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})
	ctx := inst.NewContext()

	d := inst.NewResolvedDeferred(ctx, 42)
	if d.State() != engine.DeferredResolved {
		t.Fatal("Expected resolved state")
	}

	var got any
	d.Then(func(v any) { got = v }, nil)
	inst.PumpMicrotasks()
	if got != 42 {
		t.Fatalf("Expected 42, got %v", got)
	}
}

func TestDeferred_TagStamping(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})
	ctx := inst.NewContext()

	inst.SetCurrentTag("tenant-a")
	tagged := inst.NewDeferred(ctx)
	inst.SetCurrentTag(nil)
	untagged := inst.NewDeferred(ctx)

	if tagged.Tag() != "tenant-a" {
		t.Fatalf("Expected creation tag, got %v", tagged.Tag())
	}
	if untagged.Tag() != nil {
		t.Fatal("Expected nil tag outside a tag scope")
	}
}

func TestTerminate_DropsMicrotasks(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})
	ctx := inst.NewContext()

	d := inst.NewResolvedDeferred(ctx, 1)
	fired := false
	d.Then(func(any) { fired = true }, nil)

	inst.TerminateExecution()
	if inst.PumpMicrotasks() {
		t.Fatal("Expected no task to run after termination")
	}
	if fired {
		t.Fatal("Reaction must not fire after termination")
	}
	if !inst.(*Instance).Terminated() {
		t.Fatal("Expected terminated flag")
	}
}

func TestHeapLimit_FatalCallback(t *testing.T) {
	eng := New()
	var loc, msg string
	inst, _ := eng.NewInstance(engine.InstanceParams{
		HeapLimit: 1024,
		OnOutOfMemory: func(location, message string) {
			loc, msg = location, message
		},
	})

	defer func() {
		if recover() == nil {
			t.Fatal("Expected engine abort on heap limit")
		}
		if loc == "" || !strings.Contains(msg, "heap limit") {
			t.Fatalf("Expected OOM callback before abort, got %q %q", loc, msg)
		}
	}()
	inst.AdjustExternalMemory(4096)
}

func TestEngine_DisposeOrder(t *testing.T) {
	eng := New()
	inst, _ := eng.NewInstance(engine.InstanceParams{})

	if err := eng.Dispose(); err == nil {
		t.Fatal("Expected Dispose to fail with a live instance")
	}
	if err := inst.Dispose(); err != nil {
		t.Fatalf("Instance dispose failed: %v", err)
	}
	if err := eng.Dispose(); err != nil {
		t.Fatalf("Engine dispose failed: %v", err)
	}
}
