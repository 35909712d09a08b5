package host

import (
	"sync"
	"testing"

	"github.com/wippyai/script-host/enginetest"
)

func externalMemory(t *testing.T, inst *Instance) int64 {
	t.Helper()
	return inst.eng.(*enginetest.Instance).ExternalMemory()
}

func TestMemory_ImmediateUnderLock(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})
	inst := newTestInstance(t, sys, InstanceOptions{})
	target := inst.MemoryTarget()

	err := inst.RunLocked(func(*Lock) error {
		m := target.Adjust(4096)
		if got := externalMemory(t, inst); got != 4096 {
			t.Fatalf("Expected immediate application, engine sees %d", got)
		}
		m.Release()
		if got := externalMemory(t, inst); got != 0 {
			t.Fatalf("Expected release to return memory, engine sees %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunLocked failed: %v", err)
	}
}

func TestMemory_OffLockDeltasBatch(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})
	inst := newTestInstance(t, sys, InstanceOptions{})
	target := inst.MemoryTarget()

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := target.Adjust(1000)
			m.Adjust(-500)
		}()
	}
	wg.Wait()

	if got := externalMemory(t, inst); got != 0 {
		t.Fatalf("Off-lock deltas must not reach the engine early, saw %d", got)
	}

	err := inst.RunLocked(func(*Lock) error {
		if got := externalMemory(t, inst); got != 8*500 {
			t.Fatalf("Expected batched delta of %d at acquisition, got %d", 8*500, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunLocked failed: %v", err)
	}
}

func TestMemoryAdjustment_SetAndRelease(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})
	inst := newTestInstance(t, sys, InstanceOptions{})
	target := inst.MemoryTarget()

	err := inst.RunLocked(func(*Lock) error {
		m := target.Adjust(100)
		m.Set(40)
		m.Adjust(10)
		if m.Amount() != 50 {
			t.Fatalf("Expected tracked amount 50, got %d", m.Amount())
		}
		if got := externalMemory(t, inst); got != 50 {
			t.Fatalf("Expected engine total 50, got %d", got)
		}

		m.Release()
		m.Release() // idempotent
		if m.Amount() != 0 {
			t.Fatalf("Expected released amount 0, got %d", m.Amount())
		}
		if got := externalMemory(t, inst); got != 0 {
			t.Fatalf("Expected engine total 0 after release, got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunLocked failed: %v", err)
	}
}

func TestMemory_TargetOutlivesInstance(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})
	inst := newTestInstance(t, sys, InstanceOptions{})
	target := inst.MemoryTarget()

	m := target.Adjust(100)
	if err := inst.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	if target.Alive() {
		t.Fatal("Expected target to be dead after dispose")
	}
	// Adjustments against a dead target are silently dropped.
	m.Adjust(1 << 30)
	m.Release()
}

func TestMemory_HeapLimitReportsFatal(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})

	var fatal string
	inst := newTestInstance(t, sys, InstanceOptions{
		HeapLimit: 1024,
		OnFatal:   func(_, message string) { fatal = message },
	})
	target := inst.MemoryTarget()

	err := inst.RunLocked(func(*Lock) error {
		defer func() {
			if recover() == nil {
				t.Error("Expected exceeding the heap limit to abort")
			}
		}()
		target.Adjust(2048)
		return nil
	})
	if err != nil {
		t.Fatalf("RunLocked failed: %v", err)
	}
	if fatal == "" {
		t.Fatal("Expected the out-of-memory callback to fire first")
	}
}
