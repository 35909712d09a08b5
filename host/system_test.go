package host

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/script-host/enginetest"
	"github.com/wippyai/script-host/errors"
)

// newTestSystem creates a system backed by the reference engine and tears it
// down at test end.
func newTestSystem(t *testing.T, cfg SystemConfig) *System {
	t.Helper()
	sys, err := NewSystem(enginetest.New(), cfg)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}
	t.Cleanup(func() {
		if err := sys.Close(); err != nil && !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTeardown, Kind: errors.KindDisposed}) {
			t.Errorf("System close failed: %v", err)
		}
	})
	return sys
}

// newTestInstance creates an instance that is disposed at test end.
func newTestInstance(t *testing.T, sys *System, opts InstanceOptions) *Instance {
	t.Helper()
	inst, err := sys.NewInstance(opts)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	t.Cleanup(func() {
		if !inst.disposed.Load() {
			if err := inst.Dispose(); err != nil {
				t.Errorf("Instance dispose failed: %v", err)
			}
		}
	})
	return inst
}

func TestSystem_Singleton(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{BackgroundThreads: 2})

	if _, err := NewSystem(enginetest.New(), SystemConfig{}); err == nil {
		t.Fatal("Expected second system construction to fail")
	} else if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSetup, Kind: errors.KindDuplicate}) {
		t.Fatalf("Expected duplicate error, got %v", err)
	}

	if err := sys.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The process slot is free again.
	sys2, err := NewSystem(enginetest.New(), SystemConfig{})
	if err != nil {
		t.Fatalf("Expected construction after close to succeed, got %v", err)
	}
	if err := sys2.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSystem_FlagValidation(t *testing.T) {
	sys, err := NewSystem(enginetest.New(), SystemConfig{Flags: []string{"expose-gc"}})
	if err != nil {
		t.Fatalf("Expected recognized flag to pass, got %v", err)
	}
	if err := sys.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err = NewSystem(enginetest.New(), SystemConfig{Flags: []string{"definitely-not-a-flag"}})
	if err == nil {
		t.Fatal("Expected unrecognized flag to fail")
	}
	var herr *errors.Error
	if !stderrors.As(err, &herr) || herr.Kind != errors.KindInvalidFlag {
		t.Fatalf("Expected invalid flag error, got %v", err)
	}
}

func TestSystem_CloseWithLiveInstances(t *testing.T) {
	sys := newTestSystem(t, SystemConfig{})
	inst := newTestInstance(t, sys, InstanceOptions{})

	err := sys.Close()
	if err == nil {
		t.Fatal("Expected close to fail with a live instance")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTeardown, Kind: errors.KindLiveInstances}) {
		t.Fatalf("Expected live instances error, got %v", err)
	}

	if err := inst.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	// Cleanup closes the system; instances are gone now so it must succeed.
}

func TestSystem_NewInstanceAfterClose(t *testing.T) {
	sys, _ := NewSystem(enginetest.New(), SystemConfig{})
	if err := sys.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := sys.NewInstance(InstanceOptions{}); err == nil {
		t.Fatal("Expected instance creation on a closed system to fail")
	}
}
