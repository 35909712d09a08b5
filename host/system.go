package host

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/script-host/engine"
	"github.com/wippyai/script-host/errors"
)

// liveSystem enforces the one-System-per-process contract.
var liveSystem atomic.Bool

// SystemConfig configures the process-wide engine system.
type SystemConfig struct {
	// BackgroundThreads sizes the engine's background worker pool. Zero lets
	// the engine guess from the processor count, which inside a sandbox is
	// usually wrong; specify a size.
	BackgroundThreads int

	// Flags are engine feature flags, validated against the engine build's
	// recognized set. An unrecognized flag fails NewSystem.
	Flags []string

	// PumpHook, when set, replaces the default microtask pump used by
	// Lock.PumpMessageLoop.
	PumpHook func(engine.Instance) bool

	// ShutdownHook, when set, runs against each engine instance just before
	// it is disposed.
	ShutdownHook func(engine.Instance) error
}

// System owns the embedded engine for the whole process. Construct exactly
// one, before any Instance; destroy it last, after every Instance.
type System struct {
	eng       engine.Engine
	cfg       SystemConfig
	instances atomic.Int64
	closed    atomic.Bool
}

// NewSystem creates the process-wide engine system. Fails if one already
// exists, or if cfg.Flags contains a flag the engine build does not
// recognize.
func NewSystem(eng engine.Engine, cfg SystemConfig) (*System, error) {
	if eng == nil {
		return nil, errors.InvalidInput(errors.PhaseSetup, "engine must not be nil")
	}

	recognized := make(map[string]bool)
	for _, f := range eng.Flags() {
		recognized[f] = true
	}
	for _, f := range cfg.Flags {
		if !recognized[f] {
			return nil, errors.InvalidFlag(f)
		}
	}

	if !liveSystem.CompareAndSwap(false, true) {
		return nil, errors.Duplicate(errors.PhaseSetup, "engine system")
	}

	Logger().Info("engine system created",
		zap.Int("background_threads", cfg.BackgroundThreads),
		zap.Strings("flags", cfg.Flags))

	return &System{eng: eng, cfg: cfg}, nil
}

// BackgroundThreads returns the configured background worker pool size.
func (s *System) BackgroundThreads() int {
	return s.cfg.BackgroundThreads
}

// Close tears the system down. All instances must be disposed first.
func (s *System) Close() error {
	if s.closed.Swap(true) {
		return errors.Disposed(errors.PhaseTeardown, "engine system")
	}
	if n := s.instances.Load(); n != 0 {
		s.closed.Store(false)
		return errors.LiveInstances(int(n))
	}

	err := s.eng.Dispose()
	liveSystem.Store(false)
	Logger().Info("engine system closed")
	return err
}
