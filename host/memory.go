package host

import (
	"sync/atomic"
)

// MemoryTarget lets code running outside the execution lock report changes
// in externally-held memory attributed to an instance. It never touches
// engine-owned memory itself: deltas recorded off-lock accumulate into a
// pending counter applied, as one batched update, at the next lock
// acquisition.
//
// The target is only weakly linked back to its instance. Adjustments may
// outlive the instance; once it is disposed, pending and future deltas are
// silently dropped.
type MemoryTarget struct {
	inst    *Instance
	alive   atomic.Bool
	pending atomic.Int64
}

func newMemoryTarget(i *Instance) *MemoryTarget {
	t := &MemoryTarget{inst: i}
	t.alive.Store(true)
	return t
}

// Alive reports whether the owning instance still accepts adjustments.
func (t *MemoryTarget) Alive() bool {
	return t.alive.Load()
}

// Adjust records delta bytes of externally-held memory and returns the
// adjustment tracking it. Safe to call from any goroutine.
func (t *MemoryTarget) Adjust(delta int64) *MemoryAdjustment {
	m := &MemoryAdjustment{target: t}
	m.Set(delta)
	return m
}

func (t *MemoryTarget) apply(diff int64) {
	if diff == 0 || !t.alive.Load() {
		return
	}
	if t.inst.owner.Load() == currentGoroutine() {
		t.inst.eng.AdjustExternalMemory(diff)
		return
	}
	t.pending.Add(diff)
}

// applyPending flushes the accumulated off-lock deltas as one engine update.
// Execution lock held.
func (t *MemoryTarget) applyPending() {
	if d := t.pending.Swap(0); d != 0 {
		t.inst.eng.AdjustExternalMemory(d)
	}
}

// kill detaches the target from the instance. Any delta still pending, or
// recorded later, is dropped.
func (t *MemoryTarget) kill() {
	t.alive.Store(false)
	t.pending.Store(0)
}

// MemoryAdjustment tracks one externally-attributed allocation. Create it
// when native code allocates memory logically owned by the guest, Set or
// Adjust it as the allocation resizes, and Release it (idempotent) when the
// allocation dies. Not safe for concurrent use; an adjustment has one owner.
type MemoryAdjustment struct {
	target *MemoryTarget
	amount int64
}

// Amount returns the bytes currently accounted by this adjustment.
func (m *MemoryAdjustment) Amount() int64 {
	return m.amount
}

// Set retargets the adjustment to account for amount bytes total.
func (m *MemoryAdjustment) Set(amount int64) {
	diff := amount - m.amount
	m.amount = amount
	m.target.apply(diff)
}

// Adjust shifts the accounted amount by delta.
func (m *MemoryAdjustment) Adjust(delta int64) {
	m.Set(m.amount + delta)
}

// Release returns the accounted memory.
func (m *MemoryAdjustment) Release() {
	m.Set(0)
}
