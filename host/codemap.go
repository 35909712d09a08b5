package host

import (
	"sort"

	"github.com/wippyai/script-host/engine"
)

// codeBlock is one generated-code range, keyed by start address.
type codeBlock struct {
	addr    uintptr
	size    int
	name    string
	mapping []engine.PositionMapping
}

// CodeLocation is the source attribution for an instruction address, for
// profilers sampling guest execution.
type CodeLocation struct {
	Name         string
	SourceOffset uint32
}

// onCodeEvent receives the engine's generated-code stream. Events are
// delivered during guest execution, so the lock is held.
func (i *Instance) onCodeEvent(ev engine.CodeEvent) {
	switch ev.Kind {
	case engine.CodeAdded:
		i.codeMap.ReplaceOrInsert(codeBlock{
			addr:    ev.Address,
			size:    ev.Size,
			name:    ev.Name,
			mapping: ev.Mapping,
		})
	case engine.CodeRemoved:
		i.codeMap.Delete(codeBlock{addr: ev.Address})
	}
}

// LookupCode maps an instruction address to its code block name and nearest
// source offset.
func (l *Lock) LookupCode(addr uintptr) (CodeLocation, bool) {
	l.check()

	var found codeBlock
	ok := false
	l.inst.codeMap.DescendLessOrEqual(codeBlock{addr: addr}, func(b codeBlock) bool {
		found = b
		ok = true
		return false
	})
	if !ok || addr >= found.addr+uintptr(found.size) {
		return CodeLocation{}, false
	}

	loc := CodeLocation{Name: found.name}
	off := uint32(addr - found.addr)
	idx := sort.Search(len(found.mapping), func(k int) bool {
		return found.mapping[k].InstructionOffset > off
	}) - 1
	if idx >= 0 {
		loc.SourceOffset = found.mapping[idx].SourceOffset
	}
	return loc, true
}
