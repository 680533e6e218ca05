package hostsim

import (
	"sync"

	"github.com/google/uuid"

	"github.com/clarking/Smalltalk80/vm"
)

// ProcessTags assigns a stable UUID to every Process oop the debugger
// has seen, so a debug client can refer to "process 3f29..." across a
// sequence of debug/frame calls even though the process's underlying oop
// could in principle move if a future become: primitive runs against it.
type ProcessTags struct {
	mu   sync.Mutex
	tags map[vm.Oop]uuid.UUID
}

// NewProcessTags returns an empty tag registry.
func NewProcessTags() *ProcessTags {
	return &ProcessTags{tags: make(map[vm.Oop]uuid.UUID)}
}

// TagFor returns the UUID for process, minting one the first time it's
// seen.
func (t *ProcessTags) TagFor(process vm.Oop) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.tags[process]; ok {
		return id
	}
	id := uuid.New()
	t.tags[process] = id
	return id
}
