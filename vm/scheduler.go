package vm

// Scheduler implements the blue book's cooperative, priority-ordered
// process scheduler, per spec.md §4.9 and §5. This replaces the teacher's
// semaphore.go (chazu-maggie), which backs Smalltalk semaphores with real
// Go channels and lets the Go runtime's own preemptive scheduler do the
// work; here there is exactly one logical thread of control, and
// "switching processes" means nothing more than changing which context
// the interpreter's fetch-decode-execute loop is stepping.
const (
	processSuspendedContextIndex = 0
	processPriorityIndex         = 1
	processMyListIndex           = 2 // the Semaphore/condition a waiting process names, for inspection only

	minPriority = 1
	maxPriority = 8
)

// Scheduler owns the per-priority run queues and the active process
// pointer. Every Process oop it manages stays registered in
// allProcesses for the lifetime of the image so the GC can always find a
// blocked process's stack even though it isn't in any run queue.
type Scheduler struct {
	mem  *WordMemory
	refs *RefCounter

	runQueues    [maxPriority + 1][]Oop
	waiters      map[Oop][]Oop // semaphore oop -> FIFO of blocked process oops
	active       Oop
	allProcesses []Oop
}

// NewScheduler creates an empty scheduler; bootstrap.go registers the
// initial process once the image's first context exists.
func NewScheduler(mem *WordMemory, refs *RefCounter) *Scheduler {
	return &Scheduler{mem: mem, refs: refs, waiters: make(map[Oop][]Oop)}
}

// NewProcess allocates a Process object suspended at initialContext with
// the given priority (clamped to [minPriority, maxPriority] per spec.md
// §4.9's fixed priority band), and registers it for GC rooting.
func (s *Scheduler) NewProcess(alloc *Allocator, initialContext Oop, priority int) (Oop, error) {
	if priority < minPriority {
		priority = minPriority
	}
	if priority > maxPriority {
		priority = maxPriority
	}
	p, err := alloc.AllocateChunk(alloc.currentSegment, headerSize+3, ClassProcessPointer, true)
	if err != nil {
		return 0, err
	}
	s.refs.StorePointer(p, processSuspendedContextIndex, initialContext)
	s.mem.SetFetchPointer(p, processPriorityIndex, SmallInteger(priority))
	s.mem.SetFetchPointer(p, processMyListIndex, NilPointer)
	s.allProcesses = append(s.allProcesses, p)
	return p, nil
}

func (s *Scheduler) priorityOf(process Oop) int {
	return s.mem.FetchPointer(process, processPriorityIndex).IntegerValue()
}

func (s *Scheduler) suspendedContext(process Oop) Oop {
	return s.mem.FetchPointer(process, processSuspendedContextIndex)
}

// Resume makes process runnable by enqueueing it at the tail of its
// priority's run queue, per spec.md §4.9's round-robin-within-priority
// rule. If process outranks whatever is currently active, the caller
// (Wait/Signal/bootstrap) is expected to follow up with scheduleNext so
// the switch actually happens on the next Step.
func (s *Scheduler) Resume(process Oop) {
	p := s.priorityOf(process)
	s.runQueues[p] = append(s.runQueues[p], process)
}

// suspendActive pulls the active process out of circulation entirely
// (neither running nor enqueued) until something resumes it explicitly.
// Its context chain is preserved exactly where it stopped.
func (s *Scheduler) suspendActive(vm *Interpreter) {
	if s.active != 0 {
		s.mem.SetFetchPointer(s.active, processSuspendedContextIndex, vm.activeContext)
	}
	s.active = 0
}

// scheduleNext picks the highest-priority nonempty run queue's head
// process and switches the interpreter to it. Returns false (and halts
// the interpreter) if every run queue is empty, per spec.md §4.9's "no
// runnable process" terminal condition.
func (s *Scheduler) scheduleNext(vm *Interpreter) bool {
	for p := maxPriority; p >= minPriority; p-- {
		q := s.runQueues[p]
		if len(q) == 0 {
			continue
		}
		next := q[0]
		s.runQueues[p] = q[1:]
		s.active = next
		vm.SwitchContext(s.suspendedContext(next))
		return true
	}
	vm.fail(errNoRunnableProcess)
	return false
}

// Roots returns every process's heap anchor — live or blocked. A
// suspended process's context is reached through the process's
// suspendedContext field when the collector marks it; the active one's
// context is already in vm.activeContext.
func (s *Scheduler) Roots() []Oop {
	return append([]Oop(nil), s.allProcesses...)
}
