package vm

import "github.com/pkg/errors"

// Interpreter is the fetch-decode-execute engine: one bytecode cycle at a
// time, operating entirely through the active context's stack and the
// shared WordMemory, per spec.md §4.5. It holds every subsystem the loop
// and its primitives need, the way the teacher's VM struct
// (vm/vm.go in chazu-maggie) holds the class/selector/symbol tables — but
// keyed on real heap oops throughout instead of Go pointers.
type Interpreter struct {
	Mem     *WordMemory
	Alloc   *Allocator
	Refs    *RefCounter
	GC      *GC
	Ctx     *ContextAccess
	Classes *ClassTable
	Symbols *SymbolTable
	Cache   *MethodCache

	Scheduler *Scheduler
	Config    *Config
	HAL       *HAL

	activeContext Oop // the MethodContext/BlockContext currently executing
	method        *CompiledMethod
	methodOop     Oop
	reader        *BytecodeReader

	// Send-in-progress registers, per spec.md §4.5's "state held outside
	// the heap but counted as roots during GC": set by activate() (and,
	// for messageSelector, by sendSelector/sendSuper before it) so a
	// collection triggered while building a fresh MethodContext can't
	// sweep out from under a send that hasn't installed its receiver/args
	// into a heap-visible frame yet.
	messageSelector Oop
	sendReceiver    Oop
	sendArgs        []Oop
	newMethod       Oop

	methodsByOop map[Oop]*CompiledMethod
	openFiles    map[Oop]FileHandle

	displayForm    Oop // the Form primitive 140 (beDisplayed) most recently installed
	inputSemaphore Oop // Semaphore primitive 142 wired to signal on every input event
	pendingTimers  []pendingTimer
	stepCount      uint64

	Halted   bool
	HaltedBy error
}

// NewInterpreter assembles an interpreter over a fresh WordMemory with the
// given config. Bootstrap (class hierarchy, special selectors, initial
// process) happens separately in bootstrap.go so tests can stand up a
// bare interpreter without pulling in the whole image.
func NewInterpreter(cfg *Config) *Interpreter {
	mem := NewWordMemory(cfg.RuntimeChecking)
	alloc := NewAllocator(mem)
	refs := NewRefCounter(mem, alloc)
	return &Interpreter{
		Mem:     mem,
		Alloc:   alloc,
		Refs:    refs,
		GC:      NewGC(mem, alloc, refs),
		Ctx:     NewContextAccess(mem, refs),
		Classes: NewClassTable(),
		Symbols: NewSymbolTable(mem, alloc, refs),
		Cache:   NewMethodCache(),
		Config:  cfg,

		methodsByOop: make(map[Oop]*CompiledMethod),
		openFiles:    make(map[Oop]FileHandle),
	}
}

// lookupCompiledMethod recovers the Go-side CompiledMethod descriptor for
// a method oop. Method bodies are immutable once installed (a recompile
// allocates a fresh oop rather than mutating one in place), so this map
// never needs invalidation beyond what Flush already triggers on the
// method cache.
func (vm *Interpreter) lookupCompiledMethod(oop Oop) *CompiledMethod {
	return vm.methodsByOop[oop]
}

// allocateMethod materializes m as a real heap byte object (so
// objectAt:/become: reflection and thisContext method: both see a
// genuine oop) and records the Go-side descriptor under it.
func (vm *Interpreter) allocateMethod(m *CompiledMethod) (Oop, error) {
	size := headerSize + 1 + len(m.Literals) + (len(m.Bytecodes)+1)/2
	oop, err := vm.allocateOrCollect(size, ClassCompiledMethodPointer, false)
	if err != nil {
		return 0, err
	}
	m.Oop = oop
	vm.methodsByOop[oop] = m
	return oop, nil
}

// GCRoots implements RootProvider: everything the interpreter is holding
// outside the refcounted graph. The scheduler contributes every process's
// context chain (not just the active one), since a suspended process's
// stack is just as live as the running one.
//
// Beyond activeContext and the scheduler, this also plays spec.md §4.4's
// "Prepare" step: registering every transient register the interpreter
// holds only as a Go-side value (messageSelector, the send's receiver and
// arguments, newMethod, the buffered async-signal semaphores, the
// installed display Form and input semaphore) plus every class's method
// dictionaries and the literal frame of every method they hold. None of
// that is reachable by mark()'s heap walk: a CompiledMethod's Literals
// slice is never written into the heap chunk allocateMethod reserves
// room for (the chunk holds only the raw bytecode body), so a method
// installed in a class's Dictionary and nothing else in the live call
// stack would otherwise have its selector Symbol and literal oops swept
// out from under it by the very next collection.
func (vm *Interpreter) GCRoots() []Oop {
	roots := []Oop{
		vm.activeContext,
		vm.messageSelector,
		vm.sendReceiver,
		vm.newMethod,
		vm.displayForm,
		vm.inputSemaphore,
	}
	roots = append(roots, vm.sendArgs...)
	for _, t := range vm.pendingTimers {
		roots = append(roots, t.sem)
	}
	if vm.Scheduler != nil {
		roots = append(roots, vm.Scheduler.Roots()...)
	}
	if vm.Classes != nil {
		for _, c := range vm.Classes.All() {
			roots = append(roots, c.Oop)
			if c.Dictionary != nil {
				roots = append(roots, c.Dictionary.Roots()...)
			}
			if c.ClassDict != nil {
				roots = append(roots, c.ClassDict.Roots()...)
			}
		}
	}
	return roots
}

// allocateOrCollect tries alloc, and on failure runs a GC pass before
// retrying exactly once, per spec.md §4.4's "allocation failure triggers
// collection" rule. A second failure is a genuine out-of-memory condition.
func (vm *Interpreter) allocateOrCollect(sizeWords int, class Oop, isPointers bool) (Oop, error) {
	oop, err := vm.Alloc.AllocateChunk(vm.Alloc.currentSegment, sizeWords, class, isPointers)
	if err == nil {
		return oop, nil
	}
	vm.GC.Collect(vm)
	oop, err = vm.Alloc.AllocateChunk(vm.Alloc.currentSegment, sizeWords, class, isPointers)
	if err != nil {
		return 0, errors.Wrap(err, "interp: heap exhausted after collection")
	}
	return oop, nil
}

// ActiveContext returns the context currently executing.
func (vm *Interpreter) ActiveContext() Oop { return vm.activeContext }

// SwitchContext makes ctx the active context and re-reads its method's
// bytecode body from the position ctx's ip field records, per spec.md
// §4.7's "resuming a suspended context reloads ip/sp from the heap"
// invariant — nothing about execution state survives outside the heap
// object itself.
func (vm *Interpreter) SwitchContext(ctx Oop) {
	vm.activeContext = ctx
	home := vm.Ctx.Home(ctx)
	vm.methodOop = vm.Mem.FetchPointer(home, ctxMethodIndex)
	vm.method = vm.lookupCompiledMethod(vm.methodOop)
	vm.reader = NewBytecodeReader(vm.method.Bytecodes)
	vm.reader.SetPC(vm.Ctx.IP(ctx))
}

// suspendIP persists the reader's current position back into the active
// context before a send or block creation might switch contexts out from
// under it.
func (vm *Interpreter) suspendIP() {
	if vm.activeContext != 0 {
		vm.Ctx.SetIP(vm.activeContext, vm.reader.PC())
	}
}

// Step executes exactly one bytecode in the active context. Returns false
// once the interpreter has halted (no active process left runnable, or a
// tier-3 error occurred), per spec.md §7.
func (vm *Interpreter) Step() bool {
	if vm.Halted {
		return false
	}
	vm.stepCount++
	if vm.stepCount%lowSpaceCheckInterval == 0 {
		vm.checkLowSpace()
		vm.checkTimers()
	}
	if vm.activeContext == 0 || vm.reader.AtEnd() {
		return vm.Scheduler.scheduleNext(vm)
	}
	opcode := vm.reader.NextByte()
	vm.dispatchBytecode(opcode)
	return !vm.Halted
}

// lowSpaceCheckInterval bounds how often Step pays for
// Allocator.freeWordsEstimate's free-list walk; per spec.md §4.4's
// low-space interrupt being advisory rather than exact, checking exactly
// once per bytecode would be needless overhead.
const lowSpaceCheckInterval = 4096

// checkLowSpace runs an unscheduled collection once free space drops
// below Config.LowSpaceWordThreshold, per SPEC_FULL.md's supplemented
// feature D.4 (the blue book's low-space user interrupt, reinterpreted
// here as a proactive collection since this port has no separate
// low-space semaphore wired into the image yet).
func (vm *Interpreter) checkLowSpace() {
	if vm.Config == nil || vm.Config.LowSpaceWordThreshold <= 0 {
		return
	}
	if vm.Alloc.freeWordsEstimate() < vm.Config.LowSpaceWordThreshold {
		vm.GC.Collect(vm)
	}
}

// Run executes bytecodes until the interpreter halts. The low-space and
// timer checks happen inside Step, once every lowSpaceCheckInterval
// bytecodes.
func (vm *Interpreter) Run() error {
	for !vm.Halted {
		if !vm.Step() {
			break
		}
	}
	return vm.HaltedBy
}

func (vm *Interpreter) fail(err error) {
	vm.Halted = true
	vm.HaltedBy = err
}
