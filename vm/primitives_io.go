package vm

// I/O primitives: wall clock, millisecond clock, and the display/input
// seams wired through vm.HAL, per spec.md §4.8 and §6.
//
// displayString (no numbered primitive in the blue book: printString and
// displayString are ordinary Smalltalk methods built on top of at:/do:,
// never primitives) is deliberately not given a slot here.
const (
	PrimMillisecondClock = 135
	PrimSignalAtTick     = 136
	PrimBeDisplay        = 140
	PrimInputSemaphore   = 142
	PrimMousePoint       = 143
	PrimCopyBits         = 144
)

// pendingTimer is one Delay class>>signal:atMilliseconds: registration:
// primitive 136 doesn't block, it just remembers to signal sem once the
// clock passes atTick. checkTimers (called by Step once every
// lowSpaceCheckInterval bytecodes) does the actual firing.
type pendingTimer struct {
	atTick int64
	sem    Oop
}

func init() {
	registerPrimitive(PrimMillisecondClock, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Clock == nil {
			return 0, false
		}
		ms := vm.HAL.Clock.MillisecondClock() & int64(MaxSmallInteger)
		return SmallInteger(int(ms)), true
	})

	registerPrimitive(PrimMousePoint, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Input == nil {
			return 0, false
		}
		x, y := vm.HAL.Input.MousePosition()
		point, err := vm.allocatePoint(x, y)
		if err != nil {
			return 0, false
		}
		return point, true
	})

	registerPrimitive(PrimCopyBits, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		return vm.bitBltCopyBits(receiver, args)
	})

	registerPrimitive(PrimSignalAtTick, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() || vm.Mem.ClassBits(receiver) != ClassSemaphorePointer {
			return 0, false
		}
		vm.pendingTimers = append(vm.pendingTimers, pendingTimer{
			atTick: int64(args[0].IntegerValue()),
			sem:    receiver,
		})
		return receiver, true
	})

	registerPrimitive(PrimBeDisplay, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Display == nil || vm.Mem.ClassBits(receiver) != ClassFormPointer {
			return 0, false
		}
		vm.displayForm = receiver
		return receiver, true
	})

	registerPrimitive(PrimInputSemaphore, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		// Reserved special-oop entries (nil among them) never hold an
		// allocated chunk, so their class bits cannot be read.
		if len(args) != 1 || args[0] < Oop(2*(LastSpecialOop+1)) || vm.Mem.ClassBits(args[0]) != ClassSemaphorePointer {
			return 0, false
		}
		vm.inputSemaphore = args[0]
		return receiver, true
	})
}

// checkTimers fires every pendingTimer whose target tick has passed and
// polls HAL.Input for queued events, signaling inputSemaphore once per
// call that finds an event — both are periodic checks made by Step every
// lowSpaceCheckInterval bytecodes rather than interrupts, since the
// interpreter has exactly one thread of control.
func (vm *Interpreter) checkTimers() {
	if vm.HAL != nil && vm.HAL.Clock != nil && len(vm.pendingTimers) > 0 {
		now := vm.HAL.Clock.MillisecondClock()
		remaining := vm.pendingTimers[:0]
		for _, t := range vm.pendingTimers {
			if now >= t.atTick {
				vm.semaphoreSignal(t.sem)
			} else {
				remaining = append(remaining, t)
			}
		}
		vm.pendingTimers = remaining
	}
	if vm.HAL != nil && vm.HAL.Input != nil && vm.inputSemaphore != NilPointer && vm.inputSemaphore != 0 {
		if _, ok := vm.HAL.Input.PollEvent(); ok {
			vm.semaphoreSignal(vm.inputSemaphore)
		}
	}
}

const (
	pointXIndex = 0
	pointYIndex = 1
)

func (vm *Interpreter) allocatePoint(x, y int) (Oop, error) {
	if !FitsSmallInteger(x) || !FitsSmallInteger(y) {
		return 0, errOutOfRange
	}
	p, err := vm.allocateOrCollect(headerSize+2, ClassPointPointer, true)
	if err != nil {
		return 0, err
	}
	vm.Mem.SetFetchPointer(p, pointXIndex, SmallInteger(x))
	vm.Mem.SetFetchPointer(p, pointYIndex, SmallInteger(y))
	return p, nil
}
