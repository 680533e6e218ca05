package vm

import "testing"

func TestPrimMillisecondClockReadsHALClock(t *testing.T) {
	vm := newTestVMForPrimitives()
	vm.HAL = &HAL{Clock: &fakeClock{ms: 12345}}
	result, ok := vm.callPrimitive(PrimMillisecondClock, NilPointer, nil)
	if !ok || result.IntegerValue() != 12345 {
		t.Errorf("PrimMillisecondClock = (%v,%v), want (12345,true)", result, ok)
	}
}

func TestPrimMillisecondClockFailsWithoutClock(t *testing.T) {
	vm := newTestVMForPrimitives()
	if _, ok := vm.callPrimitive(PrimMillisecondClock, NilPointer, nil); ok {
		t.Error("PrimMillisecondClock should fail when HAL.Clock is nil")
	}
}

func TestPrimBeDisplayInstallsFormAndRejectsWrongClass(t *testing.T) {
	vm := newTestVMForPrimitives()
	vm.HAL = &HAL{Display: &fakeDisplay{}}

	formOop, err := vm.allocateOrCollect(headerSize, ClassFormPointer, true)
	if err != nil {
		t.Fatalf("allocateOrCollect failed: %v", err)
	}
	result, ok := vm.callPrimitive(PrimBeDisplay, formOop, nil)
	if !ok || result != formOop {
		t.Fatalf("PrimBeDisplay = (%v,%v), want (%v,true)", result, ok, formOop)
	}
	if vm.displayForm != formOop {
		t.Error("PrimBeDisplay should record the receiver as displayForm")
	}

	if _, ok := vm.callPrimitive(PrimBeDisplay, SmallInteger(1), nil); ok {
		t.Error("PrimBeDisplay should reject a non-Form receiver")
	}
}

func TestPrimInputSemaphoreValidatesArgClass(t *testing.T) {
	vm := newTestVMForPrimitives()
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	receiver := SmallInteger(1)
	result, ok := vm.callPrimitive(PrimInputSemaphore, receiver, []Oop{sem})
	if !ok || result != receiver {
		t.Fatalf("PrimInputSemaphore = (%v,%v), want (%v,true)", result, ok, receiver)
	}
	if vm.inputSemaphore != sem {
		t.Error("PrimInputSemaphore should record the argument as inputSemaphore")
	}

	if _, ok := vm.callPrimitive(PrimInputSemaphore, receiver, []Oop{NilPointer}); ok {
		t.Error("PrimInputSemaphore should reject a non-Semaphore argument")
	}
}

func TestPrimSignalAtTickRegistersPendingTimer(t *testing.T) {
	vm := newTestVMForPrimitives()
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	before := len(vm.pendingTimers)
	if _, ok := vm.callPrimitive(PrimSignalAtTick, sem, []Oop{SmallInteger(500)}); !ok {
		t.Fatal("PrimSignalAtTick should succeed for a Semaphore receiver and integer tick")
	}
	if len(vm.pendingTimers) != before+1 {
		t.Fatalf("pendingTimers grew by %d, want 1", len(vm.pendingTimers)-before)
	}
	if vm.pendingTimers[len(vm.pendingTimers)-1].atTick != 500 {
		t.Error("the registered timer should record the requested tick")
	}
}

func TestCheckTimersFiresDueTimersAndBanksExcessSignal(t *testing.T) {
	vm := newTestVMForPrimitives()
	vm.Scheduler = NewScheduler(vm.Mem, vm.Refs)
	clock := &fakeClock{ms: 100}
	vm.HAL = &HAL{Clock: clock}
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.pendingTimers = append(vm.pendingTimers, pendingTimer{atTick: 100, sem: sem})

	vm.checkTimers()

	if len(vm.pendingTimers) != 0 {
		t.Errorf("a due timer should be removed from pendingTimers, got %d remaining", len(vm.pendingTimers))
	}
	if got := vm.excessSignals(sem); got != 1 {
		t.Errorf("firing a timer with no waiters should bank an excess signal, got %d", got)
	}
}

func TestCheckTimersLeavesFutureTimersPending(t *testing.T) {
	vm := newTestVMForPrimitives()
	vm.Scheduler = NewScheduler(vm.Mem, vm.Refs)
	clock := &fakeClock{ms: 100}
	vm.HAL = &HAL{Clock: clock}
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.pendingTimers = append(vm.pendingTimers, pendingTimer{atTick: 9999, sem: sem})

	vm.checkTimers()

	if len(vm.pendingTimers) != 1 {
		t.Errorf("a not-yet-due timer should remain pending, got %d remaining", len(vm.pendingTimers))
	}
	if got := vm.excessSignals(sem); got != 0 {
		t.Errorf("a not-yet-due timer should not signal, excessSignals=%d", got)
	}
}

func TestCheckTimersSignalsInputSemaphoreOnQueuedEvent(t *testing.T) {
	vm := newTestVMForPrimitives()
	vm.Scheduler = NewScheduler(vm.Mem, vm.Refs)
	input := &fakeInput{events: []InputEvent{{Kind: EventKeyDown, Key: 65}}}
	vm.HAL = &HAL{Input: input}
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.inputSemaphore = sem

	vm.checkTimers()

	if got := vm.excessSignals(sem); got != 1 {
		t.Errorf("a queued input event should signal inputSemaphore once, excessSignals=%d", got)
	}
}

// fakeDisplay is the minimal Display HAL stub PrimBeDisplay needs to see
// a non-nil vm.HAL.Display; none of its methods are exercised by the
// tests that use it.
type fakeDisplay struct{}

func (fakeDisplay) Bounds() (int, int)                                { return 0, 0 }
func (fakeDisplay) SetPixels(x, y, width, height int, words []uint16) {}
func (fakeDisplay) MarkDirty(x, y, width, height int)                 {}
