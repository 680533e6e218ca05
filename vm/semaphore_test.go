package vm

import "testing"

func TestSemaphoreWaitConsumesExcessSignalWithoutBlocking(t *testing.T) {
	vm := newTestInterpreter(t)
	p := newRunnableProcess(t, vm, 4)
	vm.Scheduler.Resume(p)
	vm.Scheduler.scheduleNext(vm)

	sem, err := vm.NewSemaphore(1)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	activeBefore := vm.Scheduler.active
	vm.semaphoreWait(sem)

	if vm.excessSignals(sem) != 0 {
		t.Errorf("excessSignals = %d, want consumed to 0", vm.excessSignals(sem))
	}
	if vm.Scheduler.active != activeBefore {
		t.Error("a non-blocking wait must not switch the active process")
	}
	if got := vm.Ctx.Top(vm.activeContext); got != sem {
		t.Error("wait should push the semaphore itself as its result")
	}
}

func TestSemaphoreWaitBlocksAndSchedulesNext(t *testing.T) {
	vm := newTestInterpreter(t)
	waiter := newRunnableProcess(t, vm, 4)
	other := newRunnableProcess(t, vm, 4)
	vm.Scheduler.Resume(waiter)
	vm.Scheduler.Resume(other)
	vm.Scheduler.scheduleNext(vm) // waiter becomes active

	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.semaphoreWait(sem)

	if vm.Scheduler.active != other {
		t.Error("a blocking wait should schedule the next runnable process")
	}
	if len(vm.Scheduler.waiters[sem]) != 1 || vm.Scheduler.waiters[sem][0] != waiter {
		t.Error("the blocked process should be recorded on the semaphore's wait list")
	}
}

func TestSemaphoreSignalWakesLongestWaiter(t *testing.T) {
	vm := newTestInterpreter(t)
	waiter1 := newRunnableProcess(t, vm, 3)
	waiter2 := newRunnableProcess(t, vm, 3)
	runner := newRunnableProcess(t, vm, 3)

	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.Scheduler.Resume(waiter1)
	vm.Scheduler.scheduleNext(vm)
	vm.semaphoreWait(sem) // waiter1 blocks
	vm.Scheduler.Resume(waiter2)
	vm.Scheduler.scheduleNext(vm)
	vm.semaphoreWait(sem) // waiter2 blocks too
	vm.Scheduler.Resume(runner)
	vm.Scheduler.scheduleNext(vm) // runner active

	vm.semaphoreSignal(sem)

	if len(vm.Scheduler.waiters[sem]) != 1 || vm.Scheduler.waiters[sem][0] != waiter2 {
		t.Error("signal should wake waiter1 (FIFO), leaving waiter2 still blocked")
	}
	found := false
	for p := minPriority; p <= maxPriority; p++ {
		for _, q := range vm.Scheduler.runQueues[p] {
			if q == waiter1 {
				found = true
			}
		}
	}
	if !found {
		t.Error("woken process should be enqueued as runnable")
	}
}

func TestSemaphoreSignalBanksExcessWhenNoWaiters(t *testing.T) {
	vm := newTestInterpreter(t)
	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.semaphoreSignal(sem)
	if got := vm.excessSignals(sem); got != 1 {
		t.Errorf("excessSignals = %d, want 1", got)
	}
}

func TestSemaphoreSignalPreemptsForHigherPriorityWaiter(t *testing.T) {
	vm := newTestInterpreter(t)
	lowPriorityActive := newRunnableProcess(t, vm, 2)
	highPriorityWaiter := newRunnableProcess(t, vm, 8)

	sem, err := vm.NewSemaphore(0)
	if err != nil {
		t.Fatalf("NewSemaphore failed: %v", err)
	}
	vm.Scheduler.Resume(highPriorityWaiter)
	vm.Scheduler.scheduleNext(vm)
	vm.semaphoreWait(sem) // high-priority process blocks, nothing else runnable

	vm.Scheduler.Resume(lowPriorityActive)
	vm.Scheduler.scheduleNext(vm) // low-priority process becomes active

	vm.semaphoreSignal(sem)

	if vm.Scheduler.active != highPriorityWaiter {
		t.Error("signal should preempt the lower-priority active process immediately")
	}
	found := false
	for _, q := range vm.Scheduler.runQueues[2] {
		if q == lowPriorityActive {
			found = true
		}
	}
	if !found {
		t.Error("the preempted process must be re-enqueued, not dropped")
	}
}
