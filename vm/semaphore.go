package vm

// Semaphore objects hold a single SmallInteger field, excessSignals, per
// spec.md §4.9: a positive count means that many signal:s arrived with no
// one waiting; a process that waits: while the count is zero blocks and
// joins the scheduler's FIFO for that semaphore instead.
const semaphoreExcessSignalsIndex = 0

// NewSemaphore allocates a Semaphore with excessSignals initialized to n
// (n is usually 0; SharedQueue and friends sometimes want a head start).
func (vm *Interpreter) NewSemaphore(n int) (Oop, error) {
	sem, err := vm.allocateOrCollect(headerSize+1, ClassSemaphorePointer, true)
	if err != nil {
		return 0, err
	}
	vm.Mem.SetFetchPointer(sem, semaphoreExcessSignalsIndex, SmallInteger(n))
	return sem, nil
}

func (vm *Interpreter) excessSignals(sem Oop) int {
	return vm.Mem.FetchPointer(sem, semaphoreExcessSignalsIndex).IntegerValue()
}

func (vm *Interpreter) setExcessSignals(sem Oop, n int) {
	vm.Mem.SetFetchPointer(sem, semaphoreExcessSignalsIndex, SmallInteger(n))
}

// Wait implements Semaphore>>wait, primitive 86: consume one excess
// signal if available, otherwise suspend the active process onto this
// semaphore's wait list and schedule whatever else is runnable. The
// result (sem itself, by convention) is pushed onto the waiting context
// before any switch happens, so it's already sitting on the stack
// whenever that process eventually resumes — the interpreter never has
// to remember to deliver a result across an arbitrarily long suspension.
func (vm *Interpreter) semaphoreWait(sem Oop) {
	waiting := vm.activeContext
	vm.Ctx.Push(waiting, sem)
	if n := vm.excessSignals(sem); n > 0 {
		vm.setExcessSignals(sem, n-1)
		return
	}
	active := vm.Scheduler.active
	vm.Mem.SetFetchPointer(active, processMyListIndex, sem)
	vm.Scheduler.suspendActive(vm)
	vm.Scheduler.waiters[sem] = append(vm.Scheduler.waiters[sem], active)
	vm.Scheduler.scheduleNext(vm)
}

// Signal implements Semaphore>>signal, primitive 87: wake the
// longest-waiting blocked process if there is one, otherwise bank an
// excess signal for a future wait: to consume. Waking a process that
// outranks the signaling one preempts immediately, matching the blue
// book's scheduling rule that a higher-priority process always runs as
// soon as it becomes runnable.
func (vm *Interpreter) semaphoreSignal(sem Oop) {
	waiters := vm.Scheduler.waiters[sem]
	if len(waiters) == 0 {
		vm.setExcessSignals(sem, vm.excessSignals(sem)+1)
		return
	}
	woken := waiters[0]
	vm.Scheduler.waiters[sem] = waiters[1:]
	vm.Mem.SetFetchPointer(woken, processMyListIndex, NilPointer)
	vm.Scheduler.Resume(woken)
	if vm.Scheduler.priorityOf(woken) > vm.Scheduler.priorityOf(vm.Scheduler.active) {
		preempted := vm.Scheduler.active
		vm.Scheduler.suspendActive(vm)
		vm.Scheduler.Resume(preempted)
		vm.Scheduler.scheduleNext(vm)
	}
}
