package vm

// System primitives: explicit garbage collection, free-space query, and
// the interpreter halt primitive debuggers use to drop into a nested
// read-eval loop, per spec.md §4.8's system family.
const (
	PrimGarbageCollect = 130
	PrimFreeMemory     = 131
	PrimQuit           = 132
	PrimExitToDebugger = 133
)

func init() {
	registerPrimitive(PrimGarbageCollect, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		reclaimed := vm.GC.Collect(vm)
		if !FitsSmallInteger(reclaimed) {
			reclaimed = MaxSmallInteger
		}
		return SmallInteger(reclaimed), true
	})

	registerPrimitive(PrimFreeMemory, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		free := vm.Alloc.freeWordsEstimate()
		if !FitsSmallInteger(free) {
			free = MaxSmallInteger
		}
		return SmallInteger(free), true
	})

	registerPrimitive(PrimQuit, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		vm.Halted = true
		return receiver, true
	})

	registerPrimitive(PrimExitToDebugger, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL != nil && vm.HAL.Errors != nil {
			vm.HAL.Errors.ReportError(newVMError(KindInternal, "vm: image requested the debugger"), vm.activeContext)
		}
		return receiver, true
	})
}
