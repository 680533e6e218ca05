package vm

// Control primitives: block creation/activation, semaphore wait/signal,
// perform:, and identity/equality, per spec.md §4.8. Blocks are created
// by the compiler emitting PushActiveContext, a push of the literal
// argument count, then a blockCopy: send — blockCopy: is what actually
// allocates the BlockContext, and the compiler follows it with an
// unconditional jump over the inlined block body so falling out of the
// primitive naturally resumes right after the block literal.
const (
	PrimBlockCopy   = 88
	PrimValue       = 81
	PrimValueColon  = 82
	PrimValueValue  = 83
	PrimWait        = 86
	PrimSignal      = 87
	PrimPerform     = 89
	PrimPerformWith = 90
	PrimIdentityEqual = 91
)

const defaultBlockStackWords = 16

func init() {
	registerPrimitive(PrimBlockCopy, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() {
			return 0, false
		}
		home := vm.Ctx.Home(receiver)
		block, err := vm.Ctx.NewBlockContext(vm.Alloc, home, args[0].IntegerValue(), vm.reader.PC(), defaultBlockStackWords)
		if err != nil {
			return 0, false
		}
		return block, true
	})

	registerPrimitive(PrimValue, blockActivate(0))
	registerPrimitive(PrimValueColon, blockActivate(1))
	registerPrimitive(PrimValueValue, blockActivate(2))

	registerPrimitive(PrimWait, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.Mem.ClassBits(receiver) != ClassSemaphorePointer {
			return 0, false
		}
		vm.semaphoreWait(receiver)
		return primitiveTransferredControl, true
	})
	registerPrimitive(PrimSignal, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.Mem.ClassBits(receiver) != ClassSemaphorePointer {
			return 0, false
		}
		vm.semaphoreSignal(receiver)
		return receiver, true
	})

	registerPrimitive(PrimPerform, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 {
			return 0, false
		}
		vm.sendSelector(args[0], receiver, nil)
		return receiver, true
	})
	registerPrimitive(PrimPerformWith, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) < 1 {
			return 0, false
		}
		vm.sendSelector(args[0], receiver, args[1:])
		return receiver, true
	})

	registerPrimitive(PrimIdentityEqual, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 {
			return 0, false
		}
		if receiver == args[0] {
			return TruePointer, true
		}
		return FalsePointer, true
	})
}

// blockActivate returns a primitive that activates receiver (a
// BlockContext) with numArgs arguments taken from args, replacing the
// active context the same way a real method activation would — but
// starting execution at the block's own initialIP/home instead of
// building a fresh MethodContext.
func blockActivate(numArgs int) PrimitiveFunc {
	return func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.Mem.ClassBits(receiver) != ClassBlockContextPointer {
			return 0, false
		}
		if len(args) != numArgs {
			return 0, false
		}
		if vm.Mem.FetchPointer(receiver, blkArgCountIndex).IntegerValue() != numArgs {
			return 0, false
		}
		vm.Ctx.SetSP(receiver, 0)
		vm.Ctx.SetIP(receiver, vm.blockInitialIP(receiver))
		home := vm.Ctx.Home(receiver)
		for i, a := range args {
			vm.Refs.StorePointer(home, methodContextFixedFields+i, a)
		}
		vm.Ctx.SetSender(receiver, vm.activeContext)
		vm.SwitchContext(receiver)
		return primitiveTransferredControl, true
	}
}

func (vm *Interpreter) blockInitialIP(block Oop) int {
	return vm.Mem.FetchPointer(block, blkInitialIPIndex).IntegerValue()
}
