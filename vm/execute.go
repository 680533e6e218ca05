package vm

// execute.go is the actual fetch-decode-execute switch, keyed on the
// opcode groups named in bytecode.go, per spec.md §4.5.

func (vm *Interpreter) dispatchBytecode(opcode byte) {
	ctx := vm.activeContext
	switch {
	case opcode < PushTemporaryBase:
		vm.Ctx.Push(ctx, vm.instVar(vm.Ctx.Receiver(ctx), int(opcode-PushReceiverVariableBase)))
	case opcode < PushLiteralConstantBase:
		vm.Ctx.Push(ctx, vm.Ctx.TempAt(ctx, int(opcode-PushTemporaryBase)))
	case opcode < PushLiteralVariableBase:
		vm.Ctx.Push(ctx, vm.method.Literals[opcode-PushLiteralConstantBase])
	case opcode < StoreReceiverVariableBase:
		assoc := vm.method.Literals[opcode-PushLiteralVariableBase]
		vm.Ctx.Push(ctx, vm.Mem.FetchPointer(assoc, 1))
	case opcode < StoreTemporaryBase:
		vm.setInstVar(vm.Ctx.Receiver(ctx), int(opcode-StoreReceiverVariableBase), vm.Ctx.Pop(ctx))
	case opcode < PushReceiver:
		vm.Ctx.SetTempAt(ctx, int(opcode-StoreTemporaryBase), vm.Ctx.Pop(ctx))
	default:
		vm.dispatchHighBytecode(opcode)
	}
}

func (vm *Interpreter) dispatchHighBytecode(opcode byte) {
	ctx := vm.activeContext
	switch opcode {
	case PushReceiver:
		vm.Ctx.Push(ctx, vm.Ctx.Receiver(ctx))
	case PushTrue:
		vm.Ctx.Push(ctx, TruePointer)
	case PushFalse:
		vm.Ctx.Push(ctx, FalsePointer)
	case PushNil:
		vm.Ctx.Push(ctx, NilPointer)
	case PushMinusOne:
		vm.Ctx.Push(ctx, MinusOnePointer)
	case PushZero:
		vm.Ctx.Push(ctx, ZeroPointer)
	case PushOne:
		vm.Ctx.Push(ctx, OnePointer)
	case PushTwo:
		vm.Ctx.Push(ctx, TwoPointer)

	case ReturnReceiver:
		vm.methodReturn(vm.Ctx.Receiver(ctx))
	case ReturnTrue:
		vm.methodReturn(TruePointer)
	case ReturnFalse:
		vm.methodReturn(FalsePointer)
	case ReturnNil:
		vm.methodReturn(NilPointer)
	case ReturnTopFromMethod:
		vm.methodReturn(vm.Ctx.Pop(ctx))
	case ReturnTopFromBlock:
		vm.blockReturn(vm.Ctx.Pop(ctx))

	case PushTopOfStackDuplicate:
		vm.Ctx.Push(ctx, vm.Ctx.Top(ctx))
	case PopStackTop:
		vm.Ctx.Pop(ctx)
	case PushActiveContext:
		vm.Ctx.Push(ctx, ctx)

	case ExtendedPush:
		vm.extendedPush(vm.reader.NextByte())
	case ExtendedStore:
		vm.extendedStore(vm.reader.NextByte(), false)
	case ExtendedStoreAndPop:
		vm.extendedStore(vm.reader.NextByte(), true)
	case SingleExtendedSend:
		vm.singleExtendedSend(vm.reader.NextByte())
	case SingleExtendedSuperSend:
		vm.singleExtendedSuperSend(vm.reader.NextByte())
	case SecondExtendedSend:
		vm.secondExtendedSend(vm.reader.NextByte())
	case DoubleExtendedDoAnything:
		vm.doubleExtendedDoAnything(vm.reader.NextByte(), vm.reader.NextByte())

	default:
		switch {
		case opcode >= UnconditionalJumpShortBase && opcode < PopJumpIfTrueBase:
			vm.reader.SetPC(vm.reader.PC() + int(opcode-UnconditionalJumpShortBase) + 1)
		case opcode >= PopJumpIfTrueBase && opcode < PopJumpIfFalseBase:
			vm.condJumpShort(opcode-PopJumpIfTrueBase, true)
		case opcode >= PopJumpIfFalseBase && opcode < SendArithmeticSpecialBase:
			vm.condJumpShort(opcode-PopJumpIfFalseBase, false)
		case opcode >= SendArithmeticSpecialBase && opcode < SendNonArithmeticSpecialBase:
			vm.sendSpecial(specialSelectorArithmetic[opcode-SendArithmeticSpecialBase], 1)
		case opcode >= SendNonArithmeticSpecialBase && opcode < SendLiteralSelector0ArgBase:
			idx := opcode - SendNonArithmeticSpecialBase
			vm.sendSpecial(specialSelectorNonArithmetic[idx], NumArgsForOpcode(opcode))
		case opcode >= SendLiteralSelector0ArgBase && opcode < SendLiteralSelector1ArgBase:
			vm.sendLiteral(int(opcode-SendLiteralSelector0ArgBase), 0)
		case opcode >= SendLiteralSelector1ArgBase && opcode < SendLiteralSelector2ArgBase:
			vm.sendLiteral(int(opcode-SendLiteralSelector1ArgBase), 1)
		case opcode >= SendLiteralSelector2ArgBase:
			vm.sendLiteral(int(opcode-SendLiteralSelector2ArgBase), 2)
		}
	}
}

func (vm *Interpreter) condJumpShort(span byte, onTrue bool) {
	ctx := vm.activeContext
	v := vm.Ctx.Pop(ctx)
	dest := vm.reader.PC() + int(span) + 1
	switch v {
	case TruePointer:
		if onTrue {
			vm.reader.SetPC(dest)
		}
	case FalsePointer:
		if !onTrue {
			vm.reader.SetPC(dest)
		}
	default:
		vm.mustBeBoolean(v)
	}
}

func (vm *Interpreter) mustBeBoolean(receiver Oop) {
	class := vm.classOf(receiver)
	if method, _, ok := vm.lookupMethodInClass(class, MustBeBooleanSelector); ok {
		vm.activate(method, receiver, nil)
		return
	}
	vm.fail(newVMError(KindInternal, "vm: Object>>mustBeBoolean missing from bootstrap image"))
}

func (vm *Interpreter) sendLiteral(literalIndex, numArgs int) {
	ctx := vm.activeContext
	selector := vm.method.Literals[literalIndex]
	args := vm.popArgs(numArgs)
	receiver := vm.Ctx.Pop(ctx)
	vm.sendSelector(selector, receiver, args)
}

func (vm *Interpreter) sendSpecial(name string, numArgs int) {
	selector := vm.Symbols.Intern(name)
	args := vm.popArgs(numArgs)
	receiver := vm.Ctx.Pop(vm.activeContext)
	vm.sendSelector(selector, receiver, args)
}

func (vm *Interpreter) popArgs(n int) []Oop {
	args := make([]Oop, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.Ctx.Pop(vm.activeContext)
	}
	return args
}

func (vm *Interpreter) instVar(receiver Oop, index int) Oop {
	return vm.Mem.FetchPointer(receiver, index)
}

func (vm *Interpreter) setInstVar(receiver Oop, index int, value Oop) {
	vm.Refs.StorePointer(receiver, index, value)
}

// extendedPush/extendedStore decode the (kind<<6)|index operand byte
// shared by the three "extended" families, widening push/store/store-pop
// past the 8 and 16-slot ranges the compact opcodes cover.
const (
	extKindReceiverVar = 0
	extKindTemporary   = 1
	extKindLiteral     = 2
	extKindLiteralVar  = 3
)

func (vm *Interpreter) extendedPush(operand byte) {
	kind, index := operand>>6, int(operand&0x3f)
	ctx := vm.activeContext
	switch kind {
	case extKindReceiverVar:
		vm.Ctx.Push(ctx, vm.instVar(vm.Ctx.Receiver(ctx), index))
	case extKindTemporary:
		vm.Ctx.Push(ctx, vm.Ctx.TempAt(ctx, index))
	case extKindLiteral:
		vm.Ctx.Push(ctx, vm.method.Literals[index])
	case extKindLiteralVar:
		vm.Ctx.Push(ctx, vm.Mem.FetchPointer(vm.method.Literals[index], 1))
	}
}

func (vm *Interpreter) extendedStore(operand byte, andPop bool) {
	kind, index := operand>>6, int(operand&0x3f)
	ctx := vm.activeContext
	v := vm.Ctx.Top(ctx)
	switch kind {
	case extKindReceiverVar:
		vm.setInstVar(vm.Ctx.Receiver(ctx), index, v)
	case extKindTemporary:
		vm.Ctx.SetTempAt(ctx, index, v)
	case extKindLiteralVar:
		vm.Refs.StorePointer(vm.method.Literals[index], 1, v)
	}
	if andPop {
		vm.Ctx.Pop(ctx)
	}
}

func (vm *Interpreter) singleExtendedSend(operand byte) {
	numArgs, literalIndex := int(operand>>5), int(operand&0x1f)
	selector := vm.method.Literals[literalIndex]
	args := vm.popArgs(numArgs)
	receiver := vm.Ctx.Pop(vm.activeContext)
	vm.sendSelector(selector, receiver, args)
}

func (vm *Interpreter) secondExtendedSend(operand byte) {
	numArgs, literalIndex := int(operand>>6), int(operand&0x3f)
	selector := vm.method.Literals[literalIndex]
	args := vm.popArgs(numArgs)
	receiver := vm.Ctx.Pop(vm.activeContext)
	vm.sendSelector(selector, receiver, args)
}

func (vm *Interpreter) singleExtendedSuperSend(operand byte) {
	numArgs, literalIndex := int(operand>>5), int(operand&0x1f)
	selector := vm.method.Literals[literalIndex]
	args := vm.popArgs(numArgs)
	receiver := vm.Ctx.Pop(vm.activeContext)
	fromClass := vm.classOf(vm.Ctx.Receiver(vm.activeContext))
	if vm.method.Class != nil {
		fromClass = vm.method.Class.Oop
	}
	vm.sendSuper(selector, receiver, args, fromClass)
}

func (vm *Interpreter) doubleExtendedDoAnything(opType, operand byte) {
	ctx := vm.activeContext
	switch opType {
	case LongJumpOpType:
		offset := int(int8(operand))
		vm.reader.SetPC(vm.reader.PC() + offset)
	case LongJumpTrueOpType:
		v := vm.Ctx.Pop(ctx)
		if v == TruePointer {
			vm.reader.SetPC(vm.reader.PC() + int(int8(operand)))
		} else if v != FalsePointer {
			vm.mustBeBoolean(v)
		}
	case LongJumpFalseOpType:
		v := vm.Ctx.Pop(ctx)
		if v == FalsePointer {
			vm.reader.SetPC(vm.reader.PC() + int(int8(operand)))
		} else if v != TruePointer {
			vm.mustBeBoolean(v)
		}
	case SendSuperSelectorOp:
		selector := vm.method.Literals[operand]
		receiver := vm.Ctx.Receiver(ctx)
		fromClass := vm.classOf(receiver)
		if vm.method.Class != nil {
			fromClass = vm.method.Class.Oop
		}
		vm.sendSuper(selector, receiver, nil, fromClass)
	}
}

// blockReturn handles "^expr" written inside a block: it's a non-local
// return from the block's *home* method, not a simple pop back to the
// block's immediate caller, per spec.md §4.7.
func (vm *Interpreter) blockReturn(value Oop) {
	vm.methodReturn(value)
}
