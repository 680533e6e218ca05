package vm

// Object creation, indexed access, and reflection primitives, per
// spec.md §4.8's storage family.
const (
	PrimBasicNew      = 70
	PrimBasicNewSized = 71
	PrimBasicNewBytes = 72
	PrimAt            = 60
	PrimAtPut         = 61
	PrimSize          = 62
	PrimClass         = 63
	PrimInstVarAt     = 64
	PrimInstVarAtPut  = 65
	PrimIdentityHash  = 75
	PrimBecome        = 76
)

func init() {
	registerPrimitive(PrimBasicNew, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		class := vm.Classes.ByOop(receiver)
		if class == nil {
			return 0, false
		}
		oop, err := vm.allocateOrCollect(headerSize+class.TotalIvars(), receiver, true)
		if err != nil {
			return 0, false
		}
		for i := 0; i < class.TotalIvars(); i++ {
			vm.Mem.SetFetchPointer(oop, i, NilPointer)
		}
		return oop, true
	})

	registerPrimitive(PrimBasicNewSized, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() {
			return 0, false
		}
		n := args[0].IntegerValue()
		if n < 0 {
			return 0, false
		}
		class := vm.Classes.ByOop(receiver)
		if class == nil {
			return 0, false
		}
		total := class.TotalIvars() + n
		oop, err := vm.allocateOrCollect(headerSize+total, receiver, true)
		if err != nil {
			return 0, false
		}
		for i := 0; i < total; i++ {
			vm.Mem.SetFetchPointer(oop, i, NilPointer)
		}
		return oop, true
	})

	registerPrimitive(PrimBasicNewBytes, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() {
			return 0, false
		}
		n := args[0].IntegerValue()
		if n < 0 {
			return 0, false
		}
		oop, err := vm.allocateOrCollect(headerSize+(n+1)/2, receiver, false)
		if err != nil {
			return 0, false
		}
		vm.Mem.setOddByte(oop, n%2 == 1)
		return oop, true
	})

	registerPrimitive(PrimAt, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() {
			return 0, false
		}
		i := args[0].IntegerValue() - 1
		if vm.Mem.IsPointers(receiver) {
			if i < 0 || i >= vm.Mem.FetchWordLength(receiver) {
				return 0, false
			}
			return vm.Mem.FetchPointer(receiver, i), true
		}
		if i < 0 || i >= vm.Mem.FetchByteLength(receiver) {
			return 0, false
		}
		return SmallInteger(int(vm.Mem.FetchByte(receiver, i))), true
	})

	registerPrimitive(PrimAtPut, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 2 || !args[0].IsInteger() {
			return 0, false
		}
		i := args[0].IntegerValue() - 1
		if vm.Mem.IsPointers(receiver) {
			if i < 0 || i >= vm.Mem.FetchWordLength(receiver) {
				return 0, false
			}
			vm.Refs.StorePointer(receiver, i, args[1])
			return args[1], true
		}
		if !args[1].IsInteger() || i < 0 || i >= vm.Mem.FetchByteLength(receiver) {
			return 0, false
		}
		v := args[1].IntegerValue()
		if v < 0 || v > 255 {
			return 0, false
		}
		vm.Mem.SetFetchByte(receiver, i, byte(v))
		return args[1], true
	})

	registerPrimitive(PrimSize, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if receiver.IsInteger() {
			return 0, false
		}
		if vm.Mem.IsPointers(receiver) {
			return SmallInteger(vm.Mem.FetchWordLength(receiver)), true
		}
		return SmallInteger(vm.Mem.FetchByteLength(receiver)), true
	})

	registerPrimitive(PrimClass, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		return vm.classOf(receiver), true
	})

	registerPrimitive(PrimInstVarAt, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 || !args[0].IsInteger() {
			return 0, false
		}
		i := args[0].IntegerValue() - 1
		if i < 0 || i >= vm.Mem.FetchWordLength(receiver) {
			return 0, false
		}
		return vm.Mem.FetchPointer(receiver, i), true
	})

	registerPrimitive(PrimInstVarAtPut, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 2 || !args[0].IsInteger() {
			return 0, false
		}
		i := args[0].IntegerValue() - 1
		if i < 0 || i >= vm.Mem.FetchWordLength(receiver) {
			return 0, false
		}
		vm.Refs.StorePointer(receiver, i, args[1])
		return args[1], true
	})

	registerPrimitive(PrimIdentityHash, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if receiver.IsInteger() {
			return SmallInteger(receiver.IntegerValue()), true
		}
		if !FitsSmallInteger(int(receiver)) {
			return SmallInteger(int(receiver) & MaxSmallInteger), true
		}
		return SmallInteger(int(receiver)), true
	})

	registerPrimitive(PrimBecome, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if len(args) != 1 {
			return 0, false
		}
		vm.becomeSwap(receiver, args[0])
		return receiver, true
	})
}

// becomeSwap exchanges two objects' identities by swapping their object
// table entries (size/class/segment/location/flags all move together),
// so every existing oop value that named one now dereferences to the
// other's chunk, per spec.md §4.8's become: contract and
// objmemory.h's swapPointersOf_and.
func (vm *Interpreter) becomeSwap(a, b Oop) {
	oa0, oa1 := vm.Mem.otWord0(a), vm.Mem.otWord1(a)
	ob0, ob1 := vm.Mem.otWord0(b), vm.Mem.otWord1(b)
	vm.Mem.setOTWord0(a, ob0)
	vm.Mem.setOTWord1(a, ob1)
	vm.Mem.setOTWord0(b, oa0)
	vm.Mem.setOTWord1(b, oa1)
}
