package vm

// message.go builds the Message objects doesNotUnderstand: needs, and the
// small handful of other "wrap these oops into a real Array/Object"
// helpers the dispatch and primitive layers share.

const (
	messageSelectorIndex = 0
	messageArgumentsIndex = 1
	messageFixedFields    = 2
)

// allocateMessage builds a Message object (selector + an Array of args),
// per spec.md §4.6's doesNotUnderstand: contract.
func (vm *Interpreter) allocateMessage(selector Oop, args []Oop) (Oop, error) {
	argsArray, err := vm.allocateArray(args)
	if err != nil {
		return 0, err
	}
	msg, err := vm.allocateOrCollect(headerSize+messageFixedFields, ClassMessagePointer, true)
	if err != nil {
		return 0, err
	}
	vm.Refs.StorePointer(msg, messageSelectorIndex, selector)
	vm.Refs.StorePointer(msg, messageArgumentsIndex, argsArray)
	return msg, nil
}

// allocateArray builds an Array object holding elems in order.
func (vm *Interpreter) allocateArray(elems []Oop) (Oop, error) {
	arr, err := vm.allocateOrCollect(headerSize+len(elems), ClassArrayPointer, true)
	if err != nil {
		return 0, err
	}
	for i, e := range elems {
		vm.Refs.StorePointer(arr, i, e)
	}
	return arr, nil
}

// arrayElements reads back every element of an Array object.
func (vm *Interpreter) arrayElements(arr Oop) []Oop {
	n := vm.Mem.FetchWordLength(arr)
	out := make([]Oop, n)
	for i := 0; i < n; i++ {
		out[i] = vm.Mem.FetchPointer(arr, i)
	}
	return out
}
