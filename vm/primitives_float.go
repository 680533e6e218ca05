package vm

import "math"

// Float objects pack a 64-bit IEEE double across 4 body words, big word
// first, per spec.md §4.8's float primitive family. There is no tagged
// immediate float representation in the blue book — every Float is a
// real heap object, unlike SmallInteger.
const floatBodyWords = 4

func (vm *Interpreter) allocateFloat(v float64) (Oop, error) {
	oop, err := vm.allocateOrCollect(headerSize+floatBodyWords, ClassFloatPointer, false)
	if err != nil {
		return 0, err
	}
	bits := math.Float64bits(v)
	for i := 0; i < floatBodyWords; i++ {
		shift := uint(48 - 16*i)
		vm.Mem.setChunkWord(oop, headerSize+i, uint16(bits>>shift))
	}
	return oop, nil
}

func (vm *Interpreter) floatValue(oop Oop) (float64, bool) {
	if vm.Mem.ClassBits(oop) != ClassFloatPointer {
		return 0, false
	}
	var bits uint64
	for i := 0; i < floatBodyWords; i++ {
		bits = bits<<16 | uint64(vm.Mem.chunkWord(oop, headerSize+i))
	}
	return math.Float64frombits(bits), true
}

// numericValue widens a SmallInteger or Float receiver/argument to a Go
// float64 for the mixed-mode arithmetic primitives.
func (vm *Interpreter) numericValue(oop Oop) (float64, bool) {
	if oop.IsInteger() {
		return float64(oop.IntegerValue()), true
	}
	return vm.floatValue(oop)
}

const (
	PrimFloatAdd      = 41
	PrimFloatSubtract = 42
	PrimFloatLessThan = 43
	PrimFloatGreaterThan = 44
	PrimFloatLessOrEqual = 45
	PrimFloatGreaterOrEqual = 46
	PrimFloatEqual    = 47
	PrimFloatNotEqual = 48
	PrimFloatMultiply = 49
	PrimFloatDivide   = 50
	PrimFloatTruncated = 51
	PrimFloatFractionPart = 52
	PrimFloatExponent = 53
	PrimFloatTimesTwoPower = 54
	PrimAsFloat       = 40
)

func init() {
	registerPrimitive(PrimAsFloat, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if !receiver.IsInteger() {
			return 0, false
		}
		oop, err := vm.allocateFloat(float64(receiver.IntegerValue()))
		if err != nil {
			return 0, false
		}
		return oop, true
	})

	registerPrimitive(PrimFloatAdd, floatBinary(func(a, b float64) float64 { return a + b }))
	registerPrimitive(PrimFloatSubtract, floatBinary(func(a, b float64) float64 { return a - b }))
	registerPrimitive(PrimFloatMultiply, floatBinary(func(a, b float64) float64 { return a * b }))
	registerPrimitive(PrimFloatDivide, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		a, ok1 := vm.floatValue(receiver)
		b, ok2 := vm.numericValue(argOrZero(args))
		if !ok1 || !ok2 || b == 0 {
			return 0, false
		}
		oop, err := vm.allocateFloat(a / b)
		if err != nil {
			return 0, false
		}
		return oop, true
	})

	registerPrimitive(PrimFloatLessThan, floatCompare(func(a, b float64) bool { return a < b }))
	registerPrimitive(PrimFloatGreaterThan, floatCompare(func(a, b float64) bool { return a > b }))
	registerPrimitive(PrimFloatLessOrEqual, floatCompare(func(a, b float64) bool { return a <= b }))
	registerPrimitive(PrimFloatGreaterOrEqual, floatCompare(func(a, b float64) bool { return a >= b }))
	registerPrimitive(PrimFloatEqual, floatCompare(func(a, b float64) bool { return a == b }))
	registerPrimitive(PrimFloatNotEqual, floatCompare(func(a, b float64) bool { return a != b }))

	registerPrimitive(PrimFloatTruncated, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		v, ok := vm.floatValue(receiver)
		if !ok || !FitsSmallInteger(int(v)) {
			return 0, false
		}
		return SmallInteger(int(v)), true
	})
	registerPrimitive(PrimFloatFractionPart, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		v, ok := vm.floatValue(receiver)
		if !ok {
			return 0, false
		}
		_, frac := math.Modf(v)
		oop, err := vm.allocateFloat(frac)
		if err != nil {
			return 0, false
		}
		return oop, true
	})
	registerPrimitive(PrimFloatExponent, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		v, ok := vm.floatValue(receiver)
		if !ok {
			return 0, false
		}
		_, exp := math.Frexp(v)
		if !FitsSmallInteger(exp - 1) {
			return 0, false
		}
		return SmallInteger(exp - 1), true
	})
	registerPrimitive(PrimFloatTimesTwoPower, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		v, ok := vm.floatValue(receiver)
		n := argOrZero(args)
		if !ok || !n.IsInteger() {
			return 0, false
		}
		oop, err := vm.allocateFloat(v * math.Pow(2, float64(n.IntegerValue())))
		if err != nil {
			return 0, false
		}
		return oop, true
	})
}

func argOrZero(args []Oop) Oop {
	if len(args) == 0 {
		return ZeroPointer
	}
	return args[0]
}

func floatBinary(op func(a, b float64) float64) PrimitiveFunc {
	return func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		a, ok1 := vm.floatValue(receiver)
		b, ok2 := vm.numericValue(argOrZero(args))
		if !ok1 || !ok2 {
			return 0, false
		}
		oop, err := vm.allocateFloat(op(a, b))
		if err != nil {
			return 0, false
		}
		return oop, true
	}
}

func floatCompare(cmp func(a, b float64) bool) PrimitiveFunc {
	return func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		a, ok1 := vm.floatValue(receiver)
		b, ok2 := vm.numericValue(argOrZero(args))
		if !ok1 || !ok2 {
			return 0, false
		}
		if cmp(a, b) {
			return TruePointer, true
		}
		return FalsePointer, true
	}
}
