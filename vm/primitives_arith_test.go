package vm

import "testing"

func newTestVMForPrimitives() *Interpreter {
	return NewInterpreter(DefaultConfig())
}

func TestPrimAddSucceedsWithinRange(t *testing.T) {
	vm := newTestVMForPrimitives()
	result, ok := vm.callPrimitive(PrimAdd, SmallInteger(3), []Oop{SmallInteger(4)})
	if !ok {
		t.Fatal("PrimAdd should succeed for small operands")
	}
	if result.IntegerValue() != 7 {
		t.Errorf("result = %d, want 7", result.IntegerValue())
	}
}

func TestPrimAddFailsOnOverflow(t *testing.T) {
	vm := newTestVMForPrimitives()
	_, ok := vm.callPrimitive(PrimAdd, SmallInteger(MaxSmallInteger), []Oop{SmallInteger(1)})
	if ok {
		t.Error("PrimAdd should fail rather than overflow past MaxSmallInteger")
	}
}

func TestPrimAddFailsOnNonIntegerReceiver(t *testing.T) {
	vm := newTestVMForPrimitives()
	_, ok := vm.callPrimitive(PrimAdd, NilPointer, []Oop{SmallInteger(1)})
	if ok {
		t.Error("PrimAdd should fail when the receiver isn't a SmallInteger")
	}
}

func TestPrimDivideFailsOnZeroAndNonExactDivision(t *testing.T) {
	vm := newTestVMForPrimitives()
	if _, ok := vm.callPrimitive(PrimDivide, SmallInteger(10), []Oop{SmallInteger(0)}); ok {
		t.Error("PrimDivide should fail on division by zero")
	}
	if _, ok := vm.callPrimitive(PrimDivide, SmallInteger(10), []Oop{SmallInteger(3)}); ok {
		t.Error("PrimDivide should fail when the division isn't exact")
	}
	result, ok := vm.callPrimitive(PrimDivide, SmallInteger(10), []Oop{SmallInteger(5)})
	if !ok || result.IntegerValue() != 2 {
		t.Errorf("PrimDivide(10,5) = (%v, %v), want (2, true)", result, ok)
	}
}

func TestPrimModFloorsTowardNegativeInfinity(t *testing.T) {
	vm := newTestVMForPrimitives()
	result, ok := vm.callPrimitive(PrimMod, SmallInteger(-7), []Oop{SmallInteger(3)})
	if !ok {
		t.Fatal("PrimMod should succeed")
	}
	if result.IntegerValue() != 2 {
		t.Errorf("-7 \\\\ 3 = %d, want 2 (Smalltalk's floored modulo)", result.IntegerValue())
	}
}

func TestPrimIntegerDivFloorsTowardNegativeInfinity(t *testing.T) {
	vm := newTestVMForPrimitives()
	result, ok := vm.callPrimitive(PrimIntegerDiv, SmallInteger(-7), []Oop{SmallInteger(3)})
	if !ok {
		t.Fatal("PrimIntegerDiv should succeed")
	}
	if result.IntegerValue() != -3 {
		t.Errorf("-7 // 3 = %d, want -3", result.IntegerValue())
	}
}

func TestPrimBitShiftLeftAndRight(t *testing.T) {
	vm := newTestVMForPrimitives()
	left, ok := vm.callPrimitive(PrimBitShift, SmallInteger(1), []Oop{SmallInteger(4)})
	if !ok || left.IntegerValue() != 16 {
		t.Errorf("1 bitShift: 4 = (%v,%v), want (16,true)", left, ok)
	}
	right, ok := vm.callPrimitive(PrimBitShift, SmallInteger(16), []Oop{SmallInteger(-4)})
	if !ok || right.IntegerValue() != 1 {
		t.Errorf("16 bitShift: -4 = (%v,%v), want (1,true)", right, ok)
	}
}

func TestPrimComparisons(t *testing.T) {
	vm := newTestVMForPrimitives()
	cases := []struct {
		prim int
		a, b int
		want Oop
	}{
		{PrimLessThan, 1, 2, TruePointer},
		{PrimLessThan, 2, 1, FalsePointer},
		{PrimGreaterThan, 2, 1, TruePointer},
		{PrimEqual, 5, 5, TruePointer},
		{PrimNotEqual, 5, 5, FalsePointer},
	}
	for _, c := range cases {
		result, ok := vm.callPrimitive(c.prim, SmallInteger(c.a), []Oop{SmallInteger(c.b)})
		if !ok || result != c.want {
			t.Errorf("prim %d (%d,%d) = (%v,%v), want (%v,true)", c.prim, c.a, c.b, result, ok, c.want)
		}
	}
}

func TestUnknownPrimitiveIndexFailsRatherThanPanics(t *testing.T) {
	vm := newTestVMForPrimitives()
	if _, ok := vm.callPrimitive(99999, SmallInteger(1), nil); ok {
		t.Error("an unregistered primitive index should report failure, not succeed")
	}
}
