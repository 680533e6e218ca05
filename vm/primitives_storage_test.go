package vm

import "testing"

func registerTestClass(vm *Interpreter, oop Oop, numIvars int) *Class {
	c := &Class{Oop: oop, Name: "Test", NumIvars: numIvars}
	vm.Classes.Register(c)
	return c
}

func TestPrimBasicNewInitializesIvarsToNil(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	registerTestClass(vm, classOop, 3)

	result, ok := vm.callPrimitive(PrimBasicNew, classOop, nil)
	if !ok {
		t.Fatal("PrimBasicNew should succeed for a registered class")
	}
	for i := 0; i < 3; i++ {
		if got := vm.Mem.FetchPointer(result, i); got != NilPointer {
			t.Errorf("ivar %d = %v, want NilPointer", i, got)
		}
	}
}

func TestPrimBasicNewFailsForUnregisteredClass(t *testing.T) {
	vm := newTestVMForPrimitives()
	if _, ok := vm.callPrimitive(PrimBasicNew, Oop(5), nil); ok {
		t.Error("PrimBasicNew should fail when the receiver isn't a registered class")
	}
}

func TestPrimAtPutAndAtRoundTripPointers(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	registerTestClass(vm, classOop, 0)
	arr, ok := vm.callPrimitive(PrimBasicNewSized, classOop, []Oop{SmallInteger(3)})
	if !ok {
		t.Fatal("PrimBasicNewSized should succeed")
	}

	if _, ok := vm.callPrimitive(PrimAtPut, arr, []Oop{SmallInteger(1), TruePointer}); !ok {
		t.Fatal("PrimAtPut should succeed")
	}
	got, ok := vm.callPrimitive(PrimAt, arr, []Oop{SmallInteger(1)})
	if !ok || got != TruePointer {
		t.Errorf("PrimAt(1) = (%v,%v), want (TruePointer,true)", got, ok)
	}
}

func TestPrimAtOutOfBoundsFails(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	registerTestClass(vm, classOop, 0)
	arr, _ := vm.callPrimitive(PrimBasicNewSized, classOop, []Oop{SmallInteger(2)})
	if _, ok := vm.callPrimitive(PrimAt, arr, []Oop{SmallInteger(0)}); ok {
		t.Error("index 0 is out of range (Smalltalk is 1-based)")
	}
	if _, ok := vm.callPrimitive(PrimAt, arr, []Oop{SmallInteger(3)}); ok {
		t.Error("index past the end should fail")
	}
}

func TestPrimBasicNewBytesTracksOddLength(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	obj, ok := vm.callPrimitive(PrimBasicNewBytes, classOop, []Oop{SmallInteger(5)})
	if !ok {
		t.Fatal("PrimBasicNewBytes should succeed")
	}
	if got := vm.Mem.FetchByteLength(obj); got != 5 {
		t.Errorf("FetchByteLength = %d, want 5", got)
	}
	if _, ok := vm.callPrimitive(PrimAtPut, obj, []Oop{SmallInteger(1), SmallInteger(200)}); !ok {
		t.Fatal("PrimAtPut on a byte object should succeed")
	}
	got, ok := vm.callPrimitive(PrimAt, obj, []Oop{SmallInteger(1)})
	if !ok || got.IntegerValue() != 200 {
		t.Errorf("PrimAt(1) = (%v,%v), want (200,true)", got, ok)
	}
}

func TestPrimAtPutRejectsOutOfByteRangeValue(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	obj, _ := vm.callPrimitive(PrimBasicNewBytes, classOop, []Oop{SmallInteger(2)})
	if _, ok := vm.callPrimitive(PrimAtPut, obj, []Oop{SmallInteger(1), SmallInteger(256)}); ok {
		t.Error("storing a value outside 0-255 into a byte object should fail")
	}
}

func TestPrimSizeReflectsWordOrByteLength(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	registerTestClass(vm, classOop, 0)
	arr, _ := vm.callPrimitive(PrimBasicNewSized, classOop, []Oop{SmallInteger(4)})
	size, ok := vm.callPrimitive(PrimSize, arr, nil)
	if !ok || size.IntegerValue() != 4 {
		t.Errorf("PrimSize(array) = (%v,%v), want (4,true)", size, ok)
	}
}

func TestPrimClassReturnsClassBits(t *testing.T) {
	vm := newTestVMForPrimitives()
	result, ok := vm.callPrimitive(PrimClass, SmallInteger(5), nil)
	if !ok || result != ClassSmallIntegerPointer {
		t.Errorf("PrimClass(5) = (%v,%v), want (ClassSmallIntegerPointer,true)", result, ok)
	}
}

func TestPrimBecomeSwapsIdentity(t *testing.T) {
	vm := newTestVMForPrimitives()
	classOop := Oop(2 * (LastSpecialOop + 1))
	registerTestClass(vm, classOop, 1)
	a, err := vm.allocateOrCollect(headerSize+1, classOop, true)
	if err != nil {
		t.Fatalf("allocate a failed: %v", err)
	}
	b, err := vm.allocateOrCollect(headerSize+1, classOop, true)
	if err != nil {
		t.Fatalf("allocate b failed: %v", err)
	}
	vm.Mem.SetFetchPointer(a, 0, SmallInteger(1))
	vm.Mem.SetFetchPointer(b, 0, SmallInteger(2))

	if _, ok := vm.callPrimitive(PrimBecome, a, []Oop{b}); !ok {
		t.Fatal("PrimBecome should succeed")
	}
	if got := vm.Mem.FetchPointer(a, 0); got != SmallInteger(2) {
		t.Errorf("after become:, a's chunk should be b's old chunk; got field %v", got)
	}
	if got := vm.Mem.FetchPointer(b, 0); got != SmallInteger(1) {
		t.Errorf("after become:, b's chunk should be a's old chunk; got field %v", got)
	}
}

func TestPrimIdentityHashMasksLargeOops(t *testing.T) {
	vm := newTestVMForPrimitives()
	result, ok := vm.callPrimitive(PrimIdentityHash, Oop(40000), nil)
	if !ok {
		t.Fatal("PrimIdentityHash should always succeed")
	}
	if !result.IsInteger() {
		t.Error("PrimIdentityHash should return a SmallInteger")
	}
}
