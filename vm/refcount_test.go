package vm

import "testing"

func newTestRefCounter() (*WordMemory, *Allocator, *RefCounter) {
	mem := NewWordMemory(false)
	alloc := NewAllocator(mem)
	return mem, alloc, NewRefCounter(mem, alloc)
}

func TestCountUpAndDown(t *testing.T) {
	mem, alloc, refs := newTestRefCounter()
	oop, err := alloc.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	refs.CountUp(oop)
	refs.CountUp(oop)
	if got := mem.RefCount(oop); got != 2 {
		t.Errorf("RefCount after two CountUp = %d, want 2", got)
	}
	refs.CountDown(oop)
	if got := mem.RefCount(oop); got != 1 {
		t.Errorf("RefCount after one CountDown = %d, want 1", got)
	}
	if mem.Free(oop) {
		t.Error("object with remaining references should not be freed")
	}
	refs.CountDown(oop)
	if !mem.Free(oop) {
		t.Error("object should be freed once its count reaches zero")
	}
}

func TestCountUpSaturatesAt255(t *testing.T) {
	mem, alloc, refs := newTestRefCounter()
	oop, err := alloc.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	for i := 0; i < 300; i++ {
		refs.CountUp(oop)
	}
	if got := mem.RefCount(oop); got != 255 {
		t.Errorf("RefCount = %d, want saturated at 255", got)
	}
}

func TestCountDownCascadesToChildren(t *testing.T) {
	mem, alloc, refs := newTestRefCounter()
	child, err := alloc.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk (child) failed: %v", err)
	}
	parent, err := alloc.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk (parent) failed: %v", err)
	}
	refs.CountUp(child)
	mem.SetFetchPointer(parent, 0, child)
	refs.CountUp(parent)

	refs.CountDown(parent)
	if !mem.Free(parent) {
		t.Error("parent should be freed")
	}
	if !mem.Free(child) {
		t.Error("child should be cascaded-freed once its only owner is gone")
	}
}

func TestStorePointerCountsUpBeforeDown(t *testing.T) {
	mem, alloc, refs := newTestRefCounter()
	self, err := alloc.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	refs.CountUp(self)
	mem.SetFetchPointer(self, 0, self)
	refs.CountUp(self) // simulate the self-referential field's own contribution

	// Storing self into its own field again must not transiently drop the
	// count to zero and free the object out from under the store.
	refs.StorePointer(self, 0, self)
	if mem.Free(self) {
		t.Error("self-referential StorePointer must not free the object")
	}
}

func TestHugeChunksAreNotCounted(t *testing.T) {
	mem, alloc, refs := newTestRefCounter()
	oop, err := alloc.AllocateChunk(0, HugeSize, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	refs.CountUp(oop)
	if got := mem.RefCount(oop); got != 0 {
		t.Errorf("huge chunk RefCount = %d, want 0 (uncounted)", got)
	}
}
