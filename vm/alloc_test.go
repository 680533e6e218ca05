package vm

import "testing"

func newTestAllocator() *Allocator {
	mem := NewWordMemory(false)
	return NewAllocator(mem)
}

func TestAllocateChunkInstallsOTEntry(t *testing.T) {
	a := newTestAllocator()
	oop, err := a.AllocateChunk(0, 6, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	if a.mem.Free(oop) {
		t.Error("allocated oop should not be marked free")
	}
	if got := a.mem.SizeWords(oop); got != 6 {
		t.Errorf("SizeWords = %d, want 6", got)
	}
	if got := a.mem.ClassBits(oop); got != ClassArrayPointer {
		t.Errorf("ClassBits = %d, want ClassArrayPointer", got)
	}
	if got := a.mem.RefCount(oop); got != 0 {
		t.Errorf("fresh allocation RefCount = %d, want 0", got)
	}
	if !a.mem.IsPointers(oop) {
		t.Error("IsPointers should be true")
	}
}

func TestAllocateChunkDistinctOops(t *testing.T) {
	a := newTestAllocator()
	seen := make(map[Oop]bool)
	for i := 0; i < 100; i++ {
		oop, err := a.AllocateChunk(0, 4, ClassArrayPointer, true)
		if err != nil {
			t.Fatalf("alloc %d failed: %v", i, err)
		}
		if seen[oop] {
			t.Fatalf("oop %d allocated twice", oop)
		}
		seen[oop] = true
	}
}

func TestFreeChunkReturnsOopToFreeChain(t *testing.T) {
	a := newTestAllocator()
	oop, err := a.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	a.FreeChunk(oop)
	if !a.mem.Free(oop) {
		t.Error("freed oop should be marked free")
	}
	// Reallocating should recycle the same oop (LIFO free-oop chain).
	again, err := a.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk after free failed: %v", err)
	}
	if again != oop {
		t.Errorf("expected recycled oop %d, got %d", oop, again)
	}
}

func TestAllocateChunkSplitsLeftover(t *testing.T) {
	a := newTestAllocator()
	small, err := a.AllocateChunk(0, 5, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	if got := a.mem.SizeWords(small); got != 5 {
		t.Errorf("SizeWords = %d, want the requested 5, not the whole segment", got)
	}
}

func TestAllocateChunkExhaustsObjectTable(t *testing.T) {
	a := newTestAllocator()
	var err error
	for i := 0; i < objectTableSize; i++ {
		_, err = a.AllocateChunk(0, 2, ClassArrayPointer, true)
		if err != nil {
			break
		}
	}
	if err != ErrNoFreeOop && err != ErrNoFreeChunk {
		t.Errorf("expected exhaustion error, got %v", err)
	}
}

func TestFreeWordsEstimateDecreasesAfterAllocation(t *testing.T) {
	a := newTestAllocator()
	before := a.freeWordsEstimate()
	if _, err := a.AllocateChunk(0, 10, ClassArrayPointer, true); err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	after := a.freeWordsEstimate()
	if after >= before {
		t.Errorf("freeWordsEstimate did not decrease: before=%d after=%d", before, after)
	}
}

func TestCompactCurrentSegmentPreservesLiveData(t *testing.T) {
	a := newTestAllocator()
	first, err := a.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	second, err := a.AllocateChunk(0, 4, ClassArrayPointer, true)
	if err != nil {
		t.Fatalf("AllocateChunk failed: %v", err)
	}
	a.mem.SetFetchPointer(second, 0, TruePointer)
	a.FreeChunk(first)

	segment := a.mem.Segment(second)
	a.currentSegment = segment
	a.CompactCurrentSegment([]Oop{second})

	if got := a.mem.FetchPointer(second, 0); got != TruePointer {
		t.Errorf("compaction corrupted data: FetchPointer(0) = %d, want TruePointer", got)
	}
}
