package vm

// GC is the collector's mark-sweep fallback, invoked when the allocator
// can't satisfy a request and when the hybrid scheme's reference counts
// have drifted because of a reachable cycle (blue book ch. 31;
// objmemory.h's markObjectsAccessibleFrom / rectifyCountsAndDeallocateGarbage
// / zeroReferenceCounts). Per spec.md §4.4, a full collection proceeds in
// four strict phases: zero all counts, mark everything reachable from the
// roots, rectify counts by tallying real incoming pointers among the
// marked set, then sweep and reclaim everything left unmarked.
type GC struct {
	mem   *WordMemory
	alloc *Allocator
	refs  *RefCounter

	marked map[Oop]bool
}

// NewGC wires a collector to the memory, allocator, and reference counter
// it shares with the rest of the interpreter.
func NewGC(mem *WordMemory, alloc *Allocator, refs *RefCounter) *GC {
	return &GC{mem: mem, alloc: alloc, refs: refs}
}

// RootProvider supplies every oop the collector must treat as live:
// the active process's context chain, the scheduler's run/wait lists, the
// global Smalltalk dictionary, the special-oop table, and anything else
// the interpreter is holding outside the heap (spec.md §4.4's root set).
type RootProvider interface {
	GCRoots() []Oop
}

// Collect runs one full mark-sweep cycle and returns the number of
// objects reclaimed.
func (g *GC) Collect(roots RootProvider) int {
	g.marked = make(map[Oop]bool, 4096)
	g.zeroReferenceCounts()
	for _, r := range roots.GCRoots() {
		g.mark(r)
	}
	g.rectifyCounts()
	return g.sweep()
}

func (g *GC) zeroReferenceCounts() {
	for oop := Oop(2 * (LastSpecialOop + 1)); oop < Oop(objectTableSize); oop += 2 {
		if !g.mem.Free(oop) {
			g.mem.SetRefCount(oop, 0)
		}
	}
}

func (g *GC) mark(oop Oop) {
	if oop.IsInteger() || oop <= NilPointer {
		return
	}
	if g.marked[oop] {
		return
	}
	g.marked[oop] = true
	if class := g.mem.ClassBits(oop); !class.IsInteger() {
		g.mark(class)
	}
	if !g.mem.IsPointers(oop) {
		return
	}
	n := g.mem.FetchWordLength(oop)
	for i := 0; i < n; i++ {
		g.mark(g.mem.FetchPointer(oop, i))
	}
}

// rectifyCounts recomputes each marked object's reference count from
// scratch by tallying the pointers actually stored in every other marked
// object, correcting for any drift the eager counting scheme introduced
// around a cycle.
func (g *GC) rectifyCounts() {
	for oop := range g.marked {
		if g.mem.SizeWords(oop) >= HugeSize || !g.mem.IsPointers(oop) {
			continue
		}
		n := g.mem.FetchWordLength(oop)
		for i := 0; i < n; i++ {
			child := g.mem.FetchPointer(oop, i)
			if !child.IsInteger() && g.marked[child] {
				if c := g.mem.RefCount(child); c < 255 {
					g.mem.SetRefCount(child, c+1)
				}
			}
		}
	}
}

func (g *GC) sweep() int {
	reclaimed := 0
	for oop := Oop(2 * (LastSpecialOop + 1)); oop < Oop(objectTableSize); oop += 2 {
		if g.mem.Free(oop) || g.marked[oop] {
			continue
		}
		g.alloc.FreeChunk(oop)
		reclaimed++
	}
	return reclaimed
}
