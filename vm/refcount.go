package vm

// RefCounter implements the hybrid collector's fast path: eager
// reference-count maintenance on every pointer store, with cascading
// reclamation the moment a count reaches zero. Per spec.md §4.3 and
// objmemory.h's countUp/countDown, chunks at or above HugeSize words opt
// out of counting entirely (the 8-bit count field would saturate
// meaninglessly) and are reclaimed only by the mark-sweep pass in gc.go.
type RefCounter struct {
	mem   *WordMemory
	alloc *Allocator
}

// NewRefCounter wires a reference counter to the memory and allocator it
// maintains counts for.
func NewRefCounter(mem *WordMemory, alloc *Allocator) *RefCounter {
	return &RefCounter{mem: mem, alloc: alloc}
}

func (r *RefCounter) isCounted(oop Oop) bool {
	return !oop.IsInteger() && oop > NilPointer && r.mem.SizeWords(oop) < HugeSize
}

// CountUp increments oop's reference count, saturating at 255. Saturated
// objects simply stop being reclaimed by CountDown and wait for a
// mark-sweep pass instead, matching the reference's behaviour exactly.
func (r *RefCounter) CountUp(oop Oop) {
	if !r.isCounted(oop) {
		return
	}
	if c := r.mem.RefCount(oop); c < 255 {
		r.mem.SetRefCount(oop, c+1)
	}
}

// CountDown decrements oop's reference count and, if it reaches zero,
// reclaims the object and recursively counts down everything it pointed
// to. Uses an explicit work list rather than recursion so a long chain of
// now-garbage cons-like structures can't blow the Go call stack the way
// the reference's recursive countDown can blow the C++ one.
func (r *RefCounter) CountDown(oop Oop) {
	pending := []Oop{oop}
	for len(pending) > 0 {
		o := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if !r.isCounted(o) {
			continue
		}
		c := r.mem.RefCount(o)
		if c == 0 {
			continue // already at floor; never reached via a real store
		}
		if c == 255 {
			continue // saturated: leave reclamation to mark-sweep
		}
		c--
		r.mem.SetRefCount(o, c)
		if c > 0 {
			continue
		}
		if r.mem.IsPointers(o) {
			for i := 0; i < r.mem.FetchWordLength(o); i++ {
				child := r.mem.FetchPointer(o, i)
				if !child.IsInteger() {
					pending = append(pending, child)
				}
			}
		}
		r.alloc.FreeChunk(o)
	}
}

// StorePointer overwrites body field fieldIndex of oop with value,
// maintaining reference counts on both the old and new contents: count up
// the new value before counting down the old one, so storing a value into
// a field that already held it (or storing something that was already
// live via another path) can never transiently hit zero. Per spec.md §4.3.
func (r *RefCounter) StorePointer(oop Oop, fieldIndex int, value Oop) {
	old := r.mem.FetchPointer(oop, fieldIndex)
	r.CountUp(value)
	r.mem.SetFetchPointer(oop, fieldIndex, value)
	r.CountDown(old)
}
