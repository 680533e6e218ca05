package vm

import "github.com/pkg/errors"

// ErrNoFreeOop / ErrNoFreeChunk signal allocation failure up to the GC
// driver (gc.go), which retries after a collection and only then reports a
// real out-of-memory condition per spec.md §7 (tier 3, fatal).
var (
	ErrNoFreeOop   = errors.New("alloc: object table exhausted")
	ErrNoFreeChunk = errors.New("alloc: no free chunk large enough")
)

// freeChunkListCount is the number of size-class free lists per segment:
// exact sizes 0..BigSize-1, plus one more slot (index BigSize) holding
// every chunk of BigSize words or more, unordered, per objmemory.h's
// FirstFreeChunkListSize.
const freeChunkListCount = firstFreeChunkListSize

// Allocator owns the free-space bookkeeping layered on top of WordMemory:
// a singly linked free list of unused object-table entries, and one
// singly linked free-chunk list per size class per heap segment, per
// spec.md §4.2 and the reference's objmemory.h allocator.
type Allocator struct {
	mem *WordMemory

	freeOT Oop // head of the free object-table-entry chain

	// freeChunks[segment][sizeClass] is the head of that size class's free
	// list within that segment. sizeClass runs 0..BigSize; BigSize holds
	// every chunk >= BigSize words, and findChunk only ever takes its head.
	freeChunks [heapSegmentCount][freeChunkListCount]Oop

	currentSegment int // segment compaction/allocation currently favors
}

// NewAllocator wires up a fresh Allocator over an empty WordMemory: every
// heap segment starts as one giant free chunk, and every object-table slot
// past the named special oops is threaded onto the free-oop chain.
func NewAllocator(mem *WordMemory) *Allocator {
	a := &Allocator{mem: mem}
	a.initObjectTable()
	a.initHeapSegments()
	return a
}

func (a *Allocator) initObjectTable() {
	// Object table entries occupy two words each (count/flags, location);
	// entry N lives at words [2N, 2N+1). The first LastSpecialOop entries
	// are reserved; everything else starts out free and chained via the
	// location word holding "next free oop".
	start := Oop(2 * (LastSpecialOop + 1))
	end := Oop(objectTableSize)
	a.freeOT = NonPointer
	for cur := end - 2; cur >= start; cur -= 2 {
		a.mem.setFree(cur, true)
		a.mem.setOTWord1(cur, uint16(a.freeOT))
		a.freeOT = cur
	}
}

func (a *Allocator) initHeapSegments() {
	for seg := 0; seg < heapSegmentCount; seg++ {
		for class := range a.freeChunks[seg] {
			a.freeChunks[seg][class] = NonPointer
		}
		a.addFreeChunk(seg, 0, heapSpaceStop+1)
	}
}

func sizeClassFor(sizeWords int) int {
	if sizeWords >= BigSize {
		return BigSize
	}
	return sizeWords
}

// addFreeChunk threads a chunk of sizeWords words starting at offset in
// segment onto the appropriate free list. The chunk is not yet associated
// with any object-table entry; its header words double as free-list link
// fields (word 0 = size, word 1 = next free chunk's offset, or -1).
func (a *Allocator) addFreeChunk(segment, offset, sizeWords int) {
	if sizeWords < headerSize {
		return // fragment too small to ever satisfy an allocation
	}
	class := sizeClassFor(sizeWords)
	a.mem.SetWord(segment, offset, uint16(sizeWords))
	a.mem.SetWord(segment, offset+1, uint16(a.freeChunks[segment][class]))
	a.freeChunks[segment][class] = Oop(offset) // link value doubles as a raw offset, not an oop, within this list
}

func (a *Allocator) popFreeChunk(segment, class int) (offset, sizeWords int, ok bool) {
	head := a.freeChunks[segment][class]
	if head == NonPointer {
		return 0, 0, false
	}
	offset = int(head)
	sizeWords = int(a.mem.Word(segment, offset))
	a.freeChunks[segment][class] = Oop(a.mem.Word(segment, offset+1))
	return offset, sizeWords, true
}

// allocateOopEntry reserves a free object-table entry and returns it, still
// marked free=true/location undefined until the caller finishes installing
// the chunk (see AllocateChunk, which does both steps together).
func (a *Allocator) allocateOopEntry() (Oop, error) {
	if a.freeOT == NonPointer {
		return 0, ErrNoFreeOop
	}
	oop := a.freeOT
	a.freeOT = Oop(a.mem.otWord1(oop))
	return oop, nil
}

// DeallocateOop returns oop's object-table entry to the free chain. Callers
// must have already reclaimed its heap chunk via FreeChunk.
func (a *Allocator) DeallocateOop(oop Oop) {
	a.mem.setFree(oop, true)
	a.mem.setOTWord1(oop, uint16(a.freeOT))
	a.freeOT = oop
}

// AllocateChunk reserves sizeWords (header included) somewhere in the heap
// and binds it to a fresh object-table entry tagged with class and the
// isPointers flag. Tries the requesting segment first, then every other
// segment, taking the head of the exact size class's list, and then the
// head of each segment's oversize list if that head is large enough;
// chunks behind a too-small oversize head are not examined. Returns
// ErrNoFreeChunk if nothing was found in
// any segment; the caller (gc.go's allocate-or-collect driver) is
// responsible for retrying after a collection.
func (a *Allocator) AllocateChunk(preferredSegment, sizeWords int, class Oop, isPointers bool) (Oop, error) {
	segment, offset, actualSize, err := a.findChunk(preferredSegment, sizeWords)
	if err != nil {
		return 0, err
	}
	if leftover := actualSize - sizeWords; leftover >= headerSize {
		a.addFreeChunk(segment, offset+sizeWords, leftover)
		actualSize = sizeWords
	}
	oop, err := a.allocateOopEntry()
	if err != nil {
		a.addFreeChunk(segment, offset, actualSize)
		return 0, err
	}
	a.mem.setFree(oop, false)
	a.mem.setSegment(oop, segment)
	a.mem.setLocation(oop, offset)
	a.mem.setIsPointers(oop, isPointers)
	a.mem.SetRefCount(oop, 0)
	a.mem.setSizeWords(oop, actualSize)
	a.mem.setClassBits(oop, class)
	return oop, nil
}

func (a *Allocator) findChunk(preferredSegment, sizeWords int) (segment, offset, size int, err error) {
	class := sizeClassFor(sizeWords)
	order := make([]int, 0, heapSegmentCount)
	order = append(order, preferredSegment)
	for s := 0; s < heapSegmentCount; s++ {
		if s != preferredSegment {
			order = append(order, s)
		}
	}
	for _, seg := range order {
		if class == BigSize {
			break
		}
		if off, sz, ok := a.popFreeChunk(seg, class); ok {
			return seg, off, sz, nil
		}
	}
	for _, seg := range order {
		if head := a.freeChunks[seg][BigSize]; head != NonPointer && int(a.mem.Word(seg, int(head))) >= sizeWords {
			off, sz, _ := a.popFreeChunk(seg, BigSize)
			return seg, off, sz, nil
		}
	}
	return 0, 0, 0, ErrNoFreeChunk
}

// FreeChunk returns oop's heap chunk to its segment's free list and
// releases its object-table entry. Called only once a reference-count
// drop or a GC sweep has established the object is truly unreachable.
func (a *Allocator) FreeChunk(oop Oop) {
	segment := a.mem.Segment(oop)
	offset := a.mem.Location(oop)
	size := a.mem.SizeWords(oop)
	a.addFreeChunk(segment, offset, size)
	a.DeallocateOop(oop)
}

// CompactCurrentSegment coalesces every free chunk in a.currentSegment
// into a single run at the top of the segment by sliding all live chunks
// down to the bottom, in allocation order, updating their object-table
// location words as it goes. Mirrors objmemory.h's compactCurrentSegment
// / reverseHeapPointersAbove pairing, simplified to a single forward
// sliding pass since Go slices make the reference's double-ended pointer
// reversal trick unnecessary.
func (a *Allocator) CompactCurrentSegment(liveInOrder []Oop) {
	segment := a.currentSegment
	write := 0
	for _, oop := range liveInOrder {
		if a.mem.Free(oop) || a.mem.Segment(oop) != segment {
			continue
		}
		size := a.mem.SizeWords(oop)
		oldOffset := a.mem.Location(oop)
		if oldOffset != write {
			for w := 0; w < size; w++ {
				a.mem.SetWord(segment, write+w, a.mem.Word(segment, oldOffset+w))
			}
			a.mem.setLocation(oop, write)
		}
		write += size
	}
	for class := range a.freeChunks[segment] {
		a.freeChunks[segment][class] = NonPointer
	}
	if remaining := heapSpaceStop + 1 - write; remaining > 0 {
		a.addFreeChunk(segment, write, remaining)
	}
	a.currentSegment = (a.currentSegment + 1) % heapSegmentCount
}

// freeWordsEstimate sums every free-list entry's recorded size across
// every segment and size class, for the freeMemory primitive, the
// debugger's heap summary, and the interpreter's throttled low-space
// check. O(free chunk count) — Step only calls it once every
// lowSpaceCheckInterval bytecodes, never per bytecode.
func (a *Allocator) freeWordsEstimate() int {
	total := 0
	for seg := 0; seg < heapSegmentCount; seg++ {
		for class := range a.freeChunks[seg] {
			for cur := a.freeChunks[seg][class]; cur != NonPointer; {
				sz := int(a.mem.Word(seg, int(cur)))
				total += sz
				cur = Oop(a.mem.Word(seg, int(cur)+1))
			}
		}
	}
	return total
}
