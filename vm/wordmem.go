package vm

import "github.com/pkg/errors"

// Layout constants from spec.md §3 / the blue-book object memory
// (_examples/original_source/src/objmemory.h, conf.h).
const (
	SegmentCount = 16
	SegmentSize  = 65536

	// BigSize is the smallest chunk size without its own exact-size free
	// list; chunks of BigSize words or more share the unordered "big" list
	// at index BigSize.
	BigSize = 20
	// HugeSize is the smallest size that overflows the 8-bit saturating
	// refcount field in the object table.
	HugeSize = 256

	headerSize = 2 // size + class words, per heap chunk

	objectTableSegment = SegmentCount - 1
	objectTableStart   = 0
	objectTableSize    = SegmentSize - 2
	freePointerList    = objectTableStart + objectTableSize

	heapSegmentCount = SegmentCount - 1
	firstHeapSegment = 0
	lastHeapSegment  = firstHeapSegment + heapSegmentCount - 1

	firstFreeChunkListSize = BigSize + 1
	heapSpaceStop          = SegmentSize - firstFreeChunkListSize - 1
	firstFreeChunkList     = heapSpaceStop + 1
)

// WordMemory is the VM's entire addressable store: SegmentCount segments of
// SegmentSize 16-bit words apiece. The last segment holds the object table;
// the rest hold heap chunks. Addressing is always (segment, offset) per
// spec.md §4.1 — there are no bounds checks here in the hot path, matching
// the reference implementation's release-build behaviour.
type WordMemory struct {
	segments [SegmentCount][SegmentSize]uint16
	checked  bool // RuntimeChecking; enables cantBeIntegerObject-style asserts
}

// NewWordMemory returns a zeroed word memory of the fixed blue-book shape.
func NewWordMemory(runtimeChecking bool) *WordMemory {
	return &WordMemory{checked: runtimeChecking}
}

// Word reads the word at (segment, offset).
func (m *WordMemory) Word(segment, offset int) uint16 {
	return m.segments[segment][offset]
}

// SetWord writes the word at (segment, offset).
func (m *WordMemory) SetWord(segment, offset int, value uint16) {
	m.segments[segment][offset] = value
}

// Byte reads byte `which` (0 = high byte, 1 = low byte) of the word at
// (segment, offset).
func (m *WordMemory) Byte(segment, offset, which int) byte {
	w := m.segments[segment][offset]
	if which == 0 {
		return byte(w >> 8)
	}
	return byte(w)
}

// SetByte writes byte `which` of the word at (segment, offset), leaving the
// other byte untouched.
func (m *WordMemory) SetByte(segment, offset, which int, value byte) {
	w := m.segments[segment][offset]
	if which == 0 {
		w = uint16(value)<<8 | (w & 0x00ff)
	} else {
		w = (w & 0xff00) | uint16(value)
	}
	m.segments[segment][offset] = w
}

// Bits reads the bit field [first,last] (MSB = bit 0) of the word at
// (segment, offset).
func (m *WordMemory) Bits(segment, offset, first, last int) uint16 {
	return extractBits(first, last, m.segments[segment][offset])
}

// SetBits writes the bit field [first,last] of the word at (segment, offset).
func (m *WordMemory) SetBits(segment, offset, first, last int, value uint16) {
	w := m.segments[segment][offset]
	m.segments[segment][offset] = putBits(first, last, w, value)
}

// ---------------------------------------------------------------------------
// Object table entry accessors. Word 0: count[0:7], odd[8], pointer[9],
// free[10], segment[12:15]. Word 1: location (word offset in that segment).
// ---------------------------------------------------------------------------

func (m *WordMemory) otWord0(oop Oop) uint16 { return m.Word(objectTableSegment, objectTableStart+oop.index()) }
func (m *WordMemory) otWord1(oop Oop) uint16 {
	return m.Word(objectTableSegment, objectTableStart+oop.index()+1)
}
func (m *WordMemory) setOTWord0(oop Oop, v uint16) { m.SetWord(objectTableSegment, objectTableStart+oop.index(), v) }
func (m *WordMemory) setOTWord1(oop Oop, v uint16) {
	m.SetWord(objectTableSegment, objectTableStart+oop.index()+1, v)
}

// RefCount returns the 0-255 saturating reference count stored in the
// object table entry for oop.
func (m *WordMemory) RefCount(oop Oop) int { return int(extractBits(0, 7, m.otWord0(oop))) }

// SetRefCount sets the reference count field. Callers are responsible for
// saturation (see refcount.go).
func (m *WordMemory) SetRefCount(oop Oop, count int) {
	m.setOTWord0(oop, putBits(0, 7, m.otWord0(oop), uint16(count)))
}

// OddByte reports whether the heap chunk's last word holds only one valid byte.
func (m *WordMemory) OddByte(oop Oop) bool { return extractBits(8, 8, m.otWord0(oop)) == 1 }

func (m *WordMemory) setOddByte(oop Oop, odd bool) {
	v := uint16(0)
	if odd {
		v = 1
	}
	m.setOTWord0(oop, putBits(8, 8, m.otWord0(oop), v))
}

// IsPointers reports whether the heap chunk's body holds oops (true) or
// packed bytes (false).
func (m *WordMemory) IsPointers(oop Oop) bool { return extractBits(9, 9, m.otWord0(oop)) == 1 }

func (m *WordMemory) setIsPointers(oop Oop, pointers bool) {
	v := uint16(0)
	if pointers {
		v = 1
	}
	m.setOTWord0(oop, putBits(9, 9, m.otWord0(oop), v))
}

// Free reports whether this OT entry is unallocated (on the free-pointer list).
func (m *WordMemory) Free(oop Oop) bool { return extractBits(10, 10, m.otWord0(oop)) == 1 }

func (m *WordMemory) setFree(oop Oop, free bool) {
	v := uint16(0)
	if free {
		v = 1
	}
	m.setOTWord0(oop, putBits(10, 10, m.otWord0(oop), v))
}

// Segment returns the heap segment number holding oop's chunk.
func (m *WordMemory) Segment(oop Oop) int { return int(extractBits(12, 15, m.otWord0(oop))) }

func (m *WordMemory) setSegment(oop Oop, segment int) {
	m.setOTWord0(oop, putBits(12, 15, m.otWord0(oop), uint16(segment)))
}

// Location returns the word offset of oop's heap chunk within its segment.
func (m *WordMemory) Location(oop Oop) int { return int(m.otWord1(oop)) }

func (m *WordMemory) setLocation(oop Oop, location int) { m.setOTWord1(oop, uint16(location)) }

// cantBeIntegerObject asserts oop is not an immediate when RuntimeChecking
// is enabled, mirroring objmemory.h's cantBeIntegerObject debug assert.
func (m *WordMemory) cantBeIntegerObject(oop Oop) error {
	if m.checked && oop.IsInteger() {
		return errors.New("wordmem: small integer has no object table entry")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Heap chunk accessors: word 0 = size (in words, includes header),
// word 1 = class oop, then the body.
// ---------------------------------------------------------------------------

func (m *WordMemory) chunkWord(oop Oop, offset int) uint16 {
	return m.Word(m.Segment(oop), m.Location(oop)+offset)
}

func (m *WordMemory) setChunkWord(oop Oop, offset int, v uint16) {
	m.SetWord(m.Segment(oop), m.Location(oop)+offset, v)
}

// SizeWords returns the chunk's total size in words, header included.
func (m *WordMemory) SizeWords(oop Oop) int { return int(m.chunkWord(oop, 0)) }

func (m *WordMemory) setSizeWords(oop Oop, size int) { m.setChunkWord(oop, 0, uint16(size)) }

// ClassBits returns the raw class oop stored in the chunk header, or
// ClassSmallInteger if oop is itself an immediate (blue book pg. 686).
func (m *WordMemory) ClassBits(oop Oop) Oop {
	if oop.IsInteger() {
		return ClassSmallIntegerPointer
	}
	return Oop(m.chunkWord(oop, 1))
}

func (m *WordMemory) setClassBits(oop Oop, class Oop) { m.setChunkWord(oop, 1, uint16(class)) }

// FetchWordLength returns the number of body words (excludes the header).
func (m *WordMemory) FetchWordLength(oop Oop) int { return m.SizeWords(oop) - headerSize }

// FetchByteLength returns the number of valid body bytes for a byte object.
func (m *WordMemory) FetchByteLength(oop Oop) int {
	n := m.FetchWordLength(oop) * 2
	if m.OddByte(oop) {
		n--
	}
	return n
}

// FetchPointer returns body word fieldIndex interpreted as an oop.
func (m *WordMemory) FetchPointer(oop Oop, fieldIndex int) Oop {
	return Oop(m.chunkWord(oop, headerSize+fieldIndex))
}

// SetFetchPointer stores value into body word fieldIndex. Does not touch
// reference counts; callers use RefCounter.StorePointer for that.
func (m *WordMemory) SetFetchPointer(oop Oop, fieldIndex int, value Oop) {
	m.setChunkWord(oop, headerSize+fieldIndex, uint16(value))
}

// FetchByte returns body byte byteIndex (0-based, within the packed byte body).
func (m *WordMemory) FetchByte(oop Oop, byteIndex int) byte {
	wordOffset := headerSize + byteIndex/2
	which := byteIndex % 2
	return m.Byte(m.Segment(oop), m.Location(oop)+wordOffset, which)
}

// SetFetchByte stores value into body byte byteIndex.
func (m *WordMemory) SetFetchByte(oop Oop, byteIndex int, value byte) {
	wordOffset := headerSize + byteIndex/2
	which := byteIndex % 2
	m.SetByte(m.Segment(oop), m.Location(oop)+wordOffset, which, value)
}
