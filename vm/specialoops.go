package vm

// Special oops: the fixed set of 52 well-known object pointers that the
// image and the interpreter both agree on without any lookup, per
// spec.md §3 ("Special oops") and the blue book's SystemTracer table
// (_examples/original_source/src/objmemory.h: LastSpecialOop = 52).
//
// The reference C++ source ships these in a header (oops.h) that is not
// part of the retrieved pack; the numbering below is this implementation's
// own assignment — internally consistent, burned into bootstrap() and the
// interpreter the same way the original burns its own numbering into both
// the image and the VM. What matters for the invariants in spec.md §8 is
// that every root here resolves to a real, class-bearing object after
// bootstrap, not the specific index chosen.
//
// Immediate SmallIntegers have no object-table slot; their "pointer"
// constants below are computed the same way the reference's MinusOnePointer
// / ZeroPointer / OnePointer / TwoPointer are (interpreter.h).
const (
	MinusOnePointer = Oop(0xFFFF) // SmallInteger(-1)
	ZeroPointer     = Oop(0x0001) // SmallInteger(0)
	OnePointer      = Oop(0x0003) // SmallInteger(1)
	TwoPointer      = Oop(0x0005) // SmallInteger(2)
)

// Object-table-resident special oops. Even values only (bit 0 clear).
const (
	NilPointer Oop = 2 * iota
	TruePointer
	FalsePointer
	SchedulerAssociationPointer
	ClassSmallIntegerPointer
	ClassLargePositiveIntegerPointer
	ClassLargeNegativeIntegerPointer
	ClassFloatPointer
	ClassCharacterPointer
	ClassStringPointer
	ClassSymbolPointer
	ClassArrayPointer
	ClassByteArrayPointer
	ClassMethodContextPointer
	ClassBlockContextPointer
	ClassCompiledMethodPointer
	ClassProcessPointer
	ClassSemaphorePointer
	ClassLinkedListPointer
	ClassAssociationPointer
	ClassMethodDictionaryPointer
	ClassClassPointer
	ClassMetaclassPointer
	ClassPointPointer
	ClassFormPointer
	ClassUndefinedObjectPointer
	ClassTruePointer
	ClassFalsePointer
	ClassMessagePointer
	ClassProcessorSchedulerPointer

	// Special selectors: bound to Smalltalk-level recovery sends, per
	// spec.md §4.5/§4.7/§4.8.
	DoesNotUnderstandSelector
	MustBeBooleanSelector
	CannotReturnSelector

	// Anchors into the bootstrap image used by the interpreter to find
	// its way back into well-known global state without a name lookup.
	SmalltalkDictionaryPointer
	SpecialSelectorsPointer
	CharacterTablePointer
)

// namedSpecialOopCount is the number of entries assigned above; padded
// with reserved slots up to LastSpecialOop so the table's shape matches
// spec.md's "fixed set of 52" even though this port only names 36.
const (
	namedSpecialOopCount = int(CharacterTablePointer)/2 + 1
	LastSpecialOop        = 52
)
