package vm

// bootstrap.go builds the class hierarchy and installs every primitive
// method the interpreter registered in primitives_*.go's init()
// functions, the way the teacher's vm/vm.go bootstrap() wires up Object,
// Class, the magnitude/collection hierarchy, and each registerXPrimitives
// family — generalized here to allocate every class as a real heap
// object (per spec.md §4.6) instead of a bare Go struct.

// NewVM assembles a fully bootstrapped interpreter: class hierarchy,
// special selectors reachable through the symbol table, an initial
// process, and the HAL wired to host.
func NewVM(cfg *Config, hal *HAL) (*Interpreter, error) {
	vm := NewInterpreter(cfg)
	vm.HAL = hal
	vm.Scheduler = NewScheduler(vm.Mem, vm.Refs)
	if err := vm.bootstrapClasses(); err != nil {
		return nil, err
	}
	if err := vm.bootstrapInitialProcess(); err != nil {
		return nil, err
	}
	return vm, nil
}

// classSpec is a declarative row in the bootstrap table: a class name, its
// superclass's name (empty for Object), and its own new instance
// variables in order.
type classSpec struct {
	name       string
	superclass string
	ivars      []string
	classOop   Oop // special-oop slot this class must land in, or 0
}

var coreClassSpecs = []classSpec{
	{name: "Object", classOop: 0},
	{name: "Behavior", superclass: "Object", ivars: []string{"superclass", "methodDictionary", "instanceSpec"}},
	{name: "ClassDescription", superclass: "Behavior"},
	{name: "Class", superclass: "ClassDescription", classOop: ClassClassPointer},
	{name: "Metaclass", superclass: "ClassDescription", classOop: ClassMetaclassPointer},
	{name: "UndefinedObject", superclass: "Object", classOop: ClassUndefinedObjectPointer},
	{name: "Boolean", superclass: "Object"},
	{name: "True", superclass: "Boolean", classOop: ClassTruePointer},
	{name: "False", superclass: "Boolean", classOop: ClassFalsePointer},
	{name: "Magnitude", superclass: "Object"},
	{name: "Character", superclass: "Magnitude", classOop: ClassCharacterPointer},
	{name: "Number", superclass: "Magnitude"},
	{name: "Integer", superclass: "Number"},
	{name: "SmallInteger", superclass: "Integer", classOop: ClassSmallIntegerPointer},
	{name: "LargePositiveInteger", superclass: "Integer", classOop: ClassLargePositiveIntegerPointer},
	{name: "LargeNegativeInteger", superclass: "LargePositiveInteger", classOop: ClassLargeNegativeIntegerPointer},
	{name: "Float", superclass: "Number", classOop: ClassFloatPointer},
	{name: "LookupKey", superclass: "Magnitude", ivars: []string{"key"}},
	{name: "Association", superclass: "LookupKey", ivars: []string{"value"}, classOop: ClassAssociationPointer},
	{name: "Collection", superclass: "Object"},
	{name: "ArrayedCollection", superclass: "Collection"},
	{name: "Array", superclass: "ArrayedCollection", classOop: ClassArrayPointer},
	{name: "ByteArray", superclass: "ArrayedCollection", classOop: ClassByteArrayPointer},
	{name: "CharacterArray", superclass: "ArrayedCollection"},
	{name: "String", superclass: "CharacterArray", classOop: ClassStringPointer},
	{name: "Symbol", superclass: "String", classOop: ClassSymbolPointer},
	{name: "HashedCollection", superclass: "Collection", ivars: []string{"tally"}},
	{name: "Dictionary", superclass: "HashedCollection"},
	{name: "MethodDictionary", superclass: "HashedCollection", classOop: ClassMethodDictionaryPointer},
	{name: "Set", superclass: "HashedCollection"},
	{name: "Link", superclass: "Object", ivars: []string{"nextLink"}},
	{name: "LinkedList", superclass: "Collection", ivars: []string{"firstLink", "lastLink"}, classOop: ClassLinkedListPointer},
	{name: "Process", superclass: "Link", ivars: []string{"suspendedContext", "priority", "myList"}, classOop: ClassProcessPointer},
	{name: "Semaphore", superclass: "LinkedList", ivars: []string{"excessSignals"}, classOop: ClassSemaphorePointer},
	{name: "ProcessorScheduler", superclass: "Object", ivars: []string{"processLists", "activeProcess"}, classOop: ClassProcessorSchedulerPointer},
	{name: "ContextPart", superclass: "Object", ivars: []string{"sender", "instructionPointer", "stackPointer"}},
	{name: "MethodContext", superclass: "ContextPart", ivars: []string{"method", "receiver"}, classOop: ClassMethodContextPointer},
	{name: "BlockContext", superclass: "ContextPart", ivars: []string{"argumentCount", "initialIP", "home"}, classOop: ClassBlockContextPointer},
	{name: "CompiledMethod", superclass: "ByteArray", classOop: ClassCompiledMethodPointer},
	{name: "Point", superclass: "Object", ivars: []string{"x", "y"}, classOop: ClassPointPointer},
	{name: "Form", superclass: "Object", ivars: []string{"bits", "width", "height", "offset"}, classOop: ClassFormPointer},
	{name: "BitBlt", superclass: "Object", ivars: []string{
		"destForm", "sourceForm", "halftoneForm", "combinationRule",
		"destX", "destY", "width", "height", "sourceX", "sourceY",
	}},
	{name: "Message", superclass: "Object", ivars: []string{"selector", "arguments"}, classOop: ClassMessagePointer},
	{name: "SystemDictionary", superclass: "Dictionary"},
}

func (vm *Interpreter) bootstrapClasses() error {
	for _, spec := range coreClassSpecs {
		if err := vm.declareClass(spec); err != nil {
			return err
		}
	}
	vm.registerPrimitiveMethods()
	return nil
}

func (vm *Interpreter) declareClass(spec classSpec) error {
	var super *Class
	if spec.superclass != "" {
		super = vm.Classes.Lookup(spec.superclass)
	}
	classOop := spec.classOop
	if classOop == 0 {
		oop, err := vm.allocateOrCollect(headerSize+3, ClassClassPointer, true)
		if err != nil {
			return err
		}
		classOop = oop
	}
	c := &Class{
		Oop:        classOop,
		Name:       spec.name,
		Superclass: super,
		NumIvars:   len(spec.ivars),
		IvarNames:  spec.ivars,
		Dictionary: NewMethodDictionary(8),
		ClassDict:  NewMethodDictionary(4),
	}
	vm.Classes.Register(c)
	return nil
}

// addMethod installs a primitive method under selector on class, with a
// minimal bytecode fallback body (just "^self") for when the primitive
// fails and no richer Smalltalk-level implementation was supplied. Real
// images compile a proper fallback from source; this port's bootstrap
// only needs the primitive path to exercise spec.md's invariants.
func (vm *Interpreter) addMethod(className, selector string, numArgs, primitiveIndex int) {
	class := vm.Classes.Lookup(className)
	if class == nil {
		return
	}
	sel := vm.Symbols.Intern(selector)
	m := NewCompiledMethod(numArgs, 0, primitiveIndex, nil, []byte{ReturnReceiver})
	m.Selector = sel
	m.Class = class
	if _, err := vm.allocateMethod(m); err != nil {
		return
	}
	class.Dictionary.Put(sel, m)
}

func (vm *Interpreter) registerPrimitiveMethods() {
	vm.addMethod("SmallInteger", "+", 1, PrimAdd)
	vm.addMethod("SmallInteger", "-", 1, PrimSubtract)
	vm.addMethod("SmallInteger", "*", 1, PrimMultiply)
	vm.addMethod("SmallInteger", "/", 1, PrimDivide)
	vm.addMethod("SmallInteger", "\\\\", 1, PrimMod)
	vm.addMethod("SmallInteger", "//", 1, PrimIntegerDiv)
	vm.addMethod("SmallInteger", "<", 1, PrimLessThan)
	vm.addMethod("SmallInteger", ">", 1, PrimGreaterThan)
	vm.addMethod("SmallInteger", "<=", 1, PrimLessOrEqual)
	vm.addMethod("SmallInteger", ">=", 1, PrimGreaterOrEqual)
	vm.addMethod("SmallInteger", "=", 1, PrimEqual)
	vm.addMethod("SmallInteger", "~=", 1, PrimNotEqual)
	vm.addMethod("SmallInteger", "bitAnd:", 1, PrimBitAnd)
	vm.addMethod("SmallInteger", "bitOr:", 1, PrimBitOr)
	vm.addMethod("SmallInteger", "bitXor:", 1, PrimBitXor)
	vm.addMethod("SmallInteger", "bitShift:", 1, PrimBitShift)
	vm.addMethod("SmallInteger", "asFloat", 0, PrimAsFloat)

	vm.addMethod("Float", "+", 1, PrimFloatAdd)
	vm.addMethod("Float", "-", 1, PrimFloatSubtract)
	vm.addMethod("Float", "*", 1, PrimFloatMultiply)
	vm.addMethod("Float", "/", 1, PrimFloatDivide)
	vm.addMethod("Float", "<", 1, PrimFloatLessThan)
	vm.addMethod("Float", ">", 1, PrimFloatGreaterThan)
	vm.addMethod("Float", "<=", 1, PrimFloatLessOrEqual)
	vm.addMethod("Float", ">=", 1, PrimFloatGreaterOrEqual)
	vm.addMethod("Float", "=", 1, PrimFloatEqual)
	vm.addMethod("Float", "truncated", 0, PrimFloatTruncated)
	vm.addMethod("Float", "fractionPart", 0, PrimFloatFractionPart)
	vm.addMethod("Float", "exponent", 0, PrimFloatExponent)
	vm.addMethod("Float", "timesTwoPower:", 1, PrimFloatTimesTwoPower)

	vm.addMethod("Object", "class", 0, PrimClass)
	vm.addMethod("Object", "==", 1, PrimIdentityEqual)
	vm.addMethod("Object", "basicAt:", 1, PrimAt)
	vm.addMethod("Object", "basicAt:put:", 2, PrimAtPut)
	vm.addMethod("Object", "basicSize", 0, PrimSize)
	vm.addMethod("Object", "instVarAt:", 1, PrimInstVarAt)
	vm.addMethod("Object", "instVarAt:put:", 2, PrimInstVarAtPut)
	vm.addMethod("Object", "identityHash", 0, PrimIdentityHash)
	vm.addMethod("Object", "become:", 1, PrimBecome)
	vm.addMethod("Object", "perform:", 1, PrimPerform)
	vm.addMethod("Object", "perform:with:", 2, PrimPerformWith)

	vm.addMethod("Behavior", "basicNew", 0, PrimBasicNew)
	vm.addMethod("Behavior", "basicNew:", 1, PrimBasicNewSized)

	vm.addMethod("BlockContext", "value", 0, PrimValue)
	vm.addMethod("BlockContext", "value:", 1, PrimValueColon)
	vm.addMethod("BlockContext", "value:value:", 2, PrimValueValue)
	vm.addMethod("ContextPart", "blockCopy:", 1, PrimBlockCopy)

	vm.addMethod("Semaphore", "wait", 0, PrimWait)
	vm.addMethod("Semaphore", "signal", 0, PrimSignal)

	vm.addMethod("SystemDictionary", "garbageCollect", 0, PrimGarbageCollect)
	vm.addMethod("SystemDictionary", "freeMemory", 0, PrimFreeMemory)
	vm.addMethod("SystemDictionary", "quit", 0, PrimQuit)

	vm.addMethod("BitBlt", "copyBits", 0, PrimCopyBits)
}

// bootstrapInitialProcess gives the image a single runnable process
// parked in a trivial MethodContext so tests can drive Run() immediately
// without hand-building a context first.
func (vm *Interpreter) bootstrapInitialProcess() error {
	objectClass := vm.Classes.Lookup("Object")
	receiver, err := vm.allocateOrCollect(headerSize, objectClass.Oop, true)
	if err != nil {
		return err
	}
	idleMethod := NewCompiledMethod(0, 0, 0, nil, []byte{ReturnReceiver})
	idleMethod.Class = objectClass
	if _, err := vm.allocateMethod(idleMethod); err != nil {
		return err
	}
	ctx, err := vm.Ctx.NewMethodContext(vm.Alloc, idleMethod, idleMethod.Oop, receiver, nil)
	if err != nil {
		return err
	}
	proc, err := vm.Scheduler.NewProcess(vm.Alloc, ctx, vm.Config.InitialProcessPriority)
	if err != nil {
		return err
	}
	vm.Scheduler.Resume(proc)
	vm.Scheduler.scheduleNext(vm)
	return nil
}
