package vm

// primitiveTransferredControl is the sentinel a primitive returns when it
// has already called SwitchContext itself (block activation), telling
// activate() not to push a result onto whatever context is now active.
const primitiveTransferredControl = NonPointer

// dispatch.go implements message lookup and the send/activate/return
// triple, per spec.md §4.6 and §4.7. sendSelector is the single entry
// point every bytecode that ends in a message send funnels through,
// whether the selector came from a literal-selector send, one of the two
// 16-slot special-selector ranges, or a super send.

// classOf returns the class oop of receiver, honoring SmallInteger's
// immediate encoding.
func (vm *Interpreter) classOf(receiver Oop) Oop {
	return vm.Mem.ClassBits(receiver)
}

// lookupMethodInClass walks startClass and its superclasses looking for
// selector, per spec.md §4.6's "search the receiver's class, then its
// superclass, and so on to Object" rule.
func (vm *Interpreter) lookupMethodInClass(startClass, selector Oop) (*CompiledMethod, Oop, bool) {
	for classOop := startClass; classOop != NilPointer && classOop != 0; {
		class := vm.Classes.ByOop(classOop)
		if class == nil {
			break
		}
		if m := class.Dictionary.Lookup(selector); m != nil {
			return m, classOop, true
		}
		if class.Superclass == nil {
			break
		}
		classOop = class.Superclass.Oop
	}
	return nil, 0, false
}

// sendSelector performs a full message send: cache lookup, then a real
// class-hierarchy search on a miss, then either a primitive attempt or a
// bytecode activation, falling back to doesNotUnderstand: if nothing in
// the hierarchy defines selector. args are popped from the active
// context's stack by the caller before this runs; receiver is args[-1]
// conceptually but passed explicitly since block activation never has
// one ambient stack to pop from.
func (vm *Interpreter) sendSelector(selector, receiver Oop, args []Oop) {
	vm.suspendIP()
	vm.messageSelector = selector
	class := vm.classOf(receiver)

	method, definingClass, ok := vm.Cache.Lookup(class, selector)
	if !ok {
		method, definingClass, ok = vm.lookupMethodInClass(class, selector)
		if ok {
			vm.Cache.Insert(class, selector, method, definingClass)
		}
	}
	if !ok {
		vm.doesNotUnderstand(receiver, selector, args)
		return
	}
	vm.activate(method, receiver, args)
}

// sendSuper is identical to sendSelector except the search starts one
// level above the *method's* home class rather than the receiver's
// actual class, per spec.md §4.6's super-send rule.
func (vm *Interpreter) sendSuper(selector, receiver Oop, args []Oop, fromClass Oop) {
	vm.suspendIP()
	vm.messageSelector = selector
	home := vm.Classes.ByOop(fromClass)
	if home == nil || home.Superclass == nil {
		vm.doesNotUnderstand(receiver, selector, args)
		return
	}
	method, _, ok := vm.lookupMethodInClass(home.Superclass.Oop, selector)
	if !ok {
		vm.doesNotUnderstand(receiver, selector, args)
		return
	}
	vm.activate(method, receiver, args)
}

// activate attempts method's primitive (if any), and only falls back to
// building a fresh MethodContext and running the bytecode body if the
// primitive isn't present or fails, per spec.md §4.8's "primitive failure
// falls back to the method body" rule.
func (vm *Interpreter) activate(method *CompiledMethod, receiver Oop, args []Oop) {
	vm.newMethod = method.Oop
	vm.sendReceiver = receiver
	vm.sendArgs = args
	if method.PrimitiveIndex != 0 {
		if result, success := vm.callPrimitive(method.PrimitiveIndex, receiver, args); success {
			// A primitive that already switched the active context itself
			// (block activation) signals that by returning this sentinel
			// instead of a real result — pushing onto the stack here would
			// land in the wrong frame.
			if result != primitiveTransferredControl {
				vm.pushResult(result)
			}
			return
		}
	}
	ctx, err := vm.Ctx.NewMethodContext(vm.Alloc, method, method.Oop, receiver, args)
	if err != nil {
		vm.GC.Collect(vm)
		ctx, err = vm.Ctx.NewMethodContext(vm.Alloc, method, method.Oop, receiver, args)
		if err != nil {
			vm.fail(err)
			return
		}
	}
	vm.Ctx.SetSender(ctx, vm.activeContext)
	vm.SwitchContext(ctx)
}

// pushResult delivers a primitive's (or an inlined optimized send's)
// result onto the sender context's stack without building a new frame at
// all — the common case, and the reason primitives are so much cheaper
// than a real activation.
func (vm *Interpreter) pushResult(result Oop) {
	vm.Ctx.Push(vm.activeContext, result)
}

// doesNotUnderstand: builds the Message object the spec requires
// (selector + argument array) and resends it as an ordinary message to
// the receiver, per spec.md §4.6/§4.8. If Object itself has no
// doesNotUnderstand: method installed (shouldn't happen post-bootstrap),
// the interpreter halts with a tier-3 error instead of looping forever.
func (vm *Interpreter) doesNotUnderstand(receiver, selector Oop, args []Oop) {
	msg, err := vm.allocateMessage(selector, args)
	if err != nil {
		vm.fail(err)
		return
	}
	class := vm.classOf(receiver)
	method, _, ok := vm.lookupMethodInClass(class, DoesNotUnderstandSelector)
	if !ok {
		vm.fail(errDoesNotUnderstandMissing)
		return
	}
	vm.activate(method, receiver, []Oop{msg})
}

// methodReturn pops back to sender with value as the result, unwinding
// the active context's home chain. Returning across an already-returned
// home context (a block outliving its enclosing method activation) is
// the #cannotReturn: case, per spec.md §4.7's non-local return rule.
func (vm *Interpreter) methodReturn(value Oop) {
	home := vm.Ctx.Home(vm.activeContext)
	sender := vm.Ctx.Sender(home)
	if sender == NilPointer || sender == 0 {
		vm.cannotReturn(value)
		return
	}
	vm.Refs.CountUp(value)
	oldContext := vm.activeContext
	vm.SwitchContext(sender)
	vm.Ctx.Push(vm.activeContext, value)
	vm.Refs.CountDown(oldContext)
}

func (vm *Interpreter) cannotReturn(value Oop) {
	receiver := vm.Ctx.Receiver(vm.activeContext)
	class := vm.classOf(receiver)
	if method, _, ok := vm.lookupMethodInClass(class, CannotReturnSelector); ok {
		vm.activate(method, receiver, []Oop{value})
		return
	}
	vm.fail(errCannotReturn)
}
