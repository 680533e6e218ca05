package vm

import "testing"

func newTestContextAccess() (*WordMemory, *Allocator, *ContextAccess) {
	mem := NewWordMemory(false)
	alloc := NewAllocator(mem)
	refs := NewRefCounter(mem, alloc)
	return mem, alloc, NewContextAccess(mem, refs)
}

func TestNewMethodContextInitialFields(t *testing.T) {
	_, alloc, ctx := newTestContextAccess()
	method := NewCompiledMethod(2, 1, 0, nil, nil)
	methodOop := Oop(2 * (LastSpecialOop + 1))
	receiver := SmallInteger(7)
	args := []Oop{SmallInteger(1), SmallInteger(2)}

	mc, err := ctx.NewMethodContext(alloc, method, methodOop, receiver, args)
	if err != nil {
		t.Fatalf("NewMethodContext failed: %v", err)
	}
	if ctx.Sender(mc) != NilPointer {
		t.Error("fresh context should have a nil sender")
	}
	if ctx.IP(mc) != 0 {
		t.Errorf("IP = %d, want 0", ctx.IP(mc))
	}
	if ctx.Receiver(mc) != receiver {
		t.Errorf("Receiver = %v, want %v", ctx.Receiver(mc), receiver)
	}
	if ctx.Method(mc) != methodOop {
		t.Error("Method should round-trip the installed method oop")
	}
	if got := ctx.TempAt(mc, 0); got != SmallInteger(1) {
		t.Errorf("TempAt(0) = %v, want arg 1", got)
	}
	if got := ctx.TempAt(mc, 1); got != SmallInteger(2) {
		t.Errorf("TempAt(1) = %v, want arg 2", got)
	}
	if got := ctx.TempAt(mc, 2); got != NilPointer {
		t.Errorf("TempAt(2) (temp slot) = %v, want NilPointer", got)
	}
}

func TestPushPopTopOnWorkingStack(t *testing.T) {
	_, alloc, ctx := newTestContextAccess()
	method := NewCompiledMethod(0, 0, 0, nil, nil)
	mc, err := ctx.NewMethodContext(alloc, method, Oop(2*(LastSpecialOop+1)), NilPointer, nil)
	if err != nil {
		t.Fatalf("NewMethodContext failed: %v", err)
	}

	ctx.Push(mc, SmallInteger(10))
	ctx.Push(mc, SmallInteger(20))
	if got := ctx.Top(mc); got != SmallInteger(20) {
		t.Errorf("Top = %v, want 20", got)
	}
	if got := ctx.Pop(mc); got != SmallInteger(20) {
		t.Errorf("Pop = %v, want 20", got)
	}
	if got := ctx.Pop(mc); got != SmallInteger(10) {
		t.Errorf("Pop = %v, want 10", got)
	}
}

func TestBlockContextDelegatesHomeToMethodContext(t *testing.T) {
	_, alloc, ctx := newTestContextAccess()
	method := NewCompiledMethod(1, 0, 0, nil, nil)
	mc, err := ctx.NewMethodContext(alloc, method, Oop(2*(LastSpecialOop+1)), SmallInteger(5), []Oop{SmallInteger(9)})
	if err != nil {
		t.Fatalf("NewMethodContext failed: %v", err)
	}
	block, err := ctx.NewBlockContext(alloc, mc, 0, 4, 8)
	if err != nil {
		t.Fatalf("NewBlockContext failed: %v", err)
	}

	if !ctx.IsBlockContext(block) {
		t.Error("IsBlockContext should be true for a BlockContext")
	}
	if ctx.IsBlockContext(mc) {
		t.Error("IsBlockContext should be false for a MethodContext")
	}
	if ctx.Home(block) != mc {
		t.Error("Home(block) should return its creating MethodContext")
	}
	if ctx.Home(mc) != mc {
		t.Error("Home(methodContext) should return itself")
	}
	if got := ctx.Receiver(block); got != SmallInteger(5) {
		t.Errorf("Receiver(block) via home = %v, want 5", got)
	}
	if got := ctx.TempAt(block, 0); got != SmallInteger(9) {
		t.Errorf("TempAt(block, 0) via home = %v, want 9", got)
	}

	ctx.SetSender(block, SmallInteger(0))
	if ctx.Sender(block) != SmallInteger(0) {
		t.Error("SetSender on a BlockContext should set its caller field")
	}
}
