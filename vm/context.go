package vm

// Context field layout, per spec.md §4.7: MethodContext and BlockContext
// are both ordinary pointer objects allocated on the heap, sharing a
// common header shape so the interpreter can treat "the current frame" as
// one oop regardless of which flavor it activated.
//
// MethodContext: sender, ip, sp, method, receiver, then args+temps, then
// the working stack.
// BlockContext: caller (transient, valid only while running) in the
// sender slot, the same ip and sp, then argumentCount, initialIP (block
// body start) and home (the MethodContext that created it) in place of
// method/receiver, then the working stack.
const (
	ctxSenderIndex  = 0
	ctxIPIndex      = 1
	ctxSPIndex      = 2
	ctxMethodIndex  = 3 // MethodContext only
	ctxReceiverIndex = 4 // MethodContext only

	blkCallerIndex    = 0
	blkArgCountIndex  = 3
	blkInitialIPIndex = 4
	blkHomeIndex      = 5

	methodContextFixedFields = 5
	blockContextFixedFields  = 6
)

// ContextAccess wraps WordMemory+RefCounter with the field-level
// operations the interpreter's send/return sequence needs, per spec.md
// §4.7's "create/activate/return" triple. Kept separate from Interpreter
// so context.go has no dependency on the dispatch loop.
type ContextAccess struct {
	mem  *WordMemory
	refs *RefCounter
}

// NewContextAccess wires context field accessors to shared memory state.
func NewContextAccess(mem *WordMemory, refs *RefCounter) *ContextAccess {
	return &ContextAccess{mem: mem, refs: refs}
}

// NewMethodContext allocates a MethodContext for method activated with
// receiver and args, sized to hold its temporaries and working stack.
func (c *ContextAccess) NewMethodContext(alloc *Allocator, method *CompiledMethod, methodOop, receiver Oop, args []Oop) (Oop, error) {
	fixed := methodContextFixedFields
	frame := method.FrameSize()
	size := headerSize + fixed + frame
	ctx, err := alloc.AllocateChunk(alloc.currentSegment, size, ClassMethodContextPointer, true)
	if err != nil {
		return 0, err
	}
	c.mem.SetFetchPointer(ctx, ctxSenderIndex, NilPointer)
	c.mem.SetFetchPointer(ctx, ctxIPIndex, SmallInteger(0))
	c.mem.SetFetchPointer(ctx, ctxSPIndex, SmallInteger(len(args)+method.NumTemps))
	c.refs.StorePointer(ctx, ctxMethodIndex, methodOop)
	c.refs.StorePointer(ctx, ctxReceiverIndex, receiver)
	for i, a := range args {
		c.refs.StorePointer(ctx, methodContextFixedFields+i, a)
	}
	for i := 0; i < method.NumTemps; i++ {
		c.mem.SetFetchPointer(ctx, methodContextFixedFields+len(args)+i, NilPointer)
	}
	return ctx, nil
}

// NewBlockContext allocates a BlockContext sharing home's temporaries
// through indirection (it keeps a pointer to home, not a copy), per
// spec.md §4.7's block activation rules.
func (c *ContextAccess) NewBlockContext(alloc *Allocator, home Oop, argCount, initialIP, stackSize int) (Oop, error) {
	size := headerSize + blockContextFixedFields + stackSize
	ctx, err := alloc.AllocateChunk(alloc.currentSegment, size, ClassBlockContextPointer, true)
	if err != nil {
		return 0, err
	}
	c.mem.SetFetchPointer(ctx, blkCallerIndex, NilPointer)
	c.mem.SetFetchPointer(ctx, ctxIPIndex, SmallInteger(initialIP))
	c.mem.SetFetchPointer(ctx, ctxSPIndex, SmallInteger(0))
	c.mem.SetFetchPointer(ctx, blkArgCountIndex, SmallInteger(argCount))
	c.mem.SetFetchPointer(ctx, blkInitialIPIndex, SmallInteger(initialIP))
	c.refs.StorePointer(ctx, blkHomeIndex, home)
	return ctx, nil
}

// IsBlockContext reports whether ctx's class is BlockContext rather than
// MethodContext; the interpreter needs this to pick which field layout
// applies whenever it walks a sender chain generically (thisContext,
// the debugger, and the GC's root walk all do this).
func (c *ContextAccess) IsBlockContext(ctx Oop) bool {
	return c.mem.ClassBits(ctx) == ClassBlockContextPointer
}

func (c *ContextAccess) Sender(ctx Oop) Oop {
	if c.IsBlockContext(ctx) {
		return c.mem.FetchPointer(ctx, blkCallerIndex)
	}
	return c.mem.FetchPointer(ctx, ctxSenderIndex)
}

func (c *ContextAccess) SetSender(ctx, sender Oop) {
	idx := ctxSenderIndex
	if c.IsBlockContext(ctx) {
		idx = blkCallerIndex
	}
	c.refs.StorePointer(ctx, idx, sender)
}

func (c *ContextAccess) IP(ctx Oop) int { return c.mem.FetchPointer(ctx, ctxIPIndex).IntegerValue() }

func (c *ContextAccess) SetIP(ctx Oop, ip int) {
	c.mem.SetFetchPointer(ctx, ctxIPIndex, SmallInteger(ip))
}

func (c *ContextAccess) SP(ctx Oop) int { return c.mem.FetchPointer(ctx, ctxSPIndex).IntegerValue() }

func (c *ContextAccess) SetSP(ctx Oop, sp int) {
	c.mem.SetFetchPointer(ctx, ctxSPIndex, SmallInteger(sp))
}

// Home returns the MethodContext backing ctx: ctx itself if it already is
// one, or its home field if it's a block.
func (c *ContextAccess) Home(ctx Oop) Oop {
	if c.IsBlockContext(ctx) {
		return c.mem.FetchPointer(ctx, blkHomeIndex)
	}
	return ctx
}

func (c *ContextAccess) Method(ctx Oop) Oop {
	return c.mem.FetchPointer(c.Home(ctx), ctxMethodIndex)
}

func (c *ContextAccess) Receiver(ctx Oop) Oop {
	return c.mem.FetchPointer(c.Home(ctx), ctxReceiverIndex)
}

// stackBase returns the field index where ctx's working stack (and, for a
// MethodContext, its args+temps) begins.
func (c *ContextAccess) stackBase(ctx Oop) int {
	if c.IsBlockContext(ctx) {
		return blockContextFixedFields
	}
	return methodContextFixedFields
}

// Push appends value to ctx's working stack and bumps sp.
func (c *ContextAccess) Push(ctx, value Oop) {
	sp := c.SP(ctx)
	c.refs.StorePointer(ctx, c.stackBase(ctx)+sp, value)
	c.SetSP(ctx, sp+1)
}

// Pop removes and returns the top of ctx's working stack.
func (c *ContextAccess) Pop(ctx Oop) Oop {
	sp := c.SP(ctx) - 1
	v := c.mem.FetchPointer(ctx, c.stackBase(ctx)+sp)
	c.SetSP(ctx, sp)
	return v
}

// Top returns the top of ctx's working stack without popping it.
func (c *ContextAccess) Top(ctx Oop) Oop {
	return c.mem.FetchPointer(ctx, c.stackBase(ctx)+c.SP(ctx)-1)
}

// TempAt returns argument/temporary slot index of ctx's home MethodContext.
func (c *ContextAccess) TempAt(ctx Oop, index int) Oop {
	home := c.Home(ctx)
	return c.mem.FetchPointer(home, methodContextFixedFields+index)
}

// SetTempAt stores into argument/temporary slot index of ctx's home MethodContext.
func (c *ContextAccess) SetTempAt(ctx Oop, index int, value Oop) {
	home := c.Home(ctx)
	c.refs.StorePointer(home, methodContextFixedFields+index, value)
}
