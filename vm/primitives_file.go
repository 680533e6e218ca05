package vm

// File primitives delegate straight to vm.HAL.Files, per spec.md §4.8 and
// §6; this interpreter package never touches the OS filesystem directly,
// so a headless test or the fixture player in hostsim can swap in
// whatever FileSystem implementation it likes.
const (
	PrimFileOpen    = 150
	PrimFileClose   = 151
	PrimFileReadAt  = 152
	PrimFileWriteAt = 153
	PrimFileSize    = 154
	PrimFileDelete  = 155
	PrimFileRename  = 156
)

func init() {
	registerPrimitive(PrimFileOpen, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Files == nil || len(args) != 2 {
			return 0, false
		}
		name, ok := vm.readString(args[0])
		if !ok {
			return 0, false
		}
		forWrite := args[1] == TruePointer
		handle, err := vm.HAL.Files.Open(name, forWrite)
		if err != nil {
			return 0, false
		}
		vm.openFiles[receiver] = handle
		return receiver, true
	})

	registerPrimitive(PrimFileClose, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		handle, ok := vm.openFiles[receiver]
		if !ok {
			return 0, false
		}
		delete(vm.openFiles, receiver)
		if err := handle.Close(); err != nil {
			return 0, false
		}
		return receiver, true
	})

	registerPrimitive(PrimFileReadAt, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		handle, ok := vm.openFiles[receiver]
		if !ok || len(args) != 2 || !args[0].IsInteger() || !args[1].IsInteger() {
			return 0, false
		}
		offset := args[0].IntegerValue()
		count := args[1].IntegerValue()
		if offset < 0 || count < 0 {
			return 0, false
		}
		buf := make([]byte, count)
		n, err := handle.ReadAt(buf, int64(offset))
		if err != nil && n == 0 {
			return 0, false
		}
		result, allocErr := vm.allocateBytes(ClassStringPointer, buf[:n])
		if allocErr != nil {
			return 0, false
		}
		return result, true
	})

	registerPrimitive(PrimFileWriteAt, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		handle, ok := vm.openFiles[receiver]
		if !ok || len(args) != 2 || !args[0].IsInteger() {
			return 0, false
		}
		offset := args[0].IntegerValue()
		data, ok := vm.readString(args[1])
		if offset < 0 || !ok {
			return 0, false
		}
		n, err := handle.WriteAt([]byte(data), int64(offset))
		if err != nil {
			return 0, false
		}
		return SmallInteger(n), true
	})

	registerPrimitive(PrimFileSize, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		handle, ok := vm.openFiles[receiver]
		if !ok {
			return 0, false
		}
		size, err := handle.Size()
		if err != nil || !FitsSmallInteger(int(size)) {
			return 0, false
		}
		return SmallInteger(int(size)), true
	})

	registerPrimitive(PrimFileDelete, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Files == nil || len(args) != 1 {
			return 0, false
		}
		name, ok := vm.readString(args[0])
		if !ok {
			return 0, false
		}
		if err := vm.HAL.Files.Remove(name); err != nil {
			return 0, false
		}
		return receiver, true
	})

	registerPrimitive(PrimFileRename, func(vm *Interpreter, receiver Oop, args []Oop) (Oop, bool) {
		if vm.HAL == nil || vm.HAL.Files == nil || len(args) != 2 {
			return 0, false
		}
		oldName, ok1 := vm.readString(args[0])
		newName, ok2 := vm.readString(args[1])
		if !ok1 || !ok2 {
			return 0, false
		}
		if err := vm.HAL.Files.Rename(oldName, newName); err != nil {
			return 0, false
		}
		return receiver, true
	})
}

// allocateBytes builds a fresh byte object of the given class holding
// data verbatim, for primitives that hand file contents back into the
// image as a String.
func (vm *Interpreter) allocateBytes(class Oop, data []byte) (Oop, error) {
	size := headerSize + (len(data)+1)/2
	oop, err := vm.allocateOrCollect(size, class, false)
	if err != nil {
		return 0, err
	}
	vm.Mem.setOddByte(oop, len(data)%2 == 1)
	for i, b := range data {
		vm.Mem.SetFetchByte(oop, i, b)
	}
	return oop, nil
}

// readString copies a String/Symbol heap object's bytes out as a Go
// string, used by every primitive that needs a filename or similar
// host-side text argument.
func (vm *Interpreter) readString(oop Oop) (string, bool) {
	class := vm.Mem.ClassBits(oop)
	if class != ClassStringPointer && class != ClassSymbolPointer {
		return "", false
	}
	n := vm.Mem.FetchByteLength(oop)
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = vm.Mem.FetchByte(oop, i)
	}
	return string(buf), true
}
