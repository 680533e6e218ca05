package vm

import (
	"io"
	"time"
)

// hal_fakes_test.go collects the minimal in-memory HAL implementations
// shared across file/io primitive tests, playing the role hostsim's
// recorded fixtures play for integration tests but scoped to exactly
// what a single primitive test needs to assert.

// fakeClock is a Clock whose MillisecondClock value the test controls
// directly rather than reading the wall clock, so timer-firing tests are
// deterministic.
type fakeClock struct {
	ms int64
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.ms*int64(time.Millisecond)) }
func (c *fakeClock) MillisecondClock() int64 { return c.ms }

// fakeInput hands back a fixed queue of events, one per PollEvent call,
// then reports idle.
type fakeInput struct {
	events []InputEvent
	pos    int
	mouseX int
	mouseY int
}

func (in *fakeInput) PollEvent() (InputEvent, bool) {
	if in.pos >= len(in.events) {
		return InputEvent{}, false
	}
	ev := in.events[in.pos]
	in.pos++
	return ev, true
}

func (in *fakeInput) MousePosition() (int, int) { return in.mouseX, in.mouseY }

// memFile is an in-memory FileHandle/FileSystem pair, standing in for
// hostsim's os-backed FileSystem so file primitive tests never touch the
// real disk.
type memFile struct {
	data []byte
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[off:end], p)
	return len(p), nil
}

func (f *memFile) Truncate(size int64) error {
	if size < int64(len(f.data)) {
		f.data = f.data[:size]
	}
	return nil
}

func (f *memFile) Size() (int64, error) { return int64(len(f.data)), nil }
func (f *memFile) Close() error         { return nil }

type memFileSystem struct {
	files map[string]*memFile
}

func newMemFileSystem() *memFileSystem {
	return &memFileSystem{files: make(map[string]*memFile)}
}

func (fs *memFileSystem) Open(name string, forWrite bool) (FileHandle, error) {
	f, ok := fs.files[name]
	if !ok {
		f = &memFile{}
		fs.files[name] = f
	}
	return f, nil
}

func (fs *memFileSystem) Remove(name string) error {
	delete(fs.files, name)
	return nil
}

func (fs *memFileSystem) Rename(oldName, newName string) error {
	f, ok := fs.files[oldName]
	if !ok {
		return errOutOfRange
	}
	fs.files[newName] = f
	delete(fs.files, oldName)
	return nil
}

func (fs *memFileSystem) Directory(path string) ([]string, error) {
	var names []string
	for name := range fs.files {
		names = append(names, name)
	}
	return names, nil
}

// newStringObject allocates a String/Symbol-shaped byte object holding s,
// for tests that need to pass a filename or buffer argument to a
// primitive as a real heap oop.
func newStringObject(t interface{ Fatalf(string, ...any) }, vm *Interpreter, class Oop, s string) Oop {
	oop, err := vm.allocateBytes(class, []byte(s))
	if err != nil {
		t.Fatalf("allocateBytes failed: %v", err)
	}
	return oop
}
