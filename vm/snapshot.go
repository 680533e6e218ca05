package vm

import (
	"encoding/binary"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// snapshotMagic tags the start of every snapshot file so Load can fail
// fast on a file that was never one of ours, per spec.md §6's snapshot
// format. Unrelated to the blue book's own on-disk image layout (which
// this port doesn't try to byte-match), but grounded the same way the
// teacher's vm/image_reader.go / image_writer.go frame their own
// CBOR-headered format.
var snapshotMagic = [4]byte{'B', 'L', 'U', '1'}

// snapshotHeader carries everything besides the raw word memory needed to
// resume execution: which process was active, the allocator's free-list
// cursors, and the method cache generation (so a freshly loaded image
// starts with a cold, not stale, cache).
type snapshotHeader struct {
	ActiveContext  Oop   `cbor:"active_context"`
	ActiveProcess  Oop   `cbor:"active_process"`
	AllProcesses   []Oop `cbor:"all_processes"`
	CurrentSegment int   `cbor:"current_segment"`
}

// SaveSnapshot writes vm's entire state to w: magic, a CBOR header, then
// every segment's raw words, per spec.md §6.
func (vm *Interpreter) SaveSnapshot(w io.Writer) error {
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return errors.Wrap(err, "snapshot: writing magic")
	}
	header := snapshotHeader{
		ActiveContext:  vm.activeContext,
		CurrentSegment: vm.Alloc.currentSegment,
	}
	if vm.Scheduler != nil {
		header.ActiveProcess = vm.Scheduler.active
		header.AllProcesses = vm.Scheduler.allProcesses
	}
	headerBytes, err := cbor.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "snapshot: encoding header")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(headerBytes)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "snapshot: writing header length")
	}
	if _, err := w.Write(headerBytes); err != nil {
		return errors.Wrap(err, "snapshot: writing header")
	}
	for seg := 0; seg < SegmentCount; seg++ {
		for off := 0; off < SegmentSize; off++ {
			var wordBuf [2]byte
			binary.BigEndian.PutUint16(wordBuf[:], vm.Mem.Word(seg, off))
			if _, err := w.Write(wordBuf[:]); err != nil {
				return errors.Wrapf(err, "snapshot: writing segment %d", seg)
			}
		}
	}
	return nil
}

// LoadSnapshot replaces vm's entire heap and scheduler state with what r
// contains. vm must already exist (NewInterpreter) but its heap is
// discarded; callers typically load into a freshly constructed
// interpreter before calling Run.
func (vm *Interpreter) LoadSnapshot(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return errors.Wrap(err, "snapshot: reading magic")
	}
	if magic != snapshotMagic {
		return newVMError(KindCorruptImage, "snapshot: bad magic")
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return errors.Wrap(err, "snapshot: reading header length")
	}
	headerBytes := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return errors.Wrap(err, "snapshot: reading header")
	}
	var header snapshotHeader
	if err := cbor.Unmarshal(headerBytes, &header); err != nil {
		return errors.Wrap(err, "snapshot: decoding header")
	}
	for seg := 0; seg < SegmentCount; seg++ {
		for off := 0; off < SegmentSize; off++ {
			var wordBuf [2]byte
			if _, err := io.ReadFull(r, wordBuf[:]); err != nil {
				return errors.Wrapf(err, "snapshot: reading segment %d", seg)
			}
			vm.Mem.SetWord(seg, off, binary.BigEndian.Uint16(wordBuf[:]))
		}
	}
	vm.activeContext = header.ActiveContext
	vm.Alloc.currentSegment = header.CurrentSegment
	if vm.Scheduler != nil {
		vm.Scheduler.active = header.ActiveProcess
		vm.Scheduler.allProcesses = header.AllProcesses
	}
	vm.Cache.Flush()
	if vm.activeContext != 0 {
		vm.SwitchContext(vm.activeContext)
	}
	return nil
}
