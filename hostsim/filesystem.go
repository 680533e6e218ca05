// Package hostsim provides a runnable host environment for the vm
// package's HAL seams: an os-backed filesystem, a websocket display
// bridge, a system clock, and a CBOR fixture recorder/player for
// deterministic input replay. None of it is part of the interpreter
// itself — it's the "real computer" a bluebook image runs on.
package hostsim

import (
	"os"

	"github.com/pkg/errors"

	"github.com/clarking/Smalltalk80/vm"
)

// OSFileSystem implements vm.FileSystem directly against the local
// filesystem, per spec.md §6's file primitive contract.
type OSFileSystem struct {
	Root string // all paths are resolved relative to Root
}

func (fs *OSFileSystem) resolve(name string) string {
	if fs.Root == "" {
		return name
	}
	return fs.Root + string(os.PathSeparator) + name
}

// Open returns a handle suitable for the File class's random-access
// primitives, creating the file if forWrite is set and it doesn't exist.
func (fs *OSFileSystem) Open(name string, forWrite bool) (vm.FileHandle, error) {
	flags := os.O_RDONLY
	if forWrite {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(fs.resolve(name), flags, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "hostsim: opening %s", name)
	}
	return &osFileHandle{f: f}, nil
}

// Remove deletes a file, backing the File class's delete primitive.
func (fs *OSFileSystem) Remove(name string) error {
	return errors.Wrapf(os.Remove(fs.resolve(name)), "hostsim: removing %s", name)
}

// Rename backs the File class's rename primitive.
func (fs *OSFileSystem) Rename(oldName, newName string) error {
	return errors.Wrapf(os.Rename(fs.resolve(oldName), fs.resolve(newName)), "hostsim: renaming %s", oldName)
}

// Directory lists entries in path, backing Directory class enumeration,
// a feature spec.md's distillation dropped but the original filesystem
// contract (FileDirectory) carried and SPEC_FULL.md restores.
func (fs *OSFileSystem) Directory(path string) ([]string, error) {
	entries, err := os.ReadDir(fs.resolve(path))
	if err != nil {
		return nil, errors.Wrapf(err, "hostsim: listing %s", path)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

type osFileHandle struct {
	f *os.File
}

func (h *osFileHandle) ReadAt(p []byte, off int64) (int, error)  { return h.f.ReadAt(p, off) }
func (h *osFileHandle) WriteAt(p []byte, off int64) (int, error) { return h.f.WriteAt(p, off) }
func (h *osFileHandle) Truncate(size int64) error                { return h.f.Truncate(size) }
func (h *osFileHandle) Close() error                             { return h.f.Close() }

func (h *osFileHandle) Size() (int64, error) {
	info, err := h.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
