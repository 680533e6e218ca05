package vm

import "github.com/pkg/errors"

// Error tiers, per spec.md §7: primitive failure (tier 1) is never a Go
// error at all — it's the boolean successFlag callPrimitive returns, and
// the interpreter's own fallback to the method body handles it silently.
// Tier 2 (a Smalltalk-level exception: doesNotUnderstand:, error:,
// zero divide) is likewise handled entirely inside the image via a
// message send, never surfaced to Go. Only tier 3 — conditions the image
// itself cannot recover from — becomes a VMError that halts Run.
type VMErrorKind int

const (
	// KindOutOfMemory: the allocator failed even after a full collection.
	KindOutOfMemory VMErrorKind = iota
	// KindCorruptImage: a snapshot failed its structural sanity checks.
	KindCorruptImage
	// KindNoRunnableProcess: the scheduler's run queue went empty with no
	// way to recover (every process blocked or terminated).
	KindNoRunnableProcess
	// KindInternal: an invariant the interpreter itself relies on broke
	// (missing bootstrap method, corrupt method cache, etc).
	KindInternal
)

// VMError is the fatal-error type Run returns. It wraps a cause the way
// db47h-ngaro's Forth VM wraps its own fatal conditions, keeping a short
// machine-checkable Kind alongside the human-readable message.
type VMError struct {
	Kind  VMErrorKind
	cause error
}

func (e *VMError) Error() string { return e.cause.Error() }
func (e *VMError) Unwrap() error { return e.cause }

func newVMError(kind VMErrorKind, msg string) *VMError {
	return &VMError{Kind: kind, cause: errors.New(msg)}
}

var (
	errDoesNotUnderstandMissing = newVMError(KindInternal, "vm: Object>>doesNotUnderstand: missing from bootstrap image")
	errCannotReturn             = newVMError(KindInternal, "vm: Object>>cannotReturn: missing from bootstrap image, and a block outlived its home context")
	errNoRunnableProcess        = newVMError(KindNoRunnableProcess, "vm: no runnable process and no way to proceed")
	errOutOfRange               = errors.New("vm: value out of representable range")
)
