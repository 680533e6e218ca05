package hostsim

import (
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/clarking/Smalltalk80/vm"
)

// FixtureRecorder wraps a live vm.InputSource and mirrors every event it
// delivers into a CBOR stream, so a debugging session or a flaky test
// failure can be captured once and replayed deterministically later.
type FixtureRecorder struct {
	source vm.InputSource
	enc    *cbor.Encoder
}

// NewFixtureRecorder records events passed through from source into w.
func NewFixtureRecorder(source vm.InputSource, w io.Writer) *FixtureRecorder {
	return &FixtureRecorder{source: source, enc: cbor.NewEncoder(w)}
}

// PollEvent implements vm.InputSource, passing through to the wrapped
// source and recording whatever it returns.
func (r *FixtureRecorder) PollEvent() (vm.InputEvent, bool) {
	ev, ok := r.source.PollEvent()
	if ok {
		if err := r.enc.Encode(ev); err != nil {
			// Recording is best-effort instrumentation; a write failure
			// here must never take down the session it's observing.
			_ = err
		}
	}
	return ev, ok
}

// MousePosition implements vm.InputSource by delegating untouched.
func (r *FixtureRecorder) MousePosition() (int, int) { return r.source.MousePosition() }

// FixturePlayer replays a previously recorded CBOR event stream as a
// vm.InputSource, for deterministic regression tests of process/semaphore
// scheduling (spec.md §8's testable properties around input-driven
// wakeups).
type FixturePlayer struct {
	dec    *cbor.Decoder
	events []vm.InputEvent
	cursor int
	mouseX, mouseY int
}

// LoadFixturePlayer reads every event in r up front so PollEvent never
// has to handle a mid-stream decode error.
func LoadFixturePlayer(r io.Reader) (*FixturePlayer, error) {
	dec := cbor.NewDecoder(r)
	p := &FixturePlayer{dec: dec}
	for {
		var ev vm.InputEvent
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrap(err, "hostsim: decoding fixture event")
		}
		p.events = append(p.events, ev)
	}
	return p, nil
}

// PollEvent returns the next recorded event in order, or ok=false once
// the fixture is exhausted.
func (p *FixturePlayer) PollEvent() (vm.InputEvent, bool) {
	if p.cursor >= len(p.events) {
		return vm.InputEvent{}, false
	}
	ev := p.events[p.cursor]
	p.cursor++
	if ev.Kind == vm.EventMouseMove {
		p.mouseX, p.mouseY = ev.X, ev.Y
	}
	return ev, true
}

// MousePosition returns the position implied by the most recently
// replayed mouse-move event.
func (p *FixturePlayer) MousePosition() (int, int) { return p.mouseX, p.mouseY }

// Timestamp is a helper for callers constructing InputEvents by hand in
// tests, since vm package code can't call time.Now() directly per this
// project's determinism rules but a fixture file legitimately wants a
// real wall-clock tag when it's first recorded.
func Timestamp() int64 { return time.Now().UnixMilli() }
