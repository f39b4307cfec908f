package machine

import "fmt"

// mux is a 2^width-to-1 16-bit selector (spec §4.3). width is the
// number of select bits; inputs are indexed 0..2^width-1. A select value
// outside that range is a datapath wiring bug and is fatal, matching
// spec's "behavior is fatal, implementer should panic; no defined wrap".
type mux struct {
	width  uint
	inputs []WireID
	out    WireID
}

func newMux(width uint, out WireID, inputs ...WireID) *mux {
	if len(inputs) != 1<<width {
		panic(fmt.Sprintf("machine: mux width %d needs %d inputs, got %d", width, 1<<width, len(inputs)))
	}
	return &mux{width: width, inputs: inputs, out: out}
}

func (m *mux) tick(b *bus, src uint8) {
	if int(src) >= len(m.inputs) {
		panic(fmt.Errorf("%w: select=%d width=%d", errMuxSelectOutOfRange, src, m.width))
	}
	b.set(m.out, b.get(m.inputs[src]))
}
