package machine

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

// signExpand extracts an immediate from the instruction word using one
// of the three field layouts ImmSrc selects (spec §3, §4.7). The
// microprograms select the I-type layout for addi/ld/jmp/jg and the
// split layout for sw/bne/beq; no microprogram selects the 4-bit
// ImmSrcB layout.
type signExpand struct {
	in, out WireID
}

func newSignExpand(in, out WireID) *signExpand {
	return &signExpand{in: in, out: out}
}

func (s *signExpand) tick(b *bus, src isa.ImmSrc) {
	word := b.get(s.in)

	var out, bits uint16
	switch src {
	case isa.ImmSrcI:
		out, bits = (word>>10)&0x7F, 6
	case isa.ImmSrcB:
		out, bits = (word>>13)&0xF, 3
	case isa.ImmSrcSplit:
		high := (word >> 13) & 0xF
		low := (word >> 4) & 0x7
		out, bits = (high<<3)|low, 6
	default:
		panic(fmt.Errorf("%w: %d", errUnknownImmSrc, src))
	}
	b.set(s.out, signExtend(out, bits))
}

// signExtend widens a field of width bits to a full 16-bit two's
// complement value, so a negative displacement encoded in a narrow
// field (e.g. a backward branch) arithmetic-adds correctly instead of
// reading as a large positive offset. Every layout's top storable bit
// is one short of its nominal field width once packed into a 16-bit
// word (spec §3's 7-bit immediate has no bit 16 to occupy), so bits
// here is that real, addressable width.
func signExtend(value, bits uint16) uint16 {
	sign := uint16(1) << (bits - 1)
	if value&sign != 0 {
		return value | (^uint16(0) << bits)
	}
	return value
}
