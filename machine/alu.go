package machine

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

// alu is the 16-bit arithmetic unit (spec §4.6). Result is recomputed
// every tick the ALU runs - several microprograms reuse a spare ALU
// slot within an instruction to pre-compute pc_inc for the following
// sub-tick, so Result cannot be gated. ZeroFlag/PositiveFlag are
// gated separately by ef: CMP/BNE/BEQ set it on their comparison
// sub-tick and leave it clear on every other sub-tick of the same
// instruction, so the flags they leave behind survive untouched until
// a later instruction (e.g. JG) samples them.
type alu struct {
	srcA, srcB, result WireID
	zeroFlag           uint8
	positiveFlag       uint8
}

func newALU(srcA, srcB, result WireID) *alu {
	return &alu{srcA: srcA, srcB: srcB, result: result}
}

func (a *alu) tick(b *bus, control isa.ALUControl, ef uint8) {
	x := b.get(a.srcA)
	y := b.get(a.srcB)

	var res uint16
	switch control {
	case isa.ALUAdd:
		res = x + y
	case isa.ALUSub:
		res = x - y
	case isa.ALURem:
		if y == 0 {
			panic(fmt.Errorf("machine: ALU rem by zero"))
		}
		res = x % y
	case isa.ALUMul:
		res = x * y
	default:
		panic(fmt.Errorf("%w: %d", errUnknownALUControl, control))
	}
	b.set(a.result, res)

	if ef != 1 {
		return
	}
	if res == 0 {
		a.zeroFlag = 1
	} else {
		a.zeroFlag = 0
	}
	if int16(res) > 0 {
		a.positiveFlag = 1
	} else {
		a.positiveFlag = 0
	}
}
