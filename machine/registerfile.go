package machine

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

// registerFile holds the eight general registers. All three address
// ports (A1, A2, A3) are derived from sub-fields of the same
// instruction wire (spec §4.5) - that field extraction is part of this
// component, not the wire, since the wire itself carries only the raw
// 16-bit instruction word.
type registerFile struct {
	instr, rd1, rd2, wd WireID
	regs                [isa.NumRegisters]uint16
	lastWriteToZero      bool
}

func newRegisterFile(instr, rd1, rd2, wd WireID) *registerFile {
	return &registerFile{instr: instr, rd1: rd1, rd2: rd2, wd: wd}
}

func (r *registerFile) tick(b *bus, we3 uint8) {
	word := b.get(r.instr)
	a1 := (word >> isa.A1Shift) & isa.A1FieldMask
	a2 := (word >> isa.A2Shift) & isa.A2FieldMask
	a3 := (word >> isa.A3Shift) & isa.A3FieldMask

	b.set(r.rd1, r.regs[a1])
	b.set(r.rd2, r.regs[a2])

	if we3 == 0 {
		return
	}
	if a3 == isa.RegZR {
		r.lastWriteToZero = true
		return
	}
	r.regs[a3] = b.get(r.wd)
}

func (r *registerFile) read(idx int) (uint16, error) {
	if idx < 0 || idx >= isa.NumRegisters {
		return 0, fmt.Errorf("machine: register index %d out of range", idx)
	}
	return r.regs[idx], nil
}

func (r *registerFile) write(idx int, v uint16) error {
	if idx < 0 || idx >= isa.NumRegisters {
		return fmt.Errorf("machine: register index %d out of range", idx)
	}
	if idx == isa.RegZR {
		return nil
	}
	r.regs[idx] = v
	return nil
}
