package asm

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

// Encode runs pass 2 over a laid-out Program: every label is now bound
// to a cell index, so each cellPlan can be turned into its final 16-bit
// word. Returns the flat memory image in cell order (cell 0 is always
// the entry jmp to _start).
func Encode(p *Program) ([]uint16, error) {
	words := make([]uint16, len(p.cells))
	for i, c := range p.cells {
		if c.isData {
			words[i] = c.dataValue
			continue
		}
		w, err := encodeInstr(p, i, c.stmt)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}

// resolve turns an operand into a concrete signed value: a numeric
// literal is used as-is, a label reference is looked up in the symbol
// table.
func resolve(p *Program, op operand) (int, error) {
	if !op.isLabel {
		return op.value, nil
	}
	addr, ok := p.labels[op.label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownLabel, op.label)
	}
	return addr, nil
}

// resolveAddiImm implements the original's addi-with-label special
// case (original_source/translator.py): a label pointing into .data
// yields the constant stored there (e.g. a character code), any other
// label yields its own cell address so addi can materialize a pointer.
func resolveAddiImm(p *Program, op operand) (int, error) {
	if !op.isLabel {
		return op.value, nil
	}
	addr, ok := p.labels[op.label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownLabel, op.label)
	}
	if addr < len(p.cells) && p.cells[addr].isData {
		return int(p.cells[addr].dataValue), nil
	}
	return addr, nil
}

func encodeSplitImm(imm int) uint16 {
	u := uint16(imm)
	high := (u >> 3) & 0x7
	low := u & 0x7
	return (high << 13) | (low << 4)
}

func encodeInstr(p *Program, addr int, s textStmt) (uint16, error) {
	reg := func(i int) uint16 {
		if i < len(s.regs) {
			return uint16(s.regs[i])
		}
		return 0
	}

	switch s.mnemonic {
	case "halt":
		return uint16(isa.HALT), nil

	case "addi":
		imm, err := resolveAddiImm(p, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.ADDI) | reg(0)<<isa.A3Shift | reg(1)<<isa.A1Shift | uint16(isa.ShiftAndMask(uint32(imm), isa.A2Shift, 0x7F, 7)), nil

	case "add":
		return uint16(isa.ADD) | reg(0)<<isa.A3Shift | reg(1)<<isa.A1Shift | reg(2)<<isa.A2Shift, nil
	case "rem":
		return uint16(isa.REM) | reg(0)<<isa.A3Shift | reg(1)<<isa.A1Shift | reg(2)<<isa.A2Shift, nil
	case "mul":
		return uint16(isa.MUL) | reg(0)<<isa.A3Shift | reg(1)<<isa.A1Shift | reg(2)<<isa.A2Shift, nil

	case "ld":
		imm, err := resolve(p, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.LD) | reg(0)<<isa.A3Shift | reg(1)<<isa.A1Shift | uint16(isa.ShiftAndMask(uint32(imm), isa.A2Shift, 0x7F, 7)), nil

	case "sw":
		imm, err := resolve(p, s.imm)
		if err != nil {
			return 0, err
		}
		// reg(0) is the data register (encoded at A2, spec §4.11),
		// reg(1) is the base register (A1).
		return uint16(isa.SW) | reg(1)<<isa.A1Shift | reg(0)<<isa.A2Shift | encodeSplitImm(imm), nil

	case "cmp":
		imm, err := resolve(p, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.CMP) | reg(1)<<isa.A1Shift | reg(0)<<isa.A2Shift | encodeSplitImm(imm), nil

	case "jmp":
		disp, err := pcRelative(p, addr, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.JMP) | uint16(isa.ShiftAndMask(uint32(disp), isa.A2Shift, 0x7F, 7)), nil

	case "jg":
		disp, err := pcRelative(p, addr, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.JG) | uint16(isa.ShiftAndMask(uint32(disp), isa.A2Shift, 0x7F, 7)), nil

	case "bne":
		disp, err := pcRelative(p, addr, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.BNE) | reg(0)<<isa.A1Shift | reg(1)<<isa.A2Shift | encodeSplitImm(disp), nil

	case "beq":
		disp, err := pcRelative(p, addr, s.imm)
		if err != nil {
			return 0, err
		}
		return uint16(isa.BEQ) | reg(0)<<isa.A1Shift | reg(1)<<isa.A2Shift | encodeSplitImm(disp), nil

	default:
		return 0, fmt.Errorf("%w: %q", errUnknownMnemonic, s.mnemonic)
	}
}

// pcRelative resolves a jmp/jg/bne/beq target into a pc-relative
// displacement: a label resolves to its absolute cell address, from
// which addr is subtracted (the datapath computes pc + imm); a bare
// number is already the displacement the source author wrote.
func pcRelative(p *Program, addr int, op operand) (int, error) {
	if !op.isLabel {
		return op.value, nil
	}
	target, ok := p.labels[op.label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errUnknownLabel, op.label)
	}
	return target - addr, nil
}
