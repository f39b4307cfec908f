package asm

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

var regNames = [isa.NumRegisters]string{"x0", "x1", "x2", "x3", "x4", "x5", "mtvec", "mepc"}

func fieldA3(word uint16) uint16 { return (word >> isa.A3Shift) & isa.A3FieldMask }
func fieldA1(word uint16) uint16 { return (word >> isa.A1Shift) & isa.A1FieldMask }
func fieldA2(word uint16) uint16 { return (word >> isa.A2Shift) & isa.A2FieldMask }

func fieldImmI(word uint16) int16 {
	return int16((word >> 10) & 0x7F)
}

func fieldImmSplit(word uint16) int16 {
	high := (word >> 13) & 0xF
	low := (word >> 4) & 0x7
	return int16((high << 3) | low)
}

// Disassemble renders one line of assembly text per memory word,
// grounded on the teacher's Instruction.String()/PrintProgram textual
// dump convention (SPEC_FULL.md's supplemented-features section). It is
// a best-effort, context-free rendering: it does not attempt to
// distinguish instruction cells from data cells (that distinction only
// exists in the Program that produced the image), so it always decodes
// every word as an instruction.
func Disassemble(words []uint16) []string {
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = fmt.Sprintf("%04d: %s", i, disassembleOne(w))
	}
	return lines
}

func disassembleOne(word uint16) string {
	op := isa.Opcode(word & isa.OpcodeMask)
	a3, a1, a2 := fieldA3(word), fieldA1(word), fieldA2(word)

	switch op {
	case isa.HALT:
		return "halt"
	case isa.ADDI:
		return fmt.Sprintf("addi %s, %s, %d", regNames[a3], regNames[a1], fieldImmI(word))
	case isa.ADD:
		return fmt.Sprintf("add %s, %s, %s", regNames[a3], regNames[a1], regNames[a2])
	case isa.REM:
		return fmt.Sprintf("rem %s, %s, %s", regNames[a3], regNames[a1], regNames[a2])
	case isa.MUL:
		return fmt.Sprintf("mul %s, %s, %s", regNames[a3], regNames[a1], regNames[a2])
	case isa.LD:
		return fmt.Sprintf("ld %s, %d(%s)", regNames[a3], fieldImmI(word), regNames[a1])
	case isa.SW:
		return fmt.Sprintf("sw %s, %d(%s)", regNames[a2], fieldImmSplit(word), regNames[a1])
	case isa.CMP:
		return fmt.Sprintf("cmp %s, %d(%s)", regNames[a2], fieldImmSplit(word), regNames[a1])
	case isa.JMP:
		return fmt.Sprintf("jmp %d", fieldImmI(word))
	case isa.JG:
		return fmt.Sprintf("jg %d", fieldImmI(word))
	case isa.BNE:
		return fmt.Sprintf("bne %s, %s, %d", regNames[a1], regNames[a2], fieldImmSplit(word))
	case isa.BEQ:
		return fmt.Sprintf("beq %s, %s, %d", regNames[a1], regNames[a2], fieldImmSplit(word))
	default:
		return fmt.Sprintf(".word %d", word)
	}
}
