// Package isa holds the wire-level constants both the machine package
// (datapath/control unit) and the asm package (assembler) must agree on
// bit-for-bit: opcode numbering, instruction field layout, control-signal
// enumerations and the fixed MMIO/interrupt memory cells.
package isa

// Opcode is the 4-bit operation code carried in bits 0-3 of every
// instruction word.
type Opcode uint16

// Canonical opcode numbering (spec §3). The control unit masks the low 4
// bits of the instruction word to recover this value.
const (
	ADDI Opcode = 0
	ADD  Opcode = 1
	REM  Opcode = 2
	MUL  Opcode = 3
	LD   Opcode = 4
	SW   Opcode = 5
	CMP  Opcode = 6
	JMP  Opcode = 7
	JG   Opcode = 8
	BNE  Opcode = 9
	BEQ  Opcode = 10
	HALT Opcode = 11
)

var opcodeNames = map[Opcode]string{
	ADDI: "addi", ADD: "add", REM: "rem", MUL: "mul",
	LD: "ld", SW: "sw", CMP: "cmp",
	JMP: "jmp", JG: "jg", BNE: "bne", BEQ: "beq", HALT: "halt",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "?unknown-opcode?"
}

// Instruction word bit layout (bit 0 = LSB).
const (
	OpcodeShift  = 0
	OpcodeMask   = 0xF // 4 bits
	A3Shift      = 4   // reg1 / destination
	A3FieldMask  = 0x7
	A1Shift      = 7 // reg2 / first source
	A1FieldMask  = 0x7
	A2Shift      = 10 // reg3 / second source, or low 3 bits of split immediate
	A2FieldMask  = 0x7
	ImmHighShift = 13 // high 3 bits of immediate
	ImmHighMask  = 0x7
)

// ImmSrc selects one of three immediate-field layouts (spec §3, §4.7).
type ImmSrc uint8

const (
	ImmSrcI     ImmSrc = 0 // bits 10-16: 7-bit immediate (addi, ld, jmp, jg)
	ImmSrcB     ImmSrc = 1 // bits 13-16: 4-bit immediate (selected by no microprogram)
	ImmSrcSplit ImmSrc = 2 // bits 13-16 shl 3 | bits 4-6: split immediate (sw, bne, beq)
)

// ALUControl selects the ALU operation (spec §4.6).
type ALUControl uint8

const (
	ALUAdd ALUControl = 0
	ALUSub ALUControl = 1
	ALURem ALUControl = 2
	ALUMul ALUControl = 3
)

// Register roles (spec §3). Eight general registers, x0 hardwired zero.
const (
	RegZR     = 0 // x0, hardwired zero
	RegMTVEC  = 6 // x6, interrupt vector address
	RegMScrat = 7 // x7, interrupt save area (also "mscratch")
	NumRegisters = 8
)

// Memory-mapped I/O cells (spec §3).
const (
	MMIOInput  = 120
	MMIOOutput = 121
)

// Reserved memory cells used to preserve interrupted context (spec §3).
const (
	InterruptSaveALUResult = 256
	InterruptSaveIR        = 257
)

// DefaultMemorySize is the word count of a freshly constructed Memory
// when the caller does not override it.
const DefaultMemorySize = 512

// ShiftAndMask truncates value to bitWidth bits and left-shifts it by
// shift, mirroring the original assembler's shift_and_mask helper: mask
// first, then repeatedly halve by shifting right while still out of the
// bitWidth range. For every caller in this module mask is already sized
// to bitWidth, so the loop runs zero times; it exists to match the
// original's defensive truncation exactly.
func ShiftAndMask(value uint32, shift uint, mask uint32, bitWidth uint) uint32 {
	masked := value & mask
	limit := uint32(1)<<bitWidth - 1
	for masked > limit {
		masked >>= 1
	}
	return masked << shift
}
