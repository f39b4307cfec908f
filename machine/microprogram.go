package machine

import "github.com/dmittrey/csa-lab3/isa"

// microprogram is the ordered list of sub-tick signal bundles a
// control unit runs for one opcode, after the opcode-agnostic fetch
// sub-tick that loaded the instruction word and revealed it (spec
// §4.10 step 1-2). A bundle's unnamed fields default to zero, which is
// a meaningful selector (ImmSrcI, ALUAdd), not a "don't touch" marker -
// every bundle fully determines that sub-tick's signals.
type microprogram []signals

// straightMicroprograms holds every opcode whose control flow does not
// depend on a flag sampled mid-instruction. Branch opcodes (bne, beq,
// jg) are dispatched separately by the control unit since which
// bundles run depends on ZeroFlag/PositiveFlag sampled after the first
// bundle (spec §4.10's BNE note: "implementers must encode both
// branches").
var straightMicroprograms = map[isa.Opcode]microprogram{
	// rD = rS + imm. Sub-tick 1 computes rd1+ext_imm (the real result,
	// since IR/RegFile/SignExpand already reflect the freshly fetched
	// instruction this same tick). Sub-tick 2 writes that result back
	// while opportunistically reusing the ALU to precompute pc+1 for
	// sub-tick 3's PCWrite.
	isa.ADDI: {
		{ALUSrcB: 1},
		{WDSrc: 1, RegWrite: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	// rD = rS1 + rS2. Defaults alone (ALUSrcA=rd1, ALUSrcB=rd2,
	// ALUControl=add) already compute the result in sub-tick 1.
	isa.ADD: {
		{},
		{WDSrc: 1, RegWrite: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	isa.REM: {
		{ALUControl: isa.ALURem},
		{WDSrc: 1, RegWrite: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	isa.MUL: {
		{ALUControl: isa.ALUMul},
		{WDSrc: 1, RegWrite: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	// rD = mem[rS + imm]. Sub-tick 1 computes the effective address;
	// sub-tick 2 addresses memory with it (AdrSrc reads last sub-tick's
	// alu_result, since AdrSrc runs before the ALU recomputes this
	// sub-tick) and writes the loaded word back through WDSrc's default
	// (rd) selection, while the ALU is reused for pc+1.
	isa.LD: {
		{ALUSrcB: 1},
		{AdrSrc: 1, RegWrite: 1, IOOp: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	// mem[rS + imm] = rD. Same effective-address shape as LD, using the
	// split immediate layout (sw's encoding leaves the A2 field free for
	// the data register). MemWrite fires in sub-tick 2 alongside the
	// address.
	isa.SW: {
		{ALUSrcB: 1, ImmSrc: isa.ImmSrcSplit},
		{AdrSrc: 1, IOOp: 1, MemWrite: 1, ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	// Compares rS (A1 field) against rD (A2 field): rd1 - rd2, flags
	// latched via EF for a later jg to sample. No register write; the
	// split-layout immediate field is present for encoding-shape
	// consistency with ld/sw but this ISA's comparisons are
	// register-register, so the ALU step does not consume it.
	isa.CMP: {
		{ALUControl: isa.ALUSub, EF: 1},
		{ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
	// Unconditional jump: target = pc + imm (pc-relative, consistent
	// with jg/bne/beq's addressing - see asm/encode.go's pcRelative).
	isa.JMP: {
		{ALUSrcA: 1, ALUSrcB: 1, ALUControl: isa.ALUAdd},
		{PCWrite: 1},
	},
}
