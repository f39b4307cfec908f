package machine

import (
	"fmt"
	"testing"

	"github.com/dmittrey/csa-lab3/asm"
	"github.com/dmittrey/csa-lab3/isa"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// assemble lexes, parses and encodes source, failing the test on any
// error - test programs exercise the machine package through the real
// assembler rather than hand-built instruction words, the same way an
// end user's program would reach the simulator.
func assemble(t *testing.T, source string) []uint16 {
	t.Helper()
	toks, err := asm.Lex(source)
	assert(t, err == nil, "lex failed: %v", err)
	prog, err := asm.Parse(toks)
	assert(t, err == nil, "parse failed: %v", err)
	code, err := asm.Encode(prog)
	assert(t, err == nil, "encode failed: %v", err)
	return code
}

func runProgram(t *testing.T, source string, interruptsEnabled bool, schedule []Keystroke) *Simulator {
	t.Helper()
	code := assemble(t, source)
	sim := NewSimulator(isa.DefaultMemorySize, schedule, interruptsEnabled, 0)
	err := sim.LoadProgram(code, 0, 0)
	assert(t, err == nil, "load failed: %v", err)
	err = sim.Run()
	assert(t, err == nil, "run failed: %v", err)
	return sim
}

// TestArithmeticAndStore covers scenario-style straight-line arithmetic
// (addi/add/rem/mul) followed by a store to the MMIO output cell.
func TestArithmeticAndStore(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 6
    addi x2, x0, 7
    mul x3, x1, x2
    addi x4, x0, 5
    rem x5, x3, x4
    addi x6, x0, 30
    addi x6, x6, 30
    addi x6, x6, 30
    addi x6, x6, 30
    addi x6, x6, 1
    sw x5, 0(x6)
    halt
`
	sim := runProgram(t, src, false, nil)
	v1, err := sim.DataPath().Register(3)
	assert(t, err == nil, "register read failed: %v", err)
	assert(t, v1 == 42, "expected x3=42, got %d", v1)

	out := sim.DataPath().OutputBuffer()
	assert(t, len(out) == 1, "expected exactly one output char, got %d", len(out))
	assert(t, out[0] == rune(2), "expected 42%%5=2 written to MMIO, got %d", out[0])
}

// TestBranchLoop covers the bne-driven counting loop (spec scenario
// shape): x4 increments from 0 to 5 then falls through.
func TestBranchLoop(t *testing.T) {
	src := `
section .text
_start:
    addi x4, x0, 0
    addi x5, x0, 5
loop:
    addi x4, x4, 1
    bne x4, x5, loop
    halt
`
	sim := runProgram(t, src, false, nil)
	v, err := sim.DataPath().Register(4)
	assert(t, err == nil, "register read failed: %v", err)
	assert(t, v == 5, "expected x4=5 after loop, got %d", v)
}

// TestBeqSkipsWhenEqual checks beq's taken path: when the two operands
// are equal the branch fires and the straight-line store is skipped.
func TestBeqSkipsWhenEqual(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 3
    addi x2, x0, 3
    beq x1, x2, skip
    addi x3, x0, 99
skip:
    addi x6, x0, 30
    addi x6, x6, 30
    addi x6, x6, 30
    addi x6, x6, 30
    addi x6, x6, 1
    sw x3, 0(x6)
    halt
`
	sim := runProgram(t, src, false, nil)
	out := sim.DataPath().OutputBuffer()
	assert(t, len(out) == 1, "expected one output char, got %d", len(out))
	assert(t, out[0] == 0, "expected x3 to remain 0 (store skipped), got %d", out[0])
}

// TestJg checks jg takes its jump only when a preceding cmp left
// PositiveFlag set.
func TestJg(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 10
    addi x2, x0, 3
    cmp x2, 0(x1)
    jg positive
    addi x3, x0, 1
    halt
positive:
    addi x3, x0, 2
    halt
`
	sim := runProgram(t, src, false, nil)
	v, err := sim.DataPath().Register(3)
	assert(t, err == nil, "register read failed: %v", err)
	assert(t, v == 2, "expected jg to take the branch (x3=2), got %d", v)
}

// TestInterruptEcho drives the default keystroke schedule through an
// interrupt handler that echoes each input char to the MMIO output
// cell, covering the interrupt-context save/restore path (spec scenario
// 6).
func TestInterruptEcho(t *testing.T) {
	src := `
section .text
_start:
    addi x6, x0, handler
    addi x2, x0, 30
    addi x2, x2, 30
    addi x2, x2, 30
    addi x2, x2, 30
    addi x3, x2, 1
    addi x4, x0, 0
    addi x5, x0, 31
    addi x5, x5, 31
    addi x5, x5, 31
    addi x5, x5, 31
    addi x5, x5, 31
    addi x5, x5, 31
loop:
    addi x4, x4, 1
    bne x4, x5, loop
    halt
handler:
    ld x1, 0(x2)
    sw x1, 0(x3)
    halt
`
	sim := runProgram(t, src, true, DefaultInterruptScript)
	out := sim.DataPath().OutputBuffer()

	want := "hello"
	assert(t, len(out) == len(want), "expected %d echoed chars, got %d: %q", len(want), len(out), string(out))
	for i, r := range want {
		assert(t, out[i] == r, "char %d: expected %q, got %q", i, r, out[i])
	}
}

// TestHaltSentinel checks that a program whose _start is a bare halt
// stops cleanly right after the entry stub jmp.
func TestHaltSentinel(t *testing.T) {
	src := `
section .text
_start:
    halt
`
	sim := runProgram(t, src, false, nil)
	assert(t, sim.DataPath().PC() == 1, "PC should sit at the halt cell (1, past the entry stub jmp), got %d", sim.DataPath().PC())
}
