package asm

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/dmittrey/csa-lab3/isa"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func assembleSource(t *testing.T, source string) []uint16 {
	t.Helper()
	toks, err := Lex(source)
	assert(t, err == nil, "lex failed: %v", err)
	prog, err := Parse(toks)
	assert(t, err == nil, "parse failed: %v", err)
	code, err := Encode(prog)
	assert(t, err == nil, "encode failed: %v", err)
	return code
}

func TestLexBasics(t *testing.T) {
	toks, err := Lex("section .text\n_start: addi x1, x2, 5 ; comment\n")
	assert(t, err == nil, "lex failed: %v", err)

	want := []TokenType{
		TokKeyword, TokString, TokEOL, // section .text
		TokString, TokSymbol, // _start :
		TokString, TokString, TokSymbol, TokString, TokSymbol, TokNumber, // addi x1 , x2 , 5
		TokEOL,
		TokEOF,
	}
	assert(t, len(toks) == len(want), "expected %d tokens, got %d: %+v", len(want), len(toks), toks)
	for i, w := range want {
		assert(t, toks[i].Type == w, "token %d: expected %s, got %s (%q)", i, w, toks[i].Type, toks[i].Value)
	}
}

func TestLexUnterminatedCharLiteral(t *testing.T) {
	_, err := Lex("section .data\nfoo: 'a\n")
	assert(t, err != nil, "expected an error for an unterminated char literal")
}

// TestAddiBitExactness is spec scenario 5: addi x1, x2, 5 must encode to
// (5<<10) | (2<<7) | (1<<4) | 0 = 5392.
func TestAddiBitExactness(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x2, 5
    halt
`
	code := assembleSource(t, src)
	assert(t, len(code) == 3, "expected 3 cells (stub jmp, addi, halt), got %d", len(code))
	assert(t, code[1] == 5392, "expected addi to encode to 5392, got %d", code[1])
}

func TestDataSection(t *testing.T) {
	src := `
section .data
greeting: 'A'

section .text
_start:
    ld x1, 0(x0)
    halt
`
	code := assembleSource(t, src)
	// cell 0: stub jmp; cell 1: the .data word; cells 2-3: _start's body.
	assert(t, code[1] == uint16('A'), "expected data cell to hold 'A' (%d), got %d", 'A', code[1])
}

func TestMissingEntryLabel(t *testing.T) {
	src := `
section .text
foo:
    halt
`
	toks, err := Lex(src)
	assert(t, err == nil, "lex failed: %v", err)
	_, err = Parse(toks)
	assert(t, err != nil, "expected parse to fail without a _start label")
}

func TestUnknownMnemonic(t *testing.T) {
	src := `
section .text
_start:
    frobnicate x1
    halt
`
	toks, err := Lex(src)
	assert(t, err == nil, "lex failed: %v", err)
	_, err = Parse(toks)
	assert(t, err != nil, "expected parse to fail on an unknown mnemonic")
}

func TestAddiWithLabelOperand(t *testing.T) {
	src := `
section .data
greeting: 'H'

section .text
_start:
    addi x1, x0, greeting
    addi x2, x0, foo
    halt
foo:
    halt
`
	code := assembleSource(t, src)
	// cell 0: stub jmp; cell 1: the .data word; cell 2: the first
	// _start instruction (addi x1,x0,greeting). greeting points at a
	// .data cell, so the immediate is the VALUE stored there ('H'),
	// not its address. Only the bits of 'H' that land in bits 10-15 of
	// the 16-bit word survive the shift.
	h := uint16('H')
	want := uint16(isa.ADDI) | 1<<4 | 0<<7 | h<<10
	assert(t, code[2] == want, "unexpected addi-to-data-label encoding: got %d, want %d", code[2], want)
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 6
    add x2, x1, x1
    halt
`
	code := assembleSource(t, src)
	lines := Disassemble(code)
	assert(t, len(lines) == len(code), "expected one disassembled line per word")
	assert(t, contains(lines[0], "jmp"), "expected cell 0 to disassemble as the entry jmp, got %q", lines[0])
	assert(t, contains(lines[1], "addi x1, x0, 6"), "expected cell 1 to disassemble as addi, got %q", lines[1])
	assert(t, contains(lines[2], "add x2, x1, x1"), "expected cell 2 to disassemble as add, got %q", lines[2])
}

func contains(s, sub string) bool { return bytes.Contains([]byte(s), []byte(sub)) }

func TestCodeFileRoundTrip(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 6
    halt
`
	code := assembleSource(t, src)

	var buf bytes.Buffer
	err := WriteCode(&buf, code)
	assert(t, err == nil, "write failed: %v", err)

	got, err := ReadCode(&buf)
	assert(t, err == nil, "read failed: %v", err)
	assert(t, len(got) == len(code), "expected %d words back, got %d", len(code), len(got))
	for i := range code {
		assert(t, got[i] == code[i], "word %d: expected %d, got %d", i, code[i], got[i])
	}
}

func TestBuildAndWriteLog(t *testing.T) {
	src := `
section .text
_start:
    addi x1, x0, 6
    halt
`
	toks, err := Lex(src)
	assert(t, err == nil, "lex failed: %v", err)
	prog, err := Parse(toks)
	assert(t, err == nil, "parse failed: %v", err)
	code, err := Encode(prog)
	assert(t, err == nil, "encode failed: %v", err)

	entries := BuildLog(prog, code)
	assert(t, len(entries) == 3, "expected 3 logged instructions (stub jmp, addi, halt), got %d", len(entries))

	var buf bytes.Buffer
	err = WriteLog(&buf, entries)
	assert(t, err == nil, "write log failed: %v", err)
	assert(t, buf.Len() > 0, "expected non-empty log output")
}
