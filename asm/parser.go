package asm

import (
	"fmt"
	"strconv"

	"github.com/dmittrey/csa-lab3/isa"
)

// section tracks which "section .data"/"section .text" block the
// parser is currently inside (spec §4.11's two-section grammar).
type section int

const (
	secNone section = iota
	secData
	secText
)

// registers maps every register token spec §4.11 allows, including the
// mtvec/mepc aliases, to its general-register index
// (original_source/translator.py's `registers` dict).
var registers = map[string]int{
	"x0": isa.RegZR, "zr": isa.RegZR,
	"x1": 1, "x2": 2, "x3": 3, "x4": 4, "x5": 5,
	"x6": isa.RegMTVEC, "mtvec": isa.RegMTVEC,
	"x7": isa.RegMScrat, "mepc": isa.RegMScrat,
}

// operand is either a resolved/raw signed number or a symbol to be
// looked up in the label table during layout.
type operand struct {
	isLabel bool
	label   string
	value   int
}

// textStmt is one .text section cell awaiting encoding: a no-arg, one-arg
// (jmp/jg), two-arg (ld/sw/cmp), two-register branch (bne/beq) or
// three-arg (addi/add/rem/mul) instruction. Which fields are meaningful depends on mnemonic; encode.go
// knows the shape each mnemonic expects.
type textStmt struct {
	mnemonic string
	regs     []int
	imm      operand
	term     Token // anchor for the translation log (spec §6)
}

// cellPlan is one cell of the final flat memory image: either a raw
// .data word or a .text instruction awaiting pass-2 encoding.
type cellPlan struct {
	isData    bool
	dataValue uint16
	stmt      textStmt
}

// Program is the fully laid-out, not-yet-encoded assembly unit:
// Parse's pass 1 resolves every label to a cell index; encode.go's
// pass 2 turns each cellPlan into a 16-bit word.
type Program struct {
	cells  []cellPlan
	labels map[string]int
}

// bne/beq are deliberately absent here - see the bne/beq case in
// parseTextStatement.
var oneArgOps = map[string]bool{"jmp": true, "jg": true}
var twoArgOps = map[string]bool{"ld": true, "sw": true, "cmp": true}
var threeArgOps = map[string]bool{"addi": true, "add": true, "rem": true, "mul": true}

// cursor walks a Token slice, skipping EOL tokens at the points where
// skipEOLs is called explicitly - the grammar only treats blank/EOL
// runs as statement separators, never as part of an instruction.
type cursor struct {
	toks []Token
	pos  int
}

func (c *cursor) peek() Token { return c.toks[c.pos] }
func (c *cursor) at(k int) Token {
	if c.pos+k >= len(c.toks) {
		return c.toks[len(c.toks)-1]
	}
	return c.toks[c.pos+k]
}
func (c *cursor) advance(n int) { c.pos += n }
func (c *cursor) skipEOLs() {
	for c.peek().Type == TokEOL {
		c.advance(1)
	}
}

// Parse runs the two-pass layout spec §4.11 describes: walk tokens
// tracking the current section, emit one word per .data entry and one
// cell per .text instruction, bind labels to the address of the next
// emitted cell, and reserve cell 0 for a stub jmp patched to _start
// once every label is known.
func Parse(tokens []Token) (*Program, error) {
	p := &Program{labels: map[string]int{}}
	// Reserve cell 0 for the entry jump; its target is filled in once
	// _start's address is known.
	p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: "jmp"}})

	cur := &cursor{toks: tokens}
	sec := secNone

	for cur.peek().Type != TokEOF {
		tok := cur.peek()

		if tok.Type == TokKeyword && tok.Value == "section" {
			name := cur.at(1)
			switch name.Value {
			case ".data":
				sec = secData
			case ".text":
				sec = secText
			default:
				return nil, fmt.Errorf("%w: unknown section %q at %d:%d", errParseFailure, name.Value, tok.Line, tok.Col)
			}
			cur.advance(2)
			continue
		}

		if sec == secNone {
			cur.advance(1)
			continue
		}

		if tok.Type == TokEOL {
			cur.advance(1)
			continue
		}

		var err error
		if sec == secData {
			err = p.parseDataEntry(cur)
		} else {
			err = p.parseTextStatement(cur)
		}
		if err != nil {
			return nil, err
		}
	}

	start, ok := p.labels["_start"]
	if !ok {
		return nil, errMissingEntry
	}
	p.cells[0].stmt.imm = operand{value: start}

	return p, nil
}

// parseDataEntry consumes "LABEL : 'c'" (spec §4.11's .data grammar).
func (p *Program) parseDataEntry(cur *cursor) error {
	name, colon, ch := cur.at(0), cur.at(1), cur.at(2)
	if name.Type != TokString {
		return fmt.Errorf("%w: expected label in .data section at %d:%d", errParseFailure, name.Line, name.Col)
	}
	if colon.Value != ":" {
		return fmt.Errorf("%w: expected ':' after %q at %d:%d", errParseFailure, name.Value, colon.Line, colon.Col)
	}
	if ch.Type != TokChar {
		return fmt.Errorf("%w: expected char literal for %q at %d:%d", errParseFailure, name.Value, ch.Line, ch.Col)
	}
	var v uint16
	if len(ch.Value) > 0 {
		v = uint16(ch.Value[0])
	}
	p.labels[name.Value] = len(p.cells)
	p.cells = append(p.cells, cellPlan{isData: true, dataValue: v})
	cur.advance(3)
	return nil
}

// parseTextStatement consumes one label definition or one instruction
// from the .text section (spec §4.11's four instruction shapes).
func (p *Program) parseTextStatement(cur *cursor) error {
	tok := cur.at(0)

	if tok.Type == TokString && cur.at(1).Value == ":" {
		p.labels[tok.Value] = len(p.cells)
		cur.advance(2)
		return nil
	}

	if tok.Type != TokString {
		return fmt.Errorf("%w: expected instruction at %d:%d", errParseFailure, tok.Line, tok.Col)
	}

	switch {
	case tok.Value == "halt":
		p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: "halt", term: tok}})
		cur.advance(1)
		return nil

	case oneArgOps[tok.Value]:
		imm, err := parseOperand(cur.at(1))
		if err != nil {
			return err
		}
		p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: tok.Value, imm: imm, term: tok}})
		cur.advance(2)
		return nil

	case twoArgOps[tok.Value]:
		// <mnemonic> reg , [sign] imm ( reg )
		sign, k := "", 3
		if cur.at(3).Value == "+" || cur.at(3).Value == "-" {
			sign, k = cur.at(3).Value, 4
		}
		if cur.at(1).Type != TokString || cur.at(2).Value != "," ||
			(cur.at(k).Type != TokNumber && cur.at(k).Type != TokString) ||
			cur.at(k+1).Value != "(" || cur.at(k+2).Type != TokString || cur.at(k+3).Value != ")" {
			return fmt.Errorf("%w: malformed %q at %d:%d", errParseFailure, tok.Value, tok.Line, tok.Col)
		}
		rD, ok := registers[cur.at(1).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(1).Value, cur.at(1).Line, cur.at(1).Col)
		}
		rS, ok := registers[cur.at(k+2).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(k+2).Value, cur.at(k+2).Line, cur.at(k+2).Col)
		}
		imm, err := parseOperand(cur.at(k))
		if err != nil {
			return err
		}
		if sign == "-" && !imm.isLabel {
			imm.value = -imm.value
		}
		p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: tok.Value, regs: []int{rD, rS}, imm: imm, term: tok}})
		cur.advance(k + 4)
		return nil

	case threeArgOps[tok.Value]:
		if cur.at(1).Type != TokString || cur.at(2).Value != "," || cur.at(3).Type != TokString ||
			cur.at(4).Value != "," || (cur.at(5).Type != TokNumber && cur.at(5).Type != TokString) {
			return fmt.Errorf("%w: malformed %q at %d:%d", errParseFailure, tok.Value, tok.Line, tok.Col)
		}
		rD, ok := registers[cur.at(1).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(1).Value, cur.at(1).Line, cur.at(1).Col)
		}
		rS1, ok := registers[cur.at(3).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(3).Value, cur.at(3).Line, cur.at(3).Col)
		}

		if tok.Value == "addi" {
			imm, err := parseOperand(cur.at(5))
			if err != nil {
				return err
			}
			p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: tok.Value, regs: []int{rD, rS1}, imm: imm, term: tok}})
			cur.advance(6)
			return nil
		}

		rS2, ok := registers[cur.at(5).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(5).Value, cur.at(5).Line, cur.at(5).Col)
		}
		p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: tok.Value, regs: []int{rD, rS1, rS2}, term: tok}})
		cur.advance(6)
		return nil

	// bne/beq take two registers and a label in this implementation
	// (see DESIGN.md: spec.md's one-arg grammar line for bne/beq
	// conflicts with its own worked scenario and with BNE's own
	// microprogram's split-immediate selection, both of which require
	// two register operands).
	case tok.Value == "bne" || tok.Value == "beq":
		if cur.at(1).Type != TokString || cur.at(2).Value != "," || cur.at(3).Type != TokString ||
			cur.at(4).Value != "," || (cur.at(5).Type != TokNumber && cur.at(5).Type != TokString) {
			return fmt.Errorf("%w: malformed %q at %d:%d", errParseFailure, tok.Value, tok.Line, tok.Col)
		}
		r1, ok := registers[cur.at(1).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(1).Value, cur.at(1).Line, cur.at(1).Col)
		}
		r2, ok := registers[cur.at(3).Value]
		if !ok {
			return fmt.Errorf("%w: %q at %d:%d", errUnknownRegister, cur.at(3).Value, cur.at(3).Line, cur.at(3).Col)
		}
		imm, err := parseOperand(cur.at(5))
		if err != nil {
			return err
		}
		p.cells = append(p.cells, cellPlan{stmt: textStmt{mnemonic: tok.Value, regs: []int{r1, r2}, imm: imm, term: tok}})
		cur.advance(6)
		return nil

	default:
		return fmt.Errorf("%w: %q at %d:%d", errUnknownMnemonic, tok.Value, tok.Line, tok.Col)
	}
}

func parseOperand(tok Token) (operand, error) {
	if tok.Type == TokNumber {
		n, err := strconv.Atoi(tok.Value)
		if err != nil {
			return operand{}, fmt.Errorf("%w: %q at %d:%d", errParseFailure, tok.Value, tok.Line, tok.Col)
		}
		return operand{value: n}, nil
	}
	return operand{isLabel: true, label: tok.Value}, nil
}
