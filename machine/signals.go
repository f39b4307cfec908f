package machine

import "github.com/dmittrey/csa-lab3/isa"

// signals is the control unit's signal-register set, written fresh
// every sub-tick (spec §4.10). It is a dense fixed-size record rather
// than a map so an unknown signal name is a compile error, not a
// runtime lookup miss (spec §9's "replaces the dict-of-dicts").
//
// Every field defaults to zero when a microprogram bundle leaves it
// unnamed (spec: "zeroes all non-volatile signals not named"). Zero is
// a valid selector for ImmSrc and ALUControl too (ImmSrcI and ALUAdd),
// so an all-zero bundle is a well-defined no-op sub-tick, not a panic.
type signals struct {
	PCWrite    uint8
	AdrSrc     uint8
	MemWrite   uint8
	IRWrite    uint8
	WDSrc      uint8
	IOOp       uint8
	ImmSrc     isa.ImmSrc
	ALUControl isa.ALUControl
	ALUSrcB    uint8
	ALUSrcA    uint8
	RegWrite   uint8

	// EF gates ZeroFlag/PositiveFlag refresh on this sub-tick's ALU
	// result. Spec §4.10's signal list has no such line, but without
	// one a comparison's flags are clobbered by the very next
	// sub-tick's throwaway pc_inc computation before a later jg can
	// sample them - see alu.go.
	EF uint8
}
