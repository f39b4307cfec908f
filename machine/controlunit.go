package machine

import (
	"fmt"

	"github.com/dmittrey/csa-lab3/isa"
)

// DefaultTickBudget bounds a run against a runaway program (e.g. an
// infinite loop with interrupts disabled); Run returns
// errTickBudgetExceeded once it is spent.
const DefaultTickBudget = 1_000_000

// execContext is one entry of the control unit's interrupt work stack
// (spec §9's design note: interrupt re-entry is modeled as a stack of
// execution contexts rather than Go-level recursion). The base program
// runs in a context with interrupted=false; EnterInterrupt pushes one
// with interrupted=true, and a HALT encountered while interrupted pops
// it instead of ending the run.
type execContext struct {
	interrupted bool
	saved       interruptContext
}

// ControlUnit is the microprogrammed sequencer driving a DataPath
// through the fetch-execute loop (spec §4.10). It owns no state of its
// own beyond the interrupt work stack and tick accounting; all
// simulated machine state lives in the DataPath.
type ControlUnit struct {
	dp                *DataPath
	interruptsEnabled bool
	tickBudget        int
	stack             []execContext

	// reentrantInterrupt records the non-fatal warning spec §7 names
	// ("interrupt arrival while already in interrupt"): the request is
	// dropped rather than aborting the run (spec §3's invariant only
	// requires suppressing re-entry, not failing), following the same
	// unread-warning-flag pattern as registerFile.lastWriteToZero.
	reentrantInterrupt bool

	// OnSubTick, if set, is invoked after every sub-tick (including the
	// fetch) with whether that sub-tick ran inside an interrupt
	// context. Simulator uses this to write the tick log (spec §6);
	// ControlUnit itself has no notion of log formatting.
	OnSubTick func(dp *DataPath, interrupted bool)
}

// NewControlUnit builds a control unit over dp. interruptsEnabled
// mirrors the assembler/run-time config flag (spec §6); tickBudget <= 0
// selects DefaultTickBudget.
func NewControlUnit(dp *DataPath, interruptsEnabled bool, tickBudget int) *ControlUnit {
	if tickBudget <= 0 {
		tickBudget = DefaultTickBudget
	}
	return &ControlUnit{dp: dp, interruptsEnabled: interruptsEnabled, tickBudget: tickBudget}
}

// Run drives the fetch-execute loop until the base program HALTs, an
// unrecoverable condition occurs, or the tick budget is spent.
func (cu *ControlUnit) Run() error {
	cu.stack = []execContext{{}}
	for len(cu.stack) > 0 {
		if err := cu.step(); err != nil {
			if err == errHalted {
				return nil
			}
			return err
		}
	}
	return nil
}

// step runs exactly one fetch-dispatch cycle against the work stack
// (spec §9): a fetch sub-tick, opcode lookup, and that opcode's
// microprogram. A HALT encountered while servicing an interrupt pops
// the work stack and resumes the interrupted context instead of
// stopping; a HALT in the base context returns errHalted so both Run
// and Simulator.StepInteractive can distinguish "done" from "paused
// mid-program".
func (cu *ControlUnit) step() error {
	if len(cu.stack) == 0 {
		cu.stack = []execContext{{}}
	}
	top := cu.stack[len(cu.stack)-1]

	if err := cu.subTick(signals{IRWrite: 1}, top.interrupted); err != nil {
		return err
	}

	op := cu.dp.Opcode()

	if op == isa.HALT {
		if top.interrupted {
			cu.stack = cu.stack[:len(cu.stack)-1]
			return cu.dp.ExitInterrupt(top.saved)
		}
		return errHalted
	}

	if err := cu.execute(op, top.interrupted); err != nil {
		return err
	}

	// Interrupt check (spec §4.10 step 4e). Spec §4.10's pseudocode
	// describes this check running after every sub-tick of the current
	// opcode's microprogram (up to 3x per instruction); this
	// implementation instead checks once the instruction's bundle
	// sequence has fully retired, per spec §1's framing ("the control
	// unit must service [an interrupt] between instructions"). The two
	// spec passages disagree on granularity; servicing strictly
	// mid-bundle would mean abandoning a partially-executed
	// microprogram and later re-fetching the same instruction from
	// scratch, which double-applies any bundle whose register write
	// already landed before the abandoned point (e.g. re-running
	// "addi x3,x3,1" would increment twice) - worse than the coarser
	// granularity this resolves to. See DESIGN.md's Open Question entry
	// on interrupt-check granularity for the resulting latency bound
	// and its interaction with IOHandler.dipValue having no queue.
	if cu.interruptsEnabled && cu.dp.IOInt() == 1 {
		if top.interrupted {
			// spec §7's non-fatal warning: a second interrupt request
			// arriving while one is already being serviced is dropped,
			// not fatal (spec §3 only requires suppressing re-entry).
			cu.reentrantInterrupt = true
			cu.dp.ClearIOInt()
			return nil
		}
		ctx, err := cu.dp.EnterInterrupt()
		if err != nil {
			return err
		}
		cu.dp.ClearIOInt()
		cu.stack = append(cu.stack, execContext{interrupted: true, saved: ctx})
	}

	return nil
}

// execute runs every post-fetch sub-tick of op's microprogram. Most
// opcodes look up a fixed bundle sequence; bne/beq/jg instead sample a
// flag after their first bundle to pick between two continuations
// (spec §4.10's BNE note generalizes to all three).
func (cu *ControlUnit) execute(op isa.Opcode, interrupted bool) error {
	switch op {
	case isa.BNE:
		return cu.branch(interrupted, isa.ImmSrcSplit, func() bool { return cu.dp.ZeroFlag() == 0 })
	case isa.BEQ:
		return cu.branch(interrupted, isa.ImmSrcSplit, func() bool { return cu.dp.ZeroFlag() == 1 })
	case isa.JG:
		return cu.jumpIfGreater(interrupted)
	}

	mp, ok := straightMicroprograms[op]
	if !ok {
		return fmt.Errorf("%w: %d", errUnknownOpcode, op)
	}
	for _, sig := range mp {
		if err := cu.subTick(sig, interrupted); err != nil {
			return err
		}
	}
	return nil
}

// branch runs bne/beq's shared shape: compare rd1-rd2 with flags
// latched, then take the pc+ext_imm path or the pc+1 fallthrough path
// depending on taken().
func (cu *ControlUnit) branch(interrupted bool, immSrc isa.ImmSrc, taken func() bool) error {
	if err := cu.subTick(signals{ImmSrc: immSrc, ALUControl: isa.ALUSub, EF: 1}, interrupted); err != nil {
		return err
	}
	if taken() {
		if err := cu.subTick(signals{ImmSrc: immSrc, ALUSrcA: 1, ALUSrcB: 1, ALUControl: isa.ALUAdd}, interrupted); err != nil {
			return err
		}
	} else {
		if err := cu.subTick(signals{ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd}, interrupted); err != nil {
			return err
		}
	}
	return cu.subTick(signals{PCWrite: 1}, interrupted)
}

// jumpIfGreater tests PositiveFlag left by a preceding cmp; it does
// not recompute a comparison of its own.
func (cu *ControlUnit) jumpIfGreater(interrupted bool) error {
	if err := cu.subTick(signals{ALUSrcA: 1, ALUSrcB: 1, ALUControl: isa.ALUAdd}, interrupted); err != nil {
		return err
	}
	if cu.dp.PositiveFlag() == 1 {
		return cu.subTick(signals{PCWrite: 1}, interrupted)
	}
	if err := cu.subTick(signals{ALUSrcA: 1, ALUSrcB: 2, ALUControl: isa.ALUAdd}, interrupted); err != nil {
		return err
	}
	return cu.subTick(signals{PCWrite: 1}, interrupted)
}

// subTick runs one DataPath tick, enforces the tick budget, and
// notifies OnSubTick.
func (cu *ControlUnit) subTick(sig signals, interrupted bool) error {
	if cu.dp.TickCount() >= cu.tickBudget {
		return errTickBudgetExceeded
	}
	cu.dp.Tick(sig)
	if cu.OnSubTick != nil {
		cu.OnSubTick(cu.dp, interrupted)
	}
	return nil
}
