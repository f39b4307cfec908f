package machine

import "errors"

// Most error conditions the simulator can hit are fatal (spec §7): they
// signal a malformed program, a microprogram bug, or exhausted
// resources, never a recoverable condition. Sentinel vars follow the
// teacher's errProgramFinished/errSegmentationFault idiom so callers can
// errors.Is against a specific cause.
//
// Two conditions spec §7 explicitly carves out as non-fatal, logged
// warnings instead: a write to register x0 (registerFile.lastWriteToZero)
// and an interrupt arriving while one is already being serviced
// (ControlUnit.reentrantInterrupt, see controlunit.go's step) - neither
// has a sentinel error here because neither ever aborts a run.
var (
	errMemoryOutOfRange    = errors.New("machine: memory address out of range")
	errUnknownOpcode       = errors.New("machine: unknown opcode")
	errUnknownImmSrc       = errors.New("machine: unknown ImmSrc")
	errUnknownALUControl   = errors.New("machine: unknown ALUControl")
	errMMIOWithoutIOOp     = errors.New("machine: MMIO cell accessed without IOOp asserted")
	errMuxSelectOutOfRange = errors.New("machine: mux select out of range")
	errProgramTooLarge     = errors.New("machine: program does not fit in memory")
	errTickBudgetExceeded  = errors.New("machine: tick budget exceeded")
	errHalted              = errors.New("machine: halted")
)
