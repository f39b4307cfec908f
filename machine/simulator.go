package machine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmittrey/csa-lab3/isa"
)

// Simulator is the top-level orchestrator a CLI driver talks to: it
// owns the DataPath and ControlUnit, loads programs, and buffers the
// tick trace through a *bufio.Writer the way the teacher buffers
// vm.stdout/vm.debugOut (KTStephano-GVM/vm/vm.go) rather than writing
// straight to os.Stdout on every tick.
type Simulator struct {
	dp *DataPath
	cu *ControlUnit

	tickLog       *bufio.Writer
	tickLogActive bool
}

// NewSimulator builds a Simulator with memorySize words of RAM and the
// given keystroke schedule (nil selects DefaultInterruptScript).
// tickBudget <= 0 selects DefaultTickBudget.
func NewSimulator(memorySize int, schedule []Keystroke, interruptsEnabled bool, tickBudget int) *Simulator {
	dp := NewDataPath(memorySize, schedule)
	cu := NewControlUnit(dp, interruptsEnabled, tickBudget)
	sim := &Simulator{dp: dp, cu: cu}
	cu.OnSubTick = sim.logSubTick
	return sim
}

// LoadProgram copies program into memory starting at base and sets PC
// to start.
func (s *Simulator) LoadProgram(program []uint16, base, start int) error {
	if err := s.dp.LoadProgram(program, base); err != nil {
		return err
	}
	s.dp.SetPC(uint16(start))
	return nil
}

// SetTickLog directs the per-sub-tick trace (spec §6's tick log) to w;
// passing nil disables logging. Defaults to disabled - callers that
// want the trace on stdout call SetTickLog(os.Stdout).
func (s *Simulator) SetTickLog(w io.Writer) {
	if w == nil {
		s.tickLog = nil
		s.tickLogActive = false
		return
	}
	s.tickLog = bufio.NewWriter(w)
	s.tickLogActive = true
}

// Run drives the fetch-execute loop to completion (HALT, tick-budget
// exhaustion, or a fatal component error). Component panics (memory
// out-of-range, unknown ALUControl/ImmSrc, MMIO misuse, mux select
// out-of-range) are recovered here and turned into the sentinel errors
// from errors.go, following the teacher's
// getDefaultRecoverFuncForVM/RunProgram recover pattern
// (KTStephano-GVM/vm/run.go) rather than letting them crash the
// process.
func (s *Simulator) Run() (err error) {
	defer func() {
		if s.tickLog != nil {
			s.tickLog.Flush()
		}
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("machine: %v", r)
		}
	}()
	return s.cu.Run()
}

// DataPath exposes the underlying datapath for callers that need
// direct register/memory/output inspection (tests, the disassembler,
// the CLI's run/debug subcommands).
func (s *Simulator) DataPath() *DataPath { return s.dp }

// logSubTick writes one tick-log line in spec §6's format:
// "Tick N) PC=... regs=[...] srcA=... srcB=... Result=... A1=... A2=... A3=..."
// with an "(Int)" prefix while servicing an interrupt.
func (s *Simulator) logSubTick(dp *DataPath, interrupted bool) {
	if !s.tickLogActive {
		return
	}
	a1, a2, a3 := dp.RegisterFieldAddresses()
	prefix := ""
	if interrupted {
		prefix = "(Int) "
	}
	fmt.Fprintf(s.tickLog, "%sTick %d) PC=%d regs=%s srcA=%d srcB=%d Result=%d A1=%d A2=%d A3=%d\n",
		prefix, dp.TickCount(), dp.PC(), formatRegs(dp.Registers()), dp.SrcA(), dp.SrcB(), dp.ALUResult(), a1, a2, a3)
}

func formatRegs(regs [isa.NumRegisters]uint16) string {
	parts := make([]string, len(regs))
	for i, v := range regs {
		parts[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// StepInteractive runs the program one instruction (with "n"/"next"), to
// completion ("r"/"run"), or up to a PC breakpoint, reading commands
// from in and writing prompts/state to out - reworked from
// KTStephano-GVM/vm/run.go's RunProgramDebugMode, with breakpoints
// keyed on PC (word address) rather than the teacher's source-line
// index.
func (s *Simulator) StepInteractive(in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintf(w, "Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb <pc> or break <pc>: toggle breakpoint\n\n")
	s.printState(w)
	w.Flush()

	reader := bufio.NewReader(in)
	breakpoints := make(map[uint16]struct{})
	waitForInput := true
	lastBreakPC := uint16(0)
	haveLastBreak := false

	for {
		line := ""
		if waitForInput {
			fmt.Fprint(w, "\n->")
			w.Flush()
			var readErr error
			line, readErr = reader.ReadString('\n')
			if readErr != nil && line == "" {
				return nil
			}
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			pc := s.dp.PC()
			if _, hit := breakpoints[pc]; hit && (!haveLastBreak || lastBreakPC != pc) {
				fmt.Fprintln(w, "breakpoint")
				s.printState(w)
				waitForInput = true
				lastBreakPC = pc
				haveLastBreak = true
				continue
			}
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			haveLastBreak = false
			err := s.stepOneInstruction()
			if waitForInput {
				s.printState(w)
			}
			if err != nil {
				if err == errHalted {
					fmt.Fprintln(w, "halted")
					return nil
				}
				fmt.Fprintln(w, err)
				return err
			}
		case line == "r" || line == "run":
			waitForInput = false
		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
			n, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				fmt.Fprintln(w, "unknown breakpoint address:", err)
				continue
			}
			pc := uint16(n)
			if _, ok := breakpoints[pc]; ok {
				delete(breakpoints, pc)
			} else {
				breakpoints[pc] = struct{}{}
			}
		}
	}
}

// stepOneInstruction runs exactly one fetch-execute cycle of the
// underlying control unit's main loop, recovering panics the same way
// Run does.
func (s *Simulator) stepOneInstruction() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("machine: %v", r)
		}
	}()
	return s.cu.step()
}

func (s *Simulator) printState(w io.Writer) {
	fmt.Fprintf(w, "PC=%d regs=%s\n", s.dp.PC(), formatRegs(s.dp.Registers()))
}
