// Command csa16sim runs, assembles, disassembles and single-steps
// programs for the 16-bit register machine implemented in machine/
// and asm/. Subcommands are wired with cobra the way
// oisee-z80-optimizer/cmd/z80opt/main.go wires its enumerate/target
// commands: one root command, one cobra.Command per mode, flags bound
// directly to local vars via pflag's *Var setters.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmittrey/csa-lab3/asm"
	"github.com/dmittrey/csa-lab3/isa"
	"github.com/dmittrey/csa-lab3/machine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "csa16sim",
		Short:        "assembler and cycle-accurate simulator for the 16-bit register machine",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newAsmCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newDebugCmd())
	return root
}

// runCmdFlags are the flags shared by run and debug: tick budget,
// memory size and an override of the demonstration keystroke schedule
// (SPEC_FULL.md §5's "Keystroke-schedule override").
type runCmdFlags struct {
	ticks           int
	memWords        int
	tickLogPath     string
	interruptScript string
}

func (f *runCmdFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.ticks, "ticks", machine.DefaultTickBudget, "tick budget before aborting a runaway program")
	cmd.Flags().IntVar(&f.memWords, "mem", isa.DefaultMemorySize, "memory size in words")
	cmd.Flags().StringVar(&f.tickLogPath, "tick-log", "", "write the per-sub-tick trace to this file (default: no trace)")
	cmd.Flags().StringVar(&f.interruptScript, "interrupt-script", "", `override the demo keystroke schedule, e.g. "1:h,10:e,20:l,25:l,100:o"`)
}

func newRunCmd() *cobra.Command {
	flags := &runCmdFlags{}
	cmd := &cobra.Command{
		Use:   "run <code_file> <start_address> <interrupts_enabled>",
		Short: "load a machine-code file and run it to completion",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := buildSimulator(args, flags)
			if err != nil {
				return err
			}
			if err := sim.Run(); err != nil {
				return err
			}
			printFinalState(cmd, sim)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newDebugCmd() *cobra.Command {
	flags := &runCmdFlags{}
	cmd := &cobra.Command{
		Use:   "debug <code_file> <start_address> <interrupts_enabled>",
		Short: "single-step a program interactively (next/run/break)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := buildSimulator(args, flags)
			if err != nil {
				return err
			}
			return sim.StepInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	flags.bind(cmd)
	return cmd
}

func newAsmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asm <source.asm> <out_code_file> <out_log_file>",
		Short: "assemble a source file into a machine-code file and a translation log",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcPath, codePath, logPath := args[0], args[1], args[2]

			src, err := os.ReadFile(srcPath)
			if err != nil {
				return err
			}
			toks, err := asm.Lex(string(src))
			if err != nil {
				return err
			}
			prog, err := asm.Parse(toks)
			if err != nil {
				return err
			}
			code, err := asm.Encode(prog)
			if err != nil {
				return err
			}

			codeFile, err := os.Create(codePath)
			if err != nil {
				return err
			}
			defer codeFile.Close()
			if err := asm.WriteCode(codeFile, code); err != nil {
				return err
			}

			logFile, err := os.Create(logPath)
			if err != nil {
				return err
			}
			defer logFile.Close()
			entries := asm.BuildLog(prog, code)
			if err := asm.WriteLog(logFile, entries); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "assembled %d words -> %s (log: %s)\n", len(code), codePath, logPath)
			return nil
		},
	}
	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <code_file>",
		Short: "print the assembly-text rendering of a machine-code file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			code, err := asm.ReadCode(f)
			if err != nil {
				return err
			}
			for _, line := range asm.Disassemble(code) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	return cmd
}

// buildSimulator is the shared setup path for run/debug: read the
// code file, parse the three positional args spec.md §6 fixes the
// shape of (including the literal True/False spelling of
// interrupts_enabled), and wire a Simulator over it.
func buildSimulator(args []string, flags *runCmdFlags) (*machine.Simulator, error) {
	codePath, startArg, enabledArg := args[0], args[1], args[2]

	f, err := os.Open(codePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	code, err := asm.ReadCode(f)
	if err != nil {
		return nil, err
	}

	start, err := strconv.Atoi(startArg)
	if err != nil {
		return nil, fmt.Errorf("invalid start_address %q: %w", startArg, err)
	}

	interruptsEnabled, err := parseBoolLiteral(enabledArg)
	if err != nil {
		return nil, err
	}

	schedule, err := parseInterruptScript(flags.interruptScript)
	if err != nil {
		return nil, err
	}

	sim := machine.NewSimulator(flags.memWords, schedule, interruptsEnabled, flags.ticks)
	if err := sim.LoadProgram(code, 0, start); err != nil {
		return nil, err
	}

	if flags.tickLogPath != "" {
		logFile, err := os.Create(flags.tickLogPath)
		if err != nil {
			return nil, err
		}
		sim.SetTickLog(logFile)
	}

	return sim, nil
}

// parseBoolLiteral accepts exactly the literal spellings spec.md §6
// fixes for interrupts_enabled ("True"/"False"), not Go's looser
// strconv.ParseBool spellings.
func parseBoolLiteral(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, fmt.Errorf("interrupts_enabled must be %q or %q, got %q", "True", "False", s)
	}
}

// parseInterruptScript parses "tick:char,tick:char,..." into a keystroke
// schedule; an empty string selects the package default
// (machine.DefaultInterruptScript) by returning a nil slice.
func parseInterruptScript(spec string) ([]machine.Keystroke, error) {
	if spec == "" {
		return nil, nil
	}
	var out []machine.Keystroke
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || len(parts[1]) == 0 {
			return nil, fmt.Errorf("malformed interrupt-script entry %q", entry)
		}
		tick, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed interrupt-script tick %q: %w", parts[0], err)
		}
		out = append(out, machine.Keystroke{Tick: tick, Char: rune(parts[1][0])})
	}
	return out, nil
}

func printFinalState(cmd *cobra.Command, sim *machine.Simulator) {
	dp := sim.DataPath()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "halted after %d ticks, PC=%d\n", dp.TickCount(), dp.PC())
	fmt.Fprintf(w, "regs=%v\n", dp.Registers())
	if out := dp.OutputBuffer(); len(out) > 0 {
		fmt.Fprintf(w, "output: %q\n", string(out))
	}
}
