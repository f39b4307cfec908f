package machine

import "github.com/dmittrey/csa-lab3/isa"

// DataPath builds the fixed wire graph binding every component (spec
// §4.9). The wiring below is a hard contract the control unit's
// microprogram relies on bit-for-bit; see the wire table in spec §4.9.
type DataPath struct {
	b bus

	pc         *trigger
	adrSrc     *mux
	mem        *memory
	io         *ioHandler
	ir         *trigger
	wdSrc      *mux
	regFile    *registerFile
	signExpand *signExpand
	aluSrcA    *mux
	aluSrcB    *mux
	alu        *alu

	tickNum int
}

// NewDataPath wires every component exactly as the spec §4.9 table
// describes. memorySize is the word count of RAM; schedule is the
// interrupt source's tick->char table (nil selects DefaultInterruptScript).
func NewDataPath(memorySize int, schedule []Keystroke) *DataPath {
	dp := &DataPath{}

	dp.pc = newTrigger(wireALUResult, wirePC)
	dp.adrSrc = newMux(1, wireAdr, wirePC, wireALUResult)
	dp.mem = newMemory(memorySize, wireAdr, wireRD, wireRD2)
	dp.io = newIOHandler(wireAdr, wireRD2, wireRD, schedule)
	dp.ir = newTrigger(wireRD, wireInstr)
	dp.wdSrc = newMux(1, wireWD, wireRD, wireALUResult)
	dp.regFile = newRegisterFile(wireInstr, wireRD1, wireRD2, wireWD)
	dp.signExpand = newSignExpand(wireInstr, wireExtImm)
	dp.aluSrcA = newMux(1, wireSrcA, wireRD1, wirePC)
	dp.aluSrcB = newMux(2, wireSrcB, wireRD2, wireExtImm, wirePCInc, wirePCInc)
	dp.alu = newALU(wireSrcA, wireSrcB, wireALUResult)

	// pc_inc is the constant 1 added to PC on an ordinary fetch advance;
	// it never changes after construction.
	dp.b.set(wirePCInc, 1)

	return dp
}

// Tick advances every component once, in the fixed order spec §4.9
// names: PC -> AdrSrc -> Memory -> IO -> IR -> WDSrc -> RegFile ->
// SignExpand -> ALUSrcA -> ALUSrcB -> ALU. That order is what lets a
// single tick propagate a value from PC through a memory read, through
// mux selection, to the ALU's output - required for the 3-tick
// instruction schedules the microprogram assumes.
func (dp *DataPath) Tick(sig signals) {
	dp.pc.tick(&dp.b, sig.PCWrite)
	dp.adrSrc.tick(&dp.b, sig.AdrSrc)
	dp.mem.tick(&dp.b, sig.MemWrite)
	dp.io.tick(&dp.b, dp.tickNum, sig.IOOp)
	dp.ir.tick(&dp.b, sig.IRWrite)
	dp.wdSrc.tick(&dp.b, sig.WDSrc)
	dp.regFile.tick(&dp.b, sig.RegWrite)
	dp.signExpand.tick(&dp.b, sig.ImmSrc)
	dp.aluSrcA.tick(&dp.b, sig.ALUSrcA)
	dp.aluSrcB.tick(&dp.b, sig.ALUSrcB)
	dp.alu.tick(&dp.b, sig.ALUControl, sig.EF)

	dp.tickNum++
}

// Opcode returns the low 4 bits of the current instruction word,
// sampled straight from the instruction wire (spec §4.10 step 2).
func (dp *DataPath) Opcode() isa.Opcode {
	return isa.Opcode(dp.b.get(wireInstr) & isa.OpcodeMask)
}

func (dp *DataPath) ZeroFlag() uint8     { return dp.alu.zeroFlag }
func (dp *DataPath) PositiveFlag() uint8 { return dp.alu.positiveFlag }
func (dp *DataPath) IOInt() uint8        { return dp.io.ioInt }
func (dp *DataPath) ClearIOInt()         { dp.io.clearInterrupt() }
func (dp *DataPath) TickCount() int      { return dp.tickNum }

// PC returns the current program counter (word address of the next
// instruction to fetch).
func (dp *DataPath) PC() uint16 { return dp.b.get(wirePC) }

// SetPC forces the program counter directly; used by program loading
// and by EnterInterrupt / ExitInterrupt, which vector control outside
// the normal ALU-feeds-PC path.
func (dp *DataPath) SetPC(v uint16) {
	dp.b.set(wirePC, v)
	dp.pc.state = v
}

func (dp *DataPath) Instruction() uint16 { return dp.b.get(wireInstr) }
func (dp *DataPath) SetInstruction(v uint16) {
	dp.b.set(wireInstr, v)
	dp.ir.state = v
}

func (dp *DataPath) ALUResult() uint16 { return dp.b.get(wireALUResult) }

// SrcA/SrcB/Result expose the ALU operand wires for tick logging
// (spec §6's tick log format).
func (dp *DataPath) SrcA() uint16 { return dp.b.get(wireSrcA) }
func (dp *DataPath) SrcB() uint16 { return dp.b.get(wireSrcB) }

// RegisterFieldAddresses returns A1, A2, A3 as the register file
// derives them from the current instruction word - used by the tick
// log (spec §6: "A1=... A2=... A3=...").
func (dp *DataPath) RegisterFieldAddresses() (a1, a2, a3 uint16) {
	word := dp.Instruction()
	a1 = (word >> isa.A1Shift) & isa.A1FieldMask
	a2 = (word >> isa.A2Shift) & isa.A2FieldMask
	a3 = (word >> isa.A3Shift) & isa.A3FieldMask
	return
}

// Register reads a general register (0-7); register 0 always reads 0.
func (dp *DataPath) Register(idx int) (uint16, error) { return dp.regFile.read(idx) }

// WriteRegister writes a general register directly, bypassing the
// normal RegFile.WE3 tick path. Used only by EnterInterrupt/
// ExitInterrupt to save/restore x7 (mscratch) around a handler.
func (dp *DataPath) WriteRegister(idx int, v uint16) error { return dp.regFile.write(idx, v) }

func (dp *DataPath) Registers() [isa.NumRegisters]uint16 { return dp.regFile.regs }

// PeekMemory/PokeMemory give direct memory access for program loading,
// interrupt context save/restore, and tests; they never go through a
// tick.
func (dp *DataPath) PeekMemory(addr int) (uint16, error) { return dp.mem.peek(addr) }
func (dp *DataPath) PokeMemory(addr int, v uint16) error { return dp.mem.poke(addr, v) }
func (dp *DataPath) LoadProgram(program []uint16, base int) error {
	return dp.mem.loadProgram(program, base)
}

// OutputBuffer returns the characters the program has written to the
// display MMIO cell so far.
func (dp *DataPath) OutputBuffer() []rune { return dp.io.OutputBuffer() }

// interruptContext is a snapshot of everything EnterInterrupt/
// ExitInterrupt must preserve byte-identical across a handler
// invocation (spec §3 invariants, §8 scenario 6).
type interruptContext struct {
	pc        uint16
	instr     uint16
	aluResult uint16
	savedX7   uint16
}

// EnterInterrupt vectors control to the handler at x6 (mtvec), saving
// IR to mem[257], ALU.Result to mem[256], and the current PC to x7
// (mscratch) (spec §4.9). Returns the snapshot ExitInterrupt needs to
// restore everything byte-identical afterwards.
func (dp *DataPath) EnterInterrupt() (interruptContext, error) {
	ctx := interruptContext{
		pc:        dp.PC(),
		instr:     dp.Instruction(),
		aluResult: dp.ALUResult(),
	}

	if err := dp.PokeMemory(isa.InterruptSaveIR, ctx.instr); err != nil {
		return ctx, err
	}
	if err := dp.PokeMemory(isa.InterruptSaveALUResult, ctx.aluResult); err != nil {
		return ctx, err
	}

	savedX7, err := dp.Register(isa.RegMScrat)
	if err != nil {
		return ctx, err
	}
	ctx.savedX7 = savedX7
	if err := dp.WriteRegister(isa.RegMScrat, ctx.pc); err != nil {
		return ctx, err
	}

	mtvec, err := dp.Register(isa.RegMTVEC)
	if err != nil {
		return ctx, err
	}
	dp.SetPC(mtvec)

	return ctx, nil
}

// ExitInterrupt restores PC, IR, ALU.Result and x7 from ctx, undoing
// EnterInterrupt in reverse (spec §4.9).
func (dp *DataPath) ExitInterrupt(ctx interruptContext) error {
	if err := dp.WriteRegister(isa.RegMScrat, ctx.savedX7); err != nil {
		return err
	}
	dp.SetInstruction(ctx.instr)
	dp.b.set(wireALUResult, ctx.aluResult)
	dp.SetPC(ctx.pc)
	return nil
}
