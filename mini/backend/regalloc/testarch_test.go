package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljp2010/mono/mini/ir"
)

// The test architecture: four allocatable integer registers R0-R3 with
// no callee-saved set, R4 as the frame base, four float registers, the
// (R0, R2) long pair and R2 as the shift register. Integer virtuals
// start at 5, float virtuals at 4.
const (
	tR0 Reg = iota
	tR1
	tR2
	tR3
	tBase
)

func testDescs() []*Desc {
	t := make([]*Desc, ir.NumOpcodes)
	set := func(op ir.Opcode, d Desc) {
		e := d
		t[op] = &e
	}

	set(ir.OpNop, NewDesc(OperandNone, OperandNone, OperandNone, ClobNone))
	set(ir.OpIConst, NewDesc(OperandInt, OperandNone, OperandNone, ClobNone))
	set(ir.OpMove, NewDesc(OperandInt, OperandInt, OperandNone, ClobNone).AsMove())
	set(ir.OpAdd, NewDesc(OperandInt, OperandInt, OperandInt, ClobNone))
	set(ir.OpSub, NewDesc(OperandInt, OperandInt, OperandInt, ClobDestEqSrc1))
	set(ir.OpShl, NewDesc(OperandInt, OperandInt, OperandInt, ClobShift).FixSrc2(tR2))
	set(ir.OpCompare, NewDesc(OperandNone, OperandInt, OperandInt, ClobNone))
	set(ir.OpSetRet, NewDesc(OperandInt, OperandInt, OperandNone, ClobNone).FixDest(tR1))
	set(ir.OpLMul, NewDesc(OperandLongPair, OperandInt, OperandInt, ClobNone))
	set(ir.OpCall, NewDesc(OperandInt, OperandNone, OperandNone, ClobCall).FixDest(tR0))
	set(ir.OpVoidCall, NewDesc(OperandNone, OperandNone, OperandNone, ClobCall))
	set(ir.OpLoadMembase, NewDesc(OperandInt, OperandBase, OperandNone, ClobNone))
	set(ir.OpStoreMembaseReg, NewDesc(OperandBase, OperandInt, OperandNone, ClobNone))

	set(ir.OpR8Const, NewDesc(OperandFloat, OperandNone, OperandNone, ClobNone))
	set(ir.OpFMove, NewDesc(OperandFloat, OperandFloat, OperandNone, ClobNone))
	set(ir.OpFAdd, NewDesc(OperandFloat, OperandFloat, OperandFloat, ClobNone))
	set(ir.OpFCompare, NewDesc(OperandNone, OperandFloat, OperandFloat, ClobNone))
	set(ir.OpFConvToI4, NewDesc(OperandInt, OperandFloat, OperandNone, ClobFPMem))
	set(ir.OpLoadR8Membase, NewDesc(OperandFloat, OperandBase, OperandNone, ClobNone))
	set(ir.OpLoadR8SpillMembase, NewDesc(OperandFloat, OperandBase, OperandNone, ClobNone))
	set(ir.OpStoreR8MembaseReg, NewDesc(OperandBase, OperandFloat, OperandNone, ClobNone))

	return t
}

func testArch() *Arch {
	return &Arch{
		Name: "test",

		NumIRegs: 5,
		NumFRegs: 4,

		CallerSavedIRegs: NewRegMask(tR0, tR1, tR2, tR3),
		CalleeSavedIRegs: NewRegMask(tBase),
		CallerSavedFRegs: NewRegMask(0, 1, 2, 3),
		CalleeSavedFRegs: 0,

		BaseReg:     tBase,
		PointerSize: 4,
		DoubleSize:  8,

		PairLoReg: tR0,
		PairHiReg: tR2,
		ShiftReg:  tR2,

		MoveOp:       ir.OpMove,
		FMoveOp:      ir.OpFMove,
		LoadOp:       ir.OpLoadMembase,
		StoreOp:      ir.OpStoreMembaseReg,
		FLoadOp:      ir.OpLoadR8Membase,
		FStoreOp:     ir.OpStoreR8MembaseReg,
		FSpillLoadOp: ir.OpLoadR8SpillMembase,

		Descs: testDescs(),
	}
}

func fpStackArch() *Arch {
	a := testArch()
	a.Name = "test-fpstack"
	a.UseFPStack = true
	a.FPStackSize = 2
	return a
}

// mkIns builds an instruction with the given operands in descriptor
// order (unused slots stay invalid).
func mkIns(a *Allocator, op ir.Opcode, regs ...Reg) *Instr {
	i := a.NewInstr(op)
	d := a.arch.Desc(op)
	idx := 0
	take := func() Reg {
		r := regs[idx]
		idx++
		return r
	}
	if d.Dest.used() {
		i.Dreg = take()
	}
	if d.Src1.used() {
		i.Sreg1 = take()
	}
	if d.Src2.used() {
		i.Sreg2 = take()
	}
	return i
}

func mkBlock(a *Allocator, maxI, maxF int, instrs ...*Instr) *Block {
	b := &Block{MaxIReg: maxI, MaxFReg: maxF}
	for _, i := range instrs {
		b.Append(i)
	}
	return b
}

// instrs collects the block's instructions into a slice.
func instrs(b *Block) []*Instr {
	var out []*Instr
	for i := b.First(); i != nil; i = i.Next() {
		out = append(out, i)
	}
	return out
}

// checkOperands asserts the output contract: every used operand slot
// holds a hard register of its file, every unused slot RegInvalid.
// Float operands are exempt in FP-stack mode, where they stay
// symbolic for the emitter's stack tracking.
func checkOperands(t *testing.T, a *Arch, b *Block) {
	t.Helper()
	for i := b.First(); i != nil; i = i.Next() {
		d := a.Desc(i.Op)
		check := func(name string, cls OperandClass, r Reg) {
			t.Helper()
			if !cls.used() {
				require.Equal(t, RegInvalid, r, "%s of %s must be unused", name, i.Op)
				return
			}
			fp := cls.isFloat()
			if fp && a.UseFPStack {
				return
			}
			require.True(t, a.isHardReg(r, fp), "%s of %s is %d, not a hard register", name, i.Op, r)
		}
		check("dest", d.Dest, i.Dreg)
		check("src1", d.Src1, i.Sreg1)
		check("src2", d.Src2, i.Sreg2)
	}
}

// checkStateConsistency asserts the assignment invariant on the final
// register state (which reflects the block entry): whenever a hard
// register has a symbolic occupant, the occupant's assignment points
// back and the register is not free.
func checkStateConsistency(t *testing.T, a *Allocator) {
	t.Helper()
	for _, s := range []*regFileState{&a.istate, &a.fstate} {
		if s.fp && a.arch.UseFPStack {
			continue
		}
		for h := 0; h < s.nHard; h++ {
			v := s.symbolic[h]
			if v < 0 {
				continue
			}
			require.Equal(t, Reg(h), s.assign[v], "symbolic[%d]=R%d but assign disagrees", h, v)
			require.False(t, s.freeMask.Has(Reg(h)), "bound register %d marked free", h)
		}
	}
}
