// Package testarch describes a small synthetic architecture for
// exercising and debugging the register allocator: four allocatable
// integer registers, a dedicated frame base, four float registers,
// and the pair/shift conventions the descriptor hints rely on.
// It is not a real target; with so few registers, spills and
// evictions show up in small blocks.
package testarch

import (
	"github.com/ljp2010/mono/mini/backend/regalloc"
	"github.com/ljp2010/mono/mini/ir"
)

// Integer registers. R0-R3 are the allocation pool; Base addresses
// spill slots and only appears pre-assigned.
const (
	R0 regalloc.Reg = iota
	R1
	R2
	R3
	Base

	NumIRegs = 5
)

// NumFRegs is the float file size; all four registers are allocatable.
const NumFRegs = 4

func descs() []*regalloc.Desc {
	t := make([]*regalloc.Desc, ir.NumOpcodes)
	set := func(op ir.Opcode, d regalloc.Desc) {
		e := d
		t[op] = &e
	}

	set(ir.OpNop, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpIConst, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpMove, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone).AsMove())
	set(ir.OpAdd, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))
	set(ir.OpSub, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobDestEqSrc1))
	set(ir.OpShl, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobShift).FixSrc2(R2))
	set(ir.OpCompare, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))
	set(ir.OpSetRet, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone).FixDest(R1))
	set(ir.OpLMul, regalloc.NewDesc(regalloc.OperandLongPair, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))
	set(ir.OpCall, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobCall).FixDest(R0))
	set(ir.OpVoidCall, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobCall))
	set(ir.OpLoadMembase, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpStoreMembaseReg, regalloc.NewDesc(regalloc.OperandBase, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone))

	set(ir.OpR8Const, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpFMove, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpFAdd, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandFloat, regalloc.OperandFloat, regalloc.ClobNone))
	set(ir.OpFCompare, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandFloat, regalloc.OperandFloat, regalloc.ClobNone))
	set(ir.OpFConvToI4, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobFPMem))
	set(ir.OpLoadR8Membase, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpLoadR8SpillMembase, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpStoreR8MembaseReg, regalloc.NewDesc(regalloc.OperandBase, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobNone))

	return t
}

// Arch returns the synthetic architecture description.
func Arch() *regalloc.Arch {
	return &regalloc.Arch{
		Name: "test",

		NumIRegs: NumIRegs,
		NumFRegs: NumFRegs,

		CallerSavedIRegs: regalloc.NewRegMask(R0, R1, R2, R3),
		CalleeSavedIRegs: regalloc.NewRegMask(Base),
		CallerSavedFRegs: regalloc.NewRegMask(0, 1, 2, 3),
		CalleeSavedFRegs: 0,

		BaseReg:     Base,
		PointerSize: 4,
		DoubleSize:  8,

		PairLoReg: R0,
		PairHiReg: R2,
		ShiftReg:  R2,

		MoveOp:       ir.OpMove,
		FMoveOp:      ir.OpFMove,
		LoadOp:       ir.OpLoadMembase,
		StoreOp:      ir.OpStoreMembaseReg,
		FLoadOp:      ir.OpLoadR8Membase,
		FStoreOp:     ir.OpStoreR8MembaseReg,
		FSpillLoadOp: ir.OpLoadR8SpillMembase,

		Descs: descs(),
	}
}
