package amd64

import (
	"github.com/ljp2010/mono/mini/backend/regalloc"
	"github.com/ljp2010/mono/mini/ir"
)

// divSrc2Forbidden keeps the divisor out of the registers the divide
// family reads and writes implicitly.
var divSrc2Forbidden = regalloc.NewRegMask(AX, DX)

// descs is the amd64 descriptor table. Two-address ALU ops carry the
// dest-equals-src1 clobber; divides pin their operands to AX/DX;
// shifts take the count in CX.
var descs = buildDescs()

func buildDescs() []*regalloc.Desc {
	t := make([]*regalloc.Desc, ir.NumOpcodes)
	set := func(op ir.Opcode, d regalloc.Desc) {
		e := d
		t[op] = &e
	}

	set(ir.OpNop, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))

	set(ir.OpMove, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone).AsMove())
	set(ir.OpSetReg, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone).AsMove())
	set(ir.OpFMove, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobNone))

	set(ir.OpIConst, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpR8Const, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))

	set(ir.OpLoadMembase, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpLoadI4Membase, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpStoreMembaseReg, regalloc.NewDesc(regalloc.OperandBase, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpStoreI4MembaseReg, regalloc.NewDesc(regalloc.OperandBase, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpLoadR8Membase, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpLoadR8SpillMembase, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandBase, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpStoreR8MembaseReg, regalloc.NewDesc(regalloc.OperandBase, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobNone))

	for _, op := range []ir.Opcode{ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpMul} {
		set(op, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobDestEqSrc1))
	}
	for _, op := range []ir.Opcode{ir.OpNeg, ir.OpNot} {
		set(op, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobDestEqSrc1))
	}
	set(ir.OpCompare, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))

	// Divides: dividend and quotient in AX, remainder in DX, the other
	// of the two clobbered; the divisor must avoid both.
	set(ir.OpDiv, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone).
		FixDest(AX).FixSrc1(AX).ClobbersReg(DX).ForbidSrc2(divSrc2Forbidden))
	set(ir.OpDivUn, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone).
		FixDest(AX).FixSrc1(AX).ClobbersReg(DX).ForbidSrc2(divSrc2Forbidden))
	set(ir.OpRem, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone).
		FixDest(DX).FixSrc1(AX).ClobbersReg(AX).ForbidSrc2(divSrc2Forbidden))
	set(ir.OpRemUn, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone).
		FixDest(DX).FixSrc1(AX).ClobbersReg(AX).ForbidSrc2(divSrc2Forbidden))

	for _, op := range []ir.Opcode{ir.OpShl, ir.OpShr, ir.OpShrUn} {
		set(op, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobShift).FixSrc2(CX))
	}

	// Long pair ops produce their 128-bit result in the (AX, DX) pair.
	set(ir.OpLMul, regalloc.NewDesc(regalloc.OperandLongPair, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))
	set(ir.OpLDiv, regalloc.NewDesc(regalloc.OperandLongPair, regalloc.OperandInt, regalloc.OperandInt, regalloc.ClobNone))
	set(ir.OpLShl, regalloc.NewDesc(regalloc.OperandLong, regalloc.OperandLongPair, regalloc.OperandInt, regalloc.ClobShift).FixSrc2(CX))
	set(ir.OpLShr, regalloc.NewDesc(regalloc.OperandLong, regalloc.OperandLongPair, regalloc.OperandInt, regalloc.ClobShift).FixSrc2(CX))

	// SSE float ALU is two-address like the integer file; the
	// allocator's dest-equals-src1 handling covers it through the
	// float-dest/float-src1 rule.
	for _, op := range []ir.Opcode{ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv} {
		set(op, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandFloat, regalloc.OperandFloat, regalloc.ClobNone))
	}
	set(ir.OpFNeg, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpFCompare, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandFloat, regalloc.OperandFloat, regalloc.ClobNone))

	set(ir.OpIConvToR8, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpFConvToI4, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandFloat, regalloc.OperandNone, regalloc.ClobFPMem))

	set(ir.OpCall, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobCall).FixDest(AX))
	set(ir.OpCallReg, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobCall).FixDest(AX))
	set(ir.OpFCall, regalloc.NewDesc(regalloc.OperandFloat, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobCall).FixDest(X0))
	set(ir.OpVoidCall, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobCall))

	set(ir.OpBr, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpBrEq, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpBrLt, regalloc.NewDesc(regalloc.OperandNone, regalloc.OperandNone, regalloc.OperandNone, regalloc.ClobNone))
	set(ir.OpSetRet, regalloc.NewDesc(regalloc.OperandInt, regalloc.OperandInt, regalloc.OperandNone, regalloc.ClobNone).FixDest(AX))

	return t
}

// Arch returns the amd64 architecture description for the allocator.
func Arch() *regalloc.Arch {
	return &regalloc.Arch{
		Name: "amd64",

		NumIRegs: NumIRegs,
		NumFRegs: NumFRegs,

		CallerSavedIRegs: CallerSavedIRegs,
		CalleeSavedIRegs: CalleeSavedIRegs,
		CallerSavedFRegs: CallerSavedFRegs,
		CalleeSavedFRegs: CalleeSavedFRegs,

		BaseReg:     BP,
		PointerSize: 8,
		DoubleSize:  8,

		PairLoReg: AX,
		PairHiReg: DX,
		ShiftReg:  CX,

		MoveOp:       ir.OpMove,
		FMoveOp:      ir.OpFMove,
		LoadOp:       ir.OpLoadMembase,
		StoreOp:      ir.OpStoreMembaseReg,
		FLoadOp:      ir.OpLoadR8Membase,
		FStoreOp:     ir.OpStoreR8MembaseReg,
		FSpillLoadOp: ir.OpLoadR8SpillMembase,

		Descs: descs,

		IRegName: IRegName,
		FRegName: FRegName,
	}
}
