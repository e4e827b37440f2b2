package regalloc

import (
	"fmt"

	"github.com/ljp2010/mono/mini/ir"
)

// OperandClass describes what an instruction's operand slot holds.
type OperandClass uint8

const (
	// OperandNone marks a slot the instruction does not use.
	OperandNone OperandClass = iota
	// OperandInt is an integer register operand.
	OperandInt
	// OperandFloat is a float register operand.
	OperandFloat
	// OperandBase is an integer register used only to address memory;
	// it is read, never killed as a value.
	OperandBase
	// OperandLong is a 64-bit value in the (v, v+1) register pair.
	OperandLong
	// OperandLongPair is a 64-bit value in the (v, v+1) pair whose
	// halves are destined for the ISA's designated pair registers.
	OperandLongPair
)

// String implements fmt.Stringer.
func (c OperandClass) String() string {
	switch c {
	case OperandNone:
		return "none"
	case OperandInt:
		return "int"
	case OperandFloat:
		return "float"
	case OperandBase:
		return "base"
	case OperandLong:
		return "long"
	case OperandLongPair:
		return "longpair"
	}
	return fmt.Sprintf("invalid(%d)", uint8(c))
}

// isFloat reports whether the operand lives in the float file. Long
// pairs and base registers are integer operands.
func (c OperandClass) isFloat() bool { return c == OperandFloat }

// used reports whether the slot holds a register at all.
func (c OperandClass) used() bool { return c != OperandNone }

// isPair reports whether the operand occupies the (v, v+1) pair.
func (c OperandClass) isPair() bool { return c == OperandLong || c == OperandLongPair }

// ClobberKind describes an instruction's side effect on registers
// beyond its named operands.
type ClobberKind uint8

const (
	// ClobNone clobbers nothing.
	ClobNone ClobberKind = iota
	// ClobCall clobbers every caller-saved register; the instruction
	// carries outgoing argument bindings.
	ClobCall
	// ClobDestEqSrc1 requires the destination register to equal src1
	// (two-address instruction).
	ClobDestEqSrc1
	// ClobShift requires src2 in the ISA shift register and forbids
	// src1 there.
	ClobShift
	// ClobFPMem materialises the FP result through memory; the FP
	// destination of such an instruction does not count toward the
	// stack depth, and the reverse pass inserts no FP-stack stores or
	// reloads for it.
	ClobFPMem
	// ClobReg clobbers the single hard register named by FixedClob.
	ClobReg
)

// String implements fmt.Stringer.
func (k ClobberKind) String() string {
	switch k {
	case ClobNone:
		return "none"
	case ClobCall:
		return "call"
	case ClobDestEqSrc1:
		return "dest=src1"
	case ClobShift:
		return "shift"
	case ClobFPMem:
		return "fpmem"
	case ClobReg:
		return "reg"
	}
	return fmt.Sprintf("invalid(%d)", uint8(k))
}

// Desc is one opcode's entry in the descriptor table: the operand
// classes of its three register slots, its clobber kind, the fixed
// hard registers individual slots must land in, and the hard registers
// src2 must avoid.
type Desc struct {
	Dest, Src1, Src2 OperandClass
	Clob             ClobberKind

	// Fixed hard register per slot; RegInvalid when unconstrained.
	FixedDest, FixedSrc1, FixedSrc2, FixedClob Reg

	// Src2Mask is the set of hard registers src2 must not use.
	Src2Mask RegMask

	// Move marks a plain register-to-register move, eligible for the
	// same-register source hint that lets the peephole drop it.
	Move bool
}

// NewDesc returns a descriptor with no fixed-register constraints.
func NewDesc(dest, src1, src2 OperandClass, clob ClobberKind) Desc {
	return Desc{
		Dest: dest, Src1: src1, Src2: src2, Clob: clob,
		FixedDest: RegInvalid, FixedSrc1: RegInvalid,
		FixedSrc2: RegInvalid, FixedClob: RegInvalid,
	}
}

// FixDest returns the descriptor requiring the destination in r.
func (d Desc) FixDest(r Reg) Desc { d.FixedDest = r; return d }

// FixSrc1 returns the descriptor requiring src1 in r.
func (d Desc) FixSrc1(r Reg) Desc { d.FixedSrc1 = r; return d }

// FixSrc2 returns the descriptor requiring src2 in r.
func (d Desc) FixSrc2(r Reg) Desc { d.FixedSrc2 = r; return d }

// ClobbersReg returns the descriptor clobbering the single register r.
func (d Desc) ClobbersReg(r Reg) Desc { d.Clob = ClobReg; d.FixedClob = r; return d }

// ForbidSrc2 returns the descriptor with m added to the src2 forbidden
// mask.
func (d Desc) ForbidSrc2(m RegMask) Desc { d.Src2Mask |= m; return d }

// AsMove returns the descriptor flagged as a register move.
func (d Desc) AsMove() Desc { d.Move = true; return d }

// Arch is the static architecture description the allocator works
// against: register files, calling-convention partitions, the opcodes
// used for inserted spill/reload/move instructions, and the descriptor
// table.
type Arch struct {
	Name string

	// Register file sizes. Virtual ids start at the file size.
	NumIRegs, NumFRegs int

	// Caller-saved ("local") registers are the allocation pool;
	// callee-saved ("global") registers may appear pre-assigned but
	// are never allocated, freed, or spilled here.
	CallerSavedIRegs, CalleeSavedIRegs RegMask
	CallerSavedFRegs, CalleeSavedFRegs RegMask

	// BaseReg addresses spill slots.
	BaseReg Reg

	// Slot sizes for integer and float spills.
	PointerSize, DoubleSize int64

	// UseFPStack selects the depth-limited stack-based float file.
	UseFPStack  bool
	FPStackSize int

	// Registers backing the descriptor-table hints: the (lo, hi) pair
	// for long values and the shift-count register. RegInvalid when
	// the ISA has no such convention.
	PairLoReg, PairHiReg, ShiftReg Reg

	// Opcodes for instructions the allocator inserts.
	MoveOp, FMoveOp                 ir.Opcode
	LoadOp, StoreOp                 ir.Opcode
	FLoadOp, FStoreOp, FSpillLoadOp ir.Opcode

	// Descs is the descriptor table, indexed by opcode. A nil entry is
	// an unknown opcode and a fatal error when encountered.
	Descs []*Desc

	// Optional register names for traces; defaults are "r%d"/"f%d".
	IRegName, FRegName func(Reg) string
}

// Desc returns the descriptor for op. Descriptor lookup failure is a
// compiler bug.
func (a *Arch) Desc(op ir.Opcode) *Desc {
	if op >= 0 && int(op) < len(a.Descs) {
		if d := a.Descs[op]; d != nil {
			return d
		}
	}
	panic(fmt.Sprintf("BUG: unknown opcode: %s", op))
}

func (a *Arch) numRegs(fp bool) int {
	if fp {
		return a.NumFRegs
	}
	return a.NumIRegs
}

func (a *Arch) callerSaved(fp bool) RegMask {
	if fp {
		return a.CallerSavedFRegs
	}
	return a.CallerSavedIRegs
}

func (a *Arch) calleeSaved(fp bool) RegMask {
	if fp {
		return a.CalleeSavedFRegs
	}
	return a.CalleeSavedIRegs
}

func (a *Arch) isHardReg(r Reg, fp bool) bool {
	return r >= 0 && int(r) < a.numRegs(fp)
}

// isSoftReg reports whether r is a virtual register of the file.
func (a *Arch) isSoftReg(r Reg, fp bool) bool {
	return !a.isHardReg(r, fp)
}

// isGlobalReg reports whether r is a callee-saved hard register.
func (a *Arch) isGlobalReg(r Reg, fp bool) bool {
	return a.isHardReg(r, fp) && a.calleeSaved(fp).Has(r)
}

// regFreeable reports whether the allocator may free r: caller-saved
// for the integer file, any hard register for floats.
func (a *Arch) regFreeable(r Reg, fp bool) bool {
	if fp {
		return a.isHardReg(r, true)
	}
	return a.isHardReg(r, false) && a.CallerSavedIRegs.Has(r)
}

// regName formats r for traces: hard registers by their ISA name,
// virtuals as R<n>.
func (a *Arch) regName(r Reg, fp bool) string {
	if !a.isHardReg(r, fp) {
		return fmt.Sprintf("R%d", r)
	}
	if fp {
		if a.FRegName != nil {
			return a.FRegName(r)
		}
		return fmt.Sprintf("f%d", r)
	}
	if a.IRegName != nil {
		return a.IRegName(r)
	}
	return fmt.Sprintf("r%d", r)
}
