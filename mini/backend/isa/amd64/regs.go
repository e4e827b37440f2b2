// Package amd64 describes the amd64 architecture to the register
// allocator: the register files and their calling-convention
// partitions, the per-opcode descriptor table, and a bridge that
// lowers allocated instructions to machine code through golang-asm.
package amd64

import (
	"strings"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/ljp2010/mono/mini/backend/regalloc"
)

// Integer registers, in machine encoding order.
const (
	AX regalloc.Reg = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	NumIRegs = 16
)

// Float registers (the SSE file).
const (
	X0 regalloc.Reg = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15

	NumFRegs = 16
)

// goasmIRegs maps our integer register ids to golang-asm's.
var goasmIRegs = [NumIRegs]int16{
	AX: x86.REG_AX, CX: x86.REG_CX, DX: x86.REG_DX, BX: x86.REG_BX,
	SP: x86.REG_SP, BP: x86.REG_BP, SI: x86.REG_SI, DI: x86.REG_DI,
	R8: x86.REG_R8, R9: x86.REG_R9, R10: x86.REG_R10, R11: x86.REG_R11,
	R12: x86.REG_R12, R13: x86.REG_R13, R14: x86.REG_R14, R15: x86.REG_R15,
}

// goasmFRegs maps our float register ids to golang-asm's.
var goasmFRegs = [NumFRegs]int16{
	X0: x86.REG_X0, X1: x86.REG_X1, X2: x86.REG_X2, X3: x86.REG_X3,
	X4: x86.REG_X4, X5: x86.REG_X5, X6: x86.REG_X6, X7: x86.REG_X7,
	X8: x86.REG_X8, X9: x86.REG_X9, X10: x86.REG_X10, X11: x86.REG_X11,
	X12: x86.REG_X12, X13: x86.REG_X13, X14: x86.REG_X14, X15: x86.REG_X15,
}

// GoAsmIReg returns the golang-asm register for an integer hard
// register, for emitters building obj.Prog records directly.
func GoAsmIReg(r regalloc.Reg) int16 { return goasmIRegs[r] }

// GoAsmFReg returns the golang-asm register for a float hard register.
func GoAsmFReg(r regalloc.Reg) int16 { return goasmFRegs[r] }

// IRegName returns the conventional name of an integer register.
func IRegName(r regalloc.Reg) string {
	return strings.ToLower(obj.Rconv(int(goasmIRegs[r])))
}

// FRegName returns the conventional name of a float register.
func FRegName(r regalloc.Reg) string {
	return strings.ToLower(obj.Rconv(int(goasmFRegs[r])))
}

// Calling-convention partitions. Caller-saved registers are the
// allocation pool; SP and BP are reserved (BP bases the frame), the
// callee-saved set may only appear pre-assigned. X15 is kept back as
// an emitter scratch register.
var (
	CallerSavedIRegs = regalloc.NewRegMask(AX, CX, DX, SI, DI, R8, R9, R10, R11)
	CalleeSavedIRegs = regalloc.NewRegMask(BX, BP, R12, R13, R14, R15)

	CallerSavedFRegs = regalloc.NewRegMask(
		X0, X1, X2, X3, X4, X5, X6, X7, X8, X9, X10, X11, X12, X13, X14,
	)
	CalleeSavedFRegs = regalloc.RegMask(0)
)
