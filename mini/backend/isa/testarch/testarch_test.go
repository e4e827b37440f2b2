package testarch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljp2010/mono/mini/backend/regalloc"
	"github.com/ljp2010/mono/mini/ir"
)

func TestArch_Shape(t *testing.T) {
	a := Arch()

	require.Equal(t, NumIRegs, a.NumIRegs)
	require.Zero(t, a.CallerSavedIRegs&a.CalleeSavedIRegs)
	require.False(t, a.CallerSavedIRegs.Has(Base), "the frame base is not allocatable")
	require.Equal(t, Base, a.BaseReg)
	require.False(t, a.UseFPStack)

	require.Equal(t, R2, a.Desc(ir.OpShl).FixedSrc2)
	require.Equal(t, R1, a.Desc(ir.OpSetRet).FixedDest)
	require.Equal(t, regalloc.ClobCall, a.Desc(ir.OpVoidCall).Clob)
}

func TestArch_Allocates(t *testing.T) {
	a := Arch()
	alloc := regalloc.NewAllocator(a)

	ins := alloc.NewInstr(ir.OpMove)
	ins.Dreg, ins.Sreg1 = 5, 6
	b := &regalloc.Block{MaxIReg: 7, MaxFReg: NumFRegs}
	b.Append(ins)
	alloc.AllocateBlock(b)

	require.Equal(t, R0, ins.Dreg)
	require.Equal(t, R0, ins.Sreg1)
	require.NotEmpty(t, alloc.FormatLiveness(false))
}
