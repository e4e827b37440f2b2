package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljp2010/mono/mini/ir"
)

func TestAllocateBlock_Empty(t *testing.T) {
	a := NewAllocator(testArch())
	b := &Block{}
	a.AllocateBlock(b)
	require.Nil(t, b.First())
	require.Zero(t, a.StackOffset())
}

// S1: a move between two fresh virtuals gets both operands the same
// register, so the peephole can drop it.
func TestAllocateBlock_MoveHint(t *testing.T) {
	a := NewAllocator(testArch())
	b := mkBlock(a, 7, 4,
		mkIns(a, ir.OpMove, 5, 6),
	)
	a.AllocateBlock(b)

	got := instrs(b)
	require.Len(t, got, 1)
	require.Equal(t, tR0, got[0].Dreg)
	require.Equal(t, tR0, got[0].Sreg1)
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// S2: five live values feeding later instructions through four
// registers force exactly one spill store and one reload, and the
// frame grows by one pointer slot.
func TestAllocateBlock_SpillUnderPressure(t *testing.T) {
	arch := testArch()
	a := NewAllocator(arch)
	b := mkBlock(a, 13, 4,
		mkIns(a, ir.OpIConst, 5),
		mkIns(a, ir.OpIConst, 6),
		mkIns(a, ir.OpIConst, 7),
		mkIns(a, ir.OpIConst, 8),
		mkIns(a, ir.OpIConst, 9),
		mkIns(a, ir.OpAdd, 10, 5, 6),
		mkIns(a, ir.OpAdd, 11, 7, 8),
		mkIns(a, ir.OpAdd, 12, 9, 10),
		mkIns(a, ir.OpCompare, 11, 12),
	)
	a.AllocateBlock(b)

	var stores, loads []*Instr
	for _, i := range instrs(b) {
		switch i.Op {
		case ir.OpStoreMembaseReg:
			stores = append(stores, i)
		case ir.OpLoadMembase:
			loads = append(loads, i)
		}
	}
	require.Len(t, stores, 1, "expected exactly one spill store")
	require.Len(t, loads, 1, "expected exactly one spill reload")
	require.Equal(t, stores[0].Offset, loads[0].Offset)
	require.Equal(t, arch.BaseReg, stores[0].DestBasereg())
	require.Equal(t, arch.BaseReg, loads[0].Basereg())
	require.Equal(t, arch.PointerSize, a.StackOffset(), "frame must grow by one pointer slot")

	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// S3: a fixed destination lands there directly when the register is
// free.
func TestAllocateBlock_FixedDestFree(t *testing.T) {
	a := NewAllocator(testArch())
	b := mkBlock(a, 7, 4,
		mkIns(a, ir.OpSetRet, 5, 6),
	)
	a.AllocateBlock(b)

	got := instrs(b)
	require.Len(t, got, 1)
	require.Equal(t, tR1, got[0].Dreg)
	checkOperands(t, a.arch, b)
}

// S3 (busy variant): the occupant of the fixed destination is
// force-spilled and reloaded behind the defining instruction.
func TestAllocateBlock_FixedDestOccupied(t *testing.T) {
	arch := testArch()
	a := NewAllocator(arch)
	setret := mkIns(a, ir.OpSetRet, 5, 6)
	use := mkIns(a, ir.OpCompare, 8, 7)
	b := mkBlock(a, 9, 4, setret, use)
	a.AllocateBlock(b)

	// The later compare binds R8 to R0 and R7 to R1; the setret then
	// needs R1 and must evict R7.
	require.Equal(t, tR1, setret.Dreg)
	require.Equal(t, tR1, use.Sreg2)

	reload := setret.Next()
	require.NotNil(t, reload)
	require.Equal(t, ir.OpLoadMembase, reload.Op)
	require.Equal(t, tR1, reload.Dreg)
	require.Equal(t, use, reload.Next())

	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// S4: shifts put src2 in the shift register and keep src1 out of it.
func TestAllocateBlock_Shift(t *testing.T) {
	a := NewAllocator(testArch())
	shl := mkIns(a, ir.OpShl, 6, 7, 8)
	b := mkBlock(a, 9, 4, shl)
	a.AllocateBlock(b)

	require.Equal(t, tR2, shl.Sreg2)
	require.NotEqual(t, tR2, shl.Sreg1)
	require.Contains(t, []Reg{tR0, tR1, tR3}, shl.Sreg1)
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// S5: outgoing arguments bind their ABI registers, and a value live
// across the call is spilled before it and reloaded after.
func TestAllocateBlock_CallClobbers(t *testing.T) {
	arch := testArch()
	a := NewAllocator(arch)
	def := mkIns(a, ir.OpIConst, 12)
	call := mkIns(a, ir.OpVoidCall)
	call.OutIArgs = []ArgPair{NewArgPair(10, tR0), NewArgPair(11, tR1)}
	use := mkIns(a, ir.OpMove, 13, 12)
	b := mkBlock(a, 14, 4, def, call, use)
	a.AllocateBlock(b)

	// The argument registers hold their virtuals at block entry.
	require.Equal(t, tR0, a.istate.rassign(10))
	require.Equal(t, tR1, a.istate.rassign(11))

	// V12 is read from a caller-saved register after the call, so it
	// must be reloaded right behind it...
	reload := call.Next()
	require.NotNil(t, reload)
	require.Equal(t, ir.OpLoadMembase, reload.Op)
	require.Equal(t, use.Sreg1, reload.Dreg)

	// ...and stored from its pre-call register behind its definition.
	store := def.Next()
	require.NotNil(t, store)
	require.Equal(t, ir.OpStoreMembaseReg, store.Op)
	require.Equal(t, def.Dreg, store.Sreg1)
	require.Equal(t, reload.Offset, store.Offset)

	// The pre-call and post-call registers differ here: the argument
	// bindings claimed R0 and R1 before src1 resolution.
	require.NotEqual(t, def.Dreg, use.Sreg1)

	require.Equal(t, arch.PointerSize, a.StackOffset())
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// S6: a long-pair destination tracks both halves with the same birth,
// and their uses prefer the designated pair registers.
func TestAllocateBlock_LongPair(t *testing.T) {
	a := NewAllocator(testArch())
	lmul := mkIns(a, ir.OpLMul, 6, 8, 9)
	use := mkIns(a, ir.OpCompare, 6, 7)
	b := mkBlock(a, 10, 4, lmul, use)
	a.AllocateBlock(b)

	require.Equal(t, tR0, use.Sreg1, "pair low half must prefer the pair-lo register")
	require.Equal(t, tR2, use.Sreg2, "pair high half must prefer the pair-hi register")
	require.Equal(t, a.reginfo[6].bornIn, a.reginfo[7].bornIn)
	require.Equal(t, 1, a.reginfo[6].bornIn)
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// A two-address op with distinct dest and src1 gets a copy in front
// and reads src1 from the destination register afterwards.
func TestAllocateBlock_DestEqSrc1(t *testing.T) {
	a := NewAllocator(testArch())
	def1 := mkIns(a, ir.OpIConst, 5)
	def2 := mkIns(a, ir.OpIConst, 6)
	sub := mkIns(a, ir.OpSub, 7, 5, 6)
	keep := mkIns(a, ir.OpCompare, 5, 7)
	b := mkBlock(a, 8, 4, def1, def2, sub, keep)
	a.AllocateBlock(b)

	require.Equal(t, sub.Dreg, sub.Sreg1, "dest must equal src1 after rewriting")

	copyIns := sub.Prev()
	require.NotNil(t, copyIns)
	require.Equal(t, ir.OpMove, copyIns.Op)
	require.Equal(t, sub.Dreg, copyIns.Dreg)
	require.Equal(t, def1.Dreg, copyIns.Sreg1, "the copy reads the original src1 register")
	require.NotEqual(t, sub.Sreg2, sub.Dreg)
	require.NotEqual(t, sub.Sreg2, copyIns.Sreg1)
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// A fixed destination already bound elsewhere keeps later readers
// satisfied through a copy out of the fixed register.
func TestAllocateBlock_FixedDestCopyOut(t *testing.T) {
	a := NewAllocator(testArch())
	setret := mkIns(a, ir.OpSetRet, 5, 6)
	use1 := mkIns(a, ir.OpShl, 7, 5, 8)
	b := mkBlock(a, 9, 4, setret, use1)
	a.AllocateBlock(b)

	// Phase C of the shift binds V8 to R2 and the dest V7 elsewhere;
	// V5 is bound by the shift's src1 before the setret is processed.
	// If the binding is not R1, the setret writes R1 and copies over.
	require.Equal(t, tR1, setret.Dreg)
	if use1.Sreg1 != tR1 {
		copyIns := setret.Next()
		require.NotNil(t, copyIns)
		require.Equal(t, ir.OpMove, copyIns.Op)
		require.Equal(t, use1.Sreg1, copyIns.Dreg)
		require.Equal(t, tR1, copyIns.Sreg1)
	}
	checkOperands(t, a.arch, b)
	checkStateConsistency(t, a)
}

// The block head moves when the first instruction grows predecessors.
func TestAllocateBlock_HeadInsertion(t *testing.T) {
	a := NewAllocator(testArch())
	sub := mkIns(a, ir.OpSub, 6, 5, 7)
	use := mkIns(a, ir.OpCompare, 5, 6)
	b := mkBlock(a, 8, 4, sub, use)
	head := b.First()
	a.AllocateBlock(b)

	// The compare pins V5 and V6 to distinct registers, so the
	// two-address sub needs a copy in front of the original head.
	require.NotEqual(t, head, b.First())
	require.Equal(t, ir.OpMove, b.First().Op)
	require.Equal(t, head, b.First().Next())
	checkOperands(t, a.arch, b)
}

// Determinism: identical input blocks allocate identically.
func TestAllocateBlock_Deterministic(t *testing.T) {
	build := func(a *Allocator) *Block {
		return mkBlock(a, 13, 4,
			mkIns(a, ir.OpIConst, 5),
			mkIns(a, ir.OpIConst, 6),
			mkIns(a, ir.OpIConst, 7),
			mkIns(a, ir.OpIConst, 8),
			mkIns(a, ir.OpIConst, 9),
			mkIns(a, ir.OpAdd, 10, 5, 6),
			mkIns(a, ir.OpAdd, 11, 7, 8),
			mkIns(a, ir.OpAdd, 12, 9, 10),
			mkIns(a, ir.OpCompare, 11, 12),
		)
	}
	a1 := NewAllocator(testArch())
	b1 := build(a1)
	a1.AllocateBlock(b1)

	a2 := NewAllocator(testArch())
	b2 := build(a2)
	a2.AllocateBlock(b2)

	require.Equal(t, b1.Format(a1.arch), b2.Format(a2.arch))
	require.Equal(t, a1.StackOffset(), a2.StackOffset())
}

// Unknown opcodes are compiler bugs.
func TestAllocateBlock_UnknownOpcode(t *testing.T) {
	a := NewAllocator(testArch())
	bad := a.NewInstr(ir.OpBr) // not in the test table
	b := mkBlock(a, 5, 4, bad)
	require.PanicsWithValue(t, "BUG: unknown opcode: br", func() {
		a.AllocateBlock(b)
	})
}

// Reset lets one allocator serve successive compilations from a clean
// frame.
func TestAllocator_Reset(t *testing.T) {
	a := NewAllocator(testArch())
	b := mkBlock(a, 9, 4,
		mkIns(a, ir.OpSetRet, 5, 6),
		mkIns(a, ir.OpCompare, 8, 7),
	)
	a.AllocateBlock(b)
	require.NotZero(t, a.StackOffset())

	a.Reset()
	require.Zero(t, a.StackOffset())

	b2 := mkBlock(a, 7, 4, mkIns(a, ir.OpMove, 5, 6))
	a.AllocateBlock(b2)
	require.Zero(t, a.StackOffset())
}
