// Package regalloc implements the local register allocator of the mini
// back end. It rewrites a basic block of selected instructions so that
// every operand names a hard register, inserting spill stores, reloads,
// and moves as the per-opcode descriptors require.
//
// The allocator works in two passes over the block: a forward pass
// collecting liveness per virtual register, and a reverse pass that
// assigns hard registers. Assigning backwards means an assignment is
// established at a use and falls out at the definition, which lets the
// destination's register become available to operands further up the
// block the moment its value is born.
package regalloc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ljp2010/mono/mini/ir"
	"github.com/ljp2010/mono/mini/miniapi"
)

// Allocator carries all state of the pass: the register state of both
// files, the spill slot tables, the frame offset counter, the liveness
// tables, and the arena backing inserted instructions. It is owned by
// one compilation at a time and reusable via Reset.
type Allocator struct {
	arch *Arch
	log  logrus.FieldLogger

	istate, fstate   regFileState
	ispills, fspills spillSlots
	stackOffset      int64
	spillCount       int

	reginfo, reginfof []regTrack
	work              []*Instr
	fps               fpStack

	pool miniapi.Pool[Instr]

	// Reverse-pass cursor state for the instruction being processed.
	blk       *Block
	cur       *Instr
	afterTail *Instr
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger enables the allocation trace on l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Allocator) { a.log = l }
}

// NewAllocator returns an allocator for the given architecture.
func NewAllocator(arch *Arch, opts ...Option) *Allocator {
	a := &Allocator{arch: arch, pool: miniapi.NewPool[Instr]()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reset prepares the allocator for the next compilation: the frame
// counters restart and the arena is recycled.
func (a *Allocator) Reset() {
	a.stackOffset = 0
	a.spillCount = 0
	a.ispills.reset()
	a.fspills.reset()
	a.fps.reset()
	a.work = a.work[:0]
	a.pool.Reset()
}

// StackOffset returns the frame space consumed by issued spill slots.
func (a *Allocator) StackOffset() int64 { return a.stackOffset }

// Rassign returns the raw assignment of a virtual register as of the
// block entry (the reverse pass finishes at the start of the block):
// RegInvalid when never assigned, a hard register id when bound, and
// values below RegInvalid encoding "spilled with index -value-1".
func (a *Allocator) Rassign(v Reg, fp bool) Reg { return a.state(fp).rassign(v) }

// NewInstr returns a fresh instruction from the allocator's arena with
// all register fields invalid. The selector building blocks for this
// allocator may use it instead of allocating instructions itself.
func (a *Allocator) NewInstr(op ir.Opcode) *Instr { return a.newInstr(op) }

func (a *Allocator) state(fp bool) *regFileState {
	if fp {
		return &a.fstate
	}
	return &a.istate
}

// AllocateBlock rewrites every instruction of b in place so that all
// used operand fields hold hard registers, growing the frame for any
// spill slots issued. On return b.First may differ from the input head
// because instructions can be inserted before it.
func (a *Allocator) AllocateBlock(b *Block) {
	if b.First() == nil {
		return
	}
	arch := a.arch

	nI, nF := b.MaxIReg, b.MaxFReg
	if nI < arch.NumIRegs {
		nI = arch.NumIRegs
	}
	if nF < arch.NumFRegs {
		nF = arch.NumFRegs
	}
	a.istate.init(false, arch.NumIRegs, arch.CalleeSavedIRegs, nI)
	a.fstate.init(true, arch.NumFRegs, arch.CalleeSavedFRegs, nF)
	a.istate.freeMask = arch.CallerSavedIRegs
	a.fstate.freeMask = arch.CallerSavedFRegs
	if arch.UseFPStack {
		// Depth-encoded sentinel; the float file is driven by the
		// flags the forward pass computed, not by mask allocation.
		a.fstate.freeMask = 0xff &^ (1 << uint(arch.FPStackSize))
	}
	a.reginfo = resizeTracks(a.reginfo, nI)
	a.reginfof = resizeTracks(a.reginfof, nF)
	a.blk = b

	a.scanBlock(b)

	if a.log != nil {
		a.log.Debug(formatLiveness(arch, a.reginfo, false))
		a.log.Debug(formatLiveness(arch, a.reginfof, true))
	}

	// The reverse pass re-plays the outstanding-spill list from a
	// clean slate.
	a.fps.reset()

	for idx := len(a.work); idx >= 1; idx-- {
		a.allocateIns(a.work[idx-1], idx)
	}

	a.blk = nil
	a.cur = nil
	a.afterTail = nil
}

// allocateIns resolves one instruction: fixed operand hints, FP-stack
// maintenance, fixed src2, destination, clobbers, outgoing call
// arguments, src1, src1-clobbering destinations, then src2 — in that
// order, each phase completing its register-state mutations before the
// next reads it.
func (a *Allocator) allocateIns(ins *Instr, idx int) {
	arch := a.arch
	d := arch.Desc(ins.Op)
	a.cur = ins
	a.afterTail = ins

	if a.log != nil {
		a.log.Debugf("processing: %2d %s", idx, ins.Format(arch))
	}

	// Fixed operand hints.
	fixedSrc1, fixedSrc2, fixedDest := d.FixedSrc1, d.FixedSrc2, d.FixedDest
	clobReg := RegInvalid
	if d.Clob == ClobReg {
		clobReg = d.FixedClob
	}
	dregMask := arch.callerSaved(d.Dest.isFloat())
	sreg1Mask := arch.callerSaved(d.Src1.isFloat())
	sreg2Mask := arch.callerSaved(d.Src2.isFloat()).Without(fixedSrc1).Without(clobReg)
	sreg2Mask &^= d.Src2Mask
	dregMask = dregMask.Without(fixedSrc1).Without(fixedSrc2).Without(clobReg)
	sreg1Mask = sreg1Mask.Without(fixedSrc2).Without(clobReg)

	// FP stack maintenance: insert the stores and reloads the forward
	// pass scheduled to keep the stack within depth.
	if arch.UseFPStack && d.Clob != ClobFPMem {
		if d.Dest == OperandFloat && a.reginfof[ins.Dreg].flags&fpNeedsSpill != 0 {
			spill := a.fps.pop()
			a.insertBefore(ins, a.spilledStore(spill, ins.Dreg, true))
		}
		if d.Src1 == OperandFloat && a.reginfof[ins.Sreg1].flags&fpNeedsLoad != 0 {
			var store *Instr
			if a.reginfof[ins.Sreg1].flags&fpNeedsLoadSpill != 0 {
				store = a.spilledStore(a.fps.pop(), ins.Sreg1, true)
			}
			spill := a.fps.nextIndex()
			a.fps.push(spill)
			load := a.spilledFloatLoad(spill, ins.Sreg1)
			a.insertBefore(ins, load)
			if store != nil {
				a.blk.insertBefore(load, store)
			}
		}
		if d.Src2 == OperandFloat && a.reginfof[ins.Sreg2].flags&fpNeedsLoad != 0 {
			var store *Instr
			if a.reginfof[ins.Sreg2].flags&fpNeedsLoadSpill != 0 {
				// If src1 just pushed its own reload slot, it is not
				// ours to consume.
				skip := 0
				if d.Src1 == OperandFloat && a.reginfof[ins.Sreg1].flags&fpNeedsLoadSpill != 0 {
					skip = 1
				}
				store = a.spilledStore(a.fps.popNth(skip), ins.Sreg2, true)
			}
			spill := a.fps.nextIndex()
			a.fps.push(spill)
			load := a.spilledFloatLoad(spill, ins.Sreg2)
			a.insertBefore(ins, load)
			if store != nil {
				a.blk.insertBefore(load, store)
			}
		}
	}

	// Fixed src2.
	if fixedSrc2 != RegInvalid {
		if a.istate.freeMask.Has(fixedSrc2) {
			if arch.isGlobalReg(ins.Sreg2, false) {
				// Value already sits in a callee-saved register; copy.
				a.insertBefore(ins, a.copyIns(fixedSrc2, ins.Sreg2, false))
			} else {
				a.debugf("shortcut assignment of R%d to %s", ins.Sreg2, arch.regName(fixedSrc2, false))
				a.istate.bind(ins.Sreg2, fixedSrc2)
			}
		} else {
			needSpill := true

			dregMask = dregMask.Without(fixedSrc2)
			sreg1Mask = sreg1Mask.Without(fixedSrc2)

			// A dreg assigned to the fixed register cannot be spilled;
			// move the destination elsewhere and copy over after.
			if d.Dest.used() && arch.isSoftReg(ins.Dreg, false) && !d.Dest.isFloat() {
				if val := a.istate.rassign(ins.Dreg); val == fixedSrc2 && ins.Dreg != ins.Sreg2 {
					newDest := a.allocReg(dregMask, ins.Dreg, a.reginfo[ins.Dreg].flags, false)
					a.debugf("changing dreg R%d to %s from %s", ins.Dreg, arch.regName(newDest, false), arch.regName(fixedSrc2, false))
					a.istate.bind(ins.Dreg, newDest)
					ins.Dreg = newDest
					a.insertAfter(ins, a.copyIns(fixedSrc2, newDest, false))
					needSpill = false
				}
			}

			if arch.isGlobalReg(ins.Sreg2, false) {
				a.insertBefore(ins, a.copyIns(fixedSrc2, ins.Sreg2, false))
			} else {
				val := a.istate.rassign(ins.Sreg2)
				if val == fixedSrc2 {
					needSpill = false
				} else if val != RegInvalid {
					panic(fmt.Sprintf("BUG: src2 R%d bound to %d while %s is required", ins.Sreg2, val, arch.regName(fixedSrc2, false)))
				}
			}

			if needSpill {
				a.debugf("forced spill of R%d", a.istate.symbolic[fixedSrc2])
				a.forceSpill(a.istate.symbolic[fixedSrc2], false)
				a.istate.free(fixedSrc2)
			}

			if !arch.isGlobalReg(ins.Sreg2, false) {
				a.istate.bind(ins.Sreg2, fixedSrc2)
			}
		}
		ins.Sreg2 = fixedSrc2
	}

	// Destination.
	fp := d.Dest.isFloat()
	prevDreg := RegInvalid
	if d.Dest.used() && (!fp || !arch.UseFPStack) && arch.isSoftReg(ins.Dreg, fp) {
		prevDreg = ins.Dreg

		if fixedDest != RegInvalid {
			dregMask = NewRegMask(fixedDest)
		}
		val := a.state(fp).rassign(ins.Dreg)
		if val < 0 {
			spill := 0
			if val < RegInvalid {
				// The register gets spilled after this instruction.
				spill = spillSlotOf(val)
			}
			val = a.allocReg(dregMask, ins.Dreg, a.trackFor(fp)[ins.Dreg].flags, fp)
			a.state(fp).bind(ins.Dreg, val)
			if spill != 0 {
				a.insertAfter(ins, a.spilledStore(spill, val, fp))
			}
		}
		a.debugf("assigned dreg %s to dest R%d", arch.regName(val, fp), ins.Dreg)
		ins.Dreg = val
	}

	if (!fp || !arch.UseFPStack) && prevDreg >= 0 && a.trackFor(fp)[prevDreg].bornIn >= idx {
		// The value is born here, so its register falls free for
		// everything further up the block. We could in theory free it
		// even while the virtual register stays alive, but branches
		// inside blocks force one hard register per virtual register
		// for the whole block.
		dreg := a.state(fp).rassign(prevDreg)
		if dreg < 0 {
			panic(fmt.Sprintf("BUG: freeable R%d has no assignment", prevDreg))
		}
		a.debugf("freeable %s (R%d) (born in %d)", arch.regName(dreg, fp), prevDreg, a.trackFor(fp)[prevDreg].bornIn)
		a.state(fp).free(dreg)
	}

	if fixedDest != RegInvalid && ins.Dreg != fixedDest {
		// The instruction only outputs to the fixed register; land
		// there and copy to where later instructions expect the value.
		if !a.istate.freeMask.Has(fixedDest) && int(a.istate.symbolic[fixedDest]) >= arch.NumIRegs {
			a.debugf("forced spill of R%d", a.istate.symbolic[fixedDest])
			a.forceSpill(a.istate.symbolic[fixedDest], false)
			a.istate.free(fixedDest)
		}
		a.insertAfter(ins, a.copyIns(ins.Dreg, fixedDest, fp))
		ins.Dreg = fixedDest
	}

	// Clobbers.
	if clobReg != RegInvalid && !a.istate.freeMask.Has(clobReg) {
		a.debugf("forced spill of clobbered reg R%d", a.istate.symbolic[clobReg])
		a.forceSpill(a.istate.symbolic[clobReg], false)
		a.istate.free(clobReg)
	}

	if d.Clob == ClobCall {
		// The call clobbers every caller-saved register except the one
		// it reads (src1) and the one it writes (the pending dest).
		dreg := RegInvalid
		if prevDreg != RegInvalid && !d.Dest.isFloat() {
			dreg = a.istate.rassign(prevDreg)
		}
		clobMask := a.arch.CallerSavedIRegs
		for j := Reg(0); int(j) < arch.NumIRegs; j++ {
			if clobMask.Has(j) && !a.istate.freeMask.Has(j) && j != ins.Sreg1 && j != dreg {
				a.forceSpill(a.istate.symbolic[j], false)
				a.istate.free(j)
			}
		}

		if !arch.UseFPStack {
			dreg = RegInvalid
			if prevDreg != RegInvalid && d.Dest.isFloat() {
				dreg = a.fstate.rassign(prevDreg)
			}
			clobMask = a.arch.CallerSavedFRegs
			for j := Reg(0); int(j) < arch.NumFRegs; j++ {
				if clobMask.Has(j) && !a.fstate.freeMask.Has(j) && j != ins.Sreg1 && j != dreg {
					a.forceSpill(a.fstate.symbolic[j], true)
					a.fstate.free(j)
				}
			}
		}
	}

	// Outgoing argument bindings. Done before src1 resolution so src1
	// cannot land in an argument register.
	if d.Clob == ClobCall {
		for _, p := range ins.OutIArgs {
			a.istate.bind(p.VReg(), p.HardReg())
			a.debugf("assigned arg reg %s to R%d", arch.regName(p.HardReg(), false), p.VReg())
		}
		if !arch.UseFPStack {
			for _, p := range ins.OutFArgs {
				a.fstate.bind(p.VReg(), p.HardReg())
				a.debugf("assigned arg reg %s to R%d", arch.regName(p.HardReg(), true), p.VReg())
			}
		}
	}

	// Src1.
	fp = d.Src1.isFloat()
	if !fp || !arch.UseFPStack {
		if fixedSrc1 != RegInvalid {
			sreg1Mask = NewRegMask(fixedSrc1)

			if !a.istate.freeMask.Has(fixedSrc1) {
				a.debugf("forced spill of R%d", a.istate.symbolic[fixedSrc1])
				a.forceSpill(a.istate.symbolic[fixedSrc1], false)
				a.istate.free(fixedSrc1)
			}
			if arch.isGlobalReg(ins.Sreg1, false) {
				// The value is already in a callee-saved register.
				a.insertBefore(ins, a.copyIns(fixedSrc1, ins.Sreg1, false))
				ins.Sreg1 = fixedSrc1
			}
		}

		if d.Src1.used() && arch.isSoftReg(ins.Sreg1, fp) {
			val := a.state(fp).rassign(ins.Sreg1)
			if val < 0 {
				spill := 0
				if val < RegInvalid {
					spill = spillSlotOf(val)
				}

				if d.Move && spill == 0 && !fp && !arch.isGlobalReg(ins.Dreg, false) && a.istate.freeMask.Has(ins.Dreg) {
					// Allocate the same register to src1 so the
					// peephole can drop the move.
					sreg1Mask = NewRegMask(ins.Dreg)
				}

				val = a.allocReg(sreg1Mask, ins.Sreg1, a.trackFor(fp)[ins.Sreg1].flags, fp)
				a.state(fp).bind(ins.Sreg1, val)
				a.debugf("assigned sreg1 %s to R%d", arch.regName(val, fp), ins.Sreg1)

				if spill != 0 {
					// The store must precede the instruction, which
					// may overwrite src1.
					a.insertBefore(ins, a.spilledStore(spill, val, fp))
				}
			} else if fixedSrc1 != RegInvalid && fixedSrc1 != val {
				panic(fmt.Sprintf("BUG: src1 R%d bound to %d while %s is required", ins.Sreg1, val, arch.regName(fixedSrc1, false)))
			}
			ins.Sreg1 = val
		}
		sreg2Mask = sreg2Mask.Without(ins.Sreg1)
	}

	// Src1-clobbering destinations: dest must equal src1.
	if ((d.Dest == OperandFloat && d.Src1 == OperandFloat && !arch.UseFPStack) || d.Clob == ClobDestEqSrc1) && ins.Dreg != ins.Sreg1 {
		hfp := d.Src1.isFloat()
		var sreg2Copy *Instr

		if ins.Dreg == ins.Sreg2 {
			// Copying src1 into dest would clobber src2; detour src2
			// through a fresh register that dies at the copy.
			reg2 := a.allocReg(dregMask, ins.Sreg2, 0, hfp)
			a.debugf("need to copy sreg2 %s to reg %s", arch.regName(ins.Sreg2, hfp), arch.regName(reg2, hfp))
			sreg2Copy = a.copyIns(reg2, ins.Sreg2, hfp)
			ins.Sreg2 = reg2
			a.state(hfp).free(reg2)
		}

		copy := a.copyIns(ins.Dreg, ins.Sreg1, hfp)
		a.debugf("need to copy sreg1 %s to dreg %s", arch.regName(ins.Sreg1, hfp), arch.regName(ins.Dreg, hfp))
		a.insertBefore(ins, copy)
		if sreg2Copy != nil {
			a.blk.insertBefore(copy, sreg2Copy)
		}

		// Keep src2 away from both ends of the copy.
		sreg2Mask = sreg2Mask.Without(ins.Sreg1)
		ins.Sreg1 = ins.Dreg
		sreg2Mask = sreg2Mask.Without(ins.Dreg)
	}

	// Src2.
	fp = d.Src2.isFloat()
	if (!fp || !arch.UseFPStack) && d.Src2.used() && arch.isSoftReg(ins.Sreg2, fp) {
		val := a.state(fp).rassign(ins.Sreg2)
		if val < 0 {
			spill := 0
			if val < RegInvalid {
				spill = spillSlotOf(val)
			}
			val = a.allocReg(sreg2Mask, ins.Sreg2, a.trackFor(fp)[ins.Sreg2].flags, fp)
			a.state(fp).bind(ins.Sreg2, val)
			a.debugf("assigned sreg2 %s to R%d", arch.regName(val, fp), ins.Sreg2)
			if spill != 0 {
				a.insertBefore(ins, a.spilledStore(spill, val, fp))
			}
		}
		ins.Sreg2 = val
	}

	if a.log != nil {
		a.log.Debugf("          %2d %s", idx, ins.Format(arch))
	}
}

// allocReg hands out a free hard register from mask for the virtual
// register v, honouring the tracked constraint flags, falling back to
// spilling an occupied register when the mask has no free one.
func (a *Allocator) allocReg(mask RegMask, v Reg, flags trackFlags, fp bool) Reg {
	if !fp {
		return a.allocInt(mask, v, flags)
	}
	val := a.fstate.alloc(mask)
	if val < 0 {
		val = a.spillAlloc(mask, v, true)
	}
	return val
}

func (a *Allocator) allocInt(mask RegMask, v Reg, flags trackFlags) Reg {
	arch := a.arch
	if flags&flagForbidShift != 0 {
		mask = mask.Without(arch.ShiftReg)
	}
	if pref := a.preferredReg(flags); pref != RegInvalid && mask.Has(pref) {
		if val := a.istate.alloc(NewRegMask(pref)); val >= 0 {
			return val
		}
	}
	val := a.istate.alloc(mask)
	if val < 0 {
		val = a.spillAlloc(mask, v, false)
	}
	return val
}

// preferredReg maps requirement flags to the architecture's designated
// register, if any.
func (a *Allocator) preferredReg(flags trackFlags) Reg {
	switch {
	case flags&flagRequireShift != 0:
		return a.arch.ShiftReg
	case flags&flagRequirePairLo != 0:
		return a.arch.PairLoReg
	case flags&flagRequirePairHi != 0:
		return a.arch.PairHiReg
	}
	return RegInvalid
}

// forceSpill evicts the virtual register v from the hard register it
// occupies: v is marked spilled with a fresh index and a reload of the
// slot is inserted after the current instruction, restoring the value
// for the later instructions that were already rewritten to read it
// there. The hard register is returned re-allocated.
func (a *Allocator) forceSpill(v Reg, fp bool) Reg {
	s := a.state(fp)
	if v < 0 {
		panic(fmt.Sprintf("BUG: force spill of unoccupied register (file fp=%v)", fp))
	}
	sel := s.rassign(v)

	a.spillCount++
	spill := a.spillCount
	s.markSpilled(v, spill)
	s.free(sel)

	load := a.newInstr(a.loadOp(fp))
	load.Dreg = sel
	load.Sreg1 = a.arch.BaseReg
	load.Offset = a.spillOffset(spill, fp)
	a.appendAfterCur(load)
	a.debugf("SPILLED LOAD (%d at 0x%08x) R%d (freed %s)", spill, load.Offset, v, a.arch.regName(sel, fp))

	if got := s.alloc(NewRegMask(sel)); got != sel {
		panic(fmt.Sprintf("BUG: re-allocation of %s after force spill returned %d", a.arch.regName(sel, fp), got))
	}
	return sel
}

// spillAlloc picks a register out of mask by spilling its occupant:
// registers assigned to the current instruction's own operands are
// excluded, then the lowest set bit wins. Selection is deterministic;
// no distance-to-next-use heuristic is applied.
func (a *Allocator) spillAlloc(mask RegMask, reg Reg, fp bool) Reg {
	arch := a.arch
	s := a.state(fp)
	ins := a.cur
	d := arch.Desc(ins.Op)

	a.debugf("start regmask to assign R%d: %s (R%d <- R%d R%d)", reg, mask, ins.Dreg, ins.Sreg1, ins.Sreg2)
	if d.Src1.used() && d.Src1.isFloat() == fp && reg != ins.Sreg1 {
		if arch.regFreeable(ins.Sreg1, fp) {
			mask = mask.Without(ins.Sreg1)
		} else if arch.isSoftReg(ins.Sreg1, fp) {
			if val := s.rassign(ins.Sreg1); val >= 0 {
				mask = mask.Without(val)
			}
		}
	}
	if d.Src2.used() && d.Src2.isFloat() == fp && reg != ins.Sreg2 {
		if arch.regFreeable(ins.Sreg2, fp) {
			mask = mask.Without(ins.Sreg2)
		} else if arch.isSoftReg(ins.Sreg2, fp) {
			if val := s.rassign(ins.Sreg2); val >= 0 {
				mask = mask.Without(val)
			}
		}
	}
	if d.Dest.used() && d.Dest.isFloat() == fp && reg != ins.Dreg && arch.regFreeable(ins.Dreg, fp) {
		mask = mask.Without(ins.Dreg)
	}

	sel := mask.lowest()
	if sel == RegInvalid {
		// Need at least one register we can free.
		panic(fmt.Sprintf("BUG: no register to spill for R%d at %s", reg, ins.Format(arch)))
	}
	v := s.symbolic[sel]
	if v < 0 {
		panic(fmt.Sprintf("BUG: spill candidate %s has no symbolic occupant", arch.regName(sel, fp)))
	}

	a.spillCount++
	spill := a.spillCount
	s.markSpilled(v, spill)
	s.free(sel)

	load := a.newInstr(a.loadOp(fp))
	load.Dreg = sel
	load.Sreg1 = arch.BaseReg
	load.Offset = a.spillOffset(spill, fp)
	a.appendAfterCur(load)
	a.debugf("SPILLED LOAD (%d at 0x%08x) R%d (freed %s)", spill, load.Offset, v, arch.regName(sel, fp))

	if got := s.alloc(NewRegMask(sel)); got != sel {
		panic(fmt.Sprintf("BUG: re-allocation of %s after spill returned %d", arch.regName(sel, fp), got))
	}
	return sel
}

func (a *Allocator) loadOp(fp bool) ir.Opcode {
	if fp {
		return a.arch.FLoadOp
	}
	return a.arch.LoadOp
}

func (a *Allocator) newInstr(op ir.Opcode) *Instr {
	ins := a.pool.Allocate()
	*ins = Instr{
		Op:   op,
		Dreg: RegInvalid, Sreg1: RegInvalid, Sreg2: RegInvalid,
	}
	return ins
}

// copyIns builds a register move dest <- src of the given file.
func (a *Allocator) copyIns(dest, src Reg, fp bool) *Instr {
	op := a.arch.MoveOp
	if fp {
		op = a.arch.FMoveOp
	}
	ins := a.newInstr(op)
	ins.Dreg = dest
	ins.Sreg1 = src
	a.debugf("forced copy from %s to %s", a.arch.regName(src, fp), a.arch.regName(dest, fp))
	return ins
}

// spilledStore builds a store of reg into the given spill slot.
func (a *Allocator) spilledStore(spill int, reg Reg, fp bool) *Instr {
	op := a.arch.StoreOp
	if fp {
		op = a.arch.FStoreOp
	}
	ins := a.newInstr(op)
	ins.Sreg1 = reg
	ins.Dreg = a.arch.BaseReg
	ins.Offset = a.spillOffset(spill, fp)
	a.debugf("SPILLED STORE (%d at 0x%08x) (from %s)", spill, ins.Offset, a.arch.regName(reg, fp))
	return ins
}

// spilledFloatLoad builds the FP-stack reload of a parked value.
func (a *Allocator) spilledFloatLoad(spill int, reg Reg) *Instr {
	ins := a.newInstr(a.arch.FSpillLoadOp)
	ins.Dreg = reg
	ins.Sreg1 = a.arch.BaseReg
	ins.Offset = a.spillOffset(spill, true)
	a.debugf("SPILLED FLOAT LOAD (%d at 0x%08x) (to %s)", spill, ins.Offset, a.arch.regName(reg, true))
	return ins
}

// insertBefore places x immediately before pos in the block.
func (a *Allocator) insertBefore(pos, x *Instr) {
	a.blk.insertBefore(pos, x)
}

// insertAfter places x immediately after the current instruction,
// ahead of any reloads already appended behind it.
func (a *Allocator) insertAfter(pos, x *Instr) {
	a.blk.insertAfter(pos, x)
	if a.afterTail == pos {
		a.afterTail = x
	}
}

// appendAfterCur places x at the tail of the current instruction's
// after-group, behind reloads inserted earlier in this iteration.
func (a *Allocator) appendAfterCur(x *Instr) {
	a.blk.insertAfter(a.afterTail, x)
	a.afterTail = x
}

func (a *Allocator) debugf(format string, args ...interface{}) {
	if a.log != nil {
		a.log.Debugf(format, args...)
	}
}

func resizeTracks(ts []regTrack, n int) []regTrack {
	if cap(ts) < n {
		return make([]regTrack, n)
	}
	ts = ts[:n]
	for i := range ts {
		ts[i] = regTrack{}
	}
	return ts
}
