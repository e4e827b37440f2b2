package regalloc

import "fmt"

// regFileState tracks one register file during a block: the free mask
// over hard registers and the virtual<->hard mapping.
//
// assign is indexed by register id (the hard-id prefix is unused) and
// encodes three states: RegInvalid means not yet assigned in this
// block, a non-negative value is the bound hard register, and values
// below RegInvalid mean the virtual register is currently spilled with
// dense index -assign-1. bind and markSpilled write the encoding and
// spillSlotOf decodes the slot; callers tell the states apart by
// comparing the rassign value with 0 and RegInvalid.
type regFileState struct {
	fp    bool
	nHard int

	calleeSaved RegMask

	assign   []Reg
	symbolic []Reg
	freeMask RegMask
}

func (s *regFileState) init(fp bool, nHard int, calleeSaved RegMask, nRegs int) {
	s.fp = fp
	s.nHard = nHard
	s.calleeSaved = calleeSaved
	if cap(s.assign) < nRegs {
		s.assign = make([]Reg, nRegs)
	}
	s.assign = s.assign[:nRegs]
	for i := range s.assign {
		s.assign[i] = RegInvalid
	}
	if cap(s.symbolic) < nHard {
		s.symbolic = make([]Reg, nHard)
	}
	s.symbolic = s.symbolic[:nHard]
	for i := range s.symbolic {
		s.symbolic[i] = RegInvalid
	}
}

// alloc takes some free hard register in mask out of the free set,
// lowest id first, or returns RegInvalid if none is available.
func (s *regFileState) alloc(mask RegMask) Reg {
	h := (s.freeMask & mask).lowest()
	if h != RegInvalid {
		s.freeMask = s.freeMask.Without(h)
	}
	return h
}

// free returns h to the free set and forgets its symbolic occupant.
func (s *regFileState) free(h Reg) {
	if h < 0 {
		return
	}
	s.freeMask = s.freeMask.With(h)
	s.symbolic[h] = RegInvalid
}

// bind records assign[v] = h, symbolic[h] = v and marks h busy, as one
// atomic update. v must be virtual and h an allocatable hard register.
func (s *regFileState) bind(v, h Reg) {
	if int(v) < s.nHard {
		panic(fmt.Sprintf("BUG: assignment of hard register R%d as if virtual (file fp=%v)", v, s.fp))
	}
	if h < 0 || int(h) >= s.nHard {
		panic(fmt.Sprintf("BUG: assignment of R%d to invalid hard register %d (file fp=%v)", v, h, s.fp))
	}
	if s.calleeSaved.Has(h) {
		panic(fmt.Sprintf("BUG: assignment of R%d to callee-saved register %d (file fp=%v)", v, h, s.fp))
	}
	s.assign[v] = h
	s.symbolic[h] = v
	s.freeMask = s.freeMask.Without(h)
}

// rassign returns the raw assignment encoding for v.
func (s *regFileState) rassign(v Reg) Reg {
	return s.assign[v]
}

// markSpilled records that v currently lives in spill slot spill.
func (s *regFileState) markSpilled(v Reg, spill int) {
	s.assign[v] = Reg(-spill - 1)
}

// spillSlotOf decodes the slot index of a spilled rassign value; valid
// only for values below RegInvalid.
func spillSlotOf(val Reg) int {
	return int(-val - 1)
}
