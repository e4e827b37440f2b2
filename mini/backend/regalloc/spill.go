package regalloc

// spillSlots memoizes the frame offsets of one file's spill slots by
// dense spill index. Offsets are issued on first request by extending
// the frame and never change afterwards; indices never requested cost
// nothing.
type spillSlots struct {
	offsets []int64
}

func (s *spillSlots) reset() {
	s.offsets = s.offsets[:0]
}

// offset returns the frame offset of the given spill index, allocating
// a slot of the given size below the current frame on first request.
func (s *spillSlots) offset(spill int, size int64, stackOffset *int64) int64 {
	for len(s.offsets) <= spill {
		s.offsets = append(s.offsets, 0)
	}
	if s.offsets[spill] == 0 {
		*stackOffset += size
		s.offsets[spill] = -*stackOffset
	}
	return s.offsets[spill]
}

// spillOffset returns the stack offset for the spill index in the
// requested file, materialising the slot on first use. Integer slots
// are pointer-sized, float slots double-sized.
func (a *Allocator) spillOffset(spill int, fp bool) int64 {
	if fp {
		return a.fspills.offset(spill, a.arch.DoubleSize, &a.stackOffset)
	}
	return a.ispills.offset(spill, a.arch.PointerSize, &a.stackOffset)
}
