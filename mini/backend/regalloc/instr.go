package regalloc

import (
	"fmt"
	"strings"

	"github.com/ljp2010/mono/mini/ir"
)

// Instr is one selected machine instruction. Before allocation the
// register fields name virtual registers; afterwards every used field
// holds a hard register id of the file its descriptor requires, and
// unused fields hold RegInvalid.
type Instr struct {
	Op ir.Opcode

	Dreg, Sreg1, Sreg2 Reg

	// Offset addresses memory for the membase load/store forms,
	// relative to the base register carried in the corresponding
	// operand slot.
	Offset int64

	// Outgoing argument bindings, set on call instructions only.
	OutIArgs, OutFArgs []ArgPair

	prev, next *Instr
}

// Basereg returns the base register of a membase load; descriptors
// with a base-class src1 carry it in the src1 slot.
func (i *Instr) Basereg() Reg { return i.Sreg1 }

// DestBasereg returns the base register of a membase store;
// descriptors with a base-class dest carry it in the dest slot.
func (i *Instr) DestBasereg() Reg { return i.Dreg }

// Next returns the following instruction in the block, or nil.
func (i *Instr) Next() *Instr { return i.next }

// Prev returns the preceding instruction in the block, or nil.
func (i *Instr) Prev() *Instr { return i.prev }

// Format renders the instruction with arch register names, mirroring
// the operand slots its descriptor declares.
func (i *Instr) Format(a *Arch) string {
	d := a.Desc(i.Op)
	var b strings.Builder
	b.WriteString(i.Op.String())
	if d.Dest.used() {
		fmt.Fprintf(&b, " %s <-", a.regName(i.Dreg, d.Dest.isFloat()))
	}
	if d.Src1.used() {
		fmt.Fprintf(&b, " %s", a.regName(i.Sreg1, d.Src1.isFloat()))
	}
	if d.Src2.used() {
		fmt.Fprintf(&b, " %s", a.regName(i.Sreg2, d.Src2.isFloat()))
	}
	if d.Clob != ClobNone {
		fmt.Fprintf(&b, " clobbers: %s", d.Clob)
	}
	return b.String()
}

// ArgPair packs an outgoing call argument binding: the virtual
// register carrying the value and the ABI-mandated hard argument
// register, as a single 64-bit word.
type ArgPair uint64

// NewArgPair returns the packed (virtual, hard) binding.
func NewArgPair(vreg, hreg Reg) ArgPair {
	return ArgPair(uint64(uint32(hreg))<<32 | uint64(uint32(vreg)))
}

// VReg returns the virtual register of the pair.
func (p ArgPair) VReg() Reg { return Reg(uint32(p)) }

// HardReg returns the hard argument register of the pair.
func (p ArgPair) HardReg() Reg { return Reg(uint32(p >> 32)) }

// Block is a basic block: a doubly-linked straight-line instruction
// sequence plus the virtual register high-water marks of its two
// files (one past the highest id used).
type Block struct {
	first, last *Instr

	MaxIReg, MaxFReg int
}

// First returns the first instruction, or nil for an empty block.
func (b *Block) First() *Instr { return b.first }

// Last returns the last instruction, or nil for an empty block.
func (b *Block) Last() *Instr { return b.last }

// Append links ins at the end of the block and returns it.
func (b *Block) Append(ins *Instr) *Instr {
	ins.prev = b.last
	ins.next = nil
	if b.last != nil {
		b.last.next = ins
	} else {
		b.first = ins
	}
	b.last = ins
	return ins
}

// insertBefore links ins immediately before pos. Successive inserts
// before the same position read in call order.
func (b *Block) insertBefore(pos, ins *Instr) {
	ins.prev = pos.prev
	ins.next = pos
	if pos.prev != nil {
		pos.prev.next = ins
	} else {
		b.first = ins
	}
	pos.prev = ins
}

// insertAfter links ins immediately after pos.
func (b *Block) insertAfter(pos, ins *Instr) {
	ins.next = pos.next
	ins.prev = pos
	if pos.next != nil {
		pos.next.prev = ins
	} else {
		b.last = ins
	}
	pos.next = ins
}

// Format renders the whole block, one instruction per line.
func (b *Block) Format(a *Arch) string {
	var sb strings.Builder
	n := 1
	for ins := b.first; ins != nil; ins = ins.next {
		fmt.Fprintf(&sb, "%2d %s\n", n, ins.Format(a))
		n++
	}
	return sb.String()
}
