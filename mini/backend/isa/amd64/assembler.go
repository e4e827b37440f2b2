package amd64

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/ljp2010/mono/mini/backend/regalloc"
	"github.com/ljp2010/mono/mini/ir"
)

// Assembler lowers an allocated instruction stream into machine code
// through golang-asm. It covers the data-movement and ALU shapes the
// allocator produces and the tables describe; control flow and calls
// need relocation context and belong to the surrounding emitter.
type Assembler struct {
	b *goasm.Builder
}

// NewAssembler returns an assembler for one block.
func NewAssembler() (*Assembler, error) {
	b, err := goasm.NewBuilder("amd64", 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create an assembly builder: %w", err)
	}
	return &Assembler{b: b}, nil
}

// castAsGoAsmInstruction maps lowerable opcodes to golang-asm ones.
var castAsGoAsmInstruction = map[ir.Opcode]obj.As{
	ir.OpMove:                x86.AMOVQ,
	ir.OpSetReg:              x86.AMOVQ,
	ir.OpSetRet:              x86.AMOVQ,
	ir.OpFMove:               x86.AMOVSD,
	ir.OpIConst:              x86.AMOVQ,
	ir.OpLoadMembase:         x86.AMOVQ,
	ir.OpLoadI4Membase:       x86.AMOVL,
	ir.OpStoreMembaseReg:     x86.AMOVQ,
	ir.OpStoreI4MembaseReg:   x86.AMOVL,
	ir.OpLoadR8Membase:       x86.AMOVSD,
	ir.OpLoadR8SpillMembase:  x86.AMOVSD,
	ir.OpStoreR8MembaseReg:   x86.AMOVSD,
	ir.OpAdd:                 x86.AADDQ,
	ir.OpSub:                 x86.ASUBQ,
	ir.OpAnd:                 x86.AANDQ,
	ir.OpOr:                  x86.AORQ,
	ir.OpXor:                 x86.AXORQ,
	ir.OpMul:                 x86.AIMULQ,
	ir.OpShl:                 x86.ASHLQ,
	ir.OpShr:                 x86.ASARQ,
	ir.OpShrUn:               x86.ASHRQ,
	ir.OpNeg:                 x86.ANEGQ,
	ir.OpNot:                 x86.ANOTQ,
	ir.OpCompare:             x86.ACMPQ,
	ir.OpFAdd:                x86.AADDSD,
	ir.OpFSub:                x86.ASUBSD,
	ir.OpFMul:                x86.AMULSD,
	ir.OpFDiv:                x86.ADIVSD,
	ir.OpFCompare:            x86.AUCOMISD,
	ir.OpIConvToR8:           x86.ACVTSQ2SD,
	ir.OpFConvToI4:           x86.ACVTTSD2SL,
}

// Add lowers one allocated instruction.
func (a *Assembler) Add(ins *regalloc.Instr) error {
	as, ok := castAsGoAsmInstruction[ins.Op]
	if !ok {
		return fmt.Errorf("amd64: cannot encode %s here", ins.Op)
	}

	p := a.b.NewProg()
	p.As = as

	switch ins.Op {
	case ir.OpMove, ir.OpSetReg, ir.OpSetRet:
		setReg(&p.From, GoAsmIReg(ins.Sreg1))
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpFMove:
		setReg(&p.From, GoAsmFReg(ins.Sreg1))
		setReg(&p.To, GoAsmFReg(ins.Dreg))
	case ir.OpIConst:
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = ins.Offset
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpLoadMembase, ir.OpLoadI4Membase:
		setMem(&p.From, GoAsmIReg(ins.Basereg()), ins.Offset)
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpLoadR8Membase, ir.OpLoadR8SpillMembase:
		setMem(&p.From, GoAsmIReg(ins.Basereg()), ins.Offset)
		setReg(&p.To, GoAsmFReg(ins.Dreg))
	case ir.OpStoreMembaseReg, ir.OpStoreI4MembaseReg:
		setReg(&p.From, GoAsmIReg(ins.Sreg1))
		setMem(&p.To, GoAsmIReg(ins.DestBasereg()), ins.Offset)
	case ir.OpStoreR8MembaseReg:
		setReg(&p.From, GoAsmFReg(ins.Sreg1))
		setMem(&p.To, GoAsmIReg(ins.DestBasereg()), ins.Offset)
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpMul:
		// Two-address: dest equals src1 after allocation.
		setReg(&p.From, GoAsmIReg(ins.Sreg2))
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpShl, ir.OpShr, ir.OpShrUn:
		// The count is pinned to CX by the descriptor.
		setReg(&p.From, GoAsmIReg(ins.Sreg2))
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpNeg, ir.OpNot:
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	case ir.OpCompare:
		setReg(&p.From, GoAsmIReg(ins.Sreg2))
		setReg(&p.To, GoAsmIReg(ins.Sreg1))
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		setReg(&p.From, GoAsmFReg(ins.Sreg2))
		setReg(&p.To, GoAsmFReg(ins.Dreg))
	case ir.OpFCompare:
		setReg(&p.From, GoAsmFReg(ins.Sreg2))
		setReg(&p.To, GoAsmFReg(ins.Sreg1))
	case ir.OpIConvToR8:
		setReg(&p.From, GoAsmIReg(ins.Sreg1))
		setReg(&p.To, GoAsmFReg(ins.Dreg))
	case ir.OpFConvToI4:
		setReg(&p.From, GoAsmFReg(ins.Sreg1))
		setReg(&p.To, GoAsmIReg(ins.Dreg))
	}

	a.b.AddInstruction(p)
	return nil
}

// AssembleBlock lowers every instruction of an allocated block and
// returns the generated machine code.
func (a *Assembler) AssembleBlock(blk *regalloc.Block) ([]byte, error) {
	for ins := blk.First(); ins != nil; ins = ins.Next() {
		if err := a.Add(ins); err != nil {
			return nil, err
		}
	}
	return a.b.Assemble(), nil
}

func setReg(a *obj.Addr, reg int16) {
	a.Type = obj.TYPE_REG
	a.Reg = reg
}

func setMem(a *obj.Addr, base int16, offset int64) {
	a.Type = obj.TYPE_MEM
	a.Reg = base
	a.Offset = offset
}
