// minialloc is a developer tool for the mini local register
// allocator: it parses a textual basic block, runs the allocator
// against a chosen architecture, and dumps the instruction stream
// before and after together with the frame growth.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ljp2010/mono/mini/backend/isa/amd64"
	"github.com/ljp2010/mono/mini/backend/isa/testarch"
	"github.com/ljp2010/mono/mini/backend/regalloc"
	"github.com/ljp2010/mono/mini/ir"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "minialloc",
		Short: "Run the mini local register allocator on a textual basic block",
	}

	var verbose bool
	var archName string

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Allocate registers for the block in file (or stdin) and dump the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var arch *regalloc.Arch
			switch archName {
			case "amd64":
				arch = amd64.Arch()
			case "test":
				arch = testarch.Arch()
			default:
				return fmt.Errorf("unknown arch %q", archName)
			}

			var opts []regalloc.Option
			if verbose {
				log := logrus.New()
				log.SetLevel(logrus.DebugLevel)
				opts = append(opts, regalloc.WithLogger(log))
			}
			alloc := regalloc.NewAllocator(arch, opts...)

			blk, err := parseBlock(in, arch, alloc)
			if err != nil {
				return err
			}

			fmt.Println("before:")
			fmt.Print(blk.Format(arch))

			alloc.AllocateBlock(blk)

			fmt.Println("after:")
			fmt.Print(blk.Format(arch))
			fmt.Print(alloc.FormatLiveness(false))
			fmt.Print(alloc.FormatLiveness(true))
			fmt.Printf("frame: %d bytes of spill slots\n", alloc.StackOffset())
			return nil
		},
	}
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable the allocation trace")
	runCmd.Flags().StringVar(&archName, "arch", "amd64", "target architecture (amd64 or test)")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opcodesByName indexes the IR mnemonics.
var opcodesByName = func() map[string]ir.Opcode {
	m := make(map[string]ir.Opcode, ir.NumOpcodes)
	for i := 0; i < ir.NumOpcodes; i++ {
		op := ir.Opcode(i)
		m[op.String()] = op
	}
	return m
}()

// parseBlock reads one instruction per line:
//
//	mnemonic [R<n> ...] [off=N] [iargs=v:h,...] [fargs=v:h,...]
//
// Register operands appear in descriptor order (dest, src1, src2,
// skipping unused slots) and are raw register ids: values below the
// file size name hard registers, values at or above it virtuals.
// Blank lines and lines starting with '#' are skipped.
func parseBlock(in io.Reader, arch *regalloc.Arch, alloc *regalloc.Allocator) (*regalloc.Block, error) {
	blk := &regalloc.Block{}
	maxI, maxF := arch.NumIRegs, arch.NumFRegs

	sc := bufio.NewScanner(in)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		op, ok := opcodesByName[fields[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown mnemonic %q", lineno, fields[0])
		}
		ins := alloc.NewInstr(op)
		d := arch.Desc(op)

		regs := make([]regalloc.Reg, 0, 3)
		for _, tok := range fields[1:] {
			switch {
			case strings.HasPrefix(tok, "off="):
				off, err := strconv.ParseInt(tok[len("off="):], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad offset %q", lineno, tok)
				}
				ins.Offset = off
			case strings.HasPrefix(tok, "iargs="):
				pairs, err := parseArgPairs(tok[len("iargs="):])
				if err != nil {
					return nil, fmt.Errorf("line %d: %v", lineno, err)
				}
				ins.OutIArgs = pairs
			case strings.HasPrefix(tok, "fargs="):
				pairs, err := parseArgPairs(tok[len("fargs="):])
				if err != nil {
					return nil, fmt.Errorf("line %d: %v", lineno, err)
				}
				ins.OutFArgs = pairs
			default:
				r, err := parseReg(tok)
				if err != nil {
					return nil, fmt.Errorf("line %d: %v", lineno, err)
				}
				regs = append(regs, r)
			}
		}

		// Fill operands in descriptor order.
		needed := 0
		for _, cls := range []regalloc.OperandClass{d.Dest, d.Src1, d.Src2} {
			if cls != regalloc.OperandNone {
				needed++
			}
		}
		if len(regs) != needed {
			return nil, fmt.Errorf("line %d: %s takes %d register operands, got %d", lineno, fields[0], needed, len(regs))
		}
		idx := 0
		take := func() regalloc.Reg {
			r := regs[idx]
			idx++
			return r
		}
		if d.Dest != regalloc.OperandNone {
			ins.Dreg = take()
			track(&maxI, &maxF, ins.Dreg, d.Dest)
		}
		if d.Src1 != regalloc.OperandNone {
			ins.Sreg1 = take()
			track(&maxI, &maxF, ins.Sreg1, d.Src1)
		}
		if d.Src2 != regalloc.OperandNone {
			ins.Sreg2 = take()
			track(&maxI, &maxF, ins.Sreg2, d.Src2)
		}
		for _, p := range ins.OutIArgs {
			track(&maxI, &maxF, p.VReg(), regalloc.OperandInt)
		}
		for _, p := range ins.OutFArgs {
			track(&maxI, &maxF, p.VReg(), regalloc.OperandFloat)
		}

		blk.Append(ins)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	blk.MaxIReg, blk.MaxFReg = maxI, maxF
	return blk, nil
}

func track(maxI, maxF *int, r regalloc.Reg, cls regalloc.OperandClass) {
	if r < 0 {
		return
	}
	n := int(r) + 1
	if cls == regalloc.OperandLong || cls == regalloc.OperandLongPair {
		n++
	}
	if cls == regalloc.OperandFloat {
		if n > *maxF {
			*maxF = n
		}
		return
	}
	if n > *maxI {
		*maxI = n
	}
}

func parseReg(tok string) (regalloc.Reg, error) {
	if !strings.HasPrefix(tok, "R") {
		return regalloc.RegInvalid, fmt.Errorf("bad register %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 {
		return regalloc.RegInvalid, fmt.Errorf("bad register %q", tok)
	}
	return regalloc.Reg(n), nil
}

func parseArgPairs(s string) ([]regalloc.ArgPair, error) {
	var pairs []regalloc.ArgPair
	for _, part := range strings.Split(s, ",") {
		vh := strings.SplitN(part, ":", 2)
		if len(vh) != 2 {
			return nil, fmt.Errorf("bad arg pair %q", part)
		}
		v, err1 := strconv.Atoi(vh[0])
		h, err2 := strconv.Atoi(vh[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad arg pair %q", part)
		}
		pairs = append(pairs, regalloc.NewArgPair(regalloc.Reg(v), regalloc.Reg(h)))
	}
	return pairs, nil
}
