package main

import (
	"fmt"
	"os"
	"strings"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Addr    int
	Op      Opcode
	Operand int64 // slot, literal value or raw branch offset
	Target  int   // branch destination, or -1
	Size    int
}

// Decode splits code into instructions. Unknown opcodes decode as one-byte
// instructions and a truncated trailing instruction keeps its short size, so
// every byte is accounted for.
func Decode(code []byte) []Instruction {
	var out []Instruction
	for pc := 0; pc < len(code); {
		in := Instruction{Addr: pc, Op: Opcode(code[pc]), Target: -1, Size: 1}
		width := in.Op.Info().OperandBytes
		if pc+1+width > len(code) {
			in.Size = len(code) - pc
			out = append(out, in)
			break
		}
		switch width {
		case 1:
			in.Operand = read1(code, pc+1)
		case 2:
			if in.Op == OpLit2 {
				in.Operand = read2(code, pc+1)
			} else {
				in.Operand = int64(readSlot(code, pc+1))
			}
		case 4:
			in.Operand = read4(code, pc+1)
		}
		if in.Op.IsBranch() {
			in.Target = branchTarget(code, pc+1)
		}
		in.Size = 1 + width
		out = append(out, in)
		pc += in.Size
	}
	return out
}

func slotLabel(syms Resolver, slot int64) string {
	if syms != nil {
		if sym := syms.Entry(int(slot)); sym != nil {
			return sym.Name
		}
	}
	return "?"
}

func (in Instruction) text(syms Resolver) string {
	if !in.Op.Valid() {
		return "???"
	}
	if in.Size != 1+in.Op.Info().OperandBytes {
		return in.Op.String() + " <truncated>"
	}
	switch in.Op {
	case OpFetch, OpStore:
		return fmt.Sprintf("%s [%d] (%s)", in.Op, in.Operand, slotLabel(syms, in.Operand))
	case OpLit1, OpLit2, OpLit4:
		return fmt.Sprintf("%s %d", in.Op, in.Operand)
	case OpJmp, OpJz, OpJnz:
		return fmt.Sprintf("%s %d", in.Op, in.Target)
	case OpCall:
		addr := "?"
		if syms != nil {
			if sym := syms.Entry(int(in.Operand)); sym != nil && sym.Resolved {
				addr = fmt.Sprint(sym.Value)
			}
		}
		return fmt.Sprintf("call %s (%s)", addr, slotLabel(syms, in.Operand))
	}
	return in.Op.String()
}

// Disassemble renders code as a listing, one instruction per line. It only
// reads code and syms.
func Disassemble(code []byte, syms Resolver) string {
	var sb strings.Builder
	if len(code) >= 2 && Opcode(code[0]) == OpJmp {
		fmt.Fprintf(&sb, "; main() is at %d\n", branchTarget(code, 1))
	} else {
		sb.WriteString("; there is no main() function\n")
	}
	for _, in := range Decode(code) {
		fmt.Fprintf(&sb, "%04d: %02d ; %s\n", in.Addr, byte(in.Op), in.text(syms))
	}
	return sb.String()
}

// WriteListing writes the disassembly of code to path.
func WriteListing(path string, code []byte, syms Resolver) error {
	if err := os.WriteFile(path, []byte(Disassemble(code, syms)), 0644); err != nil {
		return fmt.Errorf("writing listing %s: %w", path, err)
	}
	return nil
}
