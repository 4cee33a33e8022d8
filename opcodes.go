package main

// Opcode is a single bytecode instruction.
type Opcode byte

const (
	OpHalt  Opcode = iota // stop execution
	OpFetch               // push slot value (2-byte slot)
	OpStore               // store top of stack into slot, leaving it pushed (2-byte slot)
	OpLit1                // push 1-byte immediate
	OpLit2                // push 2-byte immediate
	OpLit4                // push 4-byte immediate
	OpDrop                // discard top of stack
	OpAdd                 // pop b, a; push a + b
	OpSub                 // pop b, a; push a - b
	OpMul                 // pop b, a; push a * b
	OpDiv                 // pop b, a; push a / b
	OpLt                  // pop b, a; push a < b
	OpGt                  // pop b, a; push a > b
	OpJz                  // pop; branch if zero (1-byte offset)
	OpJnz                 // pop; branch if not zero (1-byte offset)
	OpJmp                 // branch (1-byte offset)
	OpCall                // push return address, jump to function entry (2-byte slot)
	OpRet                 // pop return address, or stop at depth zero
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // mnemonic
	OperandBytes int    // number of operand bytes
}

var opcodeTable = [...]OpcodeInfo{
	OpHalt:  {"halt", 0},
	OpFetch: {"fetch", 2},
	OpStore: {"store", 2},
	OpLit1:  {"lit1", 1},
	OpLit2:  {"lit2", 2},
	OpLit4:  {"lit4", 4},
	OpDrop:  {"drop", 0},
	OpAdd:   {"add", 0},
	OpSub:   {"sub", 0},
	OpMul:   {"mul", 0},
	OpDiv:   {"div", 0},
	OpLt:    {"lt", 0},
	OpGt:    {"gt", 0},
	OpJz:    {"jz", 1},
	OpJnz:   {"jnz", 1},
	OpJmp:   {"jmp", 1},
	OpCall:  {"call", 2},
	OpRet:   {"ret", 0},
}

// Valid reports whether op is a known instruction.
func (op Opcode) Valid() bool {
	return int(op) < len(opcodeTable)
}

// Info returns the metadata for op.
func (op Opcode) Info() OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: "???"}
	}
	return opcodeTable[op]
}

func (op Opcode) String() string {
	return op.Info().Name
}

// IsBranch reports whether op carries a relative branch offset.
func (op Opcode) IsBranch() bool {
	return op == OpJz || op == OpJnz || op == OpJmp
}

// Operand decoding. Multi-byte operands are little-endian. Literals and
// branch offsets are signed; slots are not.

func read1(code []byte, at int) int64 {
	return int64(int8(code[at]))
}

func read2(code []byte, at int) int64 {
	return int64(int16(uint16(code[at]) | uint16(code[at+1])<<8))
}

func read4(code []byte, at int) int64 {
	return int64(int32(uint32(code[at]) | uint32(code[at+1])<<8 | uint32(code[at+2])<<16 | uint32(code[at+3])<<24))
}

// readSlot decodes a 2-byte slot operand, which is unsigned.
func readSlot(code []byte, at int) int {
	return int(uint16(code[at]) | uint16(code[at+1])<<8)
}

// branchTarget resolves the offset byte at off: offsets count from the byte
// that follows it.
func branchTarget(code []byte, off int) int {
	return off + 1 + int(int8(code[off]))
}
