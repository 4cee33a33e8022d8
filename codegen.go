package main

// Patch records a resolved branch hole and the address it was pointed at.
type Patch struct {
	Hole   int
	Target int
}

// Generator walks the AST once and appends bytecode to a bounded buffer.
// Forward branches reserve a one-byte hole that is patched once the target
// address is known.
type Generator struct {
	code     []byte
	capacity int
	arena    *Arena
	syms     Resolver

	// Patches lists every branch fixed so far, in patch order.
	Patches []Patch
}

func NewGenerator(arena *Arena, syms Resolver, capacity int) *Generator {
	return &Generator{
		code:     make([]byte, 0, capacity),
		capacity: capacity,
		arena:    arena,
		syms:     syms,
	}
}

// Bytes returns the code emitted so far.
func (g *Generator) Bytes() []byte {
	return g.code
}

// Here is the address of the next byte to be emitted.
func (g *Generator) Here() int {
	return len(g.code)
}

func (g *Generator) emit(b byte) error {
	if len(g.code) >= g.capacity {
		return compileErrorf(KindCapacity, 0, "code buffer full (limit %d bytes)", g.capacity)
	}
	g.code = append(g.code, b)
	return nil
}

func (g *Generator) emitOp(op Opcode) error {
	return g.emit(byte(op))
}

func (g *Generator) emit2(n int64) error {
	if err := g.emit(byte(n)); err != nil {
		return err
	}
	return g.emit(byte(n >> 8))
}

func (g *Generator) emit4(n int64) error {
	for i := 0; i < 4; i++ {
		if err := g.emit(byte(n >> (8 * i))); err != nil {
			return err
		}
	}
	return nil
}

// hole reserves one offset byte and returns its address.
func (g *Generator) hole() (int, error) {
	at := g.Here()
	return at, g.emit(0)
}

// fix points the offset byte at hole to target. The offset counts from the
// byte after the hole and must fit in a signed byte.
func (g *Generator) fix(hole, target int) error {
	off := target - (hole + 1)
	if off < -128 || off > 127 {
		return compileErrorf(KindCapacity, 0, "branch from %04d to %04d spans %d bytes, outside the one-byte offset range", hole, target, off)
	}
	g.code[hole] = byte(int8(off))
	g.Patches = append(g.Patches, Patch{Hole: hole, Target: target})
	return nil
}

// branch emits op followed by an offset hole.
func (g *Generator) branch(op Opcode) (int, error) {
	if err := g.emitOp(op); err != nil {
		return 0, err
	}
	return g.hole()
}

// GenerateProgram emits the entry header and the program at root. The
// header jumps to main when one is defined; otherwise it becomes two halts
// and execution starts at the first top-level instruction. It returns the
// start address.
func (g *Generator) GenerateProgram(root NodeID) (int, error) {
	header, err := g.branch(OpJmp)
	if err != nil {
		return 0, err
	}
	if err := g.Generate(root); err != nil {
		return 0, err
	}
	if slot, ok := g.syms.FindFunction("main"); ok {
		if sym := g.syms.Entry(slot); sym != nil && sym.Resolved {
			return 0, g.fix(header, int(sym.Value))
		}
	}
	g.code[0] = byte(OpHalt)
	g.code[header] = byte(OpHalt)
	return header + 1, nil
}

func (g *Generator) binary(n ASTNode, op Opcode) error {
	if err := g.Generate(n.O1); err != nil {
		return err
	}
	if err := g.Generate(n.O2); err != nil {
		return err
	}
	return g.emitOp(op)
}

// Generate emits the subtree at id in post-order.
func (g *Generator) Generate(id NodeID) error {
	n := *g.arena.Node(id)
	switch n.Kind {
	case NodeVar:
		if err := g.emitOp(OpFetch); err != nil {
			return err
		}
		return g.emit2(n.Val)

	case NodeConst:
		switch {
		case n.Val >= 0 && n.Val <= 127:
			if err := g.emitOp(OpLit1); err != nil {
				return err
			}
			return g.emit(byte(n.Val))
		case n.Val >= 128 && n.Val <= 32767:
			if err := g.emitOp(OpLit2); err != nil {
				return err
			}
			return g.emit2(n.Val)
		default:
			if err := g.emitOp(OpLit4); err != nil {
				return err
			}
			return g.emit4(n.Val)
		}

	case NodeAdd:
		return g.binary(n, OpAdd)
	case NodeSub:
		return g.binary(n, OpSub)
	case NodeMul:
		return g.binary(n, OpMul)
	case NodeDiv:
		return g.binary(n, OpDiv)
	case NodeLess:
		return g.binary(n, OpLt)
	case NodeGreater:
		return g.binary(n, OpGt)

	case NodeSet:
		if err := g.Generate(n.O2); err != nil {
			return err
		}
		if err := g.emitOp(OpStore); err != nil {
			return err
		}
		return g.emit2(g.arena.Node(n.O1).Val)

	case NodeIf:
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		skip, err := g.branch(OpJz)
		if err != nil {
			return err
		}
		if err := g.Generate(n.O2); err != nil {
			return err
		}
		return g.fix(skip, g.Here())

	case NodeIfElse:
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		toElse, err := g.branch(OpJz)
		if err != nil {
			return err
		}
		if err := g.Generate(n.O2); err != nil {
			return err
		}
		toEnd, err := g.branch(OpJmp)
		if err != nil {
			return err
		}
		if err := g.fix(toElse, g.Here()); err != nil {
			return err
		}
		if err := g.Generate(n.O3); err != nil {
			return err
		}
		return g.fix(toEnd, g.Here())

	case NodeWhile:
		top := g.Here()
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		exit, err := g.branch(OpJz)
		if err != nil {
			return err
		}
		if err := g.Generate(n.O2); err != nil {
			return err
		}
		back, err := g.branch(OpJmp)
		if err != nil {
			return err
		}
		if err := g.fix(back, top); err != nil {
			return err
		}
		return g.fix(exit, g.Here())

	case NodeDo:
		top := g.Here()
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		if err := g.Generate(n.O2); err != nil {
			return err
		}
		back, err := g.branch(OpJnz)
		if err != nil {
			return err
		}
		return g.fix(back, top)

	case NodeEmpty:
		return nil

	case NodeSeq:
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		return g.Generate(n.O2)

	case NodeExpr:
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		return g.emitOp(OpDrop)

	case NodeProgram:
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		return g.emitOp(OpHalt)

	case NodeReturn:
		return g.emitOp(OpRet)

	case NodeFuncDef:
		sym := g.syms.Entry(int(n.Val))
		if sym == nil {
			return compileErrorf(KindBinding, 0, "function slot %d is not bound", n.Val)
		}
		sym.Value = int64(g.Here())
		sym.Resolved = true
		if err := g.Generate(n.O1); err != nil {
			return err
		}
		return g.emitOp(OpRet)

	case NodeFuncCall:
		if err := g.emitOp(OpCall); err != nil {
			return err
		}
		return g.emit2(n.Val)
	}
	return compileErrorf(KindSyntax, 0, "cannot generate code for %s", n.Kind)
}
