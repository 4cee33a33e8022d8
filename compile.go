package main

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

var (
	compileLog = commonlog.GetLogger("tinyc.compile")
	vmLog      = commonlog.GetLogger("tinyc.vm")
)

// Program is the result of a successful compilation.
type Program struct {
	Code    []byte
	Symbols Resolver
	Entry   int // address execution starts at
	Nodes   int // AST nodes allocated while parsing

	// Arena, Root and Patches are nil for programs loaded from an image.
	Arena   *Arena
	Root    NodeID
	Patches []Patch
}

// Parse scans and parses source, binding identifiers into a fresh resolver.
func Parse(source []byte, cfg Config) (*Arena, NodeID, Resolver, error) {
	syms := NewResolver(cfg.Binding, cfg.SymbolCapacity)
	arena := NewArena(cfg.MaxNodes)
	l := NewLexer(source)
	l.SetMaxIdentLength(cfg.MaxIdentLength)

	root, err := NewParser(l, arena, syms).ParseProgram()
	if err != nil {
		return nil, NoNode, nil, err
	}
	compileLog.Infof("parsed %d lines into %d nodes (%s binding)", l.Line(), arena.Len(), syms.Strategy())
	return arena, root, syms, nil
}

// Compile runs the front end and code generator over source.
func Compile(source []byte, cfg Config) (*Program, error) {
	arena, root, syms, err := Parse(source, cfg)
	if err != nil {
		return nil, err
	}

	gen := NewGenerator(arena, syms, cfg.CodeSize)
	entry, err := gen.GenerateProgram(root)
	if err != nil {
		return nil, err
	}
	compileLog.Infof("generated %d bytes, entry at %04d, %d branches patched", gen.Here(), entry, len(gen.Patches))
	if _, ok := syms.FindFunction("main"); !ok {
		compileLog.Debug("no main() function, running top-level statements")
	}

	return &Program{
		Code:    gen.Bytes(),
		Symbols: syms,
		Entry:   entry,
		Nodes:   arena.Len(),
		Arena:   arena,
		Root:    root,
		Patches: gen.Patches,
	}, nil
}

// Execute resets the program's state and runs it to completion. Values
// left on the operand stack are reported as ErrStackResidue.
func Execute(prog *Program, cfg Config) (*VM, error) {
	vm := NewVM(prog.Code, prog.Symbols, cfg)
	vm.Reset()
	if err := vm.Run(prog.Entry); err != nil {
		vmLog.Errorf("%s", err)
		return vm, err
	}
	vmLog.Infof("halted after %d steps", vm.Steps)
	if depth := vm.StackDepth(); depth != 0 {
		return vm, fmt.Errorf("%w: %d value(s) left at halt", ErrStackResidue, depth)
	}
	return vm, nil
}

// Summary is the one-line size report printed before execution.
func (p *Program) Summary() string {
	return fmt.Sprintf("(nodes: %d, code: %d bytes)", p.Nodes, len(p.Code))
}

// WriteReport prints every non-zero variable. Checked tables print names;
// hashed tables print slot indices because a slot may be shared.
func WriteReport(w io.Writer, syms Resolver) error {
	for _, slot := range syms.Slots() {
		sym := syms.Entry(slot)
		if sym.Kind != SymVariable || sym.Value == 0 {
			continue
		}
		var err error
		if syms.Strategy() == BindingHashed {
			_, err = fmt.Fprintf(w, "[%d] %d\n", slot, sym.Value)
		} else {
			_, err = fmt.Fprintf(w, "%s %d\n", sym.Name, sym.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
