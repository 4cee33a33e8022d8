package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func runForTest(t *testing.T, input string, cfg Config) *Program {
	t.Helper()
	prog, err := Compile([]byte(input), cfg)
	be.Err(t, err, nil)
	_, err = Execute(prog, cfg)
	be.Err(t, err, nil)
	return prog
}

func runError(t *testing.T, input string, cfg Config) error {
	t.Helper()
	prog, err := Compile([]byte(input), cfg)
	be.Err(t, err, nil)
	_, err = Execute(prog, cfg)
	return err
}

// runCode executes hand-assembled code against a fresh checked table.
func runCode(code []byte, cfg Config) (*VM, error) {
	syms := NewSymbolTable(cfg.SymbolCapacity)
	_, _ = syms.BindVariable("a")
	vm := NewVM(code, syms, cfg)
	vm.Reset()
	return vm, vm.Run(0)
}

func TestScenarioEmptyMain(t *testing.T) {
	prog, err := Compile([]byte("void main(){ if (1<2) { } }"), DefaultConfig())
	be.Err(t, err, nil)
	vm, err := Execute(prog, DefaultConfig())
	be.Err(t, err, nil)
	be.Equal(t, vm.StackDepth(), 0)
	be.Equal(t, reportOf(t, prog), "")
}

func TestScenarioLeftAssociativeArithmetic(t *testing.T) {
	prog := runForTest(t, "int a; a = 3 + 4 * 2; ", DefaultConfig())
	be.Equal(t, variableValue(prog.Symbols, "a"), int64(14))
}

func TestScenarioCallAndReturn(t *testing.T) {
	prog, err := Compile([]byte("void f(){ return; } void main(){ f(); }"), DefaultConfig())
	be.Err(t, err, nil)
	vm, err := Execute(prog, DefaultConfig())
	be.Err(t, err, nil)
	be.Equal(t, vm.StackDepth(), 0)
}

func TestScenarioUndefinedFunction(t *testing.T) {
	_, err := Compile([]byte("void main(){ g(); }"), DefaultConfig())
	be.Equal(t, ErrorKindOf(err), KindBinding)
}

func TestScenarioDoWhile(t *testing.T) {
	prog := runForTest(t, "a = 0; do { a = a + 1; } while (a < 5);", DefaultConfig())
	be.Equal(t, variableValue(prog.Symbols, "a"), int64(5))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"r = 7 / 2;", 3},
		{"r = 0 - 7 / 2;", -3},
		{"r = 10 - 2 - 3;", 5},
		{"r = 2 < 3;", 1},
		{"r = 3 < 2;", 0},
		{"r = 5 > 1;", 1},
		{"r = 1 > 1;", 0},
		{"r = 40000 * 40000;", 1600000000},
		{"r = 4294967295;", -1},
		{"r = (r = 4) + 1;", 5},
	}

	for _, tt := range tests {
		prog := runForTest(t, tt.input, DefaultConfig())
		be.Equal(t, variableValue(prog.Symbols, "r"), tt.want)
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"if (1) r = 1; else r = 2;", 1},
		{"if (0) r = 1; else r = 2;", 2},
		{"if (0) r = 1;", 0},
		{"i = 0; while (i < 10) { r = r + i; i = i + 1; }", 45},
		{"while (0) r = 1;", 0},
		// The body of a do-while always runs once.
		{"do r = r + 1; while (0);", 1},
		{"void inc(){ r = r + 1; } void main(){ inc(); inc(); inc(); }", 3},
		{"void g(){ r = r * 2; } void f(){ r = r + 1; g(); } void main(){ r = 3; f(); }", 8},
		{"void f(){ if (r > 2) return; r = r + 1; f(); } void main(){ f(); }", 3},
		{"void main(){ r = 1; return; r = 2; }", 1},
	}

	for _, tt := range tests {
		prog := runForTest(t, tt.input, DefaultConfig())
		be.Equal(t, variableValue(prog.Symbols, "r"), tt.want)
	}
}

func TestAssignmentChains(t *testing.T) {
	prog := runForTest(t, "a = b = 4;", DefaultConfig())
	be.Equal(t, variableValue(prog.Symbols, "a"), int64(4))
	be.Equal(t, variableValue(prog.Symbols, "b"), int64(4))
}

func TestTopLevelRunsFunctionBodiesInline(t *testing.T) {
	// Without main, execution starts at the first top-level byte and
	// falls into f's body; its return at depth zero ends the run.
	prog := runForTest(t, "void f(){ a = a + 1; } b = 1;", DefaultConfig())
	be.Equal(t, variableValue(prog.Symbols, "a"), int64(1))
	be.Equal(t, variableValue(prog.Symbols, "b"), int64(0))
}

func TestDivisionByZero(t *testing.T) {
	err := runError(t, "a = 1 / 0;", DefaultConfig())
	be.Equal(t, ErrorKindOf(err), KindRuntime)
	be.Equal(t, err.Error(), "runtime error: pc 0006: division by zero")
}

func TestReturnStackOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReturnDepth = 10
	err := runError(t, "void f(){ f(); } void main(){ f(); }", cfg)
	be.Equal(t, ErrorKindOf(err), KindRuntime)
	be.True(t, strings.Contains(err.Error(), "return stack overflow (depth 10)"))
}

func TestOperandStackOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StackDepth = 2
	err := runError(t, "a = 1 + (2 + (3 + 4));", cfg)
	be.Equal(t, ErrorKindOf(err), KindRuntime)
	be.True(t, strings.Contains(err.Error(), "operand stack overflow (depth 2)"))

	cfg.StackDepth = 3
	prog := runForTest(t, "a = 1 + (2 + 3);", cfg)
	be.Equal(t, variableValue(prog.Symbols, "a"), int64(6))
}

func TestStepLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 100
	err := runError(t, "while (1) ;", cfg)
	be.Equal(t, ErrorKindOf(err), KindRuntime)
	be.True(t, strings.Contains(err.Error(), "step limit of 100 exceeded"))
}

func TestHashedUndefinedCallFaultsAtRuntime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Binding = BindingHashed
	err := runError(t, "void main(){ g(); }", cfg)
	be.Equal(t, ErrorKindOf(err), KindRuntime)
	be.True(t, strings.Contains(err.Error(), "call to unresolved function"))
}

func TestHashedAliasing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Binding = BindingHashed
	cfg.SymbolCapacity = 7
	// "a" and "n" hash to the same slot.
	prog := runForTest(t, "a = 1; n = 2;", cfg)
	be.Equal(t, prog.Symbols.Entry(5).Value, int64(2))
	be.Equal(t, reportOf(t, prog), "[5] 2\n")
}

func TestStoreLeavesValue(t *testing.T) {
	vm, err := runCode([]byte{byte(OpLit1), 5, byte(OpStore), 1, 0, byte(OpHalt)}, DefaultConfig())
	be.Err(t, err, nil)
	be.Equal(t, vm.Stack(), []int64{5})
	be.Equal(t, vm.syms.Entry(1).Value, int64(5))
}

func TestStackResidue(t *testing.T) {
	syms := NewSymbolTable(10)
	prog := &Program{Code: []byte{byte(OpLit1), 5, byte(OpHalt)}, Symbols: syms}
	vm, err := Execute(prog, DefaultConfig())
	be.True(t, errors.Is(err, ErrStackResidue))
	be.Equal(t, ErrorKindOf(err), KindPostcondition)
	be.Equal(t, vm.StackDepth(), 1)
}

func TestReturnAtDepthZeroStops(t *testing.T) {
	vm, err := runCode([]byte{byte(OpRet), 0xff}, DefaultConfig())
	be.Err(t, err, nil)
	be.Equal(t, vm.Steps, 1)
}

func TestMachineFaults(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		msg  string
	}{
		{"unknown opcode", []byte{0xff}, "runtime error: pc 0000: unknown opcode 255"},
		{"truncated", []byte{byte(OpLit1), 1, byte(OpLit2), 1}, "runtime error: pc 0002: truncated lit2 instruction"},
		{"jump outside", []byte{byte(OpJmp), 0x10}, "runtime error: pc 0018: program counter outside code (2 bytes)"},
		{"run off the end", []byte{byte(OpLit1), 1, byte(OpDrop)}, "runtime error: pc 0003: program counter outside code (3 bytes)"},
		{"underflow", []byte{byte(OpDrop)}, "runtime error: pc 0000: operand stack underflow"},
		{"binary underflow", []byte{byte(OpLit1), 1, byte(OpAdd)}, "runtime error: pc 0002: operand stack underflow"},
		{"branch underflow", []byte{byte(OpJz), 0}, "runtime error: pc 0000: operand stack underflow"},
		{"store underflow", []byte{byte(OpStore), 1, 0}, "runtime error: pc 0000: operand stack underflow"},
		{"unbound fetch", []byte{byte(OpFetch), 9, 0}, "runtime error: pc 0000: fetch from unbound slot 9"},
		{"unresolved call", []byte{byte(OpCall), 1, 0}, "runtime error: pc 0000: call to unresolved function in slot 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCode(tt.code, DefaultConfig())
			be.True(t, err != nil)
			be.Equal(t, err.Error(), tt.msg)
		})
	}
}

func TestExecuteResetsVariables(t *testing.T) {
	prog := compileForTest(t, "a = a + 1;")
	for i := 0; i < 3; i++ {
		_, err := Execute(prog, DefaultConfig())
		be.Err(t, err, nil)
		be.Equal(t, variableValue(prog.Symbols, "a"), int64(1))
	}
}
