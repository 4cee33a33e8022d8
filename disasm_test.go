package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestDisassembleWithoutMain(t *testing.T) {
	prog := compileForTest(t, "int a; a = 3 + 4 * 2;")
	want := `; there is no main() function
0000: 00 ; halt
0001: 00 ; halt
0002: 03 ; lit1 3
0004: 03 ; lit1 4
0006: 07 ; add
0007: 03 ; lit1 2
0009: 09 ; mul
0010: 02 ; store [1] (a)
0013: 06 ; drop
0014: 00 ; halt
`
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), want)
}

func TestDisassembleBranches(t *testing.T) {
	prog := compileForTest(t, "void main(){ if (1<2) { } }")
	want := `; main() is at 2
0000: 15 ; jmp 2
0002: 03 ; lit1 1
0004: 03 ; lit1 2
0006: 11 ; lt
0007: 13 ; jz 9
0009: 17 ; ret
0010: 00 ; halt
`
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), want)
}

func TestDisassembleCalls(t *testing.T) {
	prog := compileForTest(t, "void f(){ return; } void main(){ f(); }")
	want := `; main() is at 4
0000: 15 ; jmp 4
0002: 17 ; ret
0003: 17 ; ret
0004: 16 ; call 2 (f)
0007: 17 ; ret
0008: 00 ; halt
`
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), want)
}

func TestDisassembleWideLiterals(t *testing.T) {
	prog := compileForTest(t, "a = 0 - 300; b = 100000;")
	want := `; there is no main() function
0000: 00 ; halt
0001: 00 ; halt
0002: 03 ; lit1 0
0004: 04 ; lit2 300
0007: 08 ; sub
0008: 02 ; store [1] (a)
0011: 06 ; drop
0012: 05 ; lit4 100000
0017: 02 ; store [2] (b)
0020: 06 ; drop
0021: 00 ; halt
`
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), want)
}

func TestDisassembleUnresolvedCall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Binding = BindingHashed
	cfg.SymbolCapacity = 7
	prog, err := Compile([]byte("g();"), cfg)
	be.Err(t, err, nil)
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), `; there is no main() function
0000: 00 ; halt
0001: 00 ; halt
0002: 16 ; call ? (?)
0005: 00 ; halt
`)
}

func TestDisassembleMalformedCode(t *testing.T) {
	code := []byte{0xff, byte(OpFetch), 2}
	want := `; there is no main() function
0000: 255 ; ???
0001: 01 ; fetch <truncated>
`
	be.Equal(t, Disassemble(code, nil), want)
}

func TestDecodeMatchesPatches(t *testing.T) {
	inputs := []string{
		"while (i < 3) i = i + 1;",
		"if (a) b = 1; else b = 2;",
		"do a = a + 1; while (a < 5);",
		"void f(){ if (a) return; else a = 1; } void main(){ while (a < 9) { f(); a = a + 2; } }",
	}

	for _, input := range inputs {
		prog := compileForTest(t, input)
		targets := map[int]int{}
		for _, in := range Decode(prog.Code) {
			if in.Op.IsBranch() {
				targets[in.Addr+1] = in.Target
			}
		}
		be.Equal(t, len(targets), len(prog.Patches))
		for _, p := range prog.Patches {
			be.Equal(t, targets[p.Hole], p.Target)
		}
	}
}

func TestDecodeCoversEveryByte(t *testing.T) {
	prog := compileForTest(t, "void f(){ a = 70000; } void main(){ do f(); while (a < 2); }")
	next := 0
	for _, in := range Decode(prog.Code) {
		be.Equal(t, in.Addr, next)
		next += in.Size
	}
	be.Equal(t, next, len(prog.Code))
}

func TestDisassembleIsRepeatable(t *testing.T) {
	prog := compileForTest(t, "i = 0; while (i < 3) i = i + 1;")
	before := append([]byte(nil), prog.Code...)
	first := Disassemble(prog.Code, prog.Symbols)
	be.Equal(t, Disassemble(prog.Code, prog.Symbols), first)
	be.Equal(t, prog.Code, before)
}

func TestWriteListing(t *testing.T) {
	prog := compileForTest(t, "a = 1;")
	path := filepath.Join(t.TempDir(), "list.txt")
	be.Err(t, WriteListing(path, prog.Code, prog.Symbols), nil)

	data, err := os.ReadFile(path)
	be.Err(t, err, nil)
	be.Equal(t, string(data), Disassemble(prog.Code, prog.Symbols))

	err = WriteListing(filepath.Join(t.TempDir(), "missing", "list.txt"), prog.Code, prog.Symbols)
	be.True(t, err != nil)
}
