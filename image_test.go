package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func roundTrip(t *testing.T, prog *Program, cfg Config) *Program {
	t.Helper()
	data, err := MarshalImage(NewImage(prog, cfg))
	be.Err(t, err, nil)
	img, err := UnmarshalImage(data)
	be.Err(t, err, nil)
	loaded, err := img.Program()
	be.Err(t, err, nil)
	return loaded
}

func TestImageRoundTripChecked(t *testing.T) {
	cfg := DefaultConfig()
	prog := compileForTest(t, "void f(){ a = a + 1; } void main(){ f(); f(); b = 0 - 3; }")
	loaded := roundTrip(t, prog, cfg)

	be.Equal(t, loaded.Code, prog.Code)
	be.Equal(t, loaded.Entry, prog.Entry)
	be.Equal(t, loaded.Nodes, prog.Nodes)
	be.Equal(t, loaded.Summary(), prog.Summary())
	be.True(t, loaded.Arena == nil)
	be.Equal(t, Disassemble(loaded.Code, loaded.Symbols), Disassemble(prog.Code, prog.Symbols))

	_, err := Execute(prog, cfg)
	be.Err(t, err, nil)
	_, err = Execute(loaded, cfg)
	be.Err(t, err, nil)
	be.Equal(t, reportOf(t, loaded), reportOf(t, prog))
	be.Equal(t, reportOf(t, loaded), "a 2\nb -3\n")
}

func TestImageRoundTripHashed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Binding = BindingHashed
	prog, err := Compile([]byte("void f(){ a = 14; } void main(){ f(); }"), cfg)
	be.Err(t, err, nil)
	loaded := roundTrip(t, prog, cfg)

	be.Equal(t, loaded.Symbols.Strategy(), BindingHashed)
	be.Equal(t, loaded.Symbols.Slots(), prog.Symbols.Slots())
	_, err = Execute(loaded, cfg)
	be.Err(t, err, nil)
	be.Equal(t, reportOf(t, loaded), "[52] 14\n")
}

func TestImageIsCanonical(t *testing.T) {
	prog := compileForTest(t, "i = 0; while (i < 3) i = i + 1;")
	first, err := MarshalImage(NewImage(prog, DefaultConfig()))
	be.Err(t, err, nil)
	second, err := MarshalImage(NewImage(compileForTest(t, "i = 0; while (i < 3) i = i + 1;"), DefaultConfig()))
	be.Err(t, err, nil)
	be.Equal(t, first, second)
	be.True(t, isImage(first))
	be.True(t, !isImage([]byte("i = 0;")))
}

func TestImageFiles(t *testing.T) {
	prog := compileForTest(t, "a = 5;")
	path := filepath.Join(t.TempDir(), "prog.tcb")
	be.Err(t, WriteImage(path, prog, DefaultConfig()), nil)

	loaded, err := ReadImage(path)
	be.Err(t, err, nil)
	be.Equal(t, loaded.Code, prog.Code)

	_, err = ReadImage(filepath.Join(t.TempDir(), "missing.tcb"))
	be.True(t, err != nil)
}

func TestImageRejectsDamage(t *testing.T) {
	prog := compileForTest(t, "a = 5;")

	tests := []struct {
		name   string
		damage func(img *Image)
		msg    string
	}{
		{"version", func(img *Image) { img.Version = 2 }, "image: version 2, want 1"},
		{"checksum", func(img *Image) { img.Code = append([]byte(nil), img.Code...); img.Code[3] = 6 }, "image: code checksum mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(prog, DefaultConfig())
			tt.damage(img)
			data, err := MarshalImage(img)
			be.Err(t, err, nil)
			_, err = UnmarshalImage(data)
			be.True(t, err != nil)
			be.Equal(t, err.Error(), tt.msg)
		})
	}

	_, err := UnmarshalImage([]byte("a = 5;"))
	be.True(t, err != nil)
	be.True(t, strings.HasPrefix(err.Error(), "image: unmarshal"))
}

func TestImageRejectsBadSymbols(t *testing.T) {
	prog := compileForTest(t, "a = 1; b = 2;")

	tests := []struct {
		name   string
		damage func(img *Image)
		msg    string
	}{
		{"binding", func(img *Image) { img.Binding = "linear" }, `unknown binding strategy "linear"`},
		{"table size", func(img *Image) { img.TableSize = 0 }, "bad symbol table size 0"},
		{"sparse slots", func(img *Image) { img.Symbols[1].Slot = 5 }, `symbol "b" has slot 5, want 2`},
		{"hashed slot", func(img *Image) { img.Binding = BindingHashed; img.TableSize = 2 }, `symbol "b" has bad slot 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := NewImage(prog, DefaultConfig())
			tt.damage(img)
			_, err := img.Program()
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.msg))
		})
	}
}
