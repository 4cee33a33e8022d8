package main

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is bumped whenever the image layout or the instruction set
// changes incompatibly.
const ImageVersion = 1

// Image is a compiled program saved to disk. It carries everything the VM
// needs: the bytecode, the start address and the symbol slots that fetch,
// store and call operands refer to.
type Image struct {
	Version   int           `cbor:"1,keyasint"`
	Binding   string        `cbor:"2,keyasint"`
	TableSize int           `cbor:"3,keyasint"` // resolver capacity
	Entry     int           `cbor:"4,keyasint"`
	Nodes     int           `cbor:"5,keyasint"`
	Code      []byte        `cbor:"6,keyasint"`
	Hash      [32]byte      `cbor:"7,keyasint"` // sha256 of Code
	Symbols   []ImageSymbol `cbor:"8,keyasint,omitempty"`
}

// ImageSymbol is one used resolver slot.
type ImageSymbol struct {
	Slot     int    `cbor:"1,keyasint"`
	Name     string `cbor:"2,keyasint"`
	Function bool   `cbor:"3,keyasint,omitempty"`
	Address  int64  `cbor:"4,keyasint,omitempty"` // function entry
	Resolved bool   `cbor:"5,keyasint,omitempty"`
}

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// NewImage captures prog. Variable contents are not saved; they are zeroed
// before every run anyway.
func NewImage(prog *Program, cfg Config) *Image {
	img := &Image{
		Version:   ImageVersion,
		Binding:   prog.Symbols.Strategy(),
		TableSize: cfg.SymbolCapacity,
		Entry:     prog.Entry,
		Nodes:     prog.Nodes,
		Code:      prog.Code,
		Hash:      sha256.Sum256(prog.Code),
	}
	for _, slot := range prog.Symbols.Slots() {
		sym := prog.Symbols.Entry(slot)
		is := ImageSymbol{Slot: slot, Name: sym.Name}
		if sym.Kind == SymFunction {
			is.Function = true
			is.Address = sym.Value
			is.Resolved = sym.Resolved
		}
		img.Symbols = append(img.Symbols, is)
	}
	return img
}

// MarshalImage serializes img to canonical CBOR.
func MarshalImage(img *Image) ([]byte, error) {
	return imageEncMode.Marshal(img)
}

// UnmarshalImage deserializes and verifies an image.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("image: version %d, want %d", img.Version, ImageVersion)
	}
	if sha256.Sum256(img.Code) != img.Hash {
		return nil, fmt.Errorf("image: code checksum mismatch")
	}
	return &img, nil
}

// Program rebuilds a runnable program from img.
func (img *Image) Program() (*Program, error) {
	syms, err := img.resolver()
	if err != nil {
		return nil, err
	}
	return &Program{
		Code:    img.Code,
		Symbols: syms,
		Entry:   img.Entry,
		Nodes:   img.Nodes,
		Root:    NoNode,
	}, nil
}

func (img *Image) resolver() (Resolver, error) {
	if img.TableSize < 1 || img.TableSize > 0xFFFF {
		return nil, fmt.Errorf("image: bad symbol table size %d", img.TableSize)
	}
	restore := func(sym *Symbol, is ImageSymbol) {
		*sym = Symbol{Name: is.Name}
		if is.Function {
			sym.Kind = SymFunction
			sym.Value = is.Address
			sym.Resolved = is.Resolved
		}
	}

	switch img.Binding {
	case BindingChecked:
		st := NewSymbolTable(img.TableSize)
		for i, is := range img.Symbols {
			// Checked slots are dense and 1-based.
			if is.Slot != i+1 || i >= img.TableSize {
				return nil, fmt.Errorf("image: symbol %q has slot %d, want %d", is.Name, is.Slot, i+1)
			}
			st.symbols = append(st.symbols, Symbol{})
			restore(&st.symbols[i], is)
		}
		return st, nil

	case BindingHashed:
		ht := NewHashedSymbolTable(img.TableSize)
		for _, is := range img.Symbols {
			if is.Slot < 0 || is.Slot >= img.TableSize || is.Name == "" {
				return nil, fmt.Errorf("image: symbol %q has bad slot %d", is.Name, is.Slot)
			}
			restore(&ht.symbols[is.Slot], is)
		}
		return ht, nil
	}
	return nil, fmt.Errorf("image: unknown binding strategy %q", img.Binding)
}

// WriteImage compiles prog into an image file at path.
func WriteImage(path string, prog *Program, cfg Config) error {
	data, err := MarshalImage(NewImage(prog, cfg))
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing image %s: %w", path, err)
	}
	return nil
}

// ReadImage loads the program stored at path.
func ReadImage(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	img, err := UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img.Program()
}
