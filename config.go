package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Binding strategy names accepted by Config.Binding.
const (
	BindingChecked = "checked"
	BindingHashed  = "hashed"
)

// Config holds every resource bound of a compilation and execution.
type Config struct {
	MaxNodes       int    `toml:"max_nodes"`
	CodeSize       int    `toml:"code_size"`
	SymbolCapacity int    `toml:"symbols"`
	MaxIdentLength int    `toml:"ident_length"`
	StackDepth     int    `toml:"stack_depth"`
	ReturnDepth    int    `toml:"return_depth"`
	MaxSteps       int    `toml:"max_steps"` // 0 means unlimited
	Binding        string `toml:"binding"`
	Listing        string `toml:"listing"` // empty disables the listing file
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxNodes:       1000,
		CodeSize:       4096,
		SymbolCapacity: 999,
		MaxIdentLength: 63,
		StackDepth:     1000,
		ReturnDepth:    1000,
		MaxSteps:       0,
		Binding:        BindingChecked,
		Listing:        "list.txt",
	}
}

// LoadConfig reads a TOML file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := ParseConfig(string(data))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML text on top of the defaults. Unknown keys are
// rejected so that typos do not silently fall back to a default.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate rejects limits the bytecode format cannot represent.
func (c Config) Validate() error {
	switch {
	case c.MaxNodes < 1:
		return fmt.Errorf("max_nodes must be positive, got %d", c.MaxNodes)
	case c.CodeSize < 3:
		return fmt.Errorf("code_size must be at least 3, got %d", c.CodeSize)
	case c.SymbolCapacity < 1 || c.SymbolCapacity > 0xFFFF:
		// Slots are addressed by 2-byte operands.
		return fmt.Errorf("symbols must be between 1 and 65535, got %d", c.SymbolCapacity)
	case c.MaxIdentLength < 1:
		return fmt.Errorf("ident_length must be positive, got %d", c.MaxIdentLength)
	case c.StackDepth < 1:
		return fmt.Errorf("stack_depth must be positive, got %d", c.StackDepth)
	case c.ReturnDepth < 1:
		return fmt.Errorf("return_depth must be positive, got %d", c.ReturnDepth)
	case c.MaxSteps < 0:
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	if c.Binding != BindingChecked && c.Binding != BindingHashed {
		return fmt.Errorf("unknown binding strategy %q", c.Binding)
	}
	return nil
}
