package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConformanceSuite is one YAML file of test programs.
type ConformanceSuite struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Binding     string            `yaml:"binding,omitempty"` // default for every case
	Cases       []ConformanceCase `yaml:"tests"`
}

// ConformanceCase compiles and runs one program and checks the outcome.
type ConformanceCase struct {
	Name     string      `yaml:"name"`
	Skip     interface{} `yaml:"skip,omitempty"` // bool or string
	Binding  string      `yaml:"binding,omitempty"`
	MaxSteps int         `yaml:"max_steps,omitempty"`
	Program  string      `yaml:"program"`
	Expect   Expectation `yaml:"expect"`
}

// Expectation describes a passing outcome. An empty Error means the program
// must compile and run cleanly.
type Expectation struct {
	Vars    map[string]int64 `yaml:"vars,omitempty"`
	Report  *string          `yaml:"report,omitempty"` // exact state report
	Error   string           `yaml:"error,omitempty"`  // error kind
	Message string           `yaml:"message,omitempty"`
}

// IsSkipped reports whether the case is disabled and why.
func (tc *ConformanceCase) IsSkipped() (bool, string) {
	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}

// LoadedCase is a case together with the file and suite it came from.
type LoadedCase struct {
	File  string
	Suite *ConformanceSuite
	Case  ConformanceCase
}

// LoadSuites reads every .yaml file under dir.
func LoadSuites(dir string) ([]LoadedCase, error) {
	var loaded []LoadedCase
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		suite, err := loadSuiteFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		for _, tc := range suite.Cases {
			loaded = append(loaded, LoadedCase{File: rel, Suite: suite, Case: tc})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadSuiteFile(path string) (*ConformanceSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite ConformanceSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &suite, nil
}

// Run executes the case under base, with the case and suite overriding the
// binding strategy. It returns nil when the outcome matches the expectation.
func (lc LoadedCase) Run(base Config) error {
	cfg := base
	if lc.Suite != nil && lc.Suite.Binding != "" {
		cfg.Binding = lc.Suite.Binding
	}
	if lc.Case.Binding != "" {
		cfg.Binding = lc.Case.Binding
	}
	if lc.Case.MaxSteps != 0 {
		cfg.MaxSteps = lc.Case.MaxSteps
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prog, err := Compile([]byte(lc.Case.Program), cfg)
	if err == nil {
		_, err = Execute(prog, cfg)
	}

	want := lc.Case.Expect
	if want.Error != "" {
		if err == nil {
			return fmt.Errorf("expected %s error, program ran cleanly", want.Error)
		}
		if kind := ErrorKindOf(err); string(kind) != want.Error {
			return fmt.Errorf("expected %s error, got %v", want.Error, err)
		}
		if want.Message != "" && !strings.Contains(err.Error(), want.Message) {
			return fmt.Errorf("expected message containing %q, got %q", want.Message, err.Error())
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("unexpected error: %w", err)
	}

	for name, value := range want.Vars {
		if got := variableValue(prog.Symbols, name); got != value {
			return fmt.Errorf("%s = %d, want %d", name, got, value)
		}
	}
	if want.Report != nil {
		var buf bytes.Buffer
		if err := WriteReport(&buf, prog.Symbols); err != nil {
			return err
		}
		if got := strings.TrimSpace(buf.String()); got != strings.TrimSpace(*want.Report) {
			return fmt.Errorf("report mismatch:\n got: %q\nwant: %q", got, strings.TrimSpace(*want.Report))
		}
	}
	return nil
}

// variableValue returns the final value of the named variable, 0 if it was
// never bound.
func variableValue(syms Resolver, name string) int64 {
	for _, slot := range syms.Slots() {
		if sym := syms.Entry(slot); sym.Kind == SymVariable && sym.Name == name {
			return sym.Value
		}
	}
	return 0
}

// RunSuites runs every case under dir and writes one line per failure plus
// a summary to w. It returns the number of failed cases.
func RunSuites(w io.Writer, dir string, base Config) (int, error) {
	cases, err := LoadSuites(dir)
	if err != nil {
		return 0, err
	}
	var passed, failed, skipped int
	for _, lc := range cases {
		if skip, reason := lc.Case.IsSkipped(); skip {
			skipped++
			compileLog.Debugf("%s/%s: %s", lc.File, lc.Case.Name, reason)
			continue
		}
		if err := lc.Run(base); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s/%s: %v\n", lc.File, lc.Case.Name, err)
			continue
		}
		passed++
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped\n", passed, failed, skipped)
	return failed, nil
}
