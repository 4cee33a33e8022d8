package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the pipeline can report.
type ErrorKind string

const (
	KindLexical       ErrorKind = "lexical"
	KindSyntax        ErrorKind = "syntax"
	KindBinding       ErrorKind = "binding"
	KindCapacity      ErrorKind = "capacity"
	KindRuntime       ErrorKind = "runtime"
	KindPostcondition ErrorKind = "postcondition"
)

// CompileError is raised by the scanner, parser, binder and code generator.
// Line is 0 when the error is not tied to a source position.
type CompileError struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error: line %d: %s", e.Kind, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

func compileErrorf(kind ErrorKind, line int, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// RuntimeError is a fault detected by the virtual machine.
type RuntimeError struct {
	Kind ErrorKind
	PC   int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s error: pc %04d: %s", e.Kind, e.PC, e.Msg)
}

// ErrStackResidue reports values left on the operand stack when the program halted.
var ErrStackResidue = errors.New("stack not empty")

// ErrorKindOf returns the taxonomy bucket of err, or "" for foreign errors.
func ErrorKindOf(err error) ErrorKind {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, ErrStackResidue) {
		return KindPostcondition
	}
	return ""
}
