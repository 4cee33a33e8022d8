package sexy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a test case
type InputType string

const (
	InputTypeExpr    InputType = "tinyc-expr"
	InputTypeProgram InputType = "tinyc-program"
)

// AssertionType represents the type of assertion code fence in a test case
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"           // s-expression pattern
	AssertionTypeExecute      AssertionType = "execute"       // expected state report
	AssertionTypeCompileError AssertionType = "compile-error" // expected diagnostic substring
	AssertionTypeDisasm       AssertionType = "disasm"        // expected listing
)

// fenceConfig carries TOML overrides for one test case.
const fenceConfig = "config"

// Assertion represents a single assertion in a test case
type Assertion struct {
	Type    AssertionType
	Content string // The raw content of the assertion code fence
	Pattern *Node  // Parsed pattern, for ast assertions only
}

// TestCase represents a complete test case extracted from Markdown
type TestCase struct {
	Name       string      // The test name from the heading (after "Test: ")
	Input      string      // The raw input code from the input fence
	InputType  InputType
	Config     string      // TOML from a config fence, if any
	Line       int         // line of the heading
	Assertions []Assertion // All assertions for this test case
}

// ExtractTestCases parses a Markdown document and extracts all test cases.
// A test case starts at a heading "Test: <name>" and owns the fenced code
// blocks up to the next such heading. Blocks without a language are prose.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	source := []byte(markdownContent)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var current *TestCase
	flush := func() error {
		if current == nil {
			return nil
		}
		if err := current.validate(); err != nil {
			return err
		}
		testCases = append(testCases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := extractTextFromNode(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{
				Name: strings.TrimPrefix(heading, "Test: "),
				Line: getLineNumber(n, source),
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			if language == "" {
				return ast.WalkContinue, nil
			}
			lineNum := getLineNumber(n, source)
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
			}
			if err := current.addFence(language, extractCodeBlockContent(n, source)); err != nil {
				return ast.WalkStop, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return testCases, nil
}

func (tc *TestCase) addFence(language, content string) error {
	switch {
	case language == string(InputTypeExpr) || language == string(InputTypeProgram):
		if tc.Input != "" {
			return fmt.Errorf("multiple input fences found in test '%s'", tc.Name)
		}
		tc.Input = strings.TrimRight(content, "\n")
		tc.InputType = InputType(language)

	case language == fenceConfig:
		if tc.Config != "" {
			return fmt.Errorf("multiple config fences found in test '%s'", tc.Name)
		}
		tc.Config = content

	case isAssertionFence(language):
		a := Assertion{Type: AssertionType(language), Content: strings.TrimRight(content, "\n")}
		if a.Type == AssertionTypeAST {
			pattern, err := Parse(a.Content)
			if err != nil {
				return fmt.Errorf("failed to parse ast pattern in test '%s': %w", tc.Name, err)
			}
			a.Pattern = pattern
		}
		tc.Assertions = append(tc.Assertions, a)

	default:
		return fmt.Errorf("unknown fence language '%s' in test '%s'", language, tc.Name)
	}
	return nil
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeExecute, AssertionTypeCompileError, AssertionTypeDisasm:
		return true
	}
	return false
}

// validate ensures a test case has both input and at least one assertion
func (tc *TestCase) validate() error {
	if tc.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// getLineNumber calculates the 1-based line of a block node.
func getLineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(source[:node.Lines().At(0).Start], []byte("\n")) + 1
}
