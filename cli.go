package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `tinyc - A compiler and stack VM for a tiny C subset

Usage:
    tinyc <command> [arguments]

Commands:
    run [file]       Compile and execute a program (stdin if no file or -)
    build <file>     Compile a program to a bytecode image
    exec <image>     Execute a bytecode image
    disasm <file>    Print the bytecode listing of a program or image
    check <file>     Parse and generate code without executing
    conform <dir>    Run the YAML conformance suites in a directory
    help             Show this help message

Examples:
    tinyc run programs/count.c
    echo 'a = 1 + 2;' | tinyc run
    tinyc build -o count.tcb programs/count.c
    tinyc exec count.tcb
    tinyc check -ast programs/count.c

Use "tinyc <command> -h" for more information about a command.
`)
}

// options are the flags shared by every command that compiles.
type options struct {
	config  *string
	verbose *int
	binding *string
}

func addOptions(fs *flag.FlagSet) *options {
	return &options{
		config:  fs.String("config", "", "TOML file with resource limits"),
		verbose: fs.Int("v", 0, "Log verbosity (1 = info, 2 = debug)"),
		binding: fs.String("binding", "", "Symbol binding strategy: checked or hashed"),
	}
}

// load applies the logging level and returns the effective configuration.
func (o *options) load() Config {
	// commonlog counts from critical (-1) through error, warning, notice
	// and info (3) to debug.
	verbosity := -1
	if *o.verbose > 0 {
		verbosity = *o.verbose + 2
	}
	commonlog.Configure(verbosity, nil)

	cfg := DefaultConfig()
	if *o.config != "" {
		var err error
		cfg, err = LoadConfig(*o.config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *o.binding != "" {
		cfg.Binding = *o.binding
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func usageFor(fs *flag.FlagSet, synopsis, summary string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: tinyc %s\n", synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", summary)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
}

// readSource reads a program from filename, or from stdin when filename is
// empty or "-".
func readSource(filename string) []byte {
	var source []byte
	var err error
	if filename == "" || filename == "-" {
		source, err = io.ReadAll(os.Stdin)
		filename = "standard input"
	} else {
		source, err = os.ReadFile(filename)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", filename, err)
		os.Exit(1)
	}
	return source
}

func compileOrExit(source []byte, cfg Config) *Program {
	prog, err := Compile(source, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}
	return prog
}

// execute runs prog and prints its state report.
func execute(prog *Program, cfg Config) {
	fmt.Println(prog.Summary())
	_, err := Execute(prog, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
	if err := WriteReport(os.Stdout, prog.Symbols); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	opts := addOptions(fs)
	listing := fs.String("list", "", "Listing file (default from config, \"-\" disables)")
	fs.Usage = usageFor(fs, "run [flags] [file]", "Compile and execute a program")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Error: expected at most one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg := opts.load()
	switch *listing {
	case "":
	case "-":
		cfg.Listing = ""
	default:
		cfg.Listing = *listing
	}

	prog := compileOrExit(readSource(fs.Arg(0)), cfg)
	if cfg.Listing != "" {
		if err := WriteListing(cfg.Listing, prog.Code, prog.Symbols); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	execute(prog, cfg)
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	opts := addOptions(fs)
	output := fs.String("o", "", "Output file path (default: <filename>.tcb)")
	fs.Usage = usageFor(fs, "build [-o output] [flags] <file>", "Compile a program to a bytecode image")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, ".c") + ".tcb"
	}

	cfg := opts.load()
	prog := compileOrExit(readSource(filename), cfg)
	if err := WriteImage(outputFile, prog, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d bytes of code)\n", outputFile, len(prog.Code))
}

func execCommand(args []string) {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	opts := addOptions(fs)
	fs.Usage = usageFor(fs, "exec [flags] <image>", "Execute a bytecode image")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one image argument\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg := opts.load()
	prog, err := ReadImage(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	execute(prog, cfg)
}

func disasmCommand(args []string) {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	opts := addOptions(fs)
	fs.Usage = usageFor(fs, "disasm [flags] <file>", "Print the bytecode listing of a program or image")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg := opts.load()
	filename := fs.Arg(0)
	var prog *Program
	if source := readSource(filename); isImage(source) {
		img, err := UnmarshalImage(source)
		if err == nil {
			prog, err = img.Program()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		prog = compileOrExit(source, cfg)
	}
	fmt.Print(Disassemble(prog.Code, prog.Symbols))
}

// isImage reports whether data looks like an encoded image rather than
// program text. Images are CBOR maps; program text never starts with a byte
// in the CBOR map range.
func isImage(data []byte) bool {
	return len(data) > 0 && data[0] >= 0xa0 && data[0] <= 0xbf
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	opts := addOptions(fs)
	showAST := fs.Bool("ast", false, "Print the syntax tree as an s-expression")
	fs.Usage = usageFor(fs, "check [-ast] [flags] <file>", "Parse and generate code without executing")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	cfg := opts.load()
	prog := compileOrExit(readSource(filename), cfg)

	fmt.Printf("%s: no errors found %s\n", filename, prog.Summary())
	if *showAST {
		fmt.Println(prog.Arena.ToSExpr(prog.Root, prog.Symbols))
	}
}

func conformCommand(args []string) {
	fs := flag.NewFlagSet("conform", flag.ExitOnError)
	opts := addOptions(fs)
	fs.Usage = usageFor(fs, "conform [flags] <dir>", "Run the YAML conformance suites in a directory")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one directory argument\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg := opts.load()
	failed, err := RunSuites(os.Stdout, fs.Arg(0), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runCommand(args)
	case "build":
		buildCommand(args)
	case "exec":
		execCommand(args)
	case "disasm":
		disasmCommand(args)
	case "check":
		checkCommand(args)
	case "conform":
		conformCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
