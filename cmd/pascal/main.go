// pascal runs, translates and inspects programs of a small Pascal dialect.
//
// Usage:
//
//	pascal [-v] [-c config.yaml] run file.pas
//	pascal [-c config.yaml] [-o out.c] c file.pas
//	pascal symbols file.pas
//	pascal ast file.pas
//
// Flags:
//
//	-c file     YAML runner configuration (max_depth, default_precision,
//	            true_token, false_token)
//	-o file     write C output to file instead of standard output
//	-v          trace calls and frames to standard error
//	-h          show this help
//
// Program input is read from standard input. When standard input is a
// terminal lines are read with editing and history.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	pascal "github.com/Qwerasdzxc/Pascal-Compiler"
	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/interp"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
)

const usage = `usage: pascal [-v] [-c config.yaml] [-o out.c] command file.pas

commands:
  run      interpret the program
  c        translate the program to C
  symbols  list the symbol tables and their fingerprint
  ast      print the syntax tree
`

// maxTraceback bounds the callables listed under a runtime error.
const maxTraceback = 8

var (
	errColor  = color.New(color.FgRed, color.Bold)
	noteColor = color.New(color.FgYellow)
)

func main() {
	os.Exit(run(os.Args))
}

type options struct {
	config  string
	output  string
	verbose bool
}

func run(args []string) int {
	opts, optind, err := getopt.Getopts(args, "c:ho:v")
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	var o options
	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			o.config = opt.Value
		case 'o':
			o.output = opt.Value
		case 'v':
			o.verbose = true
		case 'h':
			fmt.Print(usage)
			return 0
		}
	}
	args = args[optind:]
	if len(args) != 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cmd, filename := args[0], args[1]

	cfg, err := loadConfig(o.config)
	if err != nil {
		errColor.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if o.verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		errColor.Fprintln(os.Stderr, err)
		return 1
	}
	switch cmd {
	case "run":
		err = runProgram(filename, src, cfg)
	case "c":
		err = translate(filename, src, o.output, cfg)
	case "symbols":
		err = dumpSymbols(filename, src)
	case "ast":
		err = printAST(filename, src)
	default:
		errColor.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	if err != nil {
		report(filename, src, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (interp.Config, error) {
	if path == "" {
		return interp.DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return interp.Config{}, err
	}
	defer f.Close()
	return interp.LoadConfig(f)
}

func runProgram(filename string, src []byte, cfg interp.Config) error {
	info, err := pascal.Compile(filename, bytes.NewReader(src))
	if err != nil {
		return err
	}
	var in interp.LineReader
	if fd := os.Stdin.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		tr := interp.NewTerminalReader("")
		defer tr.Close()
		in = tr
	} else {
		in = interp.NewLineReader(os.Stdin)
	}
	r, err := interp.NewRunner(info, os.Stdout, in, cfg)
	if err != nil {
		return err
	}
	return r.Run()
}

func translate(filename string, src []byte, output string, cfg interp.Config) (err error) {
	info, err := pascal.Compile(filename, bytes.NewReader(src))
	if err != nil {
		return err
	}
	var tc pascal.TranspileToC
	if err := tc.Reset(info, cfg.Formatter()); err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if output != "" {
		f, ferr := os.Create(output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return tc.WriteProgram(w)
}

func dumpSymbols(filename string, src []byte) error {
	info, err := pascal.Compile(filename, bytes.NewReader(src))
	if info == nil {
		return err
	}
	if derr := info.Dump(os.Stdout); derr != nil {
		return derr
	}
	fmt.Printf("fingerprint %x\n", info.Fingerprint())
	return err
}

func printAST(filename string, src []byte) error {
	prog, err := pascal.Parse(filename, bytes.NewReader(src))
	if err != nil {
		return err
	}
	return ast.Print(prog)
}

// report prints err to standard error, one line per joined error. Errors
// carrying a byte offset are prefixed with the position in src.
func report(filename string, src []byte, err error) {
	var rerr *interp.RuntimeError
	var serr *symbol.Error
	switch {
	case errors.As(err, &rerr):
		errColor.Fprint(os.Stderr, "runtime error: ")
		if rerr.Pos >= 0 {
			noteColor.Fprint(os.Stderr, position(filename, src, rerr.Pos), ": ")
		}
		fmt.Fprintln(os.Stderr, rerr)
		for i, name := range rerr.Stack {
			if i == maxTraceback {
				noteColor.Fprintf(os.Stderr, "\t... %d more\n", len(rerr.Stack)-i)
				break
			}
			noteColor.Fprintf(os.Stderr, "\tin %s\n", name)
		}
	case errors.Is(err, pascal.ErrUnsupported):
		errColor.Fprint(os.Stderr, "cannot translate: ")
		fmt.Fprintln(os.Stderr, err)
	case errors.As(err, &serr):
		errs := []error{err}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = joined.Unwrap()
		}
		for _, e := range errs {
			errColor.Fprint(os.Stderr, "error: ")
			if errors.As(e, &serr) {
				noteColor.Fprint(os.Stderr, position(filename, src, serr.Pos), ": ")
			}
			fmt.Fprintln(os.Stderr, e)
		}
	default:
		errColor.Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
	}
}

// position formats byte offset off of src as file:line:col.
func position(filename string, src []byte, off int) string {
	if off > len(src) {
		off = len(src)
	}
	line := 1 + bytes.Count(src[:off], []byte{'\n'})
	col := off + 1
	if nl := bytes.LastIndexByte(src[:off], '\n'); nl >= 0 {
		col = off - nl
	}
	return fmt.Sprintf("%s:%d:%d", filename, line, col)
}
