package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.pyasm.dev/internal/emu"
	"go.pyasm.dev/pkg"
)

var (
	outFileName string
	backendName string
	dumpAST     bool
	run         bool
	verbose     bool
)

func main() {
	flag.StringVar(&outFileName, "o", "", "output `file` (default: source name with the backend's extension)")
	flag.StringVar(&backendName, "backend", string(pyasm.BackendMASM), "code generator: masm or llvm")
	flag.BoolVar(&dumpAST, "ast", false, "dump the syntax tree as YAML to stdout")
	flag.BoolVar(&run, "run", false, "interpret the generated MASM and print every printed value")
	flag.BoolVar(&verbose, "v", false, "report progress on stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] source.py\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := compile(flag.Arg(0)); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func compile(src string) error {
	backend, err := pyasm.ParseBackend(backendName)
	if err != nil {
		return err
	}

	if run && backend != pyasm.BackendMASM {
		return errors.Errorf("-run needs the %s backend", pyasm.BackendMASM)
	}

	opts := pyasm.Options{Backend: backend}
	if dumpAST {
		opts.ASTDump = os.Stdout
	}

	logf("compiling %s with the %s backend", src, backend)
	out, err := pyasm.NewCompiler(opts).Compile(src)
	if err != nil {
		return err
	}

	dst := outFileName
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + backend.Extension()
	}

	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		return errors.Wrap(err, "write output")
	}
	logf("wrote %s", dst)

	if !run {
		return nil
	}

	res, err := emu.Run(out)
	if err != nil {
		return err
	}

	for _, v := range res.Output {
		fmt.Println(v)
	}
	logf("program exited with %d after %d steps", res.ExitCode, res.Steps)

	return nil
}

func logf(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func printError(w io.Writer, err error) {
	var (
		lexErr *pyasm.LexicalError
		synErr *pyasm.SyntaxError
		semErr *pyasm.SemanticError
	)

	switch {
	case errors.As(err, &lexErr):
		fmt.Fprintf(w, "Lexical error: unexpected character %q at line %d\n", lexErr.Char, lexErr.Line)
	case errors.As(err, &synErr):
		fmt.Fprintf(w, "Syntax error: %s on line %d\n", synErr.Msg, synErr.Line)
	case errors.As(err, &semErr):
		if semErr.Line != 0 {
			fmt.Fprintf(w, "Semantic error: %s on line %d\n", semErr.Msg, semErr.Line)
			return
		}

		fmt.Fprintln(w, "Semantic error:", semErr.Msg)
	default:
		fmt.Fprintln(w, "error:", err)
	}
}
