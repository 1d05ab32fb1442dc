package pyasm

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

type Backend string

const (
	BackendMASM Backend = "masm"
	BackendLLVM Backend = "llvm"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMASM, BackendLLVM:
		return b, nil
	}

	return "", errors.Errorf("unknown backend %q", s)
}

// Extension is the conventional file extension of the backend's output.
func (b Backend) Extension() string {
	if b == BackendLLVM {
		return ".ll"
	}

	return ".asm"
}

type Options struct {
	// Backend defaults to BackendMASM.
	Backend Backend
	// ASTDump receives the YAML tree of every compiled program when set.
	ASTDump io.Writer
	// PrintFormat is the printf format of print in LLVM output. Empty means
	// DefaultPrintFormat.
	PrintFormat string
}

// Compiler runs lexer, parser and generator in sequence. Each stage's error
// is returned as is (*LexicalError, *SyntaxError, *SemanticError).
type Compiler struct {
	opts Options
}

func NewCompiler(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

func (c *Compiler) Compile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", errors.Wrap(err, "open source")
	}
	defer f.Close()

	return c.CompileFromReader(f)
}

func (c *Compiler) CompileFromReader(reader io.Reader) (string, error) {
	gen, err := c.generator()
	if err != nil {
		return "", err
	}

	lines, err := NewLexer(reader).Run()
	if err != nil {
		return "", err
	}

	nodes, err := NewParser().Parse(lines)
	if err != nil {
		return "", err
	}

	if c.opts.ASTDump != nil {
		if err := DumpAST(c.opts.ASTDump, nodes); err != nil {
			return "", errors.Wrap(err, "dump ast")
		}
	}

	return gen.Generate(nodes)
}

// generator returns a fresh generator so label and function state never
// leak between runs.
func (c *Compiler) generator() (Generator, error) {
	switch c.opts.Backend {
	case "", BackendMASM:
		return NewMASMGenerator(), nil
	case BackendLLVM:
		g := NewLLVMGenerator()
		if c.opts.PrintFormat != "" {
			g.SetPrintFormat(c.opts.PrintFormat)
		}

		return g, nil
	}

	return nil, errors.Errorf("unknown backend %q", c.opts.Backend)
}
