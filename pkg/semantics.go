package pyasm

import "strconv"

const slotSize = 4

// Identifiers that evaluate to constants without a symbol table lookup.
var booleanLiterals = map[string]int32{
	"True":  1,
	"False": 0,
}

// Procedures are emitted under their source name, so a function may not
// shadow a symbol of the generated program, a register or a mnemonic.
var reservedFunctions = map[string]bool{}

func init() {
	for _, names := range [][]string{
		// entry point and runtime symbols
		{"main", "start", "printf", "ExitProcess", "MessageBox"},
		// registers
		{"eax", "ebx", "ecx", "edx", "esp", "ebp", "esi", "edi", "al"},
		// mnemonics and directives the generator emits
		{"push", "pop", "mov", "add", "sub", "mul", "cdq", "idiv", "cmp", "sete", "setl", "setg", "je", "jmp", "call", "ret", "invoke", "proc", "endp", "proto", "end", "include", "fn"},
	} {
		for _, name := range names {
			reservedFunctions[name] = true
		}
	}
}

// SymbolTable maps the variables of one function to frame offsets relative
// to ebp. Parameters sit above the saved ebp and the return address; locals
// are assigned negative offsets, monotonically decreasing, in order of first
// assignment. An offset is never reassigned.
type SymbolTable struct {
	Entries   map[string]int
	nextLocal int
}

// NewSymbolTable places params as pushed by a caller evaluating arguments
// left to right: the last parameter is nearest to the frame base.
func NewSymbolTable(params []string) *SymbolTable {
	t := &SymbolTable{Entries: make(map[string]int)}

	for i, name := range params {
		t.Entries[name] = 2*slotSize + slotSize*(len(params)-1-i)
	}

	return t
}

func (t *SymbolTable) Get(name string) (int, bool) {
	offset, ok := t.Entries[name]
	return offset, ok
}

// Define returns the offset of name, reserving the next local slot if name
// is new.
func (t *SymbolTable) Define(name string) (offset int, isNew bool) {
	if offset, ok := t.Entries[name]; ok {
		return offset, false
	}

	t.nextLocal -= slotSize
	t.Entries[name] = t.nextLocal

	return t.nextLocal, true
}

// FrameSize is the number of bytes reserved below ebp for locals.
func (t *SymbolTable) FrameSize() int {
	return -t.nextLocal
}

// FunctionTable holds the user defined functions of one generation run.
type FunctionTable struct {
	Entries map[string]*FuncDecl
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{Entries: make(map[string]*FuncDecl)}
}

func (t *FunctionTable) Add(decl *FuncDecl) error {
	if reservedFunctions[decl.Name] {
		return semanticErrorf(decl.Line, "function name %q is reserved", decl.Name)
	}

	if _, ok := t.Entries[decl.Name]; ok {
		return semanticErrorf(decl.Line, "function %q is already defined", decl.Name)
	}

	t.Entries[decl.Name] = decl
	return nil
}

func (t *FunctionTable) Get(name string) *FuncDecl {
	return t.Entries[name]
}

// Program is a parsed program split into its user functions and the
// synthesized main function holding every top level statement.
type Program struct {
	Functions []*FuncDecl
	Main      *FuncDecl
	Table     *FunctionTable
}

func NewProgram(nodes []Node) (*Program, error) {
	prog := &Program{
		Main:  &FuncDecl{Name: "main", Params: []string{}},
		Table: NewFunctionTable(),
	}

	for _, n := range nodes {
		decl, ok := n.(*FuncDecl)
		if !ok {
			prog.Main.Body = append(prog.Main.Body, n)
			continue
		}

		if err := prog.Table.Add(decl); err != nil {
			return nil, err
		}

		prog.Functions = append(prog.Functions, decl)
	}

	prog.Main.Body = append(prog.Main.Body, &ReturnStmt{Expr: &Number{Value: "0"}})

	return prog, nil
}

// withImplicitReturn appends `return 0` to a body that does not already end
// in a return.
func withImplicitReturn(body []Node) []Node {
	if len(body) > 0 {
		if _, ok := body[len(body)-1].(*ReturnStmt); ok {
			return body
		}
	}

	out := make([]Node, len(body), len(body)+1)
	copy(out, body)

	return append(out, &ReturnStmt{Expr: &Number{Value: "0"}})
}

func parseNumber(n *Number) (int32, error) {
	v, err := strconv.ParseInt(n.Value, 10, 32)
	if err != nil {
		return 0, semanticErrorf(n.Line, "integer literal %s out of range", n.Value)
	}

	return int32(v), nil
}
