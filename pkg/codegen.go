package pyasm

import (
	"fmt"
	"strings"
)

// Generator turns a parsed program into program text.
type Generator interface {
	Generate(nodes []Node) (string, error)
}

const masmPreamble = `.386
.model flat, stdcall
include \masm32\include\masm32rt.inc
main proto
.data
.code
__print proc
    push ebp
    mov ebp, esp
    fn MessageBox, 0, str$(8[ebp]), "Result", MB_OK
    pop ebp
    ret
__print endp
start:
    invoke main
    invoke ExitProcess, 0
`

// MASMGenerator emits 32-bit MASM for a stack machine: every expression
// pushes exactly one value and every consumer pops what it uses. Return
// values travel in ebx.
type MASMGenerator struct {
	functions *FunctionTable
	labels    int
}

func NewMASMGenerator() *MASMGenerator {
	return &MASMGenerator{}
}

// Generate compiles nodes with a fresh generator.
func Generate(nodes []Node) (string, error) {
	return NewMASMGenerator().Generate(nodes)
}

func (g *MASMGenerator) Generate(nodes []Node) (string, error) {
	g.labels = 0

	prog, err := NewProgram(nodes)
	if err != nil {
		return "", err
	}
	g.functions = prog.Table

	var procs []string
	for _, decl := range prog.Functions {
		code, err := g.function(decl)
		if err != nil {
			return "", err
		}

		procs = append(procs, strings.Join(code, "\n"))
	}

	code, err := g.function(prog.Main)
	if err != nil {
		return "", err
	}
	procs = append(procs, strings.Join(code, "\n"))

	return masmPreamble + "\n" + strings.Join(procs, "\n\n") + "\n\nend start\n", nil
}

func op(format string, args ...interface{}) string {
	return "    " + fmt.Sprintf(format, args...)
}

func label(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...) + ":"
}

func frameRef(offset int) string {
	return fmt.Sprintf("[ebp%+d]", offset)
}

// function emits one procedure. The body is generated first so the
// prologue can reserve every local slot at once.
func (g *MASMGenerator) function(decl *FuncDecl) ([]string, error) {
	vars := NewSymbolTable(decl.Params)

	var body []string
	for _, stmt := range withImplicitReturn(decl.Body) {
		ins, err := g.statement(stmt, vars)
		if err != nil {
			return nil, err
		}

		body = append(body, ins...)
	}

	code := []string{
		decl.Name + " proc",
		op("push ebp"),
		op("mov ebp, esp"),
	}

	if size := vars.FrameSize(); size > 0 {
		code = append(code, op("sub esp, %d", size))
	}

	code = append(code, body...)
	return append(code, decl.Name+" endp"), nil
}

func (g *MASMGenerator) newLabel() int {
	g.labels++
	return g.labels
}

func (g *MASMGenerator) statement(stmt Node, vars *SymbolTable) ([]string, error) {
	switch s := stmt.(type) {
	case *ReturnStmt:
		ins, err := g.expression(s.Expr, vars)
		if err != nil {
			return nil, err
		}

		return append(ins,
			op("pop ebx"),
			op("mov esp, ebp"),
			op("pop ebp"),
			op("ret"),
		), nil
	case *Assignment:
		return g.assignment(s, vars)
	case *IfStmt:
		cond, err := g.expression(s.Condition, vars)
		if err != nil {
			return nil, err
		}

		n := g.newLabel()
		body, err := g.block(s.Body, vars)
		if err != nil {
			return nil, err
		}

		ins := append(cond,
			op("pop ebx"),
			op("cmp ebx, 0"),
			op("je _if_end_%d", n),
		)
		ins = append(ins, body...)

		return append(ins, label("_if_end_%d", n)), nil
	case *WhileStmt:
		cond, err := g.expression(s.Condition, vars)
		if err != nil {
			return nil, err
		}

		n := g.newLabel()
		body, err := g.block(s.Body, vars)
		if err != nil {
			return nil, err
		}

		ins := []string{label("_while_%d", n)}
		ins = append(ins, cond...)
		ins = append(ins,
			op("pop eax"),
			op("cmp eax, 0"),
			op("je _while_end_%d", n),
		)
		ins = append(ins, body...)

		return append(ins,
			op("jmp _while_%d", n),
			label("_while_end_%d", n),
		), nil
	case *PrintStmt:
		ins, err := g.expression(s.Expr, vars)
		if err != nil {
			return nil, err
		}

		return append(ins,
			op("call __print"),
			op("add esp, %d", slotSize),
		), nil
	}

	if stmt != nil && isExpression(stmt) {
		// Expression statement: evaluate for side effects, drop the value.
		ins, err := g.expression(stmt, vars)
		if err != nil {
			return nil, err
		}

		return append(ins, op("add esp, %d", slotSize)), nil
	}

	return nil, semanticErrorf(0, "unknown operation %q", kindOf(stmt))
}

func (g *MASMGenerator) block(body []Node, vars *SymbolTable) ([]string, error) {
	var ins []string
	for _, stmt := range body {
		code, err := g.statement(stmt, vars)
		if err != nil {
			return nil, err
		}

		ins = append(ins, code...)
	}

	return ins, nil
}

// assignment evaluates the value before the target is defined, so a new
// variable cannot refer to itself. The desugared ternary overwrite runs
// after the store.
func (g *MASMGenerator) assignment(s *Assignment, vars *SymbolTable) ([]string, error) {
	ins, err := g.expression(s.Value, vars)
	if err != nil {
		return nil, err
	}

	offset, _ := vars.Define(s.Name)
	ins = append(ins,
		op("pop ebx"),
		op("mov %s, ebx", frameRef(offset)),
	)

	if s.Ternary == nil {
		return ins, nil
	}

	overwrite, err := g.statement(s.Ternary, vars)
	if err != nil {
		return nil, err
	}

	return append(ins, overwrite...), nil
}

func (g *MASMGenerator) expression(expr Node, vars *SymbolTable) ([]string, error) {
	switch e := expr.(type) {
	case *Number:
		v, err := parseNumber(e)
		if err != nil {
			return nil, err
		}

		return []string{op("push %d", v)}, nil
	case *Identifier:
		if v, ok := booleanLiterals[e.Name]; ok {
			return []string{op("push %d", v)}, nil
		}

		offset, ok := vars.Get(e.Name)
		if !ok {
			return nil, semanticErrorf(e.Line, "variable %q is undefined", e.Name)
		}

		return []string{
			op("mov eax, %s", frameRef(offset)),
			op("push eax"),
		}, nil
	case *FuncCall:
		return g.functionCall(e, vars)
	case *BinaryExpr:
		return g.binaryExpression(e, vars)
	}

	return nil, semanticErrorf(0, "unknown operation %q", kindOf(expr))
}

func (g *MASMGenerator) functionCall(e *FuncCall, vars *SymbolTable) ([]string, error) {
	if err := checkCall(g.functions, e); err != nil {
		return nil, err
	}

	var ins []string
	for _, arg := range e.Args {
		code, err := g.expression(arg, vars)
		if err != nil {
			return nil, err
		}

		ins = append(ins, code...)
	}

	ins = append(ins, op("call %s", e.Name))
	if len(e.Args) > 0 {
		ins = append(ins, op("add esp, %d", slotSize*len(e.Args)))
	}

	return append(ins, op("push ebx")), nil
}

var binaryInstructions = map[BinaryOp][]string{
	BinaryAddition: {
		op("pop eax"),
		op("pop ebx"),
		op("add ebx, eax"),
		op("push ebx"),
	},
	BinarySubtraction: {
		op("pop eax"),
		op("pop ebx"),
		op("sub ebx, eax"),
		op("push ebx"),
	},
	BinaryMultiplication: {
		op("pop ebx"),
		op("pop eax"),
		op("mul ebx"),
		op("push eax"),
	},
	BinaryModulo: {
		op("pop ebx"),
		op("pop eax"),
		op("cdq"),
		op("idiv ebx"),
		op("push edx"),
	},
	BinaryLess:    comparison("setl"),
	BinaryGreater: comparison("setg"),
	BinaryEqual:   comparison("sete"),
}

func comparison(set string) []string {
	return []string{
		op("pop ebx"),
		op("pop eax"),
		op("cmp eax, ebx"),
		op("mov eax, 0"),
		op("%s al", set),
		op("push eax"),
	}
}

func (g *MASMGenerator) binaryExpression(e *BinaryExpr, vars *SymbolTable) ([]string, error) {
	tail, ok := binaryInstructions[e.Operation]
	if !ok {
		return nil, semanticErrorf(0, "unknown operation %q", e.Operation)
	}

	op1, err := g.expression(e.Op1, vars)
	if err != nil {
		return nil, err
	}

	op2, err := g.expression(e.Op2, vars)
	if err != nil {
		return nil, err
	}

	ins := append(op1, op2...)
	return append(ins, tail...), nil
}

func checkCall(functions *FunctionTable, e *FuncCall) error {
	decl := functions.Get(e.Name)
	if decl == nil {
		return semanticErrorf(e.Line, "function %q is undefined", e.Name)
	}

	if len(decl.Params) != len(e.Args) {
		return semanticErrorf(e.Line, "function %q takes %d arguments, got %d", e.Name, len(decl.Params), len(e.Args))
	}

	return nil
}

func kindOf(n Node) string {
	if n == nil {
		return "<nil>"
	}

	return n.Kind()
}
