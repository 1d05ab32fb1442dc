package pyasm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

type ValueLookup struct {
	vals map[string]value.Value
}

func NewValueLookup() *ValueLookup {
	return &ValueLookup{
		vals: make(map[string]value.Value),
	}
}

func (l *ValueLookup) Get(id string) (value.Value, bool) {
	val, ok := l.vals[id]
	return val, ok
}

func (l *ValueLookup) Set(id string, val value.Value) {
	l.vals[id] = val
}

// LLVMGenerator lowers the same syntax tree as MASMGenerator to LLVM IR.
// Every variable lives in an i32 stack slot allocated in the entry block;
// comparisons yield 0 or 1 as i32.
type LLVMGenerator struct {
	mod       *ir.Module
	functions *FunctionTable
	funcs     map[string]*ir.Func
	print     *ir.Func

	fn     *ir.Func
	entry  *ir.Block
	block  *ir.Block
	values *ValueLookup
	labels int

	printFormat string
}

func NewLLVMGenerator() *LLVMGenerator {
	return &LLVMGenerator{printFormat: DefaultPrintFormat}
}

// SetPrintFormat changes the printf format print uses. It must consume
// exactly one int.
func (g *LLVMGenerator) SetPrintFormat(format string) {
	g.printFormat = format
}

func (g *LLVMGenerator) Generate(nodes []Node) (string, error) {
	mod, err := g.Module(nodes)
	if err != nil {
		return "", err
	}

	return mod.String(), nil
}

// Module builds the IR module for nodes.
func (g *LLVMGenerator) Module(nodes []Node) (*ir.Module, error) {
	prog, err := NewProgram(nodes)
	if err != nil {
		return nil, err
	}

	g.mod = ir.NewModule()
	g.functions = prog.Table
	g.funcs = make(map[string]*ir.Func)
	g.labels = 0
	defineBuiltins(g)

	decls := append(append([]*FuncDecl{}, prog.Functions...), prog.Main)
	for _, decl := range decls {
		params := make([]*ir.Param, len(decl.Params))
		for i, name := range decl.Params {
			params[i] = ir.NewParam(name, types.I32)
		}

		g.funcs[decl.Name] = g.mod.NewFunc(decl.Name, types.I32, params...)
	}

	for _, decl := range decls {
		if err := g.function(decl); err != nil {
			return nil, err
		}
	}

	return g.mod, nil
}

func (g *LLVMGenerator) function(decl *FuncDecl) error {
	g.fn = g.funcs[decl.Name]
	g.entry = g.fn.NewBlock("entry.0")
	g.block = g.entry
	g.values = NewValueLookup()

	for _, param := range g.fn.Params {
		slot := g.entry.NewAlloca(types.I32)
		g.entry.NewStore(param, slot)
		g.values.Set(param.Name(), slot)
	}

	for _, stmt := range withImplicitReturn(decl.Body) {
		if err := g.statement(stmt); err != nil {
			return err
		}
	}

	// Only reachable through the dead block opened after the final return
	if g.block.Term == nil {
		g.block.NewUnreachable()
	}

	return nil
}

func (g *LLVMGenerator) newBlocks(names ...string) []*ir.Block {
	g.labels++

	blocks := make([]*ir.Block, len(names))
	for i, name := range names {
		blocks[i] = g.fn.NewBlock(fmt.Sprintf("%s.%d", name, g.labels))
	}

	return blocks
}

func (g *LLVMGenerator) statement(stmt Node) error {
	switch s := stmt.(type) {
	case *ReturnStmt:
		v, err := g.expression(s.Expr)
		if err != nil {
			return err
		}

		g.block.NewRet(v)
		g.block = g.fn.NewBlock("")
		return nil
	case *Assignment:
		return g.assignment(s)
	case *IfStmt:
		cond, err := g.condition(s.Condition)
		if err != nil {
			return err
		}

		blocks := g.newBlocks("if.then", "if.end")
		then, end := blocks[0], blocks[1]
		g.block.NewCondBr(cond, then, end)

		g.block = then
		if err := g.body(s.Body); err != nil {
			return err
		}
		g.block.NewBr(end)

		g.block = end
		return nil
	case *WhileStmt:
		blocks := g.newBlocks("while.cond", "while.body", "while.end")
		head, body, end := blocks[0], blocks[1], blocks[2]
		g.block.NewBr(head)

		g.block = head
		cond, err := g.condition(s.Condition)
		if err != nil {
			return err
		}
		g.block.NewCondBr(cond, body, end)

		g.block = body
		if err := g.body(s.Body); err != nil {
			return err
		}
		g.block.NewBr(head)

		g.block = end
		return nil
	case *PrintStmt:
		v, err := g.expression(s.Expr)
		if err != nil {
			return err
		}

		g.block.NewCall(g.print, v)
		return nil
	}

	if stmt != nil && isExpression(stmt) {
		_, err := g.expression(stmt)
		return err
	}

	return semanticErrorf(0, "unknown operation %q", kindOf(stmt))
}

func (g *LLVMGenerator) body(stmts []Node) error {
	for _, stmt := range stmts {
		if err := g.statement(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (g *LLVMGenerator) condition(expr Node) (value.Value, error) {
	v, err := g.expression(expr)
	if err != nil {
		return nil, err
	}

	return g.block.NewICmp(enum.IPredNE, v, constant.NewInt(types.I32, 0)), nil
}

func (g *LLVMGenerator) assignment(s *Assignment) error {
	v, err := g.expression(s.Value)
	if err != nil {
		return err
	}

	slot, ok := g.values.Get(s.Name)
	if !ok {
		slot = g.entry.NewAlloca(types.I32)
		g.values.Set(s.Name, slot)
	}
	g.block.NewStore(v, slot)

	if s.Ternary == nil {
		return nil
	}

	return g.statement(s.Ternary)
}

func (g *LLVMGenerator) expression(expr Node) (value.Value, error) {
	switch e := expr.(type) {
	case *Number:
		v, err := parseNumber(e)
		if err != nil {
			return nil, err
		}

		return constant.NewInt(types.I32, int64(v)), nil
	case *Identifier:
		if v, ok := booleanLiterals[e.Name]; ok {
			return constant.NewInt(types.I32, int64(v)), nil
		}

		slot, ok := g.values.Get(e.Name)
		if !ok {
			return nil, semanticErrorf(e.Line, "variable %q is undefined", e.Name)
		}

		return g.block.NewLoad(types.I32, slot), nil
	case *FuncCall:
		if err := checkCall(g.functions, e); err != nil {
			return nil, err
		}

		args := make([]value.Value, len(e.Args))
		for i, arg := range e.Args {
			v, err := g.expression(arg)
			if err != nil {
				return nil, err
			}

			args[i] = v
		}

		return g.block.NewCall(g.funcs[e.Name], args...), nil
	case *BinaryExpr:
		return g.binaryExpression(e)
	}

	return nil, semanticErrorf(0, "unknown operation %q", kindOf(expr))
}

func (g *LLVMGenerator) binaryExpression(e *BinaryExpr) (value.Value, error) {
	v1, err := g.expression(e.Op1)
	if err != nil {
		return nil, err
	}

	v2, err := g.expression(e.Op2)
	if err != nil {
		return nil, err
	}

	switch e.Operation {
	case BinaryAddition:
		return g.block.NewAdd(v1, v2), nil
	case BinarySubtraction:
		return g.block.NewSub(v1, v2), nil
	case BinaryMultiplication:
		return g.block.NewMul(v1, v2), nil
	case BinaryModulo:
		return g.block.NewSRem(v1, v2), nil
	case BinaryLess:
		return g.compare(enum.IPredSLT, v1, v2), nil
	case BinaryGreater:
		return g.compare(enum.IPredSGT, v1, v2), nil
	case BinaryEqual:
		return g.compare(enum.IPredEQ, v1, v2), nil
	}

	return nil, semanticErrorf(0, "unknown operation %q", e.Operation)
}

func (g *LLVMGenerator) compare(pred enum.IPred, v1, v2 value.Value) value.Value {
	cmp := g.block.NewICmp(pred, v1, v2)
	return g.block.NewZExt(cmp, types.I32)
}
