package pyasm

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// DefaultPrintFormat is the printf format print writes each value with.
const DefaultPrintFormat = "%d\n"

func defineBuiltins(g *LLVMGenerator) {
	g.print = defineBuiltinFunc(g, "print", builtinPrint)
}

type funcDefinition = func(g *LLVMGenerator) *ir.Func

func defineBuiltinFunc(g *LLVMGenerator, name string, definition funcDefinition) *ir.Func {
	f := definition(g)
	f.SetName(name)

	return f
}

// builtinPrint writes its i32 argument through printf with the generator's
// print format.
func builtinPrint(g *LLVMGenerator) *ir.Func {
	mod := g.mod

	f := mod.NewFunc("", types.Void, ir.NewParam("v", types.I32))
	b := f.NewBlock("")

	printf := mod.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true

	zero := constant.NewInt(types.I32, 0)

	format := constant.NewCharArrayFromString(g.printFormat + "\x00")
	formatGlob := mod.NewGlobalDef("print.format", format)

	fmtAddr := constant.NewGetElementPtr(format.Typ, formatGlob, zero, zero)

	b.NewCall(printf, fmtAddr, f.Params[0])

	b.NewRet(nil)

	return f
}
