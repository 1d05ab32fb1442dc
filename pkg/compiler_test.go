package pyasm

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"go.pyasm.dev/internal/emu"
	"go.pyasm.dev/internal/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSource(t *testing.T, src string) []int32 {
	t.Helper()

	out, err := NewCompiler(Options{}).CompileFromReader(strings.NewReader(src))
	require.NoError(t, err, src)

	res, err := emu.Run(out)
	require.NoError(t, err, src)
	assert.Equal(t, int32(0), res.ExitCode)

	return res.Output
}

func TestCompileFile(t *testing.T) {
	out, err := NewCompiler(Options{}).Compile("testdata/algorithm.py")
	require.NoError(t, err)

	res, err := emu.Run(out)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 8}, res.Output)
}

func TestCompileAndRun(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		expect []int32
	}{
		{"print", "print(42)", []int32{42}},
		{"arithmetic", "x = 6\ny = x * 7\nprint(y - 2)\nprint(y + x)", []int32{40, 48}},
		{"negative modulo", "x = 0 - 7\nprint(x % 3)\nprint(7 % 3)", []int32{-1, 1}},
		{"comparisons", "print(3 < 5)\nprint(5 < 3)\nprint(5 > 3)\nprint(4 == 4)\nprint(4 == 5)", []int32{1, 0, 1, 1, 0}},
		{"booleans", "print(True)\nprint(False)\nx = True\nprint(x + 1)", []int32{1, 0, 2}},
		{"argument order", "def diff(a, b):\n    return a - b\nprint(diff(10, 3))", []int32{7}},
		{"three arguments", "def f(a, b, c):\n    x = a * 100\n    return x + c\nprint(f(1, 2, 3))", []int32{103}},
		{"recursion", "def fact(n):\n    if n < 2:\n        return 1\n    return n * fact(n - 1)\nprint(fact(5))", []int32{120}},
		{"implicit return", "def f(x):\n    print(x)\nprint(f(9))", []int32{9, 0}},
		{"expression statements", "def show(x):\n    print(x)\nshow(4)\nshow(5)\n1 + 2", []int32{4, 5}},
		{"while", "i = 3\nwhile i > 0:\n    print(i)\n    i = i - 1", []int32{3, 2, 1}},
		{"while never entered", "i = 0\nwhile i > 0:\n    print(i)\nprint(7)", []int32{7}},
		{"if", "x = 1\nif x == 1:\n    print(10)\nif x == 2:\n    print(20)", []int32{10}},
		{"locals in branches", "x = 0\nif x < 1:\n    y = 5\n    x = y\nprint(x)", []int32{5}},
		{"return in loop", "def first(n):\n    i = 0\n    while i < n:\n        sq = i * i\n        if sq > 10:\n            return i\n        i = i + 1\n    return 0 - 1\nprint(first(10))\nprint(first(2))", []int32{4, -1}},
		{"nested calls", "def inc(x):\n    return x + 1\nprint(inc(inc(inc(0))))", []int32{3}},
		{"ternary taken", "def inc(v):\n    return v + 1\nx = 5\nm = 0 if x > 2 else inc(x)\nprint(m)", []int32{0}},
		{"ternary fallback", "def inc(v):\n    return v + 1\nx = 1\nm = 0 if x > 2 else inc(x)\nprint(m)", []int32{2}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, runSource(t, c.src))
		})
	}
}

func TestTernaryMinimum(t *testing.T) {
	pairs := [][2]int32{{11, 10}, {10, 11}, {4, 4}, {0, 7}, {7, 0}}

	for _, p := range pairs {
		src := fmt.Sprintf("a = %d\nb = %d\na = a if a < b else b\nprint(a)\n", p[0], p[1])

		expect := p[0]
		if p[1] < expect {
			expect = p[1]
		}

		assert.Equal(t, []int32{expect}, runSource(t, src), src)
	}
}

func TestCompileRandomPrograms(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 25; i++ {
		src := test.GetRandomProgram(r, 40)
		runSource(t, src)
	}
}

func TestCompileLLVM(t *testing.T) {
	out, err := NewCompiler(Options{Backend: BackendLLVM}).Compile("testdata/algorithm.py")
	require.NoError(t, err)
	assert.Contains(t, out, "define i32 @main()")
}

func TestCompileASTDump(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewCompiler(Options{ASTDump: &buf}).Compile("testdata/algorithm.py")
	require.NoError(t, err)

	dump := buf.String()
	for _, want := range []string{
		"- type: function\n",
		"name: find_sum_of_all_whole_divisors",
		"parameters: [n]",
		"type: while",
		"type: assignment",
		"ternary:",
		"type: print",
	} {
		assert.Contains(t, dump, want)
	}
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler(Options{})

	_, err := c.CompileFromReader(strings.NewReader("x = $"))
	assert.IsType(t, &LexicalError{}, err)

	_, err = c.CompileFromReader(strings.NewReader("x = = 1"))
	assert.IsType(t, &SyntaxError{}, err)

	_, err = c.CompileFromReader(strings.NewReader("print(x)"))
	assert.IsType(t, &SemanticError{}, err)

	_, err = c.Compile("testdata/missing.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open source")

	_, err = NewCompiler(Options{Backend: "jvm"}).CompileFromReader(strings.NewReader("print(1)"))
	require.Error(t, err)
	assert.Equal(t, `unknown backend "jvm"`, err.Error())
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("llvm")
	require.NoError(t, err)
	assert.Equal(t, BackendLLVM, b)
	assert.Equal(t, ".ll", b.Extension())

	b, err = ParseBackend("masm")
	require.NoError(t, err)
	assert.Equal(t, ".asm", b.Extension())

	_, err = ParseBackend("")
	assert.Error(t, err)
}
