package pyasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) ([]Node, error) {
	t.Helper()

	toks, err := Tokenize(src)
	require.NoError(t, err)

	return Parse(toks)
}

func TestParser(t *testing.T) {
	cases := []struct {
		data   string
		expect []Node
	}{
		{
			"x = 1",
			[]Node{
				&Assignment{Name: "x", Value: &Number{Value: "1", Line: 1}, Line: 1},
			},
		},
		{
			"foo()",
			[]Node{
				&FuncCall{Name: "foo", Args: []Node{}, Line: 1},
			},
		},
		{
			"foo(1, bar(x), y + 2)",
			[]Node{
				&FuncCall{
					Name: "foo",
					Args: []Node{
						&Number{Value: "1", Line: 1},
						&FuncCall{Name: "bar", Args: []Node{&Identifier{Name: "x", Line: 1}}, Line: 1},
						&BinaryExpr{
							Operation: BinaryAddition,
							Op1:       &Identifier{Name: "y", Line: 1},
							Op2:       &Number{Value: "2", Line: 1},
						},
					},
					Line: 1,
				},
			},
		},
		{
			"print(a % 3)",
			[]Node{
				&PrintStmt{Expr: &BinaryExpr{
					Operation: BinaryModulo,
					Op1:       &Identifier{Name: "a", Line: 1},
					Op2:       &Number{Value: "3", Line: 1},
				}},
			},
		},
		{
			"def add(a, b):\n    return a + b",
			[]Node{
				&FuncDecl{
					Name:   "add",
					Params: []string{"a", "b"},
					Body: []Node{
						&ReturnStmt{Expr: &BinaryExpr{
							Operation: BinaryAddition,
							Op1:       &Identifier{Name: "a", Line: 2},
							Op2:       &Identifier{Name: "b", Line: 2},
						}},
					},
					Line: 1,
				},
			},
		},
		{
			"def zero():\n    return 0",
			[]Node{
				&FuncDecl{
					Name:   "zero",
					Params: []string{},
					Body:   []Node{&ReturnStmt{Expr: &Number{Value: "0", Line: 2}}},
					Line:   1,
				},
			},
		},
		{
			"if a == b:\n    print(a)\n\n    print(b)\nprint(0)",
			[]Node{
				&IfStmt{
					Condition: &BinaryExpr{
						Operation: BinaryEqual,
						Op1:       &Identifier{Name: "a", Line: 1},
						Op2:       &Identifier{Name: "b", Line: 1},
					},
					Body: []Node{
						&PrintStmt{Expr: &Identifier{Name: "a", Line: 2}},
						&PrintStmt{Expr: &Identifier{Name: "b", Line: 4}},
					},
				},
				&PrintStmt{Expr: &Number{Value: "0", Line: 5}},
			},
		},
		{
			"x =     1",
			[]Node{
				&Assignment{Name: "x", Value: &Number{Value: "1", Line: 1}, Line: 1},
			},
		},
		{
			"True",
			[]Node{
				&Identifier{Name: "True", Line: 1},
			},
		},
	}

	for _, c := range cases {
		nodes, err := parseSource(t, c.data)
		require.NoError(t, err, c.data)
		assert.Equal(t, c.expect, nodes, c.data)
	}
}

func TestParserWhileNesting(t *testing.T) {
	src := "i = 0\nwhile i < 3:\n    print(i)\n    i = i + 1\nprint(i)\n"

	nodes, err := parseSource(t, src)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	loop, ok := nodes[1].(*WhileStmt)
	require.True(t, ok)
	assert.Equal(t, &BinaryExpr{
		Operation: BinaryLess,
		Op1:       &Identifier{Name: "i", Line: 2},
		Op2:       &Number{Value: "3", Line: 2},
	}, loop.Condition)
	require.Len(t, loop.Body, 2)
	assert.IsType(t, &PrintStmt{}, loop.Body[0])
	assert.IsType(t, &Assignment{}, loop.Body[1])

	assert.Equal(t, &PrintStmt{Expr: &Identifier{Name: "i", Line: 5}}, nodes[2])
}

func TestParserBlankLineInsideBlock(t *testing.T) {
	nodes, err := parseSource(t, "while i < 3:\n    print(i)\n\n    i = i + 1\nprint(i)")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	loop, ok := nodes[0].(*WhileStmt)
	require.True(t, ok)
	require.Len(t, loop.Body, 2)
	assert.Equal(t, &PrintStmt{Expr: &Identifier{Name: "i", Line: 2}}, loop.Body[0])
	assert.Equal(t, &Assignment{
		Name: "i",
		Value: &BinaryExpr{
			Operation: BinaryAddition,
			Op1:       &Identifier{Name: "i", Line: 4},
			Op2:       &Number{Value: "1", Line: 4},
		},
		Line: 4,
	}, loop.Body[1])

	assert.Equal(t, &PrintStmt{Expr: &Identifier{Name: "i", Line: 5}}, nodes[1])
}

func TestLineDepth(t *testing.T) {
	cases := []struct {
		data  string
		depth []int
	}{
		{"x =     1", []int{0}},
		{"x = 1\n    y = 2\n        z =    3", []int{0, 1, 2}},
		{"\t\tx = 1", []int{0}},
		{"x = 1\n\n", []int{0, 0}},
	}

	for _, c := range cases {
		toks, err := Tokenize(c.data)
		require.NoError(t, err, c.data)

		lines := convertTokensToLines(toks)
		require.Len(t, lines, len(c.depth), c.data)

		for i, line := range lines {
			assert.Equal(t, c.depth[i], line.Depth, c.data)
			for _, tok := range line.Tokens {
				assert.NotEqual(t, TokenIndent, tok.Typ, c.data)
			}
		}
	}
}

func TestParserNestedBlocks(t *testing.T) {
	src := "def f(n):\n" +
		"    while n > 0:\n" +
		"        if n > 2:\n" +
		"            print(n)\n" +
		"        n = n - 1\n" +
		"    return n\n" +
		"f(4)\n"

	nodes, err := parseSource(t, src)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	f := nodes[0].(*FuncDecl)
	require.Len(t, f.Body, 2)

	loop := f.Body[0].(*WhileStmt)
	require.Len(t, loop.Body, 2)
	assert.IsType(t, &IfStmt{}, loop.Body[0])
	assert.Len(t, loop.Body[0].(*IfStmt).Body, 1)
	assert.IsType(t, &ReturnStmt{}, f.Body[1])
	assert.IsType(t, &FuncCall{}, nodes[1])
}

func TestParserErrors(t *testing.T) {
	cases := []struct {
		data string
		line int
		msg  string
	}{
		{"def f(x):\n    def g():\n        return 1", 2, "function cannot be nested"},
		{"def f(x):\nprint(x)", 1, "expected an indented block after function definition"},
		{"def (x):\n    return x", 1, "expected function identifier"},
		{"def f x:\n    return x", 1, `expected "("`},
		{"def f(x:\n    return x", 1, `expected "," or ")"`},
		{"def f(1):\n    return 1", 1, "expected identifier"},
		{"def f(x, x):\n    return x", 1, `duplicate parameter "x"`},
		{"def f(x)\n    return x", 1, `expected ":"`},
		{"x = 1\nif x < 2\n    print(x)", 2, `expected ":"`},
		{"if:\n    print(1)", 1, `expected an expression after "if" statement`},
		{"if x:\nprint(x)", 1, `expected an indented block after "if" statement`},
		{"while x:\n\n", 1, `expected an indented block after "while" statement`},
		{"return", 1, "expected an expression after return"},
		{"print x", 1, `expected "("`},
		{"print(x", 1, `expected ")"`},
		{"print()", 1, `expected an expression after "print"`},
		{"x =", 1, "expected an expression after variable assignment"},
		{"x = 1 +", 1, "expected second operand"},
		{"x = 1 + 2 + 3", 1, `unexpected "+"`},
		{"x = (1)", 1, `unexpected "("`},
		{"f(1,)", 1, "expected parameter"},
		{"f(1 2)", 1, `expected "," or ")"`},
		{"f(1", 1, `expected ")"`},
		{"else", 1, `unexpected "else"`},
		{"x = y if y < 1", 1, `expected "else" in conditional expression`},
		{"x = y if y == 1 else 2", 1, "unsupported conditional expression condition"},
		{"x = y if else 2", 1, `expected an expression after "if"`},
		{"x = y if y < 1 else", 1, `expected an expression after "else"`},
	}

	for _, c := range cases {
		_, err := parseSource(t, c.data)
		require.Error(t, err, c.data)

		var synErr *SyntaxError
		require.ErrorAs(t, err, &synErr, c.data)
		assert.Equal(t, c.line, synErr.Line, c.data)
		assert.Contains(t, synErr.Msg, c.msg, c.data)
	}
}

func TestParserIsRestartable(t *testing.T) {
	toks, err := Tokenize("x = 1\nprint(x)")
	require.NoError(t, err)

	p := NewParser()
	first, err := p.Parse(toks)
	require.NoError(t, err)

	second, err := p.Parse(toks)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
