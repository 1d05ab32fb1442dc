package pyasm

import "fmt"

// Line is one physical source line with its indentation markers removed.
type Line struct {
	Depth  int
	Tokens []Token
	Number int
}

// Parser is a recursive descent parser over a table of lines. Blocks are the
// lines following a header whose depth is strictly greater than the
// header's.
type Parser struct {
	lines  []Line
	number int
}

func NewParser() *Parser {
	return &Parser{number: -1}
}

// Parse builds the top level nodes of a program from the per line output of
// the lexer.
func Parse(tokens [][]Token) ([]Node, error) {
	return NewParser().Parse(tokens)
}

func (p *Parser) Parse(tokens [][]Token) ([]Node, error) {
	p.lines = convertTokensToLines(tokens)
	p.number = -1

	var nodes []Node
	for p.number+1 < len(p.lines) {
		n, err := p.line()
		if err != nil {
			return nil, err
		}

		if n != nil {
			nodes = append(nodes, n)
		}
	}

	return nodes, nil
}

func convertTokensToLines(tokens [][]Token) []Line {
	lines := make([]Line, 0, len(tokens))

	for i, toks := range tokens {
		line := Line{Number: i + 1, Tokens: make([]Token, 0, len(toks))}

		leading := true
		for _, tok := range toks {
			if tok.Typ == TokenIndent {
				if leading {
					line.Depth++
				}

				continue
			}

			leading = false
			line.Tokens = append(line.Tokens, tok)
		}

		lines = append(lines, line)
	}

	return lines
}

func (p *Parser) errorf(line Line, format string, args ...interface{}) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: line.Number}
}

// line parses the next line, together with its block if it is a header.
// Blank lines yield a nil node.
func (p *Parser) line() (Node, error) {
	p.number++
	cur := p.lines[p.number]
	toks := cur.Tokens

	if len(toks) == 0 {
		return nil, nil
	}

	switch toks[0].Typ {
	case TokenDef:
		return p.funcDecl(cur)
	case TokenReturn:
		return p.returnStmt(cur)
	case TokenIf:
		cond, body, err := p.conditional(cur, `"if" statement`)
		if err != nil {
			return nil, err
		}

		return &IfStmt{Condition: cond, Body: body}, nil
	case TokenWhile:
		cond, body, err := p.conditional(cur, `"while" statement`)
		if err != nil {
			return nil, err
		}

		return &WhileStmt{Condition: cond, Body: body}, nil
	case TokenPrint:
		return p.printStmt(cur)
	case TokenIdentifier:
		if len(toks) > 1 && toks[1].Typ == TokenAssign {
			return p.assignment(cur)
		}
	}

	return p.fullExpression(cur, toks, "")
}

// block consumes every line nested deeper than header. Blank lines never
// close a block.
func (p *Parser) block(header Line, what string) ([]Node, error) {
	var body []Node

	for p.number+1 < len(p.lines) {
		next := p.lines[p.number+1]
		if len(next.Tokens) != 0 && next.Depth <= header.Depth {
			break
		}

		n, err := p.line()
		if err != nil {
			return nil, err
		}

		if n != nil {
			body = append(body, n)
		}
	}

	if len(body) == 0 {
		return nil, p.errorf(header, "expected an indented block after %s", what)
	}

	return body, nil
}

func (p *Parser) funcDecl(line Line) (Node, error) {
	toks := line.Tokens
	if line.Depth != 0 {
		return nil, p.errorf(line, "function cannot be nested")
	}

	if len(toks) < 2 || toks[1].Typ != TokenIdentifier {
		return nil, p.errorf(line, "expected function identifier")
	}

	decl := &FuncDecl{Name: toks[1].Value, Params: []string{}, Line: line.Number}

	if len(toks) < 3 || toks[2].Typ != TokenOpenParentheses {
		return nil, p.errorf(line, `expected "("`)
	}

	pos := 3
	seen := map[string]bool{}
	for pos < len(toks) && toks[pos].Typ != TokenCloseParentheses {
		if toks[pos].Typ != TokenIdentifier {
			return nil, p.errorf(line, "expected identifier, got %q", toks[pos].Value)
		}

		name := toks[pos].Value
		if seen[name] {
			return nil, p.errorf(line, "duplicate parameter %q", name)
		}

		seen[name] = true
		decl.Params = append(decl.Params, name)
		pos++

		if pos < len(toks) && toks[pos].Typ == TokenComma {
			pos++
		} else if pos < len(toks) && toks[pos].Typ != TokenCloseParentheses {
			return nil, p.errorf(line, `expected "," or ")"`)
		}
	}

	if pos >= len(toks) {
		return nil, p.errorf(line, `expected ")"`)
	}
	pos++

	if pos != len(toks)-1 || toks[pos].Typ != TokenColon {
		return nil, p.errorf(line, `expected ":"`)
	}

	body, err := p.block(line, "function definition")
	if err != nil {
		return nil, err
	}

	decl.Body = body
	return decl, nil
}

func (p *Parser) returnStmt(line Line) (Node, error) {
	if len(line.Tokens) == 1 {
		return nil, p.errorf(line, "expected an expression after return")
	}

	expr, err := p.fullExpression(line, line.Tokens[1:], "")
	if err != nil {
		return nil, err
	}

	return &ReturnStmt{Expr: expr}, nil
}

// conditional parses `keyword <expr> :` followed by its block.
func (p *Parser) conditional(line Line, what string) (Node, []Node, error) {
	toks := line.Tokens
	if toks[len(toks)-1].Typ != TokenColon {
		return nil, nil, p.errorf(line, `expected ":"`)
	}

	if len(toks) == 2 {
		return nil, nil, p.errorf(line, "expected an expression after %s", what)
	}

	cond, err := p.fullExpression(line, toks[1:len(toks)-1], "")
	if err != nil {
		return nil, nil, err
	}

	body, err := p.block(line, what)
	if err != nil {
		return nil, nil, err
	}

	return cond, body, nil
}

func (p *Parser) printStmt(line Line) (Node, error) {
	toks := line.Tokens
	if len(toks) < 2 || toks[1].Typ != TokenOpenParentheses {
		return nil, p.errorf(line, `expected "("`)
	}

	if toks[len(toks)-1].Typ != TokenCloseParentheses {
		return nil, p.errorf(line, `expected ")"`)
	}

	if len(toks) == 3 {
		return nil, p.errorf(line, `expected an expression after "print"`)
	}

	expr, err := p.fullExpression(line, toks[2:len(toks)-1], "")
	if err != nil {
		return nil, err
	}

	return &PrintStmt{Expr: expr}, nil
}

func (p *Parser) assignment(line Line) (Node, error) {
	toks := line.Tokens
	target := toks[0]

	if len(toks) == 2 {
		return nil, p.errorf(line, "expected an expression after variable assignment")
	}

	value, pos, err := p.expression(line, toks, 2)
	if err != nil {
		return nil, err
	}

	assign := &Assignment{Name: target.Value, Value: value, Line: target.Line}
	if pos == len(toks) {
		return assign, nil
	}

	if toks[pos].Typ != TokenIf {
		return nil, p.errorf(line, "unexpected %q", toks[pos].Value)
	}

	if _, ok := value.(*BinaryExpr); ok {
		return nil, p.errorf(line, "unsupported conditional expression: branches must be a single value")
	}

	assign.Ternary, err = p.ternary(line, target, toks[pos:])
	if err != nil {
		return nil, err
	}

	return assign, nil
}

// fullExpression parses toks as exactly one expression.
func (p *Parser) fullExpression(line Line, toks []Token, what string) (Node, error) {
	if len(toks) == 0 {
		if what == "" {
			return nil, p.errorf(line, "expected an expression")
		}

		return nil, p.errorf(line, "expected an expression after %s", what)
	}

	expr, pos, err := p.expression(line, toks, 0)
	if err != nil {
		return nil, err
	}

	if pos != len(toks) {
		return nil, p.errorf(line, "unexpected %q", toks[pos].Value)
	}

	return expr, nil
}

// expression parses a primary optionally followed by one binary operator and
// a second primary. Operators never chain.
func (p *Parser) expression(line Line, toks []Token, pos int) (Node, int, error) {
	lhs, pos, err := p.primary(line, toks, pos)
	if err != nil {
		return nil, pos, err
	}

	if pos >= len(toks) {
		return lhs, pos, nil
	}

	op, ok := binaryOps[toks[pos].Typ]
	if !ok {
		return lhs, pos, nil
	}

	if pos+1 >= len(toks) {
		return nil, pos, p.errorf(line, "expected second operand")
	}

	rhs, pos, err := p.primary(line, toks, pos+1)
	if err != nil {
		return nil, pos, err
	}

	return &BinaryExpr{Operation: op, Op1: lhs, Op2: rhs}, pos, nil
}

func (p *Parser) primary(line Line, toks []Token, pos int) (Node, int, error) {
	if pos >= len(toks) {
		return nil, pos, p.errorf(line, "expected an expression")
	}

	switch tok := toks[pos]; tok.Typ {
	case TokenNumber:
		return &Number{Value: tok.Value, Line: tok.Line}, pos + 1, nil
	case TokenIdentifier:
		if pos+1 < len(toks) && toks[pos+1].Typ == TokenOpenParentheses {
			return p.funcCall(line, toks, pos)
		}

		return &Identifier{Name: tok.Value, Line: tok.Line}, pos + 1, nil
	default:
		return nil, pos, p.errorf(line, "unexpected %q", tok.Value)
	}
}

// funcCall parses `name ( [expr {, expr}] )` starting at the name.
func (p *Parser) funcCall(line Line, toks []Token, pos int) (Node, int, error) {
	call := &FuncCall{Name: toks[pos].Value, Args: []Node{}, Line: toks[pos].Line}
	pos += 2

	for pos < len(toks) && toks[pos].Typ != TokenCloseParentheses {
		arg, next, err := p.expression(line, toks, pos)
		if err != nil {
			return nil, next, err
		}

		call.Args = append(call.Args, arg)
		pos = next

		if pos < len(toks) && toks[pos].Typ == TokenComma {
			pos++

			if pos < len(toks) && toks[pos].Typ == TokenCloseParentheses {
				return nil, pos, p.errorf(line, "expected parameter")
			}
		} else if pos < len(toks) && toks[pos].Typ != TokenCloseParentheses {
			return nil, pos, p.errorf(line, `expected "," or ")"`)
		}
	}

	if pos >= len(toks) {
		return nil, pos, p.errorf(line, `expected ")"`)
	}

	return call, pos + 1, nil
}
