package pyasm

// ternary desugars the tail of `name = value if a < b else other`, starting
// at the if keyword, into the conditional overwrite
//
//	if a > b:
//	    name = other
//
// which the generator runs right after the unconditional store of value.
// The inverted condition is a new node; no token is rewritten. Only < and >
// conditions are accepted, and both branches must be a number, a variable
// or a call.
func (p *Parser) ternary(line Line, target Token, toks []Token) (*IfStmt, error) {
	elseAt := -1
	for i, tok := range toks {
		if tok.Typ == TokenElse {
			elseAt = i
			break
		}
	}

	if elseAt < 0 {
		return nil, p.errorf(line, `expected "else" in conditional expression`)
	}

	cond, err := p.fullExpression(line, toks[1:elseAt], `"if"`)
	if err != nil {
		return nil, err
	}

	inverted, ok := invertComparison(cond)
	if !ok {
		return nil, p.errorf(line, `unsupported conditional expression condition: only "<" and ">" comparisons are allowed`)
	}

	other, err := p.fullExpression(line, toks[elseAt+1:], `"else"`)
	if err != nil {
		return nil, err
	}

	if _, ok := other.(*BinaryExpr); ok {
		return nil, p.errorf(line, "unsupported conditional expression: branches must be a single value")
	}

	return &IfStmt{
		Condition: inverted,
		Body: []Node{
			&Assignment{Name: target.Value, Value: other, Line: target.Line},
		},
	}, nil
}

// invertComparison swaps < and >. Operands equal under the original
// condition stay false after the swap.
func invertComparison(n Node) (Node, bool) {
	e, ok := n.(*BinaryExpr)
	if !ok {
		return nil, false
	}

	var swapped BinaryOp
	switch e.Operation {
	case BinaryLess:
		swapped = BinaryGreater
	case BinaryGreater:
		swapped = BinaryLess
	default:
		return nil, false
	}

	return &BinaryExpr{Operation: swapped, Op1: e.Op1, Op2: e.Op2}, true
}
