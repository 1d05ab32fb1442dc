package pyasm

import "fmt"

// LexicalError reports the first character no token pattern accepts.
type LexicalError struct {
	Char rune
	Line int
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("lexical error: unexpected character %q at line %d", e.Char, e.Line)
}

type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s at line %d", e.Msg, e.Line)
}

// SemanticError is raised during generation. Line is 0 when the offending
// node carries no position.
type SemanticError struct {
	Msg  string
	Line int
}

func (e *SemanticError) Error() string {
	if e.Line == 0 {
		return "semantic error: " + e.Msg
	}

	return fmt.Sprintf("semantic error: %s at line %d", e.Msg, e.Line)
}

func semanticErrorf(line int, format string, args ...interface{}) error {
	return &SemanticError{Msg: fmt.Sprintf(format, args...), Line: line}
}
