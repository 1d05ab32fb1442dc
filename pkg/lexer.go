package pyasm

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type TokenType uint64

// Declaration order is matching priority.
const (
	TokenPlus TokenType = iota
	TokenMinus
	TokenMul
	TokenPercent
	TokenEquals
	TokenLess
	TokenGreater
	TokenAssign
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenDef
	TokenPrint
	TokenOpenParentheses
	TokenCloseParentheses
	TokenColon
	TokenComma
	TokenNumber
	TokenIndent
	TokenWhitespace
	TokenIdentifier
)

var tokenTable = []struct {
	name    string
	pattern string
}{
	TokenPlus:             {"PLUS", `\+`},
	TokenMinus:            {"MINUS", `-`},
	TokenMul:              {"MUL", `\*`},
	TokenPercent:          {"PERCENT", `%`},
	TokenEquals:           {"EQUALS", `==`},
	TokenLess:             {"LESS", `<`},
	TokenGreater:          {"GREATER", `>`},
	TokenAssign:           {"ASSIGN", `=`},
	TokenReturn:           {"RET", `return\b`},
	TokenIf:               {"IF", `if\b`},
	TokenElse:             {"ELSE", `else\b`},
	TokenWhile:            {"WHILE", `while\b`},
	TokenDef:              {"DEF", `def\b`},
	TokenPrint:            {"PRINT", `print\b`},
	TokenOpenParentheses:  {"LPAR", `\(`},
	TokenCloseParentheses: {"RPAR", `\)`},
	TokenColon:            {"COLON", `:`},
	TokenComma:            {"COMMA", `,`},
	TokenNumber:           {"NUMBER", `[0-9]+`},
	TokenIndent:           {"INDENT", ` {4}`},
	TokenWhitespace:       {"WHITESPACE", `\s`},
	TokenIdentifier:       {"ID", `[a-zA-Z][a-zA-Z0-9_]*`},
}

// tokenRegexp is one alternation with a capture group per token type, so the
// index of the first non-empty group is the matched TokenType.
var tokenRegexp = compileTokenTable()

func compileTokenTable() *regexp.Regexp {
	alts := make([]string, len(tokenTable))
	for i, t := range tokenTable {
		alts[i] = "(" + t.pattern + ")"
	}

	return regexp.MustCompile(`^(?:` + strings.Join(alts, "|") + `)`)
}

func (t TokenType) String() string {
	if int(t) < len(tokenTable) {
		return tokenTable[t].name
	}

	return fmt.Sprintf("TokenType(%d)", uint64(t))
}

type Token struct {
	Typ   TokenType
	Value string
	Line  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Typ, t.Value, t.Line)
}

type Lexer struct {
	reader io.Reader
}

func NewLexer(reader io.Reader) *Lexer {
	return &Lexer{reader: reader}
}

// Tokenize splits src into one token list per physical line.
func Tokenize(src string) ([][]Token, error) {
	return NewLexer(strings.NewReader(src)).Run()
}

// Run scans the whole input. The first unmatched character aborts the scan
// with a *LexicalError.
func (l *Lexer) Run() ([][]Token, error) {
	scanner := bufio.NewScanner(l.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines [][]Token
	for num := 1; scanner.Scan(); num++ {
		toks, err := tokenizeLine(scanner.Text(), num)
		if err != nil {
			return nil, err
		}

		lines = append(lines, toks)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read source")
	}

	return lines, nil
}

func tokenizeLine(line string, num int) ([]Token, error) {
	toks := []Token{}

	for pos := 0; pos < len(line); {
		loc := tokenRegexp.FindStringSubmatchIndex(line[pos:])
		if loc == nil {
			r, _ := utf8.DecodeRuneInString(line[pos:])
			return nil, &LexicalError{Char: r, Line: num}
		}

		typ := matchedType(loc)
		value := line[pos : pos+loc[1]]
		pos += loc[1]

		if typ == TokenWhitespace {
			continue
		}

		toks = append(toks, Token{Typ: typ, Value: value, Line: num})
	}

	return toks, nil
}

func matchedType(loc []int) TokenType {
	for i := range tokenTable {
		if loc[2*(i+1)] >= 0 {
			return TokenType(i)
		}
	}

	// Unreachable: the outer group only matches through one alternative
	return TokenWhitespace
}
