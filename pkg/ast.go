package pyasm

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Node is implemented by every syntax tree variant. Kind is the tag used in
// the tree dump.
type Node interface {
	Kind() string
}

type Number struct {
	Value string
	Line  int
}

type Identifier struct {
	Name string
	Line int
}

type FuncCall struct {
	Name string
	Args []Node
	Line int
}

type BinaryOp string

const (
	BinaryAddition       BinaryOp = "add"
	BinarySubtraction    BinaryOp = "sub"
	BinaryMultiplication BinaryOp = "mul"
	BinaryModulo         BinaryOp = "mod"
	BinaryLess           BinaryOp = "lt"
	BinaryGreater        BinaryOp = "gt"
	BinaryEqual          BinaryOp = "eq"
)

var binaryOps = map[TokenType]BinaryOp{
	TokenPlus:    BinaryAddition,
	TokenMinus:   BinarySubtraction,
	TokenMul:     BinaryMultiplication,
	TokenPercent: BinaryModulo,
	TokenLess:    BinaryLess,
	TokenGreater: BinaryGreater,
	TokenEquals:  BinaryEqual,
}

type BinaryExpr struct {
	Operation BinaryOp
	Op1       Node
	Op2       Node
}

// Assignment stores Value unconditionally. A non-nil Ternary is the
// desugared else branch, run right after the store.
type Assignment struct {
	Name    string
	Value   Node
	Ternary *IfStmt
	Line    int
}

type IfStmt struct {
	Condition Node
	Body      []Node
}

type WhileStmt struct {
	Condition Node
	Body      []Node
}

type PrintStmt struct {
	Expr Node
}

type ReturnStmt struct {
	Expr Node
}

type FuncDecl struct {
	Name   string
	Params []string
	Body   []Node
	Line   int
}

func (*Number) Kind() string       { return "number" }
func (*Identifier) Kind() string   { return "id" }
func (*FuncCall) Kind() string     { return "function_call" }
func (e *BinaryExpr) Kind() string { return string(e.Operation) }
func (*Assignment) Kind() string   { return "assignment" }
func (*IfStmt) Kind() string       { return "if" }
func (*WhileStmt) Kind() string    { return "while" }
func (*PrintStmt) Kind() string    { return "print" }
func (*ReturnStmt) Kind() string   { return "return" }
func (*FuncDecl) Kind() string     { return "function" }

// isExpression reports whether n pushes exactly one value when generated.
func isExpression(n Node) bool {
	switch n.(type) {
	case *Number, *Identifier, *FuncCall, *BinaryExpr:
		return true
	}

	return false
}

// DumpAST writes the tree as YAML, one mapping per node with its tag under
// "type".
func DumpAST(w io.Writer, nodes []Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(nodes); err != nil {
		return err
	}

	return enc.Close()
}

func (n *Number) MarshalYAML() (interface{}, error) {
	return struct {
		Type  string `yaml:"type"`
		Value string `yaml:"value"`
	}{n.Kind(), n.Value}, nil
}

func (n *Identifier) MarshalYAML() (interface{}, error) {
	return struct {
		Type string `yaml:"type"`
		Name string `yaml:"name"`
	}{n.Kind(), n.Name}, nil
}

func (n *FuncCall) MarshalYAML() (interface{}, error) {
	return struct {
		Type       string `yaml:"type"`
		Name       string `yaml:"name"`
		Parameters []Node `yaml:"parameters"`
	}{n.Kind(), n.Name, n.Args}, nil
}

func (n *BinaryExpr) MarshalYAML() (interface{}, error) {
	return struct {
		Type string `yaml:"type"`
		Op1  Node   `yaml:"op1"`
		Op2  Node   `yaml:"op2"`
	}{n.Kind(), n.Op1, n.Op2}, nil
}

func (n *Assignment) MarshalYAML() (interface{}, error) {
	return struct {
		Type    string  `yaml:"type"`
		Name    string  `yaml:"name"`
		Value   Node    `yaml:"value"`
		Ternary *IfStmt `yaml:"ternary,omitempty"`
	}{n.Kind(), n.Name, n.Value, n.Ternary}, nil
}

func (n *IfStmt) MarshalYAML() (interface{}, error) {
	return struct {
		Type      string `yaml:"type"`
		Condition Node   `yaml:"condition"`
		Body      []Node `yaml:"body"`
	}{n.Kind(), n.Condition, n.Body}, nil
}

func (n *WhileStmt) MarshalYAML() (interface{}, error) {
	return struct {
		Type      string `yaml:"type"`
		Condition Node   `yaml:"condition"`
		Body      []Node `yaml:"body"`
	}{n.Kind(), n.Condition, n.Body}, nil
}

func (n *PrintStmt) MarshalYAML() (interface{}, error) {
	return struct {
		Type       string `yaml:"type"`
		Expression Node   `yaml:"expression"`
	}{n.Kind(), n.Expr}, nil
}

func (n *ReturnStmt) MarshalYAML() (interface{}, error) {
	return struct {
		Type       string `yaml:"type"`
		Expression Node   `yaml:"expression"`
	}{n.Kind(), n.Expr}, nil
}

func (n *FuncDecl) MarshalYAML() (interface{}, error) {
	return struct {
		Type       string   `yaml:"type"`
		Name       string   `yaml:"name"`
		Parameters []string `yaml:"parameters,flow"`
		Body       []Node   `yaml:"body"`
	}{n.Kind(), n.Name, n.Params, n.Body}, nil
}
