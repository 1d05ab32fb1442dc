package emu

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type operandKind int

const (
	operandRegister operandKind = iota
	operandImmediate
	operandMemory
	operandLabel
)

type operand struct {
	kind operandKind
	reg  string
	imm  int32
	name string
}

type instruction struct {
	op   string
	args []operand
	line int
}

// Program is assembled MASM text: a flat instruction list plus the index of
// every label and procedure.
type Program struct {
	code   []instruction
	labels map[string]int
}

// Procedures implemented by the machine itself. Their bodies are skipped.
var hostProcs = map[string]bool{
	"__print": true,
}

var registers = map[string]int{
	"eax": 0,
	"ecx": 1,
	"edx": 2,
	"ebx": 3,
	"esp": 4,
	"ebp": 5,
	"esi": 6,
	"edi": 7,
}

var memoryOperand = regexp.MustCompile(`^\[([a-z]+)\s*([+-]\s*[0-9]+)?\]$`)

// Parse reads the subset of MASM the compiler emits. Directives, includes
// and prototypes are ignored.
func Parse(r io.Reader) (*Program, error) {
	p := &Program{labels: make(map[string]int)}
	host := ""

	scanner := bufio.NewScanner(r)
	for num := 1; scanner.Scan(); num++ {
		text := scanner.Text()
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)

		fields := strings.Fields(text)
		switch {
		case len(fields) == 0:
			continue
		case len(fields) == 2 && fields[1] == "endp":
			host = ""
			continue
		case host != "":
			continue
		case strings.HasPrefix(text, "."), fields[0] == "include", fields[0] == "end":
			continue
		case len(fields) == 2 && fields[1] == "proto":
			continue
		case len(fields) == 2 && fields[1] == "proc":
			if hostProcs[fields[0]] {
				host = fields[0]
				continue
			}

			if err := p.addLabel(fields[0], num); err != nil {
				return nil, err
			}
			continue
		case len(fields) == 1 && strings.HasSuffix(text, ":"):
			if err := p.addLabel(strings.TrimSuffix(text, ":"), num); err != nil {
				return nil, err
			}
			continue
		}

		ins, err := parseInstruction(text, num)
		if err != nil {
			return nil, err
		}

		p.code = append(p.code, ins)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read program")
	}

	return p, nil
}

func (p *Program) addLabel(name string, line int) error {
	if _, ok := p.labels[name]; ok {
		return errors.Errorf("line %d: label %q redefined", line, name)
	}

	p.labels[name] = len(p.code)
	return nil
}

func parseInstruction(text string, line int) (instruction, error) {
	ins := instruction{line: line}

	mnemonic, rest := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		mnemonic, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	ins.op = strings.ToLower(mnemonic)

	if rest == "" {
		return ins, nil
	}

	for _, field := range strings.Split(rest, ",") {
		arg, err := parseOperand(strings.TrimSpace(field))
		if err != nil {
			return ins, errors.Wrapf(err, "line %d", line)
		}

		ins.args = append(ins.args, arg)
	}

	return ins, nil
}

func parseOperand(s string) (operand, error) {
	if s == "" {
		return operand{}, errors.New("empty operand")
	}

	if _, ok := registers[s]; ok || s == "al" {
		return operand{kind: operandRegister, reg: s}, nil
	}

	if m := memoryOperand.FindStringSubmatch(s); m != nil {
		if _, ok := registers[m[1]]; !ok {
			return operand{}, errors.Errorf("bad base register %q", m[1])
		}

		var disp int64
		if m[2] != "" {
			var err error
			disp, err = strconv.ParseInt(strings.ReplaceAll(m[2], " ", ""), 10, 32)
			if err != nil {
				return operand{}, errors.Wrapf(err, "bad displacement %q", m[2])
			}
		}

		return operand{kind: operandMemory, reg: m[1], imm: int32(disp)}, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < -1<<31 || n > 1<<32-1 {
			return operand{}, errors.Errorf("immediate %s out of range", s)
		}

		return operand{kind: operandImmediate, imm: int32(n)}, nil
	}

	return operand{kind: operandLabel, name: s}, nil
}
