// Package emu executes the 32-bit MASM subset produced by the compiler, so
// generated programs can be checked without an assembler or Windows.
package emu

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultMaxSteps = 10000000
	stackTop        = 0x00100000
	entryLabel      = "start"
)

// Result is what a program printed, in order, and the code it passed to
// ExitProcess.
type Result struct {
	Output   []int32
	ExitCode int32
	Steps    int
}

type Machine struct {
	// MaxSteps bounds the number of executed instructions; 0 means
	// DefaultMaxSteps.
	MaxSteps int

	prog  *Program
	regs  [8]int32
	mem   map[int32]int32
	pc    int
	zero  bool
	less  bool
	halt  bool
	out   []int32
	exit  int32
	steps int
}

func New(p *Program) *Machine {
	return &Machine{prog: p}
}

// Run assembles and executes src.
func Run(src string) (*Result, error) {
	p, err := Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	return New(p).Run()
}

func (m *Machine) reset() error {
	entry, ok := m.prog.labels[entryLabel]
	if !ok {
		return errors.Errorf("no %q label", entryLabel)
	}

	m.regs = [8]int32{}
	m.regs[registers["esp"]] = stackTop
	m.regs[registers["ebp"]] = stackTop
	m.mem = make(map[int32]int32)
	m.pc = entry
	m.zero, m.less, m.halt = false, false, false
	m.out = nil
	m.exit = 0
	m.steps = 0

	return nil
}

func (m *Machine) Run() (*Result, error) {
	if err := m.reset(); err != nil {
		return nil, err
	}

	limit := m.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	for !m.halt {
		if m.pc < 0 || m.pc >= len(m.prog.code) {
			return nil, errors.Errorf("pc %d outside program", m.pc)
		}

		if m.steps >= limit {
			return nil, errors.Errorf("step limit %d exceeded", limit)
		}
		m.steps++

		ins := m.prog.code[m.pc]
		if err := m.step(ins); err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", ins.line, ins.op)
		}
	}

	return &Result{Output: m.out, ExitCode: m.exit, Steps: m.steps}, nil
}

func (m *Machine) push(v int32) {
	m.regs[registers["esp"]] -= 4
	m.mem[m.regs[registers["esp"]]] = v
}

func (m *Machine) pop() int32 {
	esp := m.regs[registers["esp"]]
	m.regs[registers["esp"]] = esp + 4

	return m.mem[esp]
}

func (m *Machine) load(o operand) (int32, error) {
	switch o.kind {
	case operandImmediate:
		return o.imm, nil
	case operandRegister:
		if o.reg == "al" {
			return m.regs[registers["eax"]] & 0xff, nil
		}

		return m.regs[registers[o.reg]], nil
	case operandMemory:
		return m.mem[m.regs[registers[o.reg]]+o.imm], nil
	}

	return 0, errors.Errorf("cannot read operand %q", o.name)
}

func (m *Machine) store(o operand, v int32) error {
	switch o.kind {
	case operandRegister:
		if o.reg == "al" {
			eax := registers["eax"]
			m.regs[eax] = m.regs[eax]&^0xff | v&0xff
			return nil
		}

		m.regs[registers[o.reg]] = v
		return nil
	case operandMemory:
		m.mem[m.regs[registers[o.reg]]+o.imm] = v
		return nil
	}

	return errors.New("destination is not writable")
}

func (m *Machine) target(o operand) (int, error) {
	if o.kind != operandLabel {
		return 0, errors.New("expected a label")
	}

	pc, ok := m.prog.labels[o.name]
	if !ok {
		return 0, errors.Errorf("undefined label %q", o.name)
	}

	return pc, nil
}

func arity(ins instruction, n int) error {
	if len(ins.args) != n {
		return errors.Errorf("expected %d operands, got %d", n, len(ins.args))
	}

	return nil
}

func (m *Machine) step(ins instruction) error {
	m.pc++

	switch ins.op {
	case "push":
		if err := arity(ins, 1); err != nil {
			return err
		}

		v, err := m.load(ins.args[0])
		if err != nil {
			return err
		}
		m.push(v)
	case "pop":
		if err := arity(ins, 1); err != nil {
			return err
		}

		return m.store(ins.args[0], m.pop())
	case "mov", "add", "sub":
		return m.arithmetic(ins)
	case "mul":
		return m.mul(ins)
	case "cdq":
		m.regs[registers["edx"]] = m.regs[registers["eax"]] >> 31
	case "idiv":
		return m.idiv(ins)
	case "cmp":
		if err := arity(ins, 2); err != nil {
			return err
		}

		a, err := m.load(ins.args[0])
		if err != nil {
			return err
		}

		b, err := m.load(ins.args[1])
		if err != nil {
			return err
		}

		m.zero, m.less = a == b, a < b
	case "sete", "setl", "setg":
		if err := arity(ins, 1); err != nil {
			return err
		}

		var flag bool
		switch ins.op {
		case "sete":
			flag = m.zero
		case "setl":
			flag = m.less
		case "setg":
			flag = !m.less && !m.zero
		}

		var v int32
		if flag {
			v = 1
		}

		return m.store(ins.args[0], v)
	case "je", "jmp":
		if err := arity(ins, 1); err != nil {
			return err
		}

		pc, err := m.target(ins.args[0])
		if err != nil {
			return err
		}

		if ins.op == "jmp" || m.zero {
			m.pc = pc
		}
	case "call":
		if err := arity(ins, 1); err != nil {
			return err
		}

		return m.call(ins.args[0])
	case "ret":
		m.pc = int(m.pop())
	case "invoke":
		return m.invoke(ins)
	default:
		return errors.Errorf("unsupported instruction %q", ins.op)
	}

	return nil
}

func (m *Machine) arithmetic(ins instruction) error {
	if err := arity(ins, 2); err != nil {
		return err
	}

	src, err := m.load(ins.args[1])
	if err != nil {
		return err
	}

	if ins.op == "mov" {
		return m.store(ins.args[0], src)
	}

	dst, err := m.load(ins.args[0])
	if err != nil {
		return err
	}

	if ins.op == "add" {
		return m.store(ins.args[0], dst+src)
	}

	return m.store(ins.args[0], dst-src)
}

// mul is the unsigned edx:eax = eax * src.
func (m *Machine) mul(ins instruction) error {
	if err := arity(ins, 1); err != nil {
		return err
	}

	src, err := m.load(ins.args[0])
	if err != nil {
		return err
	}

	p := uint64(uint32(m.regs[registers["eax"]])) * uint64(uint32(src))
	m.regs[registers["eax"]] = int32(uint32(p))
	m.regs[registers["edx"]] = int32(uint32(p >> 32))

	return nil
}

// idiv is the signed division of edx:eax by src.
func (m *Machine) idiv(ins instruction) error {
	if err := arity(ins, 1); err != nil {
		return err
	}

	src, err := m.load(ins.args[0])
	if err != nil {
		return err
	}

	if src == 0 {
		return errors.New("division by zero")
	}

	dividend := int64(m.regs[registers["edx"]])<<32 | int64(uint32(m.regs[registers["eax"]]))
	q, r := dividend/int64(src), dividend%int64(src)
	if q < -1<<31 || q > 1<<31-1 {
		return errors.New("division overflow")
	}

	m.regs[registers["eax"]] = int32(q)
	m.regs[registers["edx"]] = int32(r)

	return nil
}

func (m *Machine) call(o operand) error {
	if o.kind == operandLabel && hostProcs[o.name] {
		m.out = append(m.out, m.mem[m.regs[registers["esp"]]])
		return nil
	}

	pc, err := m.target(o)
	if err != nil {
		return err
	}

	m.push(int32(m.pc))
	m.pc = pc

	return nil
}

// invoke supports the two forms of the entry sequence: calling a
// procedure without arguments and ExitProcess.
func (m *Machine) invoke(ins instruction) error {
	if len(ins.args) == 0 || ins.args[0].kind != operandLabel {
		return errors.New("invoke needs a procedure name")
	}

	if ins.args[0].name == "ExitProcess" {
		if err := arity(ins, 2); err != nil {
			return err
		}

		code, err := m.load(ins.args[1])
		if err != nil {
			return err
		}

		m.exit = code
		m.halt = true

		return nil
	}

	if err := arity(ins, 1); err != nil {
		return err
	}

	return m.call(ins.args[0])
}
