package test

import (
	"fmt"
	"math/rand"
	"strings"
)

const validTokens = "def;return;if;else;while;print;(;);:;,;+;-;*;%;==;<;>;=;    ;0;7;42;123456;x;y1;div_sum;True;False;find_sum_of_all_whole_divisors"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}

var operators = []string{"+", "-", "*", "%", "<", ">", "=="}

// GetRandomProgram returns a program of roughly size top level statements
// that compiles and terminates: every variable is assigned before use, the
// modulo divisor is never zero and loops count down to zero.
func GetRandomProgram(r *rand.Rand, size int) string {
	var b strings.Builder
	vars := []string{"v0"}
	fmt.Fprintf(&b, "v0 = %d\n", r.Intn(100))

	operand := func() string {
		if r.Intn(2) == 0 {
			return vars[r.Intn(len(vars))]
		}

		return fmt.Sprint(r.Intn(100))
	}

	for i := 0; i < size; i++ {
		switch r.Intn(5) {
		case 0:
			name := fmt.Sprintf("v%d", len(vars))
			fmt.Fprintf(&b, "%s = %s\n", name, operand())
			vars = append(vars, name)
		case 1:
			op := operators[r.Intn(len(operators))]
			rhs := operand()
			if op == "%" {
				rhs = fmt.Sprint(r.Intn(50) + 1)
			}

			fmt.Fprintf(&b, "%s = %s %s %s\n", vars[r.Intn(len(vars))], operand(), op, rhs)
		case 2:
			fmt.Fprintf(&b, "print(%s)\n", operand())
		case 3:
			fmt.Fprintf(&b, "if %s < %s:\n", operand(), operand())
			fmt.Fprintf(&b, "    %s = %s\n", vars[r.Intn(len(vars))], operand())
			fmt.Fprintf(&b, "    print(%s)\n", operand())
		case 4:
			counter := fmt.Sprintf("i%d", i)
			fmt.Fprintf(&b, "%s = %d\n", counter, r.Intn(5))
			fmt.Fprintf(&b, "while %s > 0:\n", counter)
			fmt.Fprintf(&b, "    print(%s)\n", counter)
			fmt.Fprintf(&b, "    %s = %s - 1\n", counter, counter)
		}
	}

	return b.String()
}
