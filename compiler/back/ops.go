package back

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/vm"
)

// appendOp lowers arithmetic and logical operators.
// Binary operators compute (next to top) op (top) into the new top.
// Booleans are -1 for true and 0 for false.
func appendOp(b []byte, unit string, st State, x vm.Op) ([]byte, State, error) {
	switch x {
	case vm.Neg:
		return appendLines(b, "@SP", "A=M-1", "M=-M"), st, nil
	case vm.Not:
		return appendLines(b, "@SP", "A=M-1", "M=!M"), st, nil
	case vm.Eq, vm.Gt, vm.Lt:
		return appendCompare(b, unit, st, x)
	}

	comp := binaryComp(x)
	if comp == "" {
		return nil, st, errors.Wrap(ErrUnsupported, "operator %v", x)
	}

	b = appendPopD(b)

	return appendLines(b, "A=A-1", "M="+comp), st, nil
}

func binaryComp(x vm.Op) string {
	switch x {
	case vm.Add:
		return "D+M"
	case vm.Sub:
		return "M-D"
	case vm.And:
		return "D&M"
	case vm.Or:
		return "D|M"
	default:
		return ""
	}
}

func jumpOf(x vm.Op) string {
	switch x {
	case vm.Eq:
		return "JEQ"
	case vm.Gt:
		return "JGT"
	case vm.Lt:
		return "JLT"
	default:
		panic(x)
	}
}

// CompareLabels returns success, fail and end labels of the comparison site n.
func CompareLabels(unit string, x vm.Op, n int) (t, f, e string) {
	p := "_vm."
	if unit != "" {
		p += unit + "."
	}

	p += jumpOf(x)[1:] + "_"
	s := "." + strconv.Itoa(n)

	return p + "TRUE" + s, p + "FALSE" + s, p + "END" + s
}

// appendCompare computes left - right, branches on the sign
// and writes all ones or all zeros into the new top of stack.
func appendCompare(b []byte, unit string, st State, x vm.Op) ([]byte, State, error) {
	t, f, e := CompareLabels(unit, x, st.Label)
	st.Label++

	b = appendPopD(b)

	b = fmt.Appendf(b, `A=A-1
D=M-D
@%[1]s
D;%[4]s
(%[2]s)
@SP
A=M-1
M=0
@%[3]s
0;JMP
(%[1]s)
@SP
A=M-1
M=-1
(%[3]s)
`, t, f, e, jumpOf(x))

	return b, st, nil
}
