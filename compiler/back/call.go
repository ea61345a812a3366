package back

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/vm"
)

// FrameSize is the number of cells a call saves below the callee locals:
// return address, LCL, ARG, THIS and THAT.
const FrameSize = 5

var savedPointers = [...]string{"LCL", "ARG", "THIS", "THAT"}

// ScopedLabel qualifies a label with the function it's defined in.
// Labels outside of any function are scoped by unit.
func ScopedLabel(unit string, fn vm.Symbol, l vm.Symbol) string {
	return scope(unit, fn) + "$" + string(l)
}

// ReturnLabel is the return address label of the call site n.
func ReturnLabel(unit string, fn vm.Symbol, n int) string {
	return scope(unit, fn) + "$ret." + strconv.Itoa(n)
}

func scope(unit string, fn vm.Symbol) string {
	if fn != "" {
		return string(fn)
	}

	if unit == "" {
		return "_vm"
	}

	return "_vm." + unit
}

// ReservedPrefix starts every label generated outside of a function.
// Units and functions can't use it.
const ReservedPrefix = "_vm"

// CheckUnit validates a unit name. Empty name is allowed.
func CheckUnit(unit string) error {
	if unit == "" {
		return nil
	}

	if err := vm.Symbol(unit).Validate(); err != nil {
		return errors.Wrap(err, "unit")
	}

	if strings.HasPrefix(unit, ReservedPrefix) {
		return errors.Wrap(vm.ErrBadSymbol, "unit %q: %v prefix is reserved", unit, ReservedPrefix)
	}

	if strings.IndexByte(unit, '$') >= 0 {
		return errors.Wrap(vm.ErrBadSymbol, "unit %q: $ separates label scopes", unit)
	}

	return nil
}

// checkLabel rejects labels which scope to the same name as a return label.
func checkLabel(l vm.Symbol) error {
	if err := l.Validate(); err != nil {
		return err
	}

	if n, ok := strings.CutPrefix(string(l), "ret."); ok && digits(n) {
		return errors.Wrap(vm.ErrBadSymbol, "label %q is reserved for return addresses", string(l))
	}

	return nil
}

// checkFunc rejects function names which collide with static cells or generated labels.
func checkFunc(fn vm.Symbol) error {
	if err := fn.Validate(); err != nil {
		return err
	}

	if strings.HasPrefix(string(fn), ReservedPrefix) {
		return errors.Wrap(vm.ErrBadSymbol, "function %q: %v prefix is reserved", string(fn), ReservedPrefix)
	}

	if i := strings.LastIndexByte(string(fn), '.'); i >= 0 && digits(string(fn[i+1:])) {
		return errors.Wrap(vm.ErrBadSymbol, "function %q looks like a static cell", string(fn))
	}

	return nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func appendLabel(b []byte, unit string, st State, l vm.Symbol) ([]byte, error) {
	if err := checkLabel(l); err != nil {
		return nil, err
	}

	return fmt.Appendf(b, "(%s)\n", ScopedLabel(unit, st.Func, l)), nil
}

func appendGoto(b []byte, unit string, st State, l vm.Symbol) ([]byte, error) {
	if err := checkLabel(l); err != nil {
		return nil, err
	}

	return appendLines(b, "@"+ScopedLabel(unit, st.Func, l), "0;JMP"), nil
}

// appendIfGoto pops the top and jumps if it's not zero.
func appendIfGoto(b []byte, unit string, st State, l vm.Symbol) ([]byte, error) {
	if err := checkLabel(l); err != nil {
		return nil, err
	}

	b = appendPopD(b)

	return appendLines(b, "@"+ScopedLabel(unit, st.Func, l), "D;JNE"), nil
}

// appendFunction defines the function entry and zeroes NVars locals.
func appendFunction(b []byte, st State, x vm.Function) ([]byte, State, error) {
	if err := checkFunc(x.Name); err != nil {
		return nil, st, err
	}

	st.Func = x.Name

	b = fmt.Appendf(b, "(%s)\n", x.Name)

	for i := 0; i < int(x.NVars); i++ {
		b = appendLines(b, "@SP", "AM=M+1", "A=A-1", "M=0")
	}

	return b, st, nil
}

// appendCall saves the caller frame, repositions ARG and LCL and jumps to the callee.
// Control comes back to the return label emitted right after the jump.
func appendCall(b []byte, unit string, st State, x vm.Call) ([]byte, State, error) {
	if err := checkFunc(x.Name); err != nil {
		return nil, st, err
	}

	nargs := int(x.NArgs) + FrameSize
	if nargs > maxWord {
		return nil, st, errors.Wrap(ErrUnsupported, "%d args don't fit the frame", x.NArgs)
	}

	ret := ReturnLabel(unit, st.Func, st.Label)
	st.Label++

	b = appendLines(b, "@"+ret, "D=A")
	b = appendPushD(b)

	for _, p := range savedPointers {
		b = appendLines(b, "@"+p, "D=M")
		b = appendPushD(b)
	}

	// ARG = SP - 5 - nargs
	b = appendConstD(b, uint16(nargs))
	b = appendLines(b, "@SP", "D=M-D", "@ARG", "M=D")

	// LCL = SP
	b = appendLines(b, "@SP", "D=M", "@LCL", "M=D")

	b = appendLines(b, "@"+string(x.Name), "0;JMP")
	b = fmt.Appendf(b, "(%s)\n", ret)

	return b, st, nil
}

// appendReturn moves the return value to ARG[0], drops the callee frame,
// restores the caller pointers and jumps back.
// R13 holds the frame and R14 the return address,
// both are needed after LCL and ARG are overwritten.
func appendReturn(b []byte) []byte {
	b = appendLines(b, "@LCL", "D=M", "@R13", "M=D")
	b = fmt.Appendf(b, "@%d\nA=D-A\nD=M\n@R14\nM=D\n", FrameSize)

	b = appendPopD(b)
	b = appendLines(b, "@ARG", "A=M", "M=D")
	b = appendLines(b, "@ARG", "D=M+1", "@SP", "M=D")

	for i := len(savedPointers) - 1; i >= 0; i-- {
		b = appendLines(b, "@R13", "AM=M-1", "D=M", "@"+savedPointers[i], "M=D")
	}

	return appendLines(b, "@R14", "A=M", "0;JMP")
}

// AppendBootstrap sets up the stack and calls Sys.init.
// If Sys.init returns the program goes to the end loop.
// It's lowered with a state of its own, so it doesn't affect unit label numbering.
func (c *Compiler) AppendBootstrap(b []byte) (_ []byte, err error) {
	if c.Comments {
		b = append(b, "// bootstrap\n"...)
	}

	b = appendLines(b, "@256", "D=A", "@SP", "M=D")

	b, _, err = c.Lower(b, "", State{}, vm.Call{Name: "Sys.init"})
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap")
	}

	return appendLines(b, "@"+EndLabel, "0;JMP"), nil
}

// EndLabel marks the final self jump of a program.
const EndLabel = "_vm_END"

// AppendEpilogue parks execution in an infinite loop.
func AppendEpilogue(b []byte) []byte {
	return appendLines(b, "("+EndLabel+")", "@"+EndLabel, "0;JMP")
}
