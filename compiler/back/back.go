package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler/vm"
)

type (
	Compiler struct {
		// Comments prefixes each command fragment with a comment line.
		Comments bool
	}

	// State is carried from one command to the next within a translation unit.
	// The zero value is the state at the start of a unit.
	State struct {
		// Func is the function being defined. It scopes label names.
		Func vm.Symbol

		// Label is the next free suffix for generated labels.
		// It's shared by comparison sites and call sites.
		Label int
	}
)

var ErrUnsupported = errors.New("unsupported command")

func New() *Compiler {
	return &Compiler{Comments: true}
}

// Translate lowers the unit and appends the end of program loop.
func (c *Compiler) Translate(ctx context.Context, b []byte, f *vm.File) (_ []byte, err error) {
	b, _, err = c.CompileFile(ctx, b, f)
	if err != nil {
		return nil, err
	}

	return AppendEpilogue(b), nil
}

// CompileFile lowers all the unit commands in order.
// Nothing is returned on error, translation is all or nothing.
func (c *Compiler) CompileFile(ctx context.Context, b []byte, f *vm.File) (_ []byte, st State, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile file", "unit", f.Name, "cmds", len(f.Code))
	defer tr.Finish("err", &err, "labels", &st.Label)

	if tr.If("dump_cmds") {
		for _, l := range f.Code {
			tr.Printw("command", "line", l)
		}
	}

	if err = CheckUnit(f.Name); err != nil {
		return nil, st, err
	}

	st0 := len(b)

	for _, l := range f.Code {
		b, st, err = c.Lower(b, f.Name, st, l.Cmd)
		if err != nil {
			return nil, st, errors.Wrap(err, "%v:%d", f.Name, l.Num)
		}
	}

	tr.V("size").Printw("unit compiled", "bytes", len(b)-st0, "func", st.Func)

	return b, st, nil
}

// Lower appends the fragment for a single command and returns the state for the next one.
// unit names the translation unit, it qualifies static cells and generated labels.
func (c *Compiler) Lower(b []byte, unit string, st State, x vm.Command) (_ []byte, _ State, err error) {
	tlog.V("lower").Printw("lower", "unit", unit, "cmd", x.String(), "func", st.Func, "label", st.Label, "from", loc.Caller(1))

	if c.Comments {
		b = fmt.Appendf(b, "// %v\n", x)
	}

	switch x := x.(type) {
	case vm.Push:
		b, err = appendPush(b, unit, x.Segment, x.Index)
	case vm.Pop:
		b, err = appendPop(b, unit, x.Segment, x.Index)
	case vm.Op:
		b, st, err = appendOp(b, unit, st, x)
	case vm.Label:
		b, err = appendLabel(b, unit, st, x.Name)
	case vm.Goto:
		b, err = appendGoto(b, unit, st, x.Label)
	case vm.IfGoto:
		b, err = appendIfGoto(b, unit, st, x.Label)
	case vm.Function:
		b, st, err = appendFunction(b, st, x)
	case vm.Call:
		b, st, err = appendCall(b, unit, st, x)
	case vm.Return:
		b = appendReturn(b)
	default:
		err = errors.Wrap(ErrUnsupported, "%v (%T)", x, x)
	}

	if err != nil {
		return nil, st, errors.Wrap(err, "%v", x)
	}

	return b, st, nil
}

func appendLines(b []byte, lines ...string) []byte {
	for _, l := range lines {
		b = append(b, l...)
		b = append(b, '\n')
	}

	return b
}
