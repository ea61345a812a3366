package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/vm"
)

// Format appends canonical VM text of x.
// Function bodies are indented, labels are indented one level less.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *vm.File:
		return formatFile(ctx, b, x, d)
	case []*vm.File:
		for i, f := range x {
			if i != 0 {
				b = append(b, '\n')
			}

			var err error

			b, err = formatFile(ctx, b, f, d)
			if err != nil {
				return nil, errors.Wrap(err, "unit %v", f.Name)
			}
		}

		return b, nil
	case vm.Command:
		return formatCommand(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatFile(ctx context.Context, b []byte, x *vm.File, d int) (_ []byte, err error) {
	b = app(b, d, "// %s\n", x.Name)

	inFunc := false

	for _, l := range x.Code {
		switch l.Cmd.(type) {
		case vm.Function:
			if inFunc {
				b = append(b, '\n')
			}

			inFunc = true

			b, err = formatCommand(ctx, b, l.Cmd, d)
		case vm.Label:
			b, err = formatCommand(ctx, b, l.Cmd, d)
		default:
			b, err = formatCommand(ctx, b, l.Cmd, d+1)
		}

		if err != nil {
			return nil, errors.Wrap(err, "line %d", l.Num)
		}
	}

	return b, nil
}

func formatCommand(ctx context.Context, b []byte, x vm.Command, d int) ([]byte, error) {
	if x == nil {
		return nil, errors.New("nil command")
	}

	return app(b, d, "%v\n", x), nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
