package asm

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	// Object is an assembled program.
	Object struct {
		Code []Word

		// Symbols holds labels (ROM addresses), variables (RAM addresses)
		// and the predefined symbols.
		Symbols map[string]Word

		// Lines maps a ROM address back to the assembly source line.
		Lines []int
	}
)

const (
	VarBase = 16
	VarEnd  = 16384
)

var (
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrNoSpace        = errors.New("out of variable space")
	ErrTooLong        = errors.New("program too long")
)

// Assemble parses and assembles text.
func Assemble(ctx context.Context, text []byte) (*Object, error) {
	ls, err := Parse(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return AssembleLines(ctx, ls)
}

// AssembleLines resolves symbols in two passes.
// The first one binds labels to ROM addresses,
// the second allocates variables from VarBase in order of first use and encodes instructions.
func AssembleLines(ctx context.Context, ls []Line) (_ *Object, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "asm: assemble", "lines", len(ls))
	defer tr.Finish("err", &err)

	obj := &Object{
		Symbols: make(map[string]Word, len(Predefined)),
	}

	for k, v := range Predefined {
		obj.Symbols[k] = v
	}

	labels := map[string]struct{}{}
	pc := 0

	for _, l := range ls {
		lab, ok := l.Instr.(Label)
		if !ok {
			pc++
			continue
		}

		if _, ok := labels[lab.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateLabel, "line %d: %v", l.Num, lab.Name)
		}

		if _, ok := Predefined[lab.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateLabel, "line %d: %v is predefined", l.Num, lab.Name)
		}

		labels[lab.Name] = struct{}{}
		obj.Symbols[lab.Name] = Word(pc)
	}

	if pc > MaxValue+1 {
		return nil, errors.Wrap(ErrTooLong, "%d instructions", pc)
	}

	obj.Code = make([]Word, 0, pc)
	obj.Lines = make([]int, 0, pc)
	next := Word(VarBase)

	for _, l := range ls {
		var w Word

		switch x := l.Instr.(type) {
		case Label:
			continue
		case A:
			if x.Symbol == "" {
				w = x.Value
				break
			}

			v, ok := obj.Symbols[x.Symbol]
			if !ok {
				if next >= VarEnd {
					return nil, errors.Wrap(ErrNoSpace, "line %d: %v", l.Num, x.Symbol)
				}

				v = next
				next++

				obj.Symbols[x.Symbol] = v

				tr.V("vars").Printw("variable", "name", x.Symbol, "addr", v)
			}

			w = v
		case C:
			var ok bool

			w, ok = x.Encode()
			if !ok {
				return nil, errors.Wrap(ErrSyntax, "line %d: bad computation %q", l.Num, x.Comp)
			}
		default:
			return nil, errors.New("line %d: unsupported instruction: %T", l.Num, x)
		}

		obj.Code = append(obj.Code, w)
		obj.Lines = append(obj.Lines, l.Num)
	}

	tr.Printw("assembled", "words", len(obj.Code), "labels", len(labels), "vars", int(next-VarBase))

	return obj, nil
}

// Format appends the program as text, one 16 digit binary word per line.
func Format(b []byte, code []Word) []byte {
	for _, w := range code {
		b = hfmt.Appendf(b, "%016b\n", uint16(w))
	}

	return b
}
