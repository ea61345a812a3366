package report

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/asm"
	"github.com/slowlang/hackvm/compiler/vm"
)

type (
	// Stats counts what one unit translated to.
	Stats struct {
		Unit string

		Commands  int
		Functions int
		Calls     int
		Compares  int

		Instructions int
		Labels       int
	}

	Report struct {
		Units []Stats
	}
)

// Count collects stats of the unit and its translated assembly text.
func Count(ctx context.Context, f *vm.File, text []byte) (s Stats, err error) {
	s.Unit = f.Name
	s.Commands = len(f.Code)

	for _, l := range f.Code {
		switch x := l.Cmd.(type) {
		case vm.Function:
			s.Functions++
		case vm.Call:
			s.Calls++
		case vm.Op:
			if x.Compare() {
				s.Compares++
			}
		}
	}

	ls, err := asm.Parse(ctx, text)
	if err != nil {
		return s, errors.Wrap(err, "parse asm")
	}

	for _, l := range ls {
		if _, ok := l.Instr.(asm.Label); ok {
			s.Labels++
		} else {
			s.Instructions++
		}
	}

	return s, nil
}

func (r *Report) Add(s Stats) {
	r.Units = append(r.Units, s)
}

func (r *Report) Total() (t Stats) {
	t.Unit = "total"

	for _, s := range r.Units {
		t.Commands += s.Commands
		t.Functions += s.Functions
		t.Calls += s.Calls
		t.Compares += s.Compares
		t.Instructions += s.Instructions
		t.Labels += s.Labels
	}

	return t
}

func (r *Report) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Translation")
	tw.AppendHeader(table.Row{"Unit", "Commands", "Functions", "Calls", "Compares", "Instructions", "Labels"})

	for _, s := range r.Units {
		tw.AppendRow(row(s))
	}

	tw.AppendFooter(row(r.Total()))

	tw.Render()
}

func row(s Stats) table.Row {
	return table.Row{s.Unit, s.Commands, s.Functions, s.Calls, s.Compares, s.Instructions, s.Labels}
}
