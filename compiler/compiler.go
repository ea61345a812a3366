package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler/asm"
	"github.com/slowlang/hackvm/compiler/back"
	"github.com/slowlang/hackvm/compiler/hack"
	"github.com/slowlang/hackvm/compiler/parse"
	"github.com/slowlang/hackvm/compiler/report"
	"github.com/slowlang/hackvm/compiler/vm"
)

type (
	Options struct {
		// Bootstrap prepends stack setup and a call to Sys.init.
		Bootstrap bool

		// Comments puts the source command before each fragment.
		Comments bool

		// Jobs is the number of units translated at once.
		// Zero means one per unit.
		Jobs int

		// Stats collects a per unit report.
		Stats *report.Report
	}

	unit struct {
		idx  int
		f    *vm.File
		code []byte
	}
)

var ErrDuplicateUnit = errors.New("duplicate unit")

// Ext is the VM source file extension.
const Ext = ".vm"

// Inputs expands directories to the .vm files they contain, sorted by name.
// Files are kept as is.
func Inputs(paths []string) (r []string, err error) {
	for _, p := range paths {
		inf, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(err, "stat")
		}

		if !inf.IsDir() {
			r = append(r, p)
			continue
		}

		ms, err := filepath.Glob(filepath.Join(p, "*"+Ext))
		if err != nil {
			return nil, errors.Wrap(err, "glob %v", p)
		}

		if len(ms) == 0 {
			return nil, errors.New("%v: no %v files", p, Ext)
		}

		sort.Strings(ms)

		r = append(r, ms...)
	}

	return r, nil
}

// ParseFiles reads and parses files in order, one unit per file.
func ParseFiles(ctx context.Context, names []string) (_ []*vm.File, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse files", "files", len(names))
	defer tr.Finish("err", &err)

	s := parse.New()

	for _, name := range names {
		text, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrap(err, "read file")
		}

		tr.Printw("read file", "size", len(text), "name", name)

		s.AddFile(parse.UnitName(name), text)
	}

	return s.Parse(ctx)
}

// TranslateFiles translates the named files and directories into a single program.
func TranslateFiles(ctx context.Context, paths []string, opts Options) (obj []byte, err error) {
	names, err := Inputs(paths)
	if err != nil {
		return nil, errors.Wrap(err, "inputs")
	}

	fs, err := ParseFiles(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return Translate(ctx, nil, fs, opts)
}

// Translate appends the program made of units fs in order.
// Units are translated concurrently, the result does not depend on Jobs.
func Translate(ctx context.Context, b []byte, fs []*vm.File, opts Options) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "translate", "units", len(fs), "jobs", opts.Jobs, "bootstrap", opts.Bootstrap)
	defer tr.Finish("err", &err)

	seen := map[string]struct{}{}

	for _, f := range fs {
		if _, ok := seen[f.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateUnit, "%v", f.Name)
		}

		seen[f.Name] = struct{}{}
	}

	c := &back.Compiler{Comments: opts.Comments}

	if opts.Bootstrap {
		b, err = c.AppendBootstrap(b)
		if err != nil {
			return nil, err
		}
	}

	res := make(chan unit, len(fs))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}

	go func() {
		defer close(res)

		for i, f := range fs {
			g.Go(func() error {
				code, err := translateUnit(gctx, c, f)
				if err != nil {
					return err
				}

				res <- unit{idx: i, f: f, code: code}

				return nil
			})
		}

		_ = g.Wait()
	}()

	b, err = collect(ctx, b, res, opts.Stats)

	if werr := g.Wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}

	return back.AppendEpilogue(b), nil
}

func translateUnit(ctx context.Context, c *back.Compiler, f *vm.File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := fmt.Appendf(nil, "// SOURCE: %s\n", f.Name)

	b, _, err := c.CompileFile(ctx, b, f)

	return b, err
}

// collect appends units in input order as soon as all previous ones are done.
// It drains res even after an error.
func collect(ctx context.Context, b []byte, res <-chan unit, stats *report.Report) (_ []byte, err error) {
	tr := tlog.SpanFromContext(ctx)

	pending := heap.Heap[unit]{Less: func(d []unit, i, j int) bool {
		return d[i].idx < d[j].idx
	}}

	next := 0

	for u := range res {
		pending.Push(u)

		for pending.Len() != 0 && pending.Data[0].idx == next {
			u := pending.Pop()
			next++

			tr.V("collect").Printw("unit done", "idx", u.idx, "unit", u.f.Name, "bytes", len(u.code), "pending", pending.Len())

			b = append(b, u.code...)

			if stats == nil || err != nil {
				continue
			}

			s, serr := report.Count(ctx, u.f, u.code)
			if serr != nil {
				err = errors.Wrap(serr, "stats %v", u.f.Name)
				continue
			}

			stats.Add(s)
		}
	}

	return b, err
}

// Run executes the program on the emulator for at most steps instructions.
// Without a bootstrap in the program the stack pointer is set up here.
func Run(ctx context.Context, code []asm.Word, steps int, bootstrap bool) (c *hack.CPU, err error) {
	c = hack.New(code)

	if !bootstrap {
		c.RAM[hack.SP] = hack.StackBase
	}

	err = c.Run(ctx, steps)
	if err != nil {
		return c, errors.Wrap(err, "run")
	}

	return c, nil
}
