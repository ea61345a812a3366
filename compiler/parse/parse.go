package parse

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler/vm"
)

type (
	// State holds the text of all added files concatenated.
	State struct {
		b []byte

		files []file
	}

	file struct {
		base int
		size int
		name string
	}
)

var ErrSyntax = errors.New("syntax error")

// ParseFile reads a .vm file. The unit is named after the file stem.
func ParseFile(ctx context.Context, name string) (*vm.File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, UnitName(name), data)
}

func Parse(ctx context.Context, name string, text []byte) (*vm.File, error) {
	s := New()

	s.AddFile(name, text)

	fs, err := s.Parse(ctx)
	if err != nil {
		return nil, err
	}

	return fs[0], nil
}

// UnitName returns the file name without directory and extension.
func UnitName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func New() *State {
	return &State{}
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name: name,
		base: len(s.b),
		size: len(text),
	}

	s.b = append(s.b, text...)

	s.files = append(s.files, f)
}

// Parse parses all added files, one unit per file.
func (s *State) Parse(ctx context.Context) (fs []*vm.File, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "files", len(s.files))
	defer tr.Finish("err", &err)

	fs = make([]*vm.File, 0, len(s.files))

	for _, f := range s.files {
		x, err := s.parseFile(ctx, f)
		if err != nil {
			return nil, err
		}

		fs = append(fs, x)
	}

	return fs, nil
}

func (s *State) parseFile(ctx context.Context, f file) (x *vm.File, err error) {
	b := s.b[f.base : f.base+f.size]

	x = &vm.File{Name: f.name}

	for i, num := 0, 1; i < len(b); num++ {
		end := i
		for end < len(b) && b[end] != '\n' {
			end++
		}

		cmd, err := ParseLine(b[i:end])
		if err != nil {
			return nil, errors.Wrap(err, "%v:%d", f.name, num)
		}

		if cmd != nil {
			x.Code = append(x.Code, vm.Line{Num: num, Cmd: cmd})
		}

		i = end + 1
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("parse_dump") {
		for _, l := range x.Code {
			tr.Printw("command", "unit", f.name, "line", l)
		}
	}

	return x, nil
}
