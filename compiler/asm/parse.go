package asm

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler/vm"
)

var ErrSyntax = errors.New("syntax error")

// Parse reads assembly text. Comments and blank lines are dropped.
func Parse(ctx context.Context, text []byte) (_ []Line, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "asm: parse", "size", len(text))
	defer tr.Finish("err", &err)

	var r []Line

	for num, st := 1, 0; st < len(text); num++ {
		end := bytes.IndexByte(text[st:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += st
		}

		line := text[st:end]
		st = end + 1

		x, err := ParseLine(string(line))
		if err != nil {
			return nil, errors.Wrap(err, "line %d", num)
		}

		if x == nil {
			continue
		}

		r = append(r, Line{Num: num, Instr: x})
	}

	return r, nil
}

// ParseLine parses one instruction. It returns nil for empty and comment lines.
func ParseLine(s string) (Instr, error) {
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}

	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\r' {
			return -1
		}

		return r
	}, s)

	switch {
	case s == "":
		return nil, nil
	case s[0] == '(':
		return parseLabel(s)
	case s[0] == '@':
		return parseA(s[1:])
	default:
		return parseC(s)
	}
}

func parseLabel(s string) (Instr, error) {
	if len(s) < 2 || s[len(s)-1] != ')' {
		return nil, errors.Wrap(ErrSyntax, "unclosed label %q", s)
	}

	name, err := vm.ParseSymbol(s[1 : len(s)-1])
	if err != nil {
		return nil, errors.Wrap(err, "label")
	}

	return Label{Name: string(name)}, nil
}

func parseA(s string) (Instr, error) {
	if s == "" {
		return nil, errors.Wrap(ErrSyntax, "empty A instruction")
	}

	if c := s[0]; c >= '0' && c <= '9' {
		v, err := strconv.ParseUint(s, 10, 16)
		if err != nil || v > MaxValue {
			return nil, errors.Wrap(ErrSyntax, "bad value %q", s)
		}

		return A{Value: Word(v)}, nil
	}

	name, err := vm.ParseSymbol(s)
	if err != nil {
		return nil, errors.Wrap(err, "A instruction")
	}

	return A{Symbol: string(name)}, nil
}

func parseC(s string) (Instr, error) {
	var x C

	if i := strings.IndexByte(s, '='); i >= 0 {
		d, err := parseDest(s[:i])
		if err != nil {
			return nil, err
		}

		x.Dest = d
		s = s[i+1:]
	}

	if i := strings.IndexByte(s, ';'); i >= 0 {
		j, ok := parseJump(s[i+1:])
		if !ok {
			return nil, errors.Wrap(ErrSyntax, "bad jump %q", s[i+1:])
		}

		x.Jump = j
		s = s[:i]
	}

	if _, ok := comps[s]; !ok {
		return nil, errors.Wrap(ErrSyntax, "bad computation %q", s)
	}

	x.Comp = s

	return x, nil
}

func parseDest(s string) (d Dest, err error) {
	if s == "" {
		return 0, errors.Wrap(ErrSyntax, "empty destination")
	}

	for _, c := range []byte(s) {
		var bit Dest

		switch c {
		case 'A':
			bit = DestA
		case 'D':
			bit = DestD
		case 'M':
			bit = DestM
		default:
			return 0, errors.Wrap(ErrSyntax, "bad destination %q", s)
		}

		if d&bit != 0 {
			return 0, errors.Wrap(ErrSyntax, "repeated destination %q", s)
		}

		d |= bit
	}

	return d, nil
}

func parseJump(s string) (Jump, bool) {
	for j, n := range jumpNames {
		if j != 0 && n == s {
			return Jump(j), true
		}
	}

	return 0, false
}
