package parse

import (
	"bytes"

	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/back"
	"github.com/slowlang/hackvm/compiler/vm"
)

// ParseLine parses one line of VM text.
// It returns nil command for blank and comment only lines.
func ParseLine(b []byte) (vm.Command, error) {
	if i := bytes.Index(b, []byte("//")); i >= 0 {
		b = b[:i]
	}

	var words [4][]byte
	n := 0

	for i := SpaceTab.Skip(b, 0); i < len(b); i = SpaceTab.Skip(b, i) {
		end := SpaceTab.Word(b, i)

		if n == len(words) {
			return nil, errors.Wrap(ErrSyntax, "too many words")
		}

		words[n] = b[i:end]
		n++

		i = end
	}

	if n == 0 {
		return nil, nil
	}

	k, ok := vm.KindByName(string(words[0]))
	if !ok {
		return nil, errors.Wrap(ErrSyntax, "unknown command %q", words[0])
	}

	args := words[1:n]

	if want := arity(k); len(args) != want {
		return nil, errors.Wrap(ErrSyntax, "%v: %d args expected, got %d", k, want, len(args))
	}

	if op, ok := k.Op(); ok {
		return op, nil
	}

	switch k {
	case vm.KindPush, vm.KindPop:
		seg, idx, err := parseAddr(args[0], args[1])
		if err != nil {
			return nil, errors.Wrap(err, "%v", k)
		}

		if k == vm.KindPush {
			return vm.Push{Segment: seg, Index: idx}, nil
		}

		return vm.Pop{Segment: seg, Index: idx}, nil
	case vm.KindLabel, vm.KindGoto, vm.KindIfGoto:
		sym, err := vm.ParseSymbol(string(args[0]))
		if err != nil {
			return nil, errors.Wrap(err, "%v", k)
		}

		switch k {
		case vm.KindLabel:
			return vm.Label{Name: sym}, nil
		case vm.KindGoto:
			return vm.Goto{Label: sym}, nil
		default:
			return vm.IfGoto{Label: sym}, nil
		}
	case vm.KindFunction, vm.KindCall:
		sym, err := vm.ParseSymbol(string(args[0]))
		if err != nil {
			return nil, errors.Wrap(err, "%v", k)
		}

		n, err := parseIndex(args[1])
		if err != nil {
			return nil, errors.Wrap(err, "%v %v", k, sym)
		}

		if k == vm.KindFunction {
			return vm.Function{Name: sym, NVars: n}, nil
		}

		return vm.Call{Name: sym, NArgs: n}, nil
	case vm.KindReturn:
		return vm.Return{}, nil
	}

	return nil, errors.Wrap(ErrSyntax, "unsupported command %v", k)
}

func arity(k vm.Kind) int {
	switch k {
	case vm.KindPush, vm.KindPop, vm.KindFunction, vm.KindCall:
		return 2
	case vm.KindLabel, vm.KindGoto, vm.KindIfGoto:
		return 1
	default:
		return 0
	}
}

func parseAddr(sb, ib []byte) (seg vm.Segment, idx uint16, err error) {
	seg, ok := vm.ParseSegment(string(sb))
	if !ok {
		return 0, 0, errors.Wrap(ErrSyntax, "unknown segment %q", sb)
	}

	idx, err = parseIndex(ib)
	if err != nil {
		return 0, 0, err
	}

	var size uint16

	switch seg {
	case vm.Pointer:
		size = back.PointerSize
	case vm.Temp:
		size = back.TempSize
	}

	if size != 0 && idx >= size {
		return 0, 0, errors.Wrap(ErrSyntax, "%v index %d out of range [0, %d)", seg, idx, size)
	}

	return seg, idx, nil
}

// parseIndex parses a decimal unsigned 16 bit number.
func parseIndex(b []byte) (uint16, error) {
	if len(b) == 0 {
		return 0, errors.Wrap(ErrSyntax, "number expected")
	}

	var v uint32

	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errors.Wrap(ErrSyntax, "bad number %q", b)
		}

		v = v*10 + uint32(c-'0')

		if v > 0xffff {
			return 0, errors.Wrap(ErrSyntax, "number %q out of range", b)
		}
	}

	return uint16(v), nil
}
