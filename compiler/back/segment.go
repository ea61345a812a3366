package back

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/hackvm/compiler/vm"
)

// Fixed RAM cells.
// Pointer and Temp indexes are not range checked here,
// the parser rejects indexes past PointerSize and TempSize.
const (
	PointerBase = 3
	PointerSize = 2

	TempBase = 5
	TempSize = 8

	maxImm  = 1<<15 - 1
	maxWord = 1<<16 - 1
)

var basePointers = [...]string{
	vm.Argument: "ARG",
	vm.Local:    "LCL",
	vm.This:     "THIS",
	vm.That:     "THAT",
}

// StaticName is the assembler variable holding unit static cell idx.
func StaticName(unit string, idx uint16) string {
	if unit == "" {
		unit = "_vm.static"
	}

	return unit + "." + strconv.Itoa(int(idx))
}

func basePointer(seg vm.Segment) (string, bool) {
	if int(seg) >= len(basePointers) || basePointers[seg] == "" {
		return "", false
	}

	return basePointers[seg], true
}

func fixedAddr(unit string, seg vm.Segment, idx uint16) (string, bool) {
	switch seg {
	case vm.Static:
		return StaticName(unit, idx), true
	case vm.Pointer:
		return strconv.Itoa(PointerBase + int(idx)), true
	case vm.Temp:
		return strconv.Itoa(TempBase + int(idx)), true
	}

	return "", false
}

// appendAddr leaves the address of seg[idx] in A.
func appendAddr(b []byte, unit string, seg vm.Segment, idx uint16) ([]byte, error) {
	if base, ok := basePointer(seg); ok {
		if idx == 0 {
			return appendLines(b, "@"+base, "A=M"), nil
		}

		b = appendConstD(b, idx)

		return appendLines(b, "@"+base, "A=D+M"), nil
	}

	if a, ok := fixedAddr(unit, seg, idx); ok {
		return appendLines(b, "@"+a), nil
	}

	return nil, errors.Wrap(ErrUnsupported, "segment %v has no address", seg)
}

// appendValue leaves the value of seg[idx] in D.
// Constants are loaded without memory reads.
func appendValue(b []byte, unit string, seg vm.Segment, idx uint16) (_ []byte, err error) {
	if seg == vm.Constant {
		return appendConstD(b, idx), nil
	}

	b, err = appendAddr(b, unit, seg, idx)
	if err != nil {
		return nil, err
	}

	return appendLines(b, "D=M"), nil
}

// appendConstD loads any 16 bit word into D.
// A instructions carry 15 bits so the upper half is loaded inverted.
func appendConstD(b []byte, v uint16) []byte {
	if v <= maxImm {
		return fmt.Appendf(b, "@%d\nD=A\n", v)
	}

	return fmt.Appendf(b, "@%d\nD=!A\n", ^v)
}

func appendPushD(b []byte) []byte {
	return appendLines(b, "@SP", "AM=M+1", "A=A-1", "M=D")
}

func appendPopD(b []byte) []byte {
	return appendLines(b, "@SP", "AM=M-1", "D=M")
}

func appendPush(b []byte, unit string, seg vm.Segment, idx uint16) (_ []byte, err error) {
	b, err = appendValue(b, unit, seg, idx)
	if err != nil {
		return nil, err
	}

	return appendPushD(b), nil
}

func appendPop(b []byte, unit string, seg vm.Segment, idx uint16) ([]byte, error) {
	if a, ok := fixedAddr(unit, seg, idx); ok {
		b = appendPopD(b)

		return appendLines(b, "@"+a, "M=D"), nil
	}

	base, ok := basePointer(seg)
	if !ok {
		return nil, errors.Wrap(ErrUnsupported, "pop to %v", seg)
	}

	if idx == 0 {
		b = appendPopD(b)

		return appendLines(b, "@"+base, "A=M", "M=D"), nil
	}

	b = appendConstD(b, idx)
	b = appendLines(b, "@"+base, "D=D+M", "@R13", "M=D")
	b = appendPopD(b)

	return appendLines(b, "@R13", "A=M", "M=D"), nil
}
