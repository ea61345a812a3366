package vm

import (
	"fmt"
	"strconv"
)

type (
	Kind uint8

	Segment uint8

	// Command is one stack machine operation.
	// The set of implementations is closed, see Kinds.
	Command interface {
		Kind() Kind
		String() string
	}

	Push struct {
		Segment Segment
		Index   uint16
	}

	Pop struct {
		Segment Segment
		Index   uint16
	}

	// Op is an arithmetic or logical command without operands.
	Op uint8

	Label struct {
		Name Symbol
	}

	Goto struct {
		Label Symbol
	}

	IfGoto struct {
		Label Symbol
	}

	Function struct {
		Name  Symbol
		NVars uint16
	}

	Call struct {
		Name  Symbol
		NArgs uint16
	}

	Return struct{}

	// Line is a command with the source line it was parsed from.
	Line struct {
		Num int
		Cmd Command
	}

	// File is one translation unit.
	// Name qualifies static segment cells, so different files never share them.
	File struct {
		Name string
		Code []Line
	}
)

const (
	KindPush Kind = iota
	KindPop
	KindAdd
	KindSub
	KindNeg
	KindEq
	KindGt
	KindLt
	KindAnd
	KindOr
	KindNot
	KindLabel
	KindGoto
	KindIfGoto
	KindFunction
	KindCall
	KindReturn

	numKinds
)

const (
	Add Op = iota
	Sub
	Neg
	Eq
	Gt
	Lt
	And
	Or
	Not

	numOps
)

const (
	Argument Segment = iota
	Local
	Static
	Constant
	This
	That
	Pointer
	Temp

	numSegments
)

var kindNames = [...]string{
	KindPush:     "push",
	KindPop:      "pop",
	KindAdd:      "add",
	KindSub:      "sub",
	KindNeg:      "neg",
	KindEq:       "eq",
	KindGt:       "gt",
	KindLt:       "lt",
	KindAnd:      "and",
	KindOr:       "or",
	KindNot:      "not",
	KindLabel:    "label",
	KindGoto:     "goto",
	KindIfGoto:   "if-goto",
	KindFunction: "function",
	KindCall:     "call",
	KindReturn:   "return",
}

var segmentNames = [...]string{
	Argument: "argument",
	Local:    "local",
	Static:   "static",
	Constant: "constant",
	This:     "this",
	That:     "that",
	Pointer:  "pointer",
	Temp:     "temp",
}

// Kinds lists every command kind in declaration order.
func Kinds() []Kind {
	r := make([]Kind, numKinds)

	for i := range r {
		r[i] = Kind(i)
	}

	return r
}

// KindByName looks up a command keyword.
func KindByName(s string) (Kind, bool) {
	for k, n := range kindNames {
		if n == s {
			return Kind(k), true
		}
	}

	return 0, false
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Op returns the operator for arithmetic and logical kinds.
func (k Kind) Op() (Op, bool) {
	if k < KindAdd || k > KindNot {
		return 0, false
	}

	return Op(k - KindAdd), true
}

func ParseSegment(s string) (Segment, bool) {
	for i, n := range segmentNames {
		if n == s {
			return Segment(i), true
		}
	}

	return 0, false
}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}

	return fmt.Sprintf("Segment(%d)", int(s))
}

func (x Push) Kind() Kind     { return KindPush }
func (x Pop) Kind() Kind      { return KindPop }
func (x Op) Kind() Kind       { return KindAdd + Kind(x) }
func (x Label) Kind() Kind    { return KindLabel }
func (x Goto) Kind() Kind     { return KindGoto }
func (x IfGoto) Kind() Kind   { return KindIfGoto }
func (x Function) Kind() Kind { return KindFunction }
func (x Call) Kind() Kind     { return KindCall }
func (x Return) Kind() Kind   { return KindReturn }

// Binary reports whether the operator consumes two stack cells.
func (x Op) Binary() bool {
	return x != Neg && x != Not
}

// Compare reports whether the operator yields a boolean.
func (x Op) Compare() bool {
	return x == Eq || x == Gt || x == Lt
}

func (x Push) String() string {
	return "push " + x.Segment.String() + " " + strconv.Itoa(int(x.Index))
}

func (x Pop) String() string {
	return "pop " + x.Segment.String() + " " + strconv.Itoa(int(x.Index))
}

func (x Op) String() string { return x.Kind().String() }

func (x Label) String() string  { return "label " + string(x.Name) }
func (x Goto) String() string   { return "goto " + string(x.Label) }
func (x IfGoto) String() string { return "if-goto " + string(x.Label) }

func (x Function) String() string {
	return "function " + string(x.Name) + " " + strconv.Itoa(int(x.NVars))
}

func (x Call) String() string {
	return "call " + string(x.Name) + " " + strconv.Itoa(int(x.NArgs))
}

func (x Return) String() string { return "return" }

// Commands returns the file commands without line numbers.
func (f *File) Commands() []Command {
	r := make([]Command, len(f.Code))

	for i, l := range f.Code {
		r[i] = l.Cmd
	}

	return r
}

// NewFile numbers commands sequentially starting from line 1.
func NewFile(name string, cmds ...Command) *File {
	f := &File{Name: name}

	for i, x := range cmds {
		f.Code = append(f.Code, Line{Num: i + 1, Cmd: x})
	}

	return f
}
