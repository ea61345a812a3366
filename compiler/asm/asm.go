package asm

import (
	"fmt"
	"strconv"

	"tlog.app/go/tlog/tlwire"
)

type (
	Word uint16

	// Instr is one of A, C or Label.
	Instr any

	// A loads a value or a symbol address into the A register.
	A struct {
		Value  Word
		Symbol string
	}

	// C computes Comp, stores it into Dest and jumps if Jump holds.
	C struct {
		Dest Dest
		Comp string
		Jump Jump
	}

	Label struct {
		Name string
	}

	Dest uint8
	Jump uint8

	Line struct {
		Num   int
		Instr Instr
	}
)

const (
	DestM Dest = 1 << iota
	DestD
	DestA
)

const (
	JumpNone Jump = iota
	JGT
	JEQ
	JGE
	JLT
	JNE
	JLE
	JMP
)

const MaxValue = 1<<15 - 1

var jumpNames = [...]string{"", "JGT", "JEQ", "JGE", "JLT", "JNE", "JLE", "JMP"}

// comps maps a computation to its a-bit and six ALU control bits.
var comps = map[string]Word{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"D|A": 0b0010101,

	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"D|M": 0b1010101,

	// commutative spellings
	"A+D": 0b0000010,
	"A&D": 0b0000000,
	"A|D": 0b0010101,
	"M+D": 0b1000010,
	"M&D": 0b1000000,
	"M|D": 0b1010101,
}

// Predefined symbols.
var Predefined = map[string]Word{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": 16384,
	"KBD":    24576,
}

func init() {
	for i := 0; i < 16; i++ {
		Predefined["R"+strconv.Itoa(i)] = Word(i)
	}
}

// Encode returns the C instruction word.
func (x C) Encode() (Word, bool) {
	comp, ok := comps[x.Comp]
	if !ok {
		return 0, false
	}

	return 0b111<<13 | comp<<6 | Word(x.Dest)<<3 | Word(x.Jump), true
}

func (d Dest) String() (s string) {
	if d&DestA != 0 {
		s += "A"
	}
	if d&DestM != 0 {
		s += "M"
	}
	if d&DestD != 0 {
		s += "D"
	}

	return s
}

func (j Jump) String() string {
	if int(j) < len(jumpNames) {
		return jumpNames[j]
	}

	return "J?" + strconv.Itoa(int(j))
}

func (x A) String() string {
	if x.Symbol != "" {
		return "@" + x.Symbol
	}

	return "@" + strconv.Itoa(int(x.Value))
}

func (x C) String() (s string) {
	if x.Dest != 0 {
		s = x.Dest.String() + "="
	}

	s += x.Comp

	if x.Jump != JumpNone {
		s += ";" + x.Jump.String()
	}

	return s
}

func (x Label) String() string {
	return "(" + x.Name + ")"
}

func (l Line) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyInt(b, "line", l.Num)
	b = e.AppendKeyString(b, "instr", fmt.Sprint(l.Instr))

	return b
}
