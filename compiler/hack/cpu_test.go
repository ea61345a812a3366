package hack

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/hackvm/compiler/asm"
)

func load(t *testing.T, text string) *CPU {
	t.Helper()

	obj, err := asm.Assemble(context.Background(), []byte(text))
	require.NoError(t, err)

	return New(obj.Code)
}

func TestALU(t *testing.T) {
	const x, y = 12, -5

	for _, tc := range []struct {
		comp string
		exp  int16
	}{
		{"0", 0},
		{"1", 1},
		{"-1", -1},
		{"D", x},
		{"A", y},
		{"!D", ^x},
		{"!A", ^y},
		{"-D", -x},
		{"-A", -y},
		{"D+1", x + 1},
		{"A+1", y + 1},
		{"D-1", x - 1},
		{"A-1", y - 1},
		{"D+A", x + y},
		{"D-A", x - y},
		{"A-D", y - x},
		{"D&A", x & y},
		{"D|A", x | y},
	} {
		var ctl asm.Word

		for w, comp := range asmComps() {
			if comp == tc.comp {
				ctl = w
			}
		}

		assert.Equal(t, tc.exp, alu(x, y, ctl), tc.comp)
	}
}

// asmComps maps the low six bits of a compiled C instruction to its comp text.
func asmComps() map[asm.Word]string {
	r := map[asm.Word]string{}

	for _, comp := range []string{"0", "1", "-1", "D", "A", "!D", "!A", "-D", "-A",
		"D+1", "A+1", "D-1", "A-1", "D+A", "D-A", "A-D", "D&A", "D|A"} {
		w, ok := asm.C{Dest: asm.DestD, Comp: comp}.Encode()
		if !ok {
			panic(comp)
		}

		r[w>>6&0x3f] = comp
	}

	return r
}

func TestJump(t *testing.T) {
	for _, tc := range []struct {
		out int16
		j   asm.Jump
		exp bool
	}{
		{0, asm.JumpNone, false},
		{1, asm.JGT, true},
		{0, asm.JGT, false},
		{0, asm.JEQ, true},
		{-1, asm.JEQ, false},
		{0, asm.JGE, true},
		{-1, asm.JGE, false},
		{-1, asm.JLT, true},
		{0, asm.JLT, false},
		{3, asm.JNE, true},
		{0, asm.JNE, false},
		{0, asm.JLE, true},
		{1, asm.JLE, false},
		{-7, asm.JMP, true},
	} {
		assert.Equal(t, tc.exp, jump(tc.out, tc.j), "%d %v", tc.out, tc.j)
	}
}

func TestRunHalts(t *testing.T) {
	c := load(t, `
@7
D=A
@R0
M=D
(END)
@END
0;JMP
`)

	err := c.Run(context.Background(), 100)
	require.NoError(t, err)

	assert.True(t, c.Halted())
	assert.Equal(t, 4, c.PC)
	assert.Equal(t, 4, c.Steps)
	assert.Equal(t, int16(7), c.RAM[0])
}

func TestRunStepLimit(t *testing.T) {
	c := load(t, `
@1
0;JMP
`)

	err := c.Run(context.Background(), 50)
	assert.True(t, errors.Is(err, ErrStepLimit), "%v", err)
	assert.Equal(t, 50, c.Steps)
}

func TestRunOffROM(t *testing.T) {
	c := load(t, "@1\nD=A\n")

	err := c.Run(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrPC), "%v", err)
	assert.Equal(t, 2, c.PC)
}

func TestRunCanceled(t *testing.T) {
	c := load(t, "(L)\n@L\nD;JMP\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStackAndWritten(t *testing.T) {
	c := load(t, `
@3
D=A
@SP
M=M+1
A=M-1
M=D
@SP
M=M+1
A=M-1
M=-1
@R13
M=D
(END)
@END
0;JMP
`)
	c.RAM[SP] = StackBase

	err := c.Run(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, []int16{3, -1}, c.Stack())

	got := map[int]int16{}

	c.Written(func(addr int, v int16) bool {
		got[addr] = v
		return true
	})

	assert.Equal(t, map[int]int16{SP: StackBase + 2, 13: 3}, got)
}

func TestStackInvalidSP(t *testing.T) {
	c := New(nil)
	c.RAM[SP] = 10

	assert.Nil(t, c.Stack())
}

func TestBadAddress(t *testing.T) {
	w, ok := asm.C{Dest: asm.DestM, Comp: "M+1"}.Encode()
	require.True(t, ok)

	c := New([]asm.Word{w})
	c.A = -1

	err := c.Step()
	assert.True(t, errors.Is(err, ErrAddress), "%v", err)
}
