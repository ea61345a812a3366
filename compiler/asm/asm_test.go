package asm

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	for _, tc := range []struct {
		in  string
		exp Instr
	}{
		{"", nil},
		{"   // comment", nil},
		{"@17", A{Value: 17}},
		{"@Main.main$ret.0 // call", A{Symbol: "Main.main$ret.0"}},
		{"(LOOP)", Label{Name: "LOOP"}},
		{"  AM = M + 1", C{Dest: DestA | DestM, Comp: "M+1"}},
		{"D;JNE", C{Comp: "D", Jump: JNE}},
		{"0;JMP", C{Comp: "0", Jump: JMP}},
		{"AMD=D|M;JLE", C{Dest: DestA | DestM | DestD, Comp: "D|M", Jump: JLE}},
	} {
		x, err := ParseLine(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.exp, x, tc.in)
	}

	for _, in := range []string{"@", "@32768", "@1abc", "(X", "()", "Q=D", "MM=D", "D=D*A", "0;JXX"} {
		_, err := ParseLine(in)
		assert.Error(t, err, in)
	}
}

func TestInstrString(t *testing.T) {
	assert.Equal(t, "AM=M+1", C{Dest: DestA | DestM, Comp: "M+1"}.String())
	assert.Equal(t, "D;JNE", C{Comp: "D", Jump: JNE}.String())
	assert.Equal(t, "@x", A{Symbol: "x"}.String())
	assert.Equal(t, "@3", A{Value: 3}.String())
	assert.Equal(t, "(L)", Label{Name: "L"}.String())
}

func TestAssembleAdd(t *testing.T) {
	obj, err := Assemble(context.Background(), []byte(`// Computes R0 = 2 + 3
@2
D=A
@3
D=D+A
@0
M=D
`))
	require.NoError(t, err)

	assert.Equal(t, `0000000000000010
1110110000010000
0000000000000011
1110000010010000
0000000000000000
1110001100001000
`, string(Format(nil, obj.Code)))

	assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, obj.Lines)
}

func TestAssembleSymbols(t *testing.T) {
	obj, err := Assemble(context.Background(), []byte(`
@i
M=1
(LOOP)
@sum
M=M+D
@i
D=M
@LOOP
D;JGT
(END)
@END
0;JMP
@SCREEN
@R15
`))
	require.NoError(t, err)

	assert.Equal(t, Word(16), obj.Symbols["i"])
	assert.Equal(t, Word(17), obj.Symbols["sum"])
	assert.Equal(t, Word(2), obj.Symbols["LOOP"])
	assert.Equal(t, Word(8), obj.Symbols["END"])

	require.Len(t, obj.Code, 12)
	assert.Equal(t, Word(16), obj.Code[0])
	assert.Equal(t, Word(17), obj.Code[2])
	assert.Equal(t, Word(2), obj.Code[6])
	assert.Equal(t, Word(8), obj.Code[8])
	assert.Equal(t, Word(16384), obj.Code[10])
	assert.Equal(t, Word(15), obj.Code[11])
}

func TestAssembleErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Assemble(ctx, []byte("(A)\n@1\n(A)\n"))
	assert.True(t, errors.Is(err, ErrDuplicateLabel), "%v", err)

	_, err = Assemble(ctx, []byte("(SP)\n"))
	assert.True(t, errors.Is(err, ErrDuplicateLabel), "%v", err)

	_, err = Assemble(ctx, []byte("@1\nD=X\n"))
	assert.True(t, errors.Is(err, ErrSyntax), "%v", err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestAssembleVarSpace(t *testing.T) {
	var ls []Line

	for i := 0; i <= VarEnd-VarBase; i++ {
		ls = append(ls, Line{Num: i + 1, Instr: A{Symbol: "v" + strconv.Itoa(i)}})
	}

	_, err := AssembleLines(context.Background(), ls)
	assert.True(t, errors.Is(err, ErrNoSpace), "%v", err)
}
