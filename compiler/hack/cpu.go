package hack

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler/asm"
	"github.com/slowlang/hackvm/compiler/set"
)

type (
	// CPU is the Hack computer: 32K words of RAM, a read only ROM
	// and A, D and PC registers.
	CPU struct {
		RAM []int16
		ROM []asm.Word

		A, D int16
		PC   int

		Steps int

		halt    set.Bitmap
		written set.Bitmap
	}
)

// RAM cells used by the calling convention.
const (
	SP = iota
	LCL
	ARG
	THIS
	THAT

	RAMSize   = 1 << 15
	StackBase = 256
)

var (
	ErrStepLimit = errors.New("step limit reached")
	ErrPC        = errors.New("pc out of rom")
	ErrAddress   = errors.New("address out of ram")
)

const jmp = 0b1110_1010_1000_0111 // 0;JMP

// New loads a program.
// Addresses where the program jumps to itself forever are halt points.
func New(rom []asm.Word) *CPU {
	c := &CPU{
		RAM: make([]int16, RAMSize),
		ROM: rom,

		halt:    set.MakeBitmap(len(rom)),
		written: set.MakeBitmap(StackBase),
	}

	for pc := 0; pc+1 < len(rom); pc++ {
		if int(rom[pc]) == pc && rom[pc+1] == jmp {
			c.halt.Set(pc)
		}
	}

	return c
}

// Halted reports whether execution reached a halt point.
func (c *CPU) Halted() bool {
	return c.halt.IsSet(c.PC)
}

// Run executes until a halt point, an error or limit steps.
// Zero limit means no limit.
func (c *CPU) Run(ctx context.Context, limit int) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "hack: run", "rom", len(c.ROM), "limit", limit)
	defer tr.Finish("err", &err, "steps", &c.Steps, "pc", &c.PC, "written", &c.written)

	for n := 0; !c.Halted(); n++ {
		if limit != 0 && n == limit {
			return errors.Wrap(ErrStepLimit, "%d steps", limit)
		}

		if n&0xfff == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}

		err = c.Step()
		if err != nil {
			return errors.Wrap(err, "step %d", c.Steps)
		}
	}

	return nil
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.PC < 0 || c.PC >= len(c.ROM) {
		return errors.Wrap(ErrPC, "pc %d", c.PC)
	}

	w := c.ROM[c.PC]
	c.Steps++

	tlog.V("emu").Printw("step", "pc", c.PC, "word", w, "a", c.A, "d", c.D)

	if w&0x8000 == 0 {
		c.A = int16(w)
		c.PC++

		return nil
	}

	addr := c.A
	y := c.A

	if w&0x1000 != 0 {
		m, err := c.Load(addr)
		if err != nil {
			return err
		}

		y = m
	}

	out := alu(c.D, y, w>>6&0x3f)

	dest := asm.Dest(w >> 3 & 7)

	if dest&asm.DestM != 0 {
		if err := c.Store(addr, out); err != nil {
			return err
		}
	}

	if dest&asm.DestA != 0 {
		c.A = out
	}

	if dest&asm.DestD != 0 {
		c.D = out
	}

	if jump(out, asm.Jump(w&7)) {
		c.PC = int(uint16(addr))
	} else {
		c.PC++
	}

	return nil
}

func (c *CPU) Load(addr int16) (int16, error) {
	if addr < 0 {
		return 0, errors.Wrap(ErrAddress, "load %d", uint16(addr))
	}

	return c.RAM[addr], nil
}

func (c *CPU) Store(addr, v int16) error {
	if addr < 0 {
		return errors.Wrap(ErrAddress, "store %d", uint16(addr))
	}

	c.RAM[addr] = v

	if addr < StackBase {
		c.written.Set(int(addr))
	}

	return nil
}

// Stack returns the cells from StackBase up to SP.
func (c *CPU) Stack() []int16 {
	sp := int(c.RAM[SP])
	if sp < StackBase || sp > RAMSize {
		return nil
	}

	return c.RAM[StackBase:sp]
}

// Written calls f for each cell below StackBase the program stored to.
func (c *CPU) Written(f func(addr int, v int16) bool) {
	c.written.Range(func(i int) bool {
		return f(i, c.RAM[i])
	})
}

// alu computes the six control bits function
// zx nx zy ny f no, highest bit first.
func alu(x, y int16, ctl asm.Word) (out int16) {
	if ctl&0b100000 != 0 {
		x = 0
	}
	if ctl&0b010000 != 0 {
		x = ^x
	}
	if ctl&0b001000 != 0 {
		y = 0
	}
	if ctl&0b000100 != 0 {
		y = ^y
	}

	if ctl&0b000010 != 0 {
		out = x + y
	} else {
		out = x & y
	}

	if ctl&0b000001 != 0 {
		out = ^out
	}

	return out
}

func jump(out int16, j asm.Jump) bool {
	return out < 0 && j&0b100 != 0 ||
		out == 0 && j&0b010 != 0 ||
		out > 0 && j&0b001 != 0
}
