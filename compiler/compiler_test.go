package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/slowlang/hackvm/compiler/asm"
	"github.com/slowlang/hackvm/compiler/back"
	"github.com/slowlang/hackvm/compiler/hack"
	"github.com/slowlang/hackvm/compiler/report"
	"github.com/slowlang/hackvm/compiler/vm"
)

const sysVM = `// entry point
function Sys.init 0
	push constant 6
	call Main.fib 1
	pop static 0
label halt
	goto halt
`

const mainVM = `function Main.fib 0
	push argument 0
	push constant 2
	lt
	if-goto base
	push argument 0
	push constant 1
	sub
	call Main.fib 1
	push argument 0
	push constant 2
	sub
	call Main.fib 1
	add
	return
label base
	push argument 0
	return
`

func writeFiles(dir string, files map[string]string) {
	for name, text := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644)
		Expect(err).NotTo(HaveOccurred())
	}
}

func pushc(v uint16) vm.Command {
	return vm.Push{Segment: vm.Constant, Index: v}
}

var _ = Describe("Inputs", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should expand directories to sorted vm files", func() {
		writeFiles(dir, map[string]string{
			"Sys.vm":    "",
			"Main.vm":   "",
			"Array.vm":  "",
			"notes.txt": "",
		})

		other := filepath.Join(GinkgoT().TempDir(), "Extra.vm")
		writeFiles(filepath.Dir(other), map[string]string{"Extra.vm": ""})

		r, err := Inputs([]string{other, dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal([]string{
			other,
			filepath.Join(dir, "Array.vm"),
			filepath.Join(dir, "Main.vm"),
			filepath.Join(dir, "Sys.vm"),
		}))
	})

	It("should fail on a directory without vm files", func() {
		_, err := Inputs([]string{dir})
		Expect(err).To(HaveOccurred())
	})

	It("should fail on a missing path", func() {
		_, err := Inputs([]string{filepath.Join(dir, "nope.vm")})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Translate", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should run a bootstrapped program to the end", func() {
		dir := GinkgoT().TempDir()
		writeFiles(dir, map[string]string{
			"Sys.vm":  sysVM,
			"Main.vm": mainVM,
		})

		text, err := TranslateFiles(ctx, []string{dir}, Options{Bootstrap: true, Comments: true})
		Expect(err).NotTo(HaveOccurred())

		s := string(text)
		Expect(s).To(HavePrefix("// bootstrap\n@256\n"))
		Expect(s).To(HaveSuffix("(" + back.EndLabel + ")\n@" + back.EndLabel + "\n0;JMP\n"))
		Expect(strings.Index(s, "// SOURCE: Main\n")).To(BeNumerically("<", strings.Index(s, "// SOURCE: Sys\n")))
		Expect(strings.Count(s, "("+back.EndLabel+")")).To(Equal(1))

		obj, err := asm.Assemble(ctx, text)
		Expect(err).NotTo(HaveOccurred())

		cpu, err := Run(ctx, obj.Code, 1_000_000, true)
		Expect(err).NotTo(HaveOccurred())

		addr, ok := obj.Symbols["Sys.0"]
		Expect(ok).To(BeTrue())
		Expect(cpu.RAM[addr]).To(Equal(int16(8)))
	})

	It("should run a unit without bootstrap", func() {
		f := vm.NewFile("Main",
			pushc(7), pushc(8), vm.Add,
			pushc(3), vm.Gt,
		)

		text, err := Translate(ctx, nil, []*vm.File{f}, Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(HavePrefix("// SOURCE: Main\n@7\n"))

		obj, err := asm.Assemble(ctx, text)
		Expect(err).NotTo(HaveOccurred())

		cpu, err := Run(ctx, obj.Code, 10_000, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(cpu.Stack()).To(Equal([]int16{-1}))
	})

	It("should not depend on the number of jobs", func() {
		var fs []*vm.File

		for i := 0; i < 20; i++ {
			name := "U" + string(rune('a'+i))

			fs = append(fs, vm.NewFile(name,
				vm.Function{Name: vm.Symbol(name + ".f"), NVars: uint16(i % 3)},
				pushc(uint16(i)),
				vm.Eq,
				vm.Call{Name: vm.Symbol(name + ".f"), NArgs: 1},
				vm.Label{Name: "loop"},
				vm.Return{},
			))
		}

		one, err := Translate(ctx, nil, fs, Options{Jobs: 1, Comments: true})
		Expect(err).NotTo(HaveOccurred())

		for _, jobs := range []int{0, 3, 8} {
			many, err := Translate(ctx, nil, fs, Options{Jobs: jobs, Comments: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(many).To(Equal(one), "jobs %d", jobs)
		}

		s := string(one)
		last := -1

		for _, f := range fs {
			i := strings.Index(s, "// SOURCE: "+f.Name+"\n")
			Expect(i).To(BeNumerically(">", last), f.Name)

			last = i
		}
	})

	It("should reject duplicate unit names", func() {
		_, err := Translate(ctx, nil, []*vm.File{vm.NewFile("A"), vm.NewFile("A")}, Options{})
		Expect(errors.Is(err, ErrDuplicateUnit)).To(BeTrue())
	})

	It("should reject file names that are not symbols", func() {
		for _, name := range []string{"2048.vm", "my-prog.vm"} {
			dir := GinkgoT().TempDir()
			writeFiles(dir, map[string]string{
				name: "push constant 1\npop static 0\n",
			})

			text, err := TranslateFiles(ctx, []string{dir}, Options{})
			Expect(errors.Is(err, vm.ErrBadSymbol)).To(BeTrue(), "%v: %v", name, err)
			Expect(text).To(BeNil())
		}
	})

	It("should fail the whole program on a bad unit", func() {
		fs := []*vm.File{
			vm.NewFile("A", pushc(1)),
			vm.NewFile("B", pushc(1), vm.Pop{Segment: vm.Constant}),
			vm.NewFile("C", pushc(1)),
		}

		text, err := Translate(ctx, nil, fs, Options{Jobs: 2})
		Expect(errors.Is(err, back.ErrUnsupported)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("B:2"))
		Expect(text).To(BeNil())
	})

	It("should report parse errors with the file position", func() {
		dir := GinkgoT().TempDir()
		writeFiles(dir, map[string]string{
			"Main.vm": "push constant 1\npush constant 1\nmul\n",
		})

		_, err := TranslateFiles(ctx, []string{dir}, Options{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Main:3"))
	})

	It("should collect stats in input order", func() {
		var r report.Report

		fs := []*vm.File{
			vm.NewFile("A", pushc(1), pushc(2), vm.Lt),
			vm.NewFile("B", vm.Function{Name: "B.f"}, vm.Call{Name: "B.f"}, vm.Return{}),
		}

		_, err := Translate(ctx, nil, fs, Options{Jobs: 2, Stats: &r})
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Units).To(HaveLen(2))
		Expect(r.Units[0].Unit).To(Equal("A"))
		Expect(r.Units[0].Compares).To(Equal(1))
		Expect(r.Units[1].Unit).To(Equal("B"))
		Expect(r.Units[1].Calls).To(Equal(1))
		Expect(r.Total().Commands).To(Equal(6))
	})

	It("should stop on a step limit", func() {
		f := vm.NewFile("Main",
			vm.Label{Name: "spin"},
			pushc(1),
			vm.IfGoto{Label: "spin"},
		)

		text, err := Translate(ctx, nil, []*vm.File{f}, Options{})
		Expect(err).NotTo(HaveOccurred())

		obj, err := asm.Assemble(ctx, text)
		Expect(err).NotTo(HaveOccurred())

		_, err = Run(ctx, obj.Code, 1000, false)
		Expect(errors.Is(err, hack.ErrStepLimit)).To(BeTrue())
	})
})
