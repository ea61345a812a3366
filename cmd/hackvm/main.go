package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/hackvm/compiler"
	"github.com/slowlang/hackvm/compiler/asm"
	"github.com/slowlang/hackvm/compiler/format"
	"github.com/slowlang/hackvm/compiler/hack"
	"github.com/slowlang/hackvm/compiler/report"
)

func main() {
	outputFlag := cli.NewFlag("output,o", "-", "output file, - for stdout")

	optionFlags := []*cli.Flag{
		cli.NewFlag("bootstrap", false, "set up the stack and call Sys.init first"),
		cli.NewFlag("comments", true, "put each source command before its code"),
		cli.NewFlag("stats", false, "print translation report to stderr"),
		cli.NewFlag("jobs,j", 0, "units translated at once, 0 for all"),
	}

	translateCmd := &cli.Command{
		Name:        "translate,t",
		Description: "translate vm files and directories into hack assembly",
		Action:      translateAct,
		Args:        cli.Args{},
		Flags:       append([]*cli.Flag{outputFlag}, optionFlags...),
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse vm files and print them in canonical form",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags:       []*cli.Flag{outputFlag},
	}

	asmCmd := &cli.Command{
		Name:        "asm",
		Description: "assemble hack assembly into binary text",
		Action:      asmAct,
		Args:        cli.Args{},
		Flags:       []*cli.Flag{outputFlag},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "translate and run on the hack emulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("steps", 10_000_000, "instructions limit, 0 for none"),
		}, optionFlags...),
	}

	app := &cli.Command{
		Name:        "hackvm",
		Description: "hackvm translates stack vm code to hack assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			translateCmd,
			parseCmd,
			asmCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w := tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags)

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func options(c *cli.Command) compiler.Options {
	return compiler.Options{
		Bootstrap: c.Bool("bootstrap"),
		Comments:  c.Bool("comments"),
		Jobs:      c.Int("jobs"),
	}
}

func translate(ctx context.Context, c *cli.Command) ([]byte, error) {
	if len(c.Args) == 0 {
		return nil, errors.New("no inputs")
	}

	opts := options(c)

	if c.Bool("stats") {
		opts.Stats = &report.Report{}
	}

	text, err := compiler.TranslateFiles(ctx, c.Args, opts)
	if err != nil {
		return nil, err
	}

	if opts.Stats != nil {
		opts.Stats.Render(os.Stderr)
	}

	return text, nil
}

func translateAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	text, err := translate(ctx, c)
	if err != nil {
		return errors.Wrap(err, "translate")
	}

	return writeOutput(c.String("output"), text)
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	names, err := compiler.Inputs(c.Args)
	if err != nil {
		return errors.Wrap(err, "inputs")
	}

	fs, err := compiler.ParseFiles(ctx, names)
	if err != nil {
		return errors.Wrap(err, "parse")
	}

	text, err := format.Format(ctx, nil, fs)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	return writeOutput(c.String("output"), text)
}

func asmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("one input expected")
	}

	text, err := os.ReadFile(c.Args[0])
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	obj, err := asm.Assemble(ctx, text)
	if err != nil {
		return errors.Wrap(err, "assemble %v", c.Args[0])
	}

	return writeOutput(c.String("output"), asm.Format(nil, obj.Code))
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	var text []byte

	if len(c.Args) == 1 && filepath.Ext(c.Args[0]) == ".asm" {
		text, err = os.ReadFile(c.Args[0])
	} else {
		text, err = translate(ctx, c)
	}
	if err != nil {
		return err
	}

	obj, err := asm.Assemble(ctx, text)
	if err != nil {
		return errors.Wrap(err, "assemble")
	}

	cpu, err := compiler.Run(ctx, obj.Code, c.Int("steps"), c.Bool("bootstrap"))
	if err != nil {
		return err
	}

	return printState(os.Stdout, cpu)
}

func printState(w io.Writer, cpu *hack.CPU) (err error) {
	_, err = fmt.Fprintf(w, "steps %d  sp %d\n", cpu.Steps, cpu.RAM[hack.SP])
	if err != nil {
		return err
	}

	cpu.Written(func(addr int, v int16) bool {
		_, err = fmt.Fprintf(w, "ram[%d] = %d\n", addr, v)
		return err == nil
	})
	if err != nil {
		return err
	}

	if st := cpu.Stack(); len(st) != 0 {
		_, err = fmt.Fprintf(w, "top %d\n", st[len(st)-1])
	}

	return err
}

func writeOutput(name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	err := os.WriteFile(name, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}
