// Command utlx runs UTL-X transformations: transform data, infer output
// schemas, inspect ASTs, format sources, or explore interactively.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/repr"
	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	utlx "github.com/grauwen/utl-x-sub011"
)

const (
	historyFile = ".utlx_history"
	promptMain  = "utlx> "
	promptCont  = "  ... "
)

var log zerolog.Logger

func main() {
	app := &cli.App{
		Name:    "utlx",
		Usage:   "declarative data transformation (json, xml, csv, yaml)",
		Version: utlx.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging and I/O error traces"},
		},
		Before: func(c *cli.Context) error {
			level := zerolog.WarnLevel
			if c.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Str("run", uuid.NewString()).Logger()
			return nil
		},
		Commands: []*cli.Command{
			transformCommand(),
			inferCommand(),
			astCommand(),
			fmtCommand(),
			replCommand(),
			versionCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readInput loads the data document from --in or stdin.
func readInput(c *cli.Context) ([]byte, error) {
	if path := c.String("in"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ioError(c, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, ioError(c, err)
	}
	return data, nil
}

// ioError wraps filesystem failures; verbose runs get a stack trace.
func ioError(c *cli.Context, err error) error {
	werr := tracerr.Wrap(err)
	if c.Bool("verbose") {
		tracerr.Print(werr)
	}
	return werr
}

func loadProgram(c *cli.Context, path string) (*utlx.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(c, err)
	}
	prog, perr := utlx.Parse(filepath.Base(path), string(src))
	if perr != nil {
		return nil, utlx.WrapErrorWithName(perr, path, string(src))
	}
	if errs := utlx.Check(prog); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprint(os.Stderr, utlx.WrapErrorWithName(e, path, string(src)))
		}
		return nil, fmt.Errorf("%d semantic error(s) in %s", len(errs), path)
	}
	return prog, nil
}

// formatOverride applies --input/--output flags on top of the program
// header.
func formatOverride(c *cli.Context, flag string, def utlx.Format) (utlx.Format, error) {
	if v := c.String(flag); v != "" {
		return utlx.ParseFormat(v)
	}
	return def, nil
}

func transformCommand() *cli.Command {
	return &cli.Command{
		Name:      "transform",
		Usage:     "run a transformation: data on stdin (or --in), result on stdout",
		ArgsUsage: "<file.utlx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Usage: "read input data from `FILE` instead of stdin"},
			&cli.StringFlag{Name: "input", Usage: "override the input `FORMAT` from the header"},
			&cli.StringFlag{Name: "output", Usage: "override the output `FORMAT` from the header"},
			&cli.StringFlag{Name: "templates", Value: "strict", Usage: "unmatched-node `POLICY`: strict, identity or skip"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: utlx transform <file.utlx>", 2)
			}
			prog, err := loadProgram(c, c.Args().First())
			if err != nil {
				return err
			}
			policy, err := templatePolicy(c.String("templates"))
			if err != nil {
				return err
			}
			inF, err := formatOverride(c, "input", prog.Input)
			if err != nil {
				return err
			}
			outF, err := formatOverride(c, "output", prog.Output)
			if err != nil {
				return err
			}

			data, err := readInput(c)
			if err != nil {
				return err
			}
			input, err := utlx.Decode(inF, data)
			if err != nil {
				return err
			}
			log.Debug().Str("program", prog.Name).Stringer("input", inF).Stringer("output", outF).Msg("transforming")

			result, err := utlx.Evaluate(prog, input, utlx.NewRegistry(), utlx.Options{Templates: policy})
			if err != nil {
				return utlx.WrapErrorWithName(err, prog.Name, prog.Src)
			}
			out, err := utlx.Encode(outF, result)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}

func templatePolicy(name string) (utlx.TemplatePolicy, error) {
	switch name {
	case "strict":
		return utlx.TemplatesStrict, nil
	case "identity":
		return utlx.TemplatesIdentity, nil
	case "skip":
		return utlx.TemplatesSkip, nil
	}
	return 0, fmt.Errorf("unknown template policy %q", name)
}

func inferCommand() *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "infer the output schema of a transformation",
		ArgsUsage: "<file.utlx>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dialect", Value: "jsonschema", Usage: "schema `DIALECT`: jsonschema, xsd or avro"},
			&cli.StringFlag{Name: "input-schema", Usage: "JSON Schema `FILE` describing the input"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: utlx infer <file.utlx>", 2)
			}
			prog, err := loadProgram(c, c.Args().First())
			if err != nil {
				return err
			}
			dialect, err := utlx.ParseDialect(c.String("dialect"))
			if err != nil {
				return err
			}
			inputType := utlx.AnyType
			if path := c.String("input-schema"); path != "" {
				data, rerr := os.ReadFile(path)
				if rerr != nil {
					return ioError(c, rerr)
				}
				inputType, err = utlx.ParseJSONSchema(data)
				if err != nil {
					return err
				}
			}

			t, errs := utlx.Infer(prog, inputType, utlx.NewRegistry(), utlx.Options{})
			for _, e := range errs {
				fmt.Fprint(os.Stderr, utlx.WrapErrorWithName(e, prog.Name, prog.Src))
			}
			out, err := utlx.GenerateSchema(dialect, t)
			if err != nil {
				return err
			}
			if _, err := os.Stdout.Write(out); err != nil {
				return err
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d type error(s)", len(errs))
			}
			return nil
		},
	}
}

func astCommand() *cli.Command {
	return &cli.Command{
		Name:      "ast",
		Usage:     "parse a transformation and dump its syntax tree",
		ArgsUsage: "<file.utlx>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: utlx ast <file.utlx>", 2)
			}
			prog, err := loadProgram(c, c.Args().First())
			if err != nil {
				return err
			}
			repr.New(os.Stdout, repr.Indent("  ")).Println(prog.AST)
			return nil
		},
	}
}

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "print a transformation in canonical form",
		ArgsUsage: "<file.utlx>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "rewrite the file in place"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: utlx fmt <file.utlx>", 2)
			}
			path := c.Args().First()
			prog, err := loadProgram(c, path)
			if err != nil {
				return err
			}
			formatted := utlx.FormatProgram(prog)
			if c.Bool("write") {
				if formatted == prog.Src {
					return nil
				}
				if werr := os.WriteFile(path, []byte(formatted), 0o644); werr != nil {
					return ioError(c, werr)
				}
				return nil
			}
			_, err = io.WriteString(os.Stdout, formatted)
			return err
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the version",
		Action: func(c *cli.Context) error {
			fmt.Printf("utlx %s (built %s)\n", utlx.Version, utlx.BuildDate)
			return nil
		},
	}
}

// ----- repl -----

func replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "interactive expression loop",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Usage: "bind $input to the data in `FILE`"},
			&cli.StringFlag{Name: "input", Value: "json", Usage: "`FORMAT` of the --in file"},
		},
		Action: runRepl,
	}
}

func runRepl(c *cli.Context) error {
	input := utlx.NullNode
	if path := c.String("in"); path != "" {
		f, err := utlx.ParseFormat(c.String("input"))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ioError(c, err)
		}
		input, err = utlx.Decode(f, data)
		if err != nil {
			return err
		}
	}

	fmt.Printf("UTL-X %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.\n", utlx.Version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	reg := utlx.NewRegistry()
	for {
		code, ok := readByParseProbe(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := replCommandLine(trimmed, input, reg); quit {
				return nil
			}
			ln.AppendHistory(trimmed)
			continue
		}

		v, err := utlx.EvaluateExpr("repl", code, input, reg, utlx.Options{})
		if err != nil {
			fmt.Fprint(os.Stderr, utlx.WrapErrorWithSource(err, code))
			continue
		}
		fmt.Println(v.String())
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// replCommandLine handles :commands; returns true on :quit.
func replCommandLine(line string, input utlx.Node, reg *utlx.Registry) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Print(`REPL commands:
  :quit          Exit the REPL
  :type <expr>   Infer the type of an expression
  :doc <name>    Show documentation for a builtin
`)
	case ":type":
		t, errs := utlx.InferExpr(rest, utlx.ShapeOf(input), reg)
		for _, e := range errs {
			fmt.Fprint(os.Stderr, utlx.WrapErrorWithSource(e, rest))
		}
		fmt.Println(t)
	case ":doc":
		name := strings.TrimSpace(rest)
		if b, ok := reg.Lookup(name); ok {
			if b.Doc != "" {
				fmt.Println(b.Doc)
			} else {
				fmt.Printf("%s: no documentation\n", name)
			}
		} else {
			fmt.Printf("unknown builtin %q\n", name)
		}
	default:
		fmt.Println("unknown command. Type :help for commands.")
	}
	return false
}

// readByParseProbe accumulates lines until the expression parses or
// fails with a non-incompleteness error.
func readByParseProbe(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := utlx.ParseExprInteractive(src)
		if perr == nil || !utlx.IsIncomplete(perr) {
			return src, true
		}
	}
}
