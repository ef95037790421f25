package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/django-components/djc-core-tag-parser/compiler"
	"github.com/django-components/djc-core-tag-parser/parser"
)

// Context represents the global context for commands
type Context struct {
	Verbose bool
	Logger  zerolog.Logger
}

// ParseCmd parses a tag body and dumps its AST
type ParseCmd struct {
	Flags  []string `help:"Identifiers to treat as boolean flags" short:"f"`
	Format string   `help:"Output format" enum:"yaml,repr" default:"yaml"`
	Body   string   `arg:"" help:"Tag body, e.g. '{% my_comp key=val %}'"`
}

// Run executes the parse command
func (cmd *ParseCmd) Run(ctx *Context) error {
	ctx.Logger.Debug().Str("body", cmd.Body).Strs("flags", cmd.Flags).Msg("parsing tag")

	tag, err := parser.ParseTag(cmd.Body, parser.ParseOptions{Flags: cmd.Flags})
	if err != nil {
		printDiagnostic(cmd.Body, err)
		return err
	}

	ctx.Logger.Debug().Int("attrs", len(tag.Attrs)).Msg("parsed")

	if cmd.Format == "repr" {
		fmt.Println(repr.String(tag, repr.Indent("  ")))
		return nil
	}

	out, err := yaml.Marshal(tag)
	if err != nil {
		return fmt.Errorf("failed to render AST: %w", err)
	}
	fmt.Print(string(out))

	return nil
}

// EvalCmd compiles a tag and evaluates it with echo resolvers
type EvalCmd struct {
	Flags []string `help:"Identifiers to treat as boolean flags" short:"f"`
	Body  string   `arg:"" help:"Tag body, e.g. '{% my_comp key=val %}'"`
}

// Run executes the eval command
func (cmd *EvalCmd) Run(ctx *Context) error {
	tag, err := parser.ParseTag(cmd.Body, parser.ParseOptions{Flags: cmd.Flags})
	if err != nil {
		printDiagnostic(cmd.Body, err)
		return err
	}

	fn, err := compiler.CompileTag(tag)
	if err != nil {
		printDiagnostic(cmd.Body, err)
		return err
	}

	ctx.Logger.Debug().Msg("compiled, evaluating with echo resolvers")

	args, kwargs, err := fn(nil, echoResolvers())
	if err != nil {
		color.Red("evaluation failed: %v", err)
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)

	heading.Println("args:")
	for _, a := range args {
		fmt.Printf("  - %v\n", a)
	}

	heading.Println("kwargs:")
	for _, kw := range kwargs {
		fmt.Printf("  - %s: %v\n", kw.Key, kw.Value)
	}

	return nil
}

// echoResolvers resolve everything to markers describing the call, so the
// evaluation order and arguments are visible without a host framework.
func echoResolvers() compiler.Resolvers {
	return compiler.Resolvers{
		Variable: func(_ any, path string) (any, error) {
			return "variable(" + path + ")", nil
		},
		TemplateString: func(_ any, expr string) (any, error) {
			return "template_string(" + expr + ")", nil
		},
		Translation: func(_ any, text string) (any, error) {
			return "translation(" + text + ")", nil
		},
		Filter: func(_ any, name string, value any, arg any) (any, error) {
			if arg == nil {
				return fmt.Sprintf("%s(%v)", name, value), nil
			}
			return fmt.Sprintf("%s(%v, %v)", name, value, arg), nil
		},
	}
}

// printDiagnostic renders a positioned error with a caret under the
// offending column.
func printDiagnostic(input string, err error) {
	pos, ok := errorPosition(err)
	if !ok {
		color.Red("%v", err)
		return
	}

	lines := strings.Split(input, "\n")
	color.Red("%v", err)

	if pos.Line >= 1 && pos.Line <= len(lines) {
		line := lines[pos.Line-1]
		fmt.Fprintln(os.Stderr, "  "+line)
		fmt.Fprintln(os.Stderr, "  "+strings.Repeat(" ", pos.Column-1)+color.YellowString("^"))
	}
}

func errorPosition(err error) (struct{ Line, Column int }, bool) {
	var out struct{ Line, Column int }

	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		out.Line, out.Column = parseErr.Pos.Line, parseErr.Pos.Column
		return out, true
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		out.Line, out.Column = compileErr.Pos.Line, compileErr.Pos.Column
		return out, true
	}

	return out, false
}

var cli struct {
	Verbose bool `help:"Enable debug logging" short:"v"`

	Parse ParseCmd `cmd:"" help:"Parse a tag body and dump the AST"`
	Eval  EvalCmd  `cmd:"" help:"Compile a tag body and evaluate it with echo resolvers"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("djc-tag"),
		kong.Description("Inspect template tag parsing and compilation"),
		kong.UsageOnError(),
	)

	level := zerolog.WarnLevel
	if cli.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	err := kctx.Run(&Context{Verbose: cli.Verbose, Logger: logger})
	if err != nil {
		os.Exit(1)
	}
}
