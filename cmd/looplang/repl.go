package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/looplang/pkg/check"
	"github.com/lemonberrylabs/looplang/pkg/config"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runtime"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

const (
	historyFile = ".looplang_history"
	promptMain  = "loop> "
	promptCont  = "  ... "
	replHelp    = `Enter LOOP statements; blocks continue until their END.
  :regs [NAME...]  print registers
  :reset           forget every register and function
  :help            show this help
  :quit            leave`
)

func newReplCmd(opts *rootOptions) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session sharing one register file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := parser.Dialect{Sugar: opts.sugar, Enhanced: opts.enhanced}
			s := newSession(d, maxDepth, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runREPL(cmd.Context(), s)
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum function call depth (0 for unbounded)")
	return cmd
}

// session is the state carried between REPL inputs.
type session struct {
	dialect parser.Dialect
	regs    types.Registers
	scope   *check.GlobalScope
	engine  *runtime.Engine
	out     io.Writer
	errOut  io.Writer
}

func newSession(d parser.Dialect, maxDepth int, out, errOut io.Writer) *session {
	return &session{
		dialect: d,
		regs:    types.NewRegisters(),
		scope:   check.NewGlobalScope(),
		engine: runtime.NewEngine(runtime.Options{
			Dialect:      d,
			MaxCallDepth: maxDepth,
			Diagnostics:  errOut,
		}),
		out:    out,
		errOut: errOut,
	}
}

// eval compiles and runs one input. Functions defined by an input stay
// callable from later inputs once the input has passed its checks.
func (s *session) eval(ctx context.Context, src string) error {
	prog, err := parser.ParseString(src, s.dialect)
	if err != nil {
		return err
	}

	if s.dialect.Sugar {
		trial := s.scope.Clone()
		if err := check.ResolveIn(prog, trial); err != nil {
			return err
		}
		s.scope = trial
	} else if err := check.Strict(prog); err != nil {
		return err
	}

	return s.engine.Run(ctx, prog, s.regs)
}

// command runs a ':' command and reports whether the session should end.
func (s *session) command(line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":regs":
		if err := writeRegisters(s.out, s.regs, fields[1:], config.OutputText); err != nil {
			fmt.Fprintln(s.errOut, err)
		}
	case ":reset":
		s.regs = types.NewRegisters()
		s.scope = check.NewGlobalScope()
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	default:
		fmt.Fprintf(s.errOut, "unknown command %s. Type :help for a list.\n", fields[0])
	}
	return false
}

// report prints the outcome of eval.
func (s *session) report(err error) {
	var stop *types.ProgramStop
	switch {
	case err == nil:
	case errors.As(err, &stop):
		fmt.Fprintf(s.out, "stopped at line %d\n", stop.Line)
	default:
		fmt.Fprintln(s.errOut, err)
	}
}

// needsMore reports whether src stops inside an unterminated block.
func (s *session) needsMore(src string) bool {
	_, err := parser.ParseString(src, s.dialect)
	return types.IsIncomplete(err)
}

func runREPL(ctx context.Context, s *session) error {
	interactive := isTerminal(os.Stdin)
	if interactive {
		fmt.Fprintf(s.out, "looplang %s (sugar=%v, enhanced=%v). Type :help for help.\n",
			version, s.dialect.Sugar, s.dialect.Enhanced)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		src, ok := readInput(ln, s)
		if !ok {
			if interactive {
				fmt.Fprintln(s.out)
			}
			return nil
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed) {
				return nil
			}
			continue
		}

		s.report(s.eval(ctx, src))
		ln.AppendHistory(strings.ReplaceAll(src, "\n", "; "))

		if ctx.Err() != nil {
			return nil
		}
	}
}

// readInput accumulates lines until they form a complete input. ok is false
// at end of input.
func readInput(ln *liner.State, s *session) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return b.String(), b.Len() > 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !s.needsMore(src) {
			return src, true
		}
	}
}
