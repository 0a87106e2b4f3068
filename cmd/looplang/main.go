// Package main is the entry point for the looplang command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lemonberrylabs/looplang/pkg/config"
	"github.com/lemonberrylabs/looplang/pkg/runtime"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes. A program that executed ERROR exits with exitStopped.
const (
	exitStopped = 1
	exitError   = 2
)

// rootOptions holds the flags of the root command. sugar and enhanced are
// persistent and shared with the subcommands.
type rootOptions struct {
	file       string
	sugar      bool
	enhanced   bool
	preamble   string
	print      string
	configPath string
	maxDepth   int
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "looplang",
		Short: "Run LOOP programs",
		Long: `Run a LOOP program read from a file or standard input and print its registers.

The core language only has x = 0, x = y, x = x + 1 and LOOP x ... END.
--sugar adds *, -, parentheses, DEF and function calls; --enhanced adds ERROR.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}
	cmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	cmd.SetVersionTemplate("looplang version {{.Version}}\n")

	cmd.PersistentFlags().BoolVarP(&opts.sugar, "sugar", "S", false, "enable syntactic sugar")
	cmd.PersistentFlags().BoolVarP(&opts.enhanced, "enhanced", "N", false, "enable the ERROR statement")

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "LOOP program to run (default standard input)")
	cmd.Flags().StringVarP(&opts.preamble, "execute", "e", "", "semicolon separated statements to run first")
	cmd.Flags().StringVarP(&opts.print, "print", "p", "", "comma separated registers to print (default all)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML run configuration file")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum function call depth (0 for unbounded)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: text, json or yaml")

	cmd.AddCommand(newCheckCmd(opts), newReplCmd(opts), newServeCmd(opts))
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	if !types.IsStop(err) {
		msg := err.Error()
		if isTerminal(os.Stderr) {
			msg = red(msg)
		}
		fmt.Fprintln(os.Stderr, msg)
	}
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if types.IsStop(err) {
		return exitStopped
	}
	return exitError
}

// runConfig merges the configuration file with the flags set on cmd.
func runConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("sugar") {
		cfg.Sugar = opts.sugar
	}
	if flags.Changed("enhanced") {
		cfg.Enhanced = opts.enhanced
	}
	if flags.Changed("execute") {
		cfg.Preamble = opts.preamble
	}
	if flags.Changed("print") {
		cfg.Print = splitList(opts.print)
	}
	if flags.Changed("max-depth") {
		cfg.MaxCallDepth = opts.maxDepth
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := runConfig(cmd, opts)
	if err != nil {
		return err
	}

	var src io.Reader = cmd.InOrStdin()
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	regs := types.RegistersFromNumbers(cfg.Registers)
	err = runtime.Execute(cmd.Context(), src, regs, runtime.Options{
		Dialect:      cfg.Dialect(),
		Preamble:     cfg.Preamble,
		MaxCallDepth: cfg.MaxCallDepth,
		Diagnostics:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	return writeRegisters(cmd.OutOrStdout(), regs, cfg.Print, cfg.Output)
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

// errNotAllOK is returned by check when at least one file failed.
var errNotAllOK = errors.New("some files failed to check")
