// Package runner executes LOOP programs for the HTTP and gRPC servers. It
// applies the server-side limits (wall-clock timeout and call depth) and
// records runs of stored programs in the store.
package runner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/runtime"
	"github.com/lemonberrylabs/looplang/pkg/store"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Defaults used when a Config field is zero.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxCallDepth = 10000
)

// Config bounds every run.
type Config struct {
	Timeout      time.Duration
	MaxCallDepth int
}

// Request is a one-shot program run.
type Request struct {
	Source    string
	Preamble  string
	Registers map[string]uint64
	Dialect   parser.Dialect
}

// Outcome is the result of a run that did not fail. Stopped is set when the
// program executed ERROR; Message then holds its text.
type Outcome struct {
	Registers types.Registers
	Stopped   bool
	Message   string
}

// Runner executes programs under a Config.
type Runner struct {
	store *store.Store
	cfg   Config
}

// New creates a runner backed by s.
func New(s *store.Store, cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	return &Runner{store: s, cfg: cfg}
}

// Store returns the backing store.
func (r *Runner) Store() *store.Store {
	return r.store
}

// Check parses and statically checks source without running it.
func (r *Runner) Check(source string, d parser.Dialect) error {
	_, err := runtime.CompileString(source, d)
	return err
}

// Run executes a one-shot request. A run that exceeds the timeout fails
// with a RuntimeError tagged types.TagTimeout.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	regs := types.RegistersFromNumbers(req.Registers)
	err := runtime.ExecuteString(ctx, req.Source, regs, runtime.Options{
		Dialect:      req.Dialect,
		Preamble:     req.Preamble,
		MaxCallDepth: r.cfg.MaxCallDepth,
		Diagnostics:  io.Discard,
	})

	var stop *types.ProgramStop
	switch {
	case err == nil:
		return &Outcome{Registers: regs}, nil
	case errors.As(err, &stop):
		return &Outcome{Registers: regs, Stopped: true, Message: stop.Message}, nil
	}

	var le *types.LoopError
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.As(err, &le) {
		le.Tags = append(le.Tags, types.TagTimeout)
	}
	return nil, err
}

// RunProgram runs a stored program and records the run. The returned run
// has already reached a final state; err is only set when the run could
// not be created.
func (r *Runner) RunProgram(ctx context.Context, programID string, registers map[string]uint64, preamble string) (*store.Run, error) {
	run, p, err := r.store.StartRun(programID, registers, preamble)
	if err != nil {
		return nil, err
	}

	out, err := r.Run(ctx, Request{
		Source:    p.Source,
		Preamble:  preamble,
		Registers: registers,
		Dialect:   parser.Dialect{Sugar: p.Sugar, Enhanced: p.Enhanced},
	})
	switch {
	case err != nil:
		_ = r.store.FailRun(run.Name, err)
	case out.Stopped:
		_ = r.store.StopRun(run.Name, out.Message, out.Registers.Export())
	default:
		_ = r.store.CompleteRun(run.Name, out.Registers.Export())
	}
	return r.store.GetRun(run.Name)
}

// IsTimeout reports whether err is a run that exceeded its timeout.
func IsTimeout(err error) bool {
	var le *types.LoopError
	return errors.As(err, &le) && le.HasTag(types.TagTimeout)
}
