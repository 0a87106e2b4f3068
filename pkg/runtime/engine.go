// Package runtime executes checked LOOP programs against a register file.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Options configures compilation and execution.
type Options struct {
	Dialect parser.Dialect

	// Preamble is an optional program run against the same registers
	// before the main program, typically to seed inputs.
	Preamble string

	// MaxCallDepth bounds function call nesting. Zero means unbounded,
	// which lets a runaway recursive program exhaust the host stack.
	MaxCallDepth int

	// Diagnostics receives ERROR messages. Defaults to os.Stderr.
	Diagnostics io.Writer
}

// ErrNilRegisters is returned when a run is given a nil register file.
var ErrNilRegisters = errors.New("runtime: nil register file")

// Engine is a tree-walking executor. An Engine is not safe for concurrent
// use; create one per run.
type Engine struct {
	opts  Options
	diag  io.Writer
	depth int
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}
	return &Engine{opts: opts, diag: diag}
}

// Run executes prog, mutating regs in place. It returns a *types.ProgramStop
// if the program executed ERROR, and a *types.LoopError for runtime faults.
// ctx is only consulted between loop iterations and at calls. regs must be
// non-nil; use types.NewRegisters for an empty file.
func (e *Engine) Run(ctx context.Context, prog *ast.Block, regs types.Registers) error {
	if regs == nil {
		return ErrNilRegisters
	}
	e.depth = 0
	return e.exec(ctx, prog, regs)
}

func (e *Engine) exec(ctx context.Context, stmt ast.Stmt, regs types.Registers) error {
	switch s := stmt.(type) {
	case *ast.Block:
		for _, child := range s.Stmts {
			if err := e.exec(ctx, child, regs); err != nil {
				return err
			}
		}
		return nil

	case *ast.Assign:
		v, err := e.eval(ctx, s.Expr, regs, s.Line)
		if err != nil {
			return err
		}
		regs.Set(s.Target, v)
		return nil

	case *ast.Discard:
		_, err := e.eval(ctx, s.Expr, regs, s.Line)
		return err

	case *ast.Abort:
		if s.HasMessage && s.Message != "" {
			fmt.Fprintln(e.diag, s.Message)
		}
		return &types.ProgramStop{Message: s.Message, Line: s.Line}

	case *ast.Loop:
		cv, err := e.eval(ctx, s.Count, regs, s.Line)
		if err != nil {
			return err
		}
		count, ok := cv.AsNat()
		if !ok {
			return types.NewRuntimeError(s.Line, types.TagTypeError, "loop count %s is a function", s.Count)
		}
		for i := uint64(0); i < count; i++ {
			if err := ctx.Err(); err != nil {
				return types.NewRuntimeError(s.Line, types.TagCancelled, "execution cancelled: %v", err)
			}
			if err := e.exec(ctx, s.Body, regs); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}
