package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/check"
	"github.com/lemonberrylabs/looplang/pkg/parser"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Compile parses a program and runs the static pass selected by the
// dialect: scope resolution with sugar, strict grammar checking without.
func Compile(r io.Reader, d parser.Dialect) (*ast.Block, error) {
	prog, err := parser.Parse(r, d)
	if err != nil {
		return nil, err
	}
	if d.Sugar {
		err = check.Resolve(prog)
	} else {
		err = check.Strict(prog)
	}
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// CompileString is Compile for a source string.
func CompileString(src string, d parser.Dialect) (*ast.Block, error) {
	return Compile(strings.NewReader(src), d)
}

// Execute compiles the preamble (if any) and the program read from r, then
// runs both in that order against regs. Nothing runs unless both compile.
// regs must be non-nil.
func Execute(ctx context.Context, r io.Reader, regs types.Registers, opts Options) error {
	if regs == nil {
		return ErrNilRegisters
	}
	var preamble *ast.Block
	if opts.Preamble != "" {
		p, err := CompileString(opts.Preamble, opts.Dialect)
		if err != nil {
			return fmt.Errorf("preamble: %w", err)
		}
		preamble = p
	}

	prog, err := Compile(r, opts.Dialect)
	if err != nil {
		return err
	}

	engine := NewEngine(opts)
	if preamble != nil {
		if err := engine.Run(ctx, preamble, regs); err != nil {
			return fmt.Errorf("preamble: %w", err)
		}
	}
	return engine.Run(ctx, prog, regs)
}

// ExecuteString is Execute for a source string.
func ExecuteString(ctx context.Context, src string, regs types.Registers, opts Options) error {
	return Execute(ctx, strings.NewReader(src), regs, opts)
}
