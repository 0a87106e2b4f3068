package runtime

import (
	"context"
	"fmt"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// eval evaluates an expression. line is the line of the enclosing
// statement, used in error messages.
func (e *Engine) eval(ctx context.Context, expr ast.Expr, regs types.Registers, line int) (types.Value, error) {
	switch n := expr.(type) {
	case *ast.Constant:
		return types.NewNat(n.Value), nil
	case *ast.Register:
		return regs.Get(n.Name), nil
	case *ast.Add:
		return e.evalArith(ctx, n.Left, n.Right, regs, line, func(a, b uint64) uint64 { return a + b })
	case *ast.Sub:
		return e.evalArith(ctx, n.Left, n.Right, regs, line, func(a, b uint64) uint64 {
			if b > a {
				return 0
			}
			return a - b
		})
	case *ast.Mul:
		return e.evalArith(ctx, n.Left, n.Right, regs, line, func(a, b uint64) uint64 { return a * b })
	case *ast.Lambda:
		return types.NewFunc(n), nil
	case *ast.Call:
		return e.call(ctx, n, regs, line)
	default:
		return types.Zero, fmt.Errorf("unsupported expression node type: %T", expr)
	}
}

func (e *Engine) evalArith(ctx context.Context, left, right ast.Expr, regs types.Registers, line int, op func(a, b uint64) uint64) (types.Value, error) {
	lv, err := e.eval(ctx, left, regs, line)
	if err != nil {
		return types.Zero, err
	}
	rv, err := e.eval(ctx, right, regs, line)
	if err != nil {
		return types.Zero, err
	}
	a, aOk := lv.AsNat()
	b, bOk := rv.AsNat()
	if !aOk || !bOk {
		return types.Zero, types.NewRuntimeError(line, types.TagTypeError,
			"unsupported operands %s and %s: arithmetic on a function value", left, right)
	}
	return types.NewNat(op(a, b)), nil
}

// call invokes a function with dynamic scoping. Parameters and the result
// register live in the caller's register file: their previous values are
// saved, parameters are overwritten with the arguments, and after the body
// runs only the parameters are restored. The result register keeps the
// value the function left in it, unless it is also a parameter, in which
// case the result is read first and the register is then restored.
func (e *Engine) call(ctx context.Context, c *ast.Call, regs types.Registers, line int) (types.Value, error) {
	fn := regs.Get(c.Name).AsFunc()
	if fn == nil {
		return types.Zero, types.NewRuntimeError(line, types.TagTypeError, "%s is not a function", c.Name)
	}
	if len(c.Args) != len(fn.Params) {
		return types.Zero, types.NewRuntimeError(line, types.TagArityError,
			"%s expects %d argument(s), got %d", fn.Signature(), len(fn.Params), len(c.Args))
	}

	args := make([]types.Value, len(c.Args))
	for i, arg := range c.Args {
		v, err := e.eval(ctx, arg, regs, line)
		if err != nil {
			return types.Zero, err
		}
		args[i] = v
	}

	if err := ctx.Err(); err != nil {
		return types.Zero, types.NewRuntimeError(line, types.TagCancelled, "execution cancelled: %v", err)
	}
	if e.opts.MaxCallDepth > 0 && e.depth >= e.opts.MaxCallDepth {
		return types.Zero, types.NewRecursionError(line, e.opts.MaxCallDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	saved := make([]types.Value, len(fn.Params))
	for i, p := range fn.Params {
		saved[i] = regs.Materialize(p)
	}
	if fn.Result != "" {
		regs.Materialize(fn.Result)
	}
	for i, p := range fn.Params {
		regs.Set(p, args[i])
	}

	if err := e.exec(ctx, fn.Body, regs); err != nil {
		return types.Zero, err
	}

	result := types.Zero
	if fn.Result != "" {
		result = regs.Get(fn.Result)
	}
	for i, p := range fn.Params {
		regs.Set(p, saved[i])
	}
	return result, nil
}
