package check

import (
	"fmt"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Resolve checks a sugar-dialect program: functions must be defined before
// they are called (a function may call itself), may not be redefined, and
// their names may not be used as plain registers.
func Resolve(prog *ast.Block) error {
	return resolveStmt(prog, NewGlobalScope())
}

// ResolveIn resolves prog against functions already recorded in scope and
// records the functions prog defines. Interactive sessions use it to carry
// definitions from one input to the next.
func ResolveIn(prog *ast.Block, scope *GlobalScope) error {
	return resolveStmt(prog, scope)
}

func resolveStmt(stmt ast.Stmt, scope Scope) error {
	switch s := stmt.(type) {
	case *ast.Block:
		for _, child := range s.Stmts {
			if err := resolveStmt(child, scope); err != nil {
				return err
			}
		}
		return nil
	case *ast.Assign:
		fn, ok := s.Expr.(*ast.Lambda)
		if !ok || !s.Definition {
			return resolveExpr(s.Expr, scope, s.Line)
		}
		if scope.IsDefined(s.Target) {
			return types.NewResolveError(s.Line, "cannot redefine function %s", s.Target)
		}
		// Recorded before the body so that the body may call it.
		scope.Define(s.Target)
		return resolveStmt(fn.Body, NewLocalScope(scope))
	case *ast.Discard:
		return resolveExpr(s.Expr, scope, s.Line)
	case *ast.Loop:
		if err := resolveExpr(s.Count, scope, s.Line); err != nil {
			return err
		}
		return resolveStmt(s.Body, scope)
	case *ast.Abort:
		return nil
	default:
		return fmt.Errorf("resolve: unsupported statement type %T", stmt)
	}
}

func resolveExpr(expr ast.Expr, scope Scope, line int) error {
	switch e := expr.(type) {
	case *ast.Constant:
		return nil
	case *ast.Register:
		if scope.IsDefined(e.Name) {
			return types.NewResolveError(line, "cannot use a function name as a value: %s", e.Name)
		}
		return nil
	case *ast.Add:
		return resolveOperands(e.Left, e.Right, scope, line)
	case *ast.Sub:
		return resolveOperands(e.Left, e.Right, scope, line)
	case *ast.Mul:
		return resolveOperands(e.Left, e.Right, scope, line)
	case *ast.Lambda:
		return resolveStmt(e.Body, NewLocalScope(scope))
	case *ast.Call:
		if !scope.IsDefined(e.Name) {
			return types.NewResolveError(line, "call to undefined function %s", e.Name)
		}
		for _, arg := range e.Args {
			if err := resolveExpr(arg, scope, line); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("resolve: unsupported expression type %T", expr)
	}
}

func resolveOperands(left, right ast.Expr, scope Scope, line int) error {
	if err := resolveExpr(left, scope, line); err != nil {
		return err
	}
	return resolveExpr(right, scope, line)
}
