package check

import (
	"fmt"

	"github.com/lemonberrylabs/looplang/pkg/ast"
	"github.com/lemonberrylabs/looplang/pkg/types"
)

// Strict checks a core-dialect program against the restricted grammar:
//
//	x = 0;   x = y;   x = x + 1;   LOOP x; ... END;
//
// A loop whose count is a bare register is accepted without looking at its
// body. Any other loop has its body checked.
func Strict(prog *ast.Block) error {
	return strictStmt(prog)
}

func strictStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Block:
		for _, child := range s.Stmts {
			if err := strictStmt(child); err != nil {
				return err
			}
		}
		return nil
	case *ast.Assign:
		return strictAssign(s)
	case *ast.Loop:
		if _, ok := s.Count.(*ast.Register); ok {
			return nil
		}
		return strictStmt(s.Body)
	case *ast.Discard:
		return types.NewStrictCheckError(s.Line, "function calls are not permitted in strict mode: %s", s.Expr)
	case *ast.Abort:
		return nil
	default:
		return fmt.Errorf("strict check: unsupported statement type %T", stmt)
	}
}

func strictAssign(s *ast.Assign) error {
	switch e := s.Expr.(type) {
	case *ast.Constant:
		if e.Value == 0 {
			return nil
		}
	case *ast.Register:
		return nil
	case *ast.Add:
		lhs, lok := e.Left.(*ast.Register)
		rhs, rok := e.Right.(*ast.Constant)
		if lok && rok && lhs.Name == s.Target && rhs.Value == 1 {
			return nil
		}
		return types.NewStrictCheckError(s.Line, "cannot set %s to %s: only %s = %s + 1 is permitted", s.Target, s.Expr, s.Target, s.Target)
	}
	return types.NewStrictCheckError(s.Line, "cannot set %s to %s", s.Target, s.Expr)
}
