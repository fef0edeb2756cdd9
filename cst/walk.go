// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cst

// Walk traverses an annotated tree in depth-first order.
// It starts by calling f(n); n must not be nil.
// If f returns true, Walk calls itself
// recursively for each non-nil child of n.
// Walk then calls f(nil).
func Walk(n Node, f func(Node) bool) {
	if n == nil {
		panic("nil")
	}
	if !f(n) {
		return
	}

	switch n := n.(type) {
	case *File:
		walkStmts(n.Stmts, f)

	case *ExprStmt:
		Walk(n.X, f)

	case *BranchStmt:
		// no-op

	case *IfStmt:
		Walk(n.Cond, f)
		walkStmts(n.True, f)
		walkStmts(n.False, f)

	case *AssignStmt:
		Walk(n.LHS, f)
		if n.Type != nil {
			Walk(n.Type, f)
		}
		Walk(n.RHS, f)

	case *DefStmt:
		Walk(n.Name, f)
		walkParams(n.Params, f)
		if n.Ret != nil {
			Walk(n.Ret, f)
		}
		walkStmts(n.Body, f)

	case *Param:
		if n.Name != nil {
			Walk(n.Name, f)
		}
		if n.Type != nil {
			Walk(n.Type, f)
		}
		if n.Default != nil {
			Walk(n.Default, f)
		}

	case *ForStmt:
		Walk(n.Vars, f)
		Walk(n.X, f)
		walkStmts(n.Body, f)

	case *WhileStmt:
		Walk(n.Cond, f)
		walkStmts(n.Body, f)

	case *ReturnStmt:
		if n.Result != nil {
			Walk(n.Result, f)
		}

	case *LoadStmt:
		Walk(n.Module, f)
		for _, name := range n.Names {
			Walk(name.Local, f)
		}

	case *Ident, *AssignIdent, *Literal:
		// no-op

	case *ListExpr:
		walkExprs(n.List, f)

	case *ParenExpr:
		Walk(n.X, f)

	case *CondExpr:
		Walk(n.Cond, f)
		Walk(n.True, f)
		Walk(n.False, f)

	case *IndexExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *DictEntry:
		Walk(n.Key, f)
		Walk(n.Value, f)

	case *SliceExpr:
		Walk(n.X, f)
		if n.Lo != nil {
			Walk(n.Lo, f)
		}
		if n.Hi != nil {
			Walk(n.Hi, f)
		}
		if n.Step != nil {
			Walk(n.Step, f)
		}

	case *Comprehension:
		Walk(n.Body, f)
		for _, clause := range n.Clauses {
			Walk(clause, f)
		}

	case *IfClause:
		Walk(n.Cond, f)

	case *ForClause:
		Walk(n.Vars, f)
		Walk(n.X, f)

	case *TupleExpr:
		walkExprs(n.List, f)

	case *DictExpr:
		for _, entry := range n.List {
			Walk(entry, f)
		}

	case *UnaryExpr:
		if n.X != nil {
			Walk(n.X, f)
		}

	case *BinaryExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *DotExpr:
		Walk(n.X, f)

	case *CallExpr:
		Walk(n.Fn, f)
		for _, arg := range n.Args {
			Walk(arg, f)
		}

	case *Arg:
		Walk(n.Value, f)

	case *LambdaExpr:
		walkParams(n.Params, f)
		Walk(n.Body, f)

	case *TypeExpr:
		Walk(n.Expr, f)

	default:
		panic(n)
	}

	f(nil)
}

func walkStmts(stmts []Stmt, f func(Node) bool) {
	for _, stmt := range stmts {
		Walk(stmt, f)
	}
}

func walkExprs(exprs []Expr, f func(Node) bool) {
	for _, expr := range exprs {
		Walk(expr, f)
	}
}

func walkParams(params []*Param, f func(Node) bool) {
	for _, param := range params {
		Walk(param, f)
	}
}
