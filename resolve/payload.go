// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"log"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// Map converts an untyped tree into an annotated one, filling those
// payloads that are known before analysis.
//
// Each load statement receives the interface of its module from loads,
// or the empty interface if loads has no entry for it. Each def and
// lambda receives a new scope from table, allocated in pre-order with
// the enclosing function as parent. Names, bindings and type
// annotations are left unset for Analyze and the checker.
//
// Map never fails. A missing interface is reported later, when names
// are looked up in it.
func Map(f *syntax.File, loads map[string]*typing.Interface, table *ScopeTable) *cst.File {
	m := &mapper{loads: loads, table: table}
	return &cst.File{Path: f.Path, Stmts: m.stmts(f.Stmts)}
}

type mapper struct {
	loads map[string]*typing.Interface
	table *ScopeTable
	scope cst.ScopeID // innermost enclosing function
}

func (m *mapper) stmts(stmts []syntax.Stmt) []cst.Stmt {
	if stmts == nil {
		return nil
	}
	res := make([]cst.Stmt, len(stmts))
	for i, stmt := range stmts {
		res[i] = m.stmt(stmt)
	}
	return res
}

func (m *mapper) stmt(stmt syntax.Stmt) cst.Stmt {
	switch stmt := stmt.(type) {
	case *syntax.AssignStmt:
		return &cst.AssignStmt{
			OpPos: stmt.OpPos,
			Op:    stmt.Op,
			LHS:   m.expr(stmt.LHS),
			Type:  m.typeExpr(stmt.Type),
			RHS:   m.expr(stmt.RHS),
		}

	case *syntax.BranchStmt:
		return &cst.BranchStmt{Token: stmt.Token, TokenPos: stmt.TokenPos}

	case *syntax.DefStmt:
		def := &cst.DefStmt{
			Def:   stmt.Def,
			Name:  assignIdent(stmt.Name),
			Scope: m.table.NewScope(m.scope, stmt.Def, stmt.Name.Name),
		}
		// Defaults and annotations belong to the enclosing scope.
		def.Params = m.params(stmt.Params)
		def.Ret = m.typeExpr(stmt.Ret)
		outer := m.scope
		m.scope = def.Scope
		def.Body = m.stmts(stmt.Body)
		m.scope = outer
		return def

	case *syntax.ExprStmt:
		return &cst.ExprStmt{X: m.expr(stmt.X)}

	case *syntax.ForStmt:
		return &cst.ForStmt{
			For:  stmt.For,
			Vars: m.expr(stmt.Vars),
			X:    m.expr(stmt.X),
			Body: m.stmts(stmt.Body),
		}

	case *syntax.WhileStmt:
		return &cst.WhileStmt{While: stmt.While, Cond: m.expr(stmt.Cond), Body: m.stmts(stmt.Body)}

	case *syntax.IfStmt:
		return &cst.IfStmt{
			If:      stmt.If,
			Cond:    m.expr(stmt.Cond),
			True:    m.stmts(stmt.True),
			ElsePos: stmt.ElsePos,
			False:   m.stmts(stmt.False),
		}

	case *syntax.LoadStmt:
		iface, ok := m.loads[stmt.ModuleName()]
		if !ok || iface == nil {
			iface = typing.EmptyInterface()
		}
		names := make([]cst.LoadName, len(stmt.Names))
		for i, name := range stmt.Names {
			names[i] = cst.LoadName{
				Local:    assignIdent(name.Local),
				Their:    name.Their,
				TheirPos: name.TheirPos,
			}
		}
		return &cst.LoadStmt{
			Load:      stmt.Load,
			Module:    literal(stmt.Module),
			Names:     names,
			Rparen:    stmt.Rparen,
			Interface: iface,
		}

	case *syntax.ReturnStmt:
		return &cst.ReturnStmt{Return: stmt.Return, Result: m.optExpr(stmt.Result)}
	}
	log.Panicf("unexpected stmt %T", stmt)
	return nil
}

func assignIdent(id *syntax.AssignIdent) *cst.AssignIdent {
	if id == nil {
		return nil
	}
	return &cst.AssignIdent{NamePos: id.NamePos, Name: id.Name}
}

func literal(lit *syntax.Literal) *cst.Literal {
	return &cst.Literal{Token: lit.Token, TokenPos: lit.TokenPos, Raw: lit.Raw, Value: lit.Value}
}

func (m *mapper) typeExpr(t *syntax.TypeExpr) *cst.TypeExpr {
	if t == nil {
		return nil
	}
	return &cst.TypeExpr{Expr: m.expr(t.Expr)}
}

func (m *mapper) params(params []*syntax.Param) []*cst.Param {
	if params == nil {
		return nil
	}
	res := make([]*cst.Param, len(params))
	for i, p := range params {
		res[i] = &cst.Param{
			Kind:    cst.ParamKind(p.Kind),
			StarPos: p.StarPos,
			Name:    assignIdent(p.Name),
			Type:    m.typeExpr(p.Type),
			Default: m.optExpr(p.Default),
		}
	}
	return res
}

func (m *mapper) exprs(list []syntax.Expr) []cst.Expr {
	if list == nil {
		return nil
	}
	res := make([]cst.Expr, len(list))
	for i, x := range list {
		res[i] = m.expr(x)
	}
	return res
}

func (m *mapper) optExpr(e syntax.Expr) cst.Expr {
	if e == nil {
		return nil
	}
	return m.expr(e)
}

func (m *mapper) expr(e syntax.Expr) cst.Expr {
	switch e := e.(type) {
	case *syntax.Ident:
		return &cst.Ident{NamePos: e.NamePos, Name: e.Name}

	case *syntax.AssignIdent:
		return assignIdent(e)

	case *syntax.Literal:
		return literal(e)

	case *syntax.ParenExpr:
		return &cst.ParenExpr{Lparen: e.Lparen, X: m.expr(e.X), Rparen: e.Rparen}

	case *syntax.BinaryExpr:
		return &cst.BinaryExpr{X: m.expr(e.X), OpPos: e.OpPos, Op: e.Op, Y: m.expr(e.Y)}

	case *syntax.UnaryExpr:
		return &cst.UnaryExpr{OpPos: e.OpPos, Op: e.Op, X: m.optExpr(e.X)}

	case *syntax.CallExpr:
		args := make([]*cst.Arg, len(e.Args))
		for i, arg := range e.Args {
			args[i] = &cst.Arg{
				Kind:  cst.ArgKind(arg.Kind),
				Pos:   arg.Pos,
				Name:  arg.Name,
				Value: m.expr(arg.Value),
			}
		}
		return &cst.CallExpr{Fn: m.expr(e.Fn), Lparen: e.Lparen, Args: args, Rparen: e.Rparen}

	case *syntax.DotExpr:
		return &cst.DotExpr{X: m.expr(e.X), Dot: e.Dot, NamePos: e.NamePos, Name: e.Name}

	case *syntax.IndexExpr:
		return &cst.IndexExpr{X: m.expr(e.X), Lbrack: e.Lbrack, Y: m.expr(e.Y), Rbrack: e.Rbrack}

	case *syntax.SliceExpr:
		return &cst.SliceExpr{
			X:      m.expr(e.X),
			Lbrack: e.Lbrack,
			Lo:     m.optExpr(e.Lo),
			Hi:     m.optExpr(e.Hi),
			Step:   m.optExpr(e.Step),
			Rbrack: e.Rbrack,
		}

	case *syntax.ListExpr:
		return &cst.ListExpr{Lbrack: e.Lbrack, List: m.exprs(e.List), Rbrack: e.Rbrack}

	case *syntax.TupleExpr:
		return &cst.TupleExpr{Lparen: e.Lparen, List: m.exprs(e.List), Rparen: e.Rparen}

	case *syntax.DictExpr:
		entries := make([]*cst.DictEntry, len(e.List))
		for i, entry := range e.List {
			entries[i] = m.entry(entry)
		}
		return &cst.DictExpr{Lbrace: e.Lbrace, List: entries, Rbrace: e.Rbrace}

	case *syntax.DictEntry:
		return m.entry(e)

	case *syntax.CondExpr:
		return &cst.CondExpr{
			If:      e.If,
			Cond:    m.expr(e.Cond),
			True:    m.expr(e.True),
			ElsePos: e.ElsePos,
			False:   m.expr(e.False),
		}

	case *syntax.LambdaExpr:
		lambda := &cst.LambdaExpr{
			Lambda: e.Lambda,
			Scope:  m.table.NewScope(m.scope, e.Lambda, "lambda"),
		}
		lambda.Params = m.params(e.Params)
		outer := m.scope
		m.scope = lambda.Scope
		lambda.Body = m.expr(e.Body)
		m.scope = outer
		return lambda

	case *syntax.Comprehension:
		clauses := make([]cst.Node, len(e.Clauses))
		for i, clause := range e.Clauses {
			switch clause := clause.(type) {
			case *syntax.ForClause:
				clauses[i] = &cst.ForClause{
					For:  clause.For,
					Vars: m.expr(clause.Vars),
					In:   clause.In,
					X:    m.expr(clause.X),
				}
			case *syntax.IfClause:
				clauses[i] = &cst.IfClause{If: clause.If, Cond: m.expr(clause.Cond)}
			default:
				log.Panicf("unexpected clause %T", clause)
			}
		}
		return &cst.Comprehension{
			Curly:   e.Curly,
			Lbrack:  e.Lbrack,
			Body:    m.expr(e.Body),
			Clauses: clauses,
			Rbrack:  e.Rbrack,
		}
	}
	log.Panicf("unexpected expr %T", e)
	return nil
}

func (m *mapper) entry(e *syntax.DictEntry) *cst.DictEntry {
	return &cst.DictEntry{Key: m.expr(e.Key), Colon: e.Colon, Value: m.expr(e.Value)}
}
