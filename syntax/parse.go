// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// This file obtains trees from the go.starlark.net parser and lowers
// them into this package's representation. The parser has no syntax
// for type annotations, so lowered trees never contain a TypeExpr.

import (
	"log"

	starsyntax "go.starlark.net/syntax"
)

// Parse parses the input data and returns the corresponding tree.
//
// If src != nil, Parse parses the source from src and the filename is
// only used when recording position information. The type of the
// argument for the src parameter must be string, []byte, or io.Reader.
// If src == nil, Parse parses the file specified by filename.
func Parse(filename string, src interface{}) (*File, error) {
	f, err := starsyntax.Parse(filename, src, 0)
	if err != nil {
		return nil, err
	}
	return LowerFile(f), nil
}

// ParseCompoundStmt parses a single compound statement: a blank line,
// a def, for, while, or if statement, or a semicolon-separated list of
// simple statements followed by a newline. The readline function is
// called to obtain each line of input.
func ParseCompoundStmt(filename string, readline func() ([]byte, error)) (*File, error) {
	f, err := starsyntax.ParseCompoundStmt(filename, readline)
	if err != nil {
		return nil, err
	}
	return LowerFile(f), nil
}

// ParseExpr parses a Starlark expression.
func ParseExpr(filename string, src interface{}) (Expr, error) {
	e, err := starsyntax.ParseExpr(filename, src, 0)
	if err != nil {
		return nil, err
	}
	return lowerExpr(e), nil
}

// LowerFile converts a file parsed by go.starlark.net/syntax.
// Any resolver annotations already present in f are ignored.
func LowerFile(f *starsyntax.File) *File {
	return &File{Path: f.Path, Stmts: lowerStmts(f.Stmts)}
}

func lowerStmts(stmts []starsyntax.Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	res := make([]Stmt, len(stmts))
	for i, stmt := range stmts {
		res[i] = lowerStmt(stmt)
	}
	return res
}

func lowerStmt(stmt starsyntax.Stmt) Stmt {
	switch stmt := stmt.(type) {
	case *starsyntax.AssignStmt:
		return &AssignStmt{
			OpPos: stmt.OpPos,
			Op:    stmt.Op,
			LHS:   lowerTarget(stmt.LHS),
			RHS:   lowerExpr(stmt.RHS),
		}

	case *starsyntax.BranchStmt:
		return &BranchStmt{Token: stmt.Token, TokenPos: stmt.TokenPos}

	case *starsyntax.DefStmt:
		return &DefStmt{
			Def:    stmt.Def,
			Name:   assignIdent(stmt.Name),
			Params: lowerParams(stmt.Params),
			Body:   lowerStmts(stmt.Body),
		}

	case *starsyntax.ExprStmt:
		return &ExprStmt{X: lowerExpr(stmt.X)}

	case *starsyntax.ForStmt:
		return &ForStmt{
			For:  stmt.For,
			Vars: lowerTarget(stmt.Vars),
			X:    lowerExpr(stmt.X),
			Body: lowerStmts(stmt.Body),
		}

	case *starsyntax.WhileStmt:
		return &WhileStmt{
			While: stmt.While,
			Cond:  lowerExpr(stmt.Cond),
			Body:  lowerStmts(stmt.Body),
		}

	case *starsyntax.IfStmt:
		return &IfStmt{
			If:      stmt.If,
			Cond:    lowerExpr(stmt.Cond),
			True:    lowerStmts(stmt.True),
			ElsePos: stmt.ElsePos,
			False:   lowerStmts(stmt.False),
		}

	case *starsyntax.LoadStmt:
		names := make([]LoadName, len(stmt.To))
		for i, to := range stmt.To {
			names[i] = LoadName{
				Local:    assignIdent(to),
				Their:    stmt.From[i].Name,
				TheirPos: stmt.From[i].NamePos,
			}
		}
		return &LoadStmt{
			Load:   stmt.Load,
			Module: lowerLiteral(stmt.Module),
			Names:  names,
			Rparen: stmt.Rparen,
		}

	case *starsyntax.ReturnStmt:
		var result Expr
		if stmt.Result != nil {
			result = lowerExpr(stmt.Result)
		}
		return &ReturnStmt{Return: stmt.Return, Result: result}
	}
	log.Panicf("unexpected stmt %T", stmt)
	return nil
}

func assignIdent(id *starsyntax.Ident) *AssignIdent {
	return &AssignIdent{NamePos: id.NamePos, Name: id.Name}
}

func lowerLiteral(lit *starsyntax.Literal) *Literal {
	return &Literal{Token: lit.Token, TokenPos: lit.TokenPos, Raw: lit.Raw, Value: lit.Value}
}

// lowerTarget lowers the operand of an assignment, for loop or for
// clause. Names in binding position become *AssignIdent. Expressions
// that cannot be assigned are lowered unchanged and left for the
// resolver to reject.
func lowerTarget(e starsyntax.Expr) Expr {
	switch e := e.(type) {
	case *starsyntax.Ident:
		return assignIdent(e)
	case *starsyntax.TupleExpr:
		return &TupleExpr{Lparen: e.Lparen, List: lowerTargets(e.List), Rparen: e.Rparen}
	case *starsyntax.ListExpr:
		return &ListExpr{Lbrack: e.Lbrack, List: lowerTargets(e.List), Rbrack: e.Rbrack}
	case *starsyntax.ParenExpr:
		return &ParenExpr{Lparen: e.Lparen, X: lowerTarget(e.X), Rparen: e.Rparen}
	}
	return lowerExpr(e)
}

func lowerTargets(list []starsyntax.Expr) []Expr {
	res := make([]Expr, len(list))
	for i, x := range list {
		res[i] = lowerTarget(x)
	}
	return res
}

func lowerParams(params []starsyntax.Expr) []*Param {
	res := make([]*Param, 0, len(params))
	for _, param := range params {
		switch param := param.(type) {
		case *starsyntax.Ident:
			res = append(res, &Param{Kind: NormalParam, Name: assignIdent(param)})
		case *starsyntax.BinaryExpr:
			res = append(res, &Param{
				Kind:    DefaultParam,
				Name:    assignIdent(param.X.(*starsyntax.Ident)),
				Default: lowerExpr(param.Y),
			})
		case *starsyntax.UnaryExpr:
			p := &Param{StarPos: param.OpPos}
			switch {
			case param.X == nil:
				p.Kind = NoArgsParam
			case param.Op == starsyntax.STAR:
				p.Kind = ArgsParam
				p.Name = assignIdent(param.X.(*starsyntax.Ident))
			default:
				p.Kind = KwargsParam
				p.Name = assignIdent(param.X.(*starsyntax.Ident))
			}
			res = append(res, p)
		default:
			log.Panicf("unexpected param %T", param)
		}
	}
	return res
}

func lowerExprs(list []starsyntax.Expr) []Expr {
	if list == nil {
		return nil
	}
	res := make([]Expr, len(list))
	for i, x := range list {
		res[i] = lowerExpr(x)
	}
	return res
}

func lowerOptExpr(e starsyntax.Expr) Expr {
	if e == nil {
		return nil
	}
	return lowerExpr(e)
}

func lowerExpr(e starsyntax.Expr) Expr {
	switch e := e.(type) {
	case *starsyntax.Ident:
		return &Ident{NamePos: e.NamePos, Name: e.Name}

	case *starsyntax.Literal:
		return lowerLiteral(e)

	case *starsyntax.ParenExpr:
		return &ParenExpr{Lparen: e.Lparen, X: lowerExpr(e.X), Rparen: e.Rparen}

	case *starsyntax.BinaryExpr:
		return &BinaryExpr{X: lowerExpr(e.X), OpPos: e.OpPos, Op: e.Op, Y: lowerExpr(e.Y)}

	case *starsyntax.UnaryExpr:
		return &UnaryExpr{OpPos: e.OpPos, Op: e.Op, X: lowerOptExpr(e.X)}

	case *starsyntax.CallExpr:
		args := make([]*Arg, len(e.Args))
		for i, arg := range e.Args {
			args[i] = lowerArg(arg)
		}
		return &CallExpr{Fn: lowerExpr(e.Fn), Lparen: e.Lparen, Args: args, Rparen: e.Rparen}

	case *starsyntax.DotExpr:
		return &DotExpr{X: lowerExpr(e.X), Dot: e.Dot, NamePos: e.NamePos, Name: e.Name.Name}

	case *starsyntax.IndexExpr:
		return &IndexExpr{X: lowerExpr(e.X), Lbrack: e.Lbrack, Y: lowerExpr(e.Y), Rbrack: e.Rbrack}

	case *starsyntax.SliceExpr:
		return &SliceExpr{
			X:      lowerExpr(e.X),
			Lbrack: e.Lbrack,
			Lo:     lowerOptExpr(e.Lo),
			Hi:     lowerOptExpr(e.Hi),
			Step:   lowerOptExpr(e.Step),
			Rbrack: e.Rbrack,
		}

	case *starsyntax.ListExpr:
		return &ListExpr{Lbrack: e.Lbrack, List: lowerExprs(e.List), Rbrack: e.Rbrack}

	case *starsyntax.TupleExpr:
		return &TupleExpr{Lparen: e.Lparen, List: lowerExprs(e.List), Rparen: e.Rparen}

	case *starsyntax.DictExpr:
		entries := make([]*DictEntry, len(e.List))
		for i, entry := range e.List {
			entries[i] = lowerEntry(entry.(*starsyntax.DictEntry))
		}
		return &DictExpr{Lbrace: e.Lbrace, List: entries, Rbrace: e.Rbrace}

	case *starsyntax.DictEntry:
		return lowerEntry(e)

	case *starsyntax.CondExpr:
		return &CondExpr{
			If:      e.If,
			Cond:    lowerExpr(e.Cond),
			True:    lowerExpr(e.True),
			ElsePos: e.ElsePos,
			False:   lowerExpr(e.False),
		}

	case *starsyntax.LambdaExpr:
		return &LambdaExpr{Lambda: e.Lambda, Params: lowerParams(e.Params), Body: lowerExpr(e.Body)}

	case *starsyntax.Comprehension:
		clauses := make([]Node, len(e.Clauses))
		for i, clause := range e.Clauses {
			switch clause := clause.(type) {
			case *starsyntax.ForClause:
				clauses[i] = &ForClause{
					For:  clause.For,
					Vars: lowerTarget(clause.Vars),
					In:   clause.In,
					X:    lowerExpr(clause.X),
				}
			case *starsyntax.IfClause:
				clauses[i] = &IfClause{If: clause.If, Cond: lowerExpr(clause.Cond)}
			default:
				log.Panicf("unexpected clause %T", clause)
			}
		}
		return &Comprehension{
			Curly:   e.Curly,
			Lbrack:  e.Lbrack,
			Body:    lowerExpr(e.Body),
			Clauses: clauses,
			Rbrack:  e.Rbrack,
		}
	}
	log.Panicf("unexpected expr %T", e)
	return nil
}

func lowerEntry(e *starsyntax.DictEntry) *DictEntry {
	return &DictEntry{Key: lowerExpr(e.Key), Colon: e.Colon, Value: lowerExpr(e.Value)}
}

func lowerArg(arg starsyntax.Expr) *Arg {
	pos, _ := arg.Span()
	if unop, ok := arg.(*starsyntax.UnaryExpr); ok && unop.Op == starsyntax.STARSTAR {
		return &Arg{Kind: KwargsArg, Pos: pos, Value: lowerExpr(unop.X)}
	} else if ok && unop.Op == starsyntax.STAR {
		return &Arg{Kind: ArgsArg, Pos: pos, Value: lowerExpr(unop.X)}
	} else if binop, ok := arg.(*starsyntax.BinaryExpr); ok && binop.Op == starsyntax.EQ {
		if id, ok := binop.X.(*starsyntax.Ident); ok {
			return &Arg{Kind: NamedArg, Pos: id.NamePos, Name: id.Name, Value: lowerExpr(binop.Y)}
		}
	}
	return &Arg{Kind: PositionalArg, Pos: pos, Value: lowerExpr(arg)}
}
