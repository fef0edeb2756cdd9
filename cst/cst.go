// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cst defines the annotated Starlark syntax tree.
//
// A cst.File is isomorphic to the syntax.File it was mapped from, but
// five kinds of node carry compiler payload: uses of names (Ident),
// binding occurrences (AssignIdent), functions (DefStmt, LambdaExpr),
// load statements (LoadStmt) and type annotations (TypeExpr).
// Payloads are filled in two stages. Mapping attaches the scope of each
// function and the interface of each load, and leaves the others unset;
// analysis later sets each binding and resolution exactly once.
package cst

import (
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// A Position describes the location of a rune of input.
type Position = syntax.Position

// A Token identifies an operator or keyword.
type Token = syntax.Token

// advance returns the position just after s, assuming s is on one line.
func advance(p Position, s string) Position {
	p.Col += int32(len(s))
	return p
}

// A Node is a node in an annotated Starlark syntax tree.
type Node interface {
	// Span returns the start and end position of the node.
	Span() (start, end Position)
}

// Start returns the start position of the node.
func Start(n Node) Position {
	start, _ := n.Span()
	return start
}

// End returns the end position of the node.
func End(n Node) Position {
	_, end := n.Span()
	return end
}

// A File represents an annotated Starlark file.
type File struct {
	Path  string
	Stmts []Stmt
}

func (x *File) Span() (start, end Position) {
	if len(x.Stmts) == 0 {
		return
	}
	start, _ = x.Stmts[0].Span()
	_, end = x.Stmts[len(x.Stmts)-1].Span()
	return start, end
}

// A Stmt is a Starlark statement.
type Stmt interface {
	Node
	stmt()
}

func (*AssignStmt) stmt() {}
func (*BranchStmt) stmt() {}
func (*DefStmt) stmt()    {}
func (*ExprStmt) stmt()   {}
func (*ForStmt) stmt()    {}
func (*WhileStmt) stmt()  {}
func (*IfStmt) stmt()     {}
func (*LoadStmt) stmt()   {}
func (*ReturnStmt) stmt() {}

// An AssignStmt represents an assignment:
//
//	x = 0
//	x, y = y, x
//	x += 1
//	x: int = 0
//
type AssignStmt struct {
	OpPos Position
	Op    Token // = EQ | {PLUS,MINUS,STAR,PERCENT}_EQ
	LHS   Expr
	Type  *TypeExpr // optional annotation
	RHS   Expr
}

func (x *AssignStmt) Span() (start, end Position) {
	start, _ = x.LHS.Span()
	_, end = x.RHS.Span()
	return
}

// A ParamKind distinguishes the forms of function parameter.
type ParamKind uint8

const (
	NormalParam  ParamKind = iota // x
	DefaultParam                  // x=dflt
	NoArgsParam                   // bare *
	ArgsParam                     // *args
	KwargsParam                   // **kwargs
)

// A Param is a parameter of a def statement or lambda expression.
type Param struct {
	Kind    ParamKind
	StarPos Position     // position of * or ** (ArgsParam, KwargsParam, NoArgsParam)
	Name    *AssignIdent // nil iff Kind == NoArgsParam
	Type    *TypeExpr    // optional annotation
	Default Expr         // iff Kind == DefaultParam
}

func (x *Param) Span() (start, end Position) {
	switch {
	case x.Name == nil:
		return x.StarPos, advance(x.StarPos, "*")
	case x.Kind == ArgsParam || x.Kind == KwargsParam:
		start = x.StarPos
	default:
		start, _ = x.Name.Span()
	}
	_, end = x.Name.Span()
	if x.Type != nil {
		_, end = x.Type.Span()
	}
	if x.Default != nil {
		_, end = x.Default.Span()
	}
	return start, end
}

// A DefStmt represents a function definition.
type DefStmt struct {
	Def    Position
	Name   *AssignIdent
	Params []*Param
	Ret    *TypeExpr // optional return annotation
	Body   []Stmt

	Scope ScopeID // set when mapped
}

func (x *DefStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return x.Def, end
}

// An ExprStmt is an expression evaluated for side effects.
type ExprStmt struct {
	X Expr
}

func (x *ExprStmt) Span() (start, end Position) {
	return x.X.Span()
}

// An IfStmt is a conditional: If Cond: True; else: False.
// 'elseif' is desugared into a chain of IfStmts.
type IfStmt struct {
	If      Position // IF or ELIF
	Cond    Expr
	True    []Stmt
	ElsePos Position // ELSE or ELIF
	False   []Stmt   // optional
}

func (x *IfStmt) Span() (start, end Position) {
	body := x.False
	if body == nil {
		body = x.True
	}
	_, end = body[len(body)-1].Span()
	return x.If, end
}

// A LoadName is one name imported by a load statement:
// load(Module, "their") binds their as Local, and
// load(Module, local="their") binds it under another name.
type LoadName struct {
	Local    *AssignIdent
	Their    string
	TheirPos Position
}

// A LoadStmt loads another module and binds names from it.
type LoadStmt struct {
	Load   Position
	Module *Literal // a string
	Names  []LoadName
	Rparen Position

	// Interface is the typed surface of the loaded module, or the
	// empty interface if it was not available when mapped.
	Interface *typing.Interface
}

func (x *LoadStmt) Span() (start, end Position) {
	return x.Load, x.Rparen
}

// ModuleName returns the name of the module loaded by this statement.
func (x *LoadStmt) ModuleName() string { return x.Module.Value.(string) }

// A BranchStmt changes the flow of control: break, continue, pass.
type BranchStmt struct {
	Token    Token // = BREAK | CONTINUE | PASS
	TokenPos Position
}

func (x *BranchStmt) Span() (start, end Position) {
	return x.TokenPos, advance(x.TokenPos, x.Token.String())
}

// A ReturnStmt returns from a function.
type ReturnStmt struct {
	Return Position
	Result Expr // may be nil
}

func (x *ReturnStmt) Span() (start, end Position) {
	if x.Result == nil {
		return x.Return, advance(x.Return, "return")
	}
	_, end = x.Result.Span()
	return x.Return, end
}

// A ForStmt represents a loop: for Vars in X: Body.
type ForStmt struct {
	For  Position
	Vars Expr // assignment target
	X    Expr
	Body []Stmt
}

func (x *ForStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return x.For, end
}

// A WhileStmt represents a while loop: while Cond: Body.
type WhileStmt struct {
	While Position
	Cond  Expr
	Body  []Stmt
}

func (x *WhileStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return x.While, end
}

// An Expr is a Starlark expression.
type Expr interface {
	Node
	expr()
}

func (*AssignIdent) expr()   {}
func (*BinaryExpr) expr()    {}
func (*CallExpr) expr()      {}
func (*Comprehension) expr() {}
func (*CondExpr) expr()      {}
func (*DictEntry) expr()     {}
func (*DictExpr) expr()      {}
func (*DotExpr) expr()       {}
func (*Ident) expr()         {}
func (*IndexExpr) expr()     {}
func (*LambdaExpr) expr()    {}
func (*ListExpr) expr()      {}
func (*Literal) expr()       {}
func (*ParenExpr) expr()     {}
func (*SliceExpr) expr()     {}
func (*TupleExpr) expr()     {}
func (*UnaryExpr) expr()     {}

// An Ident is a use of a name.
type Ident struct {
	NamePos Position
	Name    string

	Resolved *ResolvedIdent // nil until analyzed
}

func (x *Ident) Span() (start, end Position) {
	return x.NamePos, advance(x.NamePos, x.Name)
}

// An AssignIdent is a binding occurrence of a name: an assignment
// target, loop variable, parameter, def name, or load binding.
type AssignIdent struct {
	NamePos Position
	Name    string

	Binding BindingID // NoBinding until analyzed
}

func (x *AssignIdent) Span() (start, end Position) {
	return x.NamePos, advance(x.NamePos, x.Name)
}

// A Literal represents a literal string, bytes or number.
type Literal struct {
	Token    Token // = STRING | BYTES | INT | FLOAT
	TokenPos Position
	Raw      string      // uninterpreted text
	Value    interface{} // = string | int64 | *big.Int | float64
}

func (x *Literal) Span() (start, end Position) {
	return x.TokenPos, advance(x.TokenPos, x.Raw)
}

// A ParenExpr represents a parenthesized expression: (X).
type ParenExpr struct {
	Lparen Position
	X      Expr
	Rparen Position
}

func (x *ParenExpr) Span() (start, end Position) {
	return x.Lparen, advance(x.Rparen, ")")
}

// An ArgKind distinguishes the forms of call argument.
type ArgKind uint8

const (
	PositionalArg ArgKind = iota // f(x)
	NamedArg                     // f(name=x)
	ArgsArg                      // f(*x)
	KwargsArg                    // f(**x)
)

// An Arg is an argument of a call expression.
type Arg struct {
	Kind  ArgKind
	Pos   Position // of the name, *, or **; or of Value
	Name  string   // iff Kind == NamedArg
	Value Expr
}

func (x *Arg) Span() (start, end Position) {
	_, end = x.Value.Span()
	if x.Kind == PositionalArg {
		start, _ = x.Value.Span()
		return start, end
	}
	return x.Pos, end
}

// A CallExpr represents a function call expression: Fn(Args).
type CallExpr struct {
	Fn     Expr
	Lparen Position
	Args   []*Arg
	Rparen Position
}

func (x *CallExpr) Span() (start, end Position) {
	start, _ = x.Fn.Span()
	return start, advance(x.Rparen, ")")
}

// A DotExpr represents a field or method selector: X.Name.
type DotExpr struct {
	X       Expr
	Dot     Position
	NamePos Position
	Name    string
}

func (x *DotExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, advance(x.NamePos, x.Name)
}

// A Comprehension represents a list or dict comprehension:
// [Body for ... if ...] or {Body for ... if ...}
type Comprehension struct {
	Curly   bool // {x:y for ...} or {x for ...}, not [x for ...]
	Lbrack  Position
	Body    Expr
	Clauses []Node // = *ForClause | *IfClause
	Rbrack  Position
}

func (x *Comprehension) Span() (start, end Position) {
	return x.Lbrack, advance(x.Rbrack, "]")
}

// A ForClause represents a for clause in a comprehension: for Vars in X.
type ForClause struct {
	For  Position
	Vars Expr // assignment target
	In   Position
	X    Expr
}

func (x *ForClause) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.For, end
}

// An IfClause represents an if clause in a comprehension: if Cond.
type IfClause struct {
	If   Position
	Cond Expr
}

func (x *IfClause) Span() (start, end Position) {
	_, end = x.Cond.Span()
	return x.If, end
}

// A DictExpr represents a dictionary literal: { List }.
type DictExpr struct {
	Lbrace Position
	List   []*DictEntry
	Rbrace Position
}

func (x *DictExpr) Span() (start, end Position) {
	return x.Lbrace, advance(x.Rbrace, "}")
}

// A DictEntry represents a dictionary entry: Key: Value.
// Used only within a DictExpr or as a dict comprehension body.
type DictEntry struct {
	Key   Expr
	Colon Position
	Value Expr
}

func (x *DictEntry) Span() (start, end Position) {
	start, _ = x.Key.Span()
	_, end = x.Value.Span()
	return start, end
}

// A LambdaExpr represents an inline function abstraction.
type LambdaExpr struct {
	Lambda Position
	Params []*Param
	Body   Expr

	Scope ScopeID // set when mapped
}

func (x *LambdaExpr) Span() (start, end Position) {
	_, end = x.Body.Span()
	return x.Lambda, end
}

// A ListExpr represents a list literal: [ List ].
type ListExpr struct {
	Lbrack Position
	List   []Expr
	Rbrack Position
}

func (x *ListExpr) Span() (start, end Position) {
	return x.Lbrack, advance(x.Rbrack, "]")
}

// CondExpr represents the conditional: X if COND else ELSE.
type CondExpr struct {
	If      Position
	Cond    Expr
	True    Expr
	ElsePos Position
	False   Expr
}

func (x *CondExpr) Span() (start, end Position) {
	start, _ = x.True.Span()
	_, end = x.False.Span()
	return start, end
}

// A TupleExpr represents a tuple literal: (List).
type TupleExpr struct {
	Lparen Position // optional (e.g. in x, y = 0, 1), but required if List is empty
	List   []Expr
	Rparen Position
}

func (x *TupleExpr) Span() (start, end Position) {
	if x.Lparen.IsValid() {
		return x.Lparen, x.Rparen
	}
	return Start(x.List[0]), End(x.List[len(x.List)-1])
}

// A UnaryExpr represents a unary expression: Op X.
type UnaryExpr struct {
	OpPos Position
	Op    Token
	X     Expr
}

func (x *UnaryExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.OpPos, end
}

// A BinaryExpr represents a binary expression: X Op Y.
type BinaryExpr struct {
	X     Expr
	OpPos Position
	Op    Token
	Y     Expr
}

func (x *BinaryExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Y.Span()
	return start, end
}

// A SliceExpr represents a slice or substring expression: X[Lo:Hi:Step].
type SliceExpr struct {
	X            Expr
	Lbrack       Position
	Lo, Hi, Step Expr // all optional
	Rbrack       Position
}

func (x *SliceExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, x.Rbrack
}

// An IndexExpr represents an index expression: X[Y].
type IndexExpr struct {
	X      Expr
	Lbrack Position
	Y      Expr
	Rbrack Position
}

func (x *IndexExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, x.Rbrack
}

// A TypeExpr is an expression in type position: a parameter or
// assignment annotation, or a return annotation.
type TypeExpr struct {
	Expr Expr

	Ty *typing.Ty // nil until checked
}

func (x *TypeExpr) Span() (start, end Position) {
	return x.Expr.Span()
}
