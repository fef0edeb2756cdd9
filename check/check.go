// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package check infers the types of the variables and expressions of
// an analyzed module and reports the problems it can prove.
//
// The checker consumes the annotated tree produced by resolve.Map and
// resolve.Analyze. The type of a variable is the union of the types of
// the values assigned to it, unless one of its bindings carries a type
// annotation, in which case the annotations decide. Member access,
// indexing, slicing and iteration are answered by a typing.Oracle.
//
// Problems are reported only where no execution could succeed: an
// attribute that no alternative of the operand's type has, a constant
// tuple index out of range, a load of a symbol the module does not
// export. Everything else is given the type Any.
package check

import (
	"fmt"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/internal/spell"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"

	"go.starlark.net/starlark"
)

// Config is the environment of the module being checked.
type Config struct {
	// Oracle answers attribute queries. If nil, typing.StarlarkOracle
	// is used.
	Oracle typing.Oracle

	// Predeclared gives the types of the module's predeclared names.
	// Names absent from it have type Any.
	Predeclared map[string]typing.Ty

	// Loads gives the interfaces of the modules that may be loaded. A
	// load of a module absent from it is reported. If Loads is nil,
	// loads are not checked.
	Loads map[string]*typing.Interface

	// Globals gives the types of globals defined by earlier chunks,
	// as in a REPL. A carried global that is not assigned in this
	// chunk keeps its type.
	Globals map[string]typing.Ty
}

// A Result holds the outcome of checking one module.
type Result struct {
	Diagnostics []Diagnostic
	Bindings    map[cst.BindingID]typing.Ty
}

// TypeOf returns the inferred type of b. Its signature suits
// resolve.Publish.
func (r *Result) TypeOf(b *resolve.Binding) (typing.Ty, bool) {
	t, ok := r.Bindings[b.ID]
	return t, ok
}

// File checks the analyzed file f, whose resolver information is m.
func File(f *cst.File, m *resolve.Module, cfg *Config) *Result {
	return New(f, m, cfg).Check()
}

// A Checker infers types for one module. Types are computed on demand
// and memoized, so a Checker may be queried after Check returns.
type Checker struct {
	file  *cst.File
	table *resolve.ScopeTable
	cfg   Config
	ctx   typing.OracleCtx

	sites    map[cst.BindingID][]site
	bindings map[cst.BindingID]typing.Ty
	pending  map[cst.BindingID]bool // bindings being computed
	exprs    map[cst.Expr]typing.Ty
	iters    map[cst.Expr]typing.Ty // element types of iterated operands
	results  []typing.Ty            // innermost def's declared result, if any

	diags []Diagnostic
}

// A site is one place where a binding receives a value.
type site struct {
	ty        func() typing.Ty
	annotated bool
}

// New returns a checker for f.
func New(f *cst.File, m *resolve.Module, cfg *Config) *Checker {
	c := &Checker{
		file:     f,
		table:    m.Table,
		sites:    make(map[cst.BindingID][]site),
		bindings: make(map[cst.BindingID]typing.Ty),
		pending:  make(map[cst.BindingID]bool),
		exprs:    make(map[cst.Expr]typing.Ty),
		iters:    make(map[cst.Expr]typing.Ty),
	}
	if cfg != nil {
		c.cfg = *cfg
	}
	if c.cfg.Oracle == nil {
		c.cfg.Oracle = typing.StarlarkOracle{}
	}
	c.ctx = typing.OracleCtx{Oracle: c.cfg.Oracle}
	c.collect(f.Stmts)
	return c
}

// Check visits the whole module, reporting problems, and returns the
// types of all its bindings.
func (c *Checker) Check() *Result {
	c.stmts(c.file.Stmts)
	res := &Result{Bindings: make(map[cst.BindingID]typing.Ty)}
	if c.table != nil {
		for _, b := range c.table.Bindings() {
			res.Bindings[b.ID] = c.bindingType(b.ID)
		}
	}
	Sort(c.diags)
	res.Diagnostics = c.diags
	return res
}

// TypeOf returns the type of the expression e.
func (c *Checker) TypeOf(e cst.Expr) typing.Ty { return c.expr(e) }

// BindingType returns the type of the variable id.
func (c *Checker) BindingType(id cst.BindingID) typing.Ty { return c.bindingType(id) }

func (c *Checker) errorf(n cst.Node, code, format string, args ...interface{}) {
	c.report(n, Error, code, fmt.Sprintf(format, args...))
}

func (c *Checker) warnf(n cst.Node, code, format string, args ...interface{}) {
	c.report(n, Warning, code, fmt.Sprintf(format, args...))
}

func (c *Checker) report(n cst.Node, sev Severity, code, msg string) {
	start, end := n.Span()
	c.diags = append(c.diags, Diagnostic{Pos: start, End: end, Severity: sev, Code: code, Msg: msg})
}

// ---- binding sites ----

// collect records every site at which a binding receives a value.
func (c *Checker) collect(stmts []cst.Stmt) {
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *cst.AssignStmt:
			c.collectExpr(stmt.RHS)
			if stmt.Op != syntax.EQ {
				continue // augmented assignments preserve the type
			}
			if stmt.Type != nil {
				if id, ok := stmt.LHS.(*cst.AssignIdent); ok {
					t := stmt.Type
					c.addSite(id, site{ty: func() typing.Ty { return c.annotation(t) }, annotated: true})
					continue
				}
			}
			rhs := stmt.RHS
			c.target(stmt.LHS, func() typing.Ty { return c.expr(rhs) })

		case *cst.DefStmt:
			c.collectParams(stmt.Params)
			ret := stmt.Ret
			c.addSite(stmt.Name, site{ty: func() typing.Ty {
				if ret == nil {
					return funcOf(typing.Any())
				}
				return funcOf(c.annotation(ret))
			}})
			c.collect(stmt.Body)

		case *cst.ExprStmt:
			c.collectExpr(stmt.X)

		case *cst.ForStmt:
			c.collectExpr(stmt.X)
			x := stmt.X
			c.target(stmt.Vars, func() typing.Ty { return c.iterate(x) })
			c.collect(stmt.Body)

		case *cst.WhileStmt:
			c.collectExpr(stmt.Cond)
			c.collect(stmt.Body)

		case *cst.IfStmt:
			c.collectExpr(stmt.Cond)
			c.collect(stmt.True)
			c.collect(stmt.False)

		case *cst.LoadStmt:
			for _, name := range stmt.Names {
				iface, their := stmt.Interface, name.Their
				c.addSite(name.Local, site{ty: func() typing.Ty {
					if t, ok := iface.Get(their); ok {
						return t
					}
					return typing.Any()
				}})
			}

		case *cst.ReturnStmt:
			c.collectExpr(stmt.Result)
		}
	}
}

// collectExpr records the sites within comprehensions and lambdas.
func (c *Checker) collectExpr(e cst.Expr) {
	if e == nil {
		return
	}
	cst.Walk(e, func(n cst.Node) bool {
		switch n := n.(type) {
		case *cst.ForClause:
			x := n.X
			c.target(n.Vars, func() typing.Ty { return c.iterate(x) })
		case *cst.LambdaExpr:
			c.collectParams(n.Params)
		}
		return true
	})
}

func (c *Checker) collectParams(params []*cst.Param) {
	for _, p := range params {
		if p.Name == nil {
			continue
		}
		c.collectExpr(p.Default)
		p := p
		c.addSite(p.Name, site{ty: func() typing.Ty { return c.paramType(p) }, annotated: p.Type != nil})
	}
}

func (c *Checker) paramType(p *cst.Param) typing.Ty {
	var t typing.Ty
	switch {
	case p.Type != nil:
		t = c.annotation(p.Type)
	case p.Default != nil:
		t = c.expr(p.Default)
	default:
		t = typing.Any()
	}
	switch p.Kind {
	case cst.ArgsParam:
		return typing.Any() // a tuple of unknown arity
	case cst.KwargsParam:
		return typing.Of(typing.DictOf(stringTy, t))
	}
	return t
}

func (c *Checker) addSite(id *cst.AssignIdent, s site) {
	if id == nil || id.Binding == cst.NoBinding {
		return
	}
	c.sites[id.Binding] = append(c.sites[id.Binding], s)
}

// target records the sites of an assignment of a value of type ty to
// lhs, destructuring tuples and lists.
func (c *Checker) target(lhs cst.Expr, ty func() typing.Ty) {
	switch lhs := lhs.(type) {
	case *cst.AssignIdent:
		c.addSite(lhs, site{ty: ty})
	case *cst.ParenExpr:
		c.target(lhs.X, ty)
	case *cst.TupleExpr:
		c.targets(lhs.List, ty)
	case *cst.ListExpr:
		c.targets(lhs.List, ty)
	}
}

func (c *Checker) targets(list []cst.Expr, ty func() typing.Ty) {
	for i, elem := range list {
		i := i
		c.target(elem, func() typing.Ty { return c.component(ty(), i) })
	}
}

// component returns the type of the ith element of a value of type t
// that is unpacked by assignment.
func (c *Checker) component(t typing.Ty, i int) typing.Ty {
	if t.IsAny() {
		return t
	}
	var res []typing.Ty
	for _, b := range t.Basics() {
		switch b.(type) {
		case typing.Tuple, typing.List:
			res = append(res, typing.Indexed(b, i))
		default:
			res = append(res, c.elemType(typing.Of(b)))
		}
	}
	return typing.Union(res...)
}

// bindingType returns the type of a variable: the union of its
// annotations if it has any, and of the types assigned to it otherwise.
func (c *Checker) bindingType(id cst.BindingID) typing.Ty {
	if t, ok := c.bindings[id]; ok {
		return t
	}
	carried, isCarried := c.carried(id)
	if c.pending[id] {
		if isCarried {
			return carried
		}
		return typing.Any() // recursive definition
	}
	c.pending[id] = true
	defer delete(c.pending, id)

	sites := c.sites[id]
	var annotated, assigned []typing.Ty
	for _, s := range sites {
		if s.annotated {
			annotated = append(annotated, s.ty())
		} else {
			assigned = append(assigned, s.ty())
		}
	}
	var t typing.Ty
	switch {
	case len(annotated) > 0:
		t = typing.Union(annotated...)
	case len(assigned) > 0:
		t = typing.Union(assigned...)
	case isCarried:
		t = carried
	default:
		t = typing.Any()
	}
	c.bindings[id] = t
	return t
}

// carried returns the type of a global from an earlier chunk.
func (c *Checker) carried(id cst.BindingID) (typing.Ty, bool) {
	if c.cfg.Globals == nil || c.table == nil {
		return typing.Ty{}, false
	}
	b := c.table.Binding(id)
	if b == nil || b.Scope != resolve.Global {
		return typing.Ty{}, false
	}
	t, ok := c.cfg.Globals[b.Name]
	return t, ok
}

// ---- statements ----

func (c *Checker) stmts(stmts []cst.Stmt) {
	for _, stmt := range stmts {
		c.stmt(stmt)
	}
}

func (c *Checker) stmt(stmt cst.Stmt) {
	switch stmt := stmt.(type) {
	case *cst.AssignStmt:
		rhs := c.expr(stmt.RHS)
		c.lhs(stmt.LHS)
		if stmt.Type != nil {
			want := c.annotation(stmt.Type)
			c.conform(stmt.RHS, rhs, want)
		}

	case *cst.BranchStmt:
		// nop

	case *cst.DefStmt:
		c.params(stmt.Params)
		result := typing.Any()
		if stmt.Ret != nil {
			result = c.annotation(stmt.Ret)
		}
		c.results = append(c.results, result)
		c.stmts(stmt.Body)
		c.results = c.results[:len(c.results)-1]

	case *cst.ExprStmt:
		c.expr(stmt.X)

	case *cst.ForStmt:
		c.iterate(stmt.X)
		c.lhs(stmt.Vars)
		c.stmts(stmt.Body)

	case *cst.WhileStmt:
		c.expr(stmt.Cond)
		c.stmts(stmt.Body)

	case *cst.IfStmt:
		c.expr(stmt.Cond)
		c.stmts(stmt.True)
		c.stmts(stmt.False)

	case *cst.LoadStmt:
		c.load(stmt)

	case *cst.ReturnStmt:
		t := noneTy
		if stmt.Result != nil {
			t = c.expr(stmt.Result)
		}
		if n := len(c.results); n > 0 && stmt.Result != nil {
			c.conform(stmt.Result, t, c.results[n-1])
		}
	}
}

func (c *Checker) load(stmt *cst.LoadStmt) {
	if c.cfg.Loads == nil {
		return
	}
	module := stmt.Module.Value.(string)
	iface, ok := c.cfg.Loads[module]
	if !ok {
		c.errorf(stmt.Module, CodeUnknownModule, "cannot load %s: unknown module", stmt.Module.Raw)
		return
	}
	if iface == nil {
		iface = typing.EmptyInterface()
	}
	for _, name := range stmt.Names {
		if _, ok := iface.Get(name.Their); ok {
			continue
		}
		msg := fmt.Sprintf("module %s has no symbol %s", stmt.Module.Raw, name.Their)
		if n := spell.Nearest(name.Their, iface.Names()); n != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", n)
		}
		c.diags = append(c.diags, Diagnostic{
			Pos:      name.TheirPos,
			End:      name.TheirPos,
			Severity: Error,
			Code:     CodeMissingSymbol,
			Msg:      msg,
		})
	}
}

func (c *Checker) params(params []*cst.Param) {
	for _, p := range params {
		if p.Type != nil {
			c.annotation(p.Type)
		}
		if p.Default != nil {
			t := c.expr(p.Default)
			if p.Type != nil {
				c.conform(p.Default, t, c.annotation(p.Type))
			}
		}
	}
}

// lhs checks the operands of the non-identifier targets of an assignment.
func (c *Checker) lhs(e cst.Expr) {
	switch e := e.(type) {
	case *cst.ParenExpr:
		c.lhs(e.X)
	case *cst.TupleExpr:
		for _, x := range e.List {
			c.lhs(x)
		}
	case *cst.ListExpr:
		for _, x := range e.List {
			c.lhs(x)
		}
	case *cst.IndexExpr:
		c.expr(e.X)
		c.expr(e.Y)
	case *cst.DotExpr:
		c.expr(e.X)
	}
}

// annotation returns the type denoted by t, evaluating it once.
func (c *Checker) annotation(t *cst.TypeExpr) typing.Ty {
	if t.Ty == nil {
		ty := c.typeExpr(t.Expr)
		t.Ty = &ty
	}
	return *t.Ty
}

// conform warns if no value of type got can have type want.
func (c *Checker) conform(e cst.Expr, got, want typing.Ty) {
	if compatible(got, want) {
		return
	}
	c.warnf(e, CodeTypeMismatch, "value of type %s does not match declared type %s", got, want)
}

// compatible reports whether some value of type got may have type want.
// Only builtin shapes are compared; nominal and custom types match
// anything.
func compatible(got, want typing.Ty) bool {
	if got.IsAny() || want.IsAny() || got.IsNever() {
		return true
	}
	for _, g := range got.Basics() {
		for _, w := range want.Basics() {
			if basicCompatible(g, w) {
				return true
			}
		}
	}
	return false
}

func basicCompatible(g, w typing.Basic) bool {
	if !concrete(g) || !concrete(w) {
		return true
	}
	if typing.EqualBasic(g, w) {
		return true
	}
	gn, gok := typing.AsName(g)
	wn, wok := typing.AsName(w)
	if gok && wok && gn == wn {
		return true // e.g. [int] and [Any]
	}
	return typing.EqualBasic(g, typing.IntType()) && typing.EqualBasic(w, typing.FloatType())
}

func concrete(b typing.Basic) bool {
	switch b.(type) {
	case typing.HostValue, typing.List, typing.Tuple, typing.Dict:
		return true
	}
	return false
}

// ---- expressions ----

// expr returns the type of e, checking it on first visit.
func (c *Checker) expr(e cst.Expr) typing.Ty {
	if e == nil {
		return typing.Any()
	}
	if t, ok := c.exprs[e]; ok {
		return t
	}
	// Provisional entry: a self-referential expression sees Any.
	c.exprs[e] = typing.Any()
	t := c.expr1(e)
	c.exprs[e] = t
	return t
}

func (c *Checker) expr1(e cst.Expr) typing.Ty {
	switch e := e.(type) {
	case *cst.Ident:
		return c.ident(e)

	case *cst.AssignIdent:
		return c.bindingType(e.Binding)

	case *cst.Literal:
		switch e.Token {
		case syntax.STRING:
			return stringTy
		case syntax.BYTES:
			return bytesTy
		case syntax.INT:
			return intTy
		case syntax.FLOAT:
			return floatTy
		}
		return typing.Any()

	case *cst.ParenExpr:
		return c.expr(e.X)

	case *cst.ListExpr:
		return typing.Of(typing.ListOf(joinOrAny(c.exprList(e.List))))

	case *cst.TupleExpr:
		return typing.Of(typing.TupleOf(c.exprList(e.List)...))

	case *cst.DictExpr:
		var keys, values []typing.Ty
		for _, entry := range e.List {
			keys = append(keys, c.expr(entry.Key))
			values = append(values, c.expr(entry.Value))
		}
		return typing.Of(typing.DictOf(joinOrAny(keys), joinOrAny(values)))

	case *cst.DictEntry:
		c.expr(e.Key)
		c.expr(e.Value)
		return typing.Any()

	case *cst.Comprehension:
		for _, clause := range e.Clauses {
			switch clause := clause.(type) {
			case *cst.ForClause:
				c.iterate(clause.X)
				c.lhs(clause.Vars)
			case *cst.IfClause:
				c.expr(clause.Cond)
			}
		}
		if entry, ok := e.Body.(*cst.DictEntry); ok {
			return typing.Of(typing.DictOf(c.expr(entry.Key), c.expr(entry.Value)))
		}
		body := c.expr(e.Body)
		if e.Curly {
			return typing.Of(typing.HostValueOf(starlark.NewSet(0)))
		}
		return typing.Of(typing.ListOf(body))

	case *cst.CondExpr:
		c.expr(e.Cond)
		return typing.Union(c.expr(e.True), c.expr(e.False))

	case *cst.LambdaExpr:
		c.params(e.Params)
		return funcOf(c.expr(e.Body))

	case *cst.DotExpr:
		return c.dot(e)

	case *cst.IndexExpr:
		return c.index(e)

	case *cst.SliceExpr:
		x := c.expr(e.X)
		for _, y := range []cst.Expr{e.Lo, e.Hi, e.Step} {
			if y != nil {
				c.expr(y)
			}
		}
		return c.attr(e, x, typing.SliceAttr, "cannot slice %s")

	case *cst.CallExpr:
		return c.call(e)

	case *cst.UnaryExpr:
		x := c.expr(e.X)
		switch e.Op {
		case syntax.NOT:
			return boolTy
		case syntax.MINUS, syntax.PLUS, syntax.TILDE:
			if isNumeric(x) {
				return x
			}
		}
		return typing.Any()

	case *cst.BinaryExpr:
		return c.binary(e.Op, c.expr(e.X), c.expr(e.Y))
	}
	return typing.Any()
}

func (c *Checker) exprList(list []cst.Expr) []typing.Ty {
	res := make([]typing.Ty, len(list))
	for i, x := range list {
		res[i] = c.expr(x)
	}
	return res
}

func (c *Checker) ident(id *cst.Ident) typing.Ty {
	r := id.Resolved
	if r == nil {
		return typing.Any()
	}
	switch r.Kind {
	case cst.Local, cst.Module, cst.Imported:
		return c.bindingType(r.Binding)
	case cst.Predeclared:
		if t, ok := c.cfg.Predeclared[r.Name]; ok {
			return t
		}
	case cst.Universal:
		return universeType(r.Name)
	}
	return typing.Any()
}

func (c *Checker) dot(e *cst.DotExpr) typing.Ty {
	x := c.expr(e.X)
	t, err := x.Attribute(typing.Named(e.Name), c.ctx)
	if err == nil {
		return t
	}
	if typing.IsImpossible(err) {
		msg := fmt.Sprintf("%s has no .%s field or method", x, e.Name)
		if n := spell.Nearest(e.Name, attrNames(x)); n != "" {
			msg += fmt.Sprintf(" (did you mean .%s?)", n)
		}
		c.report(e, Error, CodeNoAttribute, msg)
	}
	return typing.Any()
}

// attrNames returns the known field and method names of type t, for
// spelling hints.
func attrNames(t typing.Ty) []string {
	var names []string
	for _, b := range t.Basics() {
		switch b := b.(type) {
		case typing.HostValue:
			if x, ok := b.Prototype().(starlark.HasAttrs); ok {
				names = append(names, x.AttrNames()...)
			}
		case typing.List:
			names = append(names, starlark.NewList(nil).AttrNames()...)
		case typing.Dict:
			names = append(names, starlark.NewDict(0).AttrNames()...)
		case typing.Custom:
			if s, ok := b.Impl().(typing.StructType); ok {
				for _, f := range s.Fields() {
					names = append(names, f.Name)
				}
			}
		}
	}
	return names
}

func (c *Checker) index(e *cst.IndexExpr) typing.Ty {
	x := c.expr(e.X)
	c.expr(e.Y)
	i, ok := constIndex(e.Y)
	if !ok || x.IsAny() {
		return c.attr(e, x, typing.IndexAttr, "cannot index %s")
	}
	var res []typing.Ty
	for _, b := range x.Basics() {
		switch b := b.(type) {
		case typing.Tuple:
			j := i
			if j < 0 {
				j += b.Len()
			}
			if j < 0 || j >= b.Len() {
				c.errorf(e, CodeIndexRange, "index %d out of range for %s of length %d", i, b, b.Len())
				res = append(res, typing.Never())
				continue
			}
			res = append(res, typing.Indexed(b, j))
		case typing.List:
			res = append(res, typing.Indexed(b, i))
		default:
			res = append(res, c.attr(e, typing.Of(b), typing.IndexAttr, "cannot index %s"))
		}
	}
	return typing.Union(res...)
}

// constIndex returns the value of a small integer literal, possibly
// negated.
func constIndex(e cst.Expr) (int, bool) {
	neg := false
	if u, ok := e.(*cst.UnaryExpr); ok && u.Op == syntax.MINUS {
		neg = true
		e = u.X
	}
	lit, ok := e.(*cst.Literal)
	if !ok || lit.Token != syntax.INT {
		return 0, false
	}
	v, ok := lit.Value.(int64)
	if !ok || v > 1<<30 {
		return 0, false
	}
	if neg {
		return -int(v), true
	}
	return int(v), true
}

// attr returns the type of a structural operation on a value of type x,
// reporting it if impossible.
func (c *Checker) attr(n cst.Node, x typing.Ty, attr typing.Attr, format string) typing.Ty {
	t, err := x.Attribute(attr, c.ctx)
	if err == nil {
		return t
	}
	if typing.IsImpossible(err) {
		c.errorf(n, CodeNoAttribute, format, x)
	}
	return typing.Any()
}

// iterate returns the element type of the iterable operand x.
func (c *Checker) iterate(x cst.Expr) typing.Ty {
	if t, ok := c.iters[x]; ok {
		return t
	}
	c.iters[x] = typing.Any()
	t := c.attr(x, c.expr(x), typing.IterAttr, "%s is not iterable")
	c.iters[x] = t
	return t
}

func (c *Checker) call(e *cst.CallExpr) typing.Ty {
	fn := c.expr(e.Fn)
	var positional []typing.Ty
	for _, arg := range e.Args {
		t := c.expr(arg.Value)
		if arg.Kind == cst.PositionalArg {
			positional = append(positional, t)
		}
	}
	if id, ok := e.Fn.(*cst.Ident); ok && id.Resolved != nil && id.Resolved.Kind == cst.Universal {
		return c.builtinResult(id.Name, positional)
	}
	if fn.IsAny() {
		return fn
	}
	var res []typing.Ty
	for _, b := range fn.Basics() {
		if cb, ok := b.(typing.Custom); ok {
			if f, ok := cb.Impl().(FuncType); ok {
				res = append(res, f.Result)
				continue
			}
		}
		res = append(res, typing.Any())
	}
	return typing.Union(res...)
}

func (c *Checker) binary(op syntax.Token, x, y typing.Ty) typing.Ty {
	switch op {
	case syntax.AND, syntax.OR:
		return typing.Union(x, y)
	case syntax.EQL, syntax.NEQ, syntax.LT, syntax.GT, syntax.LE, syntax.GE,
		syntax.IN, syntax.NOT_IN:
		return boolTy
	}

	xb, xok := x.AsBasic()
	yb, yok := y.AsBasic()
	if !xok || !yok {
		return typing.Any()
	}
	is := func(b typing.Basic, t typing.Ty) bool { return typing.EqualBasic(b, mustBasic(t)) }

	switch op {
	case syntax.PLUS:
		switch xb := xb.(type) {
		case typing.List:
			if yb, ok := yb.(typing.List); ok {
				return typing.Of(typing.ListOf(typing.Union(xb.Elem(), yb.Elem())))
			}
		case typing.Tuple:
			if yb, ok := yb.(typing.Tuple); ok {
				elems := make([]typing.Ty, 0, xb.Len()+yb.Len())
				for i := 0; i < xb.Len(); i++ {
					elems = append(elems, xb.Elem(i))
				}
				for i := 0; i < yb.Len(); i++ {
					elems = append(elems, yb.Elem(i))
				}
				return typing.Of(typing.TupleOf(elems...))
			}
		}
		if (is(xb, stringTy) || is(xb, bytesTy)) && typing.EqualBasic(xb, yb) {
			return x
		}
	case syntax.PERCENT:
		if is(xb, stringTy) {
			return stringTy
		}
	case syntax.STAR:
		if is(yb, intTy) {
			switch xb.(type) {
			case typing.List:
				return x
			}
			if is(xb, stringTy) || is(xb, bytesTy) {
				return x
			}
		}
		if is(xb, intTy) && (is(yb, stringTy) || is(yb, bytesTy)) {
			return y
		}
	case syntax.SLASH:
		if isNumeric(x) && isNumeric(y) {
			return floatTy
		}
	case syntax.PIPE:
		if _, ok := xb.(typing.Dict); ok {
			if _, ok := yb.(typing.Dict); ok {
				return typing.Union(x, y)
			}
		}
	}

	switch op {
	case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASHSLASH, syntax.PERCENT:
		if isNumeric(x) && isNumeric(y) {
			if is(xb, intTy) && is(yb, intTy) {
				return intTy
			}
			return floatTy
		}
	case syntax.PIPE, syntax.AMP, syntax.CIRCUMFLEX, syntax.LTLT, syntax.GTGT:
		if is(xb, intTy) && is(yb, intTy) {
			return intTy
		}
	}
	return typing.Any()
}

func mustBasic(t typing.Ty) typing.Basic {
	b, _ := t.AsBasic()
	return b
}

// joinOrAny is the union of tys, or Any if there are none.
func joinOrAny(tys []typing.Ty) typing.Ty {
	if len(tys) == 0 {
		return typing.Any()
	}
	return typing.Union(tys...)
}
