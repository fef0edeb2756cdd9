// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve defines the binding resolver for Starlark syntax trees.
//
// Resolution happens in two stages. Map converts an untyped
// syntax.File into a cst.File, attaching a fresh scope to every def and
// lambda and the imported interface to every load statement. Analyze
// then fills the remaining payloads: the BindingID of every binding
// occurrence and the ResolvedIdent of every use.
package resolve

// All references to names are statically resolved. Names may be
// predeclared, global, or local to a function or file. File-local
// variables include those bound by top-level comprehensions and by load
// statements. ("Top-level" means "outside of any function".)
//
// The lexical environment is a tree of blocks with the file block at
// its root. The file's child blocks may be of two kinds: functions and
// comprehensions, and these may have further children of either kind.
//
// Python-style resolution requires multiple passes because a name is
// determined to be local to a function only if the function contains a
// binding use of it; similarly, a name is determined to be global (as
// opposed to predeclared) if the module contains a top-level binding.
// A non-binding use may lexically precede the binding to which it is
// resolved. In the first pass we inspect each function, recording in
// 'uses' each identifier and the block in which it occurs, and
// allocating a binding for each name that has a binding use.
//
// As we finish each function we resolve the uses found to be local to
// it. The remaining ones are free (local to some enclosing function) or
// top-level, and we cannot tell which until the whole module has been
// seen, because a function may forward-reference a global declared
// later. At the end of the module we visit the function blocks bottom
// up, doing a lexical lookup for each unresolved use. A name found
// local to an enclosing function becomes a cell of that function and a
// free variable of each intervening one.
//
// Starlark enforces that all global names are assigned at most once on
// all control flow paths by forbidding if/else statements and loops at
// top level. The GlobalReassign option lifts both restrictions.

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/internal/spell"
	"github.com/buildstar/starcheck/syntax"
)

const doesnt = "this Starlark dialect does not "

// Options selects the dialect and the environment of the module being
// resolved. The zero Options resolves standard Starlark with the
// universe of go.starlark.net and no predeclared names.
type Options struct {
	GlobalReassign    bool // allow reassignment to top-level names; also, allow if/for/while at top-level
	Recursion         bool // allow while statements
	LoadBindsGlobally bool // load creates global not file-local bindings (deprecated)

	// IsPredeclared and IsUniversal report whether a name is
	// predeclared in this module or universal to all modules.
	// A nil IsUniversal means starlark.Universe.Has.
	IsPredeclared func(name string) bool
	IsUniversal   func(name string) bool

	// IsGlobal reports whether a name is a global of an earlier chunk,
	// as in a REPL. It may be nil.
	IsGlobal func(name string) bool
}

// An ErrorList is a non-empty list of resolver error messages.
type ErrorList []Error // len > 0

func (e ErrorList) Error() string { return e[0].Error() }

// An Error describes the nature and position of a resolver error.
type Error struct {
	Pos syntax.Position
	Msg string
}

func (e Error) Error() string { return e.Pos.String() + ": " + e.Msg }

// Analyze resolves every name in a file produced by Map with the same
// table. On return every AssignIdent has a Binding and every Ident is
// Resolved, even if errors were found; an unbound name resolves to
// cst.Undefined and is reported in the ErrorList.
//
// Names within type annotations are resolved like any other, but an
// undefined name there is left for the checker to report.
func Analyze(f *cst.File, table *ScopeTable, opts *Options) (*Module, error) {
	r := newResolver(table, opts)
	r.stmts(f.Stmts)

	r.env.resolveLocalUses(r)

	// At the end of the module, resolve all non-local variable references,
	// computing closures.
	// Function bodies may contain forward references to later global declarations.
	r.resolveNonLocalUses(r.env)

	m := &Module{
		Path:      f.Path,
		Locals:    r.moduleLocals,
		Globals:   r.moduleGlobals,
		Functions: table.Functions(),
		Table:     table,
	}
	if len(r.errors) > 0 {
		return m, r.errors
	}
	return m, nil
}

// REPLChunk is like Analyze but supports a non-empty initial global
// block, as occurs in a REPL.
func REPLChunk(f *cst.File, table *ScopeTable, isGlobal func(name string) bool, opts *Options) (*Module, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.IsGlobal = isGlobal
	return Analyze(f, table, &o)
}

func newResolver(table *ScopeTable, opts *Options) *resolver {
	r := &resolver{
		table:       table,
		globals:     make(map[string]*Binding),
		predeclared: make(map[string]*Binding),
	}
	if opts != nil {
		r.opts = *opts
	}
	if r.opts.IsPredeclared == nil {
		r.opts.IsPredeclared = func(string) bool { return false }
	}
	if r.opts.IsUniversal == nil {
		r.opts.IsUniversal = starlark.Universe.Has
	}
	r.file = new(block)
	r.env = r.file
	return r
}

type resolver struct {
	opts  Options
	table *ScopeTable

	// env is the current local environment:
	// a linked list of blocks, innermost first.
	// The tail of the list is the file block.
	env  *block
	file *block // file block (contains load bindings)

	// moduleLocals contains the local variables of the module
	// (due to load statements and comprehensions outside any function).
	// moduleGlobals contains the global variables of the module.
	moduleLocals  []*Binding
	moduleGlobals []*Binding

	// globals maps each global name in the module to its binding.
	// predeclared does the same for predeclared and universal names.
	globals     map[string]*Binding
	predeclared map[string]*Binding

	loops int // number of enclosing for/while loops

	errors ErrorList
}

// container returns the innermost enclosing "container" block:
// a function (function != nil) or file (function == nil).
// Container blocks accumulate local variable bindings.
func (r *resolver) container() *block {
	for b := r.env; ; b = b.parent {
		if b.function != nil || b == r.file {
			return b
		}
	}
}

func (r *resolver) push(b *block) {
	r.env.children = append(r.env.children, b)
	b.parent = r.env
	r.env = b
}

func (r *resolver) pop() { r.env = r.env.parent }

type block struct {
	parent *block // nil for file block

	// In the file (root) block, both these fields are nil.
	function *Function          // only for function blocks
	comp     *cst.Comprehension // only for comprehension blocks

	// bindings maps a name to its binding.
	bindings map[string]*Binding

	// children records the child blocks of the current one.
	children []*block

	// uses records all identifiers seen in this container (function or file),
	// and the environment in which they appear.
	// As we leave each container block, we resolve them,
	// so that only free and global ones remain.
	uses []use
}

func (b *block) bind(name string, bind *Binding) {
	if b.bindings == nil {
		b.bindings = make(map[string]*Binding)
	}
	b.bindings[name] = bind
}

func (b *block) String() string {
	if b.function != nil {
		return "function block at " + fmt.Sprint(b.function.Pos)
	}
	if b.comp != nil {
		return "comprehension block at " + fmt.Sprint(cst.Start(b.comp))
	}
	return "file block"
}

func (r *resolver) errorf(posn syntax.Position, format string, args ...interface{}) {
	r.errors = append(r.errors, Error{posn, fmt.Sprintf(format, args...)})
}

// A use records an identifier and the environment in which it appears.
type use struct {
	id    *cst.Ident
	env   *block
	annot bool // within a type annotation
}

// setResolved records the resolution of a use. It is called exactly
// once per identifier.
func (r *resolver) setResolved(id *cst.Ident, bind *Binding) {
	switch bind.Scope {
	case Local, Cell, Global:
		if bind.Load != nil {
			id.Resolved = cst.ImportedIdent(bind.ID, bind.Load.Interface, bind.Load.Name)
		} else if bind.Scope == Global {
			id.Resolved = cst.ModuleIdent(bind.ID)
		} else {
			id.Resolved = cst.LocalIdent(bind.ID, bind.Owner)
		}
	case Predeclared:
		id.Resolved = cst.HostIdent(cst.Predeclared, id.Name)
	case Universal:
		id.Resolved = cst.HostIdent(cst.Universal, id.Name)
	default:
		id.Resolved = cst.UndefinedIdent(id.Name)
	}
}

// declared describes where bind was first bound.
func declared(bind *Binding) string {
	if bind.First == nil {
		return "in an earlier chunk"
	}
	return "at " + bind.First.NamePos.String()
}

// bind creates a binding for id: a global (not file-local)
// binding at top-level, a local binding otherwise.
// At top-level, it reports an error if a global or file-local
// binding already exists, unless GlobalReassign.
// It sets id.Binding to the binding (whether old or new),
// and returns the binding and whether it already existed.
func (r *resolver) bind(id *cst.AssignIdent) (*Binding, bool) {
	// Binding outside any local (comprehension/function) block?
	if r.env == r.file {
		bind, ok := r.file.bindings[id.Name]
		if !ok {
			bind, ok = r.globals[id.Name]
			if !ok {
				// first global binding of this name
				bind = r.table.newBinding(id.Name, Global, cst.NoScope, id)
				bind.Index = len(r.moduleGlobals)
				r.globals[id.Name] = bind
				r.moduleGlobals = append(r.moduleGlobals, bind)
			}
		}
		if ok && !r.opts.GlobalReassign {
			r.errorf(id.NamePos, "cannot reassign %s %s declared %s",
				bind.Scope, id.Name, declared(bind))
		}
		id.Binding = bind.ID
		return bind, ok
	}

	return r.bindLocal(id)
}

func (r *resolver) bindLocal(id *cst.AssignIdent) (*Binding, bool) {
	// Mark this name as local to current block.
	// Assign it a new local index in the current container.
	bind, ok := r.env.bindings[id.Name]
	if !ok {
		var locals *[]*Binding
		owner := cst.NoScope
		if fn := r.container().function; fn != nil {
			locals = &fn.Locals
			owner = fn.ID
		} else {
			locals = &r.moduleLocals
		}
		bind = r.table.newBinding(id.Name, Local, owner, id)
		bind.Index = len(*locals)
		r.env.bind(id.Name, bind)
		*locals = append(*locals, bind)
	}
	id.Binding = bind.ID
	return bind, ok
}

func (r *resolver) use(id *cst.Ident, annot bool) {
	use := use{id, r.env, annot}

	// If there is a global binding of a name then all references to
	// that name in that block refer to the global, even if the use
	// precedes the def. The legacy Bazel behavior, in which an earlier
	// use refers to the predeclared name, rides on GlobalReassign.
	if r.opts.GlobalReassign && r.env == r.file {
		r.useToplevel(use)
		return
	}

	b := r.container()
	b.uses = append(b.uses, use)
}

// useToplevel resolves use.id as a reference to a name visible at top-level.
// The use.env field captures the original environment for error reporting.
func (r *resolver) useToplevel(use use) (bind *Binding) {
	id := use.id

	if prev, ok := r.file.bindings[id.Name]; ok {
		// use of load-defined name in file block
		bind = prev
	} else if prev, ok := r.globals[id.Name]; ok {
		// use of global declared by module
		bind = prev
	} else if r.opts.IsGlobal != nil && r.opts.IsGlobal(id.Name) {
		// use of global defined in a previous REPL chunk
		bind = r.table.newBinding(id.Name, Global, cst.NoScope, nil)
		bind.Index = len(r.moduleGlobals)
		r.globals[id.Name] = bind
		r.moduleGlobals = append(r.moduleGlobals, bind)
	} else if prev, ok := r.predeclared[id.Name]; ok {
		// repeated use of predeclared or universal
		bind = prev
	} else if r.opts.IsPredeclared(id.Name) {
		bind = &Binding{Name: id.Name, Scope: Predeclared}
		r.predeclared[id.Name] = bind
	} else if r.opts.IsUniversal(id.Name) {
		bind = &Binding{Name: id.Name, Scope: Universal}
		r.predeclared[id.Name] = bind
	} else {
		bind = &Binding{Name: id.Name, Scope: Undefined}
		if !use.annot {
			var hint string
			if n := r.spellcheck(use); n != "" {
				hint = fmt.Sprintf(" (did you mean %s?)", n)
			}
			r.errorf(id.NamePos, "undefined: %s%s", id.Name, hint)
		}
	}
	r.setResolved(id, bind)
	return bind
}

// spellcheck returns the most likely misspelling of
// the name use.id in the environment use.env.
func (r *resolver) spellcheck(use use) string {
	var names []string

	// locals
	for b := use.env; b != nil; b = b.parent {
		for name := range b.bindings {
			names = append(names, name)
		}
	}

	// globals
	//
	// We have no way to enumerate the sets whose membership
	// tests are IsPredeclared, IsUniversal, and IsGlobal,
	// which includes prior names in the REPL session.
	for _, bind := range r.moduleGlobals {
		names = append(names, bind.Name)
	}

	sort.Strings(names)
	return spell.Nearest(use.id.Name, names)
}

// resolveLocalUses is called when leaving a container (function/module)
// block. It resolves all uses of locals/cells within that block.
func (b *block) resolveLocalUses(r *resolver) {
	unresolved := b.uses[:0]
	for _, use := range b.uses {
		if bind := lookupLocal(use); bind != nil && (bind.Scope == Local || bind.Scope == Cell) {
			r.setResolved(use.id, bind)
		} else {
			unresolved = append(unresolved, use)
		}
	}
	b.uses = unresolved
}

func (r *resolver) stmts(stmts []cst.Stmt) {
	for _, stmt := range stmts {
		r.stmt(stmt)
	}
}

func (r *resolver) stmt(stmt cst.Stmt) {
	switch stmt := stmt.(type) {
	case *cst.ExprStmt:
		r.expr(stmt.X)

	case *cst.BranchStmt:
		if r.loops == 0 && (stmt.Token == syntax.BREAK || stmt.Token == syntax.CONTINUE) {
			r.errorf(stmt.TokenPos, "%s not in a loop", stmt.Token)
		}

	case *cst.IfStmt:
		if !r.opts.GlobalReassign && r.container().function == nil {
			r.errorf(stmt.If, "if statement not within a function")
		}
		r.expr(stmt.Cond)
		r.stmts(stmt.True)
		r.stmts(stmt.False)

	case *cst.AssignStmt:
		r.expr(stmt.RHS)
		r.typeExpr(stmt.Type)
		isAugmented := stmt.Op != syntax.EQ
		if stmt.Type != nil && !isAnnotatable(stmt.LHS) {
			r.errorf(cst.Start(stmt.LHS), "only single target can be annotated")
		}
		r.assign(stmt.LHS, isAugmented)

	case *cst.DefStmt:
		r.bind(stmt.Name)
		if stmt.Scope == cst.NoScope {
			stmt.Scope = r.table.NewScope(r.enclosing(), stmt.Def, stmt.Name.Name)
		}
		r.function(r.table.Function(stmt.Scope), stmt.Params, stmt.Ret, func() { r.stmts(stmt.Body) })

	case *cst.ForStmt:
		if !r.opts.GlobalReassign && r.container().function == nil {
			r.errorf(stmt.For, "for loop not within a function")
		}
		r.expr(stmt.X)
		const isAugmented = false
		r.assign(stmt.Vars, isAugmented)
		r.loops++
		r.stmts(stmt.Body)
		r.loops--

	case *cst.WhileStmt:
		if !r.opts.Recursion {
			r.errorf(stmt.While, doesnt+"support while loops")
		}
		if !r.opts.GlobalReassign && r.container().function == nil {
			r.errorf(stmt.While, "while loop not within a function")
		}
		r.expr(stmt.Cond)
		r.loops++
		r.stmts(stmt.Body)
		r.loops--

	case *cst.ReturnStmt:
		if r.container().function == nil {
			r.errorf(stmt.Return, "return statement not within a function")
		}
		if stmt.Result != nil {
			r.expr(stmt.Result)
		}

	case *cst.LoadStmt:
		if r.container().function != nil {
			r.errorf(stmt.Load, "load statement within a function")
		}

		for _, name := range stmt.Names {
			if name.Their == "" {
				r.errorf(name.TheirPos, "load: empty identifier")
			} else if name.Their[0] == '_' {
				r.errorf(name.TheirPos, "load: names with leading underscores are not exported: %s", name.Their)
			}

			var bind *Binding
			var existed bool
			if r.opts.LoadBindsGlobally {
				bind, existed = r.bind(name.Local)
			} else {
				_, isGlobal := r.globals[name.Local.Name]
				bind, existed = r.bindLocal(name.Local)
				if (existed || isGlobal) && !r.opts.GlobalReassign {
					r.errorf(name.Local.NamePos, "cannot reassign top-level %s", name.Local.Name)
				}
			}
			if !existed || r.opts.GlobalReassign {
				bind.Load = &LoadedSymbol{
					Module:    stmt.ModuleName(),
					Interface: stmt.Interface,
					Name:      name.Their,
				}
			}
		}

	default:
		log.Panicf("unexpected stmt %T", stmt)
	}
}

// enclosing returns the scope of the innermost enclosing function.
func (r *resolver) enclosing() cst.ScopeID {
	if fn := r.container().function; fn != nil {
		return fn.ID
	}
	return cst.NoScope
}

func isAnnotatable(lhs cst.Expr) bool {
	switch lhs := lhs.(type) {
	case *cst.AssignIdent, *cst.DotExpr, *cst.IndexExpr:
		return true
	case *cst.ParenExpr:
		return isAnnotatable(lhs.X)
	}
	return false
}

func (r *resolver) assign(lhs cst.Expr, isAugmented bool) {
	switch lhs := lhs.(type) {
	case *cst.AssignIdent:
		// x = ...
		r.bind(lhs)

	case *cst.IndexExpr:
		// x[i] = ...
		r.expr(lhs.X)
		r.expr(lhs.Y)

	case *cst.DotExpr:
		// x.f = ...
		r.expr(lhs.X)

	case *cst.TupleExpr:
		// (x, y) = ...
		if len(lhs.List) == 0 {
			r.errorf(cst.Start(lhs), "can't assign to ()")
		}
		if isAugmented {
			r.errorf(cst.Start(lhs), "can't use tuple expression in augmented assignment")
		}
		for _, elem := range lhs.List {
			r.assign(elem, isAugmented)
		}

	case *cst.ListExpr:
		// [x, y, z] = ...
		if len(lhs.List) == 0 {
			r.errorf(cst.Start(lhs), "can't assign to []")
		}
		if isAugmented {
			r.errorf(cst.Start(lhs), "can't use list expression in augmented assignment")
		}
		for _, elem := range lhs.List {
			r.assign(elem, isAugmented)
		}

	case *cst.ParenExpr:
		r.assign(lhs.X, isAugmented)

	default:
		name := strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", lhs), "*cst."))
		r.errorf(cst.Start(lhs), "can't assign to %s", name)
		// Still resolve the names it uses.
		r.expr(lhs)
	}
}

func (r *resolver) typeExpr(t *cst.TypeExpr) {
	if t == nil {
		return
	}
	cst.Walk(t.Expr, func(n cst.Node) bool {
		switch n := n.(type) {
		case *cst.Ident:
			r.use(n, true)
		case *cst.LambdaExpr, *cst.Comprehension:
			r.expr(n.(cst.Expr))
			return false
		}
		return true
	})
}

func (r *resolver) expr(e cst.Expr) {
	switch e := e.(type) {
	case *cst.Ident:
		r.use(e, false)

	case *cst.AssignIdent:
		r.errorf(e.NamePos, "binding of %s outside of an assignment", e.Name)

	case *cst.Literal:
		// no-op

	case *cst.ListExpr:
		for _, x := range e.List {
			r.expr(x)
		}

	case *cst.CondExpr:
		r.expr(e.Cond)
		r.expr(e.True)
		r.expr(e.False)

	case *cst.IndexExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *cst.DictEntry:
		r.expr(e.Key)
		r.expr(e.Value)

	case *cst.SliceExpr:
		r.expr(e.X)
		if e.Lo != nil {
			r.expr(e.Lo)
		}
		if e.Hi != nil {
			r.expr(e.Hi)
		}
		if e.Step != nil {
			r.expr(e.Step)
		}

	case *cst.Comprehension:
		// The 'in' operand of the first clause (always a ForClause)
		// is resolved in the outer block; consider: [x for x in x].
		clause := e.Clauses[0].(*cst.ForClause)
		r.expr(clause.X)

		// A list/dict comprehension defines a new lexical block.
		// Locals defined within the block will be allotted
		// distinct slots in the locals array of the innermost
		// enclosing container (function/module) block.
		r.push(&block{comp: e})

		const isAugmented = false
		r.assign(clause.Vars, isAugmented)

		for _, clause := range e.Clauses[1:] {
			switch clause := clause.(type) {
			case *cst.IfClause:
				r.expr(clause.Cond)
			case *cst.ForClause:
				r.assign(clause.Vars, isAugmented)
				r.expr(clause.X)
			}
		}
		r.expr(e.Body) // body may be *DictEntry
		r.pop()

	case *cst.TupleExpr:
		for _, x := range e.List {
			r.expr(x)
		}

	case *cst.DictExpr:
		for _, entry := range e.List {
			r.expr(entry.Key)
			r.expr(entry.Value)
		}

	case *cst.UnaryExpr:
		if e.X != nil {
			r.expr(e.X)
		}

	case *cst.BinaryExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *cst.DotExpr:
		r.expr(e.X)
		// ignore e.Name

	case *cst.CallExpr:
		r.expr(e.Fn)
		var seenVarargs, seenKwargs bool
		var seenName map[string]bool
		var n, p int
		for _, arg := range e.Args {
			switch arg.Kind {
			case cst.KwargsArg:
				if seenKwargs {
					r.errorf(arg.Pos, "multiple **kwargs not allowed")
				}
				seenKwargs = true
			case cst.ArgsArg:
				if seenKwargs {
					r.errorf(arg.Pos, "*args may not follow **kwargs")
				} else if seenVarargs {
					r.errorf(arg.Pos, "multiple *args not allowed")
				}
				seenVarargs = true
			case cst.NamedArg:
				n++
				if seenKwargs {
					r.errorf(arg.Pos, "argument may not follow **kwargs")
				}
				if seenName[arg.Name] {
					r.errorf(arg.Pos, "keyword argument %s repeated", arg.Name)
				} else {
					if seenName == nil {
						seenName = make(map[string]bool)
					}
					seenName[arg.Name] = true
				}
			default:
				p++
				if seenVarargs {
					r.errorf(arg.Pos, "argument may not follow *args")
				} else if seenKwargs {
					r.errorf(arg.Pos, "argument may not follow **kwargs")
				} else if len(seenName) > 0 {
					r.errorf(arg.Pos, "positional argument may not follow named")
				}
			}
			r.expr(arg.Value)
		}

		// Fail gracefully if compiler-imposed limit is exceeded.
		if p >= 256 {
			r.errorf(cst.Start(e), "%v positional arguments in call, limit is 255", p)
		}
		if n >= 256 {
			r.errorf(cst.Start(e), "%v keyword arguments in call, limit is 255", n)
		}

	case *cst.LambdaExpr:
		if e.Scope == cst.NoScope {
			e.Scope = r.table.NewScope(r.enclosing(), e.Lambda, "lambda")
		}
		r.function(r.table.Function(e.Scope), e.Params, nil, func() { r.expr(e.Body) })

	case *cst.ParenExpr:
		r.expr(e.X)

	default:
		log.Panicf("unexpected expr %T", e)
	}
}

func (r *resolver) function(function *Function, params []*cst.Param, ret *cst.TypeExpr, body func()) {
	// Resolve defaults and annotations in enclosing environment.
	for _, param := range params {
		if param.Default != nil {
			r.expr(param.Default)
		}
		r.typeExpr(param.Type)
	}
	r.typeExpr(ret)

	// Enter function block.
	b := &block{function: function}
	r.push(b)
	loops := r.loops
	r.loops = 0

	var seenOptional bool
	var star *cst.Param     // * or *args param
	var starStar *cst.Param // **kwargs param
	var numKwonlyParams int
	for _, param := range params {
		switch param.Kind {
		case cst.NormalParam:
			// e.g. x
			if starStar != nil {
				r.errorf(param.Name.NamePos, "required parameter may not follow **%s", starStar.Name.Name)
			} else if star != nil {
				numKwonlyParams++
			} else if seenOptional {
				r.errorf(param.Name.NamePos, "required parameter may not follow optional")
			}
			if _, dup := r.bind(param.Name); dup {
				r.errorf(param.Name.NamePos, "duplicate parameter: %s", param.Name.Name)
			}

		case cst.DefaultParam:
			// e.g. y=dflt
			if starStar != nil {
				r.errorf(param.Name.NamePos, "optional parameter may not follow **%s", starStar.Name.Name)
			} else if star != nil {
				numKwonlyParams++
			}
			if _, dup := r.bind(param.Name); dup {
				r.errorf(param.Name.NamePos, "duplicate parameter: %s", param.Name.Name)
			}
			seenOptional = true

		case cst.NoArgsParam, cst.ArgsParam:
			// * or *args
			if starStar != nil {
				r.errorf(param.StarPos, "* parameter may not follow **%s", starStar.Name.Name)
			} else if star != nil {
				r.errorf(param.StarPos, "multiple * parameters not allowed")
			} else {
				star = param
			}

		case cst.KwargsParam:
			if starStar != nil {
				r.errorf(param.StarPos, "multiple ** parameters not allowed")
			}
			starStar = param
		}
	}

	// Bind the *args and **kwargs parameters at the end,
	// so that regular parameters a/b/c are contiguous and
	// there is no hole for the "*":
	//   def f(a, b, *args, c=0, **kwargs)
	//   def f(a, b, *,     c=0, **kwargs)
	if star != nil {
		if star.Name != nil {
			// *args
			if _, dup := r.bind(star.Name); dup {
				r.errorf(star.Name.NamePos, "duplicate parameter: %s", star.Name.Name)
			}
			function.HasVarargs = true
		} else if numKwonlyParams == 0 {
			r.errorf(star.StarPos, "bare * must be followed by keyword-only parameters")
		}
	}
	if starStar != nil {
		if _, dup := r.bind(starStar.Name); dup {
			r.errorf(starStar.Name.NamePos, "duplicate parameter: %s", starStar.Name.Name)
		}
		function.HasKwargs = true
	}

	function.NumKwonlyParams = numKwonlyParams
	body()

	// Resolve all uses of this function's local vars,
	// and keep just the remaining uses of free/global vars.
	b.resolveLocalUses(r)

	// Leave function block.
	r.loops = loops
	r.pop()

	// References within the function body to globals are not
	// resolved until the end of the module.
}

func (r *resolver) resolveNonLocalUses(b *block) {
	// First resolve inner blocks.
	for _, child := range b.children {
		r.resolveNonLocalUses(child)
	}
	for _, use := range b.uses {
		bind := r.lookupLexical(use, use.env)
		if use.id.Resolved == nil {
			r.setResolved(use.id, bind)
		}
	}
}

// lookupLocal looks up an identifier within its immediately enclosing function.
func lookupLocal(use use) *Binding {
	for env := use.env; env != nil; env = env.parent {
		if bind, ok := env.bindings[use.id.Name]; ok {
			return bind // found
		}
		if env.function != nil {
			break
		}
	}
	return nil // not found in this function
}

// lookupLexical looks up an identifier use.id within its lexically enclosing environment.
// The use.env field captures the original environment for error reporting.
func (r *resolver) lookupLexical(use use, env *block) (bind *Binding) {
	// Is this the file block?
	if env == r.file {
		return r.useToplevel(use) // file-local, global, predeclared, or not found
	}

	// Defined in this block?
	bind, ok := env.bindings[use.id.Name]
	if !ok {
		// Defined in parent block?
		bind = r.lookupLexical(use, env.parent)
		if env.function != nil && (bind.Scope == Local || bind.Scope == Cell) {
			// Found in parent block, which belongs to enclosing function.
			// Add the parent's binding to the function's freevars,
			// and turn the parent's local into cell.
			bind.Scope = Cell
			env.function.FreeVars = append(env.function.FreeVars, bind)
		}

		// Memoize, to avoid duplicate free vars and redundant global
		// lookups. Failed lookups are not memoized, so that each
		// undefined use is reported.
		if bind.Scope != Undefined {
			env.bind(use.id.Name, bind)
		}
	}
	return bind
}
