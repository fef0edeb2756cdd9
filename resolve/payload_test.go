// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

func mapSource(t *testing.T, src string, loads map[string]*typing.Interface) (*cst.File, *resolve.ScopeTable) {
	t.Helper()
	f, err := syntax.Parse("test.star", src)
	if err != nil {
		t.Fatal(err)
	}
	table := resolve.NewScopeTable()
	return resolve.Map(f, loads, table), table
}

func TestMapAssignmentAllocatesNoScope(t *testing.T) {
	file, table := mapSource(t, "x = 1\n", nil)
	if n := table.NumScopes(); n != 0 {
		t.Errorf("NumScopes = %d, want 0", n)
	}
	x := file.Stmts[0].(*cst.AssignStmt).LHS.(*cst.AssignIdent)
	if x.Binding != cst.NoBinding {
		t.Errorf("binding set before analysis: %s", x.Binding)
	}

	if _, err := resolve.Analyze(file, table, nil); err != nil {
		t.Fatal(err)
	}
	if n := table.NumBindings(); n != 1 {
		t.Errorf("NumBindings = %d, want 1", n)
	}
	if n := table.NumScopes(); n != 0 {
		t.Errorf("NumScopes after analysis = %d, want 0", n)
	}
	if x.Binding == cst.NoBinding {
		t.Errorf("binding not set after analysis")
	}
}

func TestMapDefAllocatesScope(t *testing.T) {
	file, table := mapSource(t, "def f():\n  pass\n", nil)
	if n := table.NumScopes(); n != 1 {
		t.Errorf("NumScopes = %d, want 1", n)
	}
	def := file.Stmts[0].(*cst.DefStmt)
	if def.Scope == cst.NoScope {
		t.Fatalf("def has no scope")
	}
	if fn := table.Function(def.Scope); fn.Name != "f" || fn.Parent != cst.NoScope {
		t.Errorf("function = %+v", fn)
	}
	if def.Name.Binding != cst.NoBinding {
		t.Errorf("def name bound before analysis")
	}
}

func TestMapScopesArePreorder(t *testing.T) {
	const src = `
def a(x = lambda: 0):
  def b():
    return lambda: 1
  return b
def c():
  pass
`
	file, table := mapSource(t, src, nil)
	type scope struct {
		Name   string
		ID     cst.ScopeID
		Parent cst.ScopeID
	}
	var got []scope
	for _, fn := range table.Functions() {
		got = append(got, scope{fn.Name, fn.ID, fn.Parent})
	}
	want := []scope{
		{"a", 1, cst.NoScope},
		{"lambda", 2, cst.NoScope}, // default belongs to the enclosing scope
		{"b", 3, 1},
		{"lambda", 4, 3},
		{"c", 5, cst.NoScope},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scopes (-want +got):\n%s", diff)
	}
	if c := file.Stmts[1].(*cst.DefStmt); c.Scope != 5 {
		t.Errorf("c.Scope = %s, want s5", c.Scope)
	}
}

func TestMapIsStable(t *testing.T) {
	const src = `
def f(g = lambda y: y):
  return [lambda: z for z in range(3)]
h = lambda: f
`
	var counts []int
	for i := 0; i < 3; i++ {
		_, table := mapSource(t, src, nil)
		counts = append(counts, table.NumScopes())
	}
	if diff := cmp.Diff([]int{4, 4, 4}, counts); diff != "" {
		t.Errorf("scope counts (-want +got):\n%s", diff)
	}
}

func TestMapLoadInterfaces(t *testing.T) {
	lib := typing.NewInterface(map[string]typing.Ty{"x": typing.Of(typing.StringType())})
	const src = `
load("lib.star", "x")
load("missing.star", "y")
print(x, y)
`
	file, table := mapSource(t, src, map[string]*typing.Interface{"lib.star": lib})
	if got := file.Stmts[0].(*cst.LoadStmt).Interface; got != lib {
		t.Errorf("lib.star interface = %v, want the supplied one", got)
	}
	if got := file.Stmts[1].(*cst.LoadStmt).Interface; got != typing.EmptyInterface() {
		t.Errorf("missing.star interface = %v, want empty", got)
	}

	if _, err := resolve.Analyze(file, table, nil); err != nil {
		t.Fatal(err)
	}
	args := file.Stmts[2].(*cst.ExprStmt).X.(*cst.CallExpr).Args
	x := args[0].Value.(*cst.Ident).Resolved
	if x.Kind != cst.Imported || x.Interface != lib || x.Name != "x" {
		t.Errorf("x resolved to %+v, want imported x from lib", x)
	}
	if x.Binding != file.Stmts[0].(*cst.LoadStmt).Names[0].Local.Binding {
		t.Errorf("x does not denote its load binding")
	}
	// A symbol absent from its interface still resolves to the load.
	if y := args[1].Value.(*cst.Ident).Resolved; y.Kind != cst.Imported || y.Interface != typing.EmptyInterface() {
		t.Errorf("y resolved to %+v", y)
	}
}

func TestImportedInsideFunction(t *testing.T) {
	lib := typing.NewInterface(map[string]typing.Ty{"x": typing.Any()})
	file, table := mapSource(t, "load(\"lib\", \"x\")\ndef f():\n  return x\n", map[string]*typing.Interface{"lib": lib})
	if _, err := resolve.Analyze(file, table, nil); err != nil {
		t.Fatal(err)
	}
	use := file.Stmts[1].(*cst.DefStmt).Body[0].(*cst.ReturnStmt).Result.(*cst.Ident)
	if use.Resolved.Kind != cst.Imported || use.Resolved.Interface != lib {
		t.Errorf("x resolved to %s", use.Resolved)
	}
}

func TestResolutionIsTotal(t *testing.T) {
	const src = `
load("lib", "a")
b = undefined1
def f(p, *args, q = a, **kw):
  c = [p + d for d in args if undefined2]
  return lambda r: (r, c, q, kw, b, len, f)
e = {k: v for k, v in f(1).items()}
`
	file, table := mapSource(t, src, nil)
	_, err := resolve.Analyze(file, table, nil)
	errs, _ := err.(resolve.ErrorList)
	if len(errs) != 2 {
		t.Errorf("got errors %v, want two undefined names", err)
	}

	var idents, assigns int
	cst.Walk(file, func(n cst.Node) bool {
		switch n := n.(type) {
		case *cst.Ident:
			idents++
			if n.Resolved == nil {
				t.Errorf("%s: %s not resolved", n.NamePos, n.Name)
			} else if n.Resolved.Kind == cst.Undefined && !strings.HasPrefix(n.Name, "undefined") {
				t.Errorf("%s: %s unexpectedly undefined", n.NamePos, n.Name)
			}
		case *cst.AssignIdent:
			assigns++
			if n.Binding == cst.NoBinding {
				t.Errorf("%s: %s not bound", n.NamePos, n.Name)
			} else if b := table.Binding(n.Binding); b.Name != n.Name {
				t.Errorf("%s: %s bound to %s", n.NamePos, n.Name, b)
			}
		}
		return true
	})
	if idents == 0 || assigns == 0 {
		t.Errorf("walk found %d uses and %d bindings", idents, assigns)
	}
}

func TestEmptyLoadNameStillBinds(t *testing.T) {
	file, table := mapSource(t, "load(\"m\", x=\"\")\ny = x\n", nil)
	_, err := resolve.Analyze(file, table, nil)
	if err == nil || !strings.Contains(err.Error(), "load: empty identifier") {
		t.Fatalf("got error %v, want empty identifier", err)
	}
	if errs, _ := err.(resolve.ErrorList); len(errs) != 1 {
		t.Errorf("got errors %v, want only the empty identifier", err)
	}

	cst.Walk(file, func(n cst.Node) bool {
		switch n := n.(type) {
		case *cst.Ident:
			if n.Resolved == nil || n.Resolved.Kind == cst.Undefined {
				t.Errorf("%s: %s not resolved to the loaded binding", n.NamePos, n.Name)
			}
		case *cst.AssignIdent:
			if n.Binding == cst.NoBinding {
				t.Errorf("%s: %s not bound", n.NamePos, n.Name)
			}
		}
		return true
	})
}

func TestDistinctVariablesHaveDistinctIDs(t *testing.T) {
	const src = `
def f(x):
  return x
def g(x):
  x = x + 1
  return x
`
	file, table := mapSource(t, src, nil)
	if _, err := resolve.Analyze(file, table, nil); err != nil {
		t.Fatal(err)
	}
	ids := map[string]map[cst.BindingID]bool{}
	for _, stmt := range file.Stmts {
		def := stmt.(*cst.DefStmt)
		seen := make(map[cst.BindingID]bool)
		cst.Walk(def, func(n cst.Node) bool {
			switch n := n.(type) {
			case *cst.Ident:
				seen[n.Resolved.Binding] = true
			case *cst.AssignIdent:
				if n != def.Name {
					seen[n.Binding] = true
				}
			}
			return true
		})
		ids[def.Name.Name] = seen
	}
	if len(ids["f"]) != 1 || len(ids["g"]) != 1 {
		t.Fatalf("each function should use a single variable x: %v", ids)
	}
	for id := range ids["f"] {
		if ids["g"][id] {
			t.Errorf("f's x and g's x share %s", id)
		}
	}
}

func TestAnnotationsResolveQuietly(t *testing.T) {
	// x: Foo = len
	f := &syntax.File{Path: "hand.star", Stmts: []syntax.Stmt{
		&syntax.AssignStmt{
			Op:   syntax.EQ,
			LHS:  &syntax.AssignIdent{Name: "x"},
			Type: &syntax.TypeExpr{Expr: &syntax.Ident{Name: "Foo"}},
			RHS:  &syntax.Ident{Name: "len"},
		},
	}}
	table := resolve.NewScopeTable()
	file := resolve.Map(f, nil, table)
	stmt := file.Stmts[0].(*cst.AssignStmt)
	if stmt.Type == nil || stmt.Type.Ty != nil {
		t.Fatalf("type slot = %+v, want unset", stmt.Type)
	}
	if _, err := resolve.Analyze(file, table, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := stmt.Type.Expr.(*cst.Ident).Resolved; r.Kind != cst.Undefined {
		t.Errorf("Foo resolved to %s", r)
	}
	if r := stmt.RHS.(*cst.Ident).Resolved; r.Kind != cst.Universal {
		t.Errorf("len resolved to %s", r)
	}
}

func TestPublish(t *testing.T) {
	lib := typing.NewInterface(map[string]typing.Ty{"s": typing.Of(typing.StringType())})
	const src = `
load("lib", "s")
x = 1
_private = 2
def f():
  pass
`
	file, table := mapSource(t, src, map[string]*typing.Interface{"lib": lib})
	m, err := resolve.Analyze(file, table, nil)
	if err != nil {
		t.Fatal(err)
	}
	num := typing.Of(typing.IntType())
	iface := resolve.Publish(m, func(b *resolve.Binding) (typing.Ty, bool) {
		if b.Name == "x" {
			return num, true
		}
		return typing.Ty{}, false
	})
	if diff := cmp.Diff([]string{"f", "x"}, iface.Names()); diff != "" {
		t.Errorf("exports (-want +got):\n%s", diff)
	}
	if got, _ := iface.Get("x"); !typing.Equal(got, num) {
		t.Errorf("x: %s", got)
	}
	if got, _ := iface.Get("f"); !got.IsAny() {
		t.Errorf("f: %s", got)
	}

	// Loads re-export only when they bind globally.
	file, table = mapSource(t, src, map[string]*typing.Interface{"lib": lib})
	m, err = resolve.Analyze(file, table, &resolve.Options{LoadBindsGlobally: true})
	if err != nil {
		t.Fatal(err)
	}
	iface = resolve.Publish(m, nil)
	if got, ok := iface.Get("s"); !ok || got.String() != "string" {
		t.Errorf("s: %s, %t", got, ok)
	}
}
