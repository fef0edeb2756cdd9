// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/buildstar/starcheck/syntax"
)

func TestLowerParams(t *testing.T) {
	f, err := syntax.Parse("params.star", "def f(a, b=1, *args, c, **kw):\n    pass\n")
	if err != nil {
		t.Fatal(err)
	}
	def := f.Stmts[0].(*syntax.DefStmt)
	want := []struct {
		kind syntax.ParamKind
		name string
	}{
		{syntax.NormalParam, "a"},
		{syntax.DefaultParam, "b"},
		{syntax.ArgsParam, "args"},
		{syntax.NormalParam, "c"},
		{syntax.KwargsParam, "kw"},
	}
	if len(def.Params) != len(want) {
		t.Fatalf("got %d params, want %d", len(def.Params), len(want))
	}
	for i, p := range def.Params {
		if p.Kind != want[i].kind || p.Name.Name != want[i].name {
			t.Errorf("param %d = (%d, %s), want (%d, %s)", i, p.Kind, p.Name.Name, want[i].kind, want[i].name)
		}
	}
	if def.Params[1].Default == nil {
		t.Error("default value of b was dropped")
	}

	f, err = syntax.Parse("noargs.star", "def g(*, k):\n    pass\n")
	if err != nil {
		t.Fatal(err)
	}
	if p := f.Stmts[0].(*syntax.DefStmt).Params[0]; p.Kind != syntax.NoArgsParam || p.Name != nil {
		t.Errorf("bare * lowered to %+v", p)
	}
}

func TestLowerArgs(t *testing.T) {
	x, err := syntax.ParseExpr("args.star", "f(1, k=2, *xs, **kw)")
	if err != nil {
		t.Fatal(err)
	}
	call := x.(*syntax.CallExpr)
	kinds := []syntax.ArgKind{syntax.PositionalArg, syntax.NamedArg, syntax.ArgsArg, syntax.KwargsArg}
	for i, arg := range call.Args {
		if arg.Kind != kinds[i] {
			t.Errorf("arg %d has kind %d, want %d", i, arg.Kind, kinds[i])
		}
	}
	if call.Args[1].Name != "k" {
		t.Errorf("named arg = %q, want k", call.Args[1].Name)
	}
	if id, ok := call.Args[2].Value.(*syntax.Ident); !ok || id.Name != "xs" {
		t.Errorf("*args value = %#v", call.Args[2].Value)
	}
}

func TestLowerTargets(t *testing.T) {
	f, err := syntax.Parse("targets.star", "a, [b, (c)] = x\nd.e = y\nfor i, j in z: pass\n")
	if err != nil {
		t.Fatal(err)
	}
	var bound, used []string
	syntax.Walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.AssignIdent:
			bound = append(bound, n.Name)
		case *syntax.Ident:
			used = append(used, n.Name)
		}
		return true
	})
	if got := strings.Join(bound, " "); got != "a b c i j" {
		t.Errorf("bound names = %q", got)
	}
	if got := strings.Join(used, " "); got != "x d y z" {
		t.Errorf("used names = %q", got)
	}
}

func TestLowerLoad(t *testing.T) {
	f, err := syntax.Parse("load.star", `load("//pkg:lib.star", "a", b = "c")`+"\n")
	if err != nil {
		t.Fatal(err)
	}
	load := f.Stmts[0].(*syntax.LoadStmt)
	if load.ModuleName() != "//pkg:lib.star" {
		t.Errorf("module = %q", load.ModuleName())
	}
	if len(load.Names) != 2 ||
		load.Names[0].Local.Name != "a" || load.Names[0].Their != "a" ||
		load.Names[1].Local.Name != "b" || load.Names[1].Their != "c" {
		t.Errorf("names = %+v", load.Names)
	}
}

func TestParseError(t *testing.T) {
	_, err := syntax.Parse("bad.star", "x = (\n")
	var serr syntax.Error
	if !errors.As(err, &serr) {
		t.Fatalf("Parse error = %v (%T), want syntax.Error", err, err)
	}
	if serr.Pos.Filename() != "bad.star" {
		t.Errorf("error position = %s", serr.Pos)
	}
}

func TestParseLeavesTypeSlotsEmpty(t *testing.T) {
	const src = `
def f(a, b = 1, *args, c, **kw):
  x = a
  return lambda y: (x, y)
z = f(1, c = 2)
`
	f, err := syntax.Parse("a.star", src)
	if err != nil {
		t.Fatal(err)
	}
	syntax.Walk(f, func(n syntax.Node) bool {
		if _, ok := n.(*syntax.TypeExpr); ok {
			t.Errorf("unexpected TypeExpr at %s", syntax.Start(n))
		}
		return true
	})

	// Annotation syntax is rejected by the grammar.
	for _, src := range []string{"x: int = 1\n", "def g(p: int):\n  pass\n"} {
		if _, err := syntax.Parse("a.star", src); err == nil {
			t.Errorf("Parse(%q) succeeded, want syntax error", src)
		}
	}
}
