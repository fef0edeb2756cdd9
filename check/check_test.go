// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/internal/chunkedfile"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

var (
	intTy    = typing.Of(typing.IntType())
	stringTy = typing.Of(typing.StringType())
)

var info = starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
	"name": starlark.String("x"),
	"size": starlark.MakeInt(1),
})

var loads = map[string]*typing.Interface{
	"lib.star": typing.NewInterface(map[string]typing.Ty{
		"greet":   typing.Any(),
		"version": stringTy,
	}),
}

func config() *check.Config {
	return &check.Config{
		Predeclared: map[string]typing.Ty{"info": typing.TypeOfValue(info)},
		Loads:       loads,
	}
}

var opts = &resolve.Options{
	GlobalReassign: true,
	IsPredeclared:  func(name string) bool { return name == "info" },
}

func TestCheck(t *testing.T) {
	filename := filepath.Join("testdata", "check.star")
	for _, chunk := range chunkedfile.Read(filename, t) {
		f, err := syntax.Parse(filename, chunk.Source)
		if err != nil {
			t.Error(err)
			continue
		}
		table := resolve.NewScopeTable()
		file := resolve.Map(f, loads, table)
		m, err := resolve.Analyze(file, table, opts)
		diags := check.ResolveDiagnostics(err)
		diags = append(diags, check.File(file, m, config()).Diagnostics...)
		for _, d := range diags {
			chunk.GotError(int(d.Pos.Line), d.Msg)
		}
		chunk.Done()
	}
}

// checkSource parses, analyzes and checks src, which must resolve.
func checkSource(t *testing.T, src string, extra ...syntax.Stmt) (*cst.File, *resolve.Module, *check.Result) {
	t.Helper()
	f, err := syntax.Parse("a.star", src)
	if err != nil {
		t.Fatal(err)
	}
	f.Stmts = append(f.Stmts, extra...)
	table := resolve.NewScopeTable()
	file := resolve.Map(f, loads, table)
	m, err := resolve.Analyze(file, table, opts)
	if err != nil {
		t.Fatal(err)
	}
	return file, m, check.File(file, m, config())
}

func globalType(t *testing.T, m *resolve.Module, res *check.Result, name string) typing.Ty {
	t.Helper()
	for _, b := range m.Globals {
		if b.Name == name {
			ty, ok := res.TypeOf(b)
			if !ok {
				t.Fatalf("no type for %s", name)
			}
			return ty
		}
	}
	t.Fatalf("no global %s", name)
	return typing.Ty{}
}

func TestInference(t *testing.T) {
	const src = `
load("lib.star", "version")
a = 1
b = "s"
c = [a, b]
d = {"k": a}
e, f = 1, "x"
g = c[0]
h = a if a else b
i = version
j = lambda: "r"
k = j()
l = [x * 2 for x in [1, 2]]
m = len(b) + 1
n = b + "t"
o = 1 / 2
p = (1,) + ("a",)
q = None
r = not a
s = sorted(["x"])
`
	_, m, res := checkSource(t, src)
	for _, test := range []struct {
		name, want string
	}{
		{"a", "int"},
		{"b", "string"},
		{"c", "[int | string]"},
		{"d", "{string: int}"},
		{"e", "int"},
		{"f", "string"},
		{"g", "int | string"},
		{"h", "int | string"},
		{"i", "string"},
		{"j", "function -> string"},
		{"k", "string"},
		{"l", "[int]"},
		{"m", "int"},
		{"n", "string"},
		{"o", "float"},
		{"p", "(int, string)"},
		{"q", "NoneType"},
		{"r", "bool"},
		{"s", "[string]"},
	} {
		if got := globalType(t, m, res, test.name).String(); got != test.want {
			t.Errorf("type of %s = %s, want %s", test.name, got, test.want)
		}
	}
	if len(res.Diagnostics) > 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestTupleIndexOutOfRange(t *testing.T) {
	_, m, res := checkSource(t, "t = (1, 2)\ny = t[2]\nz = t[-3]\nw = (t if t else (1, 2, 3))[2]\n")
	for _, name := range []string{"y", "z"} {
		if got := globalType(t, m, res, name); !got.IsNever() {
			t.Errorf("type of %s = %s, want never", name, got)
		}
	}
	// Only the short alternative is out of range.
	if got := globalType(t, m, res, "w"); !typing.Equal(got, intTy) {
		t.Errorf("type of w = %s, want int", got)
	}
	var codes []string
	for _, d := range res.Diagnostics {
		codes = append(codes, d.Code)
	}
	want := []string{check.CodeIndexRange, check.CodeIndexRange, check.CodeIndexRange}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("diagnostic codes (-want +got):\n%s", diff)
	}
}

func TestReassignmentIsUnion(t *testing.T) {
	_, m, res := checkSource(t, "x = 1\nx = 'a'\n")
	got := globalType(t, m, res, "x")
	if want := typing.Union(intTy, stringTy); !typing.Equal(got, want) {
		t.Errorf("x: got %s, want %s", got, want)
	}
}

func TestRecursiveDefinitionIsAny(t *testing.T) {
	_, m, res := checkSource(t, "def f():\n  x = [x]\n  return x\n")
	var x *resolve.Binding
	for _, b := range m.Table.Bindings() {
		if b.Name == "x" {
			x = b
		}
	}
	got, _ := res.TypeOf(x)
	if want := typing.Of(typing.ListOf(typing.Any())); !typing.Equal(got, want) {
		t.Errorf("x: got %s, want %s", got, want)
	}
}

// annotated returns the statement "name: T = rhs", where T is parsed
// from typ. The parser has no syntax for annotations.
func annotated(t *testing.T, name, typ string, rhs syntax.Expr) *syntax.AssignStmt {
	t.Helper()
	x, err := syntax.ParseExpr("a.star", typ)
	if err != nil {
		t.Fatal(err)
	}
	return &syntax.AssignStmt{
		Op:   syntax.EQ,
		LHS:  &syntax.AssignIdent{Name: name},
		Type: &syntax.TypeExpr{Expr: x},
		RHS:  rhs,
	}
}

func TestAnnotationTakesPriority(t *testing.T) {
	str := &syntax.Literal{Token: syntax.STRING, Raw: `"a"`, Value: "a"}
	_, m, res := checkSource(t, "", annotated(t, "x", "int", str))
	if got := globalType(t, m, res, "x"); !typing.Equal(got, intTy) {
		t.Errorf("x: got %s, want int", got)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(res.Diagnostics), res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Code != check.CodeTypeMismatch || d.Severity != check.Warning {
		t.Errorf("got %s diagnostic %q, want type-mismatch warning", d.Code, d.Msg)
	}
}

func TestCompatibleAnnotationIsQuiet(t *testing.T) {
	one := &syntax.Literal{Token: syntax.INT, Raw: "1", Value: int64(1)}
	_, _, res := checkSource(t, "", annotated(t, "x", "float", one))
	if len(res.Diagnostics) > 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestTypeExpressions(t *testing.T) {
	none := &syntax.Ident{Name: "None"}
	for _, test := range []struct {
		typ, want, code string
	}{
		{typ: "int", want: "int"},
		{typ: "str", want: "string"},
		{typ: "list[int]", want: "[int]"},
		{typ: "[int]", want: "[int]"},
		{typ: "dict[str, int]", want: "{string: int}"},
		{typ: "{str: int}", want: "{string: int}"},
		{typ: "(int, str)", want: "(int, string)"},
		{typ: "tuple[int]", want: "(int,)"},
		{typ: "iter[str]", want: "iter(string)"},
		{typ: "int | None", want: "NoneType | int"},
		{typ: "typing.Any", want: `""`},
		{typ: `"Foo"`, want: "Foo"},
		{typ: "Foo", want: "Foo"},
		{typ: "Bar", want: `""`, code: check.CodeUnknownType},
		{typ: "1 + 2", want: `""`, code: check.CodeBadType},
	} {
		file, _, res := checkSource(t, "Foo = 1\n", annotated(t, "v", test.typ, none))
		assign := file.Stmts[len(file.Stmts)-1].(*cst.AssignStmt)
		if assign.Type.Ty == nil {
			t.Errorf("%s: annotation not evaluated", test.typ)
			continue
		}
		if got := assign.Type.Ty.String(); got != test.want {
			t.Errorf("%s: got %s, want %s", test.typ, got, test.want)
		}
		var codes []string
		for _, d := range res.Diagnostics {
			if d.Severity == check.Error {
				codes = append(codes, d.Code)
			}
		}
		var want []string
		if test.code != "" {
			want = []string{test.code}
		}
		if diff := cmp.Diff(want, codes); diff != "" {
			t.Errorf("%s: diagnostics (-want +got):\n%s", test.typ, diff)
		}
	}
}

func TestCustomOracle(t *testing.T) {
	// An oracle that knows Name types called "Target".
	target := typing.OracleFunc(func(b typing.Basic, attr typing.Attr) (typing.Ty, error) {
		if n, ok := b.(typing.Name); ok && n.Value() == "Target" {
			if attr.Kind == typing.AttrRegular && attr.Name == "label" {
				return stringTy, nil
			}
			return typing.Ty{}, typing.ErrImpossible
		}
		return typing.Ty{}, typing.ErrNoStructuralAttr
	})
	f, err := syntax.Parse("a.star", "a = tgt.label.upper()\nb = tgt.lable\n")
	if err != nil {
		t.Fatal(err)
	}
	table := resolve.NewScopeTable()
	file := resolve.Map(f, nil, table)
	m, err := resolve.Analyze(file, table, &resolve.Options{
		IsPredeclared: func(name string) bool { return name == "tgt" },
	})
	if err != nil {
		t.Fatal(err)
	}
	res := check.File(file, m, &check.Config{
		Oracle:      typing.ChainOracle{target, typing.StarlarkOracle{}},
		Predeclared: map[string]typing.Ty{"tgt": typing.Of(typing.NameOf("Target"))},
	})
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0].Msg, "Target has no .lable") {
		t.Errorf("got diagnostics %v, want one for .lable", res.Diagnostics)
	}
	if got := globalType(t, m, res, "a"); !typing.Equal(got, typing.Any()) {
		// upper is a bound method; its call has unknown result.
		t.Errorf("a: got %s, want Any", got)
	}
}

func TestPublishUsesInferredTypes(t *testing.T) {
	_, m, res := checkSource(t, "x = 1\n_y = 'a'\ndef f(): pass\n")
	iface := resolve.Publish(m, res.TypeOf)
	if diff := cmp.Diff([]string{"f", "x"}, iface.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if got, _ := iface.Get("x"); !typing.Equal(got, intTy) {
		t.Errorf("x: got %s, want int", got)
	}
	if got, _ := iface.Get("f"); got.String() != "function" {
		t.Errorf("f: got %s, want function", got)
	}
}

func TestDiagnosticsAreSorted(t *testing.T) {
	// Checking line 2 infers the type of y, reporting line 3 first.
	const src = `def f():
  return y.upper() + 1 .nope
y = ['a'.nope][0]
`
	_, _, res := checkSource(t, src)
	if len(res.Diagnostics) != 2 {
		t.Fatalf("got %v, want 2 diagnostics", res.Diagnostics)
	}
	if res.Diagnostics[0].Pos.Line != 2 || res.Diagnostics[1].Pos.Line != 3 {
		t.Errorf("diagnostics out of order: %v", res.Diagnostics)
	}
}
