// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing_test

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/buildstar/starcheck/typing"
)

var (
	str  = typing.Of(typing.StringType())
	num  = typing.Of(typing.IntType())
	none = typing.Of(typing.NoneType())
)

func TestString(t *testing.T) {
	for _, test := range []struct {
		ty   typing.Ty
		want string
	}{
		{typing.Any(), `""`},
		{typing.Never(), `"never"`},
		{str, "string"},
		{none, "NoneType"},
		{typing.Of(typing.NameOf("rule")), "rule"},
		{typing.Of(typing.ListOf(str)), "[string]"},
		{typing.Of(typing.ListOf(typing.Any())), `[""]`},
		{typing.Of(typing.TupleOf()), "()"},
		{typing.Of(typing.TupleOf(str)), "(string,)"},
		{typing.Of(typing.TupleOf(num, str)), "(int, string)"},
		{typing.Of(typing.DictOf(str, num)), "{string: int}"},
		{typing.Of(typing.IterOf(num)), "iter(int)"},
		{typing.Union(str, num), "int | string"},
		{typing.Union(str, num, str), "int | string"},
		{typing.Union(str, typing.Any()), `""`},
		{typing.Union(), `"never"`},
		{typing.Of(typing.CustomOf(typing.NewStructType(
			typing.StructField{Name: "b", Type: num},
			typing.StructField{Name: "a", Type: str},
		))), "struct(a = string, b = int)"},
	} {
		if got := test.ty.String(); got != test.want {
			t.Errorf("String() = %s, want %s", got, test.want)
		}
	}
}

func TestAsName(t *testing.T) {
	structTy := typing.CustomOf(typing.NewStructType())
	for _, test := range []struct {
		b    typing.Basic
		want string // "" => none
	}{
		{typing.AnyType{}, ""},
		{typing.IterOf(num), ""},
		{typing.NameOf("rule"), "rule"},
		{typing.StringType(), "string"},
		{typing.NoneType(), "NoneType"},
		{typing.ListOf(typing.Of(typing.BoolType())), "list"},
		{typing.TupleOf(str, str), "tuple"},
		{typing.DictOf(str, str), "dict"},
		{structTy, "struct"},
	} {
		got, ok := typing.AsName(test.b)
		if !ok {
			got = ""
		}
		if got != test.want {
			t.Errorf("AsName(%s) = %q, want %q", test.b, got, test.want)
		}
	}
}

func TestIndexed(t *testing.T) {
	pair := typing.TupleOf(num, str)
	for _, test := range []struct {
		b    typing.Basic
		i    int
		want typing.Ty
	}{
		{typing.AnyType{}, 3, typing.Any()},
		{pair, 0, num},
		{pair, 1, str},
		{pair, 2, typing.Never()},
		{pair, -1, typing.Never()},
		{typing.TupleOf(), 0, typing.Never()},
		{typing.ListOf(str), 0, str},
		{typing.ListOf(str), 100, str},
		{typing.DictOf(num, str), 0, typing.Any()},
		{typing.StringType(), 0, typing.Any()},
	} {
		if got := typing.Indexed(test.b, test.i); !typing.Equal(got, test.want) {
			t.Errorf("Indexed(%s, %d) = %s, want %s", test.b, test.i, got, test.want)
		}
	}

	// Union indexing distributes over alternatives.
	u := typing.Union(typing.Of(pair), typing.Of(typing.ListOf(none)))
	if got, want := u.Indexed(1).String(), "NoneType | string"; got != want {
		t.Errorf("union Indexed(1) = %s, want %s", got, want)
	}
}

func TestAttributeWithoutOracle(t *testing.T) {
	var ctx typing.OracleCtx
	for _, b := range []typing.Basic{
		typing.AnyType{},
		typing.StringType(),
		typing.ListOf(str),
		typing.NameOf("rule"),
	} {
		got, err := typing.Attribute(b, typing.Named("anything"), ctx)
		if err != nil || !got.IsAny() {
			t.Errorf("Attribute(%s) = %s, %v; want Any", b, got, err)
		}
	}
}

func TestAttributeErrorPropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("host says no")
	ctx := typing.OracleCtx{Oracle: typing.OracleFunc(func(typing.Basic, typing.Attr) (typing.Ty, error) {
		return typing.Ty{}, sentinel
	})}
	_, err := typing.Attribute(typing.IntType(), typing.Named("x"), ctx)
	if err != sentinel {
		t.Errorf("got error %v, want the oracle's error", err)
	}

	// Any never reaches the oracle.
	if got, err := typing.Attribute(typing.AnyType{}, typing.Named("x"), ctx); err != nil || !got.IsAny() {
		t.Errorf("Attribute(Any) = %s, %v", got, err)
	}
}

func TestStarlarkOracle(t *testing.T) {
	ctx := typing.OracleCtx{Oracle: typing.StarlarkOracle{}}
	person := typing.CustomOf(typing.NewStructType(typing.StructField{Name: "name", Type: str}))
	builtin := "builtin_function_or_method"
	for _, test := range []struct {
		b    typing.Basic
		attr typing.Attr
		want string // "impossible" => ErrImpossible
	}{
		{typing.StringType(), typing.Named("upper"), builtin},
		{typing.StringType(), typing.Named("nosuch"), "impossible"},
		{typing.StringType(), typing.IndexAttr, "string"},
		{typing.StringType(), typing.SliceAttr, "string"},
		{typing.StringType(), typing.IterAttr, "impossible"},
		{typing.IntType(), typing.Named("x"), "impossible"},
		{typing.NoneType(), typing.Named("x"), "impossible"},
		{typing.ListOf(num), typing.Named("append"), builtin},
		{typing.ListOf(num), typing.Named("nosuch"), "impossible"},
		{typing.ListOf(num), typing.IterAttr, "int"},
		{typing.ListOf(num), typing.SliceAttr, "[int]"},
		{typing.DictOf(str, num), typing.Named("keys"), builtin},
		{typing.DictOf(str, num), typing.IterAttr, "string"},
		{typing.DictOf(str, num), typing.IndexAttr, "int"},
		{typing.DictOf(str, num), typing.SliceAttr, "impossible"},
		{typing.TupleOf(num, str), typing.IterAttr, "int | string"},
		{typing.TupleOf(num, str), typing.Named("count"), "impossible"},
		{typing.NameOf("rule"), typing.Named("x"), `""`},
		{typing.IterOf(num), typing.Named("x"), `""`},
		{person, typing.Named("name"), "string"},
		{person, typing.Named("age"), "impossible"},
	} {
		got, err := typing.Attribute(test.b, test.attr, ctx)
		var gotStr string
		if typing.IsImpossible(err) {
			gotStr = "impossible"
		} else if err != nil {
			t.Errorf("%s%s: unexpected error %v", test.b, test.attr, err)
			continue
		} else {
			gotStr = got.String()
		}
		if gotStr != test.want {
			t.Errorf("%s%s = %s, want %s", test.b, test.attr, gotStr, test.want)
		}
	}
}

func TestUnionAttribute(t *testing.T) {
	ctx := typing.OracleCtx{Oracle: typing.StarlarkOracle{}}

	// One alternative supports the attribute; the impossible one is dropped.
	u := typing.Union(str, num)
	got, err := u.Attribute(typing.Named("upper"), ctx)
	if err != nil || got.String() != "builtin_function_or_method" {
		t.Errorf("(int | string).upper = %s, %v", got, err)
	}

	// No alternative supports it.
	if _, err := u.Attribute(typing.Named("nosuch"), ctx); !typing.IsImpossible(err) {
		t.Errorf("(int | string).nosuch: got %v, want ErrImpossible", err)
	}
}

func TestChainOracle(t *testing.T) {
	rules := typing.OracleFunc(func(b typing.Basic, attr typing.Attr) (typing.Ty, error) {
		if n, ok := b.(typing.Name); ok && n.Value() == "rule" && attr.Name == "label" {
			return str, nil
		}
		return typing.Ty{}, typing.ErrNoStructuralAttr
	})
	ctx := typing.OracleCtx{Oracle: typing.ChainOracle{rules, typing.StarlarkOracle{}}}

	if got, _ := typing.Attribute(typing.NameOf("rule"), typing.Named("label"), ctx); got.String() != "string" {
		t.Errorf("rule.label = %s", got)
	}
	if _, err := typing.Attribute(typing.IntType(), typing.Named("label"), ctx); !typing.IsImpossible(err) {
		t.Errorf("int.label: got %v, want ErrImpossible", err)
	}
}

func TestCompareIsTotal(t *testing.T) {
	basics := []typing.Basic{
		typing.AnyType{},
		typing.NameOf("a"),
		typing.NameOf("b"),
		typing.StringType(),
		typing.IntType(),
		typing.NoneType(),
		typing.IterOf(num),
		typing.ListOf(str),
		typing.ListOf(num),
		typing.TupleOf(),
		typing.TupleOf(str),
		typing.TupleOf(str, num),
		typing.DictOf(str, num),
		typing.DictOf(str, str),
		typing.CustomOf(typing.NewStructType()),
		typing.CustomOf(typing.NewStructType(typing.StructField{Name: "x", Type: num})),
	}
	for _, x := range basics {
		for _, y := range basics {
			cxy, cyx := typing.CompareBasic(x, y), typing.CompareBasic(y, x)
			if cxy != -cyx {
				t.Errorf("Compare(%s, %s) = %d but Compare(%s, %s) = %d", x, y, cxy, y, x, cyx)
			}
			if (cxy == 0) != (fmt.Sprint(x) == fmt.Sprint(y)) {
				t.Errorf("Compare(%s, %s) = %d", x, y, cxy)
			}
		}
	}

	// Sorting any permutation yields the same order.
	want := append([]typing.Basic(nil), basics...)
	sortBasics(want)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		got := append([]typing.Basic(nil), basics...)
		rng.Shuffle(len(got), func(i, j int) { got[i], got[j] = got[j], got[i] })
		sortBasics(got)
		if diff := cmp.Diff(render(want), render(got)); diff != "" {
			t.Errorf("unstable order (-want +got):\n%s", diff)
		}
	}
}

func TestEqualIsStructural(t *testing.T) {
	x := typing.Of(typing.DictOf(str, typing.Of(typing.ListOf(num))))
	y := typing.Of(typing.DictOf(
		typing.Of(typing.HostValueOf(starlark.String("other"))),
		typing.Of(typing.ListOf(typing.Of(typing.HostValueOf(starlark.MakeInt(42))))),
	))
	if !typing.Equal(x, y) {
		t.Errorf("%s != %s", x, y)
	}
	if typing.Equal(x, typing.Of(typing.DictOf(str, num))) {
		t.Errorf("distinct dicts compare equal")
	}
}

func TestTypeOfValue(t *testing.T) {
	s := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"name": starlark.String("x"),
		"deps": starlark.NewList([]starlark.Value{starlark.String("a")}),
	})
	for _, test := range []struct {
		v    starlark.Value
		want string
	}{
		{starlark.None, "NoneType"},
		{starlark.True, "bool"},
		{starlark.NewList(nil), `[""]`},
		{starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.String("a")}), "[int | string]"},
		{starlark.Tuple{starlark.MakeInt(1)}, "(int,)"},
		{s, "struct(deps = [string], name = string)"},
	} {
		if got := typing.TypeOfValue(test.v).String(); got != test.want {
			t.Errorf("TypeOfValue(%s) = %s, want %s", test.v, got, test.want)
		}
	}
}

func TestLookupHostType(t *testing.T) {
	for _, name := range []string{"string", "int", "NoneType", "bool", "struct"} {
		h, ok := typing.LookupHostType(name)
		if !ok || h.String() != name {
			t.Errorf("LookupHostType(%q) = %v, %t", name, h, ok)
		}
	}
	if _, ok := typing.LookupHostType("nosuch"); ok {
		t.Errorf("LookupHostType(nosuch) succeeded")
	}
}

func TestInterface(t *testing.T) {
	if typing.EmptyInterface() != typing.EmptyInterface() {
		t.Errorf("EmptyInterface is not shared")
	}
	iface := typing.NewInterface(map[string]typing.Ty{"y": num, "x": str})
	if diff := cmp.Diff([]string{"x", "y"}, iface.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	if got, ok := iface.Get("x"); !ok || !typing.Equal(got, str) {
		t.Errorf("Get(x) = %s, %t", got, ok)
	}
	if _, ok := iface.Get("z"); ok {
		t.Errorf("Get(z) succeeded")
	}
	if got, want := iface.String(), "{x: string, y: int}"; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
	same := typing.NewInterface(map[string]typing.Ty{"x": str, "y": num})
	if !typing.EqualInterface(iface, same) || typing.EqualInterface(iface, typing.EmptyInterface()) {
		t.Errorf("EqualInterface is wrong")
	}
}

func sortBasics(bs []typing.Basic) {
	sort.Slice(bs, func(i, j int) bool { return typing.CompareBasic(bs[i], bs[j]) < 0 })
}

func render(bs []typing.Basic) []string {
	res := make([]string, len(bs))
	for i, b := range bs {
		res[i] = b.String()
	}
	return res
}
