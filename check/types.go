// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// FuncType is the type of a function defined in Starlark: a def or a
// lambda. Only its result type is tracked.
type FuncType struct {
	Result typing.Ty
}

var (
	_ typing.CustomComponents = FuncType{}
	_ typing.CustomAttributes = FuncType{}
)

func init() {
	typing.RegisterCustomType("function", func(components []typing.Ty) (typing.CustomImpl, error) {
		if len(components) != 1 {
			return nil, fmt.Errorf("function type has %d components, want 1", len(components))
		}
		return FuncType{components[0]}, nil
	})
}

func (FuncType) Name() (string, bool) { return "function", true }

func (f FuncType) String() string {
	if f.Result.IsAny() {
		return "function"
	}
	return "function -> " + f.Result.String()
}

// Components returns the result type.
func (f FuncType) Components() []typing.Ty { return []typing.Ty{f.Result} }

func (f FuncType) Compare(other typing.CustomImpl) int {
	return typing.Compare(f.Result, other.(FuncType).Result)
}

// Attribute reports that functions have no attributes and cannot be
// indexed, sliced or iterated.
func (FuncType) Attribute(typing.Attr) (typing.Ty, error) {
	return typing.Ty{}, typing.ErrImpossible
}

func funcOf(result typing.Ty) typing.Ty {
	return typing.Of(typing.CustomOf(FuncType{result}))
}

// namedTypes maps the names usable in annotations to their types.
var namedTypes = map[string]typing.Ty{
	"Any":      typing.Any(),
	"None":     typing.Of(typing.NoneType()),
	"NoneType": typing.Of(typing.NoneType()),
	"bool":     typing.Of(typing.BoolType()),
	"bytes":    typing.Of(typing.BytesType()),
	"dict":     typing.Of(typing.DictOf(typing.Any(), typing.Any())),
	"float":    typing.Of(typing.FloatType()),
	"function": funcOf(typing.Any()),
	"int":      typing.Of(typing.IntType()),
	"list":     typing.Of(typing.ListOf(typing.Any())),
	"str":      typing.Of(typing.StringType()),
	"string":   typing.Of(typing.StringType()),
	"tuple":    typing.Any(), // arity unknown
}

func lookupNamedType(name string) (typing.Ty, bool) {
	if t, ok := namedTypes[name]; ok {
		return t, true
	}
	if h, ok := typing.LookupHostType(name); ok {
		return typing.Of(h), true
	}
	return typing.Ty{}, false
}

// typeExpr evaluates an annotation, reporting malformed ones.
func (c *Checker) typeExpr(e cst.Expr) typing.Ty {
	switch e := e.(type) {
	case *cst.Ident:
		if t, ok := lookupNamedType(e.Name); ok {
			return t
		}
		if e.Resolved != nil && e.Resolved.Kind != cst.Undefined {
			// A user-defined or host-provided type, known by name only.
			return typing.Of(typing.NameOf(e.Name))
		}
		c.errorf(e, CodeUnknownType, "unknown type %s", e.Name)
		return typing.Any()

	case *cst.Literal:
		if s, ok := e.Value.(string); ok && e.Token == syntax.STRING {
			if s == "" {
				return typing.Any()
			}
			if t, ok := lookupNamedType(s); ok {
				return t
			}
			return typing.Of(typing.NameOf(s))
		}

	case *cst.DotExpr:
		if x, ok := e.X.(*cst.Ident); ok && x.Name == "typing" && e.Name == "Any" {
			return typing.Any()
		}
		return typing.Of(typing.NameOf(dotted(e)))

	case *cst.ParenExpr:
		return c.typeExpr(e.X)

	case *cst.BinaryExpr:
		if e.Op == syntax.PIPE {
			return typing.Union(c.typeExpr(e.X), c.typeExpr(e.Y))
		}

	case *cst.ListExpr:
		if len(e.List) == 1 {
			return typing.Of(typing.ListOf(c.typeExpr(e.List[0])))
		}

	case *cst.DictExpr:
		if len(e.List) == 1 {
			return typing.Of(typing.DictOf(c.typeExpr(e.List[0].Key), c.typeExpr(e.List[0].Value)))
		}

	case *cst.TupleExpr:
		return typing.Of(typing.TupleOf(c.typeExprs(e.List)...))

	case *cst.IndexExpr:
		if t, ok := c.genericType(e); ok {
			return t
		}
	}
	c.errorf(e, CodeBadType, "invalid type expression")
	return typing.Any()
}

func (c *Checker) typeExprs(list []cst.Expr) []typing.Ty {
	res := make([]typing.Ty, len(list))
	for i, x := range list {
		res[i] = c.typeExpr(x)
	}
	return res
}

// genericType evaluates list[T], dict[K, V], tuple[T, ...] and iter[T].
func (c *Checker) genericType(e *cst.IndexExpr) (typing.Ty, bool) {
	ctor, ok := e.X.(*cst.Ident)
	if !ok {
		return typing.Ty{}, false
	}
	args := []cst.Expr{e.Y}
	if tuple, ok := e.Y.(*cst.TupleExpr); ok {
		args = tuple.List
	}
	switch {
	case ctor.Name == "list" && len(args) == 1:
		return typing.Of(typing.ListOf(c.typeExpr(args[0]))), true
	case ctor.Name == "iter" && len(args) == 1:
		return typing.Of(typing.IterOf(c.typeExpr(args[0]))), true
	case ctor.Name == "dict" && len(args) == 2:
		return typing.Of(typing.DictOf(c.typeExpr(args[0]), c.typeExpr(args[1]))), true
	case ctor.Name == "tuple":
		// tuple[T, ...] is a tuple of unknown arity.
		if len(args) == 2 {
			if lit, ok := args[1].(*cst.Ident); ok && lit.Name == "Ellipsis" {
				c.typeExpr(args[0])
				return typing.Any(), true
			}
		}
		return typing.Of(typing.TupleOf(c.typeExprs(args)...)), true
	}
	return typing.Ty{}, false
}

func dotted(e cst.Expr) string {
	var parts []string
	for {
		switch x := e.(type) {
		case *cst.DotExpr:
			parts = append(parts, x.Name)
			e = x.X
			continue
		case *cst.Ident:
			parts = append(parts, x.Name)
		default:
			parts = append(parts, "?")
		}
		break
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// universeType returns the type of a universal name.
func universeType(name string) typing.Ty {
	v, ok := starlark.Universe[name]
	if !ok {
		return typing.Any()
	}
	return typing.TypeOfValue(v)
}
