// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"sync"

	"go.starlark.net/starlark"

	"github.com/buildstar/starcheck/typing"
)

var (
	boolTy   = typing.Of(typing.BoolType())
	intTy    = typing.Of(typing.IntType())
	floatTy  = typing.Of(typing.FloatType())
	stringTy = typing.Of(typing.StringType())
	bytesTy  = typing.Of(typing.BytesType())
	noneTy   = typing.Of(typing.NoneType())
)

// rangeType is the type of range(n). The runtime type is unexported,
// so a prototype is obtained by calling the builtin.
var rangeType = sync.OnceValue(func() typing.Ty {
	thread := &starlark.Thread{Name: "range"}
	v, err := starlark.Call(thread, starlark.Universe["range"], starlark.Tuple{starlark.MakeInt(0)}, nil)
	if err != nil {
		return typing.Any()
	}
	return typing.Of(typing.HostValueOf(v))
})

// builtinResult returns the type of a call to the universal function
// name with positional arguments of the given types.
func (c *Checker) builtinResult(name string, args []typing.Ty) typing.Ty {
	arg := func(i int) typing.Ty {
		if i < len(args) {
			return args[i]
		}
		return typing.Any()
	}
	switch name {
	case "bool", "any", "all", "hasattr":
		return boolTy
	case "int", "len", "hash", "ord":
		return intTy
	case "str", "repr", "chr", "type":
		return stringTy
	case "float":
		return floatTy
	case "bytes":
		return bytesTy
	case "print":
		return noneTy
	case "fail":
		return typing.Never()
	case "set":
		return typing.Of(typing.HostValueOf(starlark.NewSet(0)))
	case "range":
		return rangeType()
	case "dir":
		return typing.Of(typing.ListOf(stringTy))
	case "dict":
		return typing.Of(typing.DictOf(typing.Any(), typing.Any()))
	case "list", "sorted", "reversed":
		if len(args) == 0 {
			return typing.Of(typing.ListOf(typing.Any()))
		}
		return typing.Of(typing.ListOf(c.elemType(arg(0))))
	case "tuple":
		if len(args) == 0 {
			return typing.Of(typing.TupleOf())
		}
		return typing.Any() // arity unknown
	case "enumerate":
		pair := typing.TupleOf(intTy, c.elemType(arg(0)))
		return typing.Of(typing.ListOf(typing.Of(pair)))
	case "zip":
		elems := make([]typing.Ty, len(args))
		for i, t := range args {
			elems[i] = c.elemType(t)
		}
		return typing.Of(typing.ListOf(typing.Of(typing.TupleOf(elems...))))
	case "abs":
		if isNumeric(arg(0)) {
			return arg(0)
		}
	case "max", "min":
		if len(args) == 1 {
			return c.elemType(args[0])
		}
		if len(args) > 1 {
			return typing.Union(args...)
		}
	}
	return typing.Any()
}

// elemType returns the type of the elements of an iterable of type t,
// or Any if it is not known to be iterable.
func (c *Checker) elemType(t typing.Ty) typing.Ty {
	elem, err := t.Attribute(typing.IterAttr, c.ctx)
	if err != nil {
		return typing.Any()
	}
	return elem
}

func isNumeric(t typing.Ty) bool {
	return typing.Equal(t, intTy) || typing.Equal(t, floatTy)
}
