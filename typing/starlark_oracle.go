// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"go.starlark.net/starlark"
)

// StarlarkOracle answers attribute queries by inspecting prototype
// values of the go.starlark.net runtime. Lists, tuples and dicts are
// answered structurally; host values through their methods; custom
// types through CustomAttributes. Nominal types and iterables are not
// known.
type StarlarkOracle struct{}

var _ Oracle = StarlarkOracle{}

func (StarlarkOracle) Attribute(b Basic, attr Attr) (Ty, error) {
	switch b := b.(type) {
	case Custom:
		if ca, ok := b.impl.(CustomAttributes); ok {
			return ca.Attribute(attr)
		}
		return Ty{}, ErrNoStructuralAttr
	case Name, Iter, AnyType:
		return Ty{}, ErrNoStructuralAttr
	}

	switch attr.Kind {
	case AttrIter:
		switch b := b.(type) {
		case List:
			return b.elem, nil
		case Tuple:
			return joinOrAny(b.elems), nil
		case Dict:
			return b.key, nil
		}
	case AttrIndex:
		switch b := b.(type) {
		case List:
			return b.elem, nil
		case Tuple:
			return joinOrAny(b.elems), nil
		case Dict:
			return b.value, nil
		}
	case AttrSlice:
		switch b := b.(type) {
		case List:
			return Of(b), nil
		case Tuple:
			// Arity of the result is unknown.
			return Any(), nil
		case Dict:
			return Ty{}, ErrImpossible
		}
	}

	proto := prototype(b)
	if proto == nil {
		return Ty{}, ErrNoStructuralAttr
	}
	return protoAttribute(proto, attr)
}

// prototype returns a runtime value of type b, or nil.
func prototype(b Basic) starlark.Value {
	switch b := b.(type) {
	case HostValue:
		return b.proto
	case List:
		return starlark.NewList(nil)
	case Tuple:
		return starlark.Tuple(nil)
	case Dict:
		return starlark.NewDict(0)
	}
	return nil
}

func protoAttribute(proto starlark.Value, attr Attr) (Ty, error) {
	switch attr.Kind {
	case AttrRegular:
		ha, ok := proto.(starlark.HasAttrs)
		if !ok {
			return Ty{}, ErrImpossible
		}
		for _, name := range ha.AttrNames() {
			if name != attr.Name {
				continue
			}
			v, err := ha.Attr(name)
			if err != nil || v == nil {
				return Ty{}, ErrNoStructuralAttr
			}
			return TypeOfValue(v), nil
		}
		return Ty{}, ErrImpossible

	case AttrIter:
		if _, ok := proto.(starlark.Iterable); ok {
			return Any(), nil
		}
		return Ty{}, ErrImpossible

	case AttrIndex:
		switch proto.(type) {
		case starlark.String:
			return Of(StringType()), nil
		case starlark.Bytes:
			return Of(IntType()), nil
		case starlark.Indexable, starlark.Mapping:
			return Any(), nil
		}
		return Ty{}, ErrImpossible

	case AttrSlice:
		switch proto.(type) {
		case starlark.String, starlark.Bytes:
			return Of(HostValueOf(proto)), nil
		case starlark.Sliceable:
			return Any(), nil
		}
		return Ty{}, ErrImpossible
	}
	return Ty{}, ErrNoStructuralAttr
}
