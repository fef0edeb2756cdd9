// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"fmt"
	"strings"
)

// Variant ranks, in declaration order.
const (
	rankAny = iota
	rankName
	rankHostValue
	rankIter
	rankList
	rankTuple
	rankDict
	rankCustom
)

func rank(b Basic) int {
	switch b.(type) {
	case AnyType:
		return rankAny
	case Name:
		return rankName
	case HostValue:
		return rankHostValue
	case Iter:
		return rankIter
	case List:
		return rankList
	case Tuple:
		return rankTuple
	case Dict:
		return rankDict
	case Custom:
		return rankCustom
	}
	panic(fmt.Sprintf("unexpected basic type %T", b))
}

// EqualBasic reports whether x and y are structurally equal.
func EqualBasic(x, y Basic) bool { return CompareBasic(x, y) == 0 }

// CompareBasic defines a total order over basic types.
//
// Variants are ordered by kind, then structurally within a kind.
// Host values compare by type name, then by the identity of their Go
// type. Custom types of different implementations compare by the name
// of the implementing Go type; those of the same implementation defer
// to CustomImpl.Compare.
func CompareBasic(x, y Basic) int {
	if c := cmpInt(rank(x), rank(y)); c != 0 {
		return c
	}
	switch x := x.(type) {
	case AnyType:
		return 0
	case Name:
		return strings.Compare(x.name, y.(Name).name)
	case HostValue:
		y := y.(HostValue)
		if c := strings.Compare(x.name, y.name); c != 0 {
			return c
		}
		return strings.Compare(x.goType(), y.goType())
	case Iter:
		return Compare(x.item, y.(Iter).item)
	case List:
		return Compare(x.elem, y.(List).elem)
	case Tuple:
		y := y.(Tuple)
		for i := 0; i < len(x.elems) && i < len(y.elems); i++ {
			if c := Compare(x.elems[i], y.elems[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(x.elems), len(y.elems))
	case Dict:
		y := y.(Dict)
		if c := Compare(x.key, y.key); c != 0 {
			return c
		}
		return Compare(x.value, y.value)
	case Custom:
		y := y.(Custom)
		xt, yt := fmt.Sprintf("%T", x.impl), fmt.Sprintf("%T", y.impl)
		if c := strings.Compare(xt, yt); c != 0 {
			return c
		}
		return x.impl.Compare(y.impl)
	}
	panic("unreachable")
}

func cmpInt(x, y int) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return +1
	}
	return 0
}
