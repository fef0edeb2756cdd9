// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"fmt"
	"sort"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// HostValue is a type defined by the host. It is represented by a
// prototype value of that type, through which the StarlarkOracle
// answers attribute queries.
type HostValue struct {
	name  string
	proto starlark.Value
}

// HostValueOf returns the host type of which v is an instance.
func HostValueOf(v starlark.Value) HostValue {
	return HostValue{name: v.Type(), proto: v}
}

// Prototype returns a value of the host type.
func (h HostValue) Prototype() starlark.Value { return h.proto }

func (h HostValue) String() string { return h.name }

func (h HostValue) goType() string { return fmt.Sprintf("%T", h.proto) }

// StringType returns the nominal string type.
func StringType() HostValue { return HostValueOf(starlark.String("")) }

// NoneType returns the type of None.
func NoneType() HostValue { return HostValueOf(starlark.None) }

// IntType returns the integer type.
func IntType() HostValue { return HostValueOf(starlark.MakeInt(0)) }

// BoolType returns the boolean type.
func BoolType() HostValue { return HostValueOf(starlark.False) }

// FloatType returns the floating-point type.
func FloatType() HostValue { return HostValueOf(starlark.Float(0)) }

// BytesType returns the bytes type.
func BytesType() HostValue { return HostValueOf(starlark.Bytes("")) }

var hostTypes struct {
	sync.RWMutex
	m map[string]HostValue
}

func init() {
	hostTypes.m = make(map[string]HostValue)
	for _, v := range []starlark.Value{
		starlark.None,
		starlark.False,
		starlark.MakeInt(0),
		starlark.Float(0),
		starlark.String(""),
		starlark.Bytes(""),
		starlark.NewSet(0),
		starlark.NewBuiltin("len", nil),
		starlarkstruct.FromStringDict(starlarkstruct.Default, nil),
	} {
		RegisterHostType(v)
	}
}

// RegisterHostType makes the type of v known to LookupHostType.
// A later registration of the same type name replaces an earlier one.
func RegisterHostType(v starlark.Value) {
	hostTypes.Lock()
	hostTypes.m[v.Type()] = HostValueOf(v)
	hostTypes.Unlock()
}

// LookupHostType returns the registered host type with the given name.
func LookupHostType(name string) (HostValue, bool) {
	hostTypes.RLock()
	h, ok := hostTypes.m[name]
	hostTypes.RUnlock()
	return h, ok
}

// HostTypeNames returns the names of all registered host types, sorted.
func HostTypeNames() []string {
	hostTypes.RLock()
	names := make([]string, 0, len(hostTypes.m))
	for name := range hostTypes.m {
		names = append(names, name)
	}
	hostTypes.RUnlock()
	sort.Strings(names)
	return names
}

// TypeOfValue returns the most precise type of the value v.
// Lists, tuples and dicts are described structurally, with element
// types joined over their contents; other values by their host type.
func TypeOfValue(v starlark.Value) Ty {
	switch v := v.(type) {
	case *starlark.List:
		elems := make([]Ty, v.Len())
		for i := range elems {
			elems[i] = TypeOfValue(v.Index(i))
		}
		return Of(ListOf(joinOrAny(elems)))
	case starlark.Tuple:
		elems := make([]Ty, len(v))
		for i, x := range v {
			elems[i] = TypeOfValue(x)
		}
		return Of(TupleOf(elems...))
	case *starlark.Dict:
		var keys, values []Ty
		for _, item := range v.Items() {
			keys = append(keys, TypeOfValue(item[0]))
			values = append(values, TypeOfValue(item[1]))
		}
		return Of(DictOf(joinOrAny(keys), joinOrAny(values)))
	case *starlarkstruct.Struct:
		return Of(CustomOf(StructOf(v)))
	case *starlarkstruct.Module:
		return Of(CustomOf(ModuleOf(v)))
	}
	return Of(HostValueOf(v))
}

// joinOrAny is the union of tys, or Any if there are none.
func joinOrAny(tys []Ty) Ty {
	if len(tys) == 0 {
		return Any()
	}
	return Union(tys...)
}
