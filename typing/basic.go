// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"errors"
	"strings"
)

// A Basic is a type that is not a union.
//
// The set of implementations is closed: AnyType, Name, HostValue, Iter,
// List, Tuple, Dict and Custom. Host-defined behavior is reached only
// through the HostValue and Custom variants and the Oracle.
// Basic values are immutable and may be shared freely.
type Basic interface {
	// String returns the canonical rendering of the type.
	String() string
	basic()
}

func (AnyType) basic()   {}
func (Name) basic()      {}
func (HostValue) basic() {}
func (Iter) basic()      {}
func (List) basic()      {}
func (Tuple) basic()     {}
func (Dict) basic()      {}
func (Custom) basic()    {}

// AnyType is the unconstrained type.
type AnyType struct{}

// Name is a bare nominal type, used when no structural shape applies.
// It is never a name that another variant can represent, such as "list".
type Name struct{ name string }

// Iter is a type that supports iteration. It only appears as the type
// of an argument to a builtin, never as the type of a value.
type Iter struct{ item Ty }

// List is a list whose elements have type Elem.
type List struct{ elem Ty }

// Tuple is a fixed-arity tuple. It may be empty.
type Tuple struct{ elems []Ty }

// Dict is a dictionary with the given key and value types.
type Dict struct{ key, value Ty }

// NameOf returns the nominal type with the given name.
func NameOf(name string) Name { return Name{name} }

// IterOf returns the type of iterables yielding item.
func IterOf(item Ty) Iter { return Iter{item} }

// ListOf returns the type of lists of elem.
func ListOf(elem Ty) List { return List{elem} }

// TupleOf returns the tuple type with the given element types.
func TupleOf(elems ...Ty) Tuple {
	return Tuple{append([]Ty(nil), elems...)}
}

// DictOf returns the type of dictionaries from key to value.
func DictOf(key, value Ty) Dict { return Dict{key, value} }

// Value returns the name.
func (n Name) Value() string { return n.name }

// Item returns the element type yielded by iteration.
func (it Iter) Item() Ty { return it.item }

// Elem returns the element type.
func (l List) Elem() Ty { return l.elem }

// Len returns the arity of the tuple.
func (t Tuple) Len() int { return len(t.elems) }

// Elem returns the type of the i'th element.
func (t Tuple) Elem(i int) Ty { return t.elems[i] }

// Key returns the key type.
func (d Dict) Key() Ty { return d.key }

// Value returns the value type.
func (d Dict) Value() Ty { return d.value }

// AsName turns a type back into a name, potentially erasing structure:
// the type [bool] yields "list". It reports false for AnyType and for
// Iter, which never describes a value of its own.
func AsName(b Basic) (string, bool) {
	switch b := b.(type) {
	case Name:
		return b.name, true
	case HostValue:
		return b.name, true
	case List:
		return "list", true
	case Tuple:
		return "tuple", true
	case Dict:
		return "dict", true
	case Custom:
		return b.impl.Name()
	}
	return "", false
}

// Indexed returns the type of b[i] for an integer index i.
//
// Indexing a list yields its element type whatever the index. Indexing
// a tuple out of range yields Never. Other shapes yield Any: their
// indexing is keyed rather than positional and is answered by the
// oracle, not here.
func Indexed(b Basic, i int) Ty {
	switch b := b.(type) {
	case AnyType:
		return Any()
	case List:
		return b.elem
	case Tuple:
		if i >= 0 && i < len(b.elems) {
			return b.elems[i]
		}
		return Never()
	}
	return Any()
}

// Attribute returns the type of the attribute attr of a value of type b.
//
// AnyType has every attribute. For other types the oracle is asked; if
// it has no structural answer the result is Any. An error is returned
// only when the oracle reports the access as impossible, and it is
// returned unchanged.
func Attribute(b Basic, attr Attr, ctx OracleCtx) (Ty, error) {
	if _, ok := b.(AnyType); ok {
		return Any(), nil
	}
	t, err := ctx.Attribute(b, attr)
	if errors.Is(err, ErrNoStructuralAttr) {
		return Any(), nil
	}
	if err != nil {
		return Ty{}, err
	}
	return t, nil
}

func (AnyType) String() string { return `""` }

func (n Name) String() string { return n.name }

func (it Iter) String() string { return "iter(" + it.item.String() + ")" }

func (l List) String() string { return "[" + l.elem.String() + "]" }

func (t Tuple) String() string {
	if len(t.elems) == 1 {
		return "(" + t.elems[0].String() + ",)"
	}
	var buf strings.Builder
	buf.WriteByte('(')
	for i, elem := range t.elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(elem.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func (d Dict) String() string {
	return "{" + d.key.String() + ": " + d.value.String() + "}"
}
