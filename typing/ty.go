// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typing defines the basic structural type representation of
// Starlark: the closed set of non-union type shapes (Basic), a union of
// them (Ty), the Oracle through which host-defined types answer
// structural queries, and module Interfaces.
package typing

import (
	"errors"
	"sort"
	"strings"
)

// A Ty is a union of basic types.
//
// The alternatives are kept sorted and free of duplicates, so two Tys
// built from equal alternatives in any order are Equal and render the
// same. A union containing AnyType collapses to Any. The empty union is
// Never, the type of a value that cannot exist.
//
// The zero Ty is Never. Tys are immutable.
type Ty struct {
	alts []Basic
}

var anyAlts = []Basic{AnyType{}}

// Any returns the unconstrained type.
func Any() Ty { return Ty{alts: anyAlts} }

// Never returns the bottom type.
func Never() Ty { return Ty{} }

// Of returns the type with a single alternative b.
func Of(b Basic) Ty {
	if _, ok := b.(AnyType); ok {
		return Any()
	}
	return Ty{alts: []Basic{b}}
}

// Union returns the union of tys.
func Union(tys ...Ty) Ty {
	var alts []Basic
	for _, t := range tys {
		if t.IsAny() {
			return Any()
		}
		alts = append(alts, t.alts...)
	}
	return unionOf(alts)
}

func unionOf(alts []Basic) Ty {
	if len(alts) == 0 {
		return Never()
	}
	sort.SliceStable(alts, func(i, j int) bool { return CompareBasic(alts[i], alts[j]) < 0 })
	out := alts[:1]
	for _, b := range alts[1:] {
		if _, ok := b.(AnyType); ok {
			return Any()
		}
		if CompareBasic(out[len(out)-1], b) != 0 {
			out = append(out, b)
		}
	}
	if _, ok := out[0].(AnyType); ok {
		return Any()
	}
	return Ty{alts: out}
}

// IsAny reports whether t is the unconstrained type.
func (t Ty) IsAny() bool {
	if len(t.alts) != 1 {
		return false
	}
	_, ok := t.alts[0].(AnyType)
	return ok
}

// IsNever reports whether t is the bottom type.
func (t Ty) IsNever() bool { return len(t.alts) == 0 }

// Basics returns the alternatives of t, in canonical order.
func (t Ty) Basics() []Basic { return append([]Basic(nil), t.alts...) }

// AsBasic returns the sole alternative of t, if it has exactly one.
func (t Ty) AsBasic() (Basic, bool) {
	if len(t.alts) != 1 {
		return nil, false
	}
	return t.alts[0], true
}

// AsName returns the common name of the alternatives of t, if any.
func (t Ty) AsName() (string, bool) {
	var name string
	for i, b := range t.alts {
		n, ok := AsName(b)
		if !ok || (i > 0 && n != name) {
			return "", false
		}
		name = n
	}
	return name, len(t.alts) > 0
}

// Indexed returns the type of x[i] for x of type t.
func (t Ty) Indexed(i int) Ty {
	if t.IsAny() {
		return Any()
	}
	res := make([]Ty, len(t.alts))
	for j, b := range t.alts {
		res[j] = Indexed(b, i)
	}
	return Union(res...)
}

// Attribute returns the type of x.attr for x of type t.
// Alternatives for which the access is impossible are dropped;
// if that leaves nothing, the error of the first one is returned.
func (t Ty) Attribute(attr Attr, ctx OracleCtx) (Ty, error) {
	if t.IsNever() {
		return Never(), nil
	}
	var res []Ty
	var first error
	for _, b := range t.alts {
		r, err := Attribute(b, attr, ctx)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		res = append(res, r)
	}
	if len(res) == 0 {
		return Ty{}, first
	}
	return Union(res...), nil
}

// String returns the canonical rendering of t:
// the basic rendering for a single alternative, `"never"` (quotes
// included) for Never,
// and alternatives separated by " | " otherwise.
func (t Ty) String() string {
	switch len(t.alts) {
	case 0:
		return `"never"`
	case 1:
		return t.alts[0].String()
	}
	var buf strings.Builder
	for i, b := range t.alts {
		if i > 0 {
			buf.WriteString(" | ")
		}
		buf.WriteString(b.String())
	}
	return buf.String()
}

// Equal reports whether x and y are structurally equal.
func Equal(x, y Ty) bool { return Compare(x, y) == 0 }

// Compare orders types structurally.
func Compare(x, y Ty) int {
	for i := 0; i < len(x.alts) && i < len(y.alts); i++ {
		if c := CompareBasic(x.alts[i], y.alts[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(x.alts), len(y.alts))
}

// IsImpossible reports whether err marks a statically impossible access.
func IsImpossible(err error) bool { return errors.Is(err, ErrImpossible) }
