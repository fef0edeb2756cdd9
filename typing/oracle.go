// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"errors"
	"fmt"
)

// An AttrKind says which kind of member access an Attr denotes.
type AttrKind uint8

const (
	AttrRegular AttrKind = iota // x.name
	AttrIndex                   // x[i]
	AttrIter                    // for _ in x
	AttrSlice                   // x[i:j]
)

// An Attr is a member access whose type may be asked of an Oracle.
type Attr struct {
	Kind AttrKind
	Name string // for AttrRegular
}

// Named returns the regular attribute access x.name.
func Named(name string) Attr { return Attr{Kind: AttrRegular, Name: name} }

var (
	IndexAttr = Attr{Kind: AttrIndex}
	IterAttr  = Attr{Kind: AttrIter}
	SliceAttr = Attr{Kind: AttrSlice}
)

func (a Attr) String() string {
	switch a.Kind {
	case AttrRegular:
		return "." + a.Name
	case AttrIndex:
		return "[]"
	case AttrIter:
		return "iter"
	case AttrSlice:
		return "[:]"
	}
	return fmt.Sprintf("Attr(%d)", a.Kind)
}

var (
	// ErrNoStructuralAttr is returned by an Oracle that has no
	// structural knowledge of an attribute. Callers treat it as Any.
	ErrNoStructuralAttr = errors.New("no structural knowledge of attribute")

	// ErrImpossible is returned by an Oracle when the access can
	// never succeed. It is propagated to the caller unchanged.
	ErrImpossible = errors.New("attribute access is statically impossible")
)

// An Oracle answers attribute queries about host-defined types.
//
// Attribute returns the type of attr on a value of type b, or an error
// wrapping ErrNoStructuralAttr if nothing is known, or ErrImpossible if
// the access can never succeed. It must be safe for concurrent use.
type Oracle interface {
	Attribute(b Basic, attr Attr) (Ty, error)
}

// OracleFunc adapts an ordinary function to the Oracle interface.
type OracleFunc func(b Basic, attr Attr) (Ty, error)

func (f OracleFunc) Attribute(b Basic, attr Attr) (Ty, error) { return f(b, attr) }

// ChainOracle consults each oracle in turn and returns the first answer
// that is not ErrNoStructuralAttr.
type ChainOracle []Oracle

func (c ChainOracle) Attribute(b Basic, attr Attr) (Ty, error) {
	for _, o := range c {
		t, err := o.Attribute(b, attr)
		if errors.Is(err, ErrNoStructuralAttr) {
			continue
		}
		return t, err
	}
	return Ty{}, ErrNoStructuralAttr
}

// OracleCtx carries the oracle through type operations.
// The zero OracleCtx knows nothing, so every attribute is Any.
type OracleCtx struct {
	Oracle Oracle
}

// Attribute asks the oracle, if any.
func (ctx OracleCtx) Attribute(b Basic, attr Attr) (Ty, error) {
	if ctx.Oracle == nil {
		return Ty{}, ErrNoStructuralAttr
	}
	return ctx.Oracle.Attribute(b, attr)
}
