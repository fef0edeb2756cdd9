// Copyright 2019 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// This file defines the resolver's per-module tables.

// A Binding ties together all identifiers that denote the same variable.
type Binding struct {
	ID    cst.BindingID
	Name  string
	Scope Scope

	// Owner is the function whose locals include this binding, or
	// NoScope for globals and file-locals.
	Owner cst.ScopeID

	// Index records the index into the enclosing
	// - Function.Locals or Module.Locals, if Scope==Local or Cell
	// - Module.Globals,                   if Scope==Global.
	Index int

	// First is the first binding occurrence. It is nil for a global
	// carried over from an earlier REPL chunk.
	First *cst.AssignIdent

	// Load identifies the imported symbol, for bindings made by load.
	Load *LoadedSymbol
}

// A LoadedSymbol is a name exported by another module.
type LoadedSymbol struct {
	Module    string
	Interface *typing.Interface
	Name      string
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s %s %s", b.Scope, b.Name, b.ID)
}

// The Scope of a Binding indicates what kind of scope it has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function or file
	Cell                     // name is local but shared with a nested function
	Global                   // name is global to module
	Predeclared              // name is predeclared for this module (e.g. glob)
	Universal                // name is universal (e.g. len)
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Global:      "global",
	Predeclared: "predeclared",
	Universal:   "universal",
}

func (scope Scope) String() string { return scopeNames[scope] }

// A Function contains resolver information about a named or anonymous
// function. The ScopeTable creates one for each def and lambda as the
// tree is mapped; analysis fills in the rest.
type Function struct {
	ID     cst.ScopeID
	Parent cst.ScopeID     // enclosing function, or NoScope
	Pos    syntax.Position // of DEF or LAMBDA
	Name   string          // name of def, or "lambda"

	HasVarargs      bool       // whether params includes *args (convenience)
	HasKwargs       bool       // whether params includes **kwargs (convenience)
	NumKwonlyParams int        // number of keyword-only optional parameters
	Locals          []*Binding // this function's local/cell variables, parameters first
	FreeVars        []*Binding // enclosing cells to capture in closure
}

// A ScopeTable allocates the scope and binding identifiers of one
// module. It is not safe for concurrent use.
type ScopeTable struct {
	functions []*Function
	bindings  []*Binding
}

// NewScopeTable returns an empty table.
func NewScopeTable() *ScopeTable { return new(ScopeTable) }

// NewScope allocates the scope of a function nested in parent.
func (t *ScopeTable) NewScope(parent cst.ScopeID, pos syntax.Position, name string) cst.ScopeID {
	id, err := safecast.Conv[uint32](len(t.functions) + 1)
	if err != nil {
		panic(fmt.Errorf("scope table overflow: %w", err))
	}
	t.functions = append(t.functions, &Function{
		ID:     cst.ScopeID(id),
		Parent: parent,
		Pos:    pos,
		Name:   name,
	})
	return cst.ScopeID(id)
}

// Function returns the function with the given scope, or nil.
func (t *ScopeTable) Function(id cst.ScopeID) *Function {
	if id == cst.NoScope || int(id) > len(t.functions) {
		return nil
	}
	return t.functions[id-1]
}

// Functions returns all functions, in order of allocation.
func (t *ScopeTable) Functions() []*Function { return t.functions }

// NumScopes returns the number of scopes allocated.
func (t *ScopeTable) NumScopes() int { return len(t.functions) }

func (t *ScopeTable) newBinding(name string, scope Scope, owner cst.ScopeID, first *cst.AssignIdent) *Binding {
	id, err := safecast.Conv[uint32](len(t.bindings) + 1)
	if err != nil {
		panic(fmt.Errorf("binding table overflow: %w", err))
	}
	b := &Binding{
		ID:    cst.BindingID(id),
		Name:  name,
		Scope: scope,
		Owner: owner,
		First: first,
	}
	t.bindings = append(t.bindings, b)
	return b
}

// Binding returns the binding with the given ID, or nil.
func (t *ScopeTable) Binding(id cst.BindingID) *Binding {
	if id == cst.NoBinding || int(id) > len(t.bindings) {
		return nil
	}
	return t.bindings[id-1]
}

// Bindings returns all bindings, in order of allocation.
func (t *ScopeTable) Bindings() []*Binding { return t.bindings }

// NumBindings returns the number of bindings allocated.
func (t *ScopeTable) NumBindings() int { return len(t.bindings) }

// A Module contains resolver information about a file.
type Module struct {
	Path      string
	Locals    []*Binding // the file's load and comprehension variables
	Globals   []*Binding // the file's global variables
	Functions []*Function
	Table     *ScopeTable
}
