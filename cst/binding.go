// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cst

// This file defines the payload types carried by the annotated tree.

import (
	"fmt"

	"github.com/buildstar/starcheck/typing"
)

// A BindingID identifies one logical variable of a module. All
// occurrences that denote the same variable share a BindingID, and
// distinct variables never do. IDs are dense within a module.
type BindingID uint32

// NoBinding is the zero BindingID, meaning "not yet analyzed".
const NoBinding BindingID = 0

// A ScopeID identifies the scope introduced by a def statement or
// lambda expression. IDs are allocated in pre-order and never reused.
// The module scope has no ScopeID.
type ScopeID uint32

// NoScope is the zero ScopeID: the module scope, or none.
const NoScope ScopeID = 0

func (id BindingID) String() string {
	if id == NoBinding {
		return "b?"
	}
	return fmt.Sprintf("b%d", uint32(id))
}

func (id ScopeID) String() string {
	if id == NoScope {
		return "module"
	}
	return fmt.Sprintf("s%d", uint32(id))
}

// The Kind of a ResolvedIdent says where its name is bound.
type Kind uint8

const (
	Undefined   Kind = iota // name is not defined
	Local                   // name is local to a function or comprehension
	Module                  // name is global to the module
	Imported                // name is bound by a load statement
	Predeclared             // name is predeclared for this module (e.g. glob)
	Universal               // name is universal (e.g. len)
)

var kindNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Module:      "module",
	Imported:    "imported",
	Predeclared: "predeclared",
	Universal:   "universal",
}

func (k Kind) String() string { return kindNames[k] }

// A ResolvedIdent records what a use of a name refers to.
type ResolvedIdent struct {
	Kind Kind

	// Binding is the variable denoted, if Kind is Local, Module or
	// Imported. For Imported it is the local name bound by the load.
	Binding BindingID

	// Scope is the function that owns a Local binding, or NoScope for
	// comprehension variables at top level.
	Scope ScopeID

	// Interface and Name identify an Imported symbol.
	Interface *typing.Interface
	Name      string // also set for Predeclared, Universal and Undefined
}

// LocalIdent returns the resolution of a local variable.
func LocalIdent(b BindingID, scope ScopeID) *ResolvedIdent {
	return &ResolvedIdent{Kind: Local, Binding: b, Scope: scope}
}

// ModuleIdent returns the resolution of a module-level variable.
func ModuleIdent(b BindingID) *ResolvedIdent {
	return &ResolvedIdent{Kind: Module, Binding: b}
}

// ImportedIdent returns the resolution of a name bound by a load
// statement to the symbol name of iface.
func ImportedIdent(b BindingID, iface *typing.Interface, name string) *ResolvedIdent {
	return &ResolvedIdent{Kind: Imported, Binding: b, Interface: iface, Name: name}
}

// HostIdent returns the resolution of a predeclared or universal name.
func HostIdent(kind Kind, name string) *ResolvedIdent {
	return &ResolvedIdent{Kind: kind, Name: name}
}

// UndefinedIdent returns the resolution of an unbound name.
func UndefinedIdent(name string) *ResolvedIdent {
	return &ResolvedIdent{Kind: Undefined, Name: name}
}

func (r *ResolvedIdent) String() string {
	switch r.Kind {
	case Local:
		return fmt.Sprintf("local %s in %s", r.Binding, r.Scope)
	case Module:
		return fmt.Sprintf("module %s", r.Binding)
	case Imported:
		return fmt.Sprintf("imported %s as %s", r.Name, r.Binding)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.Name)
}
