// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"sort"
	"strings"
)

// An Interface is the typed public surface of a module: the names it
// exports and their types. Interfaces are immutable and shared by
// every load statement that refers to the module.
type Interface struct {
	names []string // sorted
	types map[string]Ty
}

var emptyInterface = &Interface{}

// EmptyInterface returns the interface with no names.
// It stands in for modules whose interface is unknown.
func EmptyInterface() *Interface { return emptyInterface }

// NewInterface returns an interface exporting the entries of m.
func NewInterface(m map[string]Ty) *Interface {
	if len(m) == 0 {
		return emptyInterface
	}
	iface := &Interface{
		names: make([]string, 0, len(m)),
		types: make(map[string]Ty, len(m)),
	}
	for name, t := range m {
		iface.names = append(iface.names, name)
		iface.types[name] = t
	}
	sort.Strings(iface.names)
	return iface
}

// Get returns the type of the exported name.
func (i *Interface) Get(name string) (Ty, bool) {
	t, ok := i.types[name]
	return t, ok
}

// Names returns the exported names, sorted.
func (i *Interface) Names() []string { return append([]string(nil), i.names...) }

// Len returns the number of exported names.
func (i *Interface) Len() int { return len(i.names) }

func (i *Interface) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for j, name := range i.names {
		if j > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(i.types[name].String())
	}
	buf.WriteByte('}')
	return buf.String()
}

// EqualInterface reports whether x and y export the same names with
// structurally equal types.
func EqualInterface(x, y *Interface) bool {
	if len(x.names) != len(y.names) {
		return false
	}
	for j, name := range x.names {
		if y.names[j] != name || !Equal(x.types[name], y.types[name]) {
			return false
		}
	}
	return true
}
