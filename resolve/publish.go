// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"github.com/buildstar/starcheck/typing"
)

// Publish returns the interface that m presents to modules that load
// it: its global variables, excluding those whose names begin with an
// underscore.
//
// The type of each name is obtained from typeOf, which may be nil or
// may report false for names it has no type for. Such names take the
// type of the symbol they were loaded as, if any, and Any otherwise.
func Publish(m *Module, typeOf func(b *Binding) (typing.Ty, bool)) *typing.Interface {
	exports := make(map[string]typing.Ty)
	for _, b := range m.Globals {
		if b.Name == "" || b.Name[0] == '_' {
			continue
		}
		if typeOf != nil {
			if t, ok := typeOf(b); ok {
				exports[b.Name] = t
				continue
			}
		}
		if b.Load != nil {
			if t, ok := b.Load.Interface.Get(b.Load.Name); ok {
				exports[b.Name] = t
				continue
			}
		}
		exports[b.Name] = typing.Any()
	}
	return typing.NewInterface(exports)
}
