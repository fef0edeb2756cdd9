// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lib describes the library modules of go.starlark.net that a
// host application may predeclare: json, math, proto, time, and the
// struct and module constructors.
//
// Their values are never called. They serve as prototypes from which
// the checker learns the types of the library's members, so that
// math.sqrt is known to be a builtin and time.zero.year an int.
package lib

import (
	"fmt"
	"sort"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/proto"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/buildstar/starcheck/typing"
)

var modules = map[string]starlark.Value{
	"json":   json.Module,
	"math":   math.Module,
	"proto":  proto.Module,
	"time":   time.Module,
	"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	"module": starlark.NewBuiltin("module", starlarkstruct.MakeModule),
}

func init() {
	// Values of these types are produced by library members, and may
	// be named in annotations.
	typing.RegisterHostType(time.Time{})
	typing.RegisterHostType(time.Duration(0))
}

// Names returns the names of the known libraries, sorted.
func Names() []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Type returns the type of the named library.
func Type(name string) (typing.Ty, bool) {
	v, ok := modules[name]
	if !ok {
		return typing.Ty{}, false
	}
	return typing.TypeOfValue(v), true
}

// Predeclared returns the types of the named libraries, keyed by name.
func Predeclared(names []string) (map[string]typing.Ty, error) {
	m := make(map[string]typing.Ty, len(names))
	for _, name := range names {
		t, ok := Type(name)
		if !ok {
			return nil, fmt.Errorf("unknown library %q (known: %v)", name, Names())
		}
		m[name] = t
	}
	return m, nil
}
