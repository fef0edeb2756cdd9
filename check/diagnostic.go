// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
)

// Severity classifies a Diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic codes.
const (
	CodeResolve       = "resolve"        // a binding error found by the resolver
	CodeUndefined     = "undefined"      // a use of an unbound name
	CodeUnknownModule = "unknown-module" // a load of a module with no interface
	CodeMissingSymbol = "missing-symbol" // a load of a name the module does not export
	CodeNoAttribute   = "no-attribute"   // a statically impossible member access
	CodeIndexRange    = "index-range"    // a tuple index out of range
	CodeUnknownType   = "unknown-type"   // a type annotation that names no type
	CodeBadType       = "bad-type"       // an expression that is not a type
	CodeTypeMismatch  = "type-mismatch"  // a value that contradicts its annotation
)

// A Diagnostic is a problem found in a module.
type Diagnostic struct {
	Pos      syntax.Position
	End      syntax.Position // may be invalid
	Severity Severity
	Code     string
	Msg      string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
}

// ResolveDiagnostics converts an error returned by resolve.Analyze into
// diagnostics. Any other non-nil error becomes a single diagnostic
// without a position.
func ResolveDiagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	var list resolve.ErrorList
	if !errors.As(err, &list) {
		return []Diagnostic{{Severity: Error, Code: CodeResolve, Msg: err.Error()}}
	}
	diags := make([]Diagnostic, len(list))
	for i, e := range list {
		code := CodeResolve
		if strings.HasPrefix(e.Msg, "undefined: ") {
			code = CodeUndefined
		}
		diags[i] = Diagnostic{Pos: e.Pos, Severity: Error, Code: code, Msg: e.Msg}
	}
	return diags
}

// Sort orders diagnostics by position, then by message.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		x, y := diags[i].Pos, diags[j].Pos
		if x.Filename() != y.Filename() {
			return x.Filename() < y.Filename()
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		if x.Col != y.Col {
			return x.Col < y.Col
		}
		return diags[i].Msg < diags[j].Msg
	})
}
