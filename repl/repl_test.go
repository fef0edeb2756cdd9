// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repl_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/buildstar/starcheck/repl"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

func TestSession(t *testing.T) {
	lib := typing.NewInterface(map[string]typing.Ty{
		"version": typing.Of(typing.StringType()),
	})
	s := repl.NewSession(&repl.Options{
		Load: func(module string) (*typing.Interface, error) {
			if module == "lib.star" {
				return lib, nil
			}
			return nil, fmt.Errorf("no such module")
		},
	})

	for _, test := range []struct {
		input string
		want  []string
		diags []string
	}{
		{input: "x = 1", want: []string{"x: int"}},
		{input: "x", want: []string{"int"}},
		{input: "y = [x, 'a']", want: []string{"y: [int | string]"}},
		{input: "x = x + 1", want: []string{"x: int"}},
		{input: "x = 'now a string'", want: []string{"x: string"}},
		{input: "len(x)", want: []string{"int"}},
		{input: "y[0]", want: []string{"int | string"}},
		{input: `load("lib.star", "version")`, want: []string{"version: string"}},
		{input: "version.nope", want: []string{`""`}, diags: []string{"string has no .nope field"}},
		{input: "z = undefined_name", diags: []string{"undefined: undefined_name"}},
		{input: "z", want: []string{`""`}, diags: []string{"undefined: z"}},
		{input: "def f(n):\n    return x\n", want: []string{"f: function"}},
	} {
		f, err := syntax.Parse("<stdin>", test.input)
		if err != nil {
			t.Fatalf("%q: %v", test.input, err)
		}
		got, diags := s.Check(f)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%q: output (-want +got):\n%s", test.input, diff)
		}
		if len(diags) != len(test.diags) {
			t.Errorf("%q: diagnostics = %v, want %q", test.input, diags, test.diags)
			continue
		}
		for i, d := range diags {
			if !strings.Contains(d.Msg, test.diags[i]) {
				t.Errorf("%q: diagnostic %q lacks %q", test.input, d.Msg, test.diags[i])
			}
		}
	}

	if _, ok := s.Globals()["z"]; ok {
		t.Error("input with binding errors defined z")
	}
}
