// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spell_test

import (
	"testing"

	"github.com/buildstar/starcheck/internal/spell"
)

func TestDistance(t *testing.T) {
	for _, test := range []struct {
		x, y string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"abc", "abcd", 1},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	} {
		if got := spell.Distance(test.x, test.y, 100); got != test.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", test.x, test.y, got, test.want)
		}
		if got := spell.Distance(test.y, test.x, 100); got != test.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", test.y, test.x, got, test.want)
		}
	}
}

func TestNearest(t *testing.T) {
	names := []string{"append", "extend", "glob", "native", "Upper_Case"}
	for _, test := range []struct {
		x, want string
	}{
		{"apend", "append"},
		{"glb", "glob"},
		{"uppercase", "Upper_Case"},
		{"zzzzzz", ""},
		{"x", ""},
	} {
		if got := spell.Nearest(test.x, names); got != test.want {
			t.Errorf("Nearest(%q) = %q, want %q", test.x, got, test.want)
		}
	}
}
