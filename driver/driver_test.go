// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/driver"
	"github.com/buildstar/starcheck/internal/cache"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/typing"
)

// writeTree creates the named files under a new temporary directory
// and returns the directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func codes(diags []check.Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func run(t *testing.T, dir string, roots []string, opts *driver.Options) *driver.Result {
	t.Helper()
	if opts == nil {
		opts = new(driver.Options)
	}
	opts.Root = dir
	var paths []string
	for _, root := range roots {
		paths = append(paths, filepath.Join(dir, root))
	}
	res, err := driver.Run(context.Background(), paths, opts)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRun(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"lib/util.star": `
greeting = "hello"
sizes = [1, 2, 3]
_secret = 1
`,
		"pkg/helper.star": `
load("//lib/util.star", "sizes")

def count():
    return len(sizes)
`,
		"pkg/main.star": `
load("//lib:util.star", "greeting", "farewell")
load(":helper.star", "count")

x = greeting.upper()
y = greeting.nope
`,
	})
	res := run(t, dir, []string{"pkg/main.star"}, nil)

	var waves [][]string
	for _, wave := range res.Waves {
		var names []string
		for _, path := range wave {
			rel, _ := filepath.Rel(dir, path)
			names = append(names, filepath.ToSlash(rel))
		}
		waves = append(waves, names)
	}
	want := [][]string{{"lib/util.star"}, {"pkg/helper.star"}, {"pkg/main.star"}}
	if diff := cmp.Diff(want, waves); diff != "" {
		t.Errorf("waves (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{check.CodeMissingSymbol, check.CodeNoAttribute}, codes(res.Diagnostics())); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s\n%v", diff, res.Diagnostics())
	}

	util := res.Modules[filepath.Join(dir, "lib/util.star")]
	if got := strings.Join(util.Interface.Names(), " "); got != "greeting sizes" {
		t.Errorf("util exports %s, want greeting sizes", got)
	}
	if ty, _ := util.Interface.Get("greeting"); !typing.Equal(ty, typing.Of(typing.StringType())) {
		t.Errorf("greeting has type %s, want string", ty)
	}

	main := res.Modules[filepath.Join(dir, "pkg/main.star")]
	if got := main.Deps["//lib:util.star"]; got != util.Path {
		t.Errorf("//lib:util.star located at %s, want %s", got, util.Path)
	}
}

func TestAliases(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"third_party/std/strings.star": "sep = \",\"\n",
		"main.star": `
load("@std/strings.star", "sep")
load("@nowhere/x.star", "y")
`,
	})
	res := run(t, dir, []string{"main.star"}, &driver.Options{
		Aliases: map[string]string{"@std": "third_party/std"},
	})
	diags := res.Diagnostics()
	if diff := cmp.Diff([]string{check.CodeUnknownModule}, codes(diags)); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s\n%v", diff, diags)
	}
}

func TestMissingFile(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.star": `load(":absent.star", "x")` + "\n",
	})
	res := run(t, dir, []string{"main.star", "gone.star"}, nil)
	if diff := cmp.Diff([]string{driver.CodeIO, check.CodeUnknownModule}, codes(res.Diagnostics())); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s\n%v", diff, res.Diagnostics())
	}
	if _, ok := res.Modules[filepath.Join(dir, "absent.star")]; ok {
		t.Error("unreadable load target was added to the graph")
	}
}

func TestSyntaxError(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"bad.star":  "x = (\n",
		"main.star": `load(":bad.star", "x")` + "\n",
	})
	res := run(t, dir, []string{"main.star", "bad.star"}, nil)
	diags := res.Diagnostics()
	if diff := cmp.Diff([]string{driver.CodeSyntax, check.CodeMissingSymbol}, codes(diags)); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s\n%v", diff, diags)
	}
	if bad := res.Modules[filepath.Join(dir, "bad.star")]; bad.Interface.Len() != 0 {
		t.Errorf("unparsable module exports %v", bad.Interface.Names())
	}
}

func TestLoadCycle(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.star": "load(\":b.star\", \"b\")\na = 1\n",
		"b.star": "load(\":a.star\", \"a\")\nb = 2\n",
	})
	res := run(t, dir, []string{"a.star", "b.star"}, nil)

	var cycles []string
	for _, d := range res.Diagnostics() {
		if d.Code == driver.CodeLoadCycle {
			cycles = append(cycles, filepath.Base(d.Pos.Filename()))
		}
	}
	if diff := cmp.Diff([]string{"a.star", "b.star"}, cycles); diff != "" {
		t.Errorf("load cycle reported in (-want +got):\n%s", diff)
	}
	if len(res.Waves) != 2 {
		t.Errorf("cycle was not broken: waves = %v", res.Waves)
	}
	for _, m := range res.Modules {
		if m.Interface == nil {
			t.Errorf("%s has no interface", m.Path)
		}
	}
}

func TestCache(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"lib.star":  "n = 1\n",
		"main.star": "load(\":lib.star\", \"n\")\nm = n.nope\n",
	})
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	lib := filepath.Join(dir, "lib.star")
	main := filepath.Join(dir, "main.star")
	for i, wantCached := range []bool{false, true} {
		res := run(t, dir, []string{"main.star"}, &driver.Options{Cache: c, Jobs: 1})
		if got := res.Modules[lib].Cached; got != wantCached {
			t.Errorf("run %d: lib cached = %t, want %t", i, got, wantCached)
		}
		if res.Modules[main].Cached {
			t.Errorf("run %d: root module was taken from the cache", i)
		}
		if diff := cmp.Diff([]string{check.CodeNoAttribute}, codes(res.Diagnostics())); diff != "" {
			t.Errorf("run %d: diagnostics (-want +got):\n%s", i, diff)
		}
	}

	if err := os.WriteFile(lib, []byte("n = \"one\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := run(t, dir, []string{"main.star"}, &driver.Options{Cache: c})
	if res.Modules[lib].Cached {
		t.Error("edited module was taken from the cache")
	}
	if diags := res.Diagnostics(); len(diags) != 1 || !strings.Contains(diags[0].Msg, "string has no .nope") {
		t.Errorf("diagnostics after edit = %v", diags)
	}
}

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachedFunctionKeepsResultType(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"lib.star":  "f = lambda: 1\n",
		"main.star": "load(\":lib.star\", \"f\")\ny = f().foo\n",
	})
	c := openCache(t)
	lib := filepath.Join(dir, "lib.star")
	for i, wantCached := range []bool{false, true} {
		res := run(t, dir, []string{"main.star"}, &driver.Options{Cache: c})
		if got := res.Modules[lib].Cached; got != wantCached {
			t.Errorf("run %d: lib cached = %t, want %t", i, got, wantCached)
		}
		f, _ := res.Modules[lib].Interface.Get("f")
		if got, want := f.String(), "function -> int"; got != want {
			t.Errorf("run %d: f = %s, want %s", i, got, want)
		}
		if diff := cmp.Diff([]string{check.CodeNoAttribute}, codes(res.Diagnostics())); diff != "" {
			t.Errorf("run %d: diagnostics (-want +got):\n%s", i, diff)
		}
	}
}

func TestCacheKeyCoversConfiguration(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"lib.star":  "x = host\n",
		"main.star": "load(\":lib.star\", \"x\")\ny = x.foo\n",
	})
	c := openCache(t)
	lib := filepath.Join(dir, "lib.star")
	opts := func(host typing.Ty) *driver.Options {
		return &driver.Options{
			Resolve:     resolve.Options{IsPredeclared: func(name string) bool { return name == "host" }},
			Predeclared: map[string]typing.Ty{"host": host},
			Cache:       c,
		}
	}

	res := run(t, dir, []string{"main.star"}, opts(typing.Any()))
	if diags := res.Diagnostics(); len(diags) != 0 {
		t.Errorf("host = Any: unexpected diagnostics %v", diags)
	}

	res = run(t, dir, []string{"main.star"}, opts(typing.Of(typing.IntType())))
	if res.Modules[lib].Cached {
		t.Error("interface checked with another predeclared type was taken from the cache")
	}
	if diff := cmp.Diff([]string{check.CodeNoAttribute}, codes(res.Diagnostics())); diff != "" {
		t.Errorf("host = int: diagnostics (-want +got):\n%s", diff)
	}

	dialect := opts(typing.Of(typing.IntType()))
	dialect.Resolve.Recursion = true
	if res := run(t, dir, []string{"main.star"}, dialect); res.Modules[lib].Cached {
		t.Error("interface checked in another dialect was taken from the cache")
	}
	if res := run(t, dir, []string{"main.star"}, opts(typing.Of(typing.IntType()))); !res.Modules[lib].Cached {
		t.Error("unchanged configuration missed the cache")
	}
}

func TestCancel(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.star": "x = 1\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.Run(ctx, []string{filepath.Join(dir, "main.star")}, &driver.Options{Root: dir})
	if err != context.Canceled {
		t.Errorf("Run with canceled context = %v, want %v", err, context.Canceled)
	}
}

func TestLocate(t *testing.T) {
	opts := &driver.Options{Root: "/ws", Aliases: map[string]string{"@std": "third_party/std"}}
	from := filepath.FromSlash("/ws/pkg/BUILD.star")
	for _, test := range []struct {
		label, want string
	}{
		{"//lib/util.star", "/ws/lib/util.star"},
		{"//lib:util.star", "/ws/lib/util.star"},
		{"@std/strings.star", "/ws/third_party/std/strings.star"},
		{"@std//x:y.star", "/ws/third_party/std/x/y.star"},
		{":helper.star", "/ws/pkg/helper.star"},
		{"helper.star", "/ws/pkg/helper.star"},
		{"../other/x.star", "/ws/other/x.star"},
		{"@nowhere/x.star", ""},
	} {
		got, ok := opts.Locate(from, test.label)
		if want := filepath.FromSlash(test.want); got != want || ok != (test.want != "") {
			t.Errorf("Locate(%q) = %q, %t, want %q", test.label, got, ok, want)
		}
	}
}
