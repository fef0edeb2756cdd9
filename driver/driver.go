// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver checks a set of Starlark files together with the
// modules they load.
//
// The driver discovers the load graph from the root files, orders its
// modules into waves such that every module's dependencies lie in
// earlier waves, and checks the modules of each wave concurrently.
// Between waves the published interfaces of the finished modules are
// made available to their importers. Load cycles are reported and
// broken. Interfaces of unchanged dependencies may be taken from a
// cache instead of being recomputed.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/internal/cache"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// Diagnostic codes reported by the driver.
const (
	CodeSyntax    = "syntax"     // the file could not be parsed
	CodeIO        = "io"         // the file could not be read
	CodeLoadCycle = "load-cycle" // the file is part of a load cycle
)

// A Logger receives progress messages. *logging.Logger implements it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Options configures a run.
type Options struct {
	// Resolve selects the dialect. Its IsGlobal field is ignored.
	Resolve resolve.Options

	// Predeclared and Oracle are passed to the checker.
	Predeclared map[string]typing.Ty
	Oracle      typing.Oracle

	// Root is the directory against which "//" labels are interpreted.
	// Aliases maps a label prefix such as "@stdlib" to a directory
	// relative to Root.
	Root    string
	Aliases map[string]string

	// Jobs bounds the number of modules checked at once.
	// Zero means GOMAXPROCS.
	Jobs int

	// Cache, if non-nil, supplies and records the interfaces of
	// modules that are not roots.
	Cache *cache.Cache

	// ReadFile reads source files. If nil, os.ReadFile is used.
	ReadFile func(path string) ([]byte, error)

	Logger Logger
}

// A Module is one file of the load graph.
type Module struct {
	Path   string
	Root   bool // named by the caller, not only loaded
	Source []byte

	// Deps maps each module name loaded by this file to the path of
	// the file it denotes.
	Deps map[string]string

	// File, Info and Result are the outputs of the resolver and
	// checker. They are nil if the file could not be parsed or if
	// its interface came from the cache.
	File   *cst.File
	Info   *resolve.Module
	Result *check.Result

	Interface   *typing.Interface
	Key         cache.Key
	Cached      bool
	Diagnostics []check.Diagnostic

	syntax *syntax.File
}

// A Result is the outcome of a run.
type Result struct {
	Modules map[string]*Module // by path
	Roots   []string           // paths of the root modules, in order
	Waves   [][]string         // paths, in checking order
}

// Diagnostics returns the sorted diagnostics of the root modules.
func (r *Result) Diagnostics() []check.Diagnostic {
	var diags []check.Diagnostic
	for _, path := range r.Roots {
		diags = append(diags, r.Modules[path].Diagnostics...)
	}
	check.Sort(diags)
	return diags
}

// Run checks the files named by roots and the modules they load.
// It returns an error only for failures of the run itself, such as
// cancellation; problems in the files are reported as diagnostics.
func Run(ctx context.Context, roots []string, opts *Options) (*Result, error) {
	d := &driver{opts: *opts, sources: make(map[string]source)}
	if d.opts.ReadFile == nil {
		d.opts.ReadFile = os.ReadFile
	}
	if d.opts.Logger == nil {
		d.opts.Logger = nopLogger{}
	}
	if d.opts.Jobs <= 0 {
		d.opts.Jobs = runtime.GOMAXPROCS(0)
	}
	d.res = &Result{Modules: make(map[string]*Module)}
	d.config = configDigest(&d.opts)

	for _, root := range roots {
		path := filepath.Clean(root)
		d.res.Roots = append(d.res.Roots, path)
		d.discover(path).Root = true
	}
	d.findCycles()
	d.res.Waves = d.waves()

	for i, wave := range d.res.Waves {
		d.opts.Logger.Debugf("wave %d: %d modules", i, len(wave))
		if err := d.runWave(ctx, wave); err != nil {
			return nil, err
		}
	}
	return d.res, nil
}

type driver struct {
	opts   Options
	res    *Result
	config cache.Key // digest of the settings that affect checking

	sources map[string]source
	cyclic  map[[2]string]bool // load edges removed to break cycles
}

// discover parses path and, transitively, the files it loads.
func (d *driver) discover(path string) *Module {
	if m, ok := d.res.Modules[path]; ok {
		return m
	}
	m := &Module{Path: path, Deps: make(map[string]string)}
	d.res.Modules[path] = m

	src, err := d.read(path)
	if err != nil {
		m.Diagnostics = append(m.Diagnostics, fileDiagnostic(path, CodeIO, err.Error()))
		return m
	}
	m.Source = src
	f, err := syntax.Parse(path, src)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			m.Diagnostics = append(m.Diagnostics, check.Diagnostic{
				Pos: serr.Pos, Severity: check.Error, Code: CodeSyntax, Msg: serr.Msg,
			})
		} else {
			m.Diagnostics = append(m.Diagnostics, fileDiagnostic(path, CodeSyntax, err.Error()))
		}
		return m
	}
	m.syntax = f

	for _, stmt := range f.Stmts {
		load, ok := stmt.(*syntax.LoadStmt)
		if !ok {
			continue
		}
		name := load.ModuleName()
		if _, ok := m.Deps[name]; ok {
			continue
		}
		dep, ok := d.opts.Locate(path, name)
		if !ok {
			continue
		}
		if _, err := d.read(dep); err != nil {
			// The checker reports the load as an unknown module.
			d.opts.Logger.Debugf("%s: load %q: %v", path, name, err)
			continue
		}
		m.Deps[name] = dep
		d.discover(dep)
	}
	return m
}

// read returns the contents of path, reading each file at most once.
func (d *driver) read(path string) ([]byte, error) {
	if s, ok := d.sources[path]; ok {
		return s.data, s.err
	}
	data, err := d.opts.ReadFile(path)
	d.sources[path] = source{data, err}
	return data, err
}

type source struct {
	data []byte
	err  error
}

// Locate maps a load label, appearing in the file from, to a file path.
// It reports false for a label with an unknown alias.
//
//	//pkg/file.star, //pkg:file.star   relative to Root
//	@alias/file.star                   relative to Root/Aliases[@alias]
//	:file.star, file.star, ../x.star   relative to the loading file
func (opts *Options) Locate(from, label string) (string, bool) {
	switch {
	case strings.HasPrefix(label, "//"):
		return filepath.Join(opts.Root, labelPath(label[2:])), true
	case strings.HasPrefix(label, "@"):
		alias, rest, _ := strings.Cut(label, "/")
		dir, ok := opts.Aliases[alias]
		if !ok {
			return "", false
		}
		return filepath.Join(opts.Root, dir, labelPath(rest)), true
	default:
		return filepath.Join(filepath.Dir(from), labelPath(strings.TrimPrefix(label, ":"))), true
	}
}

func labelPath(s string) string {
	return filepath.FromSlash(strings.Replace(s, ":", "/", 1))
}

// findCycles reports each load cycle and removes one of its edges.
func (d *driver) findCycles() {
	d.cyclic = make(map[[2]string]bool)
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var stack []string

	var visit func(path string)
	visit = func(path string) {
		color[path] = grey
		stack = append(stack, path)
		m := d.res.Modules[path]
		for _, name := range sortedKeys(m.Deps) {
			dep := m.Deps[name]
			switch color[dep] {
			case white:
				visit(dep)
			case grey:
				d.cyclic[[2]string{path, dep}] = true
				d.reportCycle(cycleFrom(stack, dep))
			}
		}
		stack = stack[:len(stack)-1]
		color[path] = black
	}
	for _, path := range sortedKeys(d.res.Modules) {
		if color[path] == white {
			visit(path)
		}
	}
}

func cycleFrom(stack []string, start string) []string {
	for i, p := range stack {
		if p == start {
			return append(append([]string(nil), stack[i:]...), start)
		}
	}
	return []string{start}
}

// reportCycle reports a cycle at each of its load statements.
func (d *driver) reportCycle(cycle []string) {
	msg := "load cycle: " + strings.Join(cycle, " -> ")
	d.opts.Logger.Warnf("%s", msg)
	for i := 0; i+1 < len(cycle); i++ {
		m := d.res.Modules[cycle[i]]
		for _, stmt := range m.syntax.Stmts {
			load, ok := stmt.(*syntax.LoadStmt)
			if !ok || m.Deps[load.ModuleName()] != cycle[i+1] {
				continue
			}
			start, end := load.Module.Span()
			m.Diagnostics = append(m.Diagnostics, check.Diagnostic{
				Pos: start, End: end, Severity: check.Error, Code: CodeLoadCycle, Msg: msg,
			})
			break
		}
	}
}

// waves layers the acyclic load graph: each module is placed in the
// wave after the last of its dependencies.
func (d *driver) waves() [][]string {
	level := make(map[string]int)
	var depth func(path string) int
	depth = func(path string) int {
		if l, ok := level[path]; ok {
			return l
		}
		l := 0
		m := d.res.Modules[path]
		for _, dep := range m.Deps {
			if d.cyclic[[2]string{path, dep}] {
				continue
			}
			if dl := depth(dep) + 1; dl > l {
				l = dl
			}
		}
		level[path] = l
		return l
	}
	var waves [][]string
	for _, path := range sortedKeys(d.res.Modules) {
		l := depth(path)
		for len(waves) <= l {
			waves = append(waves, nil)
		}
		waves[l] = append(waves[l], path)
	}
	return waves
}

func (d *driver) runWave(ctx context.Context, wave []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.opts.Jobs, len(wave)))
	for _, path := range wave {
		m := d.res.Modules[path]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return d.checkModule(m)
		})
	}
	return g.Wait()
}

// checkModule computes the interface of m. Its dependencies belong to
// earlier waves, so their interfaces are final and only read here.
func (d *driver) checkModule(m *Module) error {
	if m.syntax == nil {
		m.Interface = typing.EmptyInterface()
		return nil
	}

	loads := make(map[string]*typing.Interface, len(m.Deps))
	var depKeys []cache.Key
	for name, path := range m.Deps {
		if d.cyclic[[2]string{m.Path, path}] {
			loads[name] = typing.EmptyInterface()
			continue
		}
		dep := d.res.Modules[path]
		depKeys = append(depKeys, dep.Key)
		loads[name] = dep.Interface
	}
	m.Key = cache.KeyOf(d.config, m.Source, depKeys...)

	if !m.Root {
		iface, ok, err := d.opts.Cache.Get(m.Key)
		if err != nil {
			d.opts.Logger.Warnf("%s: %v", m.Path, err)
		} else if ok {
			d.opts.Logger.Debugf("%s: cached interface %s", m.Path, m.Key)
			m.Interface, m.Cached = iface, true
			return nil
		}
	}

	table := resolve.NewScopeTable()
	m.File = resolve.Map(m.syntax, loads, table)
	ropts := d.opts.Resolve
	ropts.IsGlobal = nil
	info, err := resolve.Analyze(m.File, table, &ropts)
	m.Info = info
	m.Diagnostics = append(m.Diagnostics, check.ResolveDiagnostics(err)...)

	m.Result = check.File(m.File, info, &check.Config{
		Oracle:      d.opts.Oracle,
		Predeclared: d.opts.Predeclared,
		Loads:       loads,
	})
	m.Diagnostics = append(m.Diagnostics, m.Result.Diagnostics...)
	check.Sort(m.Diagnostics)
	m.Interface = resolve.Publish(info, m.Result.TypeOf)

	if err := d.opts.Cache.Put(m.Key, m.Interface); errors.Is(err, cache.ErrUnencodable) {
		d.opts.Logger.Debugf("%s: not cached: %v", m.Path, err)
	} else if err != nil {
		d.opts.Logger.Warnf("%s: %v", m.Path, err)
	}
	return nil
}

// configDigest returns the digest of the options that can change a
// module's interface: the dialect, the predeclared environment and the
// oracle.
func configDigest(opts *Options) cache.Key {
	r := opts.Resolve
	parts := []string{
		fmt.Sprintf("globalreassign=%t", r.GlobalReassign),
		fmt.Sprintf("recursion=%t", r.Recursion),
		fmt.Sprintf("loadbindsglobally=%t", r.LoadBindsGlobally),
		fmt.Sprintf("oracle=%T", opts.Oracle),
	}
	for _, name := range sortedKeys(opts.Predeclared) {
		parts = append(parts, name+": "+opts.Predeclared[name].String())
	}
	return cache.Digest(parts...)
}

// fileDiagnostic returns a diagnostic positioned at the start of a file.
func fileDiagnostic(path, code, msg string) check.Diagnostic {
	return check.Diagnostic{
		Pos:      syntax.MakePosition(&path, 1, 1),
		Severity: check.Error,
		Code:     code,
		Msg:      msg,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
