// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repl provides an interactive loop that type-checks Starlark
// without running it.
//
// It supports readline-style command editing,
// and interrupts through Control-C.
//
// If an input line can be parsed as an expression, the REPL prints
// its static type. Otherwise the REPL reads lines until a blank line
// and checks the input as a list of statements, printing the type of
// each global it binds. Globals carry over from one input to the next,
// so later inputs may refer to them.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

// Options configures a session.
type Options struct {
	// Resolve selects the dialect. Global reassignment is always
	// allowed and loads always bind globally.
	Resolve resolve.Options

	Oracle      typing.Oracle
	Predeclared map[string]typing.Ty

	// Load returns the interface of a loaded module. If nil, every
	// load is of an unknown module.
	Load func(module string) (*typing.Interface, error)
}

// A Session holds the globals accumulated by earlier inputs.
type Session struct {
	opts    Options
	globals map[string]typing.Ty
	loads   map[string]*typing.Interface
}

// NewSession returns a session with no globals.
func NewSession(opts *Options) *Session {
	s := &Session{
		globals: make(map[string]typing.Ty),
		loads:   make(map[string]*typing.Interface),
	}
	if opts != nil {
		s.opts = *opts
	}
	s.opts.Resolve.GlobalReassign = true
	s.opts.Resolve.LoadBindsGlobally = true
	return s
}

// Globals returns the names and types of the session's globals.
func (s *Session) Globals() map[string]typing.Ty {
	globals := make(map[string]typing.Ty, len(s.globals))
	for name, t := range s.globals {
		globals[name] = t
	}
	return globals
}

// Check checks one input. If the input is a single expression, the
// output is its type; otherwise it is a "name: type" line for each
// global bound by the input. An input with binding errors binds
// nothing.
func (s *Session) Check(f *syntax.File) (output []string, diags []check.Diagnostic) {
	for _, stmt := range f.Stmts {
		if load, ok := stmt.(*syntax.LoadStmt); ok {
			s.load(load.ModuleName())
		}
	}

	table := resolve.NewScopeTable()
	file := resolve.Map(f, s.loads, table)
	m, err := resolve.REPLChunk(file, table, s.isGlobal, &s.opts.Resolve)
	diags = check.ResolveDiagnostics(err)

	c := check.New(file, m, &check.Config{
		Oracle:      s.opts.Oracle,
		Predeclared: s.opts.Predeclared,
		Loads:       s.loads,
		Globals:     s.globals,
	})
	res := c.Check()
	diags = append(diags, res.Diagnostics...)
	check.Sort(diags)

	if expr := soleExpr(file); expr != nil {
		return []string{c.TypeOf(expr).String()}, diags
	}
	if err != nil {
		return nil, diags
	}
	for _, b := range m.Globals {
		if b.First == nil {
			continue // carried over, not rebound
		}
		t, _ := res.TypeOf(b)
		s.globals[b.Name] = t
		output = append(output, fmt.Sprintf("%s: %s", b.Name, t))
	}
	return output, diags
}

func (s *Session) isGlobal(name string) bool {
	_, ok := s.globals[name]
	return ok
}

func (s *Session) load(module string) {
	if _, ok := s.loads[module]; ok || s.opts.Load == nil {
		return
	}
	iface, err := s.opts.Load(module)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", module, err)
		return
	}
	s.loads[module] = iface
}

func soleExpr(f *cst.File) cst.Expr {
	if len(f.Stmts) == 1 {
		if stmt, ok := f.Stmts[0].(*cst.ExprStmt); ok {
			return stmt.X
		}
	}
	return nil
}

// REPL runs the loop on the terminal until end of input.
func REPL(opts *Options) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "warning: standard input is not a terminal")
	}
	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()
	s := NewSession(opts)
	for {
		if err := rep(rl, s, rl.Stdout()); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// rep reads, checks, and prints one item.
//
// It returns an error (possibly readline.ErrInterrupt)
// only if readline failed. Problems in the input are printed.
func rep(rl *readline.Instance, s *Session, out io.Writer) error {
	eof := false

	// readline returns EOF, ErrInterrupted, or a line including "\n".
	rl.SetPrompt(">>> ")
	readline := func() ([]byte, error) {
		line, err := rl.Readline()
		rl.SetPrompt("... ")
		if err != nil {
			if err == io.EOF {
				eof = true
			}
			return nil, err
		}
		return []byte(line + "\n"), nil
	}

	f, err := syntax.ParseCompoundStmt("<stdin>", readline)
	if err != nil {
		if eof {
			return io.EOF
		}
		PrintError(err)
		return nil
	}

	output, diags := s.Check(f)
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d)
	}
	if len(output) > 0 {
		fmt.Fprintln(out, strings.Join(output, "\n"))
	}
	return nil
}

// PrintError prints the error to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, err)
}
