// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/driver"
	"github.com/buildstar/starcheck/internal/report"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve file",
	Short: "Print the binding table of a Starlark file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, m, err := checkOne(cmd, args[0])
		if err != nil {
			return err
		}
		if m.Info == nil {
			return exitError(1)
		}
		return report.Bindings(cmd.OutOrStdout(), m.Info, m.Result.TypeOf, e.report)
	},
}

var typeCmd = &cobra.Command{
	Use:   "type file [expr]",
	Short: "Print the interface of a Starlark file, or the type of an expression in it",
	Long: `Type prints the names a file exports and their types. Given an
expression, it instead prints the type the expression would have if it
appeared at the end of the file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, m, err := checkOne(cmd, args[0])
		if err != nil {
			return err
		}
		if m.Interface == nil || m.File == nil {
			return exitError(1)
		}
		if len(args) == 1 {
			return report.Interface(cmd.OutOrStdout(), m.Interface, e.report)
		}
		t, err := exprType(e, m, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

// checkOne checks a single file, printing its diagnostics to stderr.
func checkOne(cmd *cobra.Command, file string) (*env, *driver.Module, error) {
	e, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	e.openCache()
	defer e.close()

	res, err := driver.Run(cmd.Context(), []string{file}, e.driverOptions())
	if err != nil {
		return nil, nil, err
	}
	m := res.Modules[filepath.Clean(file)]
	if diags := res.Diagnostics(); len(diags) > 0 {
		opts := *e.report
		opts.Format = report.Text
		opts.Sources = map[string][]byte{m.Path: m.Source}
		if err := report.Diagnostics(os.Stderr, diags, &opts); err != nil {
			return nil, nil, err
		}
	}
	return e, m, nil
}

// exprType returns the type of src as if it were an expression
// statement at the end of module m.
func exprType(e *env, m *driver.Module, src string) (typing.Ty, error) {
	x, err := syntax.ParseExpr("<expr>", src)
	if err != nil {
		return typing.Ty{}, err
	}
	f, err := syntax.Parse(m.Path, m.Source)
	if err != nil {
		return typing.Ty{}, err
	}
	f.Stmts = append(f.Stmts, &syntax.ExprStmt{X: x})

	loads := make(map[string]*typing.Interface)
	for _, load := range m.File.Stmts {
		if load, ok := load.(*cst.LoadStmt); ok && load.Interface != nil {
			loads[load.Module.Value.(string)] = load.Interface
		}
	}
	table := resolve.NewScopeTable()
	file := resolve.Map(f, loads, table)
	info, err := resolve.Analyze(file, table, e.cfg.ResolveOptions())
	if err != nil {
		// Problems in the file itself were already reported.
		for _, d := range check.ResolveDiagnostics(err) {
			if d.Pos.Filename() == "<expr>" {
				return typing.Ty{}, fmt.Errorf("%s", d)
			}
		}
	}
	c := check.New(file, info, &check.Config{Predeclared: e.predeclared()})
	c.Check()
	return c.TypeOf(file.Stmts[len(file.Stmts)-1].(*cst.ExprStmt).X), nil
}
