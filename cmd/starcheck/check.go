// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/driver"
	"github.com/buildstar/starcheck/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check [files]",
	Short: "Report problems in Starlark files and the modules they load",
	Long: `Check resolves and type-checks the named files, or every .star file
beneath the current directory, together with the modules they load.
It exits with status 1 if any error was found.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	e.openCache()
	defer e.close()

	files := args
	if len(files) == 0 {
		files, err = findStarlarkFiles(".")
		if err != nil {
			return err
		}
	}
	e.log.Infof("checking %d files", len(files))

	res, err := driver.Run(cmd.Context(), files, e.driverOptions())
	if err != nil {
		return err
	}
	cached := 0
	for _, m := range res.Modules {
		if m.Cached {
			cached++
		}
	}
	e.log.Debugf("%d modules in %d waves, %d from cache", len(res.Modules), len(res.Waves), cached)

	diags := res.Diagnostics()
	opts := *e.report
	opts.Sources = make(map[string][]byte)
	for _, path := range res.Roots {
		opts.Sources[path] = res.Modules[path].Source
	}
	if err := report.Diagnostics(cmd.OutOrStdout(), diags, &opts); err != nil {
		return err
	}
	if hasErrors(diags) {
		return exitError(1)
	}
	if opts.Format == report.Text {
		e.log.Successf("no errors")
	}
	return nil
}

func (e *env) driverOptions() *driver.Options {
	return &driver.Options{
		Resolve:     *e.cfg.ResolveOptions(),
		Predeclared: e.predeclared(),
		Root:        e.cfg.Load.Root,
		Aliases:     e.cfg.Load.Aliases,
		Jobs:        e.cfg.Check.Jobs,
		Cache:       e.cache,
		Logger:      e.log,
	}
}

func hasErrors(diags []check.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == check.Error {
			return true
		}
	}
	return false
}

// findStarlarkFiles returns the .star files beneath dir, skipping
// hidden directories.
func findStarlarkFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".star" || d.Name() == "BUILD" || d.Name() == "BUILD.bazel" {
			files = append(files, path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}
