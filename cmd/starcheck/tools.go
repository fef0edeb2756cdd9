// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/buildstar/starcheck/driver"
	"github.com/buildstar/starcheck/internal/cache"
	"github.com/buildstar/starcheck/lsp"
	"github.com/buildstar/starcheck/repl"
	"github.com/buildstar/starcheck/typing"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Check Starlark statements interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		e.openCache()
		defer e.close()

		opts := e.driverOptions()
		repl.REPL(&repl.Options{
			Resolve:     opts.Resolve,
			Predeclared: opts.Predeclared,
			Load: func(module string) (*typing.Interface, error) {
				return loadInterface(cmd.Context(), opts, module)
			},
		})
		return nil
	},
}

// loadInterface checks the module denoted by a load label appearing
// in the REPL and returns its interface.
func loadInterface(ctx context.Context, opts *driver.Options, module string) (*typing.Interface, error) {
	path, ok := opts.Locate("<stdin>", module)
	if !ok {
		return nil, fmt.Errorf("unknown label %q", module)
	}
	res, err := driver.Run(ctx, []string{path}, opts)
	if err != nil {
		return nil, err
	}
	m := res.Modules[path]
	if m.Source == nil && len(m.Diagnostics) > 0 {
		return nil, fmt.Errorf("%s", m.Diagnostics[0].Msg)
	}
	for _, d := range m.Diagnostics {
		fmt.Println(d)
	}
	return m.Interface, nil
}

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the Starlark language server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		e.openCache()
		defer e.close()
		return lsp.Serve(cmd.Context(), lsp.Stdio(), e.driverOptions())
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the interface cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the interface cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		c, err := cache.Open(e.cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer c.Close()
		n, err := c.Len()
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		e.log.Successf("removed %d entries from %s", n, e.cfg.Cache.Path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

// Version is the version of starcheck. It may be set at build time
// with -ldflags "-X main.Version=...".
var Version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of starcheck",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := setup(cmd); err != nil {
			return err
		}
		bold := color.New(color.FgYellow, color.Bold)
		if colorMode == "never" {
			bold.DisableColor()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "starcheck %s (%s)\n", bold.Sprint(Version), runtime.Version())
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, dep := range info.Deps {
				if dep.Path == "go.starlark.net" {
					fmt.Fprintf(cmd.OutOrStdout(), "go.starlark.net %s\n", dep.Version)
				}
			}
		}
		return nil
	},
}
