// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The starcheck command resolves and type-checks Starlark files
// without running them.
//
//	starcheck check [files]       report problems in files and their loads
//	starcheck resolve file        print the binding table of a file
//	starcheck type file [expr]    print the interface of a file, or the type of expr
//	starcheck repl                check interactively
//	starcheck lsp                 run the language server over stdio
//	starcheck cache clear         empty the interface cache
//	starcheck version             print the version
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildstar/starcheck/internal/cache"
	"github.com/buildstar/starcheck/internal/config"
	"github.com/buildstar/starcheck/internal/logging"
	"github.com/buildstar/starcheck/internal/report"
	"github.com/buildstar/starcheck/typing"
)

// flags
var (
	configPath     string
	colorMode      string
	verbose        bool
	globalReassign bool
	recursion      bool
	jobs           int
	maxDiagnostics int
	noCache        bool
	outputFormat   string
)

var rootCmd = &cobra.Command{
	Use:           "starcheck",
	Short:         "Static checker for Starlark",
	Long:          `starcheck resolves names and infers types in Starlark files without running them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "configuration file (default: nearest "+config.FileName+")")
	pf.StringVar(&colorMode, "color", "auto", "colorize output (auto|always|never)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "print progress messages")
	pf.BoolVar(&globalReassign, "globalreassign", false, "allow reassignment of globals, and if/for/while statements at top level")
	pf.BoolVar(&recursion, "recursion", false, "allow while statements and recursive functions")
	pf.IntVarP(&jobs, "jobs", "j", 0, "number of modules checked at once (0: configured or GOMAXPROCS)")
	pf.IntVar(&maxDiagnostics, "max-diagnostics", 0, "maximum number of diagnostics to show (0: configured)")
	pf.BoolVar(&noCache, "no-cache", false, "do not read or write the interface cache")
	pf.StringVarP(&outputFormat, "format", "f", "text", "output format (text|json|yaml)")

	rootCmd.AddCommand(checkCmd, resolveCmd, typeCmd, replCmd, lspCmd, cacheCmd, versionCmd)
}

func main() {
	log.SetPrefix("starcheck: ")
	log.SetFlags(0)
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit))
		}
		log.Print(err)
		os.Exit(2)
	}
}

// env is the environment shared by the subcommands.
type env struct {
	cfg    *config.Config
	types  map[string]typing.Ty // of predeclared names
	log    *logging.Logger
	report *report.Options
	cache  *cache.Cache
}

// setup reads the configuration and applies the command-line flags.
func setup(cmd *cobra.Command) (*env, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("globalreassign") {
		cfg.Resolve.GlobalReassign = globalReassign
	}
	if flags.Changed("recursion") {
		cfg.Resolve.Recursion = recursion
	}
	if jobs > 0 {
		cfg.Check.Jobs = jobs
	}
	if maxDiagnostics > 0 {
		cfg.Check.MaxDiagnostics = maxDiagnostics
	}
	if noCache {
		cfg.Cache.Disabled = true
	}

	color, err := report.UseColor(colorMode, os.Stdout)
	if err != nil {
		return nil, err
	}
	logging.SetColor(color)
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	types, err := cfg.Predeclared()
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:   cfg,
		types: types,
		log:   logging.Stderr(),
		report: &report.Options{
			Format: format,
			Color:  color,
			Max:    cfg.Check.MaxDiagnostics,
		},
	}
	e.log.SetVerbose(verbose)
	if cfg.Path != "" {
		e.log.Debugf("using %s", cfg.Path)
	}
	if wd, err := os.Getwd(); err == nil {
		e.report.Dir = wd
	}
	return e, nil
}

// openCache opens the interface cache unless it is disabled. A cache
// that cannot be opened is skipped with a warning.
func (e *env) openCache() {
	if e.cfg.Cache.Disabled {
		return
	}
	c, err := cache.Open(e.cfg.Cache.Path)
	if err != nil {
		e.log.Warnf("interface cache disabled: %v", err)
		return
	}
	e.cache = c
}

func (e *env) close() {
	if err := e.cache.Close(); err != nil {
		e.log.Warnf("closing cache: %v", err)
	}
}

// predeclared returns the types of the configured predeclared names.
func (e *env) predeclared() map[string]typing.Ty { return e.types }

// exitError reports that problems were found.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
