// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads starcheck.toml, the project configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/buildstar/starcheck/lib"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/typing"
)

// FileName is the name of the configuration file.
const FileName = "starcheck.toml"

// Config is the decoded configuration.
type Config struct {
	Resolve ResolveConfig `toml:"resolve"`
	Load    LoadConfig    `toml:"load"`
	Cache   CacheConfig   `toml:"cache"`
	Check   CheckConfig   `toml:"check"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// ResolveConfig selects the Starlark dialect.
type ResolveConfig struct {
	GlobalReassign    bool     `toml:"global_reassign"`
	Recursion         bool     `toml:"recursion"`
	LoadBindsGlobally bool     `toml:"load_binds_globally"`
	Predeclared       []string `toml:"predeclared"`
	Libraries         []string `toml:"libraries"` // see package lib
}

// LoadConfig controls how load labels are mapped to files.
type LoadConfig struct {
	Root    string            `toml:"root"`
	Aliases map[string]string `toml:"aliases"`
}

// CacheConfig locates the interface cache.
type CacheConfig struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// CheckConfig bounds the work of a check run.
type CheckConfig struct {
	Jobs           int `toml:"jobs"` // 0 means GOMAXPROCS
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Load:  LoadConfig{Root: "."},
		Cache: CacheConfig{Path: filepath.Join(".starcheck", "cache.db")},
		Check: CheckConfig{MaxDiagnostics: 100},
	}
}

// Load reads the configuration file at path. Settings absent from the
// file keep their default values. Relative paths in the file are
// interpreted relative to its directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Check.Jobs < 0 {
		return nil, fmt.Errorf("%s: [check].jobs must not be negative", path)
	}
	for _, name := range cfg.Resolve.Predeclared {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%s: [resolve].predeclared contains an empty name", path)
		}
	}

	if _, err := lib.Predeclared(cfg.Resolve.Libraries); err != nil {
		return nil, fmt.Errorf("%s: [resolve].libraries: %w", path, err)
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Load.Root) {
		cfg.Load.Root = filepath.Join(dir, cfg.Load.Root)
	}
	if !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(dir, cfg.Cache.Path)
	}
	cfg.Path = path
	return cfg, nil
}

// Find looks for the configuration file in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover returns the configuration that applies to startDir: the
// nearest configuration file, or the defaults if there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Predeclared returns the types of the predeclared names. Libraries
// have the types of their modules; other names are unknown.
func (c *Config) Predeclared() (map[string]typing.Ty, error) {
	m, err := lib.Predeclared(c.Resolve.Libraries)
	if err != nil {
		return nil, err
	}
	for _, name := range c.Resolve.Predeclared {
		if _, ok := m[name]; !ok {
			m[name] = typing.Any()
		}
	}
	return m, nil
}

// ResolveOptions returns the resolver options selected by c.
func (c *Config) ResolveOptions() *resolve.Options {
	predeclared := make(map[string]bool, len(c.Resolve.Predeclared)+len(c.Resolve.Libraries))
	for _, name := range c.Resolve.Predeclared {
		predeclared[name] = true
	}
	for _, name := range c.Resolve.Libraries {
		predeclared[name] = true
	}
	return &resolve.Options{
		GlobalReassign:    c.Resolve.GlobalReassign,
		Recursion:         c.Resolve.Recursion,
		LoadBindsGlobally: c.Resolve.LoadBindsGlobally,
		IsPredeclared:     func(name string) bool { return predeclared[name] },
	}
}
