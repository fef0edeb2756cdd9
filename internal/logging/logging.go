// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging prints status messages for the command-line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// Tag styles and message colors, one pair per level. Commands may
// replace them before logging starts.
var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightCyan
	InfoStyleBG    = pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)
	DebugColorFG   = pterm.FgGray
	DebugStyleBG   = pterm.NewStyle(pterm.BgGray, pterm.FgBlack)
)

// SetColor enables or disables colored output for all loggers.
func SetColor(on bool) {
	if on {
		pterm.EnableColor()
	} else {
		pterm.DisableColor()
	}
}

// A Logger writes tagged messages to a stream. Debug messages are
// printed only when verbose. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	err     error // first write error
}

// New returns a logger that writes to w.
func New(w io.Writer) *Logger { return &Logger{w: w} }

// Stderr returns a logger that writes to standard error.
func Stderr() *Logger { return New(os.Stderr) }

// SetVerbose enables or disables debug messages.
func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	l.verbose = v
	l.mu.Unlock()
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.print(InfoStyleBG, InfoColorFG, "INFO", format, args)
}

func (l *Logger) Successf(format string, args ...interface{}) {
	l.print(SuccessStyleBG, SuccessColorFG, "DONE", format, args)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.print(WarnStyleBG, WarnColorFG, "WARN", format, args)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.print(ErrorStyleBG, ErrorColorFG, "ERROR", format, args)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.mu.Lock()
	verbose := l.verbose
	l.mu.Unlock()
	if verbose {
		l.print(DebugStyleBG, DebugColorFG, "DEBUG", format, args)
	}
}

func (l *Logger) print(tag *pterm.Style, fg pterm.Color, name, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)
	line := tag.Sprint(" "+name+" ") + " " + fg.Sprint(msg) + "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return
	}
	if _, err := io.WriteString(l.w, line); err != nil {
		l.err = err
	}
}

// Err returns the first error encountered writing to the underlying
// stream. Once a write fails, later messages are discarded.
func (l *Logger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
