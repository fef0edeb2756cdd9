// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders diagnostics and resolver tables for the
// command-line tools, as text, JSON or YAML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/typing"
)

// A Format selects the output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, YAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// UseColor interprets a --color setting of "auto", "always" or "never".
// Auto enables color when f is a terminal.
func UseColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "", "auto":
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid color mode %q (want auto, always or never)", mode)
}

// Options controls rendering.
type Options struct {
	Format Format // default Text
	Color  bool

	// Dir, if set, is the directory against which file names are
	// shown relative.
	Dir string

	// Max bounds the number of diagnostics shown. Zero means no limit.
	Max int

	// Sources maps file names to their contents. Text diagnostics
	// quote the offending line of files found here.
	Sources map[string][]byte
}

type palette struct {
	err, warn, pos, code, caret, header *color.Color
}

func newPalette(on bool) *palette {
	p := &palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		pos:    color.New(color.Bold),
		code:   color.New(color.FgCyan),
		caret:  color.New(color.FgGreen, color.Bold),
		header: color.New(color.Underline),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.pos, p.code, p.caret, p.header} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (o *Options) relative(name string) string {
	if o.Dir == "" || name == "" {
		return name
	}
	if rel, err := filepath.Rel(o.Dir, name); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return name
}

// Diagnostics writes diags, which should be sorted.
func Diagnostics(w io.Writer, diags []check.Diagnostic, opts *Options) error {
	if opts == nil {
		opts = new(Options)
	}
	shown := diags
	if opts.Max > 0 && len(shown) > opts.Max {
		shown = shown[:opts.Max]
	}
	switch opts.Format {
	case JSON, YAML:
		records := make([]interface{}, len(shown))
		for i, d := range shown {
			records[i] = diagnosticRecord(d, opts)
		}
		doc := map[string]interface{}{
			"diagnostics": records,
			"count":       len(diags),
		}
		return encode(w, opts.Format, doc)
	}

	p := newPalette(opts.Color)
	var buf bytes.Buffer
	var errors, warnings int
	for _, d := range diags {
		if d.Severity == check.Warning {
			warnings++
		} else {
			errors++
		}
	}
	for _, d := range shown {
		sev := p.err
		if d.Severity == check.Warning {
			sev = p.warn
		}
		pos := opts.relative(d.Pos.Filename())
		if d.Pos.Line > 0 {
			pos = fmt.Sprintf("%s:%d:%d", pos, d.Pos.Line, d.Pos.Col)
		}
		fmt.Fprintf(&buf, "%s: %s: %s %s\n",
			p.pos.Sprint(pos), sev.Sprint(d.Severity), d.Msg, p.code.Sprintf("[%s]", d.Code))
		if line, ok := sourceLine(opts.Sources[d.Pos.Filename()], int(d.Pos.Line)); ok {
			buf.WriteString("    " + line + "\n")
			buf.WriteString("    " + p.caret.Sprint(underline(line, d)) + "\n")
		}
	}
	if n := len(diags) - len(shown); n > 0 {
		fmt.Fprintf(&buf, "... and %d more\n", n)
	}
	if len(diags) > 0 {
		fmt.Fprintf(&buf, "%s, %s\n", plural(errors, "error"), plural(warnings, "warning"))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func diagnosticRecord(d check.Diagnostic, opts *Options) map[string]interface{} {
	r := map[string]interface{}{
		"file":     opts.relative(d.Pos.Filename()),
		"line":     int(d.Pos.Line),
		"col":      int(d.Pos.Col),
		"severity": d.Severity.String(),
		"code":     d.Code,
		"message":  d.Msg,
	}
	if d.End.IsValid() {
		r["end_line"] = int(d.End.Line)
		r["end_col"] = int(d.End.Col)
	}
	return r
}

// sourceLine returns the 1-based line n of src, with tabs expanded.
func sourceLine(src []byte, n int) (string, bool) {
	if src == nil || n < 1 {
		return "", false
	}
	lines := strings.Split(string(src), "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimRight(lines[n-1], "\r"), "\t", "    "), true
}

// underline returns a caret line marking the span of d within line.
// Columns are measured in display cells so that wide runes align.
func underline(line string, d check.Diagnostic) string {
	runes := []rune(line)
	start := int(d.Pos.Col) - 1
	if start < 0 || start > len(runes) {
		start = len(runes)
	}
	end := start + 1
	if d.End.IsValid() && d.End.Line == d.Pos.Line && int(d.End.Col)-1 > start {
		end = int(d.End.Col) - 1
	}
	if end > len(runes) {
		end = len(runes)
	}
	pad := runewidth.StringWidth(string(runes[:start]))
	width := runewidth.StringWidth(string(runes[start:end]))
	if width < 1 {
		width = 1
	}
	return strings.Repeat(" ", pad) + "^" + strings.Repeat("~", width-1)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Bindings writes the resolver's table for m: every binding with its
// scope, owner, first occurrence and, if typeOf is non-nil, its type.
func Bindings(w io.Writer, m *resolve.Module, typeOf func(*resolve.Binding) (typing.Ty, bool), opts *Options) error {
	if opts == nil {
		opts = new(Options)
	}
	var bindings []*resolve.Binding
	if m.Table != nil {
		bindings = m.Table.Bindings()
	}
	rows := make([][]string, 0, len(bindings))
	records := make([]interface{}, 0, len(bindings))
	for _, b := range bindings {
		pos := "-"
		if b.First != nil {
			pos = fmt.Sprintf("%d:%d", b.First.NamePos.Line, b.First.NamePos.Col)
		}
		ty := ""
		if typeOf != nil {
			if t, ok := typeOf(b); ok {
				ty = t.String()
			}
		}
		from := ""
		if b.Load != nil {
			from = b.Load.Module + "." + b.Load.Name
		}
		rows = append(rows, []string{b.ID.String(), b.Name, b.Scope.String(), b.Owner.String(), pos, ty, from})
		rec := map[string]interface{}{
			"id":    b.ID.String(),
			"name":  b.Name,
			"scope": b.Scope.String(),
			"owner": b.Owner.String(),
			"pos":   pos,
		}
		if ty != "" {
			rec["type"] = ty
		}
		if from != "" {
			rec["load"] = from
		}
		records = append(records, rec)
	}

	if opts.Format == JSON || opts.Format == YAML {
		functions := make([]interface{}, 0, len(m.Functions))
		for _, fn := range m.Functions {
			functions = append(functions, map[string]interface{}{
				"id":       fn.ID.String(),
				"name":     fn.Name,
				"parent":   fn.Parent.String(),
				"locals":   bindingNames(fn.Locals),
				"freevars": bindingNames(fn.FreeVars),
			})
		}
		return encode(w, opts.Format, map[string]interface{}{
			"path":      opts.relative(m.Path),
			"bindings":  records,
			"functions": functions,
		})
	}

	p := newPalette(opts.Color)
	var buf bytes.Buffer
	header := []string{"ID", "NAME", "SCOPE", "OWNER", "POS", "TYPE", "LOAD"}
	writeTable(&buf, p, header, rows)
	for _, fn := range m.Functions {
		fmt.Fprintf(&buf, "\n%s %s (%s, parent %s)\n", p.header.Sprint("function"), fn.Name, fn.ID, fn.Parent)
		fmt.Fprintf(&buf, "  locals:   %s\n", strings.Join(listOrDash(bindingNames(fn.Locals)), " "))
		fmt.Fprintf(&buf, "  freevars: %s\n", strings.Join(listOrDash(bindingNames(fn.FreeVars)), " "))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Interface writes the names exported by iface and their types.
func Interface(w io.Writer, iface *typing.Interface, opts *Options) error {
	if opts == nil {
		opts = new(Options)
	}
	names := iface.Names()
	if opts.Format == JSON || opts.Format == YAML {
		exports := make(map[string]interface{}, len(names))
		for _, name := range names {
			t, _ := iface.Get(name)
			exports[name] = t.String()
		}
		return encode(w, opts.Format, map[string]interface{}{"exports": exports})
	}
	var buf bytes.Buffer
	for _, name := range names {
		t, _ := iface.Get(name)
		fmt.Fprintf(&buf, "%s: %s\n", name, t)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func bindingNames(bindings []*resolve.Binding) []interface{} {
	names := make([]interface{}, len(bindings))
	for i, b := range bindings {
		names[i] = b.Name
	}
	return names
}

func listOrDash(xs []interface{}) []string {
	if len(xs) == 0 {
		return []string{"-"}
	}
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprint(x)
	}
	return out
}

// writeTable writes rows in columns padded to their display width.
// Trailing blanks are trimmed.
func writeTable(buf *bytes.Buffer, p *palette, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	write := func(row []string, style *color.Color) {
		var line strings.Builder
		for i, cell := range row {
			text := cell
			if i < len(row)-1 {
				text = runewidth.FillRight(cell, widths[i]+2)
			}
			if style != nil {
				text = style.Sprint(text)
			}
			line.WriteString(text)
		}
		buf.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}
	write(header, p.header)
	for _, row := range rows {
		write(row, nil)
	}
}

// encode writes doc as indented JSON, through structpb, or as YAML.
func encode(w io.Writer, format Format, doc map[string]interface{}) error {
	if format == YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	msg, err := structpb.NewStruct(doc)
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
