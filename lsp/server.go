// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/buildstar/starcheck/check"
	"github.com/buildstar/starcheck/cst"
	"github.com/buildstar/starcheck/driver"
	"github.com/buildstar/starcheck/resolve"
	"github.com/buildstar/starcheck/syntax"
	"github.com/buildstar/starcheck/typing"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

type document struct {
	uri  lsp.DocumentURI
	path string
	text string
}

type server struct {
	opts driver.Options

	mu   sync.Mutex
	docs map[string]*document // by path
	res  *driver.Result       // of the last run
}

// NewHandler returns a handler for the requests of one client.
func NewHandler(opts *driver.Options) jsonrpc2.Handler {
	s := &server{docs: make(map[string]*document)}
	if opts != nil {
		s.opts = *opts
	}
	if s.opts.ReadFile == nil {
		s.opts.ReadFile = os.ReadFile
	}
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/didClose":   s.didClose,
		"textDocument/hover":      s.hover,
		"textDocument/definition": s.definition,

		"initialized": noop,
		"shutdown":    noop,
		"exit":        exit,
		// Sent by clients even when not advertised.
		"workspace/didChangeWatchedFiles": noop,
		"$/cancelRequest":                 noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, conn.Close()
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, errInvalidParams
	}
	s.mu.Lock()
	s.docs[path] = &document{params.TextDocument.URI, path, params.TextDocument.Text}
	s.mu.Unlock()
	return nil, s.analyze(ctx, conn)
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, errInvalidParams
	}
	// Full text, since only full synchronization is advertised.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.mu.Lock()
	s.docs[path] = &document{params.TextDocument.URI, path, text}
	s.mu.Unlock()
	return nil, s.analyze(ctx, conn)
}

func (s *server) didClose(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, errInvalidParams
	}
	s.mu.Lock()
	delete(s.docs, path)
	s.mu.Unlock()
	err = conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: []lsp.Diagnostic{}})
	if err != nil {
		return nil, err
	}
	return nil, s.analyze(ctx, conn)
}

// readFile reads open documents from memory and others from disk.
func (s *server) readFile(path string) ([]byte, error) {
	s.mu.Lock()
	doc, ok := s.docs[path]
	s.mu.Unlock()
	if ok {
		return []byte(doc.text), nil
	}
	return s.opts.ReadFile(path)
}

// analyze checks all open documents and publishes their diagnostics.
func (s *server) analyze(ctx context.Context, conn jsonrpc2.JSONRPC2) error {
	s.mu.Lock()
	docs := make([]*document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	s.mu.Unlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].path < docs[j].path })

	roots := make([]string, len(docs))
	for i, doc := range docs {
		roots[i] = doc.path
	}
	opts := s.opts
	opts.ReadFile = s.readFile
	res, err := driver.Run(ctx, roots, &opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.res = res
	s.mu.Unlock()

	for _, doc := range docs {
		m := res.Modules[doc.path]
		diags := make([]lsp.Diagnostic, 0, len(m.Diagnostics))
		for _, d := range m.Diagnostics {
			diags = append(diags, diagnostic(doc.text, d))
		}
		err := conn.Notify(ctx, "textDocument/publishDiagnostics",
			lsp.PublishDiagnosticsParams{URI: doc.uri, Diagnostics: diags})
		if err != nil {
			return err
		}
	}
	return nil
}

func diagnostic(text string, d check.Diagnostic) lsp.Diagnostic {
	sev := lsp.Error
	if d.Severity == check.Warning {
		sev = lsp.Warning
	}
	start := lspPosition(text, d.Pos)
	end := start
	if d.End.IsValid() {
		end = lspPosition(text, d.End)
	}
	return lsp.Diagnostic{
		Range:    lsp.Range{Start: start, End: end},
		Severity: sev,
		Code:     d.Code,
		Source:   "starcheck",
		Message:  d.Msg,
	}
}

// lookup returns the module of an open document and the name
// occurrence at pos, which is an *cst.Ident or *cst.AssignIdent.
func (s *server) lookup(params lsp.TextDocumentPositionParams) (*driver.Module, cst.Node, string, bool) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil, "", false
	}
	s.mu.Lock()
	doc, ok := s.docs[path]
	res := s.res
	s.mu.Unlock()
	if !ok || res == nil {
		return nil, nil, "", false
	}
	m := res.Modules[path]
	if m == nil || m.File == nil || m.Info == nil {
		return nil, nil, "", false
	}
	line, col := starlarkPosition(doc.text, params.Position)
	var found cst.Node
	cst.Walk(m.File, func(n cst.Node) bool {
		if found != nil {
			return false
		}
		switch n.(type) {
		case *cst.Ident, *cst.AssignIdent:
			start, end := n.Span()
			if start.Line == line && start.Col <= col && col < end.Col {
				found = n
			}
			return false
		}
		return true
	})
	return m, found, doc.text, found != nil
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	m, n, text, ok := s.lookup(params)
	if !ok {
		return nil, nil
	}
	var name, detail string
	var ty typing.Ty
	switch n := n.(type) {
	case *cst.Ident:
		name = n.Name
		r := n.Resolved
		if r == nil {
			return nil, nil
		}
		switch r.Kind {
		case cst.Predeclared:
			ty, detail = s.predeclaredType(n.Name), "predeclared"
		case cst.Universal:
			ty, detail = typing.Any(), "universal"
		case cst.Undefined:
			ty, detail = typing.Never(), "undefined"
		default:
			ty, detail = bindingInfo(m, r.Binding)
		}
	case *cst.AssignIdent:
		name = n.Name
		ty, detail = bindingInfo(m, n.Binding)
	}

	start, end := n.Span()
	rng := lsp.Range{Start: lspPosition(text, start), End: lspPosition(text, end)}
	return lsp.Hover{
		Contents: []lsp.MarkedString{
			{Language: "starlark", Value: name + ": " + ty.String()},
			lsp.RawMarkedString(detail),
		},
		Range: &rng,
	}, nil
}

func (s *server) predeclaredType(name string) typing.Ty {
	if t, ok := s.opts.Predeclared[name]; ok {
		return t
	}
	return typing.Any()
}

// bindingInfo describes the variable id of m and returns its type.
func bindingInfo(m *driver.Module, id cst.BindingID) (typing.Ty, string) {
	b := m.Info.Table.Binding(id)
	if b == nil {
		return typing.Any(), "unknown binding"
	}
	ty := typing.Any()
	if m.Result != nil {
		if t, ok := m.Result.TypeOf(b); ok {
			ty = t
		}
	}
	detail := fmt.Sprintf("%s variable %s", b.Scope, b.ID)
	if b.Owner != cst.NoScope {
		if fn := m.Info.Table.Function(b.Owner); fn != nil {
			detail += fmt.Sprintf(" of %s (%s)", fn.Name, fn.ID)
		}
	}
	if b.Load != nil {
		detail += fmt.Sprintf(", loaded from %q as %s", b.Load.Module, b.Load.Name)
	}
	return ty, detail
}

func (s *server) definition(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	m, n, text, ok := s.lookup(params)
	if !ok {
		return []lsp.Location{}, nil
	}
	var id cst.BindingID
	switch n := n.(type) {
	case *cst.Ident:
		if n.Resolved == nil {
			return []lsp.Location{}, nil
		}
		id = n.Resolved.Binding
	case *cst.AssignIdent:
		id = n.Binding
	}
	b := m.Info.Table.Binding(id)
	if b == nil || b.First == nil {
		return []lsp.Location{}, nil
	}

	// A loaded name is defined in the loaded module, if it was checked.
	if b.Load != nil {
		if loc, ok := s.exportLocation(m, b.Load); ok {
			return []lsp.Location{loc}, nil
		}
	}
	start, end := b.First.Span()
	return []lsp.Location{{
		URI:   params.TextDocument.URI,
		Range: lsp.Range{Start: lspPosition(text, start), End: lspPosition(text, end)},
	}}, nil
}

func (s *server) exportLocation(m *driver.Module, sym *resolve.LoadedSymbol) (lsp.Location, bool) {
	path, ok := m.Deps[sym.Module]
	if !ok {
		return lsp.Location{}, false
	}
	s.mu.Lock()
	dep := s.res.Modules[path]
	s.mu.Unlock()
	if dep == nil || dep.Info == nil {
		return lsp.Location{}, false
	}
	for _, g := range dep.Info.Globals {
		if g.Name == sym.Name && g.First != nil {
			start, end := g.First.Span()
			text := string(dep.Source)
			return lsp.Location{
				URI:   pathToURI(path),
				Range: lsp.Range{Start: lspPosition(text, start), End: lspPosition(text, end)},
			}, true
		}
	}
	return lsp.Location{}, false
}

func uriToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
	return filepath.Clean(filepath.FromSlash(u.Path)), nil
}

func pathToURI(path string) lsp.DocumentURI {
	return lsp.DocumentURI((&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String())
}

// lspPosition converts a 1-based line and rune column to a 0-based
// line and UTF-16 offset within text.
func lspPosition(text string, p syntax.Position) lsp.Position {
	line := int(p.Line) - 1
	if line < 0 {
		return lsp.Position{}
	}
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return lsp.Position{Line: line}
	}
	runes := []rune(strings.TrimSuffix(lines[line], "\r"))
	col := int(p.Col) - 1
	if col > len(runes) {
		col = len(runes)
	}
	if col < 0 {
		col = 0
	}
	return lsp.Position{Line: line, Character: len(utf16.Encode(runes[:col]))}
}

// starlarkPosition is the inverse of lspPosition.
func starlarkPosition(text string, p lsp.Position) (line, col int32) {
	lines := strings.Split(text, "\n")
	col = 1
	if p.Line < len(lines) {
		units := 0
		for _, r := range lines[p.Line] {
			if units >= p.Character {
				break
			}
			units += utf16.RuneLen(r)
			col++
		}
	}
	return int32(p.Line + 1), col
}
