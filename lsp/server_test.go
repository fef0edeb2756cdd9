// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsp_test

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/buildstar/starcheck/driver"
	starlsp "github.com/buildstar/starcheck/lsp"
)

type client struct {
	conn  *jsonrpc2.Conn
	diags chan lsp.PublishDiagnosticsParams
}

// connect starts a server on one end of a pipe and returns a client
// connected to the other.
func connect(t *testing.T, opts *driver.Options) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	go starlsp.Serve(ctx, serverSide, opts)

	c := &client{diags: make(chan lsp.PublishDiagnosticsParams, 16)}
	c.conn = jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
				var params lsp.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &params); err == nil {
					c.diags <- params
				}
			}
			return nil, nil
		}))
	t.Cleanup(func() {
		c.conn.Close()
		cancel()
	})
	return c
}

func (c *client) call(t *testing.T, method string, params, result any) {
	t.Helper()
	if err := c.conn.Call(context.Background(), method, params, result); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func (c *client) notify(t *testing.T, method string, params any) {
	t.Helper()
	if err := c.conn.Notify(context.Background(), method, params); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

// waitDiagnostics returns the next diagnostics published for uri.
func (c *client) waitDiagnostics(t *testing.T, uri lsp.DocumentURI) []lsp.Diagnostic {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case params := <-c.diags:
			if params.URI == uri {
				return params.Diagnostics
			}
		case <-timeout:
			t.Fatalf("no diagnostics published for %s", uri)
		}
	}
}

func uri(path string) lsp.DocumentURI {
	return lsp.DocumentURI("file://" + filepath.ToSlash(path))
}

func TestInitialize(t *testing.T) {
	c := connect(t, nil)
	var result lsp.InitializeResult
	c.call(t, "initialize", lsp.InitializeParams{}, &result)
	if !result.Capabilities.HoverProvider || !result.Capabilities.DefinitionProvider {
		t.Errorf("capabilities = %+v", result.Capabilities)
	}
	if err := c.conn.Call(context.Background(), "textDocument/rename", nil, nil); err == nil {
		t.Error("unsupported method succeeded")
	}
}

const mainSrc = `load(":lib.star", "greet")

n = 1

def f(x):
    return x + n

s = greet.upper()
bad = n.nope
`

func TestDocument(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.star")
	if err := os.WriteFile(lib, []byte("\ngreet = \"hi\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.star")
	doc := uri(main)

	c := connect(t, &driver.Options{Root: dir})
	c.call(t, "initialize", lsp.InitializeParams{}, new(lsp.InitializeResult))
	c.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: doc, LanguageID: "starlark", Text: mainSrc},
	})

	diags := c.waitDiagnostics(t, doc)
	if len(diags) != 1 || diags[0].Code != "no-attribute" || !strings.Contains(diags[0].Message, "int has no .nope") {
		t.Fatalf("diagnostics = %+v", diags)
	}
	wantRange := lsp.Range{Start: lsp.Position{Line: 8, Character: 6}, End: lsp.Position{Line: 8, Character: 12}}
	if diff := cmp.Diff(wantRange, diags[0].Range); diff != "" {
		t.Errorf("diagnostic range (-want +got):\n%s", diff)
	}

	// Hover over the use of n in f.
	var hover struct {
		Contents []json.RawMessage
	}
	c.call(t, "textDocument/hover", lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: doc},
		Position:     lsp.Position{Line: 5, Character: 15},
	}, &hover)
	var text []string
	for _, raw := range hover.Contents {
		text = append(text, string(raw))
	}
	got := strings.Join(text, "\n")
	for _, want := range []string{`n: int`, `global variable`} {
		if !strings.Contains(got, want) {
			t.Errorf("hover lacks %q: %s", want, got)
		}
	}

	// Definition of the same use is the assignment on line 3.
	var locs []lsp.Location
	c.call(t, "textDocument/definition", lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: doc},
		Position:     lsp.Position{Line: 5, Character: 15},
	}, &locs)
	want := []lsp.Location{{URI: doc, Range: lsp.Range{
		Start: lsp.Position{Line: 2, Character: 0}, End: lsp.Position{Line: 2, Character: 1},
	}}}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("definition of n (-want +got):\n%s", diff)
	}

	// Definition of a loaded name is its assignment in the loaded file.
	c.call(t, "textDocument/definition", lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: doc},
		Position:     lsp.Position{Line: 7, Character: 5},
	}, &locs)
	want = []lsp.Location{{URI: uri(lib), Range: lsp.Range{
		Start: lsp.Position{Line: 1, Character: 0}, End: lsp.Position{Line: 1, Character: 5},
	}}}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("definition of greet (-want +got):\n%s", diff)
	}

	// Fixing the error clears the diagnostics.
	c.notify(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: doc}, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: strings.Replace(mainSrc, "n.nope", "n + 1", 1)}},
	})
	if diags := c.waitDiagnostics(t, doc); len(diags) != 0 {
		t.Errorf("diagnostics after fix = %+v", diags)
	}

	c.notify(t, "textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: doc},
	})
	if diags := c.waitDiagnostics(t, doc); len(diags) != 0 {
		t.Errorf("diagnostics after close = %+v", diags)
	}
}

func TestUnsavedDependency(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.star")
	main := filepath.Join(dir, "main.star")

	c := connect(t, &driver.Options{Root: dir})
	c.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri(main), Text: "load(\":lib.star\", \"v\")\nw = v.nope\n"},
	})
	if diags := c.waitDiagnostics(t, uri(main)); len(diags) != 1 || diags[0].Code != "unknown-module" {
		t.Fatalf("diagnostics before lib is open = %+v", diags)
	}

	// lib.star exists only in the editor.
	c.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri(lib), Text: "v = 1\n"},
	})
	if diags := c.waitDiagnostics(t, uri(main)); len(diags) != 1 || !strings.Contains(diags[0].Message, "int has no .nope") {
		t.Errorf("diagnostics after lib is open = %+v", diags)
	}
}
