// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lsp implements a language server for Starlark.
//
// Open documents are checked together, as the roots of one driver
// run, whenever one of them changes. The server publishes their
// diagnostics and answers hover and definition requests from the
// resolved and typed trees.
package lsp

import (
	"context"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/buildstar/starcheck/driver"
)

// Serve runs a server on the stream rwc until the client disconnects
// or ctx is done. The driver options are used for every run; their
// ReadFile function is consulted for files that are not open.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, opts *driver.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		NewHandler(opts))
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
	return nil
}

// Stdio returns a stream over the standard input and output.
func Stdio() io.ReadWriteCloser { return transport{os.Stdin, os.Stdout} }

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
