// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunkedfile reads golden test files for diagnostics.
//
// A chunked file consists of several chunks of Starlark source separated
// by "---" lines. Each chunk is resolved or checked independently. A
// line containing "###" is followed by one or more Go string literals,
// each a regular expression that must match one diagnostic reported on
// that line:
//
//	print(y) ### "undefined: y"
//	---
//	f(a, b) ### "undefined: a" "undefined: b"
//
// A chunk may also carry options as "option:name" words anywhere in its
// text; see Chunk.Option.
package chunkedfile

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// A Chunk is a portion of a source file with its expected diagnostics.
type Chunk struct {
	Source   string // padded with newlines so that line numbers match the file
	filename string
	report   Reporter
	wantErrs map[int][]*regexp.Regexp
}

// Reporter is implemented by *testing.T.
type Reporter interface {
	Errorf(format string, args ...interface{})
}

// Read parses a chunked file and returns its chunks.
// It reports failures using the reporter.
//
// Messages of the form "file.star:line: ..." are prefixed by a newline
// so that the Go source position added by (*testing.T).Errorf appears
// on a separate line.
func Read(filename string, report Reporter) []Chunk {
	data, err := os.ReadFile(filename)
	if err != nil {
		report.Errorf("%s", err)
		return nil
	}
	return readBytes(filename, data, report)
}

func readBytes(filename string, data []byte, report Reporter) (chunks []Chunk) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	linenum := 1
	for _, chunk := range strings.Split(text, "\n---\n") {
		src := strings.Repeat("\n", linenum-1) + chunk
		wantErrs := make(map[int][]*regexp.Regexp)

		lines := strings.Split(chunk, "\n")
		for j := 0; j < len(lines); j, linenum = j+1, linenum+1 {
			hashes := strings.Index(lines[j], "###")
			if hashes < 0 {
				continue
			}
			rest := strings.TrimSpace(lines[j][hashes+len("###"):])
			for rest != "" {
				quoted, err := strconv.QuotedPrefix(rest)
				if err != nil {
					report.Errorf("\n%s:%d: not a quoted regexp: %s", filename, linenum, rest)
					break
				}
				rest = strings.TrimSpace(rest[len(quoted):])
				pattern, _ := strconv.Unquote(quoted)
				rx, err := regexp.Compile(pattern)
				if err != nil {
					report.Errorf("\n%s:%d: %v", filename, linenum, err)
					continue
				}
				wantErrs[linenum] = append(wantErrs[linenum], rx)
			}
		}
		linenum++ // the "---" separator

		chunks = append(chunks, Chunk{src, filename, report, wantErrs})
	}
	return chunks
}

// Option reports whether the chunk contains the word "option:name".
func (chunk *Chunk) Option(name string) bool {
	return strings.Contains(chunk.Source, "option:"+name)
}

// GotError should be called by the client to report a diagnostic at a
// particular line. The first expectation on that line that matches msg
// is consumed; a diagnostic matching none is reported as unexpected.
func (chunk *Chunk) GotError(linenum int, msg string) {
	rxs := chunk.wantErrs[linenum]
	if len(rxs) == 0 {
		chunk.report.Errorf("\n%s:%d: unexpected error: %v", chunk.filename, linenum, msg)
		return
	}
	i := 0
	for i < len(rxs) && !rxs[i].MatchString(msg) {
		i++
	}
	if i == len(rxs) {
		i = 0
		chunk.report.Errorf("\n%s:%d: error %q does not match pattern %q", chunk.filename, linenum, msg, rxs[0])
	}
	if len(rxs) == 1 {
		delete(chunk.wantErrs, linenum)
	} else {
		chunk.wantErrs[linenum] = append(rxs[:i:i], rxs[i+1:]...)
	}
}

// Done should be called by the client to indicate that the chunk has no
// more diagnostics. It reports expectations that were not met.
func (chunk *Chunk) Done() {
	for linenum, rxs := range chunk.wantErrs {
		for _, rx := range rxs {
			chunk.report.Errorf("\n%s:%d: expected error matching %q", chunk.filename, linenum, rx)
		}
	}
}
