// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spell finds the likely intended spelling of a misspelled
// name, for "did you mean" hints in resolver and checker diagnostics.
package spell

import (
	"strings"
	"unicode"
)

// Nearest returns the element of candidates nearest to x using the
// Levenshtein metric, or "" if none is within half the length of x.
// Underscores and case are ignored when matching.
func Nearest(x string, candidates []string) string {
	x = fold(x)

	var best string
	bestD := (len(x) + 1) / 2 // allow up to 50% typos
	for _, c := range candidates {
		d := Distance(x, fold(c), bestD)
		if d < bestD {
			bestD = d
			best = c
		}
	}
	return best
}

func fold(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Distance returns the Levenshtein edit distance between the byte
// strings x and y. Once the distance is known to exceed max, it may
// return early with some value greater than max.
func Distance(x, y string, max int) int {
	if len(x) > len(y) {
		x, y = y, x
	}

	// Trim the common prefix.
	i := 0
	for i < len(x) && x[i] == y[i] {
		i++
	}
	x, y = x[i:], y[i:]
	if x == "" {
		return len(y)
	}

	// A single row suffices: row[j] holds the distance between the
	// first i bytes of x and the first j bytes of y.
	row := make([]int, len(y)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(x); i++ {
		row[0] = i
		best := i
		prev := i - 1
		for j := 1; j <= len(y); j++ {
			sub := prev
			if x[i-1] != y[j-1] {
				sub++
			}
			k := minInt(sub, minInt(1+row[j-1], 1+row[j]))
			prev, row[j] = row[j], k
			best = minInt(best, k)
		}
		if best > max {
			return best
		}
	}
	return row[len(y)]
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
