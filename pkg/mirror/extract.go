// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"regexp"
	"strconv"
	"strings"
)

// Matcher recognizes one family of output lines from the external tool
// and folds what it finds into the snapshot. Apply reports whether the
// line matched. Matchers are pluggable so new output formats (future tool
// versions) can be added without touching the supervisor.
type Matcher struct {
	// Name identifies the matcher in logs and tests.
	Name string

	// Apply inspects line and, on a match, mutates snap and returns true.
	Apply func(line string, snap *Snapshot) bool
}

var (
	percentRe = regexp.MustCompile(`(\d+)%`)
	filesRe   = regexp.MustCompile(`(\d+)/(\d+)`)
	sizeRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(KB|MB|GB)`)
	urlRe     = regexp.MustCompile(`https?://\S+`)
)

// DefaultMatchers returns the matchers for the tool's known output
// patterns: overall percentage, downloaded/total file counts, aggregate
// transferred size, and "GET <url>" fetch announcements.
//
// The output format is an unversioned interface owned by the tool, so
// every matcher degrades gracefully: a line nothing recognizes leaves the
// snapshot untouched.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{
			Name: "percent",
			Apply: func(line string, snap *Snapshot) bool {
				m := percentRe.FindStringSubmatch(line)
				if m == nil {
					return false
				}
				v, err := strconv.Atoi(m[1])
				if err != nil {
					return false
				}
				if v > 100 {
					v = 100
				}
				// The tool occasionally emits a lower percentage for a
				// sub-task; overall progress never moves backwards.
				if v > snap.Percent {
					snap.Percent = v
				}
				return true
			},
		},
		{
			Name: "files",
			Apply: func(line string, snap *Snapshot) bool {
				m := filesRe.FindStringSubmatch(line)
				if m == nil {
					return false
				}
				done, err1 := strconv.Atoi(m[1])
				total, err2 := strconv.Atoi(m[2])
				if err1 != nil || err2 != nil {
					return false
				}
				snap.FilesDone = done
				snap.FilesTotal = total
				return true
			},
		},
		{
			Name: "size",
			Apply: func(line string, snap *Snapshot) bool {
				m := sizeRe.FindStringSubmatch(line)
				if m == nil {
					return false
				}
				v, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					return false
				}
				var mult float64
				switch strings.ToUpper(m[2]) {
				case "KB":
					mult = 1 << 10
				case "MB":
					mult = 1 << 20
				case "GB":
					mult = 1 << 30
				}
				snap.Bytes = int64(v * mult)
				return true
			},
		},
		{
			Name: "url",
			Apply: func(line string, snap *Snapshot) bool {
				if !strings.Contains(line, "GET") {
					return false
				}
				m := urlRe.FindString(line)
				if m == "" {
					return false
				}
				snap.CurrentURL = m
				return true
			},
		},
	}
}

// Extractor derives progress snapshots from the tool's console output.
// It is stateful: each recognized line updates the running snapshot, and
// unrecognized lines leave it exactly as it was (no spurious resets).
// Not safe for concurrent use; exactly one goroutine feeds it.
type Extractor struct {
	matchers []Matcher
	snap     Snapshot
}

// NewExtractor builds an Extractor with the given matchers, or
// DefaultMatchers when none are supplied.
func NewExtractor(matchers ...Matcher) *Extractor {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Extractor{matchers: matchers}
}

// Consume feeds one output line through the matchers. It returns the
// current snapshot and whether any matcher recognized the line. A false
// return means the caller should treat the line as opaque log text.
func (e *Extractor) Consume(line string) (Snapshot, bool) {
	matched := false
	for _, m := range e.matchers {
		if m.Apply(line, &e.snap) {
			matched = true
		}
	}
	return e.snap, matched
}

// Snapshot returns the current snapshot without consuming anything.
func (e *Extractor) Snapshot() Snapshot {
	return e.snap
}

// Reset clears the snapshot for a fresh run.
func (e *Extractor) Reset() {
	e.snap = Snapshot{}
}

// ClassifyLine assigns a log level to a raw output line by the
// substrings the tool is known to use.
func ClassifyLine(line string) Level {
	l := strings.ToLower(line)
	switch {
	case strings.Contains(l, "error") || strings.Contains(l, "failed") || strings.Contains(l, "cannot"):
		return LevelError
	case strings.Contains(l, "warning") || strings.Contains(l, "warn"):
		return LevelWarn
	case strings.Contains(l, "debug"):
		return LevelDebug
	default:
		return LevelInfo
	}
}
