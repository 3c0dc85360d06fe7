// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// BuildArgs translates a Job into the ordered argument list for the
// external tool. It is a pure function of the Job: identical jobs always
// produce identical token sequences, which keeps command logging
// reproducible and the builder trivially testable.
//
// Token order: target URLs, -O <output dir>, --update (resume), structured
// option flags, filter patterns, then ExtraArgs verbatim last.
//
// Validation failures return an *InvalidSettingsError matching
// ErrInvalidSettings; no process is spawned for an invalid job.
func BuildArgs(job Job) ([]string, error) {
	if len(job.URLs) == 0 {
		return nil, &InvalidSettingsError{Field: "urls", Reason: "at least one target URL is required"}
	}
	for _, raw := range job.URLs {
		if err := validateURL(raw); err != nil {
			return nil, &InvalidSettingsError{Field: "urls", Reason: err.Error()}
		}
	}
	if strings.TrimSpace(job.OutputDir) == "" {
		return nil, &InvalidSettingsError{Field: "outputDir", Reason: "output directory is required"}
	}
	if err := ensureWritableDir(job.OutputDir); err != nil {
		return nil, &InvalidSettingsError{Field: "outputDir", Reason: err.Error()}
	}

	extra, err := splitArgs(job.Options.ExtraArgs)
	if err != nil {
		return nil, &InvalidSettingsError{Field: "extraArgs", Reason: err.Error()}
	}

	args := make([]string, 0, len(job.URLs)+len(extra)+12)
	args = append(args, job.URLs...)
	args = append(args, "-O", job.OutputDir)

	if job.Resume {
		args = append(args, "--update")
	}

	opt := job.Options
	if opt.RateLimit > 0 {
		args = append(args, fmt.Sprintf("--rate=%d", opt.RateLimit))
	}
	if opt.Connections > 0 {
		args = append(args, fmt.Sprintf("-c%d", opt.Connections))
	}
	if opt.Depth > 0 {
		args = append(args, fmt.Sprintf("-r%d", opt.Depth))
	}
	if opt.MaxFiles > 0 {
		args = append(args, fmt.Sprintf("--max-files=%d", opt.MaxFiles))
	}
	if opt.MaxSizeMB > 0 {
		args = append(args, fmt.Sprintf("--max-size=%dM", opt.MaxSizeMB))
	}
	for _, f := range opt.Filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f[0] != '+' && f[0] != '-' {
			return nil, &InvalidSettingsError{Field: "filters", Reason: fmt.Sprintf("pattern %q must start with '+' or '-'", f)}
		}
		args = append(args, f)
	}

	args = append(args, extra...)
	return args, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%q is not a valid URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %v", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".sitecloner-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %v", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// unsafeChars are rejected in ExtraArgs. The tokens go straight to
// exec (no shell), but anything that would behave differently if a
// user pasted the logged command into a shell is refused up front.
const unsafeChars = ";|&$><`\n"

// splitArgs splits a raw argument string shell-style: whitespace
// separates tokens, single and double quotes group them. Quotes do not
// nest and there is no escape processing beyond quoting.
func splitArgs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if i := strings.IndexAny(raw, unsafeChars); i >= 0 {
		return nil, fmt.Errorf("unsafe character %q in extra arguments", raw[i])
	}

	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		open   bool
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range raw {
		switch {
		case open:
			if r == quote {
				open = false
				// keep empty quoted token
				tokens = append(tokens, cur.String())
				cur.Reset()
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			flush()
			quote = r
			open = true
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if open {
		return nil, fmt.Errorf("unterminated %c quote in extra arguments", quote)
	}
	flush()
	return tokens, nil
}

// QuoteCommand renders an executable and its arguments the way they are
// echoed into logs: tokens containing whitespace are single-quoted.
func QuoteCommand(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, t := range append([]string{exe}, args...) {
		if strings.ContainsAny(t, " \t") {
			t = "'" + t + "'"
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}
