// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package mirror supervises an external website-mirroring tool (HTTrack):
it builds the tool's command line from a validated job, owns the spawned
process's lifecycle, streams its console output, and derives structured
progress from that output.

The tool itself is an opaque black box; this package contains no
crawling or link-rewriting logic. Its job is everything around the
process: arguments in, lines out, progress and control in between.

# Quick start

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
	)

	func main() {
		job := mirror.Job{
			URLs:      []string{"https://example.com"},
			OutputDir: "./mirrors/example",
			Options:   mirror.Options{Depth: 3, Connections: 8},
		}

		sess, err := mirror.Start(context.Background(), job, mirror.Config{})
		if err != nil {
			log.Fatal(err)
		}

		go func() {
			for entry := range sess.Logs() {
				fmt.Printf("[%s] %s\n", entry.Level, entry.Message)
			}
		}()
		for snap := range sess.Snapshots() {
			fmt.Printf("%d%% (%d files, %d bytes)\n", snap.Percent, snap.FilesDone, snap.Bytes)
		}

		exit := sess.Wait()
		fmt.Println("state:", exit.State)
	}

# Components

  - BuildArgs: deterministic Job → argument tokens, with validation.
    Unknown extra arguments are appended verbatim, last.
  - Supervisor: exclusive owner of the OS process. Start, Pause, Resume,
    Stop with bounded grace period, exactly-once exit notification.
  - LineReader: lossless line-by-line consumption of the combined
    output stream over a bounded channel with backpressure.
  - Extractor: pluggable pattern matchers turning semi-structured
    console output into Snapshot values.
  - Session: wires the above together behind a small API.

# Progress semantics

The tool's output format is an unversioned interface. The extractor
degrades gracefully: lines matching no pattern become DEBUG log entries
and never disturb the current snapshot. Percent is clamped to [0,100]
and never decreases within one run. The exit code, not the reported
percentage, decides the terminal state.

# Pause and resume

Suspension uses the platform's process-stop primitive (SIGSTOP/SIGCONT
on unix, applied to the whole process group). Platforms without one
return ErrUnsupportedOperation instead of pretending.

# Errors

Validation problems match ErrInvalidSettings and are reported before any
process exists. *SpawnError means the executable could not be located or
launched. *StreamError ends monitoring but the exit code is still
collected. There is no automatic retry: a failed run is restarted only
by an explicit new Start.
*/
package mirror
