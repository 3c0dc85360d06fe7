// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders live mirroring progress in a terminal.
package tui

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// Interactive reports whether stdout is a terminal that can host a live
// progress bar. Plain output is used otherwise (pipes, CI logs).
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
}

const barTemplate = `{{ bar . "[" "=" ">" " " "]" }} {{ percent . }} {{ string . "stats" }} {{ string . "url" }}`

// Renderer drives a percent progress bar from snapshots. Snapshots
// arrive from the session's worker; the renderer itself is only ever
// touched from the CLI's consuming goroutine.
type Renderer struct {
	bar   *pb.ProgressBar
	plain bool
	last  mirror.Snapshot
}

// NewRenderer starts the bar. When the terminal cannot host one, the
// renderer falls back to one line per percent change.
func NewRenderer() *Renderer {
	r := &Renderer{plain: !Interactive()}
	if r.plain {
		return r
	}
	r.bar = pb.New(100)
	r.bar.SetTemplateString(barTemplate)
	r.bar.Start()
	return r
}

// Update reflects a new snapshot.
func (r *Renderer) Update(snap mirror.Snapshot) {
	if r.plain {
		if snap.Percent != r.last.Percent {
			fmt.Printf("%3d%%  %s files  %d bytes  %s\n",
				snap.Percent, fileStats(snap), snap.Bytes, snap.CurrentURL)
		}
		r.last = snap
		return
	}
	r.bar.SetCurrent(int64(snap.Percent))
	r.bar.Set("stats", fmt.Sprintf("%s files, %d bytes, %s", fileStats(snap), snap.Bytes, snap.ElapsedString()))
	r.bar.Set("url", snap.CurrentURL)
	r.last = snap
}

// Close finishes the bar and prints the run summary.
func (r *Renderer) Close(exit mirror.Exit, final mirror.Snapshot) {
	if !r.plain {
		r.bar.SetCurrent(int64(final.Percent))
		r.bar.Finish()
	}
	switch exit.State {
	case mirror.StateCompleted:
		fmt.Printf("done: %s files, %d bytes in %s\n", fileStats(final), final.Bytes, final.ElapsedString())
	case mirror.StateStopped:
		fmt.Printf("stopped after %s (%d%% complete)\n", final.ElapsedString(), final.Percent)
	default:
		fmt.Printf("failed with exit code %d after %s\n", exit.Code, final.ElapsedString())
	}
}

func fileStats(snap mirror.Snapshot) string {
	if snap.FilesTotal > 0 {
		return fmt.Sprintf("%d/%d", snap.FilesDone, snap.FilesTotal)
	}
	return fmt.Sprintf("%d", snap.FilesDone)
}
