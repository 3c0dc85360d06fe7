// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jessiebrownleo/site-cloner/internal/logsink"
	"github.com/Jessiebrownleo/site-cloner/internal/tui"
	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// runFlags collects everything the run command can configure.
type runFlags struct {
	job        mirror.Job
	urlsFrom   string
	preset     string
	executable string
	stopGrace  time.Duration
}

func newRunCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [URL...]",
		Short: "Mirror one or more websites with the external tool",
		Long: `Launches the mirroring tool with arguments built from the flags below,
streams its output, and shows live progress. URLs are passed as
positional arguments or loaded from a file with --urls-from.

Example:
  sitecloner run https://example.com -o ./mirrors/example -r3
  sitecloner run --preset "Complete Mirror" https://example.com
  sitecloner run --urls-from sites.txt -o ./mirrors --rate 50000`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigDefaults(cmd, ro, rf)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(ctx, ro, rf, args)
		},
	}

	// Job flags
	cmd.Flags().StringVarP(&rf.job.OutputDir, "output", "o", "./Mirrors", "Output directory for the mirrored site")
	cmd.Flags().BoolVar(&rf.job.Resume, "resume", false, "Continue a previous run in the same output directory")
	cmd.Flags().StringVar(&rf.urlsFrom, "urls-from", "", "Read target URLs from a file, one per line")

	// Option flags
	cmd.Flags().IntVarP(&rf.job.Options.Depth, "depth", "r", 0, "Maximum recursion depth (0 = tool default)")
	cmd.Flags().IntVar(&rf.job.Options.RateLimit, "rate", 0, "Bandwidth cap in bytes/second (0 = unlimited)")
	cmd.Flags().IntVarP(&rf.job.Options.Connections, "connections", "c", 0, "Simultaneous connections (0 = tool default)")
	cmd.Flags().IntVar(&rf.job.Options.MaxFiles, "max-files", 0, "Maximum number of files to fetch")
	cmd.Flags().IntVar(&rf.job.Options.MaxSizeMB, "max-size", 0, "Maximum single-file size in MB")
	cmd.Flags().StringSliceVarP(&rf.job.Options.Filters, "filter", "F", nil, "Include/exclude patterns, e.g. '+*.png' or '-*.zip'")
	cmd.Flags().StringVar(&rf.job.Options.ExtraArgs, "args", "", "Extra arguments passed to the tool verbatim, last")
	cmd.Flags().StringVar(&rf.preset, "preset", "", "Apply a built-in preset (see 'sitecloner presets')")

	// Tool flags
	cmd.Flags().StringVar(&rf.executable, "executable", "", "Path to the mirroring tool (auto-detected if empty)")
	cmd.Flags().DurationVar(&rf.stopGrace, "stop-grace", mirror.DefaultStopGrace, "Graceful-stop window before the process is killed")

	return cmd
}

func runMirror(ctx context.Context, ro *RootOpts, rf *runFlags, args []string) error {
	job := rf.job
	job.URLs = append(job.URLs, args...)

	if rf.urlsFrom != "" {
		urls, err := readURLFile(rf.urlsFrom)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rf.urlsFrom, err)
		}
		job.URLs = append(job.URLs, urls...)
	}
	if len(job.URLs) == 0 {
		return fmt.Errorf("no target URLs (pass them as arguments or via --urls-from)")
	}

	if rf.preset != "" {
		p, ok := mirror.PresetByName(rf.preset)
		if !ok {
			return fmt.Errorf("unknown preset %q (see 'sitecloner presets')", rf.preset)
		}
		if job.Options.ExtraArgs == "" {
			job.Options.ExtraArgs = p.Args
		} else {
			job.Options.ExtraArgs = p.Args + " " + job.Options.ExtraArgs
		}
	}

	// The session gets its own context: an interrupt should trigger the
	// graceful Stop path below, not an immediate kill of the process
	// group. Stop escalates on its own if the tool won't die.
	sess, err := mirror.Start(context.Background(), job, mirror.Config{
		Executable: rf.executable,
		StopGrace:  rf.stopGrace,
	})
	if err != nil {
		return err
	}

	sink, err := buildSink(ro, sess)
	if err != nil {
		return err
	}
	defer sink.Close()

	if ro.JSONOut {
		return consumeJSON(ctx, sess, sink, os.Stdout)
	}
	return consumeInteractive(ctx, ro, sess, sink)
}

// buildSink assembles the log destinations for this run: the per-run
// file (unless disabled) plus a console sink filtered by verbosity.
func buildSink(ro *RootOpts, sess *mirror.Session) (logsink.Sink, error) {
	var sinks logsink.Multi

	if !ro.NoRunLog {
		path := ro.LogFile
		if path == "" {
			path = logsink.RunLogPath(sess.Job().OutputDir, sess.ID())
		}
		fileSink, err := logsink.NewFile(path, "")
		if err != nil {
			return nil, fmt.Errorf("opening run log: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	if !ro.JSONOut {
		min := mirror.LevelWarn
		if ro.Verbose {
			min = mirror.LevelDebug
		} else if ro.Quiet {
			min = mirror.LevelError
		}
		sinks = append(sinks, logsink.NewConsole(os.Stderr, min))
	}

	return sinks, nil
}

// consumeInteractive drains the session's channels, feeding the sink
// per-entry and the progress display at a bounded cadence so a chatty
// subprocess cannot flood the terminal.
func consumeInteractive(ctx context.Context, ro *RootOpts, sess *mirror.Session, sink logsink.Sink) error {
	var renderer *tui.Renderer
	if !ro.Quiet {
		renderer = tui.NewRenderer()
	}

	redraw := time.NewTicker(300 * time.Millisecond)
	defer redraw.Stop()

	logs := sess.Logs()
	snapshots := sess.Snapshots()
	interrupt := ctx.Done()
	dirty := false

	for logs != nil || snapshots != nil {
		select {
		case entry, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			sink.Append(entry)

		case _, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			dirty = true

		case <-redraw.C:
			if dirty && renderer != nil {
				renderer.Update(sess.Snapshot())
				dirty = false
			}

		case <-interrupt:
			// Ctrl-C: ask for a graceful stop; the channels close once
			// the process is gone.
			interrupt = nil
			go sess.Stop()
		}
	}

	exit := sess.Wait()
	final := sess.Snapshot()
	if renderer != nil {
		renderer.Close(exit, final)
	}

	if exit.State == mirror.StateFailed {
		return fmt.Errorf("mirroring failed with exit code %d", exit.Code)
	}
	return nil
}

// jsonEvent is one line of --json output.
type jsonEvent struct {
	Time     time.Time        `json:"time"`
	Event    string           `json:"event"` // "log", "progress", "exit"
	Log      *mirror.LogEntry `json:"log,omitempty"`
	Progress *mirror.Snapshot `json:"progress,omitempty"`
	State    string           `json:"state,omitempty"`
	ExitCode *int             `json:"exitCode,omitempty"`
}

// consumeJSON emits one JSON object per line for every event, the
// machine-readable counterpart of the interactive display.
func consumeJSON(ctx context.Context, sess *mirror.Session, sink logsink.Sink, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	emit := func(ev jsonEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}

	logs := sess.Logs()
	snapshots := sess.Snapshots()
	interrupt := ctx.Done()

	for logs != nil || snapshots != nil {
		select {
		case entry, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			sink.Append(entry)
			e := entry
			emit(jsonEvent{Time: time.Now(), Event: "log", Log: &e})

		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			s := snap
			emit(jsonEvent{Time: time.Now(), Event: "progress", Progress: &s})

		case <-interrupt:
			interrupt = nil
			go sess.Stop()
		}
	}

	exit := sess.Wait()
	emit(jsonEvent{Time: time.Now(), Event: "exit", State: exit.State.String(), ExitCode: &exit.Code})

	if exit.State == mirror.StateFailed {
		return fmt.Errorf("mirroring failed with exit code %d", exit.Code)
	}
	return nil
}

// readURLFile loads newline-delimited URLs, skipping blanks and
// #-comments. Validation happens in the argument builder.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
