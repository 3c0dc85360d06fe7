// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bufio"
	"context"
	"io"
)

// maxLineBytes bounds a single output line. The tool wraps its own
// output well below this; anything longer is split rather than dropped.
const maxLineBytes = 1 << 20

// defaultLineBuffer is the bounded capacity of the line channel. When a
// downstream consumer falls behind by more than this many lines the
// reading goroutine blocks, applying backpressure on the pipe instead of
// dropping lines.
const defaultLineBuffer = 1024

// LineReader consumes a subprocess's combined output stream line by line
// on its own goroutine and delivers the lines over a bounded channel.
// It never drops a line: a slow consumer stalls the reader, not the
// subprocess's right to eventually be read.
type LineReader struct {
	lines chan string
	err   error
	done  chan struct{}
}

// NewLineReader starts reading r immediately. The lines channel closes
// when the stream ends (process exit), a read error occurs, or ctx is
// cancelled. After the channel closes, Err reports any stream failure.
func NewLineReader(ctx context.Context, r io.Reader) *LineReader {
	lr := &LineReader{
		lines: make(chan string, defaultLineBuffer),
		done:  make(chan struct{}),
	}
	go lr.run(ctx, r)
	return lr
}

// Lines is the channel of raw output lines, in arrival order.
func (lr *LineReader) Lines() <-chan string {
	return lr.lines
}

// Err returns the stream failure, if any, once Lines has closed.
// Cancellation is not a failure.
func (lr *LineReader) Err() error {
	<-lr.done
	return lr.err
}

func (lr *LineReader) run(ctx context.Context, r io.Reader) {
	defer close(lr.done)
	defer close(lr.lines)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		select {
		case lr.lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		lr.err = &StreamError{Err: err}
	}
}
