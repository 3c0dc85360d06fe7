// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLineReader_NoLinesLost(t *testing.T) {
	const n = 100000

	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}

	lr := NewLineReader(context.Background(), strings.NewReader(sb.String()))

	next := 0
	for line := range lr.Lines() {
		want := fmt.Sprintf("line %d", next)
		if line != want {
			t.Fatalf("line %d: got %q, want %q", next, line, want)
		}
		next++
	}
	if next != n {
		t.Errorf("received %d lines, want %d", next, n)
	}
	if err := lr.Err(); err != nil {
		t.Errorf("unexpected stream error: %v", err)
	}
}

func TestLineReader_SlowConsumerBackpressure(t *testing.T) {
	// Far more lines than the channel buffer; a consumer that drains
	// slowly still sees every line in order.
	const n = defaultLineBuffer * 4

	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	lr := NewLineReader(context.Background(), strings.NewReader(sb.String()))

	next := 0
	for line := range lr.Lines() {
		if next%1000 == 0 {
			time.Sleep(time.Millisecond)
		}
		if line != fmt.Sprintf("%d", next) {
			t.Fatalf("out of order at %d: %q", next, line)
		}
		next++
	}
	if next != n {
		t.Errorf("received %d lines, want %d", next, n)
	}
}

func TestLineReader_CancelStopsReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// A pipe that never closes: only cancellation can end the reader.
	pr, pw := io.Pipe()
	defer pw.Close()

	go func() {
		for i := 0; ; i++ {
			if _, err := fmt.Fprintf(pw, "line %d\n", i); err != nil {
				return
			}
		}
	}()

	lr := NewLineReader(ctx, pr)

	// Let the buffer fill so the reader is blocked on a send.
	time.Sleep(20 * time.Millisecond)
	cancel()
	pr.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lr.Lines():
			if !ok {
				if err := lr.Err(); err != nil {
					t.Errorf("cancellation should not report a stream error, got %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("reader did not terminate after cancellation")
		}
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("pipe broke")
}

func TestLineReader_StreamError(t *testing.T) {
	lr := NewLineReader(context.Background(), &failingReader{data: "partial line\n"})

	var got []string
	for line := range lr.Lines() {
		got = append(got, line)
	}
	if len(got) != 1 || got[0] != "partial line" {
		t.Errorf("lines before the failure should be delivered, got %v", got)
	}

	err := lr.Err()
	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StreamError, got %v", err)
	}
}
