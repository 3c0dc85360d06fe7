// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"errors"
	"reflect"
	"testing"
)

func validJob(t *testing.T) Job {
	t.Helper()
	return Job{
		URLs:      []string{"https://example.com", "http://docs.example.com/guide"},
		OutputDir: t.TempDir(),
	}
}

func TestBuildArgs_Deterministic(t *testing.T) {
	job := validJob(t)
	job.Options = Options{
		Depth:       5,
		RateLimit:   25000,
		Connections: 8,
		MaxFiles:    1000,
		MaxSizeMB:   50,
		Filters:     []string{"+*.png", "-*.zip"},
		ExtraArgs:   "--robots=0 -%P",
	}
	job.Resume = true

	first, err := BuildArgs(job)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}
	second, err := BuildArgs(job)
	if err != nil {
		t.Fatalf("BuildArgs failed on second call: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical jobs produced different tokens:\n%v\n%v", first, second)
	}
}

func TestBuildArgs_TokenOrder(t *testing.T) {
	job := validJob(t)
	job.Resume = true
	job.Options = Options{
		Depth:       3,
		RateLimit:   10000,
		Connections: 4,
		MaxFiles:    500,
		MaxSizeMB:   10,
		Filters:     []string{"+*.pdf"},
		ExtraArgs:   "--robots=0",
	}

	got, err := BuildArgs(job)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}

	want := []string{
		"https://example.com",
		"http://docs.example.com/guide",
		"-O", job.OutputDir,
		"--update",
		"--rate=10000",
		"-c4",
		"-r3",
		"--max-files=500",
		"--max-size=10M",
		"+*.pdf",
		"--robots=0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("token order mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestBuildArgs_ZeroOptionsOmitFlags(t *testing.T) {
	job := validJob(t)
	got, err := BuildArgs(job)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}
	want := []string{"https://example.com", "http://docs.example.com/guide", "-O", job.OutputDir}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("zero options should only emit URLs and -O:\ngot  %v\nwant %v", got, want)
	}
}

func TestBuildArgs_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Job)
	}{
		{"empty url list", func(j *Job) { j.URLs = nil }},
		{"relative url", func(j *Job) { j.URLs = []string{"example.com"} }},
		{"ftp url", func(j *Job) { j.URLs = []string{"ftp://example.com"} }},
		{"empty output dir", func(j *Job) { j.OutputDir = "" }},
		{"filter without sign", func(j *Job) { j.Options.Filters = []string{"*.png"} }},
		{"unsafe extra args", func(j *Job) { j.Options.ExtraArgs = "--rate=1; rm -rf /" }},
		{"pipe in extra args", func(j *Job) { j.Options.ExtraArgs = "-r2 | tee out" }},
		{"unterminated quote", func(j *Job) { j.Options.ExtraArgs = "-F 'user-agent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob(t)
			tt.mutate(&job)
			_, err := BuildArgs(job)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("error %v does not match ErrInvalidSettings", err)
			}
		})
	}
}

func TestBuildArgs_CreatesOutputDir(t *testing.T) {
	job := validJob(t)
	job.OutputDir = job.OutputDir + "/nested/mirror"
	if _, err := BuildArgs(job); err != nil {
		t.Fatalf("BuildArgs should create missing output dirs: %v", err)
	}
}

func TestSplitArgs_Quoting(t *testing.T) {
	got, err := splitArgs(`-F 'user-agent: Mozilla/5.0' --robots=0`)
	if err != nil {
		t.Fatalf("splitArgs failed: %v", err)
	}
	want := []string{"-F", "user-agent: Mozilla/5.0", "--robots=0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPresets_AllBuildable(t *testing.T) {
	for _, p := range Presets() {
		p := p
		t.Run(p.Name, func(t *testing.T) {
			job := validJob(t)
			job.Options.ExtraArgs = p.Args
			if _, err := BuildArgs(job); err != nil {
				t.Errorf("preset %q does not build: %v", p.Name, err)
			}
		})
	}
}
