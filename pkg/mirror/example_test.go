// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror_test

import (
	"context"
	"fmt"
	"log"

	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// Example demonstrates the most common usage: start a mirror run and
// watch its progress until the process exits.
func Example() {
	job := mirror.Job{
		URLs:      []string{"https://example.com"},
		OutputDir: "./mirrors/example",
		Options: mirror.Options{
			Depth:       3,
			Connections: 8,
		},
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
		fmt.Printf("%3d%%  %d/%d files  %d bytes  %s\n",
			snap.Percent, snap.FilesDone, snap.FilesTotal, snap.Bytes, snap.CurrentURL)
	}

	exit := sess.Wait()
	fmt.Println("final state:", exit.State)
}

// ExampleBuildArgs shows the deterministic argument translation.
func ExampleBuildArgs() {
	job := mirror.Job{
		URLs:      []string{"https://example.com"},
		OutputDir: "/tmp/mirrors/example",
		Resume:    true,
		Options: mirror.Options{
			Depth:     2,
			RateLimit: 25000,
			Filters:   []string{"+*.pdf"},
			ExtraArgs: "--robots=0",
		},
	}

	args, err := mirror.BuildArgs(job)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(args)
}

// ExamplePresetByName applies a built-in preset to a job.
func ExamplePresetByName() {
	preset, ok := mirror.PresetByName("Complete Mirror")
	if !ok {
		log.Fatal("unknown preset")
	}

	job := mirror.Job{
		URLs:      []string{"https://example.com"},
		OutputDir: "./mirrors/example",
		Options:   mirror.Options{ExtraArgs: preset.Args},
	}
	_ = job
	fmt.Println(preset.Args)
	// Output: --robots=0 -r9
}
