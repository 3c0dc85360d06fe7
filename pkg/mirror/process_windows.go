// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package mirror

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// Windows has no process-suspend signal; pause/resume surface
// ErrUnsupportedOperation to the caller rather than silently no-opping.
func suspendGroup(cmd *exec.Cmd) error {
	return ErrUnsupportedOperation
}

func resumeGroup(cmd *exec.Cmd) error {
	return ErrUnsupportedOperation
}

func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return ErrNotRunning
	}
	return cmd.Process.Kill()
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return ErrNotRunning
	}
	return cmd.Process.Kill()
}
