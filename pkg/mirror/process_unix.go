// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package mirror

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup makes the child the leader of a fresh process group so
// signals reach the whole tree the tool may spawn.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroup(cmd *exec.Cmd, sig unix.Signal) error {
	if cmd.Process == nil {
		return ErrNotRunning
	}
	// Negative pid addresses the group.
	return unix.Kill(-cmd.Process.Pid, sig)
}

func suspendGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGSTOP)
}

func resumeGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGCONT)
}

func terminateGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGTERM)
}

func killGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGKILL)
}
