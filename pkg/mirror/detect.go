// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

// DefaultExecutable is the external tool's binary name on this platform.
var DefaultExecutable = func() string {
	if runtime.GOOS == "windows" {
		return "httrack.exe"
	}
	return "httrack"
}()

// wellKnownPaths are checked after PATH lookup fails. Taken from the
// standard install locations of the tool on unix and Windows.
var wellKnownPaths = []string{
	"/usr/bin/httrack",
	"/usr/local/bin/httrack",
	`C:\Program Files\WinHTTrack\httrack.exe`,
	`C:\Program Files (x86)\WinHTTrack\httrack.exe`,
}

// LocateExecutable resolves the external tool's binary. An explicit
// non-empty path wins and is only checked for existence; otherwise PATH
// is searched for DefaultExecutable, then the well-known install
// locations. Returns a *SpawnError when nothing is found.
func LocateExecutable(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &SpawnError{Path: explicit, Err: err}
		}
		return explicit, nil
	}

	if p, err := exec.LookPath(DefaultExecutable); err == nil {
		return p, nil
	}

	for _, p := range wellKnownPaths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}

	return "", &SpawnError{
		Path: DefaultExecutable,
		Err:  errors.New("executable not found in PATH or standard install locations"),
	}
}
