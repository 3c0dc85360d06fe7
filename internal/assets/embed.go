// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package assets embeds the web dashboard served in serve mode.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var static embed.FS

// StaticFS returns the dashboard files rooted at static/, ready for
// http.FileServer(http.FS(...)).
func StaticFS() fs.FS {
	sub, _ := fs.Sub(static, "static")
	return sub
}
