// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

// Preset is a named bundle of extra arguments for a common mirroring
// scenario. Preset args are merged into Options.ExtraArgs and go through
// the same validation as user-typed arguments.
type Preset struct {
	Name        string `json:"name"`
	Args        string `json:"args"`
	Description string `json:"description"`
}

// Presets returns the built-in argument bundles, in display order.
func Presets() []Preset {
	return []Preset{
		{
			Name:        "Complete Mirror",
			Args:        "--robots=0 -r9",
			Description: "Full recursive mirror ignoring robots.txt",
		},
		{
			Name:        "Fast Browse",
			Args:        "-r2 -%P",
			Description: "2-level depth, same domain only",
		},
		{
			Name:        "Media Rich",
			Args:        "+*.png +*.gif +*.jpg +*.jpeg +*.svg +*.mp4 +*.webm",
			Description: "Include common image and video formats",
		},
		{
			Name:        "Documentation",
			Args:        "+*.pdf +*.doc +*.docx +*.txt",
			Description: "Include document formats",
		},
		{
			Name:        "Offline Reading",
			Args:        "-F 'user-agent: Mozilla/5.0' --robots=0",
			Description: "Optimized for offline browsing",
		},
	}
}

// PresetByName looks a preset up case-sensitively by its display name.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
