// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() map[string]any {
	return map[string]any{
		"output":      "./Mirrors",
		"depth":       0,
		"rate":        0,
		"connections": 0,
		"max-files":   0,
		"max-size":    0,
		"executable":  "",
		"stop-grace":  "5s",
	}
}

// defaultConfigPath is where `config init` writes and what `config
// path` reports when no config file exists yet.
func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sitecloner.json")
}

// findConfigFile returns the first of ~/.config/sitecloner.{json,yaml,yml}
// that exists, or "" when none does.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	for _, name := range []string{"sitecloner.json", "sitecloner.yaml", "sitecloner.yml"} {
		p := filepath.Join(home, ".config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyConfigDefaults loads the config file (explicit --config path or
// the first of ~/.config/sitecloner.{json,yaml,yml}) and fills in any
// flag the user did not set on the command line. Flags always win.
func applyConfigDefaults(cmd *cobra.Command, ro *RootOpts, rf *runFlags) error {
	path := ro.Config
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg map[string]any

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid YAML config file: %w", err)
		}
	default: // .json or unknown
		if err := json.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("invalid JSON config file: %w", err)
		}
	}

	setStr := func(flagName string, set func(string)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(fmt.Sprint(v))
		}
	}
	setInt := func(flagName string, set func(int)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			var x int
			fmt.Sscan(fmt.Sprint(v), &x)
			set(x)
		}
	}

	setStr("output", func(v string) { rf.job.OutputDir = v })
	setInt("depth", func(v int) { rf.job.Options.Depth = v })
	setInt("rate", func(v int) { rf.job.Options.RateLimit = v })
	setInt("connections", func(v int) { rf.job.Options.Connections = v })
	setInt("max-files", func(v int) { rf.job.Options.MaxFiles = v })
	setInt("max-size", func(v int) { rf.job.Options.MaxSizeMB = v })
	setStr("executable", func(v string) { rf.executable = v })
	setStr("stop-grace", func(v string) {
		if d, err := time.ParseDuration(v); err == nil {
			rf.stopGrace = d
		}
	})

	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		useYAML bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Creates a default configuration file at ~/.config/sitecloner.json (or .yaml)

The configuration file sets default values for the run command's flags.
CLI flags always override config file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("could not find home directory: %w", err)
			}

			configDir := filepath.Join(home, ".config")
			ext := ".json"
			if useYAML {
				ext = ".yaml"
			}
			configPath := filepath.Join(configDir, "sitecloner"+ext)

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
			}

			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			cfg := DefaultConfig()
			var data []byte
			if useYAML {
				data, err = yaml.Marshal(cfg)
			} else {
				data, err = json.MarshalIndent(cfg, "", "  ")
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			fmt.Printf("Created config file: %s\n", configPath)
			fmt.Println()
			fmt.Println("Edit this file to set your defaults. For example:")
			fmt.Println("  - Point 'executable' at your mirroring tool")
			fmt.Println("  - Change the default output directory")
			fmt.Println("  - Set depth and bandwidth limits")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	cmd.Flags().BoolVar(&useYAML, "yaml", false, "Create YAML config instead of JSON")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := findConfigFile()
			if configPath == "" {
				fmt.Println("No config file found.")
				fmt.Printf("Run 'sitecloner config init' to create one at:\n  %s\n", defaultConfigPath())
				return nil
			}

			data, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}

			fmt.Printf("Config file: %s\n\n", configPath)
			fmt.Println(string(data))

			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			if p := findConfigFile(); p != "" {
				fmt.Println(p)
				return
			}
			fmt.Println(defaultConfigPath())
		},
	}
}
