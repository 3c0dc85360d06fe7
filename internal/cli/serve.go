// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Jessiebrownleo/site-cloner/internal/server"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	cfg := server.DefaultConfig()
	var stopGrace time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and REST API",
		Long: `Starts an HTTP server with a web interface for launching and
monitoring mirroring runs, a REST API, and a WebSocket endpoint that
streams progress and log lines.

One run is active at a time; further start requests are rejected until
it finishes or is stopped.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			rf := &runFlags{executable: cfg.Executable, stopGrace: stopGrace}
			if err := applyConfigDefaults(cmd, ro, rf); err != nil {
				return err
			}
			cfg.Executable = rf.executable
			stopGrace = rf.stopGrace
			if !cmd.Flags().Changed("output-dir") && rf.job.OutputDir != "" {
				cfg.OutputDir = rf.job.OutputDir
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.StopGrace = stopGrace
			srv := server.New(cfg, cmd.Root().Version)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Address to bind to")
	cmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	cmd.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Root directory for job output")
	cmd.Flags().StringVar(&cfg.Executable, "executable", "", "Path to the mirroring tool (auto-detected if empty)")
	cmd.Flags().DurationVar(&stopGrace, "stop-grace", cfg.StopGrace, "Graceful-stop window before the process is killed")
	cmd.Flags().StringSliceVar(&cfg.AllowedOrigins, "cors-origins", nil, "Allowed CORS origins (empty allows all)")

	return cmd
}
