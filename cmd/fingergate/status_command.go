package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fingergate/internal/api"
	"fingergate/internal/deps"
	"fingergate/internal/preflight"
	"fingergate/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session, and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to daemon: %w; start it with `fingergate daemon`", err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			for _, line := range renderDaemonStatus(status, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderDaemonStatus(status *api.DaemonStatus, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	storage := fmt.Sprintf("%s %s", status.StorageDriver, status.StorageTarget)
	if status.StorageHealthy {
		lines = append(lines, renderStatusLine("Storage", statusOK, storage, colorize))
	} else {
		lines = append(lines, renderStatusLine("Storage", statusError, storage+" unreachable", colorize))
	}
	lines = append(lines, renderStatusLine("Polling", statusInfo, yesNo(status.Polling), colorize))

	session := status.Session
	state := session.State
	if session.AttemptID != "" {
		state = fmt.Sprintf("%s %s (attempt %s", session.State, session.Mode, session.AttemptID)
		if session.Total > 0 {
			state += fmt.Sprintf(", %d/%d checked", session.Checked, session.Total)
		}
		state += ")"
	}
	lines = append(lines, renderStatusLine("Session", statusInfo, state, colorize))
	if last := session.LastReport; last != nil {
		lines = append(lines, renderAttempt(*last, colorize))
	}

	if len(status.Dependencies) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range status.Dependencies {
			lines = append(lines, dependencyLine(dep, colorize))
		}
	}
	return lines
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the capture and comparator executables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, dep := range api.FromDependencies(statuses) {
				fmt.Fprintln(out, dependencyLine(dep, colorize))
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("missing required executables: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run readiness checks against directories, executables, and storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var pinger preflight.Pinger
			st, openErr := store.Open(cfg, store.WithLogger(ctx.logger()))
			if openErr == nil {
				defer st.Close()
				pinger = st
			}

			results := preflight.RunAll(cmd.Context(), cfg, pinger)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Storage (" + cfg.Storage.Driver + ")", Detail: openErr.Error()})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
