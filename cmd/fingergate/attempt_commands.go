package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fingergate/internal/api"
	"fingergate/internal/worker"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Capture a fingerprint and search the enrollments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := b.Identify(cmd.Context())
			if err != nil {
				return err
			}
			return printAttempt(cmd, report, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")
	return cmd
}

func newEnrollCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "enroll <identifier>",
		Short: "Capture a fingerprint and store it under identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := b.Enroll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAttempt(cmd, report, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")
	return cmd
}

// printAttempt renders report and converts failed attempts into a non-zero
// exit.
func printAttempt(cmd *cobra.Command, report api.AttemptReport, jsonOut bool) error {
	if jsonOut {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderAttempt(report, shouldColorize(out)))
	}
	if report.ErrorKind != "" {
		return fmt.Errorf("%s failed: %s", report.Mode, report.ErrorKind)
	}
	return nil
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Identify continuously until interrupted",
		Long: "Watch polls the local sensor, skipping repeated placements of the same finger,\n" +
			"and prints one line per access decision. Use polling.enabled for the daemon.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.flags.remote {
				return errors.New("watch uses the local sensor; enable polling in the daemon config instead of --remote")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			seen := 0
			pcfg := worker.PollerConfigFrom(cfg)
			pcfg.Logger = ctx.logger()
			pcfg.Handler = func(_ context.Context, r worker.Report) {
				dto := api.FromReport(r)
				if jsonOut {
					_ = writeJSON(cmd, dto)
				} else {
					fmt.Fprintln(out, renderAttempt(dto, colorize))
				}
				seen++
				if count > 0 && seen >= count {
					cancel()
				}
			}

			if !jsonOut {
				fmt.Fprintln(out, "Watching for fingerprints; press Ctrl-C to stop")
			}
			err = worker.NewPoller(rt.Session, pcfg).Run(runCtx)
			if waitErr := rt.Session.Wait(context.Background()); waitErr != nil && err == nil {
				err = waitErr
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output one JSON report per line")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many access decisions (0 runs until interrupted)")
	return cmd
}
