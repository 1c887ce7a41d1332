package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fingergate/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logs.TailOptions
	var attempt string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.Lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			if attempt != "" {
				opts.Match = attempt
			}
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			return logs.Tail(runCtx, cfg.LogPath(), opts, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of existing lines to show")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&attempt, "attempt", "", "Only show lines for this attempt id")
	return cmd
}
