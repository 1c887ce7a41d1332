package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var filter string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"list"},
		Short:   "List enrollments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			records, err := b.Records(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				if strings.TrimSpace(filter) != "" {
					fmt.Fprintf(out, "No enrollments match %q\n", filter)
				} else {
					fmt.Fprintln(out, "No enrollments")
				}
				return nil
			}
			fmt.Fprintln(out, renderRecords(records))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Case-insensitive identifier substring")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.AddCommand(newRecordsDeleteCommand(ctx))
	return cmd
}

func newRecordsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an enrollment by record id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.DeleteRecord(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete record %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", id)
			return nil
		},
	}
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent access decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be positive")
			}
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			events, err := b.Events(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, events)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No access events recorded")
				return nil
			}
			fmt.Fprintln(out, renderEvents(events))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultEventLimit, "Maximum events to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
