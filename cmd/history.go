package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxswoop/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed messages from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			j, err := journal.Open(ctx, a.cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer j.Close()

			entries, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			counts, err := j.Counts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACTION\tMESSAGE\tSUBJECT\tLABELS AFTER\tERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ProcessedAt.Local().Format("2006-01-02 15:04:05"),
					e.Action, e.MessageID, e.Subject,
					strings.Join(e.LabelsAfter, ","), e.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nTotals: %d archived, %d skipped, %d failed\n",
				counts[journal.ActionArchived], counts[journal.ActionSkipped], counts[journal.ActionFailed])
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	return cmd
}
