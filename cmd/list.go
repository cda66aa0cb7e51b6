package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		filter  string
		consent string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the ids of messages matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if !cmd.Flags().Changed("filter") {
				filter = a.cfg.Filter
			}

			mb, err := newMailbox(ctx, a, consent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			refs, err := mb.ListMessageIDs(ctx, filter)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			for _, ref := range refs {
				fmt.Fprintln(out, ref.ID)
			}
			a.logger.Info("listed messages", "count", len(refs))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "label:inbox", "Gmail search filter. Can also use INBOXSWOOP_FILTER env var.")
	addConsentFlag(cmd, &consent)
	return cmd
}
