package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var (
		consent     string
		headersOnly bool
	)

	cmd := &cobra.Command{
		Use:   "fetch MESSAGE_ID",
		Short: "Print a message's decoded raw payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			mb, err := newMailbox(ctx, a, consent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			msg, err := mb.FetchMessage(ctx, args[0])
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if headersOnly {
				fmt.Fprintf(out, "From: %s\n", msg.From())
				fmt.Fprintf(out, "Date: %s\n", msg.Header("Date"))
				fmt.Fprintf(out, "Subject: %s\n", msg.Subject())
				fmt.Fprintf(out, "Labels: %v\n", msg.LabelIDs)
				return nil
			}
			_, err = out.Write(msg.Raw)
			return err
		},
	}

	cmd.Flags().BoolVar(&headersOnly, "headers", false, "Print only From, Date, Subject and labels")
	addConsentFlag(cmd, &consent)
	return cmd
}
