package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var consent string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize inboxswoop to modify your Gmail labels",
		Long: `Run the OAuth consent flow against the client secret file
(credentials_file in the config) and store the resulting credential in
token_file. Any stored credential is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			auth, err := a.authenticator(consent, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cred, err := auth.Login(ctx)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored credential in %s (expires %s)\n",
				a.cfg.TokenFile, cred.Expiry.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	addConsentFlag(cmd, &consent)
	return cmd
}
