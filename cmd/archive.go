package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxswoop/internal/journal"
	"github.com/teemow/inboxswoop/internal/logging"
	"github.com/teemow/inboxswoop/internal/triage"
)

func newArchiveCmd() *cobra.Command {
	var (
		filter  string
		dryRun  bool
		limit   int
		showRaw bool
		batch   bool
		consent string
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive Gmail messages matching a filter",
		Long: `List the messages matching --filter, fetch each one in raw format and
archive it by removing the INBOX and UNREAD labels. Each message is recorded
in the journal (see 'inboxswoop history').

With --batch the messages are archived with batchModify, 1000 at a time,
without fetching them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

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

			j, err := journal.Open(ctx, a.cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer j.Close()

			out := cmd.OutOrStdout()

			if batch {
				return runBatchArchive(ctx, a, mb, j, filter, limit, dryRun, out)
			}

			p := triage.New(mb,
				triage.WithRecorder(j),
				triage.WithMetrics(a.provider.Metrics()),
				triage.WithLogger(a.logger),
				triage.WithRawOutput(out),
			)
			res, err := p.Run(ctx, triage.RunOptions{
				Filter:  filter,
				DryRun:  dryRun,
				Limit:   limit,
				ShowRaw: showRaw,
			})
			fmt.Fprintf(out, "Processed %d messages: %d archived, %d skipped, %d failed\n",
				res.Listed, res.Archived, res.Skipped, res.Failed)
			if err != nil {
				return fmt.Errorf("archive run stopped: %w", explain(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "label:inbox", "Gmail search filter. Can also use INBOXSWOOP_FILTER env var.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List and fetch messages without modifying labels")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many messages (0 = no limit)")
	cmd.Flags().BoolVar(&showRaw, "show-raw", false, "Print each decoded message to stdout")
	cmd.Flags().BoolVar(&batch, "batch", false, "Archive with batchModify instead of one request per message")
	addConsentFlag(cmd, &consent)

	return cmd
}

func runBatchArchive(ctx context.Context, a *app, mb mailbox, j *journal.Journal, filter string, limit int, dryRun bool, out io.Writer) error {
	refs, err := mb.ListMessageIDs(ctx, filter)
	if err != nil {
		return explain(err)
	}
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}

	if dryRun {
		fmt.Fprintf(out, "Would archive %d messages\n", len(ids))
		return nil
	}

	n, err := mb.ArchiveAll(ctx, ids)
	for _, ref := range refs[:n] {
		if _, rerr := j.Record(ctx, journal.Entry{MessageID: ref.ID, ThreadID: ref.ThreadID, Action: journal.ActionArchived}); rerr != nil {
			a.logger.Error("failed to record journal entry", logging.MessageID(ref.ID), logging.Err(rerr))
		}
		a.provider.Metrics().RecordMessageProcessed(ctx, string(journal.ActionArchived))
	}
	fmt.Fprintf(out, "Archived %d of %d messages\n", n, len(ids))
	if err != nil {
		return explain(err)
	}
	return nil
}
