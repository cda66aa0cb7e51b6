package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teemow/inboxswoop/internal/gmail"
	"github.com/teemow/inboxswoop/internal/instrumentation"
	"github.com/teemow/inboxswoop/internal/journal"
	"github.com/teemow/inboxswoop/internal/logging"
)

// Mailbox is the part of *gmail.Mailbox the pipeline drives.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, query string) ([]gmail.MessageRef, error)
	FetchMessage(ctx context.Context, id string) (*gmail.Message, error)
	Archive(ctx context.Context, id string) ([]string, error)
}

// Recorder stores one journal entry per processed message.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// RunOptions controls a single run.
type RunOptions struct {
	Filter string
	// DryRun lists and fetches but never modifies labels.
	DryRun bool
	// Limit stops after this many messages. Zero means no limit.
	Limit int
	// ShowRaw writes each decoded payload to the pipeline's raw writer.
	ShowRaw bool
}

// Result summarizes a run.
type Result struct {
	Listed   int
	Archived int
	Skipped  int
	Failed   int
}

// Pipeline wires a Mailbox to a Recorder.
type Pipeline struct {
	mailbox  Mailbox
	recorder Recorder
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	raw      io.Writer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every processed message.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithMetrics counts processed messages by action.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRawOutput sets where ShowRaw payloads go.
func WithRawOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.raw = w }
}

// New returns a Pipeline over mb.
func New(mb Mailbox, opts ...Option) *Pipeline {
	p := &Pipeline{
		mailbox: mb,
		logger:  slog.Default(),
		raw:     io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run lists messages matching opts.Filter and processes them in order.
// The returned Result is valid even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	var res Result

	ctx, span := instrumentation.StartSpan(ctx, "triage.run", instrumentation.QueryAttr(opts.Filter))
	defer span.End()

	refs, err := p.mailbox.ListMessageIDs(ctx, opts.Filter)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return res, fmt.Errorf("list %q: %w", opts.Filter, err)
	}
	if opts.Limit > 0 && len(refs) > opts.Limit {
		refs = refs[:opts.Limit]
	}
	res.Listed = len(refs)

	p.logger.InfoContext(ctx, "listed messages",
		logging.Query(opts.Filter),
		logging.Count(len(refs)),
		"dry_run", opts.DryRun)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			instrumentation.SetSpanError(span, err)
			return res, err
		}

		action, err := p.process(ctx, ref, opts)
		switch action {
		case journal.ActionArchived:
			res.Archived++
		case journal.ActionSkipped:
			res.Skipped++
		case journal.ActionFailed:
			res.Failed++
		}
		if err != nil && !recoverable(err) {
			instrumentation.SetSpanError(span, err)
			return res, err
		}
	}

	span.SetAttributes(instrumentation.CountAttr(res.Archived))
	instrumentation.SetSpanSuccess(span)
	return res, nil
}

// recoverable errors fail one message without stopping the run.
func recoverable(err error) bool {
	return gmail.IsNotFound(err) ||
		errors.Is(err, gmail.ErrInvalidPayload) ||
		errors.Is(err, gmail.ErrArchiveIncomplete)
}

func (p *Pipeline) process(ctx context.Context, ref gmail.MessageRef, opts RunOptions) (journal.Action, error) {
	ctx, span := instrumentation.StartSpan(ctx, "triage.message", instrumentation.MessageIDAttr(ref.ID))
	defer span.End()

	logger := p.logger.With(logging.MessageID(ref.ID))
	entry := journal.Entry{MessageID: ref.ID, ThreadID: ref.ThreadID}

	msg, err := p.mailbox.FetchMessage(ctx, ref.ID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return p.finish(ctx, logger, entry, journal.ActionFailed, err)
	}
	entry.Subject = msg.Subject()
	entry.LabelsBefore = msg.LabelIDs
	if msg.ThreadID != "" {
		entry.ThreadID = msg.ThreadID
	}

	logger.InfoContext(ctx, "fetched message",
		"subject", entry.Subject,
		"snippet", msg.Snippet,
		logging.Labels(msg.LabelIDs))

	if opts.ShowRaw {
		if _, err := p.raw.Write(msg.Raw); err != nil {
			return p.finish(ctx, logger, entry, journal.ActionFailed, fmt.Errorf("write raw message: %w", err))
		}
	}

	if opts.DryRun {
		entry.LabelsAfter = msg.LabelIDs
		return p.finish(ctx, logger, entry, journal.ActionSkipped, nil)
	}

	labels, err := p.mailbox.Archive(ctx, ref.ID)
	entry.LabelsAfter = labels
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return p.finish(ctx, logger, entry, journal.ActionFailed, err)
	}

	instrumentation.SetSpanSuccess(span)
	return p.finish(ctx, logger, entry, journal.ActionArchived, nil)
}

// finish logs, counts and records the outcome of one message and passes
// err through.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, entry journal.Entry, action journal.Action, err error) (journal.Action, error) {
	entry.Action = action
	if err != nil {
		entry.Error = err.Error()
		logger.WarnContext(ctx, "message failed", logging.Err(err))
	} else {
		logger.InfoContext(ctx, "message processed",
			logging.Status(string(action)),
			logging.Labels(entry.LabelsAfter))
	}

	p.metrics.RecordMessageProcessed(ctx, string(action))

	if p.recorder != nil {
		if _, rerr := p.recorder.Record(ctx, entry); rerr != nil {
			logger.ErrorContext(ctx, "failed to record journal entry", logging.Err(rerr))
			if err == nil {
				err = fmt.Errorf("journal %s: %w", entry.MessageID, rerr)
			}
		}
	}
	return action, err
}
