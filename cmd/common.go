package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxswoop/internal/config"
	"github.com/teemow/inboxswoop/internal/gmail"
	"github.com/teemow/inboxswoop/internal/google"
	"github.com/teemow/inboxswoop/internal/instrumentation"
	"github.com/teemow/inboxswoop/internal/logging"
	"github.com/teemow/inboxswoop/internal/triage"
)

// Consent flow names accepted by --consent.
const (
	consentLoopback = "loopback"
	consentPrompt   = "prompt"
)

// app bundles what every command needs after startup.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
}

// mailbox is what the Gmail commands drive. *gmail.Mailbox implements it.
type mailbox interface {
	triage.Mailbox
	ArchiveAll(ctx context.Context, ids []string) (int, error)
}

// newMailbox builds an authorized mailbox. Tests replace it with a fake.
var newMailbox = func(ctx context.Context, a *app, consent string, out io.Writer) (mailbox, error) {
	auth, err := a.authenticator(consent, out)
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize: %w", err)
	}

	svc, err := gmail.NewServiceClient(ctx, httpClient,
		gmail.WithRateLimit(a.cfg.Gmail.QPS, a.cfg.Gmail.Burst),
		gmail.WithTimeout(a.cfg.Gmail.Timeout),
		gmail.WithClientMetrics(a.provider.Metrics()),
	)
	if err != nil {
		return nil, err
	}
	return gmail.NewMailbox(svc, a.cfg.User,
		gmail.WithPageSize(a.cfg.Gmail.PageSize),
		gmail.WithLogger(a.logger),
	), nil
}

// setup loads configuration, installs the logger and starts instrumentation.
// Callers must call close.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "inboxswoop",
		ServiceVersion:  version,
		Enabled:         cfg.Telemetry.Enabled,
		MetricsExporter: cfg.Telemetry.MetricsExporter,
		TracingExporter: cfg.Telemetry.TracingExporter,
		OTLPEndpoint:    cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:    cfg.Telemetry.OTLPInsecure,
		SamplingRate:    cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &app{cfg: cfg, logger: logger, provider: provider}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

// consenter returns the interactive consent flow named by kind.
func consenter(kind string, in io.Reader, out io.Writer) (google.Consenter, error) {
	switch kind {
	case consentLoopback, "":
		return &google.LoopbackConsenter{Out: out}, nil
	case consentPrompt:
		return &google.PromptConsenter{In: in, Out: out}, nil
	default:
		return nil, fmt.Errorf("unknown consent flow %q, must be one of: %s, %s", kind, consentLoopback, consentPrompt)
	}
}

func (a *app) authenticator(consent string, out io.Writer) (*google.Authenticator, error) {
	conf, err := google.LoadClientConfig(a.cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	c, err := consenter(consent, os.Stdin, out)
	if err != nil {
		return nil, err
	}
	return google.NewAuthenticator(conf, google.NewFileStore(a.cfg.TokenFile), c,
		google.WithMetrics(a.provider.Metrics()),
		google.WithLogger(a.logger),
	), nil
}

// explain adds the next step to Gmail errors the user can act on.
func explain(err error) error {
	switch {
	case gmail.IsUnauthorized(err):
		return fmt.Errorf("%w (the stored credential was rejected; run 'inboxswoop auth' to sign in again)", err)
	case gmail.IsRateLimited(err):
		return fmt.Errorf("%w (Gmail is throttling requests; lower gmail.qps in the config or retry later)", err)
	}
	return err
}

func addConsentFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "consent", consentLoopback, "Consent flow when authorization is needed: loopback (browser redirect) or prompt (paste the code)")
}
