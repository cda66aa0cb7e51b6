package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/inboxswoop/internal/instrumentation"
	"github.com/teemow/inboxswoop/internal/logging"
)

// LoadClientConfig reads an OAuth client secret file (as downloaded from the
// Google Cloud console) and returns the config for the given scopes.
func LoadClientConfig(path string, scopes ...string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file %s: %w", path, err)
	}
	return conf, nil
}

// Authenticator produces authorized token sources for the Gmail API.
type Authenticator struct {
	config    *oauth2.Config
	store     CredentialStore
	consenter Consenter
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithMetrics records OAuth consent and refresh outcomes.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator creates an Authenticator. consenter may be nil, in which
// case a missing or revoked credential is an error.
func NewAuthenticator(conf *oauth2.Config, store CredentialStore, consenter Consenter, opts ...Option) *Authenticator {
	a := &Authenticator{
		config:    conf,
		store:     store,
		consenter: consenter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithService(a.logger, "oauth")
	return a
}

// ErrConsentRequired is returned when interactive consent is needed but no
// Consenter was configured.
var ErrConsentRequired = errors.New("interactive consent required; run 'inboxswoop auth'")

// TokenSource returns a token source backed by the stored credential,
// refreshing or re-consenting as needed. Tokens refreshed later by the
// source are written back to the store.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return a.persisting(ctx, tok), nil
}

// HTTPClient returns an HTTP client that authorizes requests with the
// resolved token source.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Login always runs the consent flow and stores the result.
func (a *Authenticator) Login(ctx context.Context) (*Credential, error) {
	tok, err := a.consent(ctx)
	if err != nil {
		return nil, err
	}
	return NewCredential(tok, a.config.Scopes), nil
}

func (a *Authenticator) resolve(ctx context.Context) (*oauth2.Token, error) {
	cred, err := a.store.Load()
	switch {
	case errors.Is(err, ErrNoCredential):
		a.logger.Info("no stored credential, starting consent flow")
		return a.consent(ctx)
	case err != nil:
		return nil, err
	}

	if !cred.Covers(a.config.Scopes) {
		a.logger.Info("stored credential lacks required scopes, starting consent flow",
			slog.Any("granted", cred.Scopes),
			slog.Any("required", a.config.Scopes))
		return a.consent(ctx)
	}

	tok := cred.Token()
	if tok.Valid() {
		a.logger.Debug("using stored credential", slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))
		return tok, nil
	}

	if tok.RefreshToken == "" {
		a.logger.Info("stored credential expired without refresh token, starting consent flow")
		return a.consent(ctx)
	}

	refreshed, err := a.config.TokenSource(ctx, tok).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			// The grant was revoked or expired on the server side.
			a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
			a.logger.Warn("refresh token rejected, starting consent flow",
				slog.String("error_code", retrieveErr.ErrorCode))
			return a.consent(ctx)
		}
		a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh credential: %w", err)
	}
	a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	if err := a.store.Save(NewCredential(refreshed, a.config.Scopes)); err != nil {
		return nil, err
	}
	a.logger.Info("refreshed stored credential")
	return refreshed, nil
}

func (a *Authenticator) consent(ctx context.Context) (*oauth2.Token, error) {
	if a.consenter == nil {
		return nil, ErrConsentRequired
	}

	tok, err := a.consenter.Consent(ctx, a.config)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if err := a.store.Save(NewCredential(tok, a.config.Scopes)); err != nil {
		return nil, err
	}
	a.logger.Info("stored new credential")
	return tok, nil
}

func (a *Authenticator) persisting(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		base:   oauth2.ReuseTokenSource(tok, a.config.TokenSource(ctx, tok)),
		store:  a.store,
		scopes: a.config.Scopes,
		last:   tok.AccessToken,
		logger: a.logger,
	}
}

// persistingSource writes every new access token back to the store.
type persistingSource struct {
	base   oauth2.TokenSource
	store  CredentialStore
	scopes []string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(NewCredential(tok, s.scopes)); err != nil {
			s.logger.Warn("failed to persist refreshed credential", logging.Err(err))
		} else {
			s.last = tok.AccessToken
		}
	}
	return tok, nil
}
