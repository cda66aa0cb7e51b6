package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
)

// tokenServer fakes the Google OAuth token endpoint.
type tokenServer struct {
	*httptest.Server

	mu       sync.Mutex
	refreshs int
	codes    []string
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		ts.mu.Lock()
		defer ts.mu.Unlock()

		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			ts.refreshs++
			if r.PostForm.Get("refresh_token") == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "refreshed-access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "authorization_code":
			ts.codes = append(ts.codes, r.PostForm.Get("code"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "consented-access",
				"refresh_token": "consented-refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       DefaultScopes,
		RedirectURL:  "http://127.0.0.1/",
		Endpoint: oauth2.Endpoint{
			AuthURL:   ts.URL + "/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// fakeConsenter hands out a fixed token and counts invocations.
type fakeConsenter struct {
	calls int
	tok   *oauth2.Token
	err   error
}

func (f *fakeConsenter) Consent(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tok, nil
}

func newConsented() *fakeConsenter {
	return &fakeConsenter{tok: &oauth2.Token{
		AccessToken:  "consented-access",
		RefreshToken: "consented-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}}
}

func TestAuthenticator_UsesValidStoredCredential(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	src, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored-access", tok.AccessToken)
	assert.Equal(t, 0, consenter.calls)
	assert.Equal(t, 0, ts.refreshCount())
}

func TestAuthenticator_RefreshesExpiredCredential(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken:  "stale-access",
		RefreshToken: "stored-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	src, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", tok.AccessToken)
	assert.Equal(t, 0, consenter.calls)
	assert.Equal(t, 1, ts.refreshCount())

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", stored.AccessToken)
	assert.Equal(t, "stored-refresh", stored.RefreshToken, "refresh token must survive a refresh")
}

func TestAuthenticator_ConsentWhenNoCredential(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	src, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "consented-access", tok.AccessToken)
	assert.Equal(t, 1, consenter.calls)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "consented-refresh", stored.RefreshToken)
	assert.Equal(t, DefaultScopes, stored.Scopes)
}

func TestAuthenticator_ConsentWhenRefreshRevoked(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken:  "stale-access",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	_, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ts.refreshCount())
	assert.Equal(t, 1, consenter.calls)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "consented-access", stored.AccessToken)
}

func TestAuthenticator_ConsentWhenExpiredWithoutRefreshToken(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken: "stale-access",
		Expiry:      time.Now().Add(-time.Hour),
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	_, err := auth.TokenSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, consenter.calls)
	assert.Equal(t, 0, ts.refreshCount())
}

func TestAuthenticator_ConsentWhenScopesNarrower(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken:  "readonly-access",
		RefreshToken: "readonly-refresh",
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       []string{gmail.GmailReadonlyScope},
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	src, err := auth.TokenSource(context.Background())
	require.NoError(t, err)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "consented-access", tok.AccessToken)
	assert.Equal(t, 1, consenter.calls)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultScopes, stored.Scopes)
}

func TestAuthenticator_NoConsenter(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	auth := NewAuthenticator(ts.config(), store, nil)
	_, err := auth.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrConsentRequired)
}

func TestAuthenticator_ConsentFailureIsNotStored(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	consenter := &fakeConsenter{err: ErrConsentDenied}

	auth := NewAuthenticator(ts.config(), store, consenter)
	_, err := auth.TokenSource(context.Background())
	assert.True(t, errors.Is(err, ErrConsentDenied))

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestAuthenticator_Login(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken: "stored-access",
		Expiry:      time.Now().Add(time.Hour),
	}))
	consenter := newConsented()

	auth := NewAuthenticator(ts.config(), store, consenter)
	cred, err := auth.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "consented-access", cred.AccessToken)
	assert.Equal(t, 1, consenter.calls)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "consented-access", stored.AccessToken)
}

func TestAuthenticator_HTTPClientAuthorizesRequests(t *testing.T) {
	ts := newTokenServer(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, store.Save(&Credential{
		AccessToken: "stored-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer api.Close()

	auth := NewAuthenticator(ts.config(), store, nil)
	client, err := auth.HTTPClient(context.Background())
	require.NoError(t, err)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer stored-access", gotAuth)
}

// memStore records saves so tests can observe persistence.
type memStore struct {
	cred  *Credential
	saves int
}

func (m *memStore) Load() (*Credential, error) {
	if m.cred == nil {
		return nil, ErrNoCredential
	}
	return m.cred, nil
}

func (m *memStore) Save(c *Credential) error {
	m.saves++
	m.cred = c
	return nil
}

func TestPersistingSource_SavesOnlyNewTokens(t *testing.T) {
	store := &memStore{}
	tokens := []*oauth2.Token{
		{AccessToken: "a"},
		{AccessToken: "a"},
		{AccessToken: "b"},
	}
	i := 0
	src := &persistingSource{
		base: oauth2.TokenSource(tokenFunc(func() (*oauth2.Token, error) {
			tok := tokens[i]
			i++
			return tok, nil
		})),
		store:  store,
		last:   "a",
		logger: NewAuthenticator(&oauth2.Config{}, store, nil).logger,
	}

	for range tokens {
		_, err := src.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "b", store.cred.AccessToken)
}

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }

func (ts *tokenServer) refreshCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.refreshs
}

func (ts *tokenServer) gotCodes() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.codes...)
}
