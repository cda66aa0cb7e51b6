package google

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Consenter runs the interactive part of the OAuth flow and returns the
// exchanged token.
type Consenter interface {
	Consent(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// ErrConsentDenied is returned when the user declines access.
var ErrConsentDenied = errors.New("consent denied")

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// PromptConsenter prints the authorization URL and reads the code the user
// pastes back. Pasting the whole redirect URL also works.
type PromptConsenter struct {
	In  io.Reader
	Out io.Writer
}

// Consent implements Consenter.
func (p *PromptConsenter) Consent(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintf(p.Out, "Go to the following link in your browser, then paste the authorization code:\n\n%s\n\nCode: ", authURL)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := parseCodeInput(line, state)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// parseCodeInput accepts either a bare code or the full redirect URL.
func parseCodeInput(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty authorization code")
	}

	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%w: %s", ErrConsentDenied, e)
	}
	if got := q.Get("state"); got != "" && got != state {
		return "", fmt.Errorf("state mismatch in redirect URL")
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL has no code parameter")
	}
	return code, nil
}

// LoopbackConsenter receives the authorization code on a short-lived local
// HTTP server, the flow Google recommends for installed applications.
type LoopbackConsenter struct {
	// Addr is the listen address. Defaults to 127.0.0.1:0 (random port).
	Addr string

	// Out receives the authorization URL.
	Out io.Writer

	// Timeout bounds how long to wait for the browser redirect.
	Timeout time.Duration
}

type callbackResult struct {
	code string
	err  error
}

// Consent implements Consenter.
func (l *LoopbackConsenter) Consent(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	addr := l.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	timeout := l.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start loopback listener: %w", err)
	}

	state, err := newState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	local := *conf
	local.RedirectURL = "http://" + ln.Addr().String() + "/"

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := local.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
	if l.Out != nil {
		fmt.Fprintf(l.Out, "Open the following link in your browser to authorize inboxswoop:\n\n%s\n\n", authURL)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("timed out waiting for authorization: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := local.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrConsentDenied, q.Get("error"))
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			fmt.Fprintf(w, "<p>Authorization failed: %s</p>", html.EscapeString(res.err.Error()))
		} else {
			fmt.Fprint(w, "<p>inboxswoop is authorized. You can close this window.</p>")
		}

		select {
		case results <- res:
		default:
		}
	})
}
