package gmail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// gmailAPI serves the handful of users.messages endpoints the client uses.
type gmailAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	labels   map[string][]string
}

func (g *gmailAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, r.Clone(context.Background()))

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages")

	switch {
	case path == "" && r.Method == http.MethodGet:
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"messages":[{"id":"a1","threadId":"t1"}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"a2","threadId":"t2"}]}`))
	case path == "/batchModify" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(path, "/modify") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/modify")
		var req gmail.ModifyMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var kept []string
		for _, l := range g.labels[id] {
			remove := false
			for _, rm := range req.RemoveLabelIds {
				remove = remove || l == rm
			}
			if !remove {
				kept = append(kept, l)
			}
		}
		g.labels[id] = kept
		_ = json.NewEncoder(w).Encode(gmail.Message{Id: id, LabelIds: kept})
	case path == "/a1" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"id":"a1","threadId":"t1","labelIds":["INBOX"],"raw":"SGVsbG8sIHdvcmxkIQ"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","errors":[{"reason":"notFound","message":"Requested entity was not found."}]}}`))
	}
}

func (g *gmailAPI) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func newTestServiceClient(t *testing.T, opts ...ClientOption) (*ServiceClient, *gmailAPI) {
	t.Helper()
	api := &gmailAPI{labels: map[string][]string{"a1": {"INBOX", "UNREAD", "IMPORTANT"}}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append(opts, WithServiceOptions(option.WithEndpoint(srv.URL+"/")))
	c, err := NewServiceClient(context.Background(), srv.Client(), opts...)
	require.NoError(t, err)
	return c, api
}

func TestServiceClient_ListFollowsTokens(t *testing.T) {
	c, api := newTestServiceClient(t)
	mb := NewMailbox(c, "me", WithPageSize(50))

	refs, err := mb.ListMessageIDs(context.Background(), "label:inbox AND is:unread")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids(refs))

	require.Equal(t, 2, api.requestCount())
	first := api.requests[0].URL.Query()
	assert.Equal(t, "label:inbox AND is:unread", first.Get("q"))
	assert.Equal(t, "50", first.Get("maxResults"))
	assert.Equal(t, "p2", api.requests[1].URL.Query().Get("pageToken"))
}

func TestServiceClient_FetchRaw(t *testing.T) {
	c, api := newTestServiceClient(t)

	msg, err := NewMailbox(c, "me").FetchMessage(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", string(msg.Raw))
	assert.Equal(t, "raw", api.requests[0].URL.Query().Get("format"))
}

func TestServiceClient_NotFound(t *testing.T) {
	c, _ := newTestServiceClient(t)

	_, err := NewMailbox(c, "me").FetchMessage(context.Background(), "nope")
	require.ErrorIs(t, err, ErrMessageNotFound)

	apiErr, ok := APIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.False(t, IsRateLimited(err))
}

func TestServiceClient_Archive(t *testing.T) {
	c, _ := newTestServiceClient(t)

	labels, err := NewMailbox(c, "me").Archive(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"IMPORTANT"}, labels)
}

func TestServiceClient_BatchModify(t *testing.T) {
	c, api := newTestServiceClient(t)

	n, err := NewMailbox(c, "me").ArchiveAll(context.Background(), []string{"a1", "a2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, api.requestCount())
}

func TestServiceClient_RateLimitWaitHonorsContext(t *testing.T) {
	c, api := newTestServiceClient(t, WithRateLimit(0.001, 1), WithTimeout(time.Second))
	ctx := context.Background()

	_, err := c.GetMessage(ctx, "me", "a1", FormatRaw)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.GetMessage(ctx, "me", "a1", FormatRaw)
	require.Error(t, err)
	assert.Equal(t, 1, api.requestCount())
}
