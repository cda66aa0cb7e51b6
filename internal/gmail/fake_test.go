package gmail

import (
	"context"
	"net/http"
	"slices"
	"sync"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// fakeClient is an in-memory Client. Pages are keyed by the token that
// requests them; "" is the first page.
type fakeClient struct {
	mu       sync.Mutex
	pages    map[string]*gmail.ListMessagesResponse
	messages map[string]*gmail.Message

	listCalls   []string
	batchCalls  [][]string
	listErr     error
	modifyKeeps bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:    map[string]*gmail.ListMessagesResponse{},
		messages: map[string]*gmail.Message{},
	}
}

func (f *fakeClient) addPage(token, next string, ids ...string) {
	resp := &gmail.ListMessagesResponse{NextPageToken: next}
	for _, id := range ids {
		resp.Messages = append(resp.Messages, &gmail.Message{Id: id, ThreadId: "t-" + id})
	}
	f.pages[token] = resp
}

func (f *fakeClient) addMessage(id, raw string, labels ...string) {
	f.messages[id] = &gmail.Message{Id: id, ThreadId: "t-" + id, Raw: raw, LabelIds: labels}
}

func (f *fakeClient) labels(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[id].LabelIds)
}

func notFound() error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
}

func (f *fakeClient) ListMessages(ctx context.Context, user, query, pageToken string, pageSize int64) (*gmail.ListMessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, pageToken)
	if f.listErr != nil {
		return nil, f.listErr
	}
	resp, ok := f.pages[pageToken]
	if !ok {
		return &gmail.ListMessagesResponse{}, nil
	}
	return resp, nil
}

func (f *fakeClient) GetMessage(ctx context.Context, user, id, format string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, notFound()
	}
	cp := *msg
	cp.LabelIds = slices.Clone(msg.LabelIds)
	return &cp, nil
}

func (f *fakeClient) ModifyMessage(ctx context.Context, user, id string, req *gmail.ModifyMessageRequest) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, notFound()
	}
	if !f.modifyKeeps {
		msg.LabelIds = slices.DeleteFunc(msg.LabelIds, func(l string) bool {
			return slices.Contains(req.RemoveLabelIds, l)
		})
	}
	for _, l := range req.AddLabelIds {
		if !slices.Contains(msg.LabelIds, l) {
			msg.LabelIds = append(msg.LabelIds, l)
		}
	}
	return &gmail.Message{Id: id, ThreadId: msg.ThreadId, LabelIds: slices.Clone(msg.LabelIds)}, nil
}

func (f *fakeClient) BatchModifyMessages(ctx context.Context, user string, req *gmail.BatchModifyMessagesRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, slices.Clone(req.Ids))
	for _, id := range req.Ids {
		if msg, ok := f.messages[id]; ok {
			msg.LabelIds = slices.DeleteFunc(msg.LabelIds, func(l string) bool {
				return slices.Contains(req.RemoveLabelIds, l)
			})
		}
	}
	return nil
}
