package gmail

import (
	"context"
	"fmt"

	"github.com/teemow/inboxswoop/internal/logging"
)

// MessageRef identifies a message returned by a list request.
type MessageRef struct {
	ID       string
	ThreadID string
}

// ListMessageIDs returns every message matching query, following
// continuation tokens until the service stops returning one.
//
// The result is never nil. Ids repeated across pages are kept once, at the
// position they were first seen. A continuation token that was already
// followed ends the walk with ErrPageTokenLoop.
func (m *Mailbox) ListMessageIDs(ctx context.Context, query string) ([]MessageRef, error) {
	refs := []MessageRef{}
	seen := make(map[string]struct{})
	tokens := make(map[string]struct{})

	pageToken := ""
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := m.client.ListMessages(ctx, m.user, query, pageToken, m.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages (page %d): %w", page, err)
		}

		added := 0
		for _, msg := range resp.Messages {
			if msg == nil || msg.Id == "" {
				continue
			}
			if _, dup := seen[msg.Id]; dup {
				continue
			}
			seen[msg.Id] = struct{}{}
			refs = append(refs, MessageRef{ID: msg.Id, ThreadID: msg.ThreadId})
			added++
		}

		m.logger.DebugContext(ctx, "listed message page",
			logging.Operation("gmail.list"),
			logging.Query(query),
			logging.Count(added),
			"page", page)

		if resp.NextPageToken == "" {
			return refs, nil
		}
		if _, loop := tokens[resp.NextPageToken]; loop {
			return nil, fmt.Errorf("list messages (page %d): %w", page, ErrPageTokenLoop)
		}
		tokens[resp.NextPageToken] = struct{}{}
		pageToken = resp.NextPageToken
	}
}
