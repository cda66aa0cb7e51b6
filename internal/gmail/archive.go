package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxswoop/internal/logging"
)

// batchModifyLimit is the largest id list users.messages.batchModify accepts.
const batchModifyLimit = 1000

// ArchiveLabels are removed from a message to archive it.
var ArchiveLabels = []string{LabelInbox, LabelUnread}

func archiveRequest() *gmail.ModifyMessageRequest {
	return &gmail.ModifyMessageRequest{
		RemoveLabelIds: append([]string(nil), ArchiveLabels...),
	}
}

// Archive removes INBOX and UNREAD from message id and returns the label
// set the service reports afterwards. If that set still holds either label
// the call fails with ErrArchiveIncomplete.
func (m *Mailbox) Archive(ctx context.Context, id string) ([]string, error) {
	resp, err := m.client.ModifyMessage(ctx, m.user, id, archiveRequest())
	if err != nil {
		return nil, wrapMessageErr("archive", id, err)
	}

	labels := resp.LabelIds
	if labels == nil {
		labels = []string{}
	}
	for _, l := range labels {
		if l == LabelInbox || l == LabelUnread {
			return labels, fmt.Errorf("archive message %s: %w (labels %v)", id, ErrArchiveIncomplete, labels)
		}
	}

	m.logger.DebugContext(ctx, "archived message",
		logging.MessageID(id),
		logging.Labels(labels))
	return labels, nil
}

// ArchiveAll archives ids with batchModify, at most 1000 per request.
// It returns the number of ids sent in requests that succeeded.
func (m *Mailbox) ArchiveAll(ctx context.Context, ids []string) (int, error) {
	done := 0
	for start := 0; start < len(ids); start += batchModifyLimit {
		end := min(start+batchModifyLimit, len(ids))
		chunk := ids[start:end]

		req := &gmail.BatchModifyMessagesRequest{
			Ids:            chunk,
			RemoveLabelIds: append([]string(nil), ArchiveLabels...),
		}
		if err := m.client.BatchModifyMessages(ctx, m.user, req); err != nil {
			return done, fmt.Errorf("batch archive %d messages: %w", len(chunk), err)
		}
		done += len(chunk)

		m.logger.DebugContext(ctx, "batch archived messages", logging.Count(len(chunk)))
	}
	return done, nil
}
