package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/teemow/inboxswoop/internal/logging"
)

// FormatRaw asks the service for the full RFC 5322 message, base64url encoded.
const FormatRaw = "raw"

// Message is a fetched message with its decoded raw payload.
type Message struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Snippet  string
	Raw      []byte

	header *mail.Header
	parsed bool
}

func (m *Message) headers() *mail.Header {
	if !m.parsed {
		m.parsed = true
		// Unknown charsets still yield a usable header.
		if mr, _ := mail.CreateReader(bytes.NewReader(m.Raw)); mr != nil {
			m.header = &mr.Header
			_ = mr.Close()
		}
	}
	return m.header
}

// Header returns the named header with RFC 2047 encoded words decoded, or
// "" when the payload has no such header or cannot be parsed.
func (m *Message) Header(name string) string {
	h := m.headers()
	if h == nil {
		return ""
	}
	if v, err := h.Text(name); err == nil {
		return v
	}
	return h.Get(name)
}

// Subject returns the decoded Subject header.
func (m *Message) Subject() string {
	h := m.headers()
	if h == nil {
		return ""
	}
	if v, err := h.Subject(); err == nil {
		return v
	}
	return h.Get("Subject")
}

// From returns the decoded sender list as "Name <addr>" pairs.
func (m *Message) From() string {
	h := m.headers()
	if h == nil {
		return ""
	}
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return m.Header("From")
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name == "" {
			parts = append(parts, a.Address)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
	}
	return strings.Join(parts, ", ")
}

// Date returns the parsed Date header.
func (m *Message) Date() (time.Time, error) {
	h := m.headers()
	if h == nil {
		return time.Time{}, fmt.Errorf("message %s has no parseable header", m.ID)
	}
	return h.Date()
}

// DecodeRaw decodes a base64url payload as returned by the raw format.
// Padding is optional. Payloads in the standard alphabet are accepted too.
func DecodeRaw(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if data, serr := base64.RawStdEncoding.DecodeString(s); serr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
}

// FetchMessage retrieves message id in raw format and decodes its payload.
func (m *Mailbox) FetchMessage(ctx context.Context, id string) (*Message, error) {
	resp, err := m.client.GetMessage(ctx, m.user, id, FormatRaw)
	if err != nil {
		return nil, wrapMessageErr("fetch", id, err)
	}

	raw, err := DecodeRaw(resp.Raw)
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}

	msg := &Message{
		ID:       resp.Id,
		ThreadID: resp.ThreadId,
		LabelIDs: resp.LabelIds,
		Snippet:  resp.Snippet,
		Raw:      raw,
	}
	if msg.ID == "" {
		msg.ID = id
	}

	m.logger.DebugContext(ctx, "fetched message",
		logging.MessageID(msg.ID),
		logging.ThreadID(msg.ThreadID),
		logging.Labels(msg.LabelIDs),
		"bytes", len(raw))
	return msg, nil
}
