package gmail

import (
	"log/slog"
)

// Well-known Gmail system labels.
const (
	LabelInbox  = "INBOX"
	LabelUnread = "UNREAD"
)

// DefaultUser addresses the authenticated account.
const DefaultUser = "me"

// Mailbox runs the triage operations for one Gmail user.
type Mailbox struct {
	client   Client
	user     string
	pageSize int64
	logger   *slog.Logger
}

// MailboxOption configures a Mailbox.
type MailboxOption func(*Mailbox)

// WithPageSize sets maxResults on list requests. Zero uses the service default.
func WithPageSize(n int64) MailboxOption {
	return func(m *Mailbox) { m.pageSize = n }
}

// WithLogger sets the logger used for per-page and per-message debug output.
func WithLogger(logger *slog.Logger) MailboxOption {
	return func(m *Mailbox) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMailbox returns a Mailbox for user. An empty user means DefaultUser.
func NewMailbox(client Client, user string, opts ...MailboxOption) *Mailbox {
	if user == "" {
		user = DefaultUser
	}
	m := &Mailbox{
		client: client,
		user:   user,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
