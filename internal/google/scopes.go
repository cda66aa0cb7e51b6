package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultScopes are the OAuth scopes inboxswoop requests.
//
// gmail.modify covers reading messages in raw format and changing their
// labels, which is all the archive flow needs. It does not allow permanent
// deletion.
var DefaultScopes = []string{
	gmail.GmailModifyScope,
}

// fullAccessScope grants everything the narrower Gmail scopes do.
const fullAccessScope = gmail.MailGoogleComScope
