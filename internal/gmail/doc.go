// Package gmail lists, fetches and archives Gmail messages.
//
// All API access goes through the narrow Client interface. ServiceClient
// implements it over the generated gmail/v1 bindings and adds rate
// limiting, per-call timeouts, metrics and tracing. Mailbox builds the
// triage operations on top of a Client:
//
//   - ListMessageIDs follows continuation tokens until the result set is
//     exhausted and returns each message id once.
//   - FetchMessage retrieves a message in raw format and decodes its
//     URL-safe base64 payload.
//   - Archive removes the INBOX and UNREAD labels from one message;
//     ArchiveAll does the same for many messages with batchModify.
//
// Errors returned by the Gmail API are matched by type. A 404 becomes
// ErrMessageNotFound, and every other *googleapi.Error stays reachable
// through errors.As.
//
// Example usage:
//
//	svc, err := gmail.NewServiceClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	mb := gmail.NewMailbox(svc, "me")
//
//	refs, err := mb.ListMessageIDs(ctx, "label:inbox AND is:unread")
//	for _, ref := range refs {
//	    labels, err := mb.Archive(ctx, ref.ID)
//	    ...
//	}
package gmail
