package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrMessageNotFound is returned when the message id does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidPayload is returned when a raw message cannot be decoded.
	ErrInvalidPayload = errors.New("invalid raw message payload")

	// ErrArchiveIncomplete is returned when the service reports INBOX or
	// UNREAD still attached after an archive request.
	ErrArchiveIncomplete = errors.New("archive left inbox labels in place")

	// ErrPageTokenLoop is returned when the service hands back a
	// continuation token that was already followed.
	ErrPageTokenLoop = errors.New("pagination token repeated")
)

// APIError extracts the Gmail API error from err, if any.
func APIError(err error) (*googleapi.Error, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the Gmail API or ErrMessageNotFound.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrMessageNotFound) {
		return true
	}
	apiErr, ok := APIError(err)
	return ok && apiErr.Code == http.StatusNotFound
}

// IsUnauthorized reports whether the Gmail API rejected the credential.
func IsUnauthorized(err error) bool {
	apiErr, ok := APIError(err)
	return ok && apiErr.Code == http.StatusUnauthorized
}

// IsRateLimited reports whether the Gmail API throttled the request.
func IsRateLimited(err error) bool {
	apiErr, ok := APIError(err)
	if !ok {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}

// wrapMessageErr adds the message id to err and maps a 404 to ErrMessageNotFound
// while keeping the original *googleapi.Error in the chain.
func wrapMessageErr(op, id string, err error) error {
	if apiErr, ok := APIError(err); ok && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s message %s: %w: %w", op, id, ErrMessageNotFound, err)
	}
	return fmt.Errorf("%s message %s: %w", op, id, err)
}
