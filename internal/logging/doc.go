// Package logging provides structured logging utilities for inboxswoop.
//
// It centralizes the slog attribute keys used across the codebase and builds
// the process logger from the configured level and format.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithService(slog.Default(), "gmail")
//	logger.Info("archived message",
//	    logging.MessageID(id),
//	    logging.Labels(labels))
//
// # Tokens
//
// OAuth tokens are never logged directly, use SanitizeToken.
package logging
