// Package cmd implements the command-line interface for inboxswoop.
//
// This package provides the following commands:
//   - archive: List messages matching a filter, fetch and archive each one
//   - auth: Run the OAuth consent flow and store the credential
//   - list: Print the ids of messages matching a filter
//   - fetch: Print one message's decoded raw payload
//   - history: Show recent entries from the archive journal
//   - serve: Serve the static web page with health and metrics endpoints
//   - version: Display version information
//
// The archive command is the default command when no subcommand is specified.
package cmd
