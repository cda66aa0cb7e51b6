// Package triage runs the archive pipeline: list the messages matching a
// filter, fetch each one, archive it and record the outcome in the journal.
//
// Messages are processed one at a time, in the order the listing returned
// them. A message that disappeared or carries an undecodable payload is
// recorded as failed and the run continues; any other error stops the run.
package triage
