// Package journal keeps a local SQLite record of every message the archive
// pipeline touched: the labels before and after, the action taken and any
// error. The history command reads it back.
package journal
