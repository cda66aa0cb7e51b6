// Package config loads inboxswoop settings.
//
// Settings are resolved in order: built-in defaults, the YAML config file,
// a .env file in the working directory, then INBOXSWOOP_* environment
// variables. Later sources win.
package config
