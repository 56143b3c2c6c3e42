// Package logging assembles structured slog loggers for the daemon and CLI.
//
// It owns the console and JSON handlers, resolves level and output plumbing
// from configuration, and exposes context helpers so request handlers and
// model managers tag log lines with correlation IDs, operations and model
// kinds. NewNop provides a discard logger for tests and optional wiring.
package logging
