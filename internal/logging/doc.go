// Package logging assembles the slog loggers used by the daemon and CLI.
//
// It owns the console and JSON handlers, output routing to stderr and per-run
// log files, standardized field names (component, side, correlation_id), and
// the WARN/ERROR helpers that enforce an event type and operator hint on every
// problem report. Retention pruning of old per-run log files lives here too.
package logging
