// Package logging assembles the structured slog loggers used by the task
// store and the CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so that every line written while a
// modification batch runs carries the task id, batch id, operation kind and
// correlation id. The package also provides a no-op logger for tests and for
// wiring code that cannot fail.
package logging
