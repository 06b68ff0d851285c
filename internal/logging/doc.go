// Package logging assembles structured slog loggers and formatting helpers
// used across anitag.
//
// It owns the console and JSON handlers, rotates the optional log file with
// lumberjack, and stamps every record of a batch with its run identifier.
// Warnings go through WarnWithContext so each one names its event type, the
// next step for the operator, and the user-facing impact. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
