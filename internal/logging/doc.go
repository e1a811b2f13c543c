// Package logging assembles structured slog loggers and formatting helpers used
// across sockpoke.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers so exchange code tags every
// line with the same session, role and endpoint keys. Diagnostics default to
// stderr because stdout carries the operator-facing exchange transcript. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
