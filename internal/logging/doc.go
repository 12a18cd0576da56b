// Package logging provides structured logging helpers built on log/slog.
//
// It defines the attribute keys used across the codebase so log output stays
// consistent and greppable, small constructors for common attributes, and an
// slog-backed adapter for libraries that expect a printf-style logger.
//
// Tokens are never logged in the clear; use SanitizeToken when a token must
// appear in a log line.
package logging
