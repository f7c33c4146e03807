// Package logging provides logging utilities for forage-blocks.
//
// This package provides two categories of output:
//   - Structured logging: key/value logs for channels and providers (via slog)
//   - User output: Formatted messages for end users
//
// # Structured Logging
//
// Logs are written using slog and controlled by the --verbose and --json flags:
//
//	logging.Debug("pushing file", "host", host, "src", src, "size", humanize.Bytes(n))
//	logging.ForProvider(label).Warn("at capacity", "max_blocks", max)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Submitting %d block(s) to %s...", n, label)
//	logging.UserSuccess("Job %s completed", id)
//	logging.UserWarning("Provider at capacity, block not submitted")
//	logging.UserError("Failed to reach %s: %v", host, err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
