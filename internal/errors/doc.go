// Package errors provides typed errors with exit codes for forage-blocks.
//
// # Channel Errors
//
// ChannelError covers the closed set of execution and transfer failures that
// every channel implementation shares:
//
//	type ChannelError struct {
//	    Kind  Kind   // BadScriptPath, FileCopy, PathConflict, ...
//	    Host  string // Endpoint identity ("localhost" or a hostname)
//	    Path  string // File or directory involved, if any
//	    Cause error  // Underlying error, if any
//	}
//
// Construction failures (BadScriptPath, BadPermsScriptPath, Authentication,
// BadHostKey, Transport) are returned by channel constructors. FileCopy and
// PathConflict are returned by push and pull operations. Command execution
// never produces a ChannelError; it reports a negative exit code instead.
//
// Match a kind with the sentinels:
//
//	if errors.Is(err, errors.ErrPathConflict) {
//	    // the destination file already existed and was left untouched
//	}
//
// # General Errors
//
// ForageError wraps an error with an exit code for CLI failures that are not
// channel related:
//
//	errors.ConfigError("failed to parse config", err)
//	errors.ProviderError("submit", err)
//	errors.ValidationError("usage: forage-blocks exec -- <command>")
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
