package errors

import (
	"errors"
	"fmt"
)

// Exit codes for forage-blocks
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitConfigError        = 2
	ExitBadScriptPath      = 3
	ExitBadPermsScriptPath = 4
	ExitFileCopy           = 5
	ExitPathConflict       = 6
	ExitAuthentication     = 7
	ExitBadHostKey         = 8
	ExitTransport          = 9
	ExitProviderError      = 10

	// ExitUndetermined is reported by exec when a command timed out or its
	// outcome could not be read.
	ExitUndetermined = 124
)

// ForageError is the base error type for forage-blocks
type ForageError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ForageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ForageError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *ForageError) ExitCode() int {
	return e.Code
}

// New creates a new ForageError
func New(code int, message string) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a ForageError
func Wrap(code int, message string, cause error) *ForageError {
	return &ForageError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *ForageError {
	return Wrap(ExitConfigError, message, cause)
}

// ProviderError returns an error for a provider operation that could not be set up
func ProviderError(op string, cause error) *ForageError {
	return Wrap(ExitProviderError, fmt.Sprintf("provider %s failed", op), cause)
}

// CommandExit returns an error that makes the CLI exit with a command's exit code
func CommandExit(code int) *ForageError {
	if code < 0 {
		return New(ExitUndetermined, "command outcome could not be determined")
	}
	return New(code, fmt.Sprintf("command exited with code %d", code))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *ForageError {
	return New(ExitGeneralError, message)
}

// Kind classifies a channel failure. The set is closed.
type Kind int

const (
	KindBadScriptPath Kind = iota + 1
	KindBadPermsScriptPath
	KindFileCopy
	KindPathConflict
	KindAuthentication
	KindBadHostKey
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindBadScriptPath:
		return "bad script path"
	case KindBadPermsScriptPath:
		return "bad permissions on script path"
	case KindFileCopy:
		return "file copy"
	case KindPathConflict:
		return "path conflict"
	case KindAuthentication:
		return "authentication"
	case KindBadHostKey:
		return "bad host key"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

func (k Kind) reason() string {
	switch k {
	case KindBadScriptPath:
		return "inaccessible script directory"
	case KindBadPermsScriptPath:
		return "no permission to access the script directory"
	case KindFileCopy:
		return "file copy failed"
	case KindPathConflict:
		return "file name collision in transfer"
	case KindAuthentication:
		return "authentication to remote server failed"
	case KindBadHostKey:
		return "server host key could not be verified"
	case KindTransport:
		return "error connecting or establishing an SSH session"
	default:
		return "channel error"
	}
}

func (k Kind) exitCode() int {
	switch k {
	case KindBadScriptPath:
		return ExitBadScriptPath
	case KindBadPermsScriptPath:
		return ExitBadPermsScriptPath
	case KindFileCopy:
		return ExitFileCopy
	case KindPathConflict:
		return ExitPathConflict
	case KindAuthentication:
		return ExitAuthentication
	case KindBadHostKey:
		return ExitBadHostKey
	case KindTransport:
		return ExitTransport
	default:
		return ExitGeneralError
	}
}

// Sentinels for errors.Is matching against a ChannelError of the same kind.
var (
	ErrBadScriptPath      = &ChannelError{Kind: KindBadScriptPath}
	ErrBadPermsScriptPath = &ChannelError{Kind: KindBadPermsScriptPath}
	ErrFileCopy           = &ChannelError{Kind: KindFileCopy}
	ErrPathConflict       = &ChannelError{Kind: KindPathConflict}
	ErrAuthentication     = &ChannelError{Kind: KindAuthentication}
	ErrBadHostKey         = &ChannelError{Kind: KindBadHostKey}
	ErrTransport          = &ChannelError{Kind: KindTransport}
)

// ChannelError is raised by channel construction and file transfer.
// Host is the endpoint identity; Path is the file involved, if any.
type ChannelError struct {
	Kind  Kind
	Host  string
	Path  string
	Cause error
}

func (e *ChannelError) Error() string {
	msg := e.Kind.reason()
	if e.Host != "" {
		msg = e.Host + ": " + msg
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ChannelError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ChannelError of the same kind.
func (e *ChannelError) Is(target error) bool {
	t, ok := target.(*ChannelError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ExitCode returns the exit code for this error
func (e *ChannelError) ExitCode() int {
	return e.Kind.exitCode()
}

// BadScriptPath returns an error for a script directory that could not be created or resolved
func BadScriptPath(host, path string, cause error) *ChannelError {
	return &ChannelError{Kind: KindBadScriptPath, Host: host, Path: path, Cause: cause}
}

// BadPermsScriptPath returns an error for a script directory that exists but is not accessible
func BadPermsScriptPath(host, path string, cause error) *ChannelError {
	return &ChannelError{Kind: KindBadPermsScriptPath, Host: host, Path: path, Cause: cause}
}

// FileCopy returns an error for a failed push or pull
func FileCopy(host, path string, cause error) *ChannelError {
	return &ChannelError{Kind: KindFileCopy, Host: host, Path: path, Cause: cause}
}

// PathConflict returns an error for a pull that would overwrite a local file
func PathConflict(host, path string) *ChannelError {
	return &ChannelError{Kind: KindPathConflict, Host: host, Path: path}
}

// Authentication returns an error for rejected credentials
func Authentication(host string, cause error) *ChannelError {
	return &ChannelError{Kind: KindAuthentication, Host: host, Cause: cause}
}

// BadHostKey returns an error for a host key mismatch
func BadHostKey(host string, cause error) *ChannelError {
	return &ChannelError{Kind: KindBadHostKey, Host: host, Cause: cause}
}

// Transport returns an error for any other connection failure
func Transport(host string, cause error) *ChannelError {
	return &ChannelError{Kind: KindTransport, Host: host, Cause: cause}
}

// KindOf returns the kind of the first ChannelError in err's chain, or 0.
func KindOf(err error) Kind {
	var chErr *ChannelError
	if errors.As(err, &chErr) {
		return chErr.Kind
	}
	return 0
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var exitCoder interface{ ExitCode() int }
	if errors.As(err, &exitCoder) {
		return exitCoder.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
