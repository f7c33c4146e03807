package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestForageError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ForageError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestForageError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestProviderError(t *testing.T) {
	cause := fmt.Errorf("sbatch: command not found")
	err := ProviderError("submit", cause)

	if err.Code != ExitProviderError {
		t.Errorf("Code = %d, want %d", err.Code, ExitProviderError)
	}
	if err.Message != "provider submit failed" {
		t.Errorf("Message = %q, want %q", err.Message, "provider submit failed")
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestConfigError(t *testing.T) {
	cause := fmt.Errorf("invalid toml")
	err := ConfigError("failed to parse config", cause)

	if err.Code != ExitConfigError {
		t.Errorf("Code = %d, want %d", err.Code, ExitConfigError)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestCommandExit(t *testing.T) {
	tests := []struct {
		code     int
		wantCode int
	}{
		{3, 3},
		{1, 1},
		{-1, ExitUndetermined},
	}

	for _, tt := range tests {
		if got := GetExitCode(CommandExit(tt.code)); got != tt.wantCode {
			t.Errorf("GetExitCode(CommandExit(%d)) = %d, want %d", tt.code, got, tt.wantCode)
		}
	}
}

func TestChannelError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ChannelError
		wantMsg string
	}{
		{
			name:    "path conflict",
			err:     PathConflict("localhost", "/tmp/out/a.txt"),
			wantMsg: "localhost: file name collision in transfer: /tmp/out/a.txt",
		},
		{
			name:    "file copy with cause",
			err:     FileCopy("login1", "/scratch/run.sh", fs.ErrNotExist),
			wantMsg: "login1: file copy failed: /scratch/run.sh: file does not exist",
		},
		{
			name:    "transport without path",
			err:     Transport("login1", fmt.Errorf("connection refused")),
			wantMsg: "login1: error connecting or establishing an SSH session: connection refused",
		},
		{
			name:    "no host",
			err:     &ChannelError{Kind: KindBadHostKey},
			wantMsg: "server host key could not be verified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestChannelError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("pull failed: %w", PathConflict("localhost", "/tmp/x"))

	if !errors.Is(err, ErrPathConflict) {
		t.Error("errors.Is should match ErrPathConflict")
	}
	if errors.Is(err, ErrFileCopy) {
		t.Error("errors.Is should not match ErrFileCopy")
	}
}

func TestChannelError_UnwrapReachesCause(t *testing.T) {
	err := BadPermsScriptPath("localhost", "/root/.scripts", fs.ErrPermission)

	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"authentication", Authentication("h", nil), KindAuthentication},
		{"wrapped bad host key", fmt.Errorf("dial: %w", BadHostKey("h", nil)), KindBadHostKey},
		{"plain error", fmt.Errorf("nope"), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "ForageError",
			err:      ConfigError("bad", nil),
			wantCode: ExitConfigError,
		},
		{
			name:     "wrapped ChannelError",
			err:      fmt.Errorf("outer: %w", FileCopy("h", "p", nil)),
			wantCode: ExitFileCopy,
		},
		{
			name:     "bad script path",
			err:      BadScriptPath("h", "p", nil),
			wantCode: ExitBadScriptPath,
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("some error"),
			wantCode: ExitGeneralError,
		},
		{
			name:     "nil error",
			err:      nil,
			wantCode: ExitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.wantCode {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.wantCode)
			}
		})
	}
}

func TestAs(t *testing.T) {
	chErr := Transport("login1", fmt.Errorf("eof"))
	wrapped := fmt.Errorf("wrapped: %w", chErr)

	var target *ChannelError
	if !As(wrapped, &target) {
		t.Fatal("As() should return true for wrapped ChannelError")
	}
	if target.Host != "login1" {
		t.Errorf("target.Host = %q, want %q", target.Host, "login1")
	}

	var forageErr *ForageError
	if As(wrapped, &forageErr) {
		t.Error("As() should return false for ForageError")
	}
}
