package channel

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// MockChannel is a mock implementation of Channel for testing
type MockChannel struct {
	mu sync.Mutex

	HostName string
	Dir      string
	Scripts  string

	// ExecResults maps a command prefix to the result ExecuteSync returns.
	// The longest matching prefix wins.
	ExecResults map[string]ExecResult

	// DefaultResult is returned when no prefix matches
	DefaultResult ExecResult

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// Handles records every handle returned by ExecuteAsync
	Handles []*MockHandle

	// CallLog records all method calls for verification
	CallLog []MockCall

	closed bool
}

var _ Channel = (*MockChannel)(nil)

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockChannel creates a new mock channel
func NewMockChannel() *MockChannel {
	return &MockChannel{
		HostName:    "mockhost",
		Dir:         "/work",
		Scripts:     "/work/.scripts",
		ExecResults: make(map[string]ExecResult),
		Errors:      make(map[string]error),
		CallLog:     make([]MockCall, 0),
	}
}

func (m *MockChannel) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockChannel) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// SetExecResult sets the result for commands starting with prefix
func (m *MockChannel) SetExecResult(prefix string, result ExecResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecResults[prefix] = result
}

// Calls returns the recorded calls for one method
func (m *MockChannel) Calls(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockChannel) Host() string      { return m.HostName }
func (m *MockChannel) WorkDir() string   { return m.Dir }
func (m *MockChannel) ScriptDir() string { return m.Scripts }

func (m *MockChannel) ExecuteSync(ctx context.Context, cmd string, timeout time.Duration, env map[string]string) ExecResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecuteSync", cmd, timeout, env)

	best := -1
	result := m.DefaultResult
	for prefix, r := range m.ExecResults {
		if strings.HasPrefix(cmd, prefix) && len(prefix) > best {
			best = len(prefix)
			result = r
		}
	}
	return result
}

func (m *MockChannel) ExecuteAsync(ctx context.Context, cmd string, env map[string]string) (AsyncHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExecuteAsync", cmd, env)

	if err := m.Errors["ExecuteAsync"]; err != nil {
		return nil, err
	}

	h := NewMockHandle(fmt.Sprintf("%s:%d", m.HostName, len(m.Handles)+1))
	m.Handles = append(m.Handles, h)
	return h, nil
}

func (m *MockChannel) PushFile(ctx context.Context, src, dstDir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PushFile", src, dstDir)

	if err := m.Errors["PushFile"]; err != nil {
		return "", err
	}
	return path.Join(dstDir, path.Base(src)), nil
}

func (m *MockChannel) PullFile(ctx context.Context, src, dstDir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PullFile", src, dstDir)

	if err := m.Errors["PullFile"]; err != nil {
		return "", err
	}
	return path.Join(dstDir, path.Base(src)), nil
}

func (m *MockChannel) Close() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Close")

	if m.closed {
		return false, nil
	}
	m.closed = true
	return true, nil
}

// MockHandle is an AsyncHandle completed explicitly by the test
type MockHandle struct {
	mu        sync.Mutex
	id        string
	done      chan struct{}
	result    ExecResult
	cancelled bool
}

var _ AsyncHandle = (*MockHandle)(nil)

// NewMockHandle creates a handle that stays running until Finish or Cancel.
func NewMockHandle(id string) *MockHandle {
	return &MockHandle{id: id, done: make(chan struct{})}
}

// Finish completes the handle with result. Later calls are ignored.
func (h *MockHandle) Finish(result ExecResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return
	default:
	}
	h.result = result
	close(h.done)
}

// Cancelled reports whether Cancel was called.
func (h *MockHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *MockHandle) ID() string { return h.id }

func (h *MockHandle) Poll() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *MockHandle) Result(ctx context.Context) (ExecResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, nil
	case <-ctx.Done():
		return ExecResult{}, ctx.Err()
	}
}

func (h *MockHandle) Stdout() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result.Stdout
}

func (h *MockHandle) Stderr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result.Stderr
}

// Cancel completes the handle with ExitCode -1.
func (h *MockHandle) Cancel() error {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.Finish(ExecResult{ExitCode: -1})
	return nil
}
