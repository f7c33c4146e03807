package health

import (
	"context"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
)

func TestStatusConstants(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnreachable, "unreachable"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.want {
			t.Errorf("Status %v = %q, want %q", tt.status, tt.status, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"seconds", 30 * time.Second, "30s"},
		{"one minute", 1 * time.Minute, "1m"},
		{"minutes", 45 * time.Minute, "45m"},
		{"one hour", 1 * time.Hour, "1h 0m"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2h 30m"},
		{"one day", 24 * time.Hour, "1d 0h"},
		{"days and hours", 3*24*time.Hour + 5*time.Hour, "3d 5h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.duration)
			if got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestParseUptime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"350735.47 234388.90\n", "4d 1h"},
		{"59.99 10.00", "59s"},
		{"", "unknown"},
		{"garbage", "unknown"},
	}

	for _, tt := range tests {
		if got := parseUptime(tt.in); got != tt.want {
			t.Errorf("parseUptime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]channel.ExecResult
		want    Status
	}{
		{
			name: "healthy",
			results: map[string]channel.ExecResult{
				"cat /proc/uptime": {Stdout: "3600.00 100.00\n"},
				"uname":            {Stdout: "Linux 6.1.0\n"},
			},
			want: StatusHealthy,
		},
		{
			name: "script dir not writable",
			results: map[string]channel.ExecResult{
				"test -d": {ExitCode: 1},
			},
			want: StatusDegraded,
		},
		{
			name: "unreachable",
			results: map[string]channel.ExecResult{
				"true": {ExitCode: -1},
			},
			want: StatusUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := channel.NewMockChannel()
			for prefix, r := range tt.results {
				ch.SetExecResult(prefix, r)
			}

			result := Check(context.Background(), ch, time.Second)
			if got := result.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
			if result.Host != "mockhost" {
				t.Errorf("Host = %q, want %q", result.Host, "mockhost")
			}
			if tt.want == StatusUnreachable && len(ch.Calls("ExecuteSync")) != 1 {
				t.Errorf("unreachable endpoint should only be pinged, got %d calls", len(ch.Calls("ExecuteSync")))
			}
			if tt.want == StatusHealthy {
				if result.Uptime != "1h 0m" {
					t.Errorf("Uptime = %q, want %q", result.Uptime, "1h 0m")
				}
				if result.Kernel != "Linux 6.1.0" {
					t.Errorf("Kernel = %q, want %q", result.Kernel, "Linux 6.1.0")
				}
			}
		})
	}
}

func TestCheck_LocalChannel(t *testing.T) {
	ch, err := channel.NewLocalChannel(channel.WithWorkDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewLocalChannel: %v", err)
	}

	result := Check(context.Background(), ch, 5*time.Second)
	if !result.Reachable {
		t.Fatal("local channel should be reachable")
	}
	if !result.ScriptDirWritable {
		t.Error("local script dir should be writable")
	}
	if result.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", result.Latency)
	}
}
