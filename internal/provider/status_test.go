package provider

import (
	"testing"
	"time"
)

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusUnknown, false},
		{StatusCancelled, true},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusTimeout, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_CanMoveTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusRunning, StatusRunning, false},
		{StatusRunning, StatusUnknown, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusTimeout, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.canMoveTo(tt.to); got != tt.want {
				t.Errorf("canMoveTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseWalltime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:10:00", 10 * time.Minute, false},
		{"01:30:15", time.Hour + 30*time.Minute + 15*time.Second, false},
		{"48:00:00", 48 * time.Hour, false},
		{"00:00:00", 0, true},
		{"10:00", 0, true},
		{"aa:00:00", 0, true},
		{"00:60:00", 0, true},
		{"00:00:-1", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWalltime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWalltime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWalltime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWalltimeMinutes(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{10 * time.Minute, 10},
		{90*time.Minute + 59*time.Second, 90},
		{30 * time.Second, 1},
		{2 * time.Hour, 120},
	}

	for _, tt := range tests {
		if got := WalltimeMinutes(tt.in); got != tt.want {
			t.Errorf("WalltimeMinutes(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatWalltime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{10 * time.Minute, "00:10:00"},
		{26*time.Hour + 5*time.Second, "26:00:05"},
		{0, "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatWalltime(tt.in); got != tt.want {
			t.Errorf("FormatWalltime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
