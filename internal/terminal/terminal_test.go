package terminal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInteractive(t *testing.T) {
	tests := []struct {
		name   string
		term   string
		stdin  bool
		stdout bool
		want   bool
	}{
		{"both terminals", "xterm-256color", true, true, true},
		{"empty TERM", "", true, true, true},
		{"dumb terminal", "dumb", true, true, false},
		{"piped stdout", "xterm", true, false, false},
		{"piped stdin", "xterm", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interactive(tt.term, tt.stdin, tt.stdout); got != tt.want {
				t.Errorf("interactive(%q, %v, %v) = %v, want %v", tt.term, tt.stdin, tt.stdout, got, tt.want)
			}
		})
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("IsTerminal() = true for a regular file")
	}
	if IsTerminal(nil) {
		t.Error("IsTerminal(nil) = true")
	}
}
