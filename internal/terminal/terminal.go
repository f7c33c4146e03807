// Package terminal provides host terminal detection helpers.
package terminal

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is attached to a terminal, including Cygwin
// and MSYS pseudo terminals.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether a full screen view can be drawn: stdin and
// stdout are terminals and TERM is not "dumb".
func Interactive() bool {
	return interactive(os.Getenv("TERM"), IsTerminal(os.Stdin), IsTerminal(os.Stdout))
}

func interactive(term string, stdin, stdout bool) bool {
	if term == "dumb" {
		return false
	}
	return stdin && stdout
}
