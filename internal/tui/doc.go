// Package tui provides terminal user interface components for forage-blocks.
//
// This package uses the Bubble Tea framework to create interactive terminal
// interfaces, primarily for `forage-blocks run --watch`.
//
// # Job Watcher
//
// The watcher polls a provider and displays its jobs grouped by status:
//
//	result, err := tui.RunWatcher(ctx, p, 5*time.Second)
//	switch result.Action {
//	case tui.ActionQuit:
//	    // result.Cancelled lists the jobs cancelled on the way out
//	case tui.ActionDetach:
//	    // Jobs keep running
//	}
//
// # Watcher Features
//
//   - Lists all jobs grouped by status, running first
//   - Keyboard navigation (j/k or arrows), headers auto-skipped
//   - Quick actions: c (cancel selected), n (submit form), r (refresh),
//     d (detach), q (quit and cancel what is still running)
//   - Spinner and per-status counts while polling
//
// SimpleJobList renders the same table without a terminal.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
