// Package tui provides terminal user interface components for forage-blocks
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

// Action represents what the user chose when leaving the watcher
type Action int

const (
	ActionNone Action = iota
	ActionDetach
	ActionQuit
)

// WatchResult holds the result of the watcher
type WatchResult struct {
	Action Action

	// Cancelled lists the jobs cancelled on quit.
	Cancelled []string
}

// jobItem implements list.Item for job display
type jobItem struct {
	record provider.JobRecord
}

func (i jobItem) Title() string {
	return i.record.ID
}

func (i jobItem) Description() string {
	return fmt.Sprintf("%s %s | %s | %d tasks | submitted %s",
		statusIcon(i.record.Status),
		i.record.Status,
		i.record.JobName,
		i.record.BlockSize,
		humanize.Time(i.record.SubmittedAt),
	)
}

func (i jobItem) FilterValue() string {
	return i.record.ID + " " + i.record.JobName
}

func statusIcon(st provider.Status) string {
	switch st {
	case provider.StatusRunning:
		return "▶"
	case provider.StatusPending:
		return "…"
	case provider.StatusCompleted:
		return "✓"
	case provider.StatusFailed, provider.StatusTimeout:
		return "✗"
	case provider.StatusCancelled:
		return "○"
	default:
		return "?"
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// jobsMsg carries a fresh snapshot of the provider's records.
// scheduled marks snapshots taken by the poll loop.
type jobsMsg struct {
	jobs      []provider.JobRecord
	scheduled bool
}

type tickMsg time.Time

type cancelledMsg struct {
	ids []string
	ok  []bool
	err error
}

type submittedMsg struct {
	id  string
	err error
}

// Model is the bubbletea model for the job watcher
type Model struct {
	ctx      context.Context
	provider provider.Provider
	interval time.Duration

	list    list.Model
	spinner spinner.Model
	form    *submitForm
	jobs    []provider.JobRecord

	message  string
	err      error
	result   WatchResult
	quitting bool
	width    int
	height   int
}

// NewWatcher creates a watcher that polls p every interval
func NewWatcher(ctx context.Context, p provider.Provider, interval time.Duration) Model {
	l := list.New(nil, newGroupedDelegate(), 80, 20)
	l.Title = "forage-blocks - " + p.Label()
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = selectedStyle

	return Model{
		ctx:      ctx,
		provider: p,
		interval: interval,
		list:     l,
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh(true))
}

// refresh queries the status of every unfinished job and returns the
// resulting records.
func (m Model) refresh(scheduled bool) tea.Cmd {
	ctx, p := m.ctx, m.provider
	return func() tea.Msg {
		var ids []string
		for _, job := range p.Jobs() {
			if !job.Status.Terminal() {
				ids = append(ids, job.ID)
			}
		}
		if len(ids) > 0 {
			_, _ = p.Status(ctx, ids)
		}
		return jobsMsg{jobs: p.Jobs(), scheduled: scheduled}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) cancel(ids []string) tea.Cmd {
	ctx, p := m.ctx, m.provider
	return func() tea.Msg {
		ok, err := p.Cancel(ctx, ids)
		return cancelledMsg{ids: ids, ok: ok, err: err}
	}
}

func (m Model) submit(req SubmitRequest) tea.Cmd {
	ctx, p := m.ctx, m.provider
	return func() tea.Msg {
		id, err := p.Submit(ctx, req.Command, req.BlockSize, req.JobName)
		return submittedMsg{id: id, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tickMsg:
		return m, m.refresh(true)

	case jobsMsg:
		m.setJobs(msg.jobs)
		if msg.scheduled {
			return m, m.tick()
		}
		return m, nil

	case cancelledMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.message = fmt.Sprintf("cancelled %s", strings.Join(msg.ids, ", "))
		}
		return m, m.refresh(false)

	case submittedMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
		case msg.id == "":
			m.err = nil
			m.message = "provider at capacity, block not submitted"
		default:
			m.err = nil
			m.message = "submitted " + msg.id
		}
		return m, m.refresh(false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.form != nil {
			done, req, cmd := m.form.Update(msg)
			if !done {
				return m, cmd
			}
			m.form = nil
			if req == nil {
				return m, nil
			}
			return m, m.submit(*req)
		}

		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "c":
			if item, ok := m.list.SelectedItem().(jobItem); ok && !item.record.Status.Terminal() {
				return m, m.cancel([]string{item.record.ID})
			}
			return m, nil

		case "n":
			f := newSubmitForm()
			m.form = &f
			return m, f.Init()

		case "r":
			return m, m.refresh(false)

		case "d", "esc":
			m.result = WatchResult{Action: ActionDetach}
			m.quitting = true
			return m, tea.Quit

		case "q", "ctrl+c":
			m.result = WatchResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit

		case "up", "k", "down", "j":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			skipHeaders(&m.list, navigationDirection(msg))
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) setJobs(jobs []provider.JobRecord) {
	m.jobs = jobs
	items := buildGroupedItems(jobs)
	m.list.Title = fmt.Sprintf("forage-blocks - %s (%d jobs)", m.provider.Label(), len(items)-headerCount(items))
	m.list.SetItems(items)
	if isHeaderSelected(&m.list) {
		skipHeaders(&m.list, 1)
	}
}

// Counts returns the number of jobs in each status.
func (m Model) Counts() map[provider.Status]int {
	counts := make(map[provider.Status]int)
	for _, job := range m.jobs {
		counts[job.Status]++
	}
	return counts
}

func (m Model) summary() string {
	counts := m.Counts()
	var parts []string
	for _, st := range statusOrder {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(string(st))))
		}
	}
	if len(parts) == 0 {
		return "no jobs"
	}
	return strings.Join(parts, ", ")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	b.WriteString(m.spinner.View() + " " + m.summary() + "\n")
	b.WriteString(m.list.View() + "\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	} else if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	b.WriteString(helpStyle.Render("[c] Cancel  [n] Submit  [r] Refresh  [/] Filter  [d] Detach  [q] Quit and cancel"))
	return b.String()
}

// Result returns the watcher result
func (m Model) Result() WatchResult {
	return m.result
}

// RunWatcher runs the interactive job watcher. Quitting with q cancels every
// job that is still pending or running; detaching leaves them alone.
func RunWatcher(ctx context.Context, p provider.Provider, interval time.Duration) (WatchResult, error) {
	m := NewWatcher(ctx, p, interval)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	finalModel, err := prog.Run()
	if err != nil {
		return WatchResult{}, err
	}

	result := finalModel.(Model).Result()
	if result.Action == ActionQuit {
		cancelled, err := CancelRemaining(ctx, p)
		result.Cancelled = cancelled
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// CancelRemaining cancels every job that is not yet terminal and returns
// the ids it asked the provider to cancel.
func CancelRemaining(ctx context.Context, p provider.Provider) ([]string, error) {
	var ids []string
	for _, job := range p.Jobs() {
		if !job.Status.Terminal() {
			ids = append(ids, job.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := p.Cancel(ctx, ids); err != nil {
		return ids, err
	}
	return ids, nil
}

// SimpleJobList is a non-interactive rendering of jobs for plain terminals
func SimpleJobList(label string, jobs []provider.JobRecord) string {
	var sb strings.Builder

	sb.WriteString("forage-blocks - " + label + "\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(jobs) == 0 {
		sb.WriteString("No jobs submitted.\n")
		return sb.String()
	}

	for i, job := range jobs {
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n",
			i+1, statusIcon(job.Status), job.ID, job.Status))
		sb.WriteString(fmt.Sprintf("   Name: %s | Tasks: %d | Submitted: %s\n\n",
			job.JobName, job.BlockSize, humanize.Time(job.SubmittedAt)))
	}

	return sb.String()
}
