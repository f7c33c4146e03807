package provider

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// SubmitData is rendered into a scheduler's submit script.
type SubmitData struct {
	JobName         string
	Nodes           int
	TasksPerNode    int
	TasksPerBlock   int
	Walltime        string // HH:MM:SS
	WalltimeMinutes int
	Partition       string
	Queue           string
	Account         string
	Overrides       string

	// ScriptDir is the staging directory on the channel's endpoint.
	ScriptDir string

	// UserScript is the launcher-wrapped command.
	UserScript string

	// JobScript is the pushed copy of UserScript, for schedulers that
	// transfer it separately.
	JobScript string
}

// Scheduler is the dialect of one batch system: how to submit, query and
// cancel jobs, and how to read the answers.
type Scheduler interface {
	// Name returns the provider type this dialect serves (e.g. "slurm").
	Name() string

	// SubmitTemplate renders SubmitData into the submit script.
	SubmitTemplate() *template.Template

	// StagesJobScript reports whether the wrapped command is pushed as its
	// own file and referenced from the submit script.
	StagesJobScript() bool

	// SubmitCommand returns the command that submits the script at path.
	SubmitCommand(path string, opts Options) string

	// ParseSubmit extracts the job id from the submit command's output.
	ParseSubmit(stdout string) (string, error)

	// StatusCommand returns the command that reports on ids.
	StatusCommand(ids []string) string

	// ParseStatus maps job ids to states. Jobs absent from the output have
	// left the scheduler's queue.
	ParseStatus(stdout string) map[string]Status

	// CancelCommand returns the command that cancels ids.
	CancelCommand(ids []string) string

	// CancelledStatus is the state a job is given once cancel is attempted.
	CancelledStatus() Status
}

var schedulers = map[string]Scheduler{
	"slurm":      slurm{},
	"torque":     torque{},
	"gridengine": gridEngine{},
	"condor":     condor{},
	"cobalt":     cobalt{},
}

// LookupScheduler returns the dialect registered under name.
func LookupScheduler(name string) (Scheduler, error) {
	s, ok := schedulers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scheduler %q (available: %s)", name, strings.Join(SchedulerNames(), ", "))
	}
	return s, nil
}

// SchedulerNames returns the registered dialect names, sorted.
func SchedulerNames() []string {
	names := make([]string, 0, len(schedulers))
	for name := range schedulers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// translate looks code up in table, returning UNKNOWN for codes it lacks.
func translate(table map[string]Status, code string) Status {
	if s, ok := table[code]; ok {
		return s
	}
	return StatusUnknown
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
