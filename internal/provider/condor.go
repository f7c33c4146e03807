package provider

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

const condorTemplateText = `universe = vanilla
executable = /bin/bash
arguments = {{base .JobScript}}
transfer_input_files = {{.JobScript}}
should_transfer_files = YES
when_to_transfer_output = ON_EXIT
environment = "JOBNAME='{{.JobName}}'"
output = {{.ScriptDir}}/{{.JobName}}.stdout
error = {{.ScriptDir}}/{{.JobName}}.stderr
log = {{.ScriptDir}}/{{.JobName}}.log
request_cpus = {{.TasksPerNode}}
{{- with .Account}}
+ProjectName = "{{.}}"
{{- end}}
{{- with .Overrides}}
{{.}}
{{- end}}
queue {{.Nodes}}
`

var condorTemplate = template.Must(template.New("condor").Funcs(template.FuncMap{
	"base": path.Base,
}).Parse(condorTemplateText))

// JobStatus attribute values.
var condorStates = map[string]Status{
	"1": StatusPending,   // idle
	"2": StatusRunning,   // running
	"3": StatusCancelled, // removed
	"4": StatusCompleted, // completed
	"5": StatusFailed,    // held
	"6": StatusFailed,    // transferring output
}

var condorSubmitted = regexp.MustCompile(`^\d+ job\(s\) submitted to cluster (\d+)\.`)

// condor tracks one block as one cluster: a block of N nodes is queued as
// N processes of the same cluster and identified by the cluster id.
type condor struct{}

func (condor) Name() string                       { return "condor" }
func (condor) SubmitTemplate() *template.Template { return condorTemplate }
func (condor) StagesJobScript() bool              { return true }
func (condor) CancelledStatus() Status            { return StatusCancelled }

func (condor) SubmitCommand(path string, _ Options) string {
	return "condor_submit " + shellquote.Join(path)
}

func (condor) ParseSubmit(stdout string) (string, error) {
	for _, line := range strings.Split(stdout, "\n") {
		if m := condorSubmitted.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no cluster id in condor_submit output %q", stdout)
}

func (condor) StatusCommand(ids []string) string {
	return "condor_q " + strings.Join(ids, " ") + " -af:jr JobStatus"
}

// ParseStatus reads "cluster.proc status" lines. A cluster is running while
// any of its processes run, pending while any wait, and otherwise takes
// the state of its first process.
func (condor) ParseStatus(stdout string) map[string]Status {
	out := make(map[string]Status)
	for _, line := range strings.Split(stdout, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		cluster, _, _ := strings.Cut(parts[0], ".")
		st := translate(condorStates, parts[1])

		prev, seen := out[cluster]
		switch {
		case !seen:
			out[cluster] = st
		case st == StatusRunning:
			out[cluster] = st
		case st == StatusPending && prev != StatusRunning:
			out[cluster] = st
		}
	}
	return out
}

func (condor) CancelCommand(ids []string) string {
	list := strings.Join(ids, " ")
	return "condor_rm " + list + "; condor_rm -forcex " + list
}
