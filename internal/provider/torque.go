package provider

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

const torqueTemplateText = `#!/bin/bash

#PBS -S /bin/bash
#PBS -N {{.JobName}}
#PBS -m n
#PBS -k eo
#PBS -l walltime={{.Walltime}}
#PBS -l nodes={{.Nodes}}:ppn={{.TasksPerNode}}
#PBS -o {{.ScriptDir}}/{{.JobName}}.submit.stdout
#PBS -e {{.ScriptDir}}/{{.JobName}}.submit.stderr
{{- with .Overrides}}
{{.}}
{{- end}}

export JOBNAME="{{.JobName}}"

{{.UserScript}}
`

var torqueTemplate = template.Must(template.New("torque").Parse(torqueTemplateText))

// qstat state codes. Held and suspended jobs still occupy a queue slot, so
// they count as pending.
var torqueStates = map[string]Status{
	"R": StatusRunning,
	"C": StatusCompleted,
	"E": StatusCompleted, // exiting after having run
	"H": StatusPending,
	"Q": StatusPending,
	"W": StatusPending,
	"S": StatusPending,
}

type torque struct{}

func (torque) Name() string                       { return "torque" }
func (torque) SubmitTemplate() *template.Template { return torqueTemplate }
func (torque) StagesJobScript() bool              { return false }
func (torque) CancelledStatus() Status            { return StatusCompleted }

func (torque) SubmitCommand(path string, opts Options) string {
	args := []string{"qsub"}
	if opts.Queue != "" {
		args = append(args, "-q", opts.Queue)
	}
	if opts.Account != "" {
		args = append(args, "-A", opts.Account)
	}
	return shellquote.Join(append(args, path)...)
}

func (torque) ParseSubmit(stdout string) (string, error) {
	if id := firstLine(stdout); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no job id in qsub output")
}

func (torque) StatusCommand(ids []string) string {
	return "qstat " + strings.Join(ids, " ")
}

// ParseStatus reads default qstat output:
//
//	Job ID  Name  User  Time Use  S  Queue
func (torque) ParseStatus(stdout string) map[string]Status {
	out := make(map[string]Status)
	for _, line := range strings.Split(stdout, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 5 || strings.HasPrefix(strings.ToUpper(parts[0]), "JOB") || strings.HasPrefix(parts[0], "---") {
			continue
		}
		out[parts[0]] = translate(torqueStates, parts[4])
	}
	return out
}

func (torque) CancelCommand(ids []string) string {
	return "qdel " + strings.Join(ids, " ")
}
