package provider

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

const gridEngineTemplateText = `#!/bin/bash

#$ -S /bin/bash
#$ -N {{.JobName}}
#$ -o {{.ScriptDir}}/{{.JobName}}.submit.stdout
#$ -e {{.ScriptDir}}/{{.JobName}}.submit.stderr
#$ -cwd
#$ -l h_rt={{.Walltime}}
{{- with .Queue}}
#$ -q {{.}}
{{- end}}
{{- with .Overrides}}
{{.}}
{{- end}}

export JOBNAME="{{.JobName}}"

{{.UserScript}}
`

var gridEngineTemplate = template.Must(template.New("gridengine").Parse(gridEngineTemplateText))

// qstat state codes, lowercased.
var gridEngineStates = map[string]Status{
	"qw":    StatusPending,
	"hqw":   StatusPending,
	"hrwq":  StatusPending,
	"r":     StatusRunning,
	"s":     StatusFailed, // suspended
	"ts":    StatusFailed,
	"t":     StatusFailed, // suspended by alarm
	"eqw":   StatusFailed,
	"ehqw":  StatusFailed,
	"ehrqw": StatusFailed,
	"d":     StatusCompleted,
	"dr":    StatusCompleted,
	"dt":    StatusCompleted,
	"drt":   StatusCompleted,
	"ds":    StatusCompleted,
	"drs":   StatusCompleted,
}

type gridEngine struct{}

func (gridEngine) Name() string                       { return "gridengine" }
func (gridEngine) SubmitTemplate() *template.Template { return gridEngineTemplate }
func (gridEngine) StagesJobScript() bool              { return false }
func (gridEngine) CancelledStatus() Status            { return StatusCompleted }

func (gridEngine) SubmitCommand(path string, _ Options) string {
	return "qsub -terse " + shellquote.Join(path)
}

// ParseSubmit reads the bare job id that qsub -terse prints.
func (gridEngine) ParseSubmit(stdout string) (string, error) {
	if id := firstLine(stdout); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no job id in qsub output")
}

// StatusCommand ignores ids: qstat without arguments lists every job of
// the current user, which is what ParseStatus expects.
func (gridEngine) StatusCommand(_ []string) string {
	return "qstat"
}

// ParseStatus reads default qstat output:
//
//	job-ID  prior  name  user  state  submit/start at  queue  slots
func (gridEngine) ParseStatus(stdout string) map[string]Status {
	out := make(map[string]Status)
	for _, line := range strings.Split(stdout, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 5 || strings.ToLower(parts[0]) == "job-id" || strings.HasPrefix(parts[0], "---") {
			continue
		}
		out[parts[0]] = translate(gridEngineStates, strings.ToLower(parts[4]))
	}
	return out
}

func (gridEngine) CancelCommand(ids []string) string {
	return "qdel " + strings.Join(ids, " ")
}
