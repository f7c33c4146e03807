package provider

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

const slurmTemplateText = `#!/bin/bash

#SBATCH --job-name={{.JobName}}
#SBATCH --output={{.ScriptDir}}/{{.JobName}}.submit.stdout
#SBATCH --error={{.ScriptDir}}/{{.JobName}}.submit.stderr
#SBATCH --nodes={{.Nodes}}
#SBATCH --time={{.WalltimeMinutes}}
#SBATCH --ntasks-per-node={{.TasksPerNode}}
{{- with .Partition}}
#SBATCH --partition={{.}}
{{- end}}
{{- with .Account}}
#SBATCH --account={{.}}
{{- end}}
{{- with .Overrides}}
{{.}}
{{- end}}

export JOBNAME="{{.JobName}}"

{{.UserScript}}
`

var slurmTemplate = template.Must(template.New("slurm").Parse(slurmTemplateText))

// squeue state codes.
var slurmStates = map[string]Status{
	"PD": StatusPending,
	"R":  StatusRunning,
	"CA": StatusCancelled,
	"CF": StatusPending, // configuring
	"CG": StatusRunning, // completing
	"CD": StatusCompleted,
	"F":  StatusFailed,
	"TO": StatusTimeout,
	"NF": StatusFailed, // node failure
	"RV": StatusFailed, // revoked
	"SE": StatusFailed, // special exit
}

type slurm struct{}

func (slurm) Name() string                       { return "slurm" }
func (slurm) SubmitTemplate() *template.Template { return slurmTemplate }
func (slurm) StagesJobScript() bool              { return false }
func (slurm) CancelledStatus() Status            { return StatusCancelled }

func (slurm) SubmitCommand(path string, _ Options) string {
	return "sbatch " + shellquote.Join(path)
}

func (slurm) ParseSubmit(stdout string) (string, error) {
	const prefix = "Submitted batch job"
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, prefix) {
			if id := strings.TrimSpace(strings.TrimPrefix(line, prefix)); id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("no job id in sbatch output %q", stdout)
}

func (slurm) StatusCommand(ids []string) string {
	return "squeue --job " + strings.Join(ids, ",")
}

// ParseStatus reads default squeue output:
//
//	JOBID PARTITION NAME USER ST TIME NODES NODELIST(REASON)
func (slurm) ParseStatus(stdout string) map[string]Status {
	out := make(map[string]Status)
	for _, line := range strings.Split(stdout, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 5 || parts[0] == "JOBID" {
			continue
		}
		out[parts[0]] = translate(slurmStates, parts[4])
	}
	return out
}

func (slurm) CancelCommand(ids []string) string {
	return "scancel " + strings.Join(ids, " ")
}
