package provider

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
)

const cobaltTemplateText = `#!/bin/bash -e
{{- with .Overrides}}
{{.}}
{{- end}}

echo "Starting Cobalt job script"

echo "----Cobalt Nodefile: -----"
cat $COBALT_NODEFILE
echo "--- End of Cobalt Nodefile ---"

export JOBNAME="{{.JobName}}"

{{.UserScript}}
`

var cobaltTemplate = template.Must(template.New("cobalt").Parse(cobaltTemplateText))

// qstat states, upper-cased. A killed job is reported as finished.
var cobaltStates = map[string]Status{
	"QUEUED":   StatusPending,
	"STARTING": StatusPending,
	"RUNNING":  StatusRunning,
	"EXITING":  StatusCompleted,
	"KILLING":  StatusCompleted,
}

type cobalt struct{}

func (cobalt) Name() string                       { return "cobalt" }
func (cobalt) SubmitTemplate() *template.Template { return cobaltTemplate }
func (cobalt) StagesJobScript() bool              { return false }
func (cobalt) CancelledStatus() Status            { return cobaltStates["KILLING"] }

// SubmitCommand passes nodes, queue, walltime and account as qsub flags;
// Cobalt reads none of them from the script.
func (cobalt) SubmitCommand(path string, opts Options) string {
	args := []string{"qsub", "-n", strconv.Itoa(max(opts.NodesPerBlock, 1))}
	if opts.Queue != "" {
		args = append(args, "-q", opts.Queue)
	}
	args = append(args, "-t", strconv.Itoa(WalltimeMinutes(opts.Walltime)))
	if opts.Account != "" {
		args = append(args, "-A", opts.Account)
	}
	return shellquote.Join(append(args, path)...)
}

func (cobalt) ParseSubmit(stdout string) (string, error) {
	if id := firstLine(stdout); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no job id in qsub output")
}

// StatusCommand lists every job of the current user; ids are picked out of
// the output.
func (cobalt) StatusCommand(ids []string) string {
	return "qstat -u $USER"
}

// ParseStatus reads qstat output:
//
//	JobID  User  WallTime  Nodes  State  Location
//	==============================================
func (cobalt) ParseStatus(stdout string) map[string]Status {
	out := make(map[string]Status)
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "=") {
			continue
		}
		parts := strings.Fields(strings.ToUpper(line))
		if len(parts) < 5 || parts[0] == "JOBID" {
			continue
		}
		out[parts[0]] = translate(cobaltStates, parts[4])
	}
	return out
}

func (cobalt) CancelCommand(ids []string) string {
	return "qdel " + strings.Join(ids, " ")
}
