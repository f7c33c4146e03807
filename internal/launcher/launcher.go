package launcher

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"
)

// Spec holds the data a launcher template renders.
type Spec struct {
	Command       string
	TaskCount     int // TasksPerNode * NodesPerBlock
	TasksPerNode  int
	NodesPerBlock int
	Walltime      time.Duration
	Overrides     string
}

// Launcher wraps a worker command in the script that fans it out over a block.
// Wrap is pure: the same arguments always produce the same script.
type Launcher interface {
	Name() string
	Wrap(cmd string, tasksPerNode, nodesPerBlock int, walltime time.Duration) string
}

type templateLauncher struct {
	name      string
	tmpl      *template.Template
	overrides string
}

func (l *templateLauncher) Name() string { return l.name }

func (l *templateLauncher) Wrap(cmd string, tasksPerNode, nodesPerBlock int, walltime time.Duration) string {
	spec := Spec{
		Command:       cmd,
		TaskCount:     tasksPerNode * nodesPerBlock,
		TasksPerNode:  tasksPerNode,
		NodesPerBlock: nodesPerBlock,
		Walltime:      walltime,
		Overrides:     l.overrides,
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, spec); err != nil {
		// Templates are fixed at init and Spec has no failing accessors.
		panic(fmt.Sprintf("launcher %s: %v", l.name, err))
	}
	return buf.String()
}

var templates = map[string]*template.Template{
	"simple":       template.Must(template.New("simple").Parse(simpleTemplateText)),
	"single-node":  template.Must(template.New("single-node").Parse(singleNodeTemplateText)),
	"gnu-parallel": template.Must(template.New("gnu-parallel").Parse(gnuParallelTemplateText)),
	"mpiexec":      template.Must(template.New("mpiexec").Parse(mpiExecTemplateText)),
	"srun":         template.Must(template.New("srun").Parse(srunTemplateText)),
	"srun-mpi":     template.Must(template.New("srun-mpi").Parse(srunMPITemplateText)),
	"aprun":        template.Must(template.New("aprun").Parse(aprunTemplateText)),
}

// Lookup returns the registered launcher with the given name.
func Lookup(name string) (Launcher, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown launcher %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return &templateLauncher{name: name, tmpl: tmpl}, nil
}

// Names returns the registered launcher names, sorted.
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAprun returns an aprun launcher that appends overrides to the aprun
// command line.
func NewAprun(overrides string) Launcher {
	return &templateLauncher{name: "aprun", tmpl: templates["aprun"], overrides: overrides}
}

// New returns the named launcher, applying overrides where the launcher
// accepts them.
func New(name, overrides string) (Launcher, error) {
	if name == "aprun" {
		return NewAprun(overrides), nil
	}
	return Lookup(name)
}
