package provider

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// Provider requests blocks of compute capacity and tracks their lifecycle.
// All methods are safe for concurrent use; they serialize on the record table.
type Provider interface {
	// Label returns the provider's name, used in job identifiers and logs.
	Label() string

	// Submit wraps command with the launcher for blockSize and starts it as
	// one block. It returns "" with a nil error when the provider is at
	// capacity. Errors are returned only when the job could not be set up.
	Submit(ctx context.Context, command string, blockSize int, jobName string) (string, error)

	// Status returns one status per id, in order. Unknown ids are UNKNOWN.
	Status(ctx context.Context, ids []string) ([]Status, error)

	// Cancel attempts to terminate each job. Records are marked cancelled
	// once termination has been attempted, whether or not it succeeded.
	Cancel(ctx context.Context, ids []string) ([]bool, error)

	// Reap forgets a terminal job. It reports whether a record was removed.
	Reap(id string) bool

	// Jobs returns a copy of every record in submission order.
	Jobs() []JobRecord

	// ScalingEnabled reports whether blocks can be added after startup.
	ScalingEnabled() bool

	// CurrentCapacity returns the number of pending or running blocks.
	CurrentCapacity() int
}

// Options configures a provider.
type Options struct {
	Label         string
	NodesPerBlock int
	TasksPerNode  int
	InitBlocks    int
	MinBlocks     int
	MaxBlocks     int
	Walltime      time.Duration
	Launcher      launcher.Launcher
	CmdTimeout    time.Duration

	// Parallelism is the ratio of blocks to outstanding tasks a scaling
	// strategy aims for. Providers do not read it; it is carried for callers
	// that size their own requests.
	Parallelism float64

	// ScriptDir is the local directory submit scripts are written to before
	// being pushed to the channel.
	ScriptDir string

	// Scheduler-specific settings; ignored by the local provider.
	Partition string
	Queue     string
	Account   string
	Overrides string

	// Observer receives lifecycle events. Nil means none.
	Observer Observer

	// FileSystem writes the local copy of submit scripts. Nil uses the
	// process default.
	FileSystem system.FileSystem
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	l, _ := launcher.Lookup("single-node")
	return Options{
		Label:         "blocks",
		NodesPerBlock: 1,
		TasksPerNode:  1,
		InitBlocks:    1,
		MinBlocks:     0,
		MaxBlocks:     10,
		Parallelism:   1,
		Walltime:      10 * time.Minute,
		Launcher:      l,
		CmdTimeout:    10 * time.Second,
		ScriptDir:     ".forage-blocks/scripts",
	}
}

// TasksPerBlock returns the number of task slots in one block.
func (o Options) TasksPerBlock() int {
	return o.NodesPerBlock * o.TasksPerNode
}

func (o Options) validate() error {
	if o.Label == "" {
		return fmt.Errorf("label is required")
	}
	if o.NodesPerBlock < 1 || o.TasksPerNode < 1 {
		return fmt.Errorf("nodes_per_block and tasks_per_node must be at least 1")
	}
	if o.MaxBlocks < o.MinBlocks {
		return fmt.Errorf("max_blocks (%d) is less than min_blocks (%d)", o.MaxBlocks, o.MinBlocks)
	}
	if o.Launcher == nil {
		return fmt.Errorf("launcher is required")
	}
	if o.ScriptDir == "" {
		return fmt.Errorf("script_dir is required")
	}
	return nil
}

// base holds the state shared by every provider implementation.
type base struct {
	opts     Options
	channel  channel.Channel
	fs       system.FileSystem
	observer Observer
	records  *records
	log      *slog.Logger
}

func newBase(ch channel.Channel, opts Options) (*base, error) {
	if ch == nil {
		return nil, fmt.Errorf("provider %s: channel is required", opts.Label)
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("provider %s: %w", opts.Label, err)
	}

	fsys := opts.FileSystem
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	dir, err := filepath.Abs(opts.ScriptDir)
	if err != nil {
		return nil, fmt.Errorf("provider %s: resolve script dir: %w", opts.Label, err)
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("provider %s: create script dir: %w", opts.Label, err)
	}
	opts.ScriptDir = dir

	var observer Observer = nopObserver{}
	if opts.Observer != nil {
		observer = opts.Observer
	}

	return &base{
		opts:     opts,
		channel:  ch,
		fs:       fsys,
		observer: observer,
		records:  newRecords(),
		log:      logging.ForProvider(opts.Label),
	}, nil
}

func (b *base) Label() string        { return b.opts.Label }
func (b *base) ScalingEnabled() bool { return true }

func (b *base) Reap(id string) bool {
	b.records.mu.Lock()
	defer b.records.mu.Unlock()
	return b.records.remove(id)
}

func (b *base) Jobs() []JobRecord {
	b.records.mu.Lock()
	defer b.records.mu.Unlock()
	return b.records.snapshot()
}

// atCapacity reports whether another block would exceed MaxBlocks, logging
// and reporting the rejection if so. The caller holds the records lock.
func (b *base) atCapacity() bool {
	active := b.records.active()
	if active < b.opts.MaxBlocks {
		return false
	}
	b.log.Warn("provider at capacity, no more blocks will be added",
		"active", active, "max_blocks", b.opts.MaxBlocks)
	b.observer.JobRejected(b.opts.Label)
	return true
}

// transition moves rec to next if the lifecycle allows it.
// The caller holds the records lock.
func (b *base) transition(rec *JobRecord, next Status) {
	if !rec.Status.canMoveTo(next) {
		return
	}
	from := rec.Status
	rec.Status = next
	b.log.Debug("job status changed", "job", rec.ID, "from", from, "to", next)
	b.observer.JobTransitioned(*rec, from)
}

// cancelled marks rec as cancelled. Cancellation is optimistic: it applies
// once termination has been attempted, even to a record that already
// reached another terminal state. The caller holds the records lock.
func (b *base) cancelled(rec *JobRecord, st Status) {
	if rec.Status == st {
		return
	}
	from := rec.Status
	rec.Status = st
	b.log.Info("block cancelled", "job", rec.ID, "from", from, "to", st)
	b.observer.JobTransitioned(*rec, from)
}

// submitted records a new job and notifies the observer.
// The caller holds the records lock.
func (b *base) submitted(rec *JobRecord) {
	b.records.add(rec)
	b.log.Info("block submitted", "job", rec.ID, "status", rec.Status, "block_size", rec.BlockSize)
	b.observer.JobSubmitted(*rec)
}

// stageScript writes content to name in the local script dir and pushes it
// to the channel's script dir, returning the path on the channel.
func (b *base) stageScript(ctx context.Context, name string, content []byte) (string, error) {
	local := filepath.Join(b.opts.ScriptDir, name)
	if err := b.fs.WriteFile(local, content, 0o755); err != nil {
		return "", fmt.Errorf("write script %s: %w", local, err)
	}
	remote, err := b.channel.PushFile(ctx, local, b.channel.ScriptDir())
	if err != nil {
		return "", fmt.Errorf("push script %s: %w", local, err)
	}
	return remote, nil
}

// normalizeScript converts CRLF line endings so scripts run under sh.
func normalizeScript(s []byte) []byte {
	return bytes.ReplaceAll(s, []byte("\r\n"), []byte("\n"))
}

// New creates the provider for kind: "local" or a registered scheduler name.
func New(kind string, ch channel.Channel, opts Options) (Provider, error) {
	if kind == "local" {
		return NewLocalProvider(ch, opts)
	}
	s, err := LookupScheduler(kind)
	if err != nil {
		return nil, err
	}
	return NewClusterProvider(ch, s, opts)
}
