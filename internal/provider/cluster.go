package provider

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/errors"
)

// ClusterProvider submits blocks to a batch scheduler through a channel
// that can reach the scheduler's command line tools.
type ClusterProvider struct {
	*base
	scheduler Scheduler
}

var _ Provider = (*ClusterProvider)(nil)

// NewClusterProvider creates a provider speaking the given scheduler dialect.
func NewClusterProvider(ch channel.Channel, s Scheduler, opts Options) (*ClusterProvider, error) {
	if s == nil {
		return nil, fmt.Errorf("provider %s: scheduler is required", opts.Label)
	}
	b, err := newBase(ch, opts)
	if err != nil {
		return nil, err
	}
	return &ClusterProvider{base: b, scheduler: s}, nil
}

// Scheduler returns the provider's dialect.
func (p *ClusterProvider) Scheduler() Scheduler {
	return p.scheduler
}

// Submit renders the scheduler's submit script around the launcher-wrapped
// command, pushes it and submits it. The job is recorded as PENDING.
func (p *ClusterProvider) Submit(ctx context.Context, command string, blockSize int, jobName string) (string, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	if p.atCapacity() {
		return "", nil
	}

	name := uniqueJobName(jobName, p.opts.Label)
	data := SubmitData{
		JobName:         name,
		Nodes:           p.opts.NodesPerBlock,
		TasksPerNode:    p.opts.TasksPerNode,
		TasksPerBlock:   p.opts.TasksPerBlock(),
		Walltime:        FormatWalltime(p.opts.Walltime),
		WalltimeMinutes: WalltimeMinutes(p.opts.Walltime),
		Partition:       p.opts.Partition,
		Queue:           p.opts.Queue,
		Account:         p.opts.Account,
		Overrides:       p.opts.Overrides,
		ScriptDir:       p.channel.ScriptDir(),
		UserScript:      p.opts.Launcher.Wrap(command, p.opts.TasksPerNode, p.opts.NodesPerBlock, p.opts.Walltime),
	}

	p.log.Debug("requesting block", "nodes", data.Nodes, "tasks_per_node", data.TasksPerNode)

	if p.scheduler.StagesJobScript() {
		jobScript, err := p.stageScript(ctx, name+".script", normalizeScript([]byte(data.UserScript)))
		if err != nil {
			return "", err
		}
		data.JobScript = jobScript
	}

	var buf bytes.Buffer
	if err := p.scheduler.SubmitTemplate().Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s submit script: %w", p.scheduler.Name(), err)
	}

	scriptPath, err := p.stageScript(ctx, name+".submit", normalizeScript(buf.Bytes()))
	if err != nil {
		return "", err
	}

	cmd := p.scheduler.SubmitCommand(scriptPath, p.opts)
	result := p.channel.ExecuteSync(ctx, cmd, p.opts.CmdTimeout, nil)
	if !result.Succeeded() {
		p.log.Error("submission failed", "cmd", cmd, "exit_code", result.ExitCode,
			"stdout", strings.TrimSpace(result.Stdout), "stderr", strings.TrimSpace(result.Stderr))
		return "", ferrors.ProviderError("submit", fmt.Errorf("%q exited with code %d", cmd, result.ExitCode))
	}

	id, err := p.scheduler.ParseSubmit(result.Stdout)
	if err != nil {
		return "", ferrors.ProviderError("submit", err)
	}

	blocks := blockSize
	if blocks < 1 {
		blocks = p.opts.TasksPerBlock()
	}
	p.submitted(&JobRecord{
		ID:          id,
		Label:       p.opts.Label,
		JobName:     name,
		Status:      StatusPending,
		BlockSize:   blocks,
		SubmittedAt: time.Now(),
		ScriptPath:  scriptPath,
	})
	return id, nil
}

// Status refreshes every active job with one scheduler query, then reports
// the requested ids. Active jobs missing from the scheduler's answer have
// finished and become COMPLETED. If the query fails the last known values
// are reported.
func (p *ClusterProvider) Status(ctx context.Context, ids []string) ([]Status, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	if len(ids) > 0 {
		p.refresh(ctx)
	}
	return p.records.statuses(ids), nil
}

// refresh queries the scheduler. The caller holds the records lock.
func (p *ClusterProvider) refresh(ctx context.Context) {
	var active []*JobRecord
	for _, id := range p.records.order {
		if rec := p.records.byID[id]; rec.Status.Active() {
			active = append(active, rec)
		}
	}
	if len(active) == 0 {
		return
	}

	ids := make([]string, len(active))
	for i, rec := range active {
		ids[i] = rec.ID
	}

	cmd := p.scheduler.StatusCommand(ids)
	result := p.channel.ExecuteSync(ctx, cmd, p.opts.CmdTimeout, nil)
	if !result.Succeeded() {
		p.log.Warn("status query failed, keeping last known status", "cmd", cmd, "exit_code", result.ExitCode)
		return
	}

	reported := p.scheduler.ParseStatus(result.Stdout)
	for _, rec := range active {
		st, ok := reported[rec.ID]
		if !ok {
			st = StatusCompleted
		}
		p.transition(rec, st)
	}
}

// Cancel issues one scheduler cancel for every known id. Known jobs are
// marked cancelled whatever the outcome; the results are all true if the
// cancel command succeeded and all false otherwise. Unknown ids are false.
func (p *ClusterProvider) Cancel(ctx context.Context, ids []string) ([]bool, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	results := make([]bool, len(ids))
	var known []*JobRecord
	var knownIdx []int
	for i, id := range ids {
		if rec, ok := p.records.get(id); ok {
			known = append(known, rec)
			knownIdx = append(knownIdx, i)
		}
	}
	if len(known) == 0 {
		return results, nil
	}

	knownIDs := make([]string, len(known))
	for i, rec := range known {
		knownIDs[i] = rec.ID
	}

	cmd := p.scheduler.CancelCommand(knownIDs)
	result := p.channel.ExecuteSync(ctx, cmd, p.opts.CmdTimeout, nil)
	if !result.Succeeded() {
		p.log.Warn("cancel failed", "cmd", cmd, "exit_code", result.ExitCode, "stderr", strings.TrimSpace(result.Stderr))
	}

	for i, rec := range known {
		p.cancelled(rec, p.scheduler.CancelledStatus())
		results[knownIdx[i]] = result.Succeeded()
	}
	return results, nil
}

// CurrentCapacity returns the number of blocks the provider last saw
// pending or running.
func (p *ClusterProvider) CurrentCapacity() int {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()
	return p.records.active()
}
