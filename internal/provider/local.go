package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/errgroup"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
)

// LocalProvider runs each block as a background process on its channel.
type LocalProvider struct {
	*base
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider that starts blocks with
// ch.ExecuteAsync. The local script dir is created if needed.
func NewLocalProvider(ch channel.Channel, opts Options) (*LocalProvider, error) {
	b, err := newBase(ch, opts)
	if err != nil {
		return nil, err
	}
	return &LocalProvider{base: b}, nil
}

// Submit wraps command for blockSize tasks on one node, stages it as
// cmd_<jobName>.sh and starts it. blockSize < 1 uses the configured
// tasks per block.
func (p *LocalProvider) Submit(ctx context.Context, command string, blockSize int, jobName string) (string, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	p.refresh(ctx)
	if p.atCapacity() {
		return "", nil
	}

	if blockSize < 1 {
		blockSize = p.opts.TasksPerBlock()
	}
	name := uniqueJobName(jobName, p.opts.Label)
	script := p.opts.Launcher.Wrap(command, blockSize, 1, p.opts.Walltime)

	scriptPath, err := p.stageScript(ctx, fmt.Sprintf("cmd_%s.sh", name), normalizeScript([]byte(script)))
	if err != nil {
		return "", err
	}

	handle, err := p.channel.ExecuteAsync(ctx, "bash "+shellquote.Join(scriptPath), map[string]string{"JOBNAME": name})
	if err != nil {
		return "", fmt.Errorf("launch %s: %w", scriptPath, err)
	}

	now := time.Now()
	rec := &JobRecord{
		ID:          newJobID(p.opts.Label, now),
		Label:       p.opts.Label,
		JobName:     name,
		Status:      StatusRunning,
		BlockSize:   blockSize,
		SubmittedAt: now,
		ScriptPath:  scriptPath,
		handle:      handle,
	}
	p.submitted(rec)
	return rec.ID, nil
}

// Status reports each job, first collecting the exit of any finished process.
func (p *LocalProvider) Status(ctx context.Context, ids []string) ([]Status, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	p.refresh(ctx)
	return p.records.statuses(ids), nil
}

// refresh moves finished processes to COMPLETED or FAILED.
// The caller holds the records lock.
func (p *LocalProvider) refresh(ctx context.Context) {
	for _, rec := range p.records.byID {
		if rec.handle == nil || rec.Status.Terminal() || !rec.handle.Poll() {
			continue
		}
		result, err := rec.handle.Result(ctx)
		if err != nil {
			continue
		}
		if result.Succeeded() {
			p.transition(rec, StatusCompleted)
		} else {
			p.log.Debug("block exited", "job", rec.ID, "exit_code", result.ExitCode, "stderr", result.Stderr)
			p.transition(rec, StatusFailed)
		}
	}
}

// Cancel terminates the process group of every known job concurrently and
// marks it CANCELLED. Known ids report true even if the signal failed;
// unknown ids report false.
func (p *LocalProvider) Cancel(ctx context.Context, ids []string) ([]bool, error) {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	results := make([]bool, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		rec, ok := p.records.get(id)
		if !ok {
			continue
		}
		results[i] = true
		if h := rec.handle; h != nil {
			g.Go(func() error {
				if err := h.Cancel(); err != nil {
					p.log.Warn("failed to terminate block", "job", id, "error", err)
				}
				return nil
			})
		}
		p.cancelled(rec, StatusCancelled)
	}
	_ = g.Wait()
	return results, nil
}

// CurrentCapacity returns the number of blocks still running.
func (p *LocalProvider) CurrentCapacity() int {
	p.records.mu.Lock()
	defer p.records.mu.Unlock()

	p.refresh(context.Background())
	return p.records.active()
}
