package health

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
)

// Status represents the health of a channel endpoint
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnreachable Status = "unreachable"

	// DefaultTimeout bounds each probe command.
	DefaultTimeout = 10 * time.Second
)

// CheckResult contains the results of health checks
type CheckResult struct {
	Host              string
	Reachable         bool
	Latency           time.Duration
	ScriptDirWritable bool
	Uptime            string
	Kernel            string
}

// Status summarises the result.
func (r *CheckResult) Status() Status {
	switch {
	case !r.Reachable:
		return StatusUnreachable
	case !r.ScriptDirWritable:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Ping runs `true` on the channel and reports whether it succeeded and how
// long the round trip took.
func Ping(ctx context.Context, ch channel.Channel, timeout time.Duration) (bool, time.Duration) {
	start := time.Now()
	result := ch.ExecuteSync(ctx, "true", timeout, nil)
	return result.Succeeded(), time.Since(start)
}

// CheckScriptDir reports whether the channel's script dir is writable.
func CheckScriptDir(ctx context.Context, ch channel.Channel, timeout time.Duration) bool {
	result := ch.ExecuteSync(ctx, "test -d "+shellquote.Join(ch.ScriptDir())+" && test -w "+shellquote.Join(ch.ScriptDir()), timeout, nil)
	return result.Succeeded()
}

// GetUptime returns the endpoint's uptime in human-readable format.
func GetUptime(ctx context.Context, ch channel.Channel, timeout time.Duration) string {
	result := ch.ExecuteSync(ctx, "cat /proc/uptime", timeout, nil)
	if !result.Succeeded() {
		return "unknown"
	}
	return parseUptime(result.Stdout)
}

// parseUptime reads the first field of /proc/uptime.
func parseUptime(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "unknown"
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "unknown"
	}
	return formatDuration(time.Duration(secs * float64(time.Second)))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// Check performs all health checks for a channel.
// Later checks are skipped if the endpoint is unreachable.
func Check(ctx context.Context, ch channel.Channel, timeout time.Duration) *CheckResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	result := &CheckResult{Host: ch.Host()}

	result.Reachable, result.Latency = Ping(ctx, ch, timeout)
	if !result.Reachable {
		return result
	}

	result.ScriptDirWritable = CheckScriptDir(ctx, ch, timeout)
	result.Uptime = GetUptime(ctx, ch, timeout)

	if r := ch.ExecuteSync(ctx, "uname -sr", timeout, nil); r.Succeeded() {
		result.Kernel = strings.TrimSpace(r.Stdout)
	}

	return result
}

// GetSummary returns a summary health status.
func GetSummary(ctx context.Context, ch channel.Channel, timeout time.Duration) Status {
	return Check(ctx, ch, timeout).Status()
}
