// Package health probes a channel endpoint for `forage-blocks ping`.
//
// # Health Status
//
// Endpoint health is represented by Status:
//
//	StatusHealthy     - commands run and the script dir is writable
//	StatusDegraded    - commands run but blocks cannot be staged
//	StatusUnreachable - `true` did not exit 0 within the timeout
//
// # Check Functions
//
// Individual checks:
//
//	health.Ping(ctx, ch, timeout)           // reachability and latency
//	health.CheckScriptDir(ctx, ch, timeout) // script dir writable
//	health.GetUptime(ctx, ch, timeout)      // endpoint uptime
//
// Combined checks:
//
//	result := health.Check(ctx, ch, timeout)
//	// result.Reachable, .Latency, .ScriptDirWritable, .Uptime, .Kernel
//
//	status := health.GetSummary(ctx, ch, timeout)
//	// Returns StatusHealthy, StatusDegraded or StatusUnreachable
package health
