// Package channel runs commands and moves files on a compute endpoint.
//
// A Channel hides whether the endpoint is this machine or a remote host:
//
//	ch, err := channel.NewLocalChannel(channel.WithScriptDir(".scripts"))
//	ch, err := channel.NewRemoteChannel(ctx, ssh.DefaultOptions("login.cluster"))
//
// Construction either returns a usable channel or an *errors.ChannelError
// (BadScriptPath, BadPermsScriptPath, Authentication, BadHostKey, Transport).
//
// # Execution
//
// ExecuteSync blocks and never returns an error. A timeout, a cancelled
// context or a transport failure is reported as ExitCode -1 with empty
// output, so callers must treat a negative code as "outcome unknown":
//
//	res := ch.ExecuteSync(ctx, "squeue -h", 10*time.Second, nil)
//	if !res.Determined() {
//	    // retry later
//	}
//
// On a LocalChannel every command runs in its own process group. A timeout
// or AsyncHandle.Cancel sends SIGTERM to the group and SIGKILL after the
// grace period (WithKillGrace).
//
// ExecuteAsync returns an AsyncHandle to poll:
//
//	h, err := ch.ExecuteAsync(ctx, "bash run.sh", map[string]string{"JOBNAME": "t1"})
//	for !h.Poll() {
//	    time.Sleep(time.Second)
//	}
//	res, _ := h.Result(ctx) // same value on every call
//
// # Environment
//
// Channel-wide variables (WithEnv) are merged with per-call overrides, the
// call winning. Remote commands are wrapped as
// env K=V sh -c '<cmd>' so both channel kinds expose identical values.
//
// # Files
//
// PushFile and PullFile copy one file to join(dstDir, base(src)). Pulls
// never overwrite: an existing destination yields PathConflict. Both
// channel kinds also implement DirectoryTransferer for recursive mirrors.
package channel
