package provider

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/launcher"
	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/system"
)

// recordingObserver collects lifecycle events.
type recordingObserver struct {
	mu          sync.Mutex
	submitted   []string
	rejected    int
	transitions []string
}

func (o *recordingObserver) JobSubmitted(rec JobRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted = append(o.submitted, rec.ID)
}

func (o *recordingObserver) JobRejected(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected++
}

func (o *recordingObserver) JobTransitioned(rec JobRecord, from Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, rec.ID+":"+string(from)+"->"+string(rec.Status))
}

func testOptions(t *testing.T, fs system.FileSystem, observer Observer) Options {
	t.Helper()
	l, err := launcher.Lookup("single-node")
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Label = "t"
	opts.MaxBlocks = 2
	opts.Launcher = l
	opts.Walltime = time.Hour
	opts.ScriptDir = "/local/scripts"
	opts.FileSystem = fs
	opts.Observer = observer
	return opts
}

// lastCall returns the command of the most recent ExecuteSync call whose
// command starts with prefix.
func lastSync(t *testing.T, ch *channel.MockChannel, prefix string) string {
	t.Helper()
	calls := ch.Calls("ExecuteSync")
	for i := len(calls) - 1; i >= 0; i-- {
		if cmd := calls[i].Args[0].(string); strings.HasPrefix(cmd, prefix) {
			return cmd
		}
	}
	t.Fatalf("no ExecuteSync call starting with %q", prefix)
	return ""
}
