package provider

import (
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/channel"
)

// JobRecord is the provider's view of one submitted block.
type JobRecord struct {
	ID          string
	Label       string
	JobName     string
	Status      Status
	BlockSize   int
	SubmittedAt time.Time
	ScriptPath  string

	handle channel.AsyncHandle
}

// records is the job table. All access goes through its mutex.
type records struct {
	mu    sync.Mutex
	byID  map[string]*JobRecord
	order []string
}

func newRecords() *records {
	return &records{byID: make(map[string]*JobRecord)}
}

// add inserts rec. The caller holds mu.
func (r *records) add(rec *JobRecord) {
	r.byID[rec.ID] = rec
	r.order = append(r.order, rec.ID)
}

// get returns the record for id. The caller holds mu.
func (r *records) get(id string) (*JobRecord, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// active counts records that still hold capacity. The caller holds mu.
func (r *records) active() int {
	n := 0
	for _, rec := range r.byID {
		if rec.Status.Active() {
			n++
		}
	}
	return n
}

// remove drops a terminal record. The caller holds mu.
func (r *records) remove(id string) bool {
	rec, ok := r.byID[id]
	if !ok || !rec.Status.Terminal() {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// snapshot copies every record in submission order. The caller holds mu.
func (r *records) snapshot() []JobRecord {
	out := make([]JobRecord, 0, len(r.order))
	for _, id := range r.order {
		rec := *r.byID[id]
		rec.handle = nil
		out = append(out, rec)
	}
	return out
}

// statuses returns the current status of each id, UNKNOWN for missing ones.
// The caller holds mu.
func (r *records) statuses(ids []string) []Status {
	out := make([]Status, len(ids))
	for i, id := range ids {
		if rec, ok := r.byID[id]; ok {
			out[i] = rec.Status
		} else {
			out[i] = StatusUnknown
		}
	}
	return out
}
