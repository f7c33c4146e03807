package provider

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// shortID returns 8 hex characters from a random UUID.
func shortID() string {
	return uuid.New().String()[:8]
}

// newJobID returns <label>-<epochSeconds>-<8 hex>.
func newJobID(label string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", label, now.Unix(), shortID())
}

// uniqueJobName suffixes jobName so staged scripts from repeated submits
// never overwrite each other.
func uniqueJobName(jobName, label string) string {
	if jobName == "" {
		jobName = label
	}
	return jobName + "-" + shortID()
}
