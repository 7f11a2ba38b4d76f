package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewExecutionID generates a unique execution ID with the "exec_" prefix
func NewExecutionID() string {
	return "exec_" + uuid.New().String()
}

// ScreenshotName returns a deterministic screenshot file name keyed by job ID
// and capture time. Format: <job-id>_<name>_<unix-ts>.png
func ScreenshotName(jobID, name string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%d.png", jobID, name, ts.Unix())
}
