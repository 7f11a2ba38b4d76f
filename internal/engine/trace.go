package engine

import (
	"fmt"
	"time"
)

// Trace accumulates per-execution logs and screenshot paths. One Trace
// belongs to exactly one execution; it is never shared across jobs and
// needs no locking because workflow steps run strictly sequentially.
type Trace struct {
	Logs        []string
	Screenshots []string
}

// Logf appends a timestamped line to the execution log
func (t *Trace) Logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	t.Logs = append(t.Logs, line)
}

// AddScreenshot records a captured screenshot path
func (t *Trace) AddScreenshot(path string) {
	t.Screenshots = append(t.Screenshots, path)
}
