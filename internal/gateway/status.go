package gateway

import (
	"strings"

	"github.com/trungkien100823/koicourse/internal/store"
)

// NormalizeStatus maps the backend's textual status variants onto the
// canonical two-state enum. The second return is false for strings outside
// the known set; those default to InProgress, the safer state, and the
// caller logs them for visibility.
func NormalizeStatus(raw string) (store.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "done", "completed", "complete", "finished", "passed", "success":
		return store.StatusDone, true
	case "inprogress", "in progress", "in_progress", "in-progress",
		"active", "pending", "processing", "started", "notstarted", "not started":
		return store.StatusInProgress, true
	default:
		return store.StatusInProgress, false
	}
}
