package watcher

import (
	"fmt"
	"strings"
)

// ChangeAnalysis describes what changed. Every change triggers a fresh,
// complete analysis; the classification only feeds logging and status.
type ChangeAnalysis struct {
	LayoutChanged bool // files or directories appeared or disappeared
	ChangedFiles  []string
	Reason        string
}

// AnalyzeChanges summarizes a debounced change event
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles:  event.Paths,
		LayoutChanged: event.Type == ChangeTypeLayout,
	}

	switch {
	case len(event.Paths) == 1:
		analysis.Reason = fmt.Sprintf("%s changed (%s)", event.Paths[0], event.Type)
	case len(event.Paths) <= 3:
		analysis.Reason = fmt.Sprintf("%s changed (%s)", strings.Join(event.Paths, ", "), event.Type)
	default:
		analysis.Reason = fmt.Sprintf("%d files changed (%s)", len(event.Paths), event.Type)
	}

	return analysis
}
