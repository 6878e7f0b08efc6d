package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/include-cycles/pkg/model"
)

// PrintReport prints a nicely formatted include cycle report with colors
func PrintReport(w io.Writer, report *model.Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Include Cycle Report")
	bold.Fprintln(w, "====================")
	fmt.Fprintf(w, "Root: %s\n", report.Root)
	fmt.Fprintf(w, "Scanned: %d files\n", report.Counts.Files)
	fmt.Fprintf(w, "Graph: %d nodes, %d edges\n", report.Counts.Nodes, report.Counts.Edges)
	fmt.Fprintln(w)

	if len(report.Cycles) > 0 {
		red.Fprintf(w, "CYCLES (%d):\n", len(report.Cycles))
		for i, c := range report.Cycles {
			yellow.Fprintf(w, "  %d. ", i+1)
			fmt.Fprintln(w, formatCycle(c.Files))
		}
		fmt.Fprintln(w)
	}

	if len(report.Components) > 0 {
		bold.Fprintf(w, "MUTUALLY DEPENDENT GROUPS (%d):\n", len(report.Components))
		for _, group := range report.Components {
			cyan.Fprintf(w, "  [%d files] ", len(group))
			fmt.Fprintln(w, strings.Join(group, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(report.DirectoryCycles) > 0 {
		yellow.Fprintf(w, "DIRECTORY CYCLES (%d):\n", len(report.DirectoryCycles))
		for _, c := range report.DirectoryCycles {
			fmt.Fprintf(w, "  %s\n", formatCycle(c.Files))
		}
		fmt.Fprintln(w)
	}

	if len(report.Issues) > 0 {
		yellow.Fprintf(w, "ISSUES (%d):\n", len(report.Issues))
		for _, issue := range report.Issues {
			cyan.Fprintf(w, "  %-10s ", issue.Kind)
			fmt.Fprintln(w, issue.Message)
		}
		fmt.Fprintln(w)
	}

	if len(report.OrphanHeaders) > 0 {
		fmt.Fprintf(w, "Headers included by no file: %d\n", len(report.OrphanHeaders))
		for _, h := range report.OrphanHeaders {
			fmt.Fprintf(w, "  %s\n", h)
		}
		fmt.Fprintln(w)
	}

	// Summary with color based on the outcome
	if len(report.Cycles) == 0 {
		green.Fprintln(w, report.Summary)
	} else {
		red.Fprintln(w, report.Summary)
	}
}

// formatCycle renders a cycle closed back onto its first file
// e.g., "a.h -> b.h -> a.h"
func formatCycle(files []string) string {
	if len(files) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), files...), files[0]), " -> ")
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
