// Package diagnostic formats the diagnostics a translator collects from
// upstream language servers into a human-readable report, the way a CLI
// tool summarizes a batch of file checks: sorted by location, with an
// error/warning count at the end.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"

	"mcpls/internal/bridge"
)

// severityRank orders severities for sorting: errors before warnings
// before information before hints.
var severityRank = map[string]int{
	"error":       0,
	"warning":     1,
	"information": 2,
	"hint":        3,
}

// Entry is one diagnostic tied to the file it was reported against.
type Entry struct {
	File      string
	Line      int
	Character int
	Severity  string
	Code      string
	Message   string
}

// Reporter accumulates entries across one or more files and renders them
// as a single report.
type Reporter struct {
	entries []Entry
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Add appends every diagnostic in result, tagged with the file it came
// from.
func (r *Reporter) Add(file string, result *bridge.DiagnosticsResult) {
	if result == nil {
		return
	}
	for _, d := range result.Diagnostics {
		entry := Entry{
			File:      file,
			Line:      d.Range.Start.Line,
			Character: d.Range.Start.Character,
			Severity:  d.Severity,
			Message:   d.Message,
		}
		if d.Code != nil {
			entry.Code = *d.Code
		}
		r.entries = append(r.entries, entry)
	}
}

// Sort orders entries by file, then position, then severity.
func (r *Reporter) Sort() {
	sort.Slice(r.entries, func(i, j int) bool {
		a, b := r.entries[i], r.entries[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Character != b.Character {
			return a.Character < b.Character
		}
		return severityRank[a.Severity] < severityRank[b.Severity]
	})
}

// Counts returns the number of error- and warning-severity entries.
func (r *Reporter) Counts() (errors, warnings int) {
	for _, e := range r.entries {
		switch e.Severity {
		case "error":
			errors++
		case "warning":
			warnings++
		}
	}
	return errors, warnings
}

// Empty reports whether the reporter has collected nothing.
func (r *Reporter) Empty() bool { return len(r.entries) == 0 }

// Format renders the full report: one line per diagnostic, sorted, plus a
// trailing summary line.
func (r *Reporter) Format() string {
	r.Sort()

	if len(r.entries) == 0 {
		return "no issues found\n"
	}

	var b strings.Builder
	for _, e := range r.entries {
		b.WriteString(formatEntry(e))
		b.WriteString("\n")
	}
	b.WriteString(r.formatSummary())
	return b.String()
}

func formatEntry(e Entry) string {
	if e.Code != "" {
		return fmt.Sprintf("%s:%d:%d: %s[%s]: %s", e.File, e.Line, e.Character, e.Severity, e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Character, e.Severity, e.Message)
}

func (r *Reporter) formatSummary() string {
	errors, warnings := r.Counts()
	var parts []string
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues found\n"
	}
	return fmt.Sprintf("%s\n", strings.Join(parts, ", "))
}
