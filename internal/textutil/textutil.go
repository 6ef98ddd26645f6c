// Package textutil holds the bounded-capture and truncation helpers shared
// by the QA preflight runner and the transition dispatcher's procedural QA
// synthesis.
package textutil

import "fmt"

// PreviewLimit bounds a single command's captured stdout/stderr preview.
const PreviewLimit = 8 * 1024

// AggregateLimit bounds the rendered aggregate across all commands in a
// preflight run.
const AggregateLimit = 20 * 1024

// NotesLimit bounds the notes field copied into a procedural QA report.
const NotesLimit = 8 * 1024

// InvestigationReportLimit bounds the synthesized e2e failure investigation
// fallback report.
const InvestigationReportLimit = 20 * 1024

// Truncate bounds s to limit bytes, appending a marker noting how many
// characters were dropped. Returns s unchanged if it already fits.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	dropped := len(s) - limit
	return fmt.Sprintf("%s...[truncated %d chars]", s[:limit], dropped)
}
