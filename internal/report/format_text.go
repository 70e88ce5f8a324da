package report

import (
	"fmt"
	"strings"
)

// FormatText returns a human-readable string representation of the report.
// Each finding is on its own line with its category, severity, message and
// location. A summary line is appended at the end.
func FormatText(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File: %s\n", r.File)

	for _, f := range r.Errors {
		writeFinding(&b, f)
	}
	for _, f := range r.Warnings {
		writeFinding(&b, f)
	}

	fmt.Fprintf(&b, "\n%d elements, %d errors, %d warnings\n",
		r.Summary.ElementCount, r.Summary.ErrorCount, r.Summary.WarningCount)
	return b.String()
}

func writeFinding(b *strings.Builder, f Finding) {
	loc := f.Location.Path
	if !f.Location.Source.IsUnknown() {
		if loc != "" {
			loc += " "
		}
		loc += f.Location.Source.String()
	}
	if loc == "" {
		fmt.Fprintf(b, "  [%s] %s: %s\n", f.Rule, f.Severity, f.Message)
		return
	}
	fmt.Fprintf(b, "  [%s] %s: %s at %s\n", f.Rule, f.Severity, f.Message, loc)
}
