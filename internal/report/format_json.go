package report

import "encoding/json"

// FormatJSON renders r for machine consumers, two-space indented. Findings
// carry their source span under location.source.
func FormatJSON(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
