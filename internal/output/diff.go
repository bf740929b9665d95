package output

import (
	"strconv"
	"strings"
)

// RenderSetDiff renders the difference between an expected and an actual
// path set. Missing entries are prefixed with "-", unexpected ones with "+".
func RenderSetDiff(title string, missing, extra []string) string {
	if len(missing) == 0 && len(extra) == 0 {
		return "No differences."
	}

	var sb strings.Builder
	sb.WriteString(StyleBold.Render(title))
	sb.WriteString(" (")
	sb.WriteString(diffSummary(len(missing), len(extra)))
	sb.WriteString(")\n")

	for _, name := range missing {
		sb.WriteString("  - ")
		sb.WriteString(StyleRemoved.Render(name))
		sb.WriteString("\n")
	}
	for _, name := range extra {
		sb.WriteString("  + ")
		sb.WriteString(StyleAdded.Render(name))
		sb.WriteString("\n")
	}

	return sb.String()
}

func diffSummary(missing, extra int) string {
	var parts []string
	if missing > 0 {
		parts = append(parts, strconv.Itoa(missing)+" missing")
	}
	if extra > 0 {
		parts = append(parts, strconv.Itoa(extra)+" unexpected")
	}
	return strings.Join(parts, ", ")
}
