package sink

import (
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// FuncMap returns the helper functions available to row templates.
func FuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["formatIssueDate"] = formatIssueDate
	return funcs
}

// formatIssueDate parses an issue-tracker timestamp and returns it
// formatted using the provided layout. If parsing fails, the original
// string is returned.
func formatIssueDate(input, layout string) string {
	input = strings.Replace(input, "Z", "+0000", 1) // normalize timezone
	parsed, err := time.Parse("2006-01-02T15:04:05.000-0700", input)
	if err != nil {
		return input
	}
	return parsed.Format(layout)
}
