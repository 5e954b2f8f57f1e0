package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFuncMap(t *testing.T) {
	t.Parallel()

	t.Run("contains the date helper", func(t *testing.T) {
		t.Parallel()

		funcs := FuncMap()
		assert.Contains(t, funcs, "formatIssueDate")
		assert.IsType(t, func(string, string) string { return "" }, funcs["formatIssueDate"])
	})

	t.Run("includes sprig helpers", func(t *testing.T) {
		t.Parallel()

		funcs := FuncMap()
		// Check for a well-known sprig function
		assert.Contains(t, funcs, "upper")
		assert.Contains(t, funcs, "default")
	})
}

func TestFormatIssueDate(t *testing.T) {
	t.Parallel()

	t.Run("formats a valid timestamp", func(t *testing.T) {
		t.Parallel()
		got := formatIssueDate("2024-01-02T15:04:05.000+0000", "2006-01-02")
		assert.Equal(t, "2024-01-02", got)
	})

	t.Run("normalizes a Z suffix", func(t *testing.T) {
		t.Parallel()
		got := formatIssueDate("2024-01-02T15:04:05.000Z", time.Kitchen)
		assert.Equal(t, "3:04PM", got)
	})

	t.Run("returns the input when parsing fails", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "yesterday", formatIssueDate("yesterday", "2006-01-02"))
		assert.Equal(t, "", formatIssueDate("", "2006-01-02"))
	})
}
