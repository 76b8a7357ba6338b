package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/docsubmit/docsubmit/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// maxErrorCell truncates errors in table and markdown cells.
const maxErrorCell = 60

// Formatter renders journal entries with a summary.
type Formatter interface {
	FormatSubmissions(entries []core.Submission) (string, error)
}

// Summary totals a set of submissions.
type Summary struct {
	Total       int `json:"total"`
	Accepted    int `json:"accepted"`
	Delivered   int `json:"delivered"`
	Failed      int `json:"failed"`
	RateLimited int `json:"rate_limited"`
}

// Summarize counts entries by outcome. Failed entries are also counted as
// accepted, since the limiter admitted them.
func Summarize(entries []core.Submission) Summary {
	summary := Summary{Total: len(entries)}
	for i := range entries {
		entry := &entries[i]
		switch {
		case entry.Outcome == core.OutcomeRateLimited:
			summary.RateLimited++
		case entry.Failed():
			summary.Accepted++
			summary.Failed++
		default:
			summary.Accepted++
			summary.Delivered++
		}
	}
	return summary
}

func (s Summary) String() string {
	return fmt.Sprintf("%d attempts: %d delivered, %d failed, %d rate limited",
		s.Total, s.Delivered, s.Failed, s.RateLimited)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &TableFormatter{Markdown: true}
	default:
		return &TableFormatter{}
	}
}

// StatusLine renders the one-word progress marker printed per attempt:
// "OK" when delivered, "Limit" when rate limited and "FAILED" otherwise.
func StatusLine(entry *core.Submission) string {
	switch {
	case entry == nil:
		return ""
	case entry.Outcome == core.OutcomeRateLimited:
		return "Limit"
	case entry.Failed():
		return "FAILED"
	default:
		return "OK"
	}
}

func statusLabel(entry *core.Submission) string {
	switch {
	case entry.Outcome == core.OutcomeRateLimited:
		return "rate limited"
	case entry.Failed():
		return "failed"
	default:
		return "delivered"
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
