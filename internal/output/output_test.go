package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docsubmit/docsubmit/internal/core"
)

func sampleSubmissions() []core.Submission {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	return []core.Submission{
		{ID: "1", DocID: "doc-1", Outcome: core.OutcomeAccepted, StatusCode: 200, Duration: 42 * time.Millisecond, RequestedAt: at},
		{ID: "2", DocID: "doc-2", Outcome: core.OutcomeAccepted, StatusCode: 503, Error: "send document doc-2: registry request failed: status 503", RequestedAt: at},
		{ID: "3", DocID: "doc-3", Outcome: core.OutcomeRateLimited, RequestedAt: at},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sampleSubmissions())
	require.Equal(t, Summary{Total: 3, Accepted: 2, Delivered: 1, Failed: 1, RateLimited: 1}, summary)
	require.Equal(t, "3 attempts: 1 delivered, 1 failed, 1 rate limited", summary.String())

	require.Equal(t, Summary{}, Summarize(nil))
}

func TestStatusLine(t *testing.T) {
	entries := sampleSubmissions()
	require.Equal(t, "OK", StatusLine(&entries[0]))
	require.Equal(t, "FAILED", StatusLine(&entries[1]))
	require.Equal(t, "Limit", StatusLine(&entries[2]))
	require.Empty(t, StatusLine(nil))
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatSubmissions(sampleSubmissions())
	require.NoError(t, err)

	var decoded struct {
		Submissions []core.Submission `json:"submissions"`
		Summary     Summary           `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded.Submissions, 3)
	require.Equal(t, 1, decoded.Summary.RateLimited)

	empty, err := NewFormatter(FormatJSON).FormatSubmissions(nil)
	require.NoError(t, err)
	require.Contains(t, empty, `"submissions": []`)
}

func TestTableFormatters(t *testing.T) {
	table, err := NewFormatter(FormatTable).FormatSubmissions(sampleSubmissions())
	require.NoError(t, err)
	require.Contains(t, table, "doc-1")
	require.Contains(t, table, "rate limited")
	require.Contains(t, table, "42ms")
	require.Contains(t, table, "2025-02-03T04:05:06Z")

	markdown, err := NewFormatter(FormatMarkdown).FormatSubmissions(sampleSubmissions())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(markdown, "|"), markdown)
	require.Contains(t, markdown, "doc-3")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "a b", truncate("a\n  b", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
