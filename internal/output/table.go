package output

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/docsubmit/docsubmit/internal/core"
)

// TableFormatter renders submissions as an ASCII table, or as a Markdown
// table when Markdown is set.
type TableFormatter struct {
	Markdown bool
}

// FormatSubmissions renders entries with a summary footer.
func (f *TableFormatter) FormatSubmissions(entries []core.Submission) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Requested", "Doc ID", "Status", "HTTP", "Duration", "Error"})

	for i := range entries {
		entry := &entries[i]
		httpStatus := "-"
		if entry.StatusCode != 0 {
			httpStatus = strconv.Itoa(entry.StatusCode)
		}
		t.AppendRow(table.Row{
			entry.RequestedAt.UTC().Format(time.RFC3339),
			entry.DocID,
			statusLabel(entry),
			httpStatus,
			formatDuration(entry.Duration),
			truncate(entry.Error, maxErrorCell),
		})
	}

	t.AppendFooter(table.Row{"", "", Summarize(entries).String(), "", "", ""})

	if f.Markdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}
