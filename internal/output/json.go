package output

import (
	"encoding/json"

	"github.com/docsubmit/docsubmit/internal/core"
)

// JSONFormatter renders submissions as JSON.
type JSONFormatter struct {
	Indent bool
}

type submissionsDocument struct {
	Submissions []core.Submission `json:"submissions"`
	Summary     Summary           `json:"summary"`
}

// FormatSubmissions renders entries and their summary as one JSON object.
func (f *JSONFormatter) FormatSubmissions(entries []core.Submission) (string, error) {
	if entries == nil {
		entries = []core.Submission{}
	}
	doc := submissionsDocument{Submissions: entries, Summary: Summarize(entries)}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
