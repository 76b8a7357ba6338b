package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/output"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "history"}
	addHistoryFlags(cmd)
	return cmd
}

func TestHistoryQuery(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults", func(t *testing.T) {
		query, err := historyQuery(newHistoryCommand(), now)
		require.NoError(t, err)
		assert.Equal(t, 20, query.Limit)
		assert.Empty(t, query.Outcome)
		assert.False(t, query.FailedOnly)
		assert.True(t, query.Since.IsZero())
	})

	t.Run("filters", func(t *testing.T) {
		cmd := newHistoryCommand()
		require.NoError(t, cmd.Flags().Set("limit", "0"))
		require.NoError(t, cmd.Flags().Set("outcome", "RATE_LIMITED"))
		require.NoError(t, cmd.Flags().Set("since", "2h"))

		query, err := historyQuery(cmd, now)
		require.NoError(t, err)
		assert.Equal(t, 0, query.Limit)
		assert.Equal(t, core.OutcomeRateLimited, query.Outcome)
		assert.Equal(t, now.Add(-2*time.Hour), query.Since)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		cases := []map[string]string{
			{"limit": "-1"},
			{"outcome": "delivered"},
			{"since": "-1h"},
			{"failed": "true", "outcome": "rate_limited"},
		}
		for _, flags := range cases {
			cmd := newHistoryCommand()
			for name, value := range flags {
				require.NoError(t, cmd.Flags().Set(name, value))
			}
			_, err := historyQuery(cmd, now)
			assert.Error(t, err, "flags=%v", flags)
		}
	})
}

func TestResolveOutputFormat(t *testing.T) {
	cmd := newHistoryCommand()
	format, err := resolveOutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, output.FormatTable, format)

	require.NoError(t, cmd.Flags().Set("output-format", "json"))
	format, err = resolveOutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, format)

	require.NoError(t, cmd.Flags().Set("output-format", "xml"))
	_, err = resolveOutputFormat(cmd)
	assert.Error(t, err)
}

func TestOpenSink(t *testing.T) {
	cmd := newHistoryCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)

	sink, err := openSink(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "-", sink.path)
	_, _ = sink.writer.Write([]byte("hello"))
	require.NoError(t, sink.close())
	assert.Equal(t, "hello", stdout.String())

	path := filepath.Join(t.TempDir(), "nested", "history.json")
	sink, err = openSink(cmd, path)
	require.NoError(t, err)
	_, _ = sink.writer.Write([]byte("{}"))
	require.NoError(t, sink.close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestExampleCommand(t *testing.T) {
	run := func(t *testing.T, format string) []byte {
		t.Helper()
		cmd := &cobra.Command{Use: "example", RunE: exampleCmd.RunE}
		cmd.Flags().String("format", "json", "")
		require.NoError(t, cmd.Flags().Set("format", format))

		var out bytes.Buffer
		cmd.SetOut(&out)
		require.NoError(t, cmd.RunE(cmd, nil))
		return out.Bytes()
	}

	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(run(t, "json"), &fromJSON))
	assert.Equal(t, core.DocTypeIntroduceGoods, fromJSON["doc_type"])
	assert.Equal(t, "2020-01-23", fromJSON["production_date"])

	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(run(t, "yaml"), &fromYAML))
	assert.Equal(t, core.DocTypeIntroduceGoods, fromYAML["doc_type"])
}
