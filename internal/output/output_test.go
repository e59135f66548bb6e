package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

func sampleResults() []searcher.Result {
	return []searcher.Result{
		{Document: &searcher.Document{
			Fingerprint: 0xabc,
			Address:     store.Address{Segment: 1, Doc: 2},
			Score:       1.5,
			Fields: store.Fields{
				"msg":  {"disk full"},
				"code": {int64(28)},
				"raw":  {[]byte{0xde, 0xad}},
				"tags": {"a", "b"},
			},
		}},
		{Err: errors.New("fetch failed")},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatAuto, false},
		{"auto", FormatAuto, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_AutoResolvesToJSONForNonTerminal(t *testing.T) {
	// Given: a buffer, which is never a terminal
	buf := &bytes.Buffer{}

	// When: creating a writer in auto mode
	w := New(buf, FormatAuto)

	// Then: JSON is selected
	assert.Equal(t, FormatJSON, w.Format())
	assert.False(t, IsTTY(buf))
	assert.False(t, IsTTY(nil))
}

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	// When: printing a status message
	w.Status("🔍", "Searching...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Searching...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	w.Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Helpers(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	w.Successf("indexed %d", 3)
	w.Warningf("skipped %d", 1)
	w.Errorf("failed: %s", "boom")

	out := buf.String()
	assert.Contains(t, out, "✅ indexed 3")
	assert.Contains(t, out, "skipped 1")
	assert.Contains(t, out, "❌ failed: boom")
}

func TestWriter_ResultsJSON(t *testing.T) {
	// Given: a JSON writer
	buf := &bytes.Buffer{}
	w := New(buf, FormatJSON)

	// When: rendering a hit and a failed hit
	require.NoError(t, w.Results(sampleResults()))

	// Then: one object per line, rank order kept
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "0000000000000abc", first["fingerprint"])
	assert.Equal(t, "0000000000000001.0000000000000002", first["address"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, float64(2), second["rank"])
	assert.Equal(t, "fetch failed", second["error"])
}

func TestWriter_ResultsText(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	require.NoError(t, w.Results(sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "#1 score=1.5000  index=0000000000000abc")
	assert.Contains(t, out, `msg: "disk full"`)
	assert.Contains(t, out, "code: 28")
	assert.Contains(t, out, "raw: 0xdead")
	assert.Contains(t, out, `tags: ["a", "b"]`)
	assert.Contains(t, out, "#2 unavailable: fetch failed")

	// fields are listed in path order
	assert.Less(t, strings.Index(out, "code:"), strings.Index(out, "msg:"))
}

func TestWriter_ResultsTextEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	require.NoError(t, w.Results(nil))

	assert.Contains(t, buf.String(), "No results.")
}

func TestWriter_Stats(t *testing.T) {
	st := store.Stats{
		Indexes:   1,
		Documents: 4,
		PerIndex:  []store.IndexStats{{Fingerprint: 0xff, Documents: 4, Fields: 2, Segment: 3}},
	}

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, New(buf, FormatText).Stats(st))
		out := buf.String()
		assert.Contains(t, out, "(in-memory)")
		assert.Contains(t, out, "1 indexes, 4 documents")
		assert.Contains(t, out, "00000000000000ff")
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, New(buf, FormatJSON).Stats(st))
		var back store.Stats
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, st, back)
	})
}
