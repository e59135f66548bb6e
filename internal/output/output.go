// Package output provides consistent CLI output formatting for recdex.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

// Format selects how results are rendered.
type Format string

const (
	// FormatAuto picks text for terminals and JSON otherwise.
	FormatAuto Format = "auto"
	// FormatText renders results for humans.
	FormatText Format = "text"
	// FormatJSON renders one JSON object per result line.
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: auto, text, json)", s)
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	format Format
}

// New creates a new output Writer. FormatAuto is resolved against out.
func New(out io.Writer, format Format) *Writer {
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if IsTTY(out) {
			format = FormatText
		}
	}
	return &Writer{out: out, format: format}
}

// Format returns the resolved format.
func (w *Writer) Format() Format {
	return w.format
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// resultLine is the JSON rendering of one search result.
type resultLine struct {
	Rank        int              `json:"rank"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Address     string           `json:"address,omitempty"`
	Score       float64          `json:"score,omitempty"`
	Fields      map[string][]any `json:"fields,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Results renders ranked search results.
func (w *Writer) Results(results []searcher.Result) error {
	if w.format == FormatJSON {
		enc := json.NewEncoder(w.out)
		for i, r := range results {
			line := resultLine{Rank: i + 1}
			if r.Err != nil {
				line.Error = r.Err.Error()
			} else {
				line.Fingerprint = record.FormatFingerprint(r.Document.Fingerprint)
				line.Address = r.Document.Address.String()
				line.Score = r.Document.Score
				line.Fields = r.Document.Fields
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		return nil
	}

	if len(results) == 0 {
		w.Status("", "No results.")
		return nil
	}
	for i, r := range results {
		if r.Err != nil {
			w.Statusf(fmt.Sprintf("#%d", i+1), "unavailable: %v", r.Err)
			continue
		}
		d := r.Document
		w.Statusf(fmt.Sprintf("#%d", i+1), "score=%.4f  index=%s  address=%s",
			d.Score, record.FormatFingerprint(d.Fingerprint), d.Address)
		for _, path := range sortedKeys(d.Fields) {
			_, _ = fmt.Fprintf(w.out, "    %s: %s\n", path, formatValues(d.Fields[path]))
		}
	}
	return nil
}

// Stats renders a store summary.
func (w *Writer) Stats(st store.Stats) error {
	if w.format == FormatJSON {
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	location := st.DataDir
	if location == "" {
		location = "(in-memory)"
	}
	w.Statusf("📂", "Data dir: %s", location)
	w.Statusf("📊", "%d indexes, %d documents", st.Indexes, st.Documents)
	if len(st.PerIndex) == 0 {
		return nil
	}
	w.Newline()
	_, _ = fmt.Fprintf(w.out, "   %-16s  %10s  %6s  %8s\n", "INDEX", "DOCUMENTS", "FIELDS", "SEGMENT")
	for _, is := range st.PerIndex {
		_, _ = fmt.Fprintf(w.out, "   %-16s  %10d  %6d  %8d\n",
			record.FormatFingerprint(is.Fingerprint), is.Documents, is.Fields, is.Segment)
	}
	return nil
}

// JSON writes v as indented JSON regardless of format.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string][]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatValues(vs []any) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		switch tv := v.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", tv)
		case []byte:
			parts[i] = fmt.Sprintf("0x%x", tv)
		default:
			parts[i] = fmt.Sprint(tv)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
