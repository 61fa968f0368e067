// Package cli provides output and HTTP client helpers for the kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes an answer to w. In text mode, verbose adds the retrieved context
// sections and stage outcomes after the answer.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat, verbose bool) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Answer)
	if !verbose {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "outcome: %s | generated: %t | refused: %t | %dms\n",
		resp.Outcome, resp.Generated, resp.Refused, resp.TookMS)
	if resp.Web != "" {
		fmt.Fprintf(w, "web: %s\n", resp.Web)
	}
	if resp.Local != "" {
		fmt.Fprintf(w, "local: %s\n", resp.Local)
	}
	for _, sec := range resp.Sections {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%s]\n%s\n", sec.Label, utils.Truncate(sec.Content, 400))
	}
	return nil
}

// WriteStatus writes index and ledger status to w.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "documents:          %d   # chunks available to the answerer\n", status.Documents)
	fmt.Fprintf(w, "vectors:            %d   # vectors in the nearest-neighbour engine\n", status.Vectors)
	fmt.Fprintf(w, "sources:            %d   # ingested files\n", status.Sources)
	fmt.Fprintf(w, "source_chunks:      %d\n", status.SourceChunks)
	if status.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "index_type:         %s\n", status.IndexType)
	fmt.Fprintf(w, "dimensions:         %d\n", status.Dimensions)
	fmt.Fprintf(w, "web_search:         %t\n", status.WebSearch)
	for _, key := range sortedKeys(status.Config) {
		fmt.Fprintf(w, "%-19s %v\n", key+":", status.Config[key])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
