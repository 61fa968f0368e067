package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	resp := &models.AskResponse{
		Answer:    "Париж.",
		Generated: true,
		Outcome:   rag.OutcomeAnswered,
		Web:       rag.AbsenceDisabled,
		Sections:  []rag.Section{{Label: rag.SectionLocal, Content: "Париж - столица Франции."}},
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, resp, OutputText, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Париж.\n" {
		t.Errorf("plain output = %q", buf.String())
	}

	buf.Reset()
	if err := WriteAnswer(&buf, resp, OutputText, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"outcome: answered", "web: disabled", "[local]", "столица Франции"} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	resp := &models.AskResponse{Answer: "<b>ответ</b>", RequestID: "req-1"}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, resp, OutputJSON, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<b>") {
		t.Errorf("HTML should not be escaped: %s", buf.String())
	}
	var decoded models.AskResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Answer != resp.Answer || decoded.RequestID != "req-1" {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestWriteStatus_Text(t *testing.T) {
	status := &models.StatusResponse{
		Documents:  12,
		Vectors:    12,
		IndexType:  "memory",
		Dimensions: 768,
		Config:     map[string]any{"top_k": 5, "chunk_size": 1000},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"documents:          12", "index_type:         memory", "dimensions:         768"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "chunk_size:") > strings.Index(out, "top_k:") {
		t.Errorf("config keys not sorted:\n%s", out)
	}
	if strings.Contains(out, "disk_usage_bytes") {
		t.Error("zero disk usage should be omitted")
	}
}
