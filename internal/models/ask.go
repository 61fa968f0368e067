// Package models defines the request and response types shared by the HTTP API, the CLI
// and the terminal chat.
package models

import (
	"strings"

	"github.com/hyperjump/kotae/internal/rag"
)

// MaxTopK caps the number of local documents a single request may retrieve.
const MaxTopK = 50

// AskRequest is a question for the answerer.
type AskRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
	TopK  int    `json:"top_k,omitempty" validate:"omitempty,topk"`
}

// Normalize trims the query. It returns false when nothing is left to ask.
func (r *AskRequest) Normalize() bool {
	r.Query = strings.TrimSpace(r.Query)
	return r.Query != ""
}

// AskResponse is the answer plus what the pipeline found on the way.
type AskResponse struct {
	Answer    string        `json:"answer"`
	Refused   bool          `json:"refused"`
	Generated bool          `json:"generated"`
	Outcome   rag.Outcome   `json:"outcome"`
	Sections  []rag.Section `json:"sections,omitempty"`
	Web       rag.Absence   `json:"web_absent,omitempty"`
	Local     rag.Absence   `json:"local_absent,omitempty"`
	Distances []float32     `json:"distances,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	TookMS    int64         `json:"took_ms"`
}

// NewAskResponse flattens a rag.Answer.
func NewAskResponse(a rag.Answer) *AskResponse {
	return &AskResponse{
		Answer:    a.Text,
		Refused:   a.Refused,
		Generated: a.Generated,
		Outcome:   a.Outcome,
		Sections:  a.Sections,
		Web:       a.Web.Absent,
		Local:     a.Local.Absent,
		Distances: a.Local.Distances,
	}
}
