package models

// IngestRequest adds raw texts to the index. Each text is cleaned and chunked.
type IngestRequest struct {
	Documents []string `json:"documents" validate:"required,min=1,max=1000"`
}

// IngestResponse reports how many chunks were added and the new index size.
type IngestResponse struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

// SaveResponse reports where the index was persisted.
type SaveResponse struct {
	Path      string `json:"path"`
	Documents int    `json:"documents"`
}

// StatusResponse describes the index and ingestion ledger.
type StatusResponse struct {
	Documents      int            `json:"documents"`
	Vectors        int            `json:"vectors"`
	IndexType      string         `json:"index_type"`
	Dimensions     int            `json:"dimensions"`
	Sources        int64          `json:"sources"`
	SourceChunks   int64          `json:"source_chunks"`
	DiskUsageBytes int64          `json:"disk_usage_bytes"`
	WebSearch      bool           `json:"web_search"`
	Config         map[string]any `json:"config,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
