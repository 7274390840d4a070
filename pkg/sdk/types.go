package kbsearch

// SearchFilters restricts candidates by document metadata.
type SearchFilters struct {
	Categories        []string `json:"categories,omitempty"`
	StrictCategories  bool     `json:"strictCategories,omitempty"`
	TechnicalLevelMin int      `json:"technicalLevelMin,omitempty"`
	TechnicalLevelMax int      `json:"technicalLevelMax,omitempty"`
	Entities          []string `json:"entities,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	UpdatedAfter      string   `json:"updatedAfter,omitempty"` // RFC3339 or YYYY-MM-DD
}

// SearchRequest is the POST /v1/search request body. Zero-valued optional
// fields are omitted and the server applies its defaults.
type SearchRequest struct {
	Query               string         `json:"query"`
	TopK                *int           `json:"topK,omitempty"`
	Limit               *int           `json:"limit,omitempty"`
	Rerank              *bool          `json:"rerank,omitempty"`
	IncludeExplanations bool           `json:"includeExplanations,omitempty"`
	History             []string       `json:"history,omitempty"`
	Filters             *SearchFilters `json:"filters,omitempty"`
}

// SearchResult is one ranked document.
type SearchResult struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Score       float64        `json:"score"`
	VectorScore float64        `json:"vectorScore"`
	BM25Score   float64        `json:"bm25Score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

// Timing reports per-stage latency in milliseconds.
type Timing struct {
	AnalyzeMs  int64 `json:"analyzeMs"`
	EmbedMs    int64 `json:"embedMs"`
	RetrieveMs int64 `json:"retrieveMs"`
	RerankMs   int64 `json:"rerankMs"`
	TotalMs    int64 `json:"totalMs"`
}

// SearchResponse is the ranked result list with pipeline diagnostics.
type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	Explanation string         `json:"explanation,omitempty"`
	Timing      Timing         `json:"timing"`
}

// Health is the GET /health response.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for optional request fields.
func Bool(v bool) *bool { return &v }
