package chi

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/kbsearch/internal/usecase/search"
)

// Error codes returned in the error response body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeRateLimited      = "rate_limited"
	codeEmbeddingError   = "embedding_provider_error"
	codeChatError        = "chat_provider_error"
	codeCorpusError      = "corpus_unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchFiltersDTO struct {
	Categories        []string `json:"categories,omitempty"`
	StrictCategories  bool     `json:"strictCategories,omitempty"`
	TechnicalLevelMin int      `json:"technicalLevelMin,omitempty"`
	TechnicalLevelMax int      `json:"technicalLevelMax,omitempty"`
	Entities          []string `json:"entities,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	UpdatedAfter      string   `json:"updatedAfter,omitempty"`
}

type searchRequestDTO struct {
	Query               string            `json:"query"`
	TopK                *int              `json:"topK,omitempty"`
	Limit               *int              `json:"limit,omitempty"`
	Rerank              *bool             `json:"rerank,omitempty"`
	IncludeExplanations bool              `json:"includeExplanations,omitempty"`
	History             []string          `json:"history,omitempty"`
	Filters             *searchFiltersDTO `json:"filters,omitempty"`
}

type searchResultDTO struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Score       float64        `json:"score"`
	VectorScore float64        `json:"vectorScore"`
	BM25Score   float64        `json:"bm25Score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

type timingDTO struct {
	AnalyzeMs  int64 `json:"analyzeMs"`
	EmbedMs    int64 `json:"embedMs"`
	RetrieveMs int64 `json:"retrieveMs"`
	RerankMs   int64 `json:"rerankMs"`
	TotalMs    int64 `json:"totalMs"`
}

type searchResponseDTO struct {
	Results     []searchResultDTO `json:"results"`
	Explanation string            `json:"explanation,omitempty"`
	Timing      timingDTO         `json:"timing"`
}

type healthResponseDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// searchRequestFromDTO validates the wire request and builds the domain one.
func searchRequestFromDTO(dto searchRequestDTO) (request.Request, error) {
	// Validate explicitly provided parameters (absent means "use defaults").
	if dto.TopK != nil {
		if *dto.TopK <= 0 || *dto.TopK > request.MaxTopK {
			return request.Request{}, fmt.Errorf("topK must be between 1 and %d", request.MaxTopK)
		}
	}
	if dto.Limit != nil {
		if *dto.Limit <= 0 || *dto.Limit > request.MaxLimit {
			return request.Request{}, fmt.Errorf("limit must be between 1 and %d", request.MaxLimit)
		}
	}

	f, err := filterFromDTO(dto.Filters)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse filters: %w", err)
	}

	rerank := true
	if dto.Rerank != nil {
		rerank = *dto.Rerank
	}

	r, err := request.New(
		dto.Query,
		derefInt(dto.TopK),
		derefInt(dto.Limit),
		rerank,
		dto.IncludeExplanations,
		dto.History,
		f,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

func filterFromDTO(dto *searchFiltersDTO) (*filter.Filter, error) {
	if dto == nil {
		return nil, nil
	}

	b := filter.NewBuilder()
	if len(dto.Categories) > 0 {
		b.Categories(dto.Categories, dto.StrictCategories)
	}
	if dto.TechnicalLevelMin != 0 || dto.TechnicalLevelMax != 0 {
		b.TechnicalLevelRange(dto.TechnicalLevelMin, dto.TechnicalLevelMax)
	}
	if len(dto.Entities) > 0 {
		b.RequireEntities(dto.Entities)
	}
	if len(dto.Keywords) > 0 {
		b.RequireKeywords(dto.Keywords)
	}
	if dto.UpdatedAfter != "" {
		t, err := parseDate(dto.UpdatedAfter)
		if err != nil {
			return nil, fmt.Errorf("updatedAfter: %w", err)
		}
		b.UpdatedAfter(t)
	}

	f, err := b.Build()
	if err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, nil
	}
	return &f, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want RFC3339 or YYYY-MM-DD)", s)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func searchResultToDTO(r *result.Result) searchResultDTO {
	doc := r.Document()
	return searchResultDTO{
		ID:          r.ID(),
		Text:        doc.Text,
		Score:       r.Score(),
		VectorScore: r.VectorScore(),
		BM25Score:   r.BM25Score(),
		Metadata:    doc.Metadata,
		Explanation: r.Explanation(),
	}
}

func searchResponseToDTO(resp *searchuc.Response) searchResponseDTO {
	items := make([]searchResultDTO, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultToDTO(&resp.Results[i])
	}
	return searchResponseDTO{
		Results:     items,
		Explanation: resp.Explanation,
		Timing: timingDTO{
			AnalyzeMs:  resp.Timing.Analyze.Milliseconds(),
			EmbedMs:    resp.Timing.Embed.Milliseconds(),
			RetrieveMs: resp.Timing.Retrieve.Milliseconds(),
			RerankMs:   resp.Timing.Rerank.Milliseconds(),
			TotalMs:    resp.Timing.Total.Milliseconds(),
		},
	}
}
