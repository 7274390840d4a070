// Package request holds the validated search request.
package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
)

// Search parameter limits.
const (
	MaxQueryLength = 2048
	DefaultTopK    = 20
	MaxTopK        = 50
	DefaultLimit   = 10
	MaxLimit       = 50
	MaxHistory     = 20
)

// Request is a validated search query.
type Request struct {
	query               string
	topK                int
	limit               int
	rerank              bool
	includeExplanations bool
	history             []string
	filter              *filter.Filter
}

// New validates and normalizes search parameters.
// Defaults: topK=20 candidates, limit=10 results, rerank on. Limit is clamped
// to topK. An explicit filter overrides the one derived from query analysis.
func New(
	query string,
	topK, limit int,
	rerank, includeExplanations bool,
	history []string,
	f *filter.Filter,
) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if limit > topK {
		limit = topK
	}
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}

	return Request{
		query:               query,
		topK:                topK,
		limit:               limit,
		rerank:              rerank,
		includeExplanations: includeExplanations,
		history:             history,
		filter:              f,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of hybrid-search candidates to retrieve.
func (r *Request) TopK() int { return r.topK }

// Limit returns the maximum results to return after reranking.
func (r *Request) Limit() int { return r.limit }

// Rerank reports whether the caller allows the LLM reranking pass.
func (r *Request) Rerank() bool { return r.rerank }

// IncludeExplanations reports whether reranker explanations were requested.
func (r *Request) IncludeExplanations() bool { return r.includeExplanations }

// History returns prior conversation turns, oldest first.
func (r *Request) History() []string { return r.history }

// Filter returns the caller-supplied metadata filter (nil if none).
func (r *Request) Filter() *filter.Filter { return r.filter }
