package search

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/corpus"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/params"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

// CorpusIndex is the read-only corpus snapshot the scorer works against.
type CorpusIndex interface {
	Ensure(ctx context.Context)
	Documents() []corpus.IndexedDocument
	Statistics() corpus.Statistics
}

// Analyzer classifies queries and derives retrieval parameters. It never
// fails; degraded analysis returns default parameters.
type Analyzer interface {
	Analyze(ctx context.Context, query string, history []string) (domain.QueryAnalysis, params.Params)
}

// Reranker reorders candidates by an externally computed relevance score.
// Total by contract: it always returns min(topK, len(candidates)) items.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []result.Result, topK int, includeExplanations bool) []result.Result
}

// Expander produces query variants (an external collaborator; optional).
type Expander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}
