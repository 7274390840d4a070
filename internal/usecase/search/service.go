// Package search implements hybrid retrieval: score fusion over vector and
// lexical signals, metadata filtering with a fallback cascade, and the
// pipeline orchestration around them.
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
	"github.com/kailas-cloud/kbsearch/internal/textproc"
)

// Timing collects per-stage durations for one request.
type Timing struct {
	Analyze  time.Duration
	Embed    time.Duration
	Retrieve time.Duration
	Rerank   time.Duration
	Total    time.Duration
}

// Response is the final ranked result list with pipeline diagnostics.
type Response struct {
	Results     []result.Result
	Explanation string
	Timing      Timing
}

// Service orchestrates the retrieval pipeline:
// analyze → (expand) → hybrid search → rerank.
type Service struct {
	index    CorpusIndex
	embedder domain.Embedder
	analyzer Analyzer
	reranker Reranker
	expander Expander
	company  string
	logger   *zap.Logger
}

// New creates the search service. reranker and expander may be nil; the
// corresponding stages are then skipped.
func New(
	index CorpusIndex,
	embedder domain.Embedder,
	analyzer Analyzer,
	reranker Reranker,
	companyName string,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		index:    index,
		embedder: embedder,
		analyzer: analyzer,
		reranker: reranker,
		company:  strings.ToLower(strings.TrimSpace(companyName)),
		logger:   log,
	}
}

// WithExpander attaches an optional query expander.
func (s *Service) WithExpander(e Expander) *Service {
	s.expander = e
	return s
}

// Search executes the full pipeline. Anticipated failures (embedding or LLM
// errors, missing corpus files) are absorbed by the owning stage; an empty
// result list is a valid outcome, not an error.
func (s *Service) Search(ctx context.Context, req *request.Request) (*Response, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	log := logger.FromContext(ctx)
	start := time.Now()
	var timing Timing

	s.index.Ensure(ctx)
	docs := s.index.Documents()

	// Analyze.
	stageStart := time.Now()
	analysis, p := s.analyzer.Analyze(ctx, req.Query(), req.History())
	timing.Analyze = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("analyze").Observe(timing.Analyze.Seconds())

	// An explicit caller filter overrides the derived one.
	if req.Filter() != nil {
		p.Filter = req.Filter()
	}

	qc := &queryContext{
		tokens:   textproc.Tokenize(req.Query()),
		analysis: analysis,
		params:   p,
		company:  s.company,
		stats:    s.index.Statistics(),
	}

	// Expand (external collaborator; best effort).
	if p.ExpandQuery && s.expander != nil {
		if variants, err := s.expander.Expand(ctx, req.Query()); err != nil {
			log.Debug("Query expansion unavailable", zap.Error(err))
		} else {
			qc.tokens = appendVariantTokens(qc.tokens, variants)
		}
	}

	// Embed the query. Failure degrades vector scoring to its text stand-in
	// rather than failing the search.
	stageStart = time.Now()
	if s.embedder != nil {
		embResult, err := s.embedder.Embed(ctx, req.Query())
		if err != nil {
			log.Warn("Query embedding failed, vector scoring degraded", zap.Error(err))
		} else {
			qc.embedding = embResult.Embedding
		}
	}
	timing.Embed = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("embed").Observe(timing.Embed.Seconds())

	// Hybrid search with the fallback cascade.
	stageStart = time.Now()
	outcome := runCascade(qc, docs, req.TopK())
	timing.Retrieve = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("retrieve").Observe(timing.Retrieve.Seconds())
	metrics.SearchFallbackTotal.WithLabelValues(outcome.tier).Inc()

	results := outcome.results

	// Rerank.
	stageStart = time.Now()
	if p.Rerank && req.Rerank() && s.reranker != nil && len(results) > 1 {
		results = s.reranker.Rerank(ctx, req.Query(), results, req.Limit(), req.IncludeExplanations())
	} else {
		metrics.RerankTotal.WithLabelValues("skipped").Inc()
		if len(results) > req.Limit() {
			results = results[:req.Limit()]
		}
	}
	timing.Rerank = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("rerank").Observe(timing.Rerank.Seconds())

	timing.Total = time.Since(start)

	resp := &Response{
		Results:     results,
		Explanation: explain(outcome, len(docs)),
		Timing:      timing,
	}

	log.Info("search_completed",
		zap.String("intent", string(analysis.Intent)),
		zap.String("tier", outcome.tier),
		zap.Int("results", len(results)),
		zap.Duration("total", timing.Total),
	)

	return resp, nil
}

// explain produces the caller-facing note on how the result set was obtained.
func explain(outcome cascadeOutcome, corpusSize int) string {
	switch outcome.tier {
	case tierCompany:
		return "results include company-related documents outside the requested filters"
	case tierUnfiltered:
		return "no documents matched the filters; returning best text-overlap matches instead"
	case tierEmpty:
		if corpusSize == 0 {
			return "the corpus is empty"
		}
		return "no results"
	default:
		return ""
	}
}

// appendVariantTokens merges tokens from expansion variants, deduplicated
// against the original query tokens.
func appendVariantTokens(tokens []string, variants []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	for _, v := range variants {
		for _, t := range textproc.Tokenize(v) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tokens = append(tokens, t)
		}
	}
	return tokens
}
