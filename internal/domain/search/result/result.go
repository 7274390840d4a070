// Package result holds the per-candidate output of hybrid search.
package result

import "github.com/kailas-cloud/kbsearch/internal/domain"

// Boost records which metadata signals contributed to a candidate's score.
type Boost struct {
	MatchesCategory     bool
	CategoryBoost       float64
	TechnicalLevelMatch bool
}

// Result is a single search hit. Produced per candidate during a request and
// discarded after reranking/response.
type Result struct {
	doc         domain.Document
	vectorScore float64
	bm25Score   float64
	score       float64
	boost       Boost
	explanation string
}

// New creates a search result.
func New(doc domain.Document, vectorScore, bm25Score, score float64, boost Boost) Result {
	return Result{
		doc:         doc,
		vectorScore: vectorScore,
		bm25Score:   bm25Score,
		score:       score,
		boost:       boost,
	}
}

// Document returns the underlying corpus document.
func (r *Result) Document() domain.Document { return r.doc }

// ID returns the document identifier.
func (r *Result) ID() string { return r.doc.ID }

// VectorScore returns the cosine similarity component (or its stand-in).
func (r *Result) VectorScore() float64 { return r.vectorScore }

// BM25Score returns the raw lexical component.
func (r *Result) BM25Score() float64 { return r.bm25Score }

// Score returns the fused relevance score.
func (r *Result) Score() float64 { return r.score }

// Boost returns the metadata boost breakdown.
func (r *Result) Boost() Boost { return r.boost }

// Explanation returns the reranker's relevance explanation, if any.
func (r *Result) Explanation() string { return r.explanation }

// WithScore returns a copy with the fused score replaced (used by reranking).
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}

// WithExplanation returns a copy carrying a reranker explanation.
func (r Result) WithExplanation(explanation string) Result {
	r.explanation = explanation
	return r
}
