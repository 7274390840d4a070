// Package params holds the retrieval parameters derived from query analysis.
package params

import "github.com/kailas-cloud/kbsearch/internal/domain/search/filter"

// Default retrieval parameters, used when analysis is unavailable.
const (
	DefaultHybridRatio = 0.5
)

// Params tunes a single hybrid search pass. Derived per request from the
// query analysis or from explicit caller input; never persisted.
type Params struct {
	// HybridRatio is the weight of vector similarity in score fusion,
	// in [0,1]. The remainder goes to BM25.
	HybridRatio float64
	// Filter is the metadata filter to apply; nil means unfiltered.
	Filter *filter.Filter
	// ExpandQuery asks the (external) expander for query variants.
	ExpandQuery bool
	// Rerank enables the LLM reranking pass.
	Rerank bool
}

// Defaults returns the fallback parameters: balanced fusion, no filter,
// reranking on.
func Defaults() Params {
	return Params{
		HybridRatio: DefaultHybridRatio,
		Filter:      nil,
		ExpandQuery: false,
		Rerank:      true,
	}
}

// Clamp normalizes the ratio into [0,1].
func (p *Params) Clamp() {
	if p.HybridRatio < 0 {
		p.HybridRatio = 0
	}
	if p.HybridRatio > 1 {
		p.HybridRatio = 1
	}
}
