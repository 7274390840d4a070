package search

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/corpus"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

// Fallback cascade tier names (metrics labels and explanations).
const (
	tierFiltered   = "filtered"
	tierCompany    = "company_fallback"
	tierUnfiltered = "unfiltered_text"
	tierEmpty      = "empty"
)

// cascadeOutcome is what the fallback cascade produced and how.
type cascadeOutcome struct {
	results []result.Result
	tier    string
}

// runCascade executes the tiered search policy over the corpus snapshot.
// Filters are advisory: each tier is less restrictive than the previous one,
// and an empty final result is a valid terminal state, not an error.
func runCascade(qc *queryContext, docs []corpus.IndexedDocument, limit int) cascadeOutcome {
	included, rejected := filteredSearch(qc, docs)

	sortByScore(included)
	if len(included) > limit {
		included = included[:limit]
	}

	// Tier 2: company-identity queries that under-filled the limit pull in
	// filter-rejected documents that still mention the company or a product.
	tier := tierFiltered
	if qc.analysis.IsCompanyIdentity() && len(included) < limit {
		fill := companyFallback(qc, rejected, limit-len(included), included)
		if len(fill) > 0 {
			included = append(included, fill...)
			tier = tierCompany
		}
	}

	if len(included) > 0 {
		return cascadeOutcome{results: included, tier: tier}
	}

	// Tier 3: a filter was applied and nothing survived. Rescan everything
	// with the filter removed, scored purely by raw term overlap, and return
	// those directly.
	if qc.params.Filter != nil && !qc.params.Filter.IsEmpty() {
		if overlap := textOverlapSearch(qc, docs, limit); len(overlap) > 0 {
			return cascadeOutcome{results: overlap, tier: tierUnfiltered}
		}
	}

	// Tier 4: genuinely nothing. Reported upstream as "no results".
	return cascadeOutcome{tier: tierEmpty}
}

// filteredSearch scores every document that passes the metadata filter and
// collects the rejects for the company fallback tier.
func filteredSearch(qc *queryContext, docs []corpus.IndexedDocument) (included []result.Result, rejected []*corpus.IndexedDocument) {
	f := qc.params.Filter
	for i := range docs {
		doc := &docs[i]
		if f != nil && !f.Matches(&doc.Doc) {
			rejected = append(rejected, doc)
			continue
		}
		if res, ok := scoreDocument(qc, doc); ok {
			included = append(included, res)
		}
	}
	return included, rejected
}

// companyFallback scores filter-rejected documents containing the company
// name or the word "product" by plain term overlap, best first.
func companyFallback(qc *queryContext, rejected []*corpus.IndexedDocument, budget int, already []result.Result) []result.Result {
	if budget <= 0 {
		return nil
	}

	have := make(map[string]struct{}, len(already))
	for i := range already {
		have[already[i].ID()] = struct{}{}
	}

	var candidates []result.Result
	for _, doc := range rejected {
		if _, dup := have[doc.Doc.ID]; dup {
			continue
		}
		lower := strings.ToLower(doc.Doc.Text)
		if qc.company != "" && !strings.Contains(lower, qc.company) &&
			!strings.Contains(lower, "product") {
			continue
		}
		overlap := basicTextMatch(qc.tokens, doc)
		if overlap <= 0 {
			continue
		}
		candidates = append(candidates, result.New(doc.Doc, 0, 0, overlap, result.Boost{}))
	}

	sortByScore(candidates)
	if len(candidates) > budget {
		candidates = candidates[:budget]
	}
	return candidates
}

// textOverlapSearch is the tier-3 full scan: no filter, no fusion, just
// term overlap. Guarantees a non-empty result whenever any document shares at
// least one non-stopword token with the query.
func textOverlapSearch(qc *queryContext, docs []corpus.IndexedDocument, limit int) []result.Result {
	var out []result.Result
	for i := range docs {
		doc := &docs[i]
		overlap := basicTextMatch(qc.tokens, doc)
		if overlap <= 0 {
			continue
		}
		out = append(out, result.New(doc.Doc, 0, 0, overlap, result.Boost{}))
	}
	sortByScore(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sortByScore sorts results by fused score descending, ties broken by
// document ID for deterministic output.
func sortByScore(results []result.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})
}
