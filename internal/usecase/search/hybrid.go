package search

import (
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/corpus"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/params"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

// Score fusion constants. The whole scorer is recall-biased: false positives
// beat silently empty result sets for company-specific questions.
const (
	// textMatchBoost weights for the heuristic text bonus.
	companyTextBoost = 0.35
	generalTextBoost = 0.15

	// companyNameBonus applies when the company name appears verbatim.
	companyNameBonus = 0.3
	// investorPathBonus applies to /investors source paths on investor queries.
	investorPathBonus = 0.25
	// coverageCap bounds the per-term coverage bonus sum.
	coverageCap = 0.3

	// Inclusion thresholds on the fused score.
	inclusionThresholdDefault = 0.1
	inclusionThresholdProduct = 0.05
	// forceIncludeFloor keeps force-included documents from being lost to
	// sorting below threshold-passing ones.
	forceIncludeFloor = 0.15

	// missingEmbeddingFactor derives a stand-in vector score from text
	// overlap so un-embedded documents are not silently excluded.
	missingEmbeddingFactor = 0.15

	// Metadata boosts.
	categoryBoostValue = 0.1
	levelBoostValue    = 0.05
)

// queryContext carries everything needed to score one document against the
// query. Built once per request.
type queryContext struct {
	tokens    []string
	embedding []float32
	analysis  domain.QueryAnalysis
	params    params.Params
	company   string
	stats     corpus.Statistics
}

// scoreDocument fuses vector similarity, BM25, and heuristic text matching
// into one relevance score. The second return reports inclusion.
func scoreDocument(qc *queryContext, doc *corpus.IndexedDocument) (result.Result, bool) {
	textMatch := textMatchScore(qc, doc)

	vectorScore := 0.0
	if doc.Doc.HasEmbedding() && len(qc.embedding) > 0 {
		vectorScore = corpus.CosineSimilarity(qc.embedding, doc.Doc.Embedding)
	} else {
		vectorScore = missingEmbeddingFactor * textMatch
	}

	bm25 := qc.stats.BM25(qc.tokens, doc.TermFreq, doc.Length)
	// Fusion uses a squashed BM25 so both signals share the [0,1) scale; the
	// raw value is kept on the result for explanations.
	bm25Fused := bm25 / (bm25 + 1)

	ratio := qc.params.HybridRatio
	textBoost := generalTextBoost
	if qc.analysis.IsCompanyIdentity() {
		textBoost = companyTextBoost
		if textMatch >= companyNameBonus {
			// A strong verbatim match on a company-identity query shifts
			// weight toward the lexical side.
			ratio *= 0.5
		}
	}

	score := vectorScore*ratio + bm25Fused*(1-ratio) + textMatch*textBoost

	boost := metadataBoost(qc, doc)
	if boost.MatchesCategory {
		score += boost.CategoryBoost
	}
	if boost.TechnicalLevelMatch {
		score += levelBoostValue
	}

	threshold := inclusionThresholdDefault
	if qc.analysis.IsProduct() {
		threshold = inclusionThresholdProduct
	}

	included := score > threshold
	if forceInclude(qc, doc, textMatch) {
		included = true
		if score < forceIncludeFloor {
			score = forceIncludeFloor
		}
	}

	return result.New(doc.Doc, vectorScore, bm25, score, boost), included
}

// textMatchScore is the heuristic text bonus: verbatim company-name hits,
// query-term coverage (longer and rarer terms weigh more), and intent
// specific source-path signals.
func textMatchScore(qc *queryContext, doc *corpus.IndexedDocument) float64 {
	var score float64

	lowerText := strings.ToLower(doc.Doc.Text)
	if qc.company != "" && strings.Contains(lowerText, qc.company) {
		score += companyNameBonus
	}

	var coverage float64
	seen := make(map[string]struct{}, len(qc.tokens))
	for _, term := range qc.tokens {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if doc.TermFreq[term] == 0 {
			continue
		}
		w := 0.01 * float64(len(term))
		if w > 0.05 {
			w = 0.05
		}
		// Rarer terms weigh more.
		w *= 1 + qc.stats.IDF(term)/4
		coverage += w
	}
	if coverage > coverageCap {
		coverage = coverageCap
	}
	score += coverage

	if qc.analysis.Intent == domain.IntentInvestor &&
		strings.Contains(strings.ToLower(doc.Doc.Source()), "/investors") {
		score += investorPathBonus
	}

	return score
}

// forceInclude keeps company-identity matches regardless of threshold: a
// document mentioning the company with any text match must survive for
// company-specific questions.
func forceInclude(qc *queryContext, doc *corpus.IndexedDocument, textMatch float64) bool {
	if !qc.analysis.IsCompanyIdentity() || qc.company == "" || textMatch <= 0 {
		return false
	}
	return strings.Contains(strings.ToLower(doc.Doc.Text), qc.company)
}

// metadataBoost derives additive boosts from document metadata.
func metadataBoost(qc *queryContext, doc *corpus.IndexedDocument) result.Boost {
	var b result.Boost

	if qc.analysis.PrimaryCategory != "" {
		for _, c := range doc.Doc.Categories() {
			if c == qc.analysis.PrimaryCategory {
				b.MatchesCategory = true
				b.CategoryBoost = categoryBoostValue
				break
			}
		}
	}

	if level, ok := doc.Doc.TechnicalLevel(); ok {
		diff := level - qc.analysis.TechnicalLevel
		if diff < 0 {
			diff = -diff
		}
		b.TechnicalLevelMatch = diff <= 2
	}

	return b
}

// basicTextMatch is the raw term-overlap score used by the fallback tiers:
// the fraction of unique query terms present in the document.
func basicTextMatch(queryTokens []string, doc *corpus.IndexedDocument) float64 {
	if len(queryTokens) == 0 || len(doc.TermFreq) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(queryTokens))
	matched := 0
	for _, term := range queryTokens {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if doc.TermFreq[term] > 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}
