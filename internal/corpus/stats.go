// Package corpus holds the in-memory document index and the corpus-level
// statistics used for BM25 scoring.
package corpus

import "math"

// BM25 constants (Okapi variant, standard values).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Statistics holds per-term document frequency, total document count, and
// average document length. Built by an external ingestion step, loaded once
// at startup, and read-only during query serving.
type Statistics struct {
	termDocFreq  map[string]int
	docCount     int
	avgDocLength float64
}

// NewStatistics creates corpus statistics.
func NewStatistics(termDocFreq map[string]int, docCount int, avgDocLength float64) Statistics {
	if termDocFreq == nil {
		termDocFreq = map[string]int{}
	}
	return Statistics{
		termDocFreq:  termDocFreq,
		docCount:     docCount,
		avgDocLength: avgDocLength,
	}
}

// DocumentCount returns the total number of documents the statistics cover.
func (s *Statistics) DocumentCount() int { return s.docCount }

// AvgDocLength returns the average document length in tokens.
func (s *Statistics) AvgDocLength() float64 { return s.avgDocLength }

// DocumentFrequency returns how many documents contain the term.
func (s *Statistics) DocumentFrequency(term string) int { return s.termDocFreq[term] }

// IsEmpty reports whether the statistics carry no corpus at all (missing or
// corrupt statistics files start empty; BM25 then contributes 0).
func (s *Statistics) IsEmpty() bool { return s.docCount == 0 }

// IDF computes ln((N - df + 0.5)/(df + 0.5) + 1) for a term.
// A zero-df term contributes 0 rather than a large negative value; this is a
// deliberate smoothing policy for query terms outside the corpus vocabulary.
func (s *Statistics) IDF(term string) float64 {
	if s.docCount == 0 {
		return 0
	}
	df := s.termDocFreq[term]
	if df == 0 {
		return 0
	}
	n := float64(s.docCount)
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

// BM25 scores a document against the query terms: the sum over query terms
// present in the document of idf(term) * tf' where
// tf' = tf*(k1+1) / (tf + k1*(1 - b + b*docLen/avgDocLen)).
func (s *Statistics) BM25(queryTerms []string, docTermFreq map[string]int, docLength int) float64 {
	if s.docCount == 0 || docLength == 0 || len(docTermFreq) == 0 {
		return 0
	}

	lengthNorm := 1.0
	if s.avgDocLength > 0 {
		lengthNorm = 1 - bm25B + bm25B*float64(docLength)/s.avgDocLength
	}

	var score float64
	for _, term := range queryTerms {
		tf := docTermFreq[term]
		if tf == 0 {
			continue
		}
		idf := s.IDF(term)
		if idf == 0 {
			continue
		}
		tfWeight := float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*lengthNorm)
		score += idf * tfWeight
	}
	return score
}
