package search

import (
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/corpus"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/params"
	"github.com/kailas-cloud/kbsearch/internal/textproc"
)

// indexDoc builds an IndexedDocument the way corpus.Index does at load time.
func indexDoc(id, text string, embedding []float32, metadata map[string]any) corpus.IndexedDocument {
	freq, length := textproc.TermFrequencies(text)
	return corpus.IndexedDocument{
		Doc:      domain.Document{ID: id, Text: text, Embedding: embedding, Metadata: metadata},
		TermFreq: freq,
		Length:   length,
	}
}

// statsFor derives corpus statistics from the given documents, mirroring what
// the external ingestion step would produce.
func statsFor(docs []corpus.IndexedDocument) corpus.Statistics {
	termDF := map[string]int{}
	total := 0
	for _, d := range docs {
		total += d.Length
		for term := range d.TermFreq {
			termDF[term]++
		}
	}
	avg := 0.0
	if len(docs) > 0 {
		avg = float64(total) / float64(len(docs))
	}
	return corpus.NewStatistics(termDF, len(docs), avg)
}

func queryCtx(query string, analysis domain.QueryAnalysis, docs []corpus.IndexedDocument) *queryContext {
	p := params.Defaults()
	return &queryContext{
		tokens:   textproc.Tokenize(query),
		analysis: analysis,
		params:   p,
		company:  "workstream",
		stats:    statsFor(docs),
	}
}

func TestScoreDocument_PricingScenario(t *testing.T) {
	docs := []corpus.IndexedDocument{
		indexDoc("pricing", "pricing tiers start at $49/month for small teams", nil, nil),
		indexDoc("d1", "the weather in san francisco is mild", nil, nil),
		indexDoc("d2", "employee onboarding checklists reduce churn", nil, nil),
		indexDoc("d3", "restaurants often struggle with turnover", nil, nil),
		indexDoc("d4", "text messaging reaches hourly applicants faster", nil, nil),
		indexDoc("d5", "shift scheduling conflicts frustrate managers", nil, nil),
		indexDoc("d6", "tax forms must be collected before day one", nil, nil),
		indexDoc("d7", "referral programs drive quality applicants", nil, nil),
		indexDoc("d8", "interview no-shows waste recruiter time", nil, nil),
		indexDoc("d9", "job boards syndicate postings automatically", nil, nil),
	}
	qc := queryCtx("What are the pricing tiers?", domain.QueryAnalysis{Intent: domain.IntentProduct}, docs)

	included, _ := filteredSearch(qc, docs)
	sortByScore(included)

	if len(included) == 0 {
		t.Fatal("no documents passed the inclusion threshold")
	}

	rank := -1
	for i := range included {
		if included[i].ID() == "pricing" {
			rank = i
			break
		}
	}
	if rank < 0 || rank > 2 {
		t.Fatalf("pricing doc rank = %d, want within top-3", rank)
	}
	for i := range included {
		if included[i].ID() == "pricing" && included[i].Score() <= inclusionThresholdDefault {
			t.Errorf("pricing doc score = %f, want > %f", included[i].Score(), inclusionThresholdDefault)
		}
	}
}

func TestScoreDocument_Deterministic(t *testing.T) {
	docs := []corpus.IndexedDocument{
		indexDoc("a", "workstream automates hiring for hourly teams", []float32{0.5, 0.5}, nil),
	}
	qc := queryCtx("hiring automation", domain.QueryAnalysis{Intent: domain.IntentGeneral}, docs)
	qc.embedding = []float32{0.6, 0.4}

	first, ok1 := scoreDocument(qc, &docs[0])
	second, ok2 := scoreDocument(qc, &docs[0])
	if ok1 != ok2 || first.Score() != second.Score() {
		t.Errorf("scoring is not deterministic: %f vs %f", first.Score(), second.Score())
	}
	if first.VectorScore() < -1 || first.VectorScore() > 1 {
		t.Errorf("vector score %f outside [-1,1]", first.VectorScore())
	}
}

func TestScoreDocument_MissingEmbeddingStandIn(t *testing.T) {
	docs := []corpus.IndexedDocument{
		indexDoc("noemb", "pricing details for the hiring platform", nil, nil),
	}
	qc := queryCtx("pricing platform", domain.QueryAnalysis{Intent: domain.IntentGeneral}, docs)
	qc.embedding = []float32{1, 0}

	res, included := scoreDocument(qc, &docs[0])
	if !included {
		t.Fatal("un-embedded document with strong text overlap should be included")
	}
	if res.VectorScore() <= 0 {
		t.Errorf("VectorScore = %f, want text-derived stand-in > 0", res.VectorScore())
	}
	if res.VectorScore() > missingEmbeddingFactor*coverageCap+missingEmbeddingFactor*companyNameBonus {
		t.Errorf("VectorScore = %f, stand-in exceeds its cap", res.VectorScore())
	}
}

func TestScoreDocument_ForceIncludeCompanyIdentity(t *testing.T) {
	docs := []corpus.IndexedDocument{
		indexDoc("hq", "workstream is headquartered in san francisco", nil, nil),
	}
	analysis := domain.QueryAnalysis{Intent: domain.IntentCompanyIdentity}
	qc := queryCtx("what is your mission", analysis, docs)

	res, included := scoreDocument(qc, &docs[0])
	if !included {
		t.Fatal("company-identity query must force-include documents naming the company")
	}
	if res.Score() < forceIncludeFloor {
		t.Errorf("Score = %f, want floored at %f", res.Score(), forceIncludeFloor)
	}
}

func TestScoreDocument_ThresholdExcludesNoise(t *testing.T) {
	docs := []corpus.IndexedDocument{
		indexDoc("noise", "completely unrelated gardening advice", nil, nil),
		indexDoc("hit", "pricing tiers and plans", nil, nil),
	}
	qc := queryCtx("pricing tiers", domain.QueryAnalysis{Intent: domain.IntentGeneral}, docs)

	if _, included := scoreDocument(qc, &docs[0]); included {
		t.Error("zero-overlap document should fall below the inclusion threshold")
	}
	if _, included := scoreDocument(qc, &docs[1]); !included {
		t.Error("matching document should pass the inclusion threshold")
	}
}

func TestScoreDocument_InvestorPathBoost(t *testing.T) {
	plain := indexDoc("plain", "the company raised a series b round", nil, nil)
	investor := indexDoc("inv", "the company raised a series b round", nil,
		map[string]any{"source": "/investors/press-release"})
	docs := []corpus.IndexedDocument{plain, investor}
	qc := queryCtx("who invested in the series b", domain.QueryAnalysis{Intent: domain.IntentInvestor}, docs)

	plainRes, _ := scoreDocument(qc, &docs[0])
	invRes, _ := scoreDocument(qc, &docs[1])
	if invRes.Score() <= plainRes.Score() {
		t.Errorf("investor-path doc should outscore identical plain doc: %f <= %f",
			invRes.Score(), plainRes.Score())
	}
}

func TestScoreDocument_CategoryBoost(t *testing.T) {
	inCat := indexDoc("a", "pricing plans for teams", nil, map[string]any{"categories": []any{"pricing"}})
	outCat := indexDoc("b", "pricing plans for teams", nil, map[string]any{"categories": []any{"support"}})
	docs := []corpus.IndexedDocument{inCat, outCat}
	analysis := domain.QueryAnalysis{Intent: domain.IntentProduct, PrimaryCategory: "pricing"}
	qc := queryCtx("pricing plans", analysis, docs)

	aRes, _ := scoreDocument(qc, &docs[0])
	bRes, _ := scoreDocument(qc, &docs[1])
	if !aRes.Boost().MatchesCategory {
		t.Error("category match not recorded in boost")
	}
	if aRes.Score() <= bRes.Score() {
		t.Errorf("category-matching doc should score higher: %f <= %f", aRes.Score(), bRes.Score())
	}
}

func TestBasicTextMatch(t *testing.T) {
	doc := indexDoc("d", "pricing tiers for hourly hiring", nil, nil)

	if got := basicTextMatch([]string{"pricing", "tiers"}, &doc); got != 1 {
		t.Errorf("full overlap = %f, want 1", got)
	}
	if got := basicTextMatch([]string{"pricing", "zebra"}, &doc); got != 0.5 {
		t.Errorf("half overlap = %f, want 0.5", got)
	}
	if got := basicTextMatch([]string{"zebra"}, &doc); got != 0 {
		t.Errorf("no overlap = %f, want 0", got)
	}
	if got := basicTextMatch(nil, &doc); got != 0 {
		t.Errorf("empty query = %f, want 0", got)
	}
}
