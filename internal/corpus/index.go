package corpus

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/textproc"
)

// Loader reads the corpus and its statistics from persistence.
type Loader interface {
	LoadDocuments(ctx context.Context) ([]domain.Document, error)
	LoadStatistics(ctx context.Context) (Statistics, error)
}

// IndexedDocument is a corpus document with its precomputed lexical profile.
type IndexedDocument struct {
	Doc      domain.Document
	TermFreq map[string]int
	Length   int
}

// Index is the process-wide, read-only corpus snapshot. It is loaded lazily
// on first use behind a mutex, so concurrent first requests trigger exactly
// one load. After loading, reads require no locking beyond the guard flag.
type Index struct {
	loader Loader
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	docs   []IndexedDocument
	stats  Statistics
}

// NewIndex creates an unloaded index. Load happens on first Ensure call.
func NewIndex(loader Loader, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{loader: loader, logger: logger}
}

// Ensure loads the corpus and statistics if they are not loaded yet.
// IO failures are logged and leave the index empty; they are never fatal
// (an empty corpus is a valid serving state that yields empty results).
func (ix *Index) Ensure(ctx context.Context) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.loaded {
		return
	}

	docs, err := ix.loader.LoadDocuments(ctx)
	if err != nil {
		ix.logger.Warn("Failed to load corpus, starting empty", zap.Error(err))
		docs = nil
	}

	indexed := make([]IndexedDocument, 0, len(docs))
	skipped := 0
	for _, d := range docs {
		// One bad record must not fail the whole index (or any query).
		if d.ID == "" || d.Text == "" {
			skipped++
			continue
		}
		freq, length := textproc.TermFrequencies(d.Text)
		indexed = append(indexed, IndexedDocument{Doc: d, TermFreq: freq, Length: length})
	}
	if skipped > 0 {
		ix.logger.Warn("Skipped malformed corpus documents", zap.Int("skipped", skipped))
	}

	stats, err := ix.loader.LoadStatistics(ctx)
	if err != nil {
		ix.logger.Warn("Failed to load corpus statistics, starting empty", zap.Error(err))
		stats = NewStatistics(nil, 0, 0)
	}

	ix.docs = indexed
	ix.stats = stats
	ix.loaded = true

	ix.logger.Info("Corpus index loaded",
		zap.Int("documents", len(indexed)),
		zap.Int("stats_documents", stats.DocumentCount()),
		zap.Float64("avg_doc_length", stats.AvgDocLength()),
	)
}

// Documents returns the indexed corpus snapshot. Callers must not mutate it.
func (ix *Index) Documents() []IndexedDocument {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.docs
}

// Statistics returns the corpus statistics snapshot.
func (ix *Index) Statistics() Statistics {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.stats
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.docs)
}

// Loaded reports whether the initial load has completed.
func (ix *Index) Loaded() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.loaded
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0 rather than erroring, so a
// bad query embedding degrades vector scoring instead of failing the search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
