// Package corpusfile loads the corpus and its statistics from JSON files
// produced by the (external) ingestion step.
package corpusfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/corpus"
	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// Statistics file names, co-located in the statistics directory.
const (
	termFrequenciesFile = "term_frequencies.json"
	documentCountFile   = "document_count.json"
	avgDocLengthFile    = "avg_doc_length.json"
)

// Loader reads corpus files from disk. It implements corpus.Loader.
type Loader struct {
	documentsPath string
	statsDir      string
	logger        *zap.Logger
}

var _ corpus.Loader = (*Loader)(nil)

// New creates a file-backed corpus loader.
func New(documentsPath, statsDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{documentsPath: documentsPath, statsDir: statsDir, logger: logger}
}

// LoadDocuments reads the corpus file and normalizes any of the three
// historical container shapes (bare array, {items}, {batches of items}) into
// a flat document list.
func (l *Loader) LoadDocuments(_ context.Context) ([]domain.Document, error) {
	data, err := os.ReadFile(filepath.Clean(l.documentsPath))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", l.documentsPath, err)
	}

	dtos, err := decodeContainer(data)
	if err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", l.documentsPath, err)
	}

	docs := make([]domain.Document, 0, len(dtos))
	for _, d := range dtos {
		docs = append(docs, domain.Document{
			ID:        d.ID,
			Text:      d.Text,
			Embedding: d.Embedding,
			Metadata:  d.Metadata,
		})
	}
	return docs, nil
}

// LoadStatistics reads the three co-located statistics files. The average
// document length file is optional; a missing one is derived as 0 (BM25 then
// skips length normalization).
func (l *Loader) LoadStatistics(_ context.Context) (corpus.Statistics, error) {
	termDF, err := l.loadTermFrequencies()
	if err != nil {
		return corpus.Statistics{}, err
	}

	count, err := l.loadDocumentCount()
	if err != nil {
		return corpus.Statistics{}, err
	}

	avgLen, err := l.loadAvgDocLength()
	if err != nil {
		l.logger.Warn("Average document length file unreadable, defaulting to 0", zap.Error(err))
		avgLen = 0
	}

	return corpus.NewStatistics(termDF, count, avgLen), nil
}

// decodeContainer detects the corpus container shape and flattens it.
func decodeContainer(data []byte) ([]documentDTO, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty corpus file")
	}

	// Shape 1: bare array.
	if trimmed[0] == '[' {
		var dtos []documentDTO
		if err := json.Unmarshal(trimmed, &dtos); err != nil {
			return nil, fmt.Errorf("bare array shape: %w", err)
		}
		return dtos, nil
	}

	var container containerDTO
	if err := json.Unmarshal(trimmed, &container); err != nil {
		return nil, fmt.Errorf("object shape: %w", err)
	}

	// Shape 2: {"items": [...]}.
	if container.Items != nil {
		return container.Items, nil
	}

	// Shape 3: {"batches": [{"items": [...]}, ...]}.
	if container.Batches != nil {
		var flat []documentDTO
		for _, b := range container.Batches {
			flat = append(flat, b.Items...)
		}
		return flat, nil
	}

	return nil, fmt.Errorf("unrecognized corpus container shape")
}

func (l *Loader) loadTermFrequencies() (map[string]int, error) {
	path := filepath.Join(l.statsDir, termFrequenciesFile)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var termDF map[string]int
	if err := json.Unmarshal(data, &termDF); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return termDF, nil
}

func (l *Loader) loadDocumentCount() (int, error) {
	path := filepath.Join(l.statsDir, documentCountFile)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if n, err := strconv.Atoi(string(trimmed)); err == nil {
		return n, nil
	}
	var dto countDTO
	if err := json.Unmarshal(trimmed, &dto); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return dto.DocumentCount, nil
}

func (l *Loader) loadAvgDocLength() (float64, error) {
	path := filepath.Join(l.statsDir, avgDocLengthFile)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if f, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return f, nil
	}
	var dto avgLengthDTO
	if err := json.Unmarshal(trimmed, &dto); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return dto.AvgDocLength, nil
}
