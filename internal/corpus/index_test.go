package corpus

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

type mockLoader struct {
	mu        sync.Mutex
	docs      []domain.Document
	docsErr   error
	stats     Statistics
	statsErr  error
	loadCalls int
}

func (m *mockLoader) LoadDocuments(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()
	return m.docs, m.docsErr
}

func (m *mockLoader) LoadStatistics(_ context.Context) (Statistics, error) {
	return m.stats, m.statsErr
}

func TestIndex_EnsureLoadsOnce(t *testing.T) {
	loader := &mockLoader{
		docs: []domain.Document{
			{ID: "a", Text: "hiring workflow automation"},
			{ID: "b", Text: "payroll for hourly teams"},
		},
		stats: NewStatistics(map[string]int{"hiring": 1}, 2, 3),
	}
	ix := NewIndex(loader, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ix.Ensure(context.Background())
		}()
	}
	wg.Wait()

	if loader.loadCalls != 1 {
		t.Errorf("loadCalls = %d, want 1", loader.loadCalls)
	}
	if ix.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ix.Len())
	}
	if !ix.Loaded() {
		t.Error("Loaded() = false")
	}
}

func TestIndex_LoaderErrorStartsEmpty(t *testing.T) {
	loader := &mockLoader{
		docsErr:  errors.New("corpus file missing"),
		statsErr: errors.New("stats file missing"),
	}
	ix := NewIndex(loader, nil)
	ix.Ensure(context.Background())

	if !ix.Loaded() {
		t.Error("index should report loaded even when files are missing")
	}
	if ix.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ix.Len())
	}
	stats := ix.Statistics()
	if !stats.IsEmpty() {
		t.Error("statistics should start empty on load failure")
	}
}

func TestIndex_SkipsMalformedDocuments(t *testing.T) {
	loader := &mockLoader{
		docs: []domain.Document{
			{ID: "ok", Text: "valid document"},
			{ID: "", Text: "no id"},
			{ID: "empty", Text: ""},
		},
	}
	ix := NewIndex(loader, nil)
	ix.Ensure(context.Background())

	if ix.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (malformed records skipped)", ix.Len())
	}
	docs := ix.Documents()
	if docs[0].Doc.ID != "ok" {
		t.Errorf("surviving doc = %q, want %q", docs[0].Doc.ID, "ok")
	}
	if docs[0].Length != 2 {
		t.Errorf("doc length = %d, want 2", docs[0].Length)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"dimension mismatch", []float32{1, 2, 3}, []float32{1, 2}, 0},
		{"empty query", nil, []float32{1, 2}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{-0.1, 0.5, 0.8, -0.4}
	got := CosineSimilarity(a, b)
	if got < -1 || got > 1 {
		t.Errorf("CosineSimilarity() = %f, outside [-1,1]", got)
	}
}
