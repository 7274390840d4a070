package rerank

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
)

type mockChat struct {
	content string
	err     error
	block   bool
	calls   int
}

func (m *mockChat) Complete(ctx context.Context, _ domain.ChatRequest) (string, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.content, m.err
}

func candidate(id string, score float64, metadata map[string]any) result.Result {
	doc := domain.Document{ID: id, Text: "passage " + id, Metadata: metadata}
	return result.New(doc, 0, 0, score, result.Boost{})
}

func candidateList(n int) []result.Result {
	out := make([]result.Result, n)
	for i := range out {
		out[i] = candidate(fmt.Sprintf("doc-%d", i), 0.5-float64(i)*0.05, nil)
	}
	return out
}

func assertTotality(t *testing.T, got, input []result.Result, topK int) {
	t.Helper()
	want := topK
	if len(input) < topK {
		want = len(input)
	}
	if len(got) != want {
		t.Fatalf("len = %d, want %d", len(got), want)
	}
	inputIDs := make(map[string]struct{}, len(input))
	for i := range input {
		inputIDs[input[i].ID()] = struct{}{}
	}
	seen := make(map[string]struct{}, len(got))
	for i := range got {
		id := got[i].ID()
		if _, ok := inputIDs[id]; !ok {
			t.Errorf("result %q not drawn from the input set", id)
		}
		if _, dup := seen[id]; dup {
			t.Errorf("duplicate result %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRerank_AppliesLLMScores(t *testing.T) {
	chat := &mockChat{content: `[{"resultId": 1, "score": 9}, {"resultId": 0, "score": 3}]`}
	svc := New(chat, "judge-model", time.Second, nil)
	input := candidateList(2)

	got := svc.Rerank(context.Background(), "pricing tiers", input, 2, false)

	if chat.calls != 1 {
		t.Fatalf("chat calls = %d, want 1", chat.calls)
	}
	assertTotality(t, got, input, 2)
	if got[0].ID() != "doc-1" {
		t.Errorf("top result = %q, want doc-1 (score 9)", got[0].ID())
	}
	if got[0].Score() != 0.9 {
		t.Errorf("top score = %f, want 0.9 (normalized from 9/10)", got[0].Score())
	}
}

func TestRerank_Totality(t *testing.T) {
	// The model scores only two of five candidates; the output must still hold
	// exactly topK unique items drawn from the input.
	chat := &mockChat{content: `[{"resultId": 4, "score": 10}, {"resultId": 2, "score": 6}]`}
	svc := New(chat, "", time.Second, nil)
	input := candidateList(5)

	got := svc.Rerank(context.Background(), "query", input, 4, false)

	assertTotality(t, got, input, 4)
	if got[0].ID() != "doc-4" || got[1].ID() != "doc-2" {
		t.Errorf("scored candidates should lead: %q, %q", got[0].ID(), got[1].ID())
	}
}

func TestRerank_TimeoutFallsBack(t *testing.T) {
	chat := &mockChat{block: true}
	svc := New(chat, "", 50*time.Millisecond, nil)
	input := candidateList(4)

	start := time.Now()
	got := svc.Rerank(context.Background(), "query", input, 3, false)
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("returned after %v, want within the timeout plus slack", elapsed)
	}
	assertTotality(t, got, input, 3)
	// No visual markers and no visual query: the original order survives.
	if got[0].ID() != "doc-0" {
		t.Errorf("fallback order changed: top = %q", got[0].ID())
	}
}

func TestRerank_MalformedResponseFallsBack(t *testing.T) {
	chat := &mockChat{content: "I think the first passage answers this best, followed by the third."}
	svc := New(chat, "", time.Second, nil)
	input := candidateList(5)

	got := svc.Rerank(context.Background(), "query", input, 5, false)
	assertTotality(t, got, input, 5)
}

func TestRerank_ProviderErrorFallsBack(t *testing.T) {
	chat := &mockChat{err: errors.New("rate limited")}
	svc := New(chat, "", time.Second, nil)
	input := candidateList(3)

	got := svc.Rerank(context.Background(), "query", input, 2, false)
	assertTotality(t, got, input, 2)
}

func TestRerank_OutOfRangeResultID(t *testing.T) {
	chat := &mockChat{content: `[{"resultId": 99, "score": 8}, {"resultId": -1, "score": 5}, {"resultId": 1, "score": 2}]`}
	svc := New(chat, "", time.Second, nil)
	input := candidateList(3)

	// Both invalid indices degrade to candidate 0; the duplicate is dropped.
	got := svc.Rerank(context.Background(), "query", input, 3, false)
	assertTotality(t, got, input, 3)
	if got[0].ID() != "doc-0" || got[0].Score() != 0.8 {
		t.Errorf("top = %q score %f, want doc-0 at 0.8", got[0].ID(), got[0].Score())
	}
}

func TestRerank_Explanations(t *testing.T) {
	chat := &mockChat{content: `[{"resultId": 0, "score": 9, "explanation": "states the tiers directly"}]`}
	input := candidateList(2)

	svc := New(chat, "", time.Second, nil)
	got := svc.Rerank(context.Background(), "pricing", input, 1, true)
	if got[0].Explanation() != "states the tiers directly" {
		t.Errorf("Explanation = %q", got[0].Explanation())
	}

	chat.calls = 0
	got = svc.Rerank(context.Background(), "pricing", input, 1, false)
	if got[0].Explanation() != "" {
		t.Errorf("explanations not requested but got %q", got[0].Explanation())
	}
}

func TestRerank_ScoreClamped(t *testing.T) {
	chat := &mockChat{content: `[{"resultId": 0, "score": 25}, {"resultId": 1, "score": -4}]`}
	svc := New(chat, "", time.Second, nil)
	input := candidateList(2)

	got := svc.Rerank(context.Background(), "query", input, 2, false)
	for i := range got {
		if s := got[i].Score(); s < 0 || s > 1 {
			t.Errorf("score %f outside [0,1]", s)
		}
	}
}

func TestRerank_NilChatUsesHeuristic(t *testing.T) {
	svc := New(nil, "", 0, nil)
	input := []result.Result{
		candidate("plain", 0.4, nil),
		candidate("visual", 0.4, map[string]any{"matchedVisual": true}),
	}

	got := svc.Rerank(context.Background(), "show me the architecture diagram", input, 2, false)
	assertTotality(t, got, input, 2)
	if got[0].ID() != "visual" {
		t.Errorf("matched-visual candidate should be boosted to the top: %q", got[0].ID())
	}
}

func TestHeuristicRerank_VisualBoosts(t *testing.T) {
	input := []result.Result{
		candidate("text", 0.5, nil),
		candidate("chart", 0.5, map[string]any{"visualType": "chart"}),
	}

	// Visual-focused query naming the visual type: +0.2 and +0.3 on top.
	got := heuristicRerank("show the pricing chart", input, 2)
	if got[0].ID() != "chart" {
		t.Fatalf("top = %q, want chart", got[0].ID())
	}
	if got[0].Score() != 1 {
		t.Errorf("score = %f, want clamped to 1", got[0].Score())
	}

	// Non-visual query: no boost, tie broken by ID.
	got = heuristicRerank("pricing details", input, 2)
	if got[0].Score() != got[1].Score() {
		t.Errorf("scores should be untouched: %f vs %f", got[0].Score(), got[1].Score())
	}
}

func TestRerank_EmptyInput(t *testing.T) {
	svc := New(&mockChat{}, "", time.Second, nil)
	if got := svc.Rerank(context.Background(), "query", nil, 5, false); got != nil {
		t.Errorf("Rerank(nil) = %v, want nil", got)
	}
}
