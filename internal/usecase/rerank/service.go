// Package rerank reorders hybrid-search candidates with an LLM relevance
// judgment, degrading to a local heuristic whenever the model is slow, down,
// or incoherent. The stage is total: it always returns a valid, sorted,
// size-bounded list.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/result"
	"github.com/kailas-cloud/kbsearch/internal/logger"
	"github.com/kailas-cloud/kbsearch/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second

	// promptTextLimit bounds candidate text in the prompt (runes).
	promptTextLimit = 500

	maxResponseTokens = 1024
)

const systemPrompt = "You are a search relevance judge. Given a user query and a numbered " +
	"list of candidate passages, score how well each passage answers the query " +
	"on a 0-10 scale. Respond with ONLY a JSON array of objects of the form " +
	`{"resultId": <candidate number>, "score": <0-10>}` +
	", one object per candidate, nothing else."

// Service is the LLM reranker.
type Service struct {
	chat    domain.ChatCompleter
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a reranker. chat may be nil, in which case every call takes the
// heuristic path.
func New(chat domain.ChatCompleter, model string, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{chat: chat, model: model, timeout: timeout, logger: log}
}

// Rerank reorders candidates by LLM-judged relevance and truncates to topK.
// It never fails: on timeout, provider error, or an unparseable response it
// falls back to heuristic reordering of the original scores.
func (s *Service) Rerank(ctx context.Context, query string, candidates []result.Result, topK int, includeExplanations bool) []result.Result {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	if topK <= 0 || topK > n {
		topK = n
	}

	if s.chat == nil {
		metrics.RerankTotal.WithLabelValues("fallback").Inc()
		return heuristicRerank(query, candidates, topK)
	}

	log := logger.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.chat.Complete(ctx, domain.ChatRequest{
		System:    systemPrompt,
		User:      buildPrompt(query, candidates, includeExplanations),
		Model:     s.model,
		MaxTokens: maxResponseTokens,
	})
	if err != nil {
		outcome := "fallback"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.RerankTotal.WithLabelValues(outcome).Inc()
		log.Warn("Rerank LLM call failed, using heuristic ordering",
			zap.String("outcome", outcome), zap.Error(err))
		return heuristicRerank(query, candidates, topK)
	}

	rankings, err := parseRankings(content)
	if err != nil {
		metrics.RerankTotal.WithLabelValues("fallback").Inc()
		log.Warn("Rerank response unparseable, using heuristic ordering",
			zap.Int("response_len", len(content)))
		return heuristicRerank(query, candidates, topK)
	}

	metrics.RerankTotal.WithLabelValues("llm").Inc()
	return applyRankings(candidates, rankings, topK, includeExplanations)
}

// applyRankings maps the model's scores back onto the candidates. Out-of-range
// indices degrade to index 0 rather than failing; candidates the model did not
// score keep their original order after the scored ones, so the output always
// holds exactly topK unique items.
func applyRankings(candidates []result.Result, rankings []ranking, topK int, includeExplanations bool) []result.Result {
	n := len(candidates)
	used := make(map[int]struct{}, len(rankings))
	scored := make([]result.Result, 0, len(rankings))

	for _, r := range rankings {
		idx := r.ResultID
		if idx < 0 || idx >= n {
			idx = 0
		}
		if _, dup := used[idx]; dup {
			continue
		}
		used[idx] = struct{}{}

		res := candidates[idx].WithScore(clamp01(r.Score / 10))
		if includeExplanations && r.Explanation != "" {
			res = res.WithExplanation(r.Explanation)
		}
		scored = append(scored, res)
	}

	sortResults(scored)

	for i := range candidates {
		if len(scored) == n {
			break
		}
		if _, dup := used[i]; dup {
			continue
		}
		used[i] = struct{}{}
		scored = append(scored, candidates[i])
	}

	return scored[:topK]
}

// heuristicRerank is the local fallback: boost candidates carrying visual
// markers when the query asks for them, clamp, sort, truncate. Input order is
// otherwise preserved via the original scores.
func heuristicRerank(query string, candidates []result.Result, topK int) []result.Result {
	q := strings.ToLower(query)
	visualQuery := isVisualQuery(q)

	out := make([]result.Result, len(candidates))
	for i := range candidates {
		score := candidates[i].Score()
		md := candidates[i].Document().Metadata

		if flag, _ := md["matchedVisual"].(bool); flag {
			score += 0.25
		}
		if vt, _ := md["visualType"].(string); vt != "" && visualQuery {
			score += 0.2
			if strings.Contains(q, strings.ToLower(vt)) {
				score += 0.3
			}
		}

		out[i] = candidates[i].WithScore(clamp01(score))
	}

	sortResults(out)
	return out[:topK]
}

var visualTerms = []string{
	"image", "picture", "photo", "screenshot", "diagram", "chart", "graph", "video", "visual",
}

func isVisualQuery(lowerQuery string) bool {
	for _, term := range visualTerms {
		if strings.Contains(lowerQuery, term) {
			return true
		}
	}
	return false
}

// buildPrompt lists the candidates with their text truncated to keep the
// request within a sane token budget.
func buildPrompt(query string, candidates []result.Result, includeExplanations bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, truncate(candidates[i].Document().Text, promptTextLimit))
	}
	b.WriteString("Score every candidate.")
	if includeExplanations {
		b.WriteString(` Add a short "explanation" field to each object.`)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortResults sorts by score descending, ties broken by document ID.
func sortResults(results []result.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})
}
