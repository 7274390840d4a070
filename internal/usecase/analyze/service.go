// Package analyze classifies queries and derives retrieval parameters.
package analyze

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/kbsearch/internal/domain/search/params"
	"github.com/kailas-cloud/kbsearch/internal/textproc"
)

const (
	classifyTimeout = 3 * time.Second
	// recentWindow bounds "recent feature" queries to roughly the last year.
	recentWindow = 365 * 24 * time.Hour
)

// Intent detection patterns. Lenient by design: a false positive widens the
// category filter, which costs precision, not recall.
var (
	possessivePattern = regexp.MustCompile(`(?i)\b(your|yours|you|their|its)\b`)
	aboutPattern      = regexp.MustCompile(`(?i)^(what|who)\s+is\b|^tell\s+me\s+about\b`)
	questionPattern   = regexp.MustCompile(`(?i)^(who|what|when|where|why|how|is|are|does|do|can|could|should|would|will)\b`)
	productPattern    = regexp.MustCompile(`(?i)\b(products?|features?|platform|tools?|integrations?|apps?|pricing|plans?|tiers?)\b`)
	timeRefPattern    = regexp.MustCompile(`(?i)\b(new|newest|latest|recent|recently|just|upcoming|this (year|month|quarter)|20\d{2})\b`)
	featureRefPattern = regexp.MustCompile(`(?i)\b(features?|releases?|updates?|launch(es|ed)?|capabilit(y|ies))\b`)
	leadershipPattern = regexp.MustCompile(`(?i)\b(ceo|cto|cfo|coo|founders?|co-?founders?|president|vp|vice president|executives?|leadership|directors?)\b`)
	investorPattern   = regexp.MustCompile(`(?i)\b(investors?|funding|fundrais\w*|raised?|round|series [a-f]\b|valuation|venture|vc)\b`)
	technicalPattern  = regexp.MustCompile(`(?i)\b(api|sdk|webhooks?|endpoints?|oauth|authentication|sso|integration setup|schema|json|csv)\b`)
)

// Service is the query analyzer. A chat completer is optional; without one
// (or when it fails) analysis is purely rule-based with default parameters.
type Service struct {
	chat        domain.ChatCompleter
	model       string
	companyName string
	logger      *zap.Logger
}

// New creates a query analyzer. chat may be nil.
func New(companyName string, chat domain.ChatCompleter, model string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chat:        chat,
		model:       model,
		companyName: strings.ToLower(strings.TrimSpace(companyName)),
		logger:      logger,
	}
}

// Analyze classifies the query and derives retrieval parameters. It never
// fails: upstream classification errors degrade to rule-based defaults.
func (s *Service) Analyze(ctx context.Context, query string, history []string) (domain.QueryAnalysis, params.Params) {
	analysis := s.ruleBased(query)

	if s.chat != nil {
		if refined, ok := s.classifyLLM(ctx, query, history); ok {
			// The LLM refines category and level; intent stays rule-based
			// (pattern detection is cheaper and more predictable there).
			if refined.PrimaryCategory != "" {
				analysis.PrimaryCategory = refined.PrimaryCategory
			}
			if len(refined.SecondaryCategories) > 0 {
				analysis.SecondaryCategories = refined.SecondaryCategories
			}
			if refined.TechnicalLevel >= 1 && refined.TechnicalLevel <= 10 {
				analysis.TechnicalLevel = refined.TechnicalLevel
			}
		}
	}

	return analysis, s.deriveParams(analysis)
}

// ruleBased classifies a query with pattern rules alone.
func (s *Service) ruleBased(query string) domain.QueryAnalysis {
	lower := strings.ToLower(query)
	tokens := textproc.Tokenize(query)

	analysis := domain.QueryAnalysis{
		PrimaryCategory:  "",
		TechnicalLevel:   3,
		Intent:           domain.IntentGeneral,
		QuerySpecificity: "general",
	}
	if len(tokens) >= 4 {
		analysis.QuerySpecificity = "specific"
	}
	if technicalPattern.MatchString(lower) {
		analysis.TechnicalLevel = 7
	}

	switch {
	case s.isCompanyIdentity(lower):
		analysis.Intent = domain.IntentCompanyIdentity
		analysis.PrimaryCategory = domain.CategoryCompany
		analysis.SecondaryCategories = []string{domain.CategoryProduct}
	case investorPattern.MatchString(lower):
		analysis.Intent = domain.IntentInvestor
		analysis.PrimaryCategory = domain.CategoryInvestors
		analysis.SecondaryCategories = []string{domain.CategoryCompany}
	case leadershipPattern.MatchString(lower):
		analysis.Intent = domain.IntentLeadership
		analysis.PrimaryCategory = domain.CategoryLeadership
		analysis.SecondaryCategories = []string{domain.CategoryCompany}
	case featureRefPattern.MatchString(lower) && timeRefPattern.MatchString(lower):
		analysis.Intent = domain.IntentRecentFeature
		analysis.PrimaryCategory = domain.CategoryFeatures
		analysis.SecondaryCategories = []string{domain.CategoryProduct}
	case productPattern.MatchString(lower):
		analysis.Intent = domain.IntentProduct
		analysis.PrimaryCategory = domain.CategoryProduct
		analysis.SecondaryCategories = []string{domain.CategoryFeatures, domain.CategoryPricing}
	case questionPattern.MatchString(lower) || strings.HasSuffix(strings.TrimSpace(lower), "?"):
		analysis.Intent = domain.IntentQuestion
	}

	return analysis
}

// isCompanyIdentity detects "who are you / what is <company> / your product"
// style queries: the company name plus a possessive or an about-phrase.
func (s *Service) isCompanyIdentity(lowerQuery string) bool {
	if s.companyName == "" {
		return false
	}
	mentionsCompany := strings.Contains(lowerQuery, s.companyName)
	if mentionsCompany && (possessivePattern.MatchString(lowerQuery) || aboutPattern.MatchString(lowerQuery)) {
		return true
	}
	// "what does your platform do" — possessive alone, no company mention.
	return !mentionsCompany && possessivePattern.MatchString(lowerQuery) &&
		(aboutPattern.MatchString(lowerQuery) || productPattern.MatchString(lowerQuery))
}

// deriveParams maps an analysis onto retrieval parameters. Category matching
// is lenient by default: precision loss beats silently empty results.
func (s *Service) deriveParams(analysis domain.QueryAnalysis) params.Params {
	p := params.Defaults()

	var categories []string
	if analysis.PrimaryCategory != "" {
		categories = append([]string{analysis.PrimaryCategory}, analysis.SecondaryCategories...)
	}

	b := filter.NewBuilder()
	hasFilter := false
	if len(categories) > 0 {
		b.Categories(categories, false)
		hasFilter = true
	}
	if analysis.TechnicalLevel >= 6 {
		b.TechnicalLevelRange(4, 0)
		hasFilter = true
	}
	if analysis.Intent == domain.IntentRecentFeature {
		b.UpdatedAfter(time.Now().Add(-recentWindow))
		hasFilter = true
	}

	if hasFilter {
		f, err := b.Build()
		if err != nil {
			// Derived filters come from trusted constants; a build error is a
			// programming bug, so fall back to unfiltered rather than failing.
			s.logger.Warn("Derived filter invalid, searching unfiltered", zap.Error(err))
		} else {
			p.Filter = &f
		}
	}

	switch analysis.Intent {
	case domain.IntentCompanyIdentity:
		p.HybridRatio = 0.4 // company questions answer better lexically
	case domain.IntentQuestion:
		p.ExpandQuery = true
	}

	p.Clamp()
	return p
}

// classifyResponse is the structured output requested from the LLM.
type classifyResponse struct {
	PrimaryCategory     string   `json:"primaryCategory"`
	SecondaryCategories []string `json:"secondaryCategories"`
	TechnicalLevel      int      `json:"technicalLevel"`
}

const classifySystemPrompt = `You classify knowledge-base search queries. ` +
	`Respond with a JSON object only: {"primaryCategory": string, ` +
	`"secondaryCategories": [string], "technicalLevel": 1-10}. Categories: ` +
	`company, product, features, pricing, leadership, investors, support, technical.`

func (s *Service) classifyLLM(ctx context.Context, query string, history []string) (classifyResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	user := query
	if len(history) > 0 {
		user = "Conversation so far:\n" + strings.Join(history, "\n") + "\n\nQuery: " + query
	}

	raw, err := s.chat.Complete(ctx, domain.ChatRequest{
		System:      classifySystemPrompt,
		User:        user,
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   200,
		JSONOnly:    true,
	})
	if err != nil {
		s.logger.Debug("Query classification unavailable, using rule-based analysis", zap.Error(err))
		return classifyResponse{}, false
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		s.logger.Debug("Query classification response malformed", zap.Error(err))
		return classifyResponse{}, false
	}
	resp.PrimaryCategory = strings.ToLower(strings.TrimSpace(resp.PrimaryCategory))
	return resp, true
}
