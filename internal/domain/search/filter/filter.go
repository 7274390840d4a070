// Package filter holds the metadata filter applied during hybrid search.
//
// Filters are advisory precision signals, not hard constraints: the fallback
// cascade progressively relaxes them rather than returning a dead end.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// Technical level bounds.
const (
	MinTechnicalLevel = 1
	MaxTechnicalLevel = 10
)

// Filter is a validated metadata filter. The zero value matches everything.
type Filter struct {
	categories       []string
	strictCategories bool
	levelMin         int // 0 = unbounded
	levelMax         int // 0 = unbounded
	entities         []string
	keywords         []string
	updatedAfter     time.Time
}

// Builder assembles a Filter; validation happens once in Build, at the API
// boundary.
type Builder struct {
	f   Filter
	err error
}

// NewBuilder creates a filter builder.
func NewBuilder() *Builder { return &Builder{} }

// Categories restricts matching to the given categories. strict requires a
// document to carry ALL of them; lenient requires at least one.
func (b *Builder) Categories(categories []string, strict bool) *Builder {
	cleaned := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(strings.ToLower(c)); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	b.f.categories = cleaned
	b.f.strictCategories = strict
	return b
}

// TechnicalLevelRange restricts documents to [min, max]. Zero means unbounded
// on that side.
func (b *Builder) TechnicalLevelRange(minLevel, maxLevel int) *Builder {
	if minLevel < 0 || maxLevel < 0 ||
		(minLevel != 0 && minLevel > MaxTechnicalLevel) ||
		(maxLevel != 0 && maxLevel > MaxTechnicalLevel) {
		b.setErr(fmt.Errorf("technical level must be within %d-%d", MinTechnicalLevel, MaxTechnicalLevel))
		return b
	}
	if minLevel != 0 && maxLevel != 0 && minLevel > maxLevel {
		b.setErr(fmt.Errorf("technical level min %d exceeds max %d", minLevel, maxLevel))
		return b
	}
	b.f.levelMin = minLevel
	b.f.levelMax = maxLevel
	return b
}

// RequireEntities excludes documents whose entity metadata exists but matches
// none of the given terms.
func (b *Builder) RequireEntities(entities []string) *Builder {
	b.f.entities = lowerAll(entities)
	return b
}

// RequireKeywords excludes documents whose keyword metadata exists but matches
// none of the given terms.
func (b *Builder) RequireKeywords(keywords []string) *Builder {
	b.f.keywords = lowerAll(keywords)
	return b
}

// UpdatedAfter excludes documents last updated before t.
func (b *Builder) UpdatedAfter(t time.Time) *Builder {
	b.f.updatedAfter = t
	return b
}

// Build returns the validated filter.
func (b *Builder) Build() (Filter, error) {
	if b.err != nil {
		return Filter{}, b.err
	}
	return b.f, nil
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// IsEmpty reports whether the filter imposes no constraints.
func (f *Filter) IsEmpty() bool {
	return len(f.categories) == 0 && f.levelMin == 0 && f.levelMax == 0 &&
		len(f.entities) == 0 && len(f.keywords) == 0 && f.updatedAfter.IsZero()
}

// Categories returns the category constraint.
func (f *Filter) Categories() []string { return f.categories }

// StrictCategories reports whether category matching requires all categories.
func (f *Filter) StrictCategories() bool { return f.strictCategories }

// Matches reports whether the document passes every constraint.
func (f *Filter) Matches(doc *domain.Document) bool {
	if !f.matchesCategories(doc) {
		return false
	}
	if !f.matchesTechnicalLevel(doc) {
		return false
	}
	if !matchesTerms(doc.Entities(), f.entities) {
		return false
	}
	if !matchesTerms(doc.Keywords(), f.keywords) {
		return false
	}
	if !f.updatedAfter.IsZero() {
		if updated, ok := doc.LastUpdated(); ok && updated.Before(f.updatedAfter) {
			return false
		}
	}
	return true
}

// matchesCategories applies the strict/lenient category policy. Documents
// without any categorization pass in lenient mode: uncategorized content
// should not be penalized unless the caller demands precision.
func (f *Filter) matchesCategories(doc *domain.Document) bool {
	if len(f.categories) == 0 {
		return true
	}
	docCats := doc.Categories()
	if len(docCats) == 0 {
		return !f.strictCategories
	}
	have := make(map[string]struct{}, len(docCats))
	for _, c := range docCats {
		have[c] = struct{}{}
	}
	if f.strictCategories {
		for _, want := range f.categories {
			if _, ok := have[want]; !ok {
				return false
			}
		}
		return true
	}
	for _, want := range f.categories {
		if _, ok := have[want]; ok {
			return true
		}
	}
	return false
}

func (f *Filter) matchesTechnicalLevel(doc *domain.Document) bool {
	if f.levelMin == 0 && f.levelMax == 0 {
		return true
	}
	level, ok := doc.TechnicalLevel()
	if !ok {
		return true
	}
	if f.levelMin != 0 && level < f.levelMin {
		return false
	}
	if f.levelMax != 0 && level > f.levelMax {
		return false
	}
	return true
}

// matchesTerms excludes only when the document HAS the metadata and none of it
// matches any requested term. Matching is case-insensitive bidirectional
// containment ("okr" matches "okr tracking" and vice versa).
func matchesTerms(docTerms, wanted []string) bool {
	if len(wanted) == 0 || len(docTerms) == 0 {
		return true
	}
	for _, dt := range docTerms {
		for _, w := range wanted {
			if strings.Contains(dt, w) || strings.Contains(w, dt) {
				return true
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
