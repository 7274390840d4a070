// Package textproc provides text normalization and tokenization for lexical scoring.
package textproc

import "strings"

// stopwords are excluded from lexical scoring. Keep the list small: it only
// needs to cover terms that carry no ranking signal in a knowledge-base corpus.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"had": {}, "has": {}, "have": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "me": {}, "my": {}, "no": {},
	"not": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "us": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize lowercases text, replaces non-alphanumeric runs with whitespace,
// and returns the remaining terms minus stopwords and single-character tokens.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	normalized := normalize(text)
	fields := strings.Fields(normalized)

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// TermFrequencies tokenizes text and returns per-term counts plus the total
// token count (the BM25 document length).
func TermFrequencies(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, 0
	}
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq, len(tokens)
}

// IsStopword reports whether the (lowercased) term is on the stopword list.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
