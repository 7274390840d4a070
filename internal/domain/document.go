package domain

import (
	"strconv"
	"strings"
	"time"
)

// Document is a corpus passage with its precomputed embedding and free-form
// metadata. Documents are immutable once indexed; query serving never writes
// back into the corpus.
type Document struct {
	ID        string
	Text      string
	Embedding []float32 // nil when the ingestion step produced no vector
	Metadata  map[string]any
}

// HasEmbedding reports whether the document carries a vector.
func (d *Document) HasEmbedding() bool { return len(d.Embedding) > 0 }

// Categories returns the document's category metadata. Historical corpus files
// stored it as a single string, a comma-separated string, or a list.
func (d *Document) Categories() []string {
	raw, ok := d.Metadata["categories"]
	if !ok {
		raw, ok = d.Metadata["category"]
	}
	if !ok {
		return nil
	}
	return metadataStrings(raw)
}

// TechnicalLevel returns the 1-10 technical level, if present.
func (d *Document) TechnicalLevel() (int, bool) {
	return metadataInt(d.Metadata["technicalLevel"])
}

// Entities returns entity metadata (people, products, organizations).
func (d *Document) Entities() []string {
	return metadataStrings(d.Metadata["entities"])
}

// Keywords returns keyword metadata.
func (d *Document) Keywords() []string {
	return metadataStrings(d.Metadata["keywords"])
}

// Source returns the source path or URL the passage was extracted from.
func (d *Document) Source() string {
	if s, ok := d.Metadata["source"].(string); ok {
		return s
	}
	if s, ok := d.Metadata["url"].(string); ok {
		return s
	}
	return ""
}

// LastUpdated returns the document's last-updated timestamp, if present.
// Accepts RFC 3339 strings and Unix-epoch numbers (seconds or milliseconds).
func (d *Document) LastUpdated() (time.Time, bool) {
	raw, ok := d.Metadata["lastUpdated"]
	if !ok {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts, true
		}
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			return ts, true
		}
	case float64:
		sec := int64(v)
		if sec > 1e12 { // milliseconds
			return time.UnixMilli(sec), true
		}
		return time.Unix(sec, 0), true
	case int64:
		return time.Unix(v, 0), true
	}
	return time.Time{}, false
}

// metadataStrings coerces a metadata value into a lowercased string slice.
func metadataStrings(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

func metadataInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}
