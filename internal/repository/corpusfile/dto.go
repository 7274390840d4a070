package corpusfile

// documentDTO mirrors one corpus record on disk.
type documentDTO struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// containerDTO covers the two object-shaped corpus containers. Older exports
// wrote a bare array, then an object with "items", then batched objects; the
// loader detects which shape it is looking at and normalizes.
type containerDTO struct {
	Items   []documentDTO `json:"items"`
	Batches []batchDTO    `json:"batches"`
}

type batchDTO struct {
	Items []documentDTO `json:"items"`
}

// countDTO accepts {"documentCount": n} for the document count file (a bare
// number is also accepted by the loader).
type countDTO struct {
	DocumentCount int `json:"documentCount"`
}

// avgLengthDTO accepts {"avgDocLength": x} for the average length file.
type avgLengthDTO struct {
	AvgDocLength float64 `json:"avgDocLength"`
}
