package models

import "time"

// EmbeddingKey is the composite identity of an embedding: one vector per
// (content type, content id, model) triple. A typed key rather than a string
// concatenation so post/paper ids can never collide across partitions.
type EmbeddingKey struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
	Model       string      `json:"model"`
}

// EmbeddingRecord is one stored embedding row. Records are created lazily on
// first use and never mutated in place: a model upgrade writes new rows under
// the new model key and old rows remain until purged.
type EmbeddingRecord struct {
	Key               EmbeddingKey `json:"key"`
	Vector            []float32    `json:"vector"`
	SourceTextSnippet string       `json:"source_text_snippet"`
	CreatedAt         time.Time    `json:"created_at"`
}

// StoredEmbedding is the slim projection the similarity engine scans:
// content id plus vector, within one (content type, model) partition.
type StoredEmbedding struct {
	ContentID string
	Vector    []float32
}

// SimilarityMatch is one linear-scan result: a content id and its cosine
// similarity to the query vector.
type SimilarityMatch struct {
	ContentID  string  `json:"content_id"`
	Similarity float64 `json:"similarity"`
}
