package models

import "time"

// RecType selects which feed a recommendation request is for.
type RecType string

// Recommendation feed types.
const (
	RecTypePosts  RecType = "posts"
	RecTypePapers RecType = "papers"
	RecTypeMixed  RecType = "mixed"
)

// Valid reports whether t is a known recommendation type.
func (t RecType) Valid() bool {
	switch t {
	case RecTypePosts, RecTypePapers, RecTypeMixed:
		return true
	}

	return false
}

// RecommendationScore is one ranked result. Transient: produced per request,
// cached briefly, never persisted. Lists are ordered by descending Score with
// ties broken by newer ItemCreatedAt (bias toward freshness).
type RecommendationScore struct {
	ItemType ItemType `json:"itemType"`
	ItemID   string   `json:"itemId"`
	Score    float64  `json:"recommendationScore"`
	Reasons  []string `json:"recommendationReasons"`

	// ItemCreatedAt is the underlying item's creation time, carried for
	// tie-breaking and not serialized to clients.
	ItemCreatedAt time.Time `json:"-"`
}
