package models

import "time"

// FeedbackType is the reaction a user gave to a recommended item.
type FeedbackType string

// Feedback types.
const (
	FeedbackPositive      FeedbackType = "positive"
	FeedbackNegative      FeedbackType = "negative"
	FeedbackNotInterested FeedbackType = "not_interested"
)

// Valid reports whether f is a known feedback type.
func (f FeedbackType) Valid() bool {
	switch f {
	case FeedbackPositive, FeedbackNegative, FeedbackNotInterested:
		return true
	}

	return false
}

// Evicting reports whether this feedback invalidates the user's cached
// recommendations. Positive feedback does not: it need not change
// current-session ranking immediately.
func (f FeedbackType) Evicting() bool {
	return f == FeedbackNegative || f == FeedbackNotInterested
}

// FeedbackRecord is one append-only feedback event. Repeated feedback on the
// same item accumulates as history; rows are never updated or deleted by the engine.
type FeedbackRecord struct {
	ID        int64        `json:"id"`
	UserID    string       `json:"user_id"`
	ItemType  ItemType     `json:"item_type"`
	ItemID    string       `json:"item_id"`
	Feedback  FeedbackType `json:"feedback"`
	Reason    *string      `json:"reason,omitempty"`
	SessionID *string      `json:"session_id,omitempty"`
	Position  *int         `json:"position,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// CreateFeedbackRequest is the POST /v1/recommendations/feedback body.
type CreateFeedbackRequest struct {
	ItemType  string  `json:"itemType" validate:"required,oneof=post paper"`
	ItemID    string  `json:"itemId" validate:"required,max=64"`
	Feedback  string  `json:"feedback" validate:"required,oneof=positive negative not_interested"`
	Reason    *string `json:"reason,omitempty" validate:"omitempty,max=500"`
	SessionID *string `json:"sessionId,omitempty" validate:"omitempty,max=64"`
	Position  *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
	VariantID *string `json:"variantId,omitempty" validate:"omitempty,max=64"`
}
