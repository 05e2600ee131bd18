// Package models defines the domain models shared across repositories, services, and handlers.
package models

import "time"

// ContentType identifies which kind of content an embedding belongs to.
type ContentType string

// Content types with embeddings.
const (
	ContentTypePost        ContentType = "post"
	ContentTypePaper       ContentType = "paper"
	ContentTypeUserProfile ContentType = "user_profile"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypePost, ContentTypePaper, ContentTypeUserProfile:
		return true
	}

	return false
}

// ItemType identifies a recommendable item kind. A subset of ContentType:
// user profiles are embedded for matching but never recommended as feed items.
type ItemType string

// Recommendable item types.
const (
	ItemTypePost  ItemType = "post"
	ItemTypePaper ItemType = "paper"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypePost || t == ItemTypePaper
}

// ContentType returns the embedding partition for this item type.
func (t ItemType) ContentType() ContentType {
	return ContentType(t)
}

// CandidateItem is a post or paper considered for recommendation, with the
// signals the scorer reads (author, engagement, age). The text is what gets embedded:
// title plus body for posts, title plus abstract for papers.
type CandidateItem struct {
	ID           string    `json:"id"`
	Type         ItemType  `json:"type"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile holds the declared research interests used to build the
// user-profile embedding.
type UserProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Interests   []string  `json:"interests"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DiscoverSuggestion is one cross-domain discovery result (group, project, or user)
// with a static per-category reason.
type DiscoverSuggestion struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Detail   string `json:"detail,omitempty"`
	Reason   string `json:"reason"`
}
