package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholarnet/reco/internal/models"
)

// ErrUserNotFound is returned when the requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ContentRepository reads posts, papers, user profiles, and the follow graph.
// The engine only reads this data; ownership stays with the main application.
type ContentRepository struct {
	db *pgxpool.Pool
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: db}
}

// EmbeddableItem is one row of content text pending an embedding.
type EmbeddableItem struct {
	ID   string
	Text string
}

// ListCandidateItems returns up to limit recent items of the given type for
// scoring, excluding the viewer's own items and the given ids. Recency-ordered
// so the candidate pool is the newest content.
func (r *ContentRepository) ListCandidateItems(
	ctx context.Context, itemType models.ItemType, viewerID string, excludeIDs []string, limit int,
) ([]models.CandidateItem, error) {
	var query string

	switch itemType {
	case models.ItemTypePost:
		query = `
			SELECT id, author_id, title, title || E'\n' || body, like_count, comment_count, created_at
			FROM posts
			WHERE author_id != $1 AND NOT (id = ANY($2))
			ORDER BY created_at DESC
			LIMIT $3`
	case models.ItemTypePaper:
		query = `
			SELECT id, author_id, title, title || E'\n' || abstract, like_count, comment_count, created_at
			FROM papers
			WHERE author_id != $1 AND NOT (id = ANY($2))
			ORDER BY created_at DESC
			LIMIT $3`
	default:
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}

	if excludeIDs == nil {
		excludeIDs = []string{}
	}

	rows, err := r.db.Query(ctx, query, viewerID, excludeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s candidates: %w", itemType, err)
	}
	defer rows.Close()

	var items []models.CandidateItem

	for rows.Next() {
		item := models.CandidateItem{Type: itemType}

		err := rows.Scan(
			&item.ID, &item.AuthorID, &item.Title, &item.Text,
			&item.LikeCount, &item.CommentCount, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan %s candidate: %w", itemType, err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s candidates: %w", itemType, err)
	}

	return items, nil
}

// GetUserProfile returns the user's declared interests for profile embedding.
// Returns ErrUserNotFound when the user does not exist.
func (r *ContentRepository) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile := &models.UserProfile{ID: userID}

	err := r.db.QueryRow(ctx,
		`SELECT display_name, COALESCE(interests, '{}'), updated_at FROM users WHERE id = $1`,
		userID,
	).Scan(&profile.DisplayName, &profile.Interests, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("get user profile: %w", err)
	}

	return profile, nil
}

// ListFollowing returns the ids of users that userID follows.
func (r *ContentRepository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followee id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating following: %w", err)
	}

	return ids, nil
}

// ListFolloweesOf returns the distinct ids followed by any of the given users.
// Feeds the second-degree network-affinity signal.
func (r *ContentRepository) ListFolloweesOf(ctx context.Context, followerIDs []string) ([]string, error) {
	if len(followerIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT followee_id FROM follows WHERE follower_id = ANY($1)`,
		followerIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list followees of: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followee id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating followees of: %w", err)
	}

	return ids, nil
}

// ListItemsMissingEmbedding returns up to limit items of the given content type
// that have no embedding row for the given model, with the text to embed.
// Feeds the batch backfill job.
func (r *ContentRepository) ListItemsMissingEmbedding(
	ctx context.Context, contentType models.ContentType, model string, limit int,
) ([]EmbeddableItem, error) {
	var query string

	switch contentType {
	case models.ContentTypePost:
		query = `
			SELECT p.id, p.title || E'\n' || p.body
			FROM posts p
			WHERE NOT EXISTS (
				SELECT 1 FROM embeddings e
				WHERE e.content_type = 'post' AND e.content_id = p.id AND e.model = $1
			)
			ORDER BY p.created_at DESC
			LIMIT $2`
	case models.ContentTypePaper:
		query = `
			SELECT p.id, p.title || E'\n' || p.abstract
			FROM papers p
			WHERE NOT EXISTS (
				SELECT 1 FROM embeddings e
				WHERE e.content_type = 'paper' AND e.content_id = p.id AND e.model = $1
			)
			ORDER BY p.created_at DESC
			LIMIT $2`
	case models.ContentTypeUserProfile:
		query = `
			SELECT u.id, array_to_string(u.interests, ', ')
			FROM users u
			WHERE u.interests IS NOT NULL AND array_length(u.interests, 1) > 0
			  AND NOT EXISTS (
				SELECT 1 FROM embeddings e
				WHERE e.content_type = 'user_profile' AND e.content_id = u.id AND e.model = $1
			)
			LIMIT $2`
	default:
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}

	rows, err := r.db.Query(ctx, query, model, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s missing embeddings: %w", contentType, err)
	}
	defer rows.Close()

	var items []EmbeddableItem

	for rows.Next() {
		var item EmbeddableItem
		if err := rows.Scan(&item.ID, &item.Text); err != nil {
			return nil, fmt.Errorf("scan embeddable item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddable items: %w", err)
	}

	return items, nil
}

// ListGroupSuggestions returns active groups the user is not a member of.
func (r *ContentRepository) ListGroupSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error) {
	return r.listSuggestions(ctx, `
		SELECT g.id, g.name, COALESCE(g.description, '')
		FROM groups g
		WHERE NOT EXISTS (
			SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $1
		)
		ORDER BY g.member_count DESC, g.created_at DESC
		LIMIT $2`,
		"group", userID, limit)
}

// ListProjectSuggestions returns recently active projects the user is not part of.
func (r *ContentRepository) ListProjectSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error) {
	return r.listSuggestions(ctx, `
		SELECT p.id, p.name, COALESCE(p.summary, '')
		FROM projects p
		WHERE NOT EXISTS (
			SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = $1
		)
		ORDER BY p.updated_at DESC
		LIMIT $2`,
		"project", userID, limit)
}

// ListUserSuggestions returns users the given user does not follow yet.
func (r *ContentRepository) ListUserSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error) {
	return r.listSuggestions(ctx, `
		SELECT u.id, u.display_name, array_to_string(COALESCE(u.interests, '{}'), ', ')
		FROM users u
		WHERE u.id != $1
		  AND NOT EXISTS (
			SELECT 1 FROM follows f WHERE f.follower_id = $1 AND f.followee_id = u.id
		)
		ORDER BY u.follower_count DESC
		LIMIT $2`,
		"user", userID, limit)
}

func (r *ContentRepository) listSuggestions(
	ctx context.Context, query, category, userID string, limit int,
) ([]models.DiscoverSuggestion, error) {
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s suggestions: %w", category, err)
	}
	defer rows.Close()

	var out []models.DiscoverSuggestion

	for rows.Next() {
		s := models.DiscoverSuggestion{Category: category}
		if err := rows.Scan(&s.ID, &s.Name, &s.Detail); err != nil {
			return nil, fmt.Errorf("scan %s suggestion: %w", category, err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s suggestions: %w", category, err)
	}

	return out, nil
}
