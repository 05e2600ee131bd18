package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholarnet/reco/internal/models"
)

// FeedbackRepository handles the append-only recommendation_feedback ledger.
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Insert appends one feedback event and returns it with id and created_at set.
// Rows are never updated or deleted; repeated feedback on the same item
// accumulates as history.
func (r *FeedbackRepository) Insert(ctx context.Context, rec models.FeedbackRecord) (models.FeedbackRecord, error) {
	rec.CreatedAt = time.Now()

	err := r.db.QueryRow(ctx, `
		INSERT INTO recommendation_feedback
			(user_id, item_type, item_id, feedback, reason, session_id, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		rec.UserID, string(rec.ItemType), rec.ItemID, string(rec.Feedback),
		rec.Reason, rec.SessionID, rec.Position, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("feedback insert: %w", err)
	}

	return rec, nil
}

// ListByUser returns the user's feedback history, newest first, optionally
// filtered by item type.
func (r *FeedbackRepository) ListByUser(
	ctx context.Context, userID string, itemType *models.ItemType, limit int,
) ([]models.FeedbackRecord, error) {
	query := `
		SELECT id, user_id, item_type, item_id, feedback, reason, session_id, position, created_at
		FROM recommendation_feedback
		WHERE user_id = $1`
	args := []any{userID}

	if itemType != nil {
		query += ` AND item_type = $2`
		args = append(args, string(*itemType))
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []models.FeedbackRecord

	for rows.Next() {
		var rec models.FeedbackRecord

		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ItemType, &rec.ItemID, &rec.Feedback,
			&rec.Reason, &rec.SessionID, &rec.Position, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}

	return out, nil
}

// ListNotInterestedItemIDs returns ids of items of the given type the user
// marked not_interested. The scorer adds these to the exclusion set.
func (r *FeedbackRepository) ListNotInterestedItemIDs(
	ctx context.Context, userID string, itemType models.ItemType,
) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT item_id FROM recommendation_feedback
		WHERE user_id = $1 AND item_type = $2 AND feedback = 'not_interested'`,
		userID, string(itemType),
	)
	if err != nil {
		return nil, fmt.Errorf("list not-interested ids: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan not-interested id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating not-interested ids: %w", err)
	}

	return ids, nil
}
