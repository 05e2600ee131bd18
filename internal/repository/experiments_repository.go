package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholarnet/reco/internal/models"
)

// ExperimentsRepository handles the per-variant outcome counters.
// Increments happen in a single upsert statement so concurrent requests never
// lose updates; there is no read-modify-write in process.
type ExperimentsRepository struct {
	db *pgxpool.Pool
}

// NewExperimentsRepository creates a new experiments repository.
func NewExperimentsRepository(db *pgxpool.Pool) *ExperimentsRepository {
	return &ExperimentsRepository{db: db}
}

// IncrementOutcome atomically adds one outcome (and optionally one click) to the
// variant's counters, creating the row on first use.
func (r *ExperimentsRepository) IncrementOutcome(
	ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool,
) error {
	positive := 0
	negative := 0

	if outcome == models.OutcomePositive {
		positive = 1
	} else {
		negative = 1
	}

	clicks := 0
	if clicked {
		clicks = 1
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO experiment_variant_stats (variant_id, positives, negatives, clicks)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (variant_id) DO UPDATE SET
			positives = experiment_variant_stats.positives + $2,
			negatives = experiment_variant_stats.negatives + $3,
			clicks    = experiment_variant_stats.clicks + $4`,
		variantID, positive, negative, clicks,
	)
	if err != nil {
		return fmt.Errorf("increment variant outcome: %w", err)
	}

	return nil
}

// ListVariantStats returns the counters for all tracked variants.
func (r *ExperimentsRepository) ListVariantStats(ctx context.Context) ([]models.VariantStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT variant_id, positives, negatives, clicks FROM experiment_variant_stats ORDER BY variant_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list variant stats: %w", err)
	}
	defer rows.Close()

	var out []models.VariantStats

	for rows.Next() {
		var s models.VariantStats
		if err := rows.Scan(&s.VariantID, &s.Positives, &s.Negatives, &s.Clicks); err != nil {
			return nil, fmt.Errorf("scan variant stats: %w", err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variant stats: %w", err)
	}

	return out, nil
}
