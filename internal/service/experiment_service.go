package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/scholarnet/reco/internal/models"
)

// ExperimentsRepo is the variant counter persistence the tracker needs.
type ExperimentsRepo interface {
	IncrementOutcome(ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool) error
	ListVariantStats(ctx context.Context) ([]models.VariantStats, error)
}

// ExperimentTracker attributes feedback outcomes to ranking experiment
// variants. The control variant is the baseline and is never tracked, so
// variant counters measure lift against it rather than duplicating it.
type ExperimentTracker struct {
	repo           ExperimentsRepo
	variant        string
	rolloutPercent int
	logger         *slog.Logger
}

// ExperimentTrackerParams configures ExperimentTracker. Logger may be nil.
type ExperimentTrackerParams struct {
	Repo           ExperimentsRepo
	Variant        string
	RolloutPercent int
	Logger         *slog.Logger
}

// NewExperimentTracker creates an ExperimentTracker.
func NewExperimentTracker(p ExperimentTrackerParams) *ExperimentTracker {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	variant := p.Variant
	if variant == "" {
		variant = models.VariantControl
	}

	return &ExperimentTracker{
		repo:           p.Repo,
		variant:        variant,
		rolloutPercent: p.RolloutPercent,
		logger:         logger,
	}
}

// VariantFor returns the variant serving the given user: the configured
// variant for users inside the rollout bucket, control for everyone else.
// Assignment is a stable hash of the user id, so a user stays in the same
// bucket across requests and restarts.
func (t *ExperimentTracker) VariantFor(userID string) string {
	if t.variant == models.VariantControl || t.rolloutPercent <= 0 {
		return models.VariantControl
	}

	if t.rolloutPercent >= 100 {
		return t.variant
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))

	if int(h.Sum32()%100) < t.rolloutPercent {
		return t.variant
	}

	return models.VariantControl
}

// RecordOutcome adds one outcome to the variant's counters. Recording against
// control is a no-op by contract, not an error.
func (t *ExperimentTracker) RecordOutcome(
	ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool,
) error {
	if variantID == "" || variantID == models.VariantControl {
		return nil
	}

	if err := t.repo.IncrementOutcome(ctx, variantID, outcome, clicked); err != nil {
		return fmt.Errorf("record outcome for variant %s: %w", variantID, err)
	}

	return nil
}

// Stats returns the counters for all tracked variants.
func (t *ExperimentTracker) Stats(ctx context.Context) ([]models.VariantStats, error) {
	return t.repo.ListVariantStats(ctx)
}
