package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/models"
)

type mockExperimentsRepo struct {
	incrementFunc func(ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool) error
	listStatsFunc func(ctx context.Context) ([]models.VariantStats, error)
}

func (m *mockExperimentsRepo) IncrementOutcome(
	ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool,
) error {
	if m.incrementFunc != nil {
		return m.incrementFunc(ctx, variantID, outcome, clicked)
	}

	return nil
}

func (m *mockExperimentsRepo) ListVariantStats(ctx context.Context) ([]models.VariantStats, error) {
	if m.listStatsFunc != nil {
		return m.listStatsFunc(ctx)
	}

	return nil, nil
}

func TestExperimentTracker_VariantFor(t *testing.T) {
	t.Run("control variant always serves control", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, Variant: models.VariantControl, RolloutPercent: 100,
		})

		assert.Equal(t, models.VariantControl, tracker.VariantFor("u1"))
	})

	t.Run("zero rollout serves control", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, Variant: "ranker-v2", RolloutPercent: 0,
		})

		assert.Equal(t, models.VariantControl, tracker.VariantFor("u1"))
	})

	t.Run("full rollout serves the variant to everyone", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, Variant: "ranker-v2", RolloutPercent: 100,
		})

		for i := range 50 {
			assert.Equal(t, "ranker-v2", tracker.VariantFor(fmt.Sprintf("user-%d", i)))
		}
	})

	t.Run("assignment is stable per user", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, Variant: "ranker-v2", RolloutPercent: 50,
		})

		first := tracker.VariantFor("u1")
		for range 20 {
			assert.Equal(t, first, tracker.VariantFor("u1"))
		}
	})

	t.Run("partial rollout splits the population", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, Variant: "ranker-v2", RolloutPercent: 50,
		})

		inVariant := 0

		for i := range 1000 {
			if tracker.VariantFor(fmt.Sprintf("user-%d", i)) == "ranker-v2" {
				inVariant++
			}
		}

		// FNV-32a over sequential ids is close to uniform mod 100.
		assert.Greater(t, inVariant, 400)
		assert.Less(t, inVariant, 600)
	})

	t.Run("empty variant defaults to control", func(t *testing.T) {
		tracker := NewExperimentTracker(ExperimentTrackerParams{
			Repo: &mockExperimentsRepo{}, RolloutPercent: 100,
		})

		assert.Equal(t, models.VariantControl, tracker.VariantFor("u1"))
	})
}

func TestExperimentTracker_RecordOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("increments the variant counters", func(t *testing.T) {
		var (
			gotVariant string
			gotOutcome models.ExperimentOutcome
			gotClicked bool
		)

		repo := &mockExperimentsRepo{
			incrementFunc: func(_ context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool) error {
				gotVariant, gotOutcome, gotClicked = variantID, outcome, clicked

				return nil
			},
		}
		tracker := NewExperimentTracker(ExperimentTrackerParams{Repo: repo, Variant: "ranker-v2", RolloutPercent: 100})

		err := tracker.RecordOutcome(ctx, "ranker-v2", models.OutcomePositive, true)
		require.NoError(t, err)
		assert.Equal(t, "ranker-v2", gotVariant)
		assert.Equal(t, models.OutcomePositive, gotOutcome)
		assert.True(t, gotClicked)
	})

	t.Run("control outcomes are dropped without touching the repo", func(t *testing.T) {
		called := false
		repo := &mockExperimentsRepo{
			incrementFunc: func(_ context.Context, _ string, _ models.ExperimentOutcome, _ bool) error {
				called = true

				return nil
			},
		}
		tracker := NewExperimentTracker(ExperimentTrackerParams{Repo: repo, Variant: "ranker-v2", RolloutPercent: 100})

		require.NoError(t, tracker.RecordOutcome(ctx, models.VariantControl, models.OutcomePositive, true))
		require.NoError(t, tracker.RecordOutcome(ctx, "", models.OutcomeNegative, false))
		assert.False(t, called)
	})

	t.Run("repo failure is wrapped with the variant id", func(t *testing.T) {
		repoErr := errors.New("deadlock detected")
		repo := &mockExperimentsRepo{
			incrementFunc: func(_ context.Context, _ string, _ models.ExperimentOutcome, _ bool) error {
				return repoErr
			},
		}
		tracker := NewExperimentTracker(ExperimentTrackerParams{Repo: repo, Variant: "ranker-v2", RolloutPercent: 100})

		err := tracker.RecordOutcome(ctx, "ranker-v2", models.OutcomeNegative, false)
		require.ErrorIs(t, err, repoErr)
		assert.Contains(t, err.Error(), "ranker-v2")
	})
}

func TestExperimentTracker_Stats(t *testing.T) {
	repo := &mockExperimentsRepo{
		listStatsFunc: func(_ context.Context) ([]models.VariantStats, error) {
			return []models.VariantStats{{VariantID: "ranker-v2", Positives: 7, Negatives: 3, Clicks: 7}}, nil
		},
	}
	tracker := NewExperimentTracker(ExperimentTrackerParams{Repo: repo, Variant: "ranker-v2", RolloutPercent: 100})

	stats, err := tracker.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "ranker-v2", stats[0].VariantID)
}
