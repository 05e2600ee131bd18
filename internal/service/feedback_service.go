package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/observability"
	"github.com/scholarnet/reco/internal/recoerrors"
)

// FeedbackRepo is the feedback ledger persistence the service needs.
type FeedbackRepo interface {
	Insert(ctx context.Context, rec models.FeedbackRecord) (models.FeedbackRecord, error)
	ListByUser(ctx context.Context, userID string, itemType *models.ItemType, limit int) ([]models.FeedbackRecord, error)
}

// CacheInvalidator evicts a user's cached recommendations.
type CacheInvalidator interface {
	Invalidate(userID string)
}

// OutcomeRecorder attributes a feedback outcome to an experiment variant.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, variantID string, outcome models.ExperimentOutcome, clicked bool) error
}

// defaultFeedbackHistoryLimit applies when a history read carries no limit.
const defaultFeedbackHistoryLimit = 50

// FeedbackService records user reactions to recommendations. The ledger write
// is the source of truth; cache eviction and experiment attribution hang off
// it as best-effort side effects that never fail the submission.
type FeedbackService struct {
	repo    FeedbackRepo
	cache   CacheInvalidator
	tracker OutcomeRecorder
	metrics observability.RecoMetrics
	logger  *slog.Logger
}

// FeedbackServiceParams configures FeedbackService.
// Cache, Tracker, Metrics, and Logger may be nil.
type FeedbackServiceParams struct {
	Repo    FeedbackRepo
	Cache   CacheInvalidator
	Tracker OutcomeRecorder
	Metrics observability.RecoMetrics
	Logger  *slog.Logger
}

// NewFeedbackService creates a FeedbackService.
func NewFeedbackService(p FeedbackServiceParams) *FeedbackService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FeedbackService{
		repo:    p.Repo,
		cache:   p.Cache,
		tracker: p.Tracker,
		metrics: p.Metrics,
		logger:  logger,
	}
}

// SubmitFeedback appends one feedback event for the user. Negative and
// not-interested feedback evicts the user's cached feeds so the next request
// reflects it; positive feedback leaves the cache alone. When the request
// names a non-control variant, the outcome is attributed to it.
func (s *FeedbackService) SubmitFeedback(
	ctx context.Context, userID string, req models.CreateFeedbackRequest,
) (models.FeedbackRecord, error) {
	itemType := models.ItemType(req.ItemType)
	if !itemType.Valid() {
		return models.FeedbackRecord{}, recoerrors.NewValidationError("itemType",
			fmt.Sprintf("unknown item type %q", req.ItemType))
	}

	feedback := models.FeedbackType(req.Feedback)
	if !feedback.Valid() {
		return models.FeedbackRecord{}, recoerrors.NewValidationError("feedback",
			fmt.Sprintf("unknown feedback type %q", req.Feedback))
	}

	rec, err := s.repo.Insert(ctx, models.FeedbackRecord{
		UserID:    userID,
		ItemType:  itemType,
		ItemID:    req.ItemID,
		Feedback:  feedback,
		Reason:    req.Reason,
		SessionID: req.SessionID,
		Position:  req.Position,
	})
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("submit feedback: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFeedback(ctx, string(feedback))
	}

	if feedback.Evicting() && s.cache != nil {
		s.cache.Invalidate(userID)

		if s.metrics != nil {
			s.metrics.RecordCacheInvalidation(ctx)
		}
	}

	s.attributeOutcome(ctx, req.VariantID, feedback)

	return rec, nil
}

// attributeOutcome records the experiment outcome for a non-control variant.
// Attribution failures are logged and swallowed; the ledger row already exists.
func (s *FeedbackService) attributeOutcome(ctx context.Context, variantID *string, feedback models.FeedbackType) {
	if s.tracker == nil || variantID == nil {
		return
	}

	outcome := models.OutcomeNegative
	clicked := false

	if feedback == models.FeedbackPositive {
		outcome = models.OutcomePositive
		clicked = true
	}

	if err := s.tracker.RecordOutcome(ctx, *variantID, outcome, clicked); err != nil {
		s.logger.Warn("feedback: experiment attribution failed",
			"variant_id", *variantID, "error", err)
	}
}

// ListFeedback returns the user's feedback history, newest first.
func (s *FeedbackService) ListFeedback(
	ctx context.Context, userID string, itemType *models.ItemType, limit int,
) ([]models.FeedbackRecord, error) {
	if itemType != nil && !itemType.Valid() {
		return nil, recoerrors.NewValidationError("itemType",
			fmt.Sprintf("unknown item type %q", *itemType))
	}

	if limit <= 0 {
		limit = defaultFeedbackHistoryLimit
	}

	return s.repo.ListByUser(ctx, userID, itemType, limit)
}
