package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/observability"
)

// DefaultRecommendationLimit applies when the request carries no limit.
const DefaultRecommendationLimit = 20

// MaxRecommendationLimit caps a single request.
const MaxRecommendationLimit = 100

// RecommendationCache is the per-user payload cache the service reads through.
type RecommendationCache interface {
	Get(recType models.RecType, userID string) ([]models.RecommendationScore, bool)
	Put(recType models.RecType, userID string, payload []models.RecommendationScore)
}

// CandidateScorer ranks one content type for a user.
type CandidateScorer interface {
	ScoreCandidates(ctx context.Context, userID string, itemType models.ItemType, limit int, excludeIDs []string) ([]models.RecommendationScore, error)
}

// FeedMixer merges per-type ranked lists into one feed.
type FeedMixer interface {
	Mix(byType map[models.ItemType][]models.RecommendationScore, limit int) []models.RecommendationScore
}

// RecommendationService serves ranked feeds: cache read-through, scoring per
// content type, and mixing for the combined feed. Concurrent identical
// requests are collapsed with singleflight so one computation feeds them all.
type RecommendationService struct {
	scorer  CandidateScorer
	mixer   FeedMixer
	cache   RecommendationCache
	group   singleflight.Group
	metrics observability.RecoMetrics
	logger  *slog.Logger
	variant string
}

// RecommendationServiceParams configures RecommendationService.
// Metrics and Logger may be nil.
type RecommendationServiceParams struct {
	Scorer  CandidateScorer
	Mixer   FeedMixer
	Cache   RecommendationCache
	Metrics observability.RecoMetrics
	Logger  *slog.Logger
	Variant string
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(p RecommendationServiceParams) *RecommendationService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	variant := p.Variant
	if variant == "" {
		variant = models.VariantControl
	}

	return &RecommendationService{
		scorer:  p.Scorer,
		mixer:   p.Mixer,
		cache:   p.Cache,
		metrics: p.Metrics,
		logger:  logger,
		variant: variant,
	}
}

// Variant returns the ranker variant this service instance is serving.
func (s *RecommendationService) Variant() string {
	return s.variant
}

// GetRecommendations returns up to limit ranked items of the requested feed
// type for the user. Plain requests read through the cache; requests carrying
// explicit exclusions bypass it both ways, since their payload is not the
// canonical feed.
func (s *RecommendationService) GetRecommendations(
	ctx context.Context, userID string, recType models.RecType, limit int, excludeIDs []string,
) ([]models.RecommendationScore, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	if limit > MaxRecommendationLimit {
		limit = MaxRecommendationLimit
	}

	start := time.Now()

	cacheable := len(excludeIDs) == 0 && s.cache != nil
	if cacheable {
		if payload, ok := s.cache.Get(recType, userID); ok {
			if s.metrics != nil {
				s.metrics.RecordRequest(ctx, string(recType), true, time.Since(start))
			}

			return clip(payload, limit), nil
		}
	}

	compute := func() ([]models.RecommendationScore, error) {
		payload, err := s.compute(ctx, userID, recType, limit, excludeIDs)
		if err != nil {
			return nil, err
		}

		if cacheable {
			s.cache.Put(recType, userID, payload)
		}

		return payload, nil
	}

	var (
		payload []models.RecommendationScore
		err     error
	)

	if cacheable {
		// Collapse concurrent misses for the same feed into one computation.
		var res any

		res, err, _ = s.group.Do(string(recType)+":"+userID, func() (any, error) {
			return compute()
		})
		if err == nil {
			payload = res.([]models.RecommendationScore)
		}
	} else {
		payload, err = compute()
	}

	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, string(recType), false, time.Since(start))
	}

	return clip(payload, limit), nil
}

func (s *RecommendationService) compute(
	ctx context.Context, userID string, recType models.RecType, limit int, excludeIDs []string,
) ([]models.RecommendationScore, error) {
	switch recType {
	case models.RecTypePosts:
		return s.scorer.ScoreCandidates(ctx, userID, models.ItemTypePost, limit, excludeIDs)
	case models.RecTypePapers:
		return s.scorer.ScoreCandidates(ctx, userID, models.ItemTypePaper, limit, excludeIDs)
	case models.RecTypeMixed:
		return s.computeMixed(ctx, userID, limit, excludeIDs)
	default:
		return nil, fmt.Errorf("unknown recommendation type %q", recType)
	}
}

// computeMixed scores both content types independently, each over the full
// limit so the mixer has enough depth, then allocates slots by score mass.
func (s *RecommendationService) computeMixed(
	ctx context.Context, userID string, limit int, excludeIDs []string,
) ([]models.RecommendationScore, error) {
	byType := make(map[models.ItemType][]models.RecommendationScore, 2)

	for _, itemType := range []models.ItemType{models.ItemTypePost, models.ItemTypePaper} {
		scored, err := s.scorer.ScoreCandidates(ctx, userID, itemType, limit, excludeIDs)
		if err != nil {
			return nil, fmt.Errorf("score %s candidates: %w", itemType, err)
		}

		byType[itemType] = scored
	}

	return s.mixer.Mix(byType, limit), nil
}

func clip(payload []models.RecommendationScore, limit int) []models.RecommendationScore {
	if len(payload) > limit {
		return payload[:limit]
	}

	return payload
}
