package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/recoerrors"
)

// Signal weights. A policy choice, fixed and documented here: topical interest
// dominates, network affinity second, recency and raw popularity temper the
// rest. They sum to 1.0 so the final score stays in [0,1] and is comparable
// across content types for mixing.
const (
	weightRecency    = 0.20
	weightNetwork    = 0.30
	weightTopical    = 0.35
	weightPopularity = 0.15
)

// recencyHalfLife is the age at which the recency signal decays to 0.5.
const recencyHalfLife = 72 * time.Hour

// popularityCap is the engagement count (likes + comments) that saturates the
// popularity signal at 1.0 on the log scale.
const popularityCap = 50

// networkSecondDegree is the affinity granted when the item's author is
// followed by someone the user follows (vs 1.0 for a direct follow).
const networkSecondDegree = 0.5

// candidatePool sizes the recency-ordered pool the scorer ranks; scoring more
// than this per request buys little and costs a provider-independent scan.
const (
	candidatePoolFactor = 4
	candidatePoolMin    = 50
)

// Human-readable reasons, ordered to match the weighted signals.
const (
	reasonRecency    = "recently published"
	reasonNetwork    = "popular in your network"
	reasonTopical    = "similar research interests"
	reasonPopularity = "trending with the community"
)

// CandidateReader reads candidates, profiles, and the follow graph.
type CandidateReader interface {
	ListCandidateItems(ctx context.Context, itemType models.ItemType, viewerID string, excludeIDs []string, limit int) ([]models.CandidateItem, error)
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListFolloweesOf(ctx context.Context, followerIDs []string) ([]string, error)
}

// NotInterestedReader lists items the user marked not_interested.
type NotInterestedReader interface {
	ListNotInterestedItemIDs(ctx context.Context, userID string, itemType models.ItemType) ([]string, error)
}

// ContentEmbedder is the embedding store surface the scorer needs.
type ContentEmbedder interface {
	GetOrCreate(ctx context.Context, contentType models.ContentType, contentID, text string) ([]float32, error)
}

// SimilarityFinder scores a set of content ids against a query vector.
type SimilarityFinder interface {
	SimilarityFor(ctx context.Context, queryVector []float32, contentType models.ContentType, contentIDs []string) (map[string]float64, error)
}

// Scorer computes per-item interest scores from weighted signals: recency,
// network affinity, topical similarity, and popularity, each normalized to
// [0,1] before weighting. Signals are independent; computation order never
// changes the output.
type Scorer struct {
	content  CandidateReader
	feedback NotInterestedReader
	store    ContentEmbedder
	engine   SimilarityFinder
	logger   *slog.Logger
	now      func() time.Time
}

// ScorerParams configures Scorer. Logger may be nil.
type ScorerParams struct {
	Content  CandidateReader
	Feedback NotInterestedReader
	Store    ContentEmbedder
	Engine   SimilarityFinder
	Logger   *slog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(p ScorerParams) *Scorer {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scorer{
		content:  p.Content,
		feedback: p.Feedback,
		store:    p.Store,
		engine:   p.Engine,
		logger:   logger,
		now:      time.Now,
	}
}

// ScoreCandidates returns up to limit ranked recommendations of the given type
// for the user, excluding excludeIDs and the user's not_interested history.
// Results are ordered by descending score; ties go to the newer item.
//
// Topical similarity requires the user-profile embedding; when the embedding
// provider fails or times out, that signal contributes 0 for every candidate
// and the request still succeeds (degraded, never failed).
func (s *Scorer) ScoreCandidates(
	ctx context.Context, userID string, itemType models.ItemType, limit int, excludeIDs []string,
) ([]models.RecommendationScore, error) {
	if limit <= 0 {
		return nil, nil
	}

	exclude := append([]string{}, excludeIDs...)

	notInterested, err := s.feedback.ListNotInterestedItemIDs(ctx, userID, itemType)
	if err != nil {
		// Exclusion history is best-effort; a read failure must not block the feed.
		s.logger.Warn("scoring: not-interested lookup failed", "user_id", userID, "error", err)
	} else {
		exclude = append(exclude, notInterested...)
	}

	pool := limit * candidatePoolFactor
	if pool < candidatePoolMin {
		pool = candidatePoolMin
	}

	candidates, err := s.content.ListCandidateItems(ctx, itemType, userID, exclude, pool)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	following, secondDegree := s.networkSets(ctx, userID)
	simByID := s.topicalSimilarities(ctx, userID, itemType, candidates)

	scored := make([]models.RecommendationScore, 0, len(candidates))
	for _, item := range candidates {
		scored = append(scored, s.scoreItem(item, following, secondDegree, simByID))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}

		return scored[i].ItemCreatedAt.After(scored[j].ItemCreatedAt)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

// networkSets returns the user's direct followees and their followees.
// Graph read failures degrade the network signal to 0 rather than failing.
func (s *Scorer) networkSets(ctx context.Context, userID string) (map[string]struct{}, map[string]struct{}) {
	following, err := s.content.ListFollowing(ctx, userID)
	if err != nil {
		s.logger.Warn("scoring: follow graph lookup failed", "user_id", userID, "error", err)

		return nil, nil
	}

	followingSet := make(map[string]struct{}, len(following))
	for _, id := range following {
		followingSet[id] = struct{}{}
	}

	second, err := s.content.ListFolloweesOf(ctx, following)
	if err != nil {
		s.logger.Warn("scoring: second-degree lookup failed", "user_id", userID, "error", err)

		return followingSet, nil
	}

	secondSet := make(map[string]struct{}, len(second))
	for _, id := range second {
		secondSet[id] = struct{}{}
	}

	return followingSet, secondSet
}

// topicalSimilarities maps candidate id to cosine similarity with the user's
// profile embedding. Any failure (no profile, provider down, engine error)
// returns nil so topical contributions are 0 across the board.
func (s *Scorer) topicalSimilarities(
	ctx context.Context, userID string, itemType models.ItemType, candidates []models.CandidateItem,
) map[string]float64 {
	profile, err := s.content.GetUserProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("scoring: profile lookup failed", "user_id", userID, "error", err)

		return nil
	}

	if len(profile.Interests) == 0 {
		return nil
	}

	profileVec, err := s.store.GetOrCreate(
		ctx, models.ContentTypeUserProfile, userID, strings.Join(profile.Interests, ", "),
	)
	if err != nil {
		s.logger.Warn("scoring: profile embedding unavailable, topical signal degraded",
			"user_id", userID, "error", err)

		return nil
	}

	ids := make([]string, 0, len(candidates))
	for _, item := range candidates {
		ids = append(ids, item.ID)
	}

	// Embeddings are created lazily on first similarity use. One provider
	// failure already cost the full per-call timeout; stop embedding there
	// instead of paying it once per remaining candidate. Every candidate id
	// still goes to the engine, so previously cached embeddings keep scoring.
	for _, item := range candidates {
		if _, err := s.store.GetOrCreate(ctx, itemType.ContentType(), item.ID, item.Text); err != nil {
			s.logger.Warn("scoring: candidate embedding unavailable",
				"item_type", itemType, "item_id", item.ID, "error", err)

			if errors.Is(err, recoerrors.ErrEmbeddingGeneration) {
				break
			}
		}
	}

	simByID, err := s.engine.SimilarityFor(ctx, profileVec, itemType.ContentType(), ids)
	if err != nil {
		s.logger.Warn("scoring: similarity scan failed", "user_id", userID, "error", err)

		return nil
	}

	return simByID
}

func (s *Scorer) scoreItem(
	item models.CandidateItem,
	following, secondDegree map[string]struct{},
	simByID map[string]float64,
) models.RecommendationScore {
	recency := recencySignal(s.now().Sub(item.CreatedAt))

	var network float64

	if _, ok := following[item.AuthorID]; ok {
		network = 1.0
	} else if _, ok := secondDegree[item.AuthorID]; ok {
		network = networkSecondDegree
	}

	topical := clamp01(simByID[item.ID])
	popularity := popularitySignal(item.LikeCount + item.CommentCount)

	contributions := []struct {
		weighted float64
		reason   string
	}{
		{weightRecency * recency, reasonRecency},
		{weightNetwork * network, reasonNetwork},
		{weightTopical * topical, reasonTopical},
		{weightPopularity * popularity, reasonPopularity},
	}

	var score float64
	for _, c := range contributions {
		score += c.weighted
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].weighted > contributions[j].weighted
	})

	reasons := make([]string, 0, 2)

	for _, c := range contributions {
		if c.weighted <= 0 || len(reasons) == 2 {
			break
		}

		reasons = append(reasons, c.reason)
	}

	return models.RecommendationScore{
		ItemType:      item.Type,
		ItemID:        item.ID,
		Score:         score,
		Reasons:       reasons,
		ItemCreatedAt: item.CreatedAt,
	}
}

// recencySignal is exponential decay with a 72h half-life, clamped for ages < 0
// (clock skew on just-published items).
func recencySignal(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}

	return math.Exp2(-age.Hours() / recencyHalfLife.Hours())
}

// popularitySignal is log-scaled engagement, saturating at popularityCap.
func popularitySignal(engagement int) float64 {
	if engagement <= 0 {
		return 0
	}

	return clamp01(math.Log1p(float64(engagement)) / math.Log1p(popularityCap))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
