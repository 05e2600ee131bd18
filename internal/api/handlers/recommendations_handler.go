// Package handlers implements the HTTP surface of the recommendation engine.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/scholarnet/reco/internal/api/middleware"
	"github.com/scholarnet/reco/internal/api/response"
	"github.com/scholarnet/reco/internal/models"
)

// RecommendationsService defines the recommendation business logic the handler needs.
type RecommendationsService interface {
	GetRecommendations(ctx context.Context, userID string, recType models.RecType, limit int, excludeIDs []string) ([]models.RecommendationScore, error)
}

// VariantAssigner returns the experiment variant serving a user.
type VariantAssigner interface {
	VariantFor(userID string) string
}

// DiscoverProvider assembles the discover page suggestions.
type DiscoverProvider interface {
	Discover(ctx context.Context, userID string, perCategory int) ([]models.DiscoverSuggestion, error)
}

// RelatedProvider finds items similar to a given item.
type RelatedProvider interface {
	Related(ctx context.Context, itemType models.ItemType, itemID string, limit int) ([]models.SimilarityMatch, error)
}

// RecommendationsHandler handles the recommendation, discover, and related endpoints.
type RecommendationsHandler struct {
	service  RecommendationsService
	variants VariantAssigner
	discover DiscoverProvider
	related  RelatedProvider
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(
	service RecommendationsService, variants VariantAssigner, discover DiscoverProvider, related RelatedProvider,
) *RecommendationsHandler {
	return &RecommendationsHandler{service: service, variants: variants, discover: discover, related: related}
}

// recommendationsResponse is the GET /v1/recommendations payload.
type recommendationsResponse struct {
	Items     []models.RecommendationScore `json:"items"`
	VariantID string                       `json:"variantId"`
}

// Get handles GET /v1/recommendations?type=posts|papers|mixed&limit=&exclude=a,b.
func (h *RecommendationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing authenticated user")
		return
	}

	query := r.URL.Query()

	recType := models.RecTypeMixed
	if t := query.Get("type"); t != "" {
		recType = models.RecType(t)
		if !recType.Valid() {
			response.RespondBadRequest(w, "Unknown recommendation type: "+t)
			return
		}
	}

	limit := 0

	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			response.RespondBadRequest(w, "limit must be a positive integer")
			return
		}

		limit = parsed
	}

	var excludeIDs []string

	if raw := query.Get("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				excludeIDs = append(excludeIDs, id)
			}
		}
	}

	items, err := h.service.GetRecommendations(r.Context(), userID, recType, limit, excludeIDs)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	if items == nil {
		items = []models.RecommendationScore{}
	}

	response.RespondJSON(w, http.StatusOK, recommendationsResponse{
		Items:     items,
		VariantID: h.variants.VariantFor(userID),
	})
}

// discoverResponse is the GET /v1/recommendations/discover payload.
type discoverResponse struct {
	Suggestions []models.DiscoverSuggestion `json:"suggestions"`
}

// Discover handles GET /v1/recommendations/discover?limit=.
func (h *RecommendationsHandler) Discover(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing authenticated user")
		return
	}

	limit := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			response.RespondBadRequest(w, "limit must be a positive integer")
			return
		}

		limit = parsed
	}

	suggestions, err := h.discover.Discover(r.Context(), userID, limit)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	if suggestions == nil {
		suggestions = []models.DiscoverSuggestion{}
	}

	response.RespondJSON(w, http.StatusOK, discoverResponse{Suggestions: suggestions})
}

// relatedResponse is the GET /v1/recommendations/related payload.
type relatedResponse struct {
	Items []models.SimilarityMatch `json:"items"`
}

// Related handles GET /v1/recommendations/related?type=post|paper&id=&limit=.
func (h *RecommendationsHandler) Related(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		response.RespondUnauthorized(w, "Missing authenticated user")
		return
	}

	query := r.URL.Query()

	itemType := models.ItemType(query.Get("type"))
	if !itemType.Valid() {
		response.RespondBadRequest(w, "type must be post or paper")
		return
	}

	itemID := strings.TrimSpace(query.Get("id"))
	if itemID == "" {
		response.RespondBadRequest(w, "id is required")
		return
	}

	limit := 0

	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			response.RespondBadRequest(w, "limit must be a positive integer")
			return
		}

		limit = parsed
	}

	items, err := h.related.Related(r.Context(), itemType, itemID, limit)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	if items == nil {
		items = []models.SimilarityMatch{}
	}

	response.RespondJSON(w, http.StatusOK, relatedResponse{Items: items})
}
