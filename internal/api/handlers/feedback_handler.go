package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/scholarnet/reco/internal/api/middleware"
	"github.com/scholarnet/reco/internal/api/response"
	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/recoerrors"
)

// FeedbackService defines the feedback business logic the handler needs.
type FeedbackService interface {
	SubmitFeedback(ctx context.Context, userID string, req models.CreateFeedbackRequest) (models.FeedbackRecord, error)
	ListFeedback(ctx context.Context, userID string, itemType *models.ItemType, limit int) ([]models.FeedbackRecord, error)
}

// FeedbackHandler handles the feedback endpoints.
type FeedbackHandler struct {
	service  FeedbackService
	validate *validator.Validate
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(service FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// submitFeedbackResponse is the POST /v1/recommendations/feedback payload.
type submitFeedbackResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// Submit handles POST /v1/recommendations/feedback.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing authenticated user")
		return
	}

	var req models.CreateFeedbackRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.RespondError(w, http.StatusRequestEntityTooLarge,
				"Request Entity Too Large", "request body exceeds maximum allowed size")
			return
		}

		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.RespondUnprocessableEntity(w, "Request validation failed", validationDetails(err))
		return
	}

	rec, err := h.service.SubmitFeedback(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, recoerrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())
			return
		}

		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusCreated, submitFeedbackResponse{Success: true, ID: rec.ID})
}

// listFeedbackResponse is the GET /v1/recommendations/feedback payload.
type listFeedbackResponse struct {
	Feedback []models.FeedbackRecord `json:"feedback"`
}

// List handles GET /v1/recommendations/feedback?itemType=&limit=.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.RespondUnauthorized(w, "Missing authenticated user")
		return
	}

	query := r.URL.Query()

	var itemType *models.ItemType

	if t := query.Get("itemType"); t != "" {
		parsed := models.ItemType(t)
		if !parsed.Valid() {
			response.RespondBadRequest(w, "Unknown item type: "+t)
			return
		}

		itemType = &parsed
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

	records, err := h.service.ListFeedback(r.Context(), userID, itemType, limit)
	if err != nil {
		if errors.Is(err, recoerrors.ErrValidation) {
			response.RespondBadRequest(w, err.Error())
			return
		}

		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	if records == nil {
		records = []models.FeedbackRecord{}
	}

	response.RespondJSON(w, http.StatusOK, listFeedbackResponse{Feedback: records})
}

// validationDetails flattens validator errors into problem detail entries.
func validationDetails(err error) []response.ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []response.ErrorDetail{{Message: err.Error()}}
	}

	out := make([]response.ErrorDetail, 0, len(verrs))

	for _, fe := range verrs {
		out = append(out, response.ErrorDetail{
			Location: fe.Field(),
			Message:  "failed on the '" + fe.Tag() + "' rule",
			Value:    fe.Value(),
		})
	}

	return out
}
