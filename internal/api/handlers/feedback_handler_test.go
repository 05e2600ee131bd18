package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/api/middleware"
	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/recoerrors"
)

type mockFeedbackService struct {
	submitFunc func(ctx context.Context, userID string, req models.CreateFeedbackRequest) (models.FeedbackRecord, error)
	listFunc   func(ctx context.Context, userID string, itemType *models.ItemType, limit int) ([]models.FeedbackRecord, error)
}

func (m *mockFeedbackService) SubmitFeedback(
	ctx context.Context, userID string, req models.CreateFeedbackRequest,
) (models.FeedbackRecord, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, userID, req)
	}

	return models.FeedbackRecord{ID: 1}, nil
}

func (m *mockFeedbackService) ListFeedback(
	ctx context.Context, userID string, itemType *models.ItemType, limit int,
) ([]models.FeedbackRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, itemType, limit)
	}

	return nil, nil
}

func authedJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, "u1")

	return req.WithContext(ctx)
}

func TestFeedbackHandler_Submit(t *testing.T) {
	validBody := `{"itemType":"post","itemId":"p1","feedback":"positive"}`

	t.Run("accepts valid feedback", func(t *testing.T) {
		var gotReq models.CreateFeedbackRequest

		service := &mockFeedbackService{
			submitFunc: func(_ context.Context, userID string, req models.CreateFeedbackRequest) (models.FeedbackRecord, error) {
				assert.Equal(t, "u1", userID)
				gotReq = req

				return models.FeedbackRecord{ID: 7}, nil
			},
		}
		handler := NewFeedbackHandler(service)

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback", validBody))

		require.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			Success bool  `json:"success"`
			ID      int64 `json:"id"`
		}

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, int64(7), body.ID)
		assert.Equal(t, "post", gotReq.ItemType)
		assert.Equal(t, "positive", gotReq.Feedback)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback", `{"itemType":`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields fail struct validation", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback", `{"itemType":"post"}`))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "required")
	})

	t.Run("unknown feedback value fails the oneof rule", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback",
			`{"itemType":"post","itemId":"p1","feedback":"meh"}`))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "oneof")
	})

	t.Run("service validation error maps to 400", func(t *testing.T) {
		service := &mockFeedbackService{
			submitFunc: func(_ context.Context, _ string, _ models.CreateFeedbackRequest) (models.FeedbackRecord, error) {
				return models.FeedbackRecord{}, recoerrors.NewValidationError("itemId", "unknown item")
			},
		}
		handler := NewFeedbackHandler(service)

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback", validBody))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure maps to 500", func(t *testing.T) {
		service := &mockFeedbackService{
			submitFunc: func(_ context.Context, _ string, _ models.CreateFeedbackRequest) (models.FeedbackRecord, error) {
				return models.FeedbackRecord{}, errors.New("insert failed")
			},
		}
		handler := NewFeedbackHandler(service)

		rec := httptest.NewRecorder()
		handler.Submit(rec, authedJSONRequest(http.MethodPost, "/v1/recommendations/feedback", validBody))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("requires an authenticated user", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.Submit(rec, httptest.NewRequest(http.MethodPost, "/v1/recommendations/feedback", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestFeedbackHandler_List(t *testing.T) {
	t.Run("returns the user's history", func(t *testing.T) {
		service := &mockFeedbackService{
			listFunc: func(_ context.Context, userID string, itemType *models.ItemType, limit int) ([]models.FeedbackRecord, error) {
				assert.Equal(t, "u1", userID)
				require.NotNil(t, itemType)
				assert.Equal(t, models.ItemTypePaper, *itemType)
				assert.Equal(t, 10, limit)

				return []models.FeedbackRecord{{ID: 1, ItemID: "a1", Feedback: models.FeedbackPositive}}, nil
			},
		}
		handler := NewFeedbackHandler(service)

		rec := httptest.NewRecorder()
		handler.List(rec, authedJSONRequest(http.MethodGet, "/v1/recommendations/feedback?itemType=paper&limit=10", ""))

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Feedback []models.FeedbackRecord `json:"feedback"`
		}

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Feedback, 1)
		assert.Equal(t, "a1", body.Feedback[0].ItemID)
	})

	t.Run("empty history serializes as an empty array", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.List(rec, authedJSONRequest(http.MethodGet, "/v1/recommendations/feedback", ""))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"feedback":[]`)
	})

	t.Run("rejects an unknown item type filter", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.List(rec, authedJSONRequest(http.MethodGet, "/v1/recommendations/feedback?itemType=video", ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a non-positive limit", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.List(rec, authedJSONRequest(http.MethodGet, "/v1/recommendations/feedback?limit=-1", ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires an authenticated user", func(t *testing.T) {
		handler := NewFeedbackHandler(&mockFeedbackService{})

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/v1/recommendations/feedback", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
