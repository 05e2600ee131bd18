package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/reco/internal/models"
)

type mockSuggestionReader struct {
	groupsFunc   func(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
	projectsFunc func(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
	usersFunc    func(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
}

func (m *mockSuggestionReader) ListGroupSuggestions(
	ctx context.Context, userID string, limit int,
) ([]models.DiscoverSuggestion, error) {
	if m.groupsFunc != nil {
		return m.groupsFunc(ctx, userID, limit)
	}

	return nil, nil
}

func (m *mockSuggestionReader) ListProjectSuggestions(
	ctx context.Context, userID string, limit int,
) ([]models.DiscoverSuggestion, error) {
	if m.projectsFunc != nil {
		return m.projectsFunc(ctx, userID, limit)
	}

	return nil, nil
}

func (m *mockSuggestionReader) ListUserSuggestions(
	ctx context.Context, userID string, limit int,
) ([]models.DiscoverSuggestion, error) {
	if m.usersFunc != nil {
		return m.usersFunc(ctx, userID, limit)
	}

	return nil, nil
}

func TestDiscoverService_Discover(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles categories in order with their reasons", func(t *testing.T) {
		reader := &mockSuggestionReader{
			groupsFunc: func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
				return []models.DiscoverSuggestion{{Category: "group", ID: "g1", Name: "NLP Reading Group"}}, nil
			},
			projectsFunc: func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
				return []models.DiscoverSuggestion{{Category: "project", ID: "pr1", Name: "Open Corpus"}}, nil
			},
			usersFunc: func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
				return []models.DiscoverSuggestion{{Category: "user", ID: "u9", Name: "Dr. Chen"}}, nil
			},
		}
		svc := NewDiscoverService(reader, nil)

		out, err := svc.Discover(ctx, "u1", 5)
		require.NoError(t, err)
		require.Len(t, out, 3)

		assert.Equal(t, "g1", out[0].ID)
		assert.Equal(t, reasonGroup, out[0].Reason)
		assert.Equal(t, "pr1", out[1].ID)
		assert.Equal(t, reasonProject, out[1].Reason)
		assert.Equal(t, "u9", out[2].ID)
		assert.Equal(t, reasonUser, out[2].Reason)
	})

	t.Run("per-category limit defaults and caps", func(t *testing.T) {
		var gotLimit int

		reader := &mockSuggestionReader{
			groupsFunc: func(_ context.Context, _ string, limit int) ([]models.DiscoverSuggestion, error) {
				gotLimit = limit

				return nil, nil
			},
		}
		svc := NewDiscoverService(reader, nil)

		_, err := svc.Discover(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, defaultDiscoverPerCategory, gotLimit)

		_, err = svc.Discover(ctx, "u1", 500)
		require.NoError(t, err)
		assert.Equal(t, maxDiscoverPerCategory, gotLimit)
	})

	t.Run("one failing category drops out", func(t *testing.T) {
		reader := &mockSuggestionReader{
			groupsFunc: func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
				return nil, errors.New("groups table locked")
			},
			usersFunc: func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
				return []models.DiscoverSuggestion{{Category: "user", ID: "u9"}}, nil
			},
		}
		svc := NewDiscoverService(reader, nil)

		out, err := svc.Discover(ctx, "u1", 5)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "u9", out[0].ID)
	})

	t.Run("fails only when every category fails", func(t *testing.T) {
		lookupErr := errors.New("db down")
		failing := func(_ context.Context, _ string, _ int) ([]models.DiscoverSuggestion, error) {
			return nil, lookupErr
		}
		reader := &mockSuggestionReader{groupsFunc: failing, projectsFunc: failing, usersFunc: failing}
		svc := NewDiscoverService(reader, nil)

		_, err := svc.Discover(ctx, "u1", 5)
		require.ErrorIs(t, err, lookupErr)
	})

	t.Run("no suggestions anywhere is not an error", func(t *testing.T) {
		svc := NewDiscoverService(&mockSuggestionReader{}, nil)

		out, err := svc.Discover(ctx, "u1", 5)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
