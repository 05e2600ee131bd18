package service

import (
	"context"
	"log/slog"

	"github.com/scholarnet/reco/internal/models"
)

// Per-category suggestion bounds.
const (
	defaultDiscoverPerCategory = 5
	maxDiscoverPerCategory     = 20
)

// Static discover reasons, one per category.
const (
	reasonGroup   = "active community in your field"
	reasonProject = "open project looking for collaborators"
	reasonUser    = "researcher you may know"
)

// SuggestionReader lists candidate groups, projects, and users to suggest.
type SuggestionReader interface {
	ListGroupSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
	ListProjectSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
	ListUserSuggestions(ctx context.Context, userID string, limit int) ([]models.DiscoverSuggestion, error)
}

// DiscoverService assembles the browse surface: groups, projects, and people
// the user is not yet connected to. Categories are independent; one failing
// category drops out instead of failing the page.
type DiscoverService struct {
	content SuggestionReader
	logger  *slog.Logger
}

// NewDiscoverService creates a DiscoverService. Logger may be nil.
func NewDiscoverService(content SuggestionReader, logger *slog.Logger) *DiscoverService {
	if logger == nil {
		logger = slog.Default()
	}

	return &DiscoverService{content: content, logger: logger}
}

// Discover returns suggestions grouped in category order: groups, projects,
// then users, each capped at perCategory and annotated with its reason.
func (s *DiscoverService) Discover(ctx context.Context, userID string, perCategory int) ([]models.DiscoverSuggestion, error) {
	if perCategory <= 0 {
		perCategory = defaultDiscoverPerCategory
	}

	if perCategory > maxDiscoverPerCategory {
		perCategory = maxDiscoverPerCategory
	}

	var out []models.DiscoverSuggestion

	categories := []struct {
		name   string
		reason string
		list   func(context.Context, string, int) ([]models.DiscoverSuggestion, error)
	}{
		{"group", reasonGroup, s.content.ListGroupSuggestions},
		{"project", reasonProject, s.content.ListProjectSuggestions},
		{"user", reasonUser, s.content.ListUserSuggestions},
	}

	var lastErr error

	for _, c := range categories {
		suggestions, err := c.list(ctx, userID, perCategory)
		if err != nil {
			s.logger.Warn("discover: category lookup failed", "category", c.name, "error", err)

			lastErr = err

			continue
		}

		for i := range suggestions {
			suggestions[i].Reason = c.reason
		}

		out = append(out, suggestions...)
	}

	// Only fail when nothing at all could be assembled.
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return out, nil
}
