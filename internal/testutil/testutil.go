package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedTheme creates a theme with one category per name, ordered as given.
func SeedTheme(t *testing.T, repo repository.ThemeRepository, name string, categories ...string) (*models.Theme, []models.Category) {
	t.Helper()
	ctx := context.Background()

	theme := &models.Theme{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := repo.CreateTheme(ctx, theme); err != nil {
		t.Fatalf("CreateTheme failed: %v", err)
	}

	cats := make([]models.Category, 0, len(categories))
	for i, catName := range categories {
		cat := models.Category{ID: uuid.New(), ThemeID: theme.ID, Name: catName, Order: i, CreatedAt: time.Now().UTC()}
		if err := repo.CreateCategory(ctx, &cat); err != nil {
			t.Fatalf("CreateCategory failed: %v", err)
		}
		cats = append(cats, cat)
	}
	return theme, cats
}

// NewIdentity returns a fresh caller identity
func NewIdentity(email string) models.Identity {
	return models.Identity{UserID: uuid.New(), Email: email}
}
