package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

// ThemeService manages themes and their categories
type ThemeService struct {
	log  logger.Logger
	repo repository.ThemeRepository
}

// NewThemeService creates a new ThemeService
func NewThemeService(log logger.Logger, repo repository.ThemeRepository) *ThemeService {
	return &ThemeService{log: log, repo: repo}
}

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return "", errors.Validationf("%s must be between %d and %d characters", field, MinNameLength, MaxNameLength)
	}
	return name, nil
}

// CreateTheme adds a theme
func (s *ThemeService) CreateTheme(ctx context.Context, name string) (*models.Theme, error) {
	name, err := validateName("theme name", name)
	if err != nil {
		return nil, err
	}

	theme := &models.Theme{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateTheme(ctx, theme); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("a theme with this name already exists")
		}
		return nil, storeError(err, "failed to create theme")
	}
	s.log.Info("Theme created", "theme_id", theme.ID, "name", name)
	return theme, nil
}

// ListThemes returns every theme
func (s *ThemeService) ListThemes(ctx context.Context) ([]models.Theme, error) {
	themes, err := s.repo.ListThemes(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list themes")
	}
	return themes, nil
}

// CreateCategory adds a category to a theme. order sets its position on the answer sheet.
func (s *ThemeService) CreateCategory(ctx context.Context, themeID uuid.UUID, name string, order int) (*models.Category, error) {
	name, err := validateName("category name", name)
	if err != nil {
		return nil, err
	}
	if order < 0 {
		return nil, errors.Validation("order must not be negative")
	}
	if err := s.requireTheme(ctx, themeID); err != nil {
		return nil, err
	}

	cat := &models.Category{ID: uuid.New(), ThemeID: themeID, Name: name, Order: order, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Duplicate("this theme already has a category with that name")
		}
		return nil, storeError(err, "failed to create category")
	}
	return cat, nil
}

// ListCategories returns a theme's categories in sheet order
func (s *ThemeService) ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error) {
	if err := s.requireTheme(ctx, themeID); err != nil {
		return nil, err
	}
	cats, err := s.repo.ListCategories(ctx, themeID)
	if err != nil {
		return nil, storeError(err, "failed to list categories")
	}
	return cats, nil
}

func (s *ThemeService) requireTheme(ctx context.Context, themeID uuid.UUID) error {
	if _, err := s.repo.GetTheme(ctx, themeID); err != nil {
		return notFoundOr(err, errors.NotFound("theme not found"), "failed to load theme")
	}
	return nil
}
