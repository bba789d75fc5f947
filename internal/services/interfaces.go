package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
)

// RoomServicer defines the interface for room lifecycle operations
type RoomServicer interface {
	Create(ctx context.Context, caller models.Identity, themeID uuid.UUID, maxPlayers int) (*RoomDetails, error)
	Get(ctx context.Context, identifier string) (*RoomDetails, error)
	Join(ctx context.Context, identifier string, caller models.Identity, nickname string) (*models.Participant, error)
	SetReady(ctx context.Context, roomID uuid.UUID, caller models.Identity, ready bool) (*models.Participant, error)
	Start(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*models.Room, error)
	SubmitRound(ctx context.Context, roomID uuid.UUID, caller models.Identity, answers map[uuid.UUID]string) (*SubmitResult, error)
	CheckRound(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*SubmitResult, error)
	NextRound(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*models.Room, error)
	InviteQRCode(ctx context.Context, identifier, baseURL string) ([]byte, error)
}

// ThemeServicer defines the interface for theme and category operations
type ThemeServicer interface {
	CreateTheme(ctx context.Context, name string) (*models.Theme, error)
	ListThemes(ctx context.Context) ([]models.Theme, error)
	CreateCategory(ctx context.Context, themeID uuid.UUID, name string, order int) (*models.Category, error)
	ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error)
}

// ResultsServicer defines the interface for round results
type ResultsServicer interface {
	RoundResults(ctx context.Context, roomID uuid.UUID, roundNumber int) (*RoundResults, error)
}

// Ensure concrete types implement interfaces
var (
	_ RoomServicer    = (*RoomService)(nil)
	_ ThemeServicer   = (*ThemeService)(nil)
	_ ResultsServicer = (*ResultsService)(nil)
	_ RoundTracker    = (*SubmissionTracker)(nil)
	_ RoundScorer     = (*ScoringEngine)(nil)
)
