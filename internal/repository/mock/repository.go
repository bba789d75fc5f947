package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ApplyRoundScoresError = errors.New("database error")
//	svc := services.NewScoringEngine(log, mockRepo)
//	// scoring now fails while persisting the round
type Repository struct {
	repository.FullRepository

	// ===== Room Errors =====
	CreateRoomError     error
	GetRoomError        error
	GetRoomByCodeError  error
	SetBastaCallerError error
	GetRoundError       error

	// TransitionErrors fails transitions by target status.
	TransitionErrors map[models.RoomStatus]error

	// ===== Participant Errors =====
	AddParticipantError      error
	GetParticipantError      error
	ListParticipantsError    error
	CountParticipantsError   error
	SetParticipantReadyError error

	// ===== Theme Errors =====
	CreateThemeError    error
	GetThemeError       error
	ListThemesError     error
	CreateCategoryError error
	ListCategoriesError error

	// ===== Answer Errors =====
	InsertAnswerError         error
	ListRoundAnswersError     error
	CountRoundSubmittersError error
	ApplyRoundScoresError     error

	mu          sync.Mutex
	transitions []repository.RoomTransition
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository:   real,
		TransitionErrors: make(map[models.RoomStatus]error),
	}
}

// Transitions returns every transition that reached the real repository
func (m *Repository) Transitions() []repository.RoomTransition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.RoomTransition(nil), m.transitions...)
}

func (m *Repository) CreateRoom(ctx context.Context, room *models.Room, host *models.Participant) error {
	if m.CreateRoomError != nil {
		return m.CreateRoomError
	}
	return m.FullRepository.CreateRoom(ctx, room, host)
}

func (m *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	if m.GetRoomError != nil {
		return nil, m.GetRoomError
	}
	return m.FullRepository.GetRoom(ctx, id)
}

func (m *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	if m.GetRoomByCodeError != nil {
		return nil, m.GetRoomByCodeError
	}
	return m.FullRepository.GetRoomByCode(ctx, code)
}

func (m *Repository) TransitionRoom(ctx context.Context, id uuid.UUID, t repository.RoomTransition) error {
	if err := m.TransitionErrors[t.To]; err != nil {
		return err
	}
	if err := m.FullRepository.TransitionRoom(ctx, id, t); err != nil {
		return err
	}
	m.mu.Lock()
	m.transitions = append(m.transitions, t)
	m.mu.Unlock()
	return nil
}

func (m *Repository) SetBastaCaller(ctx context.Context, id, userID uuid.UUID, roundNumber int, at time.Time) (bool, error) {
	if m.SetBastaCallerError != nil {
		return false, m.SetBastaCallerError
	}
	return m.FullRepository.SetBastaCaller(ctx, id, userID, roundNumber, at)
}

func (m *Repository) GetRound(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	if m.GetRoundError != nil {
		return nil, m.GetRoundError
	}
	return m.FullRepository.GetRound(ctx, roomID, roundNumber)
}

func (m *Repository) AddParticipant(ctx context.Context, p *models.Participant, maxPlayers int) error {
	if m.AddParticipantError != nil {
		return m.AddParticipantError
	}
	return m.FullRepository.AddParticipant(ctx, p, maxPlayers)
}

func (m *Repository) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*models.Participant, error) {
	if m.GetParticipantError != nil {
		return nil, m.GetParticipantError
	}
	return m.FullRepository.GetParticipant(ctx, roomID, userID)
}

func (m *Repository) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error) {
	if m.ListParticipantsError != nil {
		return nil, m.ListParticipantsError
	}
	return m.FullRepository.ListParticipants(ctx, roomID)
}

func (m *Repository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	if m.CountParticipantsError != nil {
		return 0, m.CountParticipantsError
	}
	return m.FullRepository.CountParticipants(ctx, roomID)
}

func (m *Repository) SetParticipantReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	if m.SetParticipantReadyError != nil {
		return m.SetParticipantReadyError
	}
	return m.FullRepository.SetParticipantReady(ctx, roomID, userID, ready)
}

func (m *Repository) CreateTheme(ctx context.Context, theme *models.Theme) error {
	if m.CreateThemeError != nil {
		return m.CreateThemeError
	}
	return m.FullRepository.CreateTheme(ctx, theme)
}

func (m *Repository) GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	if m.GetThemeError != nil {
		return nil, m.GetThemeError
	}
	return m.FullRepository.GetTheme(ctx, id)
}

func (m *Repository) ListThemes(ctx context.Context) ([]models.Theme, error) {
	if m.ListThemesError != nil {
		return nil, m.ListThemesError
	}
	return m.FullRepository.ListThemes(ctx)
}

func (m *Repository) CreateCategory(ctx context.Context, cat *models.Category) error {
	if m.CreateCategoryError != nil {
		return m.CreateCategoryError
	}
	return m.FullRepository.CreateCategory(ctx, cat)
}

func (m *Repository) ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.FullRepository.ListCategories(ctx, themeID)
}

func (m *Repository) InsertAnswer(ctx context.Context, a *models.Answer) error {
	if m.InsertAnswerError != nil {
		return m.InsertAnswerError
	}
	return m.FullRepository.InsertAnswer(ctx, a)
}

func (m *Repository) ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error) {
	if m.ListRoundAnswersError != nil {
		return nil, m.ListRoundAnswersError
	}
	return m.FullRepository.ListRoundAnswers(ctx, roomID, roundNumber)
}

func (m *Repository) CountRoundSubmitters(ctx context.Context, roomID uuid.UUID, roundNumber int) (int, error) {
	if m.CountRoundSubmittersError != nil {
		return 0, m.CountRoundSubmittersError
	}
	return m.FullRepository.CountRoundSubmitters(ctx, roomID, roundNumber)
}

func (m *Repository) ApplyRoundScores(ctx context.Context, scores repository.RoundScores) error {
	if m.ApplyRoundScoresError != nil {
		return m.ApplyRoundScoresError
	}
	return m.FullRepository.ApplyRoundScores(ctx, scores)
}
