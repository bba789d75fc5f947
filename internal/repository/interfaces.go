package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
)

// RoomTransition is a conditional status change. It applies only while the
// room is in one of From and, when AtRound is non-zero, still on that round.
// A non-nil Letter opens round RoundNumber with that letter and clears the
// BASTA caller.
type RoomTransition struct {
	From        []models.RoomStatus
	To          models.RoomStatus
	AtRound     int
	Letter      *string
	RoundNumber int
}

// AnswerScore is the scoring outcome written back to one answer
type AnswerScore struct {
	AnswerID uuid.UUID
	Valid    bool
	Score    int
	Note     string
}

// RoundScores is one complete scoring pass. It is applied in a single
// transaction and only while the room is scoring that round, so a pass is
// either fully written or not at all.
type RoundScores struct {
	RoomID      uuid.UUID
	RoundNumber int
	Answers     []AnswerScore
	// Totals maps participant id to the points earned this round.
	Totals map[uuid.UUID]int
}

// answerStatuses are the statuses in which answers and the BASTA caller may be written.
var answerStatuses = []models.RoomStatus{models.StatusInProgress, models.StatusBastaCountdown}

// RoomRepository defines room data operations
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room, host *models.Participant) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	TransitionRoom(ctx context.Context, id uuid.UUID, t RoomTransition) error
	SetBastaCaller(ctx context.Context, id, userID uuid.UUID, roundNumber int, at time.Time) (bool, error)
}

// RoundRepository defines round history lookups
type RoundRepository interface {
	GetRound(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error)
}

// ParticipantRepository defines participant data operations
type ParticipantRepository interface {
	AddParticipant(ctx context.Context, p *models.Participant, maxPlayers int) error
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*models.Participant, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error)
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	SetParticipantReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error
}

// ThemeRepository defines theme and category data operations
type ThemeRepository interface {
	CreateTheme(ctx context.Context, theme *models.Theme) error
	GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	ListThemes(ctx context.Context) ([]models.Theme, error)
	CreateCategory(ctx context.Context, cat *models.Category) error
	ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error)
}

// AnswerRepository defines answer data operations
type AnswerRepository interface {
	InsertAnswer(ctx context.Context, a *models.Answer) error
	ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error)
	CountRoundSubmitters(ctx context.Context, roomID uuid.UUID, roundNumber int) (int, error)
	ApplyRoundScores(ctx context.Context, scores RoundScores) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	RoomRepository
	RoundRepository
	ParticipantRepository
	ThemeRepository
	AnswerRepository
}

// Store is a FullRepository that owns a connection.
type Store interface {
	FullRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure implementations satisfy the interfaces
var (
	_ Store = (*Repository)(nil)
	_ Store = (*PostgresRepository)(nil)
	_ Store = (*Notifying)(nil)
)
