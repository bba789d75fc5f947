package services

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

// ResultsServiceRepository defines the repository methods needed by ResultsService
type ResultsServiceRepository interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRound(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error)
	ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error)
	ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error)
}

// ResultsService assembles per-round score sheets
type ResultsService struct {
	log  logger.Logger
	repo ResultsServiceRepository
}

// NewResultsService creates a new ResultsService
func NewResultsService(log logger.Logger, repo ResultsServiceRepository) *ResultsService {
	return &ResultsService{log: log, repo: repo}
}

// AnswerResult is one scored answer on a player's sheet
type AnswerResult struct {
	Text    string `json:"answer_text"`
	Score   int    `json:"score_awarded"`
	IsValid bool   `json:"is_valid"`
	Note    string `json:"validation_note,omitempty"`
}

// PlayerRoundResult is one player's row in the results table
type PlayerRoundResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	UserID        uuid.UUID `json:"user_id"`
	Nickname      string    `json:"nickname"`
	RoundScore    int       `json:"round_score"`
	TotalScore    int       `json:"total_score"`
	// Answers is keyed by category name. Categories left blank are absent.
	Answers map[string]AnswerResult `json:"answers"`
}

// RoundResults is the score sheet of one round
type RoundResults struct {
	RoomID      uuid.UUID           `json:"room_id"`
	RoundNumber int                 `json:"round_number"`
	Letter      string              `json:"letter"`
	Status      models.RoomStatus   `json:"status"`
	Categories  []models.Category   `json:"categories"`
	Players     []PlayerRoundResult `json:"players"`
}

// RoundResults returns the scored sheet for a round. Results exist for past
// rounds and for the current round once it has been scored. Players are
// ordered by total score, highest first, then by join order.
func (s *ResultsService) RoundResults(ctx context.Context, roomID uuid.UUID, roundNumber int) (*RoundResults, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound, "failed to load room")
	}
	if roundNumber < 1 || roundNumber > room.CurrentRoundNumber {
		return nil, errors.NotFoundf("round %d has not been played", roundNumber)
	}
	if roundNumber == room.CurrentRoundNumber &&
		room.Status != models.StatusRoundOverResults && room.Status != models.StatusFinished {
		return nil, errors.Conflictf("round %d has not been scored yet", roundNumber)
	}

	var (
		letter       = room.Letter()
		participants []models.Participant
		categories   []models.Category
		answers      []models.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		round, err := s.repo.GetRound(gctx, roomID, roundNumber)
		switch {
		case err == nil:
			letter = round.Letter
		case !stderrors.Is(err, repository.ErrNotFound):
			return storeError(err, "failed to load round")
		}
		return nil
	})
	g.Go(func() (err error) {
		if participants, err = s.repo.ListParticipants(gctx, roomID); err != nil {
			return storeError(err, "failed to list participants")
		}
		return nil
	})
	g.Go(func() (err error) {
		if categories, err = s.repo.ListCategories(gctx, room.ThemeID); err != nil {
			return storeError(err, "failed to list categories")
		}
		return nil
	})
	g.Go(func() (err error) {
		if answers, err = s.repo.ListRoundAnswers(gctx, roomID, roundNumber); err != nil {
			return storeError(err, "failed to load answers")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	categoryNames := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	index := make(map[uuid.UUID]int, len(participants))
	players := make([]PlayerRoundResult, len(participants))
	for i, p := range participants {
		index[p.ID] = i
		players[i] = PlayerRoundResult{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Nickname:      p.Nickname,
			TotalScore:    p.Score,
			Answers:       make(map[string]AnswerResult),
		}
	}

	for _, a := range answers {
		i, ok := index[a.ParticipantID]
		if !ok {
			continue
		}
		name, ok := categoryNames[a.CategoryID]
		if !ok {
			s.log.Warn("Answer references unknown category", "answer_id", a.ID, "category_id", a.CategoryID)
			continue
		}
		players[i].Answers[name] = AnswerResult{
			Text:    a.Text,
			Score:   a.Score,
			IsValid: a.IsValid,
			Note:    a.Note,
		}
		players[i].RoundScore += a.Score
	}

	// participants arrive in join order, so a stable sort keeps it for ties
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TotalScore > players[j].TotalScore
	})

	return &RoundResults{
		RoomID:      roomID,
		RoundNumber: roundNumber,
		Letter:      letter,
		Status:      room.Status,
		Categories:  categories,
		Players:     players,
	}, nil
}
