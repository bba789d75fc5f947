package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

// Points for a valid answer nobody else gave.
const UniqueAnswerPoints = 100

// Validation notes written on scored answers
const (
	NoteEmpty       = "empty"
	NoteWrongLetter = "wrong letter"
	NoteUnique      = "unique"
)

// ScoredAnswer is the scoring outcome for one stored answer
type ScoredAnswer struct {
	AnswerID      uuid.UUID `json:"answer_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	CategoryID    uuid.UUID `json:"category_id"`
	Normalized    string    `json:"normalized_text"`
	Valid         bool      `json:"is_valid"`
	Score         int       `json:"score"`
	Note          string    `json:"validation_note"`
}

// RoundScore is the full outcome of scoring one round
type RoundScore struct {
	Answers []ScoredAnswer `json:"answers"`
	// Totals holds the round total of every participant with at least one answer.
	Totals map[uuid.UUID]int `json:"totals"`
}

// NormalizeAnswer trims surrounding whitespace and lower-cases s
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SharedNote is the note for a valid answer given by k participants
func SharedNote(k int) string {
	return fmt.Sprintf("shared by %d", k)
}

// ScoreAnswers scores one round's answers against letter. It is pure: the
// same answers always produce the same result regardless of input order.
//
// A valid answer starts with the letter after normalization. Valid answers
// are grouped by (category, normalized text); a group of one earns 100 and a
// group of k earns floor(100/k) per member. Invalid answers earn nothing.
func ScoreAnswers(answers []models.Answer, letter string) RoundScore {
	prefix := strings.ToLower(strings.TrimSpace(letter))

	type groupKey struct {
		category uuid.UUID
		text     string
	}
	groups := make(map[groupKey]int)

	scored := make([]ScoredAnswer, len(answers))
	for i, a := range answers {
		sa := ScoredAnswer{
			AnswerID:      a.ID,
			ParticipantID: a.ParticipantID,
			CategoryID:    a.CategoryID,
			Normalized:    NormalizeAnswer(a.Text),
		}
		switch {
		case sa.Normalized == "":
			sa.Note = NoteEmpty
		case prefix == "" || !strings.HasPrefix(sa.Normalized, prefix):
			sa.Note = NoteWrongLetter
		default:
			sa.Valid = true
			groups[groupKey{sa.CategoryID, sa.Normalized}]++
		}
		scored[i] = sa
	}

	totals := make(map[uuid.UUID]int)
	for i := range scored {
		sa := &scored[i]
		if sa.Valid {
			k := groups[groupKey{sa.CategoryID, sa.Normalized}]
			if k == 1 {
				sa.Score = UniqueAnswerPoints
				sa.Note = NoteUnique
			} else {
				sa.Score = UniqueAnswerPoints / k
				sa.Note = SharedNote(k)
			}
		}
		totals[sa.ParticipantID] += sa.Score
	}

	return RoundScore{Answers: scored, Totals: totals}
}

// ScoringRepository defines the repository methods needed by ScoringEngine
type ScoringRepository interface {
	ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error)
	ApplyRoundScores(ctx context.Context, scores repository.RoundScores) error
}

// ScoringEngine scores a round and persists the outcome
type ScoringEngine struct {
	log  logger.Logger
	repo ScoringRepository
}

// NewScoringEngine creates a new ScoringEngine
func NewScoringEngine(log logger.Logger, repo ScoringRepository) *ScoringEngine {
	return &ScoringEngine{log: log, repo: repo}
}

// ScoreRound loads the round's answers, scores them and writes per-answer
// results and cumulative participant scores. A round without answers is
// returned as an empty score with nothing written.
//
// The writes land in one transaction that requires the room to be scoring
// this round, so a failed pass leaves no partial totals behind and a retry
// adds each total exactly once.
func (e *ScoringEngine) ScoreRound(ctx context.Context, roomID uuid.UUID, roundNumber int, letter string) (*RoundScore, error) {
	answers, err := e.repo.ListRoundAnswers(ctx, roomID, roundNumber)
	if err != nil {
		return nil, storeError(err, "failed to load round answers")
	}
	if len(answers) == 0 {
		e.log.Info("Round has no answers, skipping scoring", "room_id", roomID, "round", roundNumber)
		return &RoundScore{Totals: map[uuid.UUID]int{}}, nil
	}

	result := ScoreAnswers(answers, letter)

	scores := repository.RoundScores{
		RoomID:      roomID,
		RoundNumber: roundNumber,
		Answers:     make([]repository.AnswerScore, len(result.Answers)),
		Totals:      result.Totals,
	}
	for i, sa := range result.Answers {
		scores.Answers[i] = repository.AnswerScore{AnswerID: sa.AnswerID, Valid: sa.Valid, Score: sa.Score, Note: sa.Note}
	}
	if err := e.repo.ApplyRoundScores(ctx, scores); err != nil {
		return nil, storeError(err, "failed to store round scores")
	}

	e.log.Info("Round scored", "room_id", roomID, "round", roundNumber,
		"answers", len(result.Answers), "participants", len(result.Totals))
	return &result, nil
}
