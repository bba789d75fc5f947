package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/logger"
)

// TrackerRepository defines the repository methods needed by SubmissionTracker
type TrackerRepository interface {
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	CountRoundSubmitters(ctx context.Context, roomID uuid.UUID, roundNumber int) (int, error)
}

// RoundProgress is how far a round's submissions have come
type RoundProgress struct {
	Participants int `json:"participants"`
	Submitted    int `json:"submitted"`
}

// Complete reports whether every participant has submitted
func (p RoundProgress) Complete() bool {
	return p.Participants > 0 && p.Submitted >= p.Participants
}

// SubmissionTracker decides round completion from stored answers only,
// so every server process reaches the same answer.
type SubmissionTracker struct {
	log  logger.Logger
	repo TrackerRepository
}

// NewSubmissionTracker creates a new SubmissionTracker
func NewSubmissionTracker(log logger.Logger, repo TrackerRepository) *SubmissionTracker {
	return &SubmissionTracker{log: log, repo: repo}
}

// Progress counts participants and distinct submitters for a round
func (t *SubmissionTracker) Progress(ctx context.Context, roomID uuid.UUID, roundNumber int) (RoundProgress, error) {
	participants, err := t.repo.CountParticipants(ctx, roomID)
	if err != nil {
		return RoundProgress{}, storeError(err, "failed to count participants")
	}
	submitted, err := t.repo.CountRoundSubmitters(ctx, roomID, roundNumber)
	if err != nil {
		return RoundProgress{}, storeError(err, "failed to count submissions")
	}

	progress := RoundProgress{Participants: participants, Submitted: submitted}
	t.log.Debug("Round progress", "room_id", roomID, "round", roundNumber,
		"submitted", submitted, "participants", participants)
	return progress, nil
}
