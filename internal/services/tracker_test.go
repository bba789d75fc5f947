package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/repository/mock"
	"github.com/abrezinsky/basta/internal/services"
	"github.com/abrezinsky/basta/internal/testutil"
)

func TestRoundProgress_Complete(t *testing.T) {
	tests := []struct {
		p    services.RoundProgress
		want bool
	}{
		{services.RoundProgress{Participants: 0, Submitted: 0}, false},
		{services.RoundProgress{Participants: 3, Submitted: 2}, false},
		{services.RoundProgress{Participants: 3, Submitted: 3}, true},
		{services.RoundProgress{Participants: 2, Submitted: 3}, true},
	}
	for _, tt := range tests {
		if got := tt.p.Complete(); got != tt.want {
			t.Errorf("%+v.Complete() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestSubmissionTracker_CountsDistinctSubmitters(t *testing.T) {
	g := newGame(t, 3, "Animal", "Country")
	g.startRound(t)
	tracker := services.NewSubmissionTracker(logger.Discard(), g.repo)
	ctx := context.Background()

	g.submit(t, g.host, map[string]string{"Animal": "Aguila", "Country": "Argentina"})
	g.submit(t, g.host, map[string]string{"Animal": "Alce"})

	progress, err := tracker.Progress(ctx, g.room.ID, 1)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.Participants != 3 || progress.Submitted != 1 || progress.Complete() {
		t.Errorf("unexpected progress %+v", progress)
	}

	g.submit(t, g.guests[0], map[string]string{"Country": "Austria"})
	progress, err = tracker.Progress(ctx, g.room.ID, 1)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.Submitted != 2 {
		t.Errorf("expected 2 submitters, got %d", progress.Submitted)
	}

	// other rounds are counted separately
	progress, err = tracker.Progress(ctx, g.room.ID, 2)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.Submitted != 0 {
		t.Errorf("expected no round 2 submitters, got %d", progress.Submitted)
	}
}

func TestSubmissionTracker_StoreErrors(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	tracker := services.NewSubmissionTracker(logger.Discard(), repo)

	repo.CountParticipantsError = errors.New("boom")
	_, err := tracker.Progress(context.Background(), uuid.New(), 1)
	assertKind(t, err, apperrors.ErrInternal)

	repo.CountParticipantsError = nil
	repo.CountRoundSubmittersError = apperrors.Transient(errors.New("database is locked"))
	_, err = tracker.Progress(context.Background(), uuid.New(), 1)
	assertKind(t, err, apperrors.ErrTransient)
}
