package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
	"github.com/abrezinsky/basta/internal/services"
	"github.com/abrezinsky/basta/internal/testutil"
)

// game is a seeded room with a host and guests already joined
type game struct {
	repo   repository.FullRepository
	svc    *services.RoomService
	room   *models.Room
	host   models.Identity
	guests []models.Identity
	cats   []models.Category
}

func newRoomService(repo repository.FullRepository) *services.RoomService {
	log := logger.Discard()
	svc := services.NewRoomService(log, repo,
		services.NewSubmissionTracker(log, repo),
		services.NewScoringEngine(log, repo))
	svc.SetLetterSource(func() string { return "A" })
	return svc
}

// newGame seeds a theme and a room with players participants (host included)
func newGame(t *testing.T, players int, categories ...string) *game {
	t.Helper()
	return newGameOn(t, testutil.NewTestRepository(t), players, categories...)
}

func newGameOn(t *testing.T, repo repository.FullRepository, players int, categories ...string) *game {
	t.Helper()
	ctx := context.Background()

	theme, cats := testutil.SeedTheme(t, repo, "Classic "+uuid.NewString()[:8], categories...)
	svc := newRoomService(repo)

	g := &game{repo: repo, svc: svc, host: testutil.NewIdentity("host@example.com"), cats: cats}
	details, err := svc.Create(ctx, g.host, theme.ID, models.MaxPlayers)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	g.room = &details.Room

	for i := 1; i < players; i++ {
		guest := testutil.NewIdentity(fmt.Sprintf("guest%d@example.com", i))
		if _, err := svc.Join(ctx, g.room.Code, guest, fmt.Sprintf("Guest %d", i)); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
		g.guests = append(g.guests, guest)
	}
	return g
}

func (g *game) everyone() []models.Identity {
	return append([]models.Identity{g.host}, g.guests...)
}

// startRound readies every player and starts round 1
func (g *game) startRound(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, id := range g.everyone() {
		if _, err := g.svc.SetReady(ctx, g.room.ID, id, true); err != nil {
			t.Fatalf("SetReady failed: %v", err)
		}
	}
	if _, err := g.svc.Start(ctx, g.room.ID, g.host); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

// sheet maps category names to category ids for SubmitRound
func (g *game) sheet(answers map[string]string) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(answers))
	for _, c := range g.cats {
		if text, ok := answers[c.Name]; ok {
			out[c.ID] = text
		}
	}
	return out
}

func (g *game) submit(t *testing.T, who models.Identity, answers map[string]string) *services.SubmitResult {
	t.Helper()
	result, err := g.svc.SubmitRound(context.Background(), g.room.ID, who, g.sheet(answers))
	if err != nil {
		t.Fatalf("SubmitRound failed: %v", err)
	}
	return result
}

func (g *game) participant(t *testing.T, who models.Identity) *models.Participant {
	t.Helper()
	p, err := g.repo.GetParticipant(context.Background(), g.room.ID, who.UserID)
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	return p
}

func (g *game) status(t *testing.T) models.RoomStatus {
	t.Helper()
	room, err := g.repo.GetRoom(context.Background(), g.room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	return room.Status
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, got, err)
	}
}
