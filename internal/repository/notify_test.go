package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Table + ":" + ev.Type
	}
	return out
}

func newNotifyingRepo(t *testing.T) (*Notifying, *Repository, *recordingPublisher) {
	t.Helper()
	store := newTestRepo(t)
	pub := &recordingPublisher{}
	return NewNotifying(store, pub, logger.Discard()), store, pub
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNotifying_PublishesRoomLifecycle(t *testing.T) {
	n, store, pub := newNotifyingRepo(t)
	ctx := context.Background()
	theme, _ := seedTheme(t, store, "Classic", "Fruit")

	room := &models.Room{ID: uuid.New(), Code: "NOTE01", ThemeID: theme.ID, Status: models.StatusWaiting,
		MaxPlayers: 4, CreatedAt: time.Now().UTC()}
	host := newParticipant(room.ID, "host")
	room.HostUserID = host.UserID
	if err := n.CreateRoom(ctx, room, host); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	guest := newParticipant(room.ID, "guest")
	if err := n.AddParticipant(ctx, guest, room.MaxPlayers); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if err := n.SetParticipantReady(ctx, room.ID, guest.UserID, true); err != nil {
		t.Fatalf("SetParticipantReady failed: %v", err)
	}
	letter := "T"
	err := n.TransitionRoom(ctx, room.ID, RoomTransition{
		From: []models.RoomStatus{models.StatusWaiting}, To: models.StatusInProgress, Letter: &letter, RoundNumber: 1,
	})
	if err != nil {
		t.Fatalf("TransitionRoom failed: %v", err)
	}
	if set, err := n.SetBastaCaller(ctx, room.ID, guest.UserID, 1, time.Now().UTC()); err != nil || !set {
		t.Fatalf("SetBastaCaller: set=%v err=%v", set, err)
	}
	// a second caller changes nothing and publishes nothing
	if set, _ := n.SetBastaCaller(ctx, room.ID, host.UserID, 1, time.Now().UTC()); set {
		t.Fatal("second caller should not be recorded")
	}
	err = n.TransitionRoom(ctx, room.ID, RoomTransition{
		From: models.Sources(models.StatusScoring), To: models.StatusScoring, AtRound: 1,
	})
	if err != nil {
		t.Fatalf("TransitionRoom failed: %v", err)
	}
	// only participants with a round total are published
	err = n.ApplyRoundScores(ctx, RoundScores{RoomID: room.ID, RoundNumber: 1, Totals: map[uuid.UUID]int{guest.ID: 100}})
	if err != nil {
		t.Fatalf("ApplyRoundScores failed: %v", err)
	}

	want := []string{
		"rooms:INSERT", "participants:INSERT",
		"participants:INSERT",
		"participants:UPDATE",
		"rooms:UPDATE",
		"rooms:UPDATE",
		"rooms:UPDATE",
		"participants:UPDATE",
	}
	if got := pub.tables(); !equalStrings(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	last := pub.events[len(pub.events)-1]
	p, ok := last.Record.(*models.Participant)
	if !ok || p.Score != 100 || last.RoomID != room.ID {
		t.Errorf("expected participant record with score 100, got %+v", last.Record)
	}
	roomEv := pub.events[4]
	if r, ok := roomEv.Record.(*models.Room); !ok || r.Status != models.StatusInProgress {
		t.Errorf("expected in_progress room record, got %+v", roomEv.Record)
	}
}

func TestNotifying_FailedWritePublishesNothing(t *testing.T) {
	n, _, pub := newNotifyingRepo(t)
	ctx := context.Background()

	err := n.TransitionRoom(ctx, uuid.New(), RoomTransition{
		From: []models.RoomStatus{models.StatusWaiting}, To: models.StatusInProgress,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := n.SetParticipantReady(ctx, uuid.New(), uuid.New(), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.tables()) != 0 {
		t.Errorf("expected no events, got %v", pub.tables())
	}
}

func TestNotifying_PublishErrorDoesNotFailWrite(t *testing.T) {
	n, store, pub := newNotifyingRepo(t)
	pub.err = errors.New("broker down")
	theme, _ := seedTheme(t, store, "Classic", "Fruit")

	room := &models.Room{ID: uuid.New(), Code: "NOTE02", ThemeID: theme.ID, Status: models.StatusWaiting,
		MaxPlayers: 4, CreatedAt: time.Now().UTC()}
	host := newParticipant(room.ID, "host")
	room.HostUserID = host.UserID

	if err := n.CreateRoom(context.Background(), room, host); err != nil {
		t.Fatalf("write should succeed despite publish failure: %v", err)
	}
	if _, err := store.GetRoom(context.Background(), room.ID); err != nil {
		t.Errorf("room should be stored: %v", err)
	}
}
