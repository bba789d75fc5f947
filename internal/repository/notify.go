package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
)

// ChangePublisher receives committed row changes
type ChangePublisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Notifying wraps a Store and publishes room and participant changes after
// each successful write. Game logic never talks to the publisher directly.
type Notifying struct {
	Store
	log logger.Logger
	pub ChangePublisher
}

// NewNotifying creates a change-publishing decorator around store
func NewNotifying(store Store, pub ChangePublisher, log logger.Logger) *Notifying {
	return &Notifying{Store: store, log: log, pub: pub}
}

func (n *Notifying) publishRoom(ctx context.Context, id uuid.UUID, changeType string) {
	ctx = context.WithoutCancel(ctx)
	room, err := n.Store.GetRoom(ctx, id)
	if err != nil {
		n.log.Warn("Change notification skipped", "table", models.TableRooms, "room_id", id, "error", err)
		return
	}
	n.publish(ctx, models.ChangeEvent{Table: models.TableRooms, Type: changeType, RoomID: id, Record: room})
}

func (n *Notifying) publishParticipant(ctx context.Context, p *models.Participant, changeType string) {
	n.publish(context.WithoutCancel(ctx), models.ChangeEvent{
		Table:  models.TableParticipants,
		Type:   changeType,
		RoomID: p.RoomID,
		Record: p,
	})
}

func (n *Notifying) publish(ctx context.Context, ev models.ChangeEvent) {
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.log.Warn("Change notification failed", "table", ev.Table, "room_id", ev.RoomID, "error", err)
	}
}

// CreateRoom publishes the new room and its host
func (n *Notifying) CreateRoom(ctx context.Context, room *models.Room, host *models.Participant) error {
	if err := n.Store.CreateRoom(ctx, room, host); err != nil {
		return err
	}
	n.publishRoom(ctx, room.ID, models.ChangeInsert)
	n.publishParticipant(ctx, host, models.ChangeInsert)
	return nil
}

// TransitionRoom publishes the room after a status change
func (n *Notifying) TransitionRoom(ctx context.Context, id uuid.UUID, t RoomTransition) error {
	if err := n.Store.TransitionRoom(ctx, id, t); err != nil {
		return err
	}
	n.publishRoom(ctx, id, models.ChangeUpdate)
	return nil
}

// SetBastaCaller publishes the room when the caller was recorded
func (n *Notifying) SetBastaCaller(ctx context.Context, id, userID uuid.UUID, roundNumber int, at time.Time) (bool, error) {
	set, err := n.Store.SetBastaCaller(ctx, id, userID, roundNumber, at)
	if err != nil || !set {
		return set, err
	}
	n.publishRoom(ctx, id, models.ChangeUpdate)
	return true, nil
}

// AddParticipant publishes the joined participant
func (n *Notifying) AddParticipant(ctx context.Context, p *models.Participant, maxPlayers int) error {
	if err := n.Store.AddParticipant(ctx, p, maxPlayers); err != nil {
		return err
	}
	n.publishParticipant(ctx, p, models.ChangeInsert)
	return nil
}

// SetParticipantReady publishes the participant's new ready state
func (n *Notifying) SetParticipantReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	if err := n.Store.SetParticipantReady(ctx, roomID, userID, ready); err != nil {
		return err
	}
	p, err := n.Store.GetParticipant(context.WithoutCancel(ctx), roomID, userID)
	if err != nil {
		n.log.Warn("Change notification skipped", "table", models.TableParticipants, "room_id", roomID, "error", err)
		return nil
	}
	n.publishParticipant(ctx, p, models.ChangeUpdate)
	return nil
}

// ApplyRoundScores publishes every scored participant, in join order
func (n *Notifying) ApplyRoundScores(ctx context.Context, scores RoundScores) error {
	if err := n.Store.ApplyRoundScores(ctx, scores); err != nil {
		return err
	}
	participants, err := n.Store.ListParticipants(context.WithoutCancel(ctx), scores.RoomID)
	if err != nil {
		n.log.Warn("Change notification skipped", "table", models.TableParticipants, "room_id", scores.RoomID, "error", err)
		return nil
	}
	for i := range participants {
		if _, ok := scores.Totals[participants[i].ID]; ok {
			n.publishParticipant(ctx, &participants[i], models.ChangeUpdate)
		}
	}
	return nil
}
