package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxRounds is the number of rounds played before a room finishes.
const MaxRounds = 3

// Player limits for a room.
const (
	MinPlayers     = 2
	MaxPlayers     = 16
	DefaultPlayers = 8
)

// Identity is the verified caller of an operation.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
}

// Room is one game session
type Room struct {
	ID                 uuid.UUID     `json:"id"`
	Code               string        `json:"room_code"`
	ThemeID            uuid.UUID     `json:"theme_id"`
	HostUserID         uuid.UUID     `json:"host_user_id"`
	Status             RoomStatus    `json:"status"`
	MaxPlayers         int           `json:"max_players"`
	CurrentRoundNumber int           `json:"current_round_number"`
	CurrentLetter      *string       `json:"current_letter"`
	BastaCaller        uuid.NullUUID `json:"basta_caller"`
	BastaCalledAt      *time.Time    `json:"basta_called_at"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Letter returns the current round letter or the empty string.
func (r *Room) Letter() string {
	if r.CurrentLetter == nil {
		return ""
	}
	return *r.CurrentLetter
}

// Participant is a player seated in a room
type Participant struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	Nickname string    `json:"nickname"`
	Score    int       `json:"score"`
	IsReady  bool      `json:"is_ready"`
	JoinedAt time.Time `json:"joined_at"`
}

// Theme groups the categories played in a room
type Theme struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is one column of the answer sheet
type Category struct {
	ID        uuid.UUID `json:"id"`
	ThemeID   uuid.UUID `json:"theme_id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is one participant's entry for one category in one round.
// Scoring fields are zero until the round has been scored.
type Answer struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	RoundNumber    int       `json:"round_number"`
	ParticipantID  uuid.UUID `json:"participant_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	Text           string    `json:"answer_text"`
	NormalizedText string    `json:"normalized_text"`
	IsValid        bool      `json:"is_valid"`
	Score          int       `json:"score_awarded"`
	Note           string    `json:"validation_note"`
	CreatedAt      time.Time `json:"created_at"`
}

// Round records the letter a round was played with
type Round struct {
	RoomID      uuid.UUID `json:"room_id"`
	RoundNumber int       `json:"round_number"`
	Letter      string    `json:"letter"`
	StartedAt   time.Time `json:"started_at"`
}

// ChangeEvent describes a committed row change for real-time subscribers
type ChangeEvent struct {
	Table  string      `json:"table"`
	Type   string      `json:"type"`
	RoomID uuid.UUID   `json:"room_id"`
	Record interface{} `json:"record"`
}

// Change event tables and types.
const (
	TableRooms        = "rooms"
	TableParticipants = "participants"

	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
