package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
var ErrDuplicate = errors.New("record already exists")

// ErrStatusChanged is returned when a conditional room update matched no row
// because the room is no longer in one of the expected statuses.
var ErrStatusChanged = errors.New("room status changed")

// ErrRoomFull is returned when a participant insert would exceed max_players.
var ErrRoomFull = errors.New("room is full")
