package services

import (
	stderrors "errors"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/repository"
)

// Field limits shared by the services and request validation.
const (
	MinNicknameLength = 2
	MaxNicknameLength = 50
	MinNameLength     = 3
	MaxNameLength     = 100

	defaultNicknameLength = 20
)

// Errors returned by more than one operation
var (
	ErrNotParticipant = errors.NotFound("you are not a participant in this room")
	ErrGameFinished   = errors.Conflict("the game has finished")
	ErrRoomNotFound   = errors.NotFound("room not found")
)

// storeError passes transient store failures through unchanged and reports
// anything else as an internal error with msg as context.
func storeError(err error, msg string) error {
	if errors.IsKind(err, errors.ErrTransient) {
		return err
	}
	return errors.Wrap(err, errors.ErrInternal, msg)
}

// notFoundOr maps repository.ErrNotFound to nf and everything else through storeError.
func notFoundOr(err error, nf error, msg string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return nf
	}
	return storeError(err, msg)
}
