package models

import "fmt"

// RoomStatus is the lifecycle state of a room
type RoomStatus string

const (
	StatusWaiting          RoomStatus = "waiting"
	StatusInProgress       RoomStatus = "in_progress"
	StatusBastaCountdown   RoomStatus = "basta_countdown"
	StatusScoring          RoomStatus = "scoring"
	StatusRoundOverResults RoomStatus = "round_over_results"
	StatusFinished         RoomStatus = "finished"
)

var transitions = map[RoomStatus][]RoomStatus{
	StatusWaiting:          {StatusInProgress},
	StatusInProgress:       {StatusBastaCountdown, StatusScoring, StatusRoundOverResults},
	StatusBastaCountdown:   {StatusScoring, StatusRoundOverResults},
	StatusScoring:          {StatusRoundOverResults, StatusInProgress},
	StatusRoundOverResults: {StatusInProgress, StatusFinished},
	StatusFinished:         nil,
}

// ParseRoomStatus validates a stored status value.
func ParseRoomStatus(s string) (RoomStatus, error) {
	st := RoomStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown room status %q", s)
	}
	return st, nil
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to RoomStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sources lists every status that may move to the given one.
func Sources(to RoomStatus) []RoomStatus {
	var from []RoomStatus
	for _, st := range AllStatuses() {
		if CanTransition(st, to) {
			from = append(from, st)
		}
	}
	return from
}

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []RoomStatus {
	return []RoomStatus{
		StatusWaiting,
		StatusInProgress,
		StatusBastaCountdown,
		StatusScoring,
		StatusRoundOverResults,
		StatusFinished,
	}
}

// AcceptsAnswers reports whether submissions are open.
func (s RoomStatus) AcceptsAnswers() bool {
	return s == StatusInProgress || s == StatusBastaCountdown
}

// Scored reports whether the current round already has results.
func (s RoomStatus) Scored() bool {
	return s == StatusScoring || s == StatusRoundOverResults || s == StatusFinished
}

// Terminal reports whether no further transition is possible.
func (s RoomStatus) Terminal() bool {
	return s == StatusFinished
}

// HasLetter reports whether a room in this status must carry a letter.
func (s RoomStatus) HasLetter() bool {
	return s == StatusInProgress || s == StatusBastaCountdown || s == StatusScoring
}
