package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to RoomStatus
		want     bool
	}{
		{StatusWaiting, StatusInProgress, true},
		{StatusWaiting, StatusScoring, false},
		{StatusInProgress, StatusBastaCountdown, true},
		{StatusInProgress, StatusScoring, true},
		{StatusBastaCountdown, StatusScoring, true},
		{StatusBastaCountdown, StatusInProgress, false},
		{StatusScoring, StatusRoundOverResults, true},
		{StatusScoring, StatusInProgress, true},
		{StatusRoundOverResults, StatusInProgress, true},
		{StatusRoundOverResults, StatusFinished, true},
		{StatusRoundOverResults, StatusWaiting, false},
		{StatusFinished, StatusInProgress, false},
		{StatusFinished, StatusWaiting, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSources_Scoring(t *testing.T) {
	got := Sources(StatusScoring)
	if len(got) != 2 || got[0] != StatusInProgress || got[1] != StatusBastaCountdown {
		t.Errorf("expected [in_progress basta_countdown], got %v", got)
	}
}

func TestParseRoomStatus(t *testing.T) {
	for _, st := range AllStatuses() {
		parsed, err := ParseRoomStatus(string(st))
		if err != nil {
			t.Errorf("ParseRoomStatus(%q) failed: %v", st, err)
		}
		if parsed != st {
			t.Errorf("expected %q, got %q", st, parsed)
		}
	}

	if _, err := ParseRoomStatus("paused"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusBastaCountdown.AcceptsAnswers() {
		t.Error("basta_countdown should accept answers")
	}
	if StatusScoring.AcceptsAnswers() {
		t.Error("scoring should not accept answers")
	}
	if !StatusRoundOverResults.Scored() {
		t.Error("round_over_results should be scored")
	}
	if !StatusFinished.Terminal() {
		t.Error("finished should be terminal")
	}
	if StatusWaiting.HasLetter() {
		t.Error("waiting should not carry a letter")
	}
}
