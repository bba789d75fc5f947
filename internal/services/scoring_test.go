package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
	"github.com/abrezinsky/basta/internal/services"
)

func answer(participant, category uuid.UUID, text string) models.Answer {
	return models.Answer{ID: uuid.New(), ParticipantID: participant, CategoryID: category, Text: text}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Aguila", "aguila"},
		{"  aguila  ", "aguila"},
		{"ARAÑA", "araña"},
		{"\t\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := services.NormalizeAnswer(tt.in); got != tt.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreAnswers_SharedAndUnique(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	animal := uuid.New()

	result := services.ScoreAnswers([]models.Answer{
		answer(p1, animal, "Aguila"),
		answer(p2, animal, "aguila "),
	}, "A")

	for _, sa := range result.Answers {
		if !sa.Valid || sa.Score != 50 || sa.Note != "shared by 2" {
			t.Errorf("answer %+v: expected valid, 50 points, note 'shared by 2'", sa)
		}
	}
	if result.Totals[p1] != 50 || result.Totals[p2] != 50 {
		t.Errorf("expected totals 50/50, got %v", result.Totals)
	}
}

func TestScoreAnswers_GroupsPerCategory(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	animal, fruit := uuid.New(), uuid.New()

	result := services.ScoreAnswers([]models.Answer{
		answer(p1, animal, "Araña"),
		answer(p2, fruit, "araña"),
	}, "a")

	for _, sa := range result.Answers {
		if sa.Score != services.UniqueAnswerPoints || sa.Note != services.NoteUnique {
			t.Errorf("same text in different categories should be unique, got %+v", sa)
		}
	}
}

func TestScoreAnswers_FloorSplit(t *testing.T) {
	animal := uuid.New()
	tests := []struct {
		players int
		want    int
	}{
		{1, 100},
		{2, 50},
		{3, 33},
		{6, 16},
		{7, 14},
		{16, 6},
	}
	for _, tt := range tests {
		var answers []models.Answer
		for i := 0; i < tt.players; i++ {
			answers = append(answers, answer(uuid.New(), animal, "Burro"))
		}
		result := services.ScoreAnswers(answers, "B")
		for _, sa := range result.Answers {
			if sa.Score != tt.want {
				t.Errorf("%d players: expected %d each, got %d", tt.players, tt.want, sa.Score)
			}
		}
	}
}

func TestScoreAnswers_InvalidAnswers(t *testing.T) {
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	animal := uuid.New()

	result := services.ScoreAnswers([]models.Answer{
		answer(p1, animal, "   "),
		answer(p2, animal, "Burro"),
		answer(p3, animal, "Alce"),
	}, "A")

	byParticipant := make(map[uuid.UUID]services.ScoredAnswer)
	for _, sa := range result.Answers {
		byParticipant[sa.ParticipantID] = sa
	}

	if sa := byParticipant[p1]; sa.Valid || sa.Score != 0 || sa.Note != services.NoteEmpty {
		t.Errorf("blank answer: got %+v", sa)
	}
	if sa := byParticipant[p2]; sa.Valid || sa.Score != 0 || sa.Note != services.NoteWrongLetter {
		t.Errorf("wrong letter: got %+v", sa)
	}
	// invalid answers never share a group with valid ones
	if sa := byParticipant[p3]; !sa.Valid || sa.Score != 100 {
		t.Errorf("only valid answer should be unique, got %+v", sa)
	}
	if result.Totals[p1] != 0 || result.Totals[p2] != 0 {
		t.Errorf("invalid answers should total zero, got %v", result.Totals)
	}
}

func TestScoreAnswers_OrderIndependent(t *testing.T) {
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()
	animal, country := uuid.New(), uuid.New()
	answers := []models.Answer{
		answer(p1, animal, "Aguila"),
		answer(p2, animal, "aguila"),
		answer(p3, animal, "Araña"),
		answer(p1, country, "Argentina"),
		answer(p2, country, "Brasil"),
	}
	reversed := make([]models.Answer, len(answers))
	for i, a := range answers {
		reversed[len(answers)-1-i] = a
	}

	a := services.ScoreAnswers(answers, "A")
	b := services.ScoreAnswers(reversed, "A")
	for id, total := range a.Totals {
		if b.Totals[id] != total {
			t.Errorf("participant %s: %d vs %d", id, total, b.Totals[id])
		}
	}
	if a.Totals[p1] != 150 || a.Totals[p2] != 50 || a.Totals[p3] != 100 {
		t.Errorf("unexpected totals %v", a.Totals)
	}
}

func TestScoreAnswers_Empty(t *testing.T) {
	result := services.ScoreAnswers(nil, "A")
	if len(result.Answers) != 0 || len(result.Totals) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestScoringEngine_ScoreRound_Persists(t *testing.T) {
	g := newGame(t, 2, "Animal", "Country")
	ctx := context.Background()
	g.startRound(t)

	repo := g.repo
	host, guest := g.participant(t, g.host), g.participant(t, g.guests[0])
	for _, a := range []models.Answer{
		{ID: uuid.New(), RoomID: g.room.ID, RoundNumber: 1, ParticipantID: host.ID, CategoryID: g.cats[0].ID, Text: "Aguila"},
		{ID: uuid.New(), RoomID: g.room.ID, RoundNumber: 1, ParticipantID: guest.ID, CategoryID: g.cats[0].ID, Text: "Alce"},
	} {
		a.NormalizedText = services.NormalizeAnswer(a.Text)
		if err := repo.InsertAnswer(ctx, &a); err != nil {
			t.Fatalf("InsertAnswer failed: %v", err)
		}
	}

	engine := services.NewScoringEngine(logger.Discard(), repo)

	// scores are only written while the room is scoring the round
	if _, err := engine.ScoreRound(ctx, g.room.ID, 1, "A"); err == nil {
		t.Fatal("expected scoring outside the scoring status to fail")
	}
	if p := g.participant(t, g.host); p.Score != 0 {
		t.Fatalf("rejected pass changed the host score to %d", p.Score)
	}

	err := repo.TransitionRoom(ctx, g.room.ID, repository.RoomTransition{
		From:    models.Sources(models.StatusScoring),
		To:      models.StatusScoring,
		AtRound: 1,
	})
	if err != nil {
		t.Fatalf("TransitionRoom failed: %v", err)
	}
	score, err := engine.ScoreRound(ctx, g.room.ID, 1, "A")
	if err != nil {
		t.Fatalf("ScoreRound failed: %v", err)
	}
	if score.Totals[host.ID] != 100 || score.Totals[guest.ID] != 100 {
		t.Errorf("expected 100 each, got %v", score.Totals)
	}

	stored, err := repo.ListRoundAnswers(ctx, g.room.ID, 1)
	if err != nil {
		t.Fatalf("ListRoundAnswers failed: %v", err)
	}
	for _, a := range stored {
		if !a.IsValid || a.Score != 100 || a.Note != services.NoteUnique {
			t.Errorf("stored answer not scored: %+v", a)
		}
	}
	if p := g.participant(t, g.host); p.Score != 100 {
		t.Errorf("expected host score 100, got %d", p.Score)
	}
}

func TestScoringEngine_ScoreRound_NoAnswers(t *testing.T) {
	g := newGame(t, 2, "Animal")
	g.startRound(t)

	engine := services.NewScoringEngine(logger.Discard(), g.repo)
	score, err := engine.ScoreRound(context.Background(), g.room.ID, 1, "A")
	if err != nil {
		t.Fatalf("ScoreRound failed: %v", err)
	}
	if len(score.Answers) != 0 {
		t.Errorf("expected no scored answers, got %d", len(score.Answers))
	}
}
