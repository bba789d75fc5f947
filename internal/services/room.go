package services

import (
	"context"
	stderrors "errors"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letterAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// createRoomAttempts bounds retries on room code collisions.
	createRoomAttempts = 5
)

// RoomServiceRepository defines the repository methods needed by RoomService
type RoomServiceRepository interface {
	repository.RoomRepository
	repository.ParticipantRepository
	GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error)
	ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error)
	InsertAnswer(ctx context.Context, a *models.Answer) error
}

// RoundTracker decides whether a round has every submission
type RoundTracker interface {
	Progress(ctx context.Context, roomID uuid.UUID, roundNumber int) (RoundProgress, error)
}

// RoundScorer scores and persists one round
type RoundScorer interface {
	ScoreRound(ctx context.Context, roomID uuid.UUID, roundNumber int, letter string) (*RoundScore, error)
}

// RoomService owns the room lifecycle. Every status change goes through a
// conditional store update, so concurrent requests on any process agree.
type RoomService struct {
	log     logger.Logger
	repo    RoomServiceRepository
	tracker RoundTracker
	scorer  RoundScorer
	letters func() string
	codes   func() string
	now     func() time.Time
}

// NewRoomService creates a new RoomService
func NewRoomService(log logger.Logger, repo RoomServiceRepository, tracker RoundTracker, scorer RoundScorer) *RoomService {
	return &RoomService{
		log:     log,
		repo:    repo,
		tracker: tracker,
		scorer:  scorer,
		letters: RandomLetter,
		codes:   RandomRoomCode,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetLetterSource replaces the round letter generator
func (s *RoomService) SetLetterSource(fn func() string) {
	s.letters = fn
}

// SetCodeSource replaces the room code generator
func (s *RoomService) SetCodeSource(fn func() string) {
	s.codes = fn
}

// RandomLetter draws a letter uniformly from A-Z
func RandomLetter() string {
	return string(letterAlphabet[rand.Intn(len(letterAlphabet))])
}

// RandomRoomCode returns six characters from A-Z and 0-9
func RandomRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

// DefaultNickname derives a display name from an identity: the local part of
// the email (at most 20 characters), otherwise "User_" and 8 characters of the id.
func DefaultNickname(id models.Identity) string {
	if local, _, ok := strings.Cut(id.Email, "@"); ok {
		local = strings.TrimSpace(local)
		if utf8.RuneCountInString(local) > defaultNicknameLength {
			local = string([]rune(local)[:defaultNicknameLength])
		}
		if utf8.RuneCountInString(local) >= MinNicknameLength {
			return local
		}
	}
	return "User_" + id.UserID.String()[:8]
}

// RoomDetails is a room with its players and answer sheet
type RoomDetails struct {
	models.Room
	Participants []models.Participant `json:"participants"`
	Categories   []models.Category    `json:"categories"`
}

// SubmitResult reports what a submission did
type SubmitResult struct {
	RoomID        uuid.UUID         `json:"room_id"`
	RoundNumber   int               `json:"round_number"`
	Accepted      int               `json:"accepted"`
	Duplicates    int               `json:"already_submitted"`
	Skipped       int               `json:"skipped_blank"`
	Progress      RoundProgress     `json:"progress"`
	RoundComplete bool              `json:"round_complete"`
	Scored        bool              `json:"scored"`
	Status        models.RoomStatus `json:"status"`
}

// ==================== Lookups ====================

// resolveRoom accepts either a room id or a join code
func (s *RoomService) resolveRoom(ctx context.Context, identifier string) (*models.Room, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.Validation("room identifier is required")
	}

	var (
		room *models.Room
		err  error
	)
	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		room, err = s.repo.GetRoom(ctx, id)
	} else {
		room, err = s.repo.GetRoomByCode(ctx, strings.ToUpper(identifier))
	}
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound, "failed to load room")
	}
	return room, nil
}

func (s *RoomService) loadRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound, "failed to load room")
	}
	return room, nil
}

// Get returns a room, its participants in join order and its categories
func (s *RoomService) Get(ctx context.Context, identifier string) (*RoomDetails, error) {
	room, err := s.resolveRoom(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, room)
}

func (s *RoomService) details(ctx context.Context, room *models.Room) (*RoomDetails, error) {
	participants, err := s.repo.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, storeError(err, "failed to list participants")
	}
	categories, err := s.repo.ListCategories(ctx, room.ThemeID)
	if err != nil {
		return nil, storeError(err, "failed to list categories")
	}
	return &RoomDetails{Room: *room, Participants: participants, Categories: categories}, nil
}

// ==================== Lobby ====================

// Create opens a room in the waiting state with the caller seated as host
func (s *RoomService) Create(ctx context.Context, caller models.Identity, themeID uuid.UUID, maxPlayers int) (*RoomDetails, error) {
	if maxPlayers < models.MinPlayers || maxPlayers > models.MaxPlayers {
		return nil, errors.Validationf("max_players must be between %d and %d", models.MinPlayers, models.MaxPlayers)
	}
	if _, err := s.repo.GetTheme(ctx, themeID); err != nil {
		return nil, notFoundOr(err, errors.NotFound("theme not found"), "failed to load theme")
	}

	now := s.now()
	for attempt := 1; attempt <= createRoomAttempts; attempt++ {
		room := &models.Room{
			ID:         uuid.New(),
			Code:       s.codes(),
			ThemeID:    themeID,
			HostUserID: caller.UserID,
			Status:     models.StatusWaiting,
			MaxPlayers: maxPlayers,
			CreatedAt:  now,
		}
		host := &models.Participant{
			ID:       uuid.New(),
			RoomID:   room.ID,
			UserID:   caller.UserID,
			Nickname: DefaultNickname(caller),
			JoinedAt: now,
		}

		err := s.repo.CreateRoom(ctx, room, host)
		if stderrors.Is(err, repository.ErrDuplicate) {
			s.log.Debug("Room code collision, retrying", "code", room.Code, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, storeError(err, "failed to create room")
		}

		s.log.Info("Room created", "room_id", room.ID, "code", room.Code, "host", caller.UserID)
		return s.details(ctx, room)
	}
	return nil, errors.Internalf("could not allocate a unique room code after %d attempts", createRoomAttempts)
}

// Join seats the caller in a waiting room. An empty nickname is derived from the identity.
func (s *RoomService) Join(ctx context.Context, identifier string, caller models.Identity, nickname string) (*models.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = DefaultNickname(caller)
	}
	if n := utf8.RuneCountInString(nickname); n < MinNicknameLength || n > MaxNicknameLength {
		return nil, errors.Validationf("nickname must be between %d and %d characters", MinNicknameLength, MaxNicknameLength)
	}

	room, err := s.resolveRoom(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, ErrGameFinished
	}
	if room.Status != models.StatusWaiting {
		return nil, errors.Conflict("the game has already started")
	}

	// the store checks capacity before membership
	p := &models.Participant{
		ID:       uuid.New(),
		RoomID:   room.ID,
		UserID:   caller.UserID,
		Nickname: nickname,
		JoinedAt: s.now(),
	}
	switch err := s.repo.AddParticipant(ctx, p, room.MaxPlayers); {
	case stderrors.Is(err, repository.ErrRoomFull):
		return nil, errors.Capacity("the room is full")
	case stderrors.Is(err, repository.ErrDuplicate):
		return nil, errors.Duplicate("you have already joined this room")
	case err != nil:
		return nil, storeError(err, "failed to join room")
	}

	s.log.Info("Player joined", "room_id", room.ID, "user_id", caller.UserID, "nickname", nickname)
	return p, nil
}

// SetReady changes the caller's ready flag while the room is waiting
func (s *RoomService) SetReady(ctx context.Context, roomID uuid.UUID, caller models.Identity, ready bool) (*models.Participant, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, ErrGameFinished
	}
	if room.Status != models.StatusWaiting {
		return nil, errors.Conflict("ready state can only change before the game starts")
	}

	if err := s.repo.SetParticipantReady(ctx, roomID, caller.UserID, ready); err != nil {
		return nil, notFoundOr(err, ErrNotParticipant, "failed to update ready state")
	}
	p, err := s.repo.GetParticipant(ctx, roomID, caller.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrNotParticipant, "failed to load participant")
	}
	return p, nil
}

// ==================== Rounds ====================

// Start moves a waiting room into round 1. Only the host may start, and
// every participant must be ready.
func (s *RoomService) Start(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*models.Room, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, ErrGameFinished
	}
	if room.HostUserID != caller.UserID {
		return nil, errors.Permission("only the host can start the game")
	}
	if room.Status != models.StatusWaiting {
		return nil, errors.Conflict("the game has already started")
	}

	participants, err := s.repo.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, storeError(err, "failed to list participants")
	}
	if len(participants) == 0 {
		return nil, errors.Precondition("at least one player is required to start")
	}
	for _, p := range participants {
		if !p.IsReady {
			return nil, errors.Precondition("all players must be ready to start")
		}
	}

	letter := s.letters()
	err = s.repo.TransitionRoom(ctx, roomID, repository.RoomTransition{
		From:        []models.RoomStatus{models.StatusWaiting},
		To:          models.StatusInProgress,
		Letter:      &letter,
		RoundNumber: 1,
	})
	if err != nil {
		return nil, s.transitionError(err, "the game has already started")
	}

	s.log.Info("Game started", "room_id", roomID, "letter", letter, "players", len(participants))
	return s.loadRoom(ctx, roomID)
}

// NextRound opens the next round, or finishes the game after the last one
func (s *RoomService) NextRound(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*models.Room, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, ErrGameFinished
	}
	if room.HostUserID != caller.UserID {
		return nil, errors.Permission("only the host can advance the round")
	}
	if room.Status != models.StatusRoundOverResults {
		return nil, errors.Conflict("the current round has not finished")
	}

	t := repository.RoomTransition{
		From:    []models.RoomStatus{models.StatusRoundOverResults},
		AtRound: room.CurrentRoundNumber,
	}
	if room.CurrentRoundNumber+1 > models.MaxRounds {
		t.To = models.StatusFinished
	} else {
		letter := s.letters()
		t.To = models.StatusInProgress
		t.Letter = &letter
		t.RoundNumber = room.CurrentRoundNumber + 1
	}

	if err := s.repo.TransitionRoom(ctx, roomID, t); err != nil {
		return nil, s.transitionError(err, "the round has already advanced")
	}

	if t.To == models.StatusFinished {
		s.log.Info("Game finished", "room_id", roomID, "rounds", room.CurrentRoundNumber)
	} else {
		s.log.Info("Round started", "room_id", roomID, "round", t.RoundNumber, "letter", *t.Letter)
	}
	return s.loadRoom(ctx, roomID)
}

// SubmitRound stores the caller's answers for the active round, keyed by
// category id. Blank answers are dropped. Answers already stored for a
// category are kept as they are. When the last participant submits, the
// round is scored before this call returns.
func (s *RoomService) SubmitRound(ctx context.Context, roomID uuid.UUID, caller models.Identity, answers map[uuid.UUID]string) (*SubmitResult, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := checkAcceptsAnswers(room.Status); err != nil {
		return nil, err
	}

	participant, err := s.repo.GetParticipant(ctx, roomID, caller.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrNotParticipant, "failed to load participant")
	}

	categories, err := s.repo.ListCategories(ctx, room.ThemeID)
	if err != nil {
		return nil, storeError(err, "failed to list categories")
	}
	known := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	for id := range answers {
		if !known[id] {
			return nil, errors.Validationf("category %s is not part of this room's theme", id)
		}
	}

	result := &SubmitResult{RoomID: roomID, RoundNumber: room.CurrentRoundNumber}
	now := s.now()
	for _, c := range categories {
		text, ok := answers[c.ID]
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			result.Skipped++
			continue
		}

		err := s.repo.InsertAnswer(ctx, &models.Answer{
			ID:             uuid.New(),
			RoomID:         roomID,
			RoundNumber:    room.CurrentRoundNumber,
			ParticipantID:  participant.ID,
			CategoryID:     c.ID,
			Text:           text,
			NormalizedText: NormalizeAnswer(text),
			CreatedAt:      now,
		})
		switch {
		case stderrors.Is(err, repository.ErrDuplicate):
			result.Duplicates++
			continue
		case stderrors.Is(err, repository.ErrStatusChanged):
			return nil, errors.Conflict("this round has already been scored")
		case err != nil:
			return nil, storeError(err, "failed to store answer")
		}
		result.Accepted++
	}

	if result.Accepted > 0 {
		if err := s.callBasta(ctx, room, caller, now); err != nil {
			return nil, err
		}
	}

	s.log.Debug("Answers submitted", "room_id", roomID, "round", room.CurrentRoundNumber,
		"user_id", caller.UserID, "accepted", result.Accepted, "duplicates", result.Duplicates)

	if err := s.settleRound(ctx, room, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckRound re-runs completion detection for the active round without
// submitting anything. It recovers a round whose scoring pass failed.
func (s *RoomService) CheckRound(ctx context.Context, roomID uuid.UUID, caller models.Identity) (*SubmitResult, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetParticipant(ctx, roomID, caller.UserID); err != nil {
		return nil, notFoundOr(err, ErrNotParticipant, "failed to load participant")
	}

	result := &SubmitResult{RoomID: roomID, RoundNumber: room.CurrentRoundNumber, Status: room.Status}
	if !room.Status.AcceptsAnswers() {
		result.RoundComplete = room.Status.Scored()
		return result, nil
	}
	if err := s.settleRound(ctx, room, result); err != nil {
		return nil, err
	}
	return result, nil
}

func checkAcceptsAnswers(status models.RoomStatus) error {
	switch {
	case status.AcceptsAnswers():
		return nil
	case status.Terminal():
		return ErrGameFinished
	case status.Scored():
		return errors.Conflict("this round has already been scored")
	default:
		return errors.Conflict("no round is in progress")
	}
}

// callBasta records the first submitter and marks the countdown. Both steps
// are conditional on the round, so only the first caller of that round
// changes anything and a late caller never marks the next one.
func (s *RoomService) callBasta(ctx context.Context, room *models.Room, caller models.Identity, at time.Time) error {
	first, err := s.repo.SetBastaCaller(ctx, room.ID, caller.UserID, room.CurrentRoundNumber, at)
	if err != nil {
		return storeError(err, "failed to record BASTA caller")
	}
	if !first {
		return nil
	}

	err = s.repo.TransitionRoom(ctx, room.ID, repository.RoomTransition{
		From:    []models.RoomStatus{models.StatusInProgress},
		To:      models.StatusBastaCountdown,
		AtRound: room.CurrentRoundNumber,
	})
	if err != nil && !stderrors.Is(err, repository.ErrStatusChanged) {
		return storeError(err, "failed to start BASTA countdown")
	}
	s.log.Info("BASTA called", "room_id", room.ID, "round", room.CurrentRoundNumber, "user_id", caller.UserID)
	return nil
}

// settleRound scores the round when every participant has submitted. The
// move into scoring is the lock: exactly one caller wins it and scores.
func (s *RoomService) settleRound(ctx context.Context, room *models.Room, result *SubmitResult) error {
	progress, err := s.tracker.Progress(ctx, room.ID, room.CurrentRoundNumber)
	if err != nil {
		return err
	}
	result.Progress = progress
	result.RoundComplete = progress.Complete()

	if result.RoundComplete {
		scored, err := s.scoreRound(ctx, room)
		if err != nil {
			return err
		}
		result.Scored = scored
	}

	current, err := s.loadRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	result.Status = current.Status
	return nil
}

func (s *RoomService) scoreRound(ctx context.Context, room *models.Room) (bool, error) {
	log := s.log.With("room_id", room.ID, "round", room.CurrentRoundNumber)

	err := s.repo.TransitionRoom(ctx, room.ID, repository.RoomTransition{
		From:    models.Sources(models.StatusScoring),
		To:      models.StatusScoring,
		AtRound: room.CurrentRoundNumber,
	})
	if stderrors.Is(err, repository.ErrStatusChanged) {
		log.Debug("Round already claimed by another scorer")
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "failed to claim round for scoring")
	}

	if _, err := s.scorer.ScoreRound(ctx, room.ID, room.CurrentRoundNumber, room.Letter()); err != nil {
		log.Error("Scoring failed, reopening round", "error", err)
		s.reopenRound(ctx, room, log)
		return false, err
	}

	err = s.repo.TransitionRoom(ctx, room.ID, repository.RoomTransition{
		From:    []models.RoomStatus{models.StatusScoring},
		To:      models.StatusRoundOverResults,
		AtRound: room.CurrentRoundNumber,
	})
	if err != nil {
		log.Error("Failed to publish round results", "error", err)
		s.reopenRound(ctx, room, log)
		return false, storeError(err, "failed to finish scoring")
	}
	return true, nil
}

// reopenRound rolls a failed scoring pass back to in_progress so the round
// can be settled again. Answers already stored stay in place.
func (s *RoomService) reopenRound(ctx context.Context, room *models.Room, log logger.Logger) {
	err := s.repo.TransitionRoom(context.WithoutCancel(ctx), room.ID, repository.RoomTransition{
		From:    []models.RoomStatus{models.StatusScoring},
		To:      models.StatusInProgress,
		AtRound: room.CurrentRoundNumber,
	})
	if err != nil {
		log.Error("Failed to reopen round after scoring failure", "error", err)
	}
}

func (s *RoomService) transitionError(err error, conflictMsg string) error {
	switch {
	case stderrors.Is(err, repository.ErrStatusChanged):
		return errors.Conflict(conflictMsg)
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrRoomNotFound
	default:
		return storeError(err, "failed to update room status")
	}
}

// ==================== Invites ====================

// InviteQRCode renders a PNG QR code linking to baseURL/join/<room code>
func (s *RoomService) InviteQRCode(ctx context.Context, identifier, baseURL string) ([]byte, error) {
	room, err := s.resolveRoom(ctx, identifier)
	if err != nil {
		return nil, err
	}
	link := strings.TrimRight(baseURL, "/") + "/join/" + room.Code
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}
