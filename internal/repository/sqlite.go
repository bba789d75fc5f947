package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/models"
)

// DefaultQueryTimeout bounds every store call unless overridden.
const DefaultQueryTimeout = 5 * time.Second

// Repository provides data access methods backed by SQLite
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, timeout: DefaultQueryTimeout}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// SetQueryTimeout changes the per-call deadline. Zero disables it.
func (r *Repository) SetQueryTimeout(d time.Duration) {
	r.timeout = d
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS themes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			theme_id TEXT NOT NULL,
			name TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (theme_id) REFERENCES themes(id) ON DELETE CASCADE,
			UNIQUE(theme_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			room_code TEXT NOT NULL UNIQUE,
			theme_id TEXT NOT NULL,
			host_user_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'waiting'
				CHECK (status IN ('waiting', 'in_progress', 'basta_countdown', 'scoring', 'round_over_results', 'finished')),
			max_players INTEGER NOT NULL CHECK (max_players BETWEEN 2 AND 16),
			current_round_number INTEGER NOT NULL DEFAULT 0,
			current_letter TEXT,
			basta_caller TEXT,
			basta_called_at DATETIME,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (theme_id) REFERENCES themes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			nickname TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
			is_ready BOOLEAN NOT NULL DEFAULT 0,
			joined_at DATETIME NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			UNIQUE(room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS rounds (
			room_id TEXT NOT NULL,
			round_number INTEGER NOT NULL,
			letter TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			PRIMARY KEY (room_id, round_number),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			round_number INTEGER NOT NULL,
			participant_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			answer_text TEXT NOT NULL,
			normalized_text TEXT NOT NULL DEFAULT '',
			is_valid BOOLEAN NOT NULL DEFAULT 0,
			score_awarded INTEGER NOT NULL DEFAULT 0,
			validation_note TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			FOREIGN KEY (category_id) REFERENCES categories(id),
			UNIQUE(room_id, round_number, participant_id, category_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_theme ON categories(theme_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_room ON participants(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_round ON answers(room_id, round_number)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// withTimeout derives the bounded context used for one store call.
func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// classify maps driver failures onto repository sentinels and transient errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Transient(err)
	}
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return ErrDuplicate
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return errors.Transient(err)
		}
	}
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// statusIn renders an IN list for statuses with its arguments
func statusIn(statuses []models.RoomStatus) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	return "(" + strings.Join(placeholders, ", ") + ")", args
}

// requireRow turns an update that matched nothing into ErrNotFound
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Room Methods ====================

const roomColumns = `id, room_code, theme_id, host_user_id, status, max_players,
	current_round_number, current_letter, basta_caller, basta_called_at, created_at`

func scanRoom(row rowScanner) (*models.Room, error) {
	var (
		room     models.Room
		status   string
		letter   sql.NullString
		calledAt sql.NullTime
	)
	err := row.Scan(&room.ID, &room.Code, &room.ThemeID, &room.HostUserID, &status, &room.MaxPlayers,
		&room.CurrentRoundNumber, &letter, &room.BastaCaller, &calledAt, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	if room.Status, err = models.ParseRoomStatus(status); err != nil {
		return nil, err
	}
	if letter.Valid {
		room.CurrentLetter = &letter.String
	}
	if calledAt.Valid {
		t := calledAt.Time
		room.BastaCalledAt = &t
	}
	return &room, nil
}

// CreateRoom inserts a room together with its host participant
func (r *Repository) CreateRoom(ctx context.Context, room *models.Room, host *models.Participant) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rooms (id, room_code, theme_id, host_user_id, status, max_players, current_round_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, strings.ToUpper(room.Code), room.ThemeID, room.HostUserID, string(room.Status),
		room.MaxPlayers, room.CurrentRoundNumber, room.CreatedAt)
	if err != nil {
		return classify(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (id, room_id, user_id, nickname, score, is_ready, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		host.ID, room.ID, host.UserID, host.Nickname, host.Score, host.IsReady, host.JoinedAt)
	if err != nil {
		return classify(err)
	}

	return classify(tx.Commit())
}

// GetRoom retrieves a room by id
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return nil, classify(err)
	}
	return room, nil
}

// GetRoomByCode retrieves a room by its join code (case-insensitive)
func (r *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_code = ?`, strings.ToUpper(code))
	room, err := scanRoom(row)
	if err != nil {
		return nil, classify(err)
	}
	return room, nil
}

// TransitionRoom applies a conditional status change in one statement.
// When the transition opens a round, the round row is written in the same transaction.
func (r *Repository) TransitionRoom(ctx context.Context, id uuid.UUID, t RoomTransition) error {
	if len(t.From) == 0 {
		return ErrStatusChanged
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(t.From))
	args := []any{string(t.To)}
	query := `UPDATE rooms SET status = ?`
	if t.Letter != nil {
		query += `, current_letter = ?, current_round_number = ?, basta_caller = NULL, basta_called_at = NULL`
		args = append(args, *t.Letter, t.RoundNumber)
	}
	args = append(args, id)
	for i, st := range t.From {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	query += ` WHERE id = ? AND status IN (` + strings.Join(placeholders, ", ") + `)`
	if t.AtRound > 0 {
		query += ` AND current_round_number = ?`
		args = append(args, t.AtRound)
	}
	if t.Letter == nil && t.To.HasLetter() {
		query += ` AND current_letter IS NOT NULL`
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return classify(err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrStatusChanged
	}

	if t.Letter != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rounds (room_id, round_number, letter, started_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (room_id, round_number) DO NOTHING`,
			id, t.RoundNumber, *t.Letter, time.Now().UTC())
		if err != nil {
			return classify(err)
		}
	}

	return classify(tx.Commit())
}

// SetBastaCaller records the first caller of BASTA for roundNumber. It never
// overwrites an existing caller, only writes while that round accepts answers,
// and reports whether this call set it.
func (r *Repository) SetBastaCaller(ctx context.Context, id, userID uuid.UUID, roundNumber int, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	in, statusArgs := statusIn(answerStatuses)
	args := append([]any{userID, at, id}, statusArgs...)
	args = append(args, roundNumber)
	res, err := r.db.ExecContext(ctx, `
		UPDATE rooms SET basta_caller = ?, basta_called_at = ?
		WHERE id = ? AND basta_caller IS NULL AND status IN `+in+` AND current_round_number = ?`,
		args...)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n == 1, nil
}

// ==================== Round Methods ====================

// GetRound retrieves the letter history entry for one round
func (r *Repository) GetRound(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var round models.Round
	err := r.db.QueryRowContext(ctx,
		`SELECT room_id, round_number, letter, started_at FROM rounds WHERE room_id = ? AND round_number = ?`,
		roomID, roundNumber).Scan(&round.RoomID, &round.RoundNumber, &round.Letter, &round.StartedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &round, nil
}

// ==================== Participant Methods ====================

const participantColumns = `id, room_id, user_id, nickname, score, is_ready, joined_at`

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var p models.Participant
	if err := row.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname, &p.Score, &p.IsReady, &p.JoinedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddParticipant seats a player unless the room already holds maxPlayers.
func (r *Repository) AddParticipant(ctx context.Context, p *models.Participant, maxPlayers int) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (id, room_id, user_id, nickname, score, is_ready, joined_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM participants WHERE room_id = ?) < ?`,
		p.ID, p.RoomID, p.UserID, p.Nickname, p.Score, p.IsReady, p.JoinedAt, p.RoomID, maxPlayers)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrRoomFull
	}
	return nil
}

// GetParticipant retrieves the participant for a user in a room
func (r *Repository) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*models.Participant, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := scanParticipant(r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = ? AND user_id = ?`, roomID, userID))
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// ListParticipants returns the room's participants in join order
func (r *Repository) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = ? ORDER BY joined_at, id`, roomID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, classify(err)
		}
		participants = append(participants, *p)
	}
	return participants, classify(rows.Err())
}

// CountParticipants returns the number of participants in a room
func (r *Repository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE room_id = ?`, roomID).Scan(&count)
	return count, classify(err)
}

// SetParticipantReady updates the ready flag of a user in a room
func (r *Repository) SetParticipantReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE participants SET is_ready = ? WHERE room_id = ? AND user_id = ?`, ready, roomID, userID)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Theme Methods ====================

// CreateTheme inserts a theme
func (r *Repository) CreateTheme(ctx context.Context, theme *models.Theme) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `INSERT INTO themes (id, name, created_at) VALUES (?, ?, ?)`,
		theme.ID, theme.Name, theme.CreatedAt)
	return classify(err)
}

// GetTheme retrieves a theme by id
func (r *Repository) GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var theme models.Theme
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM themes WHERE id = ?`, id).
		Scan(&theme.ID, &theme.Name, &theme.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &theme, nil
}

// ListThemes returns all themes, oldest first
func (r *Repository) ListThemes(ctx context.Context) ([]models.Theme, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM themes ORDER BY created_at, name`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var themes []models.Theme
	for rows.Next() {
		var theme models.Theme
		if err := rows.Scan(&theme.ID, &theme.Name, &theme.CreatedAt); err != nil {
			return nil, classify(err)
		}
		themes = append(themes, theme)
	}
	return themes, classify(rows.Err())
}

// CreateCategory inserts a category under a theme
func (r *Repository) CreateCategory(ctx context.Context, cat *models.Category) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, theme_id, name, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		cat.ID, cat.ThemeID, cat.Name, cat.Order, cat.CreatedAt)
	return classify(err)
}

// ListCategories returns a theme's categories by their display order
func (r *Repository) ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, theme_id, name, sort_order, created_at
		FROM categories WHERE theme_id = ? ORDER BY sort_order, name`, themeID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.ThemeID, &c.Name, &c.Order, &c.CreatedAt); err != nil {
			return nil, classify(err)
		}
		categories = append(categories, c)
	}
	return categories, classify(rows.Err())
}

// ==================== Answer Methods ====================

// InsertAnswer stores one answer while its round still accepts answers.
// A second answer for the same (room, round, participant, category) returns
// ErrDuplicate; a round that was scored or replaced returns ErrStatusChanged.
func (r *Repository) InsertAnswer(ctx context.Context, a *models.Answer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	in, statusArgs := statusIn(answerStatuses)
	args := []any{a.ID, a.RoomID, a.RoundNumber, a.ParticipantID, a.CategoryID, a.Text,
		a.NormalizedText, a.IsValid, a.Score, a.Note, a.CreatedAt, a.RoomID}
	args = append(args, statusArgs...)
	args = append(args, a.RoundNumber)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO answers (id, room_id, round_number, participant_id, category_id, answer_text,
			normalized_text, is_valid, score_awarded, validation_note, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM rooms WHERE id = ? AND status IN `+in+` AND current_round_number = ?)`,
		args...)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}

// ListRoundAnswers returns every answer submitted for a round
func (r *Repository) ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, round_number, participant_id, category_id, answer_text,
			normalized_text, is_valid, score_awarded, validation_note, created_at
		FROM answers WHERE room_id = ? AND round_number = ?
		ORDER BY created_at, id`, roomID, roundNumber)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		err := rows.Scan(&a.ID, &a.RoomID, &a.RoundNumber, &a.ParticipantID, &a.CategoryID, &a.Text,
			&a.NormalizedText, &a.IsValid, &a.Score, &a.Note, &a.CreatedAt)
		if err != nil {
			return nil, classify(err)
		}
		answers = append(answers, a)
	}
	return answers, classify(rows.Err())
}

// CountRoundSubmitters counts current participants with at least one answer in a round
func (r *Repository) CountRoundSubmitters(ctx context.Context, roomID uuid.UUID, roundNumber int) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT a.participant_id)
		FROM answers a
		JOIN participants p ON p.id = a.participant_id AND p.room_id = a.room_id
		WHERE a.room_id = ? AND a.round_number = ?`, roomID, roundNumber).Scan(&count)
	return count, classify(err)
}

// ApplyRoundScores writes a whole scoring pass in one transaction: every
// answer's outcome and every participant's round total added to their score.
// It returns ErrStatusChanged unless the room is scoring that round.
func (r *Repository) ApplyRoundScores(ctx context.Context, scores RoundScores) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	var (
		status string
		round  int
	)
	err = tx.QueryRowContext(ctx, `SELECT status, current_round_number FROM rooms WHERE id = ?`, scores.RoomID).
		Scan(&status, &round)
	if err != nil {
		return classify(err)
	}
	if status != string(models.StatusScoring) || round != scores.RoundNumber {
		return ErrStatusChanged
	}

	for _, a := range scores.Answers {
		err := requireRow(tx.ExecContext(ctx, `
			UPDATE answers SET is_valid = ?, score_awarded = ?, validation_note = ?
			WHERE id = ? AND room_id = ? AND round_number = ?`,
			a.Valid, a.Score, a.Note, a.AnswerID, scores.RoomID, scores.RoundNumber))
		if err != nil {
			return err
		}
	}
	for participantID, total := range scores.Totals {
		err := requireRow(tx.ExecContext(ctx,
			`UPDATE participants SET score = score + ? WHERE id = ? AND room_id = ?`,
			total, participantID, scores.RoomID))
		if err != nil {
			return err
		}
	}

	return classify(tx.Commit())
}
