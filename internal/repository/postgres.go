package repository

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abrezinsky/basta/internal/errors"
	"github.com/abrezinsky/basta/internal/models"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresOptions tunes the connection pool
type PostgresOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	QueryTimeout    time.Duration
}

// PostgresRepository provides data access methods backed by PostgreSQL.
// Unlike the SQLite store it is safe to share between processes.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres applies pending migrations and opens a connection pool
func NewPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresRepository, error) {
	if err := MigratePostgres(dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	timeout := opts.QueryTimeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	return &PostgresRepository{pool: pool, timeout: timeout}, nil
}

// MigratePostgres runs the embedded schema migrations against dsn
func MigratePostgres(dsn string) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// migrateURL rewrites a libpq URL to the scheme the pgx/v5 migrate driver registers.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// transientSQLStates are failures worth retrying: connection loss,
// serialization conflicts, deadlocks, shutdown and pool exhaustion.
var transientSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"53300": true,
	"57P01": true,
	"57P03": true,
}

func classifyPg(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if stderrors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return errors.Transient(err)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrDuplicate
		}
		if transientSQLStates[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08") {
			return errors.Transient(err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return errors.Transient(err)
	}
	return err
}

func scanPgRoom(row pgx.Row) (*models.Room, error) {
	var (
		room   models.Room
		status string
	)
	err := row.Scan(&room.ID, &room.Code, &room.ThemeID, &room.HostUserID, &status, &room.MaxPlayers,
		&room.CurrentRoundNumber, &room.CurrentLetter, &room.BastaCaller, &room.BastaCalledAt, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	if room.Status, err = models.ParseRoomStatus(status); err != nil {
		return nil, err
	}
	return &room, nil
}

// ==================== Room Methods ====================

// CreateRoom inserts a room together with its host participant
func (r *PostgresRepository) CreateRoom(ctx context.Context, room *models.Room, host *models.Participant) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classifyPg(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (id, room_code, theme_id, host_user_id, status, max_players, current_round_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		room.ID, strings.ToUpper(room.Code), room.ThemeID, room.HostUserID, string(room.Status),
		room.MaxPlayers, room.CurrentRoundNumber, room.CreatedAt)
	if err != nil {
		return classifyPg(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participants (id, room_id, user_id, nickname, score, is_ready, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		host.ID, room.ID, host.UserID, host.Nickname, host.Score, host.IsReady, host.JoinedAt)
	if err != nil {
		return classifyPg(err)
	}

	return classifyPg(tx.Commit(ctx))
}

// GetRoom retrieves a room by id
func (r *PostgresRepository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	room, err := scanPgRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return nil, classifyPg(err)
	}
	return room, nil
}

// GetRoomByCode retrieves a room by its join code (case-insensitive)
func (r *PostgresRepository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	room, err := scanPgRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_code = $1`, strings.ToUpper(code)))
	if err != nil {
		return nil, classifyPg(err)
	}
	return room, nil
}

// TransitionRoom applies a conditional status change
func (r *PostgresRepository) TransitionRoom(ctx context.Context, id uuid.UUID, t RoomTransition) error {
	if len(t.From) == 0 {
		return ErrStatusChanged
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	from := pgStatuses(t.From)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classifyPg(err)
	}
	defer tx.Rollback(ctx)

	// $3 = 0 disables the round guard.
	var tag pgconn.CommandTag
	if t.Letter != nil {
		tag, err = tx.Exec(ctx, `
			UPDATE rooms SET status = $1, current_letter = $4, current_round_number = $5,
				basta_caller = NULL, basta_called_at = NULL
			WHERE id = $2 AND status = ANY($6) AND ($3 = 0 OR current_round_number = $3)`,
			string(t.To), id, t.AtRound, *t.Letter, t.RoundNumber, from)
	} else {
		tag, err = tx.Exec(ctx, `
			UPDATE rooms SET status = $1
			WHERE id = $2 AND status = ANY($4) AND ($3 = 0 OR current_round_number = $3)
				AND (NOT $5 OR current_letter IS NOT NULL)`,
			string(t.To), id, t.AtRound, from, t.To.HasLetter())
	}
	if err != nil {
		return classifyPg(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id).Scan(&exists); err != nil {
			return classifyPg(err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusChanged
	}

	if t.Letter != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO rounds (room_id, round_number, letter, started_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (room_id, round_number) DO NOTHING`,
			id, t.RoundNumber, *t.Letter, time.Now().UTC())
		if err != nil {
			return classifyPg(err)
		}
	}

	return classifyPg(tx.Commit(ctx))
}

// SetBastaCaller records the first caller of BASTA for roundNumber while that
// round accepts answers
func (r *PostgresRepository) SetBastaCaller(ctx context.Context, id, userID uuid.UUID, roundNumber int, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE rooms SET basta_caller = $1, basta_called_at = $2
		WHERE id = $3 AND basta_caller IS NULL AND status = ANY($4) AND current_round_number = $5`,
		userID, at, id, pgStatuses(answerStatuses), roundNumber)
	if err != nil {
		return false, classifyPg(err)
	}
	return tag.RowsAffected() == 1, nil
}

func pgStatuses(statuses []models.RoomStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// ==================== Round Methods ====================

// GetRound retrieves the letter history entry for one round
func (r *PostgresRepository) GetRound(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var round models.Round
	err := r.pool.QueryRow(ctx,
		`SELECT room_id, round_number, letter, started_at FROM rounds WHERE room_id = $1 AND round_number = $2`,
		roomID, roundNumber).Scan(&round.RoomID, &round.RoundNumber, &round.Letter, &round.StartedAt)
	if err != nil {
		return nil, classifyPg(err)
	}
	return &round, nil
}

// ==================== Participant Methods ====================

func scanPgParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	if err := row.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname, &p.Score, &p.IsReady, &p.JoinedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddParticipant seats a player unless the room already holds maxPlayers.
// The room row is locked so concurrent joins are counted one at a time.
func (r *PostgresRepository) AddParticipant(ctx context.Context, p *models.Participant, maxPlayers int) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classifyPg(err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, p.RoomID).Scan(&locked); err != nil {
		return classifyPg(err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE room_id = $1`, p.RoomID).Scan(&count); err != nil {
		return classifyPg(err)
	}
	if count >= maxPlayers {
		return ErrRoomFull
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participants (id, room_id, user_id, nickname, score, is_ready, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.RoomID, p.UserID, p.Nickname, p.Score, p.IsReady, p.JoinedAt)
	if err != nil {
		return classifyPg(err)
	}
	return classifyPg(tx.Commit(ctx))
}

// GetParticipant retrieves the participant for a user in a room
func (r *PostgresRepository) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*models.Participant, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := scanPgParticipant(r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = $1 AND user_id = $2`, roomID, userID))
	if err != nil {
		return nil, classifyPg(err)
	}
	return p, nil
}

// ListParticipants returns the room's participants in join order
func (r *PostgresRepository) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = $1 ORDER BY joined_at, id`, roomID)
	if err != nil {
		return nil, classifyPg(err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanPgParticipant(rows)
		if err != nil {
			return nil, classifyPg(err)
		}
		participants = append(participants, *p)
	}
	return participants, classifyPg(rows.Err())
}

// CountParticipants returns the number of participants in a room
func (r *PostgresRepository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE room_id = $1`, roomID).Scan(&count)
	return count, classifyPg(err)
}

// SetParticipantReady updates the ready flag of a user in a room
func (r *PostgresRepository) SetParticipantReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET is_ready = $1 WHERE room_id = $2 AND user_id = $3`, ready, roomID, userID)
	if err != nil {
		return classifyPg(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Theme Methods ====================

// CreateTheme inserts a theme
func (r *PostgresRepository) CreateTheme(ctx context.Context, theme *models.Theme) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `INSERT INTO themes (id, name, created_at) VALUES ($1, $2, $3)`,
		theme.ID, theme.Name, theme.CreatedAt)
	return classifyPg(err)
}

// GetTheme retrieves a theme by id
func (r *PostgresRepository) GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var theme models.Theme
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM themes WHERE id = $1`, id).
		Scan(&theme.ID, &theme.Name, &theme.CreatedAt)
	if err != nil {
		return nil, classifyPg(err)
	}
	return &theme, nil
}

// ListThemes returns all themes, oldest first
func (r *PostgresRepository) ListThemes(ctx context.Context) ([]models.Theme, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM themes ORDER BY created_at, name`)
	if err != nil {
		return nil, classifyPg(err)
	}
	defer rows.Close()

	var themes []models.Theme
	for rows.Next() {
		var theme models.Theme
		if err := rows.Scan(&theme.ID, &theme.Name, &theme.CreatedAt); err != nil {
			return nil, classifyPg(err)
		}
		themes = append(themes, theme)
	}
	return themes, classifyPg(rows.Err())
}

// CreateCategory inserts a category under a theme
func (r *PostgresRepository) CreateCategory(ctx context.Context, cat *models.Category) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, theme_id, name, sort_order, created_at) VALUES ($1, $2, $3, $4, $5)`,
		cat.ID, cat.ThemeID, cat.Name, cat.Order, cat.CreatedAt)
	return classifyPg(err)
}

// ListCategories returns a theme's categories by their display order
func (r *PostgresRepository) ListCategories(ctx context.Context, themeID uuid.UUID) ([]models.Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, theme_id, name, sort_order, created_at
		FROM categories WHERE theme_id = $1 ORDER BY sort_order, name`, themeID)
	if err != nil {
		return nil, classifyPg(err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.ThemeID, &c.Name, &c.Order, &c.CreatedAt); err != nil {
			return nil, classifyPg(err)
		}
		categories = append(categories, c)
	}
	return categories, classifyPg(rows.Err())
}

// ==================== Answer Methods ====================

// InsertAnswer stores one answer while its round still accepts answers. The
// room row is share-locked so the insert cannot interleave with the move
// into scoring.
func (r *PostgresRepository) InsertAnswer(ctx context.Context, a *models.Answer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO answers (id, room_id, round_number, participant_id, category_id, answer_text,
			normalized_text, is_valid, score_awarded, validation_note, created_at)
		SELECT $1::uuid, $2::uuid, $3::integer, $4::uuid, $5::uuid, $6::text,
			$7::text, $8::boolean, $9::integer, $10::text, $11::timestamptz
		WHERE EXISTS (
			SELECT 1 FROM rooms
			WHERE id = $2 AND status = ANY($12) AND current_round_number = $3
			FOR SHARE)`,
		a.ID, a.RoomID, a.RoundNumber, a.ParticipantID, a.CategoryID, a.Text,
		a.NormalizedText, a.IsValid, a.Score, a.Note, a.CreatedAt, pgStatuses(answerStatuses))
	if err != nil {
		return classifyPg(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// ListRoundAnswers returns every answer submitted for a round
func (r *PostgresRepository) ListRoundAnswers(ctx context.Context, roomID uuid.UUID, roundNumber int) ([]models.Answer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, round_number, participant_id, category_id, answer_text,
			normalized_text, is_valid, score_awarded, validation_note, created_at
		FROM answers WHERE room_id = $1 AND round_number = $2
		ORDER BY created_at, id`, roomID, roundNumber)
	if err != nil {
		return nil, classifyPg(err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		err := rows.Scan(&a.ID, &a.RoomID, &a.RoundNumber, &a.ParticipantID, &a.CategoryID, &a.Text,
			&a.NormalizedText, &a.IsValid, &a.Score, &a.Note, &a.CreatedAt)
		if err != nil {
			return nil, classifyPg(err)
		}
		answers = append(answers, a)
	}
	return answers, classifyPg(rows.Err())
}

// CountRoundSubmitters counts current participants with at least one answer in a round
func (r *PostgresRepository) CountRoundSubmitters(ctx context.Context, roomID uuid.UUID, roundNumber int) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT a.participant_id)
		FROM answers a
		JOIN participants p ON p.id = a.participant_id AND p.room_id = a.room_id
		WHERE a.room_id = $1 AND a.round_number = $2`, roomID, roundNumber).Scan(&count)
	return count, classifyPg(err)
}

// ApplyRoundScores writes a whole scoring pass in one transaction, with the
// room row locked and required to be scoring that round
func (r *PostgresRepository) ApplyRoundScores(ctx context.Context, scores RoundScores) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classifyPg(err)
	}
	defer tx.Rollback(ctx)

	var (
		status string
		round  int
	)
	err = tx.QueryRow(ctx, `SELECT status, current_round_number FROM rooms WHERE id = $1 FOR UPDATE`, scores.RoomID).
		Scan(&status, &round)
	if err != nil {
		return classifyPg(err)
	}
	if status != string(models.StatusScoring) || round != scores.RoundNumber {
		return ErrStatusChanged
	}

	batch := &pgx.Batch{}
	for _, a := range scores.Answers {
		batch.Queue(`
			UPDATE answers SET is_valid = $1, score_awarded = $2, validation_note = $3
			WHERE id = $4 AND room_id = $5 AND round_number = $6`,
			a.Valid, a.Score, a.Note, a.AnswerID, scores.RoomID, scores.RoundNumber)
	}
	for participantID, total := range scores.Totals {
		batch.Queue(`UPDATE participants SET score = score + $1 WHERE id = $2 AND room_id = $3`,
			total, participantID, scores.RoomID)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return classifyPg(err)
		}
		if tag.RowsAffected() == 0 {
			results.Close()
			return ErrNotFound
		}
	}
	if err := results.Close(); err != nil {
		return classifyPg(err)
	}

	return classifyPg(tx.Commit(ctx))
}
