package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate reports a unique-constraint violation, currently only
// possible on users.username.
var ErrDuplicate = errors.New("duplicate row")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username=$1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Boards

func (s *PostgresStore) ListBoards(ctx context.Context, userID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, cover_image, background_image, created_at, updated_at
		FROM boards
		WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []Board{}
	for rows.Next() {
		var board Board
		if err := rows.Scan(&board.ID, &board.UserID, &board.Title, &board.Description,
			&board.CoverImage, &board.BackgroundImage, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, cover_image, background_image, created_at, updated_at
		FROM boards WHERE id=$1
	`, boardID).Scan(&board.ID, &board.UserID, &board.Title, &board.Description,
		&board.CoverImage, &board.BackgroundImage, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

func (s *PostgresStore) CreateBoard(ctx context.Context, board Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, user_id, title, description, cover_image, background_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, board.ID, board.UserID, board.Title, board.Description, board.CoverImage,
		board.BackgroundImage, board.CreatedAt, board.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

// UpdateBoard merges the supplied fields into the stored row and always
// refreshes updated_at.
func (s *PostgresStore) UpdateBoard(ctx context.Context, boardID string, params UpdateBoardParams, updatedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE boards
		SET title = COALESCE($1, title),
			description = COALESCE($2, description),
			cover_image = COALESCE($3, cover_image),
			background_image = COALESCE($4, background_image),
			updated_at = $5
		WHERE id = $6
	`, params.Title, params.Description, params.CoverImage, params.BackgroundImage, updatedAt, boardID)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

// Thoughts

func scanThought(scan func(...any) error) (Thought, error) {
	var thought Thought
	var color sql.NullString
	var width, height sql.NullFloat64
	err := scan(&thought.ID, &thought.BoardID, &thought.Type, &thought.Content,
		&thought.X, &thought.Y, &color, &width, &height, &thought.Metadata, &thought.CreatedAt)
	if err != nil {
		return Thought{}, err
	}
	if color.Valid {
		thought.Color = &color.String
	}
	if width.Valid {
		thought.Width = &width.Float64
	}
	if height.Valid {
		thought.Height = &height.Float64
	}
	return thought, nil
}

const thoughtColumns = `id, board_id, type, content, x, y, color, width, height, metadata, created_at`

func (s *PostgresStore) ListThoughts(ctx context.Context, boardID string) ([]Thought, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts WHERE board_id=$1 ORDER BY created_at
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list thoughts: %w", err)
	}
	defer rows.Close()

	thoughts := []Thought{}
	for rows.Next() {
		thought, err := scanThought(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		thoughts = append(thoughts, thought)
	}
	return thoughts, rows.Err()
}

func (s *PostgresStore) GetThought(ctx context.Context, thoughtID string) (Thought, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+thoughtColumns+` FROM thoughts WHERE id=$1`, thoughtID)
	return scanThought(row.Scan)
}

func (s *PostgresStore) CreateThought(ctx context.Context, thought Thought) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thoughts (id, board_id, type, content, x, y, color, width, height, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, thought.ID, thought.BoardID, thought.Type, thought.Content, thought.X, thought.Y,
		thought.Color, thought.Width, thought.Height, thought.Metadata, thought.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert thought: %w", err)
	}
	return nil
}

// UpdateThought merges the supplied fields into the stored row. Metadata is
// only overwritten when explicitly supplied.
func (s *PostgresStore) UpdateThought(ctx context.Context, thoughtID string, params UpdateThoughtParams) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE thoughts
		SET content = COALESCE($1, content),
			x = COALESCE($2, x),
			y = COALESCE($3, y),
			color = COALESCE($4, color),
			width = COALESCE($5, width),
			height = COALESCE($6, height),
			metadata = COALESCE($7, metadata)
		WHERE id = $8
	`, params.Content, params.X, params.Y, params.Color, params.Width, params.Height,
		params.Metadata, thoughtID)
	if err != nil {
		return fmt.Errorf("update thought: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteThought(ctx context.Context, thoughtID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thoughts WHERE id=$1`, thoughtID); err != nil {
		return fmt.Errorf("delete thought: %w", err)
	}
	return nil
}

// Connections

func (s *PostgresStore) ListConnections(ctx context.Context, boardID string) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, from_id, to_id FROM connections WHERE board_id=$1
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	connections := []Connection{}
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(&conn.ID, &conn.BoardID, &conn.FromID, &conn.ToID); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

func (s *PostgresStore) GetConnection(ctx context.Context, connectionID string) (Connection, error) {
	var conn Connection
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, from_id, to_id FROM connections WHERE id=$1
	`, connectionID).Scan(&conn.ID, &conn.BoardID, &conn.FromID, &conn.ToID)
	if err != nil {
		return Connection{}, err
	}
	return conn, nil
}

func (s *PostgresStore) CreateConnection(ctx context.Context, conn Connection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, board_id, from_id, to_id)
		VALUES ($1, $2, $3, $4)
	`, conn.ID, conn.BoardID, conn.FromID, conn.ToID)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteConnection(ctx context.Context, connectionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id=$1`, connectionID); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// Refresh sessions (Postgres fallback when Redis is not configured)

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.username, u.password_hash, u.created_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}
