package app

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"thoughtclick/api/internal/store"
)

// memStore is an in-memory dataStore with the same cascade semantics as the
// Postgres schema: deleting a board removes its thoughts and connections,
// deleting a thought removes connections touching it.
type memStore struct {
	mu          sync.Mutex
	users       map[string]store.User
	boards      map[string]store.Board
	thoughts    map[string]store.Thought
	connections map[string]store.Connection
	sessions    map[string]refreshRow
}

type refreshRow struct {
	userID    string
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]store.User),
		boards:      make(map[string]store.Board),
		thoughts:    make(map[string]store.Thought),
		connections: make(map[string]store.Connection),
		sessions:    make(map[string]refreshRow),
	}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) CreateUser(ctx context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return store.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memStore) ListBoards(ctx context.Context, userID string) ([]store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var boards []store.Board
	for _, board := range m.boards {
		if board.UserID == userID {
			boards = append(boards, board)
		}
	}
	return boards, nil
}

func (m *memStore) GetBoard(ctx context.Context, boardID string) (store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	board, ok := m.boards[boardID]
	if !ok {
		return store.Board{}, sql.ErrNoRows
	}
	return board, nil
}

func (m *memStore) CreateBoard(ctx context.Context, board store.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = board
	return nil
}

func (m *memStore) UpdateBoard(ctx context.Context, boardID string, params store.UpdateBoardParams, updatedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	board, ok := m.boards[boardID]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Title != nil {
		board.Title = *params.Title
	}
	if params.Description != nil {
		board.Description = *params.Description
	}
	if params.CoverImage != nil {
		board.CoverImage = *params.CoverImage
	}
	if params.BackgroundImage != nil {
		board.BackgroundImage = *params.BackgroundImage
	}
	board.UpdatedAt = updatedAt
	m.boards[boardID] = board
	return nil
}

func (m *memStore) DeleteBoard(ctx context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, boardID)
	for id, thought := range m.thoughts {
		if thought.BoardID == boardID {
			delete(m.thoughts, id)
		}
	}
	for id, conn := range m.connections {
		if conn.BoardID == boardID {
			delete(m.connections, id)
		}
	}
	return nil
}

func (m *memStore) ListThoughts(ctx context.Context, boardID string) ([]store.Thought, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var thoughts []store.Thought
	for _, thought := range m.thoughts {
		if thought.BoardID == boardID {
			thoughts = append(thoughts, thought)
		}
	}
	return thoughts, nil
}

func (m *memStore) GetThought(ctx context.Context, thoughtID string) (store.Thought, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thought, ok := m.thoughts[thoughtID]
	if !ok {
		return store.Thought{}, sql.ErrNoRows
	}
	return thought, nil
}

func (m *memStore) CreateThought(ctx context.Context, thought store.Thought) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thoughts[thought.ID] = thought
	return nil
}

func (m *memStore) UpdateThought(ctx context.Context, thoughtID string, params store.UpdateThoughtParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	thought, ok := m.thoughts[thoughtID]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Content != nil {
		thought.Content = *params.Content
	}
	if params.X != nil {
		thought.X = *params.X
	}
	if params.Y != nil {
		thought.Y = *params.Y
	}
	if params.Color != nil {
		thought.Color = params.Color
	}
	if params.Width != nil {
		thought.Width = params.Width
	}
	if params.Height != nil {
		thought.Height = params.Height
	}
	if params.Metadata != nil {
		thought.Metadata = *params.Metadata
	}
	m.thoughts[thoughtID] = thought
	return nil
}

func (m *memStore) DeleteThought(ctx context.Context, thoughtID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.thoughts, thoughtID)
	for id, conn := range m.connections {
		if conn.FromID == thoughtID || conn.ToID == thoughtID {
			delete(m.connections, id)
		}
	}
	return nil
}

func (m *memStore) ListConnections(ctx context.Context, boardID string) ([]store.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conns []store.Connection
	for _, conn := range m.connections {
		if conn.BoardID == boardID {
			conns = append(conns, conn)
		}
	}
	return conns, nil
}

func (m *memStore) GetConnection(ctx context.Context, connectionID string) (store.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[connectionID]
	if !ok {
		return store.Connection{}, sql.ErrNoRows
	}
	return conn, nil
}

func (m *memStore) CreateConnection(ctx context.Context, conn store.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID] = conn
	return nil
}

func (m *memStore) DeleteConnection(ctx context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, connectionID)
	return nil
}

func (m *memStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	m.mu.Lock()
	row, ok := m.sessions[tokenHash]
	m.mu.Unlock()
	if !ok || time.Now().After(row.expiresAt) {
		return store.User{}, sql.ErrNoRows
	}
	return m.GetUserByID(ctx, row.userID)
}

func (m *memStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}
