package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thoughtclick/api/internal/auth"
	"thoughtclick/api/internal/authpw"
	"thoughtclick/api/internal/config"
	"thoughtclick/api/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	JTI          string
	ExpiresAt    time.Time
}

var allowedThoughtTypes = map[string]struct{}{
	"text":      {},
	"link":      {},
	"image":     {},
	"checklist": {},
	"sketch":    {},
}

type dataStore interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user store.User) error
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)

	ListBoards(ctx context.Context, userID string) ([]store.Board, error)
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	CreateBoard(ctx context.Context, board store.Board) error
	UpdateBoard(ctx context.Context, boardID string, params store.UpdateBoardParams, updatedAt int64) error
	DeleteBoard(ctx context.Context, boardID string) error

	ListThoughts(ctx context.Context, boardID string) ([]store.Thought, error)
	GetThought(ctx context.Context, thoughtID string) (store.Thought, error)
	CreateThought(ctx context.Context, thought store.Thought) error
	UpdateThought(ctx context.Context, thoughtID string, params store.UpdateThoughtParams) error
	DeleteThought(ctx context.Context, thoughtID string) error

	ListConnections(ctx context.Context, boardID string) ([]store.Connection, error)
	GetConnection(ctx context.Context, connectionID string) (store.Connection, error)
	CreateConnection(ctx context.Context, conn store.Connection) error
	DeleteConnection(ctx context.Context, connectionID string) error

	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// sessionStore holds refresh sessions. The Postgres store satisfies it; a
// Redis store can be swapped in at startup.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, dataStore dataStore, logger *zap.Logger) *Service {
	return NewWithSessionStore(cfg, dataStore, dataStore, logger)
}

func NewWithSessionStore(cfg config.Config, dataStore dataStore, sessions sessionStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// Auth

func (s *Service) SignUp(ctx context.Context, username, password string) (Session, store.User, error) {
	user, err := s.passwords.SignUp(ctx, username, password)
	if err != nil {
		return Session{}, store.User{}, mapAuthError(err)
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, store.User{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return session, user, nil
}

func (s *Service) SignIn(ctx context.Context, username, password string) (Session, store.User, error) {
	user, err := s.passwords.SignIn(ctx, username, password)
	if err != nil {
		return Session{}, store.User{}, mapAuthError(err)
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, store.User{}, err
	}
	return session, user, nil
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, authpw.ErrMissingCredentials):
		return validationError("Username and password required", nil)
	case errors.Is(err, authpw.ErrWeakPassword):
		return validationError(err.Error(), nil)
	case errors.Is(err, authpw.ErrUsernameTaken):
		return domainError(http.StatusBadRequest, "USERNAME_TAKEN", "Username already exists", nil)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	default:
		return err
	}
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := uuid.NewString()

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := uuid.NewString() + uuid.NewString()
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	// Redis sessions only carry the user id; fill in the rest.
	if user.Username == "" {
		user, err = s.store.GetUserByID(ctx, user.ID)
		if err != nil {
			return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
		}
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		Username:  claims.Username,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Ownership guard. Authorization is always board-rooted: operations on a
// thought or connection resolve the owning board first. Existence is checked
// before ownership so callers can distinguish 404 from 403.
func (s *Service) authorizeBoard(ctx context.Context, boardID, userID string) (store.Board, error) {
	if strings.TrimSpace(boardID) == "" {
		return store.Board{}, validationError("board id is required", nil)
	}
	board, err := s.store.GetBoard(ctx, boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Board{}, notFoundError("Board not found")
	}
	if err != nil {
		return store.Board{}, err
	}
	if board.UserID != userID {
		return store.Board{}, forbiddenError()
	}
	return board, nil
}

// Boards

func (s *Service) ListBoards(ctx context.Context, userID string) ([]store.Board, error) {
	return s.store.ListBoards(ctx, userID)
}

type CreateBoardParams struct {
	Title           string
	Description     string
	CoverImage      string
	BackgroundImage string
}

func (s *Service) CreateBoard(ctx context.Context, userID string, params CreateBoardParams) (store.Board, error) {
	title := params.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled Board"
	}
	now := s.nowMillis()
	board := store.Board{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Description:     params.Description,
		CoverImage:      params.CoverImage,
		BackgroundImage: params.BackgroundImage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	return board, nil
}

func (s *Service) UpdateBoard(ctx context.Context, userID, boardID string, params store.UpdateBoardParams) (store.Board, error) {
	if _, err := s.authorizeBoard(ctx, boardID, userID); err != nil {
		return store.Board{}, err
	}
	if err := s.store.UpdateBoard(ctx, boardID, params, s.nowMillis()); err != nil {
		return store.Board{}, err
	}
	return s.store.GetBoard(ctx, boardID)
}

func (s *Service) DeleteBoard(ctx context.Context, userID, boardID string) error {
	if _, err := s.authorizeBoard(ctx, boardID, userID); err != nil {
		return err
	}
	return s.store.DeleteBoard(ctx, boardID)
}

// Thoughts

func (s *Service) ListThoughts(ctx context.Context, userID, boardID string) ([]store.Thought, error) {
	if _, err := s.authorizeBoard(ctx, boardID, userID); err != nil {
		return nil, err
	}
	return s.store.ListThoughts(ctx, boardID)
}

type CreateThoughtParams struct {
	BoardID  string
	Type     string
	Content  string
	X        float64
	Y        float64
	Color    *string
	Width    *float64
	Height   *float64
	Metadata *Metadata
}

func (s *Service) CreateThought(ctx context.Context, userID string, params CreateThoughtParams) (store.Thought, error) {
	if _, ok := allowedThoughtTypes[params.Type]; !ok {
		return store.Thought{}, validationError("invalid thought type", nil)
	}
	if _, err := s.authorizeBoard(ctx, params.BoardID, userID); err != nil {
		return store.Thought{}, err
	}
	thought := store.Thought{
		ID:        uuid.NewString(),
		BoardID:   params.BoardID,
		Type:      params.Type,
		Content:   params.Content,
		X:         params.X,
		Y:         params.Y,
		Color:     params.Color,
		Width:     params.Width,
		Height:    params.Height,
		Metadata:  serializeMetadata(params.Metadata),
		CreatedAt: s.nowMillis(),
	}
	if err := s.store.CreateThought(ctx, thought); err != nil {
		return store.Thought{}, err
	}
	return thought, nil
}

type UpdateThoughtParams struct {
	Content  *string
	X        *float64
	Y        *float64
	Color    *string
	Width    *float64
	Height   *float64
	Metadata *Metadata
}

func (s *Service) UpdateThought(ctx context.Context, userID, thoughtID string, params UpdateThoughtParams) (store.Thought, error) {
	thought, err := s.resolveThought(ctx, userID, thoughtID)
	if err != nil {
		return store.Thought{}, err
	}

	update := store.UpdateThoughtParams{
		Content: params.Content,
		X:       params.X,
		Y:       params.Y,
		Color:   params.Color,
		Width:   params.Width,
		Height:  params.Height,
	}
	if params.Metadata != nil {
		raw := serializeMetadata(params.Metadata)
		update.Metadata = &raw
	}
	if err := s.store.UpdateThought(ctx, thought.ID, update); err != nil {
		return store.Thought{}, err
	}
	return s.store.GetThought(ctx, thought.ID)
}

func (s *Service) DeleteThought(ctx context.Context, userID, thoughtID string) error {
	thought, err := s.resolveThought(ctx, userID, thoughtID)
	if err != nil {
		return err
	}
	return s.store.DeleteThought(ctx, thought.ID)
}

func (s *Service) resolveThought(ctx context.Context, userID, thoughtID string) (store.Thought, error) {
	thought, err := s.store.GetThought(ctx, thoughtID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Thought{}, notFoundError("Thought not found")
	}
	if err != nil {
		return store.Thought{}, err
	}
	if _, err := s.authorizeBoard(ctx, thought.BoardID, userID); err != nil {
		return store.Thought{}, err
	}
	return thought, nil
}

// Connections

func (s *Service) ListConnections(ctx context.Context, userID, boardID string) ([]store.Connection, error) {
	if _, err := s.authorizeBoard(ctx, boardID, userID); err != nil {
		return nil, err
	}
	return s.store.ListConnections(ctx, boardID)
}

type CreateConnectionParams struct {
	BoardID string
	FromID  string
	ToID    string
}

func (s *Service) CreateConnection(ctx context.Context, userID string, params CreateConnectionParams) (store.Connection, error) {
	if _, err := s.authorizeBoard(ctx, params.BoardID, userID); err != nil {
		return store.Connection{}, err
	}
	// Both endpoints must exist on the stated board.
	for _, thoughtID := range []string{params.FromID, params.ToID} {
		thought, err := s.store.GetThought(ctx, thoughtID)
		if errors.Is(err, sql.ErrNoRows) {
			return store.Connection{}, validationError("connection endpoint does not exist", nil)
		}
		if err != nil {
			return store.Connection{}, err
		}
		if thought.BoardID != params.BoardID {
			return store.Connection{}, validationError("connection endpoints must belong to the board", nil)
		}
	}
	conn := store.Connection{
		ID:      uuid.NewString(),
		BoardID: params.BoardID,
		FromID:  params.FromID,
		ToID:    params.ToID,
	}
	if err := s.store.CreateConnection(ctx, conn); err != nil {
		return store.Connection{}, err
	}
	return conn, nil
}

func (s *Service) DeleteConnection(ctx context.Context, userID, connectionID string) error {
	conn, err := s.store.GetConnection(ctx, connectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError("Connection not found")
	}
	if err != nil {
		return err
	}
	if _, err := s.authorizeBoard(ctx, conn.BoardID, userID); err != nil {
		return err
	}
	return s.store.DeleteConnection(ctx, conn.ID)
}
