package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"thoughtclick/api/internal/auth"
	"thoughtclick/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	validate   *validator.Validate
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger,
		validate:   validator.New(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/api/health", s.handleHealth)
	router.Get("/api/ready", s.handleReady)

	router.Post("/api/auth/signup", s.handleSignUp)
	router.Post("/api/auth/login", s.handleLogin)
	router.Post("/api/auth/refresh", s.handleRefresh)
	router.Post("/api/auth/logout", s.handleLogout)

	router.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/boards", s.handleListBoards)
		r.Post("/api/boards", s.handleCreateBoard)
		r.Patch("/api/boards/{id}", s.handleUpdateBoard)
		r.Delete("/api/boards/{id}", s.handleDeleteBoard)

		r.Get("/api/thoughts/{boardID}", s.handleListThoughts)
		r.Post("/api/thoughts", s.handleCreateThought)
		r.Patch("/api/thoughts/{id}", s.handleUpdateThought)
		r.Delete("/api/thoughts/{id}", s.handleDeleteThought)

		r.Get("/api/connections/{boardID}", s.handleListConnections)
		r.Post("/api/connections", s.handleCreateConnection)
		r.Delete("/api/connections/{id}", s.handleDeleteConnection)
	})

	return router
}

// Middleware

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

type sessionKey struct{}

func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token is required", nil)
			return
		}
		session, err := s.service.SessionFromToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) Session {
	session, _ := ctx.Value(sessionKey{}).(Session)
	return session
}

// Health

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":     false,
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ready"})
}

// Auth handlers

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	session, user, err := s.service.SignUp(r.Context(), body.Username, body.Password)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
		"user":          userToWire(user),
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	session, user, err := s.service.SignIn(r.Context(), body.Username, body.Password)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
		"user":          userToWire(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":         session.Token,
		"refresh_token": session.RefreshToken,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = decodeBody(r, &body)
	_ = s.service.Logout(r.Context(), body.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Board handlers

func (s *HTTPServer) handleListBoards(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	boards, err := s.service.ListBoards(r.Context(), session.UserID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	payload := make([]boardJSON, 0, len(boards))
	for _, board := range boards {
		payload = append(payload, boardToWire(board))
	}
	writeJSON(w, http.StatusOK, payload)
}

type createBoardRequest struct {
	Title           string `json:"title" validate:"max=256"`
	Description     string `json:"description"`
	CoverImage      string `json:"cover_image"`
	BackgroundImage string `json:"background_image"`
}

func (s *HTTPServer) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	var body createBoardRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	board, err := s.service.CreateBoard(r.Context(), session.UserID, CreateBoardParams{
		Title:           body.Title,
		Description:     body.Description,
		CoverImage:      body.CoverImage,
		BackgroundImage: body.BackgroundImage,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, boardToWire(board))
}

type updateBoardRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=256"`
	Description     *string `json:"description"`
	CoverImage      *string `json:"cover_image"`
	BackgroundImage *string `json:"background_image"`
}

func (s *HTTPServer) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	var body updateBoardRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	board, err := s.service.UpdateBoard(r.Context(), session.UserID, chi.URLParam(r, "id"), storeBoardUpdate(body))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boardToWire(board))
}

func (s *HTTPServer) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	if err := s.service.DeleteBoard(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Board deleted"})
}

// Thought handlers

func (s *HTTPServer) handleListThoughts(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	thoughts, err := s.service.ListThoughts(r.Context(), session.UserID, chi.URLParam(r, "boardID"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	payload := make([]thoughtJSON, 0, len(thoughts))
	for _, thought := range thoughts {
		payload = append(payload, thoughtToWire(thought))
	}
	writeJSON(w, http.StatusOK, payload)
}

type createThoughtRequest struct {
	BoardID  string    `json:"board_id" validate:"required"`
	Type     string    `json:"type" validate:"required,oneof=text link image checklist sketch"`
	Content  string    `json:"content"`
	X        *float64  `json:"x" validate:"required"`
	Y        *float64  `json:"y" validate:"required"`
	Color    *string   `json:"color"`
	Width    *float64  `json:"width" validate:"omitempty,gt=0"`
	Height   *float64  `json:"height" validate:"omitempty,gt=0"`
	Metadata *Metadata `json:"metadata"`
}

func (s *HTTPServer) handleCreateThought(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	var body createThoughtRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	thought, err := s.service.CreateThought(r.Context(), session.UserID, CreateThoughtParams{
		BoardID:  body.BoardID,
		Type:     body.Type,
		Content:  body.Content,
		X:        *body.X,
		Y:        *body.Y,
		Color:    body.Color,
		Width:    body.Width,
		Height:   body.Height,
		Metadata: body.Metadata,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, thoughtToWire(thought))
}

type updateThoughtRequest struct {
	Content  *string   `json:"content"`
	X        *float64  `json:"x"`
	Y        *float64  `json:"y"`
	Color    *string   `json:"color"`
	Width    *float64  `json:"width" validate:"omitempty,gt=0"`
	Height   *float64  `json:"height" validate:"omitempty,gt=0"`
	Metadata *Metadata `json:"metadata"`
}

func (s *HTTPServer) handleUpdateThought(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	var body updateThoughtRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	thought, err := s.service.UpdateThought(r.Context(), session.UserID, chi.URLParam(r, "id"), UpdateThoughtParams{
		Content:  body.Content,
		X:        body.X,
		Y:        body.Y,
		Color:    body.Color,
		Width:    body.Width,
		Height:   body.Height,
		Metadata: body.Metadata,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thoughtToWire(thought))
}

func (s *HTTPServer) handleDeleteThought(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	if err := s.service.DeleteThought(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Thought deleted"})
}

// Connection handlers

func (s *HTTPServer) handleListConnections(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	connections, err := s.service.ListConnections(r.Context(), session.UserID, chi.URLParam(r, "boardID"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	payload := make([]connectionJSON, 0, len(connections))
	for _, conn := range connections {
		payload = append(payload, connectionToWire(conn))
	}
	writeJSON(w, http.StatusOK, payload)
}

type createConnectionRequest struct {
	BoardID string `json:"board_id" validate:"required"`
	FromID  string `json:"from_id" validate:"required"`
	ToID    string `json:"to_id" validate:"required"`
}

func (s *HTTPServer) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	var body createConnectionRequest
	if !s.decodeAndValidate(w, r, &body) {
		return
	}
	conn, err := s.service.CreateConnection(r.Context(), session.UserID, CreateConnectionParams{
		BoardID: body.BoardID,
		FromID:  body.FromID,
		ToID:    body.ToID,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, connectionToWire(conn))
}

func (s *HTTPServer) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	if err := s.service.DeleteConnection(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Connection deleted"})
}

// Helpers

func storeBoardUpdate(body updateBoardRequest) store.UpdateBoardParams {
	return store.UpdateBoardParams{
		Title:           body.Title,
		Description:     body.Description,
		CoverImage:      body.CoverImage,
		BackgroundImage: body.BackgroundImage,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// decodeBody rejects unknown fields so malformed shapes fail loudly at the
// boundary instead of silently dropping data.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func (s *HTTPServer) decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	if err := s.validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fieldErr := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s: %s", fieldErr.Field(), fieldErr.Tag()))
			}
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", fields)
			return false
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
