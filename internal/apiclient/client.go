// Package apiclient is a typed Go client for the board API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Session is the authenticated state for one signed-in user. It is set on
// login and cleared on logout; there is no process-global session.
type Session struct {
	Token        string
	RefreshToken string
	User         User
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	session *Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithHTTPClient allows injecting the transport, mainly for tests.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Session returns a copy of the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	session := *c.session
	return &session
}

func (c *Client) setSession(session *Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{Status: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Auth

type authResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	User         userWire `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/signup", username, password)
}

func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/auth/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*Session, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, path, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	session := &Session{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         resp.User.toModel(),
	}
	c.setSession(session)
	copied := *session
	return &copied, nil
}

// Refresh exchanges the stored refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context) error {
	current := c.Session()
	if current == nil {
		return fmt.Errorf("not signed in")
	}
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": current.RefreshToken,
	}, &resp)
	if err != nil {
		return err
	}
	current.Token = resp.Token
	current.RefreshToken = resp.RefreshToken
	c.setSession(current)
	return nil
}

// Logout revokes the refresh token server-side and clears the session. The
// local session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	current := c.Session()
	if current == nil {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{
		"refresh_token": current.RefreshToken,
	}, nil)
	c.setSession(nil)
	return err
}

// Boards

type CreateBoardParams struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	CoverImage      string `json:"cover_image"`
	BackgroundImage string `json:"background_image"`
}

type UpdateBoardParams struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	CoverImage      *string `json:"cover_image,omitempty"`
	BackgroundImage *string `json:"background_image,omitempty"`
}

func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var wires []boardWire
	if err := c.do(ctx, http.MethodGet, "/api/boards", nil, &wires); err != nil {
		return nil, err
	}
	boards := make([]Board, 0, len(wires))
	for _, w := range wires {
		boards = append(boards, w.toModel())
	}
	return boards, nil
}

func (c *Client) CreateBoard(ctx context.Context, params CreateBoardParams) (Board, error) {
	var w boardWire
	if err := c.do(ctx, http.MethodPost, "/api/boards", params, &w); err != nil {
		return Board{}, err
	}
	return w.toModel(), nil
}

func (c *Client) UpdateBoard(ctx context.Context, boardID string, params UpdateBoardParams) (Board, error) {
	var w boardWire
	if err := c.do(ctx, http.MethodPatch, "/api/boards/"+url.PathEscape(boardID), params, &w); err != nil {
		return Board{}, err
	}
	return w.toModel(), nil
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/"+url.PathEscape(boardID), nil, nil)
}

// Thoughts

type CreateThoughtParams struct {
	BoardID  string    `json:"board_id"`
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Color    *string   `json:"color,omitempty"`
	Width    *float64  `json:"width,omitempty"`
	Height   *float64  `json:"height,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type UpdateThoughtParams struct {
	Content  *string   `json:"content,omitempty"`
	X        *float64  `json:"x,omitempty"`
	Y        *float64  `json:"y,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Width    *float64  `json:"width,omitempty"`
	Height   *float64  `json:"height,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

func (c *Client) ListThoughts(ctx context.Context, boardID string) ([]Thought, error) {
	var wires []thoughtWire
	if err := c.do(ctx, http.MethodGet, "/api/thoughts/"+url.PathEscape(boardID), nil, &wires); err != nil {
		return nil, err
	}
	thoughts := make([]Thought, 0, len(wires))
	for _, w := range wires {
		thoughts = append(thoughts, w.toModel())
	}
	return thoughts, nil
}

func (c *Client) CreateThought(ctx context.Context, params CreateThoughtParams) (Thought, error) {
	var w thoughtWire
	if err := c.do(ctx, http.MethodPost, "/api/thoughts", params, &w); err != nil {
		return Thought{}, err
	}
	return w.toModel(), nil
}

func (c *Client) UpdateThought(ctx context.Context, thoughtID string, params UpdateThoughtParams) (Thought, error) {
	var w thoughtWire
	if err := c.do(ctx, http.MethodPatch, "/api/thoughts/"+url.PathEscape(thoughtID), params, &w); err != nil {
		return Thought{}, err
	}
	return w.toModel(), nil
}

func (c *Client) DeleteThought(ctx context.Context, thoughtID string) error {
	return c.do(ctx, http.MethodDelete, "/api/thoughts/"+url.PathEscape(thoughtID), nil, nil)
}

// Connections

func (c *Client) ListConnections(ctx context.Context, boardID string) ([]Connection, error) {
	var wires []connectionWire
	if err := c.do(ctx, http.MethodGet, "/api/connections/"+url.PathEscape(boardID), nil, &wires); err != nil {
		return nil, err
	}
	conns := make([]Connection, 0, len(wires))
	for _, w := range wires {
		conns = append(conns, w.toModel())
	}
	return conns, nil
}

func (c *Client) CreateConnection(ctx context.Context, boardID, fromID, toID string) (Connection, error) {
	var w connectionWire
	err := c.do(ctx, http.MethodPost, "/api/connections", map[string]string{
		"board_id": boardID,
		"from_id":  fromID,
		"to_id":    toID,
	}, &w)
	if err != nil {
		return Connection{}, err
	}
	return w.toModel(), nil
}

func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/connections/"+url.PathEscape(connectionID), nil, nil)
}
