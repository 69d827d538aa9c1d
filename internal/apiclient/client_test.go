package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(server.URL)
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode test response: %v", err)
	}
}

func TestLoginSetsSessionAndAuthorizesRequests(t *testing.T) {
	var seenAuth string
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]any{
				"token":         "jwt-1",
				"refresh_token": "refresh-1",
				"user":          map[string]string{"id": "u1", "username": "alice"},
			})
		},
		"/api/boards": func(w http.ResponseWriter, r *http.Request) {
			seenAuth = r.Header.Get("Authorization")
			writeTestJSON(t, w, http.StatusOK, []any{})
		},
	})

	require.Nil(t, client.Session(), "fresh client starts signed out")

	session, err := client.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", session.Token)
	assert.Equal(t, "alice", session.User.Username)
	require.NotNil(t, client.Session())

	_, err = client.ListBoards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-1", seenAuth)
}

func TestLogoutClearsSessionEvenOnServerError(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]any{
				"token": "jwt-1", "refresh_token": "refresh-1",
				"user": map[string]string{"id": "u1", "username": "alice"},
			})
		},
		"/api/auth/logout": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusInternalServerError, map[string]string{
				"code": "SERVER_ERROR", "error": "boom",
			})
		},
	})

	_, err := client.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)

	err = client.Logout(context.Background())
	assert.Error(t, err)
	assert.Nil(t, client.Session(), "session is cleared regardless of the server outcome")
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/boards": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusForbidden, map[string]string{
				"code": "FORBIDDEN", "error": "Unauthorized",
			})
		},
	})

	_, err := client.ListBoards(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
}

func TestThoughtWireMapping(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/thoughts/b1": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, []map[string]any{{
				"id":       "t1",
				"board_id": "b1",
				"type":     "link",
				"content":  "https://example.com",
				"x":        12.5,
				"y":        -3.0,
				"color":    nil,
				"width":    320.0,
				"height":   nil,
				"metadata": map[string]string{
					"title":     "Example",
					"thumbnail": "data:image/png;base64,xyz",
				},
				"created_at": int64(1756500000000),
			}})
		},
	})

	thoughts, err := client.ListThoughts(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, thoughts, 1)

	thought := thoughts[0]
	assert.Equal(t, "b1", thought.BoardID)
	assert.Equal(t, "link", thought.Type)
	assert.Equal(t, 12.5, thought.X)
	assert.Nil(t, thought.Color)
	require.NotNil(t, thought.Width)
	assert.Equal(t, 320.0, *thought.Width)
	assert.Nil(t, thought.Height)
	assert.Equal(t, "Example", thought.Metadata.Title)
	assert.Equal(t, int64(1756500000000), thought.CreatedAt)
}

func TestUpdateThoughtOmitsUnsetFields(t *testing.T) {
	var body map[string]any
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/api/thoughts/t1": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeTestJSON(t, w, http.StatusOK, map[string]any{"id": "t1"})
		},
	})

	x := 40.0
	_, err := client.UpdateThought(context.Background(), "t1", UpdateThoughtParams{X: &x})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"x": 40.0}, body, "only the set field is sent")
}

func TestRefreshRequiresSession(t *testing.T) {
	client := newTestServer(t, nil)
	assert.Error(t, client.Refresh(context.Background()))
}
