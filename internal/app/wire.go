package app

import (
	"encoding/json"

	"thoughtclick/api/internal/store"
)

// Wire representations are flat and snake_case; the store models are the
// canonical in-memory form. All translation between the two lives here.

// Metadata is the structured form of a thought's metadata column. A missing
// or unreadable column maps to the zero value, never to null.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type userJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type boardJSON struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CoverImage      string `json:"cover_image"`
	BackgroundImage string `json:"background_image"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

type thoughtJSON struct {
	ID        string   `json:"id"`
	BoardID   string   `json:"board_id"`
	Type      string   `json:"type"`
	Content   string   `json:"content"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Color     *string  `json:"color"`
	Width     *float64 `json:"width"`
	Height    *float64 `json:"height"`
	Metadata  Metadata `json:"metadata"`
	CreatedAt int64    `json:"created_at"`
}

type connectionJSON struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
	FromID  string `json:"from_id"`
	ToID    string `json:"to_id"`
}

func userToWire(user store.User) userJSON {
	return userJSON{ID: user.ID, Username: user.Username}
}

func boardToWire(board store.Board) boardJSON {
	return boardJSON{
		ID:              board.ID,
		UserID:          board.UserID,
		Title:           board.Title,
		Description:     board.Description,
		CoverImage:      board.CoverImage,
		BackgroundImage: board.BackgroundImage,
		CreatedAt:       board.CreatedAt,
		UpdatedAt:       board.UpdatedAt,
	}
}

func thoughtToWire(thought store.Thought) thoughtJSON {
	return thoughtJSON{
		ID:        thought.ID,
		BoardID:   thought.BoardID,
		Type:      thought.Type,
		Content:   thought.Content,
		X:         thought.X,
		Y:         thought.Y,
		Color:     thought.Color,
		Width:     thought.Width,
		Height:    thought.Height,
		Metadata:  parseMetadata(thought.Metadata),
		CreatedAt: thought.CreatedAt,
	}
}

func connectionToWire(conn store.Connection) connectionJSON {
	return connectionJSON{
		ID:      conn.ID,
		BoardID: conn.BoardID,
		FromID:  conn.FromID,
		ToID:    conn.ToID,
	}
}

// parseMetadata re-parses the persisted JSON text on every read. Malformed
// or empty text yields an empty Metadata so consumers stay total.
func parseMetadata(raw string) Metadata {
	if raw == "" {
		return Metadata{}
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return Metadata{}
	}
	return meta
}

func serializeMetadata(meta *Metadata) string {
	if meta == nil {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}
