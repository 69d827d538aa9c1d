package apiclient

// Client models are plain camelCase structs. The wire format is snake_case;
// the mapping between the two is explicit and lives in this file.

type User struct {
	ID       string
	Username string
}

type Board struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	CoverImage      string
	BackgroundImage string
	CreatedAt       int64
	UpdatedAt       int64
}

// Metadata is the structured extra data on a thought, populated for link
// previews and checklist titles.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

type Thought struct {
	ID        string
	BoardID   string
	Type      string
	Content   string
	X         float64
	Y         float64
	Color     *string
	Width     *float64
	Height    *float64
	Metadata  Metadata
	CreatedAt int64
}

type Connection struct {
	ID      string
	BoardID string
	FromID  string
	ToID    string
}

type userWire struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type boardWire struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	CoverImage      string `json:"cover_image"`
	BackgroundImage string `json:"background_image"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

type thoughtWire struct {
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

type connectionWire struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
	FromID  string `json:"from_id"`
	ToID    string `json:"to_id"`
}

func (w userWire) toModel() User {
	return User{ID: w.ID, Username: w.Username}
}

func (w boardWire) toModel() Board {
	return Board{
		ID:              w.ID,
		UserID:          w.UserID,
		Title:           w.Title,
		Description:     w.Description,
		CoverImage:      w.CoverImage,
		BackgroundImage: w.BackgroundImage,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

func (w thoughtWire) toModel() Thought {
	return Thought{
		ID:        w.ID,
		BoardID:   w.BoardID,
		Type:      w.Type,
		Content:   w.Content,
		X:         w.X,
		Y:         w.Y,
		Color:     w.Color,
		Width:     w.Width,
		Height:    w.Height,
		Metadata:  w.Metadata,
		CreatedAt: w.CreatedAt,
	}
}

func (w connectionWire) toModel() Connection {
	return Connection{ID: w.ID, BoardID: w.BoardID, FromID: w.FromID, ToID: w.ToID}
}
