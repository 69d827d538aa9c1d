package store

// Timestamps are unix milliseconds throughout, matching the wire format.

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    int64
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

// Thought is a card on a board canvas. Content interpretation depends on
// Type: plain text, URL, image data URI, JSON-encoded checklist items, or
// sketch data URI. Metadata holds the raw JSON text exactly as persisted;
// parsing happens at the service boundary.
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
	Metadata  string
	CreatedAt int64
}

// Connection is a directed edge between two thoughts on the same board.
type Connection struct {
	ID      string
	BoardID string
	FromID  string
	ToID    string
}

// UpdateBoardParams carries a partial board update. Nil fields keep the
// stored value.
type UpdateBoardParams struct {
	Title           *string
	Description     *string
	CoverImage      *string
	BackgroundImage *string
}

// UpdateThoughtParams carries a partial thought update. Nil fields keep the
// stored value; Metadata is raw JSON text and only overwrites when non-nil.
type UpdateThoughtParams struct {
	Content  *string
	X        *float64
	Y        *float64
	Color    *string
	Width    *float64
	Height   *float64
	Metadata *string
}
