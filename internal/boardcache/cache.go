// Package boardcache keeps a client-side mirror of one board's thoughts and
// connections, applying mutations optimistically where the interaction
// should feel instant and reconciling with the server when it disagrees.
package boardcache

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"thoughtclick/api/internal/apiclient"
)

// DefaultTextColor is applied to new text thoughts that carry no color.
const DefaultTextColor = "#fde047"

// Grow places a child card this far to the right of its parent, with a
// vertical jitter of up to growJitter in either direction.
const (
	growOffsetX = 350.0
	growJitter  = 100.0
)

var ErrNotLoaded = errors.New("boardcache: board not loaded")

// API is the server surface the cache mutates through. *apiclient.Client
// satisfies it.
type API interface {
	ListThoughts(ctx context.Context, boardID string) ([]apiclient.Thought, error)
	CreateThought(ctx context.Context, params apiclient.CreateThoughtParams) (apiclient.Thought, error)
	UpdateThought(ctx context.Context, thoughtID string, params apiclient.UpdateThoughtParams) (apiclient.Thought, error)
	DeleteThought(ctx context.Context, thoughtID string) error
	ListConnections(ctx context.Context, boardID string) ([]apiclient.Connection, error)
	CreateConnection(ctx context.Context, boardID, fromID, toID string) (apiclient.Connection, error)
	DeleteConnection(ctx context.Context, connectionID string) error
}

type Cache struct {
	api     API
	boardID string
	logger  *zap.Logger
	randFn  func() float64

	mu          sync.Mutex
	loaded      bool
	thoughts    map[string]apiclient.Thought
	connections map[string]apiclient.Connection
}

func New(api API, boardID string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		api:         api,
		boardID:     boardID,
		logger:      logger,
		randFn:      rand.Float64,
		thoughts:    make(map[string]apiclient.Thought),
		connections: make(map[string]apiclient.Connection),
	}
}

// Load fetches both collections concurrently and replaces the cached state.
// Mutations fail with ErrNotLoaded until the first Load succeeds.
func (c *Cache) Load(ctx context.Context) error {
	var (
		thoughts []apiclient.Thought
		conns    []apiclient.Connection
	)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		thoughts, err = c.api.ListThoughts(ctx, c.boardID)
		return err
	})
	group.Go(func() error {
		var err error
		conns, err = c.api.ListConnections(ctx, c.boardID)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.thoughts = make(map[string]apiclient.Thought, len(thoughts))
	for _, thought := range thoughts {
		c.thoughts[thought.ID] = thought
	}
	c.connections = make(map[string]apiclient.Connection, len(conns))
	for _, conn := range conns {
		c.connections[conn.ID] = conn
	}
	c.loaded = true
	return nil
}

// refetch reloads from the server, logging instead of failing: it is the
// reconciliation path after an optimistic mutation went wrong.
func (c *Cache) refetch(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("board refetch failed", zap.String("board_id", c.boardID), zap.Error(err))
	}
}

func (c *Cache) requireLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrNotLoaded
	}
	return nil
}

// Thoughts returns the cached thoughts in no particular order.
func (c *Cache) Thoughts() []apiclient.Thought {
	c.mu.Lock()
	defer c.mu.Unlock()
	thoughts := make([]apiclient.Thought, 0, len(c.thoughts))
	for _, thought := range c.thoughts {
		thoughts = append(thoughts, thought)
	}
	return thoughts
}

// Connections returns the cached connections in no particular order.
func (c *Cache) Connections() []apiclient.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	conns := make([]apiclient.Connection, 0, len(c.connections))
	for _, conn := range c.connections {
		conns = append(conns, conn)
	}
	return conns
}

// Thought looks up a single cached thought.
func (c *Cache) Thought(thoughtID string) (apiclient.Thought, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	thought, ok := c.thoughts[thoughtID]
	return thought, ok
}

// AddThought creates a thought on the server and applies it to the cache
// once confirmed. Creation is not optimistic: the server assigns the id.
func (c *Cache) AddThought(ctx context.Context, thoughtType string, x, y float64, content string) (apiclient.Thought, error) {
	if err := c.requireLoaded(); err != nil {
		return apiclient.Thought{}, err
	}
	params := apiclient.CreateThoughtParams{
		BoardID: c.boardID,
		Type:    thoughtType,
		Content: content,
		X:       x,
		Y:       y,
	}
	if thoughtType == "text" {
		color := DefaultTextColor
		params.Color = &color
	}
	thought, err := c.api.CreateThought(ctx, params)
	if err != nil {
		return apiclient.Thought{}, err
	}
	c.mu.Lock()
	c.thoughts[thought.ID] = thought
	c.mu.Unlock()
	return thought, nil
}

// UpdateThought applies the change locally first and then confirms with the
// server. A failed confirmation is logged but not rolled back; position and
// text edits are too frequent to be worth flickering over, and the next
// Load reconciles.
func (c *Cache) UpdateThought(ctx context.Context, thoughtID string, params apiclient.UpdateThoughtParams) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}

	c.mu.Lock()
	thought, ok := c.thoughts[thoughtID]
	if ok {
		applyThoughtUpdate(&thought, params)
		c.thoughts[thoughtID] = thought
	}
	c.mu.Unlock()

	if _, err := c.api.UpdateThought(ctx, thoughtID, params); err != nil {
		c.logger.Warn("thought update not confirmed",
			zap.String("thought_id", thoughtID), zap.Error(err))
	}
	return nil
}

func applyThoughtUpdate(thought *apiclient.Thought, params apiclient.UpdateThoughtParams) {
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
}

// DeleteThought removes the thought and every connection touching it from
// the cache immediately, then confirms. On failure the whole board is
// refetched to restore server truth.
func (c *Cache) DeleteThought(ctx context.Context, thoughtID string) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.thoughts, thoughtID)
	for id, conn := range c.connections {
		if conn.FromID == thoughtID || conn.ToID == thoughtID {
			delete(c.connections, id)
		}
	}
	c.mu.Unlock()

	if err := c.api.DeleteThought(ctx, thoughtID); err != nil {
		c.logger.Warn("thought delete not confirmed",
			zap.String("thought_id", thoughtID), zap.Error(err))
		c.refetch(ctx)
		return err
	}
	return nil
}

// Connect creates a connection between two thoughts. An existing connection
// between the pair, in either direction, makes this a silent no-op.
func (c *Cache) Connect(ctx context.Context, fromID, toID string) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}

	c.mu.Lock()
	for _, conn := range c.connections {
		if (conn.FromID == fromID && conn.ToID == toID) || (conn.FromID == toID && conn.ToID == fromID) {
			c.mu.Unlock()
			return nil
		}
	}
	c.mu.Unlock()

	conn, err := c.api.CreateConnection(ctx, c.boardID, fromID, toID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.connections[conn.ID] = conn
	c.mu.Unlock()
	return nil
}

// Disconnect removes a connection optimistically; a failed confirmation
// triggers a refetch.
func (c *Cache) Disconnect(ctx context.Context, connectionID string) error {
	if err := c.requireLoaded(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.connections, connectionID)
	c.mu.Unlock()

	if err := c.api.DeleteConnection(ctx, connectionID); err != nil {
		c.logger.Warn("connection delete not confirmed",
			zap.String("connection_id", connectionID), zap.Error(err))
		c.refetch(ctx)
		return err
	}
	return nil
}

// Grow creates a child thought offset to the right of its parent with a
// random vertical jitter, then connects parent to child. A failed
// connection leaves the child in place; growth is best effort, not
// transactional.
func (c *Cache) Grow(ctx context.Context, parentID, thoughtType string) (apiclient.Thought, error) {
	if err := c.requireLoaded(); err != nil {
		return apiclient.Thought{}, err
	}

	parent, ok := c.Thought(parentID)
	if !ok {
		return apiclient.Thought{}, errors.New("boardcache: parent thought not cached")
	}

	x := parent.X + growOffsetX
	y := parent.Y + (c.randFn()*2*growJitter - growJitter)
	child, err := c.AddThought(ctx, thoughtType, x, y, "")
	if err != nil {
		return apiclient.Thought{}, err
	}
	if err := c.Connect(ctx, parentID, child.ID); err != nil {
		c.logger.Warn("grow connection not created",
			zap.String("parent_id", parentID), zap.String("child_id", child.ID), zap.Error(err))
	}
	return child, nil
}
