// Package canvas implements the coordinate model for an infinite pannable,
// zoomable board. Screen space is device pixels; world space is where cards
// live. The mapping is screen = world*K + (X, Y).
package canvas

import "math"

const (
	MinScale = 0.1
	MaxScale = 5.0
	// ZoomStep is the factor applied by the discrete zoom buttons.
	ZoomStep = 1.2

	// Default card footprint in world units.
	CardWidth  = 250.0
	CardHeight = 150.0

	// Cards never shrink below this footprint when resized.
	MinCardWidth  = 220.0
	MinCardHeight = 100.0
)

type Point struct {
	X float64
	Y float64
}

// Transform is the view state: translation in screen pixels plus a uniform
// scale factor.
type Transform struct {
	X float64
	Y float64
	K float64
}

func NewTransform() Transform {
	return Transform{K: 1}
}

// ScreenToWorld maps a screen position to world coordinates under t.
func (t Transform) ScreenToWorld(p Point) Point {
	return Point{
		X: (p.X - t.X) / t.K,
		Y: (p.Y - t.Y) / t.K,
	}
}

// WorldToScreen is the inverse of ScreenToWorld.
func (t Transform) WorldToScreen(p Point) Point {
	return Point{
		X: p.X*t.K + t.X,
		Y: p.Y*t.K + t.Y,
	}
}

func clampScale(k float64) float64 {
	return math.Min(MaxScale, math.Max(MinScale, k))
}

// ZoomAt applies a wheel delta with the anchor point fixed on screen: the
// world position under the cursor stays under the cursor. Scroll down
// (positive delta) zooms out.
func (t Transform) ZoomAt(anchor Point, delta float64) Transform {
	factor := math.Pow(1.1, -delta/200)
	next := clampScale(t.K * factor)
	ratio := next / t.K
	return Transform{
		X: anchor.X - (anchor.X-t.X)*ratio,
		Y: anchor.Y - (anchor.Y-t.Y)*ratio,
		K: next,
	}
}

// ZoomIn steps the scale up around the screen origin.
func (t Transform) ZoomIn() Transform {
	t.K = clampScale(t.K * ZoomStep)
	return t
}

// ZoomOut steps the scale down around the screen origin.
func (t Transform) ZoomOut() Transform {
	t.K = clampScale(t.K / ZoomStep)
	return t
}

// Translate shifts the view by a screen-space delta.
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// Engine tracks a live view transform together with an in-flight pan
// gesture. It is not safe for concurrent use.
type Engine struct {
	transform Transform

	panning   bool
	panStart  Point
	panOrigin Transform
}

func NewEngine() *Engine {
	return &Engine{transform: NewTransform()}
}

func (e *Engine) Transform() Transform { return e.transform }

func (e *Engine) SetTransform(t Transform) {
	t.K = clampScale(t.K)
	if t.K == 0 {
		t.K = 1
	}
	e.transform = t
}

// Reset returns the view to the identity transform.
func (e *Engine) Reset() {
	e.transform = NewTransform()
	e.panning = false
}

// StartPan begins a pan gesture at a screen position.
func (e *Engine) StartPan(p Point) {
	e.panning = true
	e.panStart = p
	e.panOrigin = e.transform
}

// MovePan updates the view for the current pointer position. It is a no-op
// when no gesture is active.
func (e *Engine) MovePan(p Point) {
	if !e.panning {
		return
	}
	e.transform = Transform{
		X: e.panOrigin.X + (p.X - e.panStart.X),
		Y: e.panOrigin.Y + (p.Y - e.panStart.Y),
		K: e.panOrigin.K,
	}
}

func (e *Engine) EndPan() {
	e.panning = false
}

// Wheel applies a wheel event anchored at the pointer.
func (e *Engine) Wheel(anchor Point, delta float64) {
	e.transform = e.transform.ZoomAt(anchor, delta)
}

func (e *Engine) ZoomIn()  { e.transform = e.transform.ZoomIn() }
func (e *Engine) ZoomOut() { e.transform = e.transform.ZoomOut() }

// PlaceCard picks the world position for a new card so that it appears
// centered in a viewport of the given screen size.
func (e *Engine) PlaceCard(viewportWidth, viewportHeight float64) Point {
	center := e.transform.ScreenToWorld(Point{X: viewportWidth / 2, Y: viewportHeight / 2})
	return Point{
		X: center.X - CardWidth/2,
		Y: center.Y - CardHeight/2,
	}
}

// DragCard converts a screen-space pointer delta into the card's new world
// position, starting from where the card sat when the drag began.
func (e *Engine) DragCard(start Point, dx, dy float64) Point {
	return Point{
		X: start.X + dx/e.transform.K,
		Y: start.Y + dy/e.transform.K,
	}
}

// ResizeCard converts a screen-space pointer delta into new card
// dimensions, clamped to the minimum footprint.
func (e *Engine) ResizeCard(startWidth, startHeight, dx, dy float64) (width, height float64) {
	width = math.Max(MinCardWidth, startWidth+dx/e.transform.K)
	height = math.Max(MinCardHeight, startHeight+dy/e.transform.K)
	return width, height
}
