package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenWorldRoundTrip(t *testing.T) {
	transform := Transform{X: 42, Y: -17, K: 1.6}
	points := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 200},
		{X: -350.5, Y: 12.25},
	}
	for _, p := range points {
		back := transform.WorldToScreen(transform.ScreenToWorld(p))
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	transform := Transform{X: 30, Y: 50, K: 1}
	anchor := Point{X: 400, Y: 300}
	worldBefore := transform.ScreenToWorld(anchor)

	zoomed := transform.ZoomAt(anchor, -240)
	require.Greater(t, zoomed.K, transform.K, "negative wheel delta zooms in")

	worldAfter := zoomed.ScreenToWorld(anchor)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)
}

func TestZoomOutOnPositiveDelta(t *testing.T) {
	transform := NewTransform()
	zoomed := transform.ZoomAt(Point{}, 240)
	assert.Less(t, zoomed.K, transform.K)
}

func TestScaleClamping(t *testing.T) {
	transform := NewTransform()
	for i := 0; i < 50; i++ {
		transform = transform.ZoomIn()
	}
	assert.InDelta(t, MaxScale, transform.K, 1e-9)

	for i := 0; i < 100; i++ {
		transform = transform.ZoomOut()
	}
	assert.InDelta(t, MinScale, transform.K, 1e-9)

	// Wheel zoom respects the same bounds.
	clamped := transform.ZoomAt(Point{X: 10, Y: 10}, 100000)
	assert.GreaterOrEqual(t, clamped.K, MinScale)
}

func TestZoomButtonsStepByFactor(t *testing.T) {
	transform := NewTransform()
	assert.InDelta(t, 1.2, transform.ZoomIn().K, 1e-9)
	assert.InDelta(t, 1/1.2, transform.ZoomOut().K, 1e-9)
}

func TestPanGesture(t *testing.T) {
	engine := NewEngine()
	engine.StartPan(Point{X: 100, Y: 100})
	engine.MovePan(Point{X: 160, Y: 80})

	got := engine.Transform()
	assert.InDelta(t, 60.0, got.X, 1e-9)
	assert.InDelta(t, -20.0, got.Y, 1e-9)
	assert.InDelta(t, 1.0, got.K, 1e-9)

	engine.EndPan()
	engine.MovePan(Point{X: 500, Y: 500})
	assert.Equal(t, got, engine.Transform(), "moves after EndPan are ignored")
}

func TestPanPreservesZoom(t *testing.T) {
	engine := NewEngine()
	engine.ZoomIn()
	k := engine.Transform().K

	engine.StartPan(Point{})
	engine.MovePan(Point{X: 10, Y: 10})
	engine.EndPan()
	assert.InDelta(t, k, engine.Transform().K, 1e-9)
}

func TestPlaceCardCentersInViewport(t *testing.T) {
	engine := NewEngine()
	pos := engine.PlaceCard(800, 600)
	// Identity transform: viewport center is (400, 300) in world space.
	assert.InDelta(t, 400-CardWidth/2, pos.X, 1e-9)
	assert.InDelta(t, 300-CardHeight/2, pos.Y, 1e-9)

	engine.SetTransform(Transform{X: 100, Y: 0, K: 2})
	pos = engine.PlaceCard(800, 600)
	center := engine.Transform().ScreenToWorld(Point{X: 400, Y: 300})
	assert.InDelta(t, center.X-CardWidth/2, pos.X, 1e-9)
	assert.InDelta(t, center.Y-CardHeight/2, pos.Y, 1e-9)
}

func TestDragCardScalesDeltaByZoom(t *testing.T) {
	engine := NewEngine()
	engine.SetTransform(Transform{K: 2})

	pos := engine.DragCard(Point{X: 10, Y: 10}, 100, 50)
	assert.InDelta(t, 60.0, pos.X, 1e-9)
	assert.InDelta(t, 35.0, pos.Y, 1e-9)
}

func TestResizeCardFloors(t *testing.T) {
	engine := NewEngine()

	width, height := engine.ResizeCard(250, 150, 40, 30)
	assert.InDelta(t, 290.0, width, 1e-9)
	assert.InDelta(t, 180.0, height, 1e-9)

	width, height = engine.ResizeCard(250, 150, -500, -500)
	assert.InDelta(t, MinCardWidth, width, 1e-9)
	assert.InDelta(t, MinCardHeight, height, 1e-9)
}

func TestReset(t *testing.T) {
	engine := NewEngine()
	engine.ZoomIn()
	engine.StartPan(Point{})
	engine.MovePan(Point{X: 40, Y: 40})
	engine.Reset()

	assert.Equal(t, NewTransform(), engine.Transform())
	engine.MovePan(Point{X: 99, Y: 99})
	assert.Equal(t, NewTransform(), engine.Transform(), "reset cancels the active gesture")
}
