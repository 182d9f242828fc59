package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsCenter(t *testing.T) {
	b := Bounds{X1: 0, Y1: 0, X2: 100, Y2: 50}
	assert.Equal(t, LogicalPoint{X: 50, Y: 25}, b.Center())
}

func TestBoundsEmpty(t *testing.T) {
	assert.True(t, Bounds{}.Empty())
	assert.False(t, Bounds{X1: 1, Y1: 1, X2: 2, Y2: 2}.Empty())
}

func TestNewScaleUniform(t *testing.T) {
	s := NewScale(PhysicalSize{Width: 1080, Height: 2400}, WindowSize{Width: 360, Height: 800})
	assert.InDelta(t, 3.0, s.X, 1e-9)
	assert.InDelta(t, 3.0, s.Y, 1e-9)
}

func TestNewScaleZeroWindowDefaultsToIdentity(t *testing.T) {
	s := NewScale(PhysicalSize{Width: 1080, Height: 2400}, WindowSize{})
	assert.Equal(t, Scale{X: 1, Y: 1}, s)
}

func TestScaleRoundTrip(t *testing.T) {
	s := NewScale(PhysicalSize{Width: 1080, Height: 2400}, WindowSize{Width: 360, Height: 800})
	center := LogicalPoint{X: 180, Y: 400}
	got := s.ToLogical(s.ToPhysical(center))
	assert.InDelta(t, center.X, got.X, 1)
	assert.InDelta(t, center.Y, got.Y, 1)
}

func TestFromPercent(t *testing.T) {
	p := FromPercent(50, 25, WindowSize{Width: 360, Height: 800})
	assert.Equal(t, LogicalPoint{X: 180, Y: 200}, p)
}

func TestFromPercentZeroAndHundred(t *testing.T) {
	window := WindowSize{Width: 400, Height: 1000}
	assert.Equal(t, LogicalPoint{X: 0, Y: 0}, FromPercent(0, 0, window))
	assert.Equal(t, LogicalPoint{X: 400, Y: 1000}, FromPercent(100, 100, window))
}
