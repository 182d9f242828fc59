// Package geometry gives logical and physical coordinates distinct types
// (spec §9 design note: "represent physical and logical coordinates as
// distinct types... never store a Point whose space is implicit").
// Logical coordinates are the device's window-size coordinate space — the
// only space gestures consume. Physical coordinates are the screenshot's
// pixel space — only overlay drawing happens there.
package geometry

// LogicalPoint is a point in the device's window-size coordinate space.
type LogicalPoint struct {
	X, Y int
}

// PhysicalPoint is a point in the screenshot's pixel space.
type PhysicalPoint struct {
	X, Y int
}

// Bounds is an axis-aligned rectangle in logical coordinates, parsed from
// an accessibility-tree node (spec §3: UIElement.bounds).
type Bounds struct {
	X1, Y1, X2, Y2 int
}

// Center returns the midpoint of the rectangle, floored toward zero.
func (b Bounds) Center() LogicalPoint {
	return LogicalPoint{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Empty reports whether the rectangle is the zero value (all four
// coordinates zero), the signal used to treat an element as "not
// targetable by coordinate" (spec §3). A non-zero rectangle of zero width
// or height is not reported as empty.
func (b Bounds) Empty() bool {
	return b.X1 == 0 && b.Y1 == 0 && b.X2 == 0 && b.Y2 == 0
}

// WindowSize is the device's logical window size (spec §6: getWindowSize).
type WindowSize struct {
	Width, Height int
}

// Scale is the per-axis conversion factor between physical screenshot
// pixels and logical window pixels (spec §4.A step 2). Devices frequently
// report screenshots at 2x-3x the logical window size, and the two axes
// may differ.
type Scale struct {
	X, Y float64
}

// NewScale computes the scale factor from a screenshot's intrinsic pixel
// dimensions and the device's logical window size.
func NewScale(physical PhysicalSize, logical WindowSize) Scale {
	s := Scale{X: 1, Y: 1}
	if logical.Width > 0 {
		s.X = float64(physical.Width) / float64(logical.Width)
	}
	if logical.Height > 0 {
		s.Y = float64(physical.Height) / float64(logical.Height)
	}
	return s
}

// PhysicalSize is a screenshot's intrinsic pixel dimensions.
type PhysicalSize struct {
	Width, Height int
}

// ToPhysical converts a logical point to physical pixel space.
func (s Scale) ToPhysical(p LogicalPoint) PhysicalPoint {
	return PhysicalPoint{
		X: int(float64(p.X) * s.X),
		Y: int(float64(p.Y) * s.Y),
	}
}

// ToLogical converts a physical point back to logical space (spec §4.A
// step 5, the grid round-trip invariant).
func (s Scale) ToLogical(p PhysicalPoint) LogicalPoint {
	x, y := float64(p.X), float64(p.Y)
	if s.X != 0 {
		x = x / s.X
	}
	if s.Y != 0 {
		y = y / s.Y
	}
	return LogicalPoint{X: int(x), Y: int(y)}
}

// FromPercent converts a pure-vision percentage location to logical pixels
// (spec §4.F tier 4 step 3): x = floor(W * x_percent/100), analogously y.
func FromPercent(xPercent, yPercent float64, window WindowSize) LogicalPoint {
	return LogicalPoint{
		X: int(float64(window.Width) * xPercent / 100),
		Y: int(float64(window.Height) * yPercent / 100),
	}
}
