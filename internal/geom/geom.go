package geom

// Point is a position in surface-local coordinates.
type Point struct {
	X int
	Y int
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Area returns the number of pixels covered by the size.
func (s Size) Area() int {
	return s.Width * s.Height
}

// Positive reports whether both dimensions are greater than zero.
func (s Size) Positive() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect represents a rectangular extent.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Fits reports whether s fits inside bound in both dimensions.
func (s Size) Fits(bound Size) bool {
	return s.Width <= bound.Width && s.Height <= bound.Height
}

// Clamp limits s to bound, never below 1x1.
func (s Size) Clamp(bound Size) Size {
	out := s
	if out.Width > bound.Width {
		out.Width = bound.Width
	}
	if out.Height > bound.Height {
		out.Height = bound.Height
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}
