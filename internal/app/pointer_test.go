package app

import (
	"testing"

	"github.com/waypane/waypane/internal/wl"
)

func TestResizeEdge(t *testing.T) {
	const (
		width     = 800
		height    = 600
		threshold = 3
	)
	tests := []struct {
		name string
		x, y int
		want uint32
	}{
		{"top-left corner", 1, 1, wl.EdgeTopLeft},
		{"bottom-left corner", 1, 599, wl.EdgeTopLeft},
		{"top-right corner", 799, 1, wl.EdgeBottomRight},
		{"bottom-right corner", 799, 599, wl.EdgeBottomRight},
		{"left edge", 1, 300, wl.EdgeLeft},
		{"right edge", 799, 300, wl.EdgeRight},
		{"top edge", 400, 1, wl.EdgeTop},
		{"top edge at threshold", 400, 3, wl.EdgeTop},
		{"bottom edge exact", 400, height - threshold, wl.EdgeBottom},
		{"bottom band below exact line", 400, height - threshold + 1, wl.EdgeNone},
		{"interior", 400, 300, wl.EdgeNone},
		{"just past all thresholds", 4, 4, wl.EdgeNone},
	}
	for _, tt := range tests {
		if got := resizeEdge(tt.x, tt.y, width, height, threshold); got != tt.want {
			t.Errorf("%s: resizeEdge(%d, %d) = %d, want %d", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestResizeEdgeIsPureAcrossGeometries(t *testing.T) {
	// Same relative positions, different window sizes.
	if got := resizeEdge(1, 1, 100, 100, 3); got != wl.EdgeTopLeft {
		t.Fatalf("small window top-left = %d, want %d", got, wl.EdgeTopLeft)
	}
	if got := resizeEdge(1919, 540, 1920, 1080, 3); got != wl.EdgeRight {
		t.Fatalf("large window right edge = %d, want %d", got, wl.EdgeRight)
	}
}
