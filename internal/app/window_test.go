package app

import (
	"testing"

	"github.com/waypane/waypane/internal/geom"
)

func TestConsumeConfigureSerial(t *testing.T) {
	a := &App{}
	if !a.consumeConfigureSerial(7) {
		t.Fatalf("first serial should be consumed")
	}
	if a.consumeConfigureSerial(7) {
		t.Fatalf("repeated serial must not be consumed twice")
	}
	if !a.consumeConfigureSerial(8) {
		t.Fatalf("new serial should be consumed")
	}
}

func TestApplyConfigureHint(t *testing.T) {
	max := geom.Size{Width: 1920, Height: 1080}
	cur := geom.Size{Width: 960, Height: 540}
	tests := []struct {
		name          string
		width, height int32
		want          geom.Size
		wantChanged   bool
	}{
		{"new size", 1280, 720, geom.Size{Width: 1280, Height: 720}, true},
		{"zero means no constraint", 0, 0, cur, false},
		{"width only", 1280, 0, geom.Size{Width: 1280, Height: 540}, true},
		{"same size is no change", 960, 540, cur, false},
		{"clamped to pool bound", 4000, 3000, max, true},
	}
	for _, tt := range tests {
		got, changed := applyConfigureHint(cur, tt.width, tt.height, max)
		if got != tt.want || changed != tt.wantChanged {
			t.Errorf("%s: applyConfigureHint(%d, %d) = %v, %v; want %v, %v",
				tt.name, tt.width, tt.height, got, changed, tt.want, tt.wantChanged)
		}
	}
}
