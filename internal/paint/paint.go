// Package paint holds the test-pattern content producers. Producers
// are arbitrary pixel generators; the presentation loop only cares
// that they fill the view synchronously and do not retain it.
package paint

import (
	"fmt"

	"github.com/waypane/waypane/internal/bufpool"
)

// Producer fills one frame buffer view with XRGB8888 pixel content.
type Producer func(v bufpool.View)

// New returns the producer named by pattern.
func New(pattern string) (Producer, error) {
	switch pattern {
	case "", "gradient":
		return Gradient(), nil
	case "checker":
		return Checker(), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}
}

// Gradient returns a producer drawing a diagonal color gradient that
// drifts a little every frame.
func Gradient() Producer {
	var tick uint32
	return func(v bufpool.View) {
		t := tick
		tick++
		for y := 0; y < v.Height; y++ {
			row := v.Pix[y*v.Stride:]
			for x := 0; x < v.Width; x++ {
				r := byte(uint32(x) * 255 / uint32(max(v.Width, 1)))
				g := byte(uint32(y) * 255 / uint32(max(v.Height, 1)))
				b := byte((uint32(x+y) + t) & 0xff)
				o := x * bufpool.BytesPerPixel
				row[o+0] = b
				row[o+1] = g
				row[o+2] = r
				row[o+3] = 0xff
			}
		}
	}
}

// Checker returns a producer drawing a scrolling checkerboard.
func Checker() Producer {
	const cell = 32
	var tick int
	return func(v bufpool.View) {
		off := tick
		tick++
		for y := 0; y < v.Height; y++ {
			row := v.Pix[y*v.Stride:]
			for x := 0; x < v.Width; x++ {
				var shade byte
				if ((x+off)/cell+(y+off)/cell)%2 == 0 {
					shade = 0xe6
				} else {
					shade = 0x2a
				}
				o := x * bufpool.BytesPerPixel
				row[o+0] = shade
				row[o+1] = shade
				row[o+2] = shade
				row[o+3] = 0xff
			}
		}
	}
}
