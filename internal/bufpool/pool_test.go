package bufpool

import (
	"os"
	"testing"

	"github.com/waypane/waypane/internal/geom"
)

func TestRegionSizing(t *testing.T) {
	page := os.Getpagesize()
	max := geom.Size{Width: 1920, Height: 1080}

	want := SlotCount * max.Width * max.Height * BytesPerPixel
	got := regionBytes(max)
	if got < want {
		t.Fatalf("regionBytes(%v) = %d, smaller than the %d bytes two full frames need", max, got, want)
	}
	if got%page != 0 {
		t.Fatalf("regionBytes(%v) = %d, not page aligned (page %d)", max, got, page)
	}
	if got-want >= page {
		t.Fatalf("regionBytes(%v) = %d, more than one page of slack over %d", max, got, want)
	}
}

func TestPageAlign(t *testing.T) {
	page := os.Getpagesize()
	if got := pageAlign(1); got != page {
		t.Fatalf("pageAlign(1) = %d, want %d", got, page)
	}
	if got := pageAlign(3 * page); got != 3*page {
		t.Fatalf("pageAlign(%d) = %d, want unchanged", 3*page, got)
	}
	if got := pageAlign(page + 1); got != 2*page {
		t.Fatalf("pageAlign(%d) = %d, want %d", page+1, got, 2*page)
	}
}

// testPool builds a pool over plain memory, without a compositor, for
// exercising the view math.
func testPool(max, current geom.Size) *Pool {
	p := &Pool{max: max, mem: make([]byte, regionBytes(max)), fd: -1}
	for i := range p.slots {
		p.slots[i].offset = i * frameBytes(max)
		p.slots[i].size = current
	}
	return p
}

func TestViewGeometry(t *testing.T) {
	max := geom.Size{Width: 1920, Height: 1080}
	cur := geom.Size{Width: 960, Height: 540}
	p := testPool(max, cur)

	for i := 0; i < SlotCount; i++ {
		v := p.View(i)
		if v.Width != cur.Width || v.Height != cur.Height {
			t.Fatalf("slot %d: view is %dx%d, want %dx%d", i, v.Width, v.Height, cur.Width, cur.Height)
		}
		if v.Stride != max.Width*BytesPerPixel {
			t.Fatalf("slot %d: stride %d, want fixed %d", i, v.Stride, max.Width*BytesPerPixel)
		}
		if len(v.Pix) != v.Stride*v.Height {
			t.Fatalf("slot %d: %d pixel bytes, want %d", i, len(v.Pix), v.Stride*v.Height)
		}
	}

	// Writing the last pixel of slot 1's view must stay inside the
	// slot's fixed allocation.
	v := p.View(1)
	v.Pix[len(v.Pix)-1] = 0xff
	if p.mem[frameBytes(max)+v.Stride*v.Height-1] != 0xff {
		t.Fatalf("slot 1 view does not map to the fixed slot offset")
	}
}

func TestViewNeverExceedsAllocation(t *testing.T) {
	max := geom.Size{Width: 1920, Height: 1080}
	p := testPool(max, max)
	for i := 0; i < SlotCount; i++ {
		v := p.View(i)
		end := p.slots[i].offset + v.Stride*v.Height
		if end > len(p.mem) {
			t.Fatalf("slot %d: view ends at %d, beyond the %d-byte region", i, end, len(p.mem))
		}
		if i+1 < SlotCount && end > p.slots[i+1].offset {
			t.Fatalf("slot %d: view overlaps slot %d", i, i+1)
		}
	}
}

func TestInFlightTracking(t *testing.T) {
	p := testPool(geom.Size{Width: 64, Height: 64}, geom.Size{Width: 32, Height: 32})
	if p.InFlight(0) || p.InFlight(1) {
		t.Fatalf("fresh slots must not be in flight")
	}
	p.MarkInFlight(0)
	if !p.InFlight(0) {
		t.Fatalf("slot 0 should be in flight after marking")
	}
	if p.InFlight(1) {
		t.Fatalf("slot 1 must be independent of slot 0")
	}
}
