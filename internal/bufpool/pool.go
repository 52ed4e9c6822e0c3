// Package bufpool owns the shared memory region backing the window's
// pixels: one anonymous memfd mapping sized for the configured maximum
// resolution, carved into two buffer slots at fixed byte offsets.
// Slots are recreated on resize; the mapping itself never moves, which
// keeps resize free of any remap race with a compositor-side read.
package bufpool

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/waypane/waypane/internal/geom"
	"github.com/waypane/waypane/internal/wl"
)

// BytesPerPixel is the size of one XRGB8888 pixel.
const BytesPerPixel = 4

// SlotCount is the number of buffers in the swap chain.
const SlotCount = 2

// View is a non-owning window into one slot at the current surface
// geometry. Stride stays fixed at the maximum width, so a view is a
// sub-rectangle of the slot's full allocation.
type View struct {
	Width  int
	Height int
	Stride int // bytes per row
	Pix    []byte
}

type slot struct {
	buf      *wl.Buffer
	offset   int
	size     geom.Size
	inFlight bool // attached and not yet released by the compositor
}

// Pool is the double-buffered shared frame buffer pool.
type Pool struct {
	log    *slog.Logger
	max    geom.Size
	mem    []byte
	fd     int // memfd backing the region, held until Close
	wlPool *wl.ShmPool
	slots  [SlotCount]slot
}

// frameBytes returns the byte size of one slot's full allocation.
func frameBytes(max geom.Size) int {
	return max.Width * max.Height * BytesPerPixel
}

// regionBytes returns the total mapping size for all slots, rounded
// up to whole pages.
func regionBytes(max geom.Size) int {
	return pageAlign(SlotCount * frameBytes(max))
}

func pageAlign(n int) int {
	page := os.Getpagesize()
	return (n + page - 1) / page * page
}

// New creates the backing memfd, maps it, shares it with the
// compositor, and populates both slots at the initial geometry. The
// memfd is anonymous, so nothing ever lingers in a shared namespace.
// The descriptor stays open on the pool: the create_pool request only
// carries it out-of-band at the next flush, so closing it here would
// hand sendmsg a dead descriptor.
func New(shm *wl.Shm, max, initial geom.Size, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !max.Positive() {
		return nil, fmt.Errorf("invalid maximum surface size %dx%d", max.Width, max.Height)
	}
	if !initial.Fits(max) {
		return nil, fmt.Errorf("initial size %dx%d exceeds maximum %dx%d",
			initial.Width, initial.Height, max.Width, max.Height)
	}

	total := regionBytes(max)
	fd, err := unix.MemfdCreate("waypane-framebuffer", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared memory object: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(total)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to size shared memory to %d bytes: %w", total, err)
	}
	mem, err := unix.Mmap(fd, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to map shared memory: %w", err)
	}

	p := &Pool{log: logger, max: max, mem: mem, fd: fd}
	p.wlPool = shm.CreatePool(fd, int32(total))

	stride := max.Width * BytesPerPixel
	for i := range p.slots {
		s := &p.slots[i]
		s.offset = i * frameBytes(max)
		s.size = initial
		s.buf = p.createBuffer(s.offset, initial, stride)
		p.watchRelease(i)
	}

	logger.Debug("frame buffer pool allocated",
		"bytes", total, "max", fmt.Sprintf("%dx%d", max.Width, max.Height),
		"initial", fmt.Sprintf("%dx%d", initial.Width, initial.Height))
	return p, nil
}

func (p *Pool) createBuffer(offset int, size geom.Size, stride int) *wl.Buffer {
	return p.wlPool.CreateBuffer(int32(offset), int32(size.Width), int32(size.Height),
		int32(stride), wl.FormatXRGB8888)
}

func (p *Pool) watchRelease(i int) {
	s := &p.slots[i]
	s.buf.Release = func() {
		s.inFlight = false
	}
}

// Resize recreates the protocol buffer at slot i for the new
// geometry, at the same byte offset. Sizes beyond the maximum are
// clamped rather than allowed to overrun the mapping; the previous
// buffer is kept if the request is unusable.
func (p *Pool) Resize(i int, size geom.Size) error {
	if i < 0 || i >= SlotCount {
		return fmt.Errorf("buffer slot %d out of range", i)
	}
	if !size.Positive() {
		return fmt.Errorf("refusing resize of slot %d to %dx%d", i, size.Width, size.Height)
	}
	if !size.Fits(p.max) {
		clamped := size.Clamp(p.max)
		p.log.Warn("resize clamped to pool maximum",
			"slot", i, "requested", fmt.Sprintf("%dx%d", size.Width, size.Height),
			"clamped", fmt.Sprintf("%dx%d", clamped.Width, clamped.Height))
		size = clamped
	}
	s := &p.slots[i]
	s.buf.Destroy()
	s.size = size
	s.buf = p.createBuffer(s.offset, size, p.max.Width*BytesPerPixel)
	// The destroyed buffer will never deliver a release; the fresh
	// one starts out free or the slot would stay held forever.
	s.inFlight = false
	p.watchRelease(i)
	return nil
}

// Buffer returns the protocol buffer object at slot i.
func (p *Pool) Buffer(i int) *wl.Buffer {
	return p.slots[i].buf
}

// View derives the writable pixel view for slot i at the slot's
// current geometry.
func (p *Pool) View(i int) View {
	s := &p.slots[i]
	stride := p.max.Width * BytesPerPixel
	return View{
		Width:  s.size.Width,
		Height: s.size.Height,
		Stride: stride,
		Pix:    p.mem[s.offset : s.offset+stride*s.size.Height],
	}
}

// SlotSize returns the current geometry of slot i.
func (p *Pool) SlotSize(i int) geom.Size {
	return p.slots[i].size
}

// InFlight reports whether slot i is attached and awaiting release.
func (p *Pool) InFlight(i int) bool {
	return p.slots[i].inFlight
}

// MarkInFlight records that slot i has been attached and committed.
func (p *Pool) MarkInFlight(i int) {
	p.slots[i].inFlight = true
}

// Close destroys the protocol objects and unmaps the region.
func (p *Pool) Close() {
	for i := range p.slots {
		if p.slots[i].buf != nil {
			p.slots[i].buf.Destroy()
			p.slots[i].buf = nil
		}
	}
	if p.wlPool != nil {
		p.wlPool.Destroy()
		p.wlPool = nil
	}
	if p.mem != nil {
		if err := unix.Munmap(p.mem); err != nil {
			p.log.Warn("failed to unmap frame buffer region", "error", err)
		}
		p.mem = nil
	}
	if p.fd > 0 {
		unix.Close(p.fd)
		p.fd = -1
	}
}
