package wl

import "fmt"

// Interface names as they appear in wl_registry.global events.
const (
	CompositorInterface        = "wl_compositor"
	ShmInterface               = "wl_shm"
	SeatInterface              = "wl_seat"
	WmBaseInterface            = "xdg_wm_base"
	DecorationManagerInterface = "zxdg_decoration_manager_v1"
)

// wl_shm pixel formats.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

// wl_seat capability bits.
const (
	SeatCapabilityPointer  uint32 = 1 << 0
	SeatCapabilityKeyboard uint32 = 1 << 1
	SeatCapabilityTouch    uint32 = 1 << 2
)

// wl_pointer button states.
const (
	ButtonStateReleased uint32 = 0
	ButtonStatePressed  uint32 = 1
)

// BtnLeft is the Linux input event code for the left mouse button.
const BtnLeft uint32 = 0x110

// Display is the wl_display singleton. Protocol errors delivered on
// it are fatal for the whole connection.
type Display struct {
	conn     *Conn
	objectID uint32
}

func (d *Display) id() uint32 { return d.objectID }

func (d *Display) dispatch(opcode uint16, dec *decoder) {
	switch opcode {
	case 0: // error
		object := dec.uint32()
		code := dec.uint32()
		message := dec.string()
		d.conn.fatal = &ProtocolError{Object: object, Code: code, Message: message}
	case 1: // delete_id
		id := dec.uint32()
		d.conn.unregister(id)
	}
}

// ProtocolError is a fatal error event sent by the compositor.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

// Sync queues a wl_display.sync request. The returned callback fires
// once the compositor has processed everything queued before it.
func (d *Display) Sync() *Callback {
	cb := &Callback{conn: d.conn, objectID: d.conn.newID()}
	d.conn.register(cb)
	d.conn.request(d.objectID, 0, cb.objectID)
	return cb
}

// GetRegistry queues creation of the global registry object.
func (d *Display) GetRegistry() *Registry {
	r := &Registry{conn: d.conn, objectID: d.conn.newID()}
	d.conn.register(r)
	d.conn.request(d.objectID, 1, r.objectID)
	return r
}

// Callback is a one-shot wl_callback. The compositor destroys it
// server-side after firing, so the proxy unregisters itself once Done
// has run.
type Callback struct {
	conn     *Conn
	objectID uint32

	Done func(serial uint32)
}

func (cb *Callback) id() uint32 { return cb.objectID }

func (cb *Callback) dispatch(opcode uint16, dec *decoder) {
	if opcode != 0 {
		return
	}
	serial := dec.uint32()
	cb.conn.unregister(cb.objectID)
	if cb.Done != nil {
		cb.Done(serial)
	}
}

// Registry announces and binds globals.
type Registry struct {
	conn     *Conn
	objectID uint32

	Global       func(name uint32, iface string, version uint32)
	GlobalRemove func(name uint32)
}

func (r *Registry) id() uint32 { return r.objectID }

func (r *Registry) dispatch(opcode uint16, dec *decoder) {
	switch opcode {
	case 0:
		name := dec.uint32()
		iface := dec.string()
		version := dec.uint32()
		if r.Global != nil {
			r.Global(name, iface, version)
		}
	case 1:
		name := dec.uint32()
		if r.GlobalRemove != nil {
			r.GlobalRemove(name)
		}
	}
}

// bind issues wl_registry.bind. The new_id argument of bind is
// special-cased on the wire: it carries the interface name and version
// ahead of the id.
func (r *Registry) bind(name uint32, iface string, version, newID uint32) {
	r.conn.request(r.objectID, 0, name, iface, version, newID)
}

// BindCompositor binds a wl_compositor global.
func (r *Registry) BindCompositor(name, version uint32) *Compositor {
	p := &Compositor{conn: r.conn, objectID: r.conn.newID()}
	r.conn.register(p)
	r.bind(name, CompositorInterface, version, p.objectID)
	return p
}

// BindShm binds a wl_shm global.
func (r *Registry) BindShm(name, version uint32) *Shm {
	p := &Shm{conn: r.conn, objectID: r.conn.newID()}
	r.conn.register(p)
	r.bind(name, ShmInterface, version, p.objectID)
	return p
}

// BindSeat binds a wl_seat global.
func (r *Registry) BindSeat(name, version uint32) *Seat {
	p := &Seat{conn: r.conn, objectID: r.conn.newID(), version: version}
	r.conn.register(p)
	r.bind(name, SeatInterface, version, p.objectID)
	return p
}

// BindWmBase binds an xdg_wm_base global.
func (r *Registry) BindWmBase(name, version uint32) *WmBase {
	p := &WmBase{conn: r.conn, objectID: r.conn.newID()}
	r.conn.register(p)
	r.bind(name, WmBaseInterface, version, p.objectID)
	return p
}

// BindDecorationManager binds a zxdg_decoration_manager_v1 global.
func (r *Registry) BindDecorationManager(name, version uint32) *DecorationManager {
	p := &DecorationManager{conn: r.conn, objectID: r.conn.newID()}
	r.conn.register(p)
	r.bind(name, DecorationManagerInterface, version, p.objectID)
	return p
}

// Compositor creates surfaces.
type Compositor struct {
	conn     *Conn
	objectID uint32
}

func (p *Compositor) id() uint32                { return p.objectID }
func (p *Compositor) dispatch(uint16, *decoder) {}

// CreateSurface queues creation of a new wl_surface.
func (p *Compositor) CreateSurface() *Surface {
	s := &Surface{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(s)
	p.conn.request(p.objectID, 0, s.objectID)
	return s
}

// Surface is a rectangle of pixels composited by the server.
type Surface struct {
	conn     *Conn
	objectID uint32
}

func (s *Surface) id() uint32                { return s.objectID }
func (s *Surface) dispatch(uint16, *decoder) {}

// Destroy queues destruction of the surface.
func (s *Surface) Destroy() {
	s.conn.request(s.objectID, 0)
	s.conn.unregister(s.objectID)
}

// Attach sets the buffer that the next commit will present.
func (s *Surface) Attach(b *Buffer, x, y int32) {
	var id uint32
	if b != nil {
		id = b.objectID
	}
	s.conn.request(s.objectID, 1, id, x, y)
}

// Damage marks a region of the surface as changed since the last
// commit.
func (s *Surface) Damage(x, y, width, height int32) {
	s.conn.request(s.objectID, 2, x, y, width, height)
}

// Frame requests a one-shot callback fired when it is a good time to
// draw the next frame. A new callback must be requested every cycle.
func (s *Surface) Frame() *Callback {
	cb := &Callback{conn: s.conn, objectID: s.conn.newID()}
	s.conn.register(cb)
	s.conn.request(s.objectID, 3, cb.objectID)
	return cb
}

// Commit atomically applies all pending surface state.
func (s *Surface) Commit() {
	s.conn.request(s.objectID, 6)
}

// Shm is the shared-memory buffer factory global.
type Shm struct {
	conn     *Conn
	objectID uint32

	Format func(format uint32)
}

func (p *Shm) id() uint32 { return p.objectID }

func (p *Shm) dispatch(opcode uint16, dec *decoder) {
	if opcode == 0 && p.Format != nil {
		p.Format(dec.uint32())
	}
}

// CreatePool shares a mapped file with the compositor. The descriptor
// is passed out-of-band and may be closed by the caller after the next
// flush.
func (p *Shm) CreatePool(poolFd int, size int32) *ShmPool {
	pool := &ShmPool{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(pool)
	p.conn.request(p.objectID, 0, pool.objectID, fd(poolFd), size)
	return pool
}

// ShmPool is a server-side view of a client memory region from which
// buffers are carved.
type ShmPool struct {
	conn     *Conn
	objectID uint32
}

func (p *ShmPool) id() uint32                { return p.objectID }
func (p *ShmPool) dispatch(uint16, *decoder) {}

// CreateBuffer queues creation of a buffer at a byte offset into the
// pool with the given pixel geometry.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) *Buffer {
	b := &Buffer{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(b)
	p.conn.request(p.objectID, 0, b.objectID, offset, width, height, stride, format)
	return b
}

// Destroy queues destruction of the pool. Buffers created from it
// survive until individually destroyed.
func (p *ShmPool) Destroy() {
	p.conn.request(p.objectID, 1)
	p.conn.unregister(p.objectID)
}

// Buffer is presentable pixel storage. Release fires when the
// compositor is done reading the underlying memory.
type Buffer struct {
	conn     *Conn
	objectID uint32

	Release func()
}

func (b *Buffer) id() uint32 { return b.objectID }

func (b *Buffer) dispatch(opcode uint16, dec *decoder) {
	if opcode == 0 && b.Release != nil {
		b.Release()
	}
}

// Destroy queues destruction of the buffer object. The backing
// memory is unaffected.
func (b *Buffer) Destroy() {
	b.conn.request(b.objectID, 0)
	b.conn.unregister(b.objectID)
}

// Seat is a group of input devices.
type Seat struct {
	conn     *Conn
	objectID uint32
	version  uint32

	Capabilities func(caps uint32)
	Name         func(name string)
}

func (p *Seat) id() uint32 { return p.objectID }

func (p *Seat) dispatch(opcode uint16, dec *decoder) {
	switch opcode {
	case 0:
		if p.Capabilities != nil {
			p.Capabilities(dec.uint32())
		}
	case 1:
		if p.Name != nil {
			p.Name(dec.string())
		}
	}
}

// GetPointer queues creation of the seat's pointer device.
func (p *Seat) GetPointer() *Pointer {
	ptr := &Pointer{conn: p.conn, objectID: p.conn.newID(), version: p.version}
	p.conn.register(ptr)
	p.conn.request(p.objectID, 0, ptr.objectID)
	return ptr
}

// Pointer delivers cursor events for surfaces the seat's pointer is
// over.
type Pointer struct {
	conn     *Conn
	objectID uint32
	version  uint32

	Enter  func(serial uint32, surface uint32, x, y Fixed)
	Leave  func(serial uint32, surface uint32)
	Motion func(time uint32, x, y Fixed)
	Button func(serial, time, button, state uint32)
	Axis   func(time uint32, axis uint32, value Fixed)
}

func (p *Pointer) id() uint32 { return p.objectID }

func (p *Pointer) dispatch(opcode uint16, dec *decoder) {
	switch opcode {
	case 0:
		serial := dec.uint32()
		surface := dec.uint32()
		x := dec.fixed()
		y := dec.fixed()
		if p.Enter != nil {
			p.Enter(serial, surface, x, y)
		}
	case 1:
		serial := dec.uint32()
		surface := dec.uint32()
		if p.Leave != nil {
			p.Leave(serial, surface)
		}
	case 2:
		t := dec.uint32()
		x := dec.fixed()
		y := dec.fixed()
		if p.Motion != nil {
			p.Motion(t, x, y)
		}
	case 3:
		serial := dec.uint32()
		t := dec.uint32()
		button := dec.uint32()
		state := dec.uint32()
		if p.Button != nil {
			p.Button(serial, t, button, state)
		}
	case 4:
		t := dec.uint32()
		axis := dec.uint32()
		value := dec.fixed()
		if p.Axis != nil {
			p.Axis(t, axis, value)
		}
	}
}

// Release queues destruction of the pointer object. The release
// request only exists from seat version 3 on; older pointers are just
// dropped client-side.
func (p *Pointer) Release() {
	if p.version >= 3 {
		p.conn.request(p.objectID, 1)
	}
	p.conn.unregister(p.objectID)
}
