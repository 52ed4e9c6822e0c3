package wl

// xdg_toplevel resize edge values, passed with an interactive resize
// request to tell the compositor which edge or corner is being
// dragged.
const (
	EdgeNone        uint32 = 0
	EdgeTop         uint32 = 1
	EdgeBottom      uint32 = 2
	EdgeLeft        uint32 = 4
	EdgeTopLeft     uint32 = 5
	EdgeBottomLeft  uint32 = 6
	EdgeRight       uint32 = 8
	EdgeTopRight    uint32 = 9
	EdgeBottomRight uint32 = 10
)

// zxdg_toplevel_decoration_v1 modes.
const (
	DecorationModeClientSide uint32 = 1
	DecorationModeServerSide uint32 = 2
)

// WmBase is the xdg_wm_base global: the factory for desktop-style
// window roles. It answers compositor pings automatically; a client
// that misses a ping is deemed unresponsive and may be killed.
type WmBase struct {
	conn     *Conn
	objectID uint32

	// Ping, when set, observes ping serials after the pong reply has
	// already been queued.
	Ping func(serial uint32)
}

func (p *WmBase) id() uint32 { return p.objectID }

func (p *WmBase) dispatch(opcode uint16, dec *decoder) {
	if opcode != 0 {
		return
	}
	serial := dec.uint32()
	p.Pong(serial)
	if p.Ping != nil {
		p.Ping(serial)
	}
}

// Destroy queues destruction of the wm base.
func (p *WmBase) Destroy() {
	p.conn.request(p.objectID, 0)
	p.conn.unregister(p.objectID)
}

// GetXdgSurface queues creation of an xdg_surface role object for s.
func (p *WmBase) GetXdgSurface(s *Surface) *XdgSurface {
	xs := &XdgSurface{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(xs)
	p.conn.request(p.objectID, 2, xs.objectID, s.objectID)
	return xs
}

// Pong queues the reply to a ping event.
func (p *WmBase) Pong(serial uint32) {
	p.conn.request(p.objectID, 3, serial)
}

// XdgSurface layers configure/ack state management onto a wl_surface.
type XdgSurface struct {
	conn     *Conn
	objectID uint32

	// Configure fires when the compositor has finished proposing a
	// new state batch. The serial must be acknowledged before
	// committing a buffer that reflects it.
	Configure func(serial uint32)
}

func (p *XdgSurface) id() uint32 { return p.objectID }

func (p *XdgSurface) dispatch(opcode uint16, dec *decoder) {
	if opcode == 0 && p.Configure != nil {
		p.Configure(dec.uint32())
	}
}

// Destroy queues destruction of the xdg surface.
func (p *XdgSurface) Destroy() {
	p.conn.request(p.objectID, 0)
	p.conn.unregister(p.objectID)
}

// GetToplevel queues assignment of the toplevel role.
func (p *XdgSurface) GetToplevel() *Toplevel {
	t := &Toplevel{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(t)
	p.conn.request(p.objectID, 1, t.objectID)
	return t
}

// AckConfigure queues acknowledgment of a configure serial. Each
// serial may be acknowledged at most once.
func (p *XdgSurface) AckConfigure(serial uint32) {
	p.conn.request(p.objectID, 4, serial)
}

// Toplevel is a top-level application window.
type Toplevel struct {
	conn     *Conn
	objectID uint32

	// Configure carries size hints; zero means the client picks.
	Configure func(width, height int32, states []byte)
	// Close fires when the user or compositor asks the window to go
	// away. The client decides when to actually stop.
	Close func()
}

func (p *Toplevel) id() uint32 { return p.objectID }

func (p *Toplevel) dispatch(opcode uint16, dec *decoder) {
	switch opcode {
	case 0:
		width := dec.int32()
		height := dec.int32()
		states := dec.array()
		if p.Configure != nil {
			p.Configure(width, height, states)
		}
	case 1:
		if p.Close != nil {
			p.Close()
		}
	}
}

// Destroy queues destruction of the toplevel role.
func (p *Toplevel) Destroy() {
	p.conn.request(p.objectID, 0)
	p.conn.unregister(p.objectID)
}

// SetTitle queues a window title update.
func (p *Toplevel) SetTitle(title string) {
	p.conn.request(p.objectID, 2, title)
}

// SetAppID queues the application identifier used for grouping and
// desktop-file matching.
func (p *Toplevel) SetAppID(appID string) {
	p.conn.request(p.objectID, 3, appID)
}

// Move starts an interactive, compositor-driven window move. The
// serial must come from the input event that triggered the move.
func (p *Toplevel) Move(seat *Seat, serial uint32) {
	p.conn.request(p.objectID, 5, seat.objectID, serial)
}

// Resize starts an interactive resize from the given edge.
func (p *Toplevel) Resize(seat *Seat, serial, edges uint32) {
	p.conn.request(p.objectID, 6, seat.objectID, serial, edges)
}

// SetMinSize queues a minimum size hint.
func (p *Toplevel) SetMinSize(width, height int32) {
	p.conn.request(p.objectID, 8, width, height)
}

// DecorationManager is the zxdg_decoration_manager_v1 global,
// advertised only by compositors willing to draw window decorations
// themselves.
type DecorationManager struct {
	conn     *Conn
	objectID uint32
}

func (p *DecorationManager) id() uint32                { return p.objectID }
func (p *DecorationManager) dispatch(uint16, *decoder) {}

// Destroy queues destruction of the manager.
func (p *DecorationManager) Destroy() {
	p.conn.request(p.objectID, 0)
	p.conn.unregister(p.objectID)
}

// GetToplevelDecoration queues creation of a decoration object for t.
func (p *DecorationManager) GetToplevelDecoration(t *Toplevel) *ToplevelDecoration {
	d := &ToplevelDecoration{conn: p.conn, objectID: p.conn.newID()}
	p.conn.register(d)
	p.conn.request(p.objectID, 1, d.objectID, t.objectID)
	return d
}

// ToplevelDecoration negotiates who draws the window frame.
type ToplevelDecoration struct {
	conn     *Conn
	objectID uint32

	// Configure reports the mode the compositor settled on.
	Configure func(mode uint32)
}

func (p *ToplevelDecoration) id() uint32 { return p.objectID }

func (p *ToplevelDecoration) dispatch(opcode uint16, dec *decoder) {
	if opcode == 0 && p.Configure != nil {
		p.Configure(dec.uint32())
	}
}

// Destroy queues destruction of the decoration object.
func (p *ToplevelDecoration) Destroy() {
	p.conn.request(p.objectID, 0)
	p.conn.unregister(p.objectID)
}

// SetMode queues a request for a specific decoration mode.
func (p *ToplevelDecoration) SetMode(mode uint32) {
	p.conn.request(p.objectID, 1, mode)
}
