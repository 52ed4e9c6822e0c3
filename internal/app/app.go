// Package app wires the protocol pieces into one running client: the
// capability negotiation, the window surface state machine, the
// pointer classifier and the paced presentation loop. All mutable
// state lives on the App value and is owned by the goroutine driving
// Run; handlers run to completion between reads, never concurrently.
package app

import (
	"log/slog"

	"github.com/waypane/waypane/internal/bufpool"
	"github.com/waypane/waypane/internal/config"
	"github.com/waypane/waypane/internal/geom"
	"github.com/waypane/waypane/internal/paint"
	"github.com/waypane/waypane/internal/wl"
)

// pointerState is the last known pointer position relative to the
// surface, valid while inside is true.
type pointerState struct {
	pos    geom.Point
	inside bool
}

// App is the single owner of the connection and everything created
// over it.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	producer paint.Producer

	conn *wl.Conn

	// Bound globals.
	registry     *wl.Registry
	compositor   *wl.Compositor
	shm          *wl.Shm
	seat         *wl.Seat
	pointer      *wl.Pointer
	wmBase       *wl.WmBase
	decorManager *wl.DecorationManager

	// Window objects and state machine.
	surface    *wl.Surface
	xdgSurface *wl.XdgSurface
	toplevel   *wl.Toplevel
	decoration *wl.ToplevelDecoration

	size          geom.Size // current surface geometry
	resizePending bool
	lastAck       uint32
	acked         bool
	closing       bool
	fatalErr      error

	pool *bufpool.Pool
	ptr  pointerState

	// serverDecor disables the client-drawn title bar band when the
	// compositor offered to decorate the window itself.
	serverDecor bool

	frames uint64
	active int // buffer slot currently attached
}

// New builds an unconnected App.
func New(cfg *config.Config, producer paint.Producer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:      cfg,
		log:      logger,
		producer: producer,
		size:     geom.Size{Width: cfg.InitialWidth, Height: cfg.InitialHeight},
	}
}

// Connect establishes the compositor connection.
func (a *App) Connect() error {
	conn, err := wl.Dial(a.cfg.Display, a.log)
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

// Frames returns the number of frames presented so far.
func (a *App) Frames() uint64 {
	return a.frames
}

// Close tears everything down in reverse order of creation and sends
// the queued destruction requests before dropping the socket.
func (a *App) Close() {
	if a.conn == nil {
		return
	}
	if a.decoration != nil {
		a.decoration.Destroy()
		a.decoration = nil
	}
	if a.decorManager != nil {
		a.decorManager.Destroy()
		a.decorManager = nil
	}
	if a.toplevel != nil {
		a.toplevel.Destroy()
		a.toplevel = nil
	}
	if a.xdgSurface != nil {
		a.xdgSurface.Destroy()
		a.xdgSurface = nil
	}
	if a.surface != nil {
		a.surface.Destroy()
		a.surface = nil
	}
	if a.wmBase != nil {
		a.wmBase.Destroy()
		a.wmBase = nil
	}
	if a.pointer != nil {
		a.pointer.Release()
		a.pointer = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if err := a.conn.Flush(); err != nil {
		a.log.Debug("final flush failed", "error", err)
	}
	if err := a.conn.Close(); err != nil {
		a.log.Debug("connection close failed", "error", err)
	}
	a.conn = nil
}
