package app

import (
	"github.com/waypane/waypane/internal/bufpool"
	"github.com/waypane/waypane/internal/geom"
	"github.com/waypane/waypane/internal/wl"
)

// Floor for interactive resize, so the surface never collapses under
// the title bar band.
const (
	minWindowWidth  = 64
	minWindowHeight = 64
)

// CreateWindow builds the surface, its xdg role objects and the
// optional decoration object, then commits the bare surface to
// solicit the first configure event. No buffer is attached until
// that configure arrives.
func (a *App) CreateWindow() {
	a.surface = a.compositor.CreateSurface()
	a.xdgSurface = a.wmBase.GetXdgSurface(a.surface)
	a.xdgSurface.Configure = a.handleSurfaceConfigure

	a.toplevel = a.xdgSurface.GetToplevel()
	a.toplevel.Configure = a.handleToplevelConfigure
	a.toplevel.Close = a.handleClose
	a.toplevel.SetTitle(a.cfg.Title)
	a.toplevel.SetAppID(a.cfg.AppID)
	a.toplevel.SetMinSize(minWindowWidth, minWindowHeight)

	if a.decorManager != nil {
		a.decoration = a.decorManager.GetToplevelDecoration(a.toplevel)
		a.decoration.Configure = func(mode uint32) {
			a.serverDecor = mode == wl.DecorationModeServerSide
			a.log.Debug("decoration mode settled", "server_side", a.serverDecor)
		}
		a.decoration.SetMode(wl.DecorationModeServerSide)
	}

	a.surface.Commit()
}

// handleSurfaceConfigure acknowledges the configure batch and, on the
// first one, brings the buffer pool and the initial frame up.
func (a *App) handleSurfaceConfigure(serial uint32) {
	if !a.consumeConfigureSerial(serial) {
		a.log.Debug("duplicate configure serial", "serial", serial)
		return
	}
	a.xdgSurface.AckConfigure(serial)

	if a.pool == nil {
		a.initPool()
		return
	}
	if a.resizePending {
		a.applyResize()
	}
}

// initPool allocates the shared frame buffer pool at the current
// geometry, paints and attaches the first buffer, and starts the
// frame callback chain.
func (a *App) initPool() {
	pool, err := bufpool.New(a.shm,
		geom.Size{Width: a.cfg.MaxWidth, Height: a.cfg.MaxHeight},
		a.size, a.log)
	if err != nil {
		// Without backing memory there is nothing to present.
		a.fatalErr = err
		a.closing = true
		return
	}
	a.pool = pool
	a.resizePending = false

	a.producer(a.pool.View(0))
	a.surface.Attach(a.pool.Buffer(0), 0, 0)
	a.surface.Damage(0, 0, int32(a.size.Width), int32(a.size.Height))
	a.scheduleFrame()
	a.surface.Commit()
	a.pool.MarkInFlight(0)
	a.active = 0
	a.log.Info("window ready", "size", a.size)
}

// consumeConfigureSerial records a serial and reports whether it is
// new. A serial is acknowledged at most once.
func (a *App) consumeConfigureSerial(serial uint32) bool {
	if a.acked && serial == a.lastAck {
		return false
	}
	a.lastAck = serial
	a.acked = true
	return true
}

// handleToplevelConfigure records compositor size hints. A zero
// dimension means "no constraint" and leaves the current value alone.
func (a *App) handleToplevelConfigure(width, height int32, states []byte) {
	_ = states
	size, changed := applyConfigureHint(a.size, width, height,
		geom.Size{Width: a.cfg.MaxWidth, Height: a.cfg.MaxHeight})
	if !changed {
		return
	}
	a.size = size
	a.resizePending = true
	if a.pool != nil {
		a.applyResize()
	}
	// With no pool yet the new geometry is simply what the pool will
	// be created at; the pending flag clears on allocation.
}

// applyConfigureHint folds a toplevel configure hint into the current
// geometry. Zero dimensions are "no constraint"; results are clamped
// to the pool bound so a hint can never overrun the mapped region.
func applyConfigureHint(cur geom.Size, width, height int32, max geom.Size) (geom.Size, bool) {
	next := cur
	if width > 0 {
		next.Width = int(width)
	}
	if height > 0 {
		next.Height = int(height)
	}
	next = next.Clamp(max)
	return next, next != cur
}

// applyResize recreates both buffer slots at the current geometry.
// A slot that fails to resize keeps its previous buffer; presentation
// continues at the old size rather than aborting.
func (a *App) applyResize() {
	for i := 0; i < bufpool.SlotCount; i++ {
		if err := a.pool.Resize(i, a.size); err != nil {
			a.log.Error("buffer resize failed, keeping previous buffer",
				"slot", i, "size", a.size, "error", err)
		}
	}
	a.resizePending = false
	a.log.Debug("buffers resized", "size", a.size)
}

func (a *App) handleClose() {
	// The loop observes the flag at the top of its next iteration;
	// no teardown happens inside the event handler.
	a.closing = true
	a.log.Info("close requested")
}
