package app

import (
	"github.com/waypane/waypane/internal/geom"
	"github.com/waypane/waypane/internal/wl"
)

// setupPointer subscribes the app to a freshly created pointer
// device.
func (a *App) setupPointer(p *wl.Pointer) {
	p.Enter = func(serial, surface uint32, x, y wl.Fixed) {
		a.ptr.inside = true
		a.ptr.pos = geom.Point{X: x.Int(), Y: y.Int()}
	}
	p.Leave = func(serial, surface uint32) {
		a.ptr.inside = false
	}
	p.Motion = func(t uint32, x, y wl.Fixed) {
		a.ptr.pos = geom.Point{X: x.Int(), Y: y.Int()}
	}
	p.Button = a.handleButton
}

// handleButton classifies a button press into an interactive resize
// or move request carrying the authorizing serial. Clicks elsewhere
// pass through.
func (a *App) handleButton(serial, t, button, state uint32) {
	if state != wl.ButtonStatePressed || !a.ptr.inside {
		return
	}
	if a.toplevel == nil || a.seat == nil {
		return
	}
	edge := resizeEdge(a.ptr.pos.X, a.ptr.pos.Y, a.size.Width, a.size.Height, a.cfg.EdgeThreshold)
	if edge != wl.EdgeNone {
		a.toplevel.Resize(a.seat, serial, edge)
		return
	}
	// Only the left button drags the window, and only from the
	// client-drawn title bar band.
	if button == wl.BtnLeft && !a.serverDecor && a.ptr.pos.Y <= a.cfg.TitleBarHeight {
		a.toplevel.Move(a.seat, serial)
	}
}

// resizeEdge maps a pointer position to the window edge or corner an
// interactive resize should grab. Pure function of its arguments;
// rules are evaluated in priority order, first match wins.
func resizeEdge(x, y, width, height, threshold int) uint32 {
	maxW := width - threshold
	maxH := height - threshold
	switch {
	case x < threshold && y < threshold:
		return wl.EdgeTopLeft
	case x < threshold && y > maxH:
		return wl.EdgeTopLeft
	case x > maxW && y < threshold:
		return wl.EdgeBottomRight
	case x > maxW && y > maxH:
		return wl.EdgeBottomRight
	case x < threshold:
		return wl.EdgeLeft
	case x > maxW:
		return wl.EdgeRight
	case y <= threshold:
		return wl.EdgeTop
	case y == maxH:
		return wl.EdgeBottom
	}
	return wl.EdgeNone
}
