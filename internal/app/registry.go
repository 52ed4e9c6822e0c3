package app

import (
	"fmt"

	"github.com/waypane/waypane/internal/wl"
)

// Preferred bind versions. Binding uses the lower of these and the
// advertised version; everything this client does works at version 1
// of each interface, so the preference only enables newer event
// formats the dispatch layer tolerates.
const (
	compositorVersion uint32 = 4
	shmVersion        uint32 = 1
	seatVersion       uint32 = 5
	wmBaseVersion     uint32 = 1
	decorationVersion uint32 = 1
)

// Negotiate enumerates the compositor's globals and binds the subset
// the client needs. It is a fatal startup error if the enumeration
// roundtrip fails or a required global is missing.
func (a *App) Negotiate() error {
	reg := a.conn.Display.GetRegistry()
	reg.Global = a.handleGlobal
	reg.GlobalRemove = func(name uint32) {
		// Nothing is retained past binding, so there is nothing to
		// unwind here.
		a.log.Debug("global removed", "name", name)
	}
	a.registry = reg

	if err := a.conn.Roundtrip(); err != nil {
		return fmt.Errorf("registry enumeration failed: %w", err)
	}

	var missing []string
	if a.compositor == nil {
		missing = append(missing, wl.CompositorInterface)
	}
	if a.shm == nil {
		missing = append(missing, wl.ShmInterface)
	}
	if a.seat == nil {
		missing = append(missing, wl.SeatInterface)
	}
	if a.wmBase == nil {
		missing = append(missing, wl.WmBaseInterface)
	}
	if len(missing) > 0 {
		return fmt.Errorf("compositor does not advertise required globals: %v", missing)
	}

	// Second roundtrip delivers seat capabilities and shm formats
	// for the objects bound above.
	if err := a.conn.Roundtrip(); err != nil {
		return fmt.Errorf("capability roundtrip failed: %w", err)
	}
	if a.pointer == nil {
		a.log.Warn("seat has no pointer; interactive move/resize disabled")
	}
	return nil
}

// handleGlobal binds recognized interfaces as they are announced.
// Unrecognized globals are ignored for forward compatibility.
func (a *App) handleGlobal(name uint32, iface string, version uint32) {
	switch iface {
	case wl.CompositorInterface:
		a.compositor = a.registry.BindCompositor(name, min(compositorVersion, version))
	case wl.ShmInterface:
		a.shm = a.registry.BindShm(name, min(shmVersion, version))
		a.shm.Format = func(format uint32) {
			a.log.Debug("shm format advertised", "format", format)
		}
	case wl.SeatInterface:
		a.seat = a.registry.BindSeat(name, min(seatVersion, version))
		a.seat.Capabilities = a.handleSeatCapabilities
		a.seat.Name = func(seatName string) {
			a.log.Debug("seat name", "name", seatName)
		}
	case wl.WmBaseInterface:
		a.wmBase = a.registry.BindWmBase(name, min(wmBaseVersion, version))
	case wl.DecorationManagerInterface:
		a.decorManager = a.registry.BindDecorationManager(name, min(decorationVersion, version))
		// The compositor will draw the frame, so the client-drawn
		// title bar band stays out of the way.
		a.serverDecor = true
		a.log.Info("server-side decorations available")
	default:
		a.log.Debug("ignoring global", "interface", iface, "name", name, "version", version)
	}
}

func (a *App) handleSeatCapabilities(caps uint32) {
	hasPointer := caps&wl.SeatCapabilityPointer != 0
	switch {
	case hasPointer && a.pointer == nil:
		a.pointer = a.seat.GetPointer()
		a.setupPointer(a.pointer)
	case !hasPointer && a.pointer != nil:
		a.pointer.Release()
		a.pointer = nil
		a.ptr = pointerState{}
		a.log.Info("pointer capability withdrawn")
	}
}
