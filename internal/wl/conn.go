// Package wl implements the client side of the Wayland wire protocol
// over a unix socket, without cgo or libwayland. It covers the core
// interfaces plus the xdg-shell and xdg-decoration extensions that a
// single shm-backed toplevel needs.
package wl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// Fixed is a signed 24.8 fixed-point number as used for pointer
// coordinates on the wire.
type Fixed int32

// Int truncates the fixed-point value to whole pixels.
func (f Fixed) Int() int {
	return int(f >> 8)
}

// proxy is a client-side handle for one protocol object.
type proxy interface {
	id() uint32
	dispatch(opcode uint16, d *decoder)
}

// event is one received, not-yet-dispatched message.
type event struct {
	object uint32
	opcode uint16
	data   []byte
}

// Conn owns the socket to the compositor and all protocol objects
// created over it. It is not safe for concurrent use; the intended
// model is a single goroutine driving PrepareRead / DispatchPending /
// Flush / ReadEvents.
type Conn struct {
	sock    *net.UnixConn
	log     *slog.Logger
	nextID  uint32
	objects map[uint32]proxy

	out    bytes.Buffer // queued requests, written on Flush
	outFds []int        // fds to pass with the next Flush

	pending []event // received, undispatched events
	readBuf []byte  // partial wire data carried between reads
	scratch [4096]byte
	oob     [256]byte

	fatal error // sticky protocol error

	// Display is the wl_display singleton, object id 1.
	Display *Display
}

const displayID = 1

// SocketPath resolves the compositor socket path from the environment,
// with name overriding $WAYLAND_DISPLAY when non-empty.
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
	}
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runDir, name), nil
}

// Dial connects to the compositor socket and sets up the wl_display
// proxy. The returned connection has sent nothing yet.
func Dial(name string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path, err := SocketPath(name)
	if err != nil {
		return nil, err
	}
	raw, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to compositor at %s: %w", path, err)
	}
	c := &Conn{
		sock:    raw.(*net.UnixConn),
		log:     logger,
		nextID:  displayID + 1,
		objects: make(map[uint32]proxy),
	}
	c.Display = &Display{conn: c, objectID: displayID}
	c.objects[displayID] = c.Display
	return c, nil
}

// Close tears down the socket. All proxies become unusable.
func (c *Conn) Close() error {
	return c.sock.Close()
}

func (c *Conn) newID() uint32 {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Conn) register(p proxy) {
	c.objects[p.id()] = p
}

func (c *Conn) unregister(id uint32) {
	delete(c.objects, id)
}

// fd marks a request argument as a file descriptor passed out-of-band
// via SCM_RIGHTS rather than in the message body.
type fd int

// request marshals a message onto the outgoing queue. Wire format:
// object id, then size<<16|opcode, then the arguments, all little
// endian, strings null-terminated and padded to 32-bit boundaries.
func (c *Conn) request(object uint32, opcode uint16, args ...any) {
	start := c.out.Len()
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], object)
	c.out.Write(hdr[:])

	for _, arg := range args {
		switch v := arg.(type) {
		case uint32:
			c.putUint32(v)
		case int32:
			c.putUint32(uint32(v))
		case Fixed:
			c.putUint32(uint32(v))
		case string:
			// Length includes the null terminator.
			n := len(v) + 1
			c.putUint32(uint32(n))
			c.out.WriteString(v)
			c.out.WriteByte(0)
			for pad := (4 - n%4) % 4; pad > 0; pad-- {
				c.out.WriteByte(0)
			}
		case fd:
			c.outFds = append(c.outFds, int(v))
		case nil:
			c.putUint32(0)
		default:
			// Request signatures are fixed at compile time; an
			// unhandled type is a bug in this package.
			panic(fmt.Sprintf("wl: cannot marshal argument of type %T", arg))
		}
	}

	size := c.out.Len() - start
	if size > 0xffff {
		c.fatal = fmt.Errorf("request on object %d exceeds wire size limit (%d bytes)", object, size)
		c.out.Truncate(start)
		return
	}
	binary.LittleEndian.PutUint32(c.out.Bytes()[start+4:start+8], uint32(size)<<16|uint32(opcode))
}

func (c *Conn) putUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.out.Write(b[:])
}

// Flush writes all queued requests, passing any queued file
// descriptors alongside the first write.
func (c *Conn) Flush() error {
	if c.fatal != nil {
		return c.fatal
	}
	if c.out.Len() == 0 {
		return nil
	}
	var oob []byte
	if len(c.outFds) > 0 {
		oob = unix.UnixRights(c.outFds...)
	}
	data := c.out.Bytes()
	n, _, err := c.sock.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return fmt.Errorf("failed to flush requests: %w", err)
	}
	for n < len(data) {
		m, err := c.sock.Write(data[n:])
		if err != nil {
			return fmt.Errorf("failed to flush requests: %w", err)
		}
		n += m
	}
	c.out.Reset()
	c.outFds = c.outFds[:0]
	return nil
}

// PrepareRead reports whether the caller may block in ReadEvents.
// It returns false while already-received events remain undispatched;
// dispatching those first avoids blocking on data that will never
// arrive because the wakeup already happened.
func (c *Conn) PrepareRead() bool {
	return len(c.pending) == 0
}

// ReadEvents blocks until the compositor sends data, then drains
// everything already buffered by the kernel into the pending queue.
func (c *Conn) ReadEvents() error {
	if err := c.readOnce(true); err != nil {
		return err
	}
	for {
		if err := c.readOnce(false); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return err
		}
	}
	return c.queueEvents()
}

func (c *Conn) readOnce(block bool) error {
	if block {
		if err := c.sock.SetReadDeadline(time.Time{}); err != nil {
			return err
		}
	} else {
		// Immediate deadline turns the read into a non-blocking drain.
		if err := c.sock.SetReadDeadline(time.Now()); err != nil {
			return err
		}
	}
	n, oobn, _, _, err := c.sock.ReadMsgUnix(c.scratch[:], c.oob[:])
	if n > 0 {
		c.readBuf = append(c.readBuf, c.scratch[:n]...)
	}
	if oobn > 0 {
		c.discardFds(c.oob[:oobn])
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("compositor closed the connection")
	}
	return nil
}

// discardFds closes descriptors received in control messages. None of
// the interfaces this client binds deliver fds to the client.
func (c *Conn) discardFds(oob []byte) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return
	}
	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		for _, f := range fds {
			c.log.Debug("closing unexpected incoming fd", "fd", f)
			unix.Close(f)
		}
	}
}

// queueEvents splits complete messages out of readBuf into the
// pending queue, leaving any trailing partial message buffered.
func (c *Conn) queueEvents() error {
	for len(c.readBuf) >= 8 {
		object := binary.LittleEndian.Uint32(c.readBuf[0:4])
		sizeOp := binary.LittleEndian.Uint32(c.readBuf[4:8])
		size := int(sizeOp >> 16)
		opcode := uint16(sizeOp & 0xffff)
		if size < 8 {
			return fmt.Errorf("malformed event header on object %d (size %d)", object, size)
		}
		if len(c.readBuf) < size {
			break
		}
		data := make([]byte, size-8)
		copy(data, c.readBuf[8:size])
		c.pending = append(c.pending, event{object: object, opcode: opcode, data: data})
		c.readBuf = c.readBuf[size:]
	}
	return nil
}

// DispatchPending runs handlers for every queued event in arrival
// order. Handlers run to completion on the calling goroutine.
func (c *Conn) DispatchPending() error {
	for len(c.pending) > 0 {
		ev := c.pending[0]
		c.pending = c.pending[1:]
		p, ok := c.objects[ev.object]
		if !ok {
			// Events may race with client-side destruction of the
			// object they target.
			c.log.Debug("event for unknown object", "object", ev.object, "opcode", ev.opcode)
			continue
		}
		p.dispatch(ev.opcode, &decoder{data: ev.data})
		if c.fatal != nil {
			return c.fatal
		}
	}
	return nil
}

// Roundtrip flushes all queued requests and blocks until the
// compositor confirms it has processed them.
func (c *Conn) Roundtrip() error {
	done := false
	cb := c.Display.Sync()
	cb.Done = func(uint32) { done = true }
	if err := c.Flush(); err != nil {
		return err
	}
	for !done {
		if err := c.ReadEvents(); err != nil {
			return err
		}
		if err := c.DispatchPending(); err != nil {
			return err
		}
	}
	return nil
}

// decoder reads event arguments off the wire payload. Out-of-range
// reads yield zero values and set truncated; dispatch treats the
// payload as best-effort, matching the forward-compatibility rules of
// the protocol.
type decoder struct {
	data      []byte
	off       int
	truncated bool
}

func (d *decoder) uint32() uint32 {
	if d.off+4 > len(d.data) {
		d.truncated = true
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) int32() int32 {
	return int32(d.uint32())
}

func (d *decoder) fixed() Fixed {
	return Fixed(d.uint32())
}

func (d *decoder) string() string {
	n := int(d.uint32())
	if n == 0 {
		return "" // null string argument
	}
	if d.off+n > len(d.data) {
		d.truncated = true
		return ""
	}
	s := string(d.data[d.off : d.off+n-1]) // strip null terminator
	d.off += n + (4-n%4)%4
	return s
}

func (d *decoder) array() []byte {
	n := int(d.uint32())
	if d.off+n > len(d.data) {
		d.truncated = true
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n + (4-n%4)%4
	return b
}
