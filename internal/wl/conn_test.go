package wl

import (
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
)

func testConn() *Conn {
	c := &Conn{
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		nextID:  displayID + 1,
		objects: make(map[uint32]proxy),
	}
	c.Display = &Display{conn: c, objectID: displayID}
	c.objects[displayID] = c.Display
	return c
}

func TestRequestFraming(t *testing.T) {
	c := testConn()
	c.request(1, 0, uint32(2))

	got := c.out.Bytes()
	if len(got) != 12 {
		t.Fatalf("message length %d, want 12", len(got))
	}
	if object := binary.LittleEndian.Uint32(got[0:4]); object != 1 {
		t.Fatalf("object id %d, want 1", object)
	}
	sizeOp := binary.LittleEndian.Uint32(got[4:8])
	if size := sizeOp >> 16; size != 12 {
		t.Fatalf("encoded size %d, want 12", size)
	}
	if opcode := sizeOp & 0xffff; opcode != 0 {
		t.Fatalf("opcode %d, want 0", opcode)
	}
	if arg := binary.LittleEndian.Uint32(got[8:12]); arg != 2 {
		t.Fatalf("argument %d, want 2", arg)
	}
}

func TestRequestStringPadding(t *testing.T) {
	c := testConn()
	// "abc" needs a null terminator (4 bytes) and no extra padding;
	// "abcd" needs the terminator plus 3 bytes of padding.
	c.request(3, 2, "abc")
	if got := c.out.Len(); got != 8+4+4 {
		t.Fatalf("3-char string message is %d bytes, want 16", got)
	}
	c.out.Reset()
	c.request(3, 2, "abcd")
	if got := c.out.Len(); got != 8+4+8 {
		t.Fatalf("4-char string message is %d bytes, want 20", got)
	}
	if lenField := binary.LittleEndian.Uint32(c.out.Bytes()[8:12]); lenField != 5 {
		t.Fatalf("string length field %d, want 5 (includes terminator)", lenField)
	}
}

func TestRequestFdGoesOutOfBand(t *testing.T) {
	c := testConn()
	c.request(4, 0, uint32(5), fd(9), int32(64))
	// The descriptor must not appear in the message body.
	if got := c.out.Len(); got != 8+4+4 {
		t.Fatalf("message with fd is %d bytes, want 16", got)
	}
	if len(c.outFds) != 1 || c.outFds[0] != 9 {
		t.Fatalf("queued fds = %v, want [9]", c.outFds)
	}
}

func TestQueueEventsKeepsPartialMessage(t *testing.T) {
	c := testConn()
	var buf []byte
	// One complete 12-byte event.
	buf = appendHeader(buf, 7, 1, 12)
	buf = binary.LittleEndian.AppendUint32(buf, 99)
	// Followed by half of another header.
	buf = append(buf, 0xaa, 0xbb)
	c.readBuf = buf

	if err := c.queueEvents(); err != nil {
		t.Fatalf("queueEvents: %v", err)
	}
	if len(c.pending) != 1 {
		t.Fatalf("%d pending events, want 1", len(c.pending))
	}
	ev := c.pending[0]
	if ev.object != 7 || ev.opcode != 1 || len(ev.data) != 4 {
		t.Fatalf("event = %+v, want object 7 opcode 1 with 4 data bytes", ev)
	}
	if len(c.readBuf) != 2 {
		t.Fatalf("%d leftover bytes, want 2", len(c.readBuf))
	}
}

func TestPrepareRead(t *testing.T) {
	c := testConn()
	if !c.PrepareRead() {
		t.Fatalf("empty queue should allow blocking read")
	}
	c.pending = append(c.pending, event{object: 1})
	if c.PrepareRead() {
		t.Fatalf("pending events must force dispatch before blocking")
	}
}

func TestDispatchRegistryGlobal(t *testing.T) {
	c := testConn()
	reg := &Registry{conn: c, objectID: 2}
	c.register(reg)

	var gotName, gotVersion uint32
	var gotIface string
	reg.Global = func(name uint32, iface string, version uint32) {
		gotName, gotIface, gotVersion = name, iface, version
	}

	// global: name=4, iface="wl_shm" (7 bytes with terminator, padded
	// to 8), version=1.
	data := binary.LittleEndian.AppendUint32(nil, 4)
	data = binary.LittleEndian.AppendUint32(data, 7)
	data = append(data, "wl_shm\x00\x00"...)
	data = binary.LittleEndian.AppendUint32(data, 1)
	c.pending = append(c.pending, event{object: 2, opcode: 0, data: data})

	if err := c.DispatchPending(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotName != 4 || gotIface != "wl_shm" || gotVersion != 1 {
		t.Fatalf("Global(%d, %q, %d), want (4, wl_shm, 1)", gotName, gotIface, gotVersion)
	}
}

func TestDispatchDisplayErrorIsFatal(t *testing.T) {
	c := testConn()
	data := binary.LittleEndian.AppendUint32(nil, 3)  // object
	data = binary.LittleEndian.AppendUint32(data, 1)  // code
	data = binary.LittleEndian.AppendUint32(data, 5)  // message length
	data = append(data, "oops\x00\x00\x00\x00"...)
	c.pending = append(c.pending, event{object: displayID, opcode: 0, data: data})

	err := c.DispatchPending()
	if err == nil {
		t.Fatalf("expected protocol error")
	}
	pe, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("error type %T, want *ProtocolError", err)
	}
	if pe.Object != 3 || pe.Code != 1 || pe.Message != "oops" {
		t.Fatalf("unexpected error contents: %+v", pe)
	}
}

func TestCallbackUnregistersAfterDone(t *testing.T) {
	c := testConn()
	cb := c.Display.Sync()
	fired := false
	cb.Done = func(serial uint32) { fired = true }

	data := binary.LittleEndian.AppendUint32(nil, 1234)
	c.pending = append(c.pending, event{object: cb.objectID, opcode: 0, data: data})
	if err := c.DispatchPending(); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !fired {
		t.Fatalf("done handler did not fire")
	}
	if _, ok := c.objects[cb.objectID]; ok {
		t.Fatalf("one-shot callback still registered after done")
	}
}

func appendHeader(b []byte, object uint32, opcode uint16, size int) []byte {
	b = binary.LittleEndian.AppendUint32(b, object)
	return binary.LittleEndian.AppendUint32(b, uint32(size)<<16|uint32(opcode))
}

// serveOnce accepts a single client on path and runs fn with the
// accepted connection.
func serveOnce(t *testing.T, path string, fn func(conn *net.UnixConn)) {
	t.Helper()
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		defer l.Close()
		conn, err := l.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
}

func TestRoundtripAgainstFakeCompositor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayland-test")
	serveOnce(t, path, func(conn *net.UnixConn) {
		// Expect get_registry then sync, 24 bytes total.
		req := make([]byte, 24)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		registryID := binary.LittleEndian.Uint32(req[8:12])
		callbackID := binary.LittleEndian.Uint32(req[20:24])

		// Announce one global, then complete the sync.
		var out []byte
		iface := "wl_compositor\x00\x00\x00" // 14 bytes with terminator, padded to 16
		out = appendHeader(out, registryID, 0, 8+4+4+len(iface)+4)
		out = binary.LittleEndian.AppendUint32(out, 1) // name
		out = binary.LittleEndian.AppendUint32(out, 14)
		out = append(out, iface...)
		out = binary.LittleEndian.AppendUint32(out, 4) // version
		out = appendHeader(out, callbackID, 0, 12)
		out = binary.LittleEndian.AppendUint32(out, 1) // serial
		conn.Write(out)

		// Hold the connection open until the client hangs up, so the
		// client's non-blocking drain sees "no data" rather than EOF.
		io.ReadFull(conn, make([]byte, 1))
	})

	c, err := Dial(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	reg := c.Display.GetRegistry()
	var gotIface string
	var gotVersion uint32
	reg.Global = func(name uint32, iface string, version uint32) {
		gotIface, gotVersion = iface, version
	}

	if err := c.Roundtrip(); err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if gotIface != "wl_compositor" || gotVersion != 4 {
		t.Fatalf("global = (%q, %d), want (wl_compositor, 4)", gotIface, gotVersion)
	}
}
