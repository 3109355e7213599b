// Package transport implements the fixed-width length-prefixed framing used
// for every control-plane connection (§4.1): a single request/response per
// connection — open, write one frame, read one frame, close. It is the one
// concern in this module built directly on the standard library (see
// DESIGN.md): the wire format is specified exactly enough (host-endian
// machine-word length prefix) that pulling in a generic framing library
// would fight the spec rather than help it.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/clusterdf/ddf/pkg/log"
)

// lengthSize is the width of the length prefix in bytes — a 64-bit
// machine word, matching "host-endian machine-word size" (§4.1/§6).
const lengthSize = 8

// byteOrder is fixed cluster-wide per §6 ("little- or big-endian but
// consistent across the cluster"); little-endian is what every node in
// this deployment target actually is.
var byteOrder = binary.LittleEndian

// BindAndListen opens a TCP listener on addr ("host:port").
func BindAndListen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	log.Infof("transport: listening on %s", addr)
	return ln, nil
}

// AcceptNonblocking accepts one connection, polling with the given bound so
// the caller's listener loop can notice shutdown without blocking forever
// in Accept. Returns (nil, nil, false) on a plain poll timeout so callers
// can distinguish "nothing yet" from a real error.
func AcceptNonblocking(ln net.Listener, poll time.Duration) (conn net.Conn, err error, ok bool) {
	tl, isTCP := ln.(*net.TCPListener)
	if !isTCP {
		c, err := ln.Accept()
		return c, err, err == nil
	}
	if err := tl.SetDeadline(time.Now().Add(poll)); err != nil {
		return nil, err, false
	}
	c, err := tl.Accept()
	if err != nil {
		if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
			return nil, nil, false
		}
		return nil, err, false
	}
	return c, nil, true
}

// Connect opens a new connection to addr.
func Connect(addr string) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return conn, nil
}

// SendFramed writes the length prefix followed by payload in full, or
// returns an error — partial writes are treated as fatal on the connection
// per §4.1.
func SendFramed(w io.Writer, payload []byte) error {
	var header [lengthSize]byte
	byteOrder.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("transport: write length prefix: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("transport: write payload: %w", err)
	}
	return nil
}

// RecvFramed reads one complete frame, looping until all expected bytes are
// consumed. EOF before completion is a fatal error on the connection
// (§4.1), surfaced here as a plain error to the caller.
func RecvFramed(r io.Reader) ([]byte, error) {
	var header [lengthSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("transport: read length prefix: %w", err)
	}
	n := byteOrder.Uint64(header[:])
	if n == 0 {
		return []byte{}, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("transport: read payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// Request opens a fresh connection to addr, writes one frame, reads one
// frame back, and closes the connection — the request/response helper
// named by §4.1.
func Request(addr string, payload []byte) ([]byte, error) {
	conn, err := Connect(addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := SendFramed(conn, payload); err != nil {
		return nil, err
	}
	return RecvFramed(conn)
}
