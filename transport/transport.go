/*
Package transport adapts a net.Conn into the Sender interface both
package proxy and package service depend on, and runs the read loop that
feeds incoming envelopes to whichever core owns the connection.

Framing follows the teacher's own choice in server/server.go: CBOR values
are self-delimiting, so there is no length prefix to manage. The teacher
decodes a typed msg.Message directly off the wire with a
msg.StreamDecoder; this package decodes into a cbor.RawMessage instead,
since it has to stay agnostic to whether the bytes are a wire.ClientMessage
or a wire.ServerMessage -- that decision belongs to whichever of
service.Service or proxy.Proxy owns the connection, not to the transport.
*/
package transport

import (
	"errors"
	"io"
	"net"

	"braces.dev/errtrace"
	"github.com/fxamacker/cbor/v2"

	"github.com/ribbonrpc/rpc/status"
)

// Conn adapts a net.Conn to the Sender interface expected by
// service.Service and proxy.Proxy, and drives their decode loop.
type Conn struct {
	raw net.Conn
	dec *cbor.Decoder
}

// New wraps an already-established connection (from net.Dial or from a
// net.Listener's Accept).
func New(c net.Conn) *Conn {
	return &Conn{raw: c, dec: cbor.NewDecoder(c)}
}

// Send writes one encoded envelope to the peer.
func (c *Conn) Send(buf []byte) error {
	if _, err := c.raw.Write(buf); err != nil {
		return errtrace.Wrap(err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return errtrace.Wrap(c.raw.Close())
}

// RemoteAddr reports the peer's address, for logging.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Deliverer is satisfied by both *service.Service.ReceiveClientBuffer and
// *proxy.Proxy.ReceiveServiceBuffer.
type Deliverer func(buf []byte) status.Status

// Run reads successive envelopes off the connection and hands each one to
// deliver, until the connection is closed or a read fails. It returns nil
// on a clean EOF and a wrapped error otherwise, the way the teacher's
// startDispatcher loop breaks out of its `for` on a failed DecodeNext and
// lets the caller decide what that means.
func (c *Conn) Run(deliver Deliverer) error {
	for {
		var raw cbor.RawMessage
		if err := c.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errtrace.Wrap(err)
		}
		deliver([]byte(raw))
	}
}
