/*
Package service implements the server-side half of the protocol: it
receives ClientMessages, dispatches FIRE requests to a user-supplied
handler by component id, and emits typed replies and broadcasts (spec
§4.4).

A Service is scoped to a single connected peer, the way the teacher's
serverClient is one struct per accepted net.Conn (server/server.go);
fanning a broadcast out to many peers, if a deployment needs that, is a
matter of holding one Service per peer and calling Broadcast on each, not
something this core tracks internally.
*/
package service

import (
	"sync"

	"github.com/ribbonrpc/rpc/descriptor"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/version"
	"github.com/ribbonrpc/rpc/wire"
)

// Sender is the narrow transport surface a Service needs: hand it an
// encoded envelope. Supplied by the transport package's adapters, but
// named here so service has no import-time dependency on transport.
type Sender interface {
	Send([]byte) error
}

// UserHandler is the dispatcher a Service calls into for every FIRE
// request it accepts, per spec §4.4.1.
type UserHandler interface {
	// Get returns a readable attribute's current value.
	Get(componentID uint32) (value any, st status.RemoteStatus)
	// Set applies a new value to a settable attribute.
	Set(componentID uint32, value any) status.RemoteStatus
	// Invoke calls a method, returning its typed result.
	Invoke(componentID uint32, in any) (out any, st status.RemoteStatus)
	// OnSubscribe/OnUnsubscribe notify of subscription changes; a handler
	// with nothing to do on either may no-op.
	OnSubscribe(componentID uint32)
	OnUnsubscribe(componentID uint32)
}

// Option configures a Service at construction.
type Option func(*Service)

// WithConnectionGate installs a predicate consulted on every CONNECT
// request; when it returns false the connection is refused (spec §4.4
// refuseConnection) rather than silently accepted. Omitted, every CONNECT
// is accepted.
func WithConnectionGate(gate func() bool) Option {
	return func(s *Service) { s.gate = gate }
}

// Service dispatches one connected peer's requests to handler and emits
// replies/broadcasts through sender.
type Service struct {
	desc    descriptor.Descriptor
	handler UserHandler
	sender  Sender
	gate    func() bool

	mu            sync.Mutex
	connected     bool
	subscriptions map[uint32]bool
}

// New creates a Service for one peer connection.
func New(desc descriptor.Descriptor, handler UserHandler, sender Sender, opts ...Option) *Service {
	s := &Service{
		desc:          desc,
		handler:       handler,
		sender:        sender,
		subscriptions: make(map[uint32]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReceiveClientBuffer decodes an envelope and dispatches it. A malformed
// envelope produces no reply; the decode failure is reported only to the
// caller, per spec §4.4 ("pure parse error at the boundary is reported to
// the transport caller only").
func (s *Service) ReceiveClientBuffer(buf []byte) status.Status {
	msg, st := wire.DecodeClient(buf)
	if status.HasError(st) {
		return st
	}
	return s.dispatch(msg)
}

func (s *Service) dispatch(msg wire.ClientMessage) status.Status {
	switch msg.Kind {
	case wire.RequestConnect:
		return s.dispatchConnect(msg.ID)
	case wire.RequestDisconnect:
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		return s.sendStatus(msg.ID, status.REMOTE_OK)
	case wire.RequestFire:
		return s.dispatchFire(msg.ID, msg.Fire)
	default:
		return s.sendStatus(msg.ID, status.REMOTE_ILLEGAL_OPERATION)
	}
}

func (s *Service) dispatchConnect(reqID uint32) status.Status {
	s.mu.Lock()
	accept := s.gate == nil || s.gate()
	if accept {
		s.connected = true
	}
	s.mu.Unlock()

	if !accept {
		return s.sendStatus(reqID, status.REMOTE_CONNECTION_REFUSED)
	}

	reply := wire.ConnectionReply{
		Type:             wire.ConnectionAccept,
		RPCVersion:       tripletToWire(version.RPCVersion),
		InterfaceVersion: tripletToWire(s.desc.Version()),
	}
	id := reqID
	return s.send(wire.ServerMessage{
		InReplyTo: &id,
		Kind:      wire.BodyReply,
		Reply:     &wire.Reply{Kind: wire.ReplyConnectionReply, ConnectionReply: &reply},
	})
}

func (s *Service) dispatchFire(reqID uint32, fire *wire.FireBody) status.Status {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		return s.sendStatus(reqID, status.REMOTE_NOT_CONNECTED)
	}

	cid := fire.ComponentID
	kind := s.desc.EntryKind(cid)
	switch kind {
	case descriptor.None:
		return s.sendStatus(reqID, status.REMOTE_NO_SUCH_COMPONENT)
	case descriptor.Method:
		return s.dispatchMethodFire(reqID, cid, fire.Payload)
	case descriptor.Attribute, descriptor.Broadcast:
		return s.dispatchAttributeFire(reqID, cid, kind, fire.Payload)
	default:
		return s.sendStatus(reqID, status.REMOTE_ILLEGAL_OPERATION)
	}
}

func (s *Service) dispatchMethodFire(reqID, cid uint32, payload []byte) status.Status {
	in, dst := s.desc.DecodePayload(cid, payload)
	if status.HasError(dst) {
		return s.sendStatus(reqID, dst.Remote())
	}
	out, rst := s.handler.Invoke(cid, in)
	if status.RemoteHasError(rst) {
		return s.sendStatus(reqID, rst)
	}
	result, est := s.desc.EncodePayload(cid, out)
	if status.HasError(est) {
		return s.sendStatus(reqID, est.Remote())
	}
	return s.sendResult(reqID, cid, result)
}

func (s *Service) dispatchAttributeFire(reqID, cid uint32, kind descriptor.Kind, payload []byte) status.Status {
	af, st := wire.DecodeAttributeFire(payload)
	if status.HasError(st) {
		return s.sendStatus(reqID, st.Remote())
	}

	caps := s.desc.Capabilities(cid)
	switch af.Op {
	case wire.AttrGet:
		if kind != descriptor.Attribute || !caps.Has(descriptor.Readable) {
			return s.sendStatus(reqID, status.REMOTE_ILLEGAL_OPERATION)
		}
		val, rst := s.handler.Get(cid)
		if status.RemoteHasError(rst) {
			return s.sendStatus(reqID, rst)
		}
		result, est := s.desc.EncodePayload(cid, val)
		if status.HasError(est) {
			return s.sendStatus(reqID, est.Remote())
		}
		return s.sendResult(reqID, cid, result)

	case wire.AttrSet:
		if kind != descriptor.Attribute || !caps.Has(descriptor.Settable) {
			return s.sendStatus(reqID, status.REMOTE_ILLEGAL_OPERATION)
		}
		val, dst := s.desc.DecodePayload(cid, af.Value)
		if status.HasError(dst) {
			return s.sendStatus(reqID, dst.Remote())
		}
		rst := s.handler.Set(cid, val)
		if status.RemoteHasError(rst) {
			return s.sendStatus(reqID, rst)
		}
		return s.sendResult(reqID, cid, nil)

	case wire.AttrSubscribe, wire.AttrUnsubscribe:
		if kind == descriptor.Attribute && !caps.Has(descriptor.Subscribable) {
			return s.sendStatus(reqID, status.REMOTE_ILLEGAL_OPERATION)
		}
		subscribed := af.Op == wire.AttrSubscribe
		s.setSubscribed(cid, subscribed)
		if subscribed {
			s.handler.OnSubscribe(cid)
		} else {
			s.handler.OnUnsubscribe(cid)
		}
		return s.sendResult(reqID, cid, nil)

	default:
		return s.sendStatus(reqID, status.REMOTE_ILLEGAL_OPERATION)
	}
}

func (s *Service) setSubscribed(cid uint32, subscribed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subscribed {
		s.subscriptions[cid] = true
	} else {
		delete(s.subscriptions, cid)
	}
}

func (s *Service) isSubscribed(cid uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions[cid]
}

// Broadcast emits a BROADCAST envelope for a server-initiated event, but
// only if this peer is currently subscribed to componentID (spec §4.4.2,
// "subscribable attribute/broadcast"). componentID may name either a
// Broadcast entry or a Subscribable Attribute (a change notification for
// that attribute's value); any other kind has nothing to subscribe to and
// is rejected. A broadcast to an unsubscribed peer is a silent no-op, not
// an error.
func (s *Service) Broadcast(componentID uint32, value any) status.Status {
	kind := s.desc.EntryKind(componentID)
	subscribableAttr := kind == descriptor.Attribute && s.desc.Capabilities(componentID).Has(descriptor.Subscribable)
	if kind != descriptor.Broadcast && !subscribableAttr {
		return status.NO_SUCH_COMPONENT
	}
	if !s.isSubscribed(componentID) {
		return status.OK
	}
	payload, st := s.desc.EncodePayload(componentID, value)
	if status.HasError(st) {
		return st
	}
	return s.send(wire.ServerMessage{
		Kind:      wire.BodyBroadcast,
		Broadcast: &wire.BroadcastBody{ComponentID: componentID, Payload: payload},
	})
}

// RefuseConnection emits STATUS(CONNECTION_REFUSED) in reply to a CONNECT,
// echoing the client's request id, without marking the peer connected.
func (s *Service) RefuseConnection(clientMsg wire.ClientMessage) status.Status {
	return s.sendStatus(clientMsg.ID, status.REMOTE_CONNECTION_REFUSED)
}

// RefuseRequest emits STATUS(NOT_CONNECTED) in reply to any request,
// echoing the client's request id.
func (s *Service) RefuseRequest(clientMsg wire.ClientMessage) status.Status {
	return s.sendStatus(clientMsg.ID, status.REMOTE_NOT_CONNECTED)
}

func (s *Service) sendStatus(reqID uint32, rs status.RemoteStatus) status.Status {
	id := reqID
	return s.send(wire.ServerMessage{
		InReplyTo: &id,
		Kind:      wire.BodyReply,
		Reply:     &wire.Reply{Kind: wire.ReplyStatus, Status: rs},
	})
}

func (s *Service) sendResult(reqID, cid uint32, payload []byte) status.Status {
	id := reqID
	return s.send(wire.ServerMessage{
		InReplyTo: &id,
		Kind:      wire.BodyReply,
		Reply: &wire.Reply{
			Kind:   wire.ReplyResult,
			Result: &wire.ResultBody{ComponentID: cid, Payload: payload},
		},
	})
}

func (s *Service) send(msg wire.ServerMessage) status.Status {
	buf, st := wire.EncodeServer(msg)
	if status.HasError(st) {
		return st
	}
	if err := s.sender.Send(buf); err != nil {
		// A transport failure here means this peer is effectively gone;
		// NOT_CONNECTED is the closest member of the fixed Status taxonomy
		// (spec §3) to "could not deliver."
		return status.NOT_CONNECTED
	}
	return status.OK
}

func tripletToWire(t version.Triplet) wire.VersionTriplet {
	return wire.VersionTriplet{Major: t.Major, Minor: t.Minor, Patch: t.Patch}
}
