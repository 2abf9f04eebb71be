/*
Package proxy implements the client-side correlation engine: it issues
typed requests, allocates request ids, holds pending completions, and
correlates incoming server envelopes back to the caller that is waiting on
them (spec §4.5).

Go has no built-in promise/future type and no heterogeneous-result
collection the way the reference implementation's AsyncProxy holds a
boost::variant of std::promise<T>s (original_source/include/rpc/
asyncproxy.hpp). This package's equivalent is a reflect.Type tag checked
at completion time — strategy (b) from spec §9's "variant of typed
completions" design note, the one suited to an interface whose payload
types are supplied by a caller-chosen descriptor rather than closed at
package-compile-time.
*/
package proxy

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ribbonrpc/rpc/descriptor"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/version"
	"github.com/ribbonrpc/rpc/wire"
)

// Sender is the narrow transport surface a Proxy needs.
type Sender interface {
	Send([]byte) error
}

// State is the proxy's connection state machine: Idle -> Connecting ->
// Connected -> Disconnecting -> Idle (spec §4.5).
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "(unknown state)"
	}
}

type pendingOutcome struct {
	value any
	err   status.Status
}

type pendingEntry struct {
	resultType   reflect.Type // nil for a Future[struct{}] (unit result)
	isConnect    bool
	isDisconnect bool
	ch           chan pendingOutcome
}

// entryMark flags a pending entry's role in the connection state machine;
// the zero value is an ordinary request with no state-machine side effect.
type entryMark struct {
	isConnect    bool
	isDisconnect bool
}

// Future is a one-shot, single-consumer handle to an in-flight request's
// eventual typed result or Status failure.
type Future[T any] struct {
	ch chan pendingOutcome
}

// Wait blocks until the request completes, returning its typed value or
// the Status that failed it.
func (f Future[T]) Wait() (T, status.Status) {
	var zero T
	out := <-f.ch
	if status.HasError(out.err) {
		return zero, out.err
	}
	if out.value == nil {
		return zero, status.OK
	}
	v, ok := out.value.(T)
	if !ok {
		return zero, status.UNRECOGNIZED_RESULT
	}
	return v, status.OK
}

func failedFuture[T any](st status.Status) Future[T] {
	ch := make(chan pendingOutcome, 1)
	ch <- pendingOutcome{err: st}
	return Future[T]{ch: ch}
}

// Proxy is the correlation engine for one interface/connection pair. Use
// the package-level generic functions (Get, Set, Fire, Subscribe,
// Unsubscribe, Connect, Disconnect) to issue requests against it; a
// generated interface module (see package robot) wraps those in a typed,
// per-entry surface.
type Proxy struct {
	desc        descriptor.Descriptor
	sender      Sender
	onBroadcast func(componentID uint32, value any)

	counter uint32 // atomic

	mu      sync.Mutex
	state   State
	pending map[uint32]*pendingEntry
}

// New creates a Proxy bound to one interface descriptor and transport
// sender. onBroadcast is invoked synchronously from whatever goroutine
// calls ReceiveServiceBuffer (spec §4.5 "Broadcast fan-out"); it must not
// block.
func New(desc descriptor.Descriptor, sender Sender, onBroadcast func(componentID uint32, value any)) *Proxy {
	return &Proxy{
		desc:        desc,
		sender:      sender,
		onBroadcast: onBroadcast,
		pending:     make(map[uint32]*pendingEntry),
		state:       Idle,
	}
}

// State reports the proxy's current connection state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Proxy) nextID() uint32 {
	return atomic.AddUint32(&p.counter, 1)
}

// checkReady reports NOT_CONNECTED unless the proxy is in the Connected
// state, per spec §4.5: every operation but connect() is rejected outside
// Connected.
func (p *Proxy) checkReady() status.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Connected {
		return status.NOT_CONNECTED
	}
	return status.OK
}

// registerAndSend allocates a request id, encodes the message the caller
// builds from it, registers the pending completion, and only then hands
// the buffer to the transport -- in that order, never reversed, per the
// ordering requirement in spec §4.5 and §5.
func registerAndSend[T any](p *Proxy, resultType reflect.Type, mark entryMark, buildMsg func(id uint32) wire.ClientMessage) Future[T] {
	id := p.nextID()
	msg := buildMsg(id)
	buf, st := wire.EncodeClient(msg)
	if status.HasError(st) {
		return failedFuture[T](st)
	}

	ch := make(chan pendingOutcome, 1)
	entry := &pendingEntry{
		resultType:   resultType,
		isConnect:    mark.isConnect,
		isDisconnect: mark.isDisconnect,
		ch:           ch,
	}

	p.mu.Lock()
	if old, exists := p.pending[id]; exists {
		// Id wrap collision: the reference-compatible policy is to
		// displace, failing the older entry before the new one takes its
		// slot (spec §4.5, §9 Open Question 3).
		old.ch <- pendingOutcome{err: status.UNSOLICITED_REPLY}
		delete(p.pending, id)
	}
	p.pending[id] = entry
	p.mu.Unlock()

	if err := p.sender.Send(buf); err != nil {
		p.failPending(id, status.NOT_CONNECTED)
	}
	return Future[T]{ch: ch}
}

// failPending removes and fails a pending entry if still present, and
// applies any connection-state-machine side effect its mark carries.
func (p *Proxy) failPending(id uint32, st status.Status) {
	p.mu.Lock()
	entry, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	p.applyStateTransition(entry, st)
	entry.ch <- pendingOutcome{err: st}
}

func (p *Proxy) completePending(id uint32, entry *pendingEntry, outcome pendingOutcome) {
	p.applyStateTransition(entry, outcome.err)
	entry.ch <- outcome
}

func (p *Proxy) applyStateTransition(entry *pendingEntry, err status.Status) {
	if !entry.isConnect && !entry.isDisconnect {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case entry.isConnect && !status.HasError(err):
		p.state = Connected
	case entry.isConnect:
		p.state = Idle
	case entry.isDisconnect:
		p.state = Idle
	}
}

// Connect issues the handshake request. Valid only from Idle; calling it
// otherwise fails immediately with ILLEGAL_OPERATION without touching the
// wire.
func Connect(p *Proxy) Future[struct{}] {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return failedFuture[struct{}](status.ILLEGAL_OPERATION)
	}
	p.state = Connecting
	p.mu.Unlock()

	return registerAndSend[struct{}](p, nil, entryMark{isConnect: true}, func(id uint32) wire.ClientMessage {
		return wire.ClientMessage{ID: id, Kind: wire.RequestConnect}
	})
}

// Disconnect sends DISCONNECT (with a request id -- spec §9 Open Question
// 1 calls the reference's id-less makeDisconnect a bug and directs this
// implementation not to repeat it), awaits STATUS(OK), and transitions to
// Idle whether or not the peer actually answers with OK.
func Disconnect(p *Proxy) Future[struct{}] {
	p.mu.Lock()
	if p.state != Connected {
		p.mu.Unlock()
		return failedFuture[struct{}](status.NOT_CONNECTED)
	}
	p.state = Disconnecting
	p.mu.Unlock()

	return registerAndSend[struct{}](p, nil, entryMark{isDisconnect: true}, func(id uint32) wire.ClientMessage {
		return wire.ClientMessage{ID: id, Kind: wire.RequestDisconnect}
	})
}

// Get issues an attribute read.
func Get[V any](p *Proxy, componentID uint32) Future[V] {
	if st := p.checkReady(); status.HasError(st) {
		return failedFuture[V](st)
	}
	vt := reflect.TypeOf((*V)(nil)).Elem()
	return registerAndSend[V](p, vt, entryMark{}, func(id uint32) wire.ClientMessage {
		payload, _ := wire.EncodeAttributeFire(wire.AttributeFire{Op: wire.AttrGet})
		return wire.ClientMessage{ID: id, Kind: wire.RequestFire, Fire: &wire.FireBody{ComponentID: componentID, Payload: payload}}
	})
}

// Set issues an attribute write.
func Set(p *Proxy, componentID uint32, value any) Future[struct{}] {
	if st := p.checkReady(); status.HasError(st) {
		return failedFuture[struct{}](st)
	}
	valueBytes, st := p.desc.EncodePayload(componentID, value)
	if status.HasError(st) {
		return failedFuture[struct{}](st)
	}
	return registerAndSend[struct{}](p, nil, entryMark{}, func(id uint32) wire.ClientMessage {
		payload, _ := wire.EncodeAttributeFire(wire.AttributeFire{Op: wire.AttrSet, Value: valueBytes})
		return wire.ClientMessage{ID: id, Kind: wire.RequestFire, Fire: &wire.FireBody{ComponentID: componentID, Payload: payload}}
	})
}

func fireAttrOp(p *Proxy, componentID uint32, op wire.AttrOp) Future[struct{}] {
	if st := p.checkReady(); status.HasError(st) {
		return failedFuture[struct{}](st)
	}
	return registerAndSend[struct{}](p, nil, entryMark{}, func(id uint32) wire.ClientMessage {
		payload, _ := wire.EncodeAttributeFire(wire.AttributeFire{Op: op})
		return wire.ClientMessage{ID: id, Kind: wire.RequestFire, Fire: &wire.FireBody{ComponentID: componentID, Payload: payload}}
	})
}

// Subscribe issues a subscribe request against a subscribable attribute or
// broadcast component id.
func Subscribe(p *Proxy, componentID uint32) Future[struct{}] {
	return fireAttrOp(p, componentID, wire.AttrSubscribe)
}

// Unsubscribe issues an unsubscribe request.
func Unsubscribe(p *Proxy, componentID uint32) Future[struct{}] {
	return fireAttrOp(p, componentID, wire.AttrUnsubscribe)
}

// Fire issues a method call.
func Fire[Out any](p *Proxy, componentID uint32, in any) Future[Out] {
	if st := p.checkReady(); status.HasError(st) {
		return failedFuture[Out](st)
	}
	inBytes, st := p.desc.EncodePayload(componentID, in)
	if status.HasError(st) {
		return failedFuture[Out](st)
	}
	ot := reflect.TypeOf((*Out)(nil)).Elem()
	return registerAndSend[Out](p, ot, entryMark{}, func(id uint32) wire.ClientMessage {
		return wire.ClientMessage{ID: id, Kind: wire.RequestFire, Fire: &wire.FireBody{ComponentID: componentID, Payload: inBytes}}
	})
}

// Cancel removes a pending request's completion and fails its future,
// without notifying the peer (the wire protocol has no cancellation
// message -- spec §5). A later reply bearing the same id is then
// observed as an ordinary UNSOLICITED_REPLY. Cancel itself reports
// UNSOLICITED_REPLY if id does not name a currently-pending request.
func Cancel(p *Proxy, id uint32) status.Status {
	p.mu.Lock()
	entry, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		return status.UNSOLICITED_REPLY
	}
	p.applyStateTransition(entry, status.NOT_CONNECTED)
	entry.ch <- pendingOutcome{err: status.NOT_CONNECTED}
	return status.OK
}

// Close fails every outstanding pending completion with a synthetic
// NOT_CONNECTED and resets the proxy to Idle, per spec §5 "Resource
// lifetime": on teardown no awaiter is left hanging.
func (p *Proxy) Close() {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[uint32]*pendingEntry)
	p.state = Idle
	p.mu.Unlock()

	for _, entry := range pending {
		entry.ch <- pendingOutcome{err: status.NOT_CONNECTED}
	}
}

// ReceiveServiceBuffer decodes an incoming envelope and either completes a
// pending request's future (REPLY) or invokes onBroadcast (BROADCAST).
func (p *Proxy) ReceiveServiceBuffer(buf []byte) status.Status {
	msg, st := wire.DecodeServer(buf)
	if status.HasError(st) {
		return st
	}
	switch msg.Kind {
	case wire.BodyBroadcast:
		return p.handleBroadcast(msg.Broadcast)
	case wire.BodyReply:
		if msg.InReplyTo == nil {
			return status.INCONSISTENT_REPLY
		}
		return p.handleReply(*msg.InReplyTo, msg.Reply)
	default:
		return status.INCONSISTENT_REPLY
	}
}

func (p *Proxy) handleBroadcast(b *wire.BroadcastBody) status.Status {
	val, st := p.desc.DecodePayload(b.ComponentID, b.Payload)
	if status.HasError(st) {
		return st
	}
	if p.onBroadcast != nil {
		p.onBroadcast(b.ComponentID, val)
	}
	return status.OK
}

func (p *Proxy) handleReply(id uint32, reply *wire.Reply) status.Status {
	p.mu.Lock()
	entry, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		return status.UNSOLICITED_REPLY
	}

	switch reply.Kind {
	case wire.ReplyStatus:
		localStatus := reply.Status.Local()
		if !status.HasError(localStatus) {
			if entry.resultType != nil {
				p.completePending(id, entry, pendingOutcome{err: status.UNRECOGNIZED_RESULT})
			} else {
				p.completePending(id, entry, pendingOutcome{})
			}
		} else {
			p.completePending(id, entry, pendingOutcome{err: localStatus})
		}
		return status.OK

	case wire.ReplyResult:
		// A unit entry (Set/Subscribe/Unsubscribe) expects no value back;
		// the service's RESULT payload for these is empty by construction
		// (spec §4.4.1, "for writes it returns an empty payload"), so there
		// is nothing to decode or type-check against.
		if entry.resultType == nil {
			p.completePending(id, entry, pendingOutcome{})
			return status.OK
		}
		val, dst := p.desc.DecodePayload(reply.Result.ComponentID, reply.Result.Payload)
		if status.HasError(dst) {
			p.completePending(id, entry, pendingOutcome{err: dst})
			return dst
		}
		expected := p.desc.ResultType(reply.Result.ComponentID)
		if expected == nil || expected != entry.resultType {
			p.completePending(id, entry, pendingOutcome{err: status.UNRECOGNIZED_RESULT})
		} else {
			p.completePending(id, entry, pendingOutcome{value: val})
		}
		return status.OK

	case wire.ReplyServiceInfo:
		info := reply.ServiceInfo
		return p.handleHandshakeReply(id, entry, info.RPCVersion, info.InterfaceVersion)

	case wire.ReplyConnectionReply:
		cr := reply.ConnectionReply
		if cr.Type == wire.ConnectionRefusal {
			p.completePending(id, entry, pendingOutcome{err: status.CONNECTION_REFUSED})
			return status.OK
		}
		return p.handleHandshakeReply(id, entry, cr.RPCVersion, cr.InterfaceVersion)

	default:
		p.completePending(id, entry, pendingOutcome{err: status.INCONSISTENT_REPLY})
		return status.INCONSISTENT_REPLY
	}
}

func (p *Proxy) handleHandshakeReply(id uint32, entry *pendingEntry, rpcV, ifaceV wire.VersionTriplet) status.Status {
	peerRPC := wireToTriplet(rpcV)
	if !version.Compatible(version.RPCVersion, peerRPC) {
		p.completePending(id, entry, pendingOutcome{err: status.RPC_VERSION_MISMATCH})
		return status.OK
	}
	peerIface := wireToTriplet(ifaceV)
	if !version.Compatible(p.desc.Version(), peerIface) {
		p.completePending(id, entry, pendingOutcome{err: status.INTERFACE_VERSION_MISMATCH})
		return status.OK
	}
	p.completePending(id, entry, pendingOutcome{})
	return status.OK
}

func wireToTriplet(v wire.VersionTriplet) version.Triplet {
	return version.Triplet{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}
