/*
Package robot is a worked example of a "generated interface module": the
hand-written equivalent of what an interface-definition compiler (out of
scope for this repository, per spec §1) would emit for one user interface.
It mirrors the reference implementation's worked example, gen-robot.pb.hpp
and robotimpl.hpp in original_source/tests, translated from the C++
template/codegen idiom into a plain Go package implementing
descriptor.Descriptor plus thin typed wrappers over package proxy and
package service.

The interface has one attribute, one method, and one broadcast:

  - MotorPower (attribute, float32): readable, settable, subscribable.
  - Move (method): takes three float32 angles, returns a MoveResult
    carrying a single float32 "fun factor" -- named for the reference
    implementation's own placeholder result field.
  - ButtonPress (broadcast): a single bool payload, fired by the service
    whenever a subscribed client should be told a button changed state.
*/
package robot

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/ribbonrpc/rpc/descriptor"
	"github.com/ribbonrpc/rpc/proxy"
	"github.com/ribbonrpc/rpc/service"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/version"
)

// Component ids, in the order the reference implementation's
// ComponentId<Robot> enum declares them.
const (
	ComponentMotorPower uint32 = iota
	ComponentMove
	ComponentButtonPress
)

// InterfaceVersion is this interface module's own version triplet,
// independent of the envelope protocol's version.Triplet RPC version.
var InterfaceVersion = version.Triplet{Major: 1, Minor: 0, Patch: 0}

// MoveIn is the Move method's argument tuple.
type MoveIn struct {
	DesiredAngle1 float32 `cbor:"1,keyasint"`
	DesiredAngle2 float32 `cbor:"2,keyasint"`
	DesiredAngle3 float32 `cbor:"3,keyasint"`
}

// MoveResult is the Move method's result.
type MoveResult struct {
	FunFactor float32 `cbor:"1,keyasint"`
}

// ButtonPress is the payload of the buttonPress broadcast.
type ButtonPress struct {
	Pressed bool `cbor:"1,keyasint"`
}

// Descriptor implements descriptor.Descriptor for the Robot interface.
// It holds no state; every method is a pure function of its component id.
type Descriptor struct{}

var _ descriptor.Descriptor = Descriptor{}

func (Descriptor) EntryKind(id uint32) descriptor.Kind {
	switch id {
	case ComponentMotorPower:
		return descriptor.Attribute
	case ComponentMove:
		return descriptor.Method
	case ComponentButtonPress:
		return descriptor.Broadcast
	default:
		return descriptor.None
	}
}

func (Descriptor) Capabilities(id uint32) descriptor.Capability {
	if id == ComponentMotorPower {
		return descriptor.Readable | descriptor.Settable | descriptor.Subscribable
	}
	return 0
}

func (Descriptor) DecodePayload(id uint32, b []byte) (any, status.Status) {
	switch id {
	case ComponentMotorPower:
		var v float32
		if err := cbor.Unmarshal(b, &v); err != nil {
			return nil, status.DECODING_FAILURE
		}
		return v, status.OK
	case ComponentMove:
		var in MoveIn
		if err := cbor.Unmarshal(b, &in); err != nil {
			return nil, status.DECODING_FAILURE
		}
		return in, status.OK
	case ComponentButtonPress:
		var bp ButtonPress
		if err := cbor.Unmarshal(b, &bp); err != nil {
			return nil, status.DECODING_FAILURE
		}
		return bp, status.OK
	default:
		return nil, status.NO_SUCH_COMPONENT
	}
}

func (Descriptor) EncodePayload(id uint32, v any) ([]byte, status.Status) {
	if id > ComponentButtonPress {
		return nil, status.NO_SUCH_COMPONENT
	}
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, status.ENCODING_FAILURE
	}
	return b, status.OK
}

func (Descriptor) ResultType(id uint32) reflect.Type {
	switch id {
	case ComponentMotorPower:
		return reflect.TypeOf(float32(0))
	case ComponentMove:
		return reflect.TypeOf(MoveResult{})
	default:
		return nil
	}
}

func (Descriptor) Version() version.Triplet {
	return InterfaceVersion
}

// Proxy is the typed client surface for the Robot interface, wrapping a
// generic *proxy.Proxy the way a generated Proxy subclass would wrap
// rpc::Proxy<T, Interface> in the reference implementation.
type Proxy struct {
	core *proxy.Proxy
}

// NewProxy creates a Robot proxy over sender. onButtonPress is called
// synchronously whenever a buttonPress broadcast arrives; it must not
// block. Nil discards broadcasts.
func NewProxy(sender proxy.Sender, onButtonPress func(ButtonPress)) *Proxy {
	onBroadcast := func(componentID uint32, v any) {
		if componentID == ComponentButtonPress && onButtonPress != nil {
			onButtonPress(v.(ButtonPress))
		}
	}
	return &Proxy{core: proxy.New(resultDescriptor{}, sender, onBroadcast)}
}

// resultDescriptor is the Descriptor as seen from the proxy side, which
// only decodes RESULT and BROADCAST payloads: a Move payload arriving there
// is a MoveResult, not the MoveIn a Service decodes from a FIRE.
type resultDescriptor struct{ Descriptor }

func (d resultDescriptor) DecodePayload(id uint32, b []byte) (any, status.Status) {
	if id != ComponentMove {
		return d.Descriptor.DecodePayload(id, b)
	}
	var out MoveResult
	if err := cbor.Unmarshal(b, &out); err != nil {
		return nil, status.DECODING_FAILURE
	}
	return out, status.OK
}

// Core exposes the underlying generic proxy, for callers that need
// ReceiveServiceBuffer, State, or Close directly.
func (p *Proxy) Core() *proxy.Proxy { return p.core }

// Connect issues the handshake.
func (p *Proxy) Connect() proxy.Future[struct{}] { return proxy.Connect(p.core) }

// Disconnect tears the connection down gracefully.
func (p *Proxy) Disconnect() proxy.Future[struct{}] { return proxy.Disconnect(p.core) }

// Close abandons the connection immediately, failing any outstanding call.
func (p *Proxy) Close() { p.core.Close() }

// MotorPower reads the current motor power.
func (p *Proxy) MotorPower() proxy.Future[float32] {
	return proxy.Get[float32](p.core, ComponentMotorPower)
}

// SetMotorPower writes a new motor power.
func (p *Proxy) SetMotorPower(v float32) proxy.Future[struct{}] {
	return proxy.Set(p.core, ComponentMotorPower, v)
}

// SubscribeMotorPower subscribes to future motor power changes (if the
// service chooses to broadcast them; nothing in this interface requires
// it to).
func (p *Proxy) SubscribeMotorPower() proxy.Future[struct{}] {
	return proxy.Subscribe(p.core, ComponentMotorPower)
}

// UnsubscribeMotorPower cancels a prior subscription.
func (p *Proxy) UnsubscribeMotorPower() proxy.Future[struct{}] {
	return proxy.Unsubscribe(p.core, ComponentMotorPower)
}

// Move calls the move method with three desired angles.
func (p *Proxy) Move(angle1, angle2, angle3 float32) proxy.Future[MoveResult] {
	return proxy.Fire[MoveResult](p.core, ComponentMove, MoveIn{
		DesiredAngle1: angle1,
		DesiredAngle2: angle2,
		DesiredAngle3: angle3,
	})
}

// SubscribeButtonPress subscribes to buttonPress broadcasts.
func (p *Proxy) SubscribeButtonPress() proxy.Future[struct{}] {
	return proxy.Subscribe(p.core, ComponentButtonPress)
}

// UnsubscribeButtonPress cancels a prior buttonPress subscription.
func (p *Proxy) UnsubscribeButtonPress() proxy.Future[struct{}] {
	return proxy.Unsubscribe(p.core, ComponentButtonPress)
}

// Handler is the typed surface a Robot service implementation provides;
// Adapter below turns one of these into a service.UserHandler.
type Handler interface {
	MotorPower() float32
	SetMotorPower(v float32) status.RemoteStatus
	Move(in MoveIn) (MoveResult, status.RemoteStatus)
	OnSubscribeMotorPower()
	OnUnsubscribeMotorPower()
	OnSubscribeButtonPress()
	OnUnsubscribeButtonPress()
}

// Adapter implements service.UserHandler by dispatching to a Handler,
// the way a generated service base class would dispatch into the user's
// override methods in the reference implementation.
type Adapter struct {
	Handler Handler
}

var _ service.UserHandler = Adapter{}

func (a Adapter) Get(componentID uint32) (any, status.RemoteStatus) {
	if componentID != ComponentMotorPower {
		return nil, status.REMOTE_NO_SUCH_COMPONENT
	}
	return a.Handler.MotorPower(), status.REMOTE_OK
}

func (a Adapter) Set(componentID uint32, value any) status.RemoteStatus {
	if componentID != ComponentMotorPower {
		return status.REMOTE_NO_SUCH_COMPONENT
	}
	v, ok := value.(float32)
	if !ok {
		return status.REMOTE_DECODING_FAILURE
	}
	return a.Handler.SetMotorPower(v)
}

func (a Adapter) Invoke(componentID uint32, in any) (any, status.RemoteStatus) {
	if componentID != ComponentMove {
		return nil, status.REMOTE_NO_SUCH_COMPONENT
	}
	args, ok := in.(MoveIn)
	if !ok {
		return nil, status.REMOTE_DECODING_FAILURE
	}
	return a.Handler.Move(args)
}

func (a Adapter) OnSubscribe(componentID uint32) {
	switch componentID {
	case ComponentMotorPower:
		a.Handler.OnSubscribeMotorPower()
	case ComponentButtonPress:
		a.Handler.OnSubscribeButtonPress()
	}
}

func (a Adapter) OnUnsubscribe(componentID uint32) {
	switch componentID {
	case ComponentMotorPower:
		a.Handler.OnUnsubscribeMotorPower()
	case ComponentButtonPress:
		a.Handler.OnUnsubscribeButtonPress()
	}
}
