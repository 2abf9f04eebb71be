package service

import (
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ribbonrpc/rpc/descriptor"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/version"
	"github.com/ribbonrpc/rpc/wire"
)

// testDescriptor mirrors the one in package proxy's tests: one attribute
// (id 1, float32, readable+settable+subscribable), one method (id 2,
// float32 in/out), one broadcast (id 3, bool).
type testDescriptor struct{}

func (testDescriptor) EntryKind(id uint32) descriptor.Kind {
	switch id {
	case 1:
		return descriptor.Attribute
	case 2:
		return descriptor.Method
	case 3:
		return descriptor.Broadcast
	default:
		return descriptor.None
	}
}

func (testDescriptor) Capabilities(id uint32) descriptor.Capability {
	if id == 1 {
		return descriptor.Readable | descriptor.Settable | descriptor.Subscribable
	}
	return 0
}

func (testDescriptor) DecodePayload(id uint32, b []byte) (any, status.Status) {
	switch id {
	case 1, 2:
		var v float32
		if err := cbor.Unmarshal(b, &v); err != nil {
			return nil, status.DECODING_FAILURE
		}
		return v, status.OK
	case 3:
		var v bool
		if err := cbor.Unmarshal(b, &v); err != nil {
			return nil, status.DECODING_FAILURE
		}
		return v, status.OK
	default:
		return nil, status.NO_SUCH_COMPONENT
	}
}

func (testDescriptor) EncodePayload(id uint32, v any) ([]byte, status.Status) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, status.ENCODING_FAILURE
	}
	return b, status.OK
}

func (testDescriptor) ResultType(id uint32) reflect.Type {
	switch id {
	case 1, 2:
		return reflect.TypeOf(float32(0))
	case 3:
		return reflect.TypeOf(false)
	default:
		return nil
	}
}

func (testDescriptor) Version() version.Triplet {
	return version.Triplet{Major: 1, Minor: 0, Patch: 0}
}

type stubHandler struct {
	value        float32
	setErr       status.RemoteStatus
	invokeResult float32
	invokeErr    status.RemoteStatus
	subscribed   []uint32
	unsubscribed []uint32
}

func (h *stubHandler) Get(componentID uint32) (any, status.RemoteStatus) {
	return h.value, status.REMOTE_OK
}
func (h *stubHandler) Set(componentID uint32, value any) status.RemoteStatus {
	if status.RemoteHasError(h.setErr) {
		return h.setErr
	}
	h.value = value.(float32)
	return status.REMOTE_OK
}
func (h *stubHandler) Invoke(componentID uint32, in any) (any, status.RemoteStatus) {
	if status.RemoteHasError(h.invokeErr) {
		return nil, h.invokeErr
	}
	return h.invokeResult, status.REMOTE_OK
}
func (h *stubHandler) OnSubscribe(componentID uint32)   { h.subscribed = append(h.subscribed, componentID) }
func (h *stubHandler) OnUnsubscribe(componentID uint32) { h.unsubscribed = append(h.unsubscribed, componentID) }

type recordingSender struct {
	sent [][]byte
}

func (r *recordingSender) Send(b []byte) error {
	r.sent = append(r.sent, b)
	return nil
}

func (r *recordingSender) lastMessage(t *testing.T) wire.ServerMessage {
	t.Helper()
	require.NotEmpty(t, r.sent)
	msg, st := wire.DecodeServer(r.sent[len(r.sent)-1])
	require.Equal(t, status.OK, st)
	return msg
}

func connect(t *testing.T, svc *Service, reqID uint32) {
	t.Helper()
	buf, st := wire.EncodeClient(wire.ClientMessage{ID: reqID, Kind: wire.RequestConnect})
	require.Equal(t, status.OK, st)
	require.Equal(t, status.OK, svc.ReceiveClientBuffer(buf))
}

func fire(componentID uint32, payload []byte, reqID uint32) []byte {
	buf, _ := wire.EncodeClient(wire.ClientMessage{
		ID: reqID, Kind: wire.RequestFire,
		Fire: &wire.FireBody{ComponentID: componentID, Payload: payload},
	})
	return buf
}

func attrFire(op wire.AttrOp, value []byte) []byte {
	b, _ := wire.EncodeAttributeFire(wire.AttributeFire{Op: op, Value: value})
	return b
}

func TestConnectRepliesWithConnectionAccept(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender)

	connect(t, svc, 1)

	msg := sender.lastMessage(t)
	require.Equal(t, wire.BodyReply, msg.Kind)
	require.Equal(t, wire.ReplyConnectionReply, msg.Reply.Kind)
	assert.Equal(t, wire.ConnectionAccept, msg.Reply.ConnectionReply.Type)
	assert.Equal(t, uint32(1), *msg.InReplyTo)
}

func TestConnectionGateRefuses(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender, WithConnectionGate(func() bool { return false }))

	connect(t, svc, 2)

	msg := sender.lastMessage(t)
	require.Equal(t, wire.ReplyStatus, msg.Reply.Kind)
	assert.Equal(t, status.REMOTE_CONNECTION_REFUSED, msg.Reply.Status)
}

func TestFireBeforeConnectIsRefused(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender)

	buf := fire(2, attrFire(wire.AttrGet, nil), 5)
	require.Equal(t, status.OK, svc.ReceiveClientBuffer(buf))

	msg := sender.lastMessage(t)
	require.Equal(t, wire.ReplyStatus, msg.Reply.Kind)
	assert.Equal(t, status.REMOTE_NOT_CONNECTED, msg.Reply.Status)
}

func TestMethodInvokeRoundTrip(t *testing.T) {
	sender := &recordingSender{}
	handler := &stubHandler{invokeResult: 42}
	svc := New(testDescriptor{}, handler, sender)
	connect(t, svc, 1)

	inBytes, _ := cbor.Marshal(float32(3))
	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(2, inBytes, 10)))

	msg := sender.lastMessage(t)
	require.Equal(t, wire.ReplyResult, msg.Reply.Kind)
	var out float32
	require.NoError(t, cbor.Unmarshal(msg.Reply.Result.Payload, &out))
	assert.Equal(t, float32(42), out)
}

func TestAttributeGetSet(t *testing.T) {
	sender := &recordingSender{}
	handler := &stubHandler{value: 1.5}
	svc := New(testDescriptor{}, handler, sender)
	connect(t, svc, 1)

	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(1, attrFire(wire.AttrGet, nil), 2)))
	msg := sender.lastMessage(t)
	var got float32
	require.NoError(t, cbor.Unmarshal(msg.Reply.Result.Payload, &got))
	assert.Equal(t, float32(1.5), got)

	setValue, _ := cbor.Marshal(float32(9))
	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(1, attrFire(wire.AttrSet, setValue), 3)))
	assert.Equal(t, float32(9), handler.value)
	msg = sender.lastMessage(t)
	assert.Equal(t, wire.ReplyResult, msg.Reply.Kind)
}

func TestSubscribeGatesBroadcast(t *testing.T) {
	sender := &recordingSender{}
	handler := &stubHandler{}
	svc := New(testDescriptor{}, handler, sender)
	connect(t, svc, 1)

	require.Equal(t, status.OK, svc.Broadcast(3, true))
	assert.Len(t, sender.sent, 1, "unsubscribed broadcast must not reach the transport")

	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(3, attrFire(wire.AttrSubscribe, nil), 4)))
	assert.Equal(t, []uint32{3}, handler.subscribed)

	require.Equal(t, status.OK, svc.Broadcast(3, true))
	msg := sender.lastMessage(t)
	assert.Equal(t, wire.BodyBroadcast, msg.Kind)

	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(3, attrFire(wire.AttrUnsubscribe, nil), 5)))
	assert.Equal(t, []uint32{3}, handler.unsubscribed)
}

func TestNoSuchComponentFire(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender)
	connect(t, svc, 1)

	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(99, attrFire(wire.AttrGet, nil), 2)))
	msg := sender.lastMessage(t)
	assert.Equal(t, status.REMOTE_NO_SUCH_COMPONENT, msg.Reply.Status)
}

func TestGetOnBroadcastIsIllegal(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender)
	connect(t, svc, 1)

	// Component 3 is a Broadcast, not an Attribute: AttrGet against it must
	// be rejected as illegal, not silently accepted.
	require.Equal(t, status.OK, svc.ReceiveClientBuffer(fire(3, attrFire(wire.AttrGet, nil), 2)))
	msg := sender.lastMessage(t)
	assert.Equal(t, status.REMOTE_ILLEGAL_OPERATION, msg.Reply.Status)
}

func TestRefuseRequestAndRefuseConnection(t *testing.T) {
	sender := &recordingSender{}
	svc := New(testDescriptor{}, &stubHandler{}, sender)

	st := svc.RefuseConnection(wire.ClientMessage{ID: 7, Kind: wire.RequestConnect})
	require.Equal(t, status.OK, st)
	msg := sender.lastMessage(t)
	assert.Equal(t, status.REMOTE_CONNECTION_REFUSED, msg.Reply.Status)

	st = svc.RefuseRequest(wire.ClientMessage{ID: 8, Kind: wire.RequestFire})
	require.Equal(t, status.OK, st)
	msg = sender.lastMessage(t)
	assert.Equal(t, status.REMOTE_NOT_CONNECTED, msg.Reply.Status)
}

func TestSendFailureReportsNotConnected(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSender := NewMockSender(ctrl)
	mockSender.EXPECT().Send(gomock.Any()).Return(status.Wrap(status.NOT_CONNECTED)).Times(1)

	svc := New(testDescriptor{}, &stubHandler{}, mockSender)

	st := svc.RefuseRequest(wire.ClientMessage{ID: 1, Kind: wire.RequestFire})
	assert.Equal(t, status.NOT_CONNECTED, st)
}
