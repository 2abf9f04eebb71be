/*
Package wire implements the envelope protocol's encode/decode pair: the
length-delimited, statically schema'd binary messages exchanged between a
Proxy and a Service (spec §4.2). Payload bytes inside a FireBody,
ResultBody, or BroadcastBody are opaque here; their schema belongs to the
interface descriptor (package descriptor) for the component id in
question.

Encoding is github.com/fxamacker/cbor/v2, used the way the teacher's
msg/cbor_transcode.go does, with one addition: every field carries an
explicit `keyasint` tag so that regenerating this file from the schema
below always produces the same integer keys, matching spec §4.2's
requirement of "fixed tag numbering per field."
*/
package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/ribbonrpc/rpc/status"
)

// RequestKind discriminates a ClientMessage's request (ClientMessage.Kind).
type RequestKind int

const (
	RequestConnect RequestKind = iota + 1
	RequestDisconnect
	RequestFire
)

// BodyKind discriminates a ServerMessage's body (ServerMessage.Kind).
type BodyKind int

const (
	BodyBroadcast BodyKind = iota + 1
	BodyReply
)

// ReplyKind discriminates Reply.
type ReplyKind int

const (
	ReplyStatus ReplyKind = iota + 1
	ReplyResult
	ReplyServiceInfo
	ReplyConnectionReply
)

// ConnectionReplyType discriminates ConnectionReply.
type ConnectionReplyType int

const (
	ConnectionAccept ConnectionReplyType = iota + 1
	ConnectionRefusal
)

// FireBody covers method calls, attribute get/set, and subscribe/
// unsubscribe; the semantic shape of Payload is determined by the
// descriptor entry for ComponentID.
type FireBody struct {
	ComponentID uint32 `cbor:"1,keyasint"`
	Payload     []byte `cbor:"2,keyasint"`
}

// ClientMessage is one request from Proxy to Service.
type ClientMessage struct {
	ID      uint32      `cbor:"1,keyasint"`
	Kind    RequestKind `cbor:"2,keyasint"`
	Fire    *FireBody   `cbor:"3,keyasint,omitempty"`
}

// ResultBody carries a method/attribute result payload.
type ResultBody struct {
	ComponentID uint32 `cbor:"1,keyasint"`
	Payload     []byte `cbor:"2,keyasint"`
}

// VersionTriplet is the wire shape of a (major, minor, patch) version.
type VersionTriplet struct {
	Major uint64 `cbor:"1,keyasint"`
	Minor uint64 `cbor:"2,keyasint"`
	Patch uint64 `cbor:"3,keyasint"`
}

// ServiceInfo is a handshake reply naming the service's RPC and interface
// versions, with no explicit accept/refuse verdict (acceptance is implied
// by replying at all).
type ServiceInfo struct {
	RPCVersion       VersionTriplet `cbor:"1,keyasint"`
	InterfaceVersion VersionTriplet `cbor:"2,keyasint"`
}

// ConnectionReply is the alternative, preferred handshake reply shape: an
// explicit accept/refusal verdict alongside both version triplets.
type ConnectionReply struct {
	Type             ConnectionReplyType `cbor:"1,keyasint"`
	RPCVersion       VersionTriplet      `cbor:"2,keyasint"`
	InterfaceVersion VersionTriplet      `cbor:"3,keyasint"`
}

// Reply is the body of a ServerMessage sent in response to a specific
// ClientMessage (as opposed to an unsolicited Broadcast).
type Reply struct {
	Kind            ReplyKind            `cbor:"1,keyasint"`
	Status          status.RemoteStatus  `cbor:"2,keyasint,omitempty"`
	Result          *ResultBody          `cbor:"3,keyasint,omitempty"`
	ServiceInfo     *ServiceInfo         `cbor:"4,keyasint,omitempty"`
	ConnectionReply *ConnectionReply     `cbor:"5,keyasint,omitempty"`
}

// BroadcastBody carries a server-initiated event payload.
type BroadcastBody struct {
	ComponentID uint32 `cbor:"1,keyasint"`
	Payload     []byte `cbor:"2,keyasint"`
}

// ServerMessage is one message from Service to Proxy: either an
// unsolicited Broadcast (InReplyTo nil) or a Reply to a specific request
// id (InReplyTo non-nil).
type ServerMessage struct {
	InReplyTo *uint32        `cbor:"1,keyasint,omitempty"`
	Kind      BodyKind       `cbor:"2,keyasint"`
	Broadcast *BroadcastBody `cbor:"3,keyasint,omitempty"`
	Reply     *Reply         `cbor:"4,keyasint,omitempty"`
}

// EncodeClient encodes a ClientMessage into a new buffer, the way the teacher's
// Transcoder.Encode does for its Message type.
func EncodeClient(msg ClientMessage) ([]byte, status.Status) {
	b, err := cbor.Marshal(msg)
	if err != nil {
		return nil, status.ENCODING_FAILURE
	}
	return b, status.OK
}

// DecodeClient decodes src into a ClientMessage, enforcing the
// absence-of-optional-field rule: a FIRE request with no Fire body is
// malformed, not merely an empty fire.
func DecodeClient(src []byte) (ClientMessage, status.Status) {
	var msg ClientMessage
	if err := cbor.Unmarshal(src, &msg); err != nil {
		return ClientMessage{}, status.DECODING_FAILURE
	}
	if msg.Kind == RequestFire && msg.Fire == nil {
		return ClientMessage{}, status.INCONSISTENT_REQUEST
	}
	return msg, status.OK
}

// EncodeServer encodes a ServerMessage into a new buffer.
func EncodeServer(msg ServerMessage) ([]byte, status.Status) {
	b, err := cbor.Marshal(msg)
	if err != nil {
		return nil, status.ENCODING_FAILURE
	}
	return b, status.OK
}

// DecodeServer decodes src into a ServerMessage, enforcing the
// absence-of-optional-field rule for whichever Reply/Broadcast shape Kind
// names.
func DecodeServer(src []byte) (ServerMessage, status.Status) {
	var msg ServerMessage
	if err := cbor.Unmarshal(src, &msg); err != nil {
		return ServerMessage{}, status.DECODING_FAILURE
	}
	switch msg.Kind {
	case BodyBroadcast:
		if msg.Broadcast == nil {
			return ServerMessage{}, status.INCONSISTENT_REPLY
		}
	case BodyReply:
		if msg.Reply == nil {
			return ServerMessage{}, status.INCONSISTENT_REPLY
		}
		switch msg.Reply.Kind {
		case ReplyResult:
			if msg.Reply.Result == nil {
				return ServerMessage{}, status.INCONSISTENT_REPLY
			}
		case ReplyServiceInfo:
			if msg.Reply.ServiceInfo == nil {
				return ServerMessage{}, status.INCONSISTENT_REPLY
			}
		case ReplyConnectionReply:
			if msg.Reply.ConnectionReply == nil {
				return ServerMessage{}, status.INCONSISTENT_REPLY
			}
		case ReplyStatus:
			// Status is a plain value field, zero value is REMOTE_OK; no
			// presence flag needed.
		default:
			return ServerMessage{}, status.INCONSISTENT_REPLY
		}
	default:
		return ServerMessage{}, status.INCONSISTENT_REPLY
	}
	return msg, status.OK
}
