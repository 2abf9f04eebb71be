package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/ribbonrpc/rpc/status"
)

// AttrOp discriminates the four operations that can be carried as a FIRE
// against an Attribute or Broadcast component id: get/set for attributes,
// subscribe/unsubscribe for both (spec §4.4.2). The component id alone
// does not disambiguate these, since the same id serves all of an
// attribute's operations, so every such FIRE's payload is this small
// envelope wrapping the operation-specific value.
type AttrOp int

const (
	AttrGet AttrOp = iota + 1
	AttrSet
	AttrSubscribe
	AttrUnsubscribe
)

// AttributeFire is the payload shape of a FireBody whose component id
// names an Attribute or Broadcast. Value is populated only when Op is
// AttrSet, carrying the interface-specific encoded attribute value.
type AttributeFire struct {
	Op    AttrOp `cbor:"1,keyasint"`
	Value []byte `cbor:"2,keyasint,omitempty"`
}

// EncodeAttributeFire encodes an AttributeFire for use as a FireBody.Payload.
func EncodeAttributeFire(af AttributeFire) ([]byte, status.Status) {
	b, err := cbor.Marshal(af)
	if err != nil {
		return nil, status.ENCODING_FAILURE
	}
	return b, status.OK
}

// DecodeAttributeFire decodes a FireBody.Payload into an AttributeFire.
func DecodeAttributeFire(b []byte) (AttributeFire, status.Status) {
	var af AttributeFire
	if err := cbor.Unmarshal(b, &af); err != nil {
		return AttributeFire{}, status.DECODING_FAILURE
	}
	if af.Op < AttrGet || af.Op > AttrUnsubscribe {
		return AttributeFire{}, status.INCONSISTENT_REQUEST
	}
	return af, status.OK
}
