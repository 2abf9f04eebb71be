/*
Package descriptor defines the contract an interface-definition code
generator (out of scope for this module, per spec §1) would implement:
the compile-time/lookup table of attributes, methods, and broadcasts for
one user-defined interface, keyed by component id.

A hand-written example satisfying this contract lives in package robot;
see its doc comment for the "generated interface module" pattern described
in spec §9.
*/
package descriptor

import (
	"reflect"

	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/version"
)

// Kind identifies what sort of entry a component id names.
type Kind int

const (
	// None is returned by EntryKind for any id not declared by the
	// interface.
	None Kind = iota
	Attribute
	Method
	Broadcast
)

// Capability flags an Attribute's supported operations.
type Capability int

const (
	Readable Capability = 1 << iota
	Settable
	Subscribable
)

// Has reports whether cap includes flag.
func (cap Capability) Has(flag Capability) bool {
	return cap&flag != 0
}

// Descriptor is the static, per-interface table the Service and Proxy
// cores dispatch through. It never allocates per-call state; all of its
// methods are pure functions of (id, bytes) or (id, value).
type Descriptor interface {
	// EntryKind reports whether id names an Attribute, Method, Broadcast,
	// or nothing at all in this interface.
	EntryKind(id uint32) Kind

	// Capabilities reports an Attribute's allowed operations. Undefined
	// for ids that are not Attribute.
	Capabilities(id uint32) Capability

	// DecodePayload decodes the bytes carried in a FireBody/ResultBody/
	// BroadcastBody for the given component id into the typed Go value the
	// generated interface module expects. Decoding failure is reported as
	// a Status (ENCODING_FAILURE/DECODING_FAILURE per spec §4.2), id
	// resolution failure as NO_SUCH_COMPONENT.
	DecodePayload(id uint32, b []byte) (any, status.Status)

	// EncodePayload is the inverse of DecodePayload: given a typed value
	// and its component id, produce the bytes to carry on the wire.
	EncodePayload(id uint32, v any) ([]byte, status.Status)

	// ResultType names the Go type a Method's result payload decodes to,
	// used by the proxy to type-check a pending completion against an
	// incoming RESULT reply (spec §3 Invariant 3, §8 property 5). Also
	// valid for a readable Attribute (its "result" is its value type).
	ResultType(id uint32) reflect.Type

	// Version reports this interface's (major, minor, patch) triplet.
	Version() version.Triplet
}
