/*
Package status defines the local and wire error taxonomies shared by the
proxy and service halves of the protocol.

Status is superset of RemoteStatus: every value RemoteStatus can carry over
the wire also exists as a Status, plus a handful of purely local
observations (UNSOLICITED_REPLY, UNRECOGNIZED_RESULT, and the two version
mismatches a proxy detects on its own side of a handshake).
*/
package status

import "fmt"

// Status is the local error taxonomy: everything a Proxy or Service can
// observe, including outcomes that never travel on the wire.
type Status int

// Status values. OK must stay zero; see the Status.String and HasError
// tests for why that matters to wire compatibility.
const (
	OK Status = iota
	DECODING_FAILURE
	ENCODING_FAILURE
	INCONSISTENT_REQUEST
	INCONSISTENT_REPLY
	ILLEGAL_OPERATION
	NO_SUCH_COMPONENT
	NOT_CONNECTED
	CONNECTION_REFUSED
	UNSOLICITED_REPLY
	UNRECOGNIZED_RESULT
	RPC_VERSION_MISMATCH
	INTERFACE_VERSION_MISMATCH
)

// RemoteStatus is the subset of Status that may be carried on the wire. It
// excludes UNSOLICITED_REPLY, UNRECOGNIZED_RESULT, RPC_VERSION_MISMATCH, and
// INTERFACE_VERSION_MISMATCH, all of which are proxy-local observations
// about a reply rather than something a service would ever emit.
type RemoteStatus int

const (
	REMOTE_OK RemoteStatus = iota
	REMOTE_DECODING_FAILURE
	REMOTE_ENCODING_FAILURE
	REMOTE_INCONSISTENT_REQUEST
	REMOTE_INCONSISTENT_REPLY
	REMOTE_ILLEGAL_OPERATION
	REMOTE_NO_SUCH_COMPONENT
	REMOTE_NOT_CONNECTED
	REMOTE_CONNECTION_REFUSED

	// remoteUnknown is not itself transmitted; it marks the end of the
	// recognized range, and Local maps any wire integer at or beyond it to
	// INCONSISTENT_REPLY.
	remoteUnknown
)

// HasError reports whether s is anything other than OK.
func HasError(s Status) bool {
	return s != OK
}

// RemoteHasError reports whether s is anything other than REMOTE_OK.
func RemoteHasError(s RemoteStatus) bool {
	return s != REMOTE_OK
}

// Local maps a RemoteStatus received on the wire to the local Status space.
// An unrecognized wire value (one outside the range this build's
// RemoteStatus enumerates) maps to INCONSISTENT_REPLY, per the decode rule
// for unknown incoming integers.
func (s RemoteStatus) Local() Status {
	if s < REMOTE_OK || s >= remoteUnknown {
		return INCONSISTENT_REPLY
	}
	return Status(s)
}

// Remote converts a Status into its wire RemoteStatus, for a Service that
// needs to report a local failure back to its peer. Statuses with no wire
// representation (UNSOLICITED_REPLY, UNRECOGNIZED_RESULT, the version
// mismatches) have no legitimate reason to be sent by a service and decode
// to REMOTE_ILLEGAL_OPERATION if attempted.
func (s Status) Remote() RemoteStatus {
	if s < OK || s > CONNECTION_REFUSED {
		return REMOTE_ILLEGAL_OPERATION
	}
	return RemoteStatus(s)
}

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case DECODING_FAILURE:
		return "DECODING_FAILURE"
	case ENCODING_FAILURE:
		return "ENCODING_FAILURE"
	case INCONSISTENT_REQUEST:
		return "INCONSISTENT_REQUEST"
	case INCONSISTENT_REPLY:
		return "INCONSISTENT_REPLY"
	case ILLEGAL_OPERATION:
		return "ILLEGAL_OPERATION"
	case NO_SUCH_COMPONENT:
		return "NO_SUCH_COMPONENT"
	case NOT_CONNECTED:
		return "NOT_CONNECTED"
	case CONNECTION_REFUSED:
		return "CONNECTION_REFUSED"
	case UNSOLICITED_REPLY:
		return "UNSOLICITED_REPLY"
	case UNRECOGNIZED_RESULT:
		return "UNRECOGNIZED_RESULT"
	case RPC_VERSION_MISMATCH:
		return "RPC_VERSION_MISMATCH"
	case INTERFACE_VERSION_MISMATCH:
		return "INTERFACE_VERSION_MISMATCH"
	default:
		return fmt.Sprintf("(unknown status: %d)", int(s))
	}
}

func (s RemoteStatus) String() string {
	if s == remoteUnknown {
		return "(unknown remote status)"
	}
	return "remote " + s.Local().String()
}

// Error lets a Status satisfy the error interface, for call sites that want
// to plumb it through ordinary Go error handling (e.g. wrapping with
// braces.dev/errtrace at a transport boundary) without losing the typed
// value underneath; callers that need the Status back can type-assert.
type Error struct {
	Status Status
}

func (e Error) Error() string {
	return e.Status.String()
}

// Wrap returns nil for Status OK, otherwise an Error wrapping s.
func Wrap(s Status) error {
	if !HasError(s) {
		return nil
	}
	return Error{Status: s}
}
