/*
Package version holds the (major, minor, patch) triplets carried by the
envelope protocol: the fixed RPC/envelope version, and per-interface
versions supplied by each descriptor.

Compatible compares the triplet fields directly. github.com/blang/semver
is used only for String formatting: a Triplet converts to a semver.Version
at that point, since the wire format carries bare integers, not semver
strings.
*/
package version

import "github.com/blang/semver"

// Triplet is a (major, minor, patch) version, used both for the envelope
// protocol itself (RPCVersion) and for each interface descriptor's
// Version().
type Triplet struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// RPCVersion is this build's envelope/protocol version, independent of any
// particular interface's version.
var RPCVersion = Triplet{Major: 1, Minor: 0, Patch: 0}

func (t Triplet) semver() semver.Version {
	return semver.Version{Major: t.Major, Minor: t.Minor, Patch: t.Patch}
}

// Compatible reports whether a peer advertising `peer` may interoperate
// with code built against `local`. Per the protocol's compatibility rule,
// majors must match exactly and the peer's minor must be at least the
// local minor (the peer may be newer, backward-compatible); patch is
// unchecked.
func Compatible(local, peer Triplet) bool {
	return peer.Major == local.Major && peer.Minor >= local.Minor
}

func (t Triplet) String() string {
	return t.semver().String()
}
