//go:build windows

/*
Optional Windows named-pipe transport, grounded on kryptco-kr's Windows
build of socket/socket_windows.go: same library
(github.com/Microsoft/go-winio) and same "listen with winio.ListenPipe"
shape, dialing with winio.DialPipe, generalized from a fixed pipe path to
a caller-supplied one.
*/
package transport

import (
	"net"

	"braces.dev/errtrace"
	winio "github.com/Microsoft/go-winio"
)

// ListenPipe listens on a named pipe path (e.g. `\\.\pipe\rpc-server`) and
// returns a net.Listener whose Accept results are ordinary net.Conn values
// usable with New.
func ListenPipe(path string) (net.Listener, error) {
	l, err := winio.ListenPipe(path, nil)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return l, nil
}

// DialPipe connects to a named pipe path.
func DialPipe(path string) (net.Conn, error) {
	c, err := winio.DialPipe(path, nil)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return c, nil
}
